package chart

import (
	"testing"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	contentChart := `Breakdown: {"type": "pie", "title": "From text", "data": {"labels": ["a"], "datasets": [{"data": [1]}]}}`

	tests := []struct {
		name      string
		frame     domain.Frame
		wantNil   bool
		wantKind  domain.ChartKind
		wantTitle string
	}{
		{
			name: "metadata wins over content",
			frame: domain.Frame{
				Type:    domain.FrameAIResponse,
				Content: contentChart,
				Data: &domain.FrameData{ChartConfig: map[string]any{
					"type":  "bar",
					"title": "From metadata",
					"data":  map[string]any{"labels": []any{"x"}, "datasets": []any{}},
				}},
			},
			wantKind:  domain.ChartBar,
			wantTitle: "From metadata",
		},
		{
			name: "chart_data alias with chart_type",
			frame: domain.Frame{
				Type: domain.FrameAIResponse,
				Data: &domain.FrameData{ChartData: map[string]any{
					"chart_type": "line_chart",
					"data":       map[string]any{"labels": []any{}, "datasets": []any{}},
				}},
			},
			wantKind:  domain.ChartLine,
			wantTitle: domain.DefaultChartTitle,
		},
		{
			name:      "falls back to content",
			frame:     domain.Frame{Type: domain.FrameAIResponse, Content: contentChart},
			wantKind:  domain.ChartPie,
			wantTitle: "From text",
		},
		{
			name: "unusable metadata falls back to content",
			frame: domain.Frame{
				Type:    domain.FrameAIResponse,
				Content: contentChart,
				Data:    &domain.FrameData{ChartConfig: map[string]any{"title": "kindless"}},
			},
			wantKind:  domain.ChartPie,
			wantTitle: "From text",
		},
		{
			name:    "nothing",
			frame:   domain.Frame{Type: domain.FrameAIResponse, Content: "plain answer {\"rows\": 2}"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Resolve(tt.frame)
			if tt.wantNil {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantKind, rec.Type)
			assert.Equal(t, tt.wantTitle, rec.Title)
		})
	}
}

func TestDecorate(t *testing.T) {
	display := Decorate(`Totals below. {"type": "bar", "data": {"labels": ["a"], "datasets": [{"data": [3]}]}}`)

	assert.Equal(t, "Totals below.", display.Prose)
	require.Len(t, display.Charts, 1)
	assert.Equal(t, domain.ChartBar, display.Charts[0].Type)
}

func TestFromMap_Empty(t *testing.T) {
	rec, err := FromMap(nil)

	assert.Nil(t, rec)
	assert.ErrorIs(t, err, errNotChart)
}
