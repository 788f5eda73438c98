package main

import (
	"bytes"
	"testing"

	"github.com/Rrens/flexy-chat/internal/chart"
	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPrintMessage(t *testing.T) {
	content := `Revenue by region: {"type":"bar","title":"Revenue","data":{"labels":["N","S"],"datasets":[{"label":"USD","data":[3,4]}]},"insights":["North leads"]}`
	msg := domain.Message{Role: domain.RoleAssistant, Content: content, Display: chart.Decorate(content)}

	var out bytes.Buffer
	printMessage(&out, msg)

	assert.Equal(t, "assistant> Revenue by region:\n  [bar chart] Revenue (2 labels, 1 series)\n    - North leads\n", out.String())
}

func TestPrintMessage_MetadataChart(t *testing.T) {
	msg := domain.Message{
		Role:    domain.RoleAssistant,
		Content: "See chart",
		Display: domain.Display{Prose: "See chart"},
		Chart:   &domain.ChartRecord{Type: domain.ChartPie, Title: "Share"},
	}

	var out bytes.Buffer
	printMessage(&out, msg)

	assert.Equal(t, "assistant> See chart\n  [pie chart] Share (0 labels, 0 series)\n", out.String())
}

func TestPrintMessage_UserFallsBackToContent(t *testing.T) {
	var out bytes.Buffer
	printMessage(&out, domain.Message{Role: domain.RoleUser, Content: "hello"})
	assert.Equal(t, "you> hello\n", out.String())
}
