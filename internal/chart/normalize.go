package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Rrens/flexy-chat/internal/domain"
)

// errNotChart marks a block that decoded fine but carries no chart intent
var errNotChart = errors.New("not a chart description")

// envelope captures the outer level of an embedded chart description
type envelope struct {
	ResponseType string          `json:"response_type"`
	ChartConfig  json.RawMessage `json:"chart_config"`
	Insights     flexStrings     `json:"insights"`
}

// rawChart mirrors a chart configuration as the assistant emits it
type rawChart struct {
	Type      string         `json:"type"`
	ChartType string         `json:"chart_type"`
	Title     string         `json:"title"`
	Data      rawData        `json:"data"`
	Options   map[string]any `json:"options"`
	Insights  flexStrings    `json:"insights"`
}

type rawData struct {
	Labels   flexStrings  `json:"labels"`
	Datasets []rawDataset `json:"datasets"`
}

type rawDataset struct {
	Label           string      `json:"label"`
	Data            flexNumbers `json:"data"`
	BackgroundColor flexStrings `json:"backgroundColor"`
	BorderColor     flexStrings `json:"borderColor"`
	BorderWidth     *float64    `json:"borderWidth"`
}

// decodeBlock turns one balanced JSON block into a chart record. Three
// shapes are accepted:
//
//	{"response_type": "chart", "chart_config": {...}, "insights": [...]}
//	{"chart_config": {"type": "pie", ...}}
//	{"type": "bar", "title": "...", "data": {...}}
//
// Insights on the outer level win over the ones inside chart_config.
func decodeBlock(block []byte) (*domain.ChartRecord, error) {
	var env envelope
	if err := json.Unmarshal(block, &env); err != nil {
		return nil, fmt.Errorf("failed to decode block: %w", err)
	}

	if len(env.ChartConfig) > 0 && string(env.ChartConfig) != "null" {
		var cfg rawChart
		if err := json.Unmarshal(env.ChartConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode chart_config: %w", err)
		}
		tagged := strings.EqualFold(env.ResponseType, "chart")
		kind, ok := configKind(cfg)
		if !ok {
			if tagged {
				return nil, fmt.Errorf("chart envelope without a recognized kind: %w", errNotChart)
			}
			return nil, errNotChart
		}
		insights := env.Insights
		if len(insights) == 0 {
			insights = cfg.Insights
		}
		return build(kind, cfg, insights), nil
	}

	var bare rawChart
	if err := json.Unmarshal(block, &bare); err != nil {
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	kind := domain.ChartKind(strings.ToLower(strings.TrimSpace(bare.Type)))
	if !kind.Valid() {
		return nil, errNotChart
	}
	return build(kind, bare, bare.Insights), nil
}

// configKind resolves the kind of a nested chart_config, which may use either
// "type" or "chart_type" and the insight style "bar_chart" spelling.
func configKind(cfg rawChart) (domain.ChartKind, bool) {
	for _, candidate := range []string{cfg.Type, cfg.ChartType} {
		k := strings.ToLower(strings.TrimSpace(candidate))
		k = strings.TrimSuffix(k, "_chart")
		if kind := domain.ChartKind(k); kind.Valid() {
			return kind, true
		}
	}
	return "", false
}

func build(kind domain.ChartKind, cfg rawChart, insights flexStrings) *domain.ChartRecord {
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = domain.DefaultChartTitle
	}

	datasets := make([]domain.ChartDataset, 0, len(cfg.Data.Datasets))
	for _, ds := range cfg.Data.Datasets {
		datasets = append(datasets, domain.ChartDataset{
			Label:           ds.Label,
			Data:            ds.Data.values,
			Points:          ds.Data.points,
			BackgroundColor: ds.BackgroundColor,
			BorderColor:     ds.BorderColor,
			BorderWidth:     ds.BorderWidth,
		})
	}

	return &domain.ChartRecord{
		Type:  kind,
		Title: title,
		Data: domain.ChartData{
			Labels:   cfg.Data.Labels,
			Datasets: datasets,
		},
		Options:  cfg.Options,
		Insights: insights,
	}
}

// FromMap normalizes a chart description that arrived as structured
// metadata rather than inside free text.
func FromMap(payload map[string]any) (*domain.ChartRecord, error) {
	if len(payload) == 0 {
		return nil, errNotChart
	}
	block, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart payload: %w", err)
	}
	if rec, err := decodeBlock(block); err == nil {
		return rec, nil
	}
	// A bare config attached to metadata may only name its kind via chart_type.
	var cfg rawChart
	if err := json.Unmarshal(block, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode chart payload: %w", err)
	}
	kind, ok := configKind(cfg)
	if !ok {
		return nil, errNotChart
	}
	return build(kind, cfg, cfg.Insights), nil
}

// flexStrings decodes a string, or an array of strings, numbers and bools.
// Other shapes decode to nil instead of failing the whole chart.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*f = flexStrings{single}
		return nil
	}

	var items []any
	if err := json.Unmarshal(b, &items); err != nil {
		*f = nil
		return nil
	}

	out := make(flexStrings, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		}
	}
	*f = out
	return nil
}

// flexNumbers decodes a series given as numbers, numeric strings or {x, y}
// points (scatter charts).
type flexNumbers struct {
	values []float64
	points []domain.ChartPoint
}

func (f *flexNumbers) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		// a non-array series renders as empty
		return nil
	}

	for _, item := range items {
		// null decodes to 0 here
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			f.values = append(f.values, n)
			continue
		}

		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				n = 0
			}
			f.values = append(f.values, n)
			continue
		}

		var p domain.ChartPoint
		if err := json.Unmarshal(item, &p); err == nil {
			f.points = append(f.points, p)
			continue
		}
		// unusable values keep their slot so labels stay aligned
		f.values = append(f.values, 0)
	}
	return nil
}
