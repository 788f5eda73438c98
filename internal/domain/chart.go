package domain

// ChartKind enumerates the chart types the assistant may describe
type ChartKind string

const (
	ChartBar      ChartKind = "bar"
	ChartLine     ChartKind = "line"
	ChartPie      ChartKind = "pie"
	ChartScatter  ChartKind = "scatter"
	ChartDoughnut ChartKind = "doughnut"
)

// DefaultChartTitle is used when a chart arrives without a title
const DefaultChartTitle = "Chart"

// ChartKinds lists every recognized chart kind
var ChartKinds = []ChartKind{ChartBar, ChartLine, ChartPie, ChartScatter, ChartDoughnut}

// Valid reports whether k is a recognized chart kind
func (k ChartKind) Valid() bool {
	for _, known := range ChartKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ChartRecord is the normalized description of one chart
type ChartRecord struct {
	Type     ChartKind      `json:"type"`
	Title    string         `json:"title"`
	Data     ChartData      `json:"data"`
	Options  map[string]any `json:"options,omitempty"`
	Insights []string       `json:"insights,omitempty"`
}

// ChartData is a labeled series payload
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset is one series of a chart
type ChartDataset struct {
	Label           string       `json:"label"`
	Data            []float64    `json:"data"`
	Points          []ChartPoint `json:"points,omitempty"`
	BackgroundColor []string     `json:"backgroundColor,omitempty"`
	BorderColor     []string     `json:"borderColor,omitempty"`
	BorderWidth     *float64     `json:"borderWidth,omitempty"`
}

// ChartPoint is one {x, y} sample of a scatter series
type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
