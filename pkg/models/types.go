package models

import "encoding/json"

// ChartType names the kind of chart the UI should draw
type ChartType string

const (
	ChartTypeLine    ChartType = "line"
	ChartTypeBar     ChartType = "bar"
	ChartTypeScatter ChartType = "scatter"
)

// ChartSpec is the chart description exchanged with the charting UI.
// Field names follow the Chart.js conventions the UI consumes.
type ChartSpec struct {
	ChartType   ChartType `json:"chartType"`
	Data        ChartData `json:"data"`
	Description string    `json:"description"`
}

// ChartData holds the category axis and one or more numeric series
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is a single named numeric series
type Dataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	BorderColor string    `json:"borderColor,omitempty"`
	Tension     float64   `json:"tension"`
}

// GenerateRequest is the body accepted by the report endpoint
type GenerateRequest struct {
	Topic    string `json:"topic"`
	Question string `json:"question"`
}

// Report is the body returned by the report endpoint.
// Report is either a Markdown string or whatever JSON the upstream returned;
// ChartData is the recovered chart object exactly as extracted.
type Report struct {
	Report    json.RawMessage `json:"report"`
	ChartData json.RawMessage `json:"chartData"`
	ChartTier string          `json:"-"`
}

// ErrorResponse is the body returned for any non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
