package models

// AnalysisPayload is one result set produced by the analysis service.
// Indicators are keyed by "{KIND}_{PERIOD}" and index-aligned with Bars.
type AnalysisPayload struct {
	Symbol     string                `json:"symbol" validate:"required"`
	Interval   string                `json:"interval" validate:"required,oneof=15m 1h 1d 1wk"`
	Revision   int64                 `json:"revision,omitempty"`
	Bars       []RawBar              `json:"bars"`
	Indicators map[string][]*float64 `json:"indicators,omitempty"`
}
