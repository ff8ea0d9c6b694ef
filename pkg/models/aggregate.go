package models

// MessageCount is one entry of the top-messages ranking.
type MessageCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// AggregateSummary holds statistics over a filtered set of events.
// AvgDurationMs is nil when no event carried a numeric duration.
type AggregateSummary struct {
	Total         int            `json:"total"`
	Reports       int            `json:"reports"`
	Errors        int            `json:"errors"`
	Timeouts      int            `json:"timeouts"`
	AvgDurationMs *float64       `json:"avgDurationMs"`
	StartTime     *int64         `json:"startTime"`
	EndTime       *int64         `json:"endTime"`
	TopMessages   []MessageCount `json:"topMessages"`
	Filter        string         `json:"filter"`
	Simplify      bool           `json:"simplify"`
	Scope         string         `json:"scope"`
	Capped        bool           `json:"capped,omitempty"`
}
