package models

// Category is the fixed tag vocabulary assigned by the message classifier.
type Category string

const (
	CategoryStart       Category = "START"
	CategoryEnd         Category = "END"
	CategoryReport      Category = "REPORT"
	CategoryHTTP        Category = "HTTP"
	CategoryIntegration Category = "INTEGRATION"
	CategoryProcess     Category = "PROCESS"
	CategoryError       Category = "ERROR"
	CategoryInfo        Category = "INFO"
)

// Level is the severity assigned to a classified event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LogEvent is a single execution-log record as returned by the log source.
// Timestamps are epoch milliseconds.
type LogEvent struct {
	EventID       string `json:"eventId,omitempty"`
	IngestionTime int64  `json:"ingestionTime,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	Message       string `json:"message"`
}

// ParsedReport holds the metrics extracted from a per-invocation REPORT line.
// Fields the line did not carry stay nil.
type ParsedReport struct {
	DurationMs       *float64 `json:"durationMs"`
	BilledDurationMs *float64 `json:"billedDurationMs"`
	MemorySizeMB     *float64 `json:"memorySizeMb"`
	MaxMemoryUsedMB  *float64 `json:"maxMemoryUsedMb"`
	InitDurationMs   *float64 `json:"initDurationMs"`
	Status           string   `json:"status,omitempty"`
}

// TimedOut reports whether the invocation ended with a timeout status.
func (r *ParsedReport) TimedOut() bool {
	return r != nil && r.Status == "timeout"
}

// ClassifiedLog is a LogEvent enriched by the classifier.
type ClassifiedLog struct {
	LogEvent
	ParsedReport      *ParsedReport `json:"parsedReport"`
	SimplifiedMessage string        `json:"simplifiedMessage,omitempty"`
	Category          Category      `json:"category"`
	Level             Level         `json:"level"`
}
