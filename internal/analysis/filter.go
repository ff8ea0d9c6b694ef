package analysis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// Mode selects which classified events a query returns.
type Mode string

const (
	ModeError    Mode = "error"
	ModeReport   Mode = "report"
	ModeAll      Mode = "all"
	ModeRelevant Mode = "relevant"
)

// ParseMode validates a user-supplied mode. Empty input selects ModeRelevant.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeRelevant, nil
	case ModeError, ModeReport, ModeAll, ModeRelevant:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q: must be one of error, report, all, relevant", s)
	}
}

// Include reports whether an evaluated event belongs in the result set for mode.
func Include(e Evaluation, mode Mode) bool {
	msg := e.Log.Message
	switch mode {
	case ModeAll:
		return true
	case ModeError:
		return e.ErrorFlagged
	case ModeReport:
		return IsReportLine(msg) || e.Log.ParsedReport != nil
	default:
		lower := strings.ToLower(msg)
		return e.ErrorFlagged ||
			strings.Contains(lower, "duration") ||
			strings.Contains(lower, "report") ||
			e.Log.ParsedReport != nil
	}
}

// Process evaluates every event and keeps those selected by mode, sorted newest first.
// With simplify off the classifier's summary text is dropped from the output.
func Process(events []models.LogEvent, mode Mode, simplify bool) []models.ClassifiedLog {
	out := make([]models.ClassifiedLog, 0, len(events))
	for _, ev := range events {
		e := Evaluate(ev)
		if !Include(e, mode) {
			continue
		}
		if !simplify {
			e.Log.SimplifiedMessage = ""
		}
		out = append(out, e.Log)
	}
	SortEvents(out)
	return out
}

// SortEvents orders events by timestamp, then ingestion time, then event ID,
// all descending, so pagination over the result is reproducible.
func SortEvents(events []models.ClassifiedLog) {
	slices.SortStableFunc(events, func(a, b models.ClassifiedLog) int {
		switch {
		case a.Timestamp != b.Timestamp:
			return cmpDesc(a.Timestamp, b.Timestamp)
		case a.IngestionTime != b.IngestionTime:
			return cmpDesc(a.IngestionTime, b.IngestionTime)
		default:
			return strings.Compare(b.EventID, a.EventID)
		}
	})
}

func cmpDesc(a, b int64) int {
	if a > b {
		return -1
	}
	return 1
}
