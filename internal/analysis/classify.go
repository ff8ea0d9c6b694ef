package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// maxSimplifiedRunes bounds the fallback text for unrecognized lines.
const maxSimplifiedRunes = 200

var (
	reStartLine = regexp.MustCompile(`^\s*START RequestId:`)
	reEndLine   = regexp.MustCompile(`^\s*END RequestId:`)
	reInitStart = regexp.MustCompile(`^\s*INIT_START\b`)

	// Lambda runtimes prefix console output with "<timestamp>\t<request id>\t<LEVEL>\t".
	reRuntimePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T[\d:.]+Z\t[\w-]+\t([A-Z]+)\t`)

	reKeySeparators = regexp.MustCompile(`[\s_\-]+`)
)

// Evaluation is the result of running a raw event through the classifier.
// ErrorFlagged is the error verdict shared by the classifier and the
// relevance filter.
type Evaluation struct {
	Log          models.ClassifiedLog
	ErrorFlagged bool
}

// input carries what the rules need about one raw event.
type input struct {
	event   models.LogEvent
	report  *models.ParsedReport
	payload map[string]any
	key     string
}

type outcome struct {
	text     string
	category models.Category
	level    models.Level
}

type rule struct {
	name  string
	match func(in *input) bool
	apply func(in *input) outcome
}

// rules is evaluated in order; the first match decides the outcome.
var rules = []rule{
	{name: "lifecycle", match: isLifecycle, apply: lifecycleOutcome},
	{name: "report", match: func(in *input) bool { return in.report != nil }, apply: reportOutcome},
	{name: "structured", match: func(in *input) bool { return in.payload != nil && in.key != "" }, apply: structuredOutcome},
	{name: "keyword", match: func(in *input) bool { return in.payload == nil && ErrorTerms.MatchString(in.event.Message) }, apply: keywordOutcome},
	{name: "fallback", match: func(*input) bool { return true }, apply: fallbackOutcome},
}

// Evaluate parses, classifies and error-flags a single event.
func Evaluate(ev models.LogEvent) Evaluation {
	in := &input{event: ev, report: ParseReport(ev.Message)}
	if payload, ok := ExtractPayload(ev.Message); ok {
		in.payload = payload
		in.key = messageKey(payload)
	}

	var out outcome
	for _, r := range rules {
		if r.match(in) {
			out = r.apply(in)
			break
		}
	}

	// The nested structured-error verdict overrides whatever the key lookup decided.
	structuredErr := in.payload != nil && StructuredError(in.payload)
	if structuredErr {
		out.category = models.CategoryError
		out.level = models.LevelError
	}

	flagged := in.report.TimedOut()
	if in.payload != nil {
		flagged = flagged || structuredErr
	} else {
		flagged = flagged || ErrorTerms.MatchString(ev.Message)
	}

	return Evaluation{
		Log: models.ClassifiedLog{
			LogEvent:          ev,
			ParsedReport:      in.report,
			SimplifiedMessage: out.text,
			Category:          out.category,
			Level:             out.level,
		},
		ErrorFlagged: flagged,
	}
}

// Classify returns the classified form of ev.
func Classify(ev models.LogEvent) models.ClassifiedLog {
	return Evaluate(ev).Log
}

func isLifecycle(in *input) bool {
	m := in.event.Message
	return reStartLine.MatchString(m) || reEndLine.MatchString(m) || reInitStart.MatchString(m)
}

func lifecycleOutcome(in *input) outcome {
	m := in.event.Message
	switch {
	case reStartLine.MatchString(m):
		return outcome{text: "Execution started", category: models.CategoryStart, level: models.LevelInfo}
	case reEndLine.MatchString(m):
		return outcome{text: "Execution finished", category: models.CategoryEnd, level: models.LevelInfo}
	default:
		return outcome{text: "Runtime initializing", category: models.CategoryStart, level: models.LevelInfo}
	}
}

func reportOutcome(in *input) outcome {
	r := in.report
	text := fmt.Sprintf("Execution took %s ms (billed %s ms), memory %s/%s MB",
		formatMetric(r.DurationMs), formatMetric(r.BilledDurationMs),
		formatMetric(r.MaxMemoryUsedMB), formatMetric(r.MemorySizeMB))
	if r.InitDurationMs != nil {
		text += fmt.Sprintf(", cold start %s ms", formatMetric(r.InitDurationMs))
	}
	out := outcome{text: text, category: models.CategoryReport, level: models.LevelInfo}
	if r.TimedOut() {
		out.text = "Timed out: " + text
		out.level = models.LevelError
	}
	return out
}

func keywordOutcome(in *input) outcome {
	return outcome{
		text:     ellipsize(stripRuntimePrefix(in.event.Message), maxSimplifiedRunes),
		category: models.CategoryError,
		level:    models.LevelError,
	}
}

func fallbackOutcome(in *input) outcome {
	out := outcome{
		text:     ellipsize(stripRuntimePrefix(in.event.Message), maxSimplifiedRunes),
		category: models.CategoryInfo,
		level:    models.LevelInfo,
	}
	if runtimeLevel(in.event.Message) == "WARN" || reWarnTerm.MatchString(in.event.Message) {
		out.level = models.LevelWarn
	}
	return out
}

// describer renders the sentence for a recognized structured message key.
type describer struct {
	category models.Category
	describe func(p map[string]any) string
}

// knownKeys maps normalized message keys to domain sentences.
var knownKeys = map[string]describer{
	"http.request": {models.CategoryHTTP, func(p map[string]any) string {
		return joinParts("HTTP request", field(p, "method"), firstField(p, "url", "path", "endpoint"))
	}},
	"http.response": {models.CategoryHTTP, func(p map[string]any) string {
		s := joinParts("HTTP response", firstField(p, "statusCode", "status"))
		if d := firstField(p, "durationMs", "duration", "elapsedMs"); d != "" {
			s += " in " + d + " ms"
		}
		return s
	}},
	"integration.attempt": {models.CategoryIntegration, func(p map[string]any) string {
		s := joinParts("Calling integration", firstField(p, "integration", "provider", "target", "name"))
		if a := field(p, "attempt"); a != "" {
			s += " (attempt " + a + ")"
		}
		return s
	}},
	"integration.success": {models.CategoryIntegration, func(p map[string]any) string {
		return joinParts("Integration succeeded", firstField(p, "integration", "provider", "target", "name"))
	}},
	"integration.retry": {models.CategoryIntegration, func(p map[string]any) string {
		return joinParts("Retrying integration", firstField(p, "integration", "provider", "target", "name"))
	}},
	"batch.start": {models.CategoryProcess, func(p map[string]any) string {
		if n := firstField(p, "size", "count", "records"); n != "" {
			return "Processing batch of " + n + " records"
		}
		return "Processing batch"
	}},
	"batch.result": {models.CategoryProcess, func(p map[string]any) string {
		ok := firstField(p, "processed", "succeeded", "success")
		failed := firstField(p, "failed", "failures")
		switch {
		case ok != "" && failed != "":
			return fmt.Sprintf("Batch finished: %s processed, %s failed", ok, failed)
		case ok != "":
			return "Batch finished: " + ok + " processed"
		default:
			return "Batch finished"
		}
	}},
	"handler.start": {models.CategoryProcess, func(map[string]any) string { return "Handler invoked" }},
	"handler.end": {models.CategoryProcess, func(map[string]any) string { return "Handler completed" }},
}

func structuredOutcome(in *input) outcome {
	if d, ok := knownKeys[normalizeKey(in.key)]; ok {
		out := outcome{text: d.describe(in.payload), category: d.category, level: models.LevelInfo}
		if structuredWarn(in.payload) {
			out.level = models.LevelWarn
		}
		return out
	}
	out := outcome{text: ellipsize(in.key, maxSimplifiedRunes), category: models.CategoryInfo, level: models.LevelInfo}
	if structuredWarn(in.payload) {
		out.level = models.LevelWarn
	}
	return out
}

// messageKey returns the payload's message identifier. Runtime error objects
// without one are keyed by "errorType: errorMessage".
func messageKey(payload map[string]any) string {
	for _, f := range []string{"message", "msg", "event"} {
		if s, ok := lookupString(payload, f); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	errType, _ := lookupString(payload, "errorType")
	errMsg, _ := lookupString(payload, "errorMessage")
	switch {
	case errType != "" && errMsg != "":
		return errType + ": " + errMsg
	case errType != "":
		return errType
	default:
		return strings.TrimSpace(errMsg)
	}
}

func normalizeKey(key string) string {
	return reKeySeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(key)), ".")
}

func stripRuntimePrefix(message string) string {
	return reRuntimePrefix.ReplaceAllString(message, "")
}

func runtimeLevel(message string) string {
	if m := reRuntimePrefix.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func formatMetric(v *float64) string {
	if v == nil {
		return "—"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func field(p map[string]any, key string) string {
	v, ok := lookup(p, key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func firstField(p map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := field(p, k); s != "" {
			return s
		}
	}
	return ""
}

func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
