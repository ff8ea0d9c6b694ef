package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

// ErrorTerms matches wording that marks a line as an error.
var ErrorTerms = regexp.MustCompile(`(?i)error|exception|fail(?:ed|ure)?|timeout|timed out`)

var reWarnTerm = regexp.MustCompile(`(?i)\bwarn(?:ing)?\b`)

const maxPayloadDepth = 4

var (
	levelFields   = []string{"level", "severity"}
	errorFields   = []string{"error", "err"}
	statusFields  = []string{"statusCode", "status_code", "status", "httpStatus"}
	messageFields = []string{"message", "msg", "errorMessage", "errorType", "detail", "reason", "description"}
)

// StructuredError reports whether a parsed payload describes an error:
// an error-level severity, a non-empty error field, a 5xx status code, or
// error wording in a message-like field. Nested objects are inspected too.
func StructuredError(payload map[string]any) bool {
	return structuredError(payload, 0)
}

func structuredError(payload map[string]any, depth int) bool {
	if payload == nil || depth > maxPayloadDepth {
		return false
	}
	for _, f := range levelFields {
		if s, ok := lookupString(payload, f); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "error", "fatal", "critical":
				return true
			}
		}
	}
	for _, f := range errorFields {
		if v, ok := lookup(payload, f); ok && truthy(v) {
			return true
		}
	}
	for _, f := range statusFields {
		if v, ok := lookup(payload, f); ok {
			if code, ok := asNumber(v); ok && code >= 500 {
				return true
			}
		}
	}
	for _, f := range messageFields {
		if s, ok := lookupString(payload, f); ok && ErrorTerms.MatchString(s) {
			return true
		}
	}
	for _, v := range payload {
		if nested, ok := v.(map[string]any); ok && structuredError(nested, depth+1) {
			return true
		}
	}
	return false
}

// structuredWarn reports a warn-level severity field.
func structuredWarn(payload map[string]any) bool {
	for _, f := range levelFields {
		if s, ok := lookupString(payload, f); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "warn", "warning":
				return true
			}
		}
	}
	return false
}

// lookup finds key in payload, ignoring case.
func lookup(payload map[string]any, key string) (any, bool) {
	if v, ok := payload[key]; ok {
		return v, true
	}
	for k, v := range payload {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func lookupString(payload map[string]any, key string) (string, bool) {
	v, ok := lookup(payload, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
