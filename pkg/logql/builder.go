package logql

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFunctionLabel is the stream label that carries the function name.
const DefaultFunctionLabel = "function_name"

// QueryBuilder constructs safe LogQL query strings.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type QueryBuilder struct {
	// FunctionLabel overrides DefaultFunctionLabel.
	FunctionLabel string
}

// FunctionParams defines inputs for a function's execution-log query.
type FunctionParams struct {
	Function string
	Keyword  string
}

// BuildFunctionQuery returns a LogQL query selecting one function's stream,
// optionally narrowed by a line filter.
func (b QueryBuilder) BuildFunctionQuery(p FunctionParams) string {
	parts := []string{b.buildSelector(p.Function)}

	if kf := b.buildKeywordFilter(p.Keyword); kf != "" {
		parts = append(parts, kf)
	}

	return strings.Join(parts, " ")
}

func (b QueryBuilder) buildSelector(function string) string {
	label := b.FunctionLabel
	if label == "" {
		label = DefaultFunctionLabel
	}
	return fmt.Sprintf(`{%s=%s}`, label, strconv.Quote(function))
}

func (b QueryBuilder) buildKeywordFilter(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	if strings.Contains(keyword, "`") {
		return "|= " + strconv.Quote(keyword)
	}
	return fmt.Sprintf("|= `%s`", keyword)
}
