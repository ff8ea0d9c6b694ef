package logs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/analysis"
)

// DefaultWindow is the time range used when the request names no start.
const DefaultWindow = 24 * time.Hour

// ParseQuery validates log request parameters. Times are epoch milliseconds.
func ParseQuery(v url.Values, now time.Time) (Query, error) {
	mode, err := analysis.ParseMode(v.Get("type"))
	if err != nil {
		return Query{}, err
	}

	q := Query{
		Mode:      mode,
		Limit:     DefaultLimit,
		End:       now,
		Start:     now.Add(-DefaultWindow),
		Search:    strings.TrimSpace(v.Get("search")),
		NextToken: v.Get("nextToken"),
		Simplify:  true,
		Summarize: true,
		Scope:     analysis.ScopePage,

		startParam: "default",
		endParam:   "now",
	}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Query{}, fmt.Errorf("limit must be a positive integer")
		}
		q.Limit = min(n, MaxLimit)
	}

	if s := v.Get("endTime"); s != "" {
		t, err := parseMillis(s)
		if err != nil {
			return Query{}, fmt.Errorf("endTime must be epoch milliseconds")
		}
		q.End = t
		q.Start = t.Add(-DefaultWindow)
		q.endParam = s
	}
	if s := v.Get("startTime"); s != "" {
		t, err := parseMillis(s)
		if err != nil {
			return Query{}, fmt.Errorf("startTime must be epoch milliseconds")
		}
		q.Start = t
		q.startParam = s
	}
	if !q.Start.Before(q.End) {
		return Query{}, fmt.Errorf("startTime must be before endTime")
	}

	if q.Simplify, err = parseBool(v, "simplify", true); err != nil {
		return Query{}, err
	}
	if q.Summarize, err = parseBool(v, "summarize", true); err != nil {
		return Query{}, err
	}

	switch scope := strings.ToLower(v.Get("summaryScope")); scope {
	case "", analysis.ScopePage:
	case analysis.ScopeFull:
		q.Scope = analysis.ScopeFull
	default:
		return Query{}, fmt.Errorf("summaryScope must be page or full")
	}

	return q, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, fmt.Errorf("invalid epoch milliseconds %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseBool(v url.Values, key string, def bool) (bool, error) {
	s := v.Get(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", key)
	}
	return b, nil
}
