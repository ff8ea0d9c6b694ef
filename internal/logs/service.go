// Package logs runs the execution-log pipeline for an integration: fetch a
// page from the log source, classify and filter it, and aggregate.
package logs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/ai"
	"github.com/kiranshivaraju/lambdapulse/internal/analysis"
	"github.com/kiranshivaraju/lambdapulse/internal/cache"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/internal/metrics"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500

	// scanPageSize is the page size requested while paging a whole window.
	scanPageSize = 10000
)

// Query holds validated parameters for a log request.
type Query struct {
	Mode      analysis.Mode
	Limit     int
	Start     time.Time
	End       time.Time
	Search    string
	NextToken string
	Simplify  bool
	Summarize bool
	Scope     string

	// Raw startTime and endTime request parameters, "default" and "now"
	// when omitted. They key the page cache so that rolling windows share
	// an entry.
	startParam string
	endParam   string
}

// Result is the response to a log request.
type Result struct {
	Logs      []models.ClassifiedLog   `json:"logs"`
	Summary   *models.AggregateSummary `json:"summary,omitempty"`
	NextToken string                   `json:"nextToken,omitempty"`
}

// Service answers log queries, memoizing results in the cache.
type Service struct {
	resolver logsource.Resolver
	cache    cache.Cache
	ttl      time.Duration
	scanCap  int
	metrics  *metrics.Handler
}

// NewService creates a Service. m may be nil.
func NewService(resolver logsource.Resolver, ca cache.Cache, ttl time.Duration, m *metrics.Handler) *Service {
	return &Service{
		resolver: resolver,
		cache:    ca,
		ttl:      ttl,
		scanCap:  analysis.DefaultFullScanCap,
		metrics:  m,
	}
}

// Query fetches one page for in, runs it through the classify and filter
// pipeline and, when requested, aggregates the page or the whole window.
func (s *Service) Query(ctx context.Context, in *models.Integration, q Query) (*Result, error) {
	key := cache.LogsPageKey(in.ID, q.hash())
	if raw, found, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("log cache read failed", "integration_id", in.ID, "error", err)
	} else if found {
		var res Result
		if err := json.Unmarshal(raw, &res); err == nil {
			return &res, nil
		}
	}

	src, err := s.resolver.ForIntegration(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("resolving log source: %w", err)
	}

	page, err := src.Query(ctx, s.request(in, q, q.NextToken, q.Limit))
	s.metrics.IncSourcePages(analysis.ScopePage, err == nil)
	if err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}

	res := &Result{
		Logs:      analysis.Process(page.Events, q.Mode, q.Simplify),
		NextToken: page.NextToken,
	}
	s.countCategories(res.Logs)

	if q.Summarize {
		var agg models.AggregateSummary
		if q.Scope == analysis.ScopeFull {
			agg, err = analysis.AggregateRange(ctx, s.fetcher(src, in, q), q.Mode, q.Simplify, s.scanCap)
			if err != nil {
				return nil, err
			}
		} else {
			agg = analysis.AggregatePage(res.Logs, q.Mode, q.Simplify)
		}
		res.Summary = &agg
	}

	if raw, err := json.Marshal(res); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			slog.Warn("log cache write failed", "integration_id", in.ID, "error", err)
		}
	}
	return res, nil
}

// SummaryContext scans the whole window once, returning the newest maxLogs
// included events together with the full-window aggregate.
func (s *Service) SummaryContext(ctx context.Context, in *models.Integration, q Query, maxLogs int) (*ai.SummaryContext, error) {
	src, err := s.resolver.ForIntegration(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("resolving log source: %w", err)
	}

	var kept []models.ClassifiedLog
	fetch := s.fetcher(src, in, q)
	collect := func(ctx context.Context, token string) ([]models.LogEvent, string, error) {
		events, next, err := fetch(ctx, token)
		if err != nil {
			return nil, "", err
		}
		kept = append(kept, analysis.Process(events, q.Mode, true)...)
		analysis.SortEvents(kept)
		if len(kept) > maxLogs {
			kept = kept[:maxLogs]
		}
		return events, next, nil
	}

	agg, err := analysis.AggregateRange(ctx, collect, q.Mode, true, s.scanCap)
	if err != nil {
		return nil, err
	}
	return &ai.SummaryContext{Target: in.FunctionName, Logs: kept, Aggregate: agg}, nil
}

func (s *Service) fetcher(src logsource.Source, in *models.Integration, q Query) analysis.PageFetcher {
	return func(ctx context.Context, token string) ([]models.LogEvent, string, error) {
		page, err := src.Query(ctx, s.request(in, q, token, scanPageSize))
		s.metrics.IncSourcePages(analysis.ScopeFull, err == nil)
		if err != nil {
			return nil, "", err
		}
		return page.Events, page.NextToken, nil
	}
}

func (s *Service) request(in *models.Integration, q Query, token string, limit int) logsource.QueryRequest {
	return logsource.QueryRequest{
		LogGroup:     in.LogGroup(),
		FunctionName: in.FunctionName,
		Start:        q.Start,
		End:          q.End,
		Filter:       q.Search,
		NextToken:    token,
		Limit:        limit,
	}
}

func (s *Service) countCategories(logs []models.ClassifiedLog) {
	counts := make(map[models.Category]int)
	for _, l := range logs {
		counts[l.Category]++
	}
	for cat, n := range counts {
		s.metrics.AddEventsClassified(string(cat), n)
	}
}

// hash identifies q among cached pages of one integration.
func (q Query) hash() string {
	start, end := q.startParam, q.endParam
	if start == "" {
		start = strconv.FormatInt(q.Start.UnixMilli(), 10)
	}
	if end == "" {
		end = strconv.FormatInt(q.End.UnixMilli(), 10)
	}
	raw, _ := json.Marshal(struct {
		Mode      string `json:"t"`
		Limit     int    `json:"l"`
		Start     string `json:"s"`
		End       string `json:"e"`
		Search    string `json:"q"`
		NextToken string `json:"n"`
		Simplify  bool   `json:"x"`
		Summarize bool   `json:"a"`
		Scope     string `json:"c"`
	}{string(q.Mode), q.Limit, start, end, q.Search, q.NextToken, q.Simplify, q.Summarize, q.Scope})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}
