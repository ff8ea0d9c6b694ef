package logs_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/lambdapulse/internal/analysis"
	"github.com/kiranshivaraju/lambdapulse/internal/cache"
	"github.com/kiranshivaraju/lambdapulse/internal/logs"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	reportLine  = "REPORT RequestId: r1\tDuration: 100.00 ms\tBilled Duration: 100 ms\tMemory Size: 128 MB\tMax Memory Used: 60 MB\t"
	timeoutLine = "REPORT RequestId: r2\tDuration: 3000.00 ms\tBilled Duration: 3000 ms\tMemory Size: 128 MB\tMax Memory Used: 128 MB\tStatus: timeout"
)

// --- fakes ---

// pagedSource serves pages keyed by continuation token ("" is the first page).
type pagedSource struct {
	mu       sync.Mutex
	pages    map[string]logsource.Page
	err      error
	requests []logsource.QueryRequest
}

func (s *pagedSource) Query(_ context.Context, req logsource.QueryRequest) (logsource.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return logsource.Page{}, s.err
	}
	return s.pages[req.NextToken], nil
}

func (s *pagedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type staticResolver struct {
	src logsource.Source
	err error
}

func (r staticResolver) ForIntegration(context.Context, *models.Integration) (logsource.Source, error) {
	return r.src, r.err
}

func event(ts int64, msg string) models.LogEvent {
	return models.LogEvent{EventID: fmt.Sprint(ts), Timestamp: ts, Message: msg}
}

func integration() *models.Integration {
	return &models.Integration{
		ID:           uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		TenantID:     uuid.New(),
		FunctionName: "orders-handler",
		Region:       "us-east-1",
	}
}

func baseQuery() logs.Query {
	end := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	return logs.Query{
		Mode:      analysis.ModeRelevant,
		Limit:     100,
		Start:     end.Add(-24 * time.Hour),
		End:       end,
		Simplify:  true,
		Summarize: true,
		Scope:     analysis.ScopePage,
	}
}

func twoPages() *pagedSource {
	return &pagedSource{pages: map[string]logsource.Page{
		"": {
			Events: []models.LogEvent{
				event(1000, "START RequestId: r1 Version: $LATEST"),
				event(2000, reportLine),
				event(3000, "ERROR connection refused"),
			},
			NextToken: "p2",
		},
		"p2": {
			Events: []models.LogEvent{
				event(4000, timeoutLine),
				event(5000, "just chatter"),
			},
		},
	}}
}

// --- Query ---

func TestQuery_Page(t *testing.T) {
	src := twoPages()
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)
	q := baseQuery()
	q.Search = "refused"

	res, err := svc.Query(context.Background(), integration(), q)
	require.NoError(t, err)

	require.Len(t, res.Logs, 2)
	assert.Equal(t, int64(3000), res.Logs[0].Timestamp, "newest first")
	assert.Equal(t, int64(2000), res.Logs[1].Timestamp)
	assert.Equal(t, "p2", res.NextToken)

	require.NotNil(t, res.Summary)
	assert.Equal(t, analysis.ScopePage, res.Summary.Scope)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.Reports)
	assert.Equal(t, 1, res.Summary.Errors)

	require.Len(t, src.requests, 1)
	req := src.requests[0]
	assert.Equal(t, "/aws/lambda/orders-handler", req.LogGroup)
	assert.Equal(t, "orders-handler", req.FunctionName)
	assert.Equal(t, "refused", req.Filter)
	assert.Equal(t, 100, req.Limit)
	assert.Empty(t, req.NextToken)
}

func TestQuery_MemoizedInCache(t *testing.T) {
	src := twoPages()
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)

	first, err := svc.Query(context.Background(), integration(), baseQuery())
	require.NoError(t, err)
	second, err := svc.Query(context.Background(), integration(), baseQuery())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls())
	assert.Equal(t, first.NextToken, second.NextToken)
	assert.Len(t, second.Logs, len(first.Logs))

	other := baseQuery()
	other.Mode = analysis.ModeAll
	_, err = svc.Query(context.Background(), integration(), other)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls(), "different parameters miss the cache")
}

func TestQuery_DefaultWindowSharesCacheEntry(t *testing.T) {
	src := twoPages()
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)
	base := time.Date(2024, 1, 21, 12, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{base, base.Add(1234 * time.Millisecond), base.Add(30 * time.Second)} {
		q, err := logs.ParseQuery(url.Values{"type": {"all"}}, at)
		require.NoError(t, err)
		_, err = svc.Query(context.Background(), integration(), q)
		require.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, 1, src.calls())

	q, err := logs.ParseQuery(url.Values{"type": {"all"}, "endTime": {"1705838400000"}}, base)
	require.NoError(t, err)
	_, err = svc.Query(context.Background(), integration(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls(), "an explicit end misses the rolling entry")
}

func TestQuery_FullScope(t *testing.T) {
	src := twoPages()
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)
	q := baseQuery()
	q.Scope = analysis.ScopeFull

	res, err := svc.Query(context.Background(), integration(), q)
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.Equal(t, analysis.ScopeFull, res.Summary.Scope)
	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 2, res.Summary.Reports)
	assert.Equal(t, 1, res.Summary.Timeouts)
	assert.Equal(t, 2, res.Summary.Errors)
	require.NotNil(t, res.Summary.AvgDurationMs)
	assert.InDelta(t, 1550.0, *res.Summary.AvgDurationMs, 0.001)

	assert.Len(t, res.Logs, 2, "events still come from the first page only")
	assert.Equal(t, 3, src.calls(), "one page request plus a two-page scan")
}

func TestQuery_NoSummary(t *testing.T) {
	svc := logs.NewService(staticResolver{src: twoPages()}, cache.NewMemoryCache(), time.Minute, nil)
	q := baseQuery()
	q.Summarize = false

	res, err := svc.Query(context.Background(), integration(), q)
	require.NoError(t, err)
	assert.Nil(t, res.Summary)
}

func TestQuery_SimplifyOff(t *testing.T) {
	svc := logs.NewService(staticResolver{src: twoPages()}, cache.NewMemoryCache(), time.Minute, nil)
	q := baseQuery()
	q.Simplify = false

	res, err := svc.Query(context.Background(), integration(), q)
	require.NoError(t, err)
	for _, l := range res.Logs {
		assert.Empty(t, l.SimplifiedMessage)
	}
	assert.False(t, res.Summary.Simplify)
}

func TestQuery_SourceError(t *testing.T) {
	src := &pagedSource{err: fmt.Errorf("%w: dial tcp", logsource.ErrSourceUnreachable)}
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)

	_, err := svc.Query(context.Background(), integration(), baseQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, logsource.ErrSourceUnreachable)
}

// failingPage fails every request for one continuation token.
type failingPage struct {
	*pagedSource
	token string
	err   error
}

func (s failingPage) Query(ctx context.Context, req logsource.QueryRequest) (logsource.Page, error) {
	if req.NextToken == s.token {
		return logsource.Page{}, s.err
	}
	return s.pagedSource.Query(ctx, req)
}

func TestQuery_FullScopeError(t *testing.T) {
	src := failingPage{pagedSource: twoPages(), token: "p2", err: fmt.Errorf("%w: throttled", logsource.ErrSourceQuery)}
	ca := cache.NewMemoryCache()
	svc := logs.NewService(staticResolver{src: src}, ca, time.Minute, nil)
	q := baseQuery()
	q.Scope = analysis.ScopeFull

	_, err := svc.Query(context.Background(), integration(), q)
	assert.ErrorIs(t, err, logsource.ErrSourceQuery)

	_, err = svc.Query(context.Background(), integration(), q)
	assert.ErrorIs(t, err, logsource.ErrSourceQuery, "failures are not cached")
}

func TestQuery_ResolverError(t *testing.T) {
	boom := errors.New("credentials sealed with another key")
	svc := logs.NewService(staticResolver{err: boom}, cache.NewMemoryCache(), time.Minute, nil)

	_, err := svc.Query(context.Background(), integration(), baseQuery())
	assert.ErrorIs(t, err, boom)
}

// --- SummaryContext ---

func TestSummaryContext_KeepsNewest(t *testing.T) {
	src := twoPages()
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)

	sc, err := svc.SummaryContext(context.Background(), integration(), baseQuery(), 2)
	require.NoError(t, err)

	assert.Equal(t, "orders-handler", sc.Target)
	require.Len(t, sc.Logs, 2)
	assert.Equal(t, int64(4000), sc.Logs[0].Timestamp)
	assert.Equal(t, int64(3000), sc.Logs[1].Timestamp)
	assert.Equal(t, 3, sc.Aggregate.Total)
	assert.Equal(t, analysis.ScopeFull, sc.Aggregate.Scope)
	assert.Equal(t, 2, src.calls())
}

func TestSummaryContext_Empty(t *testing.T) {
	src := &pagedSource{pages: map[string]logsource.Page{"": {}}}
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)

	sc, err := svc.SummaryContext(context.Background(), integration(), baseQuery(), 120)
	require.NoError(t, err)
	assert.Empty(t, sc.Logs)
	assert.Zero(t, sc.Aggregate.Total)
	assert.Nil(t, sc.Aggregate.AvgDurationMs)
}

func TestSummaryContext_SourceError(t *testing.T) {
	src := &pagedSource{err: fmt.Errorf("%w: deadline", logsource.ErrSourceTimeout)}
	svc := logs.NewService(staticResolver{src: src}, cache.NewMemoryCache(), time.Minute, nil)

	_, err := svc.SummaryContext(context.Background(), integration(), baseQuery(), 120)
	assert.ErrorIs(t, err, logsource.ErrSourceTimeout)
}
