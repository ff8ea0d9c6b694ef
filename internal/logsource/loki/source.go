// Package loki serves execution logs from Loki's HTTP query API.
package loki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/pkg/logql"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const defaultLimit = 1000

// Options configure the Loki HTTP source.
type Options struct {
	BaseURL       string
	Username      string
	Password      string
	OrgID         string
	FunctionLabel string
	Timeout       time.Duration
}

// Source implements logsource.Source using Loki's HTTP API. Pages are read
// newest first; the continuation token is the oldest timestamp (ns) of the
// previous page, used as the next page's end bound.
type Source struct {
	baseURL  string
	username string
	password string
	orgID    string
	builder  logql.QueryBuilder
	client   *http.Client
}

// New creates a Loki source.
func New(opts Options) *Source {
	return &Source{
		baseURL:  opts.BaseURL,
		username: opts.Username,
		password: opts.Password,
		orgID:    opts.OrgID,
		builder:  logql.QueryBuilder{FunctionLabel: opts.FunctionLabel},
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

func (s *Source) Query(ctx context.Context, req logsource.QueryRequest) (logsource.Page, error) {
	end := req.End
	if req.NextToken != "" {
		ns, err := strconv.ParseInt(req.NextToken, 10, 64)
		if err != nil {
			return logsource.Page{}, fmt.Errorf("%w: invalid continuation token %q", logsource.ErrSourceQuery, req.NextToken)
		}
		end = time.Unix(0, ns)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := s.builder.BuildFunctionQuery(logql.FunctionParams{Function: req.FunctionName, Keyword: req.Filter})
	params := url.Values{
		"query":     {query},
		"start":     {strconv.FormatInt(req.Start.UnixNano(), 10)},
		"end":       {strconv.FormatInt(end.UnixNano(), 10)},
		"direction": {"backward"},
		"limit":     {strconv.Itoa(limit)},
	}
	u := fmt.Sprintf("%s/loki/api/v1/query_range?%s", s.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("building request: %w", err)
	}
	s.setHeaders(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return logsource.Page{}, logsource.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return logsource.Page{}, fmt.Errorf("%w: status %d", logsource.ErrSourceQuery, resp.StatusCode)
	}

	var lokiResp lokiQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&lokiResp); err != nil {
		return logsource.Page{}, fmt.Errorf("%w: decoding loki response: %v", logsource.ErrSourceQuery, err)
	}

	events, oldest := parseStreams(lokiResp.Data.Result)
	page := logsource.Page{Events: events}
	if len(events) >= limit && oldest > req.Start.UnixNano() {
		page.NextToken = strconv.FormatInt(oldest, 10)
	}
	return page, nil
}

// Ready reports whether Loki accepts queries.
func (s *Source) Ready(ctx context.Context) error {
	u := fmt.Sprintf("%s/ready", s.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	s.setHeaders(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", logsource.ErrSourceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: loki not ready (status %d)", logsource.ErrSourceUnreachable, resp.StatusCode)
	}

	return nil
}

func (s *Source) setHeaders(req *http.Request) {
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	if s.orgID != "" {
		req.Header.Set("X-Scope-OrgID", s.orgID)
	}
}

// ForIntegration serves every integration from the same Loki tenant; the
// function name in the query selects the stream.
func (s *Source) ForIntegration(context.Context, *models.Integration) (logsource.Source, error) {
	return s, nil
}

// parseStreams flattens Loki streams into events, newest first, and returns
// the oldest timestamp seen in nanoseconds.
func parseStreams(streams []lokiStream) ([]models.LogEvent, int64) {
	events := []models.LogEvent{}
	var oldest int64
	for _, stream := range streams {
		for _, v := range stream.Values {
			ns, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				continue
			}
			if oldest == 0 || ns < oldest {
				oldest = ns
			}
			events = append(events, models.LogEvent{
				EventID:   v[0],
				Timestamp: ns / int64(time.Millisecond),
				Message:   v[1],
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].EventID > events[j].EventID })
	return events, oldest
}

// --- Loki response types ---

type lokiQueryResponse struct {
	Data lokiData `json:"data"`
}

type lokiData struct {
	ResultType string       `json:"resultType"`
	Result     []lokiStream `json:"result"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Compile-time checks.
var (
	_ logsource.Source   = (*Source)(nil)
	_ logsource.Resolver = (*Source)(nil)
)
