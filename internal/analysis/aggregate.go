package analysis

import (
	"context"
	"fmt"
	"slices"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const (
	// DefaultFullScanCap bounds the number of matched events a full-range aggregate visits.
	DefaultFullScanCap = 100_000

	topMessageCount    = 5
	topMessageMaxRunes = 120
)

// Aggregate scopes.
const (
	ScopePage = "page"
	ScopeFull = "full"
)

// PageFetcher returns one upstream page for the continuation token
// (empty for the first page) and the token of the page after it.
type PageFetcher func(ctx context.Context, token string) ([]models.LogEvent, string, error)

// Accumulator folds classified events into an AggregateSummary.
// The zero value is not usable; call NewAccumulator.
type Accumulator struct {
	simplify bool

	total, reports, errors, timeouts int
	durationSum                      float64
	durationSamples                  int
	start, end                       int64
	seen                             bool

	counts map[string]int
	order  []string
}

// NewAccumulator returns an empty accumulator. simplify selects whether
// top messages are ranked by classifier text or by raw message.
func NewAccumulator(simplify bool) *Accumulator {
	return &Accumulator{simplify: simplify, counts: make(map[string]int)}
}

// Add records one included event.
func (a *Accumulator) Add(l models.ClassifiedLog) {
	a.total++
	if l.Level == models.LevelError {
		a.errors++
	}
	if l.ParsedReport != nil {
		a.reports++
		if l.ParsedReport.TimedOut() {
			a.timeouts++
		}
		if d := l.ParsedReport.DurationMs; d != nil {
			a.durationSum += *d
			a.durationSamples++
		}
	}

	if !a.seen || l.Timestamp < a.start {
		a.start = l.Timestamp
	}
	if !a.seen || l.Timestamp > a.end {
		a.end = l.Timestamp
	}
	a.seen = true

	text := l.Message
	if a.simplify && l.SimplifiedMessage != "" {
		text = l.SimplifiedMessage
	}
	key := clipRunes(text, topMessageMaxRunes)
	if key == "" {
		return
	}
	if _, ok := a.counts[key]; !ok {
		a.order = append(a.order, key)
	}
	a.counts[key]++
}

// Total returns the number of events added so far.
func (a *Accumulator) Total() int { return a.total }

// Summary returns the statistics accumulated so far for the given filter mode.
func (a *Accumulator) Summary(mode Mode) models.AggregateSummary {
	s := models.AggregateSummary{
		Total:       a.total,
		Reports:     a.reports,
		Errors:      a.errors,
		Timeouts:    a.timeouts,
		TopMessages: a.topMessages(),
		Filter:      string(mode),
		Simplify:    a.simplify,
	}
	if a.durationSamples > 0 {
		avg := a.durationSum / float64(a.durationSamples)
		s.AvgDurationMs = &avg
	}
	if a.seen {
		start, end := a.start, a.end
		s.StartTime = &start
		s.EndTime = &end
	}
	return s
}

// topMessages ranks by count; order holds first-seen order and the stable
// sort keeps it for ties.
func (a *Accumulator) topMessages() []models.MessageCount {
	ranked := make([]models.MessageCount, 0, len(a.order))
	for _, k := range a.order {
		ranked = append(ranked, models.MessageCount{Message: k, Count: a.counts[k]})
	}
	slices.SortStableFunc(ranked, func(x, y models.MessageCount) int {
		return y.Count - x.Count
	})
	if len(ranked) > topMessageCount {
		ranked = ranked[:topMessageCount]
	}
	return ranked
}

// AggregatePage summarizes an already filtered page.
func AggregatePage(logs []models.ClassifiedLog, mode Mode, simplify bool) models.AggregateSummary {
	acc := NewAccumulator(simplify)
	for _, l := range logs {
		acc.Add(l)
	}
	s := acc.Summary(mode)
	s.Scope = ScopePage
	return s
}

// AggregateRange pages through the whole window with fetch, running every
// event through the classify and filter pipeline. Pages are requested
// sequentially because each depends on the previous continuation token.
// Scanning stops when the source is exhausted or maxEvents matched events
// have been counted; the latter sets Capped and is not an error.
func AggregateRange(ctx context.Context, fetch PageFetcher, mode Mode, simplify bool, maxEvents int) (models.AggregateSummary, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultFullScanCap
	}
	acc := NewAccumulator(simplify)
	capped := false
	token := ""

scan:
	for {
		if err := ctx.Err(); err != nil {
			return models.AggregateSummary{}, err
		}
		events, next, err := fetch(ctx, token)
		if err != nil {
			return models.AggregateSummary{}, fmt.Errorf("aggregating full range: %w", err)
		}
		for _, ev := range events {
			e := Evaluate(ev)
			if !Include(e, mode) {
				continue
			}
			if !simplify {
				e.Log.SimplifiedMessage = ""
			}
			acc.Add(e.Log)
			if acc.Total() >= maxEvents {
				capped = true
				break scan
			}
		}
		// A repeated token would loop forever on a misbehaving source.
		if next == "" || next == token {
			break
		}
		token = next
	}

	s := acc.Summary(mode)
	s.Scope = ScopeFull
	s.Capped = capped
	return s, nil
}
