package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const emptySummary = "No log events matched this query in the selected time range."

// stage outcomes reported to metrics.
const (
	outcomeOK      = "ok"
	outcomeTimeout = "timeout"
	outcomeError   = "error"
)

// run computes the summary for job and records the terminal state. It
// recovers from panics and always marks the job complete or error.
func (s *SummaryService) run(t *task, job models.AISummaryJob, load Loader) {
	ctx := s.base
	started := time.Now()
	log := slog.With("fingerprint", job.Fingerprint, "model", job.Model)

	defer func() {
		s.mu.Lock()
		if s.tasks[job.Fingerprint] == t {
			delete(s.tasks, job.Fingerprint)
		}
		s.mu.Unlock()
		close(t.done)
		s.wg.Done()
	}()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in summary job", "error", r)
			s.finish(job, "", "", fmt.Errorf("panic: %v", r), started)
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.InferenceTimeout)
	sc, err := load(loadCtx)
	cancel()
	if err != nil {
		s.finish(job, "", "", fmt.Errorf("loading logs: %w", err), started)
		return
	}

	if len(sc.Logs) > s.cfg.MaxLogs {
		sc.Logs = sc.Logs[:s.cfg.MaxLogs]
	}
	count := len(sc.Logs)
	job.LogCount = &count
	if count == 0 {
		s.finish(job, emptySummary, models.StrategyEmpty, nil, started)
		return
	}

	log.Info("summary job started", "logs", count)
	summary, strategy, err := s.summarize(ctx, log, job.Model, sc)
	s.finish(job, summary, strategy, err, started)
}

func (s *SummaryService) finish(job models.AISummaryJob, summary, strategy string, err error, started time.Time) {
	generated := s.now()
	job.GeneratedAt = &generated
	job.Strategy = strategy
	if err != nil {
		job.Status = models.SummaryStatusError
		job.Error = err.Error()
	} else {
		job.Status = models.SummaryStatusComplete
		job.Summary = summary
	}

	// The record is written with a fresh context so a cancelled task can
	// still publish its terminal state.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if werr := s.write(writeCtx, &job); werr != nil {
		slog.Error("failed to record summary job", "fingerprint", job.Fingerprint, "error", werr)
	}

	s.metrics.ObserveSummaryJob(job.Status, strategy, time.Since(started))
	slog.Info("summary job finished", "fingerprint", job.Fingerprint, "status", job.Status, "strategy", strategy)
}

// summarize runs the stage cascade: direct or chunked, then a truncated
// retry after a timeout on a large set, then the statistics-only request.
func (s *SummaryService) summarize(ctx context.Context, log *slog.Logger, model string, sc *SummaryContext) (string, string, error) {
	logs := sc.Logs

	var (
		text     string
		strategy string
		err      error
	)
	if len(logs) <= s.cfg.ChunkSize {
		strategy = models.StrategyDirect
		text, err = s.withSession(ctx, log, model, func(sess models.ChatSession) (string, error) {
			return s.call(ctx, log, sess, "direct", directPrompt(sc.Target, logs), s.cfg.InferenceTimeout)
		})
	} else {
		strategy = models.StrategyChunked
		text, err = s.chunked(ctx, log, model, sc.Target, logs)
	}
	if err == nil {
		return text, strategy, nil
	}

	if errors.Is(err, ErrInferenceTimeout) && len(logs) > s.cfg.FallbackThreshold {
		log.Warn("fallback", "to", models.StrategyTruncated, "error", err)
		keep := min(s.cfg.TruncatedLogs, len(logs))
		text, err = s.withSession(ctx, log, model, func(sess models.ChatSession) (string, error) {
			return s.call(ctx, log, sess, "retry", truncatedPrompt(sc.Target, logs[:keep], len(logs)), s.cfg.RetryTimeout)
		})
		if err == nil {
			return text, models.StrategyTruncated, nil
		}
	}

	log.Warn("fallback", "to", models.StrategyStatistics, "error", err)
	sample := logs[:min(s.cfg.SampleLogs, len(logs))]
	text, err = s.withSession(ctx, log, model, func(sess models.ChatSession) (string, error) {
		return s.call(ctx, log, sess, "statistics", statisticsPrompt(sc.Target, sc.Aggregate, sample), s.cfg.FallbackTimeout)
	})
	if err != nil {
		return "", "", fmt.Errorf("summary failed after statistics fallback: %w", err)
	}
	return text, models.StrategyStatistics, nil
}

// chunked summarizes each batch in its own session, replacing failed batches
// with a placeholder, then consolidates the partial summaries.
func (s *SummaryService) chunked(ctx context.Context, log *slog.Logger, model, target string, logs []models.ClassifiedLog) (string, error) {
	total := (len(logs) + s.cfg.ChunkSize - 1) / s.cfg.ChunkSize
	partials := make([]string, 0, total)

	for i := 0; i < total; i++ {
		lo := i * s.cfg.ChunkSize
		hi := min(lo+s.cfg.ChunkSize, len(logs))
		index := i + 1

		text, err := s.withSession(ctx, log, model, func(sess models.ChatSession) (string, error) {
			return s.call(ctx, log, sess, "chunk", chunkPrompt(index, total, logs[lo:hi]), s.cfg.ChunkTimeout)
		})
		if err != nil {
			log.Warn("chunk failed", "chunk", index, "of", total, "error", err)
			partials = append(partials, chunkPlaceholder(index))
			continue
		}
		partials = append(partials, fmt.Sprintf("Batch %d:\n%s", index, text))
	}

	return s.withSession(ctx, log, model, func(sess models.ChatSession) (string, error) {
		return s.call(ctx, log, sess, "consolidate", consolidatePrompt(target, partials), s.cfg.ConsolidateTimeout)
	})
}

// withSession opens a session, runs fn and destroys the session exactly once.
func (s *SummaryService) withSession(ctx context.Context, log *slog.Logger, model string, fn func(models.ChatSession) (string, error)) (string, error) {
	sess, err := s.client.CreateSession(ctx, model, systemInstruction)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	defer func() {
		if derr := sess.Destroy(context.Background()); derr != nil {
			log.Warn("session destroy failed", "error", derr)
		}
	}()
	return fn(sess)
}

// call sends one prompt. When timeout passes with the call still in flight
// the session is aborted; every timed-out call is aborted exactly once.
func (s *SummaryService) call(ctx context.Context, log *slog.Logger, sess models.ChatSession, stage, prompt string, timeout time.Duration) (string, error) {
	log.Debug("summary stage", "stage", stage, "timeout", timeout)
	abort := func() {
		if aerr := sess.Abort(context.Background()); aerr != nil {
			log.Warn("session abort failed", "stage", stage, "error", aerr)
		}
	}

	aborted := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		defer close(aborted)
		abort()
	})
	text, err := sess.SendAndWait(ctx, prompt, timeout)
	fired := !timer.Stop()
	if fired {
		<-aborted
	}

	switch {
	case err == nil && text == "":
		err = fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	case err != nil && fired && !errors.Is(err, ErrInferenceTimeout):
		err = fmt.Errorf("%w: no reply within %s", ErrInferenceTimeout, timeout)
	}
	if errors.Is(err, ErrInferenceTimeout) {
		s.metrics.IncSummaryStage(stage, outcomeTimeout)
		if !fired {
			abort()
		}
		return "", fmt.Errorf("%s: %w", stage, err)
	}
	if err != nil {
		s.metrics.IncSummaryStage(stage, outcomeError)
		return "", fmt.Errorf("%s: %w", stage, err)
	}
	s.metrics.IncSummaryStage(stage, outcomeOK)
	return text, nil
}
