package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/lambdapulse/internal/cache"
	"github.com/kiranshivaraju/lambdapulse/internal/config"
	"github.com/kiranshivaraju/lambdapulse/internal/metrics"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// JobKey identifies a summary job. Equal keys share one job record.
type JobKey struct {
	IntegrationID uuid.UUID
	Mode          string
	Start         time.Time
	End           time.Time
	Search        string
	Model         string
}

// Fingerprint returns a stable hex digest of the key.
func (k JobKey) Fingerprint() string {
	raw, _ := json.Marshal(struct {
		Integration string `json:"i"`
		Mode        string `json:"f"`
		Start       int64  `json:"s"`
		End         int64  `json:"e"`
		Search      string `json:"q"`
		Model       string `json:"m"`
	}{k.IntegrationID.String(), k.Mode, k.Start.UnixMilli(), k.End.UnixMilli(), k.Search, k.Model})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SummaryContext is the material a job summarizes.
type SummaryContext struct {
	Target    string
	Logs      []models.ClassifiedLog
	Aggregate models.AggregateSummary
}

// Loader builds the summary context. It runs inside the background task.
type Loader func(ctx context.Context) (*SummaryContext, error)

// SummaryService runs AI summary jobs in the background and publishes their
// state as cache records keyed by fingerprint.
type SummaryService struct {
	client       models.ChatClient
	cache        cache.Cache
	cfg          config.SummaryConfig
	defaultModel string
	metrics      *metrics.Handler
	now          func() time.Time

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	done chan struct{}
}

// NewSummaryService creates a SummaryService. m may be nil.
func NewSummaryService(client models.ChatClient, ca cache.Cache, cfg config.SummaryConfig, defaultModel string, m *metrics.Handler) *SummaryService {
	base, stop := context.WithCancel(context.Background())
	return &SummaryService{
		client:       client,
		cache:        ca,
		cfg:          cfg,
		defaultModel: defaultModel,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
		base:         base,
		stop:         stop,
		tasks:        make(map[string]*task),
	}
}

func (s *SummaryService) resolve(key JobKey) JobKey {
	if key.Model == "" {
		key.Model = s.defaultModel
	}
	return key
}

// Start returns the existing record when a job for key is running or
// complete. Otherwise it writes a running record, launches the computation
// and returns immediately. The check and the write are not atomic, so two
// concurrent starts may both launch a task.
func (s *SummaryService) Start(ctx context.Context, key JobKey, load Loader) (*models.AISummaryJob, error) {
	key = s.resolve(key)
	fp := key.Fingerprint()

	existing, found, err := s.read(ctx, fp)
	if err != nil {
		return nil, err
	}
	if found && existing.Active() {
		return existing, nil
	}

	requested := s.now()
	job := &models.AISummaryJob{
		Fingerprint: fp,
		Status:      models.SummaryStatusRunning,
		Model:       key.Model,
		RequestedAt: &requested,
	}
	if err := s.write(ctx, job); err != nil {
		return nil, err
	}

	t := &task{done: make(chan struct{})}
	s.mu.Lock()
	s.tasks[fp] = t
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(t, *job, load)

	return job, nil
}

// Status returns the record for key, or an idle record when none exists.
func (s *SummaryService) Status(ctx context.Context, key JobKey) (*models.AISummaryJob, error) {
	key = s.resolve(key)
	fp := key.Fingerprint()

	job, found, err := s.read(ctx, fp)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.AISummaryJob{Fingerprint: fp, Status: models.SummaryStatusIdle, Model: key.Model}, nil
	}
	return job, nil
}

// Clear deletes the record for key and returns the fingerprint it cleared.
// A task still in flight is not cancelled and will write its result when it
// finishes.
func (s *SummaryService) Clear(ctx context.Context, key JobKey) (string, error) {
	fp := s.resolve(key).Fingerprint()
	if err := s.cache.Delete(ctx, cache.SummaryJobKey(fp)); err != nil {
		return "", fmt.Errorf("clearing summary job: %w", err)
	}
	return fp, nil
}

// Done returns a channel closed when the latest task started for key ends.
// It returns nil when no task is registered.
func (s *SummaryService) Done(key JobKey) <-chan struct{} {
	fp := s.resolve(key).Fingerprint()
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[fp]; ok {
		return t.done
	}
	return nil
}

// Shutdown waits for in-flight tasks. When ctx expires first, the remaining
// tasks are cancelled and ctx's error is returned.
func (s *SummaryService) Shutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.stop()
		return nil
	case <-ctx.Done():
		s.stop()
		slog.Warn("summary tasks cancelled at shutdown")
		return ctx.Err()
	}
}

func (s *SummaryService) read(ctx context.Context, fp string) (*models.AISummaryJob, bool, error) {
	raw, found, err := s.cache.Get(ctx, cache.SummaryJobKey(fp))
	if err != nil {
		return nil, false, fmt.Errorf("reading summary job: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	var job models.AISummaryJob
	if err := json.Unmarshal(raw, &job); err != nil {
		// An unreadable record is treated as absent and overwritten by the next start.
		slog.Warn("discarding unreadable summary job", "fingerprint", fp, "error", err)
		return nil, false, nil
	}
	return &job, true, nil
}

func (s *SummaryService) write(ctx context.Context, job *models.AISummaryJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding summary job: %w", err)
	}
	if err := s.cache.Set(ctx, cache.SummaryJobKey(job.Fingerprint), raw, s.cfg.JobTTL); err != nil {
		return fmt.Errorf("writing summary job: %w", err)
	}
	return nil
}
