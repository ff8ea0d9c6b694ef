// Package logsource defines the paginated execution-log query used by the
// log pipeline, with CloudWatch Logs and Loki implementations in subpackages.
package logsource

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// Sentinel errors for log source failures.
var (
	ErrSourceUnreachable = errors.New("log source unreachable")
	ErrSourceQuery       = errors.New("log source query error")
	ErrSourceTimeout     = errors.New("log source query timeout")
)

// QueryRequest selects one page of a function's execution logs.
type QueryRequest struct {
	LogGroup     string
	FunctionName string
	Start        time.Time
	End          time.Time
	// Filter is free text the source matches against the raw message.
	Filter    string
	NextToken string
	Limit     int
}

// Page is one batch of events. An empty NextToken means the range is exhausted.
type Page struct {
	Events    []models.LogEvent
	NextToken string
}

// Source queries execution logs.
type Source interface {
	Query(ctx context.Context, req QueryRequest) (Page, error)
}

// Resolver returns the Source that serves an integration's logs.
type Resolver interface {
	ForIntegration(ctx context.Context, integration *models.Integration) (Source, error)
}

// ClassifyError maps transport-level errors to sentinel errors.
func ClassifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
}
