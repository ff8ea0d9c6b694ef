// Package cloudwatch serves execution logs from CloudWatch Logs FilterLogEvents.
package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"

	"github.com/kiranshivaraju/lambdapulse/internal/awsutil"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/internal/secrets"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// maxPageSize is the FilterLogEvents limit ceiling.
const maxPageSize = 10000

// FilterLogEventsAPI is the subset of the CloudWatch Logs client used here.
type FilterLogEventsAPI interface {
	FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// Source implements logsource.Source over one CloudWatch Logs client.
type Source struct {
	api FilterLogEventsAPI
}

// New wraps a CloudWatch Logs client.
func New(api FilterLogEventsAPI) *Source {
	return &Source{api: api}
}

func (s *Source) Query(ctx context.Context, req logsource.QueryRequest) (logsource.Page, error) {
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(req.LogGroup),
		StartTime:    aws.Int64(req.Start.UnixMilli()),
		EndTime:      aws.Int64(req.End.UnixMilli()),
	}
	if pattern := FilterPattern(req.Filter); pattern != "" {
		in.FilterPattern = aws.String(pattern)
	}
	if req.NextToken != "" {
		in.NextToken = aws.String(req.NextToken)
	}
	if req.Limit > 0 {
		in.Limit = aws.Int32(int32(min(req.Limit, maxPageSize)))
	}

	out, err := s.api.FilterLogEvents(ctx, in)
	if err != nil {
		return logsource.Page{}, classifyError(err)
	}

	page := logsource.Page{Events: make([]models.LogEvent, 0, len(out.Events))}
	for _, e := range out.Events {
		page.Events = append(page.Events, models.LogEvent{
			EventID:       aws.ToString(e.EventId),
			IngestionTime: aws.ToInt64(e.IngestionTime),
			Timestamp:     aws.ToInt64(e.Timestamp),
			Message:       aws.ToString(e.Message),
		})
	}
	page.NextToken = aws.ToString(out.NextToken)
	return page, nil
}

// FilterPattern turns free search text into an optional-term CloudWatch
// filter pattern. Double quotes in the text are dropped.
func FilterPattern(search string) string {
	search = strings.TrimSpace(strings.ReplaceAll(search, `"`, ""))
	if search == "" {
		return ""
	}
	return `?"` + search + `"`
}

// classifyError separates service rejections from transport failures.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %s", logsource.ErrSourceQuery, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return logsource.ClassifyError(err)
}

// Resolver builds a Source per integration from its region and sealed credentials.
type Resolver struct {
	box      *secrets.Box
	endpoint string
}

// NewResolver returns a Resolver. endpoint overrides the CloudWatch Logs
// endpoint when non-empty.
func NewResolver(box *secrets.Box, endpoint string) *Resolver {
	return &Resolver{box: box, endpoint: endpoint}
}

func (r *Resolver) ForIntegration(ctx context.Context, in *models.Integration) (logsource.Source, error) {
	cfg, err := awsutil.ConfigFor(ctx, r.box, r.endpoint, in)
	if err != nil {
		return nil, err
	}
	return New(cloudwatchlogs.NewFromConfig(cfg)), nil
}

// Compile-time checks.
var (
	_ logsource.Source   = (*Source)(nil)
	_ logsource.Resolver = (*Resolver)(nil)
)
