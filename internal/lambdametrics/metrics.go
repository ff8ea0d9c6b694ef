// Package lambdametrics reads a function's invocation metrics from CloudWatch.
package lambdametrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/smithy-go"

	"github.com/kiranshivaraju/lambdapulse/internal/awsutil"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/internal/secrets"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const namespace = "AWS/Lambda"

// Request bounds for period (seconds) and lookback (days).
const (
	DefaultPeriod = 3600
	DefaultDays   = 7
	MinPeriod     = 60
	MaxDays       = 30
)

// series lists the metrics fetched for every function, keyed by query ID.
var series = []struct {
	id, metric string
	stat       string
}{
	{"invocations", "Invocations", "Sum"},
	{"errors", "Errors", "Sum"},
	{"duration", "Duration", "Average"},
	{"throttles", "Throttles", "Sum"},
}

// Point is one datapoint of a metric series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// FunctionMetrics holds the series for one function, oldest point first.
type FunctionMetrics struct {
	FunctionName string             `json:"functionName"`
	Period       int                `json:"period"`
	Start        time.Time          `json:"startTime"`
	End          time.Time          `json:"endTime"`
	Series       map[string][]Point `json:"series"`
}

// GetMetricDataAPI is the subset of the CloudWatch client used here.
type GetMetricDataAPI interface {
	GetMetricData(ctx context.Context, in *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// Fetcher reads Lambda metrics for integrations.
type Fetcher struct {
	box      *secrets.Box
	endpoint string
	newAPI   func(aws.Config) GetMetricDataAPI
	now      func() time.Time
}

// NewFetcher returns a Fetcher that builds a CloudWatch client per integration.
func NewFetcher(box *secrets.Box, endpoint string) *Fetcher {
	return &Fetcher{
		box:      box,
		endpoint: endpoint,
		newAPI:   func(cfg aws.Config) GetMetricDataAPI { return cloudwatch.NewFromConfig(cfg) },
		now:      time.Now,
	}
}

// Fetch returns the Invocations, Errors, Duration and Throttles series over
// the last days days at the given period.
func (f *Fetcher) Fetch(ctx context.Context, in *models.Integration, period, days int) (*FunctionMetrics, error) {
	cfg, err := awsutil.ConfigFor(ctx, f.box, f.endpoint, in)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, f.newAPI(cfg), in.FunctionName, period, days, f.now())
}

func fetch(ctx context.Context, api GetMetricDataAPI, function string, period, days int, now time.Time) (*FunctionMetrics, error) {
	end := now.UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	queries := make([]types.MetricDataQuery, 0, len(series))
	for _, s := range series {
		queries = append(queries, types.MetricDataQuery{
			Id: aws.String(s.id),
			MetricStat: &types.MetricStat{
				Metric: &types.Metric{
					Namespace:  aws.String(namespace),
					MetricName: aws.String(s.metric),
					Dimensions: []types.Dimension{
						{Name: aws.String("FunctionName"), Value: aws.String(function)},
					},
				},
				Period: aws.Int32(int32(period)),
				Stat:   aws.String(s.stat),
			},
		})
	}

	out := &FunctionMetrics{
		FunctionName: function,
		Period:       period,
		Start:        start,
		End:          end,
		Series:       make(map[string][]Point, len(series)),
	}
	for _, s := range series {
		out.Series[s.id] = []Point{}
	}

	in := &cloudwatch.GetMetricDataInput{
		StartTime:         aws.Time(start),
		EndTime:           aws.Time(end),
		MetricDataQueries: queries,
	}
	for {
		resp, err := api.GetMetricData(ctx, in)
		if err != nil {
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				return nil, fmt.Errorf("%w: %s: %s", logsource.ErrSourceQuery, apiErr.ErrorCode(), apiErr.ErrorMessage())
			}
			return nil, logsource.ClassifyError(err)
		}
		for _, r := range resp.MetricDataResults {
			id := aws.ToString(r.Id)
			for i := range r.Timestamps {
				if i >= len(r.Values) {
					break
				}
				out.Series[id] = append(out.Series[id], Point{Timestamp: r.Timestamps[i].UTC(), Value: r.Values[i]})
			}
		}
		if aws.ToString(resp.NextToken) == "" {
			break
		}
		in.NextToken = resp.NextToken
	}

	for id := range out.Series {
		pts := out.Series[id]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp.Before(pts[j].Timestamp) })
	}
	return out, nil
}
