package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeRelevant},
		{in: "relevant", want: ModeRelevant},
		{in: "ERROR", want: ModeError},
		{in: " report ", want: ModeReport},
		{in: "all", want: ModeAll},
		{in: "warnings", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestInclude_DecisionTable(t *testing.T) {
	tests := []struct {
		name    string
		message string
		modes   map[Mode]bool
	}{
		{
			name:    "plain info line",
			message: "processing item 42",
			modes:   map[Mode]bool{ModeError: false, ModeReport: false, ModeAll: true, ModeRelevant: false},
		},
		{
			name:    "keyword error",
			message: "Unhandled exception in handler",
			modes:   map[Mode]bool{ModeError: true, ModeReport: false, ModeAll: true, ModeRelevant: true},
		},
		{
			name:    "report line",
			message: sampleReport,
			modes:   map[Mode]bool{ModeError: false, ModeReport: true, ModeAll: true, ModeRelevant: true},
		},
		{
			name:    "report line without metrics",
			message: "REPORT RequestId: abc",
			modes:   map[Mode]bool{ModeError: false, ModeReport: true, ModeAll: true, ModeRelevant: true},
		},
		{
			name:    "mentions duration",
			message: "query Duration was 12ms",
			modes:   map[Mode]bool{ModeError: false, ModeReport: false, ModeAll: true, ModeRelevant: true},
		},
		{
			name:    "structured 5xx",
			message: `{"message":"http.response","statusCode":502}`,
			modes:   map[Mode]bool{ModeError: true, ModeReport: false, ModeAll: true, ModeRelevant: true},
		},
		{
			name:    "structured benign payload mentioning error outside message fields",
			message: `{"message":"retry scheduled","note":"previous error"}`,
			modes:   map[Mode]bool{ModeError: false, ModeReport: false, ModeAll: true, ModeRelevant: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluate(ev(tt.message))
			for mode, want := range tt.modes {
				assert.Equal(t, want, Include(e, mode), "mode %s", mode)
			}
		})
	}
}

func TestProcess_RelevantExcludesPlainLines(t *testing.T) {
	var events []models.LogEvent
	for i := 0; i < 7; i++ {
		events = append(events, models.LogEvent{Timestamp: int64(1000 + i), Message: fmt.Sprintf("processing item %d", i)})
	}
	for i := 0; i < 3; i++ {
		events = append(events, models.LogEvent{Timestamp: int64(2000 + i), Message: fmt.Sprintf("cache lookup duration %dms", i)})
	}

	logs := Process(events, ModeRelevant, true)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Contains(t, l.Message, "duration")
	}

	agg := AggregatePage(logs, ModeRelevant, true)
	assert.Equal(t, 3, agg.Total)
	assert.Equal(t, 0, agg.Reports)
	assert.Equal(t, 0, agg.Errors)
	assert.Nil(t, agg.AvgDurationMs)
	assert.Equal(t, "relevant", agg.Filter)
}

func TestProcess_TimeoutReportIsAnError(t *testing.T) {
	events := []models.LogEvent{
		{Timestamp: 1, Message: "START RequestId: r1 Version: $LATEST"},
		{Timestamp: 2, Message: "END RequestId: r1"},
		{Timestamp: 3, Message: timeoutReport},
	}

	logs := Process(events, ModeError, true)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ParsedReport)
	assert.Equal(t, "timeout", logs[0].ParsedReport.Status)
	assert.Equal(t, models.LevelError, logs[0].Level)
}

func TestProcess_SimplifyOff(t *testing.T) {
	logs := Process([]models.LogEvent{{Timestamp: 1, Message: sampleReport}}, ModeAll, false)
	require.Len(t, logs, 1)
	assert.Empty(t, logs[0].SimplifiedMessage)
	assert.Equal(t, models.CategoryReport, logs[0].Category)
}

func TestSortEvents_TotalOrder(t *testing.T) {
	logs := []models.ClassifiedLog{
		{LogEvent: models.LogEvent{EventID: "a", IngestionTime: 10, Timestamp: 100}},
		{LogEvent: models.LogEvent{EventID: "c", IngestionTime: 10, Timestamp: 100}},
		{LogEvent: models.LogEvent{EventID: "z", IngestionTime: 5, Timestamp: 100}},
		{LogEvent: models.LogEvent{EventID: "b", IngestionTime: 1, Timestamp: 200}},
		{LogEvent: models.LogEvent{EventID: "y", IngestionTime: 20, Timestamp: 50}},
		{LogEvent: models.LogEvent{EventID: "b2", IngestionTime: 10, Timestamp: 100}},
	}

	SortEvents(logs)

	var ids []string
	for _, l := range logs {
		ids = append(ids, l.EventID)
	}
	assert.Equal(t, []string{"b", "c", "b2", "a", "z", "y"}, ids)

	// Any input permutation sorts to the same sequence.
	reversed := make([]models.ClassifiedLog, len(logs))
	for i := range logs {
		reversed[len(logs)-1-i] = logs[i]
	}
	SortEvents(reversed)
	assert.Equal(t, logs, reversed)
}

func TestProcess_ReportFieldsWithoutPrefix(t *testing.T) {
	line := "XRAY TraceId: 1-abc\tInit Duration: 250.10 ms\tDuration: 812.55 ms\tBilled Duration: 813 ms\tMemory Size: 128 MB\tMax Memory Used: 70 MB"
	require.False(t, IsReportLine(line))

	logs := Process([]models.LogEvent{{Timestamp: 1, Message: line}, {Timestamp: 2, Message: "processing item 1"}}, ModeReport, true)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ParsedReport)
	assert.Equal(t, models.CategoryReport, logs[0].Category)
	assert.Equal(t, line, logs[0].Message)

	assert.Len(t, Process([]models.LogEvent{{Timestamp: 1, Message: line}}, ModeRelevant, true), 1)

	agg := AggregatePage(logs, ModeReport, true)
	assert.Equal(t, 1, agg.Reports)
	require.NotNil(t, agg.AvgDurationMs)
	assert.InDelta(t, 812.55, *agg.AvgDurationMs, 1e-9)
}
