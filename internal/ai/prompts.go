package ai

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const maxPromptLineBytes = 500

const systemInstruction = `You summarize execution logs of a serverless function for an operator.
Use only facts present in the logs you are given. Cite timestamps and messages as they appear.
If something cannot be determined from the logs, say that it cannot be inferred from the logs.
Never invent causes, counts, or times. Keep the answer under 800 characters and use this format:

What happened:
(2-3 plain sentences)

Needs attention:
(anything worrying and its practical impact, or "Nothing found")

When:
(the main times, e.g. "2024-01-20 15:27 UTC")`

const chunkInstruction = "Summarize this batch of logs in at most two bullets, each with a timestamp. Use only what the logs show."

// formatLogs renders one line per log: time, level and message.
func formatLogs(logs []models.ClassifiedLog) string {
	var sb strings.Builder
	for _, l := range logs {
		msg := l.SimplifiedMessage
		if msg == "" {
			msg = l.Message
		}
		msg = strings.Join(strings.Fields(msg), " ")
		level := string(l.Level)
		if level == "" {
			level = string(models.LevelInfo)
		}
		fmt.Fprintf(&sb, "%s %-5s %s\n",
			time.UnixMilli(l.Timestamp).UTC().Format(time.RFC3339),
			strings.ToUpper(level),
			truncateString(msg, maxPromptLineBytes))
	}
	return sb.String()
}

func directPrompt(target string, logs []models.ClassifiedLog) string {
	return fmt.Sprintf("Function: %s\nLog count: %d\n\nLogs to analyze:\n%s", target, len(logs), formatLogs(logs))
}

func chunkPrompt(index, total int, logs []models.ClassifiedLog) string {
	return fmt.Sprintf("Batch %d/%d. %s\n\n%s", index, total, chunkInstruction, formatLogs(logs))
}

func chunkPlaceholder(index int) string {
	return fmt.Sprintf("Batch %d: failed to summarize this batch.", index)
}

func consolidatePrompt(target string, partials []string) string {
	return fmt.Sprintf("Function: %s\nConsolidate the partial summaries below into one final summary.\n\nPartial summaries:\n%s",
		target, strings.Join(partials, "\n\n"))
}

func truncatedPrompt(target string, logs []models.ClassifiedLog, total int) string {
	return fmt.Sprintf("Function: %s\nOnly the %d most recent of %d logs are shown. Say so in the summary.\n\nLogs to analyze:\n%s",
		target, len(logs), total, formatLogs(logs))
}

// statisticsPrompt carries only precomputed aggregates plus a small sample.
func statisticsPrompt(target string, agg models.AggregateSummary, sample []models.ClassifiedLog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Function: %s\nStatistics over the selected window (filter %q):\n", target, agg.Filter)
	fmt.Fprintf(&sb, "- events: %d\n- invocation reports: %d\n- errors: %d\n- timeouts: %d\n",
		agg.Total, agg.Reports, agg.Errors, agg.Timeouts)
	if agg.AvgDurationMs != nil {
		fmt.Fprintf(&sb, "- average duration: %s ms\n", strconv.FormatFloat(*agg.AvgDurationMs, 'f', 2, 64))
	} else {
		sb.WriteString("- average duration: unknown\n")
	}
	if agg.StartTime != nil && agg.EndTime != nil {
		fmt.Fprintf(&sb, "- observed range: %s to %s\n",
			time.UnixMilli(*agg.StartTime).UTC().Format(time.RFC3339),
			time.UnixMilli(*agg.EndTime).UTC().Format(time.RFC3339))
	}
	if agg.Capped {
		sb.WriteString("- the scan stopped at its event cap; counts are partial\n")
	}
	if len(agg.TopMessages) > 0 {
		sb.WriteString("Most frequent messages:\n")
		for _, m := range agg.TopMessages {
			fmt.Fprintf(&sb, "- %dx %s\n", m.Count, m.Message)
		}
	}
	fmt.Fprintf(&sb, "\nStatistics-only request. Sample of %d events:\n%s", len(sample), formatLogs(sample))
	return sb.String()
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
