package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// Patterns for the per-invocation REPORT line, compiled once at package init.
var (
	reReportLine     = regexp.MustCompile(`REPORT RequestId:`)
	reDuration       = regexp.MustCompile(`(Billed |Init )?Duration: ([\d.]+) ms`)
	reBilledDuration = regexp.MustCompile(`Billed Duration: ([\d.]+) ms`)
	reMemorySize     = regexp.MustCompile(`Memory Size: (\d+) MB`)
	reMaxMemoryUsed  = regexp.MustCompile(`Max Memory Used: (\d+) MB`)
	reInitDuration   = regexp.MustCompile(`Init Duration: ([\d.]+) ms`)
	reStatus         = regexp.MustCompile(`Status: ([A-Za-z.]+)`)
)

// IsReportLine reports whether message is a fixed-format REPORT line.
func IsReportLine(message string) bool {
	return reReportLine.MatchString(message)
}

// ParseReport extracts invocation metrics from any line carrying REPORT fields.
// Returns nil when none of the duration or memory fields are present,
// so a missing report is never confused with an empty one.
func ParseReport(message string) *models.ParsedReport {
	r := &models.ParsedReport{
		DurationMs:       plainDuration(message),
		BilledDurationMs: matchFloat(reBilledDuration, message),
		MemorySizeMB:     matchFloat(reMemorySize, message),
		MaxMemoryUsedMB:  matchFloat(reMaxMemoryUsed, message),
		InitDurationMs:   matchFloat(reInitDuration, message),
	}
	if r.DurationMs == nil && r.BilledDurationMs == nil && r.MemorySizeMB == nil &&
		r.MaxMemoryUsedMB == nil && r.InitDurationMs == nil {
		return nil
	}
	if m := reStatus.FindStringSubmatch(message); m != nil {
		r.Status = strings.ToLower(strings.TrimSuffix(m[1], "."))
	}
	return r
}

// plainDuration returns the first "Duration:" field that is not the billed or init duration.
func plainDuration(message string) *float64 {
	for _, m := range reDuration.FindAllStringSubmatch(message, -1) {
		if m[1] != "" {
			continue
		}
		return parseFloat(m[2])
	}
	return nil
}

func matchFloat(re *regexp.Regexp, message string) *float64 {
	m := re.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	return parseFloat(m[1])
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
