package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func LogsPageKey(integrationID uuid.UUID, paramsHash string) string {
	return fmt.Sprintf("logs:%s:%s", integrationID, paramsHash)
}

func FunctionMetricsKey(integrationID uuid.UUID, period, days int) string {
	return fmt.Sprintf("metrics:%s:%d:%d", integrationID, period, days)
}

func SummaryJobKey(fingerprint string) string {
	return fmt.Sprintf("ai-summary:%s", fingerprint)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
