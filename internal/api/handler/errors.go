package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/lambdapulse/internal/api/response"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/internal/secrets"
)

// writeUpstreamError maps log source and credential failures to responses.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, logsource.ErrSourceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "LOG_SOURCE_TIMEOUT",
			"The log source did not answer in time", nil)
	case errors.Is(err, logsource.ErrSourceUnreachable):
		response.Error(w, http.StatusBadGateway, "LOG_SOURCE_UNAVAILABLE",
			"The log source is not available", nil)
	case errors.Is(err, logsource.ErrSourceQuery):
		response.Error(w, http.StatusBadGateway, "LOG_SOURCE_UNAVAILABLE",
			"The log source rejected the query", map[string]string{"reason": err.Error()})
	case errors.Is(err, secrets.ErrOpen), errors.Is(err, secrets.ErrNoKey):
		slog.Error("integration credentials unusable", "error", err)
		response.Error(w, http.StatusInternalServerError, "CREDENTIALS_UNAVAILABLE",
			"Integration credentials could not be opened", nil)
	default:
		slog.Error("upstream request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
