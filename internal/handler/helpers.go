package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeCodedError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// formatBRL renders an amount as "R$ 1.234,56".
func formatBRL(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return brl.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var invalidAmount *domain.ErrInvalidAmount
	var invalidSchedule *domain.ErrInvalidSchedule
	var invalidDate *domain.ErrInvalidDateRange
	var unsupportedBank *domain.ErrUnsupportedBank
	var encoding *domain.ErrEncodingInvariant
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeCodedError(w, http.StatusBadRequest, "validation", err)
	case errors.As(err, &unsupportedBank):
		logger.Debug("unsupported bank", zap.String("bank", string(unsupportedBank.Bank)))
		writeCodedError(w, http.StatusBadRequest, "unsupported_bank", err)
	case errors.As(err, &invalidAmount):
		logger.Debug("invalid amount", zap.String("error", err.Error()))
		writeCodedError(w, http.StatusUnprocessableEntity, "invalid_amount", err)
	case errors.As(err, &invalidSchedule):
		logger.Debug("invalid schedule", zap.String("error", err.Error()))
		writeCodedError(w, http.StatusUnprocessableEntity, "invalid_schedule", err)
	case errors.As(err, &invalidDate):
		logger.Debug("invalid date range", zap.String("error", err.Error()))
		writeCodedError(w, http.StatusUnprocessableEntity, "invalid_date_range", err)
	case errors.As(err, &encoding):
		logger.Warn("encoding invariant violated",
			zap.String("field", encoding.Field),
			zap.String("expected", encoding.Expected),
		)
		writeCodedError(w, http.StatusUnprocessableEntity, "encoding_invariant", err)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeCodedError(w, http.StatusServiceUnavailable, "circuit_open", err)
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeCodedError(w, http.StatusBadGateway, "external_service", err)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeCodedError(w, http.StatusUnauthorized, "unauthorized", err)
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
