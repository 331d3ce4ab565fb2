package handler

import (
	"net/http"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"
	"github.com/boddenberg/factoring-settlement-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Pricing
// ============================================================

type desagioQuoteResponse struct {
	*domain.DesagioQuote
	NetAmountFormatted string `json:"net_amount_formatted"`
}

func desagioQuoteHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/desagio/quote")
		defer span.End()

		var req domain.DesagioQuoteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		quote, err := svc.QuoteDesagio(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, desagioQuoteResponse{
			DesagioQuote:       quote,
			NetAmountFormatted: formatBRL(quote.NetAmount),
		})
	}
}

func buybackQuoteHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/buybacks/quote")
		defer span.End()

		var batch domain.BuybackBatch
		if !decodeJSON(w, r, &batch) {
			return
		}

		result, err := svc.QuoteBuyback(ctx, &batch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// Bank slips
// ============================================================

type instrumentResponse struct {
	*domain.SettlementInstrument
	AmountFormatted string `json:"amount_formatted"`
}

func newInstrumentResponse(inst *domain.SettlementInstrument, withBars bool) instrumentResponse {
	if !withBars {
		cp := *inst
		cp.Bars = nil
		inst = &cp
	}
	return instrumentResponse{SettlementInstrument: inst, AmountFormatted: formatBRL(inst.Amount)}
}

func listBanksHandler(svc *service.SettlementService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"banks": svc.Banks()})
	}
}

// issueBoletoHandler issues one slip. The bar sequence is omitted unless
// ?bars=true is given.
func issueBoletoHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/boletos")
		defer span.End()

		var req domain.IssueRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		span.SetAttributes(
			attribute.String("bank.code", string(req.Account.Bank)),
			attribute.String("operator.id", OperatorIDFromContext(ctx)),
		)

		inst, err := svc.IssueInstrument(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, newInstrumentResponse(inst, wantBars(r)))
	}
}

func issueBatchHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/boletos/batch")
		defer span.End()

		var req domain.IssueBatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		span.SetAttributes(
			attribute.String("bank.code", string(req.Account.Bank)),
			attribute.Int("installments", len(req.Installments)),
			attribute.String("operator.id", OperatorIDFromContext(ctx)),
		)

		result, err := svc.IssueBatch(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bars := wantBars(r)
		instruments := make([]instrumentResponse, len(result.Instruments))
		for i := range result.Instruments {
			instruments[i] = newInstrumentResponse(&result.Instruments[i], bars)
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"batch_id":               result.BatchID,
			"instruments":            instruments,
			"total_amount":           result.TotalAmount,
			"total_amount_formatted": formatBRL(result.TotalAmount),
		})
	}
}

func validateLineHandler(svc *service.SettlementService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/boletos/validate")
		defer span.End()

		var req domain.LineValidationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.ValidateLine(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func wantBars(r *http.Request) bool {
	return r.URL.Query().Get("bars") == "true"
}
