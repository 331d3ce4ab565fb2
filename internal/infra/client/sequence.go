package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/resilience"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

const sequenceService = "sequence"

type sequenceRequest struct {
	Bank    domain.BankCode `json:"bank"`
	Agency  string          `json:"agency"`
	Account string          `json:"account"`
	Wallet  string          `json:"wallet"`
}

type sequenceResponse struct {
	Next int64 `json:"next"`
}

// SequenceClient allocates nosso número sequences from the operation
// management API. Every allocation carries an Idempotency-Key so a retried
// request returns the number already reserved.
type SequenceClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewSequenceClient creates a new SequenceClient.
func NewSequenceClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *SequenceClient {
	return &SequenceClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// Next reserves the next nosso número for acc with retry, circuit breaker, and tracing.
func (c *SequenceClient) Next(ctx context.Context, acc domain.BankAccountRef) (int64, error) {
	ctx, span := tracer.Start(ctx, "SequenceClient.Next")
	defer span.End()
	span.SetAttributes(
		attribute.String("bank.code", string(acc.Bank)),
		attribute.String("bank.wallet", acc.Wallet),
	)

	body, err := json.Marshal(sequenceRequest{Bank: acc.Bank, Agency: acc.Agency, Account: acc.Account, Wallet: acc.Wallet})
	if err != nil {
		return 0, err
	}
	idempotencyKey := uuid.NewString()

	result, err := c.cb.Execute(func() (any, error) {
		var out sequenceResponse
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/sequences/nosso-numero", c.baseURL)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Idempotency-Key", idempotencyKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("sequence API returned status %d", resp.StatusCode)
			default:
				return resilience.Permanent(fmt.Errorf("sequence API returned status %d", resp.StatusCode))
			}

			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return resilience.Permanent(fmt.Errorf("decode sequence response: %w", err))
			}
			if out.Next <= 0 {
				return resilience.Permanent(fmt.Errorf("sequence API returned non-positive value %d", out.Next))
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return out.Next, nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequence allocation failed")
		var open *domain.ErrCircuitOpen
		if errors.As(resilience.BreakerError(sequenceService, err), &open) {
			return 0, open
		}
		return 0, &domain.ErrExternalService{Service: sequenceService, Err: err}
	}

	n := result.(int64)
	span.SetAttributes(attribute.Int64("nosso_numero", n))
	return n, nil
}
