package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/boleto"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/observability"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/resilience"
	"github.com/boddenberg/factoring-settlement-go/internal/port"
	"github.com/boddenberg/factoring-settlement-go/internal/pricing"
	"github.com/boddenberg/factoring-settlement-go/internal/symbology"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/settlement")

// brasilia is the business-day clock of the operation desk. Brazil has not
// observed daylight saving since 2019.
var brasilia = time.FixedZone("BRT", -3*60*60)

// instrumentNamespace derives stable instrument IDs from barcode payloads.
var instrumentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:factoring-settlement:instrument"))

const instrumentCache = "instrument"

// SettlementService wraps the pure pricing and encoding core with
// sequence allocation, memoisation, tracing and metrics.
type SettlementService struct {
	builder   *boleto.Builder
	allocator port.NossoNumeroAllocator
	cache     port.Cache[*domain.SettlementInstrument]
	bulkhead  *resilience.Bulkhead
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option customises a SettlementService.
type Option func(*SettlementService)

// WithClock replaces the wall clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *SettlementService) { s.now = now }
}

// WithRegistry replaces the default bank registry.
func WithRegistry(r *boleto.Registry) Option {
	return func(s *SettlementService) { s.builder = boleto.NewBuilder(r) }
}

// NewSettlementService creates the settlement service with all dependencies injected.
func NewSettlementService(
	allocator port.NossoNumeroAllocator,
	cache port.Cache[*domain.SettlementInstrument],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *SettlementService {
	s := &SettlementService{
		builder:   boleto.NewBuilder(boleto.DefaultRegistry()),
		allocator: allocator,
		cache:     cache,
		bulkhead:  bulkhead,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current business date.
func (s *SettlementService) Today() civil.Date {
	return civil.DateOf(s.now().In(brasilia))
}

// Banks lists the banks slips can be issued for.
func (s *SettlementService) Banks() []domain.BankInfo {
	return s.builder.Registry().Banks()
}

// QuoteDesagio prices a document split into installments.
func (s *SettlementService) QuoteDesagio(ctx context.Context, req *domain.DesagioQuoteRequest) (*domain.DesagioQuote, error) {
	_, span := tracer.Start(ctx, "SettlementService.QuoteDesagio")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.number", req.DocumentNumber),
		attribute.Int("installments", req.InstallmentCount),
	)

	start := time.Now()
	defer func() { s.metrics.RecordDuration("desagio_quote", time.Since(start)) }()

	today := s.Today()
	if req.Today != nil {
		today = *req.Today
	}

	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		DocumentNumber:   req.DocumentNumber,
		GrossAmount:      req.GrossAmount,
		OperationDate:    req.OperationDate,
		Today:            today,
		InstallmentCount: req.InstallmentCount,
		TermDays:         req.TermDays,
		Type:             req.OperationType,
	})
	if err != nil {
		s.reject(span, "desagio quote rejected", err, zap.String("document_number", req.DocumentNumber))
		return nil, err
	}

	s.metrics.IncrQuote("desagio")
	s.logger.Info("desagio quoted",
		zap.String("document_number", req.DocumentNumber),
		zap.Int("installments", len(quote.Installments)),
		zap.String("total_interest", quote.TotalInterest.StringFixed(2)),
		zap.String("net_amount", quote.NetAmount.StringFixed(2)),
	)
	return quote, nil
}

// QuoteBuyback computes the principal debit and unearned-interest credit
// of a buyback.
func (s *SettlementService) QuoteBuyback(ctx context.Context, batch *domain.BuybackBatch) (*domain.BuybackResult, error) {
	_, span := tracer.Start(ctx, "SettlementService.QuoteBuyback")
	defer span.End()
	span.SetAttributes(attribute.Int("installments", len(batch.Installments)))

	start := time.Now()
	defer func() { s.metrics.RecordDuration("buyback_quote", time.Since(start)) }()

	result, err := pricing.QuoteBuyback(*batch)
	if err != nil {
		s.reject(span, "buyback quote rejected", err)
		return nil, err
	}

	s.metrics.IncrQuote("buyback")
	s.logger.Info("buyback quoted",
		zap.Int("installments", len(batch.Installments)),
		zap.String("principal_debit", result.PrincipalDebit.StringFixed(2)),
		zap.String("interest_credit", result.InterestCredit.StringFixed(2)),
	)
	return result, nil
}

// IssueInstrument encodes the slip of one installment. A zero nosso número
// is allocated from the sequence port first. Instruments are memoised by
// account, installment and nosso número.
func (s *SettlementService) IssueInstrument(ctx context.Context, req *domain.IssueRequest) (*domain.SettlementInstrument, error) {
	ctx, span := tracer.Start(ctx, "SettlementService.IssueInstrument")
	defer span.End()
	span.SetAttributes(
		attribute.String("bank.code", string(req.Account.Bank)),
		attribute.String("document.number", req.Installment.DocumentNumber),
		attribute.Int("installment.number", req.Installment.Number),
	)

	start := time.Now()
	defer func() { s.metrics.RecordDuration("issue_instrument", time.Since(start)) }()

	in := req.Installment
	inst, err := s.issue(ctx, req.Account, in, req.NossoNumero)
	if err != nil {
		err = &domain.ErrInstallment{Number: in.Number, DocumentNumber: in.DocumentNumber, Err: err}
		s.reject(span, "instrument rejected", err,
			zap.String("bank", string(req.Account.Bank)),
			zap.String("document_number", in.DocumentNumber),
			zap.Int("installment", in.Number),
		)
		return nil, err
	}
	return inst, nil
}

// IssueBatch issues one instrument per installment concurrently, bounded by
// the bulkhead. Every installment is validated and its nosso número
// allocated in schedule order before the fan-out, so a batch never burns
// sequence numbers on a rejected installment and installment i always gets
// the i-th number. The first failure is returned wrapped in
// *domain.ErrInstallment.
func (s *SettlementService) IssueBatch(ctx context.Context, req *domain.IssueBatchRequest) (*domain.IssueBatchResult, error) {
	ctx, span := tracer.Start(ctx, "SettlementService.IssueBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("bank.code", string(req.Account.Bank)),
		attribute.Int("installments", len(req.Installments)),
	)

	start := time.Now()
	defer func() { s.metrics.RecordDuration("issue_batch", time.Since(start)) }()

	if len(req.Installments) == 0 {
		err := &domain.ErrValidation{Field: "installments", Message: "at least one installment is required"}
		s.reject(span, "batch rejected", err)
		return nil, err
	}

	installments := make([]domain.Installment, len(req.Installments))
	for i, in := range req.Installments {
		if in.Number == 0 {
			in.Number = i + 1
		}
		if err := s.check(req.Account, in); err != nil {
			err = &domain.ErrInstallment{Number: in.Number, DocumentNumber: in.DocumentNumber, Err: err}
			s.reject(span, "batch rejected", err, zap.String("bank", string(req.Account.Bank)))
			return nil, err
		}
		installments[i] = in
	}

	numbers := make([]int64, len(installments))
	for i, in := range installments {
		n, err := s.allocate(ctx, req.Account)
		if err != nil {
			err = &domain.ErrInstallment{Number: in.Number, DocumentNumber: in.DocumentNumber, Err: err}
			s.reject(span, "batch rejected", err, zap.String("bank", string(req.Account.Bank)))
			return nil, err
		}
		numbers[i] = n
	}

	instruments := make([]domain.SettlementInstrument, len(installments))
	g, gCtx := errgroup.WithContext(ctx)

	for i, in := range installments {
		i, in := i, in
		g.Go(func() error {
			return s.bulkhead.Do(gCtx, func() error {
				inst, err := s.issue(gCtx, req.Account, in, numbers[i])
				if err != nil {
					return &domain.ErrInstallment{Number: in.Number, DocumentNumber: in.DocumentNumber, Err: err}
				}
				instruments[i] = *inst
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		s.reject(span, "batch rejected", err, zap.String("bank", string(req.Account.Bank)))
		return nil, err
	}

	total := decimal.Zero
	for _, inst := range instruments {
		total = total.Add(inst.Amount)
	}

	result := &domain.IssueBatchResult{
		BatchID:     uuid.NewString(),
		Instruments: instruments,
		TotalAmount: total,
	}
	s.logger.Info("batch issued",
		zap.String("batch_id", result.BatchID),
		zap.String("bank", string(req.Account.Bank)),
		zap.Int("instruments", len(instruments)),
		zap.String("total_amount", total.StringFixed(2)),
	)
	return result, nil
}

func (s *SettlementService) issue(ctx context.Context, acc domain.BankAccountRef, in domain.Installment, nossoNumero int64) (*domain.SettlementInstrument, error) {
	// Fail fast before consuming a sequence number.
	if err := s.check(acc, in); err != nil {
		return nil, err
	}

	if nossoNumero == 0 {
		n, err := s.allocate(ctx, acc)
		if err != nil {
			return nil, err
		}
		nossoNumero = n
	}

	key := cacheKey(acc, in, nossoNumero)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit(instrumentCache)
		out := *cached
		return &out, nil
	}
	s.metrics.IncrCacheMiss(instrumentCache)

	bc, err := s.builder.Build(boleto.BuildRequest{
		Account:     acc,
		NossoNumero: nossoNumero,
		Amount:      in.GrossAmount,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return nil, err
	}
	line, err := symbology.DigitableLine(bc.Payload)
	if err != nil {
		return nil, err
	}
	bars, err := symbology.Interleaved2of5(bc.Payload)
	if err != nil {
		return nil, err
	}

	inst := &domain.SettlementInstrument{
		ID:                uuid.NewSHA1(instrumentNamespace, []byte(bc.Payload)).String(),
		Bank:              bc.Bank,
		DocumentNumber:    in.DocumentNumber,
		InstallmentNumber: in.Number,
		NossoNumero:       bc.NossoNumero,
		Amount:            in.GrossAmount,
		DueDate:           in.DueDate,
		DueFactor:         bc.DueFactor,
		AmountField:       bc.AmountField,
		FreeField:         bc.FreeField,
		GeneralCheckDigit: bc.GeneralCheckDigit,
		Barcode:           bc.Payload,
		DigitableLine:     line,
		Bars:              bars,
	}
	s.cache.Set(key, inst)

	s.metrics.IncrIssued(bc.Bank)
	s.logger.Debug("instrument issued",
		zap.String("bank", string(bc.Bank)),
		zap.String("document_number", in.DocumentNumber),
		zap.Int("installment", in.Number),
		zap.String("nosso_numero", bc.NossoNumero),
	)

	out := *inst
	return &out, nil
}

// check validates the installment and resolves the bank strategy.
func (s *SettlementService) check(acc domain.BankAccountRef, in domain.Installment) error {
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := s.builder.Registry().Lookup(acc.Bank)
	return err
}

func (s *SettlementService) allocate(ctx context.Context, acc domain.BankAccountRef) (int64, error) {
	n, err := s.allocator.Next(ctx, acc)
	if err != nil {
		s.metrics.IncrExternalError("sequence")
		return 0, fmt.Errorf("allocate nosso numero: %w", err)
	}
	return n, nil
}

func cacheKey(acc domain.BankAccountRef, in domain.Installment, nossoNumero int64) string {
	return acc.Key() + "#" + strconv.FormatInt(nossoNumero, 10) + "#" +
		in.DocumentNumber + "#" + strconv.Itoa(in.Number) + "#" +
		in.GrossAmount.StringFixed(2) + "#" + in.DueDate.String()
}

// ValidateLine checks a barcode or linha digitável and decodes its fields.
// Check-digit failures produce IsValid=false with the reasons listed; only
// a missing input is returned as an error.
func (s *SettlementService) ValidateLine(ctx context.Context, req *domain.LineValidationRequest) (*domain.LineValidationResponse, error) {
	_, span := tracer.Start(ctx, "SettlementService.ValidateLine")
	defer span.End()

	input := req.DigitableLine
	if input == "" {
		input = req.Barcode
	}
	if input == "" {
		return nil, &domain.ErrValidation{Field: "digitable_line|barcode", Message: "at least one is required"}
	}

	clean := symbology.Digits(input)
	resp := &domain.LineValidationResponse{}

	var payload string
	var err error
	switch len(clean) {
	case symbology.DigitableLineLength:
		payload, err = symbology.ParseDigitableLine(clean)
	case boleto.PayloadLength:
		_, err = boleto.Decode(clean)
		payload = clean
	default:
		err = fmt.Errorf("input has %d digits, expected %d (barcode) or %d (linha digitável)",
			len(clean), boleto.PayloadLength, symbology.DigitableLineLength)
	}
	if err != nil {
		resp.ValidationErrors = []string{err.Error()}
		span.SetAttributes(attribute.Bool("line.valid", false))
		return resp, nil
	}

	bc, err := boleto.Decode(payload)
	if err != nil {
		resp.ValidationErrors = []string{err.Error()}
		return resp, nil
	}
	line, err := symbology.DigitableLine(payload)
	if err != nil {
		resp.ValidationErrors = []string{err.Error()}
		return resp, nil
	}
	amount, err := boleto.AmountFromField(bc.AmountField)
	if err != nil {
		resp.ValidationErrors = []string{err.Error()}
		return resp, nil
	}

	resp.IsValid = true
	resp.Barcode = payload
	resp.DigitableLine = line
	resp.BankCode = string(bc.Bank)
	resp.Amount = amount
	resp.FreeField = bc.FreeField
	if factor, err := strconv.Atoi(bc.DueFactor); err == nil {
		if due, ok := boleto.DueDateFromFactor(factor, s.Today()); ok {
			resp.DueDate = &due
		}
	}

	span.SetAttributes(attribute.Bool("line.valid", true), attribute.String("bank.code", resp.BankCode))
	return resp, nil
}

// reject records a refused request on the span, metrics and log.
func (s *SettlementService) reject(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.metrics.IncrRejection(RejectionReason(err))
	s.logger.Warn(msg, append(fields, zap.Error(err))...)
}

// RejectionReason classifies err for the rejections counter.
func RejectionReason(err error) string {
	var (
		amount   *domain.ErrInvalidAmount
		schedule *domain.ErrInvalidSchedule
		dates    *domain.ErrInvalidDateRange
		bank     *domain.ErrUnsupportedBank
		encoding *domain.ErrEncodingInvariant
		invalid  *domain.ErrValidation
	)
	switch {
	case errors.As(err, &amount):
		return observability.ReasonInvalidAmount
	case errors.As(err, &schedule):
		return observability.ReasonInvalidSchedule
	case errors.As(err, &dates):
		return observability.ReasonInvalidDate
	case errors.As(err, &bank):
		return observability.ReasonUnsupportedBank
	case errors.As(err, &encoding):
		return observability.ReasonEncoding
	case errors.As(err, &invalid):
		return observability.ReasonValidation
	default:
		return observability.ReasonOther
	}
}
