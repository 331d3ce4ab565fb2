package pricing

import (
	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"github.com/shopspring/decimal"
)

// QuoteBuyback computes the principal debited and the unearned interest
// credited when factored installments are repurchased on NewOperationDate.
//
// Interest accrues linearly at each installment's original daily rate for
// every day elapsed since its operation date, past maturity included, so an
// overdue installment's accrual offsets the rebate of the others in the
// batch. An installment bought back on or before its operation date has
// earned nothing. Only the batch credit is clamped at zero, and it is
// rounded to cents once, at the end.
// AdditionalInterest and OtherDeductions pass through unchanged into
// TotalDebit and NetCredit.
func QuoteBuyback(batch domain.BuybackBatch) (*domain.BuybackResult, error) {
	if len(batch.Installments) == 0 {
		return nil, &domain.ErrInvalidSchedule{Reason: "buyback batch has no installments"}
	}
	if !batch.NewOperationDate.IsValid() {
		return nil, &domain.ErrInvalidDateRange{From: batch.NewOperationDate, To: batch.NewOperationDate, Reason: "invalid buyback date"}
	}
	if batch.AdditionalInterest.IsNegative() {
		return nil, &domain.ErrInvalidAmount{Field: "additional_interest", Value: batch.AdditionalInterest.String(), Reason: "must not be negative"}
	}
	if batch.OtherDeductions.IsNegative() {
		return nil, &domain.ErrInvalidAmount{Field: "other_deductions", Value: batch.OtherDeductions.String(), Reason: "must not be negative"}
	}

	var (
		principal = decimal.Zero
		original  = decimal.Zero
		prorated  = decimal.Zero
	)

	for _, inst := range batch.Installments {
		if err := inst.Validate(); err != nil {
			return nil, &domain.ErrInstallment{Number: inst.Number, DocumentNumber: inst.DocumentNumber, Err: err}
		}

		elapsed := batch.NewOperationDate.DaysSince(inst.OperationDate)
		term := inst.TermDays()
		if term > 0 && elapsed > 0 {
			daily := inst.InterestAmount.Div(decimal.NewFromInt(int64(term)))
			prorated = prorated.Add(daily.Mul(decimal.NewFromInt(int64(elapsed))))
		}

		original = original.Add(inst.InterestAmount)
		principal = principal.Add(inst.GrossAmount)
	}

	credit := decimal.Max(decimal.Zero, original.Sub(prorated)).Round(2)

	return &domain.BuybackResult{
		PrincipalDebit:        principal,
		InterestCredit:        credit,
		TotalOriginalInterest: original,
		ProratedInterest:      prorated.Round(2),
		TotalDebit:            principal.Add(batch.AdditionalInterest),
		NetCredit:             credit.Sub(batch.OtherDeductions),
	}, nil
}
