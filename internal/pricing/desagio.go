// Package pricing computes the deságio (discount interest) charged when
// receivables are factored and the rebate owed when they are bought back.
// All functions are pure: no I/O, no clock reads, no shared state.
package pricing

import (
	"fmt"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DaysPerMonth is the flat commercial month behind the daily rate.
const DaysPerMonth = 30

// rate is a percentage, so the daily divisor is 100 * 30.
var ratePerMonth = decimal.NewFromInt(100 * DaysPerMonth)

// DesagioRequest describes a document to be split and priced.
type DesagioRequest struct {
	DocumentNumber   string
	GrossAmount      decimal.Decimal
	OperationDate    civil.Date
	Today            civil.Date // day-count base when the debtor term is not used
	InstallmentCount int
	TermDays         []int
	Type             domain.OperationType
}

// QuoteDesagio splits the gross amount into installments and computes the
// interest of each one.
//
// With a fixed fee the fee is split evenly regardless of term. Otherwise
// interest = gross/count * rate/100 / 30 * days, where days is the nominal term
// when the operation uses the debtor term, or the days left from Today
// until the due date when it does not. Each interest is rounded half-up
// to cents once; residual cents of every even split go to the last
// installment so the parts always add up to the whole.
func QuoteDesagio(req DesagioRequest) (*domain.DesagioQuote, error) {
	if err := validateDesagio(req); err != nil {
		return nil, err
	}

	n := req.InstallmentCount
	shares := SplitEvenly(req.GrossAmount, n)
	// Rate interest is priced on the exact share; only the result is rounded.
	base := req.GrossAmount.Div(decimal.NewFromInt(int64(n)))

	var fees []decimal.Decimal
	if req.Type.HasFixedFee() {
		fees = SplitEvenly(*req.Type.FixedFee, n)
	}

	rate := decimal.Zero
	if req.Type.MonthlyRate != nil {
		rate = *req.Type.MonthlyRate
	}

	installments := make([]domain.Installment, n)
	total := decimal.Zero
	for i := 0; i < n; i++ {
		due := req.OperationDate.AddDays(req.TermDays[i])

		var interest decimal.Decimal
		if fees != nil {
			interest = fees[i]
		} else {
			days := req.TermDays[i]
			if !req.Type.UseDebtorTerm {
				days = due.DaysSince(req.Today)
				if days < 0 {
					days = 0
				}
			}
			interest = base.Mul(rate).Mul(decimal.NewFromInt(int64(days))).Div(ratePerMonth).Round(2)
		}

		installments[i] = domain.Installment{
			Number:         i + 1,
			DocumentNumber: req.DocumentNumber,
			GrossAmount:    shares[i],
			InterestAmount: interest,
			OperationDate:  req.OperationDate,
			DueDate:        due,
		}
		total = total.Add(interest)
	}

	net := req.GrossAmount.Sub(total)
	if net.IsNegative() {
		return nil, &domain.ErrInvalidAmount{
			Field:  "total_interest",
			Value:  total.StringFixed(2),
			Reason: fmt.Sprintf("exceeds gross amount %s", req.GrossAmount.StringFixed(2)),
		}
	}

	return &domain.DesagioQuote{
		GrossAmount:   req.GrossAmount,
		TotalInterest: total,
		NetAmount:     net,
		Installments:  installments,
	}, nil
}

// SplitEvenly divides total into n parts truncated to cents; the last part
// absorbs the residual so the parts sum to total exactly.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	parts := make([]decimal.Decimal, n)
	share := total.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = share
		allocated = allocated.Add(share)
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}

func validateDesagio(req DesagioRequest) error {
	if req.InstallmentCount <= 0 {
		return &domain.ErrInvalidSchedule{Expected: req.InstallmentCount, Got: len(req.TermDays), Reason: "installment count must be positive"}
	}
	if len(req.TermDays) != req.InstallmentCount {
		return &domain.ErrInvalidSchedule{Expected: req.InstallmentCount, Got: len(req.TermDays)}
	}
	for i, d := range req.TermDays {
		if d < 0 {
			return &domain.ErrInvalidSchedule{
				Expected: req.InstallmentCount,
				Got:      len(req.TermDays),
				Reason:   fmt.Sprintf("term %d is negative (%d days)", i+1, d),
			}
		}
	}
	if !req.GrossAmount.IsPositive() {
		return &domain.ErrInvalidAmount{Field: "gross_amount", Value: req.GrossAmount.String(), Reason: "must be positive"}
	}
	if !IsCents(req.GrossAmount) {
		return &domain.ErrInvalidAmount{Field: "gross_amount", Value: req.GrossAmount.String(), Reason: "sub-cent precision"}
	}
	if f := req.Type.FixedFee; f != nil {
		if f.IsNegative() {
			return &domain.ErrInvalidAmount{Field: "fixed_fee", Value: f.String(), Reason: "must not be negative"}
		}
		if !IsCents(*f) {
			return &domain.ErrInvalidAmount{Field: "fixed_fee", Value: f.String(), Reason: "sub-cent precision"}
		}
	}
	if r := req.Type.MonthlyRate; r != nil && r.IsNegative() {
		return &domain.ErrInvalidAmount{Field: "monthly_rate", Value: r.String(), Reason: "must not be negative"}
	}
	if !req.OperationDate.IsValid() {
		return &domain.ErrInvalidDateRange{From: req.OperationDate, To: req.OperationDate, Reason: "invalid operation date"}
	}
	if !req.Type.UseDebtorTerm && !req.Type.HasFixedFee() && !req.Today.IsValid() {
		return &domain.ErrInvalidDateRange{From: req.Today, To: req.OperationDate, Reason: "reference date required when the debtor term is not used"}
	}
	return nil
}

// IsCents reports whether d has no precision below one cent.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
