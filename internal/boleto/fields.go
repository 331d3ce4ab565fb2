package boleto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/checksum"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// FactorEpoch is day zero of the due-date factor.
var FactorEpoch = civil.Date{Year: 1997, Month: time.October, Day: 7}

const (
	// factorReset is subtracted once the day count leaves four digits
	// (2025-02-22 restarts at factor 1000).
	factorReset = 9000
	maxFactor   = 9999
	maxCents    = 9_999_999_999
)

// DueFactor returns the 4-digit "fator de vencimento" of due.
func DueFactor(due civil.Date) (string, error) {
	if !due.IsValid() {
		return "", &domain.ErrInvalidDateRange{From: FactorEpoch, To: due, Reason: "invalid due date"}
	}
	days := due.DaysSince(FactorEpoch)
	if days <= 0 {
		return "", &domain.ErrInvalidDateRange{From: FactorEpoch, To: due, Reason: "due date on or before the factor epoch"}
	}
	if days > maxFactor {
		days -= factorReset
	}
	if days > maxFactor {
		return "", &domain.ErrEncodingInvariant{Field: "due_factor", Value: strconv.Itoa(days), Expected: "at most 4 digits"}
	}
	return fmt.Sprintf("%04d", days), nil
}

// DueDateFromFactor resolves a factor back to a calendar date. A factor
// maps to two dates 9000 days apart; the one closest to ref wins.
// Factor zero means the slip carries no due date and ok is false.
func DueDateFromFactor(factor int, ref civil.Date) (due civil.Date, ok bool) {
	if factor <= 0 || factor > maxFactor {
		return civil.Date{}, false
	}
	first := FactorEpoch.AddDays(factor)
	if factor < 1000 {
		return first, true
	}
	second := first.AddDays(factorReset)
	if abs(ref.DaysSince(second)) < abs(ref.DaysSince(first)) {
		return second, true
	}
	return first, true
}

// AmountField returns amount in integer cents, zero-padded to 10 digits.
func AmountField(amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", &domain.ErrInvalidAmount{Field: "amount", Value: amount.String(), Reason: "must be positive"}
	}
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return "", &domain.ErrInvalidAmount{Field: "amount", Value: amount.String(), Reason: "sub-cent precision"}
	}
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return "", &domain.ErrEncodingInvariant{Field: "amount", Value: amount.String(), Expected: "at most 10 digits of cents"}
	}
	return fmt.Sprintf("%010d", cents.IntPart()), nil
}

// AmountFromField converts a 10-digit cents field back into reais.
func AmountFromField(field string) (decimal.Decimal, error) {
	if err := fixedDigits("amount", field, 10); err != nil {
		return decimal.Zero, err
	}
	cents, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return decimal.Zero, &domain.ErrEncodingInvariant{Field: "amount", Value: field, Expected: "10 digits"}
	}
	return decimal.New(cents, -2), nil
}

// fixedDigits checks that value is exactly width digits.
func fixedDigits(field, value string, width int) error {
	if len(value) != width || !checksum.IsDigits(value) {
		return &domain.ErrEncodingInvariant{Field: field, Value: value, Expected: fmt.Sprintf("%d digits", width)}
	}
	return nil
}

// padSequence zero-pads a nosso número sequence to width digits.
func padSequence(n int64, width int) (string, error) {
	s := strconv.FormatInt(n, 10)
	if n <= 0 || len(s) > width {
		return "", &domain.ErrEncodingInvariant{Field: "nosso_numero", Value: s, Expected: fmt.Sprintf("1 to %d digits", width)}
	}
	return fmt.Sprintf("%0*d", width, n), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
