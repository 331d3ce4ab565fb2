package pricing_test

import (
	"testing"
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"
	"github.com/boddenberg/factoring-settlement-go/internal/pricing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(y int, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// =============================================================================
// DESÁGIO
// =============================================================================

func TestQuoteDesagio_MonthlyRateSingleInstallment(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		DocumentNumber:   "NF-1001",
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 1,
		TermDays:         []int{30},
		Type:             domain.OperationType{MonthlyRate: decPtr("3"), UseDebtorTerm: true},
	})
	require.NoError(t, err)
	require.Len(t, quote.Installments, 1)

	assertMoney(t, "30.00", quote.Installments[0].InterestAmount)
	assertMoney(t, "30.00", quote.TotalInterest)
	assertMoney(t, "970.00", quote.NetAmount)
	assert.Equal(t, date(2025, 3, 31), quote.Installments[0].DueDate)
	assert.Equal(t, 1, quote.Installments[0].Number)
	assert.Equal(t, "NF-1001", quote.Installments[0].DocumentNumber)
}

func TestQuoteDesagio_DueDatesUseCalendarDays(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("900.00"),
		OperationDate:    date(2024, 2, 14),
		InstallmentCount: 3,
		TermDays:         []int{15, 30, 45},
		Type:             domain.OperationType{MonthlyRate: decPtr("2"), UseDebtorTerm: true},
	})
	require.NoError(t, err)

	assert.Equal(t, date(2024, 2, 29), quote.Installments[0].DueDate) // leap day
	assert.Equal(t, date(2024, 3, 15), quote.Installments[1].DueDate)
	assert.Equal(t, date(2024, 3, 30), quote.Installments[2].DueDate)

	// 300 * 2% / 30 * {15,30,45}
	assertMoney(t, "3.00", quote.Installments[0].InterestAmount)
	assertMoney(t, "6.00", quote.Installments[1].InterestAmount)
	assertMoney(t, "9.00", quote.Installments[2].InterestAmount)
	assertMoney(t, "882.00", quote.NetAmount)
}

func TestQuoteDesagio_TodayBasedDayCount(t *testing.T) {
	// Operation registered on the 1st, priced on the 11th: 20 days left.
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 3, 1),
		Today:            date(2025, 3, 11),
		InstallmentCount: 1,
		TermDays:         []int{30},
		Type:             domain.OperationType{MonthlyRate: decPtr("3")},
	})
	require.NoError(t, err)
	assertMoney(t, "20.00", quote.TotalInterest)
}

func TestQuoteDesagio_TodayAfterDueDateChargesNothing(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 1, 1),
		Today:            date(2025, 6, 1),
		InstallmentCount: 1,
		TermDays:         []int{30},
		Type:             domain.OperationType{MonthlyRate: decPtr("3")},
	})
	require.NoError(t, err)
	assert.True(t, quote.TotalInterest.IsZero())
}

func TestQuoteDesagio_FixedFeeSplitsExactly(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 3,
		TermDays:         []int{10, 40, 90},
		Type:             domain.OperationType{FixedFee: decPtr("100.00"), MonthlyRate: decPtr("5")},
	})
	require.NoError(t, err)

	assertMoney(t, "33.33", quote.Installments[0].InterestAmount)
	assertMoney(t, "33.33", quote.Installments[1].InterestAmount)
	assertMoney(t, "33.34", quote.Installments[2].InterestAmount)
	assertMoney(t, "100.00", quote.TotalInterest)
	assertMoney(t, "900.00", quote.NetAmount)
}

func TestQuoteDesagio_ZeroFixedFeeFallsBackToRate(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 1,
		TermDays:         []int{30},
		Type:             domain.OperationType{FixedFee: decPtr("0"), MonthlyRate: decPtr("3"), UseDebtorTerm: true},
	})
	require.NoError(t, err)
	assertMoney(t, "30.00", quote.TotalInterest)
}

func TestQuoteDesagio_GrossSharesSumToGross(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 3,
		TermDays:         []int{30, 60, 90},
		Type:             domain.OperationType{MonthlyRate: decPtr("1.5"), UseDebtorTerm: true},
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, inst := range quote.Installments {
		sum = sum.Add(inst.GrossAmount)
	}
	assertMoney(t, "1000.00", sum)
	assertMoney(t, "333.34", quote.Installments[2].GrossAmount)
}

func TestQuoteDesagio_RoundsHalfUpOnce(t *testing.T) {
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("0.45"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 1,
		TermDays:         []int{30},
		Type:             domain.OperationType{MonthlyRate: decPtr("10"), UseDebtorTerm: true},
	})
	require.NoError(t, err)
	// 0.45 * 10% = 0.045 -> 0.05
	assertMoney(t, "0.05", quote.TotalInterest)
}

func TestQuoteDesagio_RateUsesExactInstallmentBase(t *testing.T) {
	// base 100.01/2 = 50.005; 100% over 30 days -> 50.005 -> 50.01 each
	quote, err := pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("100.01"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 2,
		TermDays:         []int{30, 30},
		Type:             domain.OperationType{MonthlyRate: decPtr("100"), UseDebtorTerm: true},
	})
	var amt *domain.ErrInvalidAmount
	require.ErrorAs(t, err, &amt, "total interest 100.02 exceeds gross 100.01")
	assert.Nil(t, quote)

	quote, err = pricing.QuoteDesagio(pricing.DesagioRequest{
		GrossAmount:      dec("100.01"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 2,
		TermDays:         []int{15, 15},
		Type:             domain.OperationType{MonthlyRate: decPtr("10"), UseDebtorTerm: true},
	})
	require.NoError(t, err)
	// 50.005 * 10% / 30 * 15 = 2.50025 -> 2.50 on both, shares still 50.00 / 50.01
	assertMoney(t, "2.50", quote.Installments[0].InterestAmount)
	assertMoney(t, "2.50", quote.Installments[1].InterestAmount)
	assertMoney(t, "50.00", quote.Installments[0].GrossAmount)
	assertMoney(t, "50.01", quote.Installments[1].GrossAmount)
}

func TestQuoteDesagio_Errors(t *testing.T) {
	base := pricing.DesagioRequest{
		GrossAmount:      dec("1000.00"),
		OperationDate:    date(2025, 3, 1),
		InstallmentCount: 2,
		TermDays:         []int{30, 60},
		Type:             domain.OperationType{MonthlyRate: decPtr("3"), UseDebtorTerm: true},
	}

	t.Run("schedule length mismatch", func(t *testing.T) {
		req := base
		req.TermDays = []int{30}
		_, err := pricing.QuoteDesagio(req)
		var target *domain.ErrInvalidSchedule
		require.ErrorAs(t, err, &target)
		assert.Equal(t, 2, target.Expected)
		assert.Equal(t, 1, target.Got)
	})

	t.Run("negative term", func(t *testing.T) {
		req := base
		req.TermDays = []int{30, -1}
		_, err := pricing.QuoteDesagio(req)
		var target *domain.ErrInvalidSchedule
		assert.ErrorAs(t, err, &target)
	})

	t.Run("zero installments", func(t *testing.T) {
		req := base
		req.InstallmentCount = 0
		req.TermDays = nil
		_, err := pricing.QuoteDesagio(req)
		var target *domain.ErrInvalidSchedule
		assert.ErrorAs(t, err, &target)
	})

	for _, gross := range []string{"0", "-10.00"} {
		t.Run("non-positive gross "+gross, func(t *testing.T) {
			req := base
			req.GrossAmount = dec(gross)
			_, err := pricing.QuoteDesagio(req)
			var target *domain.ErrInvalidAmount
			assert.ErrorAs(t, err, &target)
		})
	}

	t.Run("negative rate", func(t *testing.T) {
		req := base
		req.Type = domain.OperationType{MonthlyRate: decPtr("-1"), UseDebtorTerm: true}
		_, err := pricing.QuoteDesagio(req)
		var target *domain.ErrInvalidAmount
		assert.ErrorAs(t, err, &target)
	})

	t.Run("interest above gross", func(t *testing.T) {
		req := base
		req.Type = domain.OperationType{FixedFee: decPtr("1500.00")}
		_, err := pricing.QuoteDesagio(req)
		var target *domain.ErrInvalidAmount
		assert.ErrorAs(t, err, &target)
	})

	t.Run("missing reference date", func(t *testing.T) {
		req := base
		req.Type = domain.OperationType{MonthlyRate: decPtr("3")}
		_, err := pricing.QuoteDesagio(req)
		var target *domain.ErrInvalidDateRange
		assert.ErrorAs(t, err, &target)
	})
}

func TestSplitEvenly(t *testing.T) {
	parts := pricing.SplitEvenly(dec("0.05"), 10)
	require.Len(t, parts, 10)
	sum := decimal.Zero
	for _, p := range parts {
		assert.False(t, p.IsNegative())
		sum = sum.Add(p)
	}
	assertMoney(t, "0.05", sum)
	assert.Nil(t, pricing.SplitEvenly(dec("1"), 0))
}

// =============================================================================
// BUYBACK
// =============================================================================

func factored(interest string, op, due civil.Date) domain.Installment {
	return domain.Installment{
		Number:         1,
		DocumentNumber: "DUP-77",
		GrossAmount:    dec("1000.00"),
		InterestAmount: dec(interest),
		OperationDate:  op,
		DueDate:        due,
	}
}

func TestQuoteBuyback_ProratesElapsedDays(t *testing.T) {
	res, err := pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{factored("60.00", date(2025, 4, 1), date(2025, 5, 1))},
		NewOperationDate: date(2025, 4, 11),
	})
	require.NoError(t, err)

	assertMoney(t, "40.00", res.InterestCredit)
	assertMoney(t, "20.00", res.ProratedInterest)
	assertMoney(t, "60.00", res.TotalOriginalInterest)
	assertMoney(t, "1000.00", res.PrincipalDebit)
}

func TestQuoteBuyback_SameDayRebatesEverything(t *testing.T) {
	res, err := pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{factored("60.00", date(2025, 4, 1), date(2025, 5, 1))},
		NewOperationDate: date(2025, 4, 1),
	})
	require.NoError(t, err)
	assertMoney(t, "60.00", res.InterestCredit)
}

func TestQuoteBuyback_BeforeIssuanceIsNotAnError(t *testing.T) {
	res, err := pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{factored("60.00", date(2025, 4, 1), date(2025, 5, 1))},
		NewOperationDate: date(2025, 3, 20),
	})
	require.NoError(t, err)
	assertMoney(t, "60.00", res.InterestCredit)
}

func TestQuoteBuyback_AtOrAfterMaturityRebatesNothing(t *testing.T) {
	for _, newDate := range []civil.Date{date(2025, 5, 1), date(2025, 7, 15)} {
		res, err := pricing.QuoteBuyback(domain.BuybackBatch{
			Installments:     []domain.Installment{factored("60.00", date(2025, 4, 1), date(2025, 5, 1))},
			NewOperationDate: newDate,
		})
		require.NoError(t, err)
		assert.True(t, res.InterestCredit.IsZero(), "buyback on %s", newDate)
	}
}

func TestQuoteBuyback_OverdueAccrualOffsetsOtherRebates(t *testing.T) {
	// a: 60 over 30 days, 60 days elapsed -> 120 accrued
	// b: 60 over 90 days, 60 days elapsed -> 40 accrued
	a := factored("60.00", date(2025, 4, 1), date(2025, 5, 1))
	b := factored("60.00", date(2025, 4, 1), date(2025, 6, 30))
	b.Number = 2

	res, err := pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{a, b},
		NewOperationDate: date(2025, 5, 31),
	})
	require.NoError(t, err)

	assertMoney(t, "160.00", res.ProratedInterest)
	assertMoney(t, "120.00", res.TotalOriginalInterest)
	assert.True(t, res.InterestCredit.IsZero(), "credit %s", res.InterestCredit)
}

func TestQuoteBuyback_ZeroTermContributesNoProration(t *testing.T) {
	res, err := pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{factored("5.00", date(2025, 4, 1), date(2025, 4, 1))},
		NewOperationDate: date(2025, 4, 10),
	})
	require.NoError(t, err)
	assertMoney(t, "5.00", res.InterestCredit)
}

func TestQuoteBuyback_MultipleInstallmentsAndAdjustments(t *testing.T) {
	a := factored("60.00", date(2025, 4, 1), date(2025, 5, 1))
	b := factored("90.00", date(2025, 4, 1), date(2025, 5, 31))
	b.Number = 2

	res, err := pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:       []domain.Installment{a, b},
		NewOperationDate:   date(2025, 4, 16),
		AdditionalInterest: dec("12.50"),
		OtherDeductions:    dec("7.00"),
	})
	require.NoError(t, err)

	// a: 60/30*15 = 30 earned; b: 90/60*15 = 22.5 earned
	assertMoney(t, "97.50", res.InterestCredit)
	assertMoney(t, "2000.00", res.PrincipalDebit)
	assertMoney(t, "2012.50", res.TotalDebit)
	assertMoney(t, "90.50", res.NetCredit)
}

func TestQuoteBuyback_CreditNeverNegative(t *testing.T) {
	insts := []domain.Installment{
		factored("10.00", date(2025, 1, 1), date(2025, 1, 8)),
		factored("33.33", date(2025, 1, 1), date(2025, 1, 4)),
	}
	for day := 1; day <= 31; day++ {
		res, err := pricing.QuoteBuyback(domain.BuybackBatch{Installments: insts, NewOperationDate: date(2025, 1, day)})
		require.NoError(t, err)
		assert.False(t, res.InterestCredit.IsNegative(), "day %d", day)
	}
}

func TestQuoteBuyback_Errors(t *testing.T) {
	_, err := pricing.QuoteBuyback(domain.BuybackBatch{NewOperationDate: date(2025, 1, 1)})
	var sched *domain.ErrInvalidSchedule
	assert.ErrorAs(t, err, &sched)

	inverted := factored("10.00", date(2025, 2, 1), date(2025, 1, 1))
	_, err = pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{inverted},
		NewOperationDate: date(2025, 2, 10),
	})
	var dateErr *domain.ErrInvalidDateRange
	assert.ErrorAs(t, err, &dateErr)
	var instErr *domain.ErrInstallment
	require.ErrorAs(t, err, &instErr)
	assert.Equal(t, "DUP-77", instErr.DocumentNumber)

	_, err = pricing.QuoteBuyback(domain.BuybackBatch{
		Installments:     []domain.Installment{factored("10.00", date(2025, 1, 1), date(2025, 2, 1))},
		NewOperationDate: date(2025, 1, 10),
		OtherDeductions:  dec("-1"),
	})
	var amt *domain.ErrInvalidAmount
	assert.ErrorAs(t, err, &amt)
}
