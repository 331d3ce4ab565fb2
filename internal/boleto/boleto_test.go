package boleto_test

import (
	"testing"
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/boleto"
	"github.com/boddenberg/factoring-settlement-go/internal/checksum"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FIXTURES
// =============================================================================

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func itauAccount() domain.BankAccountRef {
	return domain.BankAccountRef{Bank: domain.BankItau, Agency: "0057", Account: "12345", AccountDigit: "7", Wallet: "109"}
}

func safraAccount() domain.BankAccountRef {
	return domain.BankAccountRef{Bank: domain.BankSafra, Agency: "0400", AgencyDigit: "1", Account: "00123456", AccountDigit: "7", Wallet: "01"}
}

func builder() *boleto.Builder {
	return boleto.NewBuilder(boleto.DefaultRegistry())
}

// =============================================================================
// DUE FACTOR & AMOUNT
// =============================================================================

func TestDueFactor(t *testing.T) {
	cases := []struct {
		due  civil.Date
		want string
	}{
		{day(2000, time.July, 3), "1000"},
		{day(2025, time.February, 21), "9999"},
		{day(2025, time.February, 22), "1000"}, // factor reset
		{day(2025, time.May, 10), "1077"},
		{day(1997, time.October, 8), "0001"},
	}
	for _, c := range cases {
		got, err := boleto.DueFactor(c.due)
		require.NoError(t, err, c.due.String())
		assert.Equal(t, c.want, got, c.due.String())
	}
}

func TestDueFactor_OutOfRange(t *testing.T) {
	_, err := boleto.DueFactor(day(1997, time.October, 7))
	var dateErr *domain.ErrInvalidDateRange
	assert.ErrorAs(t, err, &dateErr)

	_, err = boleto.DueFactor(day(2060, time.January, 1))
	var encErr *domain.ErrEncodingInvariant
	assert.ErrorAs(t, err, &encErr)
}

func TestDueDateFromFactor_PicksClosestCycle(t *testing.T) {
	due, ok := boleto.DueDateFromFactor(1000, day(2025, time.March, 1))
	require.True(t, ok)
	assert.Equal(t, day(2025, time.February, 22), due)

	due, ok = boleto.DueDateFromFactor(1000, day(2001, time.January, 1))
	require.True(t, ok)
	assert.Equal(t, day(2000, time.July, 3), due)

	_, ok = boleto.DueDateFromFactor(0, day(2025, time.March, 1))
	assert.False(t, ok)
}

func TestAmountField(t *testing.T) {
	got, err := boleto.AmountField(decimal.RequireFromString("1234.56"))
	require.NoError(t, err)
	assert.Equal(t, "0000123456", got)

	got, err = boleto.AmountField(decimal.RequireFromString("1000"))
	require.NoError(t, err)
	assert.Equal(t, "0000100000", got)

	back, err := boleto.AmountFromField("0000123456")
	require.NoError(t, err)
	assert.True(t, back.Equal(decimal.RequireFromString("1234.56")))
}

func TestAmountField_Rejects(t *testing.T) {
	var amtErr *domain.ErrInvalidAmount
	_, err := boleto.AmountField(decimal.Zero)
	assert.ErrorAs(t, err, &amtErr)

	_, err = boleto.AmountField(decimal.RequireFromString("10.005"))
	assert.ErrorAs(t, err, &amtErr)

	var encErr *domain.ErrEncodingInvariant
	_, err = boleto.AmountField(decimal.RequireFromString("100000000.00"))
	assert.ErrorAs(t, err, &encErr)
}

// =============================================================================
// ITAÚ
// =============================================================================

func TestItau_NossoNumeroDACMatchesManualExample(t *testing.T) {
	// Agency 0057, account 12345, wallet 110, nosso número 12345678 -> DAC 8.
	acc := itauAccount()
	acc.Wallet = "110"
	nn, err := boleto.Itau{}.NossoNumero(acc, 12345678)
	require.NoError(t, err)
	assert.Equal(t, "110/12345678-8", nn)
}

func TestItau_FreeField(t *testing.T) {
	free, err := boleto.Itau{}.FreeField(itauAccount(), 12345)
	require.NoError(t, err)
	assert.Equal(t, "1090001234530057123457000", free)
	assert.Len(t, free, boleto.FreeFieldLength)
}

func TestItau_ShortDACWallet(t *testing.T) {
	acc := itauAccount()
	acc.Wallet = "126"
	free, err := boleto.Itau{}.FreeField(acc, 12345)
	require.NoError(t, err)
	assert.Equal(t, "1260001234580057123457000", free)
}

func TestItau_RejectsWrongWidthsAndDigits(t *testing.T) {
	var encErr *domain.ErrEncodingInvariant

	acc := itauAccount()
	acc.Agency = "57"
	_, err := boleto.Itau{}.FreeField(acc, 1)
	assert.ErrorAs(t, err, &encErr)

	acc = itauAccount()
	acc.Account = "123456"
	_, err = boleto.Itau{}.FreeField(acc, 1)
	assert.ErrorAs(t, err, &encErr)

	acc = itauAccount()
	acc.AccountDigit = "3"
	_, err = boleto.Itau{}.FreeField(acc, 1)
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "account_digit", encErr.Field)

	_, err = boleto.Itau{}.FreeField(itauAccount(), 123456789)
	assert.ErrorAs(t, err, &encErr)

	_, err = boleto.Itau{}.FreeField(itauAccount(), 0)
	assert.ErrorAs(t, err, &encErr)
}

func TestBuild_Itau(t *testing.T) {
	bc, err := builder().Build(boleto.BuildRequest{
		Account:     itauAccount(),
		NossoNumero: 12345,
		Amount:      decimal.RequireFromString("1234.56"),
		DueDate:     day(2025, time.May, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, "34195107700001234561090001234530057123457000", bc.Payload)
	assert.Equal(t, 5, bc.GeneralCheckDigit)
	assert.Equal(t, "1077", bc.DueFactor)
	assert.Equal(t, "0000123456", bc.AmountField)
	assert.Equal(t, "109/00012345-3", bc.NossoNumero)
	assert.Equal(t, domain.BankItau, bc.Bank)
}

// =============================================================================
// SAFRA
// =============================================================================

func TestSafra_FreeField(t *testing.T) {
	free, err := boleto.Safra{}.FreeField(safraAccount(), 12345)
	require.NoError(t, err)
	assert.Equal(t, "7040010012345670000123452", free)
	assert.Len(t, free, boleto.FreeFieldLength)
}

func TestSafra_RequiresCheckDigits(t *testing.T) {
	acc := safraAccount()
	acc.AgencyDigit = ""
	_, err := boleto.Safra{}.FreeField(acc, 1)
	var encErr *domain.ErrEncodingInvariant
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "agency_digit", encErr.Field)

	acc = safraAccount()
	acc.Account = "123456"
	_, err = boleto.Safra{}.FreeField(acc, 1)
	assert.ErrorAs(t, err, &encErr)

	_, err = boleto.Safra{}.FreeField(safraAccount(), 1234567890)
	assert.ErrorAs(t, err, &encErr)
}

func TestBuild_SafraAfterFactorReset(t *testing.T) {
	bc, err := builder().Build(boleto.BuildRequest{
		Account:     safraAccount(),
		NossoNumero: 12345,
		Amount:      decimal.RequireFromString("1000.00"),
		DueDate:     day(2025, time.February, 22),
	})
	require.NoError(t, err)

	assert.Equal(t, "42294100000001000007040010012345670000123452", bc.Payload)
	assert.Equal(t, "000012345", bc.NossoNumero)
}

// =============================================================================
// SHARED
// =============================================================================

func TestBuild_PayloadCheckDigitRoundTrip(t *testing.T) {
	b := builder()
	for n := int64(1); n <= 300; n += 7 {
		for _, acc := range []domain.BankAccountRef{itauAccount(), safraAccount()} {
			bc, err := b.Build(boleto.BuildRequest{
				Account:     acc,
				NossoNumero: n,
				Amount:      decimal.New(n*1337, -2),
				DueDate:     day(2025, time.January, 1).AddDays(int(n)),
			})
			require.NoError(t, err)
			require.Len(t, bc.Payload, boleto.PayloadLength)

			dv, err := checksum.Modulo11(bc.Payload[:4] + bc.Payload[5:])
			require.NoError(t, err)
			assert.Equal(t, int(bc.Payload[4]-'0'), dv)

			decoded, err := boleto.Decode(bc.Payload)
			require.NoError(t, err)
			assert.Equal(t, bc.FreeField, decoded.FreeField)
			assert.Equal(t, bc.DueFactor, decoded.DueFactor)
		}
	}
}

func TestBuild_UnsupportedBank(t *testing.T) {
	acc := itauAccount()
	acc.Bank = "001"
	_, err := builder().Build(boleto.BuildRequest{
		Account:     acc,
		NossoNumero: 1,
		Amount:      decimal.NewFromInt(10),
		DueDate:     day(2025, time.May, 10),
	})
	var target *domain.ErrUnsupportedBank
	require.ErrorAs(t, err, &target)
	assert.Equal(t, domain.BankCode("001"), target.Bank)
}

func TestDecode_RejectsTamperedPayload(t *testing.T) {
	_, err := boleto.Decode("34196107700001234561090001234530057123457000")
	var encErr *domain.ErrEncodingInvariant
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "general_check_digit", encErr.Field)

	_, err = boleto.Decode("3419")
	assert.ErrorAs(t, err, &encErr)
}

func TestRegistry_Banks(t *testing.T) {
	banks := boleto.DefaultRegistry().Banks()
	require.Len(t, banks, 2)
	assert.Equal(t, domain.BankItau, banks[0].Code)
	assert.Equal(t, domain.BankSafra, banks[1].Code)
}
