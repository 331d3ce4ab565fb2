package boleto

import (
	"fmt"
	"strconv"

	"github.com/boddenberg/factoring-settlement-go/internal/checksum"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

// itauShortDACWallets compute the nosso número DAC over wallet and
// nosso número only, without agency and account.
var itauShortDACWallets = map[string]bool{
	"126": true,
	"131": true,
	"146": true,
	"150": true,
	"168": true,
}

// Itau is the Banco Itaú (341) layout:
//
//	wallet(3) nossoNumero(8) DAC(1) agency(4) account(5) DAC(agency+account)(1) 000
type Itau struct{}

// Code returns the Itaú compensation code, 341.
func (Itau) Code() domain.BankCode { return domain.BankItau }

// Name returns the bank's display name.
func (Itau) Name() string { return "Itaú Unibanco" }

// FreeField builds the campo livre. The account check digit, when given,
// must match modulo 10 of agency and account.
func (i Itau) FreeField(acc domain.BankAccountRef, nossoNumero int64) (string, error) {
	nn, dac, err := i.nossoNumero(acc, nossoNumero)
	if err != nil {
		return "", err
	}
	accDAC, err := i.accountDAC(acc)
	if err != nil {
		return "", err
	}
	return acc.Wallet + nn + strconv.Itoa(dac) + acc.Agency + acc.Account + strconv.Itoa(accDAC) + "000", nil
}

// NossoNumero returns the printed form "wallet/nossoNumero-DAC".
func (i Itau) NossoNumero(acc domain.BankAccountRef, nossoNumero int64) (string, error) {
	nn, dac, err := i.nossoNumero(acc, nossoNumero)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s-%d", acc.Wallet, nn, dac), nil
}

func (Itau) validate(acc domain.BankAccountRef) error {
	if err := fixedDigits("wallet", acc.Wallet, 3); err != nil {
		return err
	}
	if err := fixedDigits("agency", acc.Agency, 4); err != nil {
		return err
	}
	return fixedDigits("account", acc.Account, 5)
}

func (i Itau) nossoNumero(acc domain.BankAccountRef, n int64) (string, int, error) {
	if err := i.validate(acc); err != nil {
		return "", 0, err
	}
	nn, err := padSequence(n, 8)
	if err != nil {
		return "", 0, err
	}
	base := acc.Agency + acc.Account + acc.Wallet + nn
	if itauShortDACWallets[acc.Wallet] {
		base = acc.Wallet + nn
	}
	dac, err := checksum.Modulo10(base)
	if err != nil {
		return "", 0, err
	}
	return nn, dac, nil
}

// accountDAC is the account check digit; a digit supplied by the caller
// must agree with it.
func (Itau) accountDAC(acc domain.BankAccountRef) (int, error) {
	dac, err := checksum.Modulo10(acc.Agency + acc.Account)
	if err != nil {
		return 0, err
	}
	if acc.AccountDigit != "" && acc.AccountDigit != strconv.Itoa(dac) {
		return 0, &domain.ErrEncodingInvariant{
			Field:    "account_digit",
			Value:    acc.AccountDigit,
			Expected: strconv.Itoa(dac),
		}
	}
	return dac, nil
}
