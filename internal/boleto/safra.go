package boleto

import (
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

const (
	safraSystem     = "7" // Safra collection system identifier
	safraRegistered = "2" // registered collection (cobrança registrada)
)

// Safra is the Banco Safra (422) layout:
//
//	7 agency(4)+digit(1) account(8)+digit(1) nossoNumero(9) 2
//
// The wallet does not appear in the barcode.
type Safra struct{}

// Code returns the Safra compensation code, 422.
func (Safra) Code() domain.BankCode { return domain.BankSafra }

// Name returns the bank's display name.
func (Safra) Name() string { return "Banco Safra" }

// FreeField builds the campo livre. Agency and account check digits are
// required and copied as given.
func (s Safra) FreeField(acc domain.BankAccountRef, nossoNumero int64) (string, error) {
	if err := s.validate(acc); err != nil {
		return "", err
	}
	nn, err := padSequence(nossoNumero, 9)
	if err != nil {
		return "", err
	}
	return safraSystem + acc.Agency + acc.AgencyDigit + acc.Account + acc.AccountDigit + nn + safraRegistered, nil
}

// NossoNumero returns the 9-digit printed nosso número.
func (s Safra) NossoNumero(acc domain.BankAccountRef, nossoNumero int64) (string, error) {
	if err := s.validate(acc); err != nil {
		return "", err
	}
	return padSequence(nossoNumero, 9)
}

func (Safra) validate(acc domain.BankAccountRef) error {
	if err := fixedDigits("agency", acc.Agency, 4); err != nil {
		return err
	}
	if err := fixedDigits("agency_digit", acc.AgencyDigit, 1); err != nil {
		return err
	}
	if err := fixedDigits("account", acc.Account, 8); err != nil {
		return err
	}
	return fixedDigits("account_digit", acc.AccountDigit, 1)
}
