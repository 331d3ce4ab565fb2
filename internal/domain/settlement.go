// Package domain defines the core entities of the settlement service.
// These types carry already-parsed installment and account data between
// the pure calculators/encoders and the transport layer.
package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ============================================================
// Banks
// ============================================================

// BankCode is the 3-digit FEBRABAN compensation code of a bank.
type BankCode string

const (
	BankItau  BankCode = "341"
	BankSafra BankCode = "422"
)

// CurrencyCode is the fixed currency digit for Real (BRL) in bank slips.
const CurrencyCode = "9"

// BankAccountRef identifies the beneficiary account a slip is issued against.
// Field widths are bank-specific and are validated by the bank strategy.
type BankAccountRef struct {
	Bank         BankCode `json:"bank"`
	Agency       string   `json:"agency"`
	AgencyDigit  string   `json:"agency_digit,omitempty"`
	Account      string   `json:"account"`
	AccountDigit string   `json:"account_digit,omitempty"`
	Wallet       string   `json:"wallet"` // carteira
}

// Key returns a stable identifier for the account, used for sequence
// allocation and memoisation.
func (a BankAccountRef) Key() string {
	return fmt.Sprintf("%s:%s%s:%s%s:%s", a.Bank, a.Agency, a.AgencyDigit, a.Account, a.AccountDigit, a.Wallet)
}

// ============================================================
// Installments & operations
// ============================================================

// Installment is one receivable installment of a factoring operation.
type Installment struct {
	Number         int             `json:"number"`
	DocumentNumber string          `json:"document_number"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	OperationDate  civil.Date      `json:"operation_date"`
	DueDate        civil.Date      `json:"due_date"`
}

// TermDays returns the number of calendar days between operation and due date.
func (i Installment) TermDays() int {
	return i.DueDate.DaysSince(i.OperationDate)
}

// NetAmount is the amount advanced to the seller for this installment.
func (i Installment) NetAmount() decimal.Decimal {
	return i.GrossAmount.Sub(i.InterestAmount)
}

// Validate checks the installment's own invariants.
func (i Installment) Validate() error {
	if !i.OperationDate.IsValid() || !i.DueDate.IsValid() {
		return &ErrInvalidDateRange{From: i.OperationDate, To: i.DueDate, Reason: "invalid calendar date"}
	}
	if i.DueDate.Before(i.OperationDate) {
		return &ErrInvalidDateRange{From: i.OperationDate, To: i.DueDate, Reason: "due date before operation date"}
	}
	if !i.GrossAmount.IsPositive() {
		return &ErrInvalidAmount{Field: "gross_amount", Value: i.GrossAmount.String(), Reason: "must be positive"}
	}
	if i.InterestAmount.IsNegative() {
		return &ErrInvalidAmount{Field: "interest_amount", Value: i.InterestAmount.String(), Reason: "must not be negative"}
	}
	return nil
}

// OperationType carries the pricing parameters of an operation.
// A positive FixedFee takes precedence over MonthlyRate.
type OperationType struct {
	FixedFee      *decimal.Decimal `json:"fixed_fee,omitempty"`
	MonthlyRate   *decimal.Decimal `json:"monthly_rate,omitempty"` // percent per 30 days
	UseDebtorTerm bool             `json:"use_debtor_term"`
}

// HasFixedFee reports whether the fixed fee is the active pricing mode.
func (o OperationType) HasFixedFee() bool {
	return o.FixedFee != nil && o.FixedFee.IsPositive()
}

// DesagioQuote is the result of pricing a factoring operation.
type DesagioQuote struct {
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Installments  []Installment   `json:"installments"`
}

// ============================================================
// Buyback (recompra)
// ============================================================

// BuybackBatch is one buyback negotiation over previously factored installments.
type BuybackBatch struct {
	Installments       []Installment   `json:"installments"`
	NewOperationDate   civil.Date      `json:"new_operation_date"`
	AdditionalInterest decimal.Decimal `json:"additional_interest"`
	OtherDeductions    decimal.Decimal `json:"other_deductions"`
}

// BuybackResult is what the ledger workflow posts for a buyback.
// TotalDebit and NetCredit already include the pass-through adjustments.
type BuybackResult struct {
	PrincipalDebit        decimal.Decimal `json:"principal_debit"`
	InterestCredit        decimal.Decimal `json:"interest_credit"`
	TotalOriginalInterest decimal.Decimal `json:"total_original_interest"`
	ProratedInterest      decimal.Decimal `json:"prorated_interest"`
	TotalDebit            decimal.Decimal `json:"total_debit"`
	NetCredit             decimal.Decimal `json:"net_credit"`
}

// ============================================================
// Settlement instruments (boletos)
// ============================================================

// Bar is one element of an Interleaved 2-of-5 symbol. Width is in narrow units.
type Bar struct {
	IsBar bool `json:"is_bar"`
	Width int  `json:"width"`
}

// SettlementInstrument is the encoded bank slip for one installment.
// It is recomputed on demand and never mutated in place.
type SettlementInstrument struct {
	ID                string          `json:"id"`
	Bank              BankCode        `json:"bank"`
	DocumentNumber    string          `json:"document_number"`
	InstallmentNumber int             `json:"installment_number"`
	NossoNumero       string          `json:"nosso_numero"`
	Amount            decimal.Decimal `json:"amount"`
	DueDate           civil.Date      `json:"due_date"`
	DueFactor         string          `json:"due_factor"`
	AmountField       string          `json:"amount_field"`
	FreeField         string          `json:"free_field"`
	GeneralCheckDigit int             `json:"general_check_digit"`
	Barcode           string          `json:"barcode"`
	DigitableLine     string          `json:"digitable_line"`
	Bars              []Bar           `json:"bars"`
}
