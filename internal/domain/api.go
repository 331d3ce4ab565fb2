package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ============================================================
// Deságio quotes: POST /v1/desagio/quote
// ============================================================

// DesagioQuoteRequest prices a document split into installments.
// Today is only consulted when the operation type does not use the
// debtor term; it defaults to the server's current date.
type DesagioQuoteRequest struct {
	DocumentNumber   string          `json:"document_number"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	OperationDate    civil.Date      `json:"operation_date"`
	Today            *civil.Date     `json:"today,omitempty"`
	InstallmentCount int             `json:"installment_count"`
	TermDays         []int           `json:"term_days"`
	OperationType    OperationType   `json:"operation_type"`
}

// ============================================================
// Instrument issuance: POST /v1/boletos, /v1/boletos/batch
// ============================================================

// IssueRequest asks for the slip of one installment. A zero NossoNumero
// is allocated from the configured sequence.
type IssueRequest struct {
	Account     BankAccountRef `json:"account"`
	Installment Installment    `json:"installment"`
	NossoNumero int64          `json:"nosso_numero,omitempty"`
}

// IssueBatchRequest asks for one slip per installment against one account.
type IssueBatchRequest struct {
	Account      BankAccountRef `json:"account"`
	Installments []Installment  `json:"installments"`
}

// IssueBatchResult lists the issued instruments in installment order.
type IssueBatchResult struct {
	BatchID     string                 `json:"batch_id"`
	Instruments []SettlementInstrument `json:"instruments"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
}

// ============================================================
// Line validation: POST /v1/boletos/validate
// ============================================================

// LineValidationRequest carries a 44-digit barcode or a 47-digit
// linha digitável, with or without punctuation.
type LineValidationRequest struct {
	Barcode       string `json:"barcode,omitempty"`
	DigitableLine string `json:"digitable_line,omitempty"`
}

// LineValidationResponse contains the decoded slip fields.
type LineValidationResponse struct {
	IsValid          bool            `json:"is_valid"`
	Barcode          string          `json:"barcode,omitempty"`
	DigitableLine    string          `json:"digitable_line,omitempty"`
	BankCode         string          `json:"bank_code,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          *civil.Date     `json:"due_date,omitempty"`
	FreeField        string          `json:"free_field,omitempty"`
	ValidationErrors []string        `json:"validation_errors,omitempty"`
}

// BankInfo describes a registered slip strategy.
type BankInfo struct {
	Code BankCode `json:"code"`
	Name string   `json:"name"`
}
