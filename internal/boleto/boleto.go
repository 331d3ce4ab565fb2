// Package boleto assembles the 44-digit barcode payload of a Brazilian bank
// slip. The free field (campo livre) differs per bank and is produced by a
// Bank strategy; everything else is shared FEBRABAN layout:
//
//	bank(3) currency(1) DV(1) due factor(4) amount(10) free field(25)
//
// where DV is the modulo 11 check digit of the other 43 digits.
package boleto

import (
	"sort"

	"github.com/boddenberg/factoring-settlement-go/internal/checksum"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	// PayloadLength is the number of digits in a barcode payload.
	PayloadLength = 44
	// FreeFieldLength is the width of every bank's campo livre.
	FreeFieldLength = 25
)

// Bank is a slip layout strategy for one issuing bank.
type Bank interface {
	// Code is the FEBRABAN compensation code leading the barcode.
	Code() domain.BankCode
	// Name is the display name listed by the API.
	Name() string
	// FreeField builds the 25-digit campo livre for account and nosso número.
	FreeField(acc domain.BankAccountRef, nossoNumero int64) (string, error)
	// NossoNumero returns the printed nosso número, with its check digit
	// when the bank defines one.
	NossoNumero(acc domain.BankAccountRef, nossoNumero int64) (string, error)
}

// Registry maps bank codes to their strategies.
type Registry struct {
	banks map[domain.BankCode]Bank
}

// NewRegistry creates a registry holding banks.
func NewRegistry(banks ...Bank) *Registry {
	r := &Registry{banks: make(map[domain.BankCode]Bank, len(banks))}
	for _, b := range banks {
		r.banks[b.Code()] = b
	}
	return r
}

// DefaultRegistry registers every supported bank.
func DefaultRegistry() *Registry {
	return NewRegistry(Itau{}, Safra{})
}

// Lookup returns the strategy for code.
func (r *Registry) Lookup(code domain.BankCode) (Bank, error) {
	b, ok := r.banks[code]
	if !ok {
		return nil, &domain.ErrUnsupportedBank{Bank: code}
	}
	return b, nil
}

// Banks lists the registered strategies ordered by code.
func (r *Registry) Banks() []domain.BankInfo {
	out := make([]domain.BankInfo, 0, len(r.banks))
	for _, b := range r.banks {
		out = append(out, domain.BankInfo{Code: b.Code(), Name: b.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// BuildRequest is the input of Builder.Build.
type BuildRequest struct {
	Account     domain.BankAccountRef
	NossoNumero int64
	Amount      decimal.Decimal
	DueDate     civil.Date
}

// Barcode is a validated payload together with its decomposed fields.
type Barcode struct {
	Bank              domain.BankCode
	Payload           string
	GeneralCheckDigit int
	DueFactor         string
	AmountField       string
	FreeField         string
	NossoNumero       string
}

// Builder produces barcode payloads using the registered bank strategies.
type Builder struct {
	registry *Registry
}

// NewBuilder creates a builder backed by registry.
func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry}
}

// Registry exposes the builder's bank strategies.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Build assembles and validates the 44-digit payload for req.
func (b *Builder) Build(req BuildRequest) (*Barcode, error) {
	bank, err := b.registry.Lookup(req.Account.Bank)
	if err != nil {
		return nil, err
	}

	factor, err := DueFactor(req.DueDate)
	if err != nil {
		return nil, err
	}
	amount, err := AmountField(req.Amount)
	if err != nil {
		return nil, err
	}
	free, err := bank.FreeField(req.Account, req.NossoNumero)
	if err != nil {
		return nil, err
	}
	if err := fixedDigits("free_field", free, FreeFieldLength); err != nil {
		return nil, err
	}
	nn, err := bank.NossoNumero(req.Account, req.NossoNumero)
	if err != nil {
		return nil, err
	}

	prefix := string(bank.Code()) + domain.CurrencyCode
	dv, err := checksum.Modulo11(prefix + factor + amount + free)
	if err != nil {
		return nil, err
	}

	payload := prefix + string(rune('0'+dv)) + factor + amount + free
	if err := fixedDigits("barcode", payload, PayloadLength); err != nil {
		return nil, err
	}

	return &Barcode{
		Bank:              bank.Code(),
		Payload:           payload,
		GeneralCheckDigit: dv,
		DueFactor:         factor,
		AmountField:       amount,
		FreeField:         free,
		NossoNumero:       nn,
	}, nil
}

// Decode splits a payload into its fields after checking width and the
// general check digit. NossoNumero is left empty: it is bank-specific.
func Decode(payload string) (*Barcode, error) {
	if err := fixedDigits("barcode", payload, PayloadLength); err != nil {
		return nil, err
	}
	dv, err := checksum.Modulo11(payload[:4] + payload[5:])
	if err != nil {
		return nil, err
	}
	if int(payload[4]-'0') != dv {
		return nil, &domain.ErrEncodingInvariant{
			Field:    "general_check_digit",
			Value:    payload[4:5],
			Expected: string(rune('0' + dv)),
		}
	}
	return &Barcode{
		Bank:              domain.BankCode(payload[:3]),
		Payload:           payload,
		GeneralCheckDigit: dv,
		DueFactor:         payload[5:9],
		AmountField:       payload[9:19],
		FreeField:         payload[19:44],
	}, nil
}
