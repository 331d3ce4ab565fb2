// Package symbology turns a barcode payload into its two printed forms:
// the linha digitável and the Interleaved 2-of-5 bar sequence.
package symbology

import (
	"fmt"
	"regexp"

	"github.com/boddenberg/factoring-settlement-go/internal/boleto"
	"github.com/boddenberg/factoring-settlement-go/internal/checksum"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

// DigitableLineLength is the digit count of a linha digitável.
const DigitableLineLength = 47

var nonDigit = regexp.MustCompile(`[^0-9]`)

// DigitableLine formats payload as
//
//	AAABC.CCCCX DDDDD.DDDDDY EEEEE.EEEEEZ K UUUUVVVVVVVVVV
//
// where the first three groups carry their own modulo 10 check digit, K is
// the general check digit and the last group is due factor plus amount.
func DigitableLine(payload string) (string, error) {
	bc, err := boleto.Decode(payload)
	if err != nil {
		return "", err
	}

	f1, err := withMod10(payload[0:4] + bc.FreeField[0:5])
	if err != nil {
		return "", err
	}
	f2, err := withMod10(bc.FreeField[5:15])
	if err != nil {
		return "", err
	}
	f3, err := withMod10(bc.FreeField[15:25])
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s.%s %s.%s %s.%s %d %s%s",
		f1[:5], f1[5:],
		f2[:5], f2[5:],
		f3[:5], f3[5:],
		bc.GeneralCheckDigit,
		bc.DueFactor, bc.AmountField,
	), nil
}

// ParseDigitableLine verifies every check digit of a linha digitável and
// returns the barcode payload it encodes. Punctuation and spaces are ignored.
func ParseDigitableLine(line string) (string, error) {
	digits := Digits(line)
	if len(digits) != DigitableLineLength {
		return "", &domain.ErrEncodingInvariant{Field: "digitable_line", Value: line, Expected: "47 digits"}
	}

	fields := []struct {
		name  string
		start int
		end   int
	}{
		{"field_1", 0, 10},
		{"field_2", 10, 21},
		{"field_3", 21, 32},
	}
	for _, f := range fields {
		body, dv := digits[f.start:f.end-1], digits[f.end-1]
		want, err := checksum.Modulo10(body)
		if err != nil {
			return "", err
		}
		if int(dv-'0') != want {
			return "", &domain.ErrEncodingInvariant{Field: f.name, Value: digits[f.start:f.end], Expected: fmt.Sprintf("check digit %d", want)}
		}
	}

	payload := digits[0:4] + // bank + currency
		digits[32:33] + // general check digit
		digits[33:47] + // due factor + amount
		digits[4:9] + digits[10:20] + digits[21:31] // free field

	if _, err := boleto.Decode(payload); err != nil {
		return "", err
	}
	return payload, nil
}

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

func withMod10(body string) (string, error) {
	dv, err := checksum.Modulo10(body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", body, dv), nil
}
