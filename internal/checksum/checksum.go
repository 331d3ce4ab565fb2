// Package checksum implements the modulo 10 and modulo 11 check digits
// used by FEBRABAN bank slips.
package checksum

import (
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

// Modulo10 returns the weighted check digit of digits. Weights alternate
// 2,1,2,1... from the rightmost digit; two-digit products are folded into
// the sum of their digits (16 → 7).
func Modulo10(digits string) (int, error) {
	if err := requireDigits("modulo10", digits); err != nil {
		return 0, err
	}

	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		p := int(digits[i]-'0') * weight
		if p > 9 {
			p = p/10 + p%10
		}
		sum += p
		if weight == 2 {
			weight = 1
		} else {
			weight = 2
		}
	}
	return (10 - sum%10) % 10, nil
}

// Modulo11 returns the bank-slip modulo 11 check digit of digits. Weights
// cycle 2..9 from the rightmost digit. Results of 0, 10 and 11 become 1.
func Modulo11(digits string) (int, error) {
	if err := requireDigits("modulo11", digits); err != nil {
		return 0, err
	}

	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}

	dac := 11 - sum%11
	if dac == 0 || dac == 10 || dac == 11 {
		return 1, nil
	}
	return dac, nil
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func requireDigits(field, s string) error {
	if !IsDigits(s) {
		return &domain.ErrEncodingInvariant{Field: field, Value: s, Expected: "non-empty digit string"}
	}
	return nil
}
