package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":           "R$ 0,00",
		"0.05":        "R$ 0,05",
		"1234.56":     "R$ 1.234,56",
		"1000000":     "R$ 1.000.000,00",
		"-37.5":       "-R$ 37,50",
		"99999999.99": "R$ 99.999.999,99",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatBRL(decimal.RequireFromString(in)), in)
	}
}
