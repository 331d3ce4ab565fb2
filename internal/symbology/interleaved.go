package symbology

import (
	"github.com/boddenberg/factoring-settlement-go/internal/checksum"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

const (
	// Narrow and Wide are element widths in narrow units.
	Narrow = 1
	Wide   = 3
)

// i2of5 holds the five element widths of each digit, N=false W=true.
var i2of5 = [10][5]bool{
	{false, false, true, true, false}, // 0 NNWWN
	{true, false, false, false, true}, // 1 WNNNW
	{false, true, false, false, true}, // 2 NWNNW
	{true, true, false, false, false}, // 3 WWNNN
	{false, false, true, false, true}, // 4 NNWNW
	{true, false, true, false, false}, // 5 WNWNN
	{false, true, true, false, false}, // 6 NWWNN
	{false, false, false, true, true}, // 7 NNNWW
	{true, false, false, true, false}, // 8 WNNWN
	{false, true, false, true, false}, // 9 NWNWN
}

// Interleaved2of5 encodes digits as an ordered bar/space sequence. The
// first digit of each pair is carried by the bars, the second by the
// spaces. Odd-length input gets a leading zero.
func Interleaved2of5(digits string) ([]domain.Bar, error) {
	if !checksum.IsDigits(digits) {
		return nil, &domain.ErrEncodingInvariant{Field: "barcode", Value: digits, Expected: "non-empty digit string"}
	}
	if len(digits)%2 != 0 {
		digits = "0" + digits
	}

	// start (4) + 10 per pair + stop (3)
	bars := make([]domain.Bar, 0, 4+len(digits)*5+3)
	bars = append(bars,
		domain.Bar{IsBar: true, Width: Narrow},
		domain.Bar{IsBar: false, Width: Narrow},
		domain.Bar{IsBar: true, Width: Narrow},
		domain.Bar{IsBar: false, Width: Narrow},
	)

	for i := 0; i < len(digits); i += 2 {
		b := i2of5[digits[i]-'0']
		s := i2of5[digits[i+1]-'0']
		for k := 0; k < 5; k++ {
			bars = append(bars,
				domain.Bar{IsBar: true, Width: width(b[k])},
				domain.Bar{IsBar: false, Width: width(s[k])},
			)
		}
	}

	bars = append(bars,
		domain.Bar{IsBar: true, Width: Wide},
		domain.Bar{IsBar: false, Width: Narrow},
		domain.Bar{IsBar: true, Width: Narrow},
	)
	return bars, nil
}

// TotalWidth is the symbol width in narrow units, quiet zones excluded.
func TotalWidth(bars []domain.Bar) int {
	w := 0
	for _, b := range bars {
		w += b.Width
	}
	return w
}

func width(wide bool) int {
	if wide {
		return Wide
	}
	return Narrow
}
