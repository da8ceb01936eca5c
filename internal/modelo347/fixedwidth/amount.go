package fixedwidth

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CentsPolicy controls how negative amounts are split into integer and cents.
type CentsPolicy int

const (
	// CentsAbsolute writes the magnitude in both parts and marks the sign
	// with the N flag only.
	CentsAbsolute CentsPolicy = iota
	// CentsLegacy keeps the minus sign inside both parts: the older signed
	// formula, computed with exact decimal arithmetic.
	CentsLegacy
)

// ParseCentsPolicy accepts "absolute" and "legacy". Empty input selects
// CentsAbsolute.
func ParseCentsPolicy(s string) (CentsPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absolute":
		return CentsAbsolute, nil
	case "legacy":
		return CentsLegacy, nil
	}
	return CentsAbsolute, fmt.Errorf("fixedwidth: unknown cents policy %q", s)
}

func (p CentsPolicy) String() string {
	if p == CentsLegacy {
		return "legacy"
	}
	return "absolute"
}

// Amount is a monetary value split into the three record sub-fields.
type Amount struct {
	Sign    string
	Integer string
	Cents   string
}

// FormatAmount splits v into sign flag, integer part and cents. The sign is
// "N" for negative values and a blank otherwise.
func FormatAmount(v decimal.Decimal, policy CentsPolicy) Amount {
	if policy == CentsLegacy {
		whole := v.Truncate(0)
		cents := v.Sub(whole).Mul(decimal.NewFromInt(100)).IntPart()
		return Amount{
			Sign:    signOf(v),
			Integer: whole.String(),
			Cents:   fmt.Sprintf("%d", cents),
		}
	}

	rounded := v.Round(2)
	abs := rounded.Abs()
	whole := abs.Truncate(0)
	cents := abs.Sub(whole).Mul(decimal.NewFromInt(100)).IntPart()
	return Amount{
		Sign:    signOf(rounded),
		Integer: whole.String(),
		Cents:   fmt.Sprintf("%02d", cents),
	}
}

func signOf(v decimal.Decimal) string {
	if v.IsNegative() {
		return "N"
	}
	return " "
}
