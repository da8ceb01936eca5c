package fixedwidth

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatAmountPositive(t *testing.T) {
	a := FormatAmount(dec("3500.07"), CentsAbsolute)
	require.Equal(t, Amount{Sign: " ", Integer: "3500", Cents: "07"}, a)

	a = FormatAmount(dec("12.345"), CentsAbsolute)
	require.Equal(t, Amount{Sign: " ", Integer: "12", Cents: "35"}, a)
}

func TestFormatAmountNegativeAbsolute(t *testing.T) {
	a := FormatAmount(dec("-3500.07"), CentsAbsolute)
	require.Equal(t, Amount{Sign: "N", Integer: "3500", Cents: "07"}, a)
}

func TestFormatAmountNegativeLegacy(t *testing.T) {
	a := FormatAmount(dec("-3500.07"), CentsLegacy)
	require.Equal(t, Amount{Sign: "N", Integer: "-3500", Cents: "-7"}, a)
}

func TestNegativeAmountInRecord(t *testing.T) {
	d := sampleDeclaration()
	d.Suppliers = nil
	d.Customers[0].Total = dec("-3500.07")
	d.Customers[0].Quarters = [4]decimal.Decimal{}

	abs, err := NewEncoder(CentsAbsolute, nil).Encode(d)
	require.NoError(t, err)
	detail, err := DetailLayout.Slice(strings.Split(abs, "\n")[1])
	require.NoError(t, err)
	require.Equal(t, "N", detail["annual_sign"])
	require.Equal(t, "3500", detail["annual_integer"])
	require.Equal(t, "7", detail["annual_cents"])
	require.Equal(t, "N", detail["property_transfer_sign"])

	legacy, err := NewEncoder(CentsLegacy, nil).Encode(d)
	require.NoError(t, err)
	record := []rune(strings.Split(legacy, "\n")[1])
	// annual amount starts after the 82 leading characters
	require.Equal(t, "N00000000-3500-7", string(record[82:98]))
}

func TestParseCentsPolicy(t *testing.T) {
	p, err := ParseCentsPolicy("")
	require.NoError(t, err)
	require.Equal(t, CentsAbsolute, p)

	p, err = ParseCentsPolicy("Legacy")
	require.NoError(t, err)
	require.Equal(t, CentsLegacy, p)
	require.Equal(t, "legacy", p.String())

	_, err = ParseCentsPolicy("rounded")
	require.Error(t, err)
}
