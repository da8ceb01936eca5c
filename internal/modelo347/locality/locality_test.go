package locality

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/modelo347/testing"
)

func TestProvinceCodeVariants(t *testing.T) {
	cases := map[string]string{
		"Álava":                  "01",
		"alava":                  "01",
		"ARABA":                  "01",
		"A Coruña":               "15",
		"  Madrid ":              "28",
		"Santa Cruz de Tenerife": "38",
		"S.C.Tenerife":           "38",
		"València":               "46",
		"Bizkaia":                "48",
		"Melilla":                "52",
	}
	for name, want := range cases {
		require.Equal(t, want, ProvinceCode(name), name)
	}
}

func TestProvinceCodeUnknown(t *testing.T) {
	require.Equal(t, UnknownProvince, ProvinceCode(""))
	require.Equal(t, UnknownProvince, ProvinceCode("Lisboa"))
	require.Equal(t, UnknownProvince, ProvinceCode("madrid norte"))
}

func TestCountryField(t *testing.T) {
	table := ISOTable{"ESP": "ES", "PRT": "pt", "XX": "X"}

	require.Equal(t, "  ", CountryField(table, "ESP"))
	require.Equal(t, "PT", CountryField(table, "prt"))
	require.Equal(t, " X", CountryField(table, "XX"))
	require.Equal(t, "  ", CountryField(table, "FRA"), "unresolved code is blank")
	require.Equal(t, "  ", CountryField(nil, "PRT"))
}

func TestIsDomestic(t *testing.T) {
	table := ISOTable{"ESP": "ES", "PRT": "PT"}

	require.True(t, IsDomestic(table, "ESP"))
	require.False(t, IsDomestic(table, "PRT"))
	require.True(t, IsDomestic(table, "es"), "raw fallback")
	require.False(t, IsDomestic(nil, ""))
}
