package locality

import "strings"

// DomesticISO is the ISO 3166-1 alpha-2 code of the declaring country.
const DomesticISO = "ES"

// ISOResolver resolves an internal country reference to its ISO code.
type ISOResolver interface {
	ISOCode(countryCode string) (string, bool)
}

// ISOTable is an in-memory ISOResolver keyed by internal country code.
type ISOTable map[string]string

// ISOCode implements ISOResolver. Lookups are case-insensitive.
func (t ISOTable) ISOCode(countryCode string) (string, bool) {
	if t == nil {
		return "", false
	}
	iso, ok := t[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok || iso == "" {
		return "", false
	}
	return strings.ToUpper(iso), true
}

// CountryField returns the two character country field of a detail record.
// Domestic parties and unresolvable references yield two blanks.
func CountryField(r ISOResolver, countryCode string) string {
	if r == nil {
		return "  "
	}
	iso, ok := r.ISOCode(countryCode)
	if !ok || iso == DomesticISO {
		return "  "
	}
	if len(iso) >= 2 {
		return iso[:2]
	}
	return strings.Repeat(" ", 2-len(iso)) + iso
}

// IsDomestic reports whether countryCode refers to Spain. When the reference
// cannot be resolved the raw code is compared against the usual Spanish codes.
func IsDomestic(r ISOResolver, countryCode string) bool {
	if r != nil {
		if iso, ok := r.ISOCode(countryCode); ok {
			return iso == DomesticISO
		}
	}
	switch strings.ToUpper(strings.TrimSpace(countryCode)) {
	case "ES", "ESP":
		return true
	}
	return false
}
