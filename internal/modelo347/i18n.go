package modelo347

// Translator turns message keys into user facing text.
type Translator interface {
	Trans(key string) string
}

// NoopTranslator returns every key unchanged.
type NoopTranslator struct{}

// Trans implements Translator.
func (NoopTranslator) Trans(key string) string { return key }

// Message keys shared by the exports and the advisory checks.
const (
	KeyModel347         = "model-347"
	KeyCompanyAdminNone = "company-admin-no-data"
	KeyCompanyPhoneNone = "company-phone-no-data"
	KeyNoData           = "347-no-data"
	KeyNoProvince       = "347-no-province"
	KeyNoCountry        = "347-no-country"
)
