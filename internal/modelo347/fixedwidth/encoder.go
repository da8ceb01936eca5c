package fixedwidth

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/odyssey-erp/modelo347/internal/modelo347/locality"
)

// Operation keys for the detail record.
const (
	KeyPurchases = "A"
	KeySales     = "B"
)

const (
	headerType = "1"
	detailType = "2"
	modelCode  = "347"
)

// Declarant identifies the company filing the declaration.
type Declarant struct {
	TaxID         string
	Name          string
	Phone         string
	Administrator string
}

// Party is one declared counterparty as it is written to a detail record.
type Party struct {
	Name        string
	TaxID       string
	TaxIDType   string
	Province    string
	CountryCode string
	Quarters    [4]decimal.Decimal
	Total       decimal.Decimal
}

// Declaration carries everything the encoder needs for one file.
type Declaration struct {
	Year      int
	Declarant Declarant
	Customers []Party
	Suppliers []Party
}

// Encoder writes declarations in the fixed-width layout. The zero value uses
// CentsAbsolute and treats every country reference as unresolved.
type Encoder struct {
	Cents     CentsPolicy
	Countries locality.ISOResolver
}

// NewEncoder returns an Encoder with the given policy and country resolver.
func NewEncoder(policy CentsPolicy, countries locality.ISOResolver) *Encoder {
	return &Encoder{Cents: policy, Countries: countries}
}

// Encode renders the header followed by one detail record per customer and
// then per supplier. Records are separated by "\n" with no trailing newline.
func (e *Encoder) Encode(d Declaration) (string, error) {
	if d.Year <= 0 || d.Year > 9999 {
		return "", fmt.Errorf("fixedwidth: invalid year %d", d.Year)
	}

	// The annual amount of each detail record carries the cumulative total
	// over every record written before it, customers first.
	running := decimal.Zero
	details := make([]string, 0, len(d.Customers)+len(d.Suppliers))
	for _, p := range d.Customers {
		running = running.Add(p.Total)
		details = append(details, e.detail(d, p, KeySales, running))
	}
	for _, p := range d.Suppliers {
		running = running.Add(p.Total)
		details = append(details, e.detail(d, p, KeyPurchases, running))
	}

	records := make([]string, 0, len(details)+1)
	records = append(records, e.header(d, len(details), running))
	records = append(records, details...)
	return strings.Join(records, "\n"), nil
}

// EncodeLatin1 is Encode followed by conversion to ISO-8859-1.
func (e *Encoder) EncodeLatin1(d Declaration) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes d and writes it to w as ISO-8859-1. Characters outside that
// charset are written as '?' so every record keeps its byte width.
func (e *Encoder) Write(w io.Writer, d Declaration) error {
	text, err := e.Encode(d)
	if err != nil {
		return err
	}
	tw := transform.NewWriter(w, latin1())
	if _, err := io.WriteString(tw, text); err != nil {
		return fmt.Errorf("fixedwidth: write: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("fixedwidth: flush: %w", err)
	}
	return nil
}

func latin1() transform.Transformer {
	return transform.Chain(
		runes.Map(func(r rune) rune {
			if r > 0xFF {
				return '?'
			}
			return r
		}),
		charmap.ISO8859_1.NewEncoder(),
	)
}

func (e *Encoder) header(d Declaration, count int, total decimal.Decimal) string {
	values := map[string]string{
		"record_type":    headerType,
		"model":          modelCode,
		"year":           fmt.Sprintf("%04d", d.Year),
		"declarant_nif":  d.Declarant.TaxID,
		"declarant_name": d.Declarant.Name,
		"support_type":   "T",
		"phone":          Digits(d.Declarant.Phone),
		"contact_name":   d.Declarant.Administrator,
		"party_count":    fmt.Sprintf("%d", count),
	}
	amount := FormatAmount(total, e.Cents)
	putAmount(values, "total", amount)
	values["rental_sign"] = amount.Sign
	return HeaderLayout.Render(values)
}

func (e *Encoder) detail(d Declaration, p Party, key string, running decimal.Decimal) string {
	values := map[string]string{
		"record_type":   detailType,
		"model":         modelCode,
		"year":          fmt.Sprintf("%04d", d.Year),
		"declarant_nif": d.Declarant.TaxID,
		"declared_nif":  e.declaredTaxID(p),
		"declared_name": p.Name,
		"sheet_type":    "D",
		"province":      locality.ProvinceCode(p.Province),
		"country":       locality.CountryField(e.Countries, p.CountryCode),
		"operation_key": key,
	}
	annual := FormatAmount(running, e.Cents)
	putAmount(values, "annual", annual)
	values["property_transfer_sign"] = annual.Sign
	for i, q := range p.Quarters {
		putAmount(values, fmt.Sprintf("q%d", i+1), FormatAmount(q, e.Cents))
	}
	return DetailLayout.Render(values)
}

// declaredTaxID blanks the tax id of foreign parties whose identifier is not
// a Spanish document type.
func (e *Encoder) declaredTaxID(p Party) string {
	if !locality.IsDomestic(e.Countries, p.CountryCode) && !spanishIDType(p.TaxIDType) {
		return strings.Repeat(" ", 9)
	}
	return Field(p.TaxID, 9, '0', AlignLeft)
}

func spanishIDType(kind string) bool {
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case "DNI", "CIF", "NIF":
		return true
	}
	return false
}

func putAmount(values map[string]string, prefix string, a Amount) {
	values[prefix+"_sign"] = a.Sign
	values[prefix+"_integer"] = a.Integer
	values[prefix+"_cents"] = a.Cents
}
