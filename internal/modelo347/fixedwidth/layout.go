package fixedwidth

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RecordWidth is the length of every record in the file.
const RecordWidth = 500

// FieldSpec describes one positional field of a record.
type FieldSpec struct {
	Name  string
	Width int
	Pad   rune
	Align Align
	// Text fields go through the full normaliser. Other values are only
	// truncated or padded.
	Text bool
	// Fixed fields keep their pad characters when sliced, since a tax id
	// may end in 0. Only blanks are trimmed.
	Fixed bool
}

// Layout is the ordered list of fields that make up a record type.
type Layout struct {
	Name   string
	Fields []FieldSpec
}

// Width returns the sum of all field widths.
func (l Layout) Width() int {
	total := 0
	for _, f := range l.Fields {
		total += f.Width
	}
	return total
}

// Render lays out values in field order. Missing values become padding.
func (l Layout) Render(values map[string]string) string {
	var b strings.Builder
	b.Grow(RecordWidth)
	for _, f := range l.Fields {
		v := values[f.Name]
		if f.Text {
			b.WriteString(Field(v, f.Width, f.Pad, f.Align))
			continue
		}
		b.WriteString(fit(v, f.Width, f.Pad, f.Align))
	}
	return b.String()
}

// Slice cuts record into its fields and trims the padding of each one.
// Fixed fields are returned as written.
func (l Layout) Slice(record string) (map[string]string, error) {
	chars := []rune(record)
	if len(chars) != l.Width() {
		return nil, fmt.Errorf("fixedwidth: %s record has %d characters, want %d", l.Name, utf8.RuneCountInString(record), l.Width())
	}
	out := make(map[string]string, len(l.Fields))
	pos := 0
	for _, f := range l.Fields {
		raw := string(chars[pos : pos+f.Width])
		pos += f.Width
		switch {
		case f.Fixed:
			out[f.Name] = strings.TrimSpace(raw)
		case f.Align == AlignRight:
			out[f.Name] = strings.TrimLeft(raw, string(f.Pad))
		default:
			out[f.Name] = strings.TrimRight(raw, string(f.Pad))
		}
	}
	return out, nil
}

func blank(name string, width int) FieldSpec {
	return FieldSpec{Name: name, Width: width, Pad: ' ', Align: AlignLeft}
}

func zeros(name string, width int) FieldSpec {
	return FieldSpec{Name: name, Width: width, Pad: '0', Align: AlignRight}
}

func amountFields(prefix string) []FieldSpec {
	return []FieldSpec{
		blank(prefix+"_sign", 1),
		zeros(prefix+"_integer", 13),
		zeros(prefix+"_cents", 2),
	}
}

// HeaderLayout is the type 1 record: declarant identity and grand totals.
var HeaderLayout = Layout{
	Name: "header",
	Fields: concat(
		[]FieldSpec{
			blank("record_type", 1),
			blank("model", 3),
			zeros("year", 4),
			{Name: "declarant_nif", Width: 9, Pad: '0', Align: AlignLeft, Text: true, Fixed: true},
			{Name: "declarant_name", Width: 40, Pad: ' ', Align: AlignRight, Text: true},
			blank("support_type", 1),
			{Name: "phone", Width: 9, Pad: '0', Align: AlignLeft, Fixed: true},
			{Name: "contact_name", Width: 40, Pad: ' ', Align: AlignRight, Text: true},
			zeros("declaration_id", 13),
			blank("complementary", 1),
			blank("substitutive", 1),
			zeros("previous_declaration_id", 13),
			zeros("party_count", 9),
		},
		amountFields("total"),
		[]FieldSpec{
			zeros("property_count", 9),
			blank("rental_sign", 1),
			zeros("rental_amount", 15),
			blank("reserved_1", 205),
			blank("representative_nif", 9),
			blank("reserved_2", 88),
			blank("electronic_stamp", 13),
		},
	),
}

// DetailLayout is the type 2 record: one declared party.
var DetailLayout = Layout{
	Name: "detail",
	Fields: concat(
		[]FieldSpec{
			blank("record_type", 1),
			blank("model", 3),
			zeros("year", 4),
			{Name: "declarant_nif", Width: 9, Pad: '0', Align: AlignLeft, Text: true, Fixed: true},
			{Name: "declared_nif", Width: 9, Pad: '0', Align: AlignLeft, Fixed: true},
			blank("representative_nif", 9),
			{Name: "declared_name", Width: 40, Pad: ' ', Align: AlignRight, Text: true},
			blank("sheet_type", 1),
			blank("province", 2),
			blank("country", 2),
			blank("reserved_1", 1),
			blank("operation_key", 1),
		},
		amountFields("annual"),
		[]FieldSpec{
			blank("insurance", 1),
			blank("business_rental", 1),
			zeros("cash_amount", 15),
			blank("property_transfer_sign", 1),
			zeros("property_transfer_amount", 15),
			zeros("cash_exercise", 4),
		},
		quarterFields(1), quarterFields(2), quarterFields(3), quarterFields(4),
		[]FieldSpec{
			blank("community_operator_nif", 17),
			blank("cash_criterion", 1),
			blank("reverse_charge", 1),
			blank("customs_deposit", 1),
			blank("cash_criterion_amount", 16),
			blank("reserved_2", 201),
		},
	),
}

func quarterFields(q int) []FieldSpec {
	prefix := fmt.Sprintf("q%d", q)
	return append(amountFields(prefix),
		blank(prefix+"_property_sign", 1),
		zeros(prefix+"_property_amount", 15),
	)
}

func concat(groups ...[]FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
