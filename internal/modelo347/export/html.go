package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/modelo347/internal/modelo347"
)

// HTML renders the per-party summary of report as a standalone page for PDF
// conversion.
func HTML(report modelo347.Report, tr modelo347.Translator) string {
	if tr == nil {
		tr = modelo347.NoopTranslator{}
	}
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}h2{font-size:16px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:4px 6px;font-size:11px;}td.num{text-align:right;}th{background:#f5f5f5;text-align:left;}tfoot td{font-weight:bold;}")
	b.WriteString("</style></head><body>")
	fmt.Fprintf(&b, "<h1>%s %d</h1>", esc(tr.Trans(modelo347.KeyModel347)), report.Exercise.Year())
	fmt.Fprintf(&b, "<p>%s &middot; %s</p>", esc(report.Company.Name), esc(report.Company.TaxID))

	sheets := Sheets(report, tr)
	if len(sheets) == 0 {
		fmt.Fprintf(&b, "<p>%s</p>", esc(tr.Trans(modelo347.KeyNoData)))
	}
	for _, sheet := range sheets {
		fmt.Fprintf(&b, "<section><h2>%s</h2><table><thead><tr>", esc(sheet.Title))
		for _, h := range sheet.Headers {
			fmt.Fprintf(&b, "<th>%s</th>", esc(h))
		}
		b.WriteString("</tr></thead><tbody>")
		for i, row := range sheet.Rows {
			if i == len(sheet.Rows)-1 {
				b.WriteString("</tbody><tfoot>")
			}
			b.WriteString("<tr>")
			for _, cell := range row {
				writeCell(&b, cell)
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tfoot></table></section>")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("<section><h2>Warnings</h2><ul>")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "<li>%s", esc(w.Message))
			if name := w.Context["name"]; name != "" {
				fmt.Fprintf(&b, " (%s)", esc(name))
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul></section>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func writeCell(b *strings.Builder, cell any) {
	switch v := cell.(type) {
	case float64:
		fmt.Fprintf(b, "<td class=\"num\">%s</td>", decimal.NewFromFloat(v).StringFixed(2))
	case string:
		fmt.Fprintf(b, "<td>%s</td>", esc(v))
	default:
		fmt.Fprintf(b, "<td>%s</td>", esc(fmt.Sprint(v)))
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}
