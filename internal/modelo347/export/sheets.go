// Package export renders a Modelo 347 report as a spreadsheet or as the HTML
// page that is converted to PDF.
package export

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/modelo347/internal/modelo347"
)

// Sheet is one tab of the tabular export.
type Sheet struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// Sheets builds one sheet per side that has declared parties. Each sheet ends
// with the totals row.
func Sheets(report modelo347.Report, tr modelo347.Translator) []Sheet {
	if tr == nil {
		tr = modelo347.NoopTranslator{}
	}
	var out []Sheet
	for _, side := range []modelo347.Side{modelo347.SideCustomers, modelo347.SideSuppliers} {
		res := report.Side(side)
		if len(res.Rows) == 0 {
			continue
		}
		sheet := Sheet{
			Title:   tr.Trans(string(side)),
			Headers: headers(side, tr),
			Rows:    make([][]any, 0, len(res.Rows)+1),
		}
		for _, row := range res.Rows {
			sheet.Rows = append(sheet.Rows, []any{
				row.TaxID, row.DisplayName, row.PostalCode, row.City, row.Province,
				money(row.Quarters[0]), money(row.Quarters[1]), money(row.Quarters[2]), money(row.Quarters[3]),
				money(row.Total),
			})
		}
		t := res.Totals
		sheet.Rows = append(sheet.Rows, []any{
			"", "", "", "", "",
			money(t.Quarters[0]), money(t.Quarters[1]), money(t.Quarters[2]), money(t.Quarters[3]),
			money(t.Total),
		})
		out = append(out, sheet)
	}
	return out
}

func headers(side modelo347.Side, tr modelo347.Translator) []string {
	keys := []string{
		"cifnif", side.PartyType(), "zip-code", "city", "province",
		"first-trimester", "second-trimester", "third-trimester", "fourth-trimester", "total",
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = tr.Trans(k)
	}
	return out
}

// money converts an amount for a numeric spreadsheet cell.
func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}
