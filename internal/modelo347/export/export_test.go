package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/modelo347/internal/modelo347"
	_ "github.com/odyssey-erp/modelo347/testing"
)

func sampleReport() modelo347.Report {
	row := modelo347.PartyAggregate{
		Code:        "C1",
		TaxID:       "12345678Z",
		DisplayName: "Cliente <Uno>",
		PostalCode:  "28001",
		City:        "Madrid",
		Province:    "Madrid",
		Quarters: [4]decimal.Decimal{
			decimal.RequireFromString("2000"), decimal.RequireFromString("1500"), decimal.Zero, decimal.Zero,
		},
		Total: decimal.RequireFromString("3500"),
	}
	return modelo347.Report{
		Exercise: modelo347.ExerciseInfo{Code: "2023", StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		Company:  modelo347.CompanyInfo{Name: "ACME", TaxID: "B1"},
		Customers: modelo347.SideResult{
			Rows: []modelo347.PartyAggregate{row},
			Totals: modelo347.ReportTotals{
				Quarters: row.Quarters,
				Total:    row.Total,
			},
		},
	}
}

func TestSheetsSkipEmptySides(t *testing.T) {
	sheets := Sheets(sampleReport(), nil)
	require.Len(t, sheets, 1)

	sheet := sheets[0]
	require.Equal(t, "customers", sheet.Title)
	require.Equal(t, []string{
		"cifnif", "customer", "zip-code", "city", "province",
		"first-trimester", "second-trimester", "third-trimester", "fourth-trimester", "total",
	}, sheet.Headers)
	require.Len(t, sheet.Rows, 2, "party row plus totals row")
	require.Equal(t, "12345678Z", sheet.Rows[0][0])
	require.Equal(t, 3500.0, sheet.Rows[1][9])
	require.Equal(t, "", sheet.Rows[1][0])
}

func TestWriteXLSX(t *testing.T) {
	report := sampleReport()
	report.Suppliers = report.Customers

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Sheets(report, nil), "model-347"))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, []string{"customers", "suppliers"}, f.GetSheetList())
	rows, err := f.GetRows("suppliers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "supplier", rows[0][1])
	require.Equal(t, "Cliente <Uno>", rows[1][1])

	raw, err := f.GetCellValue("customers", "J2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "3500", raw)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, "model-347"))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.Equal(t, []string{"model-347"}, f.GetSheetList())
}

func TestHTMLEscapesAndTotals(t *testing.T) {
	report := sampleReport()
	report.Warnings = []modelo347.Warning{{Key: "347-no-country", Message: "347-no-country", Context: map[string]string{"name": "Cliente <Uno>"}}}

	page := HTML(report, nil)
	require.Contains(t, page, "<h1>model-347 2023</h1>")
	require.Contains(t, page, "Cliente &lt;Uno&gt;")
	require.NotContains(t, page, "Cliente <Uno>")
	require.Contains(t, page, "<tfoot>")
	require.Contains(t, page, "3500.00")
	require.Contains(t, page, "347-no-country")
	require.Equal(t, 1, strings.Count(page, "<section><h2>customers</h2>"))
}

func TestHTMLWithoutParties(t *testing.T) {
	page := HTML(modelo347.Report{}, nil)
	require.Contains(t, page, "347-no-data")
	require.NotContains(t, page, "<table>")
}
