package modelo347

import "github.com/shopspring/decimal"

// QuarterOf maps a month number to a zero based quarter index. Months are
// accepted with or without a leading zero; anything else lands in the
// fourth quarter.
func QuarterOf(month string) int {
	switch month {
	case "1", "01", "2", "02", "3", "03":
		return 0
	case "4", "04", "5", "05", "6", "06":
		return 1
	case "7", "07", "8", "08", "9", "09":
		return 2
	default:
		return 3
	}
}

// Accumulate adds amount to the quarter of month and to the running total.
// It must be called exactly once per source row.
func Accumulate(agg *PartyAggregate, month string, amount decimal.Decimal) {
	q := QuarterOf(month)
	agg.Quarters[q] = agg.Quarters[q].Add(amount)
	agg.Total = agg.Total.Add(amount)
}

// addTotals folds agg into totals.
func addTotals(totals *ReportTotals, agg PartyAggregate) {
	for i := range totals.Quarters {
		totals.Quarters[i] = totals.Quarters[i].Add(agg.Quarters[i])
	}
	totals.Total = totals.Total.Add(agg.Total)
}
