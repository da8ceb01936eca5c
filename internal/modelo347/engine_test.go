package modelo347

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testExercise() ExerciseInfo {
	return ExerciseInfo{
		Code:      "2023",
		CompanyID: 1,
		StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    ExerciseStatusOpen,
	}
}

func testContext(examine ExamineMode, grouping GroupingMode) DeclarationContext {
	return DeclarationContext{
		ExerciseCode: "2023",
		Examine:      examine,
		Grouping:     grouping,
		MinAmount:    DefaultMinAmount,
		ActiveTab:    SideCustomers,
	}
}

func TestAggregateInvoicesScenario(t *testing.T) {
	repo := newMemoryRepo()
	repo.addParty(SideCustomers, PartyInfo{Code: "C1", TaxID: "12345678Z", Name: "Cliente Uno", Province: "Madrid", CountryCode: "ESP"}, "")
	repo.addParty(SideCustomers, PartyInfo{Code: "C2", TaxID: "87654321X", Name: "Cliente Dos"}, "")
	repo.addInvoice(SideCustomers, "C1", "12345678Z", "02", "2000.00")
	repo.addInvoice(SideCustomers, "C1", "12345678Z", "05", "1500.00")
	repo.addInvoice(SideCustomers, "C2", "87654321X", "07", "3000.00")

	res, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineInvoices, GroupByParty), testExercise(), SideCustomers)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	require.Equal(t, "C1", row.Code)
	require.Equal(t, "Cliente Uno", row.DisplayName)
	require.True(t, row.Quarters[0].Equal(d("2000")))
	require.True(t, row.Quarters[1].Equal(d("1500")))
	require.True(t, row.Total.Equal(d("3500")))
	require.True(t, res.Totals.Total.Equal(d("3500")))
	require.True(t, res.Totals.Quarters[0].Equal(d("2000")))
}

func TestAggregateThresholdIsExclusive(t *testing.T) {
	repo := newMemoryRepo()
	repo.addInvoice(SideCustomers, "AT", "", "1", "3005.06")
	repo.addInvoice(SideCustomers, "ABOVE", "", "1", "3005.07")

	res, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineInvoices, GroupByParty), testExercise(), SideCustomers)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "ABOVE", res.Rows[0].Code)
	for _, row := range res.Rows {
		require.True(t, row.Total.GreaterThan(DefaultMinAmount))
	}
}

func TestAggregateMergesByTaxID(t *testing.T) {
	repo := newMemoryRepo()
	repo.addParty(SideSuppliers, PartyInfo{Code: "S1", TaxID: "B11111111", Name: "First"}, "")
	repo.addParty(SideSuppliers, PartyInfo{Code: "S2", TaxID: "B11111111", Name: "Second"}, "")
	repo.addInvoice(SideSuppliers, "S1", "B11111111", "3", "2000")
	repo.addInvoice(SideSuppliers, "S2", "B11111111", "4", "2000")
	repo.addInvoice(SideSuppliers, "S3", "", "4", "4000")
	repo.addInvoice(SideSuppliers, "S4", "", "4", "4000")

	dc := testContext(ExamineInvoices, GroupByTaxID)
	res, err := NewEngine(repo).Aggregate(context.Background(), dc, testExercise(), SideSuppliers)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	require.Equal(t, "S1", res.Rows[0].Code)
	require.Equal(t, "First", res.Rows[0].DisplayName)
	require.True(t, res.Rows[0].Total.Equal(d("4000")))
	require.True(t, res.Rows[0].Quarters[0].Equal(d("2000")))
	require.True(t, res.Rows[0].Quarters[1].Equal(d("2000")))

	// Empty tax ids never merge.
	require.Equal(t, "S3", res.Rows[1].Code)
	require.Equal(t, "S4", res.Rows[2].Code)
	require.True(t, res.Totals.Total.Equal(d("12000")))
}

func TestAggregateByCodeKeepsPartiesApart(t *testing.T) {
	repo := newMemoryRepo()
	repo.addInvoice(SideSuppliers, "S1", "B11111111", "3", "2000")
	repo.addInvoice(SideSuppliers, "S2", "B11111111", "4", "2000")

	res, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineInvoices, GroupByParty), testExercise(), SideSuppliers)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
	require.True(t, res.Totals.Total.IsZero())
}

func TestAggregateUnknownPartyDegradesToBlanks(t *testing.T) {
	repo := newMemoryRepo()
	repo.addInvoice(SideCustomers, "GHOST", "X1", "12", "5000")

	res, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineInvoices, GroupByParty), testExercise(), SideCustomers)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "GHOST", res.Rows[0].DisplayName)
	require.Empty(t, res.Rows[0].TaxID)
	require.Empty(t, res.Rows[0].Province)
	require.True(t, res.Rows[0].Quarters[3].Equal(d("5000")))
}

func TestAggregateLoadsEachPartyOnce(t *testing.T) {
	repo := newMemoryRepo()
	repo.addParty(SideCustomers, PartyInfo{Code: "C1", Name: "Uno"}, "")
	for _, m := range []string{"1", "2", "3", "4"} {
		repo.addInvoice(SideCustomers, "C1", "", m, "1000")
	}

	_, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineInvoices, GroupByParty), testExercise(), SideCustomers)
	require.NoError(t, err)
	require.Equal(t, 1, repo.partyLookups)
}

func TestAggregateRejectsRowsWithoutCode(t *testing.T) {
	repo := newMemoryRepo()
	repo.addInvoice(SideCustomers, " ", "", "1", "1000")

	_, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineInvoices, GroupByParty), testExercise(), SideCustomers)
	require.True(t, errors.Is(err, ErrMissingField))
}

func TestAggregateLedger(t *testing.T) {
	repo := newMemoryRepo()
	repo.addParty(SideCustomers, PartyInfo{Code: "C1", TaxID: "B22222222", Name: "Uno"}, "4300000001")
	repo.addParty(SideCustomers, PartyInfo{Code: "C2", TaxID: "B22222222", Name: "Dos"}, "4300000002")
	repo.ledger[SideCustomers] = []LedgerRow{
		{SubAccountCode: "4300000001", Month: "1", Total: d("2000")},
		{SubAccountCode: "4300000002", Month: "8", Total: d("2000")},
		{SubAccountCode: "4300000099", Month: "9", Total: d("90000")},
	}

	dc := testContext(ExamineAccounting, GroupByTaxID)
	res, err := NewEngine(repo).Aggregate(context.Background(), dc, testExercise(), SideCustomers)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1, "unresolved sub-accounts are skipped")
	require.Equal(t, "C1", res.Rows[0].Code)
	require.Equal(t, "Uno", res.Rows[0].DisplayName)
	require.True(t, res.Rows[0].Quarters[2].Equal(d("2000")))
	require.True(t, res.Rows[0].Total.Equal(d("4000")))

	dc.Grouping = GroupByParty
	res, err = NewEngine(repo).Aggregate(context.Background(), dc, testExercise(), SideCustomers)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestAggregateLedgerWithoutSpecialAccounts(t *testing.T) {
	repo := newMemoryRepo()
	res, err := NewEngine(repo).Aggregate(context.Background(), testContext(ExamineAccounting, GroupByParty), testExercise(), SideSuppliers)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestAggregateAllAssignsSides(t *testing.T) {
	repo := newMemoryRepo()
	repo.addInvoice(SideCustomers, "C1", "", "1", "4000")
	repo.addInvoice(SideSuppliers, "S1", "", "1", "5000")

	dc := testContext(ExamineInvoices, GroupByParty)
	dc.ActiveTab = SideSuppliers
	customers, suppliers, err := NewEngine(repo).AggregateAll(context.Background(), dc, testExercise())
	require.NoError(t, err)
	require.Equal(t, "C1", customers.Rows[0].Code)
	require.Equal(t, "S1", suppliers.Rows[0].Code)
}
