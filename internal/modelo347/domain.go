// Package modelo347 aggregates customer and supplier operations into the
// annual third-party operations declaration (Modelo 347) and prepares it for
// export.
package modelo347

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/modelo347/internal/platform/httpx"
)

var (
	// ErrExerciseNotFound is returned when the fiscal year code is unknown.
	ErrExerciseNotFound = fmt.Errorf("modelo347: exercise not found: %w", httpx.ErrNotFound)
	// ErrCompanyNotFound is returned when the exercise owner cannot be loaded.
	ErrCompanyNotFound = fmt.Errorf("modelo347: company not found: %w", httpx.ErrNotFound)
	// ErrInvalidParams flags request parameters outside the accepted values.
	ErrInvalidParams = fmt.Errorf("modelo347: invalid parameters: %w", httpx.ErrValidation)
	// ErrMissingField is returned when a source row lacks a required column.
	ErrMissingField = errors.New("modelo347: missing required field")
	// ErrPartyNotFound is reported by lookups; aggregation degrades to blanks.
	ErrPartyNotFound = errors.New("modelo347: party not found")
)

// DefaultMinAmount is the legal reporting threshold in euros.
var DefaultMinAmount = decimal.RequireFromString("3005.06")

// ExamineMode selects the data source of the aggregation.
type ExamineMode string

const (
	// ExamineInvoices reads issued and received invoices.
	ExamineInvoices ExamineMode = "invoices"
	// ExamineAccounting reads postings on the customer and supplier ledgers.
	ExamineAccounting ExamineMode = "accounting"
)

// ExamineModes lists the accepted examine values.
func ExamineModes() []ExamineMode {
	return []ExamineMode{ExamineAccounting, ExamineInvoices}
}

// ParseExamineMode validates s. Empty input selects ExamineInvoices.
func ParseExamineMode(s string) (ExamineMode, error) {
	switch ExamineMode(strings.TrimSpace(s)) {
	case "", ExamineInvoices:
		return ExamineInvoices, nil
	case ExamineAccounting:
		return ExamineAccounting, nil
	}
	return "", fmt.Errorf("%w: examine %q", ErrInvalidParams, s)
}

// GroupingMode selects the aggregation key.
type GroupingMode string

const (
	// GroupByParty keys rows by internal customer or supplier code.
	GroupByParty GroupingMode = "customer-supplier"
	// GroupByTaxID merges parties sharing a tax id.
	GroupByTaxID GroupingMode = "cifnif"
)

// GroupingModes lists the accepted grouping values.
func GroupingModes() []GroupingMode {
	return []GroupingMode{GroupByTaxID, GroupByParty}
}

// ParseGroupingMode validates s. Empty input selects GroupByParty.
func ParseGroupingMode(s string) (GroupingMode, error) {
	switch GroupingMode(strings.TrimSpace(s)) {
	case "", GroupByParty:
		return GroupByParty, nil
	case GroupByTaxID:
		return GroupByTaxID, nil
	}
	return "", fmt.Errorf("%w: grouping %q", ErrInvalidParams, s)
}

// Side is one half of the declaration.
type Side string

const (
	SideCustomers Side = "customers"
	SideSuppliers Side = "suppliers"
)

// ParseSide validates s. Empty input selects SideCustomers.
func ParseSide(s string) (Side, error) {
	switch Side(strings.TrimSpace(s)) {
	case "", SideCustomers:
		return SideCustomers, nil
	case SideSuppliers:
		return SideSuppliers, nil
	}
	return "", fmt.Errorf("%w: active tab %q", ErrInvalidParams, s)
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideSuppliers {
		return SideCustomers
	}
	return SideSuppliers
}

// PartyType is the singular noun used in messages and headers.
func (s Side) PartyType() string {
	if s == SideSuppliers {
		return "supplier"
	}
	return "customer"
}

// PartyAggregate accumulates the yearly operations with one counterparty.
type PartyAggregate struct {
	Code        string             `json:"code"`
	TaxID       string             `json:"cifnif"`
	TaxIDType   string             `json:"tax_id_type"`
	DisplayName string             `json:"name"`
	PostalCode  string             `json:"postal_code"`
	City        string             `json:"city"`
	Province    string             `json:"province"`
	CountryCode string             `json:"country_code"`
	Quarters    [4]decimal.Decimal `json:"quarters"`
	Total       decimal.Decimal    `json:"total"`
}

// ReportTotals sums the surviving aggregates of one side.
type ReportTotals struct {
	Quarters [4]decimal.Decimal `json:"quarters"`
	Total    decimal.Decimal    `json:"total"`
}

// DeclarationContext carries the parameters of one declaration run.
type DeclarationContext struct {
	ExerciseCode string          `json:"exercise"`
	Examine      ExamineMode     `json:"examine"`
	Grouping     GroupingMode    `json:"grouping"`
	ExcludeIRPF  bool            `json:"exclude_irpf"`
	MinAmount    decimal.Decimal `json:"amount"`
	ActiveTab    Side            `json:"active_tab"`
}

// Validate checks the enumerated fields and the threshold.
func (c DeclarationContext) Validate() error {
	if strings.TrimSpace(c.ExerciseCode) == "" {
		return fmt.Errorf("%w: exercise code required", ErrInvalidParams)
	}
	if _, err := ParseExamineMode(string(c.Examine)); err != nil {
		return err
	}
	if _, err := ParseGroupingMode(string(c.Grouping)); err != nil {
		return err
	}
	if _, err := ParseSide(string(c.ActiveTab)); err != nil {
		return err
	}
	if c.MinAmount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidParams)
	}
	return nil
}

// CompanyInfo identifies the declarant.
type CompanyInfo struct {
	ID            int64  `json:"id"`
	TaxID         string `json:"tax_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Administrator string `json:"administrator"`
}

// ExerciseStatusOpen marks an exercise that still accepts postings.
const ExerciseStatusOpen = "OPEN"

// ExerciseInfo is a fiscal year of a company.
type ExerciseInfo struct {
	Code      string    `json:"code"`
	CompanyID int64     `json:"company_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

// Year is the declared year, taken from the start date.
func (e ExerciseInfo) Year() int {
	return e.StartDate.Year()
}

// IsOpen reports whether the exercise is still open.
func (e ExerciseInfo) IsOpen() bool {
	return strings.EqualFold(e.Status, ExerciseStatusOpen)
}

// PartyInfo is the master data of a customer or supplier with its default
// address.
type PartyInfo struct {
	Code        string
	TaxID       string
	TaxIDType   string
	Name        string
	PostalCode  string
	City        string
	Province    string
	CountryCode string
}

// InvoiceRow is one (party, month) sum of invoice totals.
type InvoiceRow struct {
	PartyCode string
	TaxID     string
	Month     string
	Total     decimal.Decimal
}

// Validate checks the columns aggregation depends on.
func (r InvoiceRow) Validate() error {
	if strings.TrimSpace(r.PartyCode) == "" {
		return fmt.Errorf("%w: invoice row party code", ErrMissingField)
	}
	return nil
}

// LedgerRow is one (sub-account, month) sum of postings.
type LedgerRow struct {
	SubAccountCode string
	Month          string
	Total          decimal.Decimal
}

// Validate checks the columns aggregation depends on.
func (r LedgerRow) Validate() error {
	if strings.TrimSpace(r.SubAccountCode) == "" {
		return fmt.Errorf("%w: ledger row sub-account code", ErrMissingField)
	}
	return nil
}

// SideResult is the aggregation output of one side.
type SideResult struct {
	Rows   []PartyAggregate `json:"rows"`
	Totals ReportTotals     `json:"totals"`
}

// Warning is an advisory finding that does not stop the declaration.
type Warning struct {
	Key     string            `json:"key"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// Report is a fully aggregated declaration ready for export.
type Report struct {
	Context   DeclarationContext `json:"context"`
	Exercise  ExerciseInfo       `json:"exercise"`
	Company   CompanyInfo        `json:"company"`
	Customers SideResult         `json:"customers"`
	Suppliers SideResult         `json:"suppliers"`
	Warnings  []Warning          `json:"warnings"`
}

// Side returns the result of side s.
func (r Report) Side(s Side) SideResult {
	if s == SideSuppliers {
		return r.Suppliers
	}
	return r.Customers
}

// PartyCount is the number of declared parties across both sides.
func (r Report) PartyCount() int {
	return len(r.Customers.Rows) + len(r.Suppliers.Rows)
}
