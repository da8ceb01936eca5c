package modelo347

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Source is the read side the engine aggregates from.
type Source interface {
	// InvoiceRows returns invoice totals per (party, tax id, month) for the
	// exercise, skipping invoices excluded from the declaration.
	InvoiceRows(ctx context.Context, side Side, exerciseCode string, excludeIRPF bool) ([]InvoiceRow, error)
	// LedgerRows returns posting sums per (sub-account, month) over the
	// special accounts of side within the exercise dates.
	LedgerRows(ctx context.Context, side Side, exercise ExerciseInfo) ([]LedgerRow, error)
	// Party loads a customer or supplier by code. ErrPartyNotFound when absent.
	Party(ctx context.Context, side Side, code string) (PartyInfo, error)
	// PartyBySubAccount loads the party owning a ledger sub-account.
	// ErrPartyNotFound when absent.
	PartyBySubAccount(ctx context.Context, side Side, subAccountCode string) (PartyInfo, error)
}

// entry is a source row normalised across data sources.
type entry struct {
	code  string
	taxID string
	month string
	total decimal.Decimal
	party *PartyInfo
}

type entrySource interface {
	entries(ctx context.Context, side Side) ([]entry, error)
}

type invoiceSource struct {
	src          Source
	exerciseCode string
	excludeIRPF  bool
}

func (s invoiceSource) entries(ctx context.Context, side Side) ([]entry, error) {
	rows, err := s.src.InvoiceRows(ctx, side, s.exerciseCode, s.excludeIRPF)
	if err != nil {
		return nil, fmt.Errorf("modelo347: %s invoice rows: %w", side, err)
	}
	out := make([]entry, 0, len(rows))
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, err
		}
		out = append(out, entry{code: row.PartyCode, taxID: row.TaxID, month: row.Month, total: row.Total})
	}
	return out, nil
}

type ledgerSource struct {
	src      Source
	exercise ExerciseInfo
}

func (s ledgerSource) entries(ctx context.Context, side Side) ([]entry, error) {
	rows, err := s.src.LedgerRows(ctx, side, s.exercise)
	if err != nil {
		return nil, fmt.Errorf("modelo347: %s ledger rows: %w", side, err)
	}
	owners := make(map[string]*PartyInfo)
	out := make([]entry, 0, len(rows))
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, err
		}
		party, seen := owners[row.SubAccountCode]
		if !seen {
			info, err := s.src.PartyBySubAccount(ctx, side, row.SubAccountCode)
			switch {
			case errors.Is(err, ErrPartyNotFound):
				party = nil
			case err != nil:
				return nil, fmt.Errorf("modelo347: sub-account %s owner: %w", row.SubAccountCode, err)
			default:
				party = &info
			}
			owners[row.SubAccountCode] = party
		}
		if party == nil {
			continue
		}
		out = append(out, entry{code: party.Code, taxID: party.TaxID, month: row.Month, total: row.Total, party: party})
	}
	return out, nil
}

// keyer picks the bucket of a row.
type keyer interface {
	key(code, taxID string) string
}

type codeKeyer struct{}

func (codeKeyer) key(code, _ string) string { return code }

// taxIDKeyer sends every code sharing a tax id to the bucket of the first
// code seen with it. Rows without a tax id keep their own code.
type taxIDKeyer struct {
	first map[string]string
}

func (k *taxIDKeyer) key(code, taxID string) string {
	if taxID == "" {
		return code
	}
	if c, ok := k.first[taxID]; ok {
		return c
	}
	k.first[taxID] = code
	return code
}

func newKeyer(mode GroupingMode) keyer {
	if mode == GroupByTaxID {
		return &taxIDKeyer{first: make(map[string]string)}
	}
	return codeKeyer{}
}

// Engine turns source rows into per-party aggregates.
type Engine struct {
	source Source
}

// NewEngine constructs an Engine over source.
func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

func (e *Engine) entrySource(dc DeclarationContext, exercise ExerciseInfo) entrySource {
	if dc.Examine == ExamineAccounting {
		return ledgerSource{src: e.source, exercise: exercise}
	}
	return invoiceSource{src: e.source, exerciseCode: exercise.Code, excludeIRPF: dc.ExcludeIRPF}
}

// Aggregate builds the aggregates of one side, drops parties at or below the
// threshold and totals the rest. Rows keep first-seen order.
func (e *Engine) Aggregate(ctx context.Context, dc DeclarationContext, exercise ExerciseInfo, side Side) (SideResult, error) {
	entries, err := e.entrySource(dc, exercise).entries(ctx, side)
	if err != nil {
		return SideResult{}, err
	}

	keys := newKeyer(dc.Grouping)
	buckets := make(map[string]*PartyAggregate)
	order := make([]string, 0)
	for _, en := range entries {
		k := keys.key(en.code, en.taxID)
		agg, ok := buckets[k]
		if !ok {
			agg, err = e.newAggregate(ctx, side, k, en.party)
			if err != nil {
				return SideResult{}, err
			}
			buckets[k] = agg
			order = append(order, k)
		}
		Accumulate(agg, en.month, en.total)
	}

	threshold := dc.MinAmount
	result := SideResult{Rows: make([]PartyAggregate, 0, len(order))}
	for _, k := range order {
		agg := buckets[k]
		if !agg.Total.GreaterThan(threshold) {
			continue
		}
		result.Rows = append(result.Rows, *agg)
		addTotals(&result.Totals, *agg)
	}
	return result, nil
}

// AggregateAll aggregates both sides, the active tab first.
func (e *Engine) AggregateAll(ctx context.Context, dc DeclarationContext, exercise ExerciseInfo) (customers, suppliers SideResult, err error) {
	first := SideCustomers
	if dc.ActiveTab == SideSuppliers {
		first = SideSuppliers
	}
	for _, side := range []Side{first, first.Other()} {
		res, err := e.Aggregate(ctx, dc, exercise, side)
		if err != nil {
			return SideResult{}, SideResult{}, err
		}
		if side == SideSuppliers {
			suppliers = res
		} else {
			customers = res
		}
	}
	return customers, suppliers, nil
}

func (e *Engine) newAggregate(ctx context.Context, side Side, code string, known *PartyInfo) (*PartyAggregate, error) {
	agg := &PartyAggregate{Code: code, DisplayName: code}
	info := known
	if info == nil {
		p, err := e.source.Party(ctx, side, code)
		switch {
		case errors.Is(err, ErrPartyNotFound):
			return agg, nil
		case err != nil:
			return nil, fmt.Errorf("modelo347: load %s %s: %w", side.PartyType(), code, err)
		}
		info = &p
	}
	agg.TaxID = info.TaxID
	agg.TaxIDType = info.TaxIDType
	if info.Name != "" {
		agg.DisplayName = info.Name
	}
	agg.PostalCode = info.PostalCode
	agg.City = info.City
	agg.Province = info.Province
	agg.CountryCode = info.CountryCode
	return agg, nil
}
