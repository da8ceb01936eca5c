package modelo347

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// memoryRepo is an in-memory RepositoryPort for tests.
type memoryRepo struct {
	mu          sync.Mutex
	invoices    map[Side][]InvoiceRow
	ledger      map[Side][]LedgerRow
	parties     map[Side]map[string]PartyInfo
	subAccounts map[Side]map[string]string
	exercises   []ExerciseInfo
	companies   map[int64]CompanyInfo
	countries   map[string]string

	irpfFiltered []InvoiceRow
	partyLookups int
	countryCalls int
	snapshots    int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices:    map[Side][]InvoiceRow{},
		ledger:      map[Side][]LedgerRow{},
		parties:     map[Side]map[string]PartyInfo{SideCustomers: {}, SideSuppliers: {}},
		subAccounts: map[Side]map[string]string{SideCustomers: {}, SideSuppliers: {}},
		companies:   map[int64]CompanyInfo{},
		countries:   map[string]string{},
	}
}

func (m *memoryRepo) addInvoice(side Side, code, taxID, month, total string) {
	m.invoices[side] = append(m.invoices[side], InvoiceRow{
		PartyCode: code, TaxID: taxID, Month: month, Total: decimal.RequireFromString(total),
	})
}

func (m *memoryRepo) addParty(side Side, p PartyInfo, subAccount string) {
	m.parties[side][p.Code] = p
	if subAccount != "" {
		m.subAccounts[side][subAccount] = p.Code
	}
}

func (m *memoryRepo) InvoiceRows(_ context.Context, side Side, _ string, excludeIRPF bool) ([]InvoiceRow, error) {
	if excludeIRPF {
		return m.irpfFiltered, nil
	}
	return append([]InvoiceRow(nil), m.invoices[side]...), nil
}

func (m *memoryRepo) LedgerRows(_ context.Context, side Side, _ ExerciseInfo) ([]LedgerRow, error) {
	return append([]LedgerRow(nil), m.ledger[side]...), nil
}

func (m *memoryRepo) Party(_ context.Context, side Side, code string) (PartyInfo, error) {
	m.mu.Lock()
	m.partyLookups++
	m.mu.Unlock()
	p, ok := m.parties[side][code]
	if !ok {
		return PartyInfo{}, ErrPartyNotFound
	}
	return p, nil
}

func (m *memoryRepo) PartyBySubAccount(ctx context.Context, side Side, subAccountCode string) (PartyInfo, error) {
	code, ok := m.subAccounts[side][subAccountCode]
	if !ok {
		return PartyInfo{}, ErrPartyNotFound
	}
	return m.Party(ctx, side, code)
}

func (m *memoryRepo) Exercise(_ context.Context, code string) (ExerciseInfo, error) {
	for _, e := range m.exercises {
		if e.Code == code {
			return e, nil
		}
	}
	return ExerciseInfo{}, ErrExerciseNotFound
}

func (m *memoryRepo) Exercises(_ context.Context, companyID int64) ([]ExerciseInfo, error) {
	var out []ExerciseInfo
	for _, e := range m.exercises {
		if companyID == 0 || e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memoryRepo) Company(_ context.Context, id int64) (CompanyInfo, error) {
	c, ok := m.companies[id]
	if !ok {
		return CompanyInfo{}, ErrCompanyNotFound
	}
	return c, nil
}

func (m *memoryRepo) CountryISOCodes(_ context.Context, codes []string) (map[string]string, error) {
	m.mu.Lock()
	m.countryCalls++
	m.mu.Unlock()
	out := map[string]string{}
	for _, c := range codes {
		if iso, ok := m.countries[strings.ToUpper(c)]; ok {
			out[c] = iso
		}
	}
	return out, nil
}

func (m *memoryRepo) ReadOnly(_ context.Context, fn func(RepositoryPort) error) error {
	m.snapshots++
	return fn(m)
}
