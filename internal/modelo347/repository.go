package modelo347

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/modelo347/internal/platform/db"
)

// Schema creates the tables the repository reads from.
//
//go:embed schema.sql
var Schema string

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads invoices, ledger postings and master data from Postgres.
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// ReadOnly runs fn with a repository bound to a read-only RepeatableRead
// transaction. Nested calls reuse the open transaction.
func (r *Repository) ReadOnly(ctx context.Context, fn func(RepositoryPort) error) error {
	if r == nil || r.q == nil {
		return fmt.Errorf("modelo347: repository not initialised")
	}
	if r.pool == nil {
		return fn(r)
	}
	return db.WithReadOnlyTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{q: tx})
	})
}

type sideTables struct {
	invoices string
	code     string
	parties  string
	// ledger column summed per posting and the special accounts holding
	// the party sub-accounts
	column  string
	special []string
}

func tablesFor(side Side) sideTables {
	if side == SideSuppliers {
		return sideTables{
			invoices: "supplier_invoices",
			code:     "supplier_code",
			parties:  "suppliers",
			column:   "credit",
			special:  []string{"PROVEE", "ACREED"},
		}
	}
	return sideTables{
		invoices: "customer_invoices",
		code:     "customer_code",
		parties:  "customers",
		column:   "debit",
		special:  []string{"CLIENT"},
	}
}

// InvoiceRows implements Source.
func (r *Repository) InvoiceRows(ctx context.Context, side Side, exerciseCode string, excludeIRPF bool) ([]InvoiceRow, error) {
	t := tablesFor(side)
	sql := fmt.Sprintf(`SELECT %[2]s, COALESCE(tax_id, ''), to_char(invoice_date, 'FMMM'), COALESCE(SUM(total), 0)
FROM %[1]s
WHERE exercise_code = $1
  AND COALESCE(exclude_347, false) = false
  AND ($2::boolean = false OR irpf = 0)
GROUP BY 1, 2, 3
ORDER BY 1, 2, 3`, t.invoices, t.code)

	rows, err := r.q.Query(ctx, sql, exerciseCode, excludeIRPF)
	if err != nil {
		return nil, fmt.Errorf("modelo347: query %s: %w", t.invoices, err)
	}
	defer rows.Close()

	var out []InvoiceRow
	for rows.Next() {
		var (
			row   InvoiceRow
			month *string
		)
		if err := rows.Scan(&row.PartyCode, &row.TaxID, &month, &row.Total); err != nil {
			return nil, err
		}
		if month != nil {
			row.Month = *month
		}
		row.TaxID = strings.TrimSpace(row.TaxID)
		out = append(out, row)
	}
	return out, rows.Err()
}

// LedgerRows implements Source. Postings of entries with a special
// operation such as opening or closing are left out.
func (r *Repository) LedgerRows(ctx context.Context, side Side, exercise ExerciseInfo) ([]LedgerRow, error) {
	t := tablesFor(side)
	sql := fmt.Sprintf(`SELECT s.code, to_char(e.entry_date, 'FMMM'), COALESCE(SUM(l.%s), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN ledger_subaccounts s ON s.id = l.subaccount_id
JOIN ledger_accounts a ON a.id = s.account_id
WHERE a.exercise_code = $1
  AND a.special_account = ANY($2)
  AND e.operation IS NULL
  AND e.entry_date >= $3
  AND e.entry_date <= $4
GROUP BY s.id, s.code, 2
ORDER BY s.id, 2`, t.column)

	rows, err := r.q.Query(ctx, sql, exercise.Code, t.special, exercise.StartDate, exercise.EndDate)
	if err != nil {
		return nil, fmt.Errorf("modelo347: query ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var (
			row   LedgerRow
			month *string
		)
		if err := rows.Scan(&row.SubAccountCode, &month, &row.Total); err != nil {
			return nil, err
		}
		if month != nil {
			row.Month = *month
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const partyColumns = `p.code, COALESCE(p.tax_id, ''), COALESCE(p.tax_id_type, ''), COALESCE(p.legal_name, ''),
COALESCE(a.postal_code, ''), COALESCE(a.city, ''), COALESCE(a.province, ''), COALESCE(a.country_code, '')`

// Party implements Source.
func (r *Repository) Party(ctx context.Context, side Side, code string) (PartyInfo, error) {
	t := tablesFor(side)
	sql := fmt.Sprintf(`SELECT %s
FROM %s p
LEFT JOIN addresses a ON a.id = p.default_address_id
WHERE p.code = $1`, partyColumns, t.parties)
	return scanParty(r.q.QueryRow(ctx, sql, code))
}

// PartyBySubAccount implements Source.
func (r *Repository) PartyBySubAccount(ctx context.Context, side Side, subAccountCode string) (PartyInfo, error) {
	t := tablesFor(side)
	sql := fmt.Sprintf(`SELECT %s
FROM %s p
LEFT JOIN addresses a ON a.id = p.default_address_id
WHERE p.subaccount_code = $1
ORDER BY p.code
LIMIT 1`, partyColumns, t.parties)
	return scanParty(r.q.QueryRow(ctx, sql, subAccountCode))
}

func scanParty(row pgx.Row) (PartyInfo, error) {
	var p PartyInfo
	err := row.Scan(&p.Code, &p.TaxID, &p.TaxIDType, &p.Name, &p.PostalCode, &p.City, &p.Province, &p.CountryCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return PartyInfo{}, ErrPartyNotFound
	}
	if err != nil {
		return PartyInfo{}, err
	}
	return p, nil
}

// Exercise loads an exercise by code.
func (r *Repository) Exercise(ctx context.Context, code string) (ExerciseInfo, error) {
	var e ExerciseInfo
	err := r.q.QueryRow(ctx, `SELECT code, company_id, start_date, end_date, status
FROM exercises WHERE code = $1`, code).Scan(&e.Code, &e.CompanyID, &e.StartDate, &e.EndDate, &e.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExerciseInfo{}, ErrExerciseNotFound
	}
	if err != nil {
		return ExerciseInfo{}, fmt.Errorf("modelo347: load exercise: %w", err)
	}
	return e, nil
}

// Exercises lists exercises newest first.
func (r *Repository) Exercises(ctx context.Context, companyID int64) ([]ExerciseInfo, error) {
	rows, err := r.q.Query(ctx, `SELECT code, company_id, start_date, end_date, status
FROM exercises
WHERE ($1::bigint = 0 OR company_id = $1)
ORDER BY start_date DESC, code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("modelo347: list exercises: %w", err)
	}
	defer rows.Close()

	var out []ExerciseInfo
	for rows.Next() {
		var e ExerciseInfo
		if err := rows.Scan(&e.Code, &e.CompanyID, &e.StartDate, &e.EndDate, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Company loads the declarant.
func (r *Repository) Company(ctx context.Context, id int64) (CompanyInfo, error) {
	var c CompanyInfo
	err := r.q.QueryRow(ctx, `SELECT id, tax_id, legal_name, COALESCE(phone, ''), COALESCE(administrator, '')
FROM companies WHERE id = $1`, id).Scan(&c.ID, &c.TaxID, &c.Name, &c.Phone, &c.Administrator)
	if errors.Is(err, pgx.ErrNoRows) {
		return CompanyInfo{}, ErrCompanyNotFound
	}
	if err != nil {
		return CompanyInfo{}, fmt.Errorf("modelo347: load company: %w", err)
	}
	return c, nil
}

// CountryISOCodes implements CountryLookup.
func (r *Repository) CountryISOCodes(ctx context.Context, codes []string) (map[string]string, error) {
	out := make(map[string]string, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT upper(code), COALESCE(iso_code, '')
FROM countries WHERE upper(code) = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("modelo347: query countries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, iso string
		if err := rows.Scan(&code, &iso); err != nil {
			return nil, err
		}
		if iso != "" {
			out[code] = iso
		}
	}
	return out, rows.Err()
}
