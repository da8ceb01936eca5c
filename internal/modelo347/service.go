package modelo347

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/modelo347/internal/modelo347/fixedwidth"
	"github.com/odyssey-erp/modelo347/internal/modelo347/locality"
)

// RepositoryPort is the storage contract of the service.
type RepositoryPort interface {
	Source
	CountryLookup
	Exercise(ctx context.Context, code string) (ExerciseInfo, error)
	// Exercises lists exercises newest first. companyID 0 lists every company.
	Exercises(ctx context.Context, companyID int64) ([]ExerciseInfo, error)
	Company(ctx context.Context, id int64) (CompanyInfo, error)
	// ReadOnly runs fn against a repository bound to one consistent snapshot.
	ReadOnly(ctx context.Context, fn func(RepositoryPort) error) error
}

// CountryResolver resolves the country codes of a report to ISO codes.
type CountryResolver interface {
	Resolve(ctx context.Context, codes []string) (locality.ISOTable, error)
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	MinAmount  decimal.Decimal
	Cents      fixedwidth.CentsPolicy
	Translator Translator
	Logger     *slog.Logger
}

// Service builds declarations and their exports.
type Service struct {
	repo       RepositoryPort
	countries  CountryResolver
	minAmount  decimal.Decimal
	cents      fixedwidth.CentsPolicy
	translator Translator
	logger     *slog.Logger
}

// NewService wires the repository and the country resolver. A nil resolver
// queries the repository directly.
func NewService(repo RepositoryPort, countries CountryResolver, opts Options) *Service {
	if countries == nil {
		countries = NewCountryCache(nil, 0, repo, opts.Logger)
	}
	if opts.MinAmount.IsZero() {
		opts.MinAmount = DefaultMinAmount
	}
	if opts.Translator == nil {
		opts.Translator = NoopTranslator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		countries:  countries,
		minAmount:  opts.MinAmount,
		cents:      opts.Cents,
		translator: opts.Translator,
		logger:     opts.Logger,
	}
}

// Params are the raw request parameters of a declaration.
type Params struct {
	Exercise    string
	Examine     string
	Grouping    string
	Amount      string
	ExcludeIRPF bool
	ActiveTab   string
}

// Resolve validates params and fills the defaults: the first open exercise,
// invoices, grouping by party and the configured threshold.
func (s *Service) Resolve(ctx context.Context, p Params) (DeclarationContext, error) {
	examine, err := ParseExamineMode(p.Examine)
	if err != nil {
		return DeclarationContext{}, err
	}
	grouping, err := ParseGroupingMode(p.Grouping)
	if err != nil {
		return DeclarationContext{}, err
	}
	tab, err := ParseSide(p.ActiveTab)
	if err != nil {
		return DeclarationContext{}, err
	}
	amount := s.minAmount
	if raw := strings.TrimSpace(p.Amount); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			return DeclarationContext{}, fmt.Errorf("%w: amount %q", ErrInvalidParams, p.Amount)
		}
	}
	code := strings.TrimSpace(p.Exercise)
	if code == "" {
		exercise, err := s.DefaultExercise(ctx)
		if err != nil {
			return DeclarationContext{}, err
		}
		code = exercise.Code
	}
	dc := DeclarationContext{
		ExerciseCode: code,
		Examine:      examine,
		Grouping:     grouping,
		ExcludeIRPF:  p.ExcludeIRPF,
		MinAmount:    amount,
		ActiveTab:    tab,
	}
	return dc, dc.Validate()
}

// DefaultExercise returns the most recent open exercise.
func (s *Service) DefaultExercise(ctx context.Context) (ExerciseInfo, error) {
	list, err := s.repo.Exercises(ctx, 0)
	if err != nil {
		return ExerciseInfo{}, fmt.Errorf("modelo347: list exercises: %w", err)
	}
	for _, ex := range list {
		if ex.IsOpen() {
			return ex, nil
		}
	}
	return ExerciseInfo{}, ErrExerciseNotFound
}

// Exercises lists the exercises of a company, or of every company when
// companyID is 0.
func (s *Service) Exercises(ctx context.Context, companyID int64) ([]ExerciseInfo, error) {
	return s.repo.Exercises(ctx, companyID)
}

// Build aggregates both sides of the declaration from one database snapshot
// and runs the advisory checks. Warnings are logged and returned.
func (s *Service) Build(ctx context.Context, dc DeclarationContext) (Report, error) {
	if err := dc.Validate(); err != nil {
		return Report{}, err
	}
	report := Report{Context: dc}
	err := s.repo.ReadOnly(ctx, func(repo RepositoryPort) error {
		exercise, err := repo.Exercise(ctx, dc.ExerciseCode)
		if err != nil {
			return err
		}
		company, err := repo.Company(ctx, exercise.CompanyID)
		if err != nil {
			return err
		}
		customers, suppliers, err := NewEngine(repo).AggregateAll(ctx, dc, exercise)
		if err != nil {
			return err
		}
		report.Exercise = exercise
		report.Company = company
		report.Customers = customers
		report.Suppliers = suppliers
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	report.Warnings = s.Check(report)
	for _, w := range report.Warnings {
		s.logger.Warn("modelo347 advisory",
			slog.String("key", w.Key),
			slog.String("exercise", dc.ExerciseCode),
			slog.Any("context", w.Context),
		)
	}
	return report, nil
}

// Check reports missing company contact data, an empty declaration and
// declared parties without province or country.
func (s *Service) Check(report Report) []Warning {
	var out []Warning
	company := map[string]string{"company": report.Company.Name}
	if strings.TrimSpace(report.Company.Administrator) == "" {
		out = append(out, s.warning(KeyCompanyAdminNone, company))
	}
	if strings.TrimSpace(report.Company.Phone) == "" {
		out = append(out, s.warning(KeyCompanyPhoneNone, company))
	}
	if report.PartyCount() == 0 {
		out = append(out, s.warning(KeyNoData, nil))
	}
	for _, side := range []Side{SideCustomers, SideSuppliers} {
		for _, row := range report.Side(side).Rows {
			ctx := map[string]string{
				"cifnif": row.TaxID,
				"name":   row.DisplayName,
				"type":   s.translator.Trans(side.PartyType()),
			}
			if strings.TrimSpace(row.Province) == "" {
				out = append(out, s.warning(KeyNoProvince, ctx))
			}
			if strings.TrimSpace(row.CountryCode) == "" {
				out = append(out, s.warning(KeyNoCountry, ctx))
			}
		}
	}
	return out
}

func (s *Service) warning(key string, ctx map[string]string) Warning {
	return Warning{Key: key, Message: s.translator.Trans(key), Context: ctx}
}

// TextFileName is the download name of the fixed-width file.
func (s *Service) TextFileName() string {
	return s.translator.Trans(KeyModel347) + ".txt"
}

// Translator exposes the translator used for headers and file names.
func (s *Service) Translator() Translator {
	return s.translator
}

// Declaration converts report into encoder input and resolves the country
// codes of every declared party.
func (s *Service) Declaration(ctx context.Context, report Report) (fixedwidth.Declaration, locality.ISOTable, error) {
	var codes []string
	for _, side := range []Side{SideCustomers, SideSuppliers} {
		for _, row := range report.Side(side).Rows {
			codes = append(codes, row.CountryCode)
		}
	}
	table, err := s.countries.Resolve(ctx, codes)
	if err != nil {
		return fixedwidth.Declaration{}, nil, err
	}
	decl := fixedwidth.Declaration{
		Year: report.Exercise.Year(),
		Declarant: fixedwidth.Declarant{
			TaxID:         report.Company.TaxID,
			Name:          report.Company.Name,
			Phone:         report.Company.Phone,
			Administrator: report.Company.Administrator,
		},
		Customers: toParties(report.Customers.Rows),
		Suppliers: toParties(report.Suppliers.Rows),
	}
	return decl, table, nil
}

// WriteText encodes report in the fixed-width layout as ISO-8859-1.
func (s *Service) WriteText(ctx context.Context, w io.Writer, report Report) error {
	decl, table, err := s.Declaration(ctx, report)
	if err != nil {
		return err
	}
	return fixedwidth.NewEncoder(s.cents, table).Write(w, decl)
}

func toParties(rows []PartyAggregate) []fixedwidth.Party {
	out := make([]fixedwidth.Party, len(rows))
	for i, row := range rows {
		out[i] = fixedwidth.Party{
			Name:        row.DisplayName,
			TaxID:       row.TaxID,
			TaxIDType:   row.TaxIDType,
			Province:    row.Province,
			CountryCode: row.CountryCode,
			Quarters:    row.Quarters,
			Total:       row.Total,
		}
	}
	return out
}
