package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/modelo347/internal/modelo347"
	"github.com/odyssey-erp/modelo347/internal/modelo347/export"
)

// Export formats.
const (
	FormatText = "txt"
	FormatXLSX = "xlsx"
)

// Exporter is the part of the declaration service the export command needs.
type Exporter interface {
	Resolve(ctx context.Context, p modelo347.Params) (modelo347.DeclarationContext, error)
	Build(ctx context.Context, dc modelo347.DeclarationContext) (modelo347.Report, error)
	WriteText(ctx context.Context, w io.Writer, report modelo347.Report) error
	Translator() modelo347.Translator
}

// ExportOptions describes one export run.
type ExportOptions struct {
	Params modelo347.Params
	Format string
	// Output is a file path, "-" for stdout, or empty for the default name.
	Output string
	Stdout io.Writer
	Stderr io.Writer
}

// RunExport builds the declaration and writes it in the requested format.
// It returns the path written, or "-" for stdout.
func RunExport(ctx context.Context, svc Exporter, opts ExportOptions) (string, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatXLSX {
		return "", fmt.Errorf("unsupported format %q (want %s or %s)", opts.Format, FormatText, FormatXLSX)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	dc, err := svc.Resolve(ctx, opts.Params)
	if err != nil {
		return "", err
	}
	report, err := svc.Build(ctx, dc)
	if err != nil {
		return "", err
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(opts.Stderr, "warning: %s %s\n", w.Key, formatContext(w.Context))
	}

	write := func(w io.Writer) error {
		if format == FormatXLSX {
			tr := svc.Translator()
			return export.WriteXLSX(w, export.Sheets(report, tr), tr.Trans(modelo347.KeyModel347))
		}
		return svc.WriteText(ctx, w, report)
	}

	if opts.Output == "-" {
		return "-", write(opts.Stdout)
	}
	path := opts.Output
	if path == "" {
		path = svc.Translator().Trans(modelo347.KeyModel347) + "." + format
	}
	if err := writeFileAtomic(path, write); err != nil {
		return "", err
	}
	fmt.Fprintf(opts.Stderr, "exercise %s: %d customers, %d suppliers -> %s\n",
		dc.ExerciseCode, len(report.Customers.Rows), len(report.Suppliers.Rows), path)
	return path, nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".modelo347-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}

func formatContext(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ctx))
	for _, k := range []string{"cifnif", "name", "type"} {
		if v, ok := ctx[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

// NewExportCommand returns the `export` command.
func NewExportCommand() *cobra.Command {
	var opts ExportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the declaration of an exercise to a file",
		Example: `  modelo347 export --exercise 2024 --format txt -o model-347.txt
  modelo347 export --exercise 2024 --format xlsx --grouping cifnif`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			_, err = RunExport(cmd.Context(), rt.Service, opts)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Params.Exercise, "exercise", "", "exercise code (default: newest open exercise)")
	flags.StringVar(&opts.Params.Examine, "examine", "", "data source: invoices or accounting")
	flags.StringVar(&opts.Params.Grouping, "grouping", "", "grouping: customer-supplier or cifnif")
	flags.StringVar(&opts.Params.Amount, "amount", "", "reporting threshold in euros")
	flags.BoolVar(&opts.Params.ExcludeIRPF, "exclude-irpf", false, "ignore invoices carrying income tax withholding")
	flags.StringVar(&opts.Format, "format", FormatText, "output format: txt or xlsx")
	flags.StringVarP(&opts.Output, "output", "o", "", `output path, "-" for stdout`)
	return cmd
}
