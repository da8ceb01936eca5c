package modelo347http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/modelo347/internal/modelo347"
	"github.com/odyssey-erp/modelo347/internal/modelo347/export"
	"github.com/odyssey-erp/modelo347/internal/observability"
	"github.com/odyssey-erp/modelo347/internal/platform/httpx"
)

// Download actions.
const (
	ActionExcel = "download-excel"
	ActionText  = "download-txt"
	ActionPDF   = "download-pdf"
)

const requestTimeout = 30 * time.Second

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service is the declaration contract used by the handler.
type Service interface {
	Resolve(ctx context.Context, p modelo347.Params) (modelo347.DeclarationContext, error)
	Build(ctx context.Context, dc modelo347.DeclarationContext) (modelo347.Report, error)
	Exercises(ctx context.Context, companyID int64) ([]modelo347.ExerciseInfo, error)
	WriteText(ctx context.Context, w io.Writer, report modelo347.Report) error
	TextFileName() string
	Translator() modelo347.Translator
}

// PDFRenderer converts an HTML page to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves the declaration preview and its downloads.
type Handler struct {
	logger    *slog.Logger
	service   Service
	pdf       PDFRenderer
	metrics   *observability.ExportMetrics
	exportDir string
	validator *validator.Validate
}

// NewHandler constructs the handler. Text exports are staged in exportDir,
// or in the OS temp dir when it is empty.
func NewHandler(logger *slog.Logger, service Service, pdf PDFRenderer, metrics *observability.ExportMetrics, exportDir string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if exportDir == "" {
		exportDir = os.TempDir()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		pdf:       pdf,
		metrics:   metrics,
		exportDir: exportDir,
		validator: validator.New(),
	}
}

type declarationForm struct {
	Exercise    string `validate:"omitempty,max=32"`
	Examine     string `validate:"omitempty,oneof=invoices accounting"`
	Grouping    string `validate:"omitempty,oneof=cifnif customer-supplier"`
	Amount      string `validate:"omitempty,numeric"`
	ExcludeIRPF string `validate:"omitempty,oneof=0 1 true false on off"`
	ActiveTab   string `validate:"omitempty,oneof=customers suppliers"`
	Action      string `validate:"omitempty,oneof=download-excel download-txt download-pdf"`
}

type previewResponse struct {
	Report     modelo347.Report         `json:"report"`
	AllExamine []modelo347.ExamineMode  `json:"all_examine"`
	AllGroupBy []modelo347.GroupingMode `json:"all_group_by"`
}

func (h *Handler) handleDeclaration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	form := declarationForm{
		Exercise:    r.FormValue("codejercicio"),
		Examine:     r.FormValue("examine"),
		Grouping:    r.FormValue("grouping"),
		Amount:      r.FormValue("amount"),
		ExcludeIRPF: strings.ToLower(r.FormValue("excludeirpf")),
		ActiveTab:   r.FormValue("activetab"),
		Action:      r.FormValue("action"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.respondValidation(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dc, err := h.service.Resolve(ctx, modelo347.Params{
		Exercise:    form.Exercise,
		Examine:     form.Examine,
		Grouping:    form.Grouping,
		Amount:      form.Amount,
		ExcludeIRPF: truthy(form.ExcludeIRPF),
		ActiveTab:   form.ActiveTab,
	})
	if err != nil {
		h.respondError(w, "resolve parameters", err)
		return
	}
	report, err := h.service.Build(ctx, dc)
	if err != nil {
		h.respondError(w, "build declaration", err)
		return
	}
	h.metrics.Parties(report.PartyCount())

	switch form.Action {
	case ActionExcel:
		h.downloadExcel(w, report)
	case ActionText:
		h.downloadText(ctx, w, report)
	case ActionPDF:
		h.downloadPDF(ctx, w, report)
	default:
		httpx.JSON(w, http.StatusOK, previewResponse{
			Report:     report,
			AllExamine: modelo347.ExamineModes(),
			AllGroupBy: modelo347.GroupingModes(),
		})
	}
}

func (h *Handler) handleExercises(w http.ResponseWriter, r *http.Request) {
	var companyID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("company_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id must be a positive integer")
			return
		}
		companyID = id
	}
	list, err := h.service.Exercises(r.Context(), companyID)
	if err != nil {
		h.respondError(w, "list exercises", err)
		return
	}
	if list == nil {
		list = []modelo347.ExerciseInfo{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"exercises": list})
}

func (h *Handler) downloadExcel(w http.ResponseWriter, report modelo347.Report) {
	tr := h.service.Translator()
	name := tr.Trans(modelo347.KeyModel347)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.Sheets(report, tr), name); err != nil {
		h.metrics.Export("xlsx", observability.OutcomeError)
		h.handleServerError(w, "write xlsx", err)
		return
	}
	h.metrics.Export("xlsx", observability.OutcomeOK)
	httpx.Attachment(w, xlsxContentType, name+".xlsx", false)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// downloadText stages the file on disk, streams it and removes it whatever
// the outcome. Nothing is streamed when the file cannot be written.
func (h *Handler) downloadText(ctx context.Context, w http.ResponseWriter, report modelo347.Report) {
	name := h.service.TextFileName()
	path := filepath.Join(h.exportDir, uuid.NewString()+"-"+name)

	f, err := os.Create(path)
	if err != nil {
		h.metrics.Export("txt", observability.OutcomeError)
		h.handleServerError(w, "create export file", err)
		return
	}
	defer func() {
		_ = f.Close()
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("remove export file", slog.String("path", path), slog.Any("error", err))
		}
	}()

	if err := h.service.WriteText(ctx, f, report); err != nil {
		h.metrics.Export("txt", observability.OutcomeError)
		h.handleServerError(w, "write export file", err)
		return
	}
	if err := f.Sync(); err != nil {
		h.metrics.Export("txt", observability.OutcomeError)
		h.handleServerError(w, "sync export file", err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		h.metrics.Export("txt", observability.OutcomeError)
		h.handleServerError(w, "rewind export file", err)
		return
	}

	h.metrics.Export("txt", observability.OutcomeOK)
	httpx.Attachment(w, "text/plain; charset=ISO-8859-1", name, true)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("stream export file", slog.Any("error", err))
	}
}

func (h *Handler) downloadPDF(ctx context.Context, w http.ResponseWriter, report modelo347.Report) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf renderer not configured")
		return
	}
	tr := h.service.Translator()
	data, err := h.pdf.RenderHTML(ctx, export.HTML(report, tr))
	if err != nil {
		h.metrics.Export("pdf", observability.OutcomeError)
		h.logger.Error("render modelo347 pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
		return
	}
	h.metrics.Export("pdf", observability.OutcomeOK)
	httpx.Attachment(w, "application/pdf", tr.Trans(modelo347.KeyModel347)+".pdf", false)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) respondValidation(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", strings.Join(parts, "; "))
		return
	}
	httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrValidation) {
		httpx.RespondError(w, err)
		return
	}
	h.handleServerError(w, op, err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func truthy(v string) bool {
	switch v {
	case "1", "true", "on":
		return true
	}
	return false
}
