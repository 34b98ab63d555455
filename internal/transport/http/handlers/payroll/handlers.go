package payrollhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/directory"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
)

type Handler struct {
	Service   *payroll.Service
	Directory *directory.Store
	Metrics   *metrics.Collector
}

func NewHandler(service *payroll.Service, dir *directory.Store, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Directory: dir, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Get("/periods", h.handleListPeriods)
		r.Post("/periods", h.handleCreatePeriod)
		r.Get("/periods/{periodID}", h.handleGetPeriod)
		r.Post("/periods/{periodID}/compute", h.handleComputePeriod)
		r.Post("/periods/{periodID}/close", h.handleClosePeriod)
		r.Post("/periods/{periodID}/reopen", h.handleReopenPeriod)
		r.Get("/periods/{periodID}/entries", h.handleListEntries)
		r.Get("/periods/{periodID}/slips", h.handleListSlips)
		r.Get("/periods/{periodID}/slips/{employeeID}", h.handleGetSlip)
		r.Get("/periods/{periodID}/slips/{employeeID}/pdf", h.handleSlipPDF)
		r.Get("/components", h.handleListComponents)
		r.Post("/components", h.handleCreateComponent)
		r.Patch("/components/{componentID}", h.handleSetComponentActive)
		r.Get("/tax-brackets", h.handleListBrackets)
		r.Post("/tax-brackets", h.handleCreateBracket)
	})
}

type periodPayload struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var payload periodPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	period, err := h.Service.CreatePeriod(r.Context(), payload.Month, payload.Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Service.ListPeriods(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Service.PeriodByID(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComputePeriod(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	slips, err := h.Service.ComputePeriod(r.Context(), chi.URLParam(r, "periodID"))
	if h.Metrics != nil {
		h.Metrics.RecordRun(err != nil, time.Since(started))
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, slips, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, err := h.Service.ClosePeriod(r.Context(), chi.URLParam(r, "periodID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReopenPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Service.ReopenPeriod(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.EntriesFor(r.Context(), chi.URLParam(r, "periodID"), r.URL.Query().Get("employeeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSlips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Service.SlipsByPeriod(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, slips, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetSlip(w http.ResponseWriter, r *http.Request) {
	slip, err := h.Service.SlipFor(r.Context(), chi.URLParam(r, "periodID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, slip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSlipPDF(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	employeeID := chi.URLParam(r, "employeeID")

	slip, err := h.Service.SlipFor(r.Context(), periodID, employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := h.Service.PeriodByID(r.Context(), periodID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	employee, err := h.Directory.EmployeeByID(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.Service.EntriesFor(r.Context(), periodID, employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Pay slip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employee.Name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %02d/%d", period.Month, period.Year))
	pdf.Ln(10)
	for _, entry := range entries {
		pdf.Cell(0, 7, fmt.Sprintf("%-16s %-32s %10s", entry.Category, entry.Description, entry.Amount.StringFixed(2)))
		pdf.Ln(6)
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %s", slip.GrossSalary.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deductions: %s", slip.TotalDeductions.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Net: %s", slip.NetSalary.StringFixed(2)))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%02d-%d.pdf", period.Month, period.Year))
	if err := pdf.Output(w); err != nil {
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render pay slip pdf", middleware.GetRequestID(r.Context()))
	}
}

type componentPayload struct {
	EmployeeID     string `json:"employeeId"`
	Type           string `json:"type"`
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	EffectiveFrom  string `json:"effectiveFrom"`
	EffectiveUntil string `json:"effectiveUntil,omitempty"`
}

func componentFromPayload(payload componentPayload) (payroll.Component, error) {
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return payroll.Component{}, fmt.Errorf("invalid amount %q", payload.Amount)
	}
	from, err := time.Parse("2006-01-02", payload.EffectiveFrom)
	if err != nil {
		return payroll.Component{}, fmt.Errorf("invalid effectiveFrom %q", payload.EffectiveFrom)
	}
	component := payroll.Component{
		EmployeeID:    payload.EmployeeID,
		Type:          payload.Type,
		Description:   payload.Description,
		Amount:        amount,
		Active:        true,
		EffectiveFrom: from,
	}
	if payload.EffectiveUntil != "" {
		until, err := time.Parse("2006-01-02", payload.EffectiveUntil)
		if err != nil {
			return payroll.Component{}, fmt.Errorf("invalid effectiveUntil %q", payload.EffectiveUntil)
		}
		component.EffectiveUntil = &until
	}
	return component, nil
}

func (h *Handler) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	var payload componentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	component, err := componentFromPayload(payload)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	created, err := h.Service.CreateComponent(r.Context(), component)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListComponents(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employeeId query parameter is required", middleware.GetRequestID(r.Context()))
		return
	}
	components, err := h.Service.ListComponents(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, components, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetComponentActive(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.SetComponentActive(r.Context(), chi.URLParam(r, "componentID"), payload.Active); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"active": payload.Active}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBrackets(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	brackets, err := h.Service.BracketsByKind(r.Context(), kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, brackets, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateBracket(w http.ResponseWriter, r *http.Request) {
	var bracket payroll.TaxBracket
	if err := json.NewDecoder(r.Body).Decode(&bracket); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	created, err := h.Service.CreateBracket(r.Context(), bracket)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// fail maps domain errors to distinct HTTP codes so callers can tell apart
// "already running" from "already closed" from "not found".
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrPeriodNotFound),
		errors.Is(err, payroll.ErrComponentNotFound),
		errors.Is(err, payroll.ErrSlipNotFound),
		errors.Is(err, directory.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPeriodClosed):
		api.Fail(w, http.StatusConflict, "period_closed", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPeriodCalculating):
		api.Fail(w, http.StatusConflict, "period_calculating", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPeriodNotOpen), errors.Is(err, payroll.ErrPeriodNotStuck):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPeriodExists):
		api.Fail(w, http.StatusConflict, "period_exists", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
