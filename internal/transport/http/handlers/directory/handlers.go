package directoryhandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrpay/internal/domain/directory"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
)

type Handler struct {
	Store *directory.Store
}

func NewHandler(store *directory.Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/employees", h.handleListEmployees)
	r.Get("/employees/{employeeID}", h.handleGetEmployee)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := h.Store.EmployeeByID(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		if errors.Is(err, directory.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}
