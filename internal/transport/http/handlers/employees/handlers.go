package employeeshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paycore/internal/domain/deduction"
	"paycore/internal/domain/employee"
	"paycore/internal/domain/tax"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	store employee.StoreAPI
}

func NewHandler(store employee.StoreAPI) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequireManager).Post("/", h.handleCreate)
		r.With(middleware.RequireManager).Put("/{employeeID}", h.handleUpdate)
		r.With(middleware.RequireManager).Post("/{employeeID}/terminate", h.handleTerminate)

		r.Get("/{employeeID}/elections", h.handleListElections)
		r.With(middleware.RequireManager).Post("/{employeeID}/elections", h.handleCreateElection)
		r.With(middleware.RequireManager).Delete("/{employeeID}/elections/{electionID}", h.handleDeleteElection)
	})
}

type employeePayload struct {
	FirstName             string `json:"firstName" validate:"required"`
	LastName              string `json:"lastName" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	AnnualSalary          string `json:"annualSalary" validate:"required"`
	BankAccount           string `json:"bankAccount"`
	FilingStatus          string `json:"filingStatus" validate:"required,oneof=single married_filing_jointly married_filing_separately head_of_household"`
	Dependents            int    `json:"dependents" validate:"gte=0"`
	AdditionalWithholding string `json:"additionalWithholding"`
	Exempt                bool   `json:"exempt"`
	WorkState             string `json:"workState" validate:"required"`
	HomeState             string `json:"homeState"`
	LocalCode             string `json:"localCode"`
}

func (p employeePayload) toEmployee(requestID string, w http.ResponseWriter) (employee.Employee, bool) {
	salary, err := decimal.NewFromString(p.AnnualSalary)
	if err != nil || salary.IsNegative() {
		api.Fail(w, http.StatusBadRequest, "invalid_amount", "annualSalary must be a non-negative decimal", requestID)
		return employee.Employee{}, false
	}
	extra := decimal.Zero
	if p.AdditionalWithholding != "" {
		extra, err = decimal.NewFromString(p.AdditionalWithholding)
		if err != nil || extra.IsNegative() {
			api.Fail(w, http.StatusBadRequest, "invalid_amount", "additionalWithholding must be a non-negative decimal", requestID)
			return employee.Employee{}, false
		}
	}
	homeState := p.HomeState
	if homeState == "" {
		homeState = p.WorkState
	}
	return employee.Employee{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Status:       employee.StatusActive,
		AnnualSalary: salary,
		BankAccount:  p.BankAccount,
		Profile: tax.Profile{
			FilingStatus:          tax.FilingStatus(p.FilingStatus),
			Dependents:            p.Dependents,
			AdditionalWithholding: extra,
			Exempt:                p.Exempt,
			WorkState:             p.WorkState,
			HomeState:             homeState,
			LocalCode:             p.LocalCode,
		},
	}, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	status := r.URL.Query().Get("status")

	employees, err := h.store.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_failed", "could not list employees", requestID)
		return
	}
	api.Success(w, employees, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	emp, err := h.store.Get(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "get_failed", "could not load employee", requestID)
		return
	}
	api.Success(w, emp, requestID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}
	emp, ok := payload.toEmployee(requestID, w)
	if !ok {
		return
	}

	id, err := h.store.Create(r.Context(), emp)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not create employee", requestID)
		return
	}
	created, err := h.store.Get(r.Context(), id)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not load created employee", requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}
	emp, ok := payload.toEmployee(requestID, w)
	if !ok {
		return
	}
	emp.ID = chi.URLParam(r, "employeeID")

	if err := h.store.Update(r.Context(), emp); err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "update_failed", "could not update employee", requestID)
		return
	}
	updated, err := h.store.Get(r.Context(), emp.ID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "update_failed", "could not load updated employee", requestID)
		return
	}
	api.Success(w, updated, requestID)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "employeeID")
	if err := h.store.SetStatus(r.Context(), id, employee.StatusTerminated); err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "terminate_failed", "could not terminate employee", requestID)
		return
	}
	api.Success(w, map[string]string{"id": id, "status": employee.StatusTerminated}, requestID)
}

type electionPayload struct {
	Category string `json:"category" validate:"required,oneof=health_premium hsa fsa 401k_traditional 401k_roth other_post_tax"`
	Amount   string `json:"amount" validate:"required"`
}

func (h *Handler) handleListElections(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	elections, err := h.store.ListElections(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_failed", "could not list elections", requestID)
		return
	}
	api.Success(w, elections, requestID)
}

func (h *Handler) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload electionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || !amount.IsPositive() {
		api.Fail(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive decimal", requestID)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if _, err := h.store.Get(r.Context(), employeeID); err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not load employee", requestID)
		return
	}

	id, err := h.store.CreateElection(r.Context(), employee.Election{
		EmployeeID: employeeID,
		Category:   deduction.Category(payload.Category),
		Amount:     amount,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not create election", requestID)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleDeleteElection(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	err := h.store.DeleteElection(r.Context(), chi.URLParam(r, "employeeID"), chi.URLParam(r, "electionID"))
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "election not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "delete_failed", "could not delete election", requestID)
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, requestID)
}
