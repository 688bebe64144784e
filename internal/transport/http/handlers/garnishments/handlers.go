package garnishmentshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paycore/internal/domain/employee"
	"paycore/internal/domain/garnishment"
	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	store     garnishment.StoreAPI
	employees employee.StoreAPI
	rules     ruleset.Provider
}

func NewHandler(store garnishment.StoreAPI, employees employee.StoreAPI, rules ruleset.Provider) *Handler {
	return &Handler{store: store, employees: employees, rules: rules}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/garnishments", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/employee/{employeeID}", h.handleListByEmployee)
		r.Get("/{orderID}", h.handleGet)
		r.With(middleware.RequireManager).Post("/", h.handleCreate)
		r.With(middleware.RequireManager).Post("/{orderID}/deactivate", h.handleDeactivate)
		r.With(middleware.RequireManager).Post("/resolve", h.handleResolvePreview)
	})
}

type orderPayload struct {
	EmployeeID  string `json:"employeeId" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=child_support irs_levy bankruptcy student_loan creditor"`
	Priority    int    `json:"priority" validate:"gte=0"`
	AmountType  string `json:"amountType" validate:"required,oneof=fixed percent_disposable irs_table"`
	AmountValue string `json:"amountValue"`
	Payee       string `json:"payee" validate:"required"`
	CaseNumber  string `json:"caseNumber"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload orderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}

	amountType := garnishment.AmountType(payload.AmountType)
	amount := decimal.Zero
	if amountType != garnishment.AmountIRSTable {
		var err error
		amount, err = decimal.NewFromString(payload.AmountValue)
		if err != nil || !amount.IsPositive() {
			api.Fail(w, http.StatusBadRequest, "invalid_amount", "amountValue must be a positive decimal", requestID)
			return
		}
		if amountType == garnishment.AmountPercentDisposable && amount.GreaterThan(decimal.NewFromInt(1)) {
			api.Fail(w, http.StatusBadRequest, "invalid_amount", "percent amounts are a fraction between 0 and 1", requestID)
			return
		}
	}

	if _, err := h.employees.Get(r.Context(), payload.EmployeeID); err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not load employee", requestID)
		return
	}

	id, err := h.store.Create(r.Context(), garnishment.Order{
		EmployeeID:  payload.EmployeeID,
		Type:        garnishment.Type(payload.Type),
		Priority:    payload.Priority,
		AmountType:  amountType,
		AmountValue: amount,
		Payee:       payload.Payee,
		CaseNumber:  payload.CaseNumber,
		Active:      true,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not create garnishment order", requestID)
		return
	}

	order, err := h.store.Get(r.Context(), id)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "create_failed", "could not load created order", requestID)
		return
	}
	api.Created(w, order, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	order, err := h.store.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, garnishment.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "garnishment order not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "get_failed", "could not load order", requestID)
		return
	}
	api.Success(w, order, requestID)
}

func (h *Handler) handleListByEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	orders, err := h.store.ListByEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_failed", "could not list orders", requestID)
		return
	}
	api.Success(w, orders, requestID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "orderID")
	if err := h.store.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, garnishment.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "garnishment order not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "deactivate_failed", "could not deactivate order", requestID)
		return
	}
	api.Success(w, map[string]any{"id": id, "active": false}, requestID)
}

type resolvePreviewPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Disposable string `json:"disposable" validate:"required"`
	Frequency  string `json:"frequency" validate:"required,oneof=weekly biweekly semi_monthly monthly"`
	AsOf       string `json:"asOf"`
}

// handleResolvePreview resolves the employee's active orders against a
// hypothetical disposable amount without touching any run or YTD state.
func (h *Handler) handleResolvePreview(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload resolvePreviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}

	disposable, err := decimal.NewFromString(payload.Disposable)
	if err != nil || disposable.IsNegative() {
		api.Fail(w, http.StatusBadRequest, "invalid_amount", "disposable must be a non-negative decimal", requestID)
		return
	}
	asOf := time.Now()
	if payload.AsOf != "" {
		parsed, err := shared.ParseDate(payload.AsOf)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "asOf must be YYYY-MM-DD", requestID)
			return
		}
		asOf = parsed
	}

	emp, err := h.employees.Get(r.Context(), payload.EmployeeID)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "resolve_failed", "could not load employee", requestID)
		return
	}

	orders, err := h.store.ListActive(r.Context(), payload.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "resolve_failed", "could not load orders", requestID)
		return
	}

	garnSet, err := h.rules.Active(r.Context(), ruleset.KeyGarnishmentLimits, tax.JurisdictionFederal, asOf)
	if err != nil {
		api.Fail(w, http.StatusConflict, "rules_missing", "no garnishment ruleset active for the date", requestID)
		return
	}
	garnRules, err := garnSet.GarnishmentRules()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "resolve_failed", "garnishment ruleset payload is invalid", requestID)
		return
	}

	withholdings, err := garnishment.Resolve(garnishment.ResolveInput{
		Disposable:   disposable,
		Frequency:    tax.PayFrequency(payload.Frequency),
		FilingStatus: emp.Profile.FilingStatus,
		Dependents:   emp.Profile.Dependents,
		Orders:       orders,
		Rules:        garnRules,
	})
	if err != nil {
		if errors.Is(err, garnishment.ErrInvalidPriority) {
			api.Fail(w, http.StatusConflict, "invalid_priority", err.Error(), requestID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "resolve_failed", err.Error(), requestID)
		return
	}

	api.Success(w, map[string]any{
		"disposable":   disposable,
		"withholdings": withholdings,
	}, requestID)
}
