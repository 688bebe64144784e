package runshandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/payrun"
	"paycore/internal/domain/tax"
	"paycore/internal/platform/jobs"
	"paycore/internal/platform/metrics"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

// Auditor records run lifecycle mutations.
type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID string, details any) error
}

type Handler struct {
	service      *payrun.Service
	processor    *payrun.Processor
	statements   *payrun.StatementWriter
	jobs         *jobs.Service
	collector    *metrics.Collector
	audit        Auditor
	idempotency  *middleware.IdempotencyStore
	statementDir string
}

func NewHandler(service *payrun.Service, processor *payrun.Processor, statements *payrun.StatementWriter,
	jobsSvc *jobs.Service, collector *metrics.Collector, audit Auditor,
	idempotency *middleware.IdempotencyStore, statementDir string) *Handler {
	return &Handler{
		service:      service,
		processor:    processor,
		statements:   statements,
		jobs:         jobsSvc,
		collector:    collector,
		audit:        audit,
		idempotency:  idempotency,
		statementDir: statementDir,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Get("/{runID}", h.handleGet)
		r.Get("/{runID}/results", h.handleResults)
		r.Get("/{runID}/register.csv", h.handleRegister)
		r.Get("/{runID}/results/{employeeID}/statement.pdf", h.handleStatement)

		r.With(middleware.RequireManager).Post("/", h.handleCreate)
		r.With(middleware.RequireManager).Post("/{runID}/members", h.handleAddMember)
		r.With(middleware.RequireManager).Delete("/{runID}/members/{employeeID}", h.handleRemoveMember)
		r.With(middleware.RequireManager).Post("/{runID}/submit", h.handleSubmit)
		r.With(middleware.RequireManager).Post("/{runID}/approve", h.handleApprove)
		r.With(middleware.RequireManager).Post("/{runID}/process", h.handleProcess)
	})
}

type createRunPayload struct {
	PeriodStart string `json:"periodStart" validate:"required"`
	PeriodEnd   string `json:"periodEnd" validate:"required"`
	PayDate     string `json:"payDate" validate:"required"`
	Frequency   string `json:"frequency" validate:"required,oneof=weekly biweekly semi_monthly monthly"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload createRunPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}

	start, err1 := shared.ParseDate(payload.PeriodStart)
	end, err2 := shared.ParseDate(payload.PeriodEnd)
	payDate, err3 := shared.ParseDate(payload.PayDate)
	if err1 != nil || err2 != nil || err3 != nil || start.IsZero() || end.IsZero() || payDate.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD", requestID)
		return
	}

	run, err := h.service.Create(r.Context(), start, end, payDate, tax.PayFrequency(payload.Frequency))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "create_failed", err.Error(), requestID)
		return
	}
	h.recordAudit(r, "run.create", run.ID, nil)
	api.Created(w, run, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	runs, err := h.service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_failed", "could not list runs", requestID)
		return
	}
	api.Success(w, runs, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.failRun(w, err, requestID)
		return
	}
	api.Success(w, run, requestID)
}

type memberPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload memberPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}

	runID := chi.URLParam(r, "runID")
	if err := h.service.AddMember(r.Context(), runID, payload.EmployeeID); err != nil {
		h.failRun(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"runId": runID, "employeeId": payload.EmployeeID}, requestID)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.service.RemoveMember(r.Context(), runID, employeeID); err != nil {
		h.failRun(w, err, requestID)
		return
	}
	api.Success(w, map[string]bool{"removed": true}, requestID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")
	if err := h.service.Submit(r.Context(), runID); err != nil {
		h.failRun(w, err, requestID)
		return
	}
	h.recordAudit(r, "run.submit", runID, nil)
	api.Success(w, map[string]string{"id": runID, "status": string(payrun.StatusPendingApproval)}, requestID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")
	if err := h.service.Approve(r.Context(), runID); err != nil {
		h.failRun(w, err, requestID)
		return
	}
	h.recordAudit(r, "run.approve", runID, nil)
	api.Success(w, map[string]string{"id": runID, "status": string(payrun.StatusApproved)}, requestID)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")
	user, _ := middleware.GetUser(r.Context())

	endpoint := "/runs/process"
	idemKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash([]byte(runID))
	if idemKey != "" {
		stored, found, err := h.idempotency.Check(r.Context(), user.UserID, endpoint, idemKey, requestHash)
		if err != nil {
			if errors.Is(err, middleware.ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
				return
			}
			api.Fail(w, http.StatusInternalServerError, "process_failed", "idempotency check failed", requestID)
			return
		}
		if found {
			var result payrun.RunResult
			if err := json.Unmarshal(stored, &result); err == nil {
				api.Success(w, result, requestID)
				return
			}
		}
	}

	started := time.Now()
	outcome, err := h.jobs.RunNow(r.Context(), jobs.JobRunProcess, func(ctx context.Context) (any, error) {
		return h.processor.Process(ctx, runID)
	})
	result, _ := outcome.(payrun.RunResult)
	if h.collector != nil {
		h.collector.RecordRun(err != nil, len(result.Results), time.Since(started))
	}
	if err != nil {
		h.recordAudit(r, "run.process_failed", runID, map[string]string{"reason": err.Error()})
		h.failRun(w, err, requestID)
		return
	}
	h.recordAudit(r, "run.process", runID, map[string]any{"employees": len(result.Results)})

	if h.statements != nil && h.statementDir != "" {
		run := result.Run
		results := result.Results
		h.jobs.Enqueue(jobs.JobStatementBatch, func(ctx context.Context) (any, error) {
			written := 0
			for _, res := range results {
				if _, err := h.statements.WriteFile(ctx, run, res, h.statementDir); err != nil {
					return map[string]int{"written": written}, err
				}
				written++
			}
			return map[string]int{"written": written}, nil
		})
	}

	if idemKey != "" {
		if payload, marshalErr := json.Marshal(result); marshalErr == nil {
			_ = h.idempotency.Save(r.Context(), user.UserID, endpoint, idemKey, requestHash, payload)
		}
	}

	api.Success(w, result, requestID)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")

	run, err := h.service.Get(r.Context(), runID)
	if err != nil {
		h.failRun(w, err, requestID)
		return
	}
	results, err := h.service.Results(r.Context(), runID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "results_failed", "could not load results", requestID)
		return
	}
	api.Success(w, payrun.RunResult{Run: run, Results: results}, requestID)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")

	run, err := h.service.Get(r.Context(), runID)
	if err != nil {
		h.failRun(w, err, requestID)
		return
	}
	if run.Status != payrun.StatusCompleted {
		api.Fail(w, http.StatusConflict, "not_completed", "register is available for completed runs only", requestID)
		return
	}
	results, err := h.service.Results(r.Context(), runID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "register_failed", "could not load results", requestID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=register_%s.csv", runID))
	_ = payrun.WriteRegister(w, run, results)
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")
	employeeID := chi.URLParam(r, "employeeID")

	run, err := h.service.Get(r.Context(), runID)
	if err != nil {
		h.failRun(w, err, requestID)
		return
	}
	results, err := h.service.Results(r.Context(), runID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "statement_failed", "could not load results", requestID)
		return
	}
	for _, result := range results {
		if result.EmployeeID != employeeID {
			continue
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=statement_%s_%s.pdf", runID, employeeID))
		if err := h.statements.Write(r.Context(), run, result, w); err != nil {
			return
		}
		return
	}
	api.Fail(w, http.StatusNotFound, "not_found", "no result for that employee in this run", requestID)
}

func (h *Handler) recordAudit(r *http.Request, action, runID string, details any) {
	if h.audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	_ = h.audit.Record(r.Context(), user.UserID, action, "payroll_run", runID, requestID, details)
}

func (h *Handler) failRun(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, payrun.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "payroll run not found", requestID)
	case errors.Is(err, payrun.ErrNoMembers):
		api.Fail(w, http.StatusConflict, "no_members", "payroll run has no employees", requestID)
	case errors.Is(err, payrun.ErrNotDraft):
		api.Fail(w, http.StatusConflict, "not_draft", "run membership can only change while the run is draft", requestID)
	case errors.Is(err, payrun.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, payrun.ErrNegativeNet):
		api.Fail(w, http.StatusUnprocessableEntity, "negative_net", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "run_error", err.Error(), requestID)
	}
}
