package rulesetshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/ruleset"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	store ruleset.StoreAPI
}

func NewHandler(store ruleset.StoreAPI) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rulesets", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Get("/active", h.handleActive)
		r.With(middleware.RequireAdmin).Post("/", h.handleCreate)
	})
}

type rulesetPayload struct {
	Key            string          `json:"key" validate:"required"`
	Jurisdiction   string          `json:"jurisdiction" validate:"required"`
	RuleType       string          `json:"ruleType" validate:"required,oneof=federal_income state_income local_income fica benefit_limits garnishment"`
	EffectiveStart string          `json:"effectiveStart" validate:"required"`
	EffectiveEnd   string          `json:"effectiveEnd"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload rulesetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}

	start, err := shared.ParseDate(payload.EffectiveStart)
	if err != nil || start.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "effectiveStart must be YYYY-MM-DD", requestID)
		return
	}
	var end *time.Time
	if payload.EffectiveEnd != "" {
		parsed, err := shared.ParseDate(payload.EffectiveEnd)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "effectiveEnd must be YYYY-MM-DD", requestID)
			return
		}
		end = &parsed
	}

	id, err := h.store.Create(r.Context(), ruleset.RuleSet{
		Key:            payload.Key,
		Jurisdiction:   payload.Jurisdiction,
		RuleType:       ruleset.RuleType(payload.RuleType),
		EffectiveStart: start,
		EffectiveEnd:   end,
		Payload:        payload.Payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, ruleset.ErrOverlap):
			api.Fail(w, http.StatusConflict, "overlap", "effective window overlaps an existing version", requestID)
		case errors.Is(err, ruleset.ErrInvalidPayload), errors.Is(err, ruleset.ErrInvalidWindow):
			api.Fail(w, http.StatusBadRequest, "invalid_ruleset", err.Error(), requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "create_failed", "could not create ruleset", requestID)
		}
		return
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	key := r.URL.Query().Get("key")
	jurisdiction := r.URL.Query().Get("jurisdiction")

	sets, err := h.store.List(r.Context(), key, jurisdiction)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_failed", "could not list rulesets", requestID)
		return
	}
	api.Success(w, sets, requestID)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	key := r.URL.Query().Get("key")
	jurisdiction := r.URL.Query().Get("jurisdiction")
	if key == "" || jurisdiction == "" {
		api.Fail(w, http.StatusBadRequest, "missing_params", "key and jurisdiction are required", requestID)
		return
	}
	asOf := time.Now()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "asOf must be YYYY-MM-DD", requestID)
			return
		}
		asOf = parsed
	}

	active, err := h.store.Active(r.Context(), key, jurisdiction, asOf)
	if err != nil {
		if errors.Is(err, ruleset.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "no ruleset active for the date", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "get_failed", "could not load ruleset", requestID)
		return
	}
	api.Success(w, active, requestID)
}
