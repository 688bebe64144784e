package taxhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
	"paycore/internal/domain/ytd"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	service *tax.Service
}

func NewHandler(service *tax.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Post("/tax/calculate", h.handleCalculate)
}

type calculatePayload struct {
	Gross                 string `json:"gross" validate:"required"`
	Frequency             string `json:"frequency" validate:"required,oneof=weekly biweekly semi_monthly monthly"`
	FilingStatus          string `json:"filingStatus" validate:"required,oneof=single married_filing_jointly married_filing_separately head_of_household"`
	Dependents            int    `json:"dependents" validate:"gte=0"`
	AdditionalWithholding string `json:"additionalWithholding"`
	Exempt                bool   `json:"exempt"`
	WorkState             string `json:"workState" validate:"required"`
	LocalCode             string `json:"localCode"`
	AsOf                  string `json:"asOf"`

	// Optional YTD context for wage-base and threshold behavior.
	YTDGross               string `json:"ytdGross"`
	YTDSocialSecurityWages string `json:"ytdSocialSecurityWages"`
}

// handleCalculate computes withholding for a hypothetical pay event. No
// state is written; this is the what-if surface for payroll admins.
func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload calculatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", requestID)
		return
	}
	if shared.Reject(w, requestID, shared.ValidateStruct(payload)) {
		return
	}

	gross, err := decimal.NewFromString(payload.Gross)
	if err != nil || gross.IsNegative() {
		api.Fail(w, http.StatusBadRequest, "invalid_amount", "gross must be a non-negative decimal", requestID)
		return
	}
	extra := decimal.Zero
	if payload.AdditionalWithholding != "" {
		extra, err = decimal.NewFromString(payload.AdditionalWithholding)
		if err != nil || extra.IsNegative() {
			api.Fail(w, http.StatusBadRequest, "invalid_amount", "additionalWithholding must be a non-negative decimal", requestID)
			return
		}
	}

	asOf := time.Now()
	if payload.AsOf != "" {
		parsed, parseErr := shared.ParseDate(payload.AsOf)
		if parseErr != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "asOf must be YYYY-MM-DD", requestID)
			return
		}
		asOf = parsed
	}

	accum := ytd.New("", asOf.Year())
	if payload.YTDGross != "" {
		accum.Gross, err = decimal.NewFromString(payload.YTDGross)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_amount", "ytdGross must be a decimal", requestID)
			return
		}
	}
	if payload.YTDSocialSecurityWages != "" {
		accum.SocialSecurityWages, err = decimal.NewFromString(payload.YTDSocialSecurityWages)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_amount", "ytdSocialSecurityWages must be a decimal", requestID)
			return
		}
	}

	result, err := h.service.CalculateAt(r.Context(), tax.CalcInput{
		Gross:       gross,
		FICAWages:   gross,
		IncomeWages: gross,
		Profile: tax.Profile{
			FilingStatus:          tax.FilingStatus(payload.FilingStatus),
			Dependents:            payload.Dependents,
			AdditionalWithholding: extra,
			Exempt:                payload.Exempt,
			WorkState:             payload.WorkState,
			HomeState:             payload.WorkState,
			LocalCode:             payload.LocalCode,
		},
		Frequency: tax.PayFrequency(payload.Frequency),
		YTD:       accum,
	}, asOf)
	if err != nil {
		if errors.Is(err, ruleset.ErrNotFound) {
			api.Fail(w, http.StatusConflict, "rules_missing", "no ruleset active for the date", requestID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "calculate_failed", err.Error(), requestID)
		return
	}

	api.Success(w, result, requestID)
}
