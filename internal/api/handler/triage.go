package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/api/models"
	"github.com/ai4care/ai4care/internal/api/response"
	"github.com/ai4care/ai4care/internal/triage"
)

// TriageService is the part of the triage pipeline the handlers use.
type TriageService interface {
	GetTriageResult(ctx context.Context, in triage.SymptomInput) (triage.TriageResult, error)
	GetExplainedOutcome(ctx context.Context, result triage.TriageResult) string
	TriageUrgency(ctx context.Context, symptomAnalysis string) (triage.Verdict, error)
}

// TriageHandler handles symptom triage endpoints.
type TriageHandler struct {
	service TriageService
	logger  zerolog.Logger
}

// NewTriageHandler creates a new TriageHandler.
func NewTriageHandler(service TriageService, logger zerolog.Logger) *TriageHandler {
	return &TriageHandler{service: service, logger: logger}
}

// Assess handles POST /api/triage - classify a symptom report.
func (h *TriageHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var body models.TriageRequest
	if err := decodeJSON(w, r, &body); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	in, err := triage.ParseSymptomForm(triage.SymptomForm{
		SymptomDescription: body.SymptomDescription,
		PainLevel:          string(body.PainLevel),
		PainType:           body.PainType,
	})
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	result, err := h.service.GetTriageResult(r.Context(), in)
	if err != nil {
		if _, ok := triage.AsValidationError(err); ok {
			writeValidationError(w, r, err)
			return
		}
		h.logger.Error().Err(err).
			Str("request_id", requestID(r)).
			Msg("triage failed")
		response.AnalysisFailed(w, r, triage.ErrAnalysisFailed.Error())
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// Explain handles POST /api/triage/explanation - explain a triage result in
// plain language. Generation failures still answer 200 with the fallback
// text.
func (h *TriageHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var result triage.TriageResult
	if err := decodeJSON(w, r, &result); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	explanation := h.service.GetExplainedOutcome(r.Context(), result)
	response.JSON(w, r, http.StatusOK, models.ExplanationResponse{
		Explanation: explanation,
		Fallback:    explanation == triage.FallbackExplanation,
	})
}

// Urgency handles POST /api/triage/urgency - derive a verdict from an
// existing symptom analysis.
func (h *TriageHandler) Urgency(w http.ResponseWriter, r *http.Request) {
	var body models.UrgencyRequest
	if err := decodeJSON(w, r, &body); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	analysis := strings.TrimSpace(body.SymptomAnalysis)
	if analysis == "" {
		response.BadRequest(w, r, "symptomAnalysis is required", []models.FieldError{
			{Field: "symptomAnalysis", Message: "Please provide a symptom analysis.", Code: "REQUIRED"},
		})
		return
	}

	verdict, err := h.service.TriageUrgency(r.Context(), analysis)
	if err != nil {
		h.logger.Error().Err(err).
			Str("request_id", requestID(r)).
			Msg("urgency classification failed")
		response.AnalysisFailed(w, r, triage.ErrAnalysisFailed.Error())
		return
	}

	response.JSON(w, r, http.StatusOK, verdict)
}

// Guidance handles GET /api/triage/guidance/{level} - the fixed next steps
// for an urgency level.
func (h *TriageHandler) Guidance(w http.ResponseWriter, r *http.Request) {
	level, err := triage.ParseUrgencyLevel(chi.URLParam(r, "level"))
	if err != nil {
		response.NotFound(w, r, err.Error())
		return
	}

	card, ok := triage.Guidance(level)
	if !ok {
		response.NotFound(w, r, "no guidance for urgency level "+level.String())
		return
	}

	response.JSON(w, r, http.StatusOK, card)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	ve, ok := triage.AsValidationError(err)
	if !ok {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	fields := make([]models.FieldError, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		fields = append(fields, models.FieldError{Field: f.Field, Message: f.Message})
	}
	response.BadRequest(w, r, "symptom report is invalid", fields)
}
