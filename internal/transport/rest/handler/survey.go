package handler

import (
	"certo/internal/service"
	"certo/internal/transport/rest/middleware"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// SurveyHandler handles researcher survey endpoints
type SurveyHandler struct {
	surveySvc *service.SurveyService
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveySvc: surveySvc}
}

// Create handles POST /v1/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	researcherID := middleware.GetResearcherID(r.Context())
	if researcherID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	body, ok := readValidated(w, r, surveyDraftSchema)
	if !ok {
		return
	}
	var draft service.SurveyDraft
	if err := json.Unmarshal(body, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	draft.Owner = researcherID

	survey, err := h.surveySvc.Publish(r.Context(), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}

// List handles GET /v1/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	researcherID := middleware.GetResearcherID(r.Context())
	if researcherID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	surveys, err := h.surveySvc.ListByOwner(r.Context(), researcherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, surveys)
}

// Get handles GET /v1/surveys/{surveyId}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.Get(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// AppendQuestionsRequest is the request body for adding questions
type AppendQuestionsRequest struct {
	Questions []service.QuestionDraft `json:"questions"`
}

// AppendQuestions handles POST /v1/surveys/{surveyId}/questions
func (h *SurveyHandler) AppendQuestions(w http.ResponseWriter, r *http.Request) {
	researcherID := middleware.GetResearcherID(r.Context())

	body, ok := readValidated(w, r, appendQuestionsSchema)
	if !ok {
		return
	}
	var req AppendQuestionsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	survey, err := h.surveySvc.AppendQuestions(r.Context(), mux.Vars(r)["surveyId"], researcherID, req.Questions)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// RetrySettlement handles POST /v1/surveys/{surveyId}/settlement/retry
func (h *SurveyHandler) RetrySettlement(w http.ResponseWriter, r *http.Request) {
	researcherID := middleware.GetResearcherID(r.Context())

	survey, err := h.surveySvc.RetrySettlement(r.Context(), mux.Vars(r)["surveyId"], researcherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, survey.Settlement)
}
