package handler

import (
	"certo/internal/service"
	"certo/internal/transport/rest/middleware"
	"net/http"

	"github.com/gorilla/mux"
)

// ResultsHandler serves aggregated results and raw answers to survey owners
type ResultsHandler struct {
	resultsSvc *service.ResultsService
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(resultsSvc *service.ResultsService) *ResultsHandler {
	return &ResultsHandler{resultsSvc: resultsSvc}
}

// Results handles GET /v1/surveys/{surveyId}/results
func (h *ResultsHandler) Results(w http.ResponseWriter, r *http.Request) {
	researcherID := middleware.GetResearcherID(r.Context())

	results, err := h.resultsSvc.Results(r.Context(), mux.Vars(r)["surveyId"], researcherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Answers handles GET /v1/surveys/{surveyId}/answers
func (h *ResultsHandler) Answers(w http.ResponseWriter, r *http.Request) {
	researcherID := middleware.GetResearcherID(r.Context())

	answers, err := h.resultsSvc.Answers(r.Context(), mux.Vars(r)["surveyId"], researcherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answers)
}
