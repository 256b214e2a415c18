package handler

import (
	"certo/internal/model"
	"certo/internal/service"
	"certo/internal/transport/rest/middleware"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// ParticipantHandler serves survey discovery and submission for participants
type ParticipantHandler struct {
	surveySvc *service.SurveyService
	answerSvc *service.AnswerService
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(surveySvc *service.SurveyService, answerSvc *service.AnswerService) *ParticipantHandler {
	return &ParticipantHandler{
		surveySvc: surveySvc,
		answerSvc: answerSvc,
	}
}

// Available handles GET /v1/available?segment=a,b&worldId=true&eligible=true
func (h *ParticipantHandler) Available(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.DiscoverFilter{
		Segments:     splitList(q["segment"]),
		WorldIDOnly:  parseBool(q.Get("worldId")),
		EligibleOnly: parseBool(q.Get("eligible")),
	}

	listings, err := h.surveySvc.Discover(r.Context(), middleware.GetParticipant(r.Context()), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// Segments handles GET /v1/available/segments
func (h *ParticipantHandler) Segments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.surveySvc.Segments(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"segments": segments})
}

// Get handles GET /v1/available/{surveyId}
func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.Get(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	p := middleware.GetParticipant(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"survey":   survey.View(),
		"eligible": service.IsEligible(survey, p),
		"missing":  service.MissingRequirements(survey, p),
	})
}

// SubmitRequest is the request body for a submission
type SubmitRequest struct {
	Data []SubmitEntry `json:"data"`
}

// SubmitEntry holds the labels chosen for one question. Answers is a label
// list, or a bare label for single-choice questions.
type SubmitEntry struct {
	Index   int             `json:"index"`
	Answers json.RawMessage `json:"answers"`
}

// Submit handles POST /v1/available/{surveyId}/answers
func (h *ParticipantHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetParticipant(ctx)

	body, ok := readValidated(w, r, submissionSchema)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	survey, err := h.surveySvc.Get(ctx, mux.Vars(r)["surveyId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	selections, err := toSelections(survey, req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	answer, err := h.answerSvc.Submit(ctx, survey, p, selections)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, answer)
}

// toSelections turns wire entries into typed selections. A one-label list for a
// single-choice question is a SingleAnswer; whether the shape fits the question
// is left to the answer service.
func toSelections(survey *model.Survey, entries []SubmitEntry) (map[int]model.Selection, error) {
	out := make(map[int]model.Selection, len(entries))
	for _, e := range entries {
		if _, dup := out[e.Index]; dup {
			return nil, fmt.Errorf("question %d answered twice", e.Index)
		}

		var label string
		if err := json.Unmarshal(e.Answers, &label); err == nil {
			out[e.Index] = model.SingleAnswer{Label: label}
			continue
		}
		var labels []string
		if err := json.Unmarshal(e.Answers, &labels); err != nil {
			return nil, fmt.Errorf("question %d: answers must be a label or a list of labels", e.Index)
		}

		if q := survey.Question(e.Index); q != nil && !q.Multiple && len(labels) == 1 {
			out[e.Index] = model.SingleAnswer{Label: labels[0]}
			continue
		}
		out[e.Index] = model.MultiAnswer{Choices: labels}
	}
	return out, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
