package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"certo/internal/cache"
	"certo/internal/config"
	"certo/internal/model"
	"certo/internal/repository"
	"certo/internal/service"
	"certo/internal/transport/rest"
	"certo/internal/transport/ws"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testAPI struct {
	t       *testing.T
	srv     *httptest.Server
	answers *service.AnswerService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := repository.NewMemoryStore()
	results := cache.NewMemoryResultsCache(time.Minute)

	auth, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:          "test-secret",
		ResearcherUsername: "admin",
		ResearcherPassword: "password123",
		SessionTTL:         time.Hour,
	}, cache.NewMemorySessionCache(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	resultsSvc := service.NewResultsService(store, store, results)
	answerSvc := service.NewAnswerService(store, results, resultsSvc)
	hub := ws.NewHub()
	answerSvc.SetBroadcaster(hub)

	srv := httptest.NewServer(rest.NewRouter(&rest.Container{
		AuthService:    auth,
		SurveyService:  service.NewSurveyService(store, nil, 6),
		AnswerService:  answerSvc,
		ResultsService: resultsSvc,
		WSHub:          hub,
	}))
	t.Cleanup(func() {
		srv.Close()
		answerSvc.Wait()
		hub.Close()
	})
	return &testAPI{t: t, srv: srv, answers: answerSvc}
}

func (a *testAPI) do(method, path, token string, body interface{}, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (a *testAPI) researcherToken() string {
	var login model.LoginResponse
	if code := a.do("POST", "/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "password123"}, &login); code != http.StatusOK {
		a.t.Fatalf("login status %d", code)
	}
	return login.Token
}

func (a *testAPI) participantToken() string {
	var session model.ParticipantSessionResponse
	if code := a.do("POST", "/v1/auth/participant", "", nil, &session); code != http.StatusCreated {
		a.t.Fatalf("participant session status %d", code)
	}
	return session.Token
}

func surveyBody(maxAmount int) map[string]interface{} {
	return map[string]interface{}{
		"name":      "Coffee",
		"timeLimit": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"minAmount": 0,
		"maxAmount": maxAmount,
		"worldId":   "optional",
		"questions": []map[string]interface{}{
			{"question": "Coffee?", "options": []string{"Yes", "No"}},
			{"question": "When?", "options": []string{"Morning", "Night"}, "multiple": true},
		},
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealthAndDocs(t *testing.T) {
	api := newTestAPI(t)
	if code := api.do("GET", "/health", "", nil, nil); code != http.StatusOK {
		t.Fatalf("health status %d", code)
	}
	var doc map[string]interface{}
	if code := api.do("GET", "/swagger/doc.json", "", nil, &doc); code != http.StatusOK {
		t.Fatalf("docs status %d", code)
	}
	if doc["swagger"] != "2.0" {
		t.Fatalf("unexpected doc: %v", doc["swagger"])
	}
}

func TestSurveyFlow(t *testing.T) {
	api := newTestAPI(t)
	researcher := api.researcherToken()
	participant := api.participantToken()

	var survey model.Survey
	if code := api.do("POST", "/v1/surveys", researcher, surveyBody(1), &survey); code != http.StatusCreated {
		t.Fatalf("create status %d", code)
	}
	if survey.Owner != "admin" || len(survey.Questions) != 2 {
		t.Fatalf("survey = %+v", survey)
	}

	var listings []model.SurveyListing
	if code := api.do("GET", "/v1/available", participant, nil, &listings); code != http.StatusOK {
		t.Fatalf("available status %d", code)
	}
	if len(listings) != 1 || !listings[0].Eligible {
		t.Fatalf("listings = %+v", listings)
	}

	submit := fmt.Sprintf("/v1/available/%s/answers", survey.ID)
	var bad errorBody
	if code := api.do("POST", submit, participant, `{"data":[{"index":0,"answers":["Maybe"]},{"index":1,"answers":[]}]}`, &bad); code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid option status %d", code)
	}
	if bad.Code != "invalid_option" {
		t.Fatalf("code = %q", bad.Code)
	}
	if code := api.do("POST", submit, participant, `{"data":[{"index":0,"answers":["Yes"]}]}`, &bad); code != http.StatusUnprocessableEntity || bad.Code != "missing_required_answer" {
		t.Fatalf("missing answer: %d %q", code, bad.Code)
	}

	good := `{"data":[{"index":0,"answers":["Yes"]},{"index":1,"answers":["Morning","Night"]}]}`
	var answer model.Answer
	if code := api.do("POST", submit, participant, good, &answer); code != http.StatusCreated {
		t.Fatalf("submit status %d", code)
	}
	if code := api.do("POST", submit, participant, good, &bad); code != http.StatusConflict || bad.Code != "quota_exceeded" {
		t.Fatalf("quota: %d %q", code, bad.Code)
	}

	var results model.SurveyResults
	if code := api.do("GET", "/v1/surveys/"+survey.ID+"/results", researcher, nil, &results); code != http.StatusOK {
		t.Fatalf("results status %d", code)
	}
	if results.TotalAnswers != 1 || results.Questions[1].Counts()["Night"] != 1 {
		t.Fatalf("results = %+v", results)
	}

	var mine []model.Survey
	if code := api.do("GET", "/v1/surveys", researcher, nil, &mine); code != http.StatusOK || len(mine) != 1 {
		t.Fatalf("list: %d %d", code, len(mine))
	}
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	researcher := api.researcherToken()
	participant := api.participantToken()

	if code := api.do("GET", "/v1/surveys", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token status %d", code)
	}
	if code := api.do("GET", "/v1/surveys", participant, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("participant token on researcher route %d", code)
	}
	if code := api.do("POST", "/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "x"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", code)
	}

	body := surveyBody(3)
	delete(body, "questions")
	var e errorBody
	if code := api.do("POST", "/v1/surveys", researcher, body, &e); code != http.StatusBadRequest || e.Code != "invalid_request" {
		t.Fatalf("schema violation: %d %+v", code, e)
	}

	body = surveyBody(3)
	body["minAmount"] = 5
	if code := api.do("POST", "/v1/surveys", researcher, body, &e); code != http.StatusBadRequest {
		t.Fatalf("min > max status %d", code)
	}

	if code := api.do("GET", "/v1/available/000000000000000000000000", participant, nil, &e); code != http.StatusNotFound || e.Code != "not_found" {
		t.Fatalf("not found: %d %+v", code, e)
	}

	body = surveyBody(3)
	body["worldId"] = "required"
	var survey model.Survey
	if code := api.do("POST", "/v1/surveys", researcher, body, &survey); code != http.StatusCreated {
		t.Fatalf("create status %d", code)
	}
	good := `{"data":[{"index":0,"answers":"Yes"},{"index":1,"answers":["Night"]}]}`
	if code := api.do("POST", "/v1/available/"+survey.ID+"/answers", participant, good, &e); code != http.StatusForbidden || e.Code != "not_eligible" {
		t.Fatalf("not eligible: %d %+v", code, e)
	}

	if code := api.do("POST", "/v1/participant/credentials/passport", participant, map[string]string{"token": "x"}, &e); code != http.StatusNotFound {
		t.Fatalf("unknown provider status %d", code)
	}
}

func TestParticipantViewHidesAttentionCheck(t *testing.T) {
	api := newTestAPI(t)
	researcher := api.researcherToken()
	participant := api.participantToken()

	body := surveyBody(5)
	body["questions"] = append(body["questions"].([]map[string]interface{}), map[string]interface{}{
		"question": "Pick Blue", "options": []string{"Red", "Blue"}, "is_ac": true, "ac_correct": "Blue",
	})
	var survey model.Survey
	if code := api.do("POST", "/v1/surveys", researcher, body, &survey); code != http.StatusCreated {
		t.Fatalf("create status %d", code)
	}

	hidden := func(where string, questions interface{}) {
		t.Helper()
		list, ok := questions.([]interface{})
		if !ok || len(list) != 3 {
			t.Fatalf("%s: questions = %v", where, questions)
		}
		for _, q := range list {
			fields := q.(map[string]interface{})
			if _, ok := fields["ac_correct"]; ok {
				t.Fatalf("%s: ac_correct exposed: %v", where, fields)
			}
			if _, ok := fields["is_ac"]; ok {
				t.Fatalf("%s: is_ac exposed: %v", where, fields)
			}
		}
	}

	var detail map[string]interface{}
	if code := api.do("GET", "/v1/available/"+survey.ID, participant, nil, &detail); code != http.StatusOK {
		t.Fatalf("available detail status %d", code)
	}
	hidden("detail", detail["survey"].(map[string]interface{})["questions"])

	var listings []map[string]interface{}
	if code := api.do("GET", "/v1/available", participant, nil, &listings); code != http.StatusOK || len(listings) != 1 {
		t.Fatalf("available: %d %d", code, len(listings))
	}
	hidden("listing", listings[0]["survey"].(map[string]interface{})["questions"])

	var own model.Survey
	if code := api.do("GET", "/v1/surveys/"+survey.ID, researcher, nil, &own); code != http.StatusOK {
		t.Fatalf("researcher get status %d", code)
	}
	if !own.Questions[2].IsAC || own.Questions[2].ACCorrect != "Blue" {
		t.Fatalf("owner lost attention-check fields: %+v", own.Questions[2])
	}
}
