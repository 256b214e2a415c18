package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"certo/internal/cache"
	"certo/internal/config"
	"certo/internal/model"
	"certo/internal/repository"
	"certo/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastToSurvey(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := &Connection{SurveyID: "s1", ResearcherID: "r1", Send: make(chan []byte, 4)}
	b := &Connection{SurveyID: "s1", ResearcherID: "r2", Send: make(chan []byte, 4)}
	other := &Connection{SurveyID: "s2", ResearcherID: "r3", Send: make(chan []byte, 4)}
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	waitFor(t, func() bool { return hub.Watchers("s1") == 2 && hub.Watchers("s2") == 1 })

	hub.BroadcastToSurvey("s1", string(MsgAnswerSubmitted), map[string]string{"answerId": "a1"})

	for _, conn := range []*Connection{a, b} {
		select {
		case data := <-conn.Send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.Type != MsgAnswerSubmitted || !strings.Contains(string(msg.Payload), "a1") {
				t.Fatalf("message = %+v", msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s got no message", conn.ResearcherID)
		}
	}
	select {
	case <-other.Send:
		t.Fatal("message leaked to another survey")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister(a)
	waitFor(t, func() bool { return hub.Watchers("s1") == 1 })
	if _, ok := <-a.Send; ok {
		t.Fatal("send channel should be closed after unregister")
	}
}

func TestHub_CloseClosesConnections(t *testing.T) {
	hub := NewHub()
	conn := &Connection{SurveyID: "s1", Send: make(chan []byte, 1)}
	hub.Register(conn)
	waitFor(t, func() bool { return hub.Watchers("s1") == 1 })

	hub.Close()
	if _, ok := <-conn.Send; ok {
		t.Fatal("send channel should be closed")
	}
	// no-ops once closed
	hub.BroadcastToSurvey("s1", string(MsgResultsUpdate), nil)
	hub.Unregister(conn)
	hub.Close()
}

func TestResultsWS(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	survey := &model.Survey{Name: "s", Owner: "alice", TimeLimit: time.Now().Add(time.Hour), MaxAmount: 5}
	if _, err := store.Create(ctx, survey); err != nil {
		t.Fatal(err)
	}

	auth, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:          "secret",
		ResearcherUsername: "alice",
		ResearcherPassword: "pw",
		SessionTTL:         time.Hour,
	}, cache.NewMemorySessionCache(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	login, err := auth.Login(model.LoginRequest{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	hub := NewHub()
	defer hub.Close()
	h := NewHandler(hub, auth, service.NewResultsService(store, store, nil))
	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/surveys/{surveyId}/results", h.ResultsWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/surveys/"

	if _, resp, err := websocket.DefaultDialer.Dial(base+survey.ID+"/results", nil); err == nil {
		t.Fatal("expected dial without token to fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
	if _, resp, err := websocket.DefaultDialer.Dial(base+"nope/results?token="+login.Token, nil); err == nil {
		t.Fatal("expected dial to unknown survey to fail")
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+survey.ID+"/results?token="+login.Token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return hub.Watchers(survey.ID) == 1 })

	hub.BroadcastToSurvey(survey.ID, string(MsgResultsUpdate), map[string]int{"totalAnswers": 1})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MsgResultsUpdate {
		t.Fatalf("message type = %s", msg.Type)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Watchers(survey.ID) == 0 })
}
