package rest

import (
	"certo/internal/service"
	"certo/internal/transport/rest/handler"
	"certo/internal/transport/rest/middleware"
	"certo/internal/transport/ws"
	"net/http"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SurveyService  *service.SurveyService
	AnswerService  *service.AnswerService
	ResultsService *service.ResultsService
	WSHub          *ws.Hub
	CORSOrigins    string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService)
	participantHandler := handler.NewParticipantHandler(c.SurveyService, c.AnswerService)
	resultsHandler := handler.NewResultsHandler(c.ResultsService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.ResultsService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// Recovery outermost, then logging, then CORS
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(corsMiddleware(c.CORSOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/swagger/doc.json", handler.SwaggerDoc).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/participant", authHandler.StartParticipant).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/surveys/{surveyId}/results", wsHandler.ResultsWS).Methods("GET")

	// Researcher routes
	researcherRoutes := v1.NewRoute().Subrouter()
	researcherRoutes.Use(authMW.RequireResearcher)

	researcherRoutes.HandleFunc("/surveys", surveyHandler.Create).Methods("POST", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys", surveyHandler.List).Methods("GET", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Get).Methods("GET", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/questions", surveyHandler.AppendQuestions).Methods("POST", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/settlement/retry", surveyHandler.RetrySettlement).Methods("POST", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/results", resultsHandler.Results).Methods("GET", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/answers", resultsHandler.Answers).Methods("GET", "OPTIONS")

	// Participant routes
	participantRoutes := v1.NewRoute().Subrouter()
	participantRoutes.Use(authMW.RequireParticipant)

	participantRoutes.HandleFunc("/participant/credentials/{provider}", authHandler.AttachCredential).Methods("POST", "OPTIONS")
	participantRoutes.HandleFunc("/available", participantHandler.Available).Methods("GET", "OPTIONS")
	participantRoutes.HandleFunc("/available/segments", participantHandler.Segments).Methods("GET", "OPTIONS")
	participantRoutes.HandleFunc("/available/{surveyId}", participantHandler.Get).Methods("GET", "OPTIONS")
	participantRoutes.HandleFunc("/available/{surveyId}/answers", participantHandler.Submit).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
