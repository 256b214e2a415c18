package main

import (
	"certo/internal/cache"
	"certo/internal/config"
	"certo/internal/log"
	"certo/internal/repository"
	"certo/internal/service"
	"certo/internal/transport/rest"
	"certo/internal/transport/ws"
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// @title Certo Survey API
// @version 1.0
// @description Surveys with proof-of-personhood requirements and prize escrow
// @host localhost:8080
// @BasePath /
func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("CERTO_CONFIG"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config:", err)
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("unknown LOG_LEVEL %q, keeping info", cfg.LogLevel)
	}
	log.Printf("started (env=%s, store=%s)", cfg.Env, cfg.Store)

	var (
		surveyRepo   repository.SurveyRepo
		answerRepo   repository.AnswerRepo
		sessionCache cache.SessionCache
		resultsCache cache.ResultsCache
	)

	switch cfg.Store {
	case config.StoreMemory:
		store := repository.NewMemoryStore()
		surveyRepo, answerRepo = store, store
		sessionCache = cache.NewMemorySessionCache(cfg.Auth.SessionTTL)
		resultsCache = cache.NewMemoryResultsCache(cfg.ResultsCacheTTL)
		log.Println("Using in-memory store; data is lost on restart")

	default:
		// MongoDB connection
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer mongoClient.Disconnect(ctx)

		// Ping MongoDB
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			log.Fatal("Failed to ping MongoDB:", err)
		}
		log.Println("Connected to MongoDB")

		db := mongoClient.Database(cfg.MongoDatabase)
		if err := repository.EnsureIndexes(pingCtx, db); err != nil {
			log.Fatal("Failed to create indexes:", err)
		}
		surveyRepo = repository.NewSurveyRepo(db, cfg.GatewayTimeout)
		answerRepo = repository.NewAnswerRepo(db, cfg.GatewayTimeout)

		// Redis connection
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer rdb.Close()

		// Ping Redis
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatal("Failed to ping Redis:", err)
		}
		log.Println("Connected to Redis")

		sessionCache = cache.NewSessionCache(rdb, cfg.Auth.SessionTTL)
		resultsCache = cache.NewResultsCache(rdb, cfg.ResultsCacheTTL)
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	defer wsHub.Close()
	log.Println("WebSocket hub started")

	// Identity providers
	providers := []service.IdentityProvider{
		service.NewWorldIDProvider(cfg.Identity.WorldIDUserInfoURL, cfg.Identity.WorldIDMinLevel, cfg.Identity.Timeout),
	}
	if cfg.Identity.QuarkIDVerifyURL != "" {
		providers = append(providers, service.NewQuarkIDProvider(cfg.Identity.QuarkIDVerifyURL, cfg.Identity.Timeout))
	}

	// Settlement
	var settlement service.SettlementClient
	if cfg.SettlementEnabled() {
		settlement = service.NewRelayerClient(cfg.Settlement)
		log.Printf("Settlement relayer: %s", cfg.Settlement.RelayerURL)
	} else {
		log.Println("SETTLEMENT_RELAYER_URL not set, prize surveys will not be registered on-chain")
	}

	// Initialize services
	authSvc, err := service.NewAuthService(cfg.Auth, sessionCache, providers...)
	if err != nil {
		log.Fatal("Failed to init auth:", err)
	}
	surveySvc := service.NewSurveyService(surveyRepo, settlement, cfg.Settlement.TokenDecimals)
	resultsSvc := service.NewResultsService(surveyRepo, answerRepo, resultsCache)
	answerSvc := service.NewAnswerService(answerRepo, resultsCache, resultsSvc)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	answerSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		AuthService:    authSvc,
		SurveyService:  surveySvc,
		AnswerService:  answerSvc,
		ResultsService: resultsSvc,
		WSHub:          wsHub,
		CORSOrigins:    cfg.CORSOrigins,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Printf("Researcher auth: username=%s", cfg.Auth.ResearcherUsername)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST /v1/auth/participant")
		log.Println("  POST/GET /v1/surveys")
		log.Println("  GET  /v1/surveys/{surveyId}/results")
		log.Println("  GET  /v1/available")
		log.Println("  POST /v1/available/{surveyId}/answers")
		log.Println("  WS   /v1/ws/surveys/{surveyId}/results")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	answerSvc.Wait()

	log.Println("Server exited")
}
