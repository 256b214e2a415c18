package main

import (
	"certo/internal/config"
	"certo/internal/log"
	"certo/internal/model"
	"certo/internal/repository"
	"certo/internal/service"
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load(os.Getenv("CERTO_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	owner := os.Getenv("SEED_OWNER")
	if owner == "" {
		owner = cfg.Auth.ResearcherUsername
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	surveyRepo := repository.NewSurveyRepo(db, cfg.GatewayTimeout)

	survey, err := service.BuildSurvey(demoDraft(owner), time.Now())
	if err != nil {
		log.Fatalf("Invalid demo survey: %v", err)
	}
	survey.Settlement = model.Settlement{Status: model.SettlementNotRequired, UpdatedAt: time.Now().UTC()}

	id, err := surveyRepo.Create(ctx, survey)
	if err != nil {
		log.Fatalf("Failed to insert survey: %v", err)
	}

	fmt.Printf("Seeded survey %q (%s) owned by %s\n", survey.Name, id, owner)
}

func demoDraft(owner string) service.SurveyDraft {
	return service.SurveyDraft{
		Name:         "Remote Work Habits",
		Description:  "How people organise their day when working away from the office.",
		Owner:        owner,
		TimeLimit:    time.Now().Add(30 * 24 * time.Hour),
		MinAmount:    5,
		MaxAmount:    200,
		WorldID:      service.SelectorOptional,
		QuarkID:      service.SelectorOptional,
		Segmentation: []string{"remote-workers", "tech"},
		Questions: []service.QuestionDraft{
			{
				Question: "How many days a week do you work remotely?",
				Options:  []string{"0", "1-2", "3-4", "5"},
			},
			{
				Question: "Which tools do you use every day?",
				Options:  []string{"Chat", "Video calls", "Shared docs", "Task boards"},
				Multiple: true,
			},
			{
				Question:  "To show you are paying attention, pick \"Blue\".",
				Options:   []string{"Red", "Blue", "Green"},
				IsAC:      true,
				ACCorrect: "Blue",
			},
		},
	}
}
