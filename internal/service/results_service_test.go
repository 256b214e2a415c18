package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"certo/internal/cache"
	"certo/internal/model"
	"certo/internal/repository"
)

func TestResultsService(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	rc := cache.NewMemoryResultsCache(time.Minute)
	results := NewResultsService(store, store, rc)

	survey, err := BuildSurvey(validDraft(), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, survey); err != nil {
		t.Fatal(err)
	}
	answers := NewAnswerService(store, rc, results)
	answers.now = func() time.Time { return testNow }

	if _, err := answers.Submit(ctx, survey, nil, fullSelections()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := results.Results(ctx, survey.ID, survey.Owner)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if got.TotalAnswers != 1 || got.Questions[0].Counts()["Yes"] != 1 {
		t.Fatalf("results = %+v", got)
	}
	cached, _ := rc.Get(ctx, survey.ID)
	if cached == nil {
		t.Fatal("results were not cached")
	}

	if _, err := answers.Submit(ctx, survey, nil, fullSelections()); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	got, _ = results.Results(ctx, survey.ID, survey.Owner)
	if got.TotalAnswers != 2 {
		t.Fatalf("stale results after submit: %d answers", got.TotalAnswers)
	}

	raw, err := results.Answers(ctx, survey.ID, survey.Owner)
	if err != nil || len(raw) != 2 {
		t.Fatalf("answers = %d, %v", len(raw), err)
	}
}

func TestResultsService_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	results := NewResultsService(store, store, nil)
	survey := &model.Survey{Owner: "alice", TimeLimit: testNow.Add(time.Hour), MaxAmount: 1}
	if _, err := store.Create(ctx, survey); err != nil {
		t.Fatal(err)
	}

	if _, err := results.Results(ctx, survey.ID, "bob"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := results.Answers(ctx, survey.ID, "bob"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := results.Results(ctx, "missing", "alice"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResultsService_AppendedQuestionsRefreshCache(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	rc := cache.NewMemoryResultsCache(time.Minute)
	results := NewResultsService(store, store, rc)
	surveys := newSurveyService(store, nil)
	answers := NewAnswerService(store, rc, nil)
	answers.now = func() time.Time { return testNow }

	survey, err := surveys.Publish(ctx, validDraft())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := answers.Submit(ctx, survey, nil, fullSelections()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := results.Results(ctx, survey.ID, survey.Owner)
	if err != nil || len(got.Questions) != 2 {
		t.Fatalf("results before append = %+v, %v", got, err)
	}

	if _, err := surveys.AppendQuestions(ctx, survey.ID, survey.Owner, []QuestionDraft{
		{Question: "Tea?", Options: []string{"Yes", "No"}},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err = results.Results(ctx, survey.ID, survey.Owner)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("expected 3 question results after append, got %d", len(got.Questions))
	}
	if got.Questions[2].RespondentCount != 0 || got.TotalAnswers != 1 {
		t.Fatalf("appended question result = %+v", got.Questions[2])
	}
}

func TestResultsService_LateRecomputeIsNotServed(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	rc := cache.NewMemoryResultsCache(time.Minute)
	results := NewResultsService(store, store, rc)
	answers := NewAnswerService(store, rc, nil)
	answers.now = func() time.Time { return testNow }

	survey, err := BuildSurvey(validDraft(), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, survey); err != nil {
		t.Fatal(err)
	}
	if _, err := answers.Submit(ctx, survey, nil, fullSelections()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	early, err := results.Compute(ctx, survey)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if _, err := answers.Submit(ctx, survey, nil, fullSelections()); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	// a recompute that listed answers before the second submit writes last
	if err := rc.Set(ctx, early); err != nil {
		t.Fatal(err)
	}

	got, err := results.Results(ctx, survey.ID, survey.Owner)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if got.TotalAnswers != 2 {
		t.Fatalf("served stale results: %d answers", got.TotalAnswers)
	}
}
