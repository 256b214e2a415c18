package service

import (
	"certo/internal/cache"
	"certo/internal/log"
	"certo/internal/model"
	"certo/internal/repository"
	"context"
)

// ResultsService serves aggregated results to survey owners
type ResultsService struct {
	surveyRepo repository.SurveyRepo
	answerRepo repository.AnswerRepo
	cache      cache.ResultsCache
}

// NewResultsService creates a new results service. resultsCache may be nil.
func NewResultsService(surveyRepo repository.SurveyRepo, answerRepo repository.AnswerRepo, resultsCache cache.ResultsCache) *ResultsService {
	return &ResultsService{
		surveyRepo: surveyRepo,
		answerRepo: answerRepo,
		cache:      resultsCache,
	}
}

// Results returns aggregated results for a survey owned by owner. A cached
// aggregation is served only while it covers the stored questions and answer count.
func (s *ResultsService) Results(ctx context.Context, surveyID, owner string) (*model.SurveyResults, error) {
	survey, err := s.ownedSurvey(ctx, surveyID, owner)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, surveyID)
		if err != nil {
			log.Warnf("read cached results for survey %s: %v", surveyID, err)
		} else if current(cached, survey) {
			return cached, nil
		}
	}
	return s.Compute(ctx, survey)
}

// Compute aggregates every stored answer of survey and refreshes the cache.
func (s *ResultsService) Compute(ctx context.Context, survey *model.Survey) (*model.SurveyResults, error) {
	answers, err := s.answerRepo.ListBySurvey(ctx, survey.ID)
	if err != nil {
		return nil, err
	}
	results := Aggregate(survey, answers)
	if len(results.Anomalies) > 0 {
		log.Warnf("survey %s: %d aggregation anomalies", survey.ID, len(results.Anomalies))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, results); err != nil {
			log.Warnf("cache results for survey %s: %v", survey.ID, err)
		}
	}
	return results, nil
}

// current reports whether cached was aggregated from the survey as stored now.
// Appended questions or answers stored since then make it stale, as does a
// recompute that listed answers before a later submission landed.
func current(cached *model.SurveyResults, survey *model.Survey) bool {
	return cached != nil &&
		len(cached.Questions) == len(survey.Questions) &&
		cached.TotalAnswers == survey.AnswerCount
}

// Answers returns the raw answers of a survey owned by owner.
func (s *ResultsService) Answers(ctx context.Context, surveyID, owner string) ([]*model.Answer, error) {
	if _, err := s.ownedSurvey(ctx, surveyID, owner); err != nil {
		return nil, err
	}
	return s.answerRepo.ListBySurvey(ctx, surveyID)
}

// Authorize checks that owner may watch the survey's live results.
func (s *ResultsService) Authorize(ctx context.Context, surveyID, owner string) error {
	_, err := s.ownedSurvey(ctx, surveyID, owner)
	return err
}

func (s *ResultsService) ownedSurvey(ctx context.Context, surveyID, owner string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey.Owner != owner {
		return nil, ErrForbidden
	}
	return survey, nil
}
