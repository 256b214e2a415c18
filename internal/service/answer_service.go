package service

import (
	"certo/internal/cache"
	"certo/internal/log"
	"certo/internal/model"
	"certo/internal/repository"
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// AnswerService validates and stores survey submissions
type AnswerService struct {
	answerRepo   repository.AnswerRepo
	resultsCache cache.ResultsCache
	results      *ResultsService
	broadcaster  Broadcaster
	now          func() time.Time
	wg           sync.WaitGroup
}

// NewAnswerService creates a new answer service. resultsCache and results may be nil.
func NewAnswerService(answerRepo repository.AnswerRepo, resultsCache cache.ResultsCache, results *ResultsService) *AnswerService {
	return &AnswerService{
		answerRepo:   answerRepo,
		resultsCache: resultsCache,
		results:      results,
		now:          time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *AnswerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Submit validates selections against the survey and stores them as one answer.
// Nothing is written when any check fails. The quota is enforced atomically by
// the gateway, so concurrent submissions never push the count past MaxAmount.
func (s *AnswerService) Submit(ctx context.Context, survey *model.Survey, p *model.Participant, selections map[int]model.Selection) (*model.Answer, error) {
	now := s.now()
	if !survey.IsOpen(now) {
		return nil, ErrClosed
	}
	if missing := MissingRequirements(survey, p); len(missing) > 0 {
		return nil, rejected(SubmissionNotEligible, -1, "missing credentials: %v", missing)
	}

	data, err := validateSelections(survey, selections)
	if err != nil {
		return nil, err
	}
	if survey.AnswerCount >= survey.MaxAmount {
		return nil, ErrQuotaExceeded
	}

	answer := &model.Answer{
		SurveyID:  survey.ID,
		Data:      data,
		CreatedAt: now.UTC(),
	}
	if p != nil {
		answer.ParticipantID = p.ID
	}

	if err := s.answerRepo.CreateWithinQuota(ctx, answer, survey.MaxAmount); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			return nil, ErrQuotaExceeded
		}
		return nil, err
	}
	log.Debugf("answer %s stored for survey %s", answer.ID, survey.ID)

	s.afterSubmit(ctx, survey, answer)
	return answer, nil
}

func (s *AnswerService) afterSubmit(ctx context.Context, survey *model.Survey, answer *model.Answer) {
	if s.resultsCache != nil {
		if err := s.resultsCache.Invalidate(ctx, survey.ID); err != nil {
			log.Warnf("invalidate results for survey %s: %v", survey.ID, err)
		}
	}
	if s.broadcaster == nil {
		return
	}

	s.broadcaster.BroadcastToSurvey(survey.ID, EventAnswerSubmitted, map[string]interface{}{
		"surveyId": survey.ID,
		"answerId": answer.ID,
	})
	if s.results == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		results, err := s.results.Compute(ctx, survey)
		if err != nil {
			log.Warnf("recompute results for survey %s: %v", survey.ID, err)
			return
		}
		s.broadcaster.BroadcastToSurvey(survey.ID, EventResultsUpdate, results)
	}()
}

// Wait blocks until background result pushes have finished.
func (s *AnswerService) Wait() {
	s.wg.Wait()
}

// validateSelections checks every question in index order and returns the
// entries to store. The first failing question decides the error.
func validateSelections(survey *model.Survey, selections map[int]model.Selection) ([]model.AnswerEntry, error) {
	indices := make([]int, 0, len(selections))
	for idx := range selections {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		if survey.Question(idx) == nil {
			return nil, rejected(SubmissionInvalidOption, idx, "no question with index %d", idx)
		}
	}

	data := make([]model.AnswerEntry, 0, len(survey.Questions))
	for i := range survey.Questions {
		q := &survey.Questions[i]
		sel, ok := selections[i]
		if !ok || sel == nil {
			return nil, rejected(SubmissionMissingAnswer, i, "question %q has no answer", q.Question)
		}
		if model.IsMultiple(sel) != q.Multiple {
			if q.Multiple {
				return nil, rejected(SubmissionInvalidOption, i, "question accepts a list of options")
			}
			return nil, rejected(SubmissionInvalidOption, i, "question accepts a single option")
		}

		labels := sel.Labels()
		seen := make(map[string]bool, len(labels))
		for _, label := range labels {
			if !q.HasOption(label) {
				return nil, rejected(SubmissionInvalidOption, i, "%q is not an option", label)
			}
			if seen[label] {
				return nil, rejected(SubmissionInvalidOption, i, "%q selected twice", label)
			}
			seen[label] = true
		}
		data = append(data, model.AnswerEntry{Index: i, Answers: labels})
	}
	return data, nil
}
