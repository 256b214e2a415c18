package service

import (
	"certo/internal/log"
	"certo/internal/model"
	"certo/internal/repository"
	"context"
	"errors"
	"sort"
	"time"
)

// SurveyService handles the survey lifecycle: publish, read, extend, discover
type SurveyService struct {
	surveyRepo    repository.SurveyRepo
	settlement    SettlementClient
	tokenDecimals int32
	now           func() time.Time
}

// NewSurveyService creates a new survey service. settlement may be nil, in which
// case prize surveys are published with settlement disabled.
func NewSurveyService(surveyRepo repository.SurveyRepo, settlement SettlementClient, tokenDecimals int32) *SurveyService {
	return &SurveyService{
		surveyRepo:    surveyRepo,
		settlement:    settlement,
		tokenDecimals: tokenDecimals,
		now:           time.Now,
	}
}

// Publish builds the survey, stores it as pending settlement, then attempts
// settlement and records the outcome. A settlement failure leaves the survey
// published with status "failed"; only a gateway failure on insert fails Publish.
func (s *SurveyService) Publish(ctx context.Context, draft SurveyDraft) (*model.Survey, error) {
	now := s.now()
	survey, err := BuildSurvey(draft, now)
	if err != nil {
		return nil, err
	}
	survey.Settlement = initialSettlement(survey.Prize, s.settlement != nil, now)

	if _, err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, err
	}
	log.Infof("survey %s published by %s (%d questions, settlement %s)", survey.ID, survey.Owner, len(survey.Questions), survey.Settlement.Status)

	if survey.Settlement.Status == model.SettlementPending {
		if err := s.runSettlement(ctx, survey); err != nil {
			log.Warnf("survey %s published without a stored settlement state: %v", survey.ID, err)
		}
	}
	return survey, nil
}

// RetrySettlement re-runs settlement for a survey whose previous attempt failed
// or never completed.
func (s *SurveyService) RetrySettlement(ctx context.Context, id, owner string) (*model.Survey, error) {
	survey, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	switch survey.Settlement.Status {
	case model.SettlementFailed, model.SettlementPending:
	default:
		return nil, ErrSettlementNotNeeded
	}
	if s.settlement == nil {
		return nil, ErrSettlementNotNeeded
	}
	if err := s.runSettlement(ctx, survey); err != nil {
		return nil, err
	}
	return survey, nil
}

// runSettlement settles survey and stores the new state on it and in the gateway.
func (s *SurveyService) runSettlement(ctx context.Context, survey *model.Survey) error {
	survey.Settlement = s.settle(ctx, survey)
	if err := s.surveyRepo.SetSettlement(ctx, survey.ID, survey.Settlement); err != nil {
		log.Errorf("store settlement state for survey %s: %v", survey.ID, err)
		return err
	}
	return nil
}

// Get retrieves a survey by ID
func (s *SurveyService) Get(ctx context.Context, id string) (*model.Survey, error) {
	return s.surveyRepo.GetByID(ctx, id)
}

// ListByOwner retrieves all surveys of a researcher, newest first
func (s *SurveyService) ListByOwner(ctx context.Context, owner string) ([]*model.Survey, error) {
	return s.surveyRepo.List(ctx, repository.SurveyFilter{Owner: owner})
}

// AppendQuestions adds questions to the end of a survey. Existing questions keep
// their indices, so answers already stored stay attributed to the right question.
func (s *SurveyService) AppendQuestions(ctx context.Context, id, owner string, drafts []QuestionDraft) (*model.Survey, error) {
	if len(drafts) == 0 {
		return nil, invalid("questions", "at least one question is required")
	}
	survey, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if !survey.IsOpen(s.now()) {
		return nil, invalid("timeLimit", "survey is closed")
	}

	questions, err := buildQuestions(drafts, len(survey.Questions))
	if err != nil {
		return nil, err
	}
	if err := s.surveyRepo.AppendQuestions(ctx, id, len(survey.Questions), questions); err != nil {
		return nil, err
	}
	survey.Questions = append(survey.Questions, questions...)
	return survey, nil
}

func (s *SurveyService) owned(ctx context.Context, id, owner string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if survey.Owner != owner {
		return nil, ErrForbidden
	}
	return survey, nil
}

// DiscoverFilter mirrors the participant-side filters
type DiscoverFilter struct {
	Segments     []string // every listed tag must be present on the survey
	WorldIDOnly  bool     // only surveys requiring World ID
	EligibleOnly bool
}

// Discover lists surveys still open for answers, annotated with the
// participant's eligibility. Surveys whose quota is full are left out.
func (s *SurveyService) Discover(ctx context.Context, p *model.Participant, filter DiscoverFilter) ([]model.SurveyListing, error) {
	surveys, err := s.surveyRepo.List(ctx, repository.SurveyFilter{OpenAt: s.now()})
	if err != nil {
		return nil, err
	}

	listings := []model.SurveyListing{}
	for _, survey := range surveys {
		if survey.AnswerCount >= survey.MaxAmount {
			continue
		}
		if filter.WorldIDOnly && !survey.Requires(model.RequirementWorldID) {
			continue
		}
		if !hasAllSegments(survey, filter.Segments) {
			continue
		}
		eligible := IsEligible(survey, p)
		if filter.EligibleOnly && !eligible {
			continue
		}
		listings = append(listings, model.SurveyListing{Survey: survey.View(), Eligible: eligible})
	}
	return listings, nil
}

// Segments returns the sorted union of segmentation tags across open surveys.
func (s *SurveyService) Segments(ctx context.Context) ([]string, error) {
	surveys, err := s.surveyRepo.List(ctx, repository.SurveyFilter{OpenAt: s.now()})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, survey := range surveys {
		for _, tag := range survey.Segmentation {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasAllSegments(survey *model.Survey, segments []string) bool {
	for _, tag := range segments {
		if !survey.HasSegment(tag) {
			return false
		}
	}
	return true
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
