package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"certo/internal/model"
)

// MemoryStore is an in-process gateway serving both SurveyRepo and AnswerRepo.
// Records are copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	surveys map[string]*model.Survey
	answers map[string][]*model.Answer
	now     func() time.Time
}

var (
	_ SurveyRepo = (*MemoryStore)(nil)
	_ AnswerRepo = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		surveys: make(map[string]*model.Survey),
		answers: make(map[string][]*model.Answer),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Create(ctx context.Context, survey *model.Survey) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", gatewayErr("insert", collSurveys, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = m.now()
	}
	survey.ID = primitive.NewObjectID().Hex()
	survey.AnswerCount = 0
	m.surveys[survey.ID] = copySurvey(survey)
	return survey.ID, nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	if err := ctx.Err(); err != nil {
		return nil, gatewayErr("get", collSurveys, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surveys[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySurvey(s), nil
}

func (m *MemoryStore) List(ctx context.Context, filter SurveyFilter) ([]*model.Survey, error) {
	if err := ctx.Err(); err != nil {
		return nil, gatewayErr("list", collSurveys, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*model.Survey{}
	for _, s := range m.surveys {
		if filter.Owner != "" && s.Owner != filter.Owner {
			continue
		}
		if !filter.OpenAt.IsZero() && !s.TimeLimit.After(filter.OpenAt) {
			continue
		}
		out = append(out, copySurvey(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) AppendQuestions(ctx context.Context, id string, expectedLen int, questions []model.Question) error {
	if err := ctx.Err(); err != nil {
		return gatewayErr("append", collSurveys, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surveys[id]
	if !ok {
		return ErrNotFound
	}
	if len(s.Questions) != expectedLen {
		return ErrConflict
	}
	for _, q := range questions {
		s.Questions = append(s.Questions, copyQuestion(q))
	}
	return nil
}

func (m *MemoryStore) SetSettlement(ctx context.Context, id string, settlement model.Settlement) error {
	if err := ctx.Err(); err != nil {
		return gatewayErr("update", collSurveys, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surveys[id]
	if !ok {
		return ErrNotFound
	}
	s.Settlement = settlement
	return nil
}

func (m *MemoryStore) CreateWithinQuota(ctx context.Context, answer *model.Answer, maxAmount int) error {
	if err := ctx.Err(); err != nil {
		return gatewayErr("insert", collAnswers, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surveys[answer.SurveyID]
	if !ok {
		return ErrNotFound
	}
	if s.AnswerCount >= maxAmount {
		return ErrQuotaExceeded
	}
	s.AnswerCount++

	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = m.now()
	}
	answer.ID = primitive.NewObjectID().Hex()
	m.answers[answer.SurveyID] = append(m.answers[answer.SurveyID], copyAnswer(answer))
	return nil
}

func (m *MemoryStore) ListBySurvey(ctx context.Context, surveyID string) ([]*model.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, gatewayErr("list", collAnswers, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Answer, 0, len(m.answers[surveyID]))
	for _, a := range m.answers[surveyID] {
		out = append(out, copyAnswer(a))
	}
	return out, nil
}

func (m *MemoryStore) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, gatewayErr("count", collAnswers, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.answers[surveyID]), nil
}

func copySurvey(s *model.Survey) *model.Survey {
	cp := *s
	cp.Questions = make([]model.Question, len(s.Questions))
	for i, q := range s.Questions {
		cp.Questions[i] = copyQuestion(q)
	}
	cp.Requirements = append([]string(nil), s.Requirements...)
	cp.Segmentation = append([]string(nil), s.Segmentation...)
	return &cp
}

func copyQuestion(q model.Question) model.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func copyAnswer(a *model.Answer) *model.Answer {
	cp := *a
	cp.Data = make([]model.AnswerEntry, len(a.Data))
	for i, e := range a.Data {
		cp.Data[i] = model.AnswerEntry{Index: e.Index, Answers: append([]string(nil), e.Answers...)}
	}
	return &cp
}
