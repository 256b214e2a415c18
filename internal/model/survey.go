package model

import "time"

// Requirement tags. A tag present in Survey.Requirements means participants
// must hold that credential.
const (
	RequirementWorldID = "World ID"
	RequirementQuarkID = "Quark ID"
)

// Survey is a questionnaire published by a researcher
type Survey struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	Name         string     `json:"name" bson:"name"`
	Description  string     `json:"description" bson:"description"`
	Owner        string     `json:"owner" bson:"owner"` // wallet address or account id
	Prize        float64    `json:"prize" bson:"prize"` // total reward pool, 0 = none
	IPFS         string     `json:"ipfs,omitempty" bson:"ipfs,omitempty"`
	TimeLimit    time.Time  `json:"timeLimit" bson:"timeLimit"`
	MaxAmount    int        `json:"maxAmount" bson:"maxAmount"`
	MinAmount    int        `json:"minAmount" bson:"minAmount"`
	Questions    []Question `json:"questions" bson:"questions"`
	Requirements []string   `json:"requirements" bson:"requirements"`
	Segmentation []string   `json:"segmentation" bson:"segmentation"`
	Settlement   Settlement `json:"settlement" bson:"settlement"`
	AnswerCount  int        `json:"answerCount" bson:"answerCount"` // maintained by the gateway
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
}

// Requires reports whether the survey carries the given requirement tag.
func (s *Survey) Requires(tag string) bool {
	return containsTag(s.Requirements, tag)
}

// HasSegment reports whether the survey is tagged with the given segment.
func (s *Survey) HasSegment(tag string) bool {
	return containsTag(s.Segmentation, tag)
}

// IsOpen reports whether submissions are still accepted at now.
func (s *Survey) IsOpen(now time.Time) bool {
	return now.Before(s.TimeLimit)
}

// Question returns the question at index i, or nil.
func (s *Survey) Question(i int) *Question {
	if i < 0 || i >= len(s.Questions) {
		return nil
	}
	return &s.Questions[i]
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SurveyView is a survey as shown to participants. Attention-check markers and
// the settlement record stay with the owner.
type SurveyView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Owner        string         `json:"owner"`
	Prize        float64        `json:"prize"`
	IPFS         string         `json:"ipfs,omitempty"`
	TimeLimit    time.Time      `json:"timeLimit"`
	MaxAmount    int            `json:"maxAmount"`
	MinAmount    int            `json:"minAmount"`
	Questions    []QuestionView `json:"questions"`
	Requirements []string       `json:"requirements"`
	Segmentation []string       `json:"segmentation"`
	AnswerCount  int            `json:"answerCount"`
	CreatedAt    time.Time      `json:"created_at"`
}

// QuestionView is a question without its attention-check fields.
type QuestionView struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Multiple bool     `json:"multiple"`
}

// View returns the participant projection of s.
func (s *Survey) View() *SurveyView {
	questions := make([]QuestionView, len(s.Questions))
	for i, q := range s.Questions {
		questions[i] = QuestionView{
			Index:    q.Index,
			Question: q.Question,
			Options:  q.Options,
			Multiple: q.Multiple,
		}
	}
	return &SurveyView{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		Owner:        s.Owner,
		Prize:        s.Prize,
		IPFS:         s.IPFS,
		TimeLimit:    s.TimeLimit,
		MaxAmount:    s.MaxAmount,
		MinAmount:    s.MinAmount,
		Questions:    questions,
		Requirements: s.Requirements,
		Segmentation: s.Segmentation,
		AnswerCount:  s.AnswerCount,
		CreatedAt:    s.CreatedAt,
	}
}
