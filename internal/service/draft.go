package service

import "time"

// Selector is the researcher's choice for a credential requirement
type Selector string

const (
	SelectorOptional Selector = "optional"
	SelectorRequired Selector = "required"
)

// QuestionDraft is a question as authored, before it gets an index.
type QuestionDraft struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Multiple  bool     `json:"multiple"`
	IsAC      bool     `json:"is_ac"`
	ACCorrect string   `json:"ac_correct,omitempty"`
}

// SurveyDraft is the request-scoped input to BuildSurvey. It holds everything the
// researcher filled in; Owner comes from the authenticated session.
type SurveyDraft struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Owner        string          `json:"-"`
	IPFS         string          `json:"ipfs,omitempty"`
	TimeLimit    time.Time       `json:"timeLimit"`
	MinAmount    int             `json:"minAmount"`
	MaxAmount    int             `json:"maxAmount"`
	Prize        float64         `json:"prize"`
	WorldID      Selector        `json:"worldId"`
	QuarkID      Selector        `json:"quarkId"`
	Segmentation []string        `json:"segmentation"`
	Questions    []QuestionDraft `json:"questions"`
}
