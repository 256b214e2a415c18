package model

import "time"

// AnswerEntry holds the labels selected for one question.
type AnswerEntry struct {
	Index   int      `json:"index" bson:"index"`
	Answers []string `json:"answers" bson:"answers"`
}

// Answer is one participant submission. It is written once and never updated.
type Answer struct {
	ID            string        `json:"id" bson:"_id,omitempty"`
	SurveyID      string        `json:"survey_id" bson:"survey_id"`
	ParticipantID string        `json:"participant_id,omitempty" bson:"participant_id,omitempty"`
	Data          []AnswerEntry `json:"data" bson:"data"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
}

// Entry returns the entry for question index i, or nil.
func (a *Answer) Entry(i int) *AnswerEntry {
	for k := range a.Data {
		if a.Data[k].Index == i {
			return &a.Data[k]
		}
	}
	return nil
}

// Selection is a participant's choice for one question. Single-choice questions
// take a SingleAnswer, multi-select questions a MultiAnswer.
type Selection interface {
	Labels() []string
	multiple() bool
}

// SingleAnswer selects exactly one option.
type SingleAnswer struct {
	Label string
}

func (s SingleAnswer) Labels() []string { return []string{s.Label} }
func (s SingleAnswer) multiple() bool   { return false }

// MultiAnswer selects zero or more options.
type MultiAnswer struct {
	Choices []string
}

func (m MultiAnswer) Labels() []string {
	out := make([]string, len(m.Choices))
	copy(out, m.Choices)
	return out
}
func (m MultiAnswer) multiple() bool { return true }

// IsMultiple reports whether sel is a multi-select selection.
func IsMultiple(sel Selection) bool {
	return sel.multiple()
}
