package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"certo/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validDraft() SurveyDraft {
	return SurveyDraft{
		Name:      "Coffee habits",
		Owner:     "0xowner",
		TimeLimit: testNow.Add(48 * time.Hour),
		MinAmount: 1,
		MaxAmount: 10,
		Questions: []QuestionDraft{
			{Question: "Do you drink coffee?", Options: []string{"Yes", "No"}},
			{Question: "When?", Options: []string{"Morning", "Noon", "Night"}, Multiple: true},
		},
	}
}

func TestBuildSurvey_Valid(t *testing.T) {
	draft := validDraft()
	draft.Segmentation = []string{" student ", "student", "", "latam"}

	s, err := BuildSurvey(draft, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "Coffee habits" || s.Owner != "0xowner" {
		t.Fatalf("unexpected survey header: %+v", s)
	}
	for i, q := range s.Questions {
		if q.Index != i {
			t.Fatalf("question %d has index %d", i, q.Index)
		}
	}
	if !reflect.DeepEqual(s.Segmentation, []string{"student", "latam"}) {
		t.Fatalf("segmentation = %v", s.Segmentation)
	}
	if s.Requirements == nil || len(s.Requirements) != 0 {
		t.Fatalf("expected empty, non-nil requirements, got %#v", s.Requirements)
	}
	if !s.CreatedAt.Equal(testNow) {
		t.Fatalf("created_at = %v", s.CreatedAt)
	}
}

func TestBuildSurvey_RequirementTags(t *testing.T) {
	tests := []struct {
		name    string
		worldID Selector
		quarkID Selector
		want    []string
	}{
		{"both optional", SelectorOptional, SelectorOptional, []string{}},
		{"unset", "", "", []string{}},
		{"world id only", SelectorRequired, SelectorOptional, []string{model.RequirementWorldID}},
		{"quark id only", SelectorOptional, SelectorRequired, []string{model.RequirementQuarkID}},
		{"both", SelectorRequired, SelectorRequired, []string{model.RequirementWorldID, model.RequirementQuarkID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			draft.WorldID = tt.worldID
			draft.QuarkID = tt.quarkID

			s, err := BuildSurvey(draft, testNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(s.Requirements, tt.want) {
				t.Fatalf("requirements = %v, want %v", s.Requirements, tt.want)
			}
			if s.Requires(model.RequirementWorldID) != (tt.worldID == SelectorRequired) {
				t.Fatalf("world id tag mismatch")
			}
			if s.Requires(model.RequirementQuarkID) != (tt.quarkID == SelectorRequired) {
				t.Fatalf("quark id tag mismatch")
			}
		})
	}
}

func TestBuildSurvey_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		field string
		edit  func(*SurveyDraft)
	}{
		{"min above max", "minAmount", func(d *SurveyDraft) { d.MinAmount, d.MaxAmount = 5, 3 }},
		{"zero max", "maxAmount", func(d *SurveyDraft) { d.MinAmount, d.MaxAmount = 0, 0 }},
		{"negative min", "minAmount", func(d *SurveyDraft) { d.MinAmount = -1 }},
		{"blank name", "name", func(d *SurveyDraft) { d.Name = "  " }},
		{"no owner", "owner", func(d *SurveyDraft) { d.Owner = "" }},
		{"negative prize", "prize", func(d *SurveyDraft) { d.Prize = -1 }},
		{"past time limit", "timeLimit", func(d *SurveyDraft) { d.TimeLimit = testNow }},
		{"unknown selector", "worldId", func(d *SurveyDraft) { d.WorldID = "maybe" }},
		{"no questions", "questions", func(d *SurveyDraft) { d.Questions = nil }},
		{"question without options", "questions[0]", func(d *SurveyDraft) { d.Questions[0].Options = nil }},
		{"duplicate option", "questions[1]", func(d *SurveyDraft) { d.Questions[1].Options = []string{"A", "A "} }},
		{"attention check without answer", "questions[0]", func(d *SurveyDraft) {
			d.Questions[0].IsAC = true
			d.Questions[0].ACCorrect = "Maybe"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.edit(&draft)

			s, err := BuildSurvey(draft, testNow)
			if s != nil {
				t.Fatalf("expected no survey, got %+v", s)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestBuildSurvey_AttentionCheck(t *testing.T) {
	draft := validDraft()
	draft.Questions[0].IsAC = true
	draft.Questions[0].ACCorrect = " No"

	s, err := BuildSurvey(draft, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Questions[0].IsAC || s.Questions[0].ACCorrect != "No" {
		t.Fatalf("attention check not kept: %+v", s.Questions[0])
	}
}
