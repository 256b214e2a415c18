package service

import (
	"certo/internal/model"
	"fmt"
	"math"
	"strings"
	"time"
)

// BuildSurvey validates a draft and turns it into a Survey ready to publish.
// It has no side effects; persistence is the caller's job.
func BuildSurvey(draft SurveyDraft, now time.Time) (*model.Survey, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if strings.TrimSpace(draft.Owner) == "" {
		return nil, invalid("owner", "is required")
	}
	if draft.MinAmount < 0 {
		return nil, invalid("minAmount", "must not be negative")
	}
	if draft.MaxAmount < 1 {
		return nil, invalid("maxAmount", "must be at least 1")
	}
	if draft.MinAmount > draft.MaxAmount {
		return nil, invalid("minAmount", "must not exceed maxAmount (%d > %d)", draft.MinAmount, draft.MaxAmount)
	}
	if math.IsNaN(draft.Prize) || math.IsInf(draft.Prize, 0) || draft.Prize < 0 {
		return nil, invalid("prize", "must be a non-negative number")
	}
	if !draft.TimeLimit.After(now) {
		return nil, invalid("timeLimit", "must be in the future")
	}

	requirements, err := requirementTags(draft.WorldID, draft.QuarkID)
	if err != nil {
		return nil, err
	}

	if len(draft.Questions) == 0 {
		return nil, invalid("questions", "at least one question is required")
	}
	questions, err := buildQuestions(draft.Questions, 0)
	if err != nil {
		return nil, err
	}

	return &model.Survey{
		Name:         name,
		Description:  strings.TrimSpace(draft.Description),
		Owner:        strings.TrimSpace(draft.Owner),
		Prize:        draft.Prize,
		IPFS:         draft.IPFS,
		TimeLimit:    draft.TimeLimit.UTC(),
		MaxAmount:    draft.MaxAmount,
		MinAmount:    draft.MinAmount,
		Questions:    questions,
		Requirements: requirements,
		Segmentation: normalizeTags(draft.Segmentation),
		CreatedAt:    now.UTC(),
	}, nil
}

// requirementTags maps selector state to requirement tags. Only "required"
// contributes a tag; the Eligibility Evaluator reads the same tags back.
func requirementTags(worldID, quarkID Selector) ([]string, error) {
	tags := []string{}
	for _, sel := range []struct {
		field string
		value Selector
		tag   string
	}{
		{"worldId", worldID, model.RequirementWorldID},
		{"quarkId", quarkID, model.RequirementQuarkID},
	} {
		switch sel.value {
		case SelectorRequired:
			tags = append(tags, sel.tag)
		case SelectorOptional, "":
		default:
			return nil, invalid(sel.field, "must be %q or %q", SelectorRequired, SelectorOptional)
		}
	}
	return tags, nil
}

// buildQuestions validates drafts and assigns indices starting at offset.
func buildQuestions(drafts []QuestionDraft, offset int) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(drafts))
	for i, d := range drafts {
		index := offset + i
		field := fmt.Sprintf("questions[%d]", index)

		prompt := strings.TrimSpace(d.Question)
		if prompt == "" {
			return nil, invalid(field, "question text is required")
		}
		if len(d.Options) < 1 {
			return nil, invalid(field, "at least one option is required")
		}
		options := make([]string, 0, len(d.Options))
		seen := make(map[string]bool, len(d.Options))
		for _, o := range d.Options {
			o = strings.TrimSpace(o)
			if o == "" {
				return nil, invalid(field, "options must not be empty")
			}
			if seen[o] {
				return nil, invalid(field, "duplicate option %q", o)
			}
			seen[o] = true
			options = append(options, o)
		}

		q := model.Question{
			Index:    index,
			Question: prompt,
			Options:  options,
			Multiple: d.Multiple,
			IsAC:     d.IsAC,
		}
		if d.IsAC {
			correct := strings.TrimSpace(d.ACCorrect)
			if !seen[correct] {
				return nil, invalid(field, "attention check needs a correct option among its options")
			}
			q.ACCorrect = correct
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// normalizeTags trims, drops empties and de-duplicates while keeping order.
func normalizeTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
