package model

// OptionCount is the tally for one label.
type OptionCount struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Unknown bool   `json:"unknown,omitempty"` // label is not one of the question's options
}

// AttentionSummary reports how respondents did on an attention-check question.
type AttentionSummary struct {
	Correct string `json:"correct"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
}

// QuestionResult is the per-question aggregation used by the results charts.
// Options lists the question's options in declared order, followed by unknown
// labels in first-seen order.
type QuestionResult struct {
	Question        Question          `json:"question"`
	Options         []OptionCount     `json:"options"`
	RespondentCount int               `json:"respondentCount"`
	Attention       *AttentionSummary `json:"attention,omitempty"`
}

// Counts returns the label to count mapping.
func (r *QuestionResult) Counts() map[string]int {
	out := make(map[string]int, len(r.Options))
	for _, o := range r.Options {
		out[o.Label] = o.Count
	}
	return out
}

// AnomalyKind classifies data that aggregation counted or skipped but could not attribute cleanly.
type AnomalyKind string

const (
	AnomalyUnknownLabel    AnomalyKind = "unknown_label"    // label not among the question's options
	AnomalyUnknownQuestion AnomalyKind = "unknown_question" // entry index has no question
	AnomalyMultipleLabels  AnomalyKind = "multiple_labels"  // several labels on a single-choice question
	AnomalyForeignAnswer   AnomalyKind = "foreign_answer"   // answer belongs to another survey
)

// AggregationAnomaly is reported next to results, never instead of them.
type AggregationAnomaly struct {
	Kind          AnomalyKind `json:"kind"`
	AnswerID      string      `json:"answerId,omitempty"`
	QuestionIndex int         `json:"questionIndex"`
	Label         string      `json:"label,omitempty"`
}

// SurveyResults is the full aggregation of a survey.
type SurveyResults struct {
	SurveyID     string               `json:"surveyId"`
	TotalAnswers int                  `json:"totalAnswers"`
	Questions    []QuestionResult     `json:"questions"`
	Anomalies    []AggregationAnomaly `json:"anomalies"`
}

// SurveyListing is a survey as shown to a participant browsing available surveys.
type SurveyListing struct {
	Survey   *SurveyView `json:"survey"`
	Eligible bool        `json:"eligible"`
}
