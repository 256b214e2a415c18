package service

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden           = errors.New("not the owner of this survey")
	ErrSettlementNotNeeded = errors.New("survey settlement is not retryable")
)

// ValidationError reports a malformed survey definition. It never reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid survey: " + e.Message
	}
	return fmt.Sprintf("invalid survey: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SubmissionKind classifies rejected submissions
type SubmissionKind string

const (
	SubmissionClosed        SubmissionKind = "closed"
	SubmissionQuotaExceeded SubmissionKind = "quota_exceeded"
	SubmissionInvalidOption SubmissionKind = "invalid_option"
	SubmissionMissingAnswer SubmissionKind = "missing_required_answer"
	SubmissionNotEligible   SubmissionKind = "not_eligible"
)

// SubmissionError is returned when a submission is rejected before any write.
// errors.Is matches on Kind, so callers can compare against ErrClosed and friends.
type SubmissionError struct {
	Kind          SubmissionKind
	QuestionIndex int // -1 when not tied to a question
	Message       string
}

func (e *SubmissionError) Error() string {
	if e.QuestionIndex >= 0 {
		return fmt.Sprintf("%s: question %d: %s", e.Kind, e.QuestionIndex, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmissionError) Is(target error) bool {
	t, ok := target.(*SubmissionError)
	return ok && t.Kind == e.Kind
}

var (
	ErrClosed                = &SubmissionError{Kind: SubmissionClosed, QuestionIndex: -1, Message: "survey is closed"}
	ErrQuotaExceeded         = &SubmissionError{Kind: SubmissionQuotaExceeded, QuestionIndex: -1, Message: "survey quota reached"}
	ErrInvalidOption         = &SubmissionError{Kind: SubmissionInvalidOption, QuestionIndex: -1, Message: "invalid option"}
	ErrMissingRequiredAnswer = &SubmissionError{Kind: SubmissionMissingAnswer, QuestionIndex: -1, Message: "missing answer"}
	ErrNotEligible           = &SubmissionError{Kind: SubmissionNotEligible, QuestionIndex: -1, Message: "participant does not meet the survey requirements"}
)

func rejected(kind SubmissionKind, index int, format string, args ...any) *SubmissionError {
	return &SubmissionError{Kind: kind, QuestionIndex: index, Message: fmt.Sprintf(format, args...)}
}
