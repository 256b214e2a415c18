package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	collSurveys = "surveys"
	collAnswers = "answers"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrQuotaExceeded = errors.New("survey quota reached")
	ErrConflict      = errors.New("record changed concurrently")
)

// GatewayError wraps a storage failure. Callers surface it unchanged and never
// retry, since retrying an insert can duplicate answers.
type GatewayError struct {
	Op         string
	Collection string
	Err        error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func gatewayErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Op: op, Collection: collection, Err: err}
}

// SurveyFilter narrows List. Zero values match everything.
type SurveyFilter struct {
	Owner  string
	OpenAt time.Time // only surveys whose timeLimit is after OpenAt
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
