package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"certo/internal/log"
	"certo/internal/model"
)

// AnswerRepo handles persistence for answers
type AnswerRepo interface {
	// CreateWithinQuota stores answer only if fewer than maxAmount answers are
	// already stored for its survey. The check and the write are one atomic step;
	// ErrQuotaExceeded is returned when the quota is full.
	CreateWithinQuota(ctx context.Context, answer *model.Answer, maxAmount int) error
	ListBySurvey(ctx context.Context, surveyID string) ([]*model.Answer, error)
	CountBySurvey(ctx context.Context, surveyID string) (int, error)
}

type answerRepo struct {
	answers *mongo.Collection
	surveys *mongo.Collection
	timeout time.Duration
}

// NewAnswerRepo creates a Mongo-backed answer repository
func NewAnswerRepo(db *mongo.Database, timeout time.Duration) AnswerRepo {
	return &answerRepo{
		answers: db.Collection(collAnswers),
		surveys: db.Collection(collSurveys),
		timeout: timeout,
	}
}

// EnsureIndexes creates the indexes the answer queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collAnswers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return gatewayErr("index", collAnswers, err)
}

func (r *answerRepo) CreateWithinQuota(ctx context.Context, answer *model.Answer, maxAmount int) error {
	oid, err := primitive.ObjectIDFromHex(answer.SurveyID)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	// Reserve a slot: the filtered $inc only matches while answerCount < maxAmount,
	// so concurrent submissions cannot both take the last slot.
	res, err := r.surveys.UpdateOne(ctx,
		bson.M{"_id": oid, "answerCount": bson.M{"$lt": maxAmount}},
		bson.M{"$inc": bson.M{"answerCount": 1}},
	)
	if err != nil {
		return gatewayErr("reserve", collSurveys, err)
	}
	if res.MatchedCount == 0 {
		n, err := r.surveys.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return gatewayErr("reserve", collSurveys, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrQuotaExceeded
	}

	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now().UTC()
	}
	// The id is assigned here so an insert with an unknown outcome can be looked up.
	answer.ID = primitive.NewObjectID().Hex()

	if _, err := r.answers.InsertOne(ctx, answer); err != nil {
		switch resolveInsert(err, func() (bool, error) { return r.exists(answer.ID) }) {
		case insertCommitted:
			log.Warnf("insert of answer %s reported %v but the answer is stored", answer.ID, err)
			return nil
		case insertUnknown:
			log.Errorf("insert of answer %s has an unknown outcome, keeping its quota slot: %v", answer.ID, err)
		default:
			r.release(oid)
		}
		answer.ID = ""
		return gatewayErr("insert", collAnswers, err)
	}
	return nil
}

type insertOutcome int

const (
	insertFailed insertOutcome = iota
	insertCommitted
	insertUnknown
)

// resolveInsert decides what a failed insert did. Timeouts and network errors
// can hide a write the server committed, so those are checked with exists.
func resolveInsert(err error, exists func() (bool, error)) insertOutcome {
	if !ambiguousWrite(err) {
		return insertFailed
	}
	found, lookupErr := exists()
	switch {
	case lookupErr != nil:
		return insertUnknown
	case found:
		return insertCommitted
	}
	return insertFailed
}

func ambiguousWrite(err error) bool {
	return mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// exists looks the answer up on its own context; the request context may
// already be done.
func (r *answerRepo) exists(id string) (bool, error) {
	ctx, cancel := withTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.answers.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// release gives back a reserved slot after a failed insert. It runs on its own
// context because the request context may be the reason the insert failed.
func (r *answerRepo) release(surveyID primitive.ObjectID) {
	ctx, cancel := withTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.surveys.UpdateOne(ctx,
		bson.M{"_id": surveyID, "answerCount": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"answerCount": -1}},
	)
	if err != nil {
		log.Errorf("release quota slot for survey %s: %v", surveyID.Hex(), err)
	}
}

func (r *answerRepo) ListBySurvey(ctx context.Context, surveyID string) ([]*model.Answer, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.answers.Find(ctx, bson.M{"survey_id": surveyID}, opts)
	if err != nil {
		return nil, gatewayErr("list", collAnswers, err)
	}
	defer cursor.Close(ctx)

	answers := []*model.Answer{}
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, gatewayErr("list", collAnswers, err)
	}
	return answers, nil
}

func (r *answerRepo) CountBySurvey(ctx context.Context, surveyID string) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.answers.CountDocuments(ctx, bson.M{"survey_id": surveyID})
	if err != nil {
		return 0, gatewayErr("count", collAnswers, err)
	}
	return int(n), nil
}
