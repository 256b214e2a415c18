package repository

import (
	"certo/internal/model"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SurveyRepo handles persistence for surveys
type SurveyRepo interface {
	Create(ctx context.Context, survey *model.Survey) (string, error)
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	List(ctx context.Context, filter SurveyFilter) ([]*model.Survey, error)
	// AppendQuestions adds questions after the first expectedLen entries. It
	// fails with ErrConflict when the stored list no longer has expectedLen entries.
	AppendQuestions(ctx context.Context, id string, expectedLen int, questions []model.Question) error
	SetSettlement(ctx context.Context, id string, settlement model.Settlement) error
}

type surveyRepo struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewSurveyRepo creates a Mongo-backed survey repository
func NewSurveyRepo(db *mongo.Database, timeout time.Duration) SurveyRepo {
	return &surveyRepo{
		collection: db.Collection(collSurveys),
		timeout:    timeout,
	}
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) (string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = time.Now().UTC()
	}
	survey.ID = ""
	survey.AnswerCount = 0

	result, err := r.collection.InsertOne(ctx, survey)
	if err != nil {
		return "", gatewayErr("insert", collSurveys, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", gatewayErr("insert", collSurveys, errors.New("unexpected inserted id type"))
	}
	survey.ID = oid.Hex()
	return survey.ID, nil
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var survey model.Survey
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&survey)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, gatewayErr("get", collSurveys, err)
	}
	survey.ID = id
	return &survey, nil
}

func (r *surveyRepo) List(ctx context.Context, filter SurveyFilter) ([]*model.Survey, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := bson.M{}
	if filter.Owner != "" {
		query["owner"] = filter.Owner
	}
	if !filter.OpenAt.IsZero() {
		query["timeLimit"] = bson.M{"$gt": filter.OpenAt}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, gatewayErr("list", collSurveys, err)
	}
	defer cursor.Close(ctx)

	surveys := []*model.Survey{}
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, gatewayErr("list", collSurveys, err)
	}
	return surveys, nil
}

func (r *surveyRepo) AppendQuestions(ctx context.Context, id string, expectedLen int, questions []model.Question) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": oid, "questions": bson.M{"$size": expectedLen}}
	update := bson.M{"$push": bson.M{"questions": bson.M{"$each": questions}}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return gatewayErr("append", collSurveys, err)
	}
	if res.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return gatewayErr("append", collSurveys, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (r *surveyRepo) SetSettlement(ctx context.Context, id string, settlement model.Settlement) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"settlement": settlement}})
	if err != nil {
		return gatewayErr("update", collSurveys, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
