package repository

import (
	"context"
	"time"

	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SurveyRepo handles MongoDB operations for surveys
type SurveyRepo interface {
	Create(ctx context.Context, survey *model.Survey) (string, error)
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	ListByTeacher(ctx context.Context, teacherEmail string) ([]*model.Survey, error)
	MarkDeployed(ctx context.Context, id, formID, editURL, responseURL string, includeStudentFields bool) error
	UpdateAnalysisStats(ctx context.Context, id string, addResponses int, analysisStatus string) error
	Delete(ctx context.Context, id string) error
}

type surveyRepo struct {
	collection *mongo.Collection
}

// NewSurveyRepo creates a new survey repository
func NewSurveyRepo(db *mongo.Database, log *logger.Logger) SurveyRepo {
	r := &surveyRepo{
		collection: db.Collection("surveys"),
	}
	createIndex(context.Background(), log, r.collection, bson.D{
		{Key: "teacherEmail", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	return r
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) (string, error) {
	survey.CreatedAt = time.Now()
	survey.UpdatedAt = survey.CreatedAt
	if survey.Status == "" {
		survey.Status = model.SurveyStatusDraft
	}

	result, err := r.collection.InsertOne(ctx, survey)
	if err != nil {
		return "", err
	}
	survey.ID = insertedHex(result)
	return survey.ID, nil
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	filter, err := oidFilter(id)
	if err != nil {
		return nil, nil
	}

	var survey model.Survey
	err = r.collection.FindOne(ctx, filter).Decode(&survey)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	survey.ID = id
	return &survey, nil
}

func (r *surveyRepo) ListByTeacher(ctx context.Context, teacherEmail string) ([]*model.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"teacherEmail": teacherEmail}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var surveys []*model.Survey
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *surveyRepo) MarkDeployed(ctx context.Context, id, formID, editURL, responseURL string, includeStudentFields bool) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"formId":               formID,
		"editUrl":              editURL,
		"responseUrl":          responseURL,
		"includeStudentFields": includeStudentFields,
		"status":               model.SurveyStatusDeployed,
		"updatedAt":            time.Now(),
	}})
	return err
}

// UpdateAnalysisStats increments responseCount without isolation; concurrent runs may race on it
func (r *surveyRepo) UpdateAnalysisStats(ctx context.Context, id string, addResponses int, analysisStatus string) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"responseCount": addResponses},
		"$set": bson.M{
			"analysisStatus": analysisStatus,
			"lastResponseAt": now,
			"updatedAt":      now,
		},
	})
	return err
}

func (r *surveyRepo) Delete(ctx context.Context, id string) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, filter)
	return err
}
