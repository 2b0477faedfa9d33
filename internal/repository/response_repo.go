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

// ResponseRepo handles MongoDB operations for collected survey responses
type ResponseRepo interface {
	Create(ctx context.Context, resp *model.SurveyResponse) (string, error)
	GetByID(ctx context.Context, id string) (*model.SurveyResponse, error)
	ResponseIDs(ctx context.Context, surveyID string) (map[string]bool, error)
	ListBySurvey(ctx context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error)
	ListPending(ctx context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error)
	SaveAnalysis(ctx context.Context, id string, outcome *model.AnalysisOutcome) error
	Delete(ctx context.Context, id string) error
	DeleteBySurvey(ctx context.Context, surveyID, teacherEmail string) (int64, error)
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository with indexes
func NewResponseRepo(db *mongo.Database, log *logger.Logger) ResponseRepo {
	r := &responseRepo{
		collection: db.Collection("surveyResponses"),
	}
	ctx := context.Background()
	createIndex(ctx, log, r.collection, bson.D{
		{Key: "surveyId", Value: 1},
		{Key: "savedAt", Value: -1},
	}, false)
	createIndex(ctx, log, r.collection, bson.D{
		{Key: "surveyId", Value: 1},
		{Key: "responseId", Value: 1},
	}, false)
	createIndex(ctx, log, r.collection, bson.D{
		{Key: "teacherEmail", Value: 1},
		{Key: "analysisStatus", Value: 1},
	}, false)
	return r
}

func (r *responseRepo) Create(ctx context.Context, resp *model.SurveyResponse) (string, error) {
	if resp.SavedAt.IsZero() {
		resp.SavedAt = time.Now()
	}
	result, err := r.collection.InsertOne(ctx, resp)
	if err != nil {
		return "", err
	}
	resp.ID = insertedHex(result)
	return resp.ID, nil
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.SurveyResponse, error) {
	filter, err := oidFilter(id)
	if err != nil {
		return nil, nil
	}
	var resp model.SurveyResponse
	err = r.collection.FindOne(ctx, filter).Decode(&resp)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp.ID = id
	return &resp, nil
}

// ResponseIDs returns the external response ids already stored for a survey
func (r *responseRepo) ResponseIDs(ctx context.Context, surveyID string) (map[string]bool, error) {
	opts := options.Find().SetProjection(bson.M{"responseId": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make(map[string]bool)
	for cursor.Next(ctx) {
		var row struct {
			ResponseID string `bson:"responseId"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		if row.ResponseID != "" {
			ids[row.ResponseID] = true
		}
	}
	return ids, cursor.Err()
}

func (r *responseRepo) ListBySurvey(ctx context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error) {
	return r.find(ctx, bson.M{"surveyId": surveyID, "teacherEmail": teacherEmail},
		bson.D{{Key: "savedAt", Value: -1}})
}

// ListPending returns unanalyzed responses oldest first; an empty surveyID spans all of the teacher's surveys
func (r *responseRepo) ListPending(ctx context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error) {
	filter := bson.M{
		"teacherEmail":   teacherEmail,
		"analysisStatus": model.AnalysisPending,
	}
	if surveyID != "" {
		filter["surveyId"] = surveyID
	}
	return r.find(ctx, filter, bson.D{{Key: "savedAt", Value: 1}})
}

func (r *responseRepo) find(ctx context.Context, filter bson.M, sort bson.D) ([]*model.SurveyResponse, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.SurveyResponse
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseRepo) SaveAnalysis(ctx context.Context, id string, outcome *model.AnalysisOutcome) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	set := bson.M{
		"selScores":         outcome.SelScores,
		"provisionalScores": outcome.ProvisionalScores,
		"processed":         true,
		"analysisStatus":    model.AnalysisCompleted,
		"analyzedAt":        outcome.AnalyzedAt,
		"aiInsights":        outcome.AIInsights,
		"recommendations":   outcome.Recommendations,
		"crisisLevel":       outcome.CrisisLevel,
		"totalScore":        outcome.TotalScore,
	}
	if outcome.BatchInfo != nil {
		set["batchInfo"] = outcome.BatchInfo
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *responseRepo) Delete(ctx context.Context, id string) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, filter)
	return err
}

func (r *responseRepo) DeleteBySurvey(ctx context.Context, surveyID, teacherEmail string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"surveyId": surveyID, "teacherEmail": teacherEmail})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
