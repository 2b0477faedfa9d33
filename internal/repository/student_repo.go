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

// StudentRepo handles MongoDB operations for the student roster
type StudentRepo interface {
	Create(ctx context.Context, student *model.Student) (string, error)
	GetByID(ctx context.Context, id string) (*model.Student, error)
	FindByNameAndClass(ctx context.Context, teacherEmail, name, className string) ([]model.Student, error)
	ExistsByNumber(ctx context.Context, teacherEmail, className string, number int) (bool, error)
	ListByTeacher(ctx context.Context, teacherEmail, className string) ([]*model.Student, error)
	RecordSurvey(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type studentRepo struct {
	collection *mongo.Collection
}

// NewStudentRepo creates a new student repository with indexes
func NewStudentRepo(db *mongo.Database, log *logger.Logger) StudentRepo {
	r := &studentRepo{
		collection: db.Collection("students"),
	}
	ctx := context.Background()
	createIndex(ctx, log, r.collection, bson.D{
		{Key: "teacherEmail", Value: 1},
		{Key: "className", Value: 1},
		{Key: "studentNumber", Value: 1},
	}, true)
	createIndex(ctx, log, r.collection, bson.D{
		{Key: "teacherEmail", Value: 1},
		{Key: "studentName", Value: 1},
		{Key: "className", Value: 1},
	}, false)
	return r
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) (string, error) {
	if student.RegisteredAt.IsZero() {
		student.RegisteredAt = time.Now()
	}
	result, err := r.collection.InsertOne(ctx, student)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", err
	}
	student.ID = insertedHex(result)
	return student.ID, nil
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	filter, err := oidFilter(id)
	if err != nil {
		return nil, nil
	}
	var student model.Student
	err = r.collection.FindOne(ctx, filter).Decode(&student)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	student.ID = id
	return &student, nil
}

// FindByNameAndClass returns candidates in insertion (_id) order
func (r *studentRepo) FindByNameAndClass(ctx context.Context, teacherEmail, name, className string) ([]model.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"teacherEmail": teacherEmail,
		"studentName":  name,
		"className":    className,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var students []model.Student
	if err := cursor.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepo) ExistsByNumber(ctx context.Context, teacherEmail, className string, number int) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"teacherEmail":  teacherEmail,
		"className":     className,
		"studentNumber": number,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *studentRepo) ListByTeacher(ctx context.Context, teacherEmail, className string) ([]*model.Student, error) {
	filter := bson.M{"teacherEmail": teacherEmail}
	if className != "" {
		filter["className"] = className
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "className", Value: 1},
		{Key: "studentNumber", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var students []*model.Student
	if err := cursor.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepo) RecordSurvey(ctx context.Context, id string, at time.Time) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"surveyCount": 1},
		"$set": bson.M{"lastSurveyAt": at},
	})
	return err
}

func (r *studentRepo) Delete(ctx context.Context, id string) error {
	filter, err := oidFilter(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, filter)
	return err
}
