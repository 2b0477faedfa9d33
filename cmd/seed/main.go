package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/repository"
	"github.com/reallygood83/counselingautomation/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var demoRoster = []string{"김민수", "이영희", "박지훈", "최서연", "정우진"}

func main() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	var (
		mongoURI    = fs.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
		mongoDB     = fs.String("mongo-db", "counseling", "database name")
		teacher     = fs.String("teacher", "teacher@school.kr", "owning teacher email")
		teacherName = fs.String("teacher-name", "담임교사", "owning teacher display name")
		className   = fs.String("class", "3-1", "class name for the demo roster")
		school      = fs.String("school", "", "school name for the demo roster")
		formID      = fs.String("form-id", "", "existing Google Form to mark the demo survey as deployed to")
		logMode     = fs.String("log-mode", "development", "logger mode")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("SEED")); err != nil {
		fmt.Fprintln(os.Stderr, "flag parse failed:", err)
		os.Exit(2)
	}

	log, err := logger.New(*logMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(*mongoDB)
	surveyRepo := repository.NewSurveyRepo(db, log)
	studentRepo := repository.NewStudentRepo(db, log)

	surveySvc := service.NewSurveyService(surveyRepo, nil, nil, log)
	studentSvc := service.NewStudentService(studentRepo, log)

	surveyID, err := surveySvc.Save(ctx, *teacher, &model.Survey{
		Title:           "사회정서학습(SEL) 기본 설문",
		Description:     "자기인식, 자기관리, 사회적인식, 관계기술, 책임있는 의사결정 다섯 영역을 살펴봅니다.",
		TargetGrade:     "중학교",
		DifficultyLevel: "basic",
		Questions:       service.DefaultQuestions(),
	})
	if err != nil {
		log.Fatal("failed to save demo survey", "error", err)
	}

	if *formID != "" {
		responseURL := fmt.Sprintf("https://docs.google.com/forms/d/%s/viewform", *formID)
		editURL := fmt.Sprintf("https://docs.google.com/forms/d/%s/edit", *formID)
		if err := surveyRepo.MarkDeployed(ctx, surveyID, *formID, editURL, responseURL, true); err != nil {
			log.Fatal("failed to mark survey deployed", "surveyId", surveyID, "error", err)
		}
	}

	rows := make([]service.StudentInput, 0, len(demoRoster))
	for i, name := range demoRoster {
		rows = append(rows, service.StudentInput{
			StudentName:   name,
			StudentNumber: i + 1,
			ClassName:     *className,
			SchoolName:    *school,
		})
	}
	result, err := studentSvc.BulkRegister(ctx, *teacher, *teacherName, rows)
	if err != nil {
		log.Fatal("failed to register demo roster", "error", err)
	}
	for _, e := range result.Errors {
		log.Warn("roster row skipped", "student", e.Student, "reason", e.Error)
	}

	log.Info("seed complete",
		"surveyId", surveyID,
		"teacher", *teacher,
		"registered", result.Registered,
		"failed", result.Failed,
	)
}
