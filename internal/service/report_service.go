package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/repository"
	"github.com/reallygood83/counselingautomation/internal/scoring"
)

// AreaReport is one SEL area of a report
type AreaReport struct {
	Category model.Category `json:"category"`
	Name     string         `json:"name"`
	Score    float64        `json:"score"`
}

// StudentReport is the counseling summary of one analyzed response
type StudentReport struct {
	ReportID        string            `json:"reportId"`
	ResponseID      string            `json:"responseId"`
	SurveyID        string            `json:"surveyId"`
	SurveyTitle     string            `json:"surveyTitle"`
	Student         model.StudentInfo `json:"student"`
	Areas           []AreaReport      `json:"areas"`
	TotalScore      float64           `json:"totalScore"`
	StrongestArea   AreaReport        `json:"strongestArea"`
	WeakestArea     AreaReport        `json:"weakestArea"`
	CrisisLevel     model.CrisisLevel `json:"crisisLevel"`
	CrisisLabel     string            `json:"crisisLabel"`
	Insights        []string          `json:"insights"`
	Recommendations []string          `json:"recommendations"`
	AnalyzedAt      *time.Time        `json:"analyzedAt,omitempty"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

// AttentionStudent is a student whose crisis level is above normal
type AttentionStudent struct {
	ResponseID  string            `json:"responseId"`
	Name        string            `json:"name"`
	Class       string            `json:"class"`
	Number      int               `json:"number"`
	TotalScore  float64           `json:"totalScore"`
	CrisisLevel model.CrisisLevel `json:"crisisLevel"`
	CrisisLabel string            `json:"crisisLabel"`
}

// ClassReport aggregates the analyzed responses of one survey
type ClassReport struct {
	ReportID          string                    `json:"reportId"`
	SurveyID          string                    `json:"surveyId"`
	SurveyTitle       string                    `json:"surveyTitle"`
	TotalResponses    int                       `json:"totalResponses"`
	AnalyzedResponses int                       `json:"analyzedResponses"`
	Averages          model.SelScoreSet         `json:"averages"`
	Areas             []AreaReport              `json:"areas"`
	Distribution      map[model.CrisisLevel]int `json:"distribution"`
	NeedsAttention    []AttentionStudent        `json:"needsAttention"`
	GeneratedAt       time.Time                 `json:"generatedAt"`
}

// ReportService builds per-student and per-class summaries from stored analyses
type ReportService struct {
	surveys   repository.SurveyRepo
	responses repository.ResponseRepo
	now       func() time.Time
	log       *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(surveys repository.SurveyRepo, responses repository.ResponseRepo, log *logger.Logger) *ReportService {
	if log == nil {
		log = logger.Nop()
	}
	return &ReportService{
		surveys:   surveys,
		responses: responses,
		now:       time.Now,
		log:       log,
	}
}

func areaReports(s model.SelScoreSet) []AreaReport {
	out := make([]AreaReport, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, AreaReport{Category: c, Name: c.KoreanName(), Score: s.Get(c)})
	}
	return out
}

func toAreaReport(a model.AreaScore) AreaReport {
	return AreaReport{Category: a.Area, Name: a.Area.KoreanName(), Score: a.Value}
}

// StudentReport builds the report of one analyzed response
func (s *ReportService) StudentReport(ctx context.Context, teacherEmail, surveyID, responseID string) (*StudentReport, error) {
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, errors.Wrap(err, "load response")
	}
	if resp == nil || (surveyID != "" && resp.SurveyID != surveyID) {
		return nil, ErrResponseNotFound
	}
	if resp.TeacherEmail != teacherEmail {
		return nil, ErrForbidden
	}
	if resp.AnalysisStatus != model.AnalysisCompleted || resp.SelScores == nil {
		return nil, ErrNotAnalyzed
	}

	scores := *resp.SelScores
	summary := scoring.Summarize(scores)
	total := resp.TotalScore
	if total == 0 {
		total = summary.TotalScore
	}
	level := resp.CrisisLevel
	if level == "" {
		level = scoring.Classify(scores)
	}

	report := &StudentReport{
		ReportID:        uuid.New().String(),
		ResponseID:      resp.ID,
		SurveyID:        resp.SurveyID,
		Student:         resp.StudentInfo,
		Areas:           areaReports(scores),
		TotalScore:      total,
		StrongestArea:   toAreaReport(summary.StrongestArea),
		WeakestArea:     toAreaReport(summary.WeakestArea),
		CrisisLevel:     level,
		CrisisLabel:     level.Label(),
		Insights:        resp.AIInsights,
		Recommendations: resp.Recommendations,
		AnalyzedAt:      resp.AnalyzedAt,
		GeneratedAt:     s.now(),
	}
	if survey, err := s.surveys.GetByID(ctx, resp.SurveyID); err == nil && survey != nil {
		report.SurveyTitle = survey.Title
	}
	return report, nil
}

// ClassReport aggregates every completed response of a survey
func (s *ReportService) ClassReport(ctx context.Context, teacherEmail, surveyID string) (*ClassReport, error) {
	survey, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, errors.Wrap(err, "load survey")
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	if survey.TeacherEmail != teacherEmail {
		return nil, ErrForbidden
	}

	items, err := s.responses.ListBySurvey(ctx, surveyID, teacherEmail)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}

	report := &ClassReport{
		ReportID:       uuid.New().String(),
		SurveyID:       surveyID,
		SurveyTitle:    survey.Title,
		TotalResponses: len(items),
		Distribution: map[model.CrisisLevel]int{
			model.CrisisNormal:    0,
			model.CrisisAttention: 0,
			model.CrisisWarning:   0,
			model.CrisisCritical:  0,
		},
		NeedsAttention: []AttentionStudent{},
		GeneratedAt:    s.now(),
	}

	var sums model.SelScoreSet
	for _, r := range items {
		if r.AnalysisStatus != model.AnalysisCompleted || r.SelScores == nil {
			continue
		}
		report.AnalyzedResponses++
		for _, c := range model.Categories {
			sums.Set(c, sums.Get(c)+r.SelScores.Get(c))
		}

		level := r.CrisisLevel
		if level == "" {
			level = scoring.Classify(*r.SelScores)
		}
		report.Distribution[level]++
		if level == model.CrisisNormal {
			continue
		}
		total := r.TotalScore
		if total == 0 {
			total = scoring.TotalScore(*r.SelScores)
		}
		report.NeedsAttention = append(report.NeedsAttention, AttentionStudent{
			ResponseID:  r.ID,
			Name:        r.StudentInfo.Name,
			Class:       r.StudentInfo.Class,
			Number:      r.StudentInfo.Number,
			TotalScore:  total,
			CrisisLevel: level,
			CrisisLabel: level.Label(),
		})
	}

	if n := float64(report.AnalyzedResponses); n > 0 {
		for _, c := range model.Categories {
			report.Averages.Set(c, math.Round(sums.Get(c)/n*10)/10)
		}
	}
	report.Areas = areaReports(report.Averages)
	sort.SliceStable(report.NeedsAttention, func(i, j int) bool {
		return report.NeedsAttention[i].TotalScore < report.NeedsAttention[j].TotalScore
	})

	s.log.Info("class report built", "survey_id", surveyID, "analyzed", report.AnalyzedResponses, "attention", len(report.NeedsAttention))
	return report, nil
}
