package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/model"
)

func analyzedResponse(id, name string, scores model.SelScoreSet, level model.CrisisLevel, total float64) *model.SurveyResponse {
	resp := pendingResponse(id, "s1", name)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	resp.SelScores = &scores
	resp.AnalysisStatus = model.AnalysisCompleted
	resp.Processed = true
	resp.AnalyzedAt = &at
	resp.CrisisLevel = level
	resp.TotalScore = total
	resp.AIInsights = []string{"꾸준히 성장하고 있습니다."}
	return resp
}

func newReportFixture(t *testing.T) (*ReportService, *fakeResponses) {
	t.Helper()
	responses := newFakeResponses()
	ctx := context.Background()
	for _, r := range []*model.SurveyResponse{
		analyzedResponse("a", "김민수", uniformScores(4.5), model.CrisisNormal, 4.5),
		analyzedResponse("b", "이영희", uniformScores(2.0), model.CrisisCritical, 2.0),
		analyzedResponse("c", "박지훈", model.SelScoreSet{SelfAwareness: 3, SelfManagement: 3, SocialAwareness: 3, Relationship: 3, DecisionMaking: 3}, "", 0),
		pendingResponse("d", "s1", "최수아", "그렇다"),
	} {
		if _, err := responses.Create(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	survey := selSurvey("s1")
	survey.Title = "1학기 SEL"
	return NewReportService(newFakeSurveys(survey), responses, nil), responses
}

func TestStudentReport(t *testing.T) {
	svc, _ := newReportFixture(t)
	ctx := context.Background()

	rep, err := svc.StudentReport(ctx, teacher, "s1", "a")
	if err != nil {
		t.Fatalf("StudentReport: %v", err)
	}
	if rep.SurveyTitle != "1학기 SEL" || rep.TotalScore != 4.5 || rep.CrisisLabel != "양호" {
		t.Fatalf("report: %+v", rep)
	}
	if len(rep.Areas) != 5 || rep.Areas[0].Name != "자기인식" {
		t.Fatalf("areas: %+v", rep.Areas)
	}

	// stored total and crisis missing: both recomputed
	rep, err = svc.StudentReport(ctx, teacher, "s1", "c")
	if err != nil {
		t.Fatalf("StudentReport: %v", err)
	}
	if rep.TotalScore != 3 || rep.CrisisLevel != model.CrisisWarning {
		t.Fatalf("recomputed: total=%v crisis=%s", rep.TotalScore, rep.CrisisLevel)
	}

	if _, err := svc.StudentReport(ctx, teacher, "s1", "d"); !errors.Is(err, ErrNotAnalyzed) {
		t.Fatalf("pending: got %v", err)
	}
	if _, err := svc.StudentReport(ctx, "other@school.kr", "s1", "a"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign: got %v", err)
	}
	if _, err := svc.StudentReport(ctx, teacher, "s2", "a"); !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("wrong survey: got %v", err)
	}
}

func TestClassReport(t *testing.T) {
	svc, _ := newReportFixture(t)

	rep, err := svc.ClassReport(context.Background(), teacher, "s1")
	if err != nil {
		t.Fatalf("ClassReport: %v", err)
	}
	if rep.TotalResponses != 4 || rep.AnalyzedResponses != 3 {
		t.Fatalf("counts: total=%d analyzed=%d", rep.TotalResponses, rep.AnalyzedResponses)
	}
	if rep.Averages.SelfAwareness != 3.2 {
		t.Fatalf("average: want=3.2 got=%v", rep.Averages.SelfAwareness)
	}
	if rep.Distribution[model.CrisisNormal] != 1 || rep.Distribution[model.CrisisCritical] != 1 || rep.Distribution[model.CrisisWarning] != 1 {
		t.Fatalf("distribution: %v", rep.Distribution)
	}
	if len(rep.NeedsAttention) != 2 || rep.NeedsAttention[0].Name != "이영희" || rep.NeedsAttention[1].Name != "박지훈" {
		t.Fatalf("attention list: %+v", rep.NeedsAttention)
	}

	if _, err := svc.ClassReport(context.Background(), "other@school.kr", "s1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign: got %v", err)
	}
}
