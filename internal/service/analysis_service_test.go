package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reallygood83/counselingautomation/internal/model"
)

const teacher = "teacher@school.kr"

func selSurvey(id string) *model.Survey {
	return &model.Survey{
		ID:           id,
		TeacherEmail: teacher,
		Status:       model.SurveyStatusDeployed,
		FormID:       "form-" + id,
		Questions: []model.SurveyQuestion{
			{Question: "나는 내 감정을 안다", Category: model.CategorySelfAwareness, Weight: 1},
			{Question: "나는 화를 참을 수 있다", Category: model.CategorySelfManagement, Weight: 1},
			{Question: "나는 친구 기분을 안다", Category: model.CategorySocialAwareness, Weight: 1},
			{Question: "나는 친구와 잘 지낸다", Category: model.CategoryRelationship, Weight: 1},
			{Question: "나는 신중하게 결정한다", Category: model.CategoryDecisionMaking, Weight: 1},
		},
	}
}

// pendingResponse builds a stored structured response: three identity answers then the given answers
func pendingResponse(id, surveyID, name string, answers ...interface{}) *model.SurveyResponse {
	qs := []model.ResponseQuestion{
		{QuestionIndex: 0, QuestionID: "name", QuestionTitle: "학생명", Answer: name, AnswerValue: name},
		{QuestionIndex: 1, QuestionID: "class", QuestionTitle: "학급", Answer: "3-1", AnswerValue: "3-1"},
		{QuestionIndex: 2, QuestionID: "number", QuestionTitle: "학번 (번호)", Answer: "1", AnswerValue: "1"},
	}
	for i, a := range answers {
		qs = append(qs, model.ResponseQuestion{
			QuestionIndex: i + 3,
			QuestionID:    fmt.Sprintf("q%d", i),
			QuestionTitle: fmt.Sprintf("문항 %d", i+1),
			Answer:        a,
			AnswerValue:   a,
		})
	}
	return &model.SurveyResponse{
		ID:             id,
		SurveyID:       surveyID,
		TeacherEmail:   teacher,
		StudentInfo:    model.StudentInfo{Name: name, Class: "3-1", Number: 1},
		ResponseData:   &model.ResponseData{Questions: qs},
		AnalysisStatus: model.AnalysisPending,
	}
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return r.err
}

func newTestAnalysis(responses *fakeResponses, surveys *fakeSurveys, analyzer Analyzer) (*AnalysisService, *recordingSleeper) {
	svc := NewAnalysisService(responses, surveys, analyzer, DefaultBatchPolicy(), nil)
	sl := &recordingSleeper{}
	svc.SetSleeper(sl.sleep)
	return svc, sl
}

func TestPartition(t *testing.T) {
	items := make([]*model.SurveyResponse, 7)
	batches := Partition(items, 3)
	if len(batches) != 3 {
		t.Fatalf("batches: want=3 got=%d", len(batches))
	}
	for i, want := range []int{3, 3, 1} {
		if len(batches[i]) != want {
			t.Fatalf("batch %d: want=%d got=%d", i, want, len(batches[i]))
		}
	}
	if got := Partition(nil, 3); len(got) != 0 {
		t.Fatalf("empty: got=%d", len(got))
	}
}

func TestAnalyzePendingIsolatesFailures(t *testing.T) {
	responses := newFakeResponses()
	for i := 1; i <= 7; i++ {
		first := "그렇다"
		if i == 4 {
			first = "전혀 그렇지 않다"
		}
		responses.Create(context.Background(), pendingResponse(fmt.Sprintf("r%d", i), "s1", fmt.Sprintf("학생%d", i),
			first, "그렇다", "그렇다", "그렇다", "그렇다"))
	}
	surveys := newFakeSurveys(selSurvey("s1"))
	analyzer := &fakeAnalyzer{scores: uniformScores(4), failScore: 1, delay: 10 * time.Millisecond}
	svc, sl := newTestAnalysis(responses, surveys, analyzer)

	report, err := svc.AnalyzePending(context.Background(), teacher, "s1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if report.Run.TotalBatches != 3 || report.Run.CompletedBatches != 3 {
		t.Fatalf("batches: got=%+v", report.Run)
	}
	if report.Run.Succeeded != 6 || report.Run.Failed != 1 {
		t.Fatalf("counts: want=6/1 got=%d/%d", report.Run.Succeeded, report.Run.Failed)
	}
	if report.Run.Status != model.RunStatusCompleted {
		t.Fatalf("status: want=completed got=%s", report.Run.Status)
	}
	if analyzer.calls != 7 {
		t.Fatalf("one AI call per response: want=7 got=%d", analyzer.calls)
	}
	if analyzer.maxPar > 3 {
		t.Fatalf("concurrency exceeded batch size: %d", analyzer.maxPar)
	}

	for i := 1; i <= 7; i++ {
		r, _ := responses.GetByID(context.Background(), fmt.Sprintf("r%d", i))
		want := model.AnalysisCompleted
		if i == 4 {
			want = model.AnalysisPending
		}
		if r.AnalysisStatus != want {
			t.Fatalf("r%d: want=%s got=%s", i, want, r.AnalysisStatus)
		}
	}
	r4, _ := responses.GetByID(context.Background(), "r4")
	if r4.SelScores != nil || r4.Processed {
		t.Fatalf("failed response must stay untouched: %+v", r4)
	}

	r7, _ := responses.GetByID(context.Background(), "r7")
	if r7.BatchInfo == nil || r7.BatchInfo.BatchIndex != 3 || r7.BatchInfo.TotalBatches != 3 {
		t.Fatalf("batch info: got=%+v", r7.BatchInfo)
	}

	if len(sl.delays) != 2 {
		t.Fatalf("delays between batches only: want=2 got=%d", len(sl.delays))
	}
	for _, d := range sl.delays {
		if d != time.Second {
			t.Fatalf("delay: want=1s got=%s", d)
		}
	}

	if len(surveys.stats) != 1 || surveys.stats[0].status != model.SurveyAnalysisPartial || surveys.stats[0].added != 0 {
		t.Fatalf("survey stats: got=%+v", surveys.stats)
	}
}

func TestAnalyzePersistsScoresEndToEnd(t *testing.T) {
	responses := newFakeResponses()
	responses.Create(context.Background(), pendingResponse("r1", "s1", "김철수", "그렇다", "보통이다", "그렇다", "매우 그렇다", "그렇다"))
	surveys := newFakeSurveys(selSurvey("s1"))
	analyzer := &fakeAnalyzer{scores: uniformScores(4)}
	svc, _ := newTestAnalysis(responses, surveys, analyzer)

	if _, err := svc.AnalyzePending(context.Background(), teacher, "s1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	r, _ := responses.GetByID(context.Background(), "r1")
	if r.AnalysisStatus != model.AnalysisCompleted || !r.Processed || r.AnalyzedAt == nil {
		t.Fatalf("status: got=%+v", r)
	}
	if *r.SelScores != uniformScores(4) {
		t.Fatalf("scores: got=%+v", r.SelScores)
	}
	if r.CrisisLevel != model.CrisisNormal {
		t.Fatalf("crisis: want=normal got=%s", r.CrisisLevel)
	}
	if r.TotalScore != 4 {
		t.Fatalf("total: want=4 got=%v", r.TotalScore)
	}

	// identity answers are not sent to the AI; survey metadata supplies categories and text
	req := analyzer.requests[0]
	if len(req.Questions) != 5 || len(req.Responses) != 5 {
		t.Fatalf("request size: got=%d/%d", len(req.Questions), len(req.Responses))
	}
	if req.Questions[3].Category != model.CategoryRelationship || req.Questions[3].Question != "나는 친구와 잘 지낸다" {
		t.Fatalf("question context: got=%+v", req.Questions[3])
	}
	if req.Responses["q3"] != 5 || req.Responses["q1"] != 3 {
		t.Fatalf("scores: got=%v", req.Responses)
	}
	saved := responses.saved["r1"]
	if saved.ProvisionalScores.Relationship != 5 || saved.ProvisionalScores.SelfManagement != 3 {
		t.Fatalf("provisional: got=%+v", saved.ProvisionalScores)
	}
}

func TestAnalyzeValidatesMissingScores(t *testing.T) {
	responses := newFakeResponses()
	responses.Create(context.Background(), pendingResponse("r1", "s1", "김철수", "그렇다"))
	surveys := newFakeSurveys(selSurvey("s1"))
	analyzer := &fakeAnalyzer{scores: model.SelScoreSet{SelfAwareness: 4}}
	svc, _ := newTestAnalysis(responses, surveys, analyzer)

	svc.AnalyzePending(context.Background(), teacher, "s1")
	r, _ := responses.GetByID(context.Background(), "r1")
	want := model.SelScoreSet{SelfAwareness: 4, SelfManagement: 2.5, SocialAwareness: 2.5, Relationship: 2.5, DecisionMaking: 2.5}
	if *r.SelScores != want {
		t.Fatalf("validated: want=%+v got=%+v", want, *r.SelScores)
	}
	if r.CrisisLevel != model.CrisisWarning {
		t.Fatalf("crisis: want=warning got=%s", r.CrisisLevel)
	}
}

func TestAnalyzeStopsOnCancelBetweenBatches(t *testing.T) {
	responses := newFakeResponses()
	for i := 1; i <= 5; i++ {
		responses.Create(context.Background(), pendingResponse(fmt.Sprintf("r%d", i), "s1", "학생", "그렇다"))
	}
	surveys := newFakeSurveys(selSurvey("s1"))
	svc, sl := newTestAnalysis(responses, surveys, &fakeAnalyzer{scores: uniformScores(4)})
	sl.err = context.Canceled

	report, err := svc.AnalyzePending(context.Background(), teacher, "s1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Run.Status != model.RunStatusCanceled || report.Run.CompletedBatches != 1 || report.Run.Succeeded != 3 {
		t.Fatalf("run: got=%+v", report.Run)
	}
	r5, _ := responses.GetByID(context.Background(), "r5")
	if r5.AnalysisStatus != model.AnalysisPending {
		t.Fatalf("unprocessed response must stay pending")
	}
	if len(surveys.stats) != 1 {
		t.Fatalf("stats still updated after cancel: got=%+v", surveys.stats)
	}
}

func TestAnalyzePendingOwnership(t *testing.T) {
	surveys := newFakeSurveys(selSurvey("s1"))
	svc, _ := newTestAnalysis(newFakeResponses(), surveys, &fakeAnalyzer{})

	if _, err := svc.AnalyzePending(context.Background(), "other@school.kr", "s1"); err != ErrForbidden {
		t.Fatalf("want ErrForbidden got=%v", err)
	}
	if _, err := svc.AnalyzePending(context.Background(), teacher, "missing"); err != ErrSurveyNotFound {
		t.Fatalf("want ErrSurveyNotFound got=%v", err)
	}
}

func TestAnalyzeOne(t *testing.T) {
	responses := newFakeResponses()
	responses.Create(context.Background(), pendingResponse("r1", "s1", "김철수", "그렇다"))
	surveys := newFakeSurveys(selSurvey("s1"))
	analyzer := &fakeAnalyzer{scores: model.SelScoreSet{SelfAwareness: 5, SelfManagement: 4, SocialAwareness: 3, Relationship: 4, DecisionMaking: 2}}
	svc, _ := newTestAnalysis(responses, surveys, analyzer)

	if _, err := svc.AnalyzeOne(context.Background(), "other@school.kr", "r1"); err != ErrForbidden {
		t.Fatalf("want ErrForbidden got=%v", err)
	}
	if _, err := svc.AnalyzeOne(context.Background(), teacher, "nope"); err != ErrResponseNotFound {
		t.Fatalf("want ErrResponseNotFound got=%v", err)
	}

	got, err := svc.AnalyzeOne(context.Background(), teacher, "r1")
	if err != nil {
		t.Fatalf("analyze one: %v", err)
	}
	if got.Summary.StrongestArea.Area != model.CategorySelfAwareness || got.Summary.WeakestArea.Area != model.CategoryDecisionMaking {
		t.Fatalf("summary: got=%+v", got.Summary)
	}
	if got.Summary.TotalScore != 3.6 {
		t.Fatalf("total: want=3.6 got=%v", got.Summary.TotalScore)
	}
	if got.CrisisLevel != model.CrisisCritical {
		t.Fatalf("crisis: want=critical got=%s", got.CrisisLevel)
	}
	r, _ := responses.GetByID(context.Background(), "r1")
	if r.AnalysisStatus != model.AnalysisCompleted || r.BatchInfo != nil {
		t.Fatalf("stored: got=%+v", r)
	}
}

func TestAnalyzePublishesProgress(t *testing.T) {
	responses := newFakeResponses()
	for i := 1; i <= 4; i++ {
		responses.Create(context.Background(), pendingResponse(fmt.Sprintf("r%d", i), "s1", "학생", "그렇다"))
	}
	svc, _ := newTestAnalysis(responses, newFakeSurveys(selSurvey("s1")), &fakeAnalyzer{scores: uniformScores(4)})
	progress := &fakeProgress{}
	bc := &fakeBroadcaster{}
	svc.SetProgressTracker(progress)
	svc.SetBroadcaster(bc)

	report, _ := svc.AnalyzePending(context.Background(), teacher, "s1")

	var types []string
	for _, b := range bc.got {
		if b.surveyID != "s1" {
			t.Fatalf("wrong survey: %s", b.surveyID)
		}
		types = append(types, b.msgType)
	}
	want := []string{MsgAnalysisStarted, MsgBatchCompleted, MsgBatchCompleted, MsgAnalysisFinished}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Fatalf("messages: want=%v got=%v", want, types)
	}
	run, _ := svc.GetRun(context.Background(), report.Run.RunID)
	if run == nil || run.Status != model.RunStatusCompleted || run.Succeeded != 4 {
		t.Fatalf("stored run: got=%+v", run)
	}
}

// slowAnalyzer finishes after delay unless its context ends first
type slowAnalyzer struct {
	delay time.Duration
}

func (a slowAnalyzer) Analyze(ctx context.Context, _ *model.AnalysisRequest) (*model.AnalysisResult, error) {
	select {
	case <-time.After(a.delay):
		return &model.AnalysisResult{Scores: uniformScores(4), Insights: []string{"잘하고 있어요"}, Recommendations: []string{"칭찬하기"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAnalyzeFinishesInFlightBatchAfterCancel(t *testing.T) {
	responses := newFakeResponses()
	for i := 1; i <= 4; i++ {
		responses.Create(context.Background(), pendingResponse(fmt.Sprintf("r%d", i), "s1", "학생", "그렇다"))
	}
	svc, _ := newTestAnalysis(responses, newFakeSurveys(selSurvey("s1")), slowAnalyzer{delay: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	defer cancel()

	report, err := svc.AnalyzePending(ctx, teacher, "s1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Run.Succeeded != 3 || report.Run.Failed != 0 {
		t.Fatalf("in-flight batch: want=3/0 got=%d/%d failed=%v", report.Run.Succeeded, report.Run.Failed, report.FailedIDs)
	}
	if report.Run.Status != model.RunStatusCanceled || report.Run.CompletedBatches != 1 {
		t.Fatalf("run: got=%+v", report.Run)
	}
	r4, _ := responses.GetByID(context.Background(), "r4")
	if r4.AnalysisStatus != model.AnalysisPending {
		t.Fatalf("r4: want=pending got=%s", r4.AnalysisStatus)
	}
}

func TestAnalyzePendingWithNothingPendingKeepsSurveyStatus(t *testing.T) {
	survey := selSurvey("s1")
	survey.AnalysisStatus = model.SurveyAnalysisPartial
	survey.ResponseCount = 4
	surveys := newFakeSurveys(survey)
	svc, _ := newTestAnalysis(newFakeResponses(), surveys, &fakeAnalyzer{scores: uniformScores(4)})

	report, err := svc.AnalyzePending(context.Background(), teacher, "s1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Run.TotalResponses != 0 || report.Run.Status != model.RunStatusCompleted {
		t.Fatalf("run: got=%+v", report.Run)
	}
	if len(surveys.stats) != 0 {
		t.Fatalf("stats: want none got=%+v", surveys.stats)
	}
	if survey.AnalysisStatus != model.SurveyAnalysisPartial || survey.ResponseCount != 4 {
		t.Fatalf("survey: status=%s count=%d", survey.AnalysisStatus, survey.ResponseCount)
	}
}
