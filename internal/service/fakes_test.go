package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/repository"
)

type fakeResponses struct {
	mu      sync.Mutex
	items   map[string]*model.SurveyResponse
	order   []string
	saveErr map[string]error
	saved   map[string]*model.AnalysisOutcome
}

func newFakeResponses() *fakeResponses {
	return &fakeResponses{
		items:   map[string]*model.SurveyResponse{},
		saveErr: map[string]error{},
		saved:   map[string]*model.AnalysisOutcome{},
	}
}

func (f *fakeResponses) Create(_ context.Context, resp *model.SurveyResponse) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp.ID == "" {
		resp.ID = fmt.Sprintf("r%d", len(f.order)+1)
	}
	cp := *resp
	f.items[resp.ID] = &cp
	f.order = append(f.order, resp.ID)
	return resp.ID, nil
}

func (f *fakeResponses) GetByID(_ context.Context, id string) (*model.SurveyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResponses) ResponseIDs(_ context.Context, surveyID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for _, r := range f.items {
		if r.SurveyID == surveyID && r.ResponseID != "" {
			out[r.ResponseID] = true
		}
	}
	return out, nil
}

func (f *fakeResponses) ListBySurvey(_ context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SurveyResponse
	for i := len(f.order) - 1; i >= 0; i-- {
		r := f.items[f.order[i]]
		if r != nil && r.SurveyID == surveyID && r.TeacherEmail == teacherEmail {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeResponses) ListPending(_ context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SurveyResponse
	for _, id := range f.order {
		r := f.items[id]
		if r == nil || r.TeacherEmail != teacherEmail || r.AnalysisStatus != model.AnalysisPending {
			continue
		}
		if surveyID != "" && r.SurveyID != surveyID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeResponses) SaveAnalysis(_ context.Context, id string, outcome *model.AnalysisOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErr[id]; err != nil {
		return err
	}
	r, ok := f.items[id]
	if !ok {
		return errors.New("not found")
	}
	scores := outcome.SelScores
	r.SelScores = &scores
	r.Processed = true
	r.AnalysisStatus = model.AnalysisCompleted
	at := outcome.AnalyzedAt
	r.AnalyzedAt = &at
	r.AIInsights = outcome.AIInsights
	r.Recommendations = outcome.Recommendations
	r.CrisisLevel = outcome.CrisisLevel
	r.TotalScore = outcome.TotalScore
	r.BatchInfo = outcome.BatchInfo
	f.saved[id] = outcome
	return nil
}

func (f *fakeResponses) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeResponses) DeleteBySurvey(_ context.Context, surveyID, teacherEmail string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.items {
		if r.SurveyID == surveyID && r.TeacherEmail == teacherEmail {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

type statsCall struct {
	id     string
	added  int
	status string
}

type fakeSurveys struct {
	mu    sync.Mutex
	items map[string]*model.Survey
	stats []statsCall
	next  int
}

func newFakeSurveys(surveys ...*model.Survey) *fakeSurveys {
	f := &fakeSurveys{items: map[string]*model.Survey{}}
	for _, s := range surveys {
		f.items[s.ID] = s
	}
	return f
}

func (f *fakeSurveys) Create(_ context.Context, survey *model.Survey) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	survey.ID = fmt.Sprintf("s%d", f.next)
	if survey.Status == "" {
		survey.Status = model.SurveyStatusDraft
	}
	cp := *survey
	f.items[survey.ID] = &cp
	return survey.ID, nil
}

func (f *fakeSurveys) GetByID(_ context.Context, id string) (*model.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSurveys) ListByTeacher(_ context.Context, teacherEmail string) ([]*model.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Survey
	for _, s := range f.items {
		if s.TeacherEmail == teacherEmail {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSurveys) MarkDeployed(_ context.Context, id, formID, editURL, responseURL string, include bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.items[id]
	s.FormID, s.EditURL, s.ResponseURL, s.IncludeStudentFields = formID, editURL, responseURL, include
	s.Status = model.SurveyStatusDeployed
	return nil
}

func (f *fakeSurveys) UpdateAnalysisStats(_ context.Context, id string, added int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, statsCall{id, added, status})
	if s, ok := f.items[id]; ok {
		s.ResponseCount += added
		s.AnalysisStatus = status
	}
	return nil
}

func (f *fakeSurveys) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

type fakeStudents struct {
	mu       sync.Mutex
	items    []*model.Student
	recorded []string
}

func (f *fakeStudents) Create(_ context.Context, s *model.Student) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.items {
		if e.TeacherEmail == s.TeacherEmail && e.ClassName == s.ClassName && e.StudentNumber == s.StudentNumber {
			return "", repository.ErrDuplicate
		}
	}
	s.ID = fmt.Sprintf("st%d", len(f.items)+1)
	cp := *s
	f.items = append(f.items, &cp)
	return s.ID, nil
}

func (f *fakeStudents) GetByID(_ context.Context, id string) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.items {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudents) FindByNameAndClass(_ context.Context, teacherEmail, name, className string) ([]model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Student
	for _, s := range f.items {
		if s.TeacherEmail == teacherEmail && s.StudentName == name && s.ClassName == className {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStudents) ExistsByNumber(_ context.Context, teacherEmail, className string, number int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.items {
		if s.TeacherEmail == teacherEmail && s.ClassName == className && s.StudentNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudents) ListByTeacher(_ context.Context, teacherEmail, className string) ([]*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Student
	for _, s := range f.items {
		if s.TeacherEmail == teacherEmail && (className == "" || s.ClassName == className) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStudents) RecordSurvey(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, id)
	return nil
}

func (f *fakeStudents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.items {
		if s.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeAnalyzer returns fixed scores; it fails when the first answer scored failScore
type fakeAnalyzer struct {
	mu        sync.Mutex
	scores    model.SelScoreSet
	failScore int
	calls     int
	requests  []*model.AnalysisRequest
	inFlight  int
	maxPar    int
	delay     time.Duration
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.inFlight++
	if f.inFlight > f.maxPar {
		f.maxPar = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.failScore != 0 && req.Responses["q0"] == f.failScore {
		return nil, errors.New("quota exceeded")
	}
	return &model.AnalysisResult{
		Scores:          f.scores,
		Insights:        []string{"잘하고 있어요"},
		Recommendations: []string{"칭찬하기"},
	}, nil
}

type fakeProgress struct {
	mu   sync.Mutex
	runs map[string]model.AnalysisRun
	n    int
}

func (f *fakeProgress) SaveRun(_ context.Context, run *model.AnalysisRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = map[string]model.AnalysisRun{}
	}
	f.runs[run.RunID] = *run
	f.n++
	return nil
}

func (f *fakeProgress) GetRun(_ context.Context, runID string) (*model.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[runID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeProgress) GetLatestRun(_ context.Context, surveyID string) (*model.AnalysisRun, error) {
	return nil, nil
}

type broadcast struct {
	surveyID string
	msgType  string
	payload  interface{}
}

type fakeBroadcaster struct {
	mu  sync.Mutex
	got []broadcast
}

func (f *fakeBroadcaster) BroadcastToSurvey(surveyID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, broadcast{surveyID, msgType, payload})
}

func uniformScores(v float64) model.SelScoreSet {
	return model.SelScoreSet{SelfAwareness: v, SelfManagement: v, SocialAwareness: v, Relationship: v, DecisionMaking: v}
}
