package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/matching"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/normalize"
	"github.com/reallygood83/counselingautomation/internal/scoring"
	"golang.org/x/sync/errgroup"
)

// BatchPolicy is the inter-batch back-pressure applied against the AI quota
type BatchPolicy struct {
	Size  int
	Delay time.Duration
}

// DefaultBatchPolicy is three responses per batch with a one second pause between batches
func DefaultBatchPolicy() BatchPolicy {
	return BatchPolicy{Size: 3, Delay: time.Second}
}

// Sleeper waits between batches; it returns early with ctx.Err() on cancellation
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Analyzer is the external AI insight service
type Analyzer interface {
	Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error)
}

// AnalysisResponseStore is the persistence the orchestrator needs
type AnalysisResponseStore interface {
	GetByID(ctx context.Context, id string) (*model.SurveyResponse, error)
	ListPending(ctx context.Context, surveyID, teacherEmail string) ([]*model.SurveyResponse, error)
	SaveAnalysis(ctx context.Context, id string, outcome *model.AnalysisOutcome) error
}

// AnalysisSurveyStore reads survey definitions and updates their aggregate counters
type AnalysisSurveyStore interface {
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	UpdateAnalysisStats(ctx context.Context, id string, addResponses int, analysisStatus string) error
}

// RunReport is the outcome of one orchestrator run
type RunReport struct {
	Run       model.AnalysisRun        `json:"run"`
	Analyzed  []model.AnalyzedResponse `json:"analyzed"`
	FailedIDs []string                 `json:"failedIds,omitempty"`
}

// SingleAnalysis is the outcome of analyzing one response on demand
type SingleAnalysis struct {
	ResponseID      string                `json:"responseId"`
	StudentName     string                `json:"studentName"`
	Scores          model.SelScoreSet     `json:"scores"`
	Insights        []string              `json:"insights"`
	Recommendations []string              `json:"recommendations"`
	CrisisLevel     model.CrisisLevel     `json:"crisisLevel"`
	Summary         model.AnalysisSummary `json:"summary"`
	AnalyzedAt      time.Time             `json:"analyzedAt"`
}

// AnalysisService is the batch analysis orchestrator
type AnalysisService struct {
	responses  AnalysisResponseStore
	surveys    AnalysisSurveyStore
	analyzer   Analyzer
	normalizer *normalize.Normalizer
	extractor  *scoring.Extractor
	policy     BatchPolicy
	sleep      Sleeper
	now        func() time.Time
	log        *logger.Logger

	progress    ProgressTracker
	broadcaster Broadcaster
}

// NewAnalysisService creates the orchestrator. A non-positive batch size falls back to the default policy.
func NewAnalysisService(responses AnalysisResponseStore, surveys AnalysisSurveyStore, analyzer Analyzer, policy BatchPolicy, log *logger.Logger) *AnalysisService {
	if log == nil {
		log = logger.Nop()
	}
	if policy.Size <= 0 {
		policy = DefaultBatchPolicy()
	}
	return &AnalysisService{
		responses:  responses,
		surveys:    surveys,
		analyzer:   analyzer,
		normalizer: normalize.NewNormalizer(log),
		extractor:  scoring.NewExtractor(log),
		policy:     policy,
		sleep:      contextSleep,
		now:        time.Now,
		log:        log,
	}
}

// SetSleeper replaces the inter-batch wait
func (s *AnalysisService) SetSleeper(sleep Sleeper) {
	s.sleep = sleep
}

// SetProgressTracker sets where run snapshots are stored
func (s *AnalysisService) SetProgressTracker(p ProgressTracker) {
	s.progress = p
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *AnalysisService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Policy returns the active batch policy
func (s *AnalysisService) Policy() BatchPolicy {
	return s.policy
}

// Partition splits responses into consecutive batches of at most size elements
func Partition(items []*model.SurveyResponse, size int) [][]*model.SurveyResponse {
	if size <= 0 {
		size = 1
	}
	var batches [][]*model.SurveyResponse
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// AnalyzePending analyzes every pending response of the teacher, optionally scoped to one survey
func (s *AnalysisService) AnalyzePending(ctx context.Context, teacherEmail, surveyID string) (*RunReport, error) {
	if surveyID != "" {
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
	}

	pending, err := s.responses.ListPending(ctx, surveyID, teacherEmail)
	if err != nil {
		return nil, errors.Wrap(err, "list pending responses")
	}
	return s.Run(ctx, surveyID, pending, 0), nil
}

// Run processes responses in sequential batches, concurrently within a batch.
// A failed response stays pending and never aborts its batch or later batches.
// Cancelling ctx stops the run between batches. newlySaved is added to the
// survey's responseCount when the run is scoped to one survey.
func (s *AnalysisService) Run(ctx context.Context, surveyID string, pending []*model.SurveyResponse, newlySaved int) *RunReport {
	batches := Partition(pending, s.policy.Size)
	report := &RunReport{
		Run: model.AnalysisRun{
			RunID:          uuid.New().String(),
			SurveyID:       surveyID,
			Status:         model.RunStatusRunning,
			TotalResponses: len(pending),
			TotalBatches:   len(batches),
			StartedAt:      s.now(),
		},
		Analyzed: []model.AnalyzedResponse{},
	}
	log := s.log.With("run_id", report.Run.RunID, "survey_id", surveyID)
	log.Info("analysis run started", "responses", len(pending), "batches", len(batches), "batch_size", s.policy.Size)
	s.publish(ctx, &report.Run, MsgAnalysisStarted, report.Run)

	surveys := s.loadSurveys(ctx, pending)

	for i, batch := range batches {
		if ctx.Err() != nil {
			report.Run.Status = model.RunStatusCanceled
			break
		}
		info := &model.BatchInfo{BatchIndex: i + 1, TotalBatches: len(batches)}
		analyzed, failed := s.runBatch(ctx, batch, surveys, info, log)

		report.Analyzed = append(report.Analyzed, analyzed...)
		report.FailedIDs = append(report.FailedIDs, failed...)
		report.Run.CompletedBatches = i + 1
		report.Run.Succeeded += len(analyzed)
		report.Run.Failed += len(failed)

		log.Info("batch completed", "batch", i+1, "of", len(batches), "succeeded", len(analyzed), "failed", len(failed))
		s.publish(ctx, &report.Run, MsgBatchCompleted, BatchProgress{
			RunID:        report.Run.RunID,
			SurveyID:     surveyID,
			BatchIndex:   i + 1,
			TotalBatches: len(batches),
			Succeeded:    len(analyzed),
			Failed:       len(failed),
		})

		if i < len(batches)-1 {
			if err := s.sleep(ctx, s.policy.Delay); err != nil {
				report.Run.Status = model.RunStatusCanceled
				break
			}
		}
	}

	if report.Run.Status == model.RunStatusRunning {
		report.Run.Status = model.RunStatusCompleted
	}
	finished := s.now()
	report.Run.FinishedAt = &finished

	// counters are informational; a cancelled ctx must not skip them
	s.updateSurveyStats(context.WithoutCancel(ctx), surveyID, pending, report, newlySaved, log)

	log.Info("analysis run finished",
		"status", report.Run.Status,
		"succeeded", report.Run.Succeeded,
		"failed", report.Run.Failed,
		"total", report.Run.TotalResponses,
	)
	s.publish(context.WithoutCancel(ctx), &report.Run, MsgAnalysisFinished, report.Run)
	return report
}

// runBatch fires one task per response and waits for all of them. Tasks never
// return an error to the group so a failure cannot cancel its siblings.
func (s *AnalysisService) runBatch(ctx context.Context, batch []*model.SurveyResponse, surveys map[string]*model.Survey, info *model.BatchInfo, log *logger.Logger) ([]model.AnalyzedResponse, []string) {
	var (
		mu       sync.Mutex
		analyzed []model.AnalyzedResponse
		failed   []string
		g        errgroup.Group
	)

	for _, resp := range batch {
		resp := resp
		g.Go(func() error {
			outcome, err := s.analyzeResponse(ctx, resp, surveys[resp.SurveyID], info)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("response analysis failed",
					"response_id", resp.ID,
					"student_name", resp.StudentInfo.Name,
					"batch", info.BatchIndex,
					"error", err,
				)
				failed = append(failed, resp.ID)
				return nil
			}
			analyzed = append(analyzed, model.AnalyzedResponse{
				ID:          resp.ID,
				StudentName: resp.StudentInfo.Name,
				SelScores:   outcome.SelScores,
				CrisisLevel: outcome.CrisisLevel,
				TotalScore:  outcome.TotalScore,
			})
			return nil
		})
	}
	_ = g.Wait()
	return analyzed, failed
}

// analyzeResponse is the per-response pipeline: normalize, drop identity answers,
// score, call the AI once, validate and persist. Once started it is not cancelled
// by the caller; the AI client's own timeout bounds it.
func (s *AnalysisService) analyzeResponse(ctx context.Context, resp *model.SurveyResponse, survey *model.Survey, info *model.BatchInfo) (outcome *model.AnalysisOutcome, err error) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic during analysis: %v", r)
		}
	}()

	answers := s.normalizer.Normalize(normalize.FromStored(resp), nil)
	_, scored := matching.SplitIdentity(answers)
	if len(scored) == 0 {
		return nil, errors.New("response has no answers to analyze")
	}

	extraction := s.extractor.Extract(scored, survey.ExplicitCategories())
	req := buildAnalysisRequest(extraction, scored, survey)

	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	validated := scoring.Validate(result.Scores)
	now := s.now()
	outcome = &model.AnalysisOutcome{
		SelScores:         validated,
		ProvisionalScores: extraction.Scores,
		AIInsights:        result.Insights,
		Recommendations:   result.Recommendations,
		CrisisLevel:       scoring.Classify(validated),
		TotalScore:        scoring.TotalScore(validated),
		AnalyzedAt:        now,
	}
	if info != nil {
		outcome.BatchInfo = &model.BatchInfo{
			BatchIndex:   info.BatchIndex,
			TotalBatches: info.TotalBatches,
			ProcessedAt:  now,
		}
	}

	if err := s.responses.SaveAnalysis(ctx, resp.ID, outcome); err != nil {
		return nil, errors.Wrap(err, "save analysis")
	}
	return outcome, nil
}

func buildAnalysisRequest(extraction scoring.Extraction, answers []model.NormalizedAnswer, survey *model.Survey) *model.AnalysisRequest {
	req := &model.AnalysisRequest{
		Responses:   make(map[string]int, len(extraction.Questions)),
		Provisional: extraction.Scores,
	}
	for i, qs := range extraction.Questions {
		req.Responses[fmt.Sprintf("q%d", i)] = qs.Score

		q := model.SELQuestion{
			Category: qs.Category,
			Question: answers[qs.Index].QuestionTitle,
			Options:  likertOptions(),
			Weight:   1,
		}
		if survey != nil && qs.Index < len(survey.Questions) {
			src := survey.Questions[qs.Index]
			if src.Question != "" {
				q.Question = src.Question
			}
			if len(src.Options) > 0 {
				q.Options = src.Options
			}
			if src.Weight > 0 {
				q.Weight = src.Weight
			}
		}
		if q.Question == "" || q.Question == normalize.TitleNotFound {
			q.Question = fmt.Sprintf("질문 %d", qs.Index+1)
		}
		req.Questions = append(req.Questions, q)
	}
	return req
}

// loadSurveys reads each distinct parent survey once, before any task starts
func (s *AnalysisService) loadSurveys(ctx context.Context, pending []*model.SurveyResponse) map[string]*model.Survey {
	out := make(map[string]*model.Survey)
	for _, resp := range pending {
		if _, seen := out[resp.SurveyID]; seen {
			continue
		}
		survey, err := s.surveys.GetByID(ctx, resp.SurveyID)
		if err != nil {
			s.log.Warn("survey lookup failed, using positional categories", "survey_id", resp.SurveyID, "error", err)
		}
		out[resp.SurveyID] = survey
	}
	return out
}

func (s *AnalysisService) updateSurveyStats(ctx context.Context, surveyID string, pending []*model.SurveyResponse, report *RunReport, newlySaved int, log *logger.Logger) {
	// nothing new and nothing analyzed: keep the survey's current status
	if len(pending) == 0 && newlySaved == 0 {
		return
	}
	succeededBySurvey := map[string]int{}
	for _, a := range report.Analyzed {
		for _, p := range pending {
			if p.ID == a.ID {
				succeededBySurvey[p.SurveyID]++
				break
			}
		}
	}

	targets := map[string]int{}
	if surveyID != "" {
		targets[surveyID] = newlySaved
	} else {
		for _, p := range pending {
			targets[p.SurveyID] = 0
		}
	}

	for id, added := range targets {
		status := model.SurveyAnalysisPending
		if succeededBySurvey[id] > 0 {
			status = model.SurveyAnalysisPartial
		}
		if err := s.surveys.UpdateAnalysisStats(ctx, id, added, status); err != nil {
			log.Warn("survey stats update failed", "target_survey", id, "error", err)
		}
	}
}

func (s *AnalysisService) publish(ctx context.Context, run *model.AnalysisRun, msgType string, payload interface{}) {
	if s.progress != nil {
		if err := s.progress.SaveRun(ctx, run); err != nil {
			s.log.Warn("progress snapshot failed", "run_id", run.RunID, "error", err)
		}
	}
	if s.broadcaster != nil && run.SurveyID != "" {
		s.broadcaster.BroadcastToSurvey(run.SurveyID, msgType, payload)
	}
}

// AnalyzeOne runs the per-response pipeline synchronously for a single response
func (s *AnalysisService) AnalyzeOne(ctx context.Context, teacherEmail, responseID string) (*SingleAnalysis, error) {
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, errors.Wrap(err, "load response")
	}
	if resp == nil {
		return nil, ErrResponseNotFound
	}
	if resp.TeacherEmail != teacherEmail {
		return nil, ErrForbidden
	}

	survey, err := s.surveys.GetByID(ctx, resp.SurveyID)
	if err != nil {
		s.log.Warn("survey lookup failed, using positional categories", "survey_id", resp.SurveyID, "error", err)
	}

	outcome, err := s.analyzeResponse(ctx, resp, survey, nil)
	if err != nil {
		return nil, err
	}
	return &SingleAnalysis{
		ResponseID:      resp.ID,
		StudentName:     resp.StudentInfo.Name,
		Scores:          outcome.SelScores,
		Insights:        outcome.AIInsights,
		Recommendations: outcome.Recommendations,
		CrisisLevel:     outcome.CrisisLevel,
		Summary:         scoring.Summarize(outcome.SelScores),
		AnalyzedAt:      outcome.AnalyzedAt,
	}, nil
}

// GetRun returns a stored run snapshot
func (s *AnalysisService) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	if s.progress == nil {
		return nil, nil
	}
	return s.progress.GetRun(ctx, runID)
}
