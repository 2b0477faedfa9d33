package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/matching"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/normalize"
	"github.com/reallygood83/counselingautomation/internal/repository"
)

// DataVersion marks records written with the structured answer layout
const DataVersion = "2.0"

// FormSource is the external form response source
type FormSource interface {
	GetForm(ctx context.Context, formID string) (*model.FormDefinition, error)
	ListResponses(ctx context.Context, formID string) ([]model.RawFormResponse, error)
}

// CollectionResult summarizes one collect run
type CollectionResult struct {
	SurveyID           string                    `json:"surveyId"`
	TotalResponses     int                       `json:"totalResponses"`
	SkippedResponses   int                       `json:"skippedResponses"`
	MatchedResponses   int                       `json:"matchedResponses"`
	UnmatchedResponses int                       `json:"unmatchedResponses"`
	SavedResponses     int                       `json:"savedResponses"`
	AnalyzedResponses  int                       `json:"analyzedResponses"`
	Unmatched          []model.UnmatchedResponse `json:"unmatched"`
	Run                *model.AnalysisRun        `json:"run,omitempty"`
}

// SavedResponses is the listing of stored responses of one survey
type SavedResponses struct {
	SurveyID         string                  `json:"surveyId"`
	Responses        []*model.SurveyResponse `json:"responses"`
	Count            int                     `json:"count"`
	ProcessedCount   int                     `json:"processedCount"`
	AnalysisComplete bool                    `json:"analysisComplete"`
}

// CollectionService pulls form responses, attributes them to students and hands them to analysis
type CollectionService struct {
	surveys    repository.SurveyRepo
	responses  repository.ResponseRepo
	students   repository.StudentRepo
	source     FormSource
	analysis   *AnalysisService
	normalizer *normalize.Normalizer
	matcher    *matching.Matcher
	now        func() time.Time
	log        *logger.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	surveys repository.SurveyRepo,
	responses repository.ResponseRepo,
	students repository.StudentRepo,
	source FormSource,
	analysis *AnalysisService,
	log *logger.Logger,
) *CollectionService {
	if log == nil {
		log = logger.Nop()
	}
	return &CollectionService{
		surveys:    surveys,
		responses:  responses,
		students:   students,
		source:     source,
		analysis:   analysis,
		normalizer: normalize.NewNormalizer(log),
		matcher:    matching.NewMatcher(students, log),
		now:        time.Now,
		log:        log,
	}
}

func (s *CollectionService) ownedSurvey(ctx context.Context, teacherEmail, surveyID string) (*model.Survey, error) {
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
	return survey, nil
}

// Collect fetches every form response, stores the ones that match a roster
// entry and analyzes the newly stored ones. Only form source errors fail the call.
func (s *CollectionService) Collect(ctx context.Context, teacherEmail, surveyID string) (*CollectionResult, error) {
	survey, err := s.ownedSurvey(ctx, teacherEmail, surveyID)
	if err != nil {
		return nil, err
	}
	if survey.FormID == "" {
		return nil, ErrNotDeployed
	}

	form, err := s.source.GetForm(ctx, survey.FormID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch form definition")
	}
	raws, err := s.source.ListResponses(ctx, survey.FormID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch form responses")
	}

	existing, err := s.responses.ResponseIDs(ctx, survey.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load stored response ids")
	}

	log := s.log.With("survey_id", survey.ID, "form_id", survey.FormID)
	result := &CollectionResult{
		SurveyID:       survey.ID,
		TotalResponses: len(raws),
		Unmatched:      []model.UnmatchedResponse{},
	}

	var saved []*model.SurveyResponse
	for _, raw := range raws {
		if raw.ResponseID != "" && existing[raw.ResponseID] {
			result.SkippedResponses++
			continue
		}

		resp, unmatched := s.ingest(ctx, survey, form, raw)
		if unmatched != nil {
			result.Unmatched = append(result.Unmatched, *unmatched)
			continue
		}
		result.MatchedResponses++
		saved = append(saved, resp)
	}
	result.UnmatchedResponses = len(result.Unmatched)
	result.SavedResponses = len(saved)

	log.Info("responses collected",
		"total", result.TotalResponses,
		"skipped", result.SkippedResponses,
		"matched", result.MatchedResponses,
		"unmatched", result.UnmatchedResponses,
	)

	if len(saved) > 0 && s.analysis != nil {
		report := s.analysis.Run(ctx, survey.ID, saved, len(saved))
		result.AnalyzedResponses = report.Run.Succeeded
		result.Run = &report.Run
	}
	return result, nil
}

// ingest normalizes, matches and stores one raw response. A miss or a processing
// failure comes back as an unmatched entry.
func (s *CollectionService) ingest(ctx context.Context, survey *model.Survey, form *model.FormDefinition, raw model.RawFormResponse) (stored *model.SurveyResponse, unmatched *model.UnmatchedResponse) {
	defer func() {
		if r := recover(); r != nil {
			stored = nil
			unmatched = processingFailure(raw, nil, fmt.Errorf("%v", r))
		}
	}()

	answers := s.normalizer.Normalize(normalize.Decode(raw.Raw), form)
	identity, _ := matching.SplitIdentity(answers)

	student, err := s.matcher.Match(ctx, survey.TeacherEmail, identity)
	if err != nil {
		s.log.Error("student matching failed", "response_id", raw.ResponseID, "error", err)
		return nil, processingFailure(raw, &identity, err)
	}
	if student == nil {
		return nil, &model.UnmatchedResponse{
			ResponseID:  raw.ResponseID,
			StudentInfo: &identity,
			SubmittedAt: raw.SubmittedAt,
			Reason:      matching.UnmatchedReason,
		}
	}

	resp := &model.SurveyResponse{
		SurveyID:     survey.ID,
		FormID:       survey.FormID,
		ResponseID:   raw.ResponseID,
		TeacherEmail: survey.TeacherEmail,
		StudentInfo: model.StudentInfo{
			StudentID: student.ID,
			Name:      student.StudentName,
			Class:     student.ClassName,
			Number:    student.StudentNumber,
			MatchType: student.MatchType,
		},
		ResponseData:    normalize.ToStored(answers),
		OriginalAnswers: normalize.ToOriginalAnswers(answers),
		SubmittedAt:     raw.SubmittedAt,
		SavedAt:         s.now(),
		AnalysisStatus:  model.AnalysisPending,
		DataVersion:     DataVersion,
	}
	id, err := s.responses.Create(ctx, resp)
	if err != nil {
		s.log.Error("response save failed", "response_id", raw.ResponseID, "student_name", student.StudentName, "error", err)
		return nil, processingFailure(raw, &identity, err)
	}
	resp.ID = id

	if err := s.students.RecordSurvey(ctx, student.ID, resp.SavedAt); err != nil {
		s.log.Warn("student survey counter update failed", "student_id", student.ID, "error", err)
	}
	return resp, nil
}

func processingFailure(raw model.RawFormResponse, identity *model.StudentIdentity, err error) *model.UnmatchedResponse {
	return &model.UnmatchedResponse{
		ResponseID:  raw.ResponseID,
		StudentInfo: identity,
		SubmittedAt: raw.SubmittedAt,
		Reason:      "응답 처리 중 오류: " + err.Error(),
	}
}

// ListSaved returns the stored responses of a survey, newest first
func (s *CollectionService) ListSaved(ctx context.Context, teacherEmail, surveyID string) (*SavedResponses, error) {
	if _, err := s.ownedSurvey(ctx, teacherEmail, surveyID); err != nil {
		return nil, err
	}
	items, err := s.responses.ListBySurvey(ctx, surveyID, teacherEmail)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	if items == nil {
		items = []*model.SurveyResponse{}
	}
	out := &SavedResponses{SurveyID: surveyID, Responses: items, Count: len(items)}
	for _, r := range items {
		if r.Processed {
			out.ProcessedCount++
		}
	}
	out.AnalysisComplete = out.Count > 0 && out.ProcessedCount == out.Count
	return out, nil
}

// DeleteResponse removes one stored response of the teacher
func (s *CollectionService) DeleteResponse(ctx context.Context, teacherEmail, surveyID, responseID string) error {
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return errors.Wrap(err, "load response")
	}
	if resp == nil || resp.SurveyID != surveyID {
		return ErrResponseNotFound
	}
	if resp.TeacherEmail != teacherEmail {
		return ErrForbidden
	}
	if err := s.responses.Delete(ctx, responseID); err != nil {
		return errors.Wrap(err, "delete response")
	}
	s.log.Info("response deleted", "response_id", responseID, "survey_id", surveyID)
	return nil
}

// DeleteAll removes every stored response of a survey and returns how many were removed
func (s *CollectionService) DeleteAll(ctx context.Context, teacherEmail, surveyID string) (int64, error) {
	if _, err := s.ownedSurvey(ctx, teacherEmail, surveyID); err != nil {
		return 0, err
	}
	n, err := s.responses.DeleteBySurvey(ctx, surveyID, teacherEmail)
	if err != nil {
		return 0, errors.Wrap(err, "delete responses")
	}
	s.log.Info("survey responses deleted", "survey_id", surveyID, "count", n)
	return n, nil
}
