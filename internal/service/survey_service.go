package service

import (
	"context"
	_ "embed"
	"strings"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/forms"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/repository"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/questions.yaml
var defaultQuestionsYAML []byte

// GenerateRequest describes the survey the teacher wants generated
type GenerateRequest struct {
	TargetGrade     string   `json:"targetGrade"`
	DifficultyLevel string   `json:"difficultyLevel"`
	FocusAreas      []string `json:"focusAreas,omitempty"`
}

// DeployOptions controls the identity items added to a deployed form
type DeployOptions struct {
	IncludeStudentFields bool     `json:"includeStudentFields"`
	ClassNames           []string `json:"classNames,omitempty"`
}

// QuestionGenerator produces SEL questions with an AI model
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req GenerateRequest) ([]model.SurveyQuestion, error)
}

// FormsDeployer publishes a survey as a Google Form
type FormsDeployer interface {
	CreateSurveyForm(ctx context.Context, spec forms.DeploySpec) (*forms.Deployment, error)
}

// SurveyService handles survey generation, storage and deployment
type SurveyService struct {
	surveyRepo repository.SurveyRepo
	generator  QuestionGenerator
	deployer   FormsDeployer
	log        *logger.Logger
}

// NewSurveyService creates a new survey service
func NewSurveyService(surveyRepo repository.SurveyRepo, generator QuestionGenerator, deployer FormsDeployer, log *logger.Logger) *SurveyService {
	if log == nil {
		log = logger.Nop()
	}
	return &SurveyService{
		surveyRepo: surveyRepo,
		generator:  generator,
		deployer:   deployer,
		log:        log,
	}
}

func likertOptions() []string {
	return []string{"전혀 그렇지 않다", "그렇지 않다", "보통이다", "그렇다", "매우 그렇다"}
}

// DefaultQuestions returns the built-in question bank
func DefaultQuestions() []model.SurveyQuestion {
	var bank struct {
		Options   []string               `yaml:"options"`
		Questions []model.SurveyQuestion `yaml:"questions"`
	}
	if err := yaml.Unmarshal(defaultQuestionsYAML, &bank); err != nil {
		panic("defaults/questions.yaml: " + err.Error())
	}
	if len(bank.Options) == 0 {
		bank.Options = likertOptions()
	}
	for i := range bank.Questions {
		q := &bank.Questions[i]
		if q.Type == "" {
			q.Type = model.QuestionTypeMultipleChoice
		}
		if len(q.Options) == 0 {
			q.Options = append([]string(nil), bank.Options...)
		}
		if q.Weight == 0 {
			q.Weight = 1
		}
	}
	return bank.Questions
}

// Generate asks the AI for a question set; any failure falls back to the default bank
func (s *SurveyService) Generate(ctx context.Context, req GenerateRequest) []model.SurveyQuestion {
	if s.generator != nil {
		questions, err := s.generator.GenerateQuestions(ctx, req)
		if err == nil && len(questions) > 0 {
			return questions
		}
		s.log.Warn("question generation failed, using default bank", "target_grade", req.TargetGrade, "error", err)
	}
	return DefaultQuestions()
}

// Save stores a new survey for the teacher
func (s *SurveyService) Save(ctx context.Context, teacherEmail string, survey *model.Survey) (string, error) {
	if strings.TrimSpace(survey.Title) == "" || len(survey.Questions) == 0 {
		return "", errors.Wrap(ErrInvalidInput, "title and questions are required")
	}
	for i, q := range survey.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return "", errors.Wrapf(ErrInvalidInput, "question %d is empty", i+1)
		}
		if q.Category != "" && !q.Category.Valid() {
			return "", errors.Wrapf(ErrInvalidInput, "question %d has unknown category %q", i+1, q.Category)
		}
		if q.Type == "" {
			survey.Questions[i].Type = model.QuestionTypeMultipleChoice
		}
		if q.Weight == 0 {
			survey.Questions[i].Weight = 1
		}
	}
	survey.ID = ""
	survey.TeacherEmail = teacherEmail
	survey.Status = model.SurveyStatusDraft
	survey.ResponseCount = 0

	id, err := s.surveyRepo.Create(ctx, survey)
	if err != nil {
		return "", errors.Wrap(err, "create survey")
	}
	s.log.Info("survey saved", "survey_id", id, "questions", len(survey.Questions))
	return id, nil
}

// List returns the teacher's surveys, newest first
func (s *SurveyService) List(ctx context.Context, teacherEmail string) ([]*model.Survey, error) {
	surveys, err := s.surveyRepo.ListByTeacher(ctx, teacherEmail)
	if err != nil {
		return nil, errors.Wrap(err, "list surveys")
	}
	if surveys == nil {
		surveys = []*model.Survey{}
	}
	return surveys, nil
}

// Get returns a survey owned by the teacher
func (s *SurveyService) Get(ctx context.Context, teacherEmail, surveyID string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
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

// Deploy publishes the survey as a Google Form and records the form links
func (s *SurveyService) Deploy(ctx context.Context, teacherEmail, surveyID string, opts DeployOptions) (*model.Survey, error) {
	survey, err := s.Get(ctx, teacherEmail, surveyID)
	if err != nil {
		return nil, err
	}
	if s.deployer == nil {
		return nil, errors.New("forms deployer not configured")
	}

	dep, err := s.deployer.CreateSurveyForm(ctx, forms.DeploySpec{
		Title:                survey.Title,
		Description:          survey.Description,
		IncludeStudentFields: opts.IncludeStudentFields,
		ClassNames:           opts.ClassNames,
		Questions:            survey.Questions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "deploy form")
	}

	if err := s.surveyRepo.MarkDeployed(ctx, survey.ID, dep.FormID, dep.EditURL, dep.ResponseURL, opts.IncludeStudentFields); err != nil {
		return nil, errors.Wrap(err, "mark deployed")
	}
	s.log.Info("survey deployed", "survey_id", survey.ID, "form_id", dep.FormID)

	survey.FormID = dep.FormID
	survey.EditURL = dep.EditURL
	survey.ResponseURL = dep.ResponseURL
	survey.IncludeStudentFields = opts.IncludeStudentFields
	survey.Status = model.SurveyStatusDeployed
	return survey, nil
}

// Delete removes a survey owned by the teacher
func (s *SurveyService) Delete(ctx context.Context, teacherEmail, surveyID string) error {
	if _, err := s.Get(ctx, teacherEmail, surveyID); err != nil {
		return err
	}
	return s.surveyRepo.Delete(ctx, surveyID)
}
