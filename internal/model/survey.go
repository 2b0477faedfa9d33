package model

import "time"

// QuestionType is the authoring type of a survey question
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeCheckbox       QuestionType = "checkbox"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeParagraph      QuestionType = "paragraph"
	QuestionTypeLinearScale    QuestionType = "linear_scale"
)

// Survey status values
const (
	SurveyStatusDraft    = "draft"
	SurveyStatusDeployed = "deployed"
)

// Coarse survey-level analysis status
const (
	SurveyAnalysisPending = "pending"
	SurveyAnalysisPartial = "partial"
)

// SurveyQuestion is a question template; Category is the explicit SEL mapping when present
type SurveyQuestion struct {
	Question string       `json:"question" bson:"question" yaml:"question"`
	Options  []string     `json:"options,omitempty" bson:"options,omitempty" yaml:"options"`
	Type     QuestionType `json:"type" bson:"type" yaml:"type"`
	Category Category     `json:"category,omitempty" bson:"category,omitempty" yaml:"category"`
	Weight   float64      `json:"weight" bson:"weight" yaml:"weight"`
}

// Survey is an SEL questionnaire owned by a teacher
type Survey struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	TeacherEmail    string           `json:"teacherEmail" bson:"teacherEmail"`
	Title           string           `json:"title" bson:"title"`
	Description     string           `json:"description" bson:"description"`
	TargetGrade     string           `json:"targetGrade" bson:"targetGrade"`
	DifficultyLevel string           `json:"difficultyLevel" bson:"difficultyLevel"`
	Questions       []SurveyQuestion `json:"questions" bson:"questions"`
	Status          string           `json:"status" bson:"status"`

	FormID               string `json:"formId,omitempty" bson:"formId,omitempty"`
	EditURL              string `json:"editUrl,omitempty" bson:"editUrl,omitempty"`
	ResponseURL          string `json:"responseUrl,omitempty" bson:"responseUrl,omitempty"`
	IncludeStudentFields bool   `json:"includeStudentFields" bson:"includeStudentFields"`

	ResponseCount  int        `json:"responseCount" bson:"responseCount"`
	AnalysisStatus string     `json:"analysisStatus,omitempty" bson:"analysisStatus,omitempty"`
	LastResponseAt *time.Time `json:"lastResponseAt,omitempty" bson:"lastResponseAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ExplicitCategories returns the per-question category metadata, or nil when no question carries one
func (s *Survey) ExplicitCategories() []Category {
	if s == nil {
		return nil
	}
	out := make([]Category, len(s.Questions))
	found := false
	for i, q := range s.Questions {
		out[i] = q.Category
		if q.Category != "" {
			found = true
		}
	}
	if !found {
		return nil
	}
	return out
}
