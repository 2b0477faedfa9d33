package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// AnalysisStatus is the per-response analysis state that is persisted
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisCompleted AnalysisStatus = "completed"
)

// StudentInfo is the identity attached to a stored response
type StudentInfo struct {
	StudentID string `json:"studentId,omitempty" bson:"studentId,omitempty"`
	Name      string `json:"name" bson:"name"`
	Class     string `json:"class" bson:"class"`
	Number    int    `json:"number" bson:"number"`
	MatchType string `json:"matchType,omitempty" bson:"matchType,omitempty"`
}

// ResponseQuestion is one answered question in the structured (v2) layout
type ResponseQuestion struct {
	QuestionIndex int         `json:"questionIndex" bson:"questionIndex"`
	QuestionID    string      `json:"questionId" bson:"questionId"`
	QuestionTitle string      `json:"questionTitle" bson:"questionTitle"`
	QuestionType  string      `json:"questionType" bson:"questionType"`
	Answer        interface{} `json:"answer" bson:"answer"`
	AnswerValue   interface{} `json:"answerValue" bson:"answerValue"`
}

// ResponseMetadata describes a structured response
type ResponseMetadata struct {
	TotalQuestions     int    `json:"totalQuestions" bson:"totalQuestions"`
	CompletedQuestions int    `json:"completedQuestions" bson:"completedQuestions"`
	ResponseLanguage   string `json:"responseLanguage" bson:"responseLanguage"`
	SubmissionMethod   string `json:"submissionMethod" bson:"submissionMethod"`
}

// ResponseData is the structured (v2) layout of the answers
type ResponseData struct {
	Questions []ResponseQuestion `json:"questions" bson:"questions"`
	Metadata  ResponseMetadata   `json:"metadata" bson:"metadata"`
}

// BatchInfo records which analysis batch produced the scores
type BatchInfo struct {
	BatchIndex   int       `json:"batchIndex" bson:"batchIndex"`
	TotalBatches int       `json:"totalBatches" bson:"totalBatches"`
	ProcessedAt  time.Time `json:"processedAt" bson:"processedAt"`
}

// SurveyResponse is the stored unit of record for one student's submission
type SurveyResponse struct {
	ID           string      `json:"id" bson:"_id,omitempty"`
	SurveyID     string      `json:"surveyId" bson:"surveyId"`
	FormID       string      `json:"formId" bson:"formId"`
	ResponseID   string      `json:"responseId,omitempty" bson:"responseId,omitempty"`
	TeacherEmail string      `json:"teacherEmail" bson:"teacherEmail"`
	StudentInfo  StudentInfo `json:"studentInfo" bson:"studentInfo"`

	ResponseData *ResponseData `json:"responseData,omitempty" bson:"responseData,omitempty"`
	// OriginalAnswers keeps the flat (v1) answers map in its original key order
	OriginalAnswers bson.D `json:"-" bson:"originalAnswers,omitempty"`

	SubmittedAt string    `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	SavedAt     time.Time `json:"savedAt" bson:"savedAt"`

	Processed         bool           `json:"processed" bson:"processed"`
	SelScores         *SelScoreSet   `json:"selScores" bson:"selScores"`
	ProvisionalScores *SelScoreSet   `json:"provisionalScores,omitempty" bson:"provisionalScores,omitempty"`
	AnalysisStatus    AnalysisStatus `json:"analysisStatus" bson:"analysisStatus"`
	AnalyzedAt        *time.Time     `json:"analyzedAt,omitempty" bson:"analyzedAt,omitempty"`
	AIInsights        []string       `json:"aiInsights,omitempty" bson:"aiInsights,omitempty"`
	Recommendations   []string       `json:"recommendations,omitempty" bson:"recommendations,omitempty"`
	CrisisLevel       CrisisLevel    `json:"crisisLevel,omitempty" bson:"crisisLevel,omitempty"`
	TotalScore        float64        `json:"totalScore,omitempty" bson:"totalScore,omitempty"`
	BatchInfo         *BatchInfo     `json:"batchInfo,omitempty" bson:"batchInfo,omitempty"`

	DataVersion string `json:"dataVersion" bson:"dataVersion"`
}

// UnmatchedResponse is a collected response that could not be attributed to a roster entry
type UnmatchedResponse struct {
	ResponseID  string           `json:"responseId"`
	StudentInfo *StudentIdentity `json:"studentInfo,omitempty"`
	SubmittedAt string           `json:"submittedAt,omitempty"`
	Reason      string           `json:"reason"`
}
