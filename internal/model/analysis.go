package model

import "time"

// SELQuestion is the per-question context sent to the AI insight service
type SELQuestion struct {
	Category Category `json:"category"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Weight   float64  `json:"weight"`
}

// AnalysisRequest is one student's scored answers, keyed "q<index>"
type AnalysisRequest struct {
	Responses   map[string]int `json:"responses"`
	Questions   []SELQuestion  `json:"questions"`
	Provisional SelScoreSet    `json:"provisional"`
}

// AnalysisResult is what the AI insight service returns for one student
type AnalysisResult struct {
	Scores          SelScoreSet `json:"scores"`
	Insights        []string    `json:"insights"`
	Recommendations []string    `json:"recommendations"`
	CrisisLevel     CrisisLevel `json:"crisisLevel"`
}

// AreaScore names one SEL area with its score
type AreaScore struct {
	Area  Category `json:"area"`
	Value float64  `json:"value"`
}

// AnalysisSummary is the headline of a single analysis
type AnalysisSummary struct {
	TotalScore    float64   `json:"totalScore"`
	StrongestArea AreaScore `json:"strongestArea"`
	WeakestArea   AreaScore `json:"weakestArea"`
}

// Analysis run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCanceled  = "canceled"
)

// AnalysisRun tracks one pass of the batch orchestrator
type AnalysisRun struct {
	RunID            string     `json:"runId"`
	SurveyID         string     `json:"surveyId"`
	Status           string     `json:"status"`
	TotalResponses   int        `json:"totalResponses"`
	TotalBatches     int        `json:"totalBatches"`
	CompletedBatches int        `json:"completedBatches"`
	Succeeded        int        `json:"succeeded"`
	Failed           int        `json:"failed"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

// AnalyzedResponse is the per-response outcome reported back to the caller
type AnalyzedResponse struct {
	ID          string      `json:"id"`
	StudentName string      `json:"studentName"`
	SelScores   SelScoreSet `json:"selScores"`
	CrisisLevel CrisisLevel `json:"crisisLevel"`
	TotalScore  float64     `json:"totalScore"`
}

// AnalysisOutcome is everything written to a response when its analysis completes
type AnalysisOutcome struct {
	SelScores         SelScoreSet
	ProvisionalScores SelScoreSet
	AIInsights        []string
	Recommendations   []string
	CrisisLevel       CrisisLevel
	TotalScore        float64
	AnalyzedAt        time.Time
	BatchInfo         *BatchInfo
}
