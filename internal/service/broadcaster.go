package service

import (
	"context"

	"github.com/reallygood83/counselingautomation/internal/model"
)

// Progress message types pushed to teachers watching a survey
const (
	MsgAnalysisStarted  = "analysis_started"
	MsgBatchCompleted   = "analysis_batch_completed"
	MsgAnalysisFinished = "analysis_finished"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, msgType string, payload interface{})
}

// ProgressTracker persists analysis run snapshots
type ProgressTracker interface {
	SaveRun(ctx context.Context, run *model.AnalysisRun) error
	GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error)
	GetLatestRun(ctx context.Context, surveyID string) (*model.AnalysisRun, error)
}

// BatchProgress is published after every batch
type BatchProgress struct {
	RunID        string `json:"runId"`
	SurveyID     string `json:"surveyId"`
	BatchIndex   int    `json:"batchIndex"`
	TotalBatches int    `json:"totalBatches"`
	Succeeded    int    `json:"succeeded"`
	Failed       int    `json:"failed"`
}
