package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/redis/go-redis/v9"
)

// AnalysisCache handles Redis operations for batch analysis progress
type AnalysisCache interface {
	SaveRun(ctx context.Context, run *model.AnalysisRun) error
	GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error)
	GetLatestRun(ctx context.Context, surveyID string) (*model.AnalysisRun, error)
}

type analysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache creates a new analysis cache
func NewAnalysisCache(client *redis.Client) AnalysisCache {
	return &analysisCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

// Key helpers
func (c *analysisCache) runKey(runID string) string {
	return fmt.Sprintf("analysis:run:%s", runID)
}

func (c *analysisCache) latestRunKey(surveyID string) string {
	return fmt.Sprintf("analysis:survey:%s:latest", surveyID)
}

// SaveRun stores the run snapshot and points the survey's latest-run key at it
func (c *analysisCache) SaveRun(ctx context.Context, run *model.AnalysisRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.runKey(run.RunID), data, c.ttl)
	if run.SurveyID != "" {
		pipe.Set(ctx, c.latestRunKey(run.SurveyID), run.RunID, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *analysisCache) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	data, err := c.client.Get(ctx, c.runKey(runID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var run model.AnalysisRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *analysisCache) GetLatestRun(ctx context.Context, surveyID string) (*model.AnalysisRun, error) {
	runID, err := c.client.Get(ctx, c.latestRunKey(surveyID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.GetRun(ctx, runID)
}
