package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/config"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/scoring"
	"github.com/tidwall/gjson"
)

const (
	fallbackInsight        = "분석 결과를 생성할 수 없습니다."
	fallbackRecommendation = "추가 관찰이 필요합니다."
)

// GeminiAnalyzer is the AI insight service: one call per student response
type GeminiAnalyzer struct {
	config *config.AIConfig
	client *http.Client
	log    *logger.Logger
}

// NewGeminiAnalyzer creates a new Gemini client
func NewGeminiAnalyzer(cfg *config.AIConfig, log *logger.Logger) *GeminiAnalyzer {
	if cfg == nil {
		cfg = config.DefaultAIConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GeminiAnalyzer{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		log: log,
	}
}

// Analyze scores one student's answers per category and asks the model for insights.
// Transport and API errors are returned so the caller can leave the response pending.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	scores := categoryScores(req)
	result := &model.AnalysisResult{
		Scores:      scores,
		CrisisLevel: scoring.Classify(scores),
	}

	if !g.config.IsEnabled() {
		result.Insights, result.Recommendations = mockInsights(req.Provisional)
		return result, nil
	}

	text, err := g.callGemini(ctx, g.config.Models.Analysis, buildAnalysisPrompt(scores))
	if err != nil {
		return nil, errors.Wrap(err, "gemini analysis")
	}
	result.Insights, result.Recommendations = g.parseAnalysis(text)
	return result, nil
}

// GenerateQuestions asks the model for a SEL question set
func (g *GeminiAnalyzer) GenerateQuestions(ctx context.Context, req GenerateRequest) ([]model.SurveyQuestion, error) {
	if !g.config.IsEnabled() {
		return nil, errors.New("gemini api key not configured")
	}
	text, err := g.callGemini(ctx, g.config.Models.Generate, buildGeneratePrompt(req))
	if err != nil {
		return nil, errors.Wrap(err, "gemini generate")
	}

	body := extractJSONObject(text)
	if body == "" {
		return nil, errors.New("no JSON object in generation output")
	}
	var parsed struct {
		Questions []model.SurveyQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, errors.Wrap(err, "decode generated questions")
	}

	out := make([]model.SurveyQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if strings.TrimSpace(q.Question) == "" || !q.Category.Valid() {
			continue
		}
		if q.Type == "" {
			q.Type = model.QuestionTypeMultipleChoice
		}
		if len(q.Options) == 0 {
			q.Options = likertOptions()
		}
		if q.Weight == 0 {
			q.Weight = 1
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, errors.New("generation returned no usable questions")
	}
	return out, nil
}

func (g *GeminiAnalyzer) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", g.config.ModelEndpoint(modelName), g.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("gemini returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.String() == "" {
		return "", errors.New("empty response from Gemini")
	}
	return text.String(), nil
}

// parseAnalysis accepts insights as a string or a list; malformed output yields the fallback text
func (g *GeminiAnalyzer) parseAnalysis(text string) ([]string, []string) {
	body := extractJSONObject(text)
	if body == "" || !gjson.Valid(body) {
		g.log.Warn("analysis output is not JSON", "preview", truncate(text, 120))
		return []string{fallbackInsight}, []string{fallbackRecommendation}
	}

	insights := stringList(gjson.Get(body, "insights"))
	if len(insights) == 0 {
		insights = []string{fallbackInsight}
	}
	recs := stringList(gjson.Get(body, "recommendations"))
	if len(recs) == 0 {
		recs = []string{fallbackRecommendation}
	}
	return insights, recs
}

func stringList(r gjson.Result) []string {
	if r.IsArray() {
		var out []string
		for _, e := range r.Array() {
			if s := strings.TrimSpace(e.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := strings.TrimSpace(r.String()); s != "" {
		return []string{s}
	}
	return nil
}

// categoryScores averages the per-question scores by category; an empty category scores 0
func categoryScores(req *model.AnalysisRequest) model.SelScoreSet {
	var qs []scoring.QuestionScore
	for i, q := range req.Questions {
		v, ok := req.Responses[fmt.Sprintf("q%d", i)]
		if !ok {
			continue
		}
		qs = append(qs, scoring.QuestionScore{Index: i, Category: q.Category, Score: v})
	}
	return scoring.CategoryAverages(qs)
}

func mockInsights(provisional model.SelScoreSet) ([]string, []string) {
	sum := scoring.Summarize(provisional)
	insights := []string{
		fmt.Sprintf("전체 평균은 %.1f점입니다. %s 영역이 가장 강하고 %s 영역은 더 지원이 필요합니다.",
			sum.TotalScore,
			sum.StrongestArea.Area.KoreanName(),
			sum.WeakestArea.Area.KoreanName()),
	}
	recs := []string{
		fmt.Sprintf("%s 영역을 칭찬하고 강점으로 활용하도록 격려합니다.", sum.StrongestArea.Area.KoreanName()),
		fmt.Sprintf("%s 영역을 위한 소그룹 활동이나 개별 상담을 계획합니다.", sum.WeakestArea.Area.KoreanName()),
		fallbackRecommendation,
	}
	return insights, recs
}

func buildAnalysisPrompt(scores model.SelScoreSet) string {
	return fmt.Sprintf(`학생의 SEL 평가 결과를 분석해주세요.

점수 결과:
- 자기인식: %.1f/5.0
- 자기관리: %.1f/5.0
- 사회적 인식: %.1f/5.0
- 관계기술: %.1f/5.0
- 의사결정: %.1f/5.0

다음 JSON 형식으로 답하세요:
{
  "insights": "학생의 전반적인 사회정서적 발달 상태와 특징을 3-4줄로 요약",
  "recommendations": ["구체적인 지도 방안 1", "구체적인 지도 방안 2", "구체적인 지도 방안 3"]
}

분석은 따뜻하고 격려적인 톤으로 작성하며, 실제 교육 현장에서 활용 가능한 구체적인 방안을 제시하세요.`,
		scores.SelfAwareness, scores.SelfManagement, scores.SocialAwareness,
		scores.Relationship, scores.DecisionMaking)
}

func buildGeneratePrompt(req GenerateRequest) string {
	level := map[string]string{"basic": "기초", "standard": "표준", "advanced": "심화"}[req.DifficultyLevel]
	if level == "" {
		level = "표준"
	}
	focus := ""
	if len(req.FocusAreas) > 0 {
		focus = "- 중점 영역: " + strings.Join(req.FocusAreas, ", ") + "\n"
	}
	return fmt.Sprintf(`초등학생 대상 사회정서학습(SEL) 설문 문항을 생성하세요.

- 대상 학년: %s
- 난이도: %s
%s
SEL 5대 영역:
1. 자기인식 (selfAwareness)
2. 자기관리 (selfManagement)
3. 사회적 인식 (socialAwareness)
4. 관계 기술 (relationship)
5. 의사결정 (decisionMaking)

각 영역별로 4개씩, 총 20개 문항을 생성하세요.

출력 형식 (JSON):
{"questions":[{"category":"selfAwareness","question":"나는 내 감정이 왜 생기는지 잘 안다.","options":["전혀 그렇지 않다","그렇지 않다","보통이다","그렇다","매우 그렇다"],"weight":1}]}`,
		req.TargetGrade, level, focus)
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
