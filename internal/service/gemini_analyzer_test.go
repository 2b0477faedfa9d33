package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/reallygood83/counselingautomation/internal/config"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/tidwall/gjson"
)

func geminiReply(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]string{"text": text}},
				},
			},
		},
	})
	return string(b)
}

func geminiServer(t *testing.T, status int, text string) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") || r.URL.Query().Get("key") != "test-key" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		body, _ := io.ReadAll(r.Body)
		prompts = append(prompts, gjson.GetBytes(body, "contents.0.parts.0.text").String())
		w.WriteHeader(status)
		io.WriteString(w, geminiReply(text))
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func testAIConfig(baseURL string) *config.AIConfig {
	return &config.AIConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Models:    config.GeminiModels{Analysis: "m-analysis", Generate: "m-generate"},
		TimeoutMS: 5000,
	}
}

func analysisRequest() *model.AnalysisRequest {
	req := &model.AnalysisRequest{Responses: map[string]int{}}
	scores := []int{5, 3, 4, 2, 4}
	for i, c := range model.Categories {
		req.Responses[fmt.Sprintf("q%d", i)] = scores[i]
		req.Questions = append(req.Questions, model.SELQuestion{Category: c, Question: "?", Weight: 1})
	}
	req.Provisional = model.SelScoreSet{SelfAwareness: 5, SelfManagement: 3, SocialAwareness: 4, Relationship: 2, DecisionMaking: 4}
	return req
}

func TestGeminiAnalyzeParsesInsights(t *testing.T) {
	srv, prompts := geminiServer(t, http.StatusOK, "```json\n{\"insights\": \"감정 인식이 뛰어납니다.\", \"recommendations\": [\"관계 활동\", \"역할극\"]}\n```")
	g := NewGeminiAnalyzer(testAIConfig(srv.URL), nil)

	res, err := g.Analyze(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Scores.SelfAwareness != 5 || res.Scores.Relationship != 2 {
		t.Fatalf("scores: %+v", res.Scores)
	}
	if len(res.Insights) != 1 || res.Insights[0] != "감정 인식이 뛰어납니다." {
		t.Fatalf("insights: %v", res.Insights)
	}
	if len(res.Recommendations) != 2 {
		t.Fatalf("recommendations: %v", res.Recommendations)
	}
	if res.CrisisLevel != model.CrisisCritical {
		t.Fatalf("crisis: want=critical got=%s", res.CrisisLevel)
	}
	if len(*prompts) != 1 || !strings.Contains((*prompts)[0], "관계기술: 2.0/5.0") {
		t.Fatalf("prompt: %v", *prompts)
	}
}

func TestGeminiAnalyzeFallsBackOnGarbage(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusOK, "분석할 수 없습니다")
	g := NewGeminiAnalyzer(testAIConfig(srv.URL), nil)

	res, err := g.Analyze(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Insights[0] != fallbackInsight || res.Recommendations[0] != fallbackRecommendation {
		t.Fatalf("fallback: %v / %v", res.Insights, res.Recommendations)
	}
}

func TestGeminiAnalyzeReturnsAPIErrors(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusTooManyRequests, "")
	g := NewGeminiAnalyzer(testAIConfig(srv.URL), nil)

	if _, err := g.Analyze(context.Background(), analysisRequest()); err == nil {
		t.Fatal("want error on 429")
	}
}

func TestGeminiErrorBodyIsCutOnRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, strings.Repeat("할당량초과", 60))
	}))
	defer srv.Close()
	g := NewGeminiAnalyzer(testAIConfig(srv.URL), nil)

	_, err := g.Analyze(context.Background(), analysisRequest())
	if err == nil {
		t.Fatal("want error on 503")
	}
	if !utf8.ValidString(err.Error()) {
		t.Fatalf("error is not valid utf-8: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "...") {
		t.Fatalf("long body not truncated: %q", err.Error())
	}
}

func TestGeminiAnalyzeWithoutKeyUsesMock(t *testing.T) {
	cfg := testAIConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	g := NewGeminiAnalyzer(cfg, nil)

	res, err := g.Analyze(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Insights) == 0 || !strings.Contains(res.Insights[0], "자기인식") {
		t.Fatalf("mock insights: %v", res.Insights)
	}
}

func TestGeminiGenerateQuestionsFiltersInvalid(t *testing.T) {
	out := `{"questions": [
		{"category": "selfAwareness", "question": "나는 내 감정을 안다."},
		{"category": "unknown", "question": "무시될 문항"},
		{"category": "relationship", "question": "  "},
		{"category": "decisionMaking", "question": "나는 결과를 생각한다.", "weight": 2}
	]}`
	srv, _ := geminiServer(t, http.StatusOK, out)
	g := NewGeminiAnalyzer(testAIConfig(srv.URL), nil)

	qs, err := g.GenerateQuestions(context.Background(), GenerateRequest{TargetGrade: "초등 5학년"})
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("questions: want=2 got=%d", len(qs))
	}
	if qs[0].Type != model.QuestionTypeMultipleChoice || len(qs[0].Options) != 5 || qs[0].Weight != 1 {
		t.Fatalf("defaults not applied: %+v", qs[0])
	}
	if qs[1].Weight != 2 {
		t.Fatalf("weight: %v", qs[1].Weight)
	}
}
