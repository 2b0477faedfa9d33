package scoring

import (
	"math"

	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
)

const (
	// AggregateDefault fills a category with no contributing answers
	AggregateDefault = 3.0
	// ValidatedDefault replaces a missing or zero score right before it is persisted
	ValidatedDefault = 2.5
)

// QuestionScore is the coerced score of one answer
type QuestionScore struct {
	Index      int            `json:"index"`
	QuestionID string         `json:"questionId"`
	Category   model.Category `json:"category"`
	Score      int            `json:"score"`
}

// Extraction is the result of scoring one response
type Extraction struct {
	Scores    model.SelScoreSet `json:"scores"`
	Questions []QuestionScore   `json:"questions"`
}

// Extractor scores normalized answers
type Extractor struct {
	log *logger.Logger
}

// NewExtractor creates an extractor
func NewExtractor(log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{log: log}
}

// Extract coerces every non-blank answer, assigns categories positionally against the
// survey's explicit categories and averages per category
func (e *Extractor) Extract(answers []model.NormalizedAnswer, explicit []model.Category) Extraction {
	cats := AssignCategories(len(answers), explicit)
	out := Extraction{Questions: make([]QuestionScore, 0, len(answers))}

	for i, a := range answers {
		if IsBlank(a.RawValue) {
			continue
		}
		score, ok := Coerce(a.RawValue)
		if !ok {
			e.log.Warn("answer not parseable, using neutral score",
				"question_id", a.QuestionID,
				"value", a.RawValue,
				"score", score,
			)
		}
		out.Questions = append(out.Questions, QuestionScore{
			Index:      i,
			QuestionID: a.QuestionID,
			Category:   cats[i],
			Score:      score,
		})
	}
	out.Scores = Aggregate(out.Questions)
	return out
}

// Aggregate averages scores per category, rounded to one decimal.
// Categories without answers get AggregateDefault.
func Aggregate(scores []QuestionScore) model.SelScoreSet {
	sums := map[model.Category]int{}
	counts := map[model.Category]int{}
	for _, s := range scores {
		sums[s.Category] += s.Score
		counts[s.Category]++
	}
	var out model.SelScoreSet
	for _, c := range model.Categories {
		if counts[c] == 0 {
			out.Set(c, AggregateDefault)
			continue
		}
		out.Set(c, round1(float64(sums[c])/float64(counts[c])))
	}
	return out
}

// Validate defaults every zero, negative or NaN field to ValidatedDefault and clamps the rest to [1,5]
func Validate(s model.SelScoreSet) model.SelScoreSet {
	var out model.SelScoreSet
	for _, c := range model.Categories {
		v := s.Get(c)
		switch {
		case math.IsNaN(v) || v <= 0:
			v = ValidatedDefault
		case v < minScore:
			v = minScore
		case v > maxScore:
			v = maxScore
		}
		out.Set(c, v)
	}
	return out
}

// TotalScore is the unweighted mean of the five category scores
func TotalScore(s model.SelScoreSet) float64 {
	sum := 0.0
	for _, v := range s.Values() {
		sum += v
	}
	return sum / float64(len(model.Categories))
}

// Summarize returns the total plus the strongest and weakest area.
// Ties resolve to the earlier category in canonical order.
func Summarize(s model.SelScoreSet) model.AnalysisSummary {
	sum := model.AnalysisSummary{TotalScore: TotalScore(s)}
	for i, c := range model.Categories {
		v := s.Get(c)
		if i == 0 || v > sum.StrongestArea.Value {
			sum.StrongestArea = model.AreaScore{Area: c, Value: v}
		}
		if i == 0 || v < sum.WeakestArea.Value {
			sum.WeakestArea = model.AreaScore{Area: c, Value: v}
		}
	}
	return sum
}

// CategoryAverages returns the per-category mean (0 when empty) of raw question scores
func CategoryAverages(scores []QuestionScore) model.SelScoreSet {
	sums := map[model.Category]int{}
	counts := map[model.Category]int{}
	for _, s := range scores {
		sums[s.Category] += s.Score
		counts[s.Category]++
	}
	var out model.SelScoreSet
	for _, c := range model.Categories {
		if counts[c] > 0 {
			out.Set(c, float64(sums[c])/float64(counts[c]))
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
