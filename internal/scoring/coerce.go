package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minScore     = 1
	maxScore     = 5
	neutralScore = 3
)

var likertTable = map[string]int{
	"전혀 그렇지 않다": 1,
	"그렇지 않다":    2,
	"보통이다":      3,
	"그렇다":       4,
	"매우 그렇다":    5,
	"전혀 아니다":    1,
	"아니다":       2,
	"1점":        1,
	"2점":        2,
	"3점":        3,
	"4점":        4,
	"5점":        5,
	"1":         1,
	"2":         2,
	"3":         3,
	"4":         4,
	"5":         5,
}

// intensityKeywords is checked in order; the first tier with a matching fragment wins
var intensityKeywords = []struct {
	score     int
	fragments []string
}{
	{5, []string{"매우", "항상", "완전히"}},
	{4, []string{"자주", "잘", "대체로"}},
	{3, []string{"보통", "때때로", "가끔"}},
	{2, []string{"별로", "거의", "조금"}},
	{1, []string{"전혀", "없다", "안"}},
}

var digitRun = regexp.MustCompile(`\d+`)

// Coerce converts a raw answer into a score in [1,5].
// ok is false when nothing could be parsed and the neutral default was returned.
func Coerce(v interface{}) (score int, ok bool) {
	switch t := v.(type) {
	case float64:
		return clampInt(int(math.Round(t))), true
	case float32:
		return clampInt(int(math.Round(float64(t)))), true
	case int:
		return clampInt(t), true
	case int32:
		return clampInt(int(t)), true
	case int64:
		return clampInt(int(t)), true
	case []interface{}:
		if len(t) == 0 {
			return neutralScore, false
		}
		return Coerce(t[0])
	case []string:
		if len(t) == 0 {
			return neutralScore, false
		}
		return Coerce(t[0])
	case map[string]interface{}:
		// choice answers arrive as {"value": "..."}
		if inner, found := t["value"]; found {
			return Coerce(inner)
		}
	case string:
		return coerceText(t)
	}
	return neutralScore, false
}

func coerceText(s string) (int, bool) {
	text := strings.TrimSpace(s)
	if score, found := likertTable[text]; found {
		return score, true
	}
	for _, tier := range intensityKeywords {
		for _, frag := range tier.fragments {
			if strings.Contains(text, frag) {
				return tier.score, true
			}
		}
	}
	if run := digitRun.FindString(text); run != "" {
		n, err := strconv.Atoi(run)
		if err != nil {
			// longer than an int; still a large number
			return maxScore, true
		}
		return clampInt(n), true
	}
	return neutralScore, false
}

func clampInt(n int) int {
	if n < minScore {
		return minScore
	}
	if n > maxScore {
		return maxScore
	}
	return n
}

// IsBlank reports whether an answer carries no value at all
func IsBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}
