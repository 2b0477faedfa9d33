package matching

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/reallygood83/counselingautomation/internal/model"
)

// identityFieldCount is how many leading answers are read positionally when no title matches
const identityFieldCount = 3

type identityField int

const (
	fieldNone identityField = iota
	fieldName
	fieldClass
	fieldNumber
)

var (
	nameKeywords   = []string{"학생명", "이름", "name"}
	classKeywords  = []string{"학급", "반", "class"}
	numberKeywords = []string{"학번", "번호", "number"}
)

// classify checks name, then class, then number; substring containment, first group wins
func classify(title string) identityField {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, nameKeywords):
		return fieldName
	case containsAny(t, classKeywords):
		return fieldClass
	case containsAny(t, numberKeywords):
		return fieldNumber
	}
	return fieldNone
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// IsIdentityTitle reports whether a question title asks for name, class or number
func IsIdentityTitle(title string) bool {
	return classify(title) != fieldNone
}

// SplitIdentity extracts the self-reported identity and returns the remaining answers.
// Title-matched answers are used when any exist; each field takes its first match and
// later answers whose titles hit an already filled field stay with the scored answers.
// Otherwise the first three answers are read as name, class and number.
func SplitIdentity(answers []model.NormalizedAnswer) (model.StudentIdentity, []model.NormalizedAnswer) {
	var id model.StudentIdentity
	rest := make([]model.NormalizedAnswer, 0, len(answers))
	seen := map[identityField]bool{}

	for _, a := range answers {
		field := classify(a.QuestionTitle)
		if field == fieldNone || seen[field] {
			rest = append(rest, a)
			continue
		}
		seen[field] = true
		switch field {
		case fieldName:
			id.Name = AnswerText(a.RawValue)
		case fieldClass:
			id.ClassName = AnswerText(a.RawValue)
		case fieldNumber:
			id.StudentNumber = ParseNumber(AnswerText(a.RawValue))
		}
	}
	if len(seen) > 0 || len(answers) < identityFieldCount {
		return id, rest
	}

	id = model.StudentIdentity{
		Name:          AnswerText(answers[0].RawValue),
		ClassName:     AnswerText(answers[1].RawValue),
		StudentNumber: ParseNumber(AnswerText(answers[2].RawValue)),
	}
	return id, answers[identityFieldCount:]
}

// ExtractIdentity returns only the identity part of SplitIdentity
func ExtractIdentity(answers []model.NormalizedAnswer) model.StudentIdentity {
	id, _ := SplitIdentity(answers)
	return id
}

// AnswerText renders a raw answer value as text. Arrays are joined with commas.
func AnswerText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}:
		return AnswerText(t["value"])
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, AnswerText(e))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	}
	return ""
}

// ParseNumber reads the leading integer of s, 0 when there is none
func ParseNumber(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
