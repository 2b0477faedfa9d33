package normalize

import (
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
)

// TitleNotFound is substituted when no title can be resolved for a flat answer
const TitleNotFound = "not found"

// Normalizer turns raw responses of either layout into one ordered answer list
type Normalizer struct {
	log *logger.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{log: log}
}

// Normalize is the single entry point. It never fails; malformed entries are skipped.
// form is only consulted for the flat layout and may be nil.
func (n *Normalizer) Normalize(raw RawResponse, form *model.FormDefinition) []model.NormalizedAnswer {
	switch r := raw.(type) {
	case StructuredResponse:
		return n.normalizeStructured(r)
	case FlatResponse:
		return n.normalizeFlat(r, form)
	default:
		return []model.NormalizedAnswer{}
	}
}

func (n *Normalizer) normalizeStructured(r StructuredResponse) []model.NormalizedAnswer {
	out := make([]model.NormalizedAnswer, 0, len(r.Questions))
	for i, q := range r.Questions {
		if !q.Valid {
			n.log.Warn("skipping malformed structured answer", "position", i)
			continue
		}
		value := q.AnswerValue
		if isEmptyValue(value) {
			value = q.Answer
		}
		id := q.QuestionID
		if id == "" {
			id = syntheticID(i)
		}
		out = append(out, model.NormalizedAnswer{
			QuestionID:    id,
			QuestionTitle: q.QuestionTitle,
			QuestionType:  q.QuestionType,
			RawValue:      value,
		})
	}
	return out
}

func (n *Normalizer) normalizeFlat(r FlatResponse, form *model.FormDefinition) []model.NormalizedAnswer {
	out := make([]model.NormalizedAnswer, 0, len(r.Entries))
	for _, e := range r.Entries {
		entry, ok := e.Value.(map[string]interface{})
		if !ok {
			n.log.Warn("skipping malformed flat answer", "question_id", e.Key)
			continue
		}

		title, kind := "", model.QuestionKindUnknown
		if item := FindQuestionItem(form, e.Key); item != nil {
			title = item.Title
			kind = item.Question.Kind
		}
		if title == "" {
			title = LookupTitle(form, e.Key)
		}

		var value interface{}
		if legacy, isLegacy := entry["answer"]; isLegacy {
			// already-parsed entry: {questionTitle, questionType, answer}
			value = legacy
			if t, _ := entry["questionTitle"].(string); title == "" && t != "" {
				title = t
			}
			if t, _ := entry["questionType"].(string); kind == model.QuestionKindUnknown && t != "" {
				kind = t
			}
		} else {
			value = ExtractValue(entry)
		}

		if title == "" {
			n.log.Debug("question title not resolved", "question_id", e.Key)
			title = TitleNotFound
		}
		out = append(out, model.NormalizedAnswer{
			QuestionID:    e.Key,
			QuestionTitle: title,
			QuestionType:  kind,
			RawValue:      value,
		})
	}
	return out
}

// ExtractValue unwraps the answer encodings used by the form source:
// textAnswers yields the first value, choiceAnswers and fileUploadAnswers yield the array,
// anything else is returned unchanged.
func ExtractValue(answer interface{}) interface{} {
	m, ok := answer.(map[string]interface{})
	if !ok {
		return answer
	}
	if ta, ok := m["textAnswers"].(map[string]interface{}); ok {
		list, _ := ta["answers"].([]interface{})
		if len(list) == 0 {
			return ""
		}
		if first, ok := list[0].(map[string]interface{}); ok {
			if v, ok := first["value"]; ok && v != nil {
				return v
			}
		}
		return ""
	}
	if fa, ok := m["fileUploadAnswers"].(map[string]interface{}); ok {
		return answerList(fa)
	}
	if ca, ok := m["choiceAnswers"].(map[string]interface{}); ok {
		return answerList(ca)
	}
	return answer
}

func answerList(m map[string]interface{}) []interface{} {
	if list, ok := m["answers"].([]interface{}); ok {
		return list
	}
	return []interface{}{}
}

// FindQuestionItem resolves a question item by item id first, then by question id.
// Items without a question are never returned.
func FindQuestionItem(form *model.FormDefinition, id string) *model.FormItem {
	if form == nil {
		return nil
	}
	for i := range form.Items {
		if form.Items[i].Question != nil && form.Items[i].ItemID == id {
			return &form.Items[i]
		}
	}
	for i := range form.Items {
		q := form.Items[i].Question
		if q != nil && q.QuestionID == id {
			return &form.Items[i]
		}
	}
	return nil
}

// LookupTitle scans every item for a titled match on item id or question id
func LookupTitle(form *model.FormDefinition, id string) string {
	if form == nil {
		return ""
	}
	for _, item := range form.Items {
		if item.Title == "" {
			continue
		}
		if item.ItemID == id {
			return item.Title
		}
		if item.Question != nil && item.Question.QuestionID == id {
			return item.Title
		}
	}
	return ""
}
