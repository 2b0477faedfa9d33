package normalize

import (
	"strconv"

	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson"
)

// RawResponse is one externally collected answer record in one of the historical shapes.
// It is a closed sum: StructuredResponse, FlatResponse or EmptyResponse.
type RawResponse interface {
	shape() string
}

// StructuredResponse is the v2 layout: an ordered questions array plus metadata
type StructuredResponse struct {
	Questions []StructuredQuestion
}

// StructuredQuestion is one element of the v2 questions array.
// Valid is false when the element was null or not an object.
type StructuredQuestion struct {
	Valid         bool
	QuestionIndex int
	QuestionID    string
	QuestionTitle string
	QuestionType  string
	Answer        interface{}
	AnswerValue   interface{}
}

// FlatResponse is the v1 layout: an answers map kept in its original key order
type FlatResponse struct {
	Entries []FlatEntry
}

// FlatEntry is one key of the v1 answers map
type FlatEntry struct {
	Key   string
	Value interface{}
}

// EmptyResponse is anything that matches neither layout
type EmptyResponse struct{}

func (StructuredResponse) shape() string { return "structured" }
func (FlatResponse) shape() string       { return "flat" }
func (EmptyResponse) shape() string      { return "empty" }

// Decode discriminates raw response JSON. The structured layout wins when both are present.
// Invalid JSON decodes to EmptyResponse.
func Decode(data []byte) RawResponse {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return EmptyResponse{}
	}
	doc := gjson.ParseBytes(data)

	if qs := doc.Get("responseData.questions"); qs.IsArray() {
		out := StructuredResponse{}
		for _, q := range qs.Array() {
			out.Questions = append(out.Questions, structuredFromJSON(q))
		}
		return out
	}

	if answers := doc.Get("answers"); answers.IsObject() {
		out := FlatResponse{}
		// ForEach walks the object in document order
		answers.ForEach(func(key, value gjson.Result) bool {
			out.Entries = append(out.Entries, FlatEntry{Key: key.String(), Value: value.Value()})
			return true
		})
		return out
	}

	return EmptyResponse{}
}

func structuredFromJSON(q gjson.Result) StructuredQuestion {
	if !q.IsObject() {
		return StructuredQuestion{}
	}
	return StructuredQuestion{
		Valid:         true,
		QuestionIndex: int(q.Get("questionIndex").Int()),
		QuestionID:    q.Get("questionId").String(),
		QuestionTitle: q.Get("questionTitle").String(),
		QuestionType:  q.Get("questionType").String(),
		Answer:        q.Get("answer").Value(),
		AnswerValue:   q.Get("answerValue").Value(),
	}
}

// FromStored rebuilds the raw shape of a persisted response
func FromStored(resp *model.SurveyResponse) RawResponse {
	if resp == nil {
		return EmptyResponse{}
	}
	if resp.ResponseData != nil && len(resp.ResponseData.Questions) > 0 {
		out := StructuredResponse{}
		for _, q := range resp.ResponseData.Questions {
			out.Questions = append(out.Questions, StructuredQuestion{
				Valid:         true,
				QuestionIndex: q.QuestionIndex,
				QuestionID:    q.QuestionID,
				QuestionTitle: q.QuestionTitle,
				QuestionType:  q.QuestionType,
				Answer:        plain(q.Answer),
				AnswerValue:   plain(q.AnswerValue),
			})
		}
		return out
	}
	if len(resp.OriginalAnswers) > 0 {
		out := FlatResponse{}
		for _, e := range resp.OriginalAnswers {
			out.Entries = append(out.Entries, FlatEntry{Key: e.Key, Value: plain(e.Value)})
		}
		return out
	}
	return EmptyResponse{}
}

// ToStored converts normalized answers into the structured layout persisted for a response
func ToStored(answers []model.NormalizedAnswer) *model.ResponseData {
	data := &model.ResponseData{
		Metadata: model.ResponseMetadata{
			TotalQuestions:   len(answers),
			ResponseLanguage: "ko",
			SubmissionMethod: "google_forms",
		},
	}
	for i, a := range answers {
		data.Questions = append(data.Questions, model.ResponseQuestion{
			QuestionIndex: i,
			QuestionID:    a.QuestionID,
			QuestionTitle: a.QuestionTitle,
			QuestionType:  a.QuestionType,
			Answer:        a.RawValue,
			AnswerValue:   a.RawValue,
		})
		if !isEmptyValue(a.RawValue) {
			data.Metadata.CompletedQuestions++
		}
	}
	return data
}

// ToOriginalAnswers converts normalized answers into the ordered v1 answers map
func ToOriginalAnswers(answers []model.NormalizedAnswer) bson.D {
	out := make(bson.D, 0, len(answers))
	for _, a := range answers {
		out = append(out, bson.E{Key: a.QuestionID, Value: bson.D{
			{Key: "questionTitle", Value: a.QuestionTitle},
			{Key: "questionType", Value: a.QuestionType},
			{Key: "answer", Value: a.RawValue},
		}})
	}
	return out
}

// plain converts driver container types into plain maps and slices
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = plain(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = plain(val)
		}
		return m
	case bson.A:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = plain(val)
		}
		return s
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = plain(val)
		}
		return s
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	return v
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func syntheticID(index int) string {
	return "question_" + strconv.Itoa(index)
}
