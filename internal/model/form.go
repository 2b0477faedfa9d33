package model

// Question kinds reported by the form source
const (
	QuestionKindChoice  = "choice"
	QuestionKindText    = "text"
	QuestionKindScale   = "scale"
	QuestionKindUnknown = "unknown"
)

// FormDefinition is the question id -> title/type mapping of a deployed external form
type FormDefinition struct {
	FormID string     `json:"formId"`
	Title  string     `json:"title"`
	Items  []FormItem `json:"items"`
}

// FormItem is one item of a form; Question is nil for non-question items (sections, images)
type FormItem struct {
	ItemID   string        `json:"itemId"`
	Title    string        `json:"title"`
	Question *FormQuestion `json:"question,omitempty"`
}

// FormQuestion identifies the question inside an item
type FormQuestion struct {
	QuestionID string `json:"questionId"`
	Kind       string `json:"kind"`
}

// RawFormResponse is one externally collected response, kept as raw JSON so answer order survives
type RawFormResponse struct {
	ResponseID  string `json:"responseId"`
	SubmittedAt string `json:"submittedAt"`
	Raw         []byte `json:"-"`
}

// NormalizedAnswer is the canonical form of one answer regardless of the source schema
type NormalizedAnswer struct {
	QuestionID    string      `json:"questionId"`
	QuestionTitle string      `json:"questionTitle"`
	QuestionType  string      `json:"questionType"`
	RawValue      interface{} `json:"rawValue"`
}
