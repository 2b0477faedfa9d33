package forms

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/model"
	formsapi "google.golang.org/api/forms/v1"
)

const (
	scaleLowLabel  = "전혀 아니다"
	scaleHighLabel = "매우 그렇다"
)

// Identity item titles; they double as the matcher's title keywords
const (
	StudentNameTitle   = "학생명"
	StudentClassTitle  = "학급"
	StudentNumberTitle = "학번 (번호)"
)

// DeploySpec describes a survey to publish as a Google Form
type DeploySpec struct {
	Title                string
	Description          string
	IncludeStudentFields bool
	ClassNames           []string
	Questions            []model.SurveyQuestion
}

// Deployment is the result of publishing a form
type Deployment struct {
	FormID      string `json:"formId"`
	EditURL     string `json:"editUrl"`
	ResponseURL string `json:"responseUrl"`
}

// CreateSurveyForm creates a form, then adds the description, the identity
// items (indices 0..2) and the survey questions in order.
func (c *Client) CreateSurveyForm(ctx context.Context, spec DeploySpec) (*Deployment, error) {
	svc, _, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	created, err := svc.Forms.Create(&formsapi.Form{
		Info: &formsapi.Info{Title: spec.Title, DocumentTitle: spec.Title},
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err, "create form")
	}
	formID := created.FormId
	if formID == "" {
		return nil, errors.New("create form: empty form id")
	}
	c.log.Info("form created", "form_id", formID, "questions", len(spec.Questions))

	if spec.Description != "" {
		req := &formsapi.Request{UpdateFormInfo: &formsapi.UpdateFormInfoRequest{
			Info:       &formsapi.Info{Description: spec.Description},
			UpdateMask: "description",
		}}
		if err := c.batchUpdate(ctx, svc, formID, []*formsapi.Request{req}, "update description"); err != nil {
			return nil, err
		}
	}

	start := 0
	if spec.IncludeStudentFields {
		if err := c.batchUpdate(ctx, svc, formID, identityItems(spec.ClassNames), "add student fields"); err != nil {
			return nil, err
		}
		start = 3
	}

	if len(spec.Questions) > 0 {
		reqs := make([]*formsapi.Request, 0, len(spec.Questions))
		for i, q := range spec.Questions {
			reqs = append(reqs, createItem(q.Question, "", questionFor(q), start+i))
		}
		if err := c.batchUpdate(ctx, svc, formID, reqs, "add questions"); err != nil {
			return nil, err
		}
	}

	responseURL := created.ResponderUri
	if responseURL == "" {
		responseURL = fmt.Sprintf("https://docs.google.com/forms/d/%s/viewform", formID)
	}
	return &Deployment{
		FormID:      formID,
		EditURL:     fmt.Sprintf("https://docs.google.com/forms/d/%s/edit", formID),
		ResponseURL: responseURL,
	}, nil
}

func (c *Client) batchUpdate(ctx context.Context, svc *formsapi.Service, formID string, reqs []*formsapi.Request, op string) error {
	_, err := svc.Forms.BatchUpdate(formID, &formsapi.BatchUpdateFormRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		c.log.Error("forms batch update failed", "form_id", formID, "op", op, "error", err)
		return mapAPIError(err, op)
	}
	return nil
}

func identityItems(classNames []string) []*formsapi.Request {
	name := createItem(StudentNameTitle, "본인의 이름을 입력해주세요.",
		&formsapi.Question{Required: true, TextQuestion: &formsapi.TextQuestion{}}, 0)

	var class *formsapi.Request
	if len(classNames) > 0 {
		class = createItem(StudentClassTitle, "본인이 속한 학급을 선택해주세요.",
			&formsapi.Question{Required: true, ChoiceQuestion: &formsapi.ChoiceQuestion{Type: "DROP_DOWN", Options: choiceOptions(classNames)}}, 1)
	} else {
		class = createItem(StudentClassTitle, "본인이 속한 학급을 입력해주세요 (예: 3-1, 4-2).",
			&formsapi.Question{Required: true, TextQuestion: &formsapi.TextQuestion{}}, 1)
	}

	number := createItem(StudentNumberTitle, "본인의 번호를 입력해주세요.",
		&formsapi.Question{Required: true, TextQuestion: &formsapi.TextQuestion{}}, 2)

	return []*formsapi.Request{name, class, number}
}

func createItem(title, description string, q *formsapi.Question, index int) *formsapi.Request {
	return &formsapi.Request{CreateItem: &formsapi.CreateItemRequest{
		Item: &formsapi.Item{
			Title:        title,
			Description:  description,
			QuestionItem: &formsapi.QuestionItem{Question: q},
		},
		// index 0 is a zero value and would be dropped without ForceSendFields
		Location: &formsapi.Location{Index: int64(index), ForceSendFields: []string{"Index"}},
	}}
}

func scaleQuestion() *formsapi.ScaleQuestion {
	return &formsapi.ScaleQuestion{Low: 1, High: 5, LowLabel: scaleLowLabel, HighLabel: scaleHighLabel}
}

func choiceOptions(values []string) []*formsapi.Option {
	opts := make([]*formsapi.Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, &formsapi.Option{Value: v})
	}
	return opts
}

// questionFor maps a survey question type onto a Forms question
func questionFor(q model.SurveyQuestion) *formsapi.Question {
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		if len(q.Options) > 0 {
			return &formsapi.Question{Required: true, ChoiceQuestion: &formsapi.ChoiceQuestion{Type: "RADIO", Options: choiceOptions(q.Options)}}
		}
		return &formsapi.Question{Required: true, ScaleQuestion: scaleQuestion()}
	case model.QuestionTypeCheckbox:
		if len(q.Options) > 0 {
			return &formsapi.Question{Required: true, ChoiceQuestion: &formsapi.ChoiceQuestion{Type: "CHECKBOX", Options: choiceOptions(q.Options)}}
		}
		return &formsapi.Question{Required: true, ScaleQuestion: scaleQuestion()}
	case model.QuestionTypeShortAnswer:
		return &formsapi.Question{TextQuestion: &formsapi.TextQuestion{}}
	case model.QuestionTypeParagraph:
		return &formsapi.Question{TextQuestion: &formsapi.TextQuestion{Paragraph: true}}
	default:
		return &formsapi.Question{Required: true, ScaleQuestion: scaleQuestion()}
	}
}
