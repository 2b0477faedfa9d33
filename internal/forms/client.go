package forms

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	formsapi "google.golang.org/api/forms/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultBaseURL is the public Google Forms API host
const DefaultBaseURL = "https://forms.googleapis.com"

var (
	ErrFormNotFound     = errors.New("form not found")
	ErrPermissionDenied = errors.New("no permission for form")
	ErrRateLimited      = errors.New("forms api rate limited")
	ErrNoCredentials    = errors.New("no Google credentials available")
)

var scopes = []string{
	formsapi.FormsBodyScope,
	formsapi.FormsResponsesReadonlyScope,
}

type tokenKey struct{}

// WithAccessToken attaches the teacher's OAuth access token to ctx
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// HTTPClientSource returns an authorized HTTP client for one request
type HTTPClientSource func(ctx context.Context) (*http.Client, error)

// defaultHTTPClient uses the access token from ctx, else application default credentials
func defaultHTTPClient(ctx context.Context) (*http.Client, error) {
	if tok := accessToken(ctx); tok != "" {
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})), nil
	}
	hc, err := google.DefaultClient(ctx, scopes...)
	if err != nil {
		return nil, errors.Wrap(ErrNoCredentials, err.Error())
	}
	return hc, nil
}

// Client wraps the Google Forms API: definitions and deploys go through the
// forms/v1 SDK, response listing is fetched raw so answer order survives
type Client struct {
	baseURL    string
	clients    HTTPClientSource
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	log        *logger.Logger
}

// NewClient creates a Forms client; an empty baseURL means the public API
func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clients:    defaultHTTPClient,
		maxRetries: 5,
		sleep:      sleepCtx,
		log:        log,
	}
}

// SetHTTPClientSource replaces how authorized HTTP clients are built
func (c *Client) SetHTTPClientSource(src HTTPClientSource) {
	c.clients = src
}

// SetSleeper replaces the retry backoff wait
func (c *Client) SetSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	c.sleep = sleep
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) service(ctx context.Context) (*formsapi.Service, *http.Client, error) {
	hc, err := c.clients(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := formsapi.NewService(ctx,
		option.WithHTTPClient(hc),
		option.WithEndpoint(c.baseURL+"/"),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "forms service")
	}
	return svc, hc, nil
}

// GetForm fetches the form definition (question id -> title/kind)
func (c *Client) GetForm(ctx context.Context, formID string) (*model.FormDefinition, error) {
	svc, _, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	form, err := svc.Forms.Get(formID).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err, "get form")
	}
	return toDefinition(form), nil
}

func toDefinition(form *formsapi.Form) *model.FormDefinition {
	def := &model.FormDefinition{FormID: form.FormId}
	if form.Info != nil {
		def.Title = form.Info.Title
	}
	for _, item := range form.Items {
		if item == nil {
			continue
		}
		fi := model.FormItem{ItemID: item.ItemId, Title: item.Title}
		if item.QuestionItem != nil && item.QuestionItem.Question != nil {
			q := item.QuestionItem.Question
			fi.Question = &model.FormQuestion{QuestionID: q.QuestionId, Kind: questionKind(q)}
		}
		def.Items = append(def.Items, fi)
	}
	return def
}

func questionKind(q *formsapi.Question) string {
	switch {
	case q.ChoiceQuestion != nil:
		return model.QuestionKindChoice
	case q.TextQuestion != nil:
		return model.QuestionKindText
	case q.ScaleQuestion != nil:
		return model.QuestionKindScale
	}
	return model.QuestionKindUnknown
}

func mapAPIError(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return errors.Wrap(ErrFormNotFound, op)
		case http.StatusForbidden, http.StatusUnauthorized:
			return errors.Wrap(ErrPermissionDenied, op)
		case http.StatusTooManyRequests:
			return errors.Wrap(ErrRateLimited, op)
		}
	}
	return errors.Wrap(err, op)
}
