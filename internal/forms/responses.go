package forms

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/tidwall/gjson"
)

// ListResponses returns every response of a form, following page tokens.
// Each response keeps its raw JSON so the answers map can be read in document order.
func (c *Client) ListResponses(ctx context.Context, formID string) ([]model.RawFormResponse, error) {
	hc, err := c.clients(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.RawFormResponse
	pageToken := ""
	for {
		path := fmt.Sprintf("%s/v1/forms/%s/responses", c.baseURL, url.PathEscape(formID))
		if pageToken != "" {
			path += "?pageToken=" + url.QueryEscape(pageToken)
		}
		body, err := c.doRequest(ctx, hc, path)
		if err != nil {
			return nil, err
		}

		for _, r := range gjson.GetBytes(body, "responses").Array() {
			out = append(out, model.RawFormResponse{
				ResponseID:  r.Get("responseId").String(),
				SubmittedAt: r.Get("lastSubmittedTime").String(),
				Raw:         []byte(r.Raw),
			})
		}

		pageToken = gjson.GetBytes(body, "nextPageToken").String()
		if pageToken == "" {
			break
		}
	}

	c.log.Info("form responses fetched", "form_id", formID, "count", len(out))
	return out, nil
}

// doRequest issues a GET and retries 429 and transport failures with exponential backoff
func (c *Client) doRequest(ctx context.Context, hc *http.Client, target string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying forms request", "attempt", attempt, "max", c.maxRetries)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.Warn("forms request failed", "attempt", attempt+1, "backoff", backoff(attempt).String(), "error", err)
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			c.log.Warn("forms response read failed", "attempt", attempt+1, "backoff", backoff(attempt).String(), "error", err)
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.log.Warn("forms api rate limited", "attempt", attempt+1, "backoff", backoff(attempt).String())
			lastErr = ErrRateLimited
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrFormNotFound
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrPermissionDenied
		case resp.StatusCode >= 400:
			return nil, errors.Errorf("forms api error %d: %s", resp.StatusCode, truncate(string(body), 200))
		}
		return body, nil
	}
	return nil, errors.Wrapf(lastErr, "forms request failed after %d attempts", c.maxRetries)
}

// backoff is 1s, 2s, 4s... for attempt 0, 1, 2...
func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// truncate keeps at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
