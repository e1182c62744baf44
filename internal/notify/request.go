package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s error %d: %s", e.Method, e.StatusCode, e.Description)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// response is the Bot API envelope.
type response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type upload struct {
	field    string
	filename string
	data     []byte
}

// request collects form fields and files. It is encoded afresh for every
// attempt since a body reader can only be consumed once.
type request struct {
	fields url.Values
	order  []string
	files  []upload
}

func newRequest() *request {
	return &request{fields: url.Values{}}
}

func (r *request) field(name, value string) {
	if !r.fields.Has(name) {
		r.order = append(r.order, name)
	}
	r.fields.Set(name, value)
}

func (r *request) file(field, filename string, data []byte) {
	r.files = append(r.files, upload{field: field, filename: filename, data: data})
}

// encode returns the body and its content type. Requests without files
// are sent form-urlencoded.
func (r *request) encode() (io.Reader, string, error) {
	if len(r.files) == 0 {
		return strings.NewReader(r.fields.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range r.order {
		if err := mw.WriteField(name, r.fields.Get(name)); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, f := range r.files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			return nil, "", fmt.Errorf("create file %s: %w", f.field, err)
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, "", fmt.Errorf("write file %s: %w", f.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// doRequest performs one Bot API call and returns the result field.
func (t *Telegram) doRequest(ctx context.Context, method string, r *request) (json.RawMessage, error) {
	body, contentType, err := r.encode()
	if err != nil {
		return nil, err
	}

	endpoint := t.baseURL + "/bot" + t.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of errors and logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("do %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env response
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 || decodeErr != nil || !env.OK {
		apiErr := &APIError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			Description: env.Description,
		}
		if apiErr.Description == "" {
			apiErr.Description = http.StatusText(resp.StatusCode)
		}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		if resp.StatusCode < 400 && decodeErr != nil {
			return nil, fmt.Errorf("unmarshal %s response: %w", method, decodeErr)
		}
		return nil, apiErr
	}

	return env.Result, nil
}

// call performs a request with exponential backoff retry.
func (t *Telegram) call(ctx context.Context, method string, r *request) (json.RawMessage, error) {
	var lastErr error
	backoff := t.retryBackoff
	var retryAfter time.Duration

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			wait := backoff/2 + time.Duration(rand.Int63n(int64(backoff)+1))
			if retryAfter > wait {
				wait = retryAfter
			}
			t.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", wait,
				"method", method,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			backoff *= 2
		}

		result, err := t.doRequest(ctx, method, r)
		if err == nil {
			return result, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
		retryAfter = apiErr.RetryAfter
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
