package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/roomscan/roomscan/pkg/logs"
	"github.com/roomscan/roomscan/server/defs"
)

const (
	// DefaultMaxAttempts caps the total number of requests per call (first try plus retries)
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the backoff base. We double it on every failed attempt.
	DefaultRetryDelay = time.Second
)

// Client talks to the detection backends. Transient failures (no response,
// or a 5xx status) are retried internally with exponential backoff, so the
// caller always sees exactly one resolved Response or one final AppError.
type Client struct {
	log         logs.Log
	profiles    map[defs.Model]Profile
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

func NewClient(log logs.Log, profiles map[defs.Model]Profile) *Client {
	return &Client{
		log:         log,
		profiles:    profiles,
		httpClient:  &http.Client{},
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
}

// SetRetryPolicy overrides the attempt cap and backoff base (used by tests,
// and by configs that want snappier failure)
func (c *Client) SetRetryPolicy(maxAttempts int, retryDelay time.Duration) {
	c.maxAttempts = maxAttempts
	c.retryDelay = retryDelay
}

func (c *Client) profile(model defs.Model) Profile {
	p, ok := c.profiles[model]
	if !ok {
		// Fall back to the fast profile rather than failing the call
		p = c.profiles[defs.ModelOpenCV]
	}
	return p
}

// Detect sends the blueprint to the backend selected by 'model' and returns
// the parsed detection response. On failure the returned error is always a
// *defs.AppError.
func (c *Client) Detect(ctx context.Context, model defs.Model, filename string, file []byte, options *Options) (*Response, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
	}
	if _, err := fw.Write(file); err != nil {
		return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
	}
	if options != nil {
		optJSON, err := json.Marshal(options)
		if err != nil {
			return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
		}
		if err := mw.WriteField("options", string(optJSON)); err != nil {
			return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
		}
	}
	if err := mw.Close(); err != nil {
		return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
	}

	profile := c.profile(model)
	respBody, appErr := c.doWithRetry(ctx, profile, "POST", profile.BaseURL+"/detect", mw.FormDataContentType(), body.Bytes())
	if appErr != nil {
		return nil, appErr
	}

	// Parse against the declared schema at the boundary. A payload we can't
	// decode is an unclassified failure, not something to propagate upward.
	response := &Response{}
	if err := json.Unmarshal(respBody, response); err != nil {
		return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", "Undecodable detection response: "+err.Error())
	}
	return response, nil
}

// doWithRetry runs one logical request, retrying transient failures with
// exponential backoff. It returns the response body of the first 2xx
// response, or the classified error of the last attempt.
func (c *Client) doWithRetry(ctx context.Context, profile Profile, method, url, contentType string, body []byte) ([]byte, *defs.AppError) {
	var lastErr *defs.AppError
	delay := c.retryDelay
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, classifyTransportError(ctx.Err())
			}
			delay *= 2
		}
		respBody, appErr, transient := c.do(ctx, profile, method, url, contentType, body)
		if appErr == nil {
			return respBody, nil
		}
		lastErr = appErr
		if !transient {
			return nil, appErr
		}
		if c.log != nil {
			c.log.Warnf("Detection request to %v failed (attempt %v/%v): %v", url, attempt+1, c.maxAttempts, appErr)
		}
	}
	return nil, lastErr
}

// do performs a single attempt. The bool result reports whether the failure
// is transient (retriable).
func (c *Client) do(ctx context.Context, profile Profile, method, url, contentType string, body []byte) ([]byte, *defs.AppError, bool) {
	attemptCtx := ctx
	if profile.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, profile.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error()), false
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response at all: either our own timeout fired, or connectivity failed.
		// Both are transient.
		return nil, classifyTransportError(err), true
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err), true
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil, false
	}

	// The server responded with an error. Use its message/details when it
	// supplies a well-formed error body.
	serverErr := struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}{}
	json.Unmarshal(respBody, &serverErr)
	if serverErr.Message == "" {
		serverErr.Message = "Failed to process blueprint"
	}
	appErr := defs.NewError(defs.ErrorProcessingFailed, serverErr.Message, serverErr.Details)
	return nil, appErr, resp.StatusCode >= 500
}

// classifyTransportError maps a failure with no server response onto the
// error taxonomy: timeouts are processing failures, everything else is a
// connectivity problem.
func classifyTransportError(err error) *defs.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return defs.NewError(defs.ErrorProcessingFailed,
			"Request timed out. Please try again.",
			"The server took too long to respond")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return defs.NewError(defs.ErrorProcessingFailed,
			"Request timed out. Please try again.",
			"The server took too long to respond")
	}
	return defs.NewError(defs.ErrorNetwork,
		"Network error. Check your connection and try again.",
		err.Error())
}
