// Package client is the Go client for the KYC portal API. It mirrors the
// behavior the web front end relies on: a cookie-backed session, stores with
// loading/error state, a proactive token refresh timer and a centralized
// retry-after-refresh on 401 responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSessionExpired is returned when a silent refresh after a 401 fails.
// Callers treat it as "redirect to login".
var ErrSessionExpired = errors.New("session expired")

// APIError carries the server's status code and message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client issues authenticated requests against the API. Tokens live in the
// cookie jar; the client never sees them directly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	// refreshMu serializes silent refreshes so concurrent 401s from
	// parallel requests trigger a single refresh attempt.
	refreshMu sync.Mutex
}

// NewClient creates an API client with its own cookie jar.
func NewClient(baseURL string, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// doJSON performs a JSON request. On a 401 from any endpoint outside
// /auth/, it attempts exactly one silent refresh and retries the original
// call once; a failed refresh surfaces as ErrSessionExpired. The refresh
// call itself goes through doOnce and can never re-enter this path.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	build := func() (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	return c.roundTrip(ctx, path, build, out)
}

// roundTrip runs a request built by build, applying the 401-refresh-retry
// flow for non-auth endpoints.
func (c *Client) roundTrip(ctx context.Context, path string, build func() (*http.Request, error), out interface{}) error {
	err := c.doOnce(build, out)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && !strings.HasPrefix(path, "/api/auth/") {
		if refreshErr := c.silentRefresh(ctx); refreshErr != nil {
			return ErrSessionExpired
		}
		return c.doOnce(build, out)
	}
	return err
}

// doOnce executes one request attempt with no retry logic.
func (c *Client) doOnce(build func() (*http.Request, error), out interface{}) error {
	req, err := build()
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// silentRefresh performs a single refresh attempt. The mutex guarantees
// parallel 401s share one attempt instead of racing the rotation.
func (c *Client) silentRefresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.logger.Debug("Attempting silent token refresh")
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh-token", nil, nil)
	if err != nil {
		c.logger.Debug("Silent token refresh failed", zap.Error(err))
	}
	return err
}

// FormFile is a file part of a multipart upload.
type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// doMultipart performs a multipart form upload. The body is rebuilt for
// every attempt so the 401-refresh-retry flow can replay it.
func (c *Client) doMultipart(ctx context.Context, path string, fields map[string]string, file FormFile, out interface{}) error {
	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}

		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
		header.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}

	return c.roundTrip(ctx, path, build, out)
}

// getBinary fetches a non-JSON response body (document retrieval).
func (c *Client) getBinary(ctx context.Context, path string) ([]byte, string, error) {
	build := func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	}

	var data []byte
	var contentType string
	collect := func() error {
		req, err := build()
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return c.apiError(resp)
		}
		data, err = io.ReadAll(resp.Body)
		contentType = resp.Header.Get("Content-Type")
		return err
	}

	err := collect()
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if refreshErr := c.silentRefresh(ctx); refreshErr != nil {
			return nil, "", ErrSessionExpired
		}
		err = collect()
	}
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
