// Package gateway is the typed HTTP client for the DocWise API. Every call
// carries the process-wide credential and returns *RequestError on non-2xx.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"docwise-client/internal/shared/metrics"
	"docwise-client/internal/shared/telemetry"
)

const apiPrefix = "/api"

// CredentialSource attaches the active credential to outbound requests.
type CredentialSource interface {
	Apply(req *http.Request)
	Jar() http.CookieJar
}

// Client calls the DocWise API.
type Client struct {
	baseURL    string
	creds      CredentialSource
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials CredentialSource
	Timeout     time.Duration
	// Transport overrides the default round tripper, mainly for tests.
	Transport http.RoundTripper
}

// New builds a Client. The credential source's cookie jar is shared with the
// underlying http.Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", opts.BaseURL)
	}
	if opts.Credentials == nil {
		return nil, errors.New("gateway: credentials are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: base,
		creds:   opts.Credentials,
		httpClient: &http.Client{
			Timeout:   timeout,
			Jar:       opts.Credentials.Jar(),
			Transport: opts.Transport,
		},
	}, nil
}

// BaseURL returns the API origin without the /api prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping calls the API root and returns its status message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out statusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

type requestSpec struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	header      http.Header
}

// do sends one request and returns the response for 2xx statuses. Callers
// must close the body.
func (c *Client) do(ctx context.Context, spec requestSpec) (*http.Response, error) {
	start := time.Now()
	reqID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, spec.method, c.baseURL+apiPrefix+spec.path, spec.body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	for key, vals := range spec.header {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}
	c.creds.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(start, true)
		telemetry.Error("api.request_failed", map[string]any{
			"request_id": reqID,
			"method":     spec.method,
			"path":       spec.path,
			"error":      err,
		})
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("%s %s: request timeout: %w", spec.method, spec.path, err)
		}
		return nil, fmt.Errorf("%s %s: %w", spec.method, spec.path, err)
	}

	failed := resp.StatusCode < 200 || resp.StatusCode > 299
	metrics.ObserveAPIRequest(start, failed)
	telemetry.Debug("api.request", map[string]any{
		"request_id":  reqID,
		"method":      spec.method,
		"path":        spec.path,
		"status":      resp.StatusCode,
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	})

	if failed {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &RequestError{
			Method: spec.method,
			Path:   spec.path,
			Status: resp.StatusCode,
			Detail: extractDetail(body),
		}
	}
	return resp, nil
}

// doJSON sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, header http.Header, in, out any) error {
	spec := requestSpec{method: method, path: path, header: header}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		spec.body = bytes.NewReader(payload)
		spec.contentType = "application/json"
	}
	resp, err := c.do(ctx, spec)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp.Body, out)
}

func decodeJSON(r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyResponse
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// multipartBody streams a multipart form with one file part followed by the
// given text fields.
func multipartBody(fieldName, fileName string, file io.Reader, fields [][2]string) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(fieldName, fileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(fmt.Errorf("read upload: %w", err))
			return
		}
		for _, kv := range fields {
			if err := mw.WriteField(kv[0], kv[1]); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()
	return pr, mw.FormDataContentType()
}

type detailBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// extractDetail pulls a human-readable message out of an error body. It
// understands {"detail": "..."}, {"detail": [{"msg": ...}]} and
// {"error": {"message": ...}}.
func extractDetail(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var parsed detailBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Detail) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var issues []validationIssue
		if err := json.Unmarshal(parsed.Detail, &issues); err == nil {
			msgs := make([]string, 0, len(issues))
			for _, issue := range issues {
				if msg := strings.TrimSpace(issue.Msg); msg != "" {
					msgs = append(msgs, msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	if parsed.Error != nil {
		return strings.TrimSpace(parsed.Error.Message)
	}
	return ""
}
