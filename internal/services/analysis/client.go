// Package analysis is the client for the external Analysis API.
//
// The API takes one multipart upload (field "file") and answers with the
// extracted text plus a metrics object. Every failure is collapsed into a
// single display string, which is what the Analyze page shows.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/upload"
)

const (
	// FallbackError is shown for a non-2xx response without an error message.
	FallbackError = "Analysis failed"
	// TransportPrefix precedes the underlying error when the request itself fails.
	TransportPrefix = "Server error: "
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// Kind classifies a failed analysis.
type Kind string

const (
	KindUpstream  Kind = "upstream"  // the API answered with a non-2xx status
	KindTransport Kind = "transport" // the request or response body failed
)

// Error is returned by Analyze for every failure. Message is the exact
// string to display.
type Error struct {
	Kind       Kind
	StatusCode int // set for KindUpstream
	Message    string
	Err        error // underlying cause, if any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Client talks to one Analysis API endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		// Go Pattern: Always configure timeouts on HTTP clients.
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze uploads the selection and returns the parsed result. The metrics
// object is returned as received. On failure the error is always an *Error.
func (c *Client) Analyze(ctx context.Context, sel *upload.Selection) (*models.ReceivedAnalysis, error) {
	body, contentType, err := encodeSelection(sel)
	if err != nil {
		return nil, transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp.StatusCode, respBody)
	}

	var result models.ReceivedAnalysis
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, transportError(fmt.Errorf("decode response: %w", err))
	}
	return &result, nil
}

func encodeSelection(sel *upload.Selection) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// CreateFormFile hardcodes application/octet-stream; keep the real type.
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, upload.FormField, sel.Name))
	contentType := sel.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(sel.Data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func upstreamError(status int, body []byte) *Error {
	msg := FallbackError
	var payload models.AnalysisError
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &Error{Kind: KindUpstream, StatusCode: status, Message: msg}
}

func transportError(err error) *Error {
	// *url.Error repeats the method and URL; show only the cause.
	cause := err
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		cause = uerr.Err
	}
	return &Error{Kind: KindTransport, Message: TransportPrefix + cause.Error(), Err: err}
}
