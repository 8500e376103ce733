// Package api is the HTTP client for the remote booking/voice backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

const defaultTimeout = 120 * time.Second

// Client is an HTTP client for the booking backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
	adminToken string
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout replaces the default request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-request spans.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithAdminToken sets the bearer token sent to admin endpoints.
func WithAdminToken(token string) ClientOption {
	return func(c *Client) {
		c.adminToken = token
	}
}

// NewClient creates a backend client. baseURL includes the API prefix,
// e.g. "http://localhost:8000/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logging.Default(),
		tracer: otel.Tracer("assistant.internal.api"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewSession asks the backend for a fresh session identifier.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, "session.new", http.MethodPost, "/session/new", struct{}{}, &out, false); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("api: session.new returned no session id")
	}
	return out.SessionID, nil
}

// Transcribe uploads one audio clip for speech-to-text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (*TranscribeResponse, error) {
	ctx, span := c.tracer.Start(ctx, "api.voice.transcribe", trace.WithAttributes(
		attribute.Int("audio.bytes", len(audio)),
	))
	defer span.End()

	if filename == "" {
		filename = "speech.webm"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := createFilePart(writer, filename, contentType)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("api: create multipart part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("api: write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("api: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("api: create transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out TranscribeResponse
	if err := c.send(req, "voice.transcribe", &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &out, nil
}

// Converse sends one conversational turn.
func (c *Client) Converse(ctx context.Context, in ConverseRequest) (*ConverseResponse, error) {
	var out ConverseResponse
	if err := c.doJSON(ctx, "voice.converse", http.MethodPost, "/voice/converse", in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Doctors lists the doctor directory, optionally filtered by specialization.
func (c *Client) Doctors(ctx context.Context, specialization string) ([]Doctor, error) {
	path := "/doctors"
	if s := strings.TrimSpace(specialization); s != "" {
		path += "?specialization=" + url.QueryEscape(s)
	}
	var out []Doctor
	if err := c.doJSON(ctx, "doctors.list", http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Doctor{}
	}
	return out, nil
}

// CreateBooking submits a booking. A response with ok:false is reported as
// an *Error carrying the backend's detail.
func (c *Client) CreateBooking(ctx context.Context, in BookingRequest) (*Booking, error) {
	var out BookingResponse
	if err := c.doJSON(ctx, "bookings.create", http.MethodPost, "/bookings/create", in, &out, false); err != nil {
		return nil, err
	}
	if !out.OK || out.Booking == nil {
		detail := out.Detail
		if detail == "" {
			detail = "unknown"
		}
		return nil, &Error{Op: "bookings.create", StatusCode: http.StatusOK, Detail: detail}
	}
	return out.Booking, nil
}

// Bookings lists every booking. Requires an admin token.
func (c *Client) Bookings(ctx context.Context) ([]Booking, error) {
	var out BookingsResponse
	if err := c.doJSON(ctx, "bookings.list", http.MethodGet, "/bookings/list", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any, admin bool) error {
	ctx, span := c.tracer.Start(ctx, "api."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("api: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: create %s request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	if err := c.send(req, op, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Client) send(req *http.Request, op string, out any) error {
	start := time.Now()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "error", err)
		return fmt.Errorf("api: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s response: %w", op, err)
	}

	c.logger.Debug("backend request completed",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Detail: detailFromBody(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", op, err)
	}
	return nil
}

func createFilePart(w *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		return w.CreateFormFile("file", filename)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}
