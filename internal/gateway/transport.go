package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries a unique id for every call, for correlation with backend logs.
const RequestIDHeader = "X-Request-ID"

// transport is the HTTP plumbing shared by the REST and GraphQL adapters.
type transport struct {
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

func newTransport(httpClient *http.Client, logger *zap.Logger, metrics *Metrics) transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return transport{httpClient: httpClient, logger: logger, metrics: metrics}
}

// errorBody is the shape of the backend's error responses. Validation failures carry a map of
// field to message instead of a single message.
type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	if len(b.Errors) == 0 {
		return ""
	}
	fields := make([]string, 0, len(b.Errors))
	for field := range b.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+b.Errors[field])
	}
	return strings.Join(parts, ", ")
}

// do is send plus one metrics observation for the call.
func (t transport) do(ctx context.Context, op, method, url string, in, out any) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe(op, err, time.Since(start)) }()
	return t.send(ctx, op, method, url, in, out)
}

// send sends a JSON request and decodes a 2xx answer into out. Non-2xx answers become a
// *GatewayError, transport failures a *NetworkError. Callers record metrics.
func (t transport) send(ctx context.Context, op, method, url string, in, out any) (err error) {
	requestID := uuid.NewString()
	start := time.Now()
	status := 0
	defer func() {
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			t.logger.Warn("gateway call failed", append(fields, zap.Error(err))...)
			return
		}
		t.logger.Debug("gateway call", fields...)
	}()

	var body io.Reader
	if in != nil {
		payload, errMarshal := json.Marshal(in)
		if errMarshal != nil {
			return fmt.Errorf("%s: could not marshal request: %w", op, errMarshal)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: could not create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := t.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer res.Body.Close()
	status = res.StatusCode

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(resBody, &eb)
		return &GatewayError{Op: op, Status: res.StatusCode, Message: eb.text()}
	}
	if out == nil || len(bytes.TrimSpace(resBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resBody, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("could not unmarshal response: %w", err)}
	}
	return nil
}

// isCanceled reports whether err comes from a canceled or expired context.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
