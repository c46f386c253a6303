// Package scoring is the HTTP client for the external scoring service. It
// implements the two-phase preview/execute protocol: preview ships the trace
// (and reference, when the kind requires one) as attached file payloads and
// returns an opaque session handle; execute references only that handle.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/pkg/circuitbreaker"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
	"github.com/evalbridge/evalbridge/internal/pkg/metrics"
)

// PreviewRequest carries the inputs for a preview call
type PreviewRequest struct {
	PromptTemplate    string
	SelectedVariables []string
	Trace             *domain.TraceDetail
	Reference         map[string]any
}

// PreviewResponse is the scoring service's preview reply
type PreviewResponse struct {
	SessionID           string `json:"session_id"`
	FilledPromptPreview string `json:"filled_prompt_preview"`
	Message             string `json:"message"`
}

// Client talks to the scoring service
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a new scoring client
func NewClient(cfg config.ScoringConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig("scoring")),
		logger:     logger,
	}
}

// Preview sends the filled-template preview request for the given kind and
// returns the session handle plus the filled prompt.
func (c *Client) Preview(ctx context.Context, kind domain.EvaluationKind, req *PreviewRequest) (*PreviewResponse, error) {
	spec, err := kind.Spec()
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodePreviewBody(kind, spec, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := circuitbreaker.ExecuteWithResult(c.breaker, ctx, func() (*PreviewResponse, error) {
		return c.doPreview(ctx, c.baseURL+spec.PreviewPath, body, contentType)
	})
	metrics.RecordScoringRequest("preview", string(kind), statusLabel(err), started)
	return resp, err
}

// Execute triggers the scoring run for a previously previewed session. The
// body carries the session handle only; the scoring service owns all other
// evaluation state between the two calls.
func (c *Client) Execute(ctx context.Context, kind domain.EvaluationKind, sessionID string) (json.RawMessage, error) {
	spec, err := kind.Spec()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execute payload: %w", err)
	}

	started := time.Now()
	result, err := circuitbreaker.ExecuteWithResult(c.breaker, ctx, func() (json.RawMessage, error) {
		return c.doExecute(ctx, c.baseURL+spec.ExecutePath, payload)
	})
	metrics.RecordScoringRequest("execute", string(kind), statusLabel(err), started)
	return result, err
}

func (c *Client) doPreview(ctx context.Context, url string, body []byte, contentType string) (*PreviewResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build preview request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.RemoteTransport(err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var preview PreviewResponse
	if err := json.Unmarshal(data, &preview); err != nil {
		return nil, apperrors.New(apperrors.CodeRemote, "scoring service returned malformed preview response", http.StatusBadGateway).WithError(err)
	}
	if preview.SessionID == "" {
		return nil, apperrors.New(apperrors.CodeRemote, "scoring service preview response is missing session_id", http.StatusBadGateway)
	}

	return &preview, nil
}

func (c *Client) doExecute(ctx context.Context, url string, payload []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.RemoteTransport(err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	// The result is surfaced verbatim: a JSON record, or a bare string
	// wrapped into valid JSON when the service replies with plain text.
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(data))
		data = quoted
	}
	return json.RawMessage(data), nil
}

// readBody drains the response and maps non-2xx statuses to remote failures.
// An absent body is tolerated.
func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		data = nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Remote(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// encodePreviewBody shapes the multipart form per kind: the template and the
// selected-variable list ride as fields, the trace (and reference) as
// attached JSON files.
func encodePreviewBody(kind domain.EvaluationKind, spec domain.KindSpec, req *PreviewRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	selectedVars, err := json.Marshal(req.SelectedVariables)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal selected variables: %w", err)
	}

	if err := w.WriteField("prompt_template", req.PromptTemplate); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("selected_vars", string(selectedVars)); err != nil {
		return nil, "", err
	}

	traceJSON, err := json.Marshal(req.Trace)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal trace payload: %w", err)
	}

	if spec.RequiresReference {
		referenceJSON, err := json.Marshal(req.Reference)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal reference payload: %w", err)
		}
		if err := writeJSONFile(w, "current_trace_file", "current_trace.json", traceJSON); err != nil {
			return nil, "", err
		}
		if err := writeJSONFile(w, "default_trace_file", "default_trace.json", referenceJSON); err != nil {
			return nil, "", err
		}
	} else {
		if err := writeJSONFile(w, "trace_file", "trace.json", traceJSON); err != nil {
			return nil, "", err
		}
		// This endpoint additionally expects the variable list under its
		// legacy field name.
		if err := w.WriteField("selected_variables", string(selectedVars)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeJSONFile(w *multipart.Writer, field, filename string, data []byte) error {
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return strconv.Itoa(appErr.StatusCode)
	}
	return "error"
}
