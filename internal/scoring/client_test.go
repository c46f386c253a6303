package scoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.ScoringConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func testTrace() *domain.TraceDetail {
	return &domain.TraceDetail{
		ID:        "trace-1",
		Timestamp: time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC),
		Input:     "what is 2+2",
		Output:    "4",
	}
}

func TestPreviewAccuracyFieldLayout(t *testing.T) {
	var gotPath string
	var form struct {
		promptTemplate    string
		selectedVars      string
		selectedVariables string
		fileFields        []string
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		form.promptTemplate = r.FormValue("prompt_template")
		form.selectedVars = r.FormValue("selected_vars")
		form.selectedVariables = r.FormValue("selected_variables")
		for field := range r.MultipartForm.File {
			form.fileFields = append(form.fileFields, field)
		}

		json.NewEncoder(w).Encode(map[string]string{
			"session_id":            "sess-abc",
			"filled_prompt_preview": "filled: what is 2+2",
			"message":               "ok",
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	resp, err := client.Preview(context.Background(), domain.KindAccuracy, &PreviewRequest{
		PromptTemplate:    "rate {{input}}",
		SelectedVariables: []string{"input", "output"},
		Trace:             testTrace(),
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/eval/accuracy/preview", gotPath)
	assert.Equal(t, "sess-abc", resp.SessionID)
	assert.Equal(t, "filled: what is 2+2", resp.FilledPromptPreview)

	assert.Equal(t, "rate {{input}}", form.promptTemplate)
	assert.JSONEq(t, `["input","output"]`, form.selectedVars)
	assert.JSONEq(t, `["input","output"]`, form.selectedVariables)
	assert.ElementsMatch(t, []string{"trace_file"}, form.fileFields)
}

func TestPreviewQualityAttachesReference(t *testing.T) {
	var fileFields []string
	var referenceBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/eval/quality/preview", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for field := range r.MultipartForm.File {
			fileFields = append(fileFields, field)
		}
		f, _, err := r.FormFile("default_trace_file")
		require.NoError(t, err)
		referenceBody, _ = io.ReadAll(f)

		json.NewEncoder(w).Encode(map[string]string{
			"session_id":            "sess-q",
			"filled_prompt_preview": "filled",
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Preview(context.Background(), domain.KindQuality, &PreviewRequest{
		PromptTemplate:    "compare",
		SelectedVariables: []string{"output"},
		Trace:             testTrace(),
		Reference:         map[string]any{"expected": "4"},
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"current_trace_file", "default_trace_file"}, fileFields)
	assert.JSONEq(t, `{"expected":"4"}`, string(referenceBody))
}

func TestPreviewNon2xxWrapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("template has undeclared variable"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Preview(context.Background(), domain.KindAccuracy, &PreviewRequest{
		PromptTemplate:    "x",
		SelectedVariables: []string{"input"},
		Trace:             testTrace(),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsRemote(err))
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "template has undeclared variable")
}

func TestPreviewEmptyErrorBodyTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Preview(context.Background(), domain.KindAccuracy, &PreviewRequest{
		PromptTemplate:    "x",
		SelectedVariables: []string{"input"},
		Trace:             testTrace(),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsRemote(err))
}

func TestExecuteSendsSessionIDOnly(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/eval/accuracy/execute", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		json.NewEncoder(w).Encode(map[string]any{"score": 0.92, "verdict": "pass"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.Execute(context.Background(), domain.KindAccuracy, "sess-abc")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"session_id": "sess-abc"}, body)
	assert.JSONEq(t, `{"score":0.92,"verdict":"pass"}`, string(result))
}

func TestExecutePlainTextResultWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("looks good"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.Execute(context.Background(), domain.KindAccuracy, "sess-abc")

	require.NoError(t, err)
	var s string
	require.NoError(t, json.Unmarshal(result, &s))
	assert.Equal(t, "looks good", s)
}

func TestUnknownKindIsConfigurationError(t *testing.T) {
	client := newTestClient("http://localhost:1")
	_, err := client.Preview(context.Background(), domain.EvaluationKind("sentiment"), &PreviewRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = client.Execute(context.Background(), domain.EvaluationKind("sentiment"), "s")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}
