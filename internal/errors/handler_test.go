package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlsxsplit/internal/infrastructure"
	"xlsxsplit/internal/shared/testutil"
	"xlsxsplit/internal/splitter"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	for _, includeStack := range []bool{true, false} {
		handler := NewErrorHandler(logger, includeStack)
		require.NotNil(t, handler)
		assert.Equal(t, includeStack, handler.includeStack)
		assert.NotNil(t, handler.logger)
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	_, decodeErr := splitter.Decode("no marker here")
	require.Error(t, decodeErr)
	_, parseErr := splitter.Parse([]byte("not a workbook"))
	require.Error(t, parseErr)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "decode failure",
			err:        decodeErr,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeDecode,
			wantCode:   CodeDecodeFailed,
		},
		{
			name:       "parse failure",
			err:        parseErr,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeParse,
			wantCode:   CodeParseFailed,
		},
		{
			name:       "wrapped encode failure",
			err:        fmt.Errorf("split: %w", &splitter.Error{Kind: splitter.KindEncode, Message: "write failed"}),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeEncode,
			wantCode:   CodeEncodeFailed,
		},
		{
			name:       "archive failure",
			err:        &splitter.Error{Kind: splitter.KindArchive, Stage: splitter.StageArchiving},
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeArchive,
			wantCode:   CodeArchiveFailed,
		},
		{
			name:       "api validation error",
			err:        ErrValidation("dateColumn", "is required"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   CodeValidationFailed,
		},
		{
			name:       "unsupported file",
			err:        UnsupportedFileType("a.csv"),
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   TypeUnsupportedFile,
			wantCode:   CodeUnsupportedFileType,
		},
		{
			name:       "body too large",
			err:        fmt.Errorf("read body: %w", &http.MaxBytesError{Limit: 10}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantCode:   CodePayloadTooLarge,
		},
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, records := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodPost, "/api/split", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-123"))
			w := httptest.NewRecorder()

			handler.HandleError(w, req, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			got := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, got["type"])
			assert.Equal(t, "/api/split", got["instance"])
			assert.Equal(t, "trace-123", got["trace_id"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got["error_code"])
			}
			assert.NotContains(t, got, "stack")
			assert.True(t, records.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleNilError(t *testing.T) {
	logger, records := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, records.Count())
}

func TestErrorHandler_SplitErrorExtensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	req := httptest.NewRequest(http.MethodPost, "/api/split", nil)

	problem := handler.ErrorToProblem(&splitter.Error{
		Kind:    splitter.KindParse,
		Stage:   splitter.StageParsing,
		Message: "workbook has no sheets",
	}, req)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, "parse", problem.Extensions["kind"])
	assert.Equal(t, "parsing", problem.Extensions["stage"])
	assert.Contains(t, problem.Detail, "workbook has no sheets")
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), ErrInternalServer)

	got := decodeProblem(t, w)
	assert.Contains(t, got, "stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, records := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/api/split", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeProblem(t, w)
	assert.Equal(t, TypeInternal, got["type"])
	assert.NotContains(t, got, "panic")
	assert.True(t, records.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/split", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	got := decodeProblem(t, w)
	assert.Equal(t, TypeMethodNotAllow, got["type"])
	assert.Contains(t, got["detail"], "DELETE")
}

func TestCodeOf(t *testing.T) {
	_, decodeErr := splitter.Decode("no marker here")
	_, parseErr := splitter.Parse([]byte("not a workbook"))

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"decode", decodeErr, CodeDecodeFailed},
		{"parse", parseErr, CodeParseFailed},
		{"wrapped parse", fmt.Errorf("upload: %w", parseErr), CodeParseFailed},
		{"api error", ErrUnsupportedFileType, CodeUnsupportedFileType},
		{"body limit", &http.MaxBytesError{Limit: 10}, CodePayloadTooLarge},
		{"deadline", context.DeadlineExceeded, CodeServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
