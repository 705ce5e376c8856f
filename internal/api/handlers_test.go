package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/doc-translator/backend/internal/models"
	"github.com/doc-translator/backend/internal/prompts"
	"github.com/doc-translator/backend/internal/storage"
)

// mockParser records calls so tests can assert whether and how the external
// service would have been contacted.
type mockParser struct {
	markdown        string
	err             error
	calls           int
	lastPath        string
	lastInstruction string
}

func (m *mockParser) Parse(ctx context.Context, path string, instruction string) (string, error) {
	m.calls++
	m.lastPath = path
	m.lastInstruction = instruction
	if m.err != nil {
		return "", m.err
	}
	return m.markdown, nil
}

func newTestHandler(t *testing.T, parser DocumentParser) (*Handler, *storage.Spool) {
	t.Helper()
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)
	return NewHandler(parser, spool, prompts.NewCatalog()), spool
}

// newTranslateContext builds a multipart translate request with one file.
func newTranslateContext(t *testing.T, e *echo.Echo, filename, content, promptID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if promptID != "" {
		require.NoError(t, writer.WriteField("prompt", promptID))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/translate", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func spoolFileCount(t *testing.T, spool *storage.Spool) int {
	t.Helper()
	entries, err := os.ReadDir(spool.Dir())
	require.NoError(t, err)
	return len(entries)
}

func TestHandleTranslate(t *testing.T) {
	e := echo.New()
	parser := &mockParser{markdown: "Hello"}
	h, spool := newTestHandler(t, parser)

	c, rec := newTranslateContext(t, e, "doc.pdf", "%PDF-1.4 fake content", "")
	require.NoError(t, h.HandleTranslate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result models.TranslationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "doc.pdf", result.FileName)
	assert.Equal(t, "doc_translated.md", result.OutputName)
	assert.Equal(t, "text/markdown", result.MIMEType)
	assert.Equal(t, "Hello", result.Markdown)
	assert.Equal(t, int64(len("%PDF-1.4 fake content")), result.Size)
	assert.Equal(t, prompts.DefaultPresetID, result.PromptID)

	assert.Equal(t, 1, parser.calls)
	assert.Contains(t, parser.lastInstruction, "Translate all text in this document to English")

	// The spooled upload is released after the call.
	assert.Equal(t, 0, spoolFileCount(t, spool))
}

func TestHandleTranslateMissingCredential(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, nil)

	c, _ := newTranslateContext(t, e, "doc.pdf", "content", "")
	err := h.HandleTranslate(c)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected APIError, got %T", err)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "CONFIGURATION_ERROR", apiErr.Code)
}

func TestHandleTranslateValidation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{name: "missing file", filename: "", content: ""},
		{name: "non-pdf extension", filename: "doc.txt", content: "plain text"},
		{name: "empty file", filename: "doc.pdf", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			parser := &mockParser{markdown: "unused"}
			h, _ := newTestHandler(t, parser)

			c, _ := newTranslateContext(t, e, tt.filename, tt.content, "")
			err := h.HandleTranslate(c)
			require.Error(t, err)

			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected APIError, got %T", err)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
			assert.Equal(t, 0, parser.calls, "no external call may be attempted")
		})
	}
}

func TestHandleTranslateParserFailure(t *testing.T) {
	e := echo.New()
	parser := &mockParser{err: errors.New("service returned status 401: unauthorized")}
	h, spool := newTestHandler(t, parser)

	c, _ := newTranslateContext(t, e, "doc.pdf", "content", "")
	err := h.HandleTranslate(c)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected APIError, got %T", err)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "PROCESSING_ERROR", apiErr.Code)
	assert.Equal(t, "Error processing document", apiErr.Message)
	assert.Contains(t, apiErr.Details, "unauthorized")

	// The spooled upload is released on the failure path too.
	assert.Equal(t, 0, spoolFileCount(t, spool))
}

func TestHandleTranslateUnknownPromptFallsBack(t *testing.T) {
	e := echo.New()
	parser := &mockParser{markdown: "ok"}
	h, _ := newTestHandler(t, parser)

	c, rec := newTranslateContext(t, e, "doc.pdf", "content", "no-such-preset")
	require.NoError(t, h.HandleTranslate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result models.TranslationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, prompts.DefaultPresetID, result.PromptID)
}

func TestHandleTranslateMsgpack(t *testing.T) {
	e := echo.New()
	parser := &mockParser{markdown: "# Title\n\nBody"}
	h, _ := newTestHandler(t, parser)

	c, rec := newTranslateContext(t, e, "report.pdf", "content", "")
	require.NoError(t, h.HandleTranslateMsgpack(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var result models.TranslationResult
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "report_translated.md", result.OutputName)
	assert.Equal(t, "# Title\n\nBody", result.Markdown)
}

func TestHandleHealth(t *testing.T) {
	e := echo.New()

	t.Run("credential configured", func(t *testing.T) {
		h, _ := newTestHandler(t, &mockParser{})
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h.HandleHealth(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"apiKeyConfigured":true`)
	})

	t.Run("credential missing", func(t *testing.T) {
		h, _ := newTestHandler(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h.HandleHealth(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"apiKeyConfigured":false`)
	})
}

func TestHandleListPrompts(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, &mockParser{})

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleListPrompts(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), prompts.DefaultPresetID)
}
