package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/doc-translator/backend/internal/models"
	"github.com/doc-translator/backend/internal/prompts"
	"github.com/doc-translator/backend/internal/storage"
)

// DocumentParser is the outbound boundary to the document-parsing service.
// It is an interface so handlers can be tested without network access.
type DocumentParser interface {
	Parse(ctx context.Context, path string, instruction string) (string, error)
}

// Handler handles API requests.
type Handler struct {
	parser  DocumentParser
	spool   *storage.Spool
	prompts *prompts.Catalog
}

// NewHandler creates a new API handler. parser may be nil when no service
// credential is configured; the translate action is then blocked with a
// configuration error instead of attempting a call.
func NewHandler(parser DocumentParser, spool *storage.Spool, catalog *prompts.Catalog) *Handler {
	return &Handler{
		parser:  parser,
		spool:   spool,
		prompts: catalog,
	}
}

// HandleHealth returns server health status and whether the parsing
// credential is configured. The frontend disables the translate action and
// shows the configuration error when it is not.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"apiKeyConfigured": h.parser != nil,
	})
}

// HandleListPrompts returns the available instruction presets.
func (h *Handler) HandleListPrompts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.prompts.List())
}

// HandleTranslate accepts one PDF upload, runs a single blocking translation
// against the parsing service, and returns the result as JSON.
func (h *Handler) HandleTranslate(c echo.Context) error {
	result, err := h.translate(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// HandleTranslateMsgpack is HandleTranslate with a msgpack response body,
// for frontends that prefer the compact encoding for large documents.
func (h *Handler) HandleTranslateMsgpack(c echo.Context) error {
	result, err := h.translate(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(result)
	if err != nil {
		return NewInternalError("failed to encode result", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// translate runs the whole upload-spool-parse sequence for one interaction.
// All failures surface as *APIError so the user sees one of the two error
// classes: configuration (credential missing, nothing attempted) or
// processing (anything past that point).
func (h *Handler) translate(c echo.Context) (*models.TranslationResult, error) {
	if h.parser == nil {
		return nil, NewConfigurationError(
			"LLAMA_CLOUD_API_KEY environment variable not set. Configure it in your deployment settings.")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, NewValidationError("a PDF file is required")
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		return nil, NewValidationError("only PDF uploads are supported")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, NewInternalError("failed to read upload", err)
	}
	defer src.Close()

	spooled, err := h.spool.Add(fileHeader.Filename, src)
	if err != nil {
		return nil, NewInternalError("failed to store upload", err)
	}
	// Release the spool file on every exit path, success or failure.
	defer func() {
		if err := spooled.Remove(); err != nil {
			fmt.Printf("[Translate] warning: %v\n", err)
		}
	}()

	if spooled.Size == 0 {
		return nil, NewValidationError("uploaded file is empty")
	}

	preset := h.prompts.Get(c.FormValue("prompt"))

	fmt.Printf("[Translate] file=%s size=%d prompt=%s\n", spooled.Name, spooled.Size, preset.ID)
	start := time.Now()

	markdown, err := h.parser.Parse(c.Request().Context(), spooled.Path, preset.Instruction)
	if err != nil {
		fmt.Printf("[Translate] file=%s failed after %v: %v\n", spooled.Name, time.Since(start), err)
		return nil, NewProcessingError(err)
	}

	fmt.Printf("[Translate] file=%s done in %v (%d bytes of markdown)\n",
		spooled.Name, time.Since(start), len(markdown))

	return &models.TranslationResult{
		FileName:     spooled.Name,
		Size:         spooled.Size,
		OutputName:   models.OutputName(spooled.Name),
		MIMEType:     models.MarkdownMIMEType,
		PromptID:     preset.ID,
		Markdown:     markdown,
		DurationMs:   time.Since(start).Milliseconds(),
		TranslatedAt: time.Now(),
	}, nil
}
