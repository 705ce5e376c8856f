package models

import (
	"path/filepath"
	"strings"
	"time"
)

// MarkdownMIMEType is the content type of the downloadable output.
const MarkdownMIMEType = "text/markdown"

// TranslationResult is what one completed translation hands back to the
// frontend: the collated markdown plus everything needed to render the
// result views and build the download.
type TranslationResult struct {
	FileName     string    `json:"fileName" msgpack:"fileName"`
	Size         int64     `json:"size" msgpack:"size"`
	OutputName   string    `json:"outputName" msgpack:"outputName"`
	MIMEType     string    `json:"mimeType" msgpack:"mimeType"`
	PromptID     string    `json:"promptId" msgpack:"promptId"`
	Markdown     string    `json:"markdown" msgpack:"markdown"`
	DurationMs   int64     `json:"durationMs" msgpack:"durationMs"`
	TranslatedAt time.Time `json:"translatedAt" msgpack:"translatedAt"`
}

// OutputName derives the download filename for an upload: the original
// name's stem with a "_translated.md" suffix ("doc.pdf" -> "doc_translated.md").
func OutputName(uploadName string) string {
	stem := strings.TrimSuffix(uploadName, filepath.Ext(uploadName))
	return stem + "_translated.md"
}
