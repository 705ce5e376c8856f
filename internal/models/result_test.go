package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		upload string
		want   string
	}{
		{upload: "doc.pdf", want: "doc_translated.md"},
		{upload: "annual report.PDF", want: "annual report_translated.md"},
		{upload: "archive.v2.pdf", want: "archive.v2_translated.md"},
		{upload: "noextension", want: "noextension_translated.md"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.upload), "upload %q", tt.upload)
	}
}
