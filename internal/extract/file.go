// Package extract turns uploaded sources (files, tables, webpages) into
// plain text ready for chunking, along with source metadata.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FileResult is the extracted text of one uploaded file plus metadata that
// travels with every chunk produced from it.
type FileResult struct {
	Content  string
	Metadata map[string]any
}

// File extracts plain text from an uploaded file. Plain-text formats are
// decoded as-is; PDFs go through a text extractor. Unknown extensions are
// rejected rather than ingested as binary noise.
func File(name string, data []byte) (*FileResult, error) {
	var content string
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt", ".md", ".markdown", ".csv", ".json", ".html", ".htm":
		content = string(data)
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return nil, fmt.Errorf("extract pdf %q: %w", name, err)
		}
		content = text
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("file %q contains no extractable text", name)
	}

	return &FileResult{
		Content: content,
		Metadata: map[string]any{
			"fileName": name,
			"fileSize": len(data),
			"fileType": ext,
		},
	}, nil
}

func pdfText(data []byte) (string, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
