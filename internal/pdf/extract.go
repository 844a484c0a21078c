// Package pdf extracts plain text from uploaded PDF documents.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF contains no extractable text, for
// example scanned documents without an OCR layer.
var ErrNoText = errors.New("pdf: no extractable text")

// ExtractText parses the PDF bytes and returns the concatenated plain
// text of all pages.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("pdf: empty document")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf: failed to parse document: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf: failed to extract text: %w", err)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, textReader); err != nil {
		return "", fmt.Errorf("pdf: failed to read extracted text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}

	return text, nil
}
