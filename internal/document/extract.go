// Package document reads uploaded reports and transcripts and checks they
// belong to the company being analysed.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrEmptyDocument   = errors.New("document contains no text")
	ErrTooLarge        = errors.New("document too large")
	ErrInvalidPDF      = errors.New("invalid pdf")
)

const DefaultMaxBytes = 10 << 20

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

type Document struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Pages int    `json:"pages,omitempty"`
	Size  int    `json:"size"`
	Text  string `json:"-"`
}

// Extract pulls plain text out of an upload. The type is taken from the
// file extension, falling back to the content type.
func Extract(filename, contentType string, data []byte, maxBytes int64) (*Document, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), maxBytes)
	}
	kind, err := detectKind(filename, contentType)
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: filepath.Base(filename), Kind: kind, Size: len(data)}
	switch kind {
	case KindPDF:
		pages, text, err := extractPDF(data)
		if err != nil {
			return nil, err
		}
		doc.Pages, doc.Text = pages, text
	case KindText:
		doc.Text = strings.ToValidUTF8(string(data), "")
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Name)
	}
	return doc, nil
}

// FromText wraps pasted text as a document.
func FromText(name, text string) (*Document, error) {
	text = strings.ToValidUTF8(text, "")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	if name == "" {
		name = "pasted.txt"
	}
	return &Document{Name: name, Kind: KindText, Size: len(text), Text: text}, nil
}

func detectKind(filename, contentType string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt", ".md", ".markdown", ".text":
		return KindText, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "application/pdf":
		return KindPDF, nil
	case "text/plain", "text/markdown":
		return KindText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
}
