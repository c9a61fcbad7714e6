package extract

import (
	"strings"
	"unicode/utf8"
)

// Plaintext extracts text from txt uploads.
type Plaintext struct{}

// NewPlaintext creates a plain text extractor.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// Type returns the declared type handled by this extractor.
func (p *Plaintext) Type() string { return "txt" }

// Extract interprets the bytes as UTF-8 text. Invalid UTF-8 sequences are
// replaced rather than rejected so legacy-encoded files still ingest.
// Whitespace-only input yields empty text, not an error: a blank file is an
// empty document, not an extraction failure.
func (p *Plaintext) Extract(data []byte) (string, error) {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}

	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	return text, nil
}

var _ Extractor = (*Plaintext)(nil)
