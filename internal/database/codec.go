package database

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zombar/stylecheck/internal/models"
)

// encodeAnnotated serializes an annotated document to gzip-compressed,
// base64-encoded JSON. Token streams are large and repetitive, so they
// compress well.
func encodeAnnotated(doc *models.AnnotatedDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal annotated document: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress annotated document: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decodeAnnotated reverses encodeAnnotated
func decodeAnnotated(encoded string) (*models.AnnotatedDocument, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress annotated document: %w", err)
	}

	var doc models.AnnotatedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotated document: %w", err)
	}
	if doc.UniqueWords == nil {
		doc.UniqueWords = models.NewWordTable()
	}
	if doc.UniqueLemmas == nil {
		doc.UniqueLemmas = models.NewWordTable()
	}
	return &doc, nil
}
