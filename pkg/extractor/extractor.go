// Package extractor normalizes an input artifact (PDF, DOCX, plain
// text) to plain text plus metadata (C4). The actual PDF/DOCX codecs
// are out-of-process collaborators; this package defines the contract
// and an out-of-process adapter that shells out to a converter binary.
package extractor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"tenderanalysis/internal/domain"
)

// ErrUnsupportedArtifact is returned when the converter cannot produce
// text for the given path/declared type, or exits non-zero. Extract
// never returns empty text silently; an extraction that yields no text
// is this error, not a zero-value Extracted.
var ErrUnsupportedArtifact = errors.New("extractor: unsupported or unreadable artifact")

// Extracted is the normalized result of reading an input artifact.
type Extracted struct {
	Text         string
	DetectedType domain.DocType
	Metadata     domain.DocumentMetadata
}

// Extractor converts a path on disk plus its declared type into plain
// text and metadata.
type Extractor interface {
	Extract(ctx context.Context, path string, declaredType domain.DocType) (*Extracted, error)
}

// ShellExtractor delegates to an external converter binary for
// non-text formats and reads plain text files directly, avoiding a
// process spawn when it is not needed.
type ShellExtractor struct {
	// ConverterPath is the binary invoked for non-plaintext artifacts.
	// It must accept the source path as its sole argument and write
	// extracted plain text to stdout, exiting non-zero on failure.
	ConverterPath string
	Timeout       time.Duration
}

func NewShellExtractor(converterPath string, timeout time.Duration) *ShellExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShellExtractor{ConverterPath: converterPath, Timeout: timeout}
}

func (e *ShellExtractor) Extract(ctx context.Context, path string, declaredType domain.DocType) (*Extracted, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedArtifact, path, err)
	}

	var text string
	var ocrUsed bool

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedArtifact, err)
		}
		text = string(raw)
	default:
		text, ocrUsed, err = e.runConverter(ctx, path)
		if err != nil {
			return nil, err
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no extractable text in %s", ErrUnsupportedArtifact, path)
	}

	sum := sha256.Sum256([]byte(text))
	meta := domain.DocumentMetadata{
		OriginalFilename: filepath.Base(path),
		MimeType:         mimeFor(path),
		SizeBytes:        info.Size(),
		SHA256:           hex.EncodeToString(sum[:]),
		TableCount:       strings.Count(text, "\t"),
		OCRUsed:          ocrUsed,
	}

	return &Extracted{
		Text:         text,
		DetectedType: detectType(text, declaredType),
		Metadata:     meta,
	}, nil
}

func (e *ShellExtractor) runConverter(ctx context.Context, path string) (string, bool, error) {
	if e.ConverterPath == "" {
		return "", false, fmt.Errorf("%w: no converter configured for %s", ErrUnsupportedArtifact, path)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, e.ConverterPath, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", false, fmt.Errorf("%w: converter failed: %v: %s", ErrUnsupportedArtifact, err, stderr.String())
	}

	out, err := io.ReadAll(&stdout)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnsupportedArtifact, err)
	}
	// The converter prefixes its output with "[OCR]" when it fell back
	// to image OCR instead of extracting embedded text directly.
	ocrUsed := bytes.HasPrefix(out, []byte("[OCR]"))
	text := strings.TrimPrefix(string(out), "[OCR]")
	return text, ocrUsed, nil
}

func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".txt", ".md":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// detectType returns RFP or PROPOSAL when the text contains one of
// their marker words, whatever the declared type; otherwise it returns
// the declared type.
func detectType(text string, declared domain.DocType) domain.DocType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "pliego") || strings.Contains(lower, "convocatoria"):
		return domain.DocTypeRFP
	case strings.Contains(lower, "propuesta") || strings.Contains(lower, "oferta"):
		return domain.DocTypeProposal
	default:
		return declared
	}
}
