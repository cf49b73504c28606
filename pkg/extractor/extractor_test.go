package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/internal/domain"
)

func writeTemp(t *testing.T, name, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestShellExtractor_PlainTextFile(t *testing.T) {
	path := writeTemp(t, "doc.txt", "Pliego de condiciones generales del contrato.")
	e := NewShellExtractor("", 0)

	result, err := e.Extract(context.Background(), path, domain.DocTypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, "Pliego de condiciones generales del contrato.", result.Text)
	assert.Equal(t, domain.DocTypeRFP, result.DetectedType)
	assert.NotEmpty(t, result.Metadata.SHA256)
	assert.False(t, result.Metadata.OCRUsed)
}

func TestShellExtractor_EmptyFileFails(t *testing.T) {
	path := writeTemp(t, "empty.txt", "   \n\t  ")
	e := NewShellExtractor("", 0)

	_, err := e.Extract(context.Background(), path, domain.DocTypeUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedArtifact)
}

func TestShellExtractor_MissingConverterForBinaryFormat(t *testing.T) {
	path := writeTemp(t, "doc.pdf", "not a real pdf, converter absent")
	e := NewShellExtractor("", 0)

	_, err := e.Extract(context.Background(), path, domain.DocTypeUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedArtifact)
}

func TestShellExtractor_NonexistentPath(t *testing.T) {
	e := NewShellExtractor("", 0)
	_, err := e.Extract(context.Background(), "/nonexistent/path.txt", domain.DocTypeUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedArtifact)
}

func TestShellExtractor_RunsConverterAndDetectsOCR(t *testing.T) {
	script := writeTemp(t, "converter.sh", "#!/bin/sh\nprintf '[OCR]Oferta economica y tecnica del proponente.'\n")
	require.NoError(t, os.Chmod(script, 0o755))

	path := writeTemp(t, "doc.pdf", "binary-ish content")
	e := NewShellExtractor(script, 0)

	result, err := e.Extract(context.Background(), path, domain.DocTypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, "Oferta economica y tecnica del proponente.", result.Text)
	assert.True(t, result.Metadata.OCRUsed)
	assert.Equal(t, domain.DocTypeProposal, result.DetectedType)
}
