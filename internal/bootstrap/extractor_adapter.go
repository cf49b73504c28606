package bootstrap

import (
	"context"

	"tenderanalysis/internal/domain"
	"tenderanalysis/pkg/extractor"
)

// extractorAdapter narrows pkg/extractor's richer Extracted result down
// to the (text, detectedType, err) triple orchestrator.Extractor wants,
// so the orchestrator package itself never imports pkg/extractor.
type extractorAdapter struct {
	inner extractor.Extractor
}

func newExtractorAdapter(inner extractor.Extractor) *extractorAdapter {
	return &extractorAdapter{inner: inner}
}

func (a *extractorAdapter) Extract(ctx context.Context, path string, declaredType domain.DocType) (string, domain.DocType, error) {
	extracted, err := a.inner.Extract(ctx, path, declaredType)
	if err != nil {
		return "", "", err
	}
	return extracted.Text, extracted.DetectedType, nil
}
