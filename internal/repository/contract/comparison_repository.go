package contract

import (
	"context"

	"tenderanalysis/internal/entity"
)

// ComparisonRepository persists multi-document comparison results.
type ComparisonRepository interface {
	Create(ctx context.Context, cmp *entity.Comparison) error
	FindByComparisonID(ctx context.Context, comparisonID string) (*entity.Comparison, error)
}
