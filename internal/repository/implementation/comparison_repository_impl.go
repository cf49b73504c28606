package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tenderanalysis/internal/entity"
	"tenderanalysis/internal/repository/contract"
)

type comparisonRepositoryImpl struct {
	db *gorm.DB
}

func NewComparisonRepository(db *gorm.DB) contract.ComparisonRepository {
	return &comparisonRepositoryImpl{db: db}
}

// Create is idempotent on comparisonId: re-running an identical
// comparison (same docIds, same level) yields the same id, and a
// re-upload should not error on the resulting duplicate key.
func (r *comparisonRepositoryImpl) Create(ctx context.Context, cmp *entity.Comparison) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "comparison_id"}},
		UpdateAll: true,
	}).Create(cmp).Error
}

func (r *comparisonRepositoryImpl) FindByComparisonID(ctx context.Context, comparisonID string) (*entity.Comparison, error) {
	var cmp entity.Comparison
	if err := r.db.WithContext(ctx).Where("comparison_id = ?", comparisonID).First(&cmp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cmp, nil
}
