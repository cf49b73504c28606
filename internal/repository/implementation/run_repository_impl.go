package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tenderanalysis/internal/entity"
	"tenderanalysis/internal/repository/contract"
)

type runRepositoryImpl struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) contract.RunRepository {
	return &runRepositoryImpl{db: db}
}

func (r *runRepositoryImpl) Upsert(ctx context.Context, run *entity.Run) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(run).Error
}

func (r *runRepositoryImpl) FindByRunID(ctx context.Context, runID string) (*entity.Run, error) {
	var run entity.Run
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *runRepositoryImpl) FindLatestByDocID(ctx context.Context, docID, analysisLevel string) (*entity.Run, error) {
	var run entity.Run
	query := r.db.WithContext(ctx).Where("doc_id = ? AND analysis_level = ?", docID, analysisLevel).Order("updated_at DESC")
	if err := query.First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}
