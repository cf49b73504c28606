package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tenderanalysis/internal/entity"
	"tenderanalysis/internal/repository/contract"
)

type documentRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &documentRepositoryImpl{db: db}
}

// Create is idempotent on docId: re-uploading byte-identical content
// re-ingests the same id and should not error on the duplicate key.
func (r *documentRepositoryImpl) Create(ctx context.Context, doc *entity.Document) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_id"}},
		UpdateAll: true,
	}).Create(doc).Error
}

func (r *documentRepositoryImpl) FindByDocID(ctx context.Context, docID string) (*entity.Document, error) {
	var doc entity.Document
	if err := r.db.WithContext(ctx).Where("doc_id = ?", docID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepositoryImpl) FindBySHA256(ctx context.Context, sha256 string) (*entity.Document, error) {
	var doc entity.Document
	if err := r.db.WithContext(ctx).Where("sha256 = ?", sha256).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}
