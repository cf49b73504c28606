package contract

import (
	"context"

	"tenderanalysis/internal/entity"
)

// DocumentRepository persists ingested-artifact metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	FindByDocID(ctx context.Context, docID string) (*entity.Document, error)
	FindBySHA256(ctx context.Context, sha256 string) (*entity.Document, error)
}
