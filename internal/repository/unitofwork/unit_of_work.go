package unitofwork

import (
	"context"

	"tenderanalysis/internal/repository/contract"
)

// UnitOfWork scopes a set of repository operations to a single
// transaction when Begin has been called.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RunRepository() contract.RunRepository
	DocumentRepository() contract.DocumentRepository
	ComparisonRepository() contract.ComparisonRepository
}
