package unitofwork

import "context"

// RepositoryFactory hands out a fresh UnitOfWork per request/run.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
