package unitofwork

import (
	"context"

	"ai-agent-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() contract.AccountRepository
	ContextDocumentRepository() contract.ContextDocumentRepository
}
