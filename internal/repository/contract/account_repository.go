package contract

import (
	"context"

	"ai-agent-be/internal/entity"
)

type AccountRepository interface {
	FindBySubject(ctx context.Context, subjectId string) (*entity.Account, error)
	// FindOrCreate returns the stored account, creating it from defaults on
	// first use.
	FindOrCreate(ctx context.Context, defaults *entity.Account) (*entity.Account, error)
	// TryDecrementQuota subtracts amount only while enough quota remains. It
	// reports false when nothing was subtracted.
	TryDecrementQuota(ctx context.Context, subjectId string, amount int) (bool, error)
	AddQuota(ctx context.Context, subjectId string, amount int) error
	UpdateStatus(ctx context.Context, subjectId string, status entity.AccountStatus) error
}
