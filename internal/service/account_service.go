package service

import (
	"context"
	"errors"
	"fmt"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/repository/contract"
	"ai-agent-be/internal/repository/unitofwork"
)

var (
	ErrInvalidQuotaAmount = errors.New("quota adjustment must be a positive amount")
	ErrInvalidStatus      = errors.New("account status must be active or disabled")
)

type IAccountService interface {
	GetQuota(ctx context.Context, subjectId string) (*dto.QuotaResponse, error)
	AdjustQuota(ctx context.Context, subjectId string, amount int) (*dto.AdjustQuotaResponse, error)
	UpdateStatus(ctx context.Context, subjectId, status string) (*dto.QuotaResponse, error)
}

type accountService struct {
	uowFactory    unitofwork.RepositoryFactory
	initialQuota  int
	allowedModels []string
}

func NewAccountService(uowFactory unitofwork.RepositoryFactory, initialQuota int, allowedModels []string) IAccountService {
	return &accountService{uowFactory: uowFactory, initialQuota: initialQuota, allowedModels: allowedModels}
}

// newAccount is what a subject starts with on first use.
func newAccount(subjectId string, quota int, allowedModels []string) *entity.Account {
	return &entity.Account{
		SubjectId:      subjectId,
		QuotaTotal:     quota,
		QuotaRemaining: quota,
		Status:         entity.AccountStatusActive,
		AllowedModels:  allowedModels,
	}
}

// GetQuota reports the subject's quota, opening the account on first sight
// the same way a chat request would.
func (s *accountService) GetQuota(ctx context.Context, subjectId string) (*dto.QuotaResponse, error) {
	account, err := s.uowFactory.NewUnitOfWork(ctx).AccountRepository().FindOrCreate(ctx, newAccount(subjectId, s.initialQuota, s.allowedModels))
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", subjectId, err)
	}

	return toQuotaResponse(account), nil
}

// AdjustQuota adds amount to both the total and the remaining quota. An
// unknown subject is opened with the defaults first.
func (s *accountService) AdjustQuota(ctx context.Context, subjectId string, amount int) (*dto.AdjustQuotaResponse, error) {
	if amount <= 0 {
		return nil, ErrInvalidQuotaAmount
	}

	var account *entity.Account
	err := s.inTx(ctx, func(repo contract.AccountRepository) error {
		if _, err := repo.FindOrCreate(ctx, newAccount(subjectId, s.initialQuota, s.allowedModels)); err != nil {
			return err
		}
		if err := repo.AddQuota(ctx, subjectId, amount); err != nil {
			return err
		}
		var err error
		account, err = repo.FindBySubject(ctx, subjectId)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adjust quota for %s: %w", subjectId, err)
	}
	return &dto.AdjustQuotaResponse{
		SubjectId:      account.SubjectId,
		QuotaTotal:     account.QuotaTotal,
		QuotaRemaining: account.QuotaRemaining,
	}, nil
}

// UpdateStatus enables or disables a subject's account.
func (s *accountService) UpdateStatus(ctx context.Context, subjectId, status string) (*dto.QuotaResponse, error) {
	next := entity.AccountStatus(status)
	if next != entity.AccountStatusActive && next != entity.AccountStatusDisabled {
		return nil, ErrInvalidStatus
	}

	var account *entity.Account
	err := s.inTx(ctx, func(repo contract.AccountRepository) error {
		if _, err := repo.FindOrCreate(ctx, newAccount(subjectId, s.initialQuota, s.allowedModels)); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, subjectId, next); err != nil {
			return err
		}
		var err error
		account, err = repo.FindBySubject(ctx, subjectId)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update status for %s: %w", subjectId, err)
	}
	return toQuotaResponse(account), nil
}

func (s *accountService) inTx(ctx context.Context, fn func(contract.AccountRepository) error) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow.AccountRepository()); err != nil {
		return err
	}
	return uow.Commit()
}

func toQuotaResponse(account *entity.Account) *dto.QuotaResponse {
	allowed := account.AllowedModels
	if allowed == nil {
		allowed = []string{}
	}
	return &dto.QuotaResponse{
		SubjectId:      account.SubjectId,
		QuotaTotal:     account.QuotaTotal,
		QuotaRemaining: account.QuotaRemaining,
		Status:         string(account.Status),
		AllowedModels:  allowed,
	}
}
