package implementation

import (
	"context"
	"errors"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/mapper"
	"ai-agent-be/internal/model"
	"ai-agent-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AccountMapper
}

func NewAccountRepository(db *gorm.DB) contract.AccountRepository {
	return &AccountRepositoryImpl{
		db:     db,
		mapper: mapper.NewAccountMapper(),
	}
}

func (r *AccountRepositoryImpl) FindBySubject(ctx context.Context, subjectId string) (*entity.Account, error) {
	var m model.Account
	if err := r.db.WithContext(ctx).Where("subject_id = ?", subjectId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AccountRepositoryImpl) FindOrCreate(ctx context.Context, defaults *entity.Account) (*entity.Account, error) {
	m := r.mapper.ToModel(defaults)
	// ON CONFLICT DO NOTHING keeps concurrent first requests from failing.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return nil, err
	}
	return r.FindBySubject(ctx, defaults.SubjectId)
}

func (r *AccountRepositoryImpl) TryDecrementQuota(ctx context.Context, subjectId string, amount int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("subject_id = ? AND quota_remaining >= ?", subjectId, amount).
		UpdateColumn("quota_remaining", gorm.Expr("quota_remaining - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AccountRepositoryImpl) AddQuota(ctx context.Context, subjectId string, amount int) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("subject_id = ?", subjectId).
		Updates(map[string]interface{}{
			"quota_total":     gorm.Expr("quota_total + ?", amount),
			"quota_remaining": gorm.Expr("quota_remaining + ?", amount),
		}).Error
}

func (r *AccountRepositoryImpl) UpdateStatus(ctx context.Context, subjectId string, status entity.AccountStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("subject_id = ?", subjectId).
		Update("status", string(status)).Error
}
