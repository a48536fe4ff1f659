package mapper

import (
	"encoding/json"
	"time"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/model"

	"gorm.io/datatypes"
)

type AccountMapper struct{}

func NewAccountMapper() *AccountMapper {
	return &AccountMapper{}
}

func (m *AccountMapper) ToEntity(a *model.Account) *entity.Account {
	if a == nil {
		return nil
	}

	var allowed []string
	if len(a.AllowedModels) > 0 {
		// A malformed column is treated as no restriction.
		_ = json.Unmarshal(a.AllowedModels, &allowed)
	}

	var updatedAt *time.Time
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		updatedAt = &t
	}

	return &entity.Account{
		SubjectId:      a.SubjectId,
		QuotaTotal:     a.QuotaTotal,
		QuotaRemaining: a.QuotaRemaining,
		Status:         entity.AccountStatus(a.Status),
		AllowedModels:  allowed,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *AccountMapper) ToModel(e *entity.Account) *model.Account {
	if e == nil {
		return nil
	}

	var allowed datatypes.JSON
	if len(e.AllowedModels) > 0 {
		raw, _ := json.Marshal(e.AllowedModels)
		allowed = datatypes.JSON(raw)
	}

	status := string(e.Status)
	if status == "" {
		status = string(entity.AccountStatusActive)
	}

	a := &model.Account{
		SubjectId:      e.SubjectId,
		QuotaTotal:     e.QuotaTotal,
		QuotaRemaining: e.QuotaRemaining,
		Status:         status,
		AllowedModels:  allowed,
		CreatedAt:      e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		a.UpdatedAt = *e.UpdatedAt
	}
	return a
}
