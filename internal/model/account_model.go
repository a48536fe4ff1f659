package model

import (
	"time"

	"gorm.io/datatypes"
)

type Account struct {
	SubjectId      string         `gorm:"type:varchar(128);primaryKey"`
	QuotaTotal     int            `gorm:"not null;default:0"`
	QuotaRemaining int            `gorm:"not null;default:0;check:quota_remaining >= 0"`
	Status         string         `gorm:"type:varchar(16);not null;default:'active'"`
	AllowedModels  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
