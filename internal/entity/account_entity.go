package entity

import "time"

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

type Account struct {
	SubjectId      string
	QuotaTotal     int
	QuotaRemaining int
	Status         AccountStatus
	AllowedModels  []string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

func (a *Account) IsAvailable() bool {
	return a.Status != AccountStatusDisabled
}

// AllowsModel reports whether the account may use model. An empty allow-list
// means no restriction.
func (a *Account) AllowsModel(model string) bool {
	if len(a.AllowedModels) == 0 {
		return true
	}
	for _, m := range a.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}
