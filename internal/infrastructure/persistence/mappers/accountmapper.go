package mappers

import (
	"nyxvpn/internal/domain/account"
	"nyxvpn/internal/infrastructure/persistence/models"
	"nyxvpn/internal/shared/biztime"
)

// AccountMapper converts between the account domain entity and its
// persistence model.
type AccountMapper struct{}

func NewAccountMapper() AccountMapper {
	return AccountMapper{}
}

func (AccountMapper) ToEntity(m *models.AccountModel) *account.Account {
	return &account.Account{
		TgID:             m.TgID,
		Username:         m.Username,
		Balance:          m.Balance,
		ReferralBalance:  m.ReferralBalance,
		ReferrerTgID:     m.ReferrerTgID,
		FirstPaymentDone: m.FirstPaymentDone,
		CreatedAt:        biztime.EnsureUTC(m.CreatedAt),
	}
}

func (AccountMapper) ToModel(a *account.Account) *models.AccountModel {
	return &models.AccountModel{
		TgID:             a.TgID,
		Username:         a.Username,
		Balance:          a.Balance,
		ReferralBalance:  a.ReferralBalance,
		ReferrerTgID:     a.ReferrerTgID,
		FirstPaymentDone: a.FirstPaymentDone,
		CreatedAt:        biztime.EnsureUTC(a.CreatedAt),
	}
}
