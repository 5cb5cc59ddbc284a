package models

import "time"

// AccountModel is the persistence model behind the users table. The primary
// key is the external identity, not a surrogate id.
type AccountModel struct {
	TgID             int64   `gorm:"column:tg_id;primaryKey;autoIncrement:false"`
	Username         *string `gorm:"size:255"`
	Balance          int64   `gorm:"not null;default:0"`
	ReferralBalance  int64   `gorm:"not null;default:0"`
	ReferrerTgID     *int64  `gorm:"column:referrer_tg_id;index:idx_users_referrer"`
	FirstPaymentDone bool    `gorm:"not null;default:false"`
	CreatedAt        time.Time
}

func (AccountModel) TableName() string {
	return "users"
}
