package models

import "time"

// EntitlementModel is the persistence model behind the subscriptions table:
// one row per account, keyed by the same external id as users.
type EntitlementModel struct {
	TgID             int64      `gorm:"column:tg_id;primaryKey;autoIncrement:false"`
	StartAt          *time.Time `gorm:"index:idx_subscriptions_start"`
	EndAt            *time.Time `gorm:"index:idx_subscriptions_end"`
	SubscriptionLink *string    `gorm:"size:500"`
	Instructions     *string    `gorm:"type:text"`
	Country          string     `gorm:"size:8;not null;default:fi"`
	UpdatedAt        time.Time
}

func (EntitlementModel) TableName() string {
	return "subscriptions"
}
