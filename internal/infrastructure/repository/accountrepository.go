package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nyxvpn/internal/domain/account"
	"nyxvpn/internal/infrastructure/persistence/mappers"
	"nyxvpn/internal/infrastructure/persistence/models"
	"nyxvpn/internal/shared/db"
	"nyxvpn/internal/shared/logger"
)

// AccountRepository implements the account ledger on top of the users table.
// All balance mutations that read-then-write run inside a transaction with
// the account row locked FOR UPDATE, so concurrent requests for the same
// account serialize and can never double-spend.
type AccountRepository struct {
	db     *gorm.DB
	tm     *db.TransactionManager
	mapper mappers.AccountMapper
	logger logger.Interface
}

func NewAccountRepository(gdb *gorm.DB, log logger.Interface) account.Repository {
	return &AccountRepository{
		db:     gdb,
		tm:     db.NewTransactionManager(gdb),
		mapper: mappers.NewAccountMapper(),
		logger: log,
	}
}

func (r *AccountRepository) EnsureAccount(ctx context.Context, tgID int64, username *string) error {
	model := &models.AccountModel{TgID: tgID, Username: username}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tg_id"}},
		DoNothing: true,
	}
	if username != nil && *username != "" {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "tg_id"}},
			DoUpdates: clause.Assignments(map[string]any{"username": *username}),
		}
	}

	if err := r.db.WithContext(ctx).Clauses(conflict).Create(model).Error; err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByTgID(ctx context.Context, tgID int64) (*account.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "tg_id = ?", tgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *AccountRepository) Debit(ctx context.Context, tgID int64, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}

	var debited bool
	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)

		var model models.AccountModel
		if err := db.LockForUpdate(tx).First(&model, "tg_id = ?", tgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock account row: %w", err)
		}
		if model.Balance < amount {
			return nil
		}

		result := tx.Model(&models.AccountModel{}).
			Where("tg_id = ?", tgID).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if result.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", result.Error)
		}
		debited = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if debited {
		r.logger.Infow("balance debited", "tg_id", tgID, "amount", amount)
	}
	return debited, nil
}

func (r *AccountRepository) Credit(ctx context.Context, tgID int64, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}

	result := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("tg_id = ?", tgID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return false, fmt.Errorf("failed to credit balance: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Infow("balance credited", "tg_id", tgID, "amount", amount)
	}
	return result.RowsAffected > 0, nil
}

func (r *AccountRepository) SetReferrer(ctx context.Context, tgID, referrerTgID int64) (bool, error) {
	if tgID == referrerTgID {
		return false, nil
	}

	var set bool
	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)

		var model models.AccountModel
		if err := db.LockForUpdate(tx).First(&model, "tg_id = ?", tgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock account row: %w", err)
		}
		if model.ReferrerTgID != nil {
			return nil
		}

		var count int64
		if err := tx.Model(&models.AccountModel{}).Where("tg_id = ?", referrerTgID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check referrer account: %w", err)
		}
		if count == 0 {
			return nil
		}

		result := tx.Model(&models.AccountModel{}).
			Where("tg_id = ?", tgID).
			UpdateColumn("referrer_tg_id", referrerTgID)
		if result.Error != nil {
			return fmt.Errorf("failed to set referrer: %w", result.Error)
		}
		set = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if set {
		r.logger.Infow("referrer recorded", "tg_id", tgID, "referrer_tg_id", referrerTgID)
	}
	return set, nil
}

func (r *AccountRepository) RecordFirstPayment(ctx context.Context, tgID int64, amount int64) (bool, error) {
	reward := account.ReferralReward(amount)
	if reward <= 0 {
		return false, nil
	}

	var credited bool
	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)

		var model models.AccountModel
		if err := db.LockForUpdate(tx).First(&model, "tg_id = ?", tgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				r.logger.Warnw("referral credit skipped: account not found", "tg_id", tgID)
				return nil
			}
			return fmt.Errorf("failed to lock account row: %w", err)
		}
		if model.FirstPaymentDone {
			r.logger.Debugw("referral credit skipped: already rewarded", "tg_id", tgID)
			return nil
		}
		if model.ReferrerTgID == nil {
			r.logger.Debugw("referral credit skipped: no referrer", "tg_id", tgID)
			return nil
		}

		result := tx.Model(&models.AccountModel{}).
			Where("tg_id = ?", *model.ReferrerTgID).
			UpdateColumn("referral_balance", gorm.Expr("referral_balance + ?", reward))
		if result.Error != nil {
			return fmt.Errorf("failed to credit referrer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			r.logger.Warnw("referral credit skipped: referrer row missing",
				"tg_id", tgID, "referrer_tg_id", *model.ReferrerTgID)
			return nil
		}

		if err := tx.Model(&models.AccountModel{}).
			Where("tg_id = ?", tgID).
			UpdateColumn("first_payment_done", true).Error; err != nil {
			return fmt.Errorf("failed to flag first payment: %w", err)
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if credited {
		r.logger.Infow("referral reward credited", "tg_id", tgID, "reward", reward)
	}
	return credited, nil
}

func (r *AccountRepository) GetReferralInfo(ctx context.Context, tgID int64) (*account.ReferralInfo, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "tg_id = ?", tgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var invited int64
	if err := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("referrer_tg_id = ?", tgID).Count(&invited).Error; err != nil {
		return nil, fmt.Errorf("failed to count invited accounts: %w", err)
	}

	return &account.ReferralInfo{
		TgID:            model.TgID,
		Username:        model.Username,
		Balance:         model.Balance,
		ReferralBalance: model.ReferralBalance,
		InvitedCount:    invited,
	}, nil
}

func (r *AccountRepository) TransferReferralBalance(ctx context.Context, tgID int64, minAmount int64) (bool, error) {
	var transferred bool
	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)

		var model models.AccountModel
		if err := db.LockForUpdate(tx).First(&model, "tg_id = ?", tgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock account row: %w", err)
		}
		if model.ReferralBalance < minAmount {
			return nil
		}

		result := tx.Model(&models.AccountModel{}).
			Where("tg_id = ?", tgID).
			UpdateColumns(map[string]any{
				"balance":          gorm.Expr("balance + ?", model.ReferralBalance),
				"referral_balance": 0,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to transfer referral balance: %w", result.Error)
		}
		transferred = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if transferred {
		r.logger.Infow("referral balance transferred", "tg_id", tgID)
	}
	return transferred, nil
}
