package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/infrastructure/persistence/mappers"
	"nyxvpn/internal/infrastructure/persistence/models"
	"nyxvpn/internal/shared/biztime"
	"nyxvpn/internal/shared/logger"
)

// EntitlementRepository is the durable entitlement store, one row per account.
type EntitlementRepository struct {
	db     *gorm.DB
	mapper mappers.EntitlementMapper
	logger logger.Interface
}

func NewEntitlementRepository(gdb *gorm.DB, log logger.Interface) entitlement.Repository {
	return &EntitlementRepository{
		db:     gdb,
		mapper: mappers.NewEntitlementMapper(),
		logger: log,
	}
}

func (r *EntitlementRepository) Set(ctx context.Context, e *entitlement.Entitlement) error {
	e.Normalize()
	e.UpdatedAt = biztime.NowUTC()
	model := r.mapper.ToModel(e)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tg_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"start_at", "end_at", "subscription_link", "instructions", "country", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to store entitlement: %w", err)
	}
	return nil
}

func (r *EntitlementRepository) Get(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel
	if err := r.db.WithContext(ctx).First(&model, "tg_id = ?", tgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	e := r.mapper.ToEntity(&model)
	if !e.IsActive(biztime.NowUTC()) {
		if err := r.Clear(ctx, tgID); err != nil {
			r.logger.Warnw("failed to clear lapsed entitlement", "tg_id", tgID, "error", err)
		}
		return nil, nil
	}
	return e, nil
}

func (r *EntitlementRepository) Clear(ctx context.Context, tgID int64) error {
	err := r.db.WithContext(ctx).Delete(&models.EntitlementModel{}, "tg_id = ?", tgID).Error
	if err != nil {
		return fmt.Errorf("failed to clear entitlement: %w", err)
	}
	return nil
}

func (r *EntitlementRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("end_at IS NOT NULL AND end_at < ?", biztime.EnsureUTC(before)).
		Delete(&models.EntitlementModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired entitlements: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *EntitlementRepository) ListWindows(ctx context.Context) ([]entitlement.Window, error) {
	var rows []models.EntitlementModel
	err := r.db.WithContext(ctx).
		Select("tg_id", "end_at").
		Where("end_at IS NOT NULL").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlement windows: %w", err)
	}

	windows := make([]entitlement.Window, 0, len(rows))
	for _, row := range rows {
		windows = append(windows, entitlement.Window{
			TgID:  row.TgID,
			EndAt: biztime.EnsureUTC(*row.EndAt),
		})
	}
	return windows, nil
}
