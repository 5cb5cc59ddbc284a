package mappers

import (
	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/infrastructure/persistence/models"
	"nyxvpn/internal/shared/biztime"
)

// EntitlementMapper converts between the entitlement domain entity and its
// persistence model. Every timestamp is normalized to UTC on the way in and
// out, so no caller ever compares a zoned value against wall clock.
type EntitlementMapper struct{}

func NewEntitlementMapper() EntitlementMapper {
	return EntitlementMapper{}
}

func (EntitlementMapper) ToEntity(m *models.EntitlementModel) *entitlement.Entitlement {
	e := &entitlement.Entitlement{
		TgID:      m.TgID,
		Region:    entitlement.Region(m.Country),
		UpdatedAt: biztime.EnsureUTC(m.UpdatedAt),
	}
	if m.StartAt != nil {
		e.StartAt = biztime.EnsureUTC(*m.StartAt)
	}
	if m.EndAt != nil {
		e.EndAt = biztime.EnsureUTC(*m.EndAt)
	}
	if m.SubscriptionLink != nil {
		e.SubscriptionLink = *m.SubscriptionLink
	}
	if m.Instructions != nil {
		e.Instructions = *m.Instructions
	}
	e.Normalize()
	return e
}

func (EntitlementMapper) ToModel(e *entitlement.Entitlement) *models.EntitlementModel {
	m := &models.EntitlementModel{
		TgID:      e.TgID,
		Country:   string(e.Region),
		UpdatedAt: biztime.EnsureUTC(e.UpdatedAt),
	}
	if !e.StartAt.IsZero() {
		m.StartAt = biztime.EnsureUTCPtr(&e.StartAt)
	}
	if !e.EndAt.IsZero() {
		m.EndAt = biztime.EnsureUTCPtr(&e.EndAt)
	}
	if e.SubscriptionLink != "" {
		m.SubscriptionLink = &e.SubscriptionLink
	}
	if e.Instructions != "" {
		m.Instructions = &e.Instructions
	}
	return m
}
