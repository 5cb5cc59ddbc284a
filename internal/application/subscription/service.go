// Package subscription orchestrates provisioning: ledger debit, panel
// credential creation, durable entitlement write and cache mirror.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nyxvpn/internal/domain/account"
	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/shared/biztime"
	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

var (
	// ErrInsufficientBalance means the account cannot cover the tariff.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrActiveSubscriptionExists means provisioning was refused because an
	// active entitlement already resolves for the account.
	ErrActiveSubscriptionExists = errors.New("active subscription already exists")
)

// Service wires the ledger, the panels and the entitlement layers into the
// provisioning flows. The invariant it protects: the ledger is consistent
// after every call. Any failure past a successful debit triggers a
// compensating credit before the error is returned.
type Service struct {
	accounts account.Repository
	store    entitlement.Repository
	cache    entitlement.Cache
	panels   PanelSelector
	cfg      sharedConfig.SubscriptionConfig
	logger   logger.Interface
}

func NewService(
	accounts account.Repository,
	store entitlement.Repository,
	cache entitlement.Cache,
	panels PanelSelector,
	cfg sharedConfig.SubscriptionConfig,
	log logger.Interface,
) *Service {
	return &Service{
		accounts: accounts,
		store:    store,
		cache:    cache,
		panels:   panels,
		cfg:      cfg,
		logger:   log,
	}
}

// accountKey derives the panel-side identity for an account. Panels key
// clients by email-shaped strings, so the key is the public handle when one
// exists and a synthetic stable one otherwise.
func accountKey(tgID int64, username string) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("@acct_%d", tgID)
}

// ProvisionTrial grants the free introductory window. No debit; primary
// region only.
func (s *Service) ProvisionTrial(ctx context.Context, tgID int64, username string) (*entitlement.Entitlement, error) {
	if err := s.ensureAccount(ctx, tgID, username); err != nil {
		return nil, err
	}

	existing, err := s.ResolveEntitlement(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrActiveSubscriptionExists
	}

	days := s.cfg.TrialDays
	e, err := s.provision(ctx, tgID, username, entitlement.RegionPrimary, days)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("trial provisioned", "tg_id", tgID, "days", days)
	return e, nil
}

// ProvisionPaid sells one tariff period. The debit happens first; every
// failure after it credits the amount back, including ambiguous ones like
// timeouts, trading a possible orphan panel credential for a never-wrong
// ledger.
func (s *Service) ProvisionPaid(ctx context.Context, tgID int64, username string, region entitlement.Region) (*entitlement.Entitlement, error) {
	if err := s.ensureAccount(ctx, tgID, username); err != nil {
		return nil, err
	}
	if !region.IsValid() {
		return nil, fmt.Errorf("unknown region %q", region)
	}

	price := s.cfg.TariffPrice
	ok, err := s.accounts.Debit(ctx, tgID, price)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientBalance
	}

	e, err := s.provision(ctx, tgID, username, region, s.cfg.TariffDays)
	if err != nil {
		s.compensate(ctx, tgID, price)
		return nil, err
	}

	if _, err := s.accounts.RecordFirstPayment(ctx, tgID, price); err != nil {
		// The purchase itself succeeded; the reward can be granted manually.
		s.logger.Errorw("failed to record first payment", "tg_id", tgID, "error", err)
	}

	s.logger.Infow("subscription provisioned",
		"tg_id", tgID, "region", region, "price", price, "days", s.cfg.TariffDays)
	return e, nil
}

func (s *Service) provision(ctx context.Context, tgID int64, username string, region entitlement.Region, days int) (*entitlement.Entitlement, error) {
	panel, err := s.panels.Panel(region)
	if err != nil {
		return nil, err
	}

	now := biztime.NowUTC()
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)

	cred, err := panel.CreateCredential(ctx, accountKey(tgID, username), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("panel provisioning failed: %w", err)
	}

	e := &entitlement.Entitlement{
		TgID:             tgID,
		StartAt:          now,
		EndAt:            cred.ExpiresAt,
		SubscriptionLink: panel.SubscriptionLink(cred.SubID),
		Instructions:     panel.Instructions(cred.SubID),
		Region:           region,
	}
	if err := s.store.Set(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to persist entitlement: %w", err)
	}
	_ = s.cache.Set(ctx, e)

	return e, nil
}

func (s *Service) compensate(ctx context.Context, tgID int64, amount int64) {
	if _, err := s.accounts.Credit(ctx, tgID, amount); err != nil {
		// Worst case for the ledger: a debit with nothing delivered. Loud log
		// so operators reconcile by hand.
		s.logger.Errorw("COMPENSATION FAILED, manual credit required",
			"tg_id", tgID, "amount", amount, "error", err)
		return
	}
	s.logger.Warnw("provisioning failed after debit, amount credited back",
		"tg_id", tgID, "amount", amount)
}

// ResolveEntitlement answers "is this account's subscription active" with the
// panel as live truth, the cache and the durable store as fallbacks. Layers
// self-heal: a store hit refills the cache, a panel miss clears both, and a
// panel credential with no local record rebuilds the record.
func (s *Service) ResolveEntitlement(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	stored, err := s.fromCacheOrStore(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return s.resolveFromPanel(ctx, tgID)
	}

	panel, err := s.panels.Panel(stored.Region)
	if err != nil {
		return stored, nil
	}

	cred, found, err := panel.FindCredential(ctx, accountKey(tgID, s.lookupUsername(ctx, tgID)))
	if err != nil {
		// Panel unreachable: the stored record is the best available answer.
		s.logger.Warnw("panel lookup failed, serving stored entitlement",
			"tg_id", tgID, "error", err)
		return stored, nil
	}
	if !found {
		// The panel dropped the credential; local layers follow.
		s.logger.Infow("credential gone from panel, clearing entitlement", "tg_id", tgID)
		if err := s.ClearEntitlement(ctx, tgID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if !cred.ExpiresAt.Equal(stored.EndAt) {
		stored.EndAt = biztime.EnsureUTC(cred.ExpiresAt)
		if err := s.store.Set(ctx, stored); err != nil {
			return nil, fmt.Errorf("failed to persist corrected entitlement: %w", err)
		}
		_ = s.cache.Set(ctx, stored)
	}
	return stored, nil
}

// resolveFromPanel covers the case where the local layers have nothing but
// the panel might: a purged or cleared record whose credential is still
// live. Trials use this path to refuse a second credential. The primary
// region is the only one consulted, matching where trials and defaults land.
func (s *Service) resolveFromPanel(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	panel, err := s.panels.Panel(entitlement.RegionPrimary)
	if err != nil {
		return nil, nil
	}

	cred, found, err := panel.FindCredential(ctx, accountKey(tgID, s.lookupUsername(ctx, tgID)))
	if err != nil {
		// No local record and no panel answer: absent is the best available.
		s.logger.Warnw("panel lookup failed with no local record", "tg_id", tgID, "error", err)
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	e := &entitlement.Entitlement{
		TgID:             tgID,
		EndAt:            cred.ExpiresAt,
		SubscriptionLink: panel.SubscriptionLink(cred.SubID),
		Instructions:     panel.Instructions(cred.SubID),
		Region:           entitlement.RegionPrimary,
	}
	s.logger.Infow("rebuilt entitlement from live panel credential",
		"tg_id", tgID, "end_at", cred.ExpiresAt)
	if err := s.store.Set(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to persist rebuilt entitlement: %w", err)
	}
	_ = s.cache.Set(ctx, e)
	return e, nil
}

func (s *Service) lookupUsername(ctx context.Context, tgID int64) string {
	acct, err := s.accounts.GetByTgID(ctx, tgID)
	if err != nil || acct == nil || acct.Username == nil {
		return ""
	}
	return *acct.Username
}

func (s *Service) fromCacheOrStore(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	if cached, err := s.cache.Get(ctx, tgID); err == nil && cached != nil {
		return cached, nil
	}

	stored, err := s.store.Get(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		_ = s.cache.Set(ctx, stored)
	}
	return stored, nil
}

// ClearEntitlement drops both the durable row and the cache entry.
func (s *Service) ClearEntitlement(ctx context.Context, tgID int64) error {
	if err := s.store.Clear(ctx, tgID); err != nil {
		return err
	}
	return s.cache.Clear(ctx, tgID)
}

func (s *Service) ensureAccount(ctx context.Context, tgID int64, username string) error {
	var uname *string
	if username != "" {
		uname = &username
	}
	return s.accounts.EnsureAccount(ctx, tgID, uname)
}
