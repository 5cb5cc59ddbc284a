// Package account exposes the ledger operations callers outside the
// provisioning flow need: balances, referral binding and transfers.
package account

import (
	"context"

	"nyxvpn/internal/domain/account"
	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

type Service struct {
	accounts account.Repository
	cfg      sharedConfig.SubscriptionConfig
	logger   logger.Interface
}

func NewService(accounts account.Repository, cfg sharedConfig.SubscriptionConfig, log logger.Interface) *Service {
	return &Service{accounts: accounts, cfg: cfg, logger: log}
}

func (s *Service) GetAccount(ctx context.Context, tgID int64) (*account.Account, error) {
	return s.accounts.GetByTgID(ctx, tgID)
}

func (s *Service) GetReferralInfo(ctx context.Context, tgID int64) (*account.ReferralInfo, error) {
	return s.accounts.GetReferralInfo(ctx, tgID)
}

// BindReferrer links an account to the account that invited it. False means
// the binding was refused: self-referral, already bound, or unknown referrer.
func (s *Service) BindReferrer(ctx context.Context, tgID, referrerTgID int64) (bool, error) {
	ok, err := s.accounts.SetReferrer(ctx, tgID, referrerTgID)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Debugw("referrer binding refused", "tg_id", tgID, "referrer_tg_id", referrerTgID)
	}
	return ok, nil
}

// TransferReferralBalance moves the accumulated referral balance to the main
// balance once it reaches the configured minimum.
func (s *Service) TransferReferralBalance(ctx context.Context, tgID int64) (bool, error) {
	return s.accounts.TransferReferralBalance(ctx, tgID, s.cfg.ReferralMinTransfer)
}
