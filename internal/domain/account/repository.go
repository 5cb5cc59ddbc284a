package account

import "context"

// Repository is the ledger over account rows. Debit, RecordFirstPayment and
// TransferReferralBalance run under a row-level exclusive lock on the single
// account row; concurrent calls for the same account serialize there.
// Negative outcomes (insufficient funds, unknown account, already rewarded)
// are boolean results, not errors — errors mean the storage itself failed.
type Repository interface {
	// EnsureAccount creates the account on first contact and refreshes the
	// username on later ones. An empty username never overwrites a stored one.
	EnsureAccount(ctx context.Context, tgID int64, username *string) error

	GetByTgID(ctx context.Context, tgID int64) (*Account, error)

	// Debit atomically takes amount from the main balance. Returns false
	// without mutating when amount <= 0 or funds are short.
	Debit(ctx context.Context, tgID int64, amount int64) (bool, error)

	// Credit atomically adds amount to the main balance. No-op on amount <= 0.
	Credit(ctx context.Context, tgID int64, amount int64) (bool, error)

	// SetReferrer records the referrer once. Self-referral, an existing
	// referrer, or an unknown referrer account all return false.
	SetReferrer(ctx context.Context, tgID, referrerTgID int64) (bool, error)

	// RecordFirstPayment credits the referrer's referral balance with
	// ReferralReward(amount), at most once per account lifetime.
	RecordFirstPayment(ctx context.Context, tgID int64, amount int64) (bool, error)

	GetReferralInfo(ctx context.Context, tgID int64) (*ReferralInfo, error)

	// TransferReferralBalance moves the whole referral balance to the main
	// balance when it is at least minAmount.
	TransferReferralBalance(ctx context.Context, tgID int64, minAmount int64) (bool, error)
}
