// Package account holds the billed identity and its balance ledger rules.
package account

import "time"

// Account is the billed identity, keyed by the external numeric id it is
// known under. Balances are plain integer amounts and never go negative.
type Account struct {
	TgID             int64
	Username         *string
	Balance          int64
	ReferralBalance  int64
	ReferrerTgID     *int64
	FirstPaymentDone bool
	CreatedAt        time.Time
}

// CanDebit reports whether amount can be taken from the main balance.
func (a *Account) CanDebit(amount int64) bool {
	return amount > 0 && a.Balance >= amount
}

// HasReferrer reports whether a referrer has been recorded. The referrer is
// set at most once and never equals the account's own id.
func (a *Account) HasReferrer() bool {
	return a.ReferrerTgID != nil
}

// ReferralReward returns the flat reward granted to the referrer on the
// account's first payment: half of the paid amount, rounded down.
func ReferralReward(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / 2
}

// ReferralInfo is the read model behind the balance/referral views.
type ReferralInfo struct {
	TgID            int64
	Username        *string
	Balance         int64
	ReferralBalance int64
	InvitedCount    int64
}
