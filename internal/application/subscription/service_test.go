package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyxvpn/internal/domain/account"
	"nyxvpn/internal/domain/entitlement"
	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

// ---- fakes ----

type fakeAccounts struct {
	balances   map[int64]int64
	firstPayed map[int64]bool
	debitErr   error
	creditErr  error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		balances:   make(map[int64]int64),
		firstPayed: make(map[int64]bool),
	}
}

func (f *fakeAccounts) EnsureAccount(ctx context.Context, tgID int64, username *string) error {
	if _, ok := f.balances[tgID]; !ok {
		f.balances[tgID] = 0
	}
	return nil
}

func (f *fakeAccounts) GetByTgID(ctx context.Context, tgID int64) (*account.Account, error) {
	balance, ok := f.balances[tgID]
	if !ok {
		return nil, nil
	}
	return &account.Account{TgID: tgID, Balance: balance}, nil
}

func (f *fakeAccounts) Debit(ctx context.Context, tgID int64, amount int64) (bool, error) {
	if f.debitErr != nil {
		return false, f.debitErr
	}
	if amount <= 0 || f.balances[tgID] < amount {
		return false, nil
	}
	f.balances[tgID] -= amount
	return true, nil
}

func (f *fakeAccounts) Credit(ctx context.Context, tgID int64, amount int64) (bool, error) {
	if f.creditErr != nil {
		return false, f.creditErr
	}
	f.balances[tgID] += amount
	return true, nil
}

func (f *fakeAccounts) SetReferrer(ctx context.Context, tgID, referrerTgID int64) (bool, error) {
	return false, nil
}

func (f *fakeAccounts) RecordFirstPayment(ctx context.Context, tgID int64, amount int64) (bool, error) {
	if f.firstPayed[tgID] {
		return false, nil
	}
	f.firstPayed[tgID] = true
	return true, nil
}

func (f *fakeAccounts) GetReferralInfo(ctx context.Context, tgID int64) (*account.ReferralInfo, error) {
	return nil, nil
}

func (f *fakeAccounts) TransferReferralBalance(ctx context.Context, tgID int64, minAmount int64) (bool, error) {
	return false, nil
}

type fakeStore struct {
	rows   map[int64]*entitlement.Entitlement
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]*entitlement.Entitlement)}
}

func (f *fakeStore) Set(ctx context.Context, e *entitlement.Entitlement) error {
	if f.setErr != nil {
		return f.setErr
	}
	cp := *e
	f.rows[e.TgID] = &cp
	return nil
}

func (f *fakeStore) Get(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	e, ok := f.rows[tgID]
	if !ok {
		return nil, nil
	}
	if !e.IsActive(time.Now().UTC()) {
		delete(f.rows, tgID)
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) Clear(ctx context.Context, tgID int64) error {
	delete(f.rows, tgID)
	return nil
}

func (f *fakeStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) ListWindows(ctx context.Context) ([]entitlement.Window, error) {
	return nil, nil
}

type fakeCache struct {
	entries map[int64]*entitlement.Entitlement
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64]*entitlement.Entitlement)}
}

func (f *fakeCache) Set(ctx context.Context, e *entitlement.Entitlement) error {
	cp := *e
	f.entries[e.TgID] = &cp
	return nil
}

func (f *fakeCache) Get(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	e, ok := f.entries[tgID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeCache) Clear(ctx context.Context, tgID int64) error {
	delete(f.entries, tgID)
	return nil
}

type fakePanel struct {
	createCalls int
	createErr   error
	findCred    Credential
	findFound   bool
	findErr     error
}

func (f *fakePanel) CreateCredential(ctx context.Context, accountKey string, expiresAt time.Time) (Credential, error) {
	f.createCalls++
	if f.createErr != nil {
		return Credential{}, f.createErr
	}
	return Credential{SubID: "sub123", ExpiresAt: expiresAt}, nil
}

func (f *fakePanel) FindCredential(ctx context.Context, accountKey string) (Credential, bool, error) {
	if f.findErr != nil {
		return Credential{}, false, f.findErr
	}
	return f.findCred, f.findFound, nil
}

func (f *fakePanel) SubscriptionLink(subID string) string {
	return "https://sub.example.com/sub/" + subID
}

func (f *fakePanel) Instructions(subID string) string {
	return "instructions for " + subID
}

type fakeSelector struct {
	panel *fakePanel
}

func (f *fakeSelector) Panel(region entitlement.Region) (PanelClient, error) {
	return f.panel, nil
}

func testConfig() sharedConfig.SubscriptionConfig {
	return sharedConfig.SubscriptionConfig{
		TariffPrice:         150,
		TariffDays:          30,
		TrialDays:           3,
		ReferralMinTransfer: 150,
	}
}

type serviceFixture struct {
	service  *Service
	accounts *fakeAccounts
	store    *fakeStore
	cache    *fakeCache
	panel    *fakePanel
}

func newFixture() *serviceFixture {
	accounts := newFakeAccounts()
	store := newFakeStore()
	cache := newFakeCache()
	panel := &fakePanel{}
	service := NewService(accounts, store, cache, &fakeSelector{panel: panel}, testConfig(), logger.NewLogger())
	return &serviceFixture{service: service, accounts: accounts, store: store, cache: cache, panel: panel}
}

// ---- tests ----

func TestService_ProvisionPaid_Succeeds(t *testing.T) {
	f := newFixture()
	f.accounts.balances[1] = 150
	ctx := context.Background()

	e, err := f.service.ProvisionPaid(ctx, 1, "alice", entitlement.RegionPrimary)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, int64(0), f.accounts.balances[1])
	assert.Equal(t, "https://sub.example.com/sub/sub123", e.SubscriptionLink)
	assert.True(t, e.EndAt.After(time.Now().UTC().Add(29*24*time.Hour)))
	assert.NotNil(t, f.store.rows[1])
	assert.NotNil(t, f.cache.entries[1])
	assert.True(t, f.accounts.firstPayed[1])
}

func TestService_ProvisionPaid_InsufficientBalance(t *testing.T) {
	f := newFixture()
	f.accounts.balances[1] = 100
	ctx := context.Background()

	_, err := f.service.ProvisionPaid(ctx, 1, "alice", entitlement.RegionPrimary)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(100), f.accounts.balances[1])
	assert.Equal(t, 0, f.panel.createCalls, "panel must not be called without a debit")
}

func TestService_ProvisionPaid_CompensatesOnPanelFailure(t *testing.T) {
	f := newFixture()
	f.accounts.balances[1] = 150
	f.panel.createErr = errors.New("connection timed out")
	ctx := context.Background()

	_, err := f.service.ProvisionPaid(ctx, 1, "alice", entitlement.RegionPrimary)
	require.Error(t, err)

	assert.Equal(t, int64(150), f.accounts.balances[1], "debited amount must be credited back")
	assert.Nil(t, f.store.rows[1])
	assert.False(t, f.accounts.firstPayed[1])
}

func TestService_ProvisionPaid_CompensatesOnStoreFailure(t *testing.T) {
	f := newFixture()
	f.accounts.balances[1] = 150
	f.store.setErr = errors.New("database gone")
	ctx := context.Background()

	_, err := f.service.ProvisionPaid(ctx, 1, "alice", entitlement.RegionPrimary)
	require.Error(t, err)
	assert.Equal(t, int64(150), f.accounts.balances[1])
}

func TestService_ProvisionTrial(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("grants trial without debit", func(t *testing.T) {
		e, err := f.service.ProvisionTrial(ctx, 2, "bob")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, entitlement.RegionPrimary, e.Region)
		assert.True(t, e.EndAt.Before(time.Now().UTC().Add(4*24*time.Hour)))
		assert.Equal(t, int64(0), f.accounts.balances[2])
	})

	t.Run("rejects while an entitlement is active", func(t *testing.T) {
		f.panel.findFound = true
		f.panel.findCred = Credential{SubID: "sub123", ExpiresAt: f.store.rows[2].EndAt}

		_, err := f.service.ProvisionTrial(ctx, 2, "bob")
		assert.ErrorIs(t, err, ErrActiveSubscriptionExists)
	})

	t.Run("rejects when only the panel remembers the credential", func(t *testing.T) {
		f := newFixture()
		f.panel.findFound = true
		f.panel.findCred = Credential{SubID: "sub123", ExpiresAt: time.Now().UTC().Add(24 * time.Hour)}

		_, err := f.service.ProvisionTrial(ctx, 9, "carol")
		assert.ErrorIs(t, err, ErrActiveSubscriptionExists)
		assert.Equal(t, 0, f.panel.createCalls, "no second credential may be created")
	})
}

func TestService_ResolveEntitlement(t *testing.T) {
	ctx := context.Background()
	end := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	stored := func() *entitlement.Entitlement {
		return &entitlement.Entitlement{
			TgID:             3,
			StartAt:          time.Now().UTC().Add(-time.Hour),
			EndAt:            end,
			SubscriptionLink: "https://sub.example.com/sub/sub123",
			Region:           entitlement.RegionPrimary,
		}
	}

	t.Run("absent everywhere resolves to nil", func(t *testing.T) {
		f := newFixture()
		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("live panel credential with no local record rebuilds it", func(t *testing.T) {
		f := newFixture()
		f.panel.findFound = true
		f.panel.findCred = Credential{SubID: "sub123", ExpiresAt: end}

		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.EndAt.Equal(end))
		assert.Equal(t, entitlement.RegionPrimary, e.Region)
		assert.Equal(t, "https://sub.example.com/sub/sub123", e.SubscriptionLink)
		assert.NotNil(t, f.store.rows[3], "rebuilt record must be persisted")
		assert.NotNil(t, f.cache.entries[3], "rebuilt record must be cached")
	})

	t.Run("panel failure with no local record resolves to nil", func(t *testing.T) {
		f := newFixture()
		f.panel.findErr = errors.New("panel unreachable")

		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("store hit refills cache", func(t *testing.T) {
		f := newFixture()
		f.store.rows[3] = stored()
		f.panel.findFound = true
		f.panel.findCred = Credential{SubID: "sub123", ExpiresAt: end}

		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.NotNil(t, f.cache.entries[3], "resolve must refill the cache")
	})

	t.Run("panel absence clears store and cache", func(t *testing.T) {
		f := newFixture()
		f.store.rows[3] = stored()
		f.cache.entries[3] = stored()
		f.panel.findFound = false

		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, e)
		assert.Nil(t, f.store.rows[3])
		assert.Nil(t, f.cache.entries[3])
	})

	t.Run("panel failure degrades to stored record", func(t *testing.T) {
		f := newFixture()
		f.store.rows[3] = stored()
		f.panel.findErr = errors.New("panel unreachable")

		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.EndAt.Equal(end))
	})

	t.Run("panel expiry wins over stored expiry", func(t *testing.T) {
		f := newFixture()
		f.store.rows[3] = stored()
		renewed := end.Add(30 * 24 * time.Hour)
		f.panel.findFound = true
		f.panel.findCred = Credential{SubID: "sub123", ExpiresAt: renewed}

		e, err := f.service.ResolveEntitlement(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.EndAt.Equal(renewed))
		assert.True(t, f.store.rows[3].EndAt.Equal(renewed), "correction must be persisted")
	})
}

func TestAccountKey(t *testing.T) {
	assert.Equal(t, "@alice", accountKey(1, "alice"))
	assert.Equal(t, "@acct_42", accountKey(42, ""))
}
