package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntitlement_IsActive(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("future end is active", func(t *testing.T) {
		e := &Entitlement{EndAt: now.Add(time.Hour)}
		assert.True(t, e.IsActive(now))
	})

	t.Run("past end is inactive", func(t *testing.T) {
		e := &Entitlement{EndAt: now.Add(-time.Second)}
		assert.False(t, e.IsActive(now))
	})

	t.Run("zero end is inactive", func(t *testing.T) {
		e := &Entitlement{}
		assert.False(t, e.IsActive(now))
	})

	t.Run("zoned end compares correctly", func(t *testing.T) {
		loc := time.FixedZone("MSK", 3*60*60)
		e := &Entitlement{EndAt: now.Add(time.Hour).In(loc)}
		assert.True(t, e.IsActive(now))
	})
}

func TestEntitlement_TTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	e := &Entitlement{EndAt: now.Add(30 * time.Minute)}
	assert.Equal(t, 30*time.Minute, e.TTL(now))

	expired := &Entitlement{EndAt: now.Add(-time.Minute)}
	assert.True(t, expired.TTL(now) <= 0)
}

func TestEntitlement_Normalize(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	e := &Entitlement{
		StartAt: time.Date(2026, 8, 1, 15, 0, 0, 0, loc),
		EndAt:   time.Date(2026, 8, 31, 15, 0, 0, 0, loc),
	}
	e.Normalize()

	assert.Equal(t, time.UTC, e.StartAt.Location())
	assert.Equal(t, time.UTC, e.EndAt.Location())
	assert.Equal(t, 12, e.StartAt.Hour())
	assert.Equal(t, RegionPrimary, e.Region)
}

func TestRegion_IsValid(t *testing.T) {
	assert.True(t, RegionPrimary.IsValid())
	assert.True(t, RegionSecondary.IsValid())
	assert.False(t, Region("de").IsValid())
	assert.False(t, Region("").IsValid())
}
