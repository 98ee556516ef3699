package membership_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/patronhq/creatorkit/modules/membership"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to membership.Status }{
		{membership.StatusPending, membership.StatusActive},
		{membership.StatusPending, membership.StatusExpired},
		{membership.StatusActive, membership.StatusPaused},
		{membership.StatusActive, membership.StatusCancelled},
		{membership.StatusActive, membership.StatusExpired},
		{membership.StatusPaused, membership.StatusActive},
		{membership.StatusPaused, membership.StatusCancelled},
		{membership.StatusPaused, membership.StatusExpired},
	}
	for _, tc := range allowed {
		assert.True(t, membership.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to membership.Status }{
		{membership.StatusPending, membership.StatusPaused},
		{membership.StatusPending, membership.StatusCancelled},
		{membership.StatusActive, membership.StatusPending},
		{membership.StatusCancelled, membership.StatusActive},
		{membership.StatusCancelled, membership.StatusCancelled},
		{membership.StatusExpired, membership.StatusActive},
		{membership.StatusExpired, membership.StatusPending},
	}
	for _, tc := range denied {
		assert.False(t, membership.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, membership.IsTerminal(membership.StatusCancelled))
	assert.True(t, membership.IsTerminal(membership.StatusExpired))
	assert.False(t, membership.IsTerminal(membership.StatusPending))
	assert.False(t, membership.IsTerminal(membership.StatusActive))
	assert.False(t, membership.IsTerminal(membership.StatusPaused))
}

func TestNextBillingDate(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		from     time.Time
		interval membership.BillingInterval
		want     time.Time
	}{
		{"monthly mid-month", date(2026, time.March, 15), membership.IntervalMonthly, date(2026, time.April, 15)},
		{"monthly jan 31 clamps to feb 28", date(2026, time.January, 31), membership.IntervalMonthly, date(2026, time.February, 28)},
		{"monthly jan 31 leap year clamps to feb 29", date(2028, time.January, 31), membership.IntervalMonthly, date(2028, time.February, 29)},
		{"monthly mar 31 clamps to apr 30", date(2026, time.March, 31), membership.IntervalMonthly, date(2026, time.April, 30)},
		{"monthly december wraps the year", date(2026, time.December, 15), membership.IntervalMonthly, date(2027, time.January, 15)},
		{"yearly", date(2026, time.June, 10), membership.IntervalYearly, date(2027, time.June, 10)},
		{"yearly feb 29 clamps to feb 28", date(2028, time.February, 29), membership.IntervalYearly, date(2029, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := membership.NextBillingDate(tt.from, tt.interval)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvanceBillingDate(t *testing.T) {
	now := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)

	t.Run("future anchor advances from the anchor", func(t *testing.T) {
		anchor := time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)
		got := membership.AdvanceBillingDate(&anchor, now, membership.IntervalMonthly)
		assert.Equal(t, time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("past anchor advances from now", func(t *testing.T) {
		anchor := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
		got := membership.AdvanceBillingDate(&anchor, now, membership.IntervalMonthly)
		assert.Equal(t, time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("nil anchor advances from now", func(t *testing.T) {
		got := membership.AdvanceBillingDate(nil, now, membership.IntervalYearly)
		assert.Equal(t, time.Date(2027, time.May, 10, 0, 0, 0, 0, time.UTC), got)
	})
}

func TestIsCurrent(t *testing.T) {
	assert.True(t, membership.IsCurrent(membership.StatusActive))
	assert.True(t, membership.IsCurrent(membership.StatusPaused))
	assert.False(t, membership.IsCurrent(membership.StatusPending))
	assert.False(t, membership.IsCurrent(membership.StatusCancelled))
	assert.False(t, membership.IsCurrent(membership.StatusExpired))
}
