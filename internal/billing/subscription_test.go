package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keepcase/billing/internal/billing"
)

func TestStatus_Tier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status billing.Status
		want   billing.Tier
	}{
		{billing.StatusActive, billing.TierPro},
		{billing.StatusTrialing, billing.TierPro},
		{billing.StatusPastDue, billing.TierFree},
		{billing.StatusCanceled, billing.TierFree},
		{billing.StatusNone, billing.TierFree},
		{billing.Status("unknown"), billing.TierFree},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.status.Tier(), "status %q", tc.status)
	}
}

func TestSubscription_IsPro(t *testing.T) {
	t.Parallel()

	sub := &billing.Subscription{Status: billing.StatusActive, Tier: billing.TierPro}
	assert.True(t, sub.IsActive())
	assert.True(t, sub.IsPro())
	assert.False(t, sub.IsTrialing())

	sub.Status = billing.StatusTrialing
	assert.True(t, sub.IsTrialing())
	assert.True(t, sub.IsPro())
	assert.False(t, sub.IsActive())

	sub.Status = billing.StatusCanceled
	assert.False(t, sub.IsPro())
}
