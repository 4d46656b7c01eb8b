package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryRankOrdering(t *testing.T) {
	assert.Less(t, DeliveryRank(DeliverySent), DeliveryRank(DeliveryDelivered))
	assert.Less(t, DeliveryRank(DeliveryDelivered), DeliveryRank(DeliveryRead))
	assert.Equal(t, -1, DeliveryRank("BOGUS"))
}

func TestAccessRankOrdering(t *testing.T) {
	assert.Less(t, AccessRank(AccessRead), AccessRank(AccessWrite))
	assert.Less(t, AccessRank(AccessWrite), AccessRank(AccessAdmin))
	assert.Equal(t, -1, AccessRank(""))
}

func TestCallTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{CallRinging, CallConnecting, true},
		{CallRinging, CallDeclined, true},
		{CallRinging, CallTimeout, true},
		{CallRinging, CallEnded, true},
		{CallConnecting, CallConnected, true},
		{CallConnecting, CallFailed, true},
		{CallConnected, CallEnded, true},
		{CallConnected, CallExpired, true},

		{CallRinging, CallConnected, false}, // must pass through CONNECTING
		{CallConnected, CallRinging, false},
		{CallEnded, CallConnected, false}, // terminal states have no exits
		{CallDeclined, CallRinging, false},
		{CallTimeout, CallEnded, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CallCanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCallActive(t *testing.T) {
	for _, s := range CallActiveStatuses {
		assert.True(t, CallActive(s), s)
	}
	for _, s := range []string{CallDeclined, CallTimeout, CallEnded, CallFailed, CallExpired} {
		assert.False(t, CallActive(s), s)
	}
}

func TestValidActivity(t *testing.T) {
	assert.True(t, ValidActivity(ActivityWalk))
	assert.True(t, ValidActivity(ActivityCasual))
	assert.False(t, ValidActivity("SKYDIVING"))
	assert.False(t, ValidActivity(""))
}
