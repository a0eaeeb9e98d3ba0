package router

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func TestExcludeAndLiftChannel(t *testing.T) {
	testClock := clock.NewTestClock(time.Unix(0, 0))
	SetClock(testClock)
	defer SetClock(clock.NewDefaultClock())

	d := newData()
	desc := ChannelDesc{ShortChannelId: NewShortChannelId(1, 0, 0), A: testVertex(1), B: testVertex(2)}

	ExcludeChannel(d, desc, time.Minute)
	require.True(t, IsChannelExcluded(d, desc))

	testClock.SetTime(testClock.Now().Add(2 * time.Minute))
	require.False(t, IsChannelExcluded(d, desc))

	ExcludeChannel(d, desc, time.Minute)
	LiftChannelExclusion(d, desc)
	require.False(t, IsChannelExcluded(d, desc))
}

func TestExcludeChannelDefaultDuration(t *testing.T) {
	d := newData()
	desc := ChannelDesc{ShortChannelId: NewShortChannelId(1, 0, 0)}

	ExcludeChannel(d, desc, 0)
	require.True(t, IsChannelExcluded(d, desc))
}
