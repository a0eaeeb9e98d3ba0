package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortChannelIdPacking(t *testing.T) {
	cases := []struct {
		block, tx uint32
		output    uint16
	}{
		{0, 0, 0},
		{1, 2, 3},
		{0xffffff, 0xffffff, 0xffff},
		{700000, 42, 1},
	}

	for _, c := range cases {
		id := NewShortChannelId(c.block, c.tx, c.output)
		require.Equal(t, c.block, id.BlockHeight())
		require.Equal(t, c.tx, id.TxIndex())
		require.Equal(t, c.output, id.OutputIndex())
	}
}

func TestShortChannelIdOrdering(t *testing.T) {
	a := NewShortChannelId(100, 0, 0)
	b := NewShortChannelId(100, 1, 0)
	c := NewShortChannelId(101, 0, 0)

	require.Less(t, uint64(a), uint64(b))
	require.Less(t, uint64(b), uint64(c))
}

func TestChecksumDeterministic(t *testing.T) {
	u := &ChannelUpdate{
		ShortChannelId:            NewShortChannelId(1, 2, 3),
		MessageFlags:              0,
		ChannelFlags:              1,
		CltvExpiryDelta:           40,
		HtlcMinimumMsat:           1000,
		FeeBaseMsat:               1,
		FeeProportionalMillionths: 10,
	}

	c1 := computeChecksum(u)
	c2 := computeChecksum(u)
	require.Equal(t, c1, c2)

	other := *u
	other.FeeBaseMsat = 2
	require.NotEqual(t, c1, computeChecksum(&other))
}

func TestChannelDescFromFlags(t *testing.T) {
	n1, n2 := testVertex(1), testVertex(2)
	scid := NewShortChannelId(1, 0, 0)

	d := channelDescFromFlags(scid, n1, n2, 0)
	require.Equal(t, n1, d.A)
	require.Equal(t, n2, d.B)

	d = channelDescFromFlags(scid, n1, n2, ChanUpdateDirection)
	require.Equal(t, n2, d.A)
	require.Equal(t, n1, d.B)
}
