package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitEmptyYieldsNoChunks(t *testing.T) {
	require.Nil(t, split(nil))
	require.Nil(t, split([]ShortChannelId{}))
}

func TestSplitExactBoundary(t *testing.T) {
	ids := make([]ShortChannelId, MaxSplitChunk)
	chunks := split(ids)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], MaxSplitChunk)
}

func TestSplitOneOverBoundary(t *testing.T) {
	ids := make([]ShortChannelId, MaxSplitChunk+1)
	chunks := split(ids)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], MaxSplitChunk)
	require.Len(t, chunks[1], 1)
}

func TestFilterGossipExcludesOrigin(t *testing.T) {
	sender := testVertex(1)
	other := testVertex(2)

	msgs := []GossipMessage{
		{Origin: sender, Timestamp: 100},
		{Origin: other, Timestamp: 100},
	}
	out := filterGossip(msgs, sender, nil)
	require.Len(t, out, 1)
	require.Equal(t, other, out[0].Origin)
}

func TestGossipViewAssemblesAnnouncementsAndUpdates(t *testing.T) {
	d := newData()
	n1, n2 := testVertex(1), testVertex(2)
	scid := NewShortChannelId(1, 0, 0)

	d.Channels.Put(&ChannelAnnouncement{ShortChannelId: scid, NodeId1: n1, NodeId2: n2})
	d.Updates[ChannelDesc{ShortChannelId: scid, A: n1, B: n2}] = &ChannelUpdate{ShortChannelId: scid, Timestamp: 500}
	d.Nodes[n1] = &NodeAnnouncement{NodeId: n1, Timestamp: 500}

	out := gossipView(d, testVertex(9), nil)
	require.Len(t, out, 3)

	out = gossipView(d, testVertex(9), &GossipTimestampRange{FirstTimestamp: 0, TimestampRange: 100})
	require.Len(t, out, 1, "only the zero-timestamp announcement falls inside [0,100)")
}

func TestFilterGossipRespectsTimestampRange(t *testing.T) {
	msgs := []GossipMessage{
		{Origin: testVertex(1), Timestamp: 50},
		{Origin: testVertex(1), Timestamp: 150},
	}
	filter := &GossipTimestampRange{FirstTimestamp: 100, TimestampRange: 100}

	out := filterGossip(msgs, testVertex(9), filter)
	require.Len(t, out, 1)
	require.Equal(t, uint32(150), out[0].Timestamp)
}
