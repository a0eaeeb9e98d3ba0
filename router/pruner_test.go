package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsChannelStaleBlockBoundary(t *testing.T) {
	d := newData()
	now := nowFunc()
	scid := NewShortChannelId(1000, 0, 0)
	ann := &ChannelAnnouncement{ShortChannelId: scid, NodeId1: testVertex(1), NodeId2: testVertex(2)}

	// Exactly StaleChannelBlocks below tip: not yet stale.
	require.False(t, isChannelStale(d, ann, now, 1000+StaleChannelBlocks))

	// One block further: eligible, and with no updates at all it is stale.
	require.True(t, isChannelStale(d, ann, now, 1000+StaleChannelBlocks+1))
}

func TestIsChannelStaleFreshUpdateKeepsAlive(t *testing.T) {
	d := newData()
	now := nowFunc()
	n1, n2 := testVertex(1), testVertex(2)
	scid := NewShortChannelId(1000, 0, 0)
	ann := &ChannelAnnouncement{ShortChannelId: scid, NodeId1: n1, NodeId2: n2}

	d.Updates[ChannelDesc{ShortChannelId: scid, A: n1, B: n2}] = &ChannelUpdate{
		Timestamp: uint32(now.Unix()),
	}

	require.False(t, isChannelStale(d, ann, now, 1000+StaleChannelBlocks+1))
}

func TestPruneStaleChannelsRemovesGraphAndNodes(t *testing.T) {
	d := newData()
	db := NewMemoryDB()
	n := newNotifier()
	now := nowFunc()

	n1, n2 := testVertex(1), testVertex(2)
	scid := NewShortChannelId(1000, 0, 0)
	ann := &ChannelAnnouncement{ShortChannelId: scid, NodeId1: n1, NodeId2: n2}
	d.Channels.Put(ann)
	d.Nodes[n1] = &NodeAnnouncement{NodeId: n1}
	d.Nodes[n2] = &NodeAnnouncement{NodeId: n2}
	d.Graph.AddEdge(ChannelDesc{ShortChannelId: scid, A: n1, B: n2}, &ChannelUpdate{})

	pruned := pruneStaleChannels(d, db, n, now, 1000+StaleChannelBlocks+1)
	require.Equal(t, []ShortChannelId{scid}, pruned)
	require.False(t, d.Channels.Has(scid))
	require.Empty(t, d.Nodes)
	require.Equal(t, 0, d.Graph.NumEdges())
}

func TestPruneStaleChannelsRespectsMaxPruneCount(t *testing.T) {
	d := newData()
	db := NewMemoryDB()
	n := newNotifier()
	now := nowFunc()

	for i := 0; i < MaxPruneCount+10; i++ {
		scid := NewShortChannelId(uint32(i), 0, 0)
		n1, n2 := testVertex(byte(i)), testVertex(byte(i+1))
		d.Channels.Put(&ChannelAnnouncement{ShortChannelId: scid, NodeId1: n1, NodeId2: n2})
	}

	pruned := pruneStaleChannels(d, db, n, now, MaxPruneCount+StaleChannelBlocks+100)
	require.Len(t, pruned, MaxPruneCount)
}

func TestReconcileChannelRangeScopedToWindow(t *testing.T) {
	d := newData()
	db := NewMemoryDB()
	n := newNotifier()
	now := nowFunc()

	inWindow := NewShortChannelId(100, 0, 0)
	outOfWindow := NewShortChannelId(5000, 0, 0)
	d.Channels.Put(&ChannelAnnouncement{ShortChannelId: inWindow, NodeId1: testVertex(1), NodeId2: testVertex(2)})
	d.Channels.Put(&ChannelAnnouncement{ShortChannelId: outOfWindow, NodeId1: testVertex(3), NodeId2: testVertex(4)})

	tip := uint32(5000 + StaleChannelBlocks + 1)
	pruned := reconcileChannelRange(d, db, n, now, tip, 0, 200)
	require.Equal(t, []ShortChannelId{inWindow}, pruned)
	require.True(t, d.Channels.Has(outOfWindow))
}

func TestIsChannelAlmostStale(t *testing.T) {
	d := newData()
	now := nowFunc()
	n1, n2 := testVertex(1), testVertex(2)
	scid := NewShortChannelId(1000, 0, 0)
	ann := &ChannelAnnouncement{ShortChannelId: scid, NodeId1: n1, NodeId2: n2}
	tip := uint32(1000) + StaleChannelBlocks + 1

	// No updates at all: almost-stale, same as stale.
	require.True(t, isChannelAlmostStale(d, ann, now, tip))

	// A fresh-enough update on one direction keeps it from being
	// almost-stale even though the other direction has none.
	d.Updates[ChannelDesc{ShortChannelId: scid, A: n1, B: n2}] = &ChannelUpdate{
		Timestamp: uint32(now.Unix()),
	}
	require.False(t, isChannelAlmostStale(d, ann, now, tip))

	// An update old enough to be within AlmostStaleAge's window of
	// StalenessAge, but not yet past StalenessAge itself, is almost-stale.
	d.Updates[ChannelDesc{ShortChannelId: scid, A: n1, B: n2}] = &ChannelUpdate{
		Timestamp: uint32(now.Add(-AlmostStaleAge - time.Hour).Unix()),
	}
	require.True(t, isChannelAlmostStale(d, ann, now, tip))
}

func TestRecordRecentlyClosedEvictsOldest(t *testing.T) {
	d := newData()
	db := NewMemoryDB()
	n := newNotifier()

	first := NewShortChannelId(1, 0, 0)
	d.Channels.Put(&ChannelAnnouncement{ShortChannelId: first, NodeId1: testVertex(1), NodeId2: testVertex(2)})
	removeChannel(d, db, n, first)
	require.Contains(t, d.RecentlyClosed, first)

	for i := 0; i < MaxRecentlyClosed; i++ {
		scid := NewShortChannelId(uint32(i+2), 0, 0)
		d.Channels.Put(&ChannelAnnouncement{ShortChannelId: scid, NodeId1: testVertex(byte(i)), NodeId2: testVertex(byte(i + 1))})
		removeChannel(d, db, n, scid)
	}

	require.NotContains(t, d.RecentlyClosed, first, "oldest recorded closure should have been evicted")
	require.Len(t, d.RecentlyClosed, MaxRecentlyClosed)
}

func TestChannelInfoUnknownVsClosed(t *testing.T) {
	d := newData()
	db := NewMemoryDB()
	n := newNotifier()
	scid := NewShortChannelId(1, 0, 0)

	_, err := channelInfo(d, scid)
	require.ErrorIs(t, err, ErrNonexistingChannel)

	d.Channels.Put(&ChannelAnnouncement{ShortChannelId: scid, NodeId1: testVertex(1), NodeId2: testVertex(2)})
	ann, err := channelInfo(d, scid)
	require.NoError(t, err)
	require.Equal(t, scid, ann.ShortChannelId)

	removeChannel(d, db, n, scid)
	_, err = channelInfo(d, scid)
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestPruneExpiredExclusions(t *testing.T) {
	d := newData()
	now := time.Unix(1000, 0)
	desc := ChannelDesc{ShortChannelId: NewShortChannelId(1, 0, 0)}

	d.ExcludedChannels[desc] = now.Add(-time.Second)
	pruneExpiredExclusions(d, now)
	require.NotContains(t, d.ExcludedChannels, desc)
}
