package router

import "time"

// StaleChannelBlocks is how far below the chain tip a channel's funding
// block must be before it becomes eligible for staleness pruning:
// 2016 blocks (roughly two weeks of blocks).
const StaleChannelBlocks = 2016

// MaxPruneCount caps how many channels a single pruning pass evicts, so
// that a pass after a long-idle period cannot stall the single-threaded
// actor.
const MaxPruneCount = 1000

// isChannelStale reports whether ann is eligible for pruning: its funding
// block lies more than StaleChannelBlocks below tip, and neither direction
// has a channel_update newer than StalenessAge.
func isChannelStale(d *Data, ann *ChannelAnnouncement, now time.Time, tip uint32) bool {
	height := ann.ShortChannelId.BlockHeight()
	if tip <= height || tip-height <= StaleChannelBlocks {
		return false
	}

	d1 := ChannelDesc{ShortChannelId: ann.ShortChannelId, A: ann.NodeId1, B: ann.NodeId2}
	d2 := ChannelDesc{ShortChannelId: ann.ShortChannelId, A: ann.NodeId2, B: ann.NodeId1}

	if u, ok := d.Updates[d1]; ok && now.Sub(u.timestampTime()) <= StalenessAge {
		return false
	}
	if u, ok := d.Updates[d2]; ok && now.Sub(u.timestampTime()) <= StalenessAge {
		return false
	}
	return true
}

// isChannelAlmostStale reports whether neither direction of ann has an
// update newer than AlmostStaleAge, i.e. the channel becomes stale within
// the 4 days that separate AlmostStaleAge from StalenessAge, a signal the
// syncer uses to proactively re-query a channel's policies before they
// actually expire.
func isChannelAlmostStale(d *Data, ann *ChannelAnnouncement, now time.Time, tip uint32) bool {
	height := ann.ShortChannelId.BlockHeight()
	if tip <= height || tip-height <= StaleChannelBlocks {
		return false
	}

	d1 := ChannelDesc{ShortChannelId: ann.ShortChannelId, A: ann.NodeId1, B: ann.NodeId2}
	d2 := ChannelDesc{ShortChannelId: ann.ShortChannelId, A: ann.NodeId2, B: ann.NodeId1}

	fresh := func(desc ChannelDesc) bool {
		u, ok := d.Updates[desc]
		return ok && now.Sub(u.timestampTime()) <= AlmostStaleAge
	}
	return !fresh(d1) && !fresh(d2)
}

// MaxRecentlyClosed bounds how many closed channels Data.RecentlyClosed
// remembers, evicting the oldest entry once full. This is a disambiguation
// aid for channel queries, not a tombstone store, so it is kept small and
// in memory only.
const MaxRecentlyClosed = 10000

// recordRecentlyClosed marks scid as closed, evicting the oldest recorded
// closure first if Data.RecentlyClosed is already at MaxRecentlyClosed.
func recordRecentlyClosed(d *Data, scid ShortChannelId) {
	if _, ok := d.RecentlyClosed[scid]; ok {
		return
	}
	if len(d.recentlyClosedOrder) >= MaxRecentlyClosed {
		oldest := d.recentlyClosedOrder[0]
		d.recentlyClosedOrder = d.recentlyClosedOrder[1:]
		delete(d.RecentlyClosed, oldest)
	}
	d.RecentlyClosed[scid] = struct{}{}
	d.recentlyClosedOrder = append(d.recentlyClosedOrder, scid)
}

// removeChannel deletes scid from every index, removes its graph edges,
// persists the removal, and publishes ChannelLost. If either endpoint node
// then has no remaining channel, it is removed too and NodeLost published.
// Grounded on channelnotifier.go's ClosedChannelEvent/NodeLost pairing: a
// channel close always implies checking whether its nodes are now
// unreferenced.
func removeChannel(d *Data, db NetworkDB, n *notifier, scid ShortChannelId) {
	ann, ok := d.Channels.Get(scid)
	if !ok {
		return
	}

	d.Channels.Delete(scid)
	d.Graph.RemoveEdges(scid, ann.NodeId1, ann.NodeId2)
	delete(d.Updates, ChannelDesc{ShortChannelId: scid, A: ann.NodeId1, B: ann.NodeId2})
	delete(d.Updates, ChannelDesc{ShortChannelId: scid, A: ann.NodeId2, B: ann.NodeId1})
	recordRecentlyClosed(d, scid)

	if db != nil {
		_ = db.RemoveChannel(scid)
	}
	n.Publish(ChannelLost{ShortChannelId: scid})

	for _, node := range [2]Vertex{ann.NodeId1, ann.NodeId2} {
		if nodeHasChannel(d, node) {
			continue
		}
		delete(d.Nodes, node)
		if db != nil {
			_ = db.RemoveNode(node)
		}
		n.Publish(NodeLost{NodeId: node})
	}
}

// pruneStaleChannels evicts up to MaxPruneCount channels that satisfy
// isChannelStale, returning the ids removed. The ticker driving how often
// this runs lives in router.go's dispatch loop, not here; this function is
// pure state transition so it can be tested without a clock dependency
// beyond the now argument.
func pruneStaleChannels(d *Data, db NetworkDB, n *notifier, now time.Time, tip uint32) []ShortChannelId {
	var stale []ShortChannelId
	d.Channels.ForEach(func(ann *ChannelAnnouncement) {
		if len(stale) >= MaxPruneCount {
			return
		}
		if isChannelStale(d, ann, now, tip) {
			stale = append(stale, ann.ShortChannelId)
		}
	})

	for _, scid := range stale {
		removeChannel(d, db, n, scid)
	}
	return stale
}

// pruneFundingSpent evicts a single channel immediately upon notice that
// its funding output was spent on-chain, bypassing MaxPruneCount since
// this is a direct, authoritative signal rather than a heuristic sweep.
func pruneFundingSpent(d *Data, db NetworkDB, n *notifier, scid ShortChannelId) {
	removeChannel(d, db, n, scid)
}

// reconcileChannelRange re-applies the staleness rule to every channel
// within [firstBlock, firstBlock+numBlocks) after a peer's
// reply_channel_range for that window completes. It
// never prunes on absence from a peer's reply alone — a peer simply not
// knowing about a channel is not evidence the channel is closed — only on
// the same staleness rule pruneStaleChannels uses, scoped to the window
// that was just resynchronized.
func reconcileChannelRange(d *Data, db NetworkDB, n *notifier, now time.Time, tip uint32, firstBlock, numBlocks uint32) []ShortChannelId {
	ids := d.Channels.Range(firstBlock, firstBlock+numBlocks-1)

	var stale []ShortChannelId
	for _, scid := range ids {
		if len(stale) >= MaxPruneCount {
			break
		}
		ann, ok := d.Channels.Get(scid)
		if !ok {
			continue
		}
		if isChannelStale(d, ann, now, tip) {
			stale = append(stale, scid)
		}
	}

	for _, scid := range stale {
		removeChannel(d, db, n, scid)
	}
	return stale
}
