package router

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// StalenessAge is the maximum age a channel_update may have and still be
// considered current: 1,209,600 seconds (14 days).
const StalenessAge = 14 * 24 * time.Hour

// AlmostStaleAge marks the point at which a channel is close enough to
// staleness to warrant a refresh request rather than outright pruning:
// 4 days short of StalenessAge.
const AlmostStaleAge = StalenessAge - 4*24*time.Hour

// isStale reports whether u's timestamp is already older than
// StalenessAge as of now.
func isStale(u *ChannelUpdate, now time.Time) bool {
	return now.Sub(u.timestampTime()) > StalenessAge
}

// ingestChannelUpdate implements the four-branch strict order:
// the channel is a known public channel, a channel still awaiting funding
// validation, a known private channel, or entirely unknown. Grounded on
// discovery/gossiper.go's processNetworkAnnouncement, whose
// *lnwire.ChannelUpdate case checks prematureChannelUpdates before
// consulting the live graph, exactly the stash-before-graph ordering used
// here.
func ingestChannelUpdate(
	d *Data,
	db NetworkDB,
	n *notifier,
	chainHash chainhash.Hash,
	selfID Vertex,
	u *ChannelUpdate,
	origin Vertex,
	v Validator,
) error {
	if u.ChainHash != chainHash {
		return ErrChainHashMismatch
	}

	scid := u.ShortChannelId

	// Branch a: public channel already admitted.
	if ann, ok := d.Channels.Get(scid); ok {
		desc := channelDescFromFlags(scid, ann.NodeId1, ann.NodeId2, u.ChannelFlags)

		if existing, ok := d.Updates[desc]; ok && existing.Timestamp >= u.Timestamp {
			return ErrDuplicateAnnouncement
		}
		if isStale(u, nowFunc()) {
			return ErrDuplicateAnnouncement
		}
		if !v.CheckUpdateSig(u, ann.NodeId1, ann.NodeId2) {
			return &InvalidSignatureError{Entity: u}
		}

		applyChannelUpdate(d, db, n, desc, u)
		return nil
	}

	// Branch b: channel announcement seen but still awaiting funding
	// confirmation from the watcher.
	if entry, ok := d.Awaiting[scid]; ok {
		ann := entry.announcement
		desc := channelDescFromFlags(scid, ann.NodeId1, ann.NodeId2, u.ChannelFlags)
		d.Stash.put(desc, u.core(), origin)
		return nil
	}

	// Branch c: known private channel.
	if remote, ok := d.PrivateChannels[scid]; ok {
		desc := channelDescFromFlags(scid, selfID, remote, u.ChannelFlags)

		if existing, ok := d.PrivateUpdates[desc]; ok && existing.Timestamp >= u.Timestamp {
			return ErrDuplicateAnnouncement
		}
		if isStale(u, nowFunc()) {
			return ErrDuplicateAnnouncement
		}
		if !v.CheckUpdateSig(u, selfID, remote) {
			return &InvalidSignatureError{Entity: u}
		}

		d.PrivateUpdates[desc] = u.core()
		n.Publish(ChannelUpdateReceived{Update: u.core()})
		return nil
	}

	// Branch d: no record of this channel at all.
	return ErrNonexistingChannel
}

// applyChannelUpdate stores u's stripped core as the current policy for
// desc, persists it, and mutates the graph edge to match: an enabled
// update replaces the edge, a disabled one removes it outright rather than
// leaving a disabled policy for pathfinding to filter out at query time.
func applyChannelUpdate(d *Data, db NetworkDB, n *notifier, desc ChannelDesc, u *ChannelUpdate) {
	core := u.core()

	_, existed := d.Updates[desc]
	d.Updates[desc] = core

	if core.Disabled() {
		d.Graph.RemoveEdge(desc)
	} else {
		d.Graph.AddEdge(desc, core)
	}

	if db != nil {
		var err error
		if existed {
			err = db.UpdateChannelUpdate(core)
		} else {
			err = db.AddChannelUpdate(core)
		}
		if err != nil {
			log.Errorf("failed to persist channel_update for %v: %v", desc.ShortChannelId, err)
		}
	}

	feeBase := btcutil.Amount(core.FeeBaseMsat / 1000)
	log.Debugf("applied channel_update for %v: base_fee=%v "+
		"proportional_fee=%d/1e6", desc.ShortChannelId, feeBase,
		core.FeeProportionalMillionths)

	n.Publish(ChannelUpdateReceived{Update: core})
}
