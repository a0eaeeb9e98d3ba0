package router

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ShortIdWindow is the maximum number of short_channel_ids a single
// query_short_channel_ids batch may name.
const ShortIdWindow = 100

// newChannelRangeQuery builds the initial query_channel_range a peer
// dialogue opens with, requesting the full window of blocks
// [firstBlock, firstBlock+numBlocks) with checksums attached so that a
// single round trip can distinguish "unknown channel" from "known channel,
// stale policy" without a further exchange. Grounded on
// discovery/syncer.go's genChanRangeQuery.
func newChannelRangeQuery(chainHash chainhash.Hash, firstBlock, numBlocks uint32) *QueryChannelRange {
	return &QueryChannelRange{
		ChainHash:  chainHash,
		FirstBlock: firstBlock,
		NumBlocks:  numBlocks,
		Encoding:   EncodingWithChecksums,
	}
}

// passAllGossipFilter builds the gossip_timestamp_filter this client always
// sends alongside a fresh query_channel_range: a FirstTimestamp of 0 and a
// TimestampRange spanning the full uint32 space so nothing a peer might
// later rebroadcast is filtered out on their end. Grounded on
// discovery/syncer.go's sendGossipTimestampRange, sent unconditionally on
// every new sync dialogue rather than only once per connection.
func passAllGossipFilter(chainHash chainhash.Hash) *GossipTimestampRange {
	return &GossipTimestampRange{
		ChainHash:      chainHash,
		FirstTimestamp: 0,
		TimestampRange: ^uint32(0),
	}
}

// needFlagsFromPlain reports whether scid needs fetching at all when the
// peer's reply carried no timestamps or checksums: only its complete
// absence is actionable.
func needFlagsFromPlain(d *Data, scid ShortChannelId) ShortChannelIdFlags {
	if d.Channels.Has(scid) {
		return 0
	}
	return FlagAnnouncement | FlagUpdate1 | FlagUpdate2
}

// needFlagsFromTimestamps compares a peer-reported per-direction timestamp
// against what is stored, requesting only the directions that are
// actually behind.
func needFlagsFromTimestamps(d *Data, scid ShortChannelId, ts ChannelRangeTimestamps) ShortChannelIdFlags {
	ann, ok := d.Channels.Get(scid)
	if !ok {
		return FlagAnnouncement | FlagUpdate1 | FlagUpdate2
	}

	var flags ShortChannelIdFlags

	d1 := ChannelDesc{ShortChannelId: scid, A: ann.NodeId1, B: ann.NodeId2}
	if u, ok := d.Updates[d1]; !ok || u.Timestamp < ts.Timestamp1 {
		flags |= FlagUpdate1
	}

	d2 := ChannelDesc{ShortChannelId: scid, A: ann.NodeId2, B: ann.NodeId1}
	if u, ok := d.Updates[d2]; !ok || u.Timestamp < ts.Timestamp2 {
		flags |= FlagUpdate2
	}

	return flags
}

// needFlagsFromChecksums is needFlagsFromTimestamps' with-checksums
// counterpart. Per direction, a follow-up fetch is requested only when
// their timestamp is newer than ours AND (the checksums differ OR our copy
// is already almost-stale) AND their timestamp does not itself describe a
// stale update — requesting an already-stale replacement would just trade
// one stale policy for another.
func needFlagsFromChecksums(d *Data, scid ShortChannelId, ts ChannelRangeTimestamps, sums ChannelRangeChecksums, now time.Time, tip uint32) ShortChannelIdFlags {
	ann, ok := d.Channels.Get(scid)
	if !ok {
		return FlagAnnouncement | FlagUpdate1 | FlagUpdate2
	}

	var flags ShortChannelIdFlags

	d1 := ChannelDesc{ShortChannelId: scid, A: ann.NodeId1, B: ann.NodeId2}
	if needUpdateFromChecksum(d, d1, ts.Timestamp1, sums.Checksum1, ann, now, tip) {
		flags |= FlagUpdate1
	}

	d2 := ChannelDesc{ShortChannelId: scid, A: ann.NodeId2, B: ann.NodeId1}
	if needUpdateFromChecksum(d, d2, ts.Timestamp2, sums.Checksum2, ann, now, tip) {
		flags |= FlagUpdate2
	}

	return flags
}

// needUpdateFromChecksum applies the with-checksums fetch predicate for a
// single direction desc: their timestamp theirTS must be newer than ours,
// and either the checksums disagree or our copy is already
// isChannelAlmostStale, and theirTS must not itself describe an update that
// would already be stale on arrival.
func needUpdateFromChecksum(d *Data, desc ChannelDesc, theirTS uint32, theirSum Checksum, ann *ChannelAnnouncement, now time.Time, tip uint32) bool {
	u, ok := d.Updates[desc]
	if !ok {
		return true
	}

	if theirTS <= u.Timestamp {
		return false
	}

	mismatch := computeChecksum(u) != theirSum
	almostStale := isChannelAlmostStale(d, ann, now, tip)
	if !mismatch && !almostStale {
		return false
	}

	theirsStale := now.Sub(time.Unix(int64(theirTS), 0)) > StalenessAge
	return !theirsStale
}

// splitShortChannelIdBatches chunks ids/flags into ShortIdWindow-sized
// query_short_channel_ids messages.
func splitShortChannelIdBatches(chainHash chainhash.Hash, ids []ShortChannelId, flags []ShortChannelIdFlags) []*QueryShortChannelIds {
	if len(ids) == 0 {
		return nil
	}

	var out []*QueryShortChannelIds
	for i := 0; i < len(ids); i += ShortIdWindow {
		end := i + ShortIdWindow
		if end > len(ids) {
			end = len(ids)
		}

		q := &QueryShortChannelIds{
			ChainHash:       chainHash,
			ShortChannelIds: append([]ShortChannelId{}, ids[i:end]...),
		}
		if flags != nil {
			q.Flags = append([]ShortChannelIdFlags{}, flags[i:end]...)
		}
		out = append(out, q)
	}
	return out
}

// handleReplyChannelRange handles a reply_channel_range message: for
// each id in the reply, decide (per the encoding in use)
// whether a follow-up fetch is needed, batch the results into
// ShortIdWindow-sized queries, and fold them into the peer's Sync state.
// Grounded on discovery/syncer.go's processChanRangeReply, which likewise
// branches on legacy vs. timestamped vs. checksummed replies before
// deciding what to re-request.
func handleReplyChannelRange(d *Data, peer Vertex, reply *ReplyChannelRange, now time.Time, tip uint32) {
	var need []ShortChannelId
	var flags []ShortChannelIdFlags

	for i, scid := range reply.ShortChannelIds {
		var f ShortChannelIdFlags
		switch reply.Encoding {
		case EncodingWithTimestamps:
			if i >= len(reply.Timestamps) {
				log.Debugf("reply_channel_range from %s: missing timestamp for %v, treating as plain", peer, scid)
				f = needFlagsFromPlain(d, scid)
				break
			}
			f = needFlagsFromTimestamps(d, scid, reply.Timestamps[i])
		case EncodingWithChecksums:
			if i >= len(reply.Timestamps) || i >= len(reply.Checksums) {
				log.Debugf("reply_channel_range from %s: missing timestamp/checksum for %v, treating as plain", peer, scid)
				f = needFlagsFromPlain(d, scid)
				break
			}
			f = needFlagsFromChecksums(d, scid, reply.Timestamps[i], reply.Checksums[i], now, tip)
		default:
			f = needFlagsFromPlain(d, scid)
		}
		if f != 0 {
			need = append(need, scid)
			flags = append(flags, f)
		}
	}

	if len(need) == 0 {
		return
	}

	sync, ok := d.Sync[peer]
	if !ok {
		sync = &Sync{}
		d.Sync[peer] = sync
	}

	batches := splitShortChannelIdBatches(reply.ChainHash, need, flags)
	sync.Pending = append(sync.Pending, batches...)
	sync.Total += len(need)
}

// popNextBatch removes and returns peer's next pending
// query_short_channel_ids batch, but only if no batch is already in
// flight for that peer; otherwise it returns false and leaves Pending
// untouched, enforcing "at most one batch in flight per peer" even when
// multiple reply_channel_range messages arrive back to back. The caller
// (router.go's dispatch loop) is responsible for actually sending the
// popped batch and clearing InFlight once reply_short_channel_ids_end
// arrives.
func popNextBatch(d *Data, peer Vertex) (*QueryShortChannelIds, bool) {
	sync, ok := d.Sync[peer]
	if !ok || sync.InFlight || len(sync.Pending) == 0 {
		return nil, false
	}
	q := sync.Pending[0]
	sync.Pending = sync.Pending[1:]
	sync.InFlight = true
	return q, true
}

// clearInFlight marks peer's outstanding batch, if any, as no longer in
// flight, called upon receiving that batch's reply_short_channel_ids_end.
func clearInFlight(d *Data, peer Vertex) {
	if sync, ok := d.Sync[peer]; ok {
		sync.InFlight = false
	}
}

// hasSyncState reports whether peer has an outstanding Sync entry at all,
// used to distinguish an expected reply_short_channel_ids_end (one that
// follows a batch this client actually sent) from an unsolicited one a
// peer sends with no corresponding query in flight.
func hasSyncState(d *Data, peer Vertex) bool {
	_, ok := d.Sync[peer]
	return ok
}

// finishSyncIfDone deletes peer's Sync state once nothing remains pending
// or in flight, returning true if it did so. A peer with no further
// outstanding batches is, for progress-accounting purposes, fully synced.
func finishSyncIfDone(d *Data, peer Vertex) bool {
	sync, ok := d.Sync[peer]
	if !ok {
		return false
	}
	if sync.InFlight || len(sync.Pending) > 0 {
		return false
	}
	delete(d.Sync, peer)
	return true
}
