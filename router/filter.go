package router

// GossipMessage is one rebroadcastable announcement or update, tagged with
// the peer it was received from and the timestamp used to decide whether a
// given neighbor's gossip filter wants it.
type GossipMessage struct {
	Origin    Vertex
	Timestamp uint32

	ChannelAnnouncement *ChannelAnnouncement
	ChannelUpdate       *ChannelUpdate
	NodeAnnouncement    *NodeAnnouncement
}

// filterGossip implements the rebroadcast rules: never echo a
// message back to the peer it arrived from, and never send a peer a
// message outside the timestamp window it last asked for via
// GossipTimestampRange. Grounded on discovery/syncer.go's
// FilterGossipMsgs/FilterKnownChanIDs, which apply the same two filters
// before handing a batch to the trickle broadcaster.
func filterGossip(msgs []GossipMessage, to Vertex, filter *GossipTimestampRange) []GossipMessage {
	out := make([]GossipMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Origin == to {
			continue
		}
		if filter != nil {
			lo := filter.FirstTimestamp
			hi := filter.FirstTimestamp + filter.TimestampRange
			if m.Timestamp < lo || m.Timestamp >= hi {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

// MaxSplitChunk is the maximum number of short_channel_ids a single split
// chunk may contain (distinct from ShortIdWindow, which bounds sync
// follow-up queries specifically).
const MaxSplitChunk = 2000

// split breaks ids into chunks of at most MaxSplitChunk, returning nil for
// an empty input rather than a single empty chunk.
func split(ids []ShortChannelId) [][]ShortChannelId {
	if len(ids) == 0 {
		return nil
	}

	var out [][]ShortChannelId
	for i := 0; i < len(ids); i += MaxSplitChunk {
		end := i + MaxSplitChunk
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
