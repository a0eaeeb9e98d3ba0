package router

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelAnnouncement is an immutable record describing the existence of a
// public channel. Signature and on-chain witness data are only used during
// validation; after admission this core discards everything but the
// identifiers.
type ChannelAnnouncement struct {
	ChainHash      chainhash.Hash
	ShortChannelId ShortChannelId

	// NodeId1 and NodeId2 are ordered by convention (NodeId1 < NodeId2 as
	// compressed pubkeys) by whoever constructed the announcement.
	NodeId1 Vertex
	NodeId2 Vertex

	// NodeSig1, NodeSig2, BitcoinSig1, BitcoinSig2, BitcoinKey1, and
	// BitcoinKey2 are only consumed by Validator.CheckChannelSig; the
	// router does not inspect their contents directly.
	NodeSig1    []byte
	NodeSig2    []byte
	BitcoinSig1 []byte
	BitcoinSig2 []byte
	BitcoinKey1 Vertex
	BitcoinKey2 Vertex
}

// core strips an announcement down to the fields the router retains after
// validation, to shrink long-term memory use.
func (c *ChannelAnnouncement) core() *ChannelAnnouncement {
	return &ChannelAnnouncement{
		ChainHash:      c.ChainHash,
		ShortChannelId: c.ShortChannelId,
		NodeId1:        c.NodeId1,
		NodeId2:        c.NodeId2,
	}
}

// ChannelUpdate carries the per-direction routing parameters for one side of
// a channel. Updates are versioned by Timestamp; a strictly greater
// timestamp with a valid signature always wins over what is stored.
type ChannelUpdate struct {
	ChainHash      chainhash.Hash
	ShortChannelId ShortChannelId
	Timestamp      uint32

	// MessageFlags and ChannelFlags are as defined in BOLT7:
	// ChannelFlags' low bit is the direction indicator
	// (ChanUpdateDirection), and another bit (ChanUpdateDisabled) marks
	// the direction disabled.
	MessageFlags uint8
	ChannelFlags uint8

	CltvExpiryDelta           uint16
	HtlcMinimumMsat           uint64
	FeeBaseMsat               uint64
	FeeProportionalMillionths uint64
	HtlcMaximumMsat           *uint64

	Signature []byte
}

// Disabled reports whether the ChanUpdateDisabled bit is set.
func (u *ChannelUpdate) Disabled() bool {
	return u.ChannelFlags&ChanUpdateDisabled != 0
}

// Direction returns the low bit of ChannelFlags.
func (u *ChannelUpdate) Direction() uint8 {
	return u.ChannelFlags & ChanUpdateDirection
}

// timestampTime returns Timestamp as a time.Time for staleness comparisons.
func (u *ChannelUpdate) timestampTime() time.Time {
	return time.Unix(int64(u.Timestamp), 0)
}

// core strips the signature and chain hash, nulling them so the long-term
// stored update takes less memory than the wire message it came from.
func (u *ChannelUpdate) core() *ChannelUpdate {
	stripped := *u
	stripped.Signature = nil
	stripped.ChainHash = chainhash.Hash{}
	return &stripped
}

// NodeAnnouncement is versioned metadata about a node, keyed by node id.
type NodeAnnouncement struct {
	NodeId    Vertex
	Timestamp uint32
	Alias     string
	Color     [3]byte
	Addresses []string
	Features  []byte
	Signature []byte
}

func (n *NodeAnnouncement) timestampTime() time.Time {
	return time.Unix(int64(n.Timestamp), 0)
}

// Hop is one directional edge traversal within a computed route.
type Hop struct {
	NodeId     Vertex
	NextNodeId Vertex
	LastUpdate *ChannelUpdate
}

// --- sync-protocol wire messages ---

// RangeQueryEncoding selects which of the three query_channel_range /
// reply_channel_range variants a peer dialogue uses. Behavior is identical
// across variants except for which fields are populated on the wire.
type RangeQueryEncoding int

const (
	// EncodingPlain is the legacy variant: ids alone, no timestamps or
	// checksums.
	EncodingPlain RangeQueryEncoding = iota

	// EncodingWithTimestamps is the deprecated variant that additionally
	// carries the peer's last-seen timestamp per channel.
	EncodingWithTimestamps

	// EncodingWithChecksums carries an Adler-32 checksum per directional
	// update alongside the timestamp, enabling precise detection of
	// stale-but-not-missing updates.
	EncodingWithChecksums
)

// QueryChannelRange requests the set of channel ids a peer knows about
// within a block-height window.
type QueryChannelRange struct {
	ChainHash  chainhash.Hash
	FirstBlock uint32
	NumBlocks  uint32
	Encoding   RangeQueryEncoding
}

// ChannelRangeTimestamps carries, for a single channel id in a
// with-timestamps or with-checksums reply, each direction's last known
// update timestamp (zero if that direction has never been updated).
type ChannelRangeTimestamps struct {
	Timestamp1 uint32
	Timestamp2 uint32
}

// ChannelRangeChecksums carries, for a single channel id in a
// with-checksums reply, each direction's Adler-32 checksum.
type ChannelRangeChecksums struct {
	Checksum1 Checksum
	Checksum2 Checksum
}

// ReplyChannelRange is a (possibly one of several, streamed) answer to a
// QueryChannelRange, covering a sub-window [FirstBlock, FirstBlock+NumBlocks).
type ReplyChannelRange struct {
	ChainHash      chainhash.Hash
	FirstBlock     uint32
	NumBlocks      uint32
	Complete       bool
	ShortChannelIds []ShortChannelId

	// Timestamps and Checksums are parallel to ShortChannelIds and only
	// populated for the matching Encoding.
	Timestamps []ChannelRangeTimestamps
	Checksums  []ChannelRangeChecksums
	Encoding   RangeQueryEncoding
}

// LastBlockHeight returns the final block height covered by this reply.
func (r *ReplyChannelRange) LastBlockHeight() uint32 {
	if r.NumBlocks == 0 {
		return r.FirstBlock
	}
	return r.FirstBlock + r.NumBlocks - 1
}

// ShortChannelIdFlags, used only by the with-checksums follow-up query,
// selects which pieces of a channel the peer should send: the announcement,
// the first direction's update, the second direction's update, or any
// combination.
type ShortChannelIdFlags uint8

const (
	FlagAnnouncement ShortChannelIdFlags = 1 << 0
	FlagUpdate1       ShortChannelIdFlags = 1 << 1
	FlagUpdate2       ShortChannelIdFlags = 1 << 2
)

// QueryShortChannelIds is a follow-up request naming exactly the ids the
// requester needs, at most ShortIdWindow at a time.
type QueryShortChannelIds struct {
	ChainHash       chainhash.Hash
	ShortChannelIds []ShortChannelId

	// Flags is only populated when the dialogue is running the
	// with-checksums variant; it is parallel to ShortChannelIds.
	Flags []ShortChannelIdFlags
}

// ReplyShortChannelIdsEnd marks the end of a peer's reply to one
// QueryShortChannelIds batch.
type ReplyShortChannelIdsEnd struct {
	ChainHash chainhash.Hash
	Complete  bool
}

// GossipTimestampRange asks a peer to only forward gossip whose timestamp
// lies within [FirstTimestamp, FirstTimestamp+TimestampRange). This client
// always sends a pass-all filter, since it never relies on a peer's own
// rebroadcast to learn about new gossip outside an active sync.
type GossipTimestampRange struct {
	ChainHash       chainhash.Hash
	FirstTimestamp  uint32
	TimestampRange  uint32
}
