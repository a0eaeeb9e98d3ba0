package router

import (
	"encoding/binary"
	"fmt"
	"hash/adler32"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Vertex is the serialization of a compressed public key, used to key nodes
// in the graph the same way channeldb.LightningNode is keyed by
// PubKeyBytes. Grounded on routing/pathfind.go's vertex type.
type Vertex [33]byte

// NewVertex returns the Vertex for the given public key.
func NewVertex(pub *btcec.PublicKey) Vertex {
	var v Vertex
	copy(v[:], pub.SerializeCompressed())
	return v
}

// String returns the full hex encoding of the vertex, suitable for log
// lines.
func (v Vertex) String() string {
	return fmt.Sprintf("%x", v[:])
}

// ShortChannelId is the BOLT7 compact channel identifier: a block height, a
// transaction index within that block, and an output index within that
// transaction, packed into a single uint64 as
// (block_height: 24 bits, tx_index: 24 bits, output_index: 16 bits),
// big-endian.
type ShortChannelId uint64

// NewShortChannelId packs the three components into a ShortChannelId.
func NewShortChannelId(blockHeight, txIndex uint32, outputIndex uint16) ShortChannelId {
	return ShortChannelId(
		(uint64(blockHeight&0xffffff) << 40) |
			(uint64(txIndex&0xffffff) << 16) |
			uint64(outputIndex),
	)
}

// BlockHeight returns the block-height component of the id.
func (s ShortChannelId) BlockHeight() uint32 {
	return uint32(s >> 40)
}

// TxIndex returns the transaction-index component of the id.
func (s ShortChannelId) TxIndex() uint32 {
	return uint32(s>>16) & 0xffffff
}

// OutputIndex returns the output-index component of the id.
func (s ShortChannelId) OutputIndex() uint16 {
	return uint16(s)
}

// ToUint64 returns the natural numeric ordering of the id, used for range
// scans over the channels map.
func (s ShortChannelId) ToUint64() uint64 {
	return uint64(s)
}

func (s ShortChannelId) String() string {
	return fmt.Sprintf("%d:%d:%d", s.BlockHeight(), s.TxIndex(), s.OutputIndex())
}

// ChannelFlag bits within a ChannelUpdate's channel_flags field.
const (
	// ChanUpdateDirection is the low bit: 0 means the update originates
	// from node_id_1 of the channel announcement, 1 means node_id_2.
	ChanUpdateDirection = 1 << 0

	// ChanUpdateDisabled marks the direction as temporarily or
	// permanently unusable for routing.
	ChanUpdateDisabled = 1 << 1
)

// ChannelDesc identifies one direction of one channel: the originating node
// a, forwarding towards b, across short_channel_id. It is the key into the
// updates map and the graph's edge set.
type ChannelDesc struct {
	ShortChannelId ShortChannelId
	A              Vertex
	B              Vertex
}

func (d ChannelDesc) String() string {
	return fmt.Sprintf("%s(%s->%s)", d.ShortChannelId, d.A, d.B)
}

// channelDescFromFlags derives the ChannelDesc for an update given the
// channel's ordered (node1, node2) pair and the update's channel_flags low
// bit.
func channelDescFromFlags(scid ShortChannelId, node1, node2 Vertex, channelFlags uint8) ChannelDesc {
	if channelFlags&ChanUpdateDirection == 0 {
		return ChannelDesc{ShortChannelId: scid, A: node1, B: node2}
	}
	return ChannelDesc{ShortChannelId: scid, A: node2, B: node1}
}

// Checksum is an Adler-32 digest over the canonically encoded tuple
// (short_channel_id, message_flags, channel_flags, cltv_expiry_delta,
// htlc_minimum_msat, fee_base_msat, fee_proportional_millionths,
// htlc_maximum_msat), used by the with-checksums sync variant to detect
// divergent policies without exchanging full updates. Adler-32 has no
// third-party replacement in the example pack's dependency set; it is kept
// on hash/adler32 because BOLT7 specifies it and the stdlib implementation
// is the canonical one used by every BOLT7-compliant client.
type Checksum uint32

// computeChecksum implements the BOLT7 channel_update checksum.
func computeChecksum(u *ChannelUpdate) Checksum {
	buf := make([]byte, 0, 8+2+1+2+8+8+8+8)

	var scid [8]byte
	binary.BigEndian.PutUint64(scid[:], uint64(u.ShortChannelId))
	buf = append(buf, scid[:]...)

	var messageFlags [2]byte
	binary.BigEndian.PutUint16(messageFlags[:], uint16(u.MessageFlags))
	buf = append(buf, messageFlags[:]...)

	buf = append(buf, byte(u.ChannelFlags))

	var cltv [2]byte
	binary.BigEndian.PutUint16(cltv[:], u.CltvExpiryDelta)
	buf = append(buf, cltv[:]...)

	var amts [3][8]byte
	binary.BigEndian.PutUint64(amts[0][:], u.HtlcMinimumMsat)
	binary.BigEndian.PutUint64(amts[1][:], u.FeeBaseMsat)
	binary.BigEndian.PutUint64(amts[2][:], u.FeeProportionalMillionths)
	for _, a := range amts {
		buf = append(buf, a[:]...)
	}

	var htlcMax [8]byte
	if u.HtlcMaximumMsat != nil {
		binary.BigEndian.PutUint64(htlcMax[:], *u.HtlcMaximumMsat)
	}
	buf = append(buf, htlcMax[:]...)

	return Checksum(adler32.Checksum(buf))
}
