package router

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func signDigest(t *testing.T, priv *btcec.PrivateKey, digest []byte) []byte {
	t.Helper()
	sig := ecdsa.Sign(priv, digest)
	return sig.Serialize()
}

func TestECDSAValidatorCheckUpdateSigAccepted(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var node1 Vertex
	copy(node1[:], priv.PubKey().SerializeCompressed())
	node2 := testVertex(9)

	upd := &ChannelUpdate{
		ChainHash:    testChainHash,
		MessageFlags: 0,
		ChannelFlags: 0,
	}
	digest := chainhash.DoubleHashB(channelUpdateSignedData(upd))
	upd.Signature = signDigest(t, priv, digest)

	v := NewECDSAValidator()
	require.True(t, v.CheckUpdateSig(upd, node1, node2))
}

func TestECDSAValidatorCheckUpdateSigRejectsWrongSigner(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var node1 Vertex
	copy(node1[:], priv.PubKey().SerializeCompressed())
	node2 := testVertex(9)

	upd := &ChannelUpdate{ChainHash: testChainHash}
	digest := chainhash.DoubleHashB(channelUpdateSignedData(upd))
	upd.Signature = signDigest(t, other, digest)

	v := NewECDSAValidator()
	require.False(t, v.CheckUpdateSig(upd, node1, node2))
}

func TestECDSAValidatorCheckNodeSigAccepted(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var nodeID Vertex
	copy(nodeID[:], priv.PubKey().SerializeCompressed())

	ann := &NodeAnnouncement{NodeId: nodeID, Alias: "alice"}
	digest := chainhash.DoubleHashB(nodeAnnouncementSignedData(ann))
	ann.Signature = signDigest(t, priv, digest)

	v := NewECDSAValidator()
	require.True(t, v.CheckNodeSig(ann))
}
