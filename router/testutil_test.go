package router

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// acceptAllValidator treats every signature as valid, for tests that are
// not exercising signature rejection.
type acceptAllValidator struct{}

func (acceptAllValidator) CheckNodeSig(*NodeAnnouncement) bool          { return true }
func (acceptAllValidator) CheckChannelSig(*ChannelAnnouncement) bool    { return true }
func (acceptAllValidator) CheckUpdateSig(*ChannelUpdate, Vertex, Vertex) bool {
	return true
}

// rejectAllValidator treats every signature as invalid.
type rejectAllValidator struct{}

func (rejectAllValidator) CheckNodeSig(*NodeAnnouncement) bool       { return false }
func (rejectAllValidator) CheckChannelSig(*ChannelAnnouncement) bool { return false }
func (rejectAllValidator) CheckUpdateSig(*ChannelUpdate, Vertex, Vertex) bool {
	return false
}

// immediateWatcher records every ValidateChannel call without answering it;
// tests that use it drive completeChannelAnnouncement directly.
type immediateWatcher struct {
	validated []*ChannelAnnouncement
}

func (w *immediateWatcher) ValidateChannel(ann *ChannelAnnouncement) {
	w.validated = append(w.validated, ann)
}

func testVertex(b byte) Vertex {
	var v Vertex
	v[0] = 0x02
	v[32] = b
	return v
}

var testChainHash = chainhash.Hash{0x01}
