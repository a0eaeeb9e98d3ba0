package router

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// ingestChannelAnnouncement implements the branch order for a
// channel_announcement: chain-hash check, then duplicate/already-awaiting
// short-circuit, then signature verification, then admission into the
// awaiting set pending the external watcher's funding-output confirmation.
// Grounded on discovery/gossiper.go's processNetworkAnnouncement, which
// checks for a known or already-stashed announcement before ever touching
// the signature.
func ingestChannelAnnouncement(
	d *Data,
	chainHash chainhash.Hash,
	ann *ChannelAnnouncement,
	origin Vertex,
	v Validator,
	w Watcher,
) error {
	if ann.ChainHash != chainHash {
		return ErrChainHashMismatch
	}

	scid := ann.ShortChannelId

	if d.Channels.Has(scid) {
		return ErrDuplicateAnnouncement
	}

	if entry, ok := d.Awaiting[scid]; ok {
		entry.origins = append(entry.origins, origin)
		return ErrDuplicateAnnouncement
	}

	if !v.CheckChannelSig(ann) {
		return &InvalidSignatureError{Entity: ann}
	}

	core := ann.core()
	d.Awaiting[scid] = &awaitingEntry{
		announcement: core,
		origins:      []Vertex{origin},
	}

	w.ValidateChannel(core)
	return nil
}

// completeChannelAnnouncement applies the outcome of a prior
// ingestChannelAnnouncement's Watcher.ValidateChannel call. On confirmation
// it admits the channel, persists it, flushes any updates and node
// announcements that arrived early and were stashed against it, and
// returns every origin that should be acknowledged. On rejection it simply
// discards the pending entry; the channel is never added to the graph.
func completeChannelAnnouncement(d *Data, db NetworkDB, n *notifier, scid ShortChannelId, confirmed bool) []Vertex {
	entry, ok := d.Awaiting[scid]
	if !ok {
		return nil
	}
	delete(d.Awaiting, scid)

	if !confirmed {
		return entry.origins
	}

	ann := entry.announcement
	d.Channels.Put(ann)

	if db != nil {
		if err := db.AddChannel(ann); err != nil {
			log.Errorf("failed to persist channel_announcement for %v: %v", scid, err)
		}
	}

	for _, pair := range [2][2]Vertex{
		{ann.NodeId1, ann.NodeId2},
		{ann.NodeId2, ann.NodeId1},
	} {
		desc := ChannelDesc{ShortChannelId: scid, A: pair[0], B: pair[1]}
		if stashed, ok := d.Stash.updates[desc]; ok {
			delete(d.Stash.updates, desc)
			applyChannelUpdate(d, db, n, desc, stashed.update)
		}
	}

	for _, node := range [2]Vertex{ann.NodeId1, ann.NodeId2} {
		if stashed, ok := d.Stash.nodes[node]; ok {
			delete(d.Stash.nodes, node)
			applyNodeAnnouncement(d, db, n, stashed.announcement)
		}
	}

	return entry.origins
}

// ingestNodeAnnouncement implements node_announcement handling: reject bad
// signatures, accept immediately if a public channel already references
// the node, stash only if an awaiting (not-yet-funding-confirmed) channel
// references it, and otherwise drop it. A node nothing currently
// references has nothing to apply the announcement to and nothing worth
// holding onto indefinitely.
func ingestNodeAnnouncement(d *Data, db NetworkDB, n *notifier, ann *NodeAnnouncement, origin Vertex, v Validator) error {
	if !v.CheckNodeSig(ann) {
		return &InvalidSignatureError{Entity: ann}
	}

	if nodeHasChannel(d, ann.NodeId) {
		applyNodeAnnouncement(d, db, n, ann)
		return nil
	}

	if nodeHasAwaitingChannel(d, ann.NodeId) {
		d.Stash.putNode(ann.NodeId, ann, origin)
	}
	return nil
}

// nodeHasChannel reports whether any admitted channel references nodeID.
func nodeHasChannel(d *Data, nodeID Vertex) bool {
	found := false
	d.Channels.ForEach(func(ann *ChannelAnnouncement) {
		if ann.NodeId1 == nodeID || ann.NodeId2 == nodeID {
			found = true
		}
	})
	return found
}

// nodeHasAwaitingChannel reports whether any channel still awaiting
// funding confirmation references nodeID.
func nodeHasAwaitingChannel(d *Data, nodeID Vertex) bool {
	for _, entry := range d.Awaiting {
		ann := entry.announcement
		if ann.NodeId1 == nodeID || ann.NodeId2 == nodeID {
			return true
		}
	}
	return false
}

// applyNodeAnnouncement stores ann if it is newer than the node's current
// record, persists it, and publishes NodeDiscovered or NodeUpdated
// accordingly.
func applyNodeAnnouncement(d *Data, db NetworkDB, n *notifier, ann *NodeAnnouncement) {
	existing, known := d.Nodes[ann.NodeId]
	if known && existing.Timestamp >= ann.Timestamp {
		return
	}

	d.Nodes[ann.NodeId] = ann

	if db != nil {
		var err error
		if known {
			err = db.UpdateNode(ann)
		} else {
			err = db.AddNode(ann)
		}
		if err != nil {
			log.Errorf("failed to persist node_announcement for %v: %v", ann.NodeId, err)
		}
	}
	if known {
		n.Publish(NodeUpdated{NodeId: ann.NodeId})
	} else {
		n.Publish(NodeDiscovered{NodeId: ann.NodeId})
	}
}
