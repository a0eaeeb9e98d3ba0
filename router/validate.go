package router

// Validator verifies the signatures carried by gossip messages. The router
// consumes it through this narrow interface rather than any particular
// signing library. Grounded on discovery/gossiper.go's AnnSigner/sig-verification calls,
// which the gossiper likewise reaches only through its Config, never
// inline.
type Validator interface {
	CheckNodeSig(ann *NodeAnnouncement) bool
	CheckChannelSig(ann *ChannelAnnouncement) bool
	CheckUpdateSig(upd *ChannelUpdate, node1, node2 Vertex) bool
}

// Watcher confirms that a channel announcement's funding output is real,
// unspent, and has the claimed ownership, resolving the "awaiting
// validation" state a channel sits in until confirmed. The router calls ValidateChannel and later receives
// the answer as a message into its own mailbox (router.go's
// watcherResultCmd) rather than blocking on it, keeping the actor
// single-threaded. Grounded on discovery/gossiper.go's FindChannel/
// notifyWhenOnline indirection pattern: long-latency lookups are always
// dispatched through a narrow collaborator interface and their answers fed
// back in as ordinary messages.
type Watcher interface {
	ValidateChannel(ann *ChannelAnnouncement)
}
