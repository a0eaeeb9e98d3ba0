package router

import "errors"

var (
	// ErrRouterShuttingDown is returned when a request is made against a
	// router that is in the process of shutting down.
	ErrRouterShuttingDown = errors.New("router is shutting down")

	// ErrNonexistingChannel is returned when a channel query names a
	// short_channel_id that is neither an admitted public channel nor
	// recently closed, and when a channel_update names a channel the
	// router has no record of, public or private.
	ErrNonexistingChannel = errors.New("channel does not exist")

	// ErrChannelClosed is returned when a query names a channel that was
	// known but has since been pruned or closed.
	ErrChannelClosed = errors.New("channel has been closed")

	// ErrCannotRouteToSelf is returned by FindRoute when the source and
	// target of a route request are the same node.
	ErrCannotRouteToSelf = errors.New("cannot route payment to self")

	// ErrRouteNotFound is returned by FindRoute when no path satisfying
	// the request's constraints exists in the graph.
	ErrRouteNotFound = errors.New("unable to find a path to destination")

	// ErrNoSyncerForPeer is logged when a reply_short_channel_ids_end
	// arrives from a peer with no outstanding sync state.
	ErrNoSyncerForPeer = errors.New("no active sync state for peer")

	// ErrDuplicateAnnouncement is returned internally when an
	// announcement or update is recognized as one the router already
	// holds a fresher or equal copy of, or as a channel_update already
	// older than StalenessAge. It is never surfaced to peers;
	// the message is simply acked and dropped.
	ErrDuplicateAnnouncement = errors.New("announcement is a duplicate")

	// ErrChainHashMismatch is returned (and logged as a warning) when a
	// peer message names a chain_hash other than the one this router is
	// configured for.
	ErrChainHashMismatch = errors.New("chain hash does not match")
)

// InvalidSignatureError is returned to the origin of a message whose
// signature failed verification. It carries the offending entity so the
// caller can decide whether to disconnect the sending peer.
type InvalidSignatureError struct {
	// Entity is the ChannelAnnouncement, ChannelUpdate, or
	// NodeAnnouncement that failed signature verification.
	Entity interface{}
}

// Error implements the error interface.
func (e *InvalidSignatureError) Error() string {
	return "invalid signature on announcement"
}
