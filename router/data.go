package router

import (
	"sort"
	"time"
)

// channelIndex is the ordered mapping short_channel_id -> ChannelAnnouncement.
// It keeps an explicit sorted key slice alongside the
// map so that range windowing (by natural numeric order, or filtered by
// block height) can binary-search rather than scan, mirroring the way
// channeldb keys its channel bucket by the big-endian encoding of the id.
type channelIndex struct {
	byID map[ShortChannelId]*ChannelAnnouncement
	keys []ShortChannelId
}

func newChannelIndex() *channelIndex {
	return &channelIndex{byID: make(map[ShortChannelId]*ChannelAnnouncement)}
}

func (c *channelIndex) Get(id ShortChannelId) (*ChannelAnnouncement, bool) {
	ann, ok := c.byID[id]
	return ann, ok
}

func (c *channelIndex) Has(id ShortChannelId) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *channelIndex) Put(ann *ChannelAnnouncement) {
	id := ann.ShortChannelId
	if _, exists := c.byID[id]; !exists {
		idx := sort.Search(len(c.keys), func(i int) bool {
			return c.keys[i] >= id
		})
		c.keys = append(c.keys, 0)
		copy(c.keys[idx+1:], c.keys[idx:])
		c.keys[idx] = id
	}
	c.byID[id] = ann
}

func (c *channelIndex) Delete(id ShortChannelId) {
	if _, exists := c.byID[id]; !exists {
		return
	}
	delete(c.byID, id)
	idx := sort.Search(len(c.keys), func(i int) bool {
		return c.keys[i] >= id
	})
	if idx < len(c.keys) && c.keys[idx] == id {
		c.keys = append(c.keys[:idx], c.keys[idx+1:]...)
	}
}

func (c *channelIndex) Len() int { return len(c.keys) }

// Range returns every channel id whose block height lies in
// [fromBlock, toBlock], in ascending numeric order.
func (c *channelIndex) Range(fromBlock, toBlock uint32) []ShortChannelId {
	lo := NewShortChannelId(fromBlock, 0, 0)
	hi := NewShortChannelId(toBlock, 0xffffff, 0xffff)

	start := sort.Search(len(c.keys), func(i int) bool {
		return c.keys[i] >= lo
	})
	end := sort.Search(len(c.keys), func(i int) bool {
		return c.keys[i] > hi
	})

	out := make([]ShortChannelId, end-start)
	copy(out, c.keys[start:end])
	return out
}

// ForEach iterates every channel in ascending numeric order.
func (c *channelIndex) ForEach(cb func(*ChannelAnnouncement)) {
	for _, id := range c.keys {
		cb(c.byID[id])
	}
}

// stashedUpdate is a channel_update received before its channel's
// announcement finished validation, kept so it can be applied the moment
// the channel is admitted instead of being lost.
type stashedUpdate struct {
	update  *ChannelUpdate
	origins []Vertex
}

// stashedNode is the node_announcement analogue of stashedUpdate, held
// until at least one of the node's channels is admitted.
type stashedNode struct {
	announcement *NodeAnnouncement
	origins      []Vertex
}

// stash holds announcements and updates received while their related
// channel announcement is still being validated.
type stash struct {
	updates map[ChannelDesc]*stashedUpdate
	nodes   map[Vertex]*stashedNode
}

func newStash() stash {
	return stash{
		updates: make(map[ChannelDesc]*stashedUpdate),
		nodes:   make(map[Vertex]*stashedNode),
	}
}

// put records u as the latest stashed copy for desc, replacing any older
// stashed copy, and appends origin to the sender list.
func (s *stash) put(desc ChannelDesc, u *ChannelUpdate, origin Vertex) {
	entry, ok := s.updates[desc]
	if !ok {
		s.updates[desc] = &stashedUpdate{update: u, origins: []Vertex{origin}}
		return
	}
	if u.Timestamp > entry.update.Timestamp {
		entry.update = u
	}
	entry.origins = append(entry.origins, origin)
}

// putNode records ann as the latest stashed node_announcement for nodeID.
func (s *stash) putNode(nodeID Vertex, ann *NodeAnnouncement, origin Vertex) {
	entry, ok := s.nodes[nodeID]
	if !ok {
		s.nodes[nodeID] = &stashedNode{announcement: ann, origins: []Vertex{origin}}
		return
	}
	if ann.Timestamp > entry.announcement.Timestamp {
		entry.announcement = ann
	}
	entry.origins = append(entry.origins, origin)
}

// awaitingEntry preserves the first peer to send a not-yet-validated channel
// announcement, plus every later duplicate sender.
type awaitingEntry struct {
	announcement *ChannelAnnouncement
	origins      []Vertex
}

// Sync tracks one peer's outstanding channel-range synchronization.
type Sync struct {
	// Pending holds the follow-up query_short_channel_ids batches not
	// yet sent.
	Pending []*QueryShortChannelIds

	// InFlight is true while a query_short_channel_ids batch has been
	// sent to this peer and its reply_short_channel_ids_end has not yet
	// arrived. At most one batch is ever in flight per peer.
	InFlight bool

	// Total is the number of ids requested across every reply_channel_range
	// of this sync so far, used to compute progress.
	Total int
}

// remaining returns the number of ids still outstanding across Pending.
func (s *Sync) remaining() int {
	n := 0
	for _, q := range s.Pending {
		n += len(q.ShortChannelIds)
	}
	return n
}

// Data is the router's complete mutable topology state.
type Data struct {
	// Nodes holds the accepted node announcements of nodes referenced by
	// an admitted channel. Persisted nodes are not reloaded by Start.
	Nodes map[Vertex]*NodeAnnouncement

	Channels *channelIndex
	Updates  map[ChannelDesc]*ChannelUpdate

	Stash stash

	Awaiting map[ShortChannelId]*awaitingEntry

	PrivateChannels map[ShortChannelId]Vertex
	PrivateUpdates  map[ChannelDesc]*ChannelUpdate

	// ExcludedChannels maps a directional descriptor to the time its
	// exclusion lifts. Purely informational: consulted by the route
	// planner, never mutates the graph.
	ExcludedChannels map[ChannelDesc]time.Time

	Graph *Graph

	Sync map[Vertex]*Sync

	// RecentlyClosed remembers scids pruned or spent off-chain, purely so
	// a channel query can answer ErrChannelClosed instead of
	// ErrNonexistingChannel for a channel that existed a moment ago.
	// Bounded by MaxRecentlyClosed and never persisted: this is not a
	// tombstone store, just a short-lived disambiguation aid.
	RecentlyClosed      map[ShortChannelId]struct{}
	recentlyClosedOrder []ShortChannelId
}

// newData builds an empty Data, the state a freshly started router begins
// with before the store's persisted channels and updates are replayed in.
func newData() *Data {
	return &Data{
		Nodes:            make(map[Vertex]*NodeAnnouncement),
		Channels:         newChannelIndex(),
		Updates:          make(map[ChannelDesc]*ChannelUpdate),
		Stash:            newStash(),
		Awaiting:         make(map[ShortChannelId]*awaitingEntry),
		PrivateChannels:  make(map[ShortChannelId]Vertex),
		PrivateUpdates:   make(map[ChannelDesc]*ChannelUpdate),
		ExcludedChannels: make(map[ChannelDesc]time.Time),
		Graph:            NewGraph(),
		Sync:             make(map[Vertex]*Sync),
		RecentlyClosed:   make(map[ShortChannelId]struct{}),
	}
}

// syncProgress computes the aggregate sync completion fraction:
// (total - sum(pending sizes)) / total across all peers, or 1.0 when no
// peer has an outstanding sync.
func syncProgress(syncs map[Vertex]*Sync) float64 {
	if len(syncs) == 0 {
		return 1.0
	}

	var totalRequested, totalRemaining int
	for _, s := range syncs {
		totalRequested += s.Total
		totalRemaining += s.remaining()
	}
	if totalRequested == 0 {
		return 1.0
	}
	return float64(totalRequested-totalRemaining) / float64(totalRequested)
}
