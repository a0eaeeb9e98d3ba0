package router

import "sync"

// NetworkDB is the persistent-storage collaborator the router consumes
// through a narrow interface, kept as an external collaborator rather
// than an embedded store. Grounded on the
// mock-collaborator idiom used throughout discovery's test suite, where the
// router's real dependencies (DB, signer, watcher) are always narrow
// interfaces satisfied by a hand-rolled test double rather than the
// production type directly.
type NetworkDB interface {
	ListChannels() ([]*ChannelAnnouncement, error)
	ListChannelUpdates() ([]*ChannelUpdate, error)

	AddChannel(*ChannelAnnouncement) error
	RemoveChannel(ShortChannelId) error

	AddChannelUpdate(*ChannelUpdate) error
	UpdateChannelUpdate(*ChannelUpdate) error

	AddNode(*NodeAnnouncement) error
	UpdateNode(*NodeAnnouncement) error
	RemoveNode(Vertex) error
}

// MemoryDB is an in-memory NetworkDB, suitable for tests and for a
// light client that does not persist topology across restarts.
type MemoryDB struct {
	mu sync.Mutex

	channels map[ShortChannelId]*ChannelAnnouncement
	updates  map[ChannelDesc]*ChannelUpdate
	nodes    map[Vertex]*NodeAnnouncement
}

// NewMemoryDB returns an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		channels: make(map[ShortChannelId]*ChannelAnnouncement),
		updates:  make(map[ChannelDesc]*ChannelUpdate),
		nodes:    make(map[Vertex]*NodeAnnouncement),
	}
}

func (m *MemoryDB) ListChannels() ([]*ChannelAnnouncement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ChannelAnnouncement, 0, len(m.channels))
	for _, c := range m.channels {
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryDB) ListChannelUpdates() ([]*ChannelUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ChannelUpdate, 0, len(m.updates))
	for _, u := range m.updates {
		out = append(out, u)
	}
	return out, nil
}

func (m *MemoryDB) AddChannel(c *ChannelAnnouncement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.channels[c.ShortChannelId] = c
	return nil
}

func (m *MemoryDB) RemoveChannel(scid ShortChannelId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.channels, scid)
	for desc := range m.updates {
		if desc.ShortChannelId == scid {
			delete(m.updates, desc)
		}
	}
	return nil
}

func (m *MemoryDB) AddChannelUpdate(u *ChannelUpdate) error {
	return m.putUpdate(u)
}

func (m *MemoryDB) UpdateChannelUpdate(u *ChannelUpdate) error {
	return m.putUpdate(u)
}

func (m *MemoryDB) putUpdate(u *ChannelUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ann, ok := m.channels[u.ShortChannelId]
	var desc ChannelDesc
	if ok {
		desc = channelDescFromFlags(u.ShortChannelId, ann.NodeId1, ann.NodeId2, u.ChannelFlags)
	} else {
		// No announcement to derive the ordered pair from: key on
		// the short_channel_id alone, so both directions share a slot.
		desc = ChannelDesc{ShortChannelId: u.ShortChannelId}
	}
	m.updates[desc] = u
	return nil
}

func (m *MemoryDB) AddNode(n *NodeAnnouncement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes[n.NodeId] = n
	return nil
}

func (m *MemoryDB) UpdateNode(n *NodeAnnouncement) error {
	return m.AddNode(n)
}

func (m *MemoryDB) RemoveNode(id Vertex) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nodes, id)
	return nil
}
