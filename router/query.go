package router

// This file wires the read-only query views over the live topology: node
// and channel listings, the raw update set, the update map keyed by
// direction, a single channel's status, and the filtered-gossip view a
// rebroadcaster would pull from. Each is answered synchronously from
// inside the dispatch loop, the same way syncProgressCmd is, so a caller
// never observes a half-applied mutation.

// nodesView copies d.Nodes so a caller can't mutate the live map.
func nodesView(d *Data) map[Vertex]*NodeAnnouncement {
	out := make(map[Vertex]*NodeAnnouncement, len(d.Nodes))
	for k, v := range d.Nodes {
		out[k] = v
	}
	return out
}

// channelsView lists every admitted channel in ascending short_channel_id
// order.
func channelsView(d *Data) []*ChannelAnnouncement {
	out := make([]*ChannelAnnouncement, 0, d.Channels.Len())
	d.Channels.ForEach(func(ann *ChannelAnnouncement) {
		out = append(out, ann)
	})
	return out
}

// updatesView lists every current channel_update, in no particular order.
func updatesView(d *Data) []*ChannelUpdate {
	out := make([]*ChannelUpdate, 0, len(d.Updates))
	for _, u := range d.Updates {
		out = append(out, u)
	}
	return out
}

// updatesMapView copies d.Updates keyed by direction.
func updatesMapView(d *Data) map[ChannelDesc]*ChannelUpdate {
	out := make(map[ChannelDesc]*ChannelUpdate, len(d.Updates))
	for k, v := range d.Updates {
		out[k] = v
	}
	return out
}

// channelInfo answers a single-channel query: the announcement if the
// channel is currently admitted, ErrChannelClosed if it was admitted and
// later pruned or spent, or ErrNonexistingChannel if neither is true.
func channelInfo(d *Data, scid ShortChannelId) (*ChannelAnnouncement, error) {
	if ann, ok := d.Channels.Get(scid); ok {
		return ann, nil
	}
	if _, ok := d.RecentlyClosed[scid]; ok {
		return nil, ErrChannelClosed
	}
	return nil, ErrNonexistingChannel
}

// gossipView assembles every currently known announcement and update into
// the GossipMessage shape filterGossip expects, then filters it for
// delivery to peer to. Origin tracking is not retained once an
// announcement is admitted into Data, so every view is built with a zero
// Origin: a rebroadcaster built on this view never excludes gossip by
// echo-suppression, only by the timestamp window, which still covers the
// common case of a reconnecting peer asking for everything since its last
// disconnect.
func gossipView(d *Data, to Vertex, filter *GossipTimestampRange) []GossipMessage {
	msgs := make([]GossipMessage, 0, d.Channels.Len()+len(d.Updates)+len(d.Nodes))

	d.Channels.ForEach(func(ann *ChannelAnnouncement) {
		msgs = append(msgs, GossipMessage{ChannelAnnouncement: ann})
	})
	for _, u := range d.Updates {
		msgs = append(msgs, GossipMessage{Timestamp: u.Timestamp, ChannelUpdate: u})
	}
	for _, node := range d.Nodes {
		msgs = append(msgs, GossipMessage{Timestamp: node.Timestamp, NodeAnnouncement: node})
	}

	return filterGossip(msgs, to, filter)
}

type nodesQueryCmd struct {
	rez chan map[Vertex]*NodeAnnouncement
}

type channelsQueryCmd struct {
	rez chan []*ChannelAnnouncement
}

type updatesQueryCmd struct {
	rez chan []*ChannelUpdate
}

type updatesMapQueryCmd struct {
	rez chan map[ChannelDesc]*ChannelUpdate
}

type channelInfoQueryCmd struct {
	scid ShortChannelId
	rez  chan *ChannelAnnouncement
	err  chan error
}

type gossipQueryCmd struct {
	to     Vertex
	filter *GossipTimestampRange
	rez    chan []GossipMessage
}

// Nodes returns a snapshot of every known node announcement.
func (rt *Router) Nodes() (map[Vertex]*NodeAnnouncement, error) {
	rez := make(chan map[Vertex]*NodeAnnouncement, 1)
	if err := rt.enqueue(&nodesQueryCmd{rez: rez}); err != nil {
		return nil, err
	}
	select {
	case v := <-rez:
		return v, nil
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}

// Channels returns a snapshot of every admitted channel announcement.
func (rt *Router) Channels() ([]*ChannelAnnouncement, error) {
	rez := make(chan []*ChannelAnnouncement, 1)
	if err := rt.enqueue(&channelsQueryCmd{rez: rez}); err != nil {
		return nil, err
	}
	select {
	case v := <-rez:
		return v, nil
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}

// Updates returns a snapshot of every current channel_update.
func (rt *Router) Updates() ([]*ChannelUpdate, error) {
	rez := make(chan []*ChannelUpdate, 1)
	if err := rt.enqueue(&updatesQueryCmd{rez: rez}); err != nil {
		return nil, err
	}
	select {
	case v := <-rez:
		return v, nil
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}

// UpdatesMap returns a snapshot of every current channel_update keyed by
// direction.
func (rt *Router) UpdatesMap() (map[ChannelDesc]*ChannelUpdate, error) {
	rez := make(chan map[ChannelDesc]*ChannelUpdate, 1)
	if err := rt.enqueue(&updatesMapQueryCmd{rez: rez}); err != nil {
		return nil, err
	}
	select {
	case v := <-rez:
		return v, nil
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}

// ChannelInfo looks up scid, returning ErrChannelClosed or
// ErrNonexistingChannel when it is not currently admitted.
func (rt *Router) ChannelInfo(scid ShortChannelId) (*ChannelAnnouncement, error) {
	rez := make(chan *ChannelAnnouncement, 1)
	errc := make(chan error, 1)
	if err := rt.enqueue(&channelInfoQueryCmd{scid: scid, rez: rez, err: errc}); err != nil {
		return nil, err
	}
	select {
	case ann := <-rez:
		return ann, nil
	case err := <-errc:
		return nil, err
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}

// QueryGossip returns every known announcement and update eligible for
// delivery to peer to under filter, applying the same origin-echo and
// timestamp-window rules a rebroadcaster would.
func (rt *Router) QueryGossip(to Vertex, filter *GossipTimestampRange) ([]GossipMessage, error) {
	rez := make(chan []GossipMessage, 1)
	if err := rt.enqueue(&gossipQueryCmd{to: to, filter: filter, rez: rez}); err != nil {
		return nil, err
	}
	select {
	case v := <-rez:
		return v, nil
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}
