package router

// Graph is the router's directed multigraph view of the network, keyed by
// ChannelDesc: edges are keyed by (short_channel_id, a, b), never merely by
// node pair, since a single channel carries two independent directional
// policies. It is adapted from channeldb's adjacency-list convention
// (routing/graph.go's routingGraph interface), trimmed to the in-memory
// shape this router needs for pathfinding.
type Graph struct {
	// adjacency maps a node to every ChannelDesc whose A side is that
	// node, i.e. its outgoing edges.
	adjacency map[Vertex]map[ChannelDesc]*ChannelUpdate

	// edges is the full edge set, independent of adjacency, so that
	// RemoveEdges can answer "does this channel exist in either
	// direction" without a node lookup.
	edges map[ChannelDesc]*ChannelUpdate
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		adjacency: make(map[Vertex]map[ChannelDesc]*ChannelUpdate),
		edges:     make(map[ChannelDesc]*ChannelUpdate),
	}
}

// AddEdge inserts or replaces the directed edge named by desc. Idempotent:
// adding the same desc twice with the same policy leaves the graph
// unchanged.
func (g *Graph) AddEdge(desc ChannelDesc, policy *ChannelUpdate) {
	g.edges[desc] = policy

	out, ok := g.adjacency[desc.A]
	if !ok {
		out = make(map[ChannelDesc]*ChannelUpdate)
		g.adjacency[desc.A] = out
	}
	out[desc] = policy
}

// RemoveEdge deletes the single directed edge named by desc. Idempotent:
// removing an edge that is not present is a no-op.
func (g *Graph) RemoveEdge(desc ChannelDesc) {
	if _, ok := g.edges[desc]; !ok {
		return
	}
	delete(g.edges, desc)
	if out, ok := g.adjacency[desc.A]; ok {
		delete(out, desc)
		if len(out) == 0 {
			delete(g.adjacency, desc.A)
		}
	}
}

// RemoveEdges deletes every directed edge for the given short_channel_id,
// in both directions if both are present. Used when a channel is pruned or
// its funding output is spent.
func (g *Graph) RemoveEdges(scid ShortChannelId, a, b Vertex) {
	g.RemoveEdge(ChannelDesc{ShortChannelId: scid, A: a, B: b})
	g.RemoveEdge(ChannelDesc{ShortChannelId: scid, A: b, B: a})
}

// HasEdge reports whether the directed edge named by desc is present.
func (g *Graph) HasEdge(desc ChannelDesc) bool {
	_, ok := g.edges[desc]
	return ok
}

// EdgePolicy returns the stored policy for desc, if any.
func (g *Graph) EdgePolicy(desc ChannelDesc) (*ChannelUpdate, bool) {
	p, ok := g.edges[desc]
	return p, ok
}

// ForEachEdgeFrom calls cb for every outgoing edge of node, stopping early
// if cb returns false.
func (g *Graph) ForEachEdgeFrom(node Vertex, cb func(desc ChannelDesc, policy *ChannelUpdate) bool) {
	for desc, policy := range g.adjacency[node] {
		if !cb(desc, policy) {
			return
		}
	}
}

// NumEdges returns the total directed edge count.
func (g *Graph) NumEdges() int {
	return len(g.edges)
}
