package router

import (
	"container/heap"
	"math"
	"math/rand"
	"strings"
)

// RouteMaxLength caps the number of hops a computed route may contain,
// mirroring BOLT4's onion hop-count limit (routing/pathfind.go's
// HopLimit).
const RouteMaxLength = 20

// DefaultAllowedSpread is the fraction above the cheapest route's cost
// within which alternative routes are still considered eligible for
// random selection.
const DefaultAllowedSpread = 0.10

// edgeWeight is the cost Dijkstra minimizes over: the fee the hop charges
// for forwarding amountMsat, plus the forwarding delay the hop imposes as
// an additional term. Grounded on routing/pathfind.go's edge-weight
// convention of combining a fee component with TimeLockDelta, adapted here
// so the fee component is the actual BOLT7 fee formula rather than a flat
// per-hop unit.
func edgeWeight(policy *ChannelUpdate, amountMsat uint64) int64 {
	fee := int64(policy.FeeBaseMsat) +
		int64(amountMsat)*int64(policy.FeeProportionalMillionths)/1_000_000
	return fee + int64(policy.CltvExpiryDelta)
}

// nodeWithDist is one entry in the Dijkstra frontier.
type nodeWithDist struct {
	node Vertex
	dist int64
	hops int
}

// distanceHeap is a container/heap min-heap over frontier distance, with an
// index back-reference so a shorter distance discovered later can fix the
// existing entry in place instead of pushing a duplicate. Grounded on
// routing/heap.go's distanceHeap / pubkeyIndices pattern.
type distanceHeap struct {
	items   []nodeWithDist
	indices map[Vertex]int
}

func newDistanceHeap() *distanceHeap {
	return &distanceHeap{indices: make(map[Vertex]int)}
}

func (d *distanceHeap) Len() int            { return len(d.items) }
func (d *distanceHeap) Less(i, j int) bool  { return d.items[i].dist < d.items[j].dist }
func (d *distanceHeap) Swap(i, j int) {
	d.items[i], d.items[j] = d.items[j], d.items[i]
	d.indices[d.items[i].node] = i
	d.indices[d.items[j].node] = j
}

func (d *distanceHeap) Push(x interface{}) {
	n := x.(nodeWithDist)
	d.indices[n.node] = len(d.items)
	d.items = append(d.items, n)
}

func (d *distanceHeap) Pop() interface{} {
	old := d.items
	n := len(old)
	item := old[n-1]
	d.items = old[:n-1]
	delete(d.indices, item.node)
	return item
}

// pushOrFix inserts node at dist/hops, or lowers its existing entry if
// dist improves on what's already queued.
func (d *distanceHeap) pushOrFix(node Vertex, dist int64, hops int) {
	if idx, ok := d.indices[node]; ok {
		if dist < d.items[idx].dist {
			d.items[idx].dist = dist
			d.items[idx].hops = hops
			heap.Fix(d, idx)
		}
		return
	}
	heap.Push(d, nodeWithDist{node: node, dist: dist, hops: hops})
}

// neighborsOf merges a node's graph adjacency with any synthetic extra
// edges supplied for this search (e.g. the source's own private channels).
func neighborsOf(g *Graph, node Vertex, extra map[Vertex]map[ChannelDesc]*ChannelUpdate) map[ChannelDesc]*ChannelUpdate {
	merged := make(map[ChannelDesc]*ChannelUpdate, len(g.adjacency[node])+len(extra[node]))
	for desc, policy := range g.adjacency[node] {
		merged[desc] = policy
	}
	for desc, policy := range extra[node] {
		merged[desc] = policy
	}
	return merged
}

// dijkstraShortestPath finds the minimum-weight path from source to target,
// skipping ignoredNodes and ignoredEdges and never exceeding RouteMaxLength
// hops. It returns the path as an ordered slice of edges and the path's
// total weight.
func dijkstraShortestPath(
	g *Graph,
	source, target Vertex,
	ignoredNodes map[Vertex]struct{},
	ignoredEdges map[ChannelDesc]struct{},
	extra map[Vertex]map[ChannelDesc]*ChannelUpdate,
	amountMsat uint64,
) ([]ChannelDesc, int64, error) {

	dist := map[Vertex]int64{source: 0}
	prevEdge := make(map[Vertex]ChannelDesc)
	visited := make(map[Vertex]struct{})

	h := newDistanceHeap()
	heap.Init(h)
	h.pushOrFix(source, 0, 0)

	for h.Len() > 0 {
		cur := heap.Pop(h).(nodeWithDist)
		if _, done := visited[cur.node]; done {
			continue
		}
		visited[cur.node] = struct{}{}

		if cur.node == target {
			break
		}
		if cur.hops >= RouteMaxLength {
			continue
		}

		for desc, policy := range neighborsOf(g, cur.node, extra) {
			if _, ignored := ignoredEdges[desc]; ignored {
				continue
			}
			if _, ignored := ignoredNodes[desc.B]; ignored {
				continue
			}
			if policy.Disabled() {
				continue
			}

			weight := cur.dist + edgeWeight(policy, amountMsat)
			if old, ok := dist[desc.B]; !ok || weight < old {
				dist[desc.B] = weight
				prevEdge[desc.B] = desc
				h.pushOrFix(desc.B, weight, cur.hops+1)
			}
		}
	}

	if _, ok := dist[target]; !ok {
		return nil, 0, ErrRouteNotFound
	}

	var edges []ChannelDesc
	node := target
	for node != source {
		e, ok := prevEdge[node]
		if !ok {
			return nil, 0, ErrRouteNotFound
		}
		edges = append(edges, e)
		node = e.A
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	return edges, dist[target], nil
}

// candidatePath is one path produced during Yen's algorithm, with its total
// weight memoized so the candidate set can be sorted cheaply.
type candidatePath struct {
	edges []ChannelDesc
	cost  int64
}

func edgesKey(edges []ChannelDesc) string {
	var sb strings.Builder
	for _, e := range edges {
		sb.WriteString(e.String())
		sb.WriteByte('|')
	}
	return sb.String()
}

func edgesEqual(a, b []ChannelDesc) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// candidateSet is the B set in Yen's algorithm: a dedup'd collection of
// not-yet-selected candidate paths, popped in ascending cost order.
// Grounded on routing/heap.go's pathHeap, but kept as a linear scan since
// the candidate sets here are small (bounded by hop count and k).
type candidateSet struct {
	items []candidatePath
	seen  map[string]struct{}
}

func newCandidateSet() *candidateSet {
	return &candidateSet{seen: make(map[string]struct{})}
}

func (c *candidateSet) pushUnique(p candidatePath) {
	key := edgesKey(p.edges)
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.items = append(c.items, p)
}

func (c *candidateSet) popMin() candidatePath {
	minIdx := 0
	for i, p := range c.items {
		if p.cost < c.items[minIdx].cost {
			minIdx = i
		}
	}
	min := c.items[minIdx]
	c.items = append(c.items[:minIdx], c.items[minIdx+1:]...)
	delete(c.seen, edgesKey(min.edges))
	return min
}

// pathWeight sums the edge weight of every edge in edges. An extra edge
// takes precedence over the graph's own stored policy for the same
// descriptor, the same precedence neighborsOf gives extra edges during
// search.
func pathWeight(g *Graph, extra map[Vertex]map[ChannelDesc]*ChannelUpdate, edges []ChannelDesc, amountMsat uint64) int64 {
	var total int64
	for _, e := range edges {
		if m, ok := extra[e.A]; ok {
			if p, ok := m[e]; ok {
				total += edgeWeight(p, amountMsat)
				continue
			}
		}
		if p, ok := g.EdgePolicy(e); ok {
			total += edgeWeight(p, amountMsat)
		}
	}
	return total
}

// kShortestPaths implements Yen's algorithm over dijkstraShortestPath,
// returning up to k loopless paths from source to target in ascending cost
// order. It is kShortestPathsWithIgnores with no exclusions.
func kShortestPaths(
	g *Graph,
	source, target Vertex,
	k int,
	extra map[Vertex]map[ChannelDesc]*ChannelUpdate,
	amountMsat uint64,
) ([]candidatePath, error) {
	return kShortestPathsWithIgnores(g, source, target, k, extra, nil, nil, amountMsat)
}

// ExtraEdge is a caller-supplied hop that has no announced channel_update
// in the graph, used to splice an invoice's embedded routing hints into
// the search. It takes precedence over any stored policy for the same
// descriptor, mirroring the way a node's own private channels override
// the graph during search.
type ExtraEdge struct {
	From   Vertex
	To     Vertex
	Update *ChannelUpdate
}

// RouteRequest names a route planning query.
type RouteRequest struct {
	Source Vertex
	Target Vertex

	// Amount is the payment amount in millisatoshis, the basis for each
	// candidate edge's proportional fee term.
	Amount uint64

	// NumPaths bounds how many candidates Yen's algorithm computes
	// before the spread filter and random selection run.
	NumPaths int

	// IgnoredNodes and IgnoredEdges are caller-supplied exclusions,
	// unioned with the router's own ExcludedChannels for this call
	// only; neither mutates graph state.
	IgnoredNodes map[Vertex]struct{}
	IgnoredEdges map[ChannelDesc]struct{}

	// ExtraEdges supplies an invoice's assisted-route hints: hops with
	// no graph presence of their own, folded in for this call only.
	ExtraEdges []ExtraEdge

	// AllowedSpread overrides DefaultAllowedSpread when positive.
	AllowedSpread float64
}

// FindRoute implements the full route planning algorithm: synthesize
// extra edges for the source's private channels, union the
// ignored-edge set with currently excluded channels, reject self-routes,
// run Yen's k-shortest-paths, filter to the spread-eligible set, and choose
// uniformly at random among the survivors.
func FindRoute(d *Data, req RouteRequest, rng *rand.Rand) ([]Hop, error) {
	if req.Source == req.Target {
		return nil, ErrCannotRouteToSelf
	}

	extra := make(map[Vertex]map[ChannelDesc]*ChannelUpdate)
	putExtra := func(from Vertex, desc ChannelDesc, policy *ChannelUpdate) {
		m, ok := extra[from]
		if !ok {
			m = make(map[ChannelDesc]*ChannelUpdate)
			extra[from] = m
		}
		m[desc] = policy
	}

	for scid, remote := range d.PrivateChannels {
		desc := ChannelDesc{ShortChannelId: scid, A: req.Source, B: remote}
		policy, ok := d.PrivateUpdates[desc]
		if !ok {
			continue
		}
		putExtra(req.Source, desc, policy)
	}

	// Assisted-route hints take precedence over both the graph and the
	// source's own private channels for the same descriptor.
	for _, ee := range req.ExtraEdges {
		desc := ChannelDesc{ShortChannelId: ee.Update.ShortChannelId, A: ee.From, B: ee.To}
		putExtra(ee.From, desc, ee.Update)
	}

	ignoredEdges := make(map[ChannelDesc]struct{})
	for desc := range req.IgnoredEdges {
		ignoredEdges[desc] = struct{}{}
	}
	now := nowFunc()
	for desc, until := range d.ExcludedChannels {
		if now.Before(until) {
			ignoredEdges[desc] = struct{}{}
		}
	}

	k := req.NumPaths
	if k <= 0 {
		k = 1
	}

	candidates, err := kShortestPathsWithIgnores(d.Graph, req.Source, req.Target, k, extra, req.IgnoredNodes, ignoredEdges, req.Amount)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrRouteNotFound
	}

	spread := req.AllowedSpread
	if spread <= 0 {
		spread = DefaultAllowedSpread
	}

	best := candidates[0].cost
	threshold := int64(math.Round(float64(best) * (1 + spread)))

	eligible := make([]candidatePath, 0, len(candidates))
	for _, c := range candidates {
		if c.cost <= threshold {
			eligible = append(eligible, c)
		}
	}

	chosen := eligible[rng.Intn(len(eligible))]
	return toHops(d, extra, chosen.edges), nil
}

// kShortestPathsWithIgnores is kShortestPaths with the search's ignored
// node/edge sets folded into the initial Dijkstra call and every spur
// search thereafter.
func kShortestPathsWithIgnores(
	g *Graph,
	source, target Vertex,
	k int,
	extra map[Vertex]map[ChannelDesc]*ChannelUpdate,
	ignoredNodes map[Vertex]struct{},
	ignoredEdges map[ChannelDesc]struct{},
	amountMsat uint64,
) ([]candidatePath, error) {

	first, cost, err := dijkstraShortestPath(g, source, target, ignoredNodes, ignoredEdges, extra, amountMsat)
	if err != nil {
		return nil, err
	}

	a := []candidatePath{{edges: first, cost: cost}}
	b := newCandidateSet()

	for len(a) < k {
		prevPath := a[len(a)-1].edges

		for i := 0; i < len(prevPath); i++ {
			spurNode := prevPath[i].A
			rootPath := prevPath[:i]

			spurIgnoredEdges := make(map[ChannelDesc]struct{})
			for e := range ignoredEdges {
				spurIgnoredEdges[e] = struct{}{}
			}
			for _, p := range a {
				if len(p.edges) > i && edgesEqual(p.edges[:i], rootPath) {
					spurIgnoredEdges[p.edges[i]] = struct{}{}
				}
			}

			spurIgnoredNodes := make(map[Vertex]struct{})
			for n := range ignoredNodes {
				spurIgnoredNodes[n] = struct{}{}
			}
			for _, e := range rootPath {
				spurIgnoredNodes[e.A] = struct{}{}
			}

			spurEdges, spurCost, err := dijkstraShortestPath(
				g, spurNode, target, spurIgnoredNodes, spurIgnoredEdges, extra, amountMsat,
			)
			if err != nil {
				continue
			}

			total := make([]ChannelDesc, 0, len(rootPath)+len(spurEdges))
			total = append(total, rootPath...)
			total = append(total, spurEdges...)
			if len(total) > RouteMaxLength {
				continue
			}

			b.pushUnique(candidatePath{
				edges: total,
				cost:  pathWeight(g, extra, rootPath, amountMsat) + spurCost,
			})
		}

		if len(b.items) == 0 {
			break
		}
		a = append(a, b.popMin())
	}

	return a, nil
}

// toHops converts a Yen's-algorithm edge path into the Hop sequence a
// caller consumes, attaching each edge's current policy.
func toHops(d *Data, extra map[Vertex]map[ChannelDesc]*ChannelUpdate, edges []ChannelDesc) []Hop {
	hops := make([]Hop, 0, len(edges))
	for _, e := range edges {
		var policy *ChannelUpdate
		if m, ok := extra[e.A]; ok {
			policy = m[e]
		}
		if policy == nil {
			policy, _ = d.Graph.EdgePolicy(e)
		}
		hops = append(hops, Hop{
			NodeId:     e.A,
			NextNodeId: e.B,
			LastUpdate: policy,
		})
	}
	return hops
}
