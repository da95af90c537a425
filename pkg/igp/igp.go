// Package igp provides shortest-path and reachability information derived
// from the IGP topology, kept up to date as links fail and recover during
// exploration.
package igp

import (
	"fmt"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/nsg-ethz/netdice/pkg/model"
)

// NextHop is the subset of a BGP router's identity the IGP layer needs to
// turn a BGP decision into a forwarding rule, without pkg/igp importing
// pkg/bgp (which in turn depends on pkg/igp for reachability checks).
type NextHop interface {
	IsExternal() bool
	AssignedNode() int
}

// Topology is the read-only view of a problem's link set and weighted graph
// that the IGP provider operates on. pkg/problem implements this.
type Topology interface {
	NumNodes() int
	Links() []model.Link
	HasEdge(u, v int) bool
	WeightForEdge(u, v int) float64
	Neighbors(u int) []int
}

// Provider answers IGP shortest-path and reachability queries for a single
// problem instance, recomputed once per explored state.
type Provider struct {
	topo Topology

	borderRouters []int

	// spCost[br][x] = shortest-path cost from x to border router br.
	spCost map[int][]float64
	// spPath[br][x] = shortest path between x and br, as the node sequence
	// br,...,x produced by the reverse Dijkstra from br.
	spPath map[int][][]int

	// components[i] = strongly connected component id of node i.
	components []int

	// staticRouteData[dst][u] = next router for dst configured at u.
	staticRouteData map[string]map[int]int

	// bgpNextHopData[dst][u] = selected BGP next hop at u for dst, nil if none.
	bgpNextHopData map[string]map[int]NextHop
}

// NewProvider constructs a Provider for the given topology, border routers,
// and static routes. It must be followed by a call to Recompute before any
// query method is used.
func NewProvider(topo Topology, borderRouters []int, staticRoutes []model.StaticRoute) *Provider {
	p := &Provider{
		topo:            topo,
		borderRouters:   append([]int(nil), borderRouters...),
		spCost:          make(map[int][]float64),
		spPath:          make(map[int][][]int),
		components:      make([]int, topo.NumNodes()),
		staticRouteData: make(map[string]map[int]int),
		bgpNextHopData:  make(map[string]map[int]NextHop),
	}
	for i := range p.components {
		p.components[i] = -1
	}
	for _, sr := range staticRoutes {
		m, ok := p.staticRouteData[sr.Dst]
		if !ok {
			m = make(map[int]int)
			p.staticRouteData[sr.Dst] = m
		}
		m[sr.U] = sr.V
	}
	return p
}

// buildGonumGraph constructs a gonum weighted directed graph mirroring the
// topology's edges, with the weight of edge (u,v) set to the REAL weight of
// traversing v->u. Running Dijkstra from a border router br on this graph
// therefore yields, for every node x, the shortest real path cost FROM x TO
// br — the reverse shortest path trick the original exploits to do a single
// Dijkstra per border router rather than one per node.
func (p *Provider) buildGonumGraph() *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, 0)
	for i := 0; i < p.topo.NumNodes(); i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, l := range p.topo.Links() {
		if !p.topo.HasEdge(l.U, l.V) {
			continue
		}
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(int64(l.U)), T: simple.Node(int64(l.V)), W: l.WeightVU})
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(int64(l.V)), T: simple.Node(int64(l.U)), W: l.WeightUV})
	}
	return g
}

// Recompute refreshes shortest-path and connectivity information after the
// topology's up/down link state has changed.
func (p *Provider) Recompute() {
	p.bgpNextHopData = make(map[string]map[int]NextHop)

	g := p.buildGonumGraph()
	n := p.topo.NumNodes()

	for _, br := range p.borderRouters {
		shortest := path.DijkstraFrom(simple.Node(int64(br)), g)
		costs := make([]float64, n)
		paths := make([][]int, n)
		for x := 0; x < n; x++ {
			nodes, weight := shortest.To(int64(x))
			costs[x] = weight
			seq := make([]int, len(nodes))
			for i, nd := range nodes {
				seq[i] = int(nd.ID())
			}
			paths[x] = seq
		}
		p.spCost[br] = costs
		p.spPath[br] = paths
	}

	for i := range p.components {
		p.components[i] = -1
	}
	sccs := topo.TarjanSCC(g)
	for id, comp := range sccs {
		for _, nd := range comp {
			p.components[nd.ID()] = id
		}
	}
}

// UpdateBgpNextHops records the selected BGP next hop at every internal node
// for destination, after a BGP run for that destination has converged.
func (p *Provider) UpdateBgpNextHops(destination string, nextHopData map[int]NextHop) {
	p.bgpNextHopData[destination] = nextHopData
}

// GetIgpCost returns the IGP cost of the shortest path from u to the border
// router v.
func (p *Provider) GetIgpCost(u, v int) float64 {
	return p.spCost[v][u]
}

// IsReachable reports whether v is reachable from u (they lie in the same
// strongly connected component).
func (p *Provider) IsReachable(u, v int) bool {
	return p.components[u] == p.components[v]
}

// GetAShortestPath returns a shortest path from u to border router v, as a
// node sequence starting at v (reverse order, matching the reverse-Dijkstra
// construction) -- callers only use it to enumerate traversed edges, so
// direction does not matter to them.
func (p *Provider) GetAShortestPath(u, v int) []int {
	return p.spPath[v][u]
}

// GetBgpNextHop returns the BGP next hop selected at u for dst, or nil if
// none was selected.
func (p *Provider) GetBgpNextHop(u int, dst string) NextHop {
	m, ok := p.bgpNextHopData[dst]
	if !ok {
		return nil
	}
	return m[u]
}

// GetStaticRouteAt returns the next router configured by a static route at u
// for dst, and whether one exists.
func (p *Provider) GetStaticRouteAt(u int, dst string) (int, bool) {
	m, ok := p.staticRouteData[dst]
	if !ok {
		return 0, false
	}
	v, ok := m[u]
	return v, ok
}

// GetNextRoutersShortestPaths returns every neighbor of u that lies on some
// shortest path from u to border router v (ECMP fan-out), or nil if there is
// none.
func (p *Provider) GetNextRoutersShortestPaths(u, v int) []int {
	var result []int
	costs := p.spCost[v]
	for _, neigh := range p.topo.Neighbors(u) {
		w := p.topo.WeightForEdge(u, neigh)
		if costs[neigh]+w == costs[u] {
			result = append(result, neigh)
		}
	}
	return result
}

// Err is a sentinel describing a malformed query against the provider
// (requesting information about a node outside the topology).
type Err struct {
	Op   string
	Node int
}

func (e *Err) Error() string {
	return fmt.Sprintf("igp: %s: node %d out of range", e.Op, e.Node)
}
