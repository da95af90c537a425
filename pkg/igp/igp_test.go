package igp

import (
	"testing"

	"github.com/nsg-ethz/netdice/pkg/model"
)

// fakeTopology is a minimal Topology backed by an explicit adjacency/weight
// table, used to exercise Provider without pkg/problem.
type fakeTopology struct {
	n     int
	links []model.Link
	up    map[[2]int]bool
}

func newFakeTopology(n int, links []model.Link) *fakeTopology {
	t := &fakeTopology{n: n, links: links, up: make(map[[2]int]bool)}
	for _, l := range links {
		t.up[[2]int{l.U, l.V}] = true
		t.up[[2]int{l.V, l.U}] = true
	}
	return t
}

func (t *fakeTopology) NumNodes() int        { return t.n }
func (t *fakeTopology) Links() []model.Link  { return t.links }
func (t *fakeTopology) HasEdge(u, v int) bool { return t.up[[2]int{u, v}] }

func (t *fakeTopology) WeightForEdge(u, v int) float64 {
	for _, l := range t.links {
		if l.U == u && l.V == v {
			return l.WeightUV
		}
		if l.V == u && l.U == v {
			return l.WeightVU
		}
	}
	return -1
}

func (t *fakeTopology) Neighbors(u int) []int {
	var out []int
	for _, l := range t.links {
		if l.U == u && t.up[[2]int{u, l.V}] {
			out = append(out, l.V)
		}
		if l.V == u && t.up[[2]int{u, l.U}] {
			out = append(out, l.U)
		}
	}
	return out
}

// A small path topology: 0 - 1 - 2, all weights 1, border router at 2.
func pathTopology() *fakeTopology {
	links := []model.Link{
		{U: 0, V: 1, WeightUV: 1, WeightVU: 1},
		{U: 1, V: 2, WeightUV: 1, WeightVU: 1},
	}
	return newFakeTopology(3, links)
}

func TestRecomputeShortestPathCost(t *testing.T) {
	topo := pathTopology()
	p := NewProvider(topo, []int{2}, nil)
	p.Recompute()

	if got := p.GetIgpCost(0, 2); got != 2 {
		t.Errorf("GetIgpCost(0,2) = %v, want 2", got)
	}
	if got := p.GetIgpCost(1, 2); got != 1 {
		t.Errorf("GetIgpCost(1,2) = %v, want 1", got)
	}
	if got := p.GetIgpCost(2, 2); got != 0 {
		t.Errorf("GetIgpCost(2,2) = %v, want 0", got)
	}
}

func TestIsReachableAllUp(t *testing.T) {
	topo := pathTopology()
	p := NewProvider(topo, []int{2}, nil)
	p.Recompute()

	if !p.IsReachable(0, 2) {
		t.Errorf("expected 0 and 2 reachable with all links up")
	}
}

func TestIsReachableLinkDown(t *testing.T) {
	links := []model.Link{
		{U: 0, V: 1, WeightUV: 1, WeightVU: 1},
		{U: 1, V: 2, WeightUV: 1, WeightVU: 1},
	}
	topo := newFakeTopology(3, links)
	delete(topo.up, [2]int{1, 2})
	delete(topo.up, [2]int{2, 1})

	p := NewProvider(topo, []int{2}, nil)
	p.Recompute()

	if p.IsReachable(0, 2) {
		t.Errorf("expected 0 and 2 unreachable once link 1-2 is down")
	}
	if !p.IsReachable(0, 1) {
		t.Errorf("expected 0 and 1 still reachable")
	}
}

func TestGetNextRoutersShortestPathsECMP(t *testing.T) {
	// Diamond: 0 -> {1,2} -> 3, equal cost both ways, border router at 3.
	links := []model.Link{
		{U: 0, V: 1, WeightUV: 1, WeightVU: 1},
		{U: 0, V: 2, WeightUV: 1, WeightVU: 1},
		{U: 1, V: 3, WeightUV: 1, WeightVU: 1},
		{U: 2, V: 3, WeightUV: 1, WeightVU: 1},
	}
	topo := newFakeTopology(4, links)
	p := NewProvider(topo, []int{3}, nil)
	p.Recompute()

	next := p.GetNextRoutersShortestPaths(0, 3)
	if len(next) != 2 {
		t.Fatalf("GetNextRoutersShortestPaths(0,3) = %v, want 2 ECMP next hops", next)
	}
	seen := map[int]bool{}
	for _, n := range next {
		seen[n] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("GetNextRoutersShortestPaths(0,3) = %v, want {1,2}", next)
	}
}

func TestStaticRouteLookup(t *testing.T) {
	topo := pathTopology()
	p := NewProvider(topo, []int{2}, []model.StaticRoute{{Dst: "d", U: 0, V: 1}})
	p.Recompute()

	v, ok := p.GetStaticRouteAt(0, "d")
	if !ok || v != 1 {
		t.Fatalf("GetStaticRouteAt(0,\"d\") = (%d,%v), want (1,true)", v, ok)
	}
	if _, ok := p.GetStaticRouteAt(1, "d"); ok {
		t.Errorf("expected no static route at node 1")
	}
}
