package explorer

import (
	"math"
	"testing"

	"github.com/nsg-ethz/netdice/pkg/bgp"
	"github.com/nsg-ethz/netdice/pkg/failuremodel"
	"github.com/nsg-ethz/netdice/pkg/igp"
	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/prob"
	"github.com/nsg-ethz/netdice/pkg/problem"
	"github.com/nsg-ethz/netdice/pkg/property"
)

// twoNodeFixture builds a minimal analyzable problem: node 0 (the flow's
// source) is a single-link hop from node 1, the only border router, which
// peers with one external router originating "d". Every test below gets its
// own fixture since *bgp.IntRouter carries mutable per-run state.
func twoNodeFixture(targetPrecision float64) *problem.Problem {
	links := []model.Link{{U: 0, V: 1, WeightUV: 1, WeightVU: 1}}

	r0 := bgp.NewIntRouter(0, 0, 100, "r0")
	r1 := bgp.NewIntRouter(1, 1, 100, "r1")
	ext := bgp.NewExtRouter(10, 200, r1, "ext")
	r1.Peers = []*bgp.IntRouter{r0}
	r0.Peers = []*bgp.IntRouter{r1}

	cfg := bgp.NewConfig(
		[]*bgp.IntRouter{r0, r1},
		[]*bgp.ExtRouter{ext},
		map[string]map[*bgp.ExtRouter]bgp.Announcement{
			"d": {ext: {Attrs: [4]int{-100, 1, 0, 5}}},
		},
	)

	fm := failuremodel.NewLinkFailureModel(prob.New(0.3))
	flow := model.Flow{Src: 0, Dst: "d"}
	prop := &property.Reachable{Flow: flow}

	p := problem.New(2, links, nil, cfg, fm, prop)
	p.TargetPrecision = targetPrecision
	return p
}

func TestBuildFwGraphFollowsBgpNextHopToExit(t *testing.T) {
	p := twoNodeFixture(1e-5)
	ip := igp.NewProvider(p, []int{1}, p.StaticRoutes)
	ip.Recompute()

	flow := model.Flow{Src: 0, Dst: "d"}
	p.Bgp.InitPartition(flow.Src, flow.Dst, p.NumNodes(), ip)
	if err := p.Bgp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ip.UpdateBgpNextHops(flow.Dst, bgpNextHopsToIgp(p.Bgp.GetNextHopsForInternal()))

	fwg, decisionPoints := buildFwGraph(p, ip, p.NumNodes(), flow)
	if len(fwg.Next[0]) != 1 || fwg.Next[0][0] != 1 {
		t.Fatalf("expected node 0 to forward to node 1, got %v", fwg.Next[0])
	}
	if !fwg.ExitsAt(1) {
		t.Fatalf("expected node 1 (the border router) to exit, got %v", fwg.Next[1])
	}
	if len(decisionPoints) == 0 {
		t.Errorf("expected at least one decision point (the source)")
	}
}

func TestExplorerAgreesWithReferenceOnPropertyMass(t *testing.T) {
	smart := twoNodeFixture(1e-9)
	ref := twoNodeFixture(1e-9)

	smartSol, err := New(smart, Options{}).ExploreAll()
	if err != nil {
		t.Fatalf("Explorer.ExploreAll: %v", err)
	}
	refSol, err := NewReference(ref, Options{}).ExploreAll()
	if err != nil {
		t.Fatalf("ReferenceExplorer.ExploreAll: %v", err)
	}

	if refSol.NumExplored != 2 {
		t.Fatalf("reference should enumerate 2^1 = 2 states, explored %d", refSol.NumExplored)
	}
	if refSol.PExplored.Val() < 1-1e-9 {
		t.Fatalf("reference should explore all probability mass, got %v", refSol.PExplored.Val())
	}

	if diff := math.Abs(smartSol.PProperty.Val() - refSol.PProperty.Val()); diff > 1e-6 {
		t.Errorf("smart/reference P(property) mismatch: smart=%v reference=%v diff=%v",
			smartSol.PProperty.Val(), refSol.PProperty.Val(), diff)
	}
}

func TestExploreAllMeetsTargetPrecision(t *testing.T) {
	p := twoNodeFixture(1e-4)
	sol, err := New(p, Options{}).ExploreAll()
	if err != nil {
		t.Fatalf("ExploreAll: %v", err)
	}
	imprecision := sol.PExplored.Invert().Val()
	if imprecision > p.TargetPrecision {
		t.Errorf("expected final imprecision <= target precision %v, got %v", p.TargetPrecision, imprecision)
	}
	if sol.PProperty.Val() > sol.PExplored.Val()+1e-12 {
		t.Errorf("P(property) must never exceed P(explored): property=%v explored=%v",
			sol.PProperty.Val(), sol.PExplored.Val())
	}
}

func TestAddHotEdgesForFlowIncludesTraversedEdge(t *testing.T) {
	p := twoNodeFixture(1e-5)
	ip := igp.NewProvider(p, []int{1}, p.StaticRoutes)
	ip.Recompute()

	flow := model.Flow{Src: 0, Dst: "d"}
	p.Bgp.InitPartition(flow.Src, flow.Dst, p.NumNodes(), ip)
	if err := p.Bgp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ip.UpdateBgpNextHops(flow.Dst, bgpNextHopsToIgp(p.Bgp.GetNextHopsForInternal()))

	fwg, decisionPoints := buildFwGraph(p, ip, p.NumNodes(), flow)
	hot := newEdgeSet()
	addHotEdgesForFlow(p.BgpConfig, p.Bgp, ip, flow, fwg, decisionPoints, hot)

	if _, ok := hot[[2]int{0, 1}]; !ok {
		t.Errorf("expected the only topology edge to be hot, got %v", hot)
	}
}
