package property

import (
	"testing"

	"github.com/nsg-ethz/netdice/pkg/model"
)

func fwGraphsFor(flow model.Flow, fwg *model.FwGraph) map[model.Flow]*model.FwGraph {
	return map[model.Flow]*model.FwGraph{flow: fwg}
}

func TestLoopHoldsOnCycleThatNeverExits(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(3, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, 0) // back edge, never reaches an exit

	p := &Loop{Flow: flow}
	if !p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Loop to hold on a path that cycles back to the source")
	}
}

func TestLoopDoesNotHoldOnAcyclicExit(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(2, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, model.ExitSentinel)

	p := &Loop{Flow: flow}
	if p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Loop to not hold on a straight path to an exit")
	}
}

func TestReachableFalseOnLoop(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(3, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, 0)

	p := &Reachable{Flow: flow}
	if p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Reachable to not hold when the path loops forever")
	}
}

func TestReachableFalseOnBlackHole(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(2, 0, "d")
	g.AddFwRule(0, 1)
	// Node 1 has no forwarding rule at all: a black hole.

	p := &Reachable{Flow: flow}
	if p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Reachable to not hold on a black hole")
	}
}

func TestReachableTrueOnExplicitExit(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(2, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, model.ExitSentinel)

	p := &Reachable{Flow: flow}
	if !p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Reachable to hold when the path reaches an explicit exit")
	}
}

func TestEgressHoldsOnlyForNamedExitNode(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(2, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, model.ExitSentinel)

	fwgs := fwGraphsFor(flow, g)
	if !(&Egress{Flow: flow, Egress: 1}).Check(fwgs) {
		t.Fatalf("expected Egress(1) to hold")
	}
	if (&Egress{Flow: flow, Egress: 0}).Check(fwgs) {
		t.Fatalf("expected Egress(0) to not hold, traffic exits at node 1")
	}
}

// diamondFwGraph builds the ECMP fanout topology used by the congestion and
// balanced tests: 0 splits evenly to 1 and 2, 1 goes on to 3, 3 splits evenly
// to 4 (exit) and 5, 2 goes on to 5, and 5 (now carrying both a share from 3
// and all of 2's share) goes on to 6 (exit).
//
//	0 --> 1 --> 3 --> 4 (exit)
//	|            \
//	v             v
//	2 ----------> 5 --> 6 (exit)
func diamondFwGraph() *model.FwGraph {
	g := model.NewFwGraph(7, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(0, 2)
	g.AddFwRule(1, 3)
	g.AddFwRule(3, 4)
	g.AddFwRule(3, 5)
	g.AddFwRule(2, 5)
	g.AddFwRule(4, model.ExitSentinel)
	g.AddFwRule(5, 6)
	g.AddFwRule(6, model.ExitSentinel)
	return g
}

func TestLoadForLinksSplitsVolumeAcrossECMPFanouts(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := diamondFwGraph()
	linkLoad := loadForLinks([]model.Flow{flow}, []float64{1.0}, fwGraphsFor(flow, g))

	cases := []struct {
		u, v int
		want float64
	}{
		{0, 1, 0.5},
		{0, 2, 0.5},
		{1, 3, 0.5},
		{3, 4, 0.25},
		{3, 5, 0.25},
		{2, 5, 0.5},
		// node 5 receives 0.25 (from 3) + 0.5 (from 2) = 0.75 before fanning
		// out to its single next hop.
		{5, 6, 0.75},
	}
	for _, c := range cases {
		got := linkLoad[linkKey{c.u, c.v}]
		if got != c.want {
			t.Errorf("load(%d,%d) = %v, want %v", c.u, c.v, got, c.want)
		}
	}
}

func TestCongestionHoldsUnderThresholdAndViolatesOverIt(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := diamondFwGraph()
	fwgs := fwGraphsFor(flow, g)

	underThreshold := &Congestion{InFlows: []model.Flow{flow}, Volumes: []float64{1.0}, U: 1, V: 3, Threshold: 0.5}
	if !underThreshold.Check(fwgs) {
		t.Fatalf("expected Congestion to hold: load 0.5 is within threshold 0.5")
	}

	overThreshold := &Congestion{InFlows: []model.Flow{flow}, Volumes: []float64{1.0}, U: 5, V: 6, Threshold: 0.5}
	if overThreshold.Check(fwgs) {
		t.Fatalf("expected Congestion to be violated: load 0.75 exceeds threshold 0.5")
	}
}

func TestBalancedHoldsWithinDeltaAndViolatesBeyondIt(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := diamondFwGraph()
	fwgs := fwGraphsFor(flow, g)

	within := &Balanced{InFlows: []model.Flow{flow}, Volumes: []float64{1.0}, Links: [][2]int{{1, 3}, {3, 4}}, Delta: 0.3}
	if !within.Check(fwgs) {
		t.Fatalf("expected Balanced to hold: |0.5 - 0.25| = 0.25 <= 0.3")
	}

	beyond := &Balanced{InFlows: []model.Flow{flow}, Volumes: []float64{1.0}, Links: [][2]int{{1, 3}, {5, 6}}, Delta: 0.1}
	if beyond.Check(fwgs) {
		t.Fatalf("expected Balanced to be violated: |0.5 - 0.75| = 0.25 > 0.1")
	}
}

func TestWaypointFailsWhenOnlySomeECMPPathsCrossIt(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(4, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(0, 2) // bypasses the waypoint entirely
	g.AddFwRule(1, 3)
	g.AddFwRule(2, 3)
	g.AddFwRule(3, model.ExitSentinel)

	p := &Waypoint{Flow: flow, Waypoint: 1}
	if p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Waypoint to fail: the 0->2->3 path never visits node 1")
	}
}

func TestWaypointHoldsWhenEveryECMPPathCrossesIt(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(4, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, 2)
	g.AddFwRule(1, 3)
	g.AddFwRule(2, model.ExitSentinel)
	g.AddFwRule(3, model.ExitSentinel)

	p := &Waypoint{Flow: flow, Waypoint: 1}
	if !p.Check(fwGraphsFor(flow, g)) {
		t.Fatalf("expected Waypoint to hold: both ECMP branches fan out after node 1")
	}
}

func TestPathLengthHoldsOnlyForExactHopCount(t *testing.T) {
	flow := model.Flow{Src: 0, Dst: "d"}
	g := model.NewFwGraph(3, 0, "d")
	g.AddFwRule(0, 1)
	g.AddFwRule(1, 2)
	g.AddFwRule(2, model.ExitSentinel)

	fwgs := fwGraphsFor(flow, g)
	if !(&PathLength{Flow: flow, Len: 2}).Check(fwgs) {
		t.Fatalf("expected PathLength(2) to hold for a 2-hop path")
	}
	if (&PathLength{Flow: flow, Len: 3}).Check(fwgs) {
		t.Fatalf("expected PathLength(3) to not hold for a 2-hop path")
	}
}

func TestIsolationHoldsForDisjointFlows(t *testing.T) {
	flowA := model.Flow{Src: 0, Dst: "a"}
	flowB := model.Flow{Src: 3, Dst: "b"}

	ga := model.NewFwGraph(6, 0, "a")
	ga.AddFwRule(0, 1)
	ga.AddFwRule(1, model.ExitSentinel)

	gb := model.NewFwGraph(6, 3, "b")
	gb.AddFwRule(3, 4)
	gb.AddFwRule(4, model.ExitSentinel)

	fwgs := map[model.Flow]*model.FwGraph{flowA: ga, flowB: gb}
	p := &Isolation{InFlows: []model.Flow{flowA, flowB}}
	if !p.Check(fwgs) {
		t.Fatalf("expected Isolation to hold for flows that never share a node")
	}
}

func TestIsolationViolatedWhenFlowsShareANode(t *testing.T) {
	flowA := model.Flow{Src: 0, Dst: "a"}
	flowB := model.Flow{Src: 3, Dst: "b"}

	ga := model.NewFwGraph(6, 0, "a")
	ga.AddFwRule(0, 1)
	ga.AddFwRule(1, 2)
	ga.AddFwRule(2, model.ExitSentinel)

	gb := model.NewFwGraph(6, 3, "b")
	gb.AddFwRule(3, 1) // shares node 1 with flow A
	gb.AddFwRule(1, model.ExitSentinel)

	fwgs := map[model.Flow]*model.FwGraph{flowA: ga, flowB: gb}
	p := &Isolation{InFlows: []model.Flow{flowA, flowB}}
	if p.Check(fwgs) {
		t.Fatalf("expected Isolation to be violated: node 1 is on both flows' paths")
	}
}
