package property

import (
	"fmt"

	"github.com/nsg-ethz/netdice/pkg/model"
)

// Egress holds iff every path from the flow's source exits the topology
// exactly at the named egress node, with no loops and no black holes.
type Egress struct {
	Flow   model.Flow
	Egress int
}

func (p *Egress) Flows() []model.Flow { return []model.Flow{p.Flow} }

func (p *Egress) HumanReadable(r *NameResolver) string {
	return fmt.Sprintf("Egress(%s, %s)", r.FlowString(p.Flow), r.NodeNameForID[p.Egress])
}

func (p *Egress) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	fwg := fwGraphs[p.Flow]
	visited := make([]bool, fwg.N)
	return p.checkRec(fwg, visited, fwg.Src)
}

func (p *Egress) checkRec(fwg *model.FwGraph, visited []bool, cur int) bool {
	if visited[cur] {
		return false // loop
	}
	if fwg.ExitsAt(cur) {
		return cur == p.Egress
	}
	if len(fwg.Next[cur]) == 0 {
		return false // black hole
	}
	visited[cur] = true
	for _, n := range fwg.Next[cur] {
		if !p.checkRec(fwg, visited, n) {
			return false
		}
	}
	visited[cur] = false // visited marks the current path only
	return true
}

// Loop holds iff some path from the flow's source revisits a node.
type Loop struct {
	Flow model.Flow
}

func (p *Loop) Flows() []model.Flow { return []model.Flow{p.Flow} }

func (p *Loop) HumanReadable(r *NameResolver) string {
	return fmt.Sprintf("Loop(%s)", r.FlowString(p.Flow))
}

func (p *Loop) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	fwg := fwGraphs[p.Flow]
	visited := make([]bool, fwg.N)
	return p.checkRec(fwg, visited, fwg.Src)
}

func (p *Loop) checkRec(fwg *model.FwGraph, visited []bool, cur int) bool {
	if visited[cur] {
		return true
	}
	if fwg.ExitsAt(cur) {
		return false
	}
	visited[cur] = true
	for _, n := range fwg.Next[cur] {
		if p.checkRec(fwg, visited, n) {
			return true
		}
	}
	visited[cur] = false // visited marks the current path only
	return false
}

// Reachable holds iff every path from the flow's source exits the topology
// (no loops, no black holes), regardless of where.
type Reachable struct {
	Flow model.Flow
}

func (p *Reachable) Flows() []model.Flow { return []model.Flow{p.Flow} }

func (p *Reachable) HumanReadable(r *NameResolver) string {
	return fmt.Sprintf("Reachable(%s)", r.FlowString(p.Flow))
}

func (p *Reachable) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	fwg := fwGraphs[p.Flow]
	visited := make([]bool, fwg.N)
	return p.checkRec(fwg, visited, fwg.Src)
}

func (p *Reachable) checkRec(fwg *model.FwGraph, visited []bool, cur int) bool {
	if visited[cur] {
		return false // loop
	}
	if fwg.ExitsAt(cur) {
		return true
	}
	if len(fwg.Next[cur]) == 0 {
		return false // black hole
	}
	visited[cur] = true
	for _, n := range fwg.Next[cur] {
		if !p.checkRec(fwg, visited, n) {
			return false
		}
	}
	visited[cur] = false // visited marks the current path only
	return true
}

// PathLength holds iff every completed path from the flow's source traverses
// exactly Len internal hops before exiting.
type PathLength struct {
	Flow model.Flow
	Len  int
}

func (p *PathLength) Flows() []model.Flow { return []model.Flow{p.Flow} }

func (p *PathLength) HumanReadable(r *NameResolver) string {
	return fmt.Sprintf("PathLength(%s, %d)", r.FlowString(p.Flow), p.Len)
}

func (p *PathLength) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	fwg := fwGraphs[p.Flow]
	visited := make([]bool, fwg.N)
	return p.checkRec(fwg, visited, fwg.Src, 0)
}

func (p *PathLength) checkRec(fwg *model.FwGraph, visited []bool, cur, traversed int) bool {
	if visited[cur] {
		return false // loop
	}
	if fwg.ExitsAt(cur) {
		return traversed == p.Len
	}
	if len(fwg.Next[cur]) == 0 {
		// Black hole; whether to ever return true here is arguable, but we
		// treat a black hole as having traversed exactly this many hops.
		return traversed == p.Len
	}
	visited[cur] = true
	for _, n := range fwg.Next[cur] {
		if !p.checkRec(fwg, visited, n, traversed+1) {
			return false
		}
	}
	visited[cur] = false // visited marks the current path only
	return true
}

// Waypoint holds iff every path from the flow's source reaches the waypoint
// node before exiting the topology.
type Waypoint struct {
	Flow     model.Flow
	Waypoint int
}

func (p *Waypoint) Flows() []model.Flow { return []model.Flow{p.Flow} }

func (p *Waypoint) HumanReadable(r *NameResolver) string {
	return fmt.Sprintf("Waypoint(%s, %s)", r.FlowString(p.Flow), r.NodeNameForID[p.Waypoint])
}

func (p *Waypoint) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	fwg := fwGraphs[p.Flow]
	visited := make([]bool, fwg.N)
	onPath := make([]bool, fwg.N)
	return p.checkRec(fwg, visited, onPath, fwg.Src)
}

// checkRec returns true iff every path from cur to an egress traverses the
// waypoint; a path that loops back without ever hitting the waypoint fails.
func (p *Waypoint) checkRec(fwg *model.FwGraph, visited, onPath []bool, cur int) bool {
	if cur == p.Waypoint {
		return true
	}
	if fwg.ExitsAt(cur) {
		return false
	}
	if visited[cur] {
		if onPath[cur] {
			return false // loop that never reached the waypoint
		}
		return true
	}
	if len(fwg.Next[cur]) == 0 {
		return false // black hole
	}

	visited[cur] = true
	onPath[cur] = true
	for _, n := range fwg.Next[cur] {
		if !p.checkRec(fwg, visited, onPath, n) {
			return false
		}
	}
	onPath[cur] = false
	return true
}
