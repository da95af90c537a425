package explorer

import (
	"github.com/nsg-ethz/netdice/pkg/igp"
	"github.com/nsg-ethz/netdice/pkg/model"
)

// buildFwGraph runs the DFS from spec.md §4.4, combining static routes, the
// BGP next hop cached in ip, and IGP ECMP fan-out into one flow's forwarding
// graph. It also returns the decision points encountered: nodes whose BGP
// next hop differs from their caller's (the source included, since it is
// visited with a nil "previous next hop").
func buildFwGraph(topo igp.Topology, ip *igp.Provider, nofNodes int, flow model.Flow) (*model.FwGraph, []int) {
	fwg := model.NewFwGraph(nofNodes, flow.Src, flow.Dst)
	var decisionPoints []int
	visited := make([]bool, nofNodes)
	visitFwGraph(topo, ip, fwg, &decisionPoints, visited, flow.Src, nil)
	return fwg, decisionPoints
}

func visitFwGraph(topo igp.Topology, ip *igp.Provider, fwg *model.FwGraph, decisionPoints *[]int, visited []bool, cur int, prevNextHop igp.NextHop) {
	if visited[cur] {
		return
	}
	visited[cur] = true

	if srNext, ok := ip.GetStaticRouteAt(cur, fwg.Dst); ok {
		if topo.HasEdge(cur, srNext) {
			fwg.AddFwRule(cur, srNext)
			// nil previous next hop: the static route's target is always a
			// decision point too.
			visitFwGraph(topo, ip, fwg, decisionPoints, visited, srNext, nil)
		}
		return
	}

	bgpNextHop := ip.GetBgpNextHop(cur, fwg.Dst)
	if bgpNextHop != prevNextHop {
		*decisionPoints = append(*decisionPoints, cur)
	}
	if bgpNextHop == nil {
		return
	}
	if bgpNextHop.IsExternal() {
		fwg.AddFwRule(cur, model.ExitSentinel)
		return
	}
	for _, next := range ip.GetNextRoutersShortestPaths(cur, bgpNextHop.AssignedNode()) {
		fwg.AddFwRule(cur, next)
		visitFwGraph(topo, ip, fwg, decisionPoints, visited, next, bgpNextHop)
	}
}
