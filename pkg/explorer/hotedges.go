package explorer

import (
	"github.com/nsg-ethz/netdice/pkg/bgp"
	"github.com/nsg-ethz/netdice/pkg/igp"
	"github.com/nsg-ethz/netdice/pkg/model"
)

// edgeSet is the hot-edge accumulator from spec.md §4.5: edges are
// normalized to (min, max) of endpoints so a link counts once regardless of
// traversal direction.
type edgeSet map[[2]int]struct{}

func newEdgeSet() edgeSet { return make(edgeSet) }

func (s edgeSet) addNormalized(u, v int) {
	if u > v {
		u, v = v, u
	}
	s[[2]int{u, v}] = struct{}{}
}

func (s edgeSet) addPath(path []int) {
	for i := 1; i < len(path); i++ {
		s.addNormalized(path[i-1], path[i])
	}
}

// addHotEdgesForFlow unions, into hot, the four hot-edge sources spec.md
// §4.5 names for one flow: RR<->Top3-border-router shortest paths, decision
// point -> selected next hop shortest paths, the forwarding graph's own
// traversed edges, and (absent any route reflector) source -> Top3-border
// shortest paths.
func addHotEdgesForFlow(bgpConfig *bgp.Config, proto *bgp.Protocol, ip *igp.Provider, flow model.Flow, fwg *model.FwGraph, decisionPoints []int, hot edgeSet) {
	rrs := proto.RrInPartition()
	top3 := proto.BrTop3InPartition()

	for _, rr := range rrs {
		for _, br := range top3 {
			hot.addPath(ip.GetAShortestPath(rr.AssignedNode(), br.AssignedNode()))
		}
	}

	for _, node := range decisionPoints {
		router := bgpConfig.GetBgpRouterForNode(node)
		if router == nil {
			continue
		}
		nextHop := router.GetSelectedNextHop()
		if nextHop == nil || nextHop.IsExternal() {
			continue
		}
		hot.addPath(ip.GetAShortestPath(node, nextHop.AssignedNode()))
	}

	for _, e := range fwg.TraversedEdges {
		hot.addNormalized(e[0], e[1])
	}

	if len(rrs) == 0 {
		for _, br := range top3 {
			hot.addPath(ip.GetAShortestPath(flow.Src, br.AssignedNode()))
		}
	}
}
