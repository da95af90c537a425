// Package problem ties together a topology, its static routes, BGP
// configuration, failure model, and the property under analysis into a
// single instance that the explorer can run against.
package problem

import (
	"github.com/nsg-ethz/netdice/pkg/bgp"
	"github.com/nsg-ethz/netdice/pkg/failuremodel"
	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/prob"
	"github.com/nsg-ethz/netdice/pkg/property"
)

// edgeKey identifies a directed edge for link-id lookups.
type edgeKey struct{ u, v int }

// Problem is a container for all information describing one problem
// instance: the topology, its static routes, the BGP configuration, the
// failure model, and the property to check.
type Problem struct {
	Nof           int
	AllLinks      []model.Link
	StaticRoutes  []model.StaticRoute
	BgpConfig     *bgp.Config
	Bgp           *bgp.Protocol
	FailureModel  failuremodel.Model
	Property      property.Property

	TargetPrecision float64

	linkIDForEdge map[edgeKey]int
	up            []bool // up[linkID] reports whether the link is currently present in the graph
}

// New constructs a Problem instance. All links start up; failure exploration
// toggles them via AddLink/RemoveLink as it walks the state space.
func New(numNodes int, links []model.Link, staticRoutes []model.StaticRoute, bgpConfig *bgp.Config, fm failuremodel.Model, prop property.Property) *Problem {
	p := &Problem{
		Nof:           numNodes,
		AllLinks:      links,
		StaticRoutes:  staticRoutes,
		BgpConfig:     bgpConfig,
		Bgp:           bgp.NewProtocol(bgpConfig),
		FailureModel:  fm,
		Property:      prop,
		linkIDForEdge: make(map[edgeKey]int, 2*len(links)),
		up:            make([]bool, len(links)),
	}
	for id, l := range links {
		p.linkIDForEdge[edgeKey{l.U, l.V}] = id
		p.linkIDForEdge[edgeKey{l.V, l.U}] = id
		p.up[id] = true
	}
	fm.InitializeForTopology(numNodes, links)
	return p
}

// NumNodes implements igp.Topology.
func (p *Problem) NumNodes() int { return p.Nof }

// NumLinks returns the number of links in the topology.
func (p *Problem) NumLinks() int { return len(p.AllLinks) }

// Links implements igp.Topology; it returns only links currently up.
func (p *Problem) Links() []model.Link {
	up := make([]model.Link, 0, len(p.AllLinks))
	for id, l := range p.AllLinks {
		if p.up[id] {
			up = append(up, l)
		}
	}
	return up
}

// HasEdge implements igp.Topology.
func (p *Problem) HasEdge(u, v int) bool {
	id, ok := p.linkIDForEdge[edgeKey{u, v}]
	if !ok {
		return false
	}
	return p.up[id]
}

// WeightForEdge implements igp.Topology: the real (unswapped) weight of
// traversing u->v.
func (p *Problem) WeightForEdge(u, v int) float64 {
	id := p.linkIDForEdge[edgeKey{u, v}]
	l := p.AllLinks[id]
	if l.U == u {
		return l.WeightUV
	}
	return l.WeightVU
}

// Neighbors implements igp.Topology: every node with a currently-up link to
// u.
func (p *Problem) Neighbors(u int) []int {
	var out []int
	for id, l := range p.AllLinks {
		if !p.up[id] {
			continue
		}
		switch u {
		case l.U:
			out = append(out, l.V)
		case l.V:
			out = append(out, l.U)
		}
	}
	return out
}

// AddLink brings link id up.
func (p *Problem) AddLink(linkID int) { p.up[linkID] = true }

// RemoveLink brings link id down.
func (p *Problem) RemoveLink(linkID int) { p.up[linkID] = false }

// RemoveAllLinks brings every link down; exploration of a concrete state
// then selectively brings links back up per the state vector.
func (p *Problem) RemoveAllLinks() {
	for id := range p.up {
		p.up[id] = false
	}
}

// LinkIDForEdge returns the link id underlying the edge (u,v), and whether
// one exists.
func (p *Problem) LinkIDForEdge(u, v int) (int, bool) {
	id, ok := p.linkIDForEdge[edgeKey{u, v}]
	return id, ok
}

// Solution is the result of running exploration against a Problem.
type Solution struct {
	NumExplored int
	PExplored   prob.Prob
	PProperty   prob.Prob
}

// NewSolution returns a Solution with both probability masses at zero.
func NewSolution() *Solution {
	return &Solution{PExplored: prob.Zero(), PProperty: prob.Zero()}
}
