package property

import (
	"strings"

	"github.com/nsg-ethz/netdice/pkg/model"
)

// Isolation holds iff no internal node appears in more than one flow's
// reachable set (the union of nodes visited by its forwarding graph).
type Isolation struct {
	InFlows []model.Flow
}

func (p *Isolation) Flows() []model.Flow { return p.InFlows }

func (p *Isolation) HumanReadable(r *NameResolver) string {
	var b strings.Builder
	for _, f := range p.InFlows {
		b.WriteString(r.FlowString(f))
	}
	return "Isolation(" + b.String() + ")"
}

func (p *Isolation) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	if len(p.InFlows) == 0 {
		return true
	}
	visited := make([]int, fwGraphs[p.InFlows[0]].N)
	for i := range visited {
		visited[i] = -1
	}

	for i, f := range p.InFlows {
		if !p.checkRec(fwGraphs[f], fwGraphs[f].Src, i, visited) {
			return false
		}
	}
	return true
}

func (p *Isolation) checkRec(fwg *model.FwGraph, cur, graphID int, visited []int) bool {
	if visited[cur] > -1 {
		return visited[cur] == graphID
	}
	visited[cur] = graphID

	for _, next := range fwg.Next[cur] {
		if next == model.ExitSentinel {
			continue
		}
		if !p.checkRec(fwg, next, graphID, visited) {
			return false
		}
	}
	return true
}
