package explorer

import (
	"fmt"

	"github.com/nsg-ethz/netdice/pkg/igp"
	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/problem"
	"github.com/nsg-ethz/netdice/pkg/telemetry"
)

// ReferenceExplorer is an exhaustive 2^n-state enumerator used as a
// correctness oracle for Explorer (spec.md §8 "reference equivalence"),
// supplemented from original_source/netdice/reference_explorer.py as a
// first-class exported type rather than a test-only helper.
type ReferenceExplorer struct {
	problem *problem.Problem
	igpP    *igp.Provider
	opts    Options
}

// NewReference constructs a ReferenceExplorer for p.
func NewReference(p *problem.Problem, opts Options) *ReferenceExplorer {
	borderNodes := make([]int, 0, len(p.BgpConfig.BorderRouters))
	for _, br := range p.BgpConfig.BorderRouters {
		borderNodes = append(borderNodes, br.AssignedNode())
	}
	return &ReferenceExplorer{
		problem: p,
		igpP:    igp.NewProvider(p, borderNodes, p.StaticRoutes),
		opts:    opts,
	}
}

// ExploreAll enumerates every concrete state of the problem's topology and
// sums probability mass where the property holds, returning an exact
// Solution (PExplored always reaches 1 on success).
func (r *ReferenceExplorer) ExploreAll() (*problem.Solution, error) {
	log := r.opts.logger()
	sol := problem.NewSolution()

	r.problem.RemoveAllLinks()
	state := make(model.State, r.problem.NumLinks())
	for i := range state {
		state[i] = -1
	}
	if err := r.buildStateRec(state, 0, sol, log); err != nil {
		return sol, err
	}

	if r.opts.FullTrace {
		log.Data("finished_reference", map[string]any{"p_property": sol.PProperty.Val()})
	}
	return sol, nil
}

func (r *ReferenceExplorer) buildStateRec(state model.State, pos int, sol *problem.Solution, log *telemetry.Logger) error {
	if pos == r.problem.NumLinks() {
		return r.explore(state, sol, log)
	}

	state[pos] = 1
	r.problem.AddLink(pos)
	if err := r.buildStateRec(state, pos+1, sol, log); err != nil {
		return err
	}
	state[pos] = 0
	r.problem.RemoveLink(pos)
	if err := r.buildStateRec(state, pos+1, sol, log); err != nil {
		return err
	}
	return nil
}

func (r *ReferenceExplorer) explore(state model.State, sol *problem.Solution, log *telemetry.Logger) error {
	log.Debug("exploring: %v", state)

	pState := r.problem.FailureModel.GetStateProb(state)
	r.igpP.Recompute()

	fwGraphs := make(map[model.Flow]*model.FwGraph)
	for _, flow := range r.problem.Property.Flows() {
		r.problem.Bgp.InitPartition(flow.Src, flow.Dst, r.problem.NumNodes(), r.igpP)
		if err := r.problem.Bgp.Run(); err != nil {
			return fmt.Errorf("reference explorer: flow %s: %w", flow, err)
		}
		r.igpP.UpdateBgpNextHops(flow.Dst, bgpNextHopsToIgp(r.problem.Bgp.GetNextHopsForInternal()))
		fwg, _ := buildFwGraph(r.problem, r.igpP, r.problem.NumNodes(), flow)
		fwGraphs[flow] = fwg
	}

	sol.PExplored = sol.PExplored.Add(pState)
	if r.problem.Property.Check(fwGraphs) {
		sol.PProperty = sol.PProperty.Add(pState)
	}
	sol.NumExplored++

	if r.opts.FullTrace {
		log.Data("explored_reference", map[string]any{"state": []int(state.Clone())})
	}
	return nil
}
