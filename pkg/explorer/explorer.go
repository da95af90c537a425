// Package explorer implements the best-first failure exploration engine
// (spec.md §4.1): the driver that accumulates explored/property probability
// mass by expanding only hot edges, plus a brute-force ReferenceExplorer
// used as its correctness oracle.
package explorer

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/nsg-ethz/netdice/pkg/bgp"
	"github.com/nsg-ethz/netdice/pkg/igp"
	"github.com/nsg-ethz/netdice/pkg/metrics"
	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/problem"
	"github.com/nsg-ethz/netdice/pkg/telemetry"
)

// Options controls optional statistics collection and execution limits for
// an Explorer run. The zero value disables every optional feature and
// imposes no timeout.
type Options struct {
	// Timeout stops exploration early once elapsed wall-clock time exceeds
	// it and returns the current partial Solution; zero means no timeout.
	Timeout time.Duration
	// Logger receives debug and data records; a nil Logger discards them.
	Logger *telemetry.Logger
	// StatHot records, for each of the first 10 explored states, the
	// fraction of links that were hot (telemetry only, spec.md §9).
	StatHot bool
	// StatPrec records the current imprecision after every explored state
	// (telemetry only, spec.md §9).
	StatPrec bool
	// FullTrace records every explored state and its forwarding graph as
	// Data records, for offline comparison against ReferenceExplorer.
	FullTrace bool
}

func (o Options) logger() *telemetry.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return telemetry.Discard()
}

// Explorer runs the best-first failure exploration of spec.md §4.1 against
// one Problem instance. Not safe for concurrent use, and ExploreAll must be
// called at most once per instance (spec.md §5: "re-entrancy is not
// supported").
type Explorer struct {
	problem *problem.Problem
	igpP    *igp.Provider
	opts    Options

	queue     priorityQueue
	seq       int
	prevState model.State
	timedOut  bool
}

// New constructs an Explorer for p, building the IGP provider from p's
// border routers and static routes. opts configures optional instrumentation
// and a timeout; the zero Options value runs with neither.
func New(p *problem.Problem, opts Options) *Explorer {
	borderNodes := make([]int, 0, len(p.BgpConfig.BorderRouters))
	for _, br := range p.BgpConfig.BorderRouters {
		borderNodes = append(borderNodes, br.AssignedNode())
	}
	return &Explorer{
		problem: p,
		igpP:    igp.NewProvider(p, borderNodes, p.StaticRoutes),
		opts:    opts,
	}
}

// TimedOut reports whether the most recent ExploreAll call returned early
// because of a timeout.
func (e *Explorer) TimedOut() bool { return e.timedOut }

// ExploreAll runs exploration to completion (imprecision below the
// problem's target precision) or until the configured timeout elapses,
// returning the resulting Solution. A non-nil error indicates a fatal
// subcomponent failure (spec.md §7, in particular BGP non-convergence); the
// returned Solution in that case reflects whatever mass had been
// accumulated and should not be trusted. The network graph is restored to
// "all links up" before returning either way, so the Problem instance may be
// reused (spec.md §5).
func (e *Explorer) ExploreAll() (*problem.Solution, error) {
	log := e.opts.logger()
	sol := problem.NewSolution()

	start := time.Now()
	e.queue = nil
	e.seq = 0
	e.timedOut = false
	e.prevState = make(model.State, e.problem.NumLinks())
	for i := range e.prevState {
		e.prevState[i] = -1
	}
	e.push(e.prevState.Clone(), 1.0)

	var runErr error
	for len(e.queue) > 0 && sol.PExplored.Invert().Val() >= e.problem.TargetPrecision {
		item := heap.Pop(&e.queue).(*queueItem)
		if err := e.explore(item.state, sol, log); err != nil {
			runErr = err
			break
		}

		if e.opts.Timeout > 0 && time.Since(start) > e.opts.Timeout {
			e.timedOut = true
			log.Warn("exploration timed out!")
			log.Data("timeout_after_seconds", e.opts.Timeout.Seconds())
			break
		}
	}
	e.restoreGraph()

	if e.opts.FullTrace && runErr == nil {
		log.Data("finished_smart", map[string]any{"p_property": sol.PProperty.Val()})
	}
	return sol, runErr
}

func (e *Explorer) push(state model.State, p float64) {
	heap.Push(&e.queue, &queueItem{negProb: -p, seq: e.seq, state: state})
	e.seq++
}

// updateGraph diffs state against the previously applied state and toggles
// only the links that changed, so the driver never rebuilds the graph from
// scratch per explored state.
func (e *Explorer) updateGraph(state model.State) {
	for i, v := range state {
		if v != 0 && e.prevState[i] == 0 {
			e.problem.AddLink(i)
		} else if v == 0 && e.prevState[i] != 0 {
			e.problem.RemoveLink(i)
		}
		e.prevState[i] = v
	}
}

func (e *Explorer) restoreGraph() {
	for i, v := range e.prevState {
		if v == 0 {
			e.problem.AddLink(i)
		}
	}
}

func (e *Explorer) explore(state model.State, sol *problem.Solution, log *telemetry.Logger) error {
	log.Debug("exploring: %v", state)

	e.updateGraph(state)
	func() {
		defer metrics.Timer(metrics.IgpRecompute)()
		e.igpP.Recompute()
	}()

	hot := newEdgeSet()
	fwGraphs := make(map[model.Flow]*model.FwGraph)
	for _, flow := range e.problem.Property.Flows() {
		var bgpErr error
		func() {
			defer metrics.Timer(metrics.BgpConvergence)()
			bgpErr = e.setupPartitionRunBgp(flow)
		}()
		if bgpErr != nil {
			return fmt.Errorf("explorer: flow %s: %w", flow, bgpErr)
		}
		var fwg *model.FwGraph
		var decisionPoints []int
		func() {
			defer metrics.Timer(metrics.FwGraphBuild)()
			fwg, decisionPoints = buildFwGraph(e.problem, e.igpP, e.problem.NumNodes(), flow)
		}()
		fwGraphs[flow] = fwg
		log.Debug("computed forwarding graph: %v", fwg)
		func() {
			defer metrics.Timer(metrics.HotEdges)()
			addHotEdgesForFlow(e.problem.BgpConfig, e.problem.Bgp, e.igpP, flow, fwg, decisionPoints, hot)
		}()
	}

	for edge := range hot {
		linkID, ok := e.problem.LinkIDForEdge(edge[0], edge[1])
		if !ok || state[linkID] != -1 {
			continue
		}
		state[linkID] = 0
		pState := e.problem.FailureModel.GetStateProb(state)
		e.push(state.Clone(), pState.Val())
		state[linkID] = 1
	}

	pState := e.problem.FailureModel.GetStateProb(state)
	sol.PExplored = sol.PExplored.Add(pState)
	log.Debug("checking property for fw graphs: %v", fwGraphs)
	if e.problem.Property.Check(fwGraphs) {
		log.Debug(" -> HOLDS")
		sol.PProperty = sol.PProperty.Add(pState)
	} else {
		log.Debug(" -> DOES NOT HOLD")
	}
	sol.NumExplored++

	log.Debug("current precision: %v", sol.PExplored.Invert().Val())
	if e.opts.StatPrec {
		log.Data("precision", sol.PExplored.Invert().Val())
	}
	if e.opts.StatHot && sol.NumExplored <= 10 {
		log.Data("fraction_hot", float64(len(hot))/float64(len(state)))
	}
	if e.opts.FullTrace {
		rec := map[string]any{"state": []int(state)}
		for _, flow := range e.problem.Property.Flows() {
			fwGraphs[flow].Normalize()
			rec["fw_graph"] = fwGraphs[flow].Next
			break
		}
		log.Data("explored_smart", rec)
	}
	return nil
}

func (e *Explorer) setupPartitionRunBgp(flow model.Flow) error {
	e.problem.Bgp.InitPartition(flow.Src, flow.Dst, e.problem.NumNodes(), e.igpP)
	if err := e.problem.Bgp.Run(); err != nil {
		return err
	}
	e.igpP.UpdateBgpNextHops(flow.Dst, bgpNextHopsToIgp(e.problem.Bgp.GetNextHopsForInternal()))
	return nil
}

// bgpNextHopsToIgp narrows a bgp.Router map down to the igp.NextHop subset
// the IGP layer needs, since the two interfaces are structurally compatible
// but not identical (bgp.Router carries protocol-internal methods too).
func bgpNextHopsToIgp(routers map[int]bgp.Router) map[int]igp.NextHop {
	out := make(map[int]igp.NextHop, len(routers))
	for node, r := range routers {
		if r == nil {
			continue
		}
		out[node] = r
	}
	return out
}
