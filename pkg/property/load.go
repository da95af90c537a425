package property

import (
	"fmt"
	"strings"

	"github.com/nsg-ethz/netdice/pkg/model"
)

type linkKey struct{ u, v int }

// loadForLinks computes, for every flow's forwarding graph, the per-link
// load induced by splitting the flow's volume evenly across ECMP next hops
// at every fanout point. Within loops, the load may not be accurate: load is
// assumed to be zero along loops that do not cross the flow's source.
func loadForLinks(flows []model.Flow, volumes []float64, fwGraphs map[model.Flow]*model.FwGraph) map[linkKey]float64 {
	linkLoad := make(map[linkKey]float64)
	for i, flow := range flows {
		fwg := fwGraphs[flow]
		n := fwg.N

		inDegrees := make([]int, n)
		inDegrees[flow.Src] = 1 // artificial in-degree for the source
		for u := 0; u < n; u++ {
			for _, next := range fwg.Next[u] {
				if next != model.ExitSentinel {
					inDegrees[next]++
				}
			}
		}

		loadAt := make([]float64, n)
		loadAt[flow.Src] += volumes[i]
		stack := []int{flow.Src}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			inDegrees[cur]--

			if fwg.ExitsAt(cur) {
				continue
			}
			if inDegrees[cur] == 0 {
				var loadPerOutgoing float64
				if len(fwg.Next[cur]) > 0 {
					loadPerOutgoing = loadAt[cur] / float64(len(fwg.Next[cur]))
				}
				for _, next := range fwg.Next[cur] {
					loadAt[next] += loadPerOutgoing
					linkLoad[linkKey{cur, next}] += loadPerOutgoing
					stack = append(stack, next)
				}
			}
		}
	}
	return linkLoad
}

func flowVolumeString(flows []model.Flow, volumes []float64, r *NameResolver) string {
	var b strings.Builder
	for i, f := range flows {
		fmt.Fprintf(&b, "%s*%v ", r.FlowString(f), volumes[i])
	}
	return b.String()
}

// Congestion holds iff the total load carried by the given flows on link
// (U,V) is at most Threshold.
type Congestion struct {
	InFlows    []model.Flow
	Volumes   []float64
	U, V      int
	Threshold float64
}

func (p *Congestion) Flows() []model.Flow { return p.InFlows }

func (p *Congestion) HumanReadable(r *NameResolver) string {
	return fmt.Sprintf("Congestion(%s, (%d, %d), %v)", flowVolumeString(p.InFlows, p.Volumes, r), p.U, p.V, p.Threshold)
}

func (p *Congestion) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	linkLoad := loadForLinks(p.InFlows, p.Volumes, fwGraphs)
	load, ok := linkLoad[linkKey{p.U, p.V}]
	return !ok || load <= p.Threshold
}

// Balanced holds iff the maximum difference in load across the given links
// (under the same volume-splitting load model as Congestion) is at most
// Delta.
type Balanced struct {
	InFlows  []model.Flow
	Volumes []float64
	Links   [][2]int
	Delta   float64
}

func (p *Balanced) Flows() []model.Flow { return p.InFlows }

func (p *Balanced) HumanReadable(r *NameResolver) string {
	var links strings.Builder
	for _, l := range p.Links {
		fmt.Fprintf(&links, "(%d, %d) ", l[0], l[1])
	}
	return fmt.Sprintf("Balanced(%s, [%s], %v)", flowVolumeString(p.InFlows, p.Volumes, r), links.String(), p.Delta)
}

func (p *Balanced) Check(fwGraphs map[model.Flow]*model.FwGraph) bool {
	linkLoad := loadForLinks(p.InFlows, p.Volumes, fwGraphs)
	var minLoad, maxLoad float64
	first := true
	for _, l := range p.Links {
		load := linkLoad[linkKey{l[0], l[1]}]
		if first || load < minLoad {
			minLoad = load
		}
		if first || load > maxLoad {
			maxLoad = load
		}
		first = false
	}
	return maxLoad-minLoad <= p.Delta
}
