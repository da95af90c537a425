// Package export renders topologies and forwarding graphs for offline
// inspection: JSON adjacency lists, Graphviz DOT, Mermaid diagrams, and
// static SVG/PNG snapshots. None of it influences exploration results
// (spec.md §7); it exists purely so a run can be debugged after the fact.
//
// Grounded on the teacher's pkg/export/graph_export.go (format dispatch
// shape, DOT/Mermaid generation, deterministic sorted output) and
// graph_snapshot.go (gg/svgo static rendering), generalized from an
// issue-dependency graph to a network topology / forwarding graph.
package export

import (
	"fmt"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/property"
)

// Format selects the textual export format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// TopologyResult is the JSON adjacency-list representation of a topology.
type TopologyResult struct {
	Nodes []TopologyNode `json:"nodes"`
	Links []TopologyLink `json:"links"`
}

// TopologyNode is one node in a TopologyResult.
type TopologyNode struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TopologyLink is one directed link cost pair in a TopologyResult.
type TopologyLink struct {
	U        int     `json:"u"`
	V        int     `json:"v"`
	UName    string  `json:"u_name"`
	VName    string  `json:"v_name"`
	WeightUV float64 `json:"weight_uv"`
	WeightVU float64 `json:"weight_vu"`
}

// Topology renders links as a JSON adjacency list, DOT, or Mermaid graph.
func Topology(format Format, numNodes int, links []model.Link, r *property.NameResolver) (string, error) {
	switch format {
	case FormatDOT:
		return topologyDOT(links, r), nil
	case FormatMermaid:
		return topologyMermaid(links, r), nil
	case FormatJSON, "":
		return topologyJSON(numNodes, links, r)
	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}
}

func nodeName(r *property.NameResolver, id int) string {
	if r == nil || id < 0 || id >= len(r.NodeNameForID) {
		return fmt.Sprintf("n%d", id)
	}
	return r.NodeNameForID[id]
}

func topologyJSON(numNodes int, links []model.Link, r *property.NameResolver) (string, error) {
	res := TopologyResult{Nodes: make([]TopologyNode, numNodes)}
	for i := 0; i < numNodes; i++ {
		res.Nodes[i] = TopologyNode{ID: i, Name: nodeName(r, i)}
	}
	for _, l := range links {
		res.Links = append(res.Links, TopologyLink{
			U: l.U, V: l.V,
			UName: nodeName(r, l.U), VName: nodeName(r, l.V),
			WeightUV: l.WeightUV, WeightVU: l.WeightVU,
		})
	}
	enc, err := gojson.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return string(enc), nil
}

func topologyDOT(links []model.Link, r *property.NameResolver) string {
	sorted := append([]model.Link(nil), links...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].U != sorted[j].U {
			return sorted[i].U < sorted[j].U
		}
		return sorted[i].V < sorted[j].V
	})

	var sb strings.Builder
	sb.WriteString("graph G {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=8];\n\n")
	seen := make(map[[2]int]bool)
	for _, l := range sorted {
		key := [2]int{l.U, l.V}
		if l.U > l.V {
			key = [2]int{l.V, l.U}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		sb.WriteString(fmt.Sprintf("    %q -- %q [label=\"%.1f/%.1f\"];\n",
			nodeName(r, l.U), nodeName(r, l.V), l.WeightUV, l.WeightVU))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func topologyMermaid(links []model.Link, r *property.NameResolver) string {
	sorted := append([]model.Link(nil), links...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].U != sorted[j].U {
			return sorted[i].U < sorted[j].U
		}
		return sorted[i].V < sorted[j].V
	})

	var sb strings.Builder
	sb.WriteString("graph LR\n")
	seen := make(map[[2]int]bool)
	for _, l := range sorted {
		key := [2]int{l.U, l.V}
		if l.U > l.V {
			key = [2]int{l.V, l.U}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		sb.WriteString(fmt.Sprintf("    n%d[%q] ---|\"%.1f/%.1f\"| n%d[%q]\n",
			l.U, nodeName(r, l.U), l.WeightUV, l.WeightVU, l.V, nodeName(r, l.V)))
	}
	return sb.String()
}

// ForwardingGraph renders one flow's forwarding graph (spec.md §4.4): every
// node's next-hop edges, with exits to the external sentinel rendered as a
// dangling arrow.
func ForwardingGraph(format Format, fwg *model.FwGraph, r *property.NameResolver) (string, error) {
	switch format {
	case FormatDOT:
		return fwgDOT(fwg, r), nil
	case FormatMermaid:
		return fwgMermaid(fwg, r), nil
	case FormatJSON, "":
		return fwgJSON(fwg, r)
	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}
}

type fwgEdge struct {
	From, To int
	Exit     bool
}

func fwgEdges(fwg *model.FwGraph) []fwgEdge {
	var edges []fwgEdge
	for u := 0; u < fwg.N; u++ {
		for _, v := range fwg.Next[u] {
			if v == model.ExitSentinel {
				edges = append(edges, fwgEdge{From: u, Exit: true})
			} else {
				edges = append(edges, fwgEdge{From: u, To: v})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func fwgJSON(fwg *model.FwGraph, r *property.NameResolver) (string, error) {
	type edgeJSON struct {
		From string `json:"from"`
		To   string `json:"to,omitempty"`
		Exit bool   `json:"exit,omitempty"`
	}
	out := struct {
		Src   string     `json:"src"`
		Dst   string     `json:"dst"`
		Edges []edgeJSON `json:"edges"`
	}{Src: nodeName(r, fwg.Src), Dst: fwg.Dst}

	for _, e := range fwgEdges(fwg) {
		ej := edgeJSON{From: nodeName(r, e.From), Exit: e.Exit}
		if !e.Exit {
			ej.To = nodeName(r, e.To)
		}
		out.Edges = append(out.Edges, ej)
	}
	enc, err := gojson.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return string(enc), nil
}

func fwgDOT(fwg *model.FwGraph, r *property.NameResolver) string {
	var sb strings.Builder
	sb.WriteString("digraph fwgraph {\n    rankdir=LR;\n")
	for _, e := range fwgEdges(fwg) {
		if e.Exit {
			sb.WriteString(fmt.Sprintf("    %q -> exit_%d [style=dashed];\n", nodeName(r, e.From), e.From))
		} else {
			sb.WriteString(fmt.Sprintf("    %q -> %q;\n", nodeName(r, e.From), nodeName(r, e.To)))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func fwgMermaid(fwg *model.FwGraph, r *property.NameResolver) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	for _, e := range fwgEdges(fwg) {
		if e.Exit {
			sb.WriteString(fmt.Sprintf("    n%d[%q] -.-> ext_%d((external))\n", e.From, nodeName(r, e.From), e.From))
		} else {
			sb.WriteString(fmt.Sprintf("    n%d[%q] --> n%d[%q]\n", e.From, nodeName(r, e.From), e.To, nodeName(r, e.To)))
		}
	}
	return sb.String()
}
