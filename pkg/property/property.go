// Package property implements the forwarding-behavior predicates the
// exploration engine checks against a concrete network state's forwarding
// graphs, plus a factory for constructing them from parsed input.
package property

import (
	"fmt"

	"github.com/nsg-ethz/netdice/pkg/model"
)

// NameResolver translates between the node names used in input files and the
// dense integer node IDs used internally.
type NameResolver struct {
	NodeNameForID []string
	IDForNodeName map[string]int
}

// NewNameResolver builds a resolver from an ordered list of node names; the
// node's index in the list is its ID.
func NewNameResolver(names []string) *NameResolver {
	r := &NameResolver{
		NodeNameForID: names,
		IDForNodeName: make(map[string]int, len(names)),
	}
	for id, n := range names {
		r.IDForNodeName[n] = id
	}
	return r
}

// FlowString renders a flow using resolved node names, for human-readable
// property descriptions.
func (r *NameResolver) FlowString(f model.Flow) string {
	return fmt.Sprintf("[src: %s, dst: %s]", r.NodeNameForID[f.Src], f.Dst)
}

// Property is a predicate over the forwarding graphs of the flows it cares
// about, plus a human-readable rendering for CLI output.
type Property interface {
	// Flows lists every flow whose forwarding graph Check needs.
	Flows() []model.Flow
	// Check evaluates the property given the forwarding graph for every flow
	// in Flows(), keyed by flow.
	Check(fwGraphs map[model.Flow]*model.FwGraph) bool
	// HumanReadable renders the property for CLI/log output.
	HumanReadable(r *NameResolver) string
}
