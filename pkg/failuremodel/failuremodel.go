// Package failuremodel assigns a probability mass to every concrete network
// state the explorer visits, under a chosen independent-link or
// correlated-node-and-link failure model.
package failuremodel

import (
	"fmt"

	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/prob"
)

// Model assigns a probability to a (possibly partial) network state. State
// entries may be -1 (undecided); GetStateProb then returns the probability
// mass of every concrete state consistent with the decided entries.
type Model interface {
	// InitializeForTopology prepares the model for a topology of the given
	// size. Must be called once before GetStateProb.
	InitializeForTopology(numNodes int, links []model.Link)
	GetStateProb(state model.State) prob.Prob
}

// LinkFailureModel treats every link as failing independently with a fixed
// probability, decoupled from the state of its endpoint nodes.
type LinkFailureModel struct {
	PLinkFailure prob.Prob
}

// NewLinkFailureModel constructs a LinkFailureModel with the given
// per-link failure probability.
func NewLinkFailureModel(pLinkFailure prob.Prob) *LinkFailureModel {
	return &LinkFailureModel{PLinkFailure: pLinkFailure}
}

// InitializeForTopology is a no-op: link failures are independent, so no
// topology-wide structure needs to be built up front.
func (m *LinkFailureModel) InitializeForTopology(numNodes int, links []model.Link) {}

// GetStateProb returns the product, over every decided link, of its
// up-probability or down-probability as appropriate.
func (m *LinkFailureModel) GetStateProb(state model.State) prob.Prob {
	res := prob.One()
	for _, v := range state {
		switch v {
		case -1:
			continue
		case 1:
			res = res.Mul(m.PLinkFailure.Invert())
		case 0:
			res = res.Mul(m.PLinkFailure)
		}
	}
	return res
}

// NodeFailureModel models node failures as the root cause: a link can only
// be up if both of its endpoint nodes are up. Because links sharing a node
// are then correlated, GetStateProb answers via exact Bayesian-network
// inference rather than a simple product.
type NodeFailureModel struct {
	PLinkFailure prob.Prob
	PNodeFailure prob.Prob

	nodeVars map[string]*bnNode
	linkVars []*bnNode
}

// NewNodeFailureModel constructs a NodeFailureModel with the given per-link
// and per-node failure probabilities.
func NewNodeFailureModel(pLinkFailure, pNodeFailure prob.Prob) *NodeFailureModel {
	return &NodeFailureModel{PLinkFailure: pLinkFailure, PNodeFailure: pNodeFailure}
}

func nodeVarName(node int) string { return fmt.Sprintf("node%d", node) }
func linkVarName(linkID int) string { return fmt.Sprintf("link%d", linkID) }

// InitializeForTopology builds the Bayesian network: one parentless node
// variable per topology node, and one link variable per link conditioned on
// its two endpoint node variables.
func (m *NodeFailureModel) InitializeForTopology(numNodes int, links []model.Link) {
	m.nodeVars = make(map[string]*bnNode, numNodes+len(links))
	for i := 0; i < numNodes; i++ {
		name := nodeVarName(i)
		m.nodeVars[name] = &bnNode{
			name: name,
			cpt:  []float64{m.PNodeFailure.Val(), m.PNodeFailure.Invert().Val()},
		}
	}

	m.linkVars = make([]*bnNode, len(links))
	for i, l := range links {
		name := linkVarName(i)
		n := &bnNode{
			name:    name,
			parents: []string{nodeVarName(l.U), nodeVarName(l.V)},
			// Row order is (node U, node V, link) with link fastest: a link
			// can only be up ("1") if both endpoints are up.
			cpt: []float64{
				1.0, 0.0, 1.0, 0.0,
				1.0, 0.0, m.PLinkFailure.Val(), m.PLinkFailure.Invert().Val(),
			},
		}
		m.linkVars[i] = n
		m.nodeVars[name] = n
	}
}

// GetStateProb computes P(state) by restricting the network to the
// Bayesian-network ancestors of every decided link and running variable
// elimination over the remaining (node) variables.
func (m *NodeFailureModel) GetStateProb(state model.State) prob.Prob {
	evidence := make(map[string]int)
	needed := make(map[string]*bnNode)

	var include func(n *bnNode)
	include = func(n *bnNode) {
		if _, ok := needed[n.name]; ok {
			return
		}
		needed[n.name] = n
		for _, pname := range n.parents {
			include(m.nodeVars[pname])
		}
	}

	for i, v := range state {
		if v == -1 {
			continue
		}
		ln := m.linkVars[i]
		evidence[ln.name] = v
		include(ln)
	}

	if len(evidence) == 0 {
		return prob.One()
	}
	return prob.New(computeEventProb(needed, evidence))
}
