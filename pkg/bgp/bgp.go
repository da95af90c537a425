// Package bgp simulates per-destination BGP route selection over an
// internal topology of iBGP/eBGP sessions, used by the exploration engine to
// derive forwarding next hops under a concrete link failure state.
package bgp

import (
	"errors"
	"fmt"
)

// ErrNonConvergence is returned by Protocol.Run when the simulated BGP
// session fails to stabilize within the round cap.
var ErrNonConvergence = errors.New("bgp: did not converge within round cap")

const maxRounds = 100

// Announcement is an external route announcement, with LocalPref negated so
// that lexicographically-smaller attribute vectors are preferred uniformly
// across all four attributes: [-LocalPref, ASPL, Origin, MED].
type Announcement struct {
	Attrs [4]int
}

// EqTop3 reports whether a and other agree on LocalPref, ASPL, and Origin
// (the attributes considered before MED in the Top-3 pre-filter).
func (a Announcement) EqTop3(other Announcement) bool {
	return a.Attrs[0] == other.Attrs[0] && a.Attrs[1] == other.Attrs[1] && a.Attrs[2] == other.Attrs[2]
}

// BetterTop3 reports whether a is strictly preferred over other by the
// Top-3 pre-filter's lexicographic order.
func (a Announcement) BetterTop3(other Announcement) bool {
	if a.Attrs[0] != other.Attrs[0] {
		return a.Attrs[0] < other.Attrs[0]
	}
	if a.Attrs[1] != other.Attrs[1] {
		return a.Attrs[1] < other.Attrs[1]
	}
	return a.Attrs[2] < other.Attrs[2]
}

func (a Announcement) MED() int    { return a.Attrs[3] }
func (a Announcement) String() string { return fmt.Sprintf("A%v", a.Attrs) }

// Router is a BGP speaker: either an external peer relaying one origin
// announcement, or an internal router running local route selection.
type Router interface {
	ID() int
	Name() string
	IsExternal() bool
	IsBorderRouter() bool
	// AssignedNode is the topology node this router sits on. Meaningless
	// (returns -1) for external routers, which sit outside the topology.
	AssignedNode() int

	localBgpStep(cp CostProvider)
	prepareNextRound()
	clear()
	receive(msg *Msg)
	isConverged() bool
}

// CostProvider supplies IGP costs between topology nodes, satisfied by
// *igp.Provider without an import (avoids a bgp<->igp import cycle, per the
// flat index/interface relation the original keeps between these modules).
type CostProvider interface {
	GetIgpCost(u, v int) float64
}

// ReachProvider reports IGP-level reachability between topology nodes,
// satisfied by *igp.Provider.
type ReachProvider interface {
	IsReachable(u, v int) bool
}

// Msg is a BGP update message as propagated between routers.
type Msg struct {
	MED      int
	Peer     Router
	NextHop  Router
	RemoteAS int
}

func (m *Msg) Copy() *Msg {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func (m *Msg) Equal(other *Msg) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.MED == other.MED && m.Peer.ID() == other.Peer.ID() &&
		m.NextHop.ID() == other.NextHop.ID() && m.RemoteAS == other.RemoteAS
}

func (m *Msg) String() string {
	return fmt.Sprintf("Msg[%d, %v, %v, %d]", m.MED, m.Peer, m.NextHop, m.RemoteAS)
}

// Better reports whether m should be preferred over other. thisIgpCost and
// otherIgpCost are the IGP cost from the comparing router to each message's
// next hop, with -1 as the sentinel for externally-learned routes (always
// preferred ahead of any internal IGP cost).
func (m *Msg) Better(other *Msg, thisIgpCost, otherIgpCost float64) bool {
	if m.RemoteAS == other.RemoteAS {
		if m.MED != other.MED {
			return m.MED < other.MED
		}
		if thisIgpCost != otherIgpCost {
			return thisIgpCost < otherIgpCost
		}
		return m.Peer.ID() < other.Peer.ID()
	}
	if thisIgpCost != otherIgpCost {
		return thisIgpCost < otherIgpCost
	}
	return m.Peer.ID() < other.Peer.ID()
}

// base holds the fields and identity semantics common to every router.
type base struct {
	id   int
	asID int
	name string
}

func (b *base) ID() int      { return b.id }
func (b *base) Name() string { return b.name }
func (b *base) String() string {
	return "R-" + b.name
}

func newName(id int, name string) string {
	if name == "" {
		return fmt.Sprintf("R-%d", id)
	}
	return name
}

// ExtRouter is an external BGP peer: the source of one origin announcement,
// relayed to its single internal peer.
type ExtRouter struct {
	base
	Peer *IntRouter
	msg  *Msg
}

// NewExtRouter constructs an external router peered with an internal router.
// peer's IsBorderRouter flag is set implicitly, mirroring the original's
// `peer._is_border_router = True` side effect.
func NewExtRouter(id, asID int, peer *IntRouter, name string) *ExtRouter {
	r := &ExtRouter{base: base{id: id, asID: asID, name: newName(id, name)}, Peer: peer}
	peer.isBorderRouter = true
	return r
}

func (r *ExtRouter) IsExternal() bool     { return true }
func (r *ExtRouter) IsBorderRouter() bool { return false }
func (r *ExtRouter) AssignedNode() int    { return -1 }

// RegisterMed sets the announcement this router re-originates toward its
// peer for the current BGP run, with itself as both peer and next hop.
func (r *ExtRouter) RegisterMed(med int) {
	r.msg = &Msg{MED: med, Peer: r, NextHop: r, RemoteAS: r.asID}
}

func (r *ExtRouter) localBgpStep(cp CostProvider) {
	if r.msg != nil {
		r.Peer.receive(r.msg)
	}
}

// prepareNextRound is a no-op: an external router has no inbox, it only
// re-sends its registered announcement.
func (r *ExtRouter) prepareNextRound() {}

func (r *ExtRouter) clear()         { r.msg = nil }
func (r *ExtRouter) isConverged() bool { return true }

// IntRouter is an internal BGP router assigned to a topology node, running
// local route selection and re-announcing to its iBGP/eBGP peers and route
// reflector clients.
type IntRouter struct {
	base
	assignedNode   int
	Peers          []*IntRouter
	RrClients      []*IntRouter
	isBorderRouter bool

	msgIn     []*Msg
	msg       []*Msg
	lastSent  *Msg
	lastBest  *Msg
	converged bool
}

// NewIntRouter constructs an internal router sitting on assignedNode.
func NewIntRouter(assignedNode, id, asID int, name string) *IntRouter {
	return &IntRouter{
		base:         base{id: id, asID: asID, name: newName(id, name)},
		assignedNode: assignedNode,
	}
}

func (r *IntRouter) IsExternal() bool       { return false }
func (r *IntRouter) IsBorderRouter() bool   { return r.isBorderRouter }
func (r *IntRouter) AssignedNode() int      { return r.assignedNode }
func (r *IntRouter) IsRouteReflector() bool { return len(r.RrClients) > 0 }

// GetSelectedNextHop returns the router selected as next hop by the most
// recent local route selection, or nil if none was selected.
func (r *IntRouter) GetSelectedNextHop() Router {
	if r.lastBest == nil {
		return nil
	}
	return r.lastBest.NextHop
}

func (r *IntRouter) igpCostForMsg(msg *Msg, cp CostProvider) float64 {
	if msg.NextHop.IsExternal() {
		return -1
	}
	return cp.GetIgpCost(r.assignedNode, msg.NextHop.AssignedNode())
}

// localBgpStep runs route selection against the messages received in the
// previous round, and -- unless send is false -- re-announces the result to
// every peer and route-reflector client other than the one it came from.
func (r *IntRouter) localBgpStep(cp CostProvider) {
	r.localBgpStepSend(cp, true)
}

func (r *IntRouter) localBgpStepSend(cp CostProvider, send bool) {
	var best *Msg
	for _, m := range r.msg {
		if best == nil || m.Better(best, r.igpCostForMsg(m, cp), r.igpCostForMsg(best, cp)) {
			best = m
		}
	}
	r.lastBest = best
	if !send {
		return
	}

	out := best
	if out != nil {
		c := out.Copy()
		fromPeer := c.Peer
		c.Peer = r
		if c.NextHop.IsExternal() {
			c.NextHop = r
		}
		for _, p := range r.Peers {
			if p.ID() != fromPeer.ID() {
				p.receive(c)
			}
		}
		for _, p := range r.RrClients {
			if p.ID() != fromPeer.ID() {
				p.receive(c)
			}
		}
		out = c
	}
	r.converged = r.lastSent.Equal(out)
	r.lastSent = out
}

func (r *IntRouter) prepareNextRound() {
	r.msg = r.msgIn
	r.msgIn = nil
}

func (r *IntRouter) clear() {
	r.msg = nil
	r.msgIn = nil
	r.lastSent = nil
	r.lastBest = nil
	r.converged = false
}

func (r *IntRouter) receive(msg *Msg) {
	r.msgIn = append(r.msgIn, msg)
}

func (r *IntRouter) isConverged() bool { return r.converged }
