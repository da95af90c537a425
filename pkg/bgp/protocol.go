package bgp

// IgpProvider is the combined cost/reachability view the protocol needs from
// the IGP layer to run one partition, satisfied by *igp.Provider.
type IgpProvider interface {
	CostProvider
	ReachProvider
}

// Config is a fully-wired BGP topology: the internal and external routers
// with all their sessions already configured, plus the external
// announcements available per destination.
type Config struct {
	IntRouters []*IntRouter
	ExtRouters []*ExtRouter
	// ExtAnns[dst][extRouter] is the announcement extRouter sends for dst.
	ExtAnns map[string]map[*ExtRouter]Announcement

	ActiveRouters  []Router
	PassiveRouters []*IntRouter
	BorderRouters  []*IntRouter

	intRouterForNode map[int]*IntRouter
}

// NewConfig classifies routers into active (externals, border routers, and
// route reflectors -- the ones that participate in redistribution) versus
// passive (internal routers that only ever select a best route, without
// propagating it further).
func NewConfig(intRouters []*IntRouter, extRouters []*ExtRouter, extAnns map[string]map[*ExtRouter]Announcement) *Config {
	c := &Config{
		IntRouters:       intRouters,
		ExtRouters:       extRouters,
		ExtAnns:          extAnns,
		intRouterForNode: make(map[int]*IntRouter, len(intRouters)),
	}
	for _, er := range extRouters {
		c.ActiveRouters = append(c.ActiveRouters, er)
	}
	for _, ir := range intRouters {
		c.intRouterForNode[ir.AssignedNode()] = ir
		switch {
		case ir.IsBorderRouter():
			c.ActiveRouters = append(c.ActiveRouters, ir)
			c.BorderRouters = append(c.BorderRouters, ir)
		case ir.IsRouteReflector():
			c.ActiveRouters = append(c.ActiveRouters, ir)
		default:
			c.PassiveRouters = append(c.PassiveRouters, ir)
		}
	}
	return c
}

// GetBgpRouterForNode returns the internal router assigned to node, or nil.
func (c *Config) GetBgpRouterForNode(node int) *IntRouter {
	return c.intRouterForNode[node]
}

// Protocol runs BGP route selection for one flow's network partition at a
// time. Call InitPartition then Run for each flow being analyzed.
type Protocol struct {
	config *Config

	allInPartition     []Router
	activeInPartition  []Router
	passiveInPartition []*IntRouter
	extInPartition     []*ExtRouter
	rrInPartition      []*IntRouter
	brTop3InPartition  map[int]*IntRouter

	extBgpClusters [][]*ExtRouter

	costProvider CostProvider
}

// NewProtocol constructs a Protocol bound to a fixed BGP topology.
func NewProtocol(config *Config) *Protocol {
	return &Protocol{config: config}
}

// RrInPartition returns the route reflectors reachable in the current
// partition.
func (p *Protocol) RrInPartition() []*IntRouter { return p.rrInPartition }

// BrTop3InPartition returns the border routers whose announcement survived
// the Top-3 pre-filter in the current partition.
func (p *Protocol) BrTop3InPartition() []*IntRouter {
	out := make([]*IntRouter, 0, len(p.brTop3InPartition))
	for _, r := range p.brTop3InPartition {
		out = append(out, r)
	}
	return out
}

func (p *Protocol) determinePartition(src int, ip IgpProvider) {
	p.activeInPartition = nil
	p.passiveInPartition = nil
	p.allInPartition = nil
	p.extInPartition = nil
	p.rrInPartition = nil

	for _, r := range p.config.ActiveRouters {
		r.clear()
		if r.IsExternal() {
			er := r.(*ExtRouter)
			if ip.IsReachable(src, er.Peer.AssignedNode()) {
				p.activeInPartition = append(p.activeInPartition, r)
				p.allInPartition = append(p.allInPartition, r)
				p.extInPartition = append(p.extInPartition, er)
			}
		} else {
			ir := r.(*IntRouter)
			if ip.IsReachable(src, ir.AssignedNode()) {
				p.activeInPartition = append(p.activeInPartition, r)
				p.allInPartition = append(p.allInPartition, r)
				if ir.IsRouteReflector() {
					p.rrInPartition = append(p.rrInPartition, ir)
				}
			}
		}
	}
	for _, r := range p.config.PassiveRouters {
		r.clear()
		r.converged = true
		if ip.IsReachable(src, r.AssignedNode()) {
			p.passiveInPartition = append(p.passiveInPartition, r)
			p.allInPartition = append(p.allInPartition, r)
		}
	}
}

func (p *Protocol) constructBgpClustersDFS(src int, ip IgpProvider, cur *IntRouter, curComponent int, visited []bool, components []int) {
	if visited[cur.AssignedNode()] {
		return
	}
	visited[cur.AssignedNode()] = true
	components[cur.AssignedNode()] = curComponent

	for _, peer := range cur.RrClients {
		if ip.IsReachable(src, peer.AssignedNode()) {
			p.constructBgpClustersDFS(src, ip, peer, curComponent, visited, components)
		}
	}
	for _, peer := range cur.Peers {
		if ip.IsReachable(src, peer.AssignedNode()) {
			p.constructBgpClustersDFS(src, ip, peer, curComponent, visited, components)
		}
	}
}

// constructBgpClusters groups mutually-reachable (via BGP sessions, within
// the current IGP partition) internal routers into clusters, then attaches
// each external router to the cluster of its internal peer. Two BGP routers
// may be IGP-reachable yet sit in different clusters if the only BGP session
// path between them runs through a router outside the partition.
func (p *Protocol) constructBgpClusters(src int, ip IgpProvider, numNodes int) {
	visited := make([]bool, numNodes)
	components := make([]int, numNodes)
	for i := range components {
		components[i] = -1
	}
	curComponent := 0
	for _, r := range p.activeInPartition {
		if r.IsExternal() {
			continue
		}
		ir := r.(*IntRouter)
		if !visited[ir.AssignedNode()] {
			p.constructBgpClustersDFS(src, ip, ir, curComponent, visited, components)
			curComponent++
		}
	}

	p.extBgpClusters = make([][]*ExtRouter, curComponent)
	for _, er := range p.extInPartition {
		myComponent := components[er.Peer.AssignedNode()]
		p.extBgpClusters[myComponent] = append(p.extBgpClusters[myComponent], er)
	}
}

// eliminateNonTop3 keeps, within each BGP cluster, only the announcements
// tied for best on LocalPref/ASPL/Origin (MED and the remaining tie-break
// only apply once routes have been redistributed inside the network).
func (p *Protocol) eliminateNonTop3(dst string) map[*ExtRouter]Announcement {
	filtered := make(map[*ExtRouter]Announcement)
	anns := p.config.ExtAnns[dst]
	for _, cluster := range p.extBgpClusters {
		if cluster == nil {
			continue
		}
		var best *Announcement
		var bestRouters []*ExtRouter
		for _, r := range cluster {
			a, ok := anns[r]
			if !ok {
				continue
			}
			switch {
			case best == nil || a.BetterTop3(*best):
				ann := a
				best = &ann
				bestRouters = []*ExtRouter{r}
			case a.EqTop3(*best):
				bestRouters = append(bestRouters, r)
			}
		}
		for _, r := range bestRouters {
			filtered[r] = anns[r]
		}
	}
	return filtered
}

// InitPartition determines the IGP partition reachable from src, groups it
// into BGP clusters, and applies the Top-3 pre-filter to the external
// announcements for dst. Must precede Run.
func (p *Protocol) InitPartition(src int, dst string, numNodes int, ip IgpProvider) {
	p.determinePartition(src, ip)
	p.constructBgpClusters(src, ip, numNodes)

	p.brTop3InPartition = make(map[int]*IntRouter)
	for r, ann := range p.eliminateNonTop3(dst) {
		r.RegisterMed(ann.MED())
		p.brTop3InPartition[r.Peer.AssignedNode()] = r.Peer
	}
	p.costProvider = ip
}

// Run executes the BGP protocol to convergence for the partition set up by
// InitPartition. Returns ErrNonConvergence if the simulation exceeds the
// round cap, which indicates a misconfigured (diverging) BGP topology rather
// than a recoverable runtime condition.
func (p *Protocol) Run() error {
	for _, r := range p.activeInPartition {
		if r.IsExternal() {
			r.localBgpStep(p.costProvider)
		}
	}

	nofRounds := 0
	converged := false
	for !converged {
		nofRounds++
		if nofRounds > maxRounds {
			return ErrNonConvergence
		}
		converged = true
		for _, r := range p.allInPartition {
			r.prepareNextRound()
			converged = converged && r.isConverged()
		}
		if !converged {
			for _, r := range p.activeInPartition {
				r.localBgpStep(p.costProvider)
			}
		}
	}

	for _, r := range p.passiveInPartition {
		r.localBgpStepSend(p.costProvider, false)
	}
	return nil
}

// GetNextHopsForInternal returns, for every internal router in the current
// partition, the next hop it selected (nil if none was selected). Must be
// called after Run.
func (p *Protocol) GetNextHopsForInternal() map[int]Router {
	data := make(map[int]Router)
	for _, r := range p.allInPartition {
		if r.IsExternal() {
			continue
		}
		ir := r.(*IntRouter)
		data[ir.AssignedNode()] = ir.GetSelectedNextHop()
	}
	return data
}
