// Package input parses the JSON topology/query/announcement input files
// described in spec.md §6 (plus the alternate whitespace topology format)
// into ready-to-run problem.Problem instances, one per property.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/nsg-ethz/netdice/pkg/bgp"
	"github.com/nsg-ethz/netdice/pkg/failuremodel"
	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/prob"
	"github.com/nsg-ethz/netdice/pkg/problem"
	"github.com/nsg-ethz/netdice/pkg/property"
	"github.com/nsg-ethz/netdice/pkg/telemetry"
)

// InputVersion is the only input format version this parser accepts; an
// unexpected version is a warning, not a hard failure (spec.md §6 "version
// field gates compatibility").
const InputVersion = "0.1"

// ErrMalformed wraps every parse failure, satisfying spec.md §7's "input
// malformed" error kind; check with errors.Is.
var ErrMalformed = errors.New("input: malformed")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

type topologyData struct {
	File         string              `json:"file"`
	Nodes        []string            `json:"nodes"`
	Links        []linkData          `json:"links"`
	StaticRoutes []staticRouteData   `json:"static_routes"`
	Bgp          bgpConfigData       `json:"bgp"`
}

type linkData struct {
	U    string  `json:"u"`
	V    string  `json:"v"`
	WUV  float64 `json:"w_uv"`
	WVU  float64 `json:"w_vu"`
}

type staticRouteData struct {
	Dst string `json:"dst"`
	U   string `json:"u"`
	V   string `json:"v"`
}

type bgpConfigData struct {
	AS               int                    `json:"as"`
	Auto             string                 `json:"auto"`
	InternalRouters  []internalRouterData   `json:"internal_routers"`
	ExternalRouters  []externalRouterData   `json:"external_routers"`
	InternalSessions []internalSessionData  `json:"internal_sessions"`
}

type internalRouterData struct {
	Node   string `json:"node"`
	PeerID int    `json:"peer_id"`
}

type externalRouterData struct {
	Name      string `json:"name"`
	PeerID    int    `json:"peer_id"`
	AS        int    `json:"as"`
	PeersWith string `json:"peers_with"`
}

type internalSessionData struct {
	RouteReflector string `json:"route_reflector"`
	Client         string `json:"client"`
	Peer1          string `json:"peer_1"`
	Peer2          string `json:"peer_2"`
}

type announcementData struct {
	LP     int `json:"lp"`
	ASPL   int `json:"aspl"`
	Origin int `json:"origin"`
	MED    int `json:"med"`
}

type failureModelData struct {
	Type          string  `json:"type"`
	PLinkFailure  float64 `json:"p_link_failure"`
	PNodeFailure  float64 `json:"p_node_failure"`
}

type inputData struct {
	Version       string                                  `json:"version"`
	Topology      topologyData                            `json:"topology"`
	Failures      failureModelData                        `json:"failures"`
	Properties    []gojson.RawMessage                      `json:"properties"`
	Announcements map[string]map[string]announcementData  `json:"announcements"`
}

// Problems parses inputFile (and, if non-empty, a separate queryFile holding
// only "properties"/"announcements") and returns one Problem per property,
// in file order, plus the NameResolver mapping node ids back to names (for
// CLI/log output). log receives a non-fatal warning when either file's
// version does not match InputVersion (spec.md §6); a nil log discards it.
func Problems(inputFile, queryFile string, log *telemetry.Logger) ([]*problem.Problem, *property.NameResolver, error) {
	if log == nil {
		log = telemetry.Discard()
	}
	raw, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, nil, malformed("could not open input file %q: %v", inputFile, err)
	}
	var data inputData
	if err := gojson.Unmarshal(raw, &data); err != nil {
		return nil, nil, malformed("error parsing input file %q: %v", inputFile, err)
	}
	if data.Version != InputVersion {
		log.Warn("input data version not supported")
	}

	if queryFile != "" {
		qraw, err := os.ReadFile(queryFile)
		if err != nil {
			return nil, nil, malformed("could not open query file %q: %v", queryFile, err)
		}
		var qdata inputData
		if err := gojson.Unmarshal(qraw, &qdata); err != nil {
			return nil, nil, malformed("error parsing query file %q: %v", queryFile, err)
		}
		if qdata.Version != InputVersion {
			log.Warn("query data version not supported")
		}
		data.Properties = qdata.Properties
		data.Announcements = qdata.Announcements
	}

	if len(data.Properties) == 0 {
		return nil, nil, malformed("could not find \"properties\" in input file, did you forget to specify a query file?")
	}

	nofNodes, links, names, err := topologyFromData(data.Topology, filepath.Dir(inputFile))
	if err != nil {
		return nil, nil, err
	}
	resolver := property.NewNameResolver(names)

	staticRoutes, err := staticRoutesFromData(data.Topology.StaticRoutes, resolver)
	if err != nil {
		return nil, nil, err
	}

	bgpIntRouters, bgpExtRouters, nameToRouter, err := bgpConfigFromData(data.Topology.Bgp, resolver)
	if err != nil {
		return nil, nil, err
	}

	extAnns, err := announcementsFromData(data.Announcements, nameToRouter)
	if err != nil {
		return nil, nil, err
	}
	bgpConfig := bgp.NewConfig(bgpIntRouters, bgpExtRouters, extAnns)

	fm, err := failureModelFromData(data.Failures)
	if err != nil {
		return nil, nil, err
	}

	problems := make([]*problem.Problem, 0, len(data.Properties))
	for _, propRaw := range data.Properties {
		prop, err := property.FromData(propRaw, resolver)
		if err != nil {
			return nil, nil, err
		}
		problems = append(problems, problem.New(nofNodes, links, staticRoutes, bgpConfig, fm, prop))
	}
	return problems, resolver, nil
}

// topologyFromData reads either the inline {"nodes", "links"} shape or the
// alternate whitespace "file" format (spec.md §6).
func topologyFromData(data topologyData, inputDir string) (int, []model.Link, []string, error) {
	if data.File != "" {
		return topologyFromWhitespaceFile(filepath.Join(inputDir, data.File))
	}

	names := make([]string, 0, len(data.Nodes))
	idForName := make(map[string]int, len(data.Nodes))
	for _, name := range data.Nodes {
		if _, dup := idForName[name]; dup {
			return 0, nil, nil, malformed("node names are not unique")
		}
		idForName[name] = len(names)
		names = append(names, name)
	}

	links := make([]model.Link, 0, len(data.Links))
	for _, l := range data.Links {
		u, ok := idForName[l.U]
		if !ok {
			return 0, nil, nil, malformed("unknown node %q", l.U)
		}
		v, ok := idForName[l.V]
		if !ok {
			return 0, nil, nil, malformed("unknown node %q", l.V)
		}
		links = append(links, model.Link{U: u, V: v, WeightUV: l.WUV, WeightVU: l.WVU})
	}
	return len(names), links, names, nil
}

// topologyFromWhitespaceFile parses the alternate topology format: node
// count on the first line, then whitespace-separated "u v w_uv w_vu" lines.
// Nodes are named by their decimal index.
func topologyFromWhitespaceFile(path string) (int, []model.Link, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, nil, malformed("could not open input file %q: %v", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, nil, nil, malformed("empty topology file %q", path)
	}
	nofNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0, nil, nil, malformed("bad node count in %q: %v", path, err)
	}

	names := make([]string, nofNodes)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}

	var links []model.Link
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return 0, nil, nil, malformed("bad topology line %q in %q", line, path)
		}
		u, err1 := strconv.Atoi(fields[0])
		v, err2 := strconv.Atoi(fields[1])
		wuv, err3 := strconv.ParseFloat(fields[2], 64)
		wvu, err4 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return 0, nil, nil, malformed("bad topology line %q in %q", line, path)
		}
		links = append(links, model.Link{U: u, V: v, WeightUV: wuv, WeightVU: wvu})
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, nil, malformed("reading %q: %v", path, err)
	}
	return nofNodes, links, names, nil
}

func staticRoutesFromData(data []staticRouteData, r *property.NameResolver) ([]model.StaticRoute, error) {
	routes := make([]model.StaticRoute, 0, len(data))
	for _, sr := range data {
		u, ok := r.IDForNodeName[sr.U]
		if !ok {
			return nil, malformed("unknown node %q", sr.U)
		}
		v, ok := r.IDForNodeName[sr.V]
		if !ok {
			return nil, malformed("unknown node %q", sr.V)
		}
		routes = append(routes, model.StaticRoute{Dst: sr.Dst, U: u, V: v})
	}
	return routes, nil
}

// bgpRouter is the union of *bgp.IntRouter / *bgp.ExtRouter as addressed by
// name during parsing, mirroring the original's bgp_rtr_for_name map.
type bgpRouter struct {
	internal *bgp.IntRouter
	external *bgp.ExtRouter
}

func bgpConfigFromData(data bgpConfigData, r *property.NameResolver) ([]*bgp.IntRouter, []*bgp.ExtRouter, map[string]bgpRouter, error) {
	if data.Auto != "" && data.Auto != "full_mesh" {
		return nil, nil, nil, malformed("unsupported bgp auto type %q", data.Auto)
	}

	byName := make(map[string]bgpRouter)
	peerIDs := make(map[int]bool)
	var intRouters []*bgp.IntRouter

	if data.Auto == "full_mesh" {
		for _, name := range r.NodeNameForID {
			node := r.IDForNodeName[name]
			ir := bgp.NewIntRouter(node, node, data.AS, name)
			byName[name] = bgpRouter{internal: ir}
			peerIDs[node] = true
			intRouters = append(intRouters, ir)
		}
	} else {
		for _, rd := range data.InternalRouters {
			node, ok := r.IDForNodeName[rd.Node]
			if !ok {
				return nil, nil, nil, malformed("unknown node %q", rd.Node)
			}
			if peerIDs[rd.PeerID] {
				return nil, nil, nil, malformed("peer ids are not unique")
			}
			peerIDs[rd.PeerID] = true
			ir := bgp.NewIntRouter(node, rd.PeerID, data.AS, rd.Node)
			byName[rd.Node] = bgpRouter{internal: ir}
			intRouters = append(intRouters, ir)
		}
	}

	var extRouters []*bgp.ExtRouter
	for _, rd := range data.ExternalRouters {
		if _, dup := byName[rd.Name]; dup {
			return nil, nil, nil, malformed("names of external routers are not unique")
		}
		if peerIDs[rd.PeerID] {
			return nil, nil, nil, malformed("peer ids are not unique")
		}
		peerIDs[rd.PeerID] = true
		peer, ok := byName[rd.PeersWith]
		if !ok || peer.internal == nil {
			return nil, nil, nil, malformed("unknown internal router %q", rd.PeersWith)
		}
		er := bgp.NewExtRouter(rd.PeerID, rd.AS, peer.internal, rd.Name)
		byName[rd.Name] = bgpRouter{external: er}
		extRouters = append(extRouters, er)
	}

	if data.Auto == "full_mesh" {
		for _, a := range intRouters {
			if !a.IsBorderRouter() {
				continue
			}
			for _, b := range intRouters {
				if (b.IsBorderRouter() && b.ID() > a.ID()) || (!b.IsBorderRouter() && b.ID() != a.ID()) {
					a.Peers = append(a.Peers, b)
					b.Peers = append(b.Peers, a)
				}
			}
		}
	} else {
		for _, s := range data.InternalSessions {
			if s.RouteReflector != "" {
				rr, ok := byName[s.RouteReflector]
				if !ok || rr.internal == nil {
					return nil, nil, nil, malformed("unknown internal router %q", s.RouteReflector)
				}
				client, ok := byName[s.Client]
				if !ok || client.internal == nil {
					return nil, nil, nil, malformed("unknown internal router %q", s.Client)
				}
				rr.internal.RrClients = append(rr.internal.RrClients, client.internal)
				client.internal.Peers = append(client.internal.Peers, rr.internal)
			} else {
				p1, ok := byName[s.Peer1]
				if !ok || p1.internal == nil {
					return nil, nil, nil, malformed("unknown internal router %q", s.Peer1)
				}
				p2, ok := byName[s.Peer2]
				if !ok || p2.internal == nil {
					return nil, nil, nil, malformed("unknown internal router %q", s.Peer2)
				}
				p1.internal.Peers = append(p1.internal.Peers, p2.internal)
				p2.internal.Peers = append(p2.internal.Peers, p1.internal)
			}
		}
	}

	return intRouters, extRouters, byName, nil
}

func announcementsFromData(data map[string]map[string]announcementData, byName map[string]bgpRouter) (map[string]map[*bgp.ExtRouter]bgp.Announcement, error) {
	anns := make(map[string]map[*bgp.ExtRouter]bgp.Announcement, len(data))
	for dst, perRouter := range data {
		m := make(map[*bgp.ExtRouter]bgp.Announcement, len(perRouter))
		for name, a := range perRouter {
			router, ok := byName[name]
			if !ok || router.external == nil {
				return nil, malformed("unknown external router %q", name)
			}
			// LocalPref is negated so all four attributes are "lower is
			// better" (spec.md §3).
			m[router.external] = bgp.Announcement{Attrs: [4]int{-a.LP, a.ASPL, a.Origin, a.MED}}
		}
		anns[dst] = m
	}
	return anns, nil
}

func failureModelFromData(data failureModelData) (failuremodel.Model, error) {
	switch data.Type {
	case "NodeFailureModel":
		return failuremodel.NewNodeFailureModel(prob.New(data.PLinkFailure), prob.New(data.PNodeFailure)), nil
	case "LinkFailureModel":
		return failuremodel.NewLinkFailureModel(prob.New(data.PLinkFailure)), nil
	default:
		return nil, malformed("unknown failure model type %q", data.Type)
	}
}
