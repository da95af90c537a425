package input

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nsg-ethz/netdice/pkg/property"
	"github.com/nsg-ethz/netdice/pkg/telemetry"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path
}

const basicInput = `{
  "version": "0.1",
  "topology": {
    "nodes": ["A", "B"],
    "links": [{"u": "A", "v": "B", "w_uv": 1, "w_vu": 1}],
    "bgp": {
      "as": 100,
      "auto": "full_mesh",
      "external_routers": [{"name": "ext", "peer_id": 10, "as": 200, "peers_with": "B"}]
    }
  },
  "failures": {"type": "LinkFailureModel", "p_link_failure": 0.1},
  "properties": [{"type": "Reachable", "flow": {"src": "A", "dst": "d"}}],
  "announcements": {"d": {"ext": {"lp": 100, "aspl": 1, "origin": 0, "med": 5}}}
}`

func TestProblemsParsesInlineTopology(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "problem.json", basicInput)

	problems, resolver, err := Problems(path, "", nil)
	if err != nil {
		t.Fatalf("Problems: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d", len(problems))
	}
	if resolver.NodeNameForID[0] != "A" || resolver.NodeNameForID[1] != "B" {
		t.Errorf("unexpected node names: %v", resolver.NodeNameForID)
	}
	p := problems[0]
	if p.Nof != 2 {
		t.Errorf("expected 2 nodes, got %d", p.Nof)
	}
	if _, ok := p.Property.(*property.Reachable); !ok {
		t.Errorf("expected *property.Reachable, got %T", p.Property)
	}
	if len(p.BgpConfig.ExtRouters) != 1 {
		t.Errorf("expected one external router, got %d", len(p.BgpConfig.ExtRouters))
	}
}

func TestProblemsMissingPropertiesErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "problem.json", `{"version": "0.1", "topology": {"nodes": ["A"]}}`)

	_, _, err := Problems(path, "", nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestProblemsUnknownNodeInLinkErrors(t *testing.T) {
	dir := t.TempDir()
	input := `{
      "version": "0.1",
      "topology": {"nodes": ["A"], "links": [{"u": "A", "v": "ghost", "w_uv": 1, "w_vu": 1}]},
      "failures": {"type": "LinkFailureModel", "p_link_failure": 0.1},
      "properties": [{"type": "Reachable", "flow": {"src": "A", "dst": "d"}}]
    }`
	path := writeFile(t, dir, "problem.json", input)

	_, _, err := Problems(path, "", nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown node, got %v", err)
	}
}

func TestProblemsWarnsOnVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	input := strings.Replace(basicInput, `"version": "0.1"`, `"version": "9.9"`, 1)
	path := writeFile(t, dir, "problem.json", input)

	var out bytes.Buffer
	log := telemetry.New(telemetry.LevelWarn, &out, nil)
	if _, _, err := Problems(path, "", log); err != nil {
		t.Fatalf("Problems: %v", err)
	}
	if !strings.Contains(out.String(), "version") {
		t.Errorf("expected a version-mismatch warning, got %q", out.String())
	}
}

func TestProblemsWhitespaceTopologyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "topo.txt", "2\n0 1 1 1\n")
	input := `{
      "version": "0.1",
      "topology": {"file": "topo.txt"},
      "failures": {"type": "LinkFailureModel", "p_link_failure": 0.2},
      "properties": [{"type": "Reachable", "flow": {"src": "0", "dst": "d"}}]
    }`
	path := writeFile(t, dir, "problem.json", input)

	problems, resolver, err := Problems(path, "", nil)
	if err != nil {
		t.Fatalf("Problems: %v", err)
	}
	if len(resolver.NodeNameForID) != 2 || resolver.NodeNameForID[0] != "0" {
		t.Errorf("expected decimal node names, got %v", resolver.NodeNameForID)
	}
	if problems[0].NumLinks() != 1 {
		t.Errorf("expected 1 link parsed from whitespace file, got %d", problems[0].NumLinks())
	}
}

func TestProblemsQueryFileSuppliesPropertiesAndAnnouncements(t *testing.T) {
	dir := t.TempDir()
	topologyOnly := `{
      "version": "0.1",
      "topology": {
        "nodes": ["A", "B"],
        "links": [{"u": "A", "v": "B", "w_uv": 1, "w_vu": 1}],
        "bgp": {"as": 100, "auto": "full_mesh",
          "external_routers": [{"name": "ext", "peer_id": 10, "as": 200, "peers_with": "B"}]}
      },
      "failures": {"type": "LinkFailureModel", "p_link_failure": 0.1}
    }`
	query := `{
      "version": "0.1",
      "properties": [{"type": "Reachable", "flow": {"src": "A", "dst": "d"}}],
      "announcements": {"d": {"ext": {"lp": 100, "aspl": 1, "origin": 0, "med": 5}}}
    }`
	topoPath := writeFile(t, dir, "topology.json", topologyOnly)
	queryPath := writeFile(t, dir, "query.json", query)

	problems, _, err := Problems(topoPath, queryPath, nil)
	if err != nil {
		t.Fatalf("Problems: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem from query file, got %d", len(problems))
	}
}

func TestProblemsDuplicateNodeNamesRejected(t *testing.T) {
	dir := t.TempDir()
	input := `{
      "version": "0.1",
      "topology": {"nodes": ["A", "A"]},
      "failures": {"type": "LinkFailureModel", "p_link_failure": 0.1},
      "properties": [{"type": "Reachable", "flow": {"src": "A", "dst": "d"}}]
    }`
	path := writeFile(t, dir, "problem.json", input)

	_, _, err := Problems(path, "", nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for duplicate node names, got %v", err)
	}
}

func TestProblemsUnsupportedFailureModelTypeErrors(t *testing.T) {
	dir := t.TempDir()
	input := `{
      "version": "0.1",
      "topology": {"nodes": ["A"]},
      "failures": {"type": "Bogus"},
      "properties": [{"type": "Reachable", "flow": {"src": "A", "dst": "d"}}]
    }`
	path := writeFile(t, dir, "problem.json", input)

	_, _, err := Problems(path, "", nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown failure model type, got %v", err)
	}
}
