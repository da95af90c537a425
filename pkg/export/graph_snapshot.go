package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/nsg-ethz/netdice/pkg/model"
	"github.com/nsg-ethz/netdice/pkg/property"
)

// SnapshotOptions controls a static forwarding-graph snapshot render.
// Grounded on the teacher's GraphSnapshotOptions/SaveGraphSnapshot, with
// the issue-DAG layout replaced by BFS hop levels from the flow's source.
type SnapshotOptions struct {
	Path     string // output path; format inferred from extension when Format is empty
	Format   string // "svg" or "png" (case-insensitive)
	Title    string
	FwGraph  *model.FwGraph
	Resolver *property.NameResolver
}

// SaveSnapshot renders a forwarding graph to a static SVG or PNG file.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.FwGraph == nil {
		return fmt.Errorf("export: no forwarding graph to render")
	}
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("export: unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("export: output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("export: create parent dir: %w", err)
	}

	layout := buildFwgLayout(opts)
	if format == "png" {
		return renderFwgPNG(opts, layout)
	}
	return renderFwgSVG(opts, layout)
}

type fwgLayoutNode struct {
	ID       int
	Name     string
	Level    int
	Exit     bool
	X, Y     float64
	NodeW    float64
	NodeH    float64
}

type fwgLayoutEdge struct {
	From, To int
	Exit     bool
}

type fwgLayoutResult struct {
	Nodes  []fwgLayoutNode
	Edges  []fwgLayoutEdge
	Width  int
	Height int
	Header float64
	Title  string
	Src    string
	Dst    string
}

func buildFwgLayout(opts SnapshotOptions) fwgLayoutResult {
	const (
		nodeW, nodeH   = 140.0, 56.0
		colGap, rowGap = 70.0, 28.0
		padding        = 32.0
		headerHeight   = 80.0
	)
	fwg := opts.FwGraph

	level := make(map[int]int, fwg.N)
	level[fwg.Src] = 0
	order := []int{fwg.Src}
	for i := 0; i < len(order); i++ {
		u := order[i]
		for _, v := range fwg.Next[u] {
			if v == model.ExitSentinel {
				continue
			}
			if _, ok := level[v]; !ok {
				level[v] = level[u] + 1
				order = append(order, v)
			}
		}
	}

	maxLevel := 0
	buckets := make(map[int][]int)
	for _, n := range order {
		buckets[level[n]] = append(buckets[level[n]], n)
		if level[n] > maxLevel {
			maxLevel = level[n]
		}
	}
	for lvl := range buckets {
		sort.Ints(buckets[lvl])
	}

	var nodes []fwgLayoutNode
	maxRows := 0
	for lvl := 0; lvl <= maxLevel; lvl++ {
		bucket := buckets[lvl]
		if len(bucket) > maxRows {
			maxRows = len(bucket)
		}
		for row, id := range bucket {
			nodes = append(nodes, fwgLayoutNode{
				ID:    id,
				Name:  nodeName(opts.Resolver, id),
				Level: lvl,
				X:     padding + float64(lvl)*(nodeW+colGap),
				Y:     padding + headerHeight + float64(row)*(nodeH+rowGap),
				NodeW: nodeW,
				NodeH: nodeH,
			})
		}
	}

	width := int(padding*2 + float64(maxLevel+1)*(nodeW+colGap))
	if width < 480 {
		width = 480
	}
	height := int(padding*2 + headerHeight + float64(maxRows)*(nodeH+rowGap))
	if height < 320 {
		height = 320
	}

	edges := fwgEdges(fwg)
	layoutEdges := make([]fwgLayoutEdge, len(edges))
	for i, e := range edges {
		layoutEdges[i] = fwgLayoutEdge{From: e.From, To: e.To, Exit: e.Exit}
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Forwarding graph"
	}
	return fwgLayoutResult{
		Nodes: nodes, Edges: layoutEdges, Width: width, Height: height, Header: headerHeight,
		Title: title, Src: nodeName(opts.Resolver, fwg.Src), Dst: fwg.Dst,
	}
}

var (
	colorNode     = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorExit     = color.RGBA{0xff, 0xcd, 0xd2, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func css(c color.RGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func renderFwgPNG(opts SnapshotOptions, layout fwgLayoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(fmt.Sprintf("%s  src=%s dst=%s", layout.Title, layout.Src, layout.Dst), 32, 44, 0, 0.5)

	pos := make(map[int]fwgLayoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		pos[n.ID] = n
	}
	dc.SetColor(colorEdge)
	dc.SetLineWidth(2)
	for _, e := range layout.Edges {
		from := pos[e.From]
		x1, y1 := from.X+from.NodeW, from.Y+from.NodeH/2
		var x2, y2 float64
		if e.Exit {
			x2, y2 = x1+60, y1
		} else {
			to := pos[e.To]
			x2, y2 = to.X, to.Y+to.NodeH/2
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}
	for _, n := range layout.Nodes {
		dc.SetColor(colorNode)
		dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.Name, n.X+10, n.Y+n.NodeH/2, 0, 0.5)
	}
	return dc.SavePNG(opts.Path)
}

func renderFwgSVG(opts SnapshotOptions, layout fwgLayoutResult) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()
	return renderFwgSVGToWriter(file, layout)
}

func renderFwgSVGToWriter(w io.Writer, layout fwgLayoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 44, fmt.Sprintf("%s  src=%s dst=%s", layout.Title, layout.Src, layout.Dst),
		fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold", css(colorText)))

	pos := make(map[int]fwgLayoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		pos[n.ID] = n
	}
	for _, e := range layout.Edges {
		from := pos[e.From]
		x1, y1 := int(from.X+from.NodeW), int(from.Y+from.NodeH/2)
		var x2, y2 int
		if e.Exit {
			x2, y2 = x1+60, y1
		} else {
			to := pos[e.To]
			x2, y2 = int(to.X), int(to.Y+to.NodeH/2)
		}
		canvas.Line(x1, y1, x2, y2, fmt.Sprintf("stroke:%s;stroke-width:2", css(colorEdge)))
	}
	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(colorNode), css(colorStroke)))
		canvas.Text(x+10, y+int(n.NodeH/2), n.Name, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))
	}
	canvas.End()
	return nil
}
