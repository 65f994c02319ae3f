package editor

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

// Canvas cell size in diagram pixels.
const (
	pxPerCol = 10.0
	pxPerRow = 40.0
)

var nodeCodes = map[api.NodeType]string{
	api.NodeServer:       "SRV",
	api.NodeDatabase:     "DB",
	api.NodeFrontend:     "WEB",
	api.NodeAPI:          "API",
	api.NodeSecurity:     "SEC",
	api.NodeNetwork:      "NET",
	api.NodeStorage:      "STO",
	api.NodeExternal:     "EXT",
	api.NodeUser:         "USR",
	api.NodeLoadBalancer: "LB",
	api.NodeCache:        "CCH",
	api.NodeQueue:        "MQ",
}

func nodeCode(t api.NodeType) string {
	if c, ok := nodeCodes[t]; ok {
		return c
	}
	return "???"
}

// placedNode is a node at a canvas cell.
type placedNode struct {
	id    string
	tag   string
	col   int
	row   int
	style lipgloss.Style
}

func cell(p api.Position) (col, row int) {
	return int(p.X / pxPerCol), int(p.Y / pxPerRow)
}

func nodeTag(n api.Node) string {
	return "[" + nodeCode(n.Type) + " " + n.Label() + "]"
}

// place positions nodes on the canvas, styling the selection and the
// pending connection source.
func (s *EditorScreen) place() []placedNode {
	sel := s.svc.Diagram.Selected()
	nodes := s.svc.Diagram.Nodes()
	out := make([]placedNode, 0, len(nodes))
	for _, n := range nodes {
		pos, _ := s.position(n.ID)
		col, row := cell(pos)
		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case n.ID == s.connectFrom:
			style = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
		case n.ID == sel && s.moving:
			style = lipgloss.NewStyle().Foreground(theme.Warning).Bold(true)
		case n.ID == sel:
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Underline(true)
		}
		out = append(out, placedNode{id: n.ID, tag: nodeTag(n), col: col, row: row, style: style})
	}
	return out
}

// renderCanvas draws nodes row by row. Nodes that would overlap on a row
// are pushed right so every tag stays readable. Rows past height are
// clipped and reported on the last line.
func renderCanvas(nodes []placedNode, width, height int) string {
	if height < 1 {
		height = 1
	}
	rows := make(map[int][]placedNode)
	maxRow := 0
	for _, n := range nodes {
		rows[n.row] = append(rows[n.row], n)
		maxRow = max(maxRow, n.row)
	}

	var b strings.Builder
	hidden := 0
	for r := 0; r <= maxRow; r++ {
		if r >= height-1 && maxRow >= height {
			hidden += len(rows[r])
			continue
		}
		if r > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderRow(rows[r], width))
	}
	if hidden > 0 {
		b.WriteString("\n" + theme.Hint.Render(fmt.Sprintf("… %d more below", hidden)))
	}
	return b.String()
}

func renderRow(row []placedNode, width int) string {
	sort.SliceStable(row, func(i, j int) bool { return row[i].col < row[j].col })
	var b strings.Builder
	x := 0
	for _, n := range row {
		if x >= width {
			break
		}
		if n.col > x {
			b.WriteString(strings.Repeat(" ", n.col-x))
			x = n.col
		}
		tag := n.tag
		if w := lipgloss.Width(tag); x+w > width {
			tag = truncate(tag, width-x)
		}
		b.WriteString(n.style.Render(tag))
		x += lipgloss.Width(tag) + 1
		if x <= width {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}
