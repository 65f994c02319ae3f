package editor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/diagram"
	"github.com/abhisek/threatlab/internal/screens/placeholder"
	"github.com/abhisek/threatlab/internal/ui/theme"
)

const (
	paletteWidth = 24
	propsWidth   = 34
)

func (s *EditorScreen) View(width, height int) string {
	switch {
	case s.loading:
		return placeholder.Loading("diagram", width, height)
	case s.loadErr != nil:
		return placeholder.Error(s.loadErr, width, height)
	}

	status := s.statusLine(width)
	bodyHeight := max(height-lipgloss.Height(status)-1, 4)

	canvasWidth := width - paletteWidth - propsWidth - 4
	var body string
	if canvasWidth < 20 {
		// Narrow terminals drop the side panels.
		body = s.canvasPanel(width-2, bodyHeight)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			s.palettePanel(paletteWidth, bodyHeight),
			s.canvasPanel(canvasWidth, bodyHeight),
			s.propsPanel(propsWidth, bodyHeight),
		)
	}
	return body + "\n" + status
}

func panel(title string, content string, width, height int, active bool) string {
	border := theme.Border
	if active {
		border = theme.Primary
	}
	head := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(width).
		Height(height).
		Padding(0, 1).
		Render(head + "\n" + content)
}

func (s *EditorScreen) palettePanel(width, height int) string {
	return panel("Palette", s.palette.View(), width, height, s.focus == focusPalette)
}

func (s *EditorScreen) canvasPanel(width, height int) string {
	nodes := s.place()
	var content string
	if len(nodes) == 0 {
		content = theme.Hint.Render("Empty canvas. Press a to add a component.")
	} else {
		content = renderCanvas(nodes, width-4, height-3)
	}
	title := "Canvas"
	if s.title != "" {
		title = s.title
	}
	return panel(title, content, width, height, s.focus == focusCanvas && s.inputKind == inputNone)
}

func (s *EditorScreen) propsPanel(width, height int) string {
	var b strings.Builder
	sel := s.svc.Diagram.Selected()
	key := lipgloss.NewStyle().Foreground(theme.TextDim)
	val := lipgloss.NewStyle().Foreground(theme.Text)
	line := func(k, v string) {
		fmt.Fprintf(&b, "%s %s\n", key.Render(k+":"), val.Render(v))
	}

	if n, ok := s.node(sel); ok {
		pos, _ := s.position(n.ID)
		line("Node", n.Label())
		line("Type", string(n.Type))
		line("At", fmt.Sprintf("%.0f, %.0f", pos.X, pos.Y))
		for _, k := range sortedKeys(n.Data) {
			if k == api.DataLabel {
				continue
			}
			line(k, fmt.Sprint(n.Data[k]))
		}
		line("Links", fmt.Sprint(s.degree(n.ID)))
	} else if e, ok := s.edge(sel); ok {
		line("Flow", s.label(e.Source)+" → "+s.label(e.Target))
		proto := e.Protocol()
		if proto == "" {
			proto = "unset"
		}
		line("Protocol", proto)
		line("Encrypted", yesNo(e.Encrypted()))
	} else {
		b.WriteString(theme.Hint.Render("Nothing selected") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("Connections") + "\n")
	edges := s.svc.Diagram.Edges()
	if len(edges) == 0 {
		b.WriteString(theme.Hint.Render("none") + "\n")
	}
	for _, e := range edges {
		text := s.label(e.Source) + " → " + s.label(e.Target)
		if p := e.Protocol(); p != "" {
			text += " " + p
		}
		if e.Encrypted() {
			text += " 🔒"
		}
		style := val
		if e.ID == sel {
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(style.Render(truncate(text, width-4)) + "\n")
	}

	meta := s.svc.Diagram.Metadata()
	b.WriteString("\n")
	line("Boundaries", fmt.Sprint(len(meta.TrustBoundaries)))
	line("Data flows", fmt.Sprint(len(meta.DataFlows)))
	line("Controls", fmt.Sprint(len(meta.SecurityControls)))
	if results := s.svc.Diagram.ValidationResults(); len(results) > 0 {
		line("Findings", diagram.Summarize(results).String())
	}
	return panel("Properties", b.String(), width, height, false)
}

func (s *EditorScreen) statusLine(width int) string {
	if s.pendingDraft != nil {
		return lipgloss.NewStyle().Foreground(theme.Warning).Bold(true).
			Render(fmt.Sprintf("An unsaved draft with %d components was found. Restore it? (y/n)", len(s.pendingDraft.Nodes)))
	}
	if s.inputKind != inputNone {
		return lipgloss.NewStyle().Foreground(theme.Secondary).Render(inputPrompt(s.inputKind)+": ") + s.input.View()
	}

	var parts []string
	d := s.svc.Diagram
	phase := d.Phase().String()
	if d.Dirty() {
		phase += " *"
	}
	parts = append(parts, phase)
	if cur := d.Current(); cur != nil && cur.Version > 0 {
		parts = append(parts, fmt.Sprintf("v%d", cur.Version))
	}
	parts = append(parts, fmt.Sprintf("%d nodes, %d edges", len(d.Nodes()), len(d.Edges())))
	parts = append(parts, s.elapsed())

	switch {
	case s.busy != "":
		parts = append(parts, s.busy)
	case s.retry:
		parts = append(parts, "scoring failed, Ctrl+G retries")
	case s.moving:
		parts = append(parts, "moving")
	case s.connectFrom != "":
		parts = append(parts, "connect from "+s.label(s.connectFrom)+": select target, press c")
	}
	text := strings.Join(parts, "  ·  ")
	return lipgloss.NewStyle().Foreground(theme.TextDim).Render(truncate(text, width))
}

// elapsed shows time spent, against the scenario limit when there is one.
func (s *EditorScreen) elapsed() string {
	spent := s.now().Sub(s.started).Truncate(time.Second)
	if s.opts.Scenario != nil && s.opts.Scenario.TimeLimit != nil {
		limit := time.Duration(*s.opts.Scenario.TimeLimit) * time.Minute
		return fmt.Sprintf("%s / %s", spent, limit)
	}
	return spent.String()
}

func (s *EditorScreen) degree(id string) int {
	n := 0
	for _, e := range s.svc.Diagram.Edges() {
		if e.Source == id || e.Target == id {
			n++
		}
	}
	return n
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
