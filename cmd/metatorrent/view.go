package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/WendelHime/metatorrent/internal/logic"
	"github.com/WendelHime/metatorrent/internal/metainfo"
	"github.com/WendelHime/metatorrent/internal/shared/models"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Dir   lipgloss.Style
	Size  lipgloss.Style
	Box   lipgloss.Style
	Error lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D9FF")).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(16),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		Dir: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")),
		Size: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00D9FF")).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true),
	}
}

func render(t *metainfo.Torrent, s styles) (string, error) {
	size, err := t.Size()
	if err != nil {
		return "", err
	}
	count, err := t.FileCount()
	if err != nil {
		return "", err
	}
	tree, err := t.FileTree()
	if err != nil {
		return "", err
	}

	var rows []string
	row := func(label, value string) {
		if value == "" {
			return
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render(label), s.Value.Render(value)))
	}
	row("Protocol", string(t.Protocol()))
	row("Mode", string(t.FileMode()))
	row("Info hash v1", t.InfoHashV1().String())
	row("Info hash v2", t.InfoHashV2().String())
	row("Piece length", humanBytes(t.PieceLength()))
	row("Size", fmt.Sprintf("%s in %d files", humanBytes(size), count))
	if t.Private() {
		row("Private", "yes")
	}
	row("Source", t.Source())
	row("Trackers", strings.Join(t.Trackers(), "\n"))
	row("Web seeds", strings.Join(t.URLList(), "\n"))
	row("Comment", t.Comment())
	row("Created by", t.CreatedBy())
	if date, ok := t.CreationDate(); ok {
		row("Created", time.Unix(date, 0).UTC().Format(time.RFC3339))
	}

	var files strings.Builder
	writeNode(&files, tree, "", s)

	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(t.Name()),
		s.Box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
		s.Box.Render(strings.TrimRight(files.String(), "\n")),
	), nil
}

func renderReports(reports []logic.TrackerReport, s styles) string {
	if len(reports) == 0 {
		return s.Error.Render("no trackers")
	}
	rows := make([]string, 0, len(reports))
	for _, r := range reports {
		status := fmt.Sprintf("%d seeders, %d leechers, %d completed", r.Stats.Seeders, r.Stats.Leechers, r.Stats.Completed)
		if r.Err != nil {
			status = s.Error.Render(r.Err.Error())
		}
		rows = append(rows, lipgloss.JoinVertical(lipgloss.Left, s.Value.Render(r.URL), s.Label.UnsetWidth().Render("  "+status)))
	}
	return s.Box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func writeNode(b *strings.Builder, n *models.FileNode, indent string, s styles) {
	if !n.IsDir() {
		fmt.Fprintf(b, "%s%s %s\n", indent, n.Name, s.Size.Render(humanBytes(n.Size)))
		return
	}
	fmt.Fprintf(b, "%s%s\n", indent, s.Dir.Render(n.Name+"/"))
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		writeNode(b, n.Children[name], indent+"  ", s)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
