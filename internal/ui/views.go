package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/opium/internal/formatter"
)

// View renders the current view.
func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case SearchView:
		b.WriteString(m.renderSearch())
	case ProfileView:
		b.WriteString(m.renderProfile())
	case NowPlayingView:
		b.WriteString(m.renderNowPlaying())
	default:
		b.WriteString(m.top().list.View())
	}
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " Loading...\n")
	}
	if m.banner != "" {
		b.WriteString(styles.banner.Render(m.banner) + "\n")
	}
	if bar := m.renderMiniPlayer(); bar != "" {
		b.WriteString(bar + "\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Search"))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render("enter: search • esc: cancel"))
	return b.String()
}

func (m Model) renderProfile() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Profile"))
	b.WriteString("\n")
	if m.profile == nil {
		b.WriteString(styles.warn.Render("No profile loaded"))
		return b.String()
	}

	p := m.profile
	name := p.DisplayName
	if name == "" {
		name = p.ID
	}
	fmt.Fprintf(&b, "%s\n", styles.ok.Render(name))
	for _, row := range [][2]string{{"ID", p.ID}, {"Email", p.Email}, {"Country", p.Country}, {"Plan", p.Product}} {
		if row[1] != "" {
			fmt.Fprintf(&b, "  %-8s %s\n", row[0]+":", row[1])
		}
	}
	return b.String()
}

func (m Model) renderNowPlaying() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Now Playing"))
	b.WriteString("\n")

	t := m.playback.track
	fmt.Fprintf(&b, "%s\n", styles.ok.Render(t.Name))
	fmt.Fprintf(&b, "%s\n", t.ArtistNames())
	if t.Album != nil && t.Album.Name != "" {
		fmt.Fprintf(&b, "%s\n", styles.help.Render(t.Album.Name))
	}
	b.WriteString("\n")
	if m.playback.total > 1 {
		fmt.Fprintf(&b, "Track %d of %d\n", m.playback.index+1, m.playback.total)
	}
	fmt.Fprintf(&b, "Volume %s\n", volumeBar(m.playback.volume, 20))
	if art := t.ImageURL(); art != "" {
		fmt.Fprintf(&b, "%s\n", styles.help.Render(art))
	}
	return b.String()
}

// renderMiniPlayer draws the persistent playback bar, or "" when hidden.
func (m Model) renderMiniPlayer() string {
	if !m.playback.visible {
		return ""
	}

	state := "▶"
	if !m.playback.playing {
		state = "⏸"
	}
	if m.playback.ended {
		state = "■"
	}

	line := fmt.Sprintf("%s %s - %s", state, m.playback.track.Name, m.playback.track.ArtistNames())
	if m.playback.total > 1 {
		line += fmt.Sprintf(" [%d/%d]", m.playback.index+1, m.playback.total)
	}
	line += fmt.Sprintf(" • %s • vol %d%%",
		formatter.FormatDuration(m.playback.track.DurationMS), int(m.playback.volume*100+0.5))
	return styles.bar.Width(m.width).Render(line)
}

func volumeBar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
