package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vitaminmoo/gyverhub/internal/hub"
)

// ProgressState tracks one transfer slot of the hub
type ProgressState struct {
	progress    progress.Model
	name        string
	unit        string // "chunks" or "bytes"
	percent     float64
	description string
	isActive    bool
}

// NewProgressState creates the bar for the slot called name
func NewProgressState(name, unit string) ProgressState {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)
	return ProgressState{
		progress: p,
		name:     name,
		unit:     unit,
	}
}

// Sync copies a session snapshot into the bar
func (p *ProgressState) Sync(s hub.Session) {
	if !s.Active {
		p.isActive = false
		return
	}
	p.isActive = true
	p.percent = 0
	if s.Total > 0 {
		p.percent = float64(s.Done) / float64(s.Total)
	}
	p.description = fmt.Sprintf("%s %s  %s  %s", p.name, s.Path, s.Owner, p.amount(s))
}

func (p *ProgressState) amount(s hub.Session) string {
	if p.unit == "chunks" {
		return fmt.Sprintf("chunk %d/%d", s.Done, s.Total)
	}
	if s.Total > 0 {
		return humanize.IBytes(uint64(s.Done)) + " / " + humanize.IBytes(uint64(s.Total))
	}
	return humanize.IBytes(uint64(s.Done))
}

// SetWidth resizes the bar
func (p *ProgressState) SetWidth(w int) {
	p.progress.Width = max(10, min(w, 60))
}

// IsActive returns whether a transfer is running in the slot.
func (p *ProgressState) IsActive() bool {
	return p.isActive
}

// View renders the progress bar.
func (p ProgressState) View() string {
	if !p.isActive {
		return ""
	}
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return descStyle.Render(p.description) + "\n" + p.progress.ViewAs(p.percent)
}
