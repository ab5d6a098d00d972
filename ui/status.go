// Package ui renders one-shot status views of the scheduler for the CLI.
package ui

import (
	"fmt"
	"strings"
	"time"

	"chorus/agent"
	"chorus/engine"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderStatus formats the agent pool and engine counters as a styled block.
func RenderStatus(snapshots []agent.Snapshot, stats engine.Stats, now time.Time) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("chorus"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %-10s %-10s %-7s %-6s %s",
		"AGENT", "MOOD", "MODE", "ENERGY", "RATE", "LAST ACTION")))
	b.WriteString("\n")

	for _, s := range snapshots {
		line := fmt.Sprintf("%-12s %-10s %-10s %6.1f %6.2f %s",
			s.ID, s.Mood, s.Mode, s.Energy, s.Rate, lastAction(s.LastActionAt, now))
		if s.Online {
			b.WriteString(onlineStyle.Render(line))
		} else {
			b.WriteString(offlineStyle.Render(line + "  (offline)"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"engine: %d/%d workers busy | queued %d, delayed %d | ok %d, retried %d, failed %d",
		stats.Running, stats.WorkerLimit, stats.Queued, stats.Delayed,
		stats.Succeeded, stats.Retries, stats.TerminalFailures)))
	b.WriteString("\n")

	return b.String()
}

func lastAction(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s ago", now.Sub(t).Round(time.Second))
}
