// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
)

const (
	minStatusBarAvailableHeight = 10
	durationRounding            = 100 * time.Millisecond
	tickInterval                = time.Second
)

// EventMsg wraps a progress event for the tea runtime.
type EventMsg struct {
	Event progress.Event
}

// DoneMsg reports that the batch has returned.
type DoneMsg struct {
	Results runbatch.Results
	Err     error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.mutex.Lock()
			m.quitting = true
			m.mutex.Unlock()

			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(1, msg.Width-2)
		m.viewport.Height = max(1, msg.Height-reservedLines)
		m.mutex.Unlock()

	case EventMsg:
		m.processEvent(msg.Event)

	case DoneMsg:
		m.mutex.Lock()
		m.completed = true
		m.results = msg.Results
		m.runErr = msg.Err
		m.mutex.Unlock()

	case tickMsg:
		return m, tea.Batch(cmd, tick())
	}

	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	m.mutex.RLock()
	quitting := m.quitting
	m.mutex.RUnlock()

	if quitting {
		return "Shutting down...\n"
	}

	var content strings.Builder

	for i, child := range m.root.Children {
		m.renderTree(&content, child, "", i == len(m.root.Children)-1)
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.completed {
		content.WriteString("\n")

		if m.runErr != nil || m.results.HasError() {
			content.WriteString(m.styles.Failed.Render("Batch completed with errors"))
		} else {
			content.WriteString(m.styles.Success.Render("Batch completed successfully"))
		}

		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render(m.title))
	view.WriteString("\n")
	view.WriteString(m.bar.ViewAs(float64(m.percent) / 100)) //nolint:mnd
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))

	if m.height > minStatusBarAvailableHeight {
		help := "↑/↓ to scroll, 'q' to quit"
		if m.completed {
			help = "↑/↓ to scroll, 'q' to quit and return to terminal"
		}

		view.WriteString("\n")
		view.WriteString(m.styles.Help.Render(help))
	}

	return view.String()
}

func (m *Model) renderTree(b *strings.Builder, node *Node, prefix string, isLast bool) {
	m.renderNode(b, node, prefix, isLast)

	childPrefix := prefix + "│   "
	if isLast {
		childPrefix = prefix + "    "
	}

	node.mutex.RLock()
	children := node.Children
	node.mutex.RUnlock()

	for i, child := range children {
		m.renderTree(b, child, childPrefix, i == len(children)-1)
	}
}

func (m *Model) renderNode(b *strings.Builder, node *Node, prefix string, isLast bool) {
	ni := node.info()

	connector := "├── "
	if isLast {
		connector = "└── "
	}

	var icon, name string

	switch ni.status {
	case StatusRunning:
		icon, name = "⚡", m.styles.Running.Render(ni.name)
	case StatusSuccess:
		icon, name = "✅", m.styles.Success.Render(ni.name)
	case StatusFailed:
		icon, name = "❌", m.styles.Failed.Render(ni.name)
	default:
		icon, name = "⏳", m.styles.Pending.Render(ni.name)
	}

	left := fmt.Sprintf("%s %s", icon, name)
	if ni.started {
		left += m.styles.Output.Render(fmt.Sprintf(" (%v)", ni.elapsed.Round(durationRounding)))
	}

	var right string

	switch {
	case ni.status == StatusFailed && ni.errorMsg != "":
		right = m.styles.Error.Render("Error: " + ni.errorMsg)
	case ni.status == StatusRunning && ni.output != "":
		right = m.styles.Output.Render(ni.output)
	}

	tree := m.styles.TreeBranch.Render(prefix + connector)
	leftWidth := max(20, (m.viewport.Width-lipgloss.Width(tree))/2) //nolint:mnd

	b.WriteString(tree)
	b.WriteString(lipgloss.NewStyle().Width(leftWidth).MaxWidth(leftWidth).Render(left))

	if right != "" {
		b.WriteString(lipgloss.NewStyle().MaxWidth(max(10, m.viewport.Width-lipgloss.Width(tree)-leftWidth)).Render(right)) //nolint:mnd
	}

	b.WriteString("\n")
}
