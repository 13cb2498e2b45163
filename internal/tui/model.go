// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"strings"
	"sync"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/obsrun/internal/progress"
	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
)

const (
	defaultWidth    = 100
	defaultHeight   = 30
	reservedLines   = 7
	progressBarSize = 40
)

// Model is the bubbletea model of a running batch.
type Model struct {
	title     string
	root      *Node
	nodeMap   map[string]*Node
	byName    map[string]*Node
	percent   int
	width     int
	height    int
	quitting  bool
	completed bool
	results   runbatch.Results
	runErr    error
	viewport  viewport.Model
	bar       bprogress.Model
	styles    *Styles
	mutex     sync.RWMutex
}

// Styles holds the lipgloss styles of the view.
type Styles struct {
	Title      lipgloss.Style
	Pending    lipgloss.Style
	Running    lipgloss.Style
	Success    lipgloss.Style
	Failed     lipgloss.Style
	Output     lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
	TreeBranch lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles returns the default styles.
func NewStyles() *Styles {
	return &Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Pending:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Running:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		Success:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Failed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Output:     lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Italic(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Italic(true),
		Help:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		TreeBranch: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates an empty model titled title.
func NewModel(title string) *Model {
	m := &Model{
		title:   title,
		root:    NewNode(nil, "batch"),
		nodeMap: make(map[string]*Node),
		byName:  make(map[string]*Node),
		width:   defaultWidth,
		height:  defaultHeight,
		bar:     bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(progressBarSize)),
		styles:  NewStyles(),
	}
	m.viewport = viewport.New(defaultWidth-2, defaultHeight-reservedLines)

	return m
}

// Percent is the last overall progress received.
func (m *Model) Percent() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.percent
}

// Node returns the node at path, if any.
func (m *Model) Node(path ...string) (*Node, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	n, ok := m.nodeMap[strings.Join(path, "/")]

	return n, ok
}

func (m *Model) getOrCreateNode(path []string) *Node {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	parent := m.root

	for i := range path {
		key := strings.Join(path[:i+1], "/")

		node, ok := m.nodeMap[key]
		if !ok {
			node = NewNode(path[:i+1], path[i])
			m.nodeMap[key] = node
			m.byName[path[i]] = node
			parent.Children = append(parent.Children, node)
		}

		parent = node
	}

	return parent
}

// lookup resolves an event path to a node. Heartbeats carry only the
// realisation label, so single-element paths fall back to a name match.
func (m *Model) lookup(path []string) *Node {
	if len(path) == 1 {
		m.mutex.RLock()
		n, ok := m.byName[path[0]]
		m.mutex.RUnlock()

		if ok {
			return n
		}
	}

	return m.getOrCreateNode(path)
}

func (m *Model) processEvent(event progress.Event) {
	if event.Type == progress.EventProgress {
		m.mutex.Lock()
		m.percent = event.Data.Percent
		m.mutex.Unlock()

		return
	}

	if len(event.Path) == 0 {
		return
	}

	node := m.lookup(event.Path)

	switch event.Type {
	case progress.EventStarted:
		node.UpdateStatus(StatusRunning)
	case progress.EventCompleted:
		if node.hasFailedChild() {
			node.UpdateStatus(StatusFailed)
			break
		}

		node.UpdateStatus(StatusSuccess)
	case progress.EventFailed:
		node.UpdateStatus(StatusFailed)

		if event.Data.Error != nil {
			node.UpdateError(event.Data.Error.Error())
		} else {
			node.UpdateError(event.Message)
		}
	case progress.EventOutput:
		node.UpdateOutput(event.Data.OutputLine)
	case progress.EventSkipped:
		node.UpdateStatus(StatusPending)
	}
}

var _ tea.Model = (*Model)(nil)
