// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"strings"
	"sync"
	"time"
)

// NodeStatus is the display state of a block or realisation.
type NodeStatus int

const (
	StatusPending NodeStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
)

func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Node is one block or realisation in the tree.
type Node struct {
	Path       []string
	Name       string
	Status     NodeStatus
	StartTime  *time.Time
	EndTime    *time.Time
	LastOutput string
	ErrorMsg   string
	Children   []*Node
	mutex      sync.RWMutex
}

// NewNode creates a pending node.
func NewNode(path []string, name string) *Node {
	return &Node{
		Path:   append([]string(nil), path...),
		Name:   name,
		Status: StatusPending,
	}
}

// UpdateStatus records status, stamping the start and end times once.
func (n *Node) UpdateStatus(status NodeStatus) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.Status = status
	now := time.Now()

	switch status {
	case StatusRunning:
		if n.StartTime == nil {
			n.StartTime = &now
		}
	case StatusSuccess, StatusFailed:
		if n.StartTime == nil {
			n.StartTime = &now
		}

		if n.EndTime == nil {
			n.EndTime = &now
		}
	}
}

// UpdateOutput keeps the last non-empty line of output.
func (n *Node) UpdateOutput(output string) {
	output = strings.TrimSpace(output)
	if output == "" {
		return
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	lines := strings.Split(output, "\n")
	n.LastOutput = strings.TrimSpace(lines[len(lines)-1])
}

// UpdateError records the failure message.
func (n *Node) UpdateError(msg string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.ErrorMsg = msg
}

type nodeInfo struct {
	status   NodeStatus
	name     string
	output   string
	errorMsg string
	elapsed  time.Duration
	started  bool
}

func (n *Node) info() nodeInfo {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	ni := nodeInfo{
		status:   n.Status,
		name:     n.Name,
		output:   n.LastOutput,
		errorMsg: n.ErrorMsg,
		started:  n.StartTime != nil,
	}

	if n.StartTime != nil {
		ni.elapsed = time.Since(*n.StartTime)
		if n.EndTime != nil {
			ni.elapsed = n.EndTime.Sub(*n.StartTime)
		}
	}

	return ni
}

func (n *Node) hasFailedChild() bool {
	n.mutex.RLock()
	children := n.Children
	n.mutex.RUnlock()

	for _, c := range children {
		if c.info().status == StatusFailed {
			return true
		}
	}

	return false
}
