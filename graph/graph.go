// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph exposes the backward graph: node identities, the step
// contract and the traversal that enumerates the steps reachable from a root.
//
// Traversal visits the root first, then every registered ancestor exactly
// once, removing each visited step from the registry. Parents with no
// registered step are leaves and are skipped. Steps not reachable from the
// root stay registered.
package graph

import (
	"github.com/born-ml/autograph/internal/autodiff/graph"
)

// NodeID identifies a node of the backward graph.
type NodeID = graph.NodeID

// StreamID identifies the stream a node was recorded on.
type StreamID = graph.StreamID

// Parent is an input edge of a node.
type Parent = graph.Parent

// Requirement tells whether and how a gradient flows into a node.
type Requirement = graph.Requirement

// Gradient requirements.
const (
	None           = graph.None
	Grad           = graph.Grad
	GradInBackward = graph.GradInBackward
)

// Node is a node of the backward graph.
type Node = graph.Node

// Step is the backward computation of one node.
type Step = graph.Step

// Gradients is the gradient store steps read from and write to.
type Gradients = graph.Gradients

// Checkpointer hands saved forward values to steps.
type Checkpointer = graph.Checkpointer

// Registry maps node ids to the steps not yet executed.
type Registry = graph.Registry

// BreadthFirstSearch is the traversal used by backward passes.
type BreadthFirstSearch = graph.BreadthFirstSearch

// Item is anything Walk can traverse.
type Item = graph.Item

// DefaultStream is the stream of nodes recorded without an explicit stream.
var DefaultStream = graph.DefaultStream

// NewNodeID returns a process-unique node id.
func NewNodeID() NodeID { return graph.NewNodeID() }

// NewStreamID returns a new random stream id.
func NewStreamID() StreamID { return graph.NewStreamID() }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return graph.NewRegistry() }

// Walk visits root and the items reachable from it, removing each visited
// item from items.
func Walk[I Item](rootID NodeID, root I, items map[NodeID]I, callback func(NodeID, I)) {
	graph.Walk(rootID, root, items, callback)
}
