// Copyright 2026 Shuffle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import "github.com/shuffle-ml/shuffle/internal/graph"

// Shape represents the per-example dimensions of a graph value.
type Shape = graph.Shape

// Layout selects where the channel dimension sits in image-shaped values.
type Layout = graph.Layout

// Layout conventions.
const (
	NCHW = graph.NCHW
	NHWC = graph.NHWC
)

// Builder accumulates operation nodes for a single feed-forward graph.
type Builder = graph.Builder

// Node is an opaque handle to one operation in a Builder's arena.
type Node = graph.Node

// NodeInfo is a read-only view of one operation and its attributes.
type NodeInfo = graph.NodeInfo

// OpKind identifies the operation a node performs.
type OpKind = graph.OpKind

// ParamSpec describes one parameter a node needs.
type ParamSpec = graph.ParamSpec

// ConfigError reports an invalid graph construction request.
type ConfigError = graph.ConfigError

// NewBuilder creates an empty graph builder using the given layout
// convention for all image-shaped values.
func NewBuilder(layout Layout) (*Builder, error) {
	return graph.NewBuilder(layout)
}

// SamePadding returns the leading and trailing padding of one spatial
// dimension under "same" padding semantics.
func SamePadding(in, kernel, stride int) (lead, trail int) {
	return graph.SamePadding(in, kernel, stride)
}
