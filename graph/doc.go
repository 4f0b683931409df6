// Copyright 2026 Shuffle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the deferred computation-graph builder used to
// describe convolutional networks.
//
// # Overview
//
// A Builder owns an arena of operation nodes; every operation appends one
// node and returns an opaque Node handle carrying the statically inferred
// per-example shape. No tensor data is touched during construction — a
// backend compiles the finished graph and runs it.
//
// # Basic Usage
//
//	import (
//	    "github.com/shuffle-ml/shuffle/graph"
//	    "github.com/shuffle-ml/shuffle/backend/cpu"
//	)
//
//	func main() {
//	    b, _ := graph.NewBuilder(graph.NHWC)
//	    in, _ := b.Input(graph.Shape{32, 32, 3})
//	    y, _ := b.Conv2D(in, 24, 3, 3, 2, true)
//	    y, _ = b.ReLU(y)
//	    y, _ = b.GlobalAvgPool(y)
//	    y, _ = b.Dense(y, 10)
//	    out, _ := b.Softmax(y)
//
//	    model, _ := cpu.New().Compile(b, in, out)
//	    _ = model
//	}
//
// # Layout
//
// Whether channels sit before or after the spatial axes is an explicit
// Layout fixed per Builder, never ambient process state; builders with
// different conventions coexist freely in one process.
//
// # Errors
//
// Invalid configurations are reported as *ConfigError before the node is
// appended, so a failed call leaves the graph untouched.
package graph
