// Copyright 2026 Shuffle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU executor for built graphs.
//
// # Overview
//
// This package compiles a graph.Builder into a runnable Model:
//   - Pure Go implementation (no CGO)
//   - Im2col convolutions collapsed into gonum GEMMs
//   - Glorot-initialised parameters
//   - Chunked worker loops over batch and channels
//
// # Basic Usage
//
//	import (
//	    "github.com/shuffle-ml/shuffle/backend/cpu"
//	    "github.com/shuffle-ml/shuffle/graph"
//	    "github.com/shuffle-ml/shuffle/shufflenet"
//	)
//
//	func main() {
//	    b, _ := graph.NewBuilder(graph.NHWC)
//	    in, out, _ := shufflenet.Build(b, shufflenet.NetworkConfig{
//	        Height: 224, Width: 224, Channels: 3, NumClasses: 1000,
//	    })
//	    model, _ := cpu.New().Compile(b, in, out)
//	    probs, _ := model.Run(1, make([]float64, 224*224*3))
//	    _ = probs
//	}
//
// # Thread Safety
//
// A compiled Model is safe for concurrent Run calls: parameters are read
// only and every pass allocates its own intermediate buffers.
package cpu
