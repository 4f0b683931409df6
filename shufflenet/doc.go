// Copyright 2026 Shuffle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package shufflenet builds the computation graph of the ShuffleNet
// image-classification architecture.
//
// # Overview
//
// ShuffleNet keeps compute low by restricting pointwise convolutions to
// channel groups and re-mixing information across groups with a cheap
// channel-shuffle permutation. This package exposes the architecture's
// primitives — grouped convolution, channel shuffle, the residual shuffle
// unit and the stage — alongside Build, which assembles the whole network
// from a configuration table.
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
//	    in, out, err := shufflenet.Build(b, shufflenet.NetworkConfig{
//	        Height: 224, Width: 224, Channels: 3,
//	        NumClasses: 1000,
//	    })
//	    if err != nil {
//	        // a configuration violation; the handles are zero Nodes
//	    }
//	    model, _ := cpu.New().Compile(b, in, out)
//	    _ = model
//	}
//
// The default stage table (384x4, 768x8, 1536x4 with 8 groups) and the
// 0.25 bottleneck ratio match the original architecture and can be
// overridden per NetworkConfig.
package shufflenet
