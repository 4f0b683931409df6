// Copyright 2026 Shuffle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package shufflenet

import (
	"github.com/shuffle-ml/shuffle/internal/graph"
	"github.com/shuffle-ml/shuffle/internal/shufflenet"
)

// DefaultBottleneckRatio is the fraction of a unit's output width used as
// its internal bottleneck width when a config leaves the ratio zero.
const DefaultBottleneckRatio = shufflenet.DefaultBottleneckRatio

// StemFilters is the output channel count of the initial convolution.
const StemFilters = shufflenet.StemFilters

// UnitConfig fully determines one shuffle unit.
type UnitConfig = shufflenet.UnitConfig

// StageConfig determines one stage of repeated shuffle units.
type StageConfig = shufflenet.StageConfig

// NetworkConfig determines a whole network build.
type NetworkConfig = shufflenet.NetworkConfig

// BottleneckMode selects how a unit reduces to its bottleneck width.
type BottleneckMode = shufflenet.BottleneckMode

// MergeMode selects how a unit combines its branches.
type MergeMode = shufflenet.MergeMode

// Unit branching decisions.
const (
	BottleneckGrouped   = shufflenet.BottleneckGrouped
	BottleneckPlain     = shufflenet.BottleneckPlain
	MergeAdd            = shufflenet.MergeAdd
	MergeConcatShortcut = shufflenet.MergeConcatShortcut
)

// DefaultStages returns the stage table of the original ShuffleNet with 8
// groups.
func DefaultStages() []StageConfig {
	return shufflenet.DefaultStages()
}

// GroupedConv appends a grouped 2D convolution: channels are split into
// contiguous groups, convolved independently, and concatenated in group
// order.
func GroupedConv(b *graph.Builder, x graph.Node, filters, kernelH, kernelW, stride, groups int) (graph.Node, error) {
	return shufflenet.GroupedConv(b, x, filters, kernelH, kernelW, stride, groups)
}

// ChannelShuffle appends the channel-shuffle permutation that re-mixes
// channels across groups.
func ChannelShuffle(b *graph.Builder, x graph.Node, groups int) (graph.Node, error) {
	return shufflenet.ChannelShuffle(b, x, groups)
}

// ShuffleUnit appends one bottleneck residual block.
func ShuffleUnit(b *graph.Builder, x graph.Node, cfg UnitConfig) (graph.Node, error) {
	return shufflenet.ShuffleUnit(b, x, cfg)
}

// StageOf appends one stage: a downsampling unit followed by residual
// units sharing the stage's channel width.
func StageOf(b *graph.Builder, x graph.Node, cfg StageConfig) (graph.Node, error) {
	return shufflenet.StageOf(b, x, cfg)
}

// Build assembles the full network on b and returns the input and output
// handles for a backend to compile into an executable model.
func Build(b *graph.Builder, cfg NetworkConfig) (input, output graph.Node, err error) {
	return shufflenet.Build(b, cfg)
}
