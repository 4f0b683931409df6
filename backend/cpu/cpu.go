// Copyright 2026 Shuffle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/shuffle-ml/shuffle/internal/backend/cpu"
)

// Backend executes graphs on the CPU.
type Backend = internalcpu.Backend

// Model is a compiled graph ready to run forward passes.
type Model = internalcpu.Model

// BackendError reports a failure raised while executing a compiled graph.
type BackendError = internalcpu.BackendError

// New creates a CPU backend sized to the machine's CPU count.
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend with an explicit worker count.
func NewWithWorkers(workers int) *Backend {
	return internalcpu.NewWithWorkers(workers)
}
