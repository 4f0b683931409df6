package graph

import "fmt"

// ConfigError reports an invalid graph construction request: a shape or
// parameter combination that can never produce a valid operation, such as
// a channel count that is not divisible by a group count.
//
// Configuration errors are detected before the offending node is appended
// to the builder, so a failed call leaves the graph exactly as it was.
// They are fatal to the build: no partial graph is useful.
type ConfigError struct {
	Op  string // operation being constructed, e.g. "conv2d"
	Msg string // details including the offending values
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("graph: %s: %s", e.Op, e.Msg)
}

// configErrorf builds a *ConfigError with a formatted message.
func configErrorf(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
