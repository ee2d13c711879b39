package model

import "fmt"

// ConfigError reports malformed or contradictory instance parameters. It is
// raised before any model construction and is never recovered locally.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Reason }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
