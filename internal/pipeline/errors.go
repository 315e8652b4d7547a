package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every configuration error returned before a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports rejected pipeline parameters. It is the only error the
// pipeline surfaces; data-quality problems become missing values instead.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	if e == nil || e.Err == nil {
		return ErrInvalidConfig.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInvalidConfig, e.Err)
}

func (e *ConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }
