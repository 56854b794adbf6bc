package landcover

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration    = errors.New("configuration error")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnknownClassCode = errors.New("unknown class code")
)

// ConfigurationError reports an invalid rule, taxonomy or ground sampling
// distance. It is fatal for a run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// NewConfigurationError is used by other packages validating their own settings.
func NewConfigurationError(format string, args ...interface{}) error {
	return configErrorf(format, args...)
}

// ShapeMismatchError is returned when before and after masks of a tile pair
// are not spatially aligned.
type ShapeMismatchError struct {
	Before Shape
	After  Shape
	Detail string
}

func (e *ShapeMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("shape mismatch: before %s vs after %s (%s)", e.Before, e.After, e.Detail)
	}
	return fmt.Sprintf("shape mismatch: before %s vs after %s", e.Before, e.After)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// UnknownClassCodeError describes codes outside the taxonomy. The engine
// recovers from it by leaving those pixels out of every rule.
type UnknownClassCodeError struct {
	Codes []ClassCode
	Count int
}

func (e *UnknownClassCodeError) Error() string {
	return fmt.Sprintf("unknown class codes %v in %d pixels", e.Codes, e.Count)
}

func (e *UnknownClassCodeError) Is(target error) bool {
	return target == ErrUnknownClassCode
}
