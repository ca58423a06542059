package errors

import "fmt"

// ConfigError is the only fatal error class. It is raised for invalid
// controller-supplied parameters (e.g. a missing source root) before any
// scanning begins.
type ConfigError struct {
	Parameter string
	Message   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %q: %s", e.Parameter, e.Message)
}

// NewConfigError creates a ConfigError for the given parameter.
func NewConfigError(parameter, format string, args ...interface{}) error {
	return &ConfigError{
		Parameter: parameter,
		Message:   fmt.Sprintf(format, args...),
	}
}

// PartialError marks a run that finished with recoverable errors recorded in
// its report or changelog. Commands translate it into a distinct exit code so
// callers can tell a clean run from a degraded one.
type PartialError struct {
	Message string
}

func (e *PartialError) Error() string {
	return e.Message
}

// NewPartialError creates a PartialError.
func NewPartialError(format string, args ...interface{}) error {
	return &PartialError{Message: fmt.Sprintf(format, args...)}
}

// PathResolutionError means the executor could not locate the physical file a
// finding refers to. It is recorded per changelog entry; the run continues.
type PathResolutionError struct {
	FilePath string
	Root     string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q under %q", e.FilePath, e.Root)
}

// NewPathResolutionError creates a PathResolutionError.
func NewPathResolutionError(filePath, root string) error {
	return &PathResolutionError{FilePath: filePath, Root: root}
}

// UnsupportedTransformationError means a phase requested a transformation kind
// not implemented for a finding's origin. Treated as a skip, never fatal.
type UnsupportedTransformationError struct {
	Origin string
	Phase  string
}

func (e *UnsupportedTransformationError) Error() string {
	return fmt.Sprintf("no transformation implemented for origin %q in phase %q", e.Origin, e.Phase)
}

// NewUnsupportedTransformationError creates an UnsupportedTransformationError.
func NewUnsupportedTransformationError(origin, phase string) error {
	return &UnsupportedTransformationError{Origin: origin, Phase: phase}
}
