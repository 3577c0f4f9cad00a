package scan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrScanNotFound is returned for operations on an unknown or finished scan.
var ErrScanNotFound = errors.New("scan not found")

// ConfigError reports a scan request that cannot be scheduled, such as a
// reference to a root that no longer exists. It is returned synchronously
// from Start and nothing is queued.
type ConfigError struct {
	RootID  int64  // Referenced root, zero when not applicable
	Message string // Human-readable error message
	Err     error  // Underlying error (optional)
}

// NewConfigError creates a ConfigError for the given root.
func NewConfigError(rootID int64, msg string, err error) *ConfigError {
	return &ConfigError{RootID: rootID, Message: msg, Err: err}
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	var sb strings.Builder
	if e.RootID != 0 {
		sb.WriteString(fmt.Sprintf("root %d: ", e.RootID))
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransitionError reports a state change the lifecycle does not allow.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal scan transition %s -> %s", e.From, e.To)
}
