package mosaic

import (
	"errors"
	"fmt"
)

// ErrTileUnavailable is returned by lookups that have no data for a tile.  Tile
// sources report this condition as an absent result rather than an error, so this
// value only surfaces from lower-level helpers.
var ErrTileUnavailable = errors.New("tile unavailable")

// ConfigError is a malformed or missing geometry or channel parameter.  It is fatal
// and is always returned before any tile is loaded or written.
type ConfigError struct {
	msg string
}

// NewConfigError returns a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return "bad configuration: " + e.msg
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TransportError is a network or storage failure reported by a tile source.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// WriteError is a failure to persist an output artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("unable to write %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
