package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Filesystem errors, matched by [FSError.Is]
	ErrPath = fmt.Errorf("path error")
	ErrIO   = fmt.Errorf("i/o error")

	// Sync errors
	ErrSourceNotFound = fmt.Errorf("source not found")
	ErrNotADirectory  = fmt.Errorf("not a directory")
	ErrRunNotFound    = fmt.Errorf("sync run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// ErrorKind classifies an [FSError].
type ErrorKind int

const (
	PathError ErrorKind = iota
	IOError
)

func (k ErrorKind) String() string {
	switch k {
	case PathError:
		return "path"
	case IOError:
		return "io"
	default:
		return ""
	}
}

// FSError is returned by path resolution and filesystem operations.
//
// Description is always set; Err holds the underlying system error when there is one.
type FSError struct {
	Kind        ErrorKind
	Description string
	Err         error
}

// NewPathError builds a [PathError] with a formatted description.
func NewPathError(format string, args ...any) *FSError {
	return &FSError{Kind: PathError, Description: fmt.Sprintf(format, args...)}
}

// NewIOError wraps err in an [IOError] with a formatted description.
func NewIOError(err error, format string, args ...any) *FSError {
	return &FSError{Kind: IOError, Description: fmt.Sprintf(format, args...), Err: err}
}

func (e *FSError) Error() string {
	if e.Err == nil {
		return e.Description
	}
	return fmt.Sprintf("%s: %v", e.Description, e.Err)
}

func (e *FSError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *FSError) Is(target error) bool {
	switch e.Kind {
	case PathError:
		return target == ErrPath
	case IOError:
		return target == ErrIO
	default:
		return false
	}
}
