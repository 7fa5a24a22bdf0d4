package pwalk

import (
	"fmt"

	"github.com/pkg/errors"
)

// PathError wraps an OS error observed while servicing path, the
// "OS errors from syscalls" branch of spec §7's taxonomy. Cause()
// still reaches the underlying syscall.Errno/fs.PathError, following
// the teacher's combination of fmt.Errorf %w wrapping and
// github.com/pkg/errors.Wrap used throughout local.go.
type PathError struct {
	Path string
	Op   string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause continue past the PathError
// to the underlying error.
func (e *PathError) Cause() error { return e.Err }

func wrapPathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&PathError{Path: path, Op: op, Err: err}, "pwalk")
}

// CycleError is the synthetic ELOOP-equivalent error from spec §4.5.5:
// a directory's (dev,ino) matches one of its own ancestors. Loopoff is
// the byte offset in the full path immediately after that ancestor's
// name.
type CycleError struct {
	Path    string
	Loopoff int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("filesystem loop detected at %s (offset %d)", e.Path, e.Loopoff)
}
