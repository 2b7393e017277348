package launch

import "fmt"

// PreconditionError reports a required filesystem path that was absent
// before anything was spawned for the offending spec.
type PreconditionError struct {
	Label string
	Path  string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %q: %s does not exist or is not a directory", e.Label, e.Path)
}

// LaunchError wraps an OS-level process creation failure (bad
// executable, permissions) for a spec whose preconditions held.
type LaunchError struct {
	Label string
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch failed for %q: %v", e.Label, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
