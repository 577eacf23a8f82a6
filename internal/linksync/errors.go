package linksync

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotSignedIn is returned by operations that need a session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNoConflict is returned by Resolve when no conflict is pending.
	ErrNoConflict = errors.New("no conflict pending")
	// ErrConflictPending blocks automatic reconciliation until resolved.
	ErrConflictPending = errors.New("local and cloud links differ, choose a resolution")
	// ErrUnknownLink is returned when no local link has the given id or url.
	ErrUnknownLink = errors.New("unknown link")
	// ErrInvalidImport is returned for import files without usable links.
	ErrInvalidImport = errors.New("invalid or empty import file")
)

// InconsistencyError reports that local state was updated but the cloud
// overwrite did not complete. RemoteCleared is set when the remote delete
// went through, leaving the cloud empty.
type InconsistencyError struct {
	Op            string
	RemoteCleared bool
	Err           error
}

func (e *InconsistencyError) Error() string {
	state := "cloud still holds the previous links"
	if e.RemoteCleared {
		state = "cloud is now empty"
	}
	return fmt.Sprintf("local links updated, cloud NOT updated (%s): %s: %v", state, e.Op, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// RemoteError is a failed cloud write after the local change was kept.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("local change kept, cloud %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// BatchFailure is one failed update of a batch.
type BatchFailure struct {
	URL string
	Err error
}

// BatchError aggregates the failed updates of a best-effort batch. The
// updates that succeeded are not rolled back.
type BatchError struct {
	Op       string
	Total    int
	Failures []BatchFailure
}

func (e *BatchError) Error() string {
	urls := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		urls = append(urls, f.URL)
	}
	return fmt.Sprintf("%s: %d of %d updates failed (%s)", e.Op, len(e.Failures), e.Total, strings.Join(urls, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
