// Package porcelain implements the PorcelainFaçade: a single entry point
// that sequences the lower-level repo/object/remote primitives into the
// user-facing operations (init, commit, status, clone, fetch, push, ...)
// and normalizes their failures into a small, wrapped error taxonomy.
package porcelain

import (
	"errors"
	"fmt"
)

// ErrPreconditionFailed means an operation's precondition did not hold —
// e.g. committing with nothing staged, or checking out with a dirty
// working tree.
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrRepositoryMissing means the façade was asked to operate on a path
// that has no repository, or an Existing/Wrap call found none.
var ErrRepositoryMissing = errors.New("repository missing")

// ErrRefNotResolvable means a ref name, branch, or revspec could not be
// resolved to an object hash.
var ErrRefNotResolvable = errors.New("ref not resolvable")

// ErrIndexUpdateFailed means staging the index (Add/Remove) failed.
var ErrIndexUpdateFailed = errors.New("index update failed")

// ErrCommitFailed means commit construction or the HEAD ref update failed.
var ErrCommitFailed = errors.New("commit failed")

// ErrCorruptObject means an object on disk or over the wire failed to
// decode into its expected type.
var ErrCorruptObject = errors.New("corrupt object")

// ErrTransportFailure means a remote operation (ListRefs, fetch, push)
// failed at the network/protocol layer.
var ErrTransportFailure = errors.New("transport failure")

// ErrUnexpectedStatusCase means StatusReconcile reached a (work, index,
// repo) combination classifyStatus has no case for — a defect, not a
// user error — mirroring repo.UnexpectedStatusCaseError.
var ErrUnexpectedStatusCase = errors.New("unexpected status case")

// facadeError wraps cause under one of the taxonomy sentinels above, so
// callers can both errors.Is against the sentinel and unwrap to the
// underlying repo/object/remote error for detail.
type facadeError struct {
	sentinel error
	op       string
	cause    error
}

func (e *facadeError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.op, e.sentinel)
	}
	return fmt.Sprintf("%s: %s: %v", e.op, e.sentinel, e.cause)
}

func (e *facadeError) Unwrap() error { return e.cause }

func (e *facadeError) Is(target error) bool { return target == e.sentinel }

func wrapErr(sentinel error, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &facadeError{sentinel: sentinel, op: op, cause: cause}
}
