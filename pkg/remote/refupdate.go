package remote

import (
	"strings"

	"github.com/odvcencio/hull/pkg/object"
)

// RefUpdateStatus classifies the outcome of one ref update attempted by a
// push, using the same vocabulary spec §4.1's push result classification
// names: a push succeeds iff none of its ref updates lands in a REJECTED_*
// status.
type RefUpdateStatus string

const (
	// RefUpdateOK means the remote applied the update to the requested
	// new value.
	RefUpdateOK RefUpdateStatus = "OK"
	// RefUpdateUpToDate means the requested new value already matched the
	// remote's current value; no transport attempt was needed.
	RefUpdateUpToDate RefUpdateStatus = "UP_TO_DATE"
	// RefUpdateRejectedNoDelete means a deletion (New == "") was refused.
	RefUpdateRejectedNoDelete RefUpdateStatus = "REJECTED_NODELETE"
	// RefUpdateRejectedNonFastForward means the local tip does not
	// descend from the remote's current tip and force was not set.
	RefUpdateRejectedNonFastForward RefUpdateStatus = "REJECTED_NONFASTFORWARD"
	// RefUpdateRejectedRemoteChanged means the remote's ref no longer
	// matched the value this push expected as its CAS precondition —
	// someone else updated it concurrently.
	RefUpdateRejectedRemoteChanged RefUpdateStatus = "REJECTED_REMOTE_CHANGED"
	// RefUpdateRejectedOtherReason covers any other rejection the
	// transport reported without a more specific classification above.
	RefUpdateRejectedOtherReason RefUpdateStatus = "REJECTED_OTHER_REASON"
)

// Rejected reports whether s is one of the four REJECTED_* outcomes that
// fail an entire push per spec §4.1.
func (s RefUpdateStatus) Rejected() bool {
	switch s {
	case RefUpdateRejectedNoDelete, RefUpdateRejectedNonFastForward, RefUpdateRejectedRemoteChanged, RefUpdateRejectedOtherReason:
		return true
	}
	return false
}

// RefUpdateResult is the classified outcome of one requested ref update
// within a push.
type RefUpdateResult struct {
	Name    string
	Status  RefUpdateStatus
	OldHash object.Hash
	NewHash object.Hash
}

// ClassifyRefUpdate turns one requested ref update (old/new CAS pair) and
// the transport's UpdateRefs response into a RefUpdateResult. nonFastForward
// is decided by the caller before the transport attempt (this transport's
// CAS check is a plain hash-equality test, not an ancestry check, so a
// non-fast-forward update without --force must never even be sent — it
// would otherwise be accepted by the remote and silently overwrite
// history). A ref present in updated with the requested new value is OK;
// any ref requested but missing from updated was refused by the remote and
// is classified by what's known locally about why.
func ClassifyRefUpdate(name string, old, new object.Hash, updated map[string]object.Hash, nonFastForward bool) RefUpdateResult {
	if old == new {
		return RefUpdateResult{Name: name, Status: RefUpdateUpToDate, OldHash: old, NewHash: new}
	}
	if applied, ok := updated[name]; ok && strings.TrimSpace(string(applied)) != "" {
		return RefUpdateResult{Name: name, Status: RefUpdateOK, OldHash: old, NewHash: applied}
	}
	switch {
	case strings.TrimSpace(string(new)) == "":
		return RefUpdateResult{Name: name, Status: RefUpdateRejectedNoDelete, OldHash: old, NewHash: new}
	case nonFastForward:
		return RefUpdateResult{Name: name, Status: RefUpdateRejectedNonFastForward, OldHash: old, NewHash: new}
	case strings.TrimSpace(string(old)) != "":
		return RefUpdateResult{Name: name, Status: RefUpdateRejectedRemoteChanged, OldHash: old, NewHash: new}
	default:
		return RefUpdateResult{Name: name, Status: RefUpdateRejectedOtherReason, OldHash: old, NewHash: new}
	}
}

// PushSucceeded implements spec §4.1's push result classification: after
// every transport attempt, iterate the per-remote-ref update statuses; any
// REJECTED_* status fails the whole push.
func PushSucceeded(results []RefUpdateResult) bool {
	for _, r := range results {
		if r.Status.Rejected() {
			return false
		}
	}
	return true
}
