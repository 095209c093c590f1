package repo

import "github.com/odvcencio/hull/pkg/object"

// FindMergeBase returns a common ancestor of a and b, found by walking the
// full ancestry of a and testing each of b's ancestors (nearest first) for
// membership. Ancestry here means every commit reachable by following
// parent links, so the result is a valid merge base (not necessarily the
// unique lowest one when the graph has multiple candidates at the same
// depth, which is sufficient for the fast-forward check this exists for:
// base == b iff b is itself an ancestor of a).
func (r *Repo) FindMergeBase(a, b object.Hash) (object.Hash, error) {
	aAncestors := make(map[object.Hash]struct{})
	if err := r.collectReachable(a, aAncestors); err != nil {
		return "", err
	}
	if _, ok := aAncestors[b]; ok {
		return b, nil
	}

	bOrder, err := r.walkDAG(b)
	if err != nil {
		return "", err
	}
	for _, e := range bOrder {
		if _, ok := aAncestors[e.Hash]; ok {
			return e.Hash, nil
		}
	}
	return "", nil
}
