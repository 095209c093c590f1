package repo

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/odvcencio/hull/pkg/object"
)

// RevSortOrder names a sort applied to a RevList walk.
type RevSortOrder int

const (
	// RevSortTopo orders commits so a commit never appears before any of
	// its descendants (parents always come after the children that
	// introduced them).
	RevSortTopo RevSortOrder = iota
	// RevSortCommitTimeDesc orders commits by author timestamp, newest
	// first, breaking topological ties.
	RevSortCommitTimeDesc
)

// RevListOptions configures a HistoryQuery walk. The zero value starts at
// HEAD with the default sort, but its MaxLines of 0 truncates the result to
// no entries; MaxLines -1 leaves the walk unbounded.
type RevListOptions struct {
	// SortOrders selects the walk order; when empty, {TOPO, COMMIT_TIME_DESC}
	// is applied, matching the default policy of spec §4.6.
	SortOrders []RevSortOrder
	// FromRev, if set, is resolved and marked uninteresting: it and every
	// commit reachable from it are excluded from the result (exclusive
	// lower bound).
	FromRev string
	// ToRev, if set, is resolved and marked as the walk's start. When
	// empty, HEAD is used and it is an error for HEAD not to resolve.
	ToRev string
	// FromDate and ToDate, when non-zero, bound the walk to commits whose
	// author timestamp falls within [FromDate, ToDate].
	FromDate time.Time
	ToDate   time.Time
	// MaxLines caps the number of commits returned; -1 means unbounded.
	MaxLines int
}

// RevListEntry pairs a commit's hash with its decoded object, since
// CommitObj does not carry its own identity.
type RevListEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// ChangeEntry is the per-commit projection Whatchanged emits: commit
// metadata without any working-tree or diff content (spec §3).
type ChangeEntry struct {
	CommitHash object.Hash
	TreeHash   object.Hash
	Author     object.Identity
	Committer  object.Identity
	Subject    string
	Body       string
}

// resolveRevspec resolves rev to a commit hash: HEAD, a ref name
// ("refs/..." or a bare branch name), or a raw object hash, in that order.
func (r *Repo) resolveRevspec(rev string) (object.Hash, error) {
	if h, err := r.ResolveRef(rev); err == nil {
		return h, nil
	}
	h := object.Hash(rev)
	if _, err := r.Store.ReadCommit(h); err != nil {
		return "", fmt.Errorf("revspec %q does not resolve", rev)
	}
	return h, nil
}

// RevList implements HistoryQuery's revList operation (spec §4.6): it marks
// FromRev and its ancestors uninteresting, walks the full multi-parent DAG
// from ToRev (or HEAD), applies date bounds, sorts per SortOrders, and
// truncates to MaxLines.
func (r *Repo) RevList(opts RevListOptions) ([]RevListEntry, error) {
	startHash, err := r.revListStart(opts.ToRev)
	if err != nil {
		return nil, fmt.Errorf("rev-list: %w", err)
	}

	uninteresting := make(map[object.Hash]struct{})
	if opts.FromRev != "" {
		fromHash, err := r.resolveRevspec(opts.FromRev)
		if err != nil {
			return nil, fmt.Errorf("rev-list: resolve fromRev: %w", err)
		}
		if err := r.collectReachable(fromHash, uninteresting); err != nil {
			return nil, fmt.Errorf("rev-list: walk fromRev ancestry: %w", err)
		}
	}

	all, err := r.walkDAG(startHash)
	if err != nil {
		return nil, fmt.Errorf("rev-list: %w", err)
	}

	var entries []RevListEntry
	for _, e := range all {
		if _, excluded := uninteresting[e.Hash]; excluded {
			continue
		}
		if !opts.FromDate.IsZero() && e.Commit.Author.When < opts.FromDate.Unix() {
			continue
		}
		if !opts.ToDate.IsZero() && e.Commit.Author.When > opts.ToDate.Unix() {
			continue
		}
		entries = append(entries, e)
	}

	sortRevList(entries, opts.SortOrders)

	if opts.MaxLines >= 0 && len(entries) > opts.MaxLines {
		entries = entries[:opts.MaxLines]
	}

	return entries, nil
}

// Whatchanged implements HistoryQuery's whatchanged operation: it runs the
// same RevList walk and projects each commit into a ChangeEntry.
func (r *Repo) Whatchanged(opts RevListOptions) ([]ChangeEntry, error) {
	entries, err := r.RevList(opts)
	if err != nil {
		return nil, err
	}

	changes := make([]ChangeEntry, 0, len(entries))
	for _, e := range entries {
		subject, body := splitMessage(e.Commit.Message)
		changes = append(changes, ChangeEntry{
			CommitHash: e.Hash,
			TreeHash:   e.Commit.TreeHash,
			Author:     e.Commit.Author,
			Committer:  e.Commit.Committer,
			Subject:    subject,
			Body:       body,
		})
	}
	return changes, nil
}

// revListStart resolves ToRev, or HEAD when ToRev is empty, failing when
// HEAD itself does not resolve (spec §4.6: "fails if HEAD unresolved").
func (r *Repo) revListStart(toRev string) (object.Hash, error) {
	if toRev != "" {
		return r.resolveRevspec(toRev)
	}
	h, err := r.ResolveRef("HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return h, nil
}

// collectReachable adds start and every ancestor reachable from it
// (following all parent links) to seen.
func (r *Repo) collectReachable(start object.Hash, seen map[object.Hash]struct{}) error {
	stack := []object.Hash{start}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[h]; ok {
			continue
		}
		c, err := r.Store.ReadCommit(h)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		seen[h] = struct{}{}
		stack = append(stack, c.Parents...)
	}
	return nil
}

// walkDAG performs a full multi-parent traversal from start, visiting each
// commit exactly once, in arrival order (parents discovered through
// whichever child reaches them first). This generalizes the first-parent-
// only Log walk to the whole commit graph, since rev-list must enumerate
// every ancestor, not one lineage.
func (r *Repo) walkDAG(start object.Hash) ([]RevListEntry, error) {
	var result []RevListEntry
	visited := make(map[object.Hash]struct{})
	stack := []object.Hash{start}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[h]; ok {
			continue
		}
		c, err := r.Store.ReadCommit(h)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read commit %s: %w", h, err)
		}
		visited[h] = struct{}{}
		result = append(result, RevListEntry{Hash: h, Commit: c})
		stack = append(stack, c.Parents...)
	}

	return result, nil
}

// sortRevList applies orders to entries in place. An empty orders list
// applies the default policy, {TOPO, COMMIT_TIME_DESC}: a topological sort
// (no commit before any of its parents... here expressed as no parent
// before the child that introduced it, since the list is newest-first) with
// ties broken by descending author timestamp.
func sortRevList(entries []RevListEntry, orders []RevSortOrder) {
	if len(orders) == 0 {
		orders = []RevSortOrder{RevSortTopo, RevSortCommitTimeDesc}
	}

	index := make(map[object.Hash]int, len(entries))
	for i, e := range entries {
		index[e.Hash] = i
	}

	wantTopo := false
	wantTimeDesc := false
	for _, o := range orders {
		switch o {
		case RevSortTopo:
			wantTopo = true
		case RevSortCommitTimeDesc:
			wantTimeDesc = true
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if wantTopo {
			aIsParentOfB := isParentOf(b.Commit, a.Hash)
			bIsParentOfA := isParentOf(a.Commit, b.Hash)
			if bIsParentOfA && !aIsParentOfB {
				return true
			}
			if aIsParentOfB && !bIsParentOfA {
				return false
			}
		}
		if wantTimeDesc && a.Commit.Author.When != b.Commit.Author.When {
			return a.Commit.Author.When > b.Commit.Author.When
		}
		return index[a.Hash] < index[b.Hash]
	})
}

func isParentOf(commit *object.CommitObj, candidate object.Hash) bool {
	for _, p := range commit.Parents {
		if p == candidate {
			return true
		}
	}
	return false
}

// splitMessage splits a commit message into its subject (first line) and
// body (remainder, with the blank separator line trimmed).
func splitMessage(message string) (subject, body string) {
	idx := strings.IndexByte(message, '\n')
	if idx < 0 {
		return message, ""
	}
	subject = message[:idx]
	body = strings.TrimPrefix(message[idx+1:], "\n")
	return subject, strings.TrimRight(body, "\n")
}
