package repo

import (
	"testing"
	"time"

	"github.com/odvcencio/hull/pkg/object"
)

// commitChain creates a repo and commits n times, re-staging its single
// tracked file (content unchanged) between commits, returning the hashes
// oldest-first.
func commitChain(t *testing.T, n int) (*Repo, []object.Hash) {
	t.Helper()
	r := initRepoWithFile(t, "chain.txt", []byte("0"))
	hashes := make([]object.Hash, 0, n)
	for i := 0; i < n; i++ {
		h, err := r.Commit("commit number", "author")
		if err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
		hashes = append(hashes, h)
		if i < n-1 {
			if err := r.AddPath("chain.txt", false); err != nil {
				t.Fatalf("AddPath: %v", err)
			}
		}
	}
	return r, hashes
}

func TestRevList_DefaultWalksFullHistory(t *testing.T) {
	r, hashes := commitChain(t, 5)

	entries, err := r.RevList(RevListOptions{MaxLines: -1})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("len(entries) = %d, want 5", len(entries))
	}
	// Default sort is newest first.
	if entries[0].Hash != hashes[4] {
		t.Errorf("entries[0].Hash = %s, want newest commit %s", entries[0].Hash, hashes[4])
	}
	if entries[4].Hash != hashes[0] {
		t.Errorf("entries[4].Hash = %s, want oldest commit %s", entries[4].Hash, hashes[0])
	}
}

func TestRevList_FromRevExcludesAncestry(t *testing.T) {
	r, hashes := commitChain(t, 5)

	// FromRev = hashes[1] (the 2nd commit) should exclude it and hashes[0],
	// leaving hashes[2], hashes[3], hashes[4].
	entries, err := r.RevList(RevListOptions{FromRev: string(hashes[1]), MaxLines: -1})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Hash == hashes[0] || e.Hash == hashes[1] {
			t.Errorf("uninteresting commit %s present in result", e.Hash)
		}
	}
}

func TestRevList_ToRevBoundsStart(t *testing.T) {
	r, hashes := commitChain(t, 5)

	entries, err := r.RevList(RevListOptions{ToRev: string(hashes[2]), MaxLines: -1})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 (hashes[0..2])", len(entries))
	}
	for _, e := range entries {
		if e.Hash == hashes[3] || e.Hash == hashes[4] {
			t.Errorf("commit %s after ToRev bound present in result", e.Hash)
		}
	}
}

func TestRevList_MaxLinesTruncates(t *testing.T) {
	r, _ := commitChain(t, 5)

	entries, err := r.RevList(RevListOptions{MaxLines: 2})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
}

func TestRevList_DateFilter(t *testing.T) {
	r, hashes := commitChain(t, 3)

	// Widen both bounds beyond the fixture's (seconds-resolution, very
	// recent) timestamps: everything should remain.
	entries, err := r.RevList(RevListOptions{
		FromDate: time.Now().Add(-time.Hour),
		ToDate:   time.Now().Add(time.Hour),
		MaxLines: -1,
	})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	// A window entirely in the past excludes everything.
	entries, err = r.RevList(RevListOptions{
		FromDate: time.Now().Add(-48 * time.Hour),
		ToDate:   time.Now().Add(-24 * time.Hour),
		MaxLines: -1,
	})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0 for an out-of-range window", len(entries))
	}
	_ = hashes
}

func TestRevList_MergeCommitWalksBothParents(t *testing.T) {
	r, hashes := commitChain(t, 2)

	// Fabricate a merge commit whose two parents are hashes[0] and
	// hashes[1], reusing hashes[1]'s tree so content is irrelevant to this
	// graph-shape test.
	c, err := r.Store.ReadCommit(hashes[1])
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	merge := &object.CommitObj{
		TreeHash:  c.TreeHash,
		Parents:   []object.Hash{hashes[1], hashes[0]},
		Author:    c.Author,
		Committer: c.Author,
		Message:   "merge",
	}
	mergeHash, err := r.Store.WriteCommit(merge)
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	if err := r.UpdateRef("refs/heads/main", mergeHash); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}

	entries, err := r.RevList(RevListOptions{MaxLines: -1})
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 (merge + 2 parents), got hashes %v", len(entries), entries)
	}
}

func TestWhatchanged_ProjectsChangeEntry(t *testing.T) {
	r, hashes := commitChain(t, 1)

	changes, err := r.Whatchanged(RevListOptions{MaxLines: -1})
	if err != nil {
		t.Fatalf("Whatchanged: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].CommitHash != hashes[0] {
		t.Errorf("CommitHash = %s, want %s", changes[0].CommitHash, hashes[0])
	}
	if changes[0].Subject != "commit number" {
		t.Errorf("Subject = %q, want %q", changes[0].Subject, "commit number")
	}
}
