package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/odvcencio/hull/pkg/object"
)

// IndexStatus classifies a path's working-tree-vs-staged-index relationship.
type IndexStatus int

const (
	IndexUnchanged IndexStatus = iota
	IndexUntracked
	IndexAdded
	IndexModified
	IndexDeleted
)

func (s IndexStatus) String() string {
	switch s {
	case IndexUnchanged:
		return "unchanged"
	case IndexUntracked:
		return "untracked"
	case IndexAdded:
		return "added"
	case IndexModified:
		return "modified"
	case IndexDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RepoStatus classifies a path's staged-index-vs-HEAD-tree relationship.
type RepoStatus int

const (
	RepoUnchanged RepoStatus = iota
	RepoUntracked
	RepoAdded
	RepoRemoved
)

func (s RepoStatus) String() string {
	switch s {
	case RepoUnchanged:
		return "unchanged"
	case RepoUntracked:
		return "untracked"
	case RepoAdded:
		return "added"
	case RepoRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// StatusEntry records the status of a single path.
type StatusEntry struct {
	Path        string
	RenamedFrom string
	IndexStatus IndexStatus
	RepoStatus  RepoStatus
	Conflict    bool
}

// UnexpectedStatusCaseError reports a (WD,Idx,Repo) combination the
// classification table does not cover.
type UnexpectedStatusCaseError struct {
	Path                  string
	InWD, InIdx, InRepo   bool
}

func (e *UnexpectedStatusCaseError) Error() string {
	return fmt.Sprintf("unexpected status case for %q: wd=%v idx=%v repo=%v", e.Path, e.InWD, e.InIdx, e.InRepo)
}

type headTreeState struct {
	BlobHash object.Hash
	Mode     string
}

// Status computes working-tree status with listUnchanged=false and
// lenient=true, the common case used by the CLI and most callers.
func (r *Repo) Status() ([]StatusEntry, error) {
	return r.StatusReconcile(false, true)
}

// StatusReconcile implements the StatusReconciler algorithm: a three-way
// comparison of the working tree, the staged index, and the HEAD commit's
// tree, producing an ordered list of per-path (IndexStatus, RepoStatus)
// classifications. When listUnchanged is false, fully unchanged paths are
// omitted. When lenient is true, any (WD,Idx,Repo) combination the
// classification table does not cover is logged and skipped rather than
// failing the whole call.
func (r *Repo) StatusReconcile(listUnchanged, lenient bool) ([]StatusEntry, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	ic := NewIgnoreChecker(r.RootDir)

	workFiles, err := workTreeSource(r.RootDir)
	if err != nil {
		return nil, fmt.Errorf("status: walk: %w", err)
	}

	headEntries := r.headTreeEntries()

	workRenamedNewToOld, workRenamedOldToNew, err := r.detectWorktreeRenames(stg, workFiles)
	if err != nil {
		return nil, fmt.Errorf("status: detect worktree renames: %w", err)
	}
	indexRenamedNewToOld, indexRenamedOldToNew := detectIndexRenames(stg, headEntries)

	refreshStaging := false
	paths := unionPathSet(workFiles, stg.Entries, headEntries)

	var entries []StatusEntry
	for _, path := range paths {
		if ic.IsIgnored(path) {
			continue
		}

		work, inWD := workFiles[path]
		se, inIdx := stg.Entries[path]
		head, inRepo := headEntries[path]

		if se != nil && se.Conflict {
			entries = append(entries, StatusEntry{Path: path, Conflict: true})
			continue
		}

		if inWD && inIdx && !inRepo && se.Mode == object.TreeModeGitlink {
			continue
		}

		entry, refreshed, ok := classifyStatus(r, path, work, inWD, se, inIdx, head, inRepo)
		if !ok {
			if lenient {
				fmt.Fprintf(os.Stderr, "status: skipping unexpected case for %q (wd=%v idx=%v repo=%v)\n", path, inWD, inIdx, inRepo)
				continue
			}
			return nil, &UnexpectedStatusCaseError{Path: path, InWD: inWD, InIdx: inIdx, InRepo: inRepo}
		}
		if refreshed {
			refreshStaging = true
		}

		if entry.IndexStatus == IndexUntracked && !inIdx {
			if oldPath, renamed := workRenamedNewToOld[path]; renamed {
				entry.RenamedFrom = oldPath
			}
		}
		if entry.IndexStatus == IndexDeleted {
			if _, renamed := workRenamedOldToNew[path]; renamed {
				continue
			}
		}
		if entry.RepoStatus == RepoUntracked && inIdx && !inRepo {
			if oldPath, renamed := indexRenamedNewToOld[path]; renamed {
				entry.RenamedFrom = oldPath
			}
		}
		if entry.RepoStatus == RepoRemoved && !inIdx {
			if _, renamed := indexRenamedOldToNew[path]; renamed {
				continue
			}
		}

		if entry.IndexStatus == IndexUnchanged && entry.RepoStatus == RepoUnchanged && !listUnchanged {
			continue
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	if refreshStaging {
		if err := r.WriteStaging(stg); err != nil {
			return nil, fmt.Errorf("status: refresh staging: %w", err)
		}
	}

	return entries, nil
}

// classifyStatus implements the literal 13-row table of §4.2. The returned
// bool reports whether the combination was recognized; the second return
// is true when the staged entry's cached stat fields were refreshed
// in-place (content unchanged, metadata brought current).
func classifyStatus(r *Repo, path string, work walkRecord, inWD bool, se *StagingEntry, inIdx bool, head headTreeState, inRepo bool) (StatusEntry, bool, bool) {
	entry := StatusEntry{Path: path}

	switch {
	case inWD && !inIdx && !inRepo:
		entry.IndexStatus, entry.RepoStatus = IndexUntracked, RepoUntracked
		return entry, false, true

	case inWD && inIdx && !inRepo:
		equal, refreshed, err := workMatchesIndex(r, path, work, se)
		if err != nil {
			return entry, false, false
		}
		if equal {
			entry.IndexStatus, entry.RepoStatus = IndexAdded, RepoUntracked
		} else {
			entry.IndexStatus, entry.RepoStatus = IndexModified, RepoUntracked
		}
		return entry, refreshed, true

	case !inWD && inIdx && inRepo:
		entry.IndexStatus = IndexDeleted
		if idxEqualsRepo(se, head) {
			entry.RepoStatus = RepoUnchanged
		} else {
			entry.RepoStatus = RepoAdded
		}
		return entry, false, true

	case inWD && inIdx && inRepo:
		equal, refreshed, err := workMatchesIndex(r, path, work, se)
		if err != nil {
			return entry, false, false
		}
		idxRepoEqual := idxEqualsRepo(se, head)
		switch {
		case equal && idxRepoEqual:
			entry.IndexStatus, entry.RepoStatus = IndexUnchanged, RepoUnchanged
		case equal && !idxRepoEqual:
			entry.IndexStatus, entry.RepoStatus = IndexAdded, RepoAdded
		case !equal && idxRepoEqual:
			entry.IndexStatus, entry.RepoStatus = IndexModified, RepoUnchanged
		default:
			entry.IndexStatus, entry.RepoStatus = IndexModified, RepoAdded
		}
		return entry, refreshed, true

	case !inWD && inIdx && !inRepo:
		entry.IndexStatus, entry.RepoStatus = IndexDeleted, RepoUntracked
		return entry, false, true

	case !inWD && !inIdx && inRepo:
		entry.IndexStatus, entry.RepoStatus = IndexDeleted, RepoRemoved
		return entry, false, true

	case inWD && !inIdx && inRepo:
		entry.IndexStatus, entry.RepoStatus = IndexUntracked, RepoRemoved
		return entry, false, true

	default: // (F,F,F) is impossible: the path wouldn't be in the union.
		return entry, false, false
	}
}

// workMatchesIndex reports whether the working-tree content at path equals
// what the staged index records, preferring the cheap stat-based fast path
// and falling back to a content hash when size or timestamp disagree.
func workMatchesIndex(r *Repo, path string, work walkRecord, se *StagingEntry) (equal bool, refreshed bool, err error) {
	if se.Size == work.Size && timestampMatches(se.ModTime, work.ModTime) && normalizeFileMode(se.Mode) == normalizeFileMode(work.Mode) {
		if !isRacyCleanModTime(time.Unix(0, work.ModTime)) {
			return true, false, nil
		}
	}

	absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
	info, statErr := os.Lstat(absPath)
	if statErr != nil {
		return false, false, statErr
	}
	workHash, hashErr := r.worktreeBlobHash(path, absPath, info, work.Mode)
	if hashErr != nil {
		return false, false, hashErr
	}
	equal = workHash == se.BlobHash && normalizeFileMode(se.Mode) == normalizeFileMode(work.Mode)
	if equal && (se.Size != work.Size || se.ModTime != work.ModTime) {
		se.Size = work.Size
		se.ModTime = work.ModTime
		se.Mode = normalizeFileMode(work.Mode)
		refreshed = true
	}
	return equal, refreshed, nil
}

func idxEqualsRepo(se *StagingEntry, head headTreeState) bool {
	return se.BlobHash == head.BlobHash && normalizeFileMode(se.Mode) == normalizeFileMode(head.Mode)
}

func unionPathSet(work map[string]walkRecord, idx map[string]*StagingEntry, head map[string]headTreeState) []string {
	seen := make(map[string]struct{}, len(work)+len(idx)+len(head))
	for p := range work {
		seen[p] = struct{}{}
	}
	for p := range idx {
		seen[p] = struct{}{}
	}
	for p := range head {
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func isRacyCleanModTime(modTime time.Time) bool {
	now := time.Now()
	if modTime.After(now) {
		return true
	}
	return now.Sub(modTime) < statusRacyCleanWindow
}

const statusRacyCleanWindow = 2 * time.Second

// headTreeEntries attempts to read the HEAD commit's tree and flatten it
// into a map of path → (BlobHash, mode), via the shared treewalk tree
// source. If there are no commits yet (fresh repo) or tree reading fails,
// an empty map is returned.
func (r *Repo) headTreeEntries() map[string]headTreeState {
	result := make(map[string]headTreeState)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		return result
	}

	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return result
	}

	records, err := treeSource(r, commit.TreeHash)
	if err != nil {
		return result
	}
	for path, rec := range records {
		result[path] = headTreeState{BlobHash: rec.BlobHash, Mode: rec.Mode}
	}
	return result
}

func detectIndexRenames(stg *Staging, headEntries map[string]headTreeState) (map[string]string, map[string]string) {
	newByKey := make(map[string][]string)
	oldByKey := make(map[string][]string)

	for path, se := range stg.Entries {
		if _, inHead := headEntries[path]; inHead {
			continue
		}
		key := renameMatchKey(se.BlobHash, se.Mode)
		newByKey[key] = append(newByKey[key], path)
	}
	for path, hs := range headEntries {
		if _, inStaging := stg.Entries[path]; inStaging {
			continue
		}
		key := renameMatchKey(hs.BlobHash, hs.Mode)
		oldByKey[key] = append(oldByKey[key], path)
	}

	return pairRenameCandidates(newByKey, oldByKey)
}

func (r *Repo) detectWorktreeRenames(stg *Staging, workFiles map[string]walkRecord) (map[string]string, map[string]string, error) {
	oldByKey := make(map[string][]string)
	newByKey := make(map[string][]string)

	for path, se := range stg.Entries {
		if _, onDisk := workFiles[path]; onDisk {
			continue
		}
		key := renameMatchKey(se.BlobHash, se.Mode)
		oldByKey[key] = append(oldByKey[key], path)
	}

	for path, work := range workFiles {
		if _, inStaging := stg.Entries[path]; inStaging {
			continue
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, nil, err
		}
		key := renameMatchKey(object.HashObject(object.TypeBlob, data), work.Mode)
		newByKey[key] = append(newByKey[key], path)
	}

	newToOld, oldToNew := pairRenameCandidates(newByKey, oldByKey)
	return newToOld, oldToNew, nil
}

func pairRenameCandidates(newByKey, oldByKey map[string][]string) (map[string]string, map[string]string) {
	newToOld := make(map[string]string)
	oldToNew := make(map[string]string)

	for key, newPaths := range newByKey {
		oldPaths := oldByKey[key]
		if len(oldPaths) == 0 {
			continue
		}

		sort.Strings(newPaths)
		sort.Strings(oldPaths)

		n := len(newPaths)
		if len(oldPaths) < n {
			n = len(oldPaths)
		}

		for i := 0; i < n; i++ {
			newPath := newPaths[i]
			oldPath := oldPaths[i]
			newToOld[newPath] = oldPath
			oldToNew[oldPath] = newPath
		}
	}

	return newToOld, oldToNew
}

func renameMatchKey(blobHash object.Hash, mode string) string {
	return string(blobHash) + "|" + normalizeFileMode(strings.TrimSpace(mode))
}
