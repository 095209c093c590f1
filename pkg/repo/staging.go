package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/hull/pkg/object"
)

// StagingEntry records the staged state of a single file.
type StagingEntry struct {
	Path     string      `json:"path"`
	BlobHash object.Hash `json:"blob_hash"`
	Mode     string      `json:"mode"`
	ModTime  int64       `json:"mod_time"`
	Size     int64       `json:"size"`
	Conflict bool        `json:"conflict,omitempty"`
}

// Staging holds the full staging area (index) for a repository.
type Staging struct {
	Entries map[string]*StagingEntry `json:"entries"`
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.GitDir, "index")
}

// ReadStaging loads the staging area from .git/index. If the file does not
// exist, an empty Staging is returned (no error).
func (r *Repo) ReadStaging() (*Staging, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Staging{Entries: make(map[string]*StagingEntry)}, nil
		}
		return nil, fmt.Errorf("read staging: %w", err)
	}

	var stg Staging
	if err := json.Unmarshal(data, &stg); err != nil {
		return nil, fmt.Errorf("read staging: unmarshal: %w", err)
	}
	if stg.Entries == nil {
		stg.Entries = make(map[string]*StagingEntry)
	}
	return &stg, nil
}

// WriteStaging atomically writes the staging area to .git/index. This is the
// index's only lock discipline: every writer rebuilds the whole index and
// replaces it with a temp-file-plus-rename, so no separate lock sibling is
// needed.
func (r *Repo) WriteStaging(s *Staging) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("write staging: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.GitDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write staging: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write staging: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staging: close: %w", err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staging: rename: %w", err)
	}
	return nil
}

// Add rebuilds the staged index from a two-way walk of the previous index
// and the work tree, rooted at toAdd (a file or directory, repo-relative or
// absolute). When alsoRemove is true, index entries whose work-tree
// counterpart has vanished are dropped instead of carried forward unchanged.
//
// This implements the four staging cases:
//
//	A: new to the index            -> create fresh entry, hash content below
//	B: gone from the work tree     -> keep unchanged, or drop if alsoRemove
//	C: symlink in the prior index  -> preserved verbatim, never re-staged
//	D: default                     -> re-add the prior entry, refresh below
//
// Add is the multi-path convenience wrapper used by the CLI and existing
// call sites; AddPath is the direct single-root, alsoRemove-aware façade
// operation.
func (r *Repo) Add(paths []string) error {
	for _, p := range paths {
		if err := r.AddPath(p, false); err != nil {
			return err
		}
	}
	return nil
}

// AddPath stages toAdd (a file, directory, or shell glob pattern,
// repo-relative or absolute).
func (r *Repo) AddPath(toAdd string, alsoRemove bool) error {
	if containsGlobMeta(toAdd) {
		return r.addGlobPattern(toAdd, alsoRemove)
	}
	return r.addSinglePath(toAdd, alsoRemove)
}

// containsGlobMeta reports whether pattern contains shell glob metacharacters.
func containsGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// addGlobPattern expands pattern against the repo root and stages every
// literal match individually.
func (r *Repo) addGlobPattern(pattern string, alsoRemove bool) error {
	rel, err := r.repoRelPath(pattern)
	if err != nil {
		return fmt.Errorf("add: resolve pattern %q: %w", pattern, err)
	}
	absPattern := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	matches, err := filepath.Glob(absPattern)
	if err != nil {
		return fmt.Errorf("add: glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("add: pathspec %q did not match any files", pattern)
	}
	for _, m := range matches {
		if err := r.addSinglePath(m, alsoRemove); err != nil {
			return err
		}
	}
	return nil
}

// addSinglePath stages toAdd (a literal file or directory, repo-relative or
// absolute).
func (r *Repo) addSinglePath(toAdd string, alsoRemove bool) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	relRoot, err := r.repoRelPath(toAdd)
	if err != nil {
		return fmt.Errorf("add: resolve path %q: %w", toAdd, err)
	}
	absRoot := filepath.Join(r.RootDir, filepath.FromSlash(relRoot))

	ic := NewIgnoreChecker(r.RootDir)

	workByPath, err := scanWorkTree(absRoot, r.RootDir, relRoot)
	if err != nil {
		return fmt.Errorf("add: scan work tree: %w", err)
	}

	// Previous index entries within the scope of toAdd.
	prevByPath := make(map[string]*StagingEntry)
	for p, e := range stg.Entries {
		if withinScope(p, relRoot) {
			prevByPath[p] = e
		}
	}

	next := make(map[string]*StagingEntry)

	// Union of paths from both sides, in stable order.
	allPaths := make(map[string]struct{}, len(workByPath)+len(prevByPath))
	for p := range workByPath {
		allPaths[p] = struct{}{}
	}
	for p := range prevByPath {
		allPaths[p] = struct{}{}
	}

	for p := range allPaths {
		prev, inIdx := prevByPath[p]
		work, inWD := workByPath[p]

		if !inIdx {
			// Case A: new to index.
			if ic.IsIgnored(p) {
				continue
			}
			entry := &StagingEntry{Path: p}
			if err := populateFromWorkTree(entry, work); err != nil {
				return fmt.Errorf("add: hash %q: %w", p, err)
			}
			if err := r.writeWorkTreeBlob(entry, work); err != nil {
				return fmt.Errorf("add: write blob %q: %w", p, err)
			}
			next[p] = entry
			continue
		}

		if !inWD {
			// Case B: gone from the work tree.
			if !alsoRemove {
				next[p] = prev
			}
			continue
		}

		if prev.Mode == object.TreeModeSymlink {
			// Case C: symlinks are preserved verbatim, never re-staged.
			next[p] = prev
			continue
		}

		// Case D: default re-add.
		entry := *prev
		if err := r.refreshStagedContent(&entry, work); err != nil {
			return fmt.Errorf("add: refresh %q: %w", p, err)
		}
		next[p] = &entry
	}

	for p, e := range next {
		stg.Entries[p] = e
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	r.invalidateStatusCache()
	return nil
}

// Remove unstages each of paths and, unless cached is true, deletes the
// corresponding files from the work tree. A directory path removes every
// staged entry under that prefix.
func (r *Repo) Remove(paths []string, cached bool) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	targets := make(map[string]struct{})
	for _, raw := range paths {
		rel, err := r.repoRelPath(raw)
		if err != nil {
			return fmt.Errorf("rm: resolve path %q: %w", raw, err)
		}
		rel = filepath.ToSlash(filepath.Clean(strings.TrimSpace(rel)))
		if rel == "" || rel == "." {
			return fmt.Errorf("rm: refusing to remove the repository root")
		}

		matched := false
		if _, ok := stg.Entries[rel]; ok {
			targets[rel] = struct{}{}
			matched = true
		}
		prefix := rel + "/"
		for p := range stg.Entries {
			if strings.HasPrefix(p, prefix) {
				targets[p] = struct{}{}
				matched = true
			}
		}
		if !matched {
			return fmt.Errorf("rm: pathspec %q did not match any staged files", raw)
		}
	}

	for p := range targets {
		delete(stg.Entries, p)
		if !cached {
			absPath := filepath.Join(r.RootDir, filepath.FromSlash(p))
			if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("rm: remove %q: %w", p, err)
			}
		}
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	r.invalidateStatusCache()
	return nil
}

// workTreeFile is a minimal scan record for a single work-tree path.
type workTreeFile struct {
	absPath string
	mode    string
	size    int64
	modTime int64 // UnixNano
}

// scanWorkTree walks absRoot (a file or directory) and returns a map of
// repo-relative path to workTreeFile, skipping the VCS directory itself.
// Ignore filtering is applied by the caller for newly discovered paths only,
// per the Case A rule.
func scanWorkTree(absRoot, repoRoot, relRoot string) (map[string]workTreeFile, error) {
	out := make(map[string]workTreeFile)

	info, err := os.Lstat(absRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}

	if !info.IsDir() {
		out[relRoot] = workTreeFileFromInfo(absRoot, info)
		return out, nil
	}

	err = filepathWalkDirSkippingGit(absRoot, func(path string, info os.FileInfo) error {
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return relErr
		}
		out[filepath.ToSlash(rel)] = workTreeFileFromInfo(path, info)
		return nil
	})
	return out, err
}

func workTreeFileFromInfo(path string, info os.FileInfo) workTreeFile {
	mode := object.TreeModeFile
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		mode = object.TreeModeSymlink
	case info.Mode()&0o111 != 0:
		mode = object.TreeModeExecutable
	}
	return workTreeFile{
		absPath: path,
		mode:    mode,
		size:    info.Size(),
		modTime: info.ModTime().UnixNano(),
	}
}

// filepathWalkDirSkippingGit walks root depth-first, skipping any directory
// named ".git", invoking fn with the Lstat'd info for every non-directory.
func filepathWalkDirSkippingGit(root string, fn func(path string, info os.FileInfo) error) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if ent.Name() == ".git" {
			continue
		}
		full := filepath.Join(root, ent.Name())
		if ent.IsDir() {
			if err := filepathWalkDirSkippingGit(full, fn); err != nil {
				return err
			}
			continue
		}
		info, err := ent.Info()
		if err != nil {
			return err
		}
		if err := fn(full, info); err != nil {
			return err
		}
	}
	return nil
}

// withinScope reports whether path p falls under the scope rooted at
// relRoot ("" means the whole repository).
func withinScope(p, relRoot string) bool {
	if relRoot == "" || relRoot == "." {
		return true
	}
	return p == relRoot || strings.HasPrefix(p, relRoot+"/")
}

// populateFromWorkTree fills in a freshly created StagingEntry (Case A)
// from its work-tree counterpart, applying the same content rules as
// refreshStagedContent (there is no prior blob to keep).
func populateFromWorkTree(entry *StagingEntry, work workTreeFile) error {
	entry.Mode = work.mode
	if work.mode == object.TreeModeGitlink {
		entry.Size = 0
		entry.ModTime = 0
		return nil
	}
	entry.Size = work.size
	entry.ModTime = work.modTime
	return nil
}

// writeWorkTreeBlob hashes and stores the blob for a freshly staged path.
func (r *Repo) writeWorkTreeBlob(entry *StagingEntry, work workTreeFile) error {
	if entry.Mode == object.TreeModeGitlink {
		return nil
	}
	content, err := os.ReadFile(work.absPath)
	if err != nil {
		return err
	}
	h, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return err
	}
	entry.BlobHash = h
	return nil
}

// refreshStagedContent updates entry (Case D) in place against its
// work-tree counterpart per the spec's staleness rule: GITLINK gets a
// zeroed content stub; otherwise a size or timestamp mismatch triggers a
// re-hash, and the mode is always overwritten from the work tree.
func (r *Repo) refreshStagedContent(entry *StagingEntry, work workTreeFile) error {
	if work.mode == object.TreeModeGitlink {
		entry.Size = 0
		entry.ModTime = 0
		entry.Mode = work.mode
		return nil
	}

	if entry.Size != work.size || !timestampMatches(entry.ModTime, work.modTime) {
		content, err := os.ReadFile(work.absPath)
		if err != nil {
			return err
		}
		h, err := r.Store.WriteBlob(&object.Blob{Data: content})
		if err != nil {
			return err
		}
		entry.BlobHash = h
		entry.Size = work.size
		entry.ModTime = work.modTime
	}
	entry.Mode = work.mode
	return nil
}

// timestampMatches compares two UnixNano timestamps at millisecond
// resolution, falling back to second resolution whenever either side's
// millisecond component is zero (coarse filesystem mtime detection).
func timestampMatches(a, b int64) bool {
	aMs, bMs := a/1_000_000, b/1_000_000
	if aMs%1000 == 0 || bMs%1000 == 0 {
		return aMs/1000 == bMs/1000
	}
	return aMs == bMs
}

// repoRelPath converts a path (absolute, or relative to CWD) into a path
// relative to the repository root. If the path is already relative and does
// not start with the repo root, it is assumed to already be repo-relative.
func (r *Repo) repoRelPath(p string) (string, error) {
	if p == "." || p == "" {
		return "", nil
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		if rel == "." {
			return "", nil
		}
		return filepath.ToSlash(rel), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	abs := filepath.Join(cwd, p)
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	if len(rel) >= 2 && rel[:2] == ".." {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	if rel == "." {
		return "", nil
	}

	return filepath.ToSlash(rel), nil
}
