package repo

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/odvcencio/hull/pkg/object"
)

// walkRecord is the common view that StatusReconciler and LsFilesMerge
// consume, regardless of which of the three sources (working tree, staged
// index, committed tree) produced it; IndexStager keeps its own work-tree
// scan. Each source returns records keyed by path, so a path with no entry
// from a source is absent from that source's map rather than marked by a
// nil/zero-value sentinel; every returned record has Present set to true.
type walkRecord struct {
	Path     string
	Mode     string
	Size     int64
	ModTime  int64 // UnixNano; zero for sources that don't track it
	BlobHash object.Hash
	Present  bool
}

// workTreeSource scans rootDir and returns one walkRecord per regular file
// or symlink found, keyed by repo-relative slash path. BlobHash is left
// empty: work-tree content identity is computed lazily, only when a
// consumer actually needs to compare or store it.
func workTreeSource(rootDir string) (map[string]walkRecord, error) {
	out := make(map[string]walkRecord)
	err := filepathWalkDirSkippingGit(rootDir, func(path string, info os.FileInfo) error {
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		wf := workTreeFileFromInfo(path, info)
		out[rel] = walkRecord{
			Path:    rel,
			Mode:    wf.mode,
			Size:    wf.size,
			ModTime: wf.modTime,
			Present: true,
		}
		return nil
	})
	return out, err
}

// stagingSource projects a Staging into the common walkRecord view.
func stagingSource(stg *Staging) map[string]walkRecord {
	out := make(map[string]walkRecord, len(stg.Entries))
	for p, se := range stg.Entries {
		out[p] = walkRecord{
			Path:     p,
			Mode:     se.Mode,
			Size:     se.Size,
			ModTime:  se.ModTime,
			BlobHash: se.BlobHash,
			Present:  true,
		}
	}
	return out
}

// treeSource flattens a committed tree into the common walkRecord view.
func treeSource(r *Repo, treeHash object.Hash) (map[string]walkRecord, error) {
	out := make(map[string]walkRecord)
	if treeHash == "" {
		return out, nil
	}
	entries, err := r.FlattenTree(treeHash)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Path] = walkRecord{
			Path:     e.Path,
			Mode:     normalizeFileMode(e.Mode),
			BlobHash: e.BlobHash,
			Present:  true,
		}
	}
	return out, nil
}

// unionPaths returns the sorted union of keys across any number of
// walkRecord maps, the order the three-way walk emits records in.
func unionPaths(sources ...map[string]walkRecord) []string {
	seen := make(map[string]struct{})
	for _, src := range sources {
		for p := range src {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
