package repo

import (
	"fmt"
	"sort"

	"github.com/odvcencio/hull/pkg/object"
)

// LsFileStatus classifies a single path produced by LsFiles.
type LsFileStatus int

const (
	// LsFileCached means the path is present in both the staged index and
	// the work tree.
	LsFileCached LsFileStatus = iota
	// LsFileRemoved means the path is staged but missing from the work tree.
	LsFileRemoved
	// LsFileOther means the path exists only on disk (untracked).
	LsFileOther
)

func (s LsFileStatus) String() string {
	switch s {
	case LsFileCached:
		return "cached"
	case LsFileRemoved:
		return "removed"
	case LsFileOther:
		return "other"
	default:
		return "unknown"
	}
}

// LsFileEntry records the classification of a single path under LsFiles.
type LsFileEntry struct {
	Path     string
	Status   LsFileStatus
	BlobHash object.Hash // zero value when Status == LsFileOther
}

// LsFiles merge-joins the staged index with an ignore-honoring filesystem
// scan, per spec §4.5: a path staged and present on disk is CACHED, a path
// staged but absent from the work tree is REMOVED, and a path present only
// on disk is OTHER. The result is totally ordered by path.
func (r *Repo) LsFiles() ([]LsFileEntry, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("ls-files: %w", err)
	}

	workFiles, err := workTreeSource(r.RootDir)
	if err != nil {
		return nil, fmt.Errorf("ls-files: walk: %w", err)
	}

	indexed := stagingSource(stg)

	ic := NewIgnoreChecker(r.RootDir)

	var entries []LsFileEntry
	for _, path := range unionPaths(indexed, workFiles) {
		se, inIdx := indexed[path]
		_, onDisk := workFiles[path]

		if !inIdx && ic.IsIgnored(path) {
			continue
		}

		switch {
		case inIdx && onDisk:
			entries = append(entries, LsFileEntry{Path: path, Status: LsFileCached, BlobHash: se.BlobHash})
		case inIdx && !onDisk:
			entries = append(entries, LsFileEntry{Path: path, Status: LsFileRemoved, BlobHash: se.BlobHash})
		default:
			entries = append(entries, LsFileEntry{Path: path, Status: LsFileOther})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
