package repo

import (
	"sync"

	"github.com/odvcencio/hull/pkg/object"
)

// Repo represents an opened repository.
type Repo struct {
	RootDir string        // working directory root
	GitDir  string        // .git/ directory
	Store   *object.Store // content-addressed object store

	statusHashCacheMu sync.Mutex
	statusHashCache   map[string]statusFileHashCacheEntry
	// statusBlobHasher overrides blob hashing during status content
	// comparisons; nil uses object.HashObject. Tests use it to count hashes.
	statusBlobHasher func(data []byte) object.Hash
}
