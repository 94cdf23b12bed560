package blockfs

import (
	"path"
	"sort"

	"github.com/pkg/errors"
)

// Mem is an in-memory filesystem with full native block and storage-id
// support. It backs tests and local experiments; files and their layouts
// are registered up front.
type Mem struct {
	key   Key
	files map[string]memFile // keyed by full path

	blockSize int64

	noBlockLocations bool

	// Overrides for fault injection.
	locationsErr error
	storageIDsFn func(locs []BlockLocation) ([][]string, error)
}

type memFile struct {
	status    FileStatus
	locations []BlockLocation
	// storageIDs[i][j] is the volume id of locations[i]'s replica j.
	storageIDs [][]string
}

// NewMem returns an empty in-memory filesystem with the given authority
// and default block size.
func NewMem(authority string, blockSize int64) *Mem {
	return &Mem{
		key:       Key{Scheme: "mem", Authority: authority},
		files:     make(map[string]memFile),
		blockSize: blockSize,
	}
}

// AddFile registers a file with its block layout and, optionally, the
// volume ids StorageIDs will report for it.
func (m *Mem) AddFile(st FileStatus, locs []BlockLocation, storageIDs [][]string) {
	m.files[st.Path] = memFile{status: st, locations: locs, storageIDs: storageIDs}
}

// AddDir registers an empty directory entry.
func (m *Mem) AddDir(p string) {
	m.files[p] = memFile{status: FileStatus{Path: p, IsDir: true}}
}

// FailBlockLocations makes every BlockLocations call fail with err.
func (m *Mem) FailBlockLocations(err error) { m.locationsErr = err }

// DisableBlockLocations turns the handle into a filesystem without a
// native block API, like an object store.
func (m *Mem) DisableBlockLocations() { m.noBlockLocations = true }

// OverrideStorageIDs replaces the StorageIDs implementation, for
// simulating partial or failed batch queries.
func (m *Mem) OverrideStorageIDs(fn func(locs []BlockLocation) ([][]string, error)) {
	m.storageIDsFn = fn
}

func (m *Mem) Key() Key { return m.key }

func (m *Mem) List(dir string) ([]FileStatus, error) {
	var out []FileStatus
	for p, f := range m.files {
		if path.Dir(p) == dir {
			out = append(out, f.status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *Mem) SupportsBlockLocations() bool { return !m.noBlockLocations }

func (m *Mem) BlockLocations(st FileStatus) ([]BlockLocation, error) {
	if m.locationsErr != nil {
		return nil, m.locationsErr
	}
	f, ok := m.files[st.Path]
	if !ok {
		return nil, errors.Errorf("no such file %q", st.Path)
	}
	return f.locations, nil
}

func (m *Mem) SupportsStorageIDs() bool { return true }

func (m *Mem) StorageIDs(locs []BlockLocation) ([][]string, error) {
	if m.storageIDsFn != nil {
		return m.storageIDsFn(locs)
	}
	// Match each requested location back to its file by offset identity.
	out := make([][]string, 0, len(locs))
	for _, loc := range locs {
		ids, err := m.lookupStorageIDs(loc)
		if err != nil {
			return nil, err
		}
		out = append(out, ids)
	}
	return out, nil
}

func (m *Mem) lookupStorageIDs(loc BlockLocation) ([]string, error) {
	for _, f := range m.files {
		for i, have := range f.locations {
			if have.Offset == loc.Offset && have.Length == loc.Length &&
				len(have.Names) == len(loc.Names) &&
				(len(have.Names) == 0 || have.Names[0] == loc.Names[0]) {
				if f.storageIDs == nil {
					return make([]string, len(loc.Names)), nil
				}
				return f.storageIDs[i], nil
			}
		}
	}
	return nil, errors.Errorf("no storage ids for block at offset %d", loc.Offset)
}

func (m *Mem) DefaultBlockSize() int64 { return m.blockSize }
