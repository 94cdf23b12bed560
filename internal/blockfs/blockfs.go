// Package blockfs abstracts the filesystems a table's data files live on.
// A handle's capabilities (native block locations, storage ids) are fixed
// at construction so callers never have to inspect the concrete type.
package blockfs

import "fmt"

// Key identifies a logical filesystem by scheme and authority. Two handles
// with equal keys refer to the same filesystem even if they are distinct
// objects, so per-filesystem work is grouped by Key.
type Key struct {
	Scheme    string
	Authority string
}

func (k Key) String() string {
	return fmt.Sprintf("%s://%s", k.Scheme, k.Authority)
}

// FileStatus is one entry of a directory listing. Listings may arrive with
// block locations already attached (some listing APIs return them for
// free); Locations is nil otherwise.
type FileStatus struct {
	Path             string
	IsDir            bool
	Length           int64
	ModificationTime int64
	Locations        []BlockLocation
}

// BlockLocation is the raw layout record for one block as reported by the
// filesystem. Names and Hosts are parallel: Names[i] is the host:port
// endpoint of replica i and Hosts[i] its hostname. CachedHosts is the
// subset of Hosts holding a cache-resident copy.
type BlockLocation struct {
	Offset      int64
	Length      int64
	Names       []string
	Hosts       []string
	CachedHosts []string
}

// FileSystem is the contract the metadata loader needs from a filesystem
// backend. All calls are synchronous; timeout behavior belongs to the
// backend, not the caller.
type FileSystem interface {
	// Key returns the scheme+authority identity of this filesystem.
	Key() Key

	// List returns the file statuses directly under dir.
	List(dir string) ([]FileStatus, error)

	// SupportsBlockLocations reports whether BlockLocations returns real
	// layout data. When false the loader synthesizes block boundaries
	// instead, even for statuses that carry attached locations.
	SupportsBlockLocations() bool

	// BlockLocations returns the block layout of the file described by st,
	// covering the whole byte range.
	BlockLocations(st FileStatus) ([]BlockLocation, error)

	// SupportsStorageIDs reports whether StorageIDs is implemented.
	SupportsStorageIDs() bool

	// StorageIDs resolves, in one batched call, the opaque volume id of
	// every replica of every given location: result[i][j] is the volume id
	// of locs[i]'s replica j.
	StorageIDs(locs []BlockLocation) ([][]string, error)

	// DefaultBlockSize is the block size used when synthesizing layout.
	DefaultBlockSize() int64
}
