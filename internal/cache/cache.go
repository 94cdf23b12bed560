// Package cache persists the descriptor sets of previous load cycles so a
// restarted catalog can reuse unchanged descriptors instead of re-querying
// block locations for every file.
package cache

import (
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// Cache manages a local directory of descriptor snapshots, one subdirectory
// per table, plus an in-process layer so repeated loads of one table skip
// the disk read.
type Cache struct {
	path string
	mem  *gocache.Cache
}

const (
	snapshotDirName = "snapshots"

	// Snapshots read from disk stay in memory for a while; a table that is
	// reloaded more often than this never touches the disk twice.
	memTTL = 5 * time.Minute
)

// New opens (creating if needed) a snapshot cache rooted at path.
func New(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(path, snapshotDirName), 0700); err != nil {
		return nil, errors.Wrap(err, "MkdirAll")
	}
	return &Cache{
		path: path,
		mem:  gocache.New(memTTL, 2*memTTL),
	}, nil
}

func (c *Cache) tableDir(table string) string {
	return filepath.Join(c.path, snapshotDirName, table)
}

func isFile(fi os.FileInfo) bool {
	return fi.Mode()&(os.ModeType|os.ModeCharDevice) == 0
}
