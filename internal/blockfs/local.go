package blockfs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultLocalBlockSize is used when a Local backend is opened without an
// explicit block size.
const DefaultLocalBlockSize = 128 * 1024 * 1024

// Local serves files from a local directory tree. It has no notion of
// blocks or disks: the loader falls back to synthetic layout for it.
type Local struct {
	root      string
	blockSize int64
}

// OpenLocal opens the directory root as a filesystem. blockSize <= 0 picks
// DefaultLocalBlockSize.
func OpenLocal(root string, blockSize int64) (*Local, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "Stat")
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("local root %q is not a directory", root)
	}
	if blockSize <= 0 {
		blockSize = DefaultLocalBlockSize
	}
	return &Local{root: root, blockSize: blockSize}, nil
}

func (l *Local) Key() Key {
	return Key{Scheme: "file", Authority: ""}
}

func (l *Local) List(dir string) ([]FileStatus, error) {
	full := filepath.Join(l.root, dir)
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, errors.Wrapf(err, "ReadDir %v", full)
	}

	statuses := make([]FileStatus, 0, len(entries))
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info, treat the listing
			// as stale and move on.
			log.Debugf("skipping %v: %v", entry.Name(), err)
			continue
		}
		statuses = append(statuses, FileStatus{
			Path:             filepath.Join(full, entry.Name()),
			IsDir:            fi.IsDir(),
			Length:           fi.Size(),
			ModificationTime: fi.ModTime().UnixMilli(),
		})
	}
	return statuses, nil
}

func (l *Local) SupportsBlockLocations() bool { return false }

func (l *Local) BlockLocations(st FileStatus) ([]BlockLocation, error) {
	return nil, errors.New("local filesystem has no block locations")
}

func (l *Local) SupportsStorageIDs() bool { return false }

func (l *Local) StorageIDs(locs []BlockLocation) ([][]string, error) {
	return nil, errors.New("local filesystem has no storage ids")
}

func (l *Local) DefaultBlockSize() int64 { return l.blockSize }
