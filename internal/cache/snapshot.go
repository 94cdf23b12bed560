package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/fsmeta/internal/fsmeta"
)

// Snapshot is the persisted outcome of one table load: the host index
// entries and, per partition directory, the descriptors that were built.
// Descriptor host indices are only meaningful together with Hosts.
type Snapshot struct {
	Table string    `json:"table"`
	Time  time.Time `json:"time"`

	Hosts []fsmeta.Host                        `json:"hosts"`
	Dirs  map[string][]*fsmeta.FileDescriptor `json:"dirs"`
}

// ErrNoSnapshot is returned by LoadSnapshot when no snapshot exists for
// the table.
var ErrNoSnapshot = errors.New("no snapshot found")

// SaveSnapshot writes sn as zstd-compressed JSON, named by the sha256 of
// the compressed bytes, and returns that content id.
func (c *Cache) SaveSnapshot(sn *Snapshot) (string, error) {
	plain, err := json.Marshal(sn)
	if err != nil {
		return "", errors.Wrap(err, "json.Marshal")
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return "", errors.Wrap(err, "zstd.NewWriter")
	}
	packed := enc.EncodeAll(plain, nil)
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "zstd close")
	}

	sum := sha256.Sum256(packed)
	id := hex.EncodeToString(sum[:])

	dir := c.tableDir(sn.Table)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.Wrap(err, "MkdirAll")
	}
	// Write-then-rename so a crashed save never leaves a torn snapshot.
	tmp := filepath.Join(dir, "tmp-"+id)
	if err := os.WriteFile(tmp, packed, 0600); err != nil {
		return "", errors.Wrap(err, "WriteFile")
	}
	if err := os.Rename(tmp, filepath.Join(dir, id)); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(err, "Rename")
	}

	c.mem.Set(sn.Table, sn, 0)
	log.Debugf("saved snapshot %v for table %v (%d dirs)", id[:8], sn.Table, len(sn.Dirs))
	return id, nil
}

// LoadSnapshot returns the most recent snapshot of table, from the
// in-process layer when it is still warm.
func (c *Cache) LoadSnapshot(table string) (*Snapshot, error) {
	if v, ok := c.mem.Get(table); ok {
		return v.(*Snapshot), nil
	}

	name, err := c.latestSnapshotFile(table)
	if err != nil {
		return nil, err
	}

	packed, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "ReadFile")
	}

	sum := sha256.Sum256(packed)
	if hex.EncodeToString(sum[:]) != filepath.Base(name) {
		return nil, errors.Errorf("snapshot %v failed checksum verification", filepath.Base(name))
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd.NewReader")
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decode")
	}

	sn := &Snapshot{}
	if err := json.Unmarshal(plain, sn); err != nil {
		return nil, errors.Wrap(err, "json.Unmarshal")
	}

	c.mem.Set(table, sn, 0)
	return sn, nil
}

// Prior reshapes a snapshot into the per-directory, per-file-name maps the
// loader consumes. A nil snapshot yields nil, which the loader treats as
// "no prior state".
func (sn *Snapshot) Prior() map[string]map[string]*fsmeta.FileDescriptor {
	if sn == nil {
		return nil
	}
	prior := make(map[string]map[string]*fsmeta.FileDescriptor, len(sn.Dirs))
	for dir, fds := range sn.Dirs {
		byName := make(map[string]*fsmeta.FileDescriptor, len(fds))
		for _, fd := range fds {
			byName[fd.FileName] = fd
		}
		prior[dir] = byName
	}
	return prior
}

func (c *Cache) latestSnapshotFile(table string) (string, error) {
	dir := c.tableDir(table)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSnapshot
		}
		return "", errors.Wrap(err, "ReadDir")
	}

	var best string
	var bestTime time.Time
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil || !isFile(fi) {
			continue
		}
		// Ties within the filesystem's mtime granularity are broken by
		// name so selection stays deterministic.
		newer := fi.ModTime().After(bestTime) ||
			(fi.ModTime().Equal(bestTime) && entry.Name() > filepath.Base(best))
		if best == "" || newer {
			best = filepath.Join(dir, entry.Name())
			bestTime = fi.ModTime()
		}
	}
	if best == "" {
		return "", ErrNoSnapshot
	}
	return best, nil
}
