// Package catalog loads the file metadata of table partitions: it
// reconciles directory listings against previously loaded descriptors,
// translates or synthesizes block layout, and resolves per-replica disk
// ids in one batched query per filesystem.
package catalog

import (
	"context"
	"path"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skyline93/fsmeta/internal/blockfs"
	"github.com/skyline93/fsmeta/internal/fsmeta"
)

// Loader builds file descriptors for the partitions of one table. It is
// safe for concurrent use: the only shared state it touches is the
// HostIndex, which synchronizes itself.
type Loader struct {
	table     string
	hostIndex *fsmeta.HostIndex
	decoder   VolumeDecoder
}

// NewLoader returns a Loader for the named table. All partitions loaded
// through it share hostIndex, keeping replica host ids consistent
// table-wide.
func NewLoader(table string, hostIndex *fsmeta.HostIndex) *Loader {
	return &Loader{table: table, hostIndex: hostIndex, decoder: DecodeHexVolumeID}
}

// SetVolumeDecoder replaces the volume id decoder used by LoadDiskIDs.
func (l *Loader) SetVolumeDecoder(dec VolumeDecoder) { l.decoder = dec }

// LoadResult is the outcome of one load pass.
type LoadResult struct {
	// Descriptors holds every loaded descriptor, grouped by partition
	// directory but otherwise in no particular order.
	Descriptors []*fsmeta.FileDescriptor

	// ByDir maps each partition directory to its descriptors.
	ByDir map[string][]*fsmeta.FileDescriptor

	// Batches holds the freshly built blocks per filesystem, still
	// awaiting disk id resolution. Reused descriptors contribute nothing
	// here.
	Batches map[blockfs.Key]*FileBlocksBatch
}

func newLoadResult() *LoadResult {
	return &LoadResult{
		ByDir:   make(map[string][]*fsmeta.FileDescriptor),
		Batches: make(map[blockfs.Key]*FileBlocksBatch),
	}
}

// LoadFileDescriptors turns the listing of one partition directory into
// file descriptors. Directories, hidden files and LZO index files are
// skipped. A prior descriptor (keyed by file name) is reused verbatim when
// the partition is not marked cached and the file's length and
// modification time are unchanged; reuse deliberately checks nothing
// beyond that, so a filesystem that rewrites blocks in place without
// touching length or mtime will be served the old layout. Everything else
// is rebuilt: block layout comes from the filesystem when it supports
// block locations (staged into the result's batches for later disk id
// resolution) and is synthesized otherwise.
//
// A block location query failure or a malformed location aborts the whole
// partition: locality metadata is load-bearing for the scheduler, so a
// partition either loads completely or not at all.
func (l *Loader) LoadFileDescriptors(fs blockfs.FileSystem, partitionDir string,
	listing []blockfs.FileStatus, prior map[string]*fsmeta.FileDescriptor,
	format fsmeta.FileFormat, isMarkedCached bool) (*LoadResult, error) {

	result := newLoadResult()
	for _, st := range listing {
		fd, err := l.loadFileDescriptor(fs, st, prior, format, isMarkedCached, result)
		if err != nil {
			return nil, err
		}
		if fd == nil {
			continue
		}

		// Keyed by the directory the caller asked for, not the listed
		// path's parent: prior state for the next cycle is looked up with
		// the same string, and backends may list under a joined root.
		result.ByDir[partitionDir] = append(result.ByDir[partitionDir], fd)
		result.Descriptors = append(result.Descriptors, fd)
	}
	return result, nil
}

func (l *Loader) loadFileDescriptor(fs blockfs.FileSystem, st blockfs.FileStatus,
	prior map[string]*fsmeta.FileDescriptor, format fsmeta.FileFormat,
	isMarkedCached bool, result *LoadResult) (*fsmeta.FileDescriptor, error) {

	name := path.Base(st.Path)
	// Subdirectories of a partition dir are never recursed into, hidden
	// files are staging leftovers, and LZO index files are read by the
	// scanner directly.
	if st.IsDir || fsmeta.IsHiddenName(name) ||
		fsmeta.CompressionFromName(name) == fsmeta.CompressionLzoIndex {
		return nil, nil
	}

	if old, ok := prior[name]; ok && !isMarkedCached &&
		old.FileLength == st.Length && old.ModificationTime == st.ModificationTime {
		return old, nil
	}

	fd := fsmeta.NewFileDescriptor(name, st.Length, st.ModificationTime)
	if err := l.loadBlockMetadata(fs, st, fd, format, result); err != nil {
		return nil, err
	}
	return fd, nil
}

// loadBlockMetadata fills fd's block list. The capability flag decides the
// path once per filesystem: a backend without native block locations gets
// synthetic layout even when the listing carried attached locations.
func (l *Loader) loadBlockMetadata(fs blockfs.FileSystem, st blockfs.FileStatus,
	fd *fsmeta.FileDescriptor, format fsmeta.FileFormat, result *LoadResult) error {

	log.Debugf("load block md for %v file %v", l.table, fd.FileName)

	if !fs.SupportsBlockLocations() {
		splittable := format.IsSplittable(fsmeta.CompressionFromName(fd.FileName))
		fd.Blocks = synthesizeBlocks(st.Length, fs.DefaultBlockSize(), splittable, l.hostIndex)
		return nil
	}

	locations := st.Locations
	if locations == nil {
		var err error
		locations, err = fs.BlockLocations(st)
		if err != nil {
			return errors.Wrapf(err, "couldn't determine block locations for %q", st.Path)
		}
	}

	blocks := make([]*fsmeta.FileBlock, 0, len(locations))
	for _, loc := range locations {
		block, err := translateBlock(loc, l.hostIndex)
		if err != nil {
			return errors.Wrapf(err, "file %q", st.Path)
		}
		fd.AddBlock(block)
		blocks = append(blocks, block)
	}

	// Remember the new blocks and their locations so the disk ids for the
	// whole filesystem can be fetched in one batch.
	key := fs.Key()
	batch, ok := result.Batches[key]
	if !ok {
		batch = &FileBlocksBatch{FS: fs}
		result.Batches[key] = batch
	}
	return batch.add(blocks, locations)
}

// LoadOptions configures LoadPartitions.
type LoadOptions struct {
	Format         fsmeta.FileFormat
	IsMarkedCached bool

	// Workers caps the number of partition directories loaded in
	// parallel. Zero means DefaultLoadWorkers.
	Workers int

	// Prior maps partition directory to the descriptors of the previous
	// load cycle, keyed by file name.
	Prior map[string]map[string]*fsmeta.FileDescriptor
}

// DefaultLoadWorkers is the parallelism used when LoadOptions.Workers is
// zero.
const DefaultLoadWorkers = 4

// LoadPartitions lists and loads many partition directories concurrently,
// then resolves disk ids with one batched query per filesystem. The first
// partition failure cancels the remaining work and is returned; a failed
// load never yields a partial result.
func (l *Loader) LoadPartitions(ctx context.Context, fs blockfs.FileSystem,
	dirs []string, opts LoadOptions) (*LoadResult, error) {

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultLoadWorkers
	}

	merged := newLoadResult()
	var mu sync.Mutex

	wg, wgCtx := errgroup.WithContext(ctx)
	jobs := make(chan string)

	wg.Go(func() error {
		defer close(jobs)
		for _, dir := range dirs {
			select {
			case jobs <- dir:
			case <-wgCtx.Done():
				return wgCtx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		wg.Go(func() error {
			for dir := range jobs {
				listing, err := fs.List(dir)
				if err != nil {
					return errors.Wrapf(err, "list %v", dir)
				}
				res, err := l.LoadFileDescriptors(fs, dir, listing,
					opts.Prior[dir], opts.Format, opts.IsMarkedCached)
				if err != nil {
					return errors.Wrapf(err, "load partition %v", dir)
				}

				mu.Lock()
				merged.Descriptors = append(merged.Descriptors, res.Descriptors...)
				for d, fds := range res.ByDir {
					merged.ByDir[d] = append(merged.ByDir[d], fds...)
				}
				mergeBatches(merged.Batches, res.Batches)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return nil, err
	}

	l.LoadDiskIDs(merged.Batches)
	return merged, nil
}
