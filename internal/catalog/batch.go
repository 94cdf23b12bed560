package catalog

import (
	"github.com/pkg/errors"

	"github.com/skyline93/fsmeta/internal/blockfs"
	"github.com/skyline93/fsmeta/internal/fsmeta"
)

// FileBlocksBatch collects the blocks freshly built for one filesystem
// during a load pass, next to the raw locations they came from. Blocks[i]
// corresponds to Locations[i]. The batch exists only so disk ids can later
// be resolved with a single query per filesystem; it is discarded after
// LoadDiskIDs.
type FileBlocksBatch struct {
	FS        blockfs.FileSystem
	Blocks    []*fsmeta.FileBlock
	Locations []blockfs.BlockLocation
}

func (b *FileBlocksBatch) add(blocks []*fsmeta.FileBlock, locs []blockfs.BlockLocation) error {
	if len(blocks) != len(locs) {
		return errors.Errorf("blocks/locations length mismatch: %d != %d", len(blocks), len(locs))
	}
	b.Blocks = append(b.Blocks, blocks...)
	b.Locations = append(b.Locations, locs...)
	return nil
}

// mergeBatches folds the per-worker batch maps of a concurrent load into
// one map, keeping the per-filesystem grouping.
func mergeBatches(dst, src map[blockfs.Key]*FileBlocksBatch) {
	for key, batch := range src {
		if have, ok := dst[key]; ok {
			have.Blocks = append(have.Blocks, batch.Blocks...)
			have.Locations = append(have.Locations, batch.Locations...)
			continue
		}
		dst[key] = batch
	}
}
