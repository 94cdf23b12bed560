package catalog

import (
	"encoding/binary"
	"encoding/hex"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/skyline93/fsmeta/internal/blockfs"
	"github.com/skyline93/fsmeta/internal/fsmeta"
)

// VolumeDecoder turns a filesystem's opaque volume identifier into a
// 0-based disk id. ok is false when the identifier does not match the
// expected form. Backends with unusual volume id layouts plug in their own
// decoder; the batching logic never changes.
type VolumeDecoder func(volumeID string) (diskID int, ok bool)

// DecodeHexVolumeID is the default decoder: the identifier is expected to
// be a hex-encoded 4-byte big-endian integer. There is no public API for
// the underlying id, so this relies on the string form staying stable
// across filesystem versions.
func DecodeHexVolumeID(volumeID string) (int, bool) {
	raw, err := hex.DecodeString(volumeID)
	if err != nil || len(raw) != 4 {
		return fsmeta.UnknownDiskID, false
	}
	return int(int32(binary.BigEndian.Uint32(raw))), true
}

// Logged at most once per process; a table with many malformed volume ids
// would otherwise repeat this for every replica.
var malformedVolumeIDOnce sync.Once

// LoadDiskIDs resolves the physical disk id of every replica staged in
// batches, issuing exactly one storage-id query per filesystem. Disk ids
// are a scheduling optimization, so every failure here degrades instead of
// propagating: affected replicas keep UnknownDiskID and a warning is
// logged.
func (l *Loader) LoadDiskIDs(batches map[blockfs.Key]*FileBlocksBatch) {
	for key, batch := range batches {
		if !batch.FS.SupportsStorageIDs() || len(batch.Locations) == 0 {
			continue
		}
		log.Debugf("loading disk ids for %v: %v blocks on %v", l.table, len(batch.Blocks), key)

		ids, err := batch.FS.StorageIDs(batch.Locations)
		if err != nil {
			log.Warnf("couldn't determine storage ids for filesystem %v: %v", key, err)
			continue
		}
		if len(ids) == 0 {
			log.Warnf("storage id query for filesystem %v returned no results", key)
			continue
		}
		if len(ids) != len(batch.Locations) {
			log.Warnf("storage id count mismatch for filesystem %v: got %d, want %d",
				key, len(ids), len(batch.Locations))
			continue
		}

		var unknown int
		for i, volumeIDs := range ids {
			block := batch.Blocks[i]
			for j, volumeID := range volumeIDs {
				if j >= len(block.Replicas) {
					break
				}
				diskID, ok := l.decoder(volumeID)
				if !ok {
					malformedVolumeIDOnce.Do(func() {
						log.Warnf("wrong volume id format: %q", volumeID)
					})
					diskID = fsmeta.UnknownDiskID
				}
				if diskID == fsmeta.UnknownDiskID {
					unknown++
				}
				block.Replicas[j].DiskID = diskID
			}
		}
		if unknown > 0 {
			log.Warnf("unknown disk id count for filesystem %v: %d", key, unknown)
		}
	}
}
