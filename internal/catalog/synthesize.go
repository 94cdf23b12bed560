package catalog

import "github.com/skyline93/fsmeta/internal/fsmeta"

// MinSyntheticBlockSize is the floor for synthesized block sizes (except
// the final block of a file, which may be shorter).
const MinSyntheticBlockSize = 1024 * 1024

// remoteAddress is the sentinel replica host for synthesized blocks. It is
// not a resolvable endpoint, so the scheduler treats every synthetic block
// as equally remote and never favors one worker over another.
var remoteAddress = fsmeta.HostAddress{Host: "remote*addr", Port: 0}

// synthesizeBlocks chunks a file of fileLength bytes into fixed-size
// blocks for filesystems that cannot report real layout. A non-splittable
// file becomes a single block spanning the whole file. A zero-length file
// yields no blocks.
func synthesizeBlocks(fileLength, blockSize int64, splittable bool, hostIndex *fsmeta.HostIndex) []*fsmeta.FileBlock {
	if blockSize < MinSyntheticBlockSize {
		blockSize = MinSyntheticBlockSize
	}
	if !splittable {
		blockSize = fileLength
	}

	var blocks []*fsmeta.FileBlock
	remaining := fileLength
	var start int64
	for remaining > 0 {
		length := remaining
		if length > blockSize {
			length = blockSize
		}
		blocks = append(blocks, &fsmeta.FileBlock{
			Offset: start,
			Length: length,
			Replicas: []fsmeta.BlockReplica{{
				HostIdx: hostIndex.GetOrAssign(remoteAddress, remoteAddress.Host),
				DiskID:  fsmeta.UnknownDiskID,
			}},
		})
		start += length
		remaining -= length
	}
	return blocks
}
