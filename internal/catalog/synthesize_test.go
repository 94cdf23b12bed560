package catalog

import (
	"testing"

	"github.com/skyline93/fsmeta/internal/fsmeta"
)

func TestSynthesizeBlocksEmptyFile(t *testing.T) {
	hi := fsmeta.NewHostIndex()
	if blocks := synthesizeBlocks(0, 64*1024*1024, true, hi); len(blocks) != 0 {
		t.Fatalf("zero-length file produced %d blocks", len(blocks))
	}
}

func TestSynthesizeBlocksUnsplittable(t *testing.T) {
	hi := fsmeta.NewHostIndex()
	const length = 10*1024*1024 + 17
	blocks := synthesizeBlocks(length, 1024*1024, false, hi)
	if len(blocks) != 1 {
		t.Fatalf("unsplittable file produced %d blocks, want 1", len(blocks))
	}
	if blocks[0].Offset != 0 || blocks[0].Length != length {
		t.Fatalf("block does not span the file: %+v", blocks[0])
	}
}

func TestSynthesizeBlocksTiling(t *testing.T) {
	hi := fsmeta.NewHostIndex()
	const blockSize = 4 * 1024 * 1024
	const length = 3*blockSize + 12345

	blocks := synthesizeBlocks(length, blockSize, true, hi)
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}

	var next int64
	var total int64
	for i, b := range blocks {
		if b.Offset != next {
			t.Fatalf("block %d offset %d, want %d (gap or overlap)", i, b.Offset, next)
		}
		if i < len(blocks)-1 && b.Length != blockSize {
			t.Fatalf("block %d length %d, want %d", i, b.Length, int64(blockSize))
		}
		next += b.Length
		total += b.Length
	}
	if total != length {
		t.Fatalf("blocks cover %d bytes, want %d", total, int64(length))
	}
	if last := blocks[len(blocks)-1]; last.Length != 12345 {
		t.Fatalf("final block length %d, want 12345", last.Length)
	}
}

func TestSynthesizeBlocksFloorAndSentinel(t *testing.T) {
	hi := fsmeta.NewHostIndex()
	// Block size below the floor gets clamped to 1 MiB.
	blocks := synthesizeBlocks(3*1024*1024, 4096, true, hi)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks with floored size, got %d", len(blocks))
	}

	for _, b := range blocks {
		if len(b.Replicas) != 1 {
			t.Fatalf("synthetic block has %d replicas, want 1", len(b.Replicas))
		}
		r := b.Replicas[0]
		if r.IsCached {
			t.Fatal("synthetic replica must not be cached")
		}
		if r.DiskID != fsmeta.UnknownDiskID {
			t.Fatalf("synthetic replica disk id %d, want unknown", r.DiskID)
		}
		if hi.Hosts()[r.HostIdx].Address != remoteAddress {
			t.Fatalf("synthetic replica host %v, want sentinel", hi.Hosts()[r.HostIdx].Address)
		}
	}
	// All synthetic blocks share the single sentinel entry.
	if hi.Len() != 1 {
		t.Fatalf("host index grew to %d entries", hi.Len())
	}
}
