package catalog

import (
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/pkg/errors"

	"github.com/skyline93/fsmeta/internal/blockfs"
	"github.com/skyline93/fsmeta/internal/fsmeta"
)

// ErrMalformedLocation marks a block location whose replica lists are
// inconsistent. It is fatal for the partition load.
var ErrMalformedLocation = errors.New("malformed block location")

// translateBlock converts one raw block location into a FileBlock,
// resolving every replica endpoint through hostIndex. Cache residency is
// reported per hostname, not per endpoint, which is why the hostname rides
// along into the index as the display name. Replica order is preserved.
func translateBlock(loc blockfs.BlockLocation, hostIndex *fsmeta.HostIndex) (*fsmeta.FileBlock, error) {
	if len(loc.Hosts) != len(loc.Names) {
		return nil, errors.Wrapf(ErrMalformedLocation,
			"block at offset %d: %d hostnames for %d endpoints",
			loc.Offset, len(loc.Hosts), len(loc.Names))
	}

	replicaHosts := hashset.New()
	for _, h := range loc.Hosts {
		replicaHosts.Add(h)
	}
	cachedHosts := hashset.New()
	for _, h := range loc.CachedHosts {
		if !replicaHosts.Contains(h) {
			return nil, errors.Wrapf(ErrMalformedLocation,
				"block at offset %d: cached host %q is not a replica", loc.Offset, h)
		}
		cachedHosts.Add(h)
	}

	replicas := make([]fsmeta.BlockReplica, 0, len(loc.Names))
	for i, name := range loc.Names {
		addr, err := fsmeta.ParseHostPort(name)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedLocation, "block at offset %d: %v", loc.Offset, err)
		}
		replicas = append(replicas, fsmeta.BlockReplica{
			HostIdx:  hostIndex.GetOrAssign(addr, loc.Hosts[i]),
			IsCached: cachedHosts.Contains(loc.Hosts[i]),
			DiskID:   fsmeta.UnknownDiskID,
		})
	}
	return &fsmeta.FileBlock{Offset: loc.Offset, Length: loc.Length, Replicas: replicas}, nil
}
