package fsmeta

import "fmt"

// UnknownDiskID marks a replica whose physical disk could not be resolved.
const UnknownDiskID = -1

// BlockReplica is one host's copy of a file block. HostIdx refers into the
// HostIndex the descriptor was loaded with.
type BlockReplica struct {
	HostIdx  int  `json:"host_idx"`
	IsCached bool `json:"is_cached,omitempty"`
	DiskID   int  `json:"disk_id"`
}

// FileBlock is a contiguous byte range of a file and the replicas holding
// it. Replica order matches the order the filesystem reported; scheduling
// tie-breaks downstream depend on it.
type FileBlock struct {
	Offset   int64          `json:"offset"`
	Length   int64          `json:"length"`
	Replicas []BlockReplica `json:"replicas"`
}

// FileDescriptor is the catalog's record of one data file in a partition
// directory. Blocks tile [0, FileLength) in offset order. A descriptor is
// immutable once its block list is finalized for a load cycle; any change
// to the file rebuilds the whole descriptor.
type FileDescriptor struct {
	FileName         string       `json:"file_name"`
	FileLength       int64        `json:"file_length"`
	ModificationTime int64        `json:"modification_time"`
	Blocks           []*FileBlock `json:"blocks,omitempty"`
}

func NewFileDescriptor(name string, length, mtime int64) *FileDescriptor {
	return &FileDescriptor{FileName: name, FileLength: length, ModificationTime: mtime}
}

func (fd *FileDescriptor) AddBlock(b *FileBlock) {
	fd.Blocks = append(fd.Blocks, b)
}

func (fd *FileDescriptor) String() string {
	return fmt.Sprintf("FileDescriptor{%s len=%d mtime=%d blocks=%d}",
		fd.FileName, fd.FileLength, fd.ModificationTime, len(fd.Blocks))
}
