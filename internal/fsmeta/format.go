package fsmeta

import (
	"path"
	"strings"
)

// Compression is the compression codec inferred from a file name suffix.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionDeflate
	CompressionGzip
	CompressionBzip2
	CompressionSnappy
	CompressionLzo
	// CompressionLzoIndex marks the ".index" side file the LZO reader keeps
	// next to its data file. Index files are read by the scanner directly
	// and never become descriptors.
	CompressionLzoIndex
)

var compressionSuffixes = map[string]Compression{
	"deflate": CompressionDeflate,
	"gz":      CompressionGzip,
	"bz2":     CompressionBzip2,
	"snappy":  CompressionSnappy,
	"lzo":     CompressionLzo,
	"index":   CompressionLzoIndex,
}

// CompressionFromName infers the codec from fileName's extension. Unknown
// extensions mean an uncompressed file.
func CompressionFromName(fileName string) Compression {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if c, ok := compressionSuffixes[strings.ToLower(ext)]; ok {
		return c
	}
	return CompressionNone
}

// FileFormat is the data layout of the files in a partition.
type FileFormat int

const (
	FormatText FileFormat = iota
	FormatSequenceFile
	FormatRCFile
	FormatAvro
	FormatParquet
)

// IsSplittable reports whether a file of this format, compressed with c,
// can be scanned in independent ranges. A non-splittable file must be read
// end to end by a single scanner, so it gets exactly one block.
func (f FileFormat) IsSplittable(c Compression) bool {
	switch f {
	case FormatText:
		return c == CompressionNone
	case FormatSequenceFile, FormatRCFile, FormatAvro, FormatParquet:
		return true
	default:
		return false
	}
}

// IsHiddenName reports whether name is an internal file the catalog must
// skip. Hive and mapreduce write staging output with these prefixes.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
