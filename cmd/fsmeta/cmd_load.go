package main

import (
	"context"
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skyline93/fsmeta/internal/blockfs"
	"github.com/skyline93/fsmeta/internal/cache"
	"github.com/skyline93/fsmeta/internal/catalog"
	"github.com/skyline93/fsmeta/internal/fsmeta"
)

var cmdLoad = &cobra.Command{
	Use:   "load [flags] DIR ...",
	Short: "Load file and block metadata for partition directories",
	Long: `
The "load" command lists the given partition directories on the local
filesystem, builds file descriptors with synthetic block layout, and writes
a snapshot that later runs reuse for unchanged files.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was a fatal error (no metadata loaded).
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), loadOptions, args)
	},
}

// LoadCmdOptions bundles all options for the load command.
type LoadCmdOptions struct {
	Table        string
	Root         string
	Format       string
	BlockSize    string
	CacheDir     string
	Workers      int
	MarkedCached bool
}

var loadOptions LoadCmdOptions

func init() {
	cmdRoot.AddCommand(cmdLoad)

	f := cmdLoad.Flags()
	f.StringVar(&loadOptions.Table, "table", "default", "table name the partitions belong to")
	f.StringVar(&loadOptions.Root, "root", "/", "filesystem root the partition dirs are relative to")
	f.StringVar(&loadOptions.Format, "format", "text", "file format (text, seq, rc, avro, parquet)")
	f.StringVar(&loadOptions.BlockSize, "block-size", "128MB", "default block size for synthetic layout")
	f.StringVar(&loadOptions.CacheDir, "cache-dir", "", "snapshot cache directory (disabled when empty)")
	f.IntVar(&loadOptions.Workers, "workers", catalog.DefaultLoadWorkers, "partition directories to load in parallel")
	f.BoolVar(&loadOptions.MarkedCached, "marked-cached", false, "force a full reload, as for partitions marked cached")
}

var fileFormats = map[string]fsmeta.FileFormat{
	"text":    fsmeta.FormatText,
	"seq":     fsmeta.FormatSequenceFile,
	"rc":      fsmeta.FormatRCFile,
	"avro":    fsmeta.FormatAvro,
	"parquet": fsmeta.FormatParquet,
}

func runLoad(ctx context.Context, opts LoadCmdOptions, dirs []string) error {
	format, ok := fileFormats[opts.Format]
	if !ok {
		return errors.Errorf("unknown file format %q", opts.Format)
	}

	var blockSize datasize.ByteSize
	if err := blockSize.UnmarshalText([]byte(opts.BlockSize)); err != nil {
		return errors.Wrapf(err, "invalid block size %q", opts.BlockSize)
	}

	// The loader never retries: transient listing failures are the
	// caller's problem, so the retry policy lives here.
	var fs *blockfs.Local
	err := backoff.Retry(func() error {
		var err error
		fs, err = blockfs.OpenLocal(opts.Root, int64(blockSize.Bytes()))
		return err
	}, backoff.WithContext(newOpenBackoff(), ctx))
	if err != nil {
		return err
	}

	var snapCache *cache.Cache
	loadOpts := catalog.LoadOptions{
		Format:         format,
		IsMarkedCached: opts.MarkedCached,
		Workers:        opts.Workers,
	}
	if opts.CacheDir != "" {
		snapCache, err = cache.New(opts.CacheDir)
		if err != nil {
			return err
		}
		prev, err := snapCache.LoadSnapshot(opts.Table)
		if err != nil && !errors.Is(err, cache.ErrNoSnapshot) {
			return err
		}
		loadOpts.Prior = prev.Prior()
	}

	hostIndex := fsmeta.NewHostIndex()
	loader := catalog.NewLoader(opts.Table, hostIndex)

	result, err := loader.LoadPartitions(ctx, fs, dirs, loadOpts)
	if err != nil {
		return err
	}

	for dir, fds := range result.ByDir {
		fmt.Printf("%s:\n", dir)
		for _, fd := range fds {
			fmt.Printf("  %s\n", fd)
		}
	}
	fmt.Printf("loaded %d files in %d dirs, %d distinct hosts\n",
		len(result.Descriptors), len(result.ByDir), hostIndex.Len())

	if snapCache != nil {
		id, err := snapCache.SaveSnapshot(&cache.Snapshot{
			Table: opts.Table,
			Time:  time.Now(),
			Hosts: hostIndex.Hosts(),
			Dirs:  result.ByDir,
		})
		if err != nil {
			return err
		}
		fmt.Printf("snapshot %s saved\n", id[:8])
	}
	return nil
}

func newOpenBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 15 * time.Second
	return b
}
