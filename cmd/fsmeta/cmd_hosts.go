package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skyline93/fsmeta/internal/cache"
)

var cmdHosts = &cobra.Command{
	Use:   "hosts [flags]",
	Short: "Print the host index of the last snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHosts(hostsOptions)
	},
}

type HostsCmdOptions struct {
	Table    string
	CacheDir string
}

var hostsOptions HostsCmdOptions

func init() {
	cmdRoot.AddCommand(cmdHosts)

	f := cmdHosts.Flags()
	f.StringVar(&hostsOptions.Table, "table", "default", "table name")
	f.StringVar(&hostsOptions.CacheDir, "cache-dir", "", "snapshot cache directory")
}

func runHosts(opts HostsCmdOptions) error {
	if opts.CacheDir == "" {
		return errors.New("--cache-dir is required")
	}
	snapCache, err := cache.New(opts.CacheDir)
	if err != nil {
		return err
	}
	sn, err := snapCache.LoadSnapshot(opts.Table)
	if err != nil {
		return err
	}

	for i, h := range sn.Hosts {
		if h.DisplayName != "" && h.DisplayName != h.Address.Host {
			fmt.Printf("%4d  %s (%s)\n", i, h.Address, h.DisplayName)
			continue
		}
		fmt.Printf("%4d  %s\n", i, h.Address)
	}
	return nil
}
