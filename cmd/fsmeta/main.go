package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "fsmeta",
	Short: "Load and inspect table partition file metadata",
	Long: `
fsmeta loads the file and block metadata of table partition directories the
way the catalog service does: it reconciles a fresh listing against the last
snapshot, translates or synthesizes block layout, and resolves disk ids.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
