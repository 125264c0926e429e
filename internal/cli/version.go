package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/streamvault/hlsfetch/internal/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hlsfetch v%s (%s) %s/%s\n", version.Version, version.Commit, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
