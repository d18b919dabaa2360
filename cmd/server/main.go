// Command server runs the file-governance API and its notification worker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "filegov",
	Short: "Departmental file governance service",
	Long: `filegov routes transfer and delete requests for managed files through
departmental approval, keeps deleted files in a restorable trash, and
notifies approvers and requesters as requests move through their lifecycle.

Configuration comes from the environment; see internal/platform/config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
