// Command filterctl is a thin operator and test harness for the
// content-filtering core. It is not part of the core itself (spec.md §1
// leaves the host responsible for interception and persistence); it exists
// to load subscriptions from the command line, run should_block against
// them, and print the per-page cosmetic payload and request log a real host
// would otherwise consume programmatically.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	subscriptionFiles []string
	resourceFile      string
)

var rootCmd = &cobra.Command{
	Use:   "filterctl",
	Short: "Operator and test harness for the content-filtering core",
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(
		&subscriptionFiles, "list", "l", nil, "subscription file to load (repeatable)",
	)
	rootCmd.PersistentFlags().StringVar(&resourceFile, "resources", "", "resource file to load")

	rootCmd.AddCommand(loadCmd, checkCmd, cosmeticsCmd, logCmd)
}
