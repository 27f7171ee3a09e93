package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cosmeticsCmd = &cobra.Command{
	Use:   "cosmetics <page-url>",
	Short: "Print the assembled domain_stylesheet, domain_javascript, and generic_stylesheet for a page URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runCosmetics,
}

func runCosmetics(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := newLogger()

	e, _, err := buildEngine(ctx, logger)
	if err != nil {
		return err
	}

	pageURL := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "# generic_stylesheet")
	fmt.Fprintln(out, e.GenericStylesheet(pageURL))
	fmt.Fprintln(out, "# domain_stylesheet")
	fmt.Fprintln(out, e.DomainStylesheet(pageURL))
	fmt.Fprintln(out, "# domain_javascript")
	fmt.Fprintln(out, e.DomainJavascript(pageURL))

	return nil
}
