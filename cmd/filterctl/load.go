package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adguard-like/filtercore/internal/rule"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Parse and load the configured subscription files, reporting rule counts",
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	logger := newLogger()

	_, lists, err := buildEngine(ctx, logger)
	if err != nil {
		return err
	}

	var totalFilters, totalNotImplemented int

	for _, l := range lists {
		notImplemented := 0
		for _, f := range l.sub.Filters {
			if f.Category == rule.CategoryNotImplemented {
				notImplemented++
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %q, %d rules (%d not implemented)\n",
			l.path, l.sub.Name, len(l.sub.Filters), notImplemented)

		totalFilters += len(l.sub.Filters)
		totalNotImplemented += notImplemented
	}

	fmt.Fprintf(cmd.OutOrStdout(), "total: %d rules across %d lists (%d not implemented)\n",
		totalFilters, len(lists), totalNotImplemented)

	return nil
}
