package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adguard-like/filtercore/internal/engine"
	"github.com/adguard-like/filtercore/internal/rule"
)

var logRequests []string

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Evaluate each --request URL and dump the resulting in-memory request log",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().StringSliceVar(&logRequests, "request", nil, "request URL to evaluate before dumping the log (repeatable)")
	logCmd.Flags().StringVar(&firstPartyURL, "first-party", "", "first-party page URL shared by every --request")
	logCmd.Flags().StringVar(&requestType, "type", "other", "element type shared by every --request")
	logCmd.Flags().StringVar(&requestScheme, "scheme", "https", "URL scheme shared by every --request")
}

func runLog(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	logger := newLogger()

	e, _, err := buildEngine(ctx, logger)
	if err != nil {
		return err
	}

	typeMask, ok := rule.ParseElementTypeName(requestType)
	if !ok {
		return fmt.Errorf("unrecognized element type %q", requestType)
	}

	for _, reqURL := range logRequests {
		e.ShouldBlock(engine.RequestInfo{URL: reqURL, Scheme: requestScheme, Type: typeMask}, firstPartyURL)
	}

	out := cmd.OutOrStdout()
	for _, entry := range e.AllLogEntries() {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%q\n",
			entry.Timestamp.Format("2006-01-02T15:04:05"), entry.Action, entry.FirstPartyURL, entry.RequestURL, entry.Rule)
	}

	return nil
}
