package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adguard-like/filtercore/internal/engine"
	"github.com/adguard-like/filtercore/internal/rule"
)

var (
	firstPartyURL string
	requestType   string
	requestScheme string
)

var checkCmd = &cobra.Command{
	Use:   "check <request-url>",
	Short: "Run should_block against the configured subscriptions and print the decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&firstPartyURL, "first-party", "", "first-party page URL")
	checkCmd.Flags().StringVar(&requestType, "type", "other", "element type of the request (script, image, stylesheet, xhr, ...)")
	checkCmd.Flags().StringVar(&requestScheme, "scheme", "https", "URL scheme of the request")
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	d := e.ShouldBlock(engine.RequestInfo{
		URL:    args[0],
		Scheme: requestScheme,
		Type:   typeMask,
	}, firstPartyURL)

	switch d.Kind {
	case engine.Redirect:
		fmt.Fprintf(cmd.OutOrStdout(), "redirect: %s\n", d.RedirectName)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), d.Kind)
	}

	return nil
}
