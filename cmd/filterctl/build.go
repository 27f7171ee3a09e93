package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/logutil/slogutil"

	"github.com/adguard-like/filtercore/internal/engine"
	"github.com/adguard-like/filtercore/internal/reqlog"
	"github.com/adguard-like/filtercore/internal/resource"
	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/subscription"
)

// loadedList is one subscription file's load result, kept around so
// subcommands can report per-file statistics.
type loadedList struct {
	path string
	sub  *subscription.Subscription
}

// buildEngine loads every subscription and the resource file named by the
// root command's persistent flags and wires them into a fresh [engine.Engine],
// per spec.md §1. A subscription file that cannot be opened or loaded, and a
// resource file that fails to parse, are logged and skipped per spec.md §7;
// the only error it returns is for a resource file that cannot be opened.
func buildEngine(ctx context.Context, logger *slog.Logger) (*engine.Engine, []loadedList, error) {
	resources := resource.NewStore(&resource.Config{})

	if resourceFile != "" {
		f, err := os.Open(resourceFile)
		if err != nil {
			return nil, nil, fmt.Errorf("opening resource file: %w", err)
		}

		err = resources.Load(f)
		closeErr := f.Close()

		if err != nil {
			logger.WarnContext(ctx, "loading resources", slogutil.KeyError, err)
		}

		if closeErr != nil {
			logger.WarnContext(ctx, "closing resource file", slogutil.KeyError, closeErr)
		}
	}

	e := engine.New(&engine.Config{
		Logger:    logger,
		Resources: resources,
		Log:       reqlog.New(&reqlog.Config{Logger: logger}),
	})

	var filters []*rule.Filter
	lists := make([]loadedList, 0, len(subscriptionFiles))

	for _, path := range subscriptionFiles {
		f, err := os.Open(path)
		if err != nil {
			logger.WarnContext(ctx, "opening subscription file, skipping", "path", path, slogutil.KeyError, err)

			continue
		}

		sub, err := subscription.Load(f, &subscription.Config{FilePath: path})
		closeErr := f.Close()

		if err != nil {
			logger.WarnContext(ctx, "loading subscription file, skipping", "path", path, slogutil.KeyError, err)

			continue
		}

		if closeErr != nil {
			logger.WarnContext(ctx, "closing subscription file", "path", path, slogutil.KeyError, closeErr)
		}

		filters = append(filters, sub.Filters...)
		lists = append(lists, loadedList{path: path, sub: sub})
	}

	e.Rebuild(filters)

	return e, lists, nil
}

// newLogger builds the CLI's logger, per the ambient logging convention
// used throughout this repository.
func newLogger() *slog.Logger {
	return slogutil.New(nil)
}
