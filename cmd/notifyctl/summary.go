package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"github.com/taxpilot/dashboard-notifications/internal/service"
)

var (
	loadTimeout  time.Duration
	summaryLimit int
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print unread counts per category and the newest unread notifications",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().DurationVar(&loadTimeout, "timeout", 10*time.Second, "how long to wait for the first snapshot")
	summaryCmd.Flags().IntVar(&summaryLimit, "limit", 10, "number of unread notifications to list")
}

// withLiveFeed starts a feed over the configured collection, waits for the
// first aggregate and hands both to fn.
func withLiveFeed(ctx context.Context, fn func(feed service.Feed, agg model.Aggregate) error) error {
	store, err := openStore(ctx, logger, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	defer store.Close()

	return withStoreFeed(ctx, store, fn)
}

func withStoreFeed(ctx context.Context, store realtime.Store, fn func(feed service.Feed, agg model.Aggregate) error) error {
	feed := service.NewFeed(logger, store, cfg.Store.Path)

	first := make(chan model.Aggregate, 1)
	remove := feed.OnAggregateChange(func(agg model.Aggregate) {
		select {
		case first <- agg:
		default:
		}
	})
	defer remove()

	if err := feed.Start(ctx); err != nil {
		return err
	}
	defer feed.Stop()

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	select {
	case agg := <-first:
		return fn(feed, agg)
	case <-ctx.Done():
		return fmt.Errorf("waiting for notifications: %w", ctx.Err())
	}
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withLiveFeed(cmd.Context(), func(feed service.Feed, agg model.Aggregate) error {
		printSummary(cmd.OutOrStdout(), agg, summaryLimit)
		return nil
	})
}

func printSummary(w io.Writer, agg model.Aggregate, limit int) {
	fmt.Fprintf(w, "Unread: %d\n", agg.Total)
	for _, c := range model.Categories {
		fmt.Fprintf(w, "  %-8s %d\n", c.Label(), agg.ByCategory[c])
	}

	var unread []model.Notification
	for _, n := range agg.Ordered {
		if n.Unread {
			unread = append(unread, n)
		}
	}
	if len(unread) == 0 {
		return
	}
	fmt.Fprintln(w)

	for i, n := range unread {
		if i == limit {
			fmt.Fprintf(w, "  ... and %d more\n", len(unread)-limit)
			break
		}
		created := time.UnixMilli(n.CreatedAt).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "  %s  [%s] %s (%s)\n", created, n.Type.Label(), n.Title, n.ID)
	}
}
