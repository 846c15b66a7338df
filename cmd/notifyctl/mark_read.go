package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/service"
)

var markAll bool

var markReadCmd = &cobra.Command{
	Use:   "mark-read [ID]",
	Short: "Mark one notification, or every unread one with --all, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMarkRead,
}

func init() {
	markReadCmd.Flags().BoolVar(&markAll, "all", false, "mark every currently unread notification as read")
}

func runMarkRead(cmd *cobra.Command, args []string) error {
	if markAll == (len(args) == 1) {
		return errors.New("pass either a notification ID or --all")
	}

	return withLiveFeed(cmd.Context(), func(feed service.Feed, agg model.Aggregate) error {
		out := cmd.OutOrStdout()

		if !markAll {
			if err := feed.RequestMarkOneRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Marked %s as read\n", args[0])
			return nil
		}

		marked, err := feed.MarkAllReadSeen(cmd.Context(), agg.Ordered)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Marked %d notification(s) as read\n", marked)
		return nil
	})
}
