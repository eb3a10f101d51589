package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/cron"
)

// cronCmd exposes the scheduler as a standalone CLI for inspecting cron
// expressions without starting the gateway. The running gateway keeps its
// own in-memory Scheduler; this is a convenience for validating a schedule
// and previewing its next few fire times before adding it to config.
func cronCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cron",
		Short: "Inspect cron schedule expressions",
	}
	c.AddCommand(cronNextCmd())
	return c
}

func cronNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next <schedule>",
		Short: "Print the next fire time for a cron expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, ok := cron.NextRun(args[0])
			if !ok {
				return fmt.Errorf("invalid cron expression: %s", args[0])
			}
			fmt.Println(next.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}
