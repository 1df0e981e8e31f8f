package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netconsole/pkg/audit"
	"github.com/newtron-network/netconsole/pkg/cli"
	"github.com/newtron-network/netconsole/pkg/util"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit log",
	Long: `View the audit log of plans and reconciliation runs.

Each run is logged with:
  - Timestamp and user
  - Device and interface
  - Intents applied, and the intent that failed
  - Final state

Examples:
  netconsole audit --device leaf1-ny
  netconsole audit -d leaf1-ny -i Ethernet0 --last 24h
  netconsole audit --run 6f1c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Device:      deviceName,
			User:        auditUser,
			RunID:       auditRunID,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
			Newest:      true,
		}
		if interfaceName != "" {
			filter.Interface = util.NormalizeInterfaceName(interfaceName)
		}
		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if jsonOutput {
			if events == nil {
				events = []*audit.Event{}
			}
			return printJSON(events)
		}

		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "DEVICE", "INTERFACE", "OPERATION", "INTENTS", "STATUS")
		for _, event := range events {
			status := green("ok")
			switch {
			case event.DryRun:
				status = yellow("dry-run")
			case !event.Success:
				status = red("failed")
			}

			t.Row(
				event.Timestamp.Local().Format("2006-01-02 15:04:05"),
				event.User,
				event.Device,
				cli.OrDash(event.Interface),
				event.Operation,
				fmt.Sprintf("%d/%d", len(event.Intents), event.Planned),
				status,
			)
		}
		t.Flush()
		return nil
	},
}

var (
	auditUser     string
	auditRunID    string
	auditLast     string
	auditLimit    int
	auditFailures bool
)

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditCmd.Flags().StringVar(&auditRunID, "run", "", "Filter by run ID")
	auditCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")
}
