package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
)

func (c *cli) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and manage activity reports",
	}
	cmd.AddCommand(c.reportGenerateCmd(), c.reportListCmd(), c.reportShowCmd(), c.reportDeleteCmd())
	return cmd
}

func (c *cli) reportGenerateCmd() *cobra.Command {
	var (
		userName string
		from, to string
		name     string
		save     bool
		hourly   bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a report for a range of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.lookupUser(userName)
			if err != nil {
				return err
			}
			start, err := parseDay(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end := start
			if to != "" {
				if end, err = parseDay(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}

			store, err := c.db()
			if err != nil {
				return err
			}
			gen := report.NewGenerator(store, report.WithLogger(c.log.With("topic", logging.TopicReport)))
			r, err := gen.Generate(u, name, start, end)
			if err != nil {
				return err
			}
			if save {
				if err := store.SaveReport(r); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
			}
			return printReport(cmd, r, hourly, asJSON)
		},
	}
	c.userFlag(cmd, &userName)
	cmd.Flags().StringVar(&from, "from", time.Now().Format(time.DateOnly), "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD), defaults to --from")
	cmd.Flags().StringVar(&name, "name", "", "report name")
	cmd.Flags().BoolVar(&save, "save", false, "store the report")
	cmd.Flags().BoolVar(&hourly, "hourly", false, "include the hour-by-hour breakdown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (c *cli) reportListCmd() *cobra.Command {
	var userName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.lookupUser(userName)
			if err != nil {
				return err
			}
			store, err := c.db()
			if err != nil {
				return err
			}
			reports, err := store.ReportsByUser(u.ID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFROM\tTO\tCREATED")
			for _, r := range reports {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name,
					r.PeriodStart.Format(time.DateOnly), r.PeriodEnd.Format(time.DateOnly), r.CreatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	c.userFlag(cmd, &userName)
	return cmd
}

func (c *cli) reportShowCmd() *cobra.Command {
	var hourly, asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report id %q", args[0])
			}
			store, err := c.db()
			if err != nil {
				return err
			}
			r, err := store.ReportByID(id)
			if err != nil {
				return err
			}
			return printReport(cmd, r, hourly, asJSON)
		},
	}
	cmd.Flags().BoolVar(&hourly, "hourly", false, "include the hour-by-hour breakdown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (c *cli) reportDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report id %q", args[0])
			}
			store, err := c.db()
			if err != nil {
				return err
			}
			if err := store.DeleteReport(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted report %d\n", id)
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, r *report.Report, hourly, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	if r.ID != 0 {
		fmt.Fprintf(out, "Report #%d\n", r.ID)
	}
	fmt.Fprint(out, report.Summary(r))
	if hourly {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.HourlyText(r))
	}
	return nil
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}
