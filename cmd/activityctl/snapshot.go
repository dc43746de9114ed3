package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
)

// cpuSettle is the gap between seeding and reading the CPU counters.
const cpuSettle = 500 * time.Millisecond

func (c *cli) snapshotCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Collect one sample from this machine and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			src := collector.NewSource(collector.Options{Logger: c.log.With("topic", logging.TopicMetrics)})
			src.CPULoad()
			time.Sleep(cpuSettle)
			s := src.CollectAllMetrics()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			fmt.Fprintf(out, "OS:      %s\n", s.OS)
			fmt.Fprintf(out, "CPU:     %.2f%%\n", s.CPUPercent)
			fmt.Fprintf(out, "RAM:     %.2f / %.2f MB\n", s.RAMUsedMB, s.RAMTotalMB)
			fmt.Fprintf(out, "Disk:    %s\n", s.DiskDetails)
			fmt.Fprintf(out, "Window:  %s\n", s.ActiveWindow)
			fmt.Fprintf(out, "Uptime:  %s\n", collector.FormatUptime(s.UptimeSeconds))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the sample as JSON")
	return cmd
}
