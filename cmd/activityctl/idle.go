package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
)

func (c *cli) idleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idle",
		Short: "Open and close manual idle sessions",
	}

	var userName string
	withService := func(run func(svc *idle.Service, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, err := c.db()
			if err != nil {
				return err
			}
			return run(idle.NewService(store, c.log.With("topic", logging.TopicIdle)), cmd.OutOrStdout())
		}
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start an idle session",
		RunE: withService(func(svc *idle.Service, out io.Writer) error {
			u, err := c.lookupUser(userName)
			if err != nil {
				return err
			}
			sess, err := svc.Start(u, idle.ReasonManual)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "idle session %d open since %s\n", sess.ID, sess.Start.Format(time.DateTime))
			return nil
		}),
	}

	end := &cobra.Command{
		Use:   "end",
		Short: "End the open idle session",
		RunE: withService(func(svc *idle.Service, out io.Writer) error {
			u, err := c.lookupUser(userName)
			if err != nil {
				return err
			}
			sess, err := svc.End(u)
			if err != nil {
				return err
			}
			if sess == nil {
				fmt.Fprintln(out, "no idle session open")
				return nil
			}
			fmt.Fprintf(out, "idle session %d closed after %s\n", sess.ID, time.Duration(sess.DurationSeconds)*time.Second)
			return nil
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the open idle session",
		RunE: withService(func(svc *idle.Service, out io.Writer) error {
			u, err := c.lookupUser(userName)
			if err != nil {
				return err
			}
			sess, err := svc.Active(u)
			if err != nil {
				return err
			}
			if sess == nil {
				fmt.Fprintln(out, "no idle session open")
				return nil
			}
			fmt.Fprintf(out, "idle since %s (%s reason)\n", sess.Start.Format(time.DateTime), sess.Reason)
			return nil
		}),
	}

	for _, sub := range []*cobra.Command{start, end, status} {
		c.userFlag(sub, &userName)
		cmd.AddCommand(sub)
	}
	return cmd
}
