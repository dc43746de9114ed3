// Command activityctl manages users, idle sessions and reports in the
// activity monitor database.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/config"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/storage"
)

type cli struct {
	configPath string
	verbose    bool
	logTopics  string

	cfg   *config.Config
	store *storage.DB
	log   *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "activityctl",
		Short:        "Inspect and manage activity monitor data",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			c.log, _ = logging.New(logging.Options{
				Verbose: c.verbose,
				Topics:  c.logTopics,
				Output:  cmd.ErrOrStderr(),
				Level:   slog.LevelDebug,
			})
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.store != nil {
				return c.store.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath(), "path to the TOML config file")
	root.PersistentFlags().BoolVar(&c.verbose, "verbose", false, "enable all verbose logging")
	root.PersistentFlags().StringVar(&c.logTopics, "log", "", "comma-separated log topics")

	root.AddCommand(c.userCmd(), c.idleCmd(), c.reportCmd(), c.snapshotCmd())
	return root
}

// db opens the configured database on first use.
func (c *cli) db() (*storage.DB, error) {
	if c.store != nil {
		return c.store, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.Storage.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.Open(c.cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// userFlag registers --user defaulting to the configured user.
func (c *cli) userFlag(cmd *cobra.Command, name *string) {
	cmd.Flags().StringVar(name, "user", "", "user name (defaults to user.name from the config)")
}

// lookupUser resolves name, or the configured user when name is empty.
func (c *cli) lookupUser(name string) (*account.User, error) {
	if name == "" {
		name = c.cfg.User.Name
	}
	if name == "" {
		return nil, errors.New("no user given and user.name is not configured")
	}
	store, err := c.db()
	if err != nil {
		return nil, err
	}
	u, err := account.NewService(store).Lookup(name)
	if errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("user %q does not exist", name)
	}
	return u, err
}

// readPassword returns flagValue, or reads one line from in.
func readPassword(flagValue string, in io.Reader, out io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
