// torrent-search queries torrent indexes from the terminal. Results come from
// either a self-hosted aggregation service or a rotating pool of 1337x
// mirrors, and magnets can be handed to qBittorrent, the clipboard or the
// desktop's magnet handler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-torrent-search/internal/config"
	"github.com/litescript/ls-torrent-search/internal/version"
)

func main() {
	config.InitDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	backend    string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	var rootCmd = &cobra.Command{
		Use:           "torrent-search",
		Short:         "Search torrent indexes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path (default ~/.config/torrent-search/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "override the configured backend (aggregator or scrape)")

	rootCmd.AddCommand(runSearchCommand(flags))
	rootCmd.AddCommand(runDetailsCommand(flags))
	rootCmd.AddCommand(runMagnetCommand(flags))
	rootCmd.AddCommand(runTestConnectionCommand(flags))
	rootCmd.AddCommand(runShellCommand(flags))
	rootCmd.AddCommand(runConfigCommand(flags))
	rootCmd.AddCommand(runVersionCommand())

	return rootCmd
}
