package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/litescript/ls-torrent-search/internal/config"
	"github.com/litescript/ls-torrent-search/internal/handoff"
	"github.com/litescript/ls-torrent-search/internal/resolver"
	"github.com/litescript/ls-torrent-search/internal/torrent"
	"github.com/litescript/ls-torrent-search/internal/version"
)

// searchFlags are the filters accepted by search and shell.
type searchFlags struct {
	category  string
	sortBy    string
	order     string
	providers []string
	limit     int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category: all, video (movies/tv), audio, games, applications, other")
	cmd.Flags().StringVarP(&f.sortBy, "sort", "s", "", "sort column: added, size, seeders, leechers")
	cmd.Flags().StringVarP(&f.order, "order", "o", "", "sort order: asc or desc")
	cmd.Flags().StringSliceVarP(&f.providers, "providers", "p", nil, "aggregator providers (default from config)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum number of results")
}

func (f *searchFlags) query(cfg config.Config, text string) resolver.Query {
	providers := f.providers
	if len(providers) == 0 {
		providers = defaultProviders(cfg)
	}
	return resolver.Query{
		Text:      text,
		Category:  f.category,
		SortBy:    f.sortBy,
		Order:     f.order,
		Providers: providers,
		Limit:     f.limit,
	}
}

func runSearchCommand(flags *globalFlags) *cobra.Command {
	var (
		sf     searchFlags
		asJSON bool
	)

	command := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search for torrents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			svc, err := buildService(cfg)
			if err != nil {
				return err
			}

			res, err := svc.Search(cmd.Context(), sf.query(cfg, strings.Join(args, " ")))
			if err != nil {
				return errors.Wrap(err, "search")
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
			return nil
		},
	}

	sf.register(command)
	command.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return command
}

func printResult(out, errOut io.Writer, res *resolver.Result) {
	newPrinter(errOut).ProviderErrors(res.ProviderErrors)
	newPrinter(out).Results(res.Records)
}

func runDetailsCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool

	command := &cobra.Command{
		Use:   "details <id>",
		Short: "Show details for a torrent by info hash or id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			svc, err := buildService(cfg)
			if err != nil {
				return err
			}

			d, err := svc.Details(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrap(err, "details")
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			rec, found := d.Record, d.Found
			newPrinter(cmd.OutOrStdout()).Details(rec, found)
			if !found {
				return errors.Errorf("torrent %q not found", args[0])
			}
			return nil
		},
	}

	command.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")

	return command
}

func runMagnetCommand(flags *globalFlags) *cobra.Command {
	var copyFlag, openFlag, qbitFlag bool

	command := &cobra.Command{
		Use:   "magnet <id|magnet-uri>",
		Short: "Print a torrent's magnet link or hand it to a client",
		Long: `Resolve the magnet link for a torrent and print it.

With --copy, --open or --qbit the magnet is also sent to the clipboard, the
desktop's magnet handler or the configured qBittorrent instance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			magnet := strings.TrimSpace(args[0])
			if !strings.HasPrefix(strings.ToLower(magnet), "magnet:") {
				svc, err := buildService(cfg)
				if err != nil {
					return err
				}
				if magnet, err = resolveMagnet(cmd.Context(), svc, magnet); err != nil {
					return err
				}
			}

			var targets []handoff.Target
			if copyFlag {
				targets = append(targets, handoff.Clipboard{})
			}
			if openFlag {
				targets = append(targets, handoff.Opener{})
			}
			if qbitFlag {
				targets = append(targets, qbittorrent(cfg))
			}

			if len(targets) == 0 {
				if _, err := handoff.ValidateMagnet(magnet); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), magnet)
				return nil
			}
			for _, t := range targets {
				if err := handoff.Send(cmd.Context(), t, magnet); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", t.Name())
			}
			return nil
		},
	}

	command.Flags().BoolVar(&copyFlag, "copy", false, "copy the magnet to the clipboard")
	command.Flags().BoolVar(&openFlag, "open", false, "open the magnet with the system handler")
	command.Flags().BoolVar(&qbitFlag, "qbit", false, "add the magnet to qBittorrent")

	return command
}

// resolveMagnet looks up id and returns its magnet, synthesising one from
// the info hash when the source gave none.
func resolveMagnet(ctx context.Context, svc *resolver.Service, id string) (string, error) {
	d, err := svc.Details(ctx, id)
	if err != nil {
		return "", errors.Wrap(err, "details")
	}
	if !d.Found {
		return "", errors.Errorf("torrent %q not found", id)
	}
	if d.Record.HasMagnet() {
		return d.Record.Magnet, nil
	}
	if torrent.IsInfoHash(d.Record.InfoHash) {
		return torrent.BuildMagnet(d.Record.InfoHash, d.Record.Name), nil
	}
	return "", errors.Errorf("torrent %q has no magnet link", id)
}

func qbittorrent(cfg config.Config) *handoff.QBittorrent {
	return handoff.NewQBittorrent(handoff.QBittorrentOptions{
		Host:     cfg.QBittorrent.Host,
		Port:     cfg.QBittorrent.Port,
		Username: cfg.QBittorrent.Username,
		Password: cfg.QBittorrent.Password,
		SavePath: cfg.QBittorrent.SavePath,
	})
}

func runTestConnectionCommand(flags *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "test-connection",
		Short: "Probe the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			svc, err := buildService(cfg)
			if err != nil {
				return err
			}

			st := svc.TestConnection(cmd.Context())
			newPrinter(cmd.OutOrStdout()).Connection(st.OK, st.Message, st.URL)
			if !st.OK {
				return errors.New("connection test failed")
			}
			return nil
		},
	}

	return command
}

func runConfigCommand(flags *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	command.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			path := flags.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration file already exists at: %s\n", path)
				return nil
			}
			if err := config.Save(config.Default(), path); err != nil {
				return errors.Wrap(err, "failed to create configuration file")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	})

	return command
}

func runVersionCommand() *cobra.Command {
	var check bool

	command := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of torrent-search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "torrent-search v%s\n", version.Version)
			if !check {
				return nil
			}

			info, err := version.NewChecker().Check(cmd.Context())
			if err != nil {
				return err
			}
			if info.UpdateAvailable {
				fmt.Fprintf(cmd.OutOrStdout(), "Update available: v%s\n  %s\n", info.LatestVersion, version.InstallCommand())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "You are on the latest version.")
			}
			return nil
		},
	}

	command.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")

	return command
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
