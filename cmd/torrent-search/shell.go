package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/litescript/ls-torrent-search/internal/config"
	"github.com/litescript/ls-torrent-search/internal/resolver"
)

const shellHelp = `Type a query to search. A new query cancels the one still running.
  :details <id>   show details for a result
  :magnet <id>    print a magnet link
  :test           probe the backend
  :help           show this help
  :quit           exit`

func runShellCommand(flags *globalFlags) *cobra.Command {
	var sf searchFlags

	command := &cobra.Command{
		Use:   "shell",
		Short: "Interactive search prompt",
		Long: `Start an interactive search prompt.

The config file is watched while the prompt runs; edits take effect on the
next query.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			svc, err := buildService(cfg)
			if err != nil {
				return err
			}

			sh := newShell(cfg, svc, &sf, cmd.OutOrStdout(), cmd.ErrOrStderr())

			w, err := config.NewWatcher(flags.configPath, sh.reload)
			if err != nil {
				log.Warn().Err(err).Msg("config hot reload disabled")
			} else {
				defer w.Stop()
			}

			sh.prompt = isatty.IsTerminal(os.Stdin.Fd())
			return sh.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	sf.register(command)

	return command
}

// shell runs at most one search at a time. Starting a search cancels the
// previous one, and results of a superseded search are never printed.
type shell struct {
	flags  *searchFlags
	out    io.Writer
	errOut io.Writer
	prompt bool

	mu     sync.Mutex
	cfg    config.Config
	svc    *resolver.Service
	cancel context.CancelFunc
	gen    uint64

	printMu sync.Mutex
	wg      sync.WaitGroup
}

func newShell(cfg config.Config, svc *resolver.Service, flags *searchFlags, out, errOut io.Writer) *shell {
	return &shell{flags: flags, out: out, errOut: errOut, cfg: cfg, svc: svc}
}

// reload swaps in a service built from cfg. In-flight searches finish on
// the old one.
func (s *shell) reload(cfg config.Config) {
	svc, err := buildService(cfg)
	if err != nil {
		log.Error().Err(err).Msg("config reload failed, keeping previous backend")
		return
	}
	s.mu.Lock()
	s.cfg, s.svc = cfg, svc
	s.mu.Unlock()
	log.Info().Str("backend", cfg.Backend).Msg("config reloaded")
}

func (s *shell) current() (config.Config, *resolver.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.svc
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	defer func() {
		s.wg.Wait()
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(in)
	for {
		if s.prompt {
			s.print(func() { fmt.Fprint(s.out, "> ") })
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
		case ":quit", ":q", "quit", "exit":
			return nil
		case ":help", "?":
			s.print(func() { fmt.Fprintln(s.out, shellHelp) })
		case ":details":
			s.details(ctx, arg)
		case ":magnet":
			s.magnet(ctx, arg)
		case ":test":
			_, svc := s.current()
			st := svc.TestConnection(ctx)
			s.print(func() { newPrinter(s.out).Connection(st.OK, st.Message, st.URL) })
		default:
			s.search(ctx, line)
		}
	}
}

// search starts text in the background, superseding any running search.
func (s *shell) search(parent context.Context, text string) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	cfg, svc := s.cfg, s.svc
	s.mu.Unlock()

	q := s.flags.query(cfg, text)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := svc.Search(ctx, q)

		s.mu.Lock()
		superseded := gen != s.gen
		s.mu.Unlock()
		if superseded || ctx.Err() != nil {
			log.Debug().Str("query", text).Msg("search superseded, discarding results")
			return
		}

		s.print(func() {
			if err != nil {
				newPrinter(s.errOut).Error(err)
				return
			}
			printResult(s.out, s.errOut, res)
		})
	}()
}

func (s *shell) details(ctx context.Context, id string) {
	_, svc := s.current()
	d, err := svc.Details(ctx, id)
	s.print(func() {
		if err != nil {
			newPrinter(s.errOut).Error(err)
			return
		}
		newPrinter(s.out).Details(d.Record, d.Found)
	})
}

func (s *shell) magnet(ctx context.Context, id string) {
	_, svc := s.current()
	magnet, err := resolveMagnet(ctx, svc, id)
	s.print(func() {
		if err != nil {
			newPrinter(s.errOut).Error(err)
			return
		}
		fmt.Fprintln(s.out, magnet)
	})
}

func (s *shell) print(fn func()) {
	s.printMu.Lock()
	defer s.printMu.Unlock()
	fn()
}
