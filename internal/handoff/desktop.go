package handoff

import (
	"context"
	"errors"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

var ErrClipboardUnavailable = errors.New("no clipboard utility available")

// Clipboard copies magnets to the system clipboard.
type Clipboard struct{}

func (Clipboard) Name() string { return "clipboard" }

func (Clipboard) Send(ctx context.Context, magnet string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return writeClipboard(magnet)
}

var writeClipboard = clipboard.WriteAll

// Opener hands magnets to the desktop's registered magnet handler.
type Opener struct{}

func (Opener) Name() string { return "system opener" }

func (Opener) Send(ctx context.Context, magnet string) error {
	name, args := openCommand(runtime.GOOS, magnet)
	return runCommand(ctx, name, args...)
}

func openCommand(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

var runCommand = func(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// The handler may be a long-running torrent client: start it detached
	// from ctx and reap it in the background.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
