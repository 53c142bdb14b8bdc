// Package handoff passes a magnet URI to something outside this program: the
// clipboard, the desktop's registered magnet handler, or a qBittorrent
// instance through its Web API. Downloading itself is never done here.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

var ErrInvalidMagnet = errors.New("invalid magnet uri")

// Target receives a magnet URI.
type Target interface {
	Name() string
	Send(ctx context.Context, magnet string) error
}

// ValidateMagnet checks that s is a magnet URI carrying a BitTorrent info
// hash, and returns that hash.
func ValidateMagnet(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "magnet:?") {
		return "", fmt.Errorf("%w: missing magnet:? prefix", ErrInvalidMagnet)
	}
	q, err := url.ParseQuery(s[len("magnet:?"):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMagnet, err)
	}
	for _, xt := range q["xt"] {
		if len(xt) > len("urn:btih:") && strings.EqualFold(xt[:len("urn:btih:")], "urn:btih:") {
			hash := xt[len("urn:btih:"):]
			if torrent.IsInfoHash(hash) {
				return strings.ToUpper(hash), nil
			}
		}
	}
	return "", fmt.Errorf("%w: no btih exact topic", ErrInvalidMagnet)
}

// Send validates magnet and hands it to t.
func Send(ctx context.Context, t Target, magnet string) error {
	if _, err := ValidateMagnet(magnet); err != nil {
		return err
	}
	if err := t.Send(ctx, strings.TrimSpace(magnet)); err != nil {
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	return nil
}
