// Package leetx scrapes 1337x mirrors directly. One call is one request
// cycle against one mirror; rotation is the resolver's job.
package leetx

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// ProviderName is stamped on every scraped record.
const ProviderName = "1337x"

// DefaultMirrors lists known 1337x mirrors, most reliable first.
var DefaultMirrors = []string{
	"https://1337x.unblockit.kim",
	"https://1337x.unblockninja.com",
	"https://1337x.to",
	"https://1337x.proxyninja.org",
	"https://1337x.is",
	"https://1337x.st",
	"https://x1337x.ws",
	"https://x1337x.eu",
	"https://x1337x.se",
	"https://x1337x.cc",
	"https://1337.abcvg.info",
}

// Mirrors returns a copy of DefaultMirrors.
func Mirrors() []string {
	return append([]string(nil), DefaultMirrors...)
}

var categories = map[torrent.Category]string{
	torrent.CategoryVideo:        "Movies",
	torrent.CategoryAudio:        "Music",
	torrent.CategoryGames:        "Games",
	torrent.CategoryApplications: "Apps",
	torrent.CategoryOther:        "Other",
}

var sortKeys = map[torrent.SortKey]string{
	torrent.SortAdded:    "time",
	torrent.SortSize:     "size",
	torrent.SortSeeders:  "seeders",
	torrent.SortLeechers: "leechers",
}

// sanitizeQuery collapses whitespace and joins words with '+', the way the
// site's own search form does.
func sanitizeQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = url.PathEscape(w)
	}
	return strings.Join(words, "+")
}

// SearchURL builds the listing URL for req on the mirror at base. Seeders
// descending is the site's default order, so it maps onto the plain search
// path.
func SearchURL(base string, req torrent.SearchRequest, page int) string {
	if page < 1 {
		page = 1
	}
	req = req.WithDefaults()
	base = strings.TrimRight(base, "/")
	q := sanitizeQuery(req.Query)
	p := strconv.Itoa(page)

	cat, hasCat := categories[req.Category]
	sort := sortKeys[req.Sort]
	if sort == "" {
		sort = "seeders"
	}
	order := "desc"
	if req.Order == torrent.Ascending {
		order = "asc"
	}
	sorted := !(req.Sort == torrent.SortSeeders && req.Order == torrent.Descending)

	switch {
	case hasCat && sorted:
		return base + "/sort-category-search/" + q + "/" + cat + "/" + sort + "/" + order + "/" + p + "/"
	case hasCat:
		return base + "/category-search/" + q + "/" + cat + "/" + p + "/"
	case sorted:
		return base + "/sort-search/" + q + "/" + sort + "/" + order + "/" + p + "/"
	default:
		return base + "/search/" + q + "/" + p + "/"
	}
}

// InfoURL builds the detail page URL. The slug segment is ignored by the
// site, so "-" stands in for it.
func InfoURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/torrent/" + url.PathEscape(id) + "/-/"
}

// TorrentID extracts the numeric id from a detail link such as
// "/torrent/5512345/Some-Name/".
func TorrentID(href string) string {
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	parts := strings.Split(strings.Trim(href, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "torrent" {
			return parts[i+1]
		}
	}
	return ""
}
