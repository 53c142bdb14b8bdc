package torrentapi

import (
	"strings"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// Provider display names accepted in a provider filter.
const (
	PirateBay = "PirateBay"
	YTS       = "YTS"
	BitSearch = "BitSearch"
)

// KnownProviders lists the providers the service can fan out to.
func KnownProviders() []string {
	return []string{PirateBay, YTS, BitSearch}
}

var providerEnums = map[string]string{
	"piratebay": "PIRATEBAY",
	"yts":       "YTS",
	"bitsearch": "BITSEARCH",
}

var categoryEnums = map[torrent.Category]string{
	torrent.CategoryAll:          "ALL",
	torrent.CategoryVideo:        "VIDEO",
	torrent.CategoryAudio:        "AUDIO",
	torrent.CategoryGames:        "GAMES",
	torrent.CategoryApplications: "APPLICATIONS",
	torrent.CategoryOther:        "OTHER",
}

var sortEnums = map[torrent.SortKey]string{
	torrent.SortAdded:    "ADDED",
	torrent.SortSize:     "SIZE",
	torrent.SortSeeders:  "SEEDERS",
	torrent.SortLeechers: "LEECHERS",
}

var orderEnums = map[torrent.Order]string{
	torrent.Ascending:  "ASCENDING",
	torrent.Descending: "DESCENDING",
}

// CategoryEnum maps c into the service vocabulary; unrecognized values fall
// back to ALL.
func CategoryEnum(c torrent.Category) string {
	if v, ok := categoryEnums[c]; ok {
		return v
	}
	return "ALL"
}

// SortEnum falls back to SEEDERS.
func SortEnum(s torrent.SortKey) string {
	if v, ok := sortEnums[s]; ok {
		return v
	}
	return "SEEDERS"
}

// OrderEnum falls back to DESCENDING.
func OrderEnum(o torrent.Order) string {
	if v, ok := orderEnums[o]; ok {
		return v
	}
	return "DESCENDING"
}

// ProviderEnums maps a provider filter. Unknown names are dropped; an empty
// result selects every known provider.
func ProviderEnums(names []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		v, ok := providerEnums[strings.ToLower(strings.TrimSpace(n))]
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		for _, n := range KnownProviders() {
			out = append(out, providerEnums[strings.ToLower(n)])
		}
	}
	return out
}

// Variables builds the query variables for req.
func Variables(req torrent.SearchRequest) map[string]any {
	req = req.WithDefaults()
	return map[string]any{
		"query":     req.Query,
		"category":  CategoryEnum(req.Category),
		"sort":      SortEnum(req.Sort),
		"order":     OrderEnum(req.Order),
		"limit":     req.Limit,
		"providers": ProviderEnums(req.Providers),
	}
}
