package torrent

import "strings"

// requestCategories maps caller-facing category names to canonical ones.
// Both the canonical names and the older form labels are accepted.
var requestCategories = map[string]Category{
	"all":          CategoryAll,
	"any":          CategoryAll,
	"video":        CategoryVideo,
	"movies/tv":    CategoryVideo,
	"movies":       CategoryVideo,
	"tv":           CategoryVideo,
	"audio":        CategoryAudio,
	"music":        CategoryAudio,
	"games":        CategoryGames,
	"applications": CategoryApplications,
	"apps":         CategoryApplications,
	"other":        CategoryOther,
}

// recordCategories maps the vocabulary sources use on their own records.
var recordCategories = map[string]Category{
	"all":           CategoryAll,
	"video":         CategoryVideo,
	"movies":        CategoryVideo,
	"movie":         CategoryVideo,
	"tv":            CategoryVideo,
	"movies/tv":     CategoryVideo,
	"anime":         CategoryVideo,
	"documentaries": CategoryVideo,
	"audio":         CategoryAudio,
	"music":         CategoryAudio,
	"games":         CategoryGames,
	"game":          CategoryGames,
	"applications":  CategoryApplications,
	"apps":          CategoryApplications,
	"software":      CategoryApplications,
	"other":         CategoryOther,
}

var sortKeys = map[string]SortKey{
	"added":    SortAdded,
	"time":     SortAdded,
	"date":     SortAdded,
	"size":     SortSize,
	"seeders":  SortSeeders,
	"seeds":    SortSeeders,
	"leechers": SortLeechers,
	"leeches":  SortLeechers,
}

var orders = map[string]Order{
	"asc":        Ascending,
	"ascending":  Ascending,
	"desc":       Descending,
	"descending": Descending,
}

func vocabKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseCategory maps a caller-supplied category. Unknown values map to All.
func ParseCategory(s string) Category {
	if c, ok := requestCategories[vocabKey(s)]; ok {
		return c
	}
	return CategoryAll
}

// ParseSortKey maps a caller-supplied sort column. Unknown values map to Seeders.
func ParseSortKey(s string) SortKey {
	if k, ok := sortKeys[vocabKey(s)]; ok {
		return k
	}
	return SortSeeders
}

// ParseOrder maps a caller-supplied sort order. Unknown values map to Descending.
func ParseOrder(s string) Order {
	if o, ok := orders[vocabKey(s)]; ok {
		return o
	}
	return Descending
}

// CategoryFromSource maps a source's own category label onto the canonical set.
// Unknown or missing labels map to Other.
func CategoryFromSource(s string) Category {
	if c, ok := recordCategories[vocabKey(s)]; ok {
		return c
	}
	return CategoryOther
}
