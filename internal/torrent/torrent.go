// Package torrent defines the canonical torrent record shared by every search
// backend, the search request contract, and the normalizer that turns loosely
// typed provider records into canonical ones.
package torrent

import "time"

// Unknown is the display value used when a source provides no value.
const Unknown = "Unknown"

// DefaultLimit caps the number of results requested from upstream.
const DefaultLimit = 100

// Category is the closed set of canonical categories.
type Category string

const (
	CategoryAll          Category = "All"
	CategoryVideo        Category = "Video"
	CategoryAudio        Category = "Audio"
	CategoryGames        Category = "Games"
	CategoryApplications Category = "Applications"
	CategoryOther        Category = "Other"
)

// Categories lists the canonical categories in display order.
func Categories() []Category {
	return []Category{CategoryAll, CategoryVideo, CategoryAudio, CategoryGames, CategoryApplications, CategoryOther}
}

// SortKey selects the upstream sort column.
type SortKey string

const (
	SortAdded    SortKey = "Added"
	SortSize     SortKey = "Size"
	SortSeeders  SortKey = "Seeders"
	SortLeechers SortKey = "Leechers"
)

// Order selects the upstream sort direction.
type Order string

const (
	Ascending  Order = "Ascending"
	Descending Order = "Descending"
)

// Record is one canonical search result.
type Record struct {
	Name         string    `json:"name"`
	SizeBytes    uint64    `json:"size_bytes"`
	SizeDisplay  string    `json:"size"`
	Seeders      int       `json:"seeders"`
	Leechers     int       `json:"leechers"`
	Added        time.Time `json:"added"`         // zero when the source timestamp could not be parsed
	AddedDisplay string    `json:"added_display"` // "2006-01-02 15:04" or Unknown
	Category     Category  `json:"category"`
	Provider     string    `json:"provider"`
	InfoHash     string    `json:"info_hash"` // identity key within one result set
	ID           string    `json:"id"`        // source-specific id, e.g. a 1337x torrent id
	Magnet       string    `json:"magnet"`
	Uploader     string    `json:"uploader"`
	FileCount    int       `json:"file_count"`

	// Extended metadata, populated by detail lookups when the source has it.
	Type        string `json:"type,omitempty"`
	Language    string `json:"language,omitempty"`
	Downloads   string `json:"downloads,omitempty"`
	LastChecked string `json:"last_checked,omitempty"`
	Description string `json:"description,omitempty"`
}

// Identity returns the key used for detail lookups and favorites matching.
func (r Record) Identity() string {
	if r.InfoHash != "" {
		return r.InfoHash
	}
	return r.ID
}

// HasMagnet reports whether the record can be handed to a torrent client.
func (r Record) HasMagnet() bool {
	return r.Magnet != ""
}

// Health returns a health score 0-100 based on seeders/leechers ratio
func (r Record) Health() int {
	if r.Seeders == 0 {
		return 0
	}
	if r.Leechers == 0 {
		return 100
	}

	ratio := float64(r.Seeders) / float64(r.Seeders+r.Leechers) * 100
	if ratio > 100 {
		ratio = 100
	}
	return int(ratio)
}

// Placeholder returns the minimal record produced when a detail lookup fails
// everywhere. Only the requested identifier is carried over.
func Placeholder(id string) Record {
	return Record{
		InfoHash:     id,
		ID:           id,
		SizeDisplay:  FormatSize(0),
		AddedDisplay: Unknown,
		Category:     CategoryOther,
		Provider:     Unknown,
		Uploader:     Unknown,
		FileCount:    1,
	}
}

// IsPlaceholder reports whether r carries nothing but an identifier.
func (r Record) IsPlaceholder() bool {
	return r.Name == "" && r.Magnet == "" && r.SizeBytes == 0 && r.Seeders == 0 && r.Leechers == 0
}

// SearchRequest is the query/filter contract accepted by every resolver.
// Query is assumed to be non-empty and trimmed.
type SearchRequest struct {
	Query     string
	Category  Category
	Sort      SortKey
	Order     Order
	Providers []string // empty means all known providers
	Limit     int
}

// WithDefaults fills unset fields with their defaults.
func (r SearchRequest) WithDefaults() SearchRequest {
	if r.Category == "" {
		r.Category = CategoryAll
	}
	if r.Sort == "" {
		r.Sort = SortSeeders
	}
	if r.Order == "" {
		r.Order = Descending
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// ProviderError is attached to a result set when some providers failed.
type ProviderError struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

func (e ProviderError) String() string {
	return e.Provider + ": " + e.Message
}
