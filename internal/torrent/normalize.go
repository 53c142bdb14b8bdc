package torrent

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Raw is one provider record as decoded from the wire, keyed by the source's
// own field names.
type Raw map[string]any

// Field fallback chains, in priority order.
var (
	nameKeys        = []string{"name", "title"}
	sizeKeys        = []string{"size", "sizeBytes", "size_bytes", "total_size"}
	seederKeys      = []string{"seeders", "seeds"}
	leecherKeys     = []string{"leechers", "leeches", "peers"}
	addedKeys       = []string{"added", "time", "date_uploaded", "uploaded"}
	categoryKeys    = []string{"category"}
	providerKeys    = []string{"provider", "source"}
	hashKeys        = []string{"infoHash", "info_hash", "infohash"}
	idKeys          = []string{"id", "torrent_id"}
	magnetKeys      = []string{"magnet", "magnet_link", "magnetUri"}
	uploaderKeys    = []string{"uploader"}
	fileCountKeys   = []string{"fileCount", "file_count"}
	typeKeys        = []string{"type"}
	languageKeys    = []string{"language"}
	downloadsKeys   = []string{"downloads"}
	lastCheckedKeys = []string{"last_checked", "lastChecked"}
	descriptionKeys = []string{"description"}
)

// Normalize converts a raw provider record into a canonical Record. It never
// fails: every field falls back to a default.
func Normalize(raw Raw) Record {
	r := Record{
		Name:        raw.str(nameKeys...),
		Seeders:     raw.count(seederKeys...),
		Leechers:    raw.count(leecherKeys...),
		Category:    CategoryFromSource(raw.str(categoryKeys...)),
		Provider:    raw.provider(),
		ID:          raw.str(idKeys...),
		Magnet:      raw.str(magnetKeys...),
		Uploader:    raw.str(uploaderKeys...),
		FileCount:   raw.count(fileCountKeys...),
		Type:        raw.str(typeKeys...),
		Language:    raw.str(languageKeys...),
		Downloads:   raw.str(downloadsKeys...),
		LastChecked: raw.str(lastCheckedKeys...),
		Description: raw.str(descriptionKeys...),
	}

	if r.Name == "" {
		r.Name = Unknown
	}
	if r.Uploader == "" {
		r.Uploader = Unknown
	}
	if r.FileCount < 1 {
		r.FileCount = 1
	}

	r.InfoHash = raw.str(hashKeys...)
	if r.InfoHash == "" {
		r.InfoHash = r.ID
	}

	r.SizeBytes = raw.bytes(sizeKeys...)
	r.SizeDisplay = FormatSize(r.SizeBytes)

	r.Added, r.AddedDisplay = raw.timestamp(addedKeys...)

	if r.Magnet == "" {
		r.Magnet = BuildMagnet(raw.str(hashKeys...), r.Name)
	}

	return r
}

// NormalizeAll converts every raw record, preserving order.
func NormalizeAll(raws []Raw) []Record {
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

func (raw Raw) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (raw Raw) str(keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int64, uint64, int32:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// count reads a non-negative integer, accepting numbers and numeric strings
// such as "1,234". Anything else yields 0.
func (raw Raw) count(keys ...string) int {
	v, ok := raw.lookup(keys...)
	if !ok {
		return 0
	}
	n, ok := toFloat(v)
	if !ok || n < 0 || math.IsNaN(n) {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// bytes reads a byte count, or parses a human size string when that is all
// the source offers.
func (raw Raw) bytes(keys ...string) uint64 {
	v, ok := raw.lookup(keys...)
	if !ok {
		return 0
	}
	if s, isStr := v.(string); isStr {
		if b, ok := ParseSize(s); ok {
			return b
		}
	}
	if num, isNum := v.(json.Number); isNum {
		if b, err := strconv.ParseUint(num.String(), 10, 64); err == nil {
			return b
		}
	}
	n, ok := toFloat(v)
	if !ok || n < 0 || math.IsNaN(n) {
		return 0
	}
	if n >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(n)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// provider takes the first element when the source reports a list.
func (raw Raw) provider() string {
	v, ok := raw.lookup(providerKeys...)
	if !ok {
		return Unknown
	}
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return Unknown
		}
		v = t[0]
	case []string:
		if len(t) == 0 {
			return Unknown
		}
		v = t[0]
	}
	if s := strings.TrimSpace(stringify(v)); s != "" {
		return s
	}
	return Unknown
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp; a trailing Z is accepted as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t for display, or Unknown for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return Unknown
	}
	return t.Format("2006-01-02 15:04")
}

func (raw Raw) timestamp(keys ...string) (time.Time, string) {
	v, ok := raw.lookup(keys...)
	if !ok {
		return time.Time{}, Unknown
	}
	if t, isTime := v.(time.Time); isTime {
		return t, FormatTimestamp(t)
	}
	s, isStr := v.(string)
	if !isStr {
		return time.Time{}, Unknown
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return time.Time{}, Unknown
	}
	return t, FormatTimestamp(t)
}

var btihRegex = regexp.MustCompile(`^(?:[0-9a-fA-F]{40}|[A-Za-z2-7]{32})$`)

// IsInfoHash reports whether s looks like a BitTorrent v1 info hash.
func IsInfoHash(s string) bool {
	return btihRegex.MatchString(s)
}

// BuildMagnet synthesizes a magnet URI from an info hash. It returns "" when
// hash is not a valid info hash.
func BuildMagnet(hash, name string) string {
	if !IsInfoHash(hash) {
		return ""
	}
	builder := strings.Builder{}
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(strings.ToUpper(hash))
	if name != "" && name != Unknown {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(name))
	}
	return builder.String()
}
