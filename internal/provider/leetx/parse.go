package leetx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

const noResultsText = "No results were returned"

// errMissingMarkers is returned by the parsers when the page carries none of
// the structure a real listing or detail page has. Challenge pages and
// parked mirrors end up here.
type errMissingMarkers struct{ what string }

func (e errMissingMarkers) Error() string { return "missing " + e.what }

// ParseSearch extracts listing rows. A listing table with zero rows, or the
// site's explicit no-results notice, is a valid empty result.
func ParseSearch(doc *goquery.Document, cat torrent.Category) ([]torrent.Raw, error) {
	table := doc.Find("table.table-list")
	if table.Length() == 0 {
		if strings.Contains(doc.Find(".box-info-detail").Text(), noResultsText) ||
			strings.Contains(doc.Find("body").Text(), noResultsText) {
			return nil, nil
		}
		return nil, errMissingMarkers{"results table"}
	}

	var raws []torrent.Raw
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		link := row.Find(`td.name a[href*="/torrent/"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}

		raw := torrent.Raw{
			"name":     name,
			"id":       TorrentID(href),
			"seeders":  cellText(row.Find("td.seeds")),
			"leechers": cellText(row.Find("td.leeches")),
			"size":     ownText(row.Find("td.size")),
			"uploader": cellText(row.Find("td.uploader, td.coll-5")),
			"provider": ProviderName,
		}
		if when := siteDate(cellText(row.Find("td.coll-date"))); when != "" {
			raw["time"] = when
		}
		if cat != torrent.CategoryAll {
			raw["category"] = string(cat)
		}
		raws = append(raws, raw)
	})
	return raws, nil
}

// ParseInfo extracts the detail block. The heading must be present and the
// page must carry a magnet link; either missing is a parse failure.
func ParseInfo(doc *goquery.Document, id string) (torrent.Raw, error) {
	heading := doc.Find("div.box-info-heading")
	if heading.Length() == 0 {
		return nil, errMissingMarkers{"detail heading"}
	}

	magnet, _ := doc.Find(`a[href^="magnet:"]`).First().Attr("href")
	if magnet == "" {
		return nil, errMissingMarkers{"magnet link"}
	}

	name := strings.TrimSpace(heading.Find("h1").First().Text())
	if name == "" {
		name = strings.TrimSpace(heading.Text())
	}

	raw := torrent.Raw{
		"name":     name,
		"id":       id,
		"magnet":   magnet,
		"provider": ProviderName,
	}

	fields := listFields(doc)
	set := func(key, label string) {
		if v := fields[label]; v != "" {
			raw[key] = v
		}
	}
	set("category", "category")
	set("type", "type")
	set("language", "language")
	set("size", "total size")
	set("uploader", "uploaded by")
	set("downloads", "downloads")
	set("last_checked", "last checked")
	set("seeders", "seeders")
	set("leechers", "leechers")
	if when := siteDate(fields["date uploaded"]); when != "" {
		raw["date_uploaded"] = when
	}

	hash := strings.TrimSpace(doc.Find(".infohash-box span").First().Text())
	if hash == "" {
		hash = hashFromMagnet(magnet)
	}
	if hash != "" {
		raw["infoHash"] = strings.ToUpper(hash)
	}

	if desc := strings.TrimSpace(doc.Find("#description").Text()); desc != "" {
		raw["description"] = desc
	}
	if files := doc.Find("#files li").Length(); files > 0 {
		raw["fileCount"] = files
	}
	return raw, nil
}

// listFields reads the "<strong>Label</strong> <span>value</span>" pairs of
// the detail page into a map keyed by the lowercased label.
func listFields(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)
	doc.Find("ul.list li").Each(func(i int, li *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(li.Find("strong").First().Text()))
		label = strings.TrimSuffix(label, ":")
		if label == "" {
			return
		}
		fields[label] = strings.TrimSpace(li.Find("span").First().Text())
	})
	return fields
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}

// ownText returns the text of s without its child elements. The size
// column repeats the seed count in a nested span.
func ownText(s *goquery.Selection) string {
	c := s.First().Clone()
	c.Children().Remove()
	return strings.TrimSpace(c.Text())
}

var btihParam = regexp.MustCompile(`(?i)urn:btih:([0-9a-z]+)`)

func hashFromMagnet(magnet string) string {
	m := btihParam.FindStringSubmatch(magnet)
	if m == nil || !torrent.IsInfoHash(m[1]) {
		return ""
	}
	return m[1]
}

var (
	ordinalSuffix = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
	shortYear     = regexp.MustCompile(`'(\d{2})$`)
)

// siteDate converts the listing date forms ("Mar. 4th '24", "Oct. 12th
// 2023") to a parseable date. Relative forms such as "3 hours ago" or a bare
// clock time cannot be placed reliably and yield "".
func siteDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, ok := torrent.ParseTimestamp(s); ok {
		return s
	}

	s = strings.ReplaceAll(s, ".", "")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	if m := shortYear.FindStringSubmatch(s); m != nil {
		yy, _ := strconv.Atoi(m[1])
		s = shortYear.ReplaceAllString(s, fmt.Sprintf("%d", 2000+yy))
	}

	for _, layout := range []string{"Jan 2 2006", "January 2 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
