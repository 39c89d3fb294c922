package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GameLinks returns the absolute URLs of the game detail pages linked from
// a season page, in document order without duplicates.
func GameLinks(doc *goquery.Document, base string) []string {
	return collectLinks(doc.Find(`a[href*="stats/games/"]`), base, nil)
}

// PlayerIndexLinks returns the player pages listed in the first table of an
// alphabetical player index.
func PlayerIndexLinks(doc *goquery.Document, base string) []string {
	return collectLinks(doc.Find("table").First().Find("a[href]"), base, func(href string) bool {
		return strings.Contains(href, "players/")
	})
}

// SeasonPlayerLinks returns the player pages linked from the team tables of
// a season player list.
func SeasonPlayerLinks(doc *goquery.Document, base string) []string {
	return collectLinks(doc.Find("table.sortable a[href]"), base, func(href string) bool {
		return strings.HasPrefix(href, "players/")
	})
}

func collectLinks(links *goquery.Selection, base string, keep func(string) bool) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = &url.URL{}
	}
	out := make([]string, 0)
	seen := make(map[string]bool)
	links.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || (keep != nil && !keep(href)) {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	})
	return out
}
