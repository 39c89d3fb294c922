package source

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is the root of the statistics site.
const DefaultBaseURL = "https://afltables.com/afl/"

// Site builds document identifiers for the statistics site.
type Site struct {
	BaseURL string
}

// NewSite returns a Site rooted at baseURL, or DefaultBaseURL when empty.
func NewSite(baseURL string) Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return Site{BaseURL: baseURL}
}

// SeasonURL is the season results page.
func (s Site) SeasonURL(year int) string {
	return fmt.Sprintf("%sseas/%d.html", s.BaseURL, year)
}

// TeamTotalsURL is the season statistics page holding team totals.
func (s Site) TeamTotalsURL(year int) string {
	return fmt.Sprintf("%sstats/%ds.html", s.BaseURL, year)
}

// SeasonPlayersURL lists every player who appeared in a season.
func (s Site) SeasonPlayersURL(year int) string {
	return fmt.Sprintf("%sstats/%d.html", s.BaseURL, year)
}

// PlayerIndexURLs are the alphabetical player index pages.
func (s Site) PlayerIndexURLs() []string {
	urls := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		urls = append(urls, fmt.Sprintf("%sstats/players%c_idx.html", s.BaseURL, c))
	}
	return urls
}
