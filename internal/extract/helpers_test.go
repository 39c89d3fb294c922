package extract

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return parseString(t, string(data))
}

func parseString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}
