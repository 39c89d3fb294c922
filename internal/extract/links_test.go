package extract

import "testing"

func TestPlayerIndexLinks(t *testing.T) {
	doc := loadFixture(t, "players_A_idx.html")
	links := PlayerIndexLinks(doc, "https://afltables.com/afl/stats/playersA_idx.html")

	expected := []string{
		"https://afltables.com/afl/stats/players/A/Aaron_Black.html",
		"https://afltables.com/afl/stats/players/A/Abe_Davis.html",
	}
	if len(links) != len(expected) {
		t.Fatalf("got %v, want %v", links, expected)
	}
	for i := range expected {
		if links[i] != expected[i] {
			t.Errorf("link %d = %s, want %s", i, links[i], expected[i])
		}
	}
}

func TestSeasonPlayerLinks(t *testing.T) {
	doc := parseString(t, `
		<table class="sortable">
			<tr><th><a href="../teams/carlton_idx.html">Carlton</a></th></tr>
			<tr><td>9</td><td><a href="players/P/Patrick_Cripps.html">Cripps, Patrick</a></td></tr>
		</table>
		<table><tr><td><a href="players/Z/Not_Listed.html">Listed, Not</a></td></tr></table>`)

	links := SeasonPlayerLinks(doc, "https://afltables.com/afl/stats/2021.html")
	if len(links) != 1 || links[0] != "https://afltables.com/afl/stats/players/P/Patrick_Cripps.html" {
		t.Errorf("unexpected links %v", links)
	}
}
