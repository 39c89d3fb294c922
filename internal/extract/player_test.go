package extract

import (
	"testing"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

func TestParsePlayer(t *testing.T) {
	doc := loadFixture(t, "player_smith.html")
	observed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p, err := ParsePlayer(doc, "https://afltables.com/afl/stats/players/J/John_Smith.html", observed)
	if err != nil {
		t.Fatalf("ParsePlayer failed: %v", err)
	}

	born := time.Date(1990, 4, 24, 0, 0, 0, 0, time.UTC)
	profile := p.Profile
	if profile.FirstName != "John" || profile.LastName != "Smith" {
		t.Errorf("name = %q %q", profile.FirstName, profile.LastName)
	}
	if !profile.Born.Equal(born) {
		t.Errorf("born = %v, want %v", profile.Born, born)
	}
	if want := born.AddDate(0, 0, 19*365+120); !profile.Debut.Equal(want) {
		t.Errorf("debut = %v, want %v", profile.Debut, want)
	}
	if profile.HeightCM != 188 || profile.WeightKG != 85 {
		t.Errorf("height/weight = %d/%d", profile.HeightCM, profile.WeightKG)
	}
	if profile.ID() != "smith_john_24041990" {
		t.Errorf("player id = %q", profile.ID())
	}

	if len(p.Rows) != 3 {
		t.Fatalf("expected 3 performance rows, got %d", len(p.Rows))
	}
	first := p.Rows[0]
	if first.Team != "Carlton" || first.Year != 2010 || first.Opponent != "Essendon" || first.Round != "1" {
		t.Errorf("unexpected first row %+v", first)
	}
	if first.Stats.Get("kicks") != 17 || first.Stats.Get("percentage_of_game_played") != 87 {
		t.Errorf("stats = %v", first.Stats)
	}
	second := p.Rows[1]
	if second.Jersey != 9 || second.Stats.Get("goals") != 0 {
		t.Errorf("arrows and blanks should normalize, got %+v", second)
	}
	third := p.Rows[2]
	if third.Year != 2011 || third.Round != "QF" || third.PlayerID != profile.ID() {
		t.Errorf("unexpected third row %+v", third)
	}

	dropped := 0
	for _, prob := range p.Problems {
		if prob.Dropped {
			dropped++
		}
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped row, got %d (%v)", dropped, p.Problems)
	}
}

func TestParsePlayerWithoutDetails(t *testing.T) {
	doc := parseString(t, `<html><body><h1>Jack Jones</h1></body></html>`)
	p, err := ParsePlayer(doc, "test", time.Now())
	if err != nil {
		t.Fatalf("ParsePlayer failed: %v", err)
	}
	if p.Profile.HeightCM != -1 || p.Profile.WeightKG != -1 {
		t.Errorf("missing measurements should be -1, got %d/%d", p.Profile.HeightCM, p.Profile.WeightKG)
	}
	if !p.Profile.Debut.IsZero() {
		t.Errorf("debut should be unset, got %v", p.Profile.Debut)
	}
	if len(p.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(p.Rows))
	}

	if _, err := ParsePlayer(parseString(t, "<p>no heading</p>"), "test", time.Now()); err == nil {
		t.Error("expected error for a page without a player name")
	}
}

func TestPerformanceFromRow(t *testing.T) {
	row := record.RawRow{Cells: []string{"4", "Sydney", "R4", "D", "↓12", "10"}}
	r, err := PerformanceFromRow("id", "Carlton", 2020, row, time.Now())
	if err != nil {
		t.Fatalf("PerformanceFromRow failed: %v", err)
	}
	if r.Jersey != 12 || r.Stats.Get("kicks") != 10 || r.Stats.Get("marks") != 0 {
		t.Errorf("unexpected row %+v", r)
	}

	if _, err := PerformanceFromRow("id", "Carlton", 2020, record.RawRow{Cells: []string{"1"}}, time.Now()); err == nil {
		t.Error("expected error for short row")
	}
}
