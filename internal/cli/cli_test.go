package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/pipeline"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cli-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func match(year int, round, home, away string, date time.Time, homeGoals int) record.MatchRecord {
	m := record.MatchRecord{
		Year:       year,
		Round:      round,
		Venue:      "M.C.G.",
		Date:       date,
		Attendance: record.KnownAttendance(40000),
		HomeTeam:   home,
		AwayTeam:   away,
		Home:       record.Side{Goals: [4]int{homeGoals, 1, 1, 1}, Behinds: [4]int{1, 1, 1, 1}},
		Away:       record.Side{Goals: [4]int{1, 1, 1, 1}, Behinds: [4]int{1, 1, 1, 1}},
		ObservedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	m.Settle()
	return m
}

func TestExtractMatchesCommand(t *testing.T) {
	season, err := os.ReadFile("../../testdata/fixtures/season_2021.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/afl/seas/2021.html" {
			http.NotFound(w, r)
			return
		}
		w.Write(season)
	}))
	defer srv.Close()

	dir := tempDir(t)
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf("[source]\nbase_url = %q\nmax_retries = 0\n\n[logging]\nlevel = \"error\"\n", srv.URL+"/afl/")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	dataDir := filepath.Join(dir, "data")

	out, err := runCmd(t, "--config", cfgPath, "--data-dir", dataDir, "--format", "json", "matches", "--years", "2021")
	if err != nil {
		t.Fatalf("matches failed: %v\n%s", err, out)
	}
	var summary map[string]any
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if summary["inserted"] != float64(3) {
		t.Errorf("inserted = %v, want 3", summary["inserted"])
	}
	if _, err := os.Stat(filepath.Join(dataDir, "matches", "2021.csv")); err != nil {
		t.Errorf("matches partition not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "last_run.json")); err != nil {
		t.Errorf("run log not written: %v", err)
	}

	out, err = runCmd(t, "--config", cfgPath, "--data-dir", dataDir, "--format", "json", "list", "matches", "--finals")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var finals []record.MatchRecord
	if err := json.Unmarshal([]byte(out), &finals); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(finals) != 1 || finals[0].Round != "GF" {
		t.Errorf("finals = %+v", finals)
	}
}

func TestListMatchesText(t *testing.T) {
	dir := tempDir(t)
	store, err := storage.NewCSVStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m := merge.New(record.Matches, store)
	_, err = m.Merge(ctx, "2021", []record.MatchRecord{
		match(2021, "2", "Geelong", "Sydney", time.Date(2021, 3, 27, 13, 45, 0, 0, time.UTC), 5),
		match(2021, "1", "Carlton", "Richmond", time.Date(2021, 3, 18, 19, 25, 0, 0, time.UTC), 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	icsPath := filepath.Join(dir, "geelong.ics")
	out, err := runCmd(t, "--config", filepath.Join(dir, "none.toml"), "--data-dir", dir, "list", "matches", "--team", "Geelong", "--ics", icsPath)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	ics, err := os.ReadFile(icsPath)
	if err != nil {
		t.Fatalf("calendar not written: %v", err)
	}
	if strings.Count(string(ics), "BEGIN:VEVENT") != 1 || !strings.Contains(string(ics), "SUMMARY:Geelong v Sydney (Round 2)") {
		t.Errorf("unexpected calendar:\n%s", ics)
	}
	if !strings.Contains(out, "Geelong by 24") || strings.Contains(out, "Carlton") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "Total: 1 matches") {
		t.Errorf("missing total:\n%s", out)
	}
}

func TestInvalidFormat(t *testing.T) {
	dir := tempDir(t)
	_, err := runCmd(t, "--config", filepath.Join(dir, "none.toml"), "--data-dir", dir, "--format", "xml", "list", "matches")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected invalid format error, got %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "nested", "config.toml")

	if _, err := runCmd(t, "--config", path, "config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := runCmd(t, "--config", path, "config", "init"); err == nil {
		t.Error("expected an error when the config already exists")
	}
	if _, err := runCmd(t, "--config", path, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}
	out, err := runCmd(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	if !strings.Contains(out, "Backend: csv") {
		t.Errorf("unexpected validate output:\n%s", out)
	}
}

func TestSeasonFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   seasonFlags
		want    []int
		wantErr bool
	}{
		{"range", seasonFlags{from: 2019, to: 2021}, []int{2019, 2020, 2021}, false},
		{"years", seasonFlags{years: "2020-2021"}, []int{2020, 2021}, false},
		{"single year", seasonFlags{years: "1990"}, []int{1990}, false},
		{"reversed", seasonFlags{from: 2021, to: 2019}, nil, true},
		{"too early", seasonFlags{from: 1800, to: 1900}, nil, true},
		{"bad years", seasonFlags{years: "abc"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.seasons()
			if (err != nil) != tt.wantErr {
				t.Fatalf("seasons() error = %v, wantErr %v", err, tt.wantErr)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("seasons() = %v, want %v", got, tt.want)
			}
		})
	}

	got, err := (&seasonFlags{}).seasons()
	if err != nil || len(got) != 1 || got[0] != time.Now().Year() {
		t.Errorf("default seasons = %v (%v), want the current season", got, err)
	}
}

func TestParseThreshold(t *testing.T) {
	th, err := parseThreshold("goals=2.5")
	if err != nil || th.Stat != "goals" || th.Value != 2.5 {
		t.Errorf("parseThreshold = %+v, %v", th, err)
	}
	for _, bad := range []string{"goals", "goals=x"} {
		if _, err := parseThreshold(bad); err == nil {
			t.Errorf("parseThreshold(%q) should fail", bad)
		}
	}
}

func TestSortMatches(t *testing.T) {
	base := time.Date(2021, 3, 18, 19, 25, 0, 0, time.UTC)
	matches := []record.MatchRecord{
		match(2021, "GF", "Melbourne", "Western Bulldogs", base.AddDate(0, 6, 0), 5),
		match(2021, "10", "Adelaide", "Sydney", base.AddDate(0, 2, 0), 2),
		match(2021, "2", "Richmond", "Carlton", time.Time{}, 1),
		match(2021, "1", "Essendon", "Hawthorn", base, 3),
	}

	sortMatches(matches, SortByDate)
	if matches[0].Round != "1" || matches[3].Round != "2" {
		t.Errorf("date order = %s %s %s %s, undated should be last",
			matches[0].Round, matches[1].Round, matches[2].Round, matches[3].Round)
	}

	sortMatches(matches, SortByRound)
	got := []string{matches[0].Round, matches[1].Round, matches[2].Round, matches[3].Round}
	if strings.Join(got, ",") != "1,2,10,GF" {
		t.Errorf("round order = %v", got)
	}

	sortMatches(matches, SortByTeam)
	if matches[0].HomeTeam != "Adelaide" || matches[3].HomeTeam != "Richmond" {
		t.Errorf("team order starts %s, ends %s", matches[0].HomeTeam, matches[3].HomeTeam)
	}
}

func TestWriteSummaryText(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &pipeline.Summary{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Documents:  4,
		Inserted:   3,
		Unchanged:  1,
		Succeeded:  []string{"matches/2021"},
		Failed:     map[string]string{"lineups/car": "disk full"},
		Skipped:    map[pipeline.Reason]int{pipeline.ReasonUnavailable: 2, pipeline.ReasonScoreDecode: 1},
		Warnings:   map[pipeline.Reason]int{},
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, s, FormatText, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Run run-1 finished in 1.5s",
		"Records: 3 inserted, 0 replaced, 1 unchanged",
		"Skipped: document_unavailable=2 score_decode=1",
		"Partitions: 1 persisted, 1 failed",
		"FAILED lineups/car: disk full",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Warnings:") {
		t.Errorf("empty warnings should not be printed:\n%s", out)
	}

	if err := WriteSummary(&buf, s, OutputFormat("xml"), false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestStatsProbabilityBySeason(t *testing.T) {
	dir := tempDir(t)
	store, err := storage.NewCSVStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	id := "smith_john_24041990"
	perf := func(year int, round string, goals float64) record.PlayerPerformanceRow {
		r := record.PlayerPerformanceRow{
			PlayerID: id, Team: "Carlton", Year: year, Round: round, Opponent: "Richmond",
			ObservedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		r.Stats[record.StatIndex("goals")] = goals
		return r
	}
	m := merge.New(record.Performances, store)
	_, err = m.Merge(context.Background(), id, []record.PlayerPerformanceRow{
		perf(2020, "1", 3), perf(2020, "2", 1),
		perf(2021, "1", 2), perf(2021, "2", 2),
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "none.toml")

	out, err := runCmd(t, "--config", cfg, "--data-dir", dir, "--format", "json", "stats", "--player", id, "--over", "goals=2")
	if err != nil {
		t.Fatalf("stats failed: %v\n%s", err, out)
	}
	var result StatsResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(result.Probabilities) != 1 {
		t.Fatalf("probabilities = %+v", result.Probabilities)
	}
	p := result.Probabilities[0]
	if p.Probability != 0.75 {
		t.Errorf("all-time probability = %v, want 0.75", p.Probability)
	}
	if p.Yearly[2020] != 0.5 || p.Yearly[2021] != 1 || len(p.Yearly) != 2 {
		t.Errorf("yearly probabilities = %v, want 2020:0.5 2021:1", p.Yearly)
	}

	out, err = runCmd(t, "--config", cfg, "--data-dir", dir, "stats", "--player", id, "--over", "goals=2")
	if err != nil {
		t.Fatalf("stats failed: %v\n%s", err, out)
	}
	for _, want := range []string{"P(goals >= 2) 2020 = 50.0%", "P(goals >= 2) 2021 = 100.0%", "P(goals >= 2) all-time = 75.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
