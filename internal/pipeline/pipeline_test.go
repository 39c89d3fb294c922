package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pfrederiksen/afl-stats/internal/extract"
	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/score"
	"github.com/pfrederiksen/afl-stats/internal/source"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

const baseURL = "https://example.test/afl/"

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return string(data)
}

func newStore(t *testing.T) (*storage.CSVStore, string) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "pipeline-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	s, err := storage.NewCSVStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s, tmpDir
}

func TestRunSeasonFollowsGames(t *testing.T) {
	store, _ := newStore(t)
	src := source.Map{
		baseURL + "seas/2021.html":                       fixture(t, "season_2021.html"),
		baseURL + "stats/games/2021/061920210424.html": fixture(t, "game_2021_r6.html"),
	}
	r := New(src, store, Options{BaseURL: baseURL, MaxConcurrent: 2})
	ctx := context.Background()

	summary, err := r.Run(ctx, r.SeasonJobs([]int{2021}, true))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.RunID == "" {
		t.Error("summary should carry a run id")
	}
	if summary.Documents != 2 {
		t.Errorf("documents = %d, want 2", summary.Documents)
	}
	if summary.Skipped[ReasonUnavailable] != 3 {
		t.Errorf("unavailable = %d, want 3", summary.Skipped[ReasonUnavailable])
	}
	if summary.Skipped[ReasonScoreDecode] != 1 {
		t.Errorf("score decode skips = %d, want 1", summary.Skipped[ReasonScoreDecode])
	}
	if summary.Warnings[ReasonIdentity] < 1 {
		t.Errorf("expected an identity warning, got %v", summary.Warnings)
	}
	if summary.Inserted != 6 {
		t.Errorf("inserted = %d, want 6 (4 matches, 2 lineups)", summary.Inserted)
	}
	if summary.Partial() {
		t.Errorf("unexpected failed partitions: %v", summary.Failed)
	}

	found := false
	for _, k := range summary.LowConfidence {
		if k == "2021|2|springfield|car" {
			found = true
		}
	}
	if !found {
		t.Errorf("low-confidence keys = %v, want the Springfield match", summary.LowConfidence)
	}

	matches, err := merge.ReadAll(ctx, store, record.Matches)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 4 {
		t.Errorf("stored %d matches, want 4", len(matches))
	}

	lineupParts, err := store.List(ctx, record.EntityLineups)
	if err != nil {
		t.Fatal(err)
	}
	if len(lineupParts) != 2 || lineupParts[0].Key != "car" || lineupParts[1].Key != "col" {
		t.Errorf("lineup partitions = %v", lineupParts)
	}
	want := []string{"lineups/car", "lineups/col", "matches/2021"}
	if fmt.Sprint(summary.Succeeded) != fmt.Sprint(want) {
		t.Errorf("succeeded = %v, want %v", summary.Succeeded, want)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store, _ := newStore(t)
	src := source.Map{baseURL + "seas/2021.html": fixture(t, "season_2021.html")}
	r := New(src, store, Options{BaseURL: baseURL})
	ctx := context.Background()

	first, err := r.Run(ctx, r.SeasonJobs([]int{2021}, false))
	if err != nil {
		t.Fatal(err)
	}
	if first.Inserted != 3 {
		t.Fatalf("first run inserted %d, want 3", first.Inserted)
	}

	second, err := r.Run(ctx, r.SeasonJobs([]int{2021}, false))
	if err != nil {
		t.Fatal(err)
	}
	if second.Inserted != 0 || second.Replaced != 0 || second.Unchanged != 3 {
		t.Errorf("second run = inserted %d replaced %d unchanged %d, want 0/0/3",
			second.Inserted, second.Replaced, second.Unchanged)
	}
	if first.RunID == second.RunID {
		t.Error("each run should get its own id")
	}

	gauges := logger.GetMetricsSnapshot().Gauges
	if n, ok := gauges["pipeline.in_flight"]; !ok || n != 0 {
		t.Errorf("in-flight gauge = %v (set %v), want 0 after the run", n, ok)
	}
	if gauges["pipeline.wave_jobs"] != 1 {
		t.Errorf("wave jobs gauge = %v, want 1", gauges["pipeline.wave_jobs"])
	}
}

const duplicateSeason = `<html><body>
<a name="5"></a>
<table width="100%"><tr><td width="85%" valign="top">
<table>
<tr><td><a href="#">Essendon</a></td><td width="20%">3.2 7.5 10.8 13.11</td><td>89</td><td>Sat, 17-Apr-2021 1:45pm Att: 40,000 Venue: M.C.G.</td></tr>
<tr><td><a href="#">Hawthorn</a></td><td width="20%">2.1 4.5 5.7 9.9</td><td>63</td><td>Essendon won by 26 pts</td></tr>
</table>
<table>
<tr><td><a href="#">Essendon</a></td><td width="20%">3.2 7.5 10.8 13.11</td><td>89</td><td>Sat, 17-Apr-2021 1:45pm Att: 41,234 Venue: M.C.G.</td></tr>
<tr><td><a href="#">Hawthorn</a></td><td width="20%">2.1 4.5 5.7 9.9</td><td>63</td><td>Essendon won by 26 pts</td></tr>
</table>
</td></tr></table>
</body></html>`

func TestRunDuplicateKeysKeepLaterAttendance(t *testing.T) {
	store, _ := newStore(t)
	src := source.Map{baseURL + "seas/2021.html": duplicateSeason}
	r := New(src, store, Options{BaseURL: baseURL})
	ctx := context.Background()

	if _, err := r.Run(ctx, r.SeasonJobs([]int{2021}, false)); err != nil {
		t.Fatal(err)
	}
	matches, err := merge.ReadAll(ctx, store, record.Matches)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("stored %d matches, want 1", len(matches))
	}
	if matches[0].Attendance != record.KnownAttendance(41234) {
		t.Errorf("attendance = %v, want 41234", matches[0].Attendance)
	}
}

const yearSeason = `<html><body>
<a name="1"></a>
<table width="100%%"><tr><td width="85%%" valign="top">
<table>
<tr><td><a href="#">Carlton</a></td><td width="20%%">3.2 7.5 10.8 13.11</td><td>89</td><td>Sat, 20-Mar-%d 7:25pm Att: 40,000 Venue: M.C.G.</td></tr>
<tr><td><a href="#">Richmond</a></td><td width="20%%">2.1 4.5 5.7 9.9</td><td>63</td><td>Carlton won by 26 pts</td></tr>
</table>
</td></tr></table>
</body></html>`

func TestRunManySeasonsIntoSQLite(t *testing.T) {
	_, tmpDir := newStore(t)
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(tmpDir, "afl.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	var years []int
	src := source.Map{}
	for year := 2010; year < 2022; year++ {
		years = append(years, year)
		src[fmt.Sprintf("%sseas/%d.html", baseURL, year)] = fmt.Sprintf(yearSeason, year)
	}
	r := New(src, store, Options{BaseURL: baseURL, MaxConcurrent: 4})
	ctx := context.Background()

	summary, err := r.Run(ctx, r.SeasonJobs(years, false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Partial() {
		t.Fatalf("failed partitions: %v", summary.Failed)
	}
	if len(summary.Succeeded) != len(years) || summary.Inserted != len(years) {
		t.Errorf("succeeded %d partitions with %d inserts, want %d each", len(summary.Succeeded), summary.Inserted, len(years))
	}
	matches, err := merge.ReadAll(ctx, store, record.Matches)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != len(years) {
		t.Errorf("stored %d matches, want %d", len(matches), len(years))
	}
}

func TestRunPlayerIndex(t *testing.T) {
	store, _ := newStore(t)
	r := New(nil, store, Options{BaseURL: baseURL})
	indexURL := r.PlayerIndexJobs()[0].URL
	r.src = source.Map{
		indexURL: fixture(t, "players_A_idx.html"),
		baseURL + "stats/players/A/Aaron_Black.html": fixture(t, "player_smith.html"),
	}
	ctx := context.Background()

	summary, err := r.Run(ctx, r.PlayerIndexJobs()[:1])
	if err != nil {
		t.Fatal(err)
	}
	if summary.Documents != 2 || summary.Skipped[ReasonUnavailable] != 1 {
		t.Errorf("documents = %d, unavailable = %d; want 2 and 1", summary.Documents, summary.Skipped[ReasonUnavailable])
	}

	profiles, err := merge.Read(ctx, store, record.Profiles, "smith_john_24041990")
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].LastName != "Smith" {
		t.Errorf("profiles = %+v", profiles)
	}
	rows, err := merge.Read(ctx, store, record.Performances, "smith_john_24041990")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("stored %d performance rows, want 3", len(rows))
	}
}

func TestRunTeamTotals(t *testing.T) {
	store, _ := newStore(t)
	r := New(nil, store, Options{BaseURL: baseURL})
	jobs := r.TeamTotalsJobs([]int{2021})
	r.src = source.Map{jobs[0].URL: fixture(t, "team_totals_2021.html")}
	ctx := context.Background()

	if _, err := r.Run(ctx, jobs); err != nil {
		t.Fatal(err)
	}
	rows, err := merge.Read(ctx, store, record.TeamSeasons, "2021")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("stored %d team rows, want 2", len(rows))
	}
}

func TestRunVisitsEachDocumentOnce(t *testing.T) {
	store, _ := newStore(t)
	src := source.Map{baseURL + "seas/2021.html": fixture(t, "season_2021.html")}
	r := New(src, store, Options{BaseURL: baseURL})
	jobs := append(r.SeasonJobs([]int{2021}, false), r.SeasonJobs([]int{2021}, false)...)

	summary, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Documents != 1 {
		t.Errorf("documents = %d, want 1", summary.Documents)
	}
}

type failingWrites struct {
	storage.Store
	entity string
}

func (f failingWrites) WriteAll(ctx context.Context, p storage.Partition, t *storage.Table) error {
	if p.Entity == f.entity {
		return errors.New("read-only file system")
	}
	return f.Store.WriteAll(ctx, p, t)
}

func TestRunReportsWriteFailures(t *testing.T) {
	store, _ := newStore(t)
	src := source.Map{
		baseURL + "seas/2021.html":                       fixture(t, "season_2021.html"),
		baseURL + "stats/games/2021/061920210424.html": fixture(t, "game_2021_r6.html"),
	}
	r := New(src, failingWrites{Store: store, entity: record.EntityMatches}, Options{BaseURL: baseURL})

	summary, err := r.Run(context.Background(), r.SeasonJobs([]int{2021}, true))
	if err != nil {
		t.Fatalf("Run() error = %v; write failures belong in the summary", err)
	}
	if !summary.Partial() || summary.Err() == nil {
		t.Fatal("summary should report partial success")
	}
	if _, ok := summary.Failed["matches/2021"]; !ok {
		t.Errorf("failed = %v, want matches/2021", summary.Failed)
	}
	for _, p := range summary.Succeeded {
		if p == "matches/2021" {
			t.Error("failed partition listed as succeeded")
		}
	}
	// Other partitions still persist.
	parts, err := store.List(context.Background(), record.EntityLineups)
	if err != nil || len(parts) != 2 {
		t.Errorf("lineup partitions = %v (err %v), want 2", parts, err)
	}
}

func TestRunCancelled(t *testing.T) {
	store, _ := newStore(t)
	src := source.Map{baseURL + "seas/2021.html": fixture(t, "season_2021.html")}
	r := New(src, store, Options{BaseURL: baseURL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := r.Run(ctx, r.SeasonJobs([]int{2021}, false))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if summary == nil || summary.Documents != 0 {
		t.Errorf("summary = %+v, want no documents processed", summary)
	}
}

func TestRunSavesJournal(t *testing.T) {
	store, dir := newStore(t)
	journal, err := storage.NewJournal(dir)
	if err != nil {
		t.Fatal(err)
	}
	src := source.Map{baseURL + "seas/2021.html": fixture(t, "season_2021.html")}
	r := New(src, store, Options{BaseURL: baseURL, Journal: journal})

	summary, err := r.Run(context.Background(), r.SeasonJobs([]int{2021}, false))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "last_run.json")); err != nil {
		t.Fatalf("run log not written: %v", err)
	}
	log, err := journal.Load()
	if err != nil {
		t.Fatal(err)
	}
	if log.RunID != summary.RunID || log.Counts["inserted"] != 3 || len(log.Changes) != 3 {
		t.Errorf("run log = %+v", log)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"unavailable", &source.UnavailableError{ID: "x", StatusCode: 404}, ReasonUnavailable},
		{"no table", fmt.Errorf("season 2021: %w", extract.ErrNoTable), ReasonMalformed},
		{"score parse", &score.ParseError{Cell: "x"}, ReasonScoreDecode},
		{"score validation", extract.Problem{Err: &score.ValidationError{Quarter: 2}}, ReasonScoreDecode},
		{"unknown team", &normalize.UnknownTeamError{Name: "Springfield"}, ReasonIdentity},
		{"field", &normalize.FieldError{Field: "born", Value: "?"}, ReasonFieldParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLineupPartition(t *testing.T) {
	if got := LineupPartition("Western Bulldogs"); got != "wb" {
		t.Errorf("LineupPartition(Western Bulldogs) = %q, want wb", got)
	}
	if got := LineupPartition("Springfield"); got != "springfield" {
		t.Errorf("LineupPartition(Springfield) = %q", got)
	}
}
