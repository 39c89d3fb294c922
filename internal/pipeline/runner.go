package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/afl-stats/internal/extract"
	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/source"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

// DefaultMaxConcurrent bounds in-flight fetches when Options leaves it unset.
const DefaultMaxConcurrent = 4

// visitedEstimate sizes the per-run visited filter; the full player index is
// around 13,000 pages.
const visitedEstimate = 50000

// Options configures a Runner.
type Options struct {
	MaxConcurrent int
	RecencyGuard  bool
	BaseURL       string
	// Journal, when set, receives the run log after each run.
	Journal *storage.Journal
	// Now stamps run start and finish; defaults to time.Now.
	Now func() time.Time
}

// Runner executes jobs against a Source and a Store.
type Runner struct {
	src     source.Source
	store   storage.Store
	site    source.Site
	limit   int
	journal *storage.Journal
	now     func() time.Time

	matches      *merge.Merger[record.MatchRecord]
	profiles     *merge.Merger[record.PlayerProfile]
	performances *merge.Merger[record.PlayerPerformanceRow]
	lineups      *merge.Merger[record.LineupEntry]
	teamSeasons  *merge.Merger[record.TeamSeasonRow]
}

// New creates a Runner. All mergers share one lock registry.
func New(src source.Source, store storage.Store, opts Options) *Runner {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	mergeOpts := []merge.Option{merge.WithLocks(merge.NewLocks()), merge.WithClock(opts.Now)}
	if opts.RecencyGuard {
		mergeOpts = append(mergeOpts, merge.WithRecencyGuard())
	}
	return &Runner{
		src:          src,
		store:        store,
		site:         source.NewSite(opts.BaseURL),
		limit:        opts.MaxConcurrent,
		journal:      opts.Journal,
		now:          opts.Now,
		matches:      merge.New(record.Matches, store, mergeOpts...),
		profiles:     merge.New(record.Profiles, store, mergeOpts...),
		performances: merge.New(record.Performances, store, mergeOpts...),
		lineups:      merge.New(record.Lineups, store, mergeOpts...),
		teamSeasons:  merge.New(record.TeamSeasons, store, mergeOpts...),
	}
}

// run is the state of one Run call.
type run struct {
	*Runner
	summary *Summary

	visitedMu sync.Mutex
	visited   *bloom.BloomFilter

	inFlight atomic.Int64

	lineupBatch *Accumulator[record.LineupEntry]
}

// Run processes jobs and everything they discover. It returns the summary
// even when the context is cancelled part way; partitions merged before
// cancellation stay persisted.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	ru := &run{
		Runner:      r,
		summary:     newSummary(uuid.NewString(), r.now()),
		visited:     bloom.NewWithEstimates(visitedEstimate, 0.001),
		lineupBatch: NewAccumulator[record.LineupEntry](),
	}
	logger.Info("Run started", logger.Fields{"run_id": ru.summary.RunID, "jobs": len(jobs)})

	var runErr error
	for wave := jobs; len(wave) > 0; {
		next, err := ru.wave(ctx, wave)
		if err != nil {
			runErr = err
			break
		}
		wave = next
	}

	flushCtx := ctx
	if runErr != nil {
		// Lineups already extracted are still worth keeping.
		flushCtx = context.WithoutCancel(ctx)
	}
	if err := ru.lineupBatch.Flush(flushCtx, r.lineups, ru.summary.merged); err != nil && runErr == nil {
		runErr = err
	}

	ru.summary.finish(r.now())
	if r.journal != nil {
		if err := r.journal.Save(ru.summary.RunLog()); err != nil {
			logger.Error("Failed to save run log", nil, err)
		}
	}
	logger.Info("Run finished", logger.Fields{
		"run_id":    ru.summary.RunID,
		"documents": ru.summary.Documents,
		"inserted":  ru.summary.Inserted,
		"replaced":  ru.summary.Replaced,
		"skipped":   ru.summary.TotalSkipped(),
		"failed":    len(ru.summary.Failed),
	})
	return ru.summary, runErr
}

// wave runs jobs on the bounded pool and returns the jobs they discovered.
func (ru *run) wave(ctx context.Context, jobs []Job) ([]Job, error) {
	var (
		mu   sync.Mutex
		next []Job
	)
	logger.SetGauge("pipeline.wave_jobs", float64(len(jobs)))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ru.limit)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		if ru.seen(job.URL) {
			logger.Debug("Skipping visited document", logger.Fields{"url": job.URL})
			continue
		}
		g.Go(func() error {
			logger.SetGauge("pipeline.in_flight", float64(ru.inFlight.Add(1)))
			defer func() { logger.SetGauge("pipeline.in_flight", float64(ru.inFlight.Add(-1))) }()
			found, err := ru.process(gctx, job)
			if err != nil {
				return err
			}
			mu.Lock()
			next = append(next, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return next, nil
}

func (ru *run) seen(url string) bool {
	ru.visitedMu.Lock()
	defer ru.visitedMu.Unlock()
	return ru.visited.TestOrAddString(url)
}

// process fetches and handles one document. Only cancellation is returned
// as an error; every other failure is recorded in the summary.
func (ru *run) process(ctx context.Context, job Job) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := ru.src.Fetch(ctx, job.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ru.summary.skip(ReasonUnavailable)
		logger.Warn("Document unavailable", logger.Fields{"job": job.String(), "error": err.Error()})
		return nil, nil
	}
	ru.summary.document()

	parsed, err := extract.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		ru.summary.skip(ReasonMalformed)
		logger.Warn("Unparseable document", logger.Fields{"job": job.String(), "error": err.Error()})
		return nil, nil
	}
	observed := doc.FetchedAt
	if observed.IsZero() {
		observed = ru.now()
	}

	var found []Job
	switch job.Kind {
	case KindSeason:
		found, err = ru.season(ctx, job, parsed, observed)
	case KindGame:
		err = ru.game(ctx, job, parsed, observed)
	case KindPlayer:
		err = ru.player(ctx, job, parsed, observed)
	case KindTeamTotals:
		err = ru.teamTotals(ctx, job, parsed, observed)
	case KindPlayerIndex:
		found = PlayerJobs(extract.PlayerIndexLinks(parsed, job.URL))
	case KindSeasonPlayers:
		found = PlayerJobs(extract.SeasonPlayerLinks(parsed, job.URL))
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		reason := Classify(err)
		ru.summary.skip(reason)
		logger.Warn("Document skipped", logger.Fields{"job": job.String(), "reason": string(reason), "error": err.Error()})
		return nil, nil
	}
	return found, nil
}

func (ru *run) season(ctx context.Context, job Job, doc *goquery.Document, observed time.Time) ([]Job, error) {
	season, err := extract.ParseSeason(doc, job.Year, job.URL, observed)
	if err != nil {
		return nil, err
	}
	ru.summary.problems(season.Problems)
	for _, m := range season.Matches {
		if m.LowConfidence {
			ru.summary.lowConfidence(record.MatchKey(m))
		}
	}
	mergeInto(ctx, ru.summary, ru.matches, strconv.Itoa(job.Year), season.Matches)

	if job.FollowGames {
		return GameJobs(season.GameLinks), nil
	}
	return nil, nil
}

func (ru *run) game(ctx context.Context, job Job, doc *goquery.Document, observed time.Time) error {
	game, err := extract.ParseGame(doc, job.URL, observed)
	if err != nil {
		return err
	}
	ru.summary.problems(game.Problems)
	if game.Match.LowConfidence {
		ru.summary.lowConfidence(record.MatchKey(game.Match))
	}
	mergeInto(ctx, ru.summary, ru.matches, strconv.Itoa(game.Match.Year), []record.MatchRecord{game.Match})
	for _, l := range game.Lineups {
		ru.lineupBatch.Add(LineupPartition(l.Team), l)
	}
	return nil
}

func (ru *run) player(ctx context.Context, job Job, doc *goquery.Document, observed time.Time) error {
	p, err := extract.ParsePlayer(doc, job.URL, observed)
	if err != nil {
		return err
	}
	ru.summary.problems(p.Problems)
	id := p.Profile.ID()
	mergeInto(ctx, ru.summary, ru.profiles, id, []record.PlayerProfile{p.Profile})
	if len(p.Rows) > 0 {
		mergeInto(ctx, ru.summary, ru.performances, id, p.Rows)
	}
	return nil
}

func (ru *run) teamTotals(ctx context.Context, job Job, doc *goquery.Document, observed time.Time) error {
	rows, problems, err := extract.ParseTeamTotals(doc, job.Year, job.URL, observed)
	if err != nil {
		return err
	}
	ru.summary.problems(problems)
	mergeInto(ctx, ru.summary, ru.teamSeasons, strconv.Itoa(job.Year), rows)
	return nil
}

// mergeInto folds records into one partition and records the outcome. Write
// failures are reported in the summary, never dropped.
func mergeInto[T any](ctx context.Context, s *Summary, m *merge.Merger[T], key string, records []T) {
	res, err := m.Merge(ctx, key, records)
	if err != nil && !isWriteError(err) {
		// cancelled before the partition was touched
		return
	}
	s.merged(m.Partition(key), res, err)
}

func isWriteError(err error) bool {
	var we *merge.WriteError
	return errors.As(err, &we)
}

// LineupPartition returns the partition key for a team's lineups.
func LineupPartition(team string) string {
	if code, err := normalize.TeamCode(team); err == nil {
		return storage.SafeKey(code)
	}
	return storage.SafeKey(team)
}
