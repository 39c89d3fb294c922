package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/extract"
	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/score"
	"github.com/pfrederiksen/afl-stats/internal/source"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

// Reason classifies why a document or record was skipped or flagged.
type Reason string

const (
	ReasonUnavailable Reason = "document_unavailable"
	ReasonMalformed   Reason = "malformed_table"
	ReasonFieldParse  Reason = "field_parse_failure"
	ReasonIdentity    Reason = "identity_resolution"
	ReasonScoreDecode Reason = "score_decode"
)

// Classify maps an error from fetching, extraction or normalization to a
// Reason.
func Classify(err error) Reason {
	var (
		parseErr    *score.ParseError
		validateErr *score.ValidationError
		teamErr     *normalize.UnknownTeamError
	)
	switch {
	case source.IsUnavailable(err):
		return ReasonUnavailable
	case errors.Is(err, extract.ErrNoTable):
		return ReasonMalformed
	case errors.As(err, &parseErr), errors.As(err, &validateErr):
		return ReasonScoreDecode
	case errors.As(err, &teamErr):
		return ReasonIdentity
	default:
		return ReasonFieldParse
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Documents int `json:"documents"`

	// Partitions persisted (or already current) and partitions whose write failed.
	Succeeded []string          `json:"partitions_succeeded"`
	Failed    map[string]string `json:"partitions_failed,omitempty"`

	Inserted  int `json:"inserted"`
	Replaced  int `json:"replaced"`
	Unchanged int `json:"unchanged"`
	Stale     int `json:"stale"`

	// Skipped counts documents and records left out, by reason.
	Skipped map[Reason]int `json:"skipped"`
	// Warnings counts records kept with reduced confidence, by reason.
	Warnings map[Reason]int `json:"warnings"`
	// LowConfidence lists the keys of records kept with reduced confidence.
	LowConfidence []string `json:"low_confidence,omitempty"`

	Changes []*record.Change `json:"-"`

	mu        sync.Mutex
	succeeded map[string]bool
}

func newSummary(runID string, started time.Time) *Summary {
	return &Summary{
		RunID:     runID,
		StartedAt: started,
		Failed:    make(map[string]string),
		Skipped:   make(map[Reason]int),
		Warnings:  make(map[Reason]int),
		succeeded: make(map[string]bool),
	}
}

// Partial reports whether some partitions could not be written.
func (s *Summary) Partial() bool {
	return len(s.Failed) > 0
}

// TotalSkipped sums Skipped over all reasons.
func (s *Summary) TotalSkipped() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

func (s *Summary) document() {
	s.mu.Lock()
	s.Documents++
	s.mu.Unlock()
}

func (s *Summary) skip(reason Reason) {
	s.mu.Lock()
	s.Skipped[reason]++
	s.mu.Unlock()
	logger.IncrCounter("records.skipped." + string(reason))
}

func (s *Summary) problems(problems []extract.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range problems {
		if p.Dropped {
			reason := Classify(p.Err)
			s.Skipped[reason]++
			logger.IncrCounter("records.skipped." + string(reason))
		} else {
			s.Warnings[Classify(p.Err)]++
		}
	}
}

func (s *Summary) lowConfidence(key string) {
	s.mu.Lock()
	s.LowConfidence = append(s.LowConfidence, key)
	s.mu.Unlock()
}

// merged records the outcome of one partition merge.
func (s *Summary) merged(p storage.Partition, res *merge.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res != nil {
		s.Inserted += res.Inserted
		s.Replaced += res.Replaced
		s.Unchanged += res.Unchanged
		s.Stale += res.Stale
		s.Changes = append(s.Changes, res.Changes...)
	}
	if err != nil {
		s.Failed[p.String()] = err.Error()
		delete(s.succeeded, p.String())
		return
	}
	if _, failed := s.Failed[p.String()]; !failed {
		s.succeeded[p.String()] = true
	}
}

func (s *Summary) finish(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinishedAt = at
	s.Succeeded = s.Succeeded[:0]
	for p := range s.succeeded {
		s.Succeeded = append(s.Succeeded, p)
	}
	sort.Strings(s.Succeeded)
	sort.Strings(s.LowConfidence)
	record.SortChanges(s.Changes)
}

// Err returns an error describing failed partitions, or nil.
func (s *Summary) Err() error {
	if !s.Partial() {
		return nil
	}
	return fmt.Errorf("%d partition(s) failed to persist", len(s.Failed))
}

// RunLog converts the summary to its persisted form.
func (s *Summary) RunLog() *storage.RunLog {
	log := &storage.RunLog{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Succeeded:  s.Succeeded,
		Counts: map[string]int{
			"documents": s.Documents,
			"inserted":  s.Inserted,
			"replaced":  s.Replaced,
			"unchanged": s.Unchanged,
			"stale":     s.Stale,
		},
		Skipped: make(map[string]int, len(s.Skipped)),
		Changes: s.Changes,
	}
	for p := range s.Failed {
		log.Failed = append(log.Failed, p)
	}
	sort.Strings(log.Failed)
	for r, n := range s.Skipped {
		log.Skipped[string(r)] = n
	}
	return log
}
