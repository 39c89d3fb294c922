package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/afl-stats/internal/aggregate"
	"github.com/pfrederiksen/afl-stats/internal/calendar"
	"github.com/pfrederiksen/afl-stats/internal/filter"
	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/record"
)

// filterFlags builds a filter.Filter from list flags.
type filterFlags struct {
	seasons  seasonFlags
	teams    []string
	rounds   string
	dateFrom string
	dateTo   string
	finals   bool
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	ff.seasons.register(cmd)
	cmd.Flags().StringSliceVar(&ff.teams, "team", nil, "Team name or code (repeatable)")
	cmd.Flags().StringVar(&ff.rounds, "round", "", "Rounds, e.g. 1-3,QF,GF")
	cmd.Flags().StringVar(&ff.dateFrom, "date-from", "", "Earliest match date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.dateTo, "date-to", "", "Latest match date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&ff.finals, "finals", false, "Finals only")
}

func (ff *filterFlags) build() (*filter.Filter, error) {
	f := filter.NewFilter()
	var err error
	if f.YearFrom, f.YearTo, err = ff.seasons.bounds(); err != nil {
		return nil, err
	}
	f.Teams = ff.teams
	if ff.rounds != "" {
		if f.Rounds, err = filter.ParseRounds(ff.rounds); err != nil {
			return nil, err
		}
	}
	if ff.dateFrom != "" {
		if f.DateFrom, err = filter.ParseDate(ff.dateFrom); err != nil {
			return nil, err
		}
	}
	if ff.dateTo != "" {
		to, err := filter.ParseDate(ff.dateTo)
		if err != nil {
			return nil, err
		}
		f.DateTo = filter.EndOfDay(to)
	}
	f.FinalsOnly = ff.finals
	return f, nil
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
	}
	cmd.AddCommand(newListMatchesCmd(), newListLineupsCmd(), newListTeamsCmd())
	return cmd
}

func newListMatchesCmd() *cobra.Command {
	var (
		ff        filterFlags
		sortOrder string
		icsPath   string
	)
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List stored match results",
		RunE: func(cmd *cobra.Command, args []string) error {
			order := SortOrder(strings.ToLower(sortOrder))
			if order != SortByDate && order != SortByRound && order != SortByTeam {
				return fmt.Errorf("invalid sort: %s (must be 'date', 'round' or 'team')", sortOrder)
			}
			f, err := ff.build()
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			matches, err := merge.ReadAll(cmd.Context(), a.store, record.Matches)
			if err != nil {
				return err
			}
			matches = filter.Apply(matches, f.MatchesMatch)
			sortMatches(matches, order)
			if icsPath != "" {
				ics := calendar.GenerateICS(matches, time.Now())
				if err := os.WriteFile(icsPath, []byte(ics), 0644); err != nil {
					return fmt.Errorf("writing calendar: %w", err)
				}
				logger.Info("Calendar written", logger.Fields{"path": icsPath, "matches": len(matches)})
			}
			return WriteMatches(cmd.OutOrStdout(), matches, a.format)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&sortOrder, "sort", "date", "Sort order: date, round or team")
	cmd.Flags().StringVar(&icsPath, "ics", "", "Also write the listed matches to an iCalendar file")
	return cmd
}

func newListLineupsCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "lineups",
		Short: "List stored lineups",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build()
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			lineups, err := merge.ReadAll(cmd.Context(), a.store, record.Lineups)
			if err != nil {
				return err
			}
			lineups = filter.Apply(lineups, f.MatchesLineup)
			sortLineups(lineups)
			return WriteLineups(cmd.OutOrStdout(), lineups, a.format, flagVerbose)
		},
	}
	ff.register(cmd)
	return cmd
}

func newListTeamsCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "List stored team season totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build()
			if err != nil {
				return err
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := merge.ReadAll(cmd.Context(), a.store, record.TeamSeasons)
			if err != nil {
				return err
			}
			rows = filter.Apply(rows, f.MatchesTeamSeason)
			sortTeamSeasons(rows)
			return WriteTeamSeasons(cmd.OutOrStdout(), rows, a.format)
		},
	}
	ff.register(cmd)
	return cmd
}

// threshold is a "stat=value" probability query.
type threshold struct {
	Stat  string
	Value float64
}

func parseThreshold(s string) (threshold, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return threshold{}, fmt.Errorf("invalid threshold %q, use stat=value (e.g. goals=2)", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return threshold{}, fmt.Errorf("invalid threshold value %q", value)
	}
	return threshold{Stat: strings.TrimSpace(name), Value: v}, nil
}

func newStatsCmd() *cobra.Command {
	var (
		player string
		ff     filterFlags
		over   []string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a player's statistics by season and all-time",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build()
			if err != nil {
				return err
			}
			thresholds := make([]threshold, 0, len(over))
			for _, o := range over {
				t, err := parseThreshold(o)
				if err != nil {
					return err
				}
				thresholds = append(thresholds, t)
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			id := strings.ToLower(strings.TrimSpace(player))
			rows, err := merge.Read(cmd.Context(), a.store, record.Performances, id)
			if err != nil {
				return err
			}
			rows = filter.Apply(rows, f.MatchesPerformance)
			if len(rows) == 0 {
				return fmt.Errorf("no stored games for player %q", id)
			}

			weights := a.cfg.ValueWeights()
			score, err := aggregate.Score(cmd.Context(), aggregate.Sequential{}, rows, weights)
			if err != nil {
				return err
			}
			yearly := aggregate.Yearly(rows)
			result := &StatsResult{
				PlayerID: id,
				Games:    len(rows),
				Score:    score,
				Yearly:   yearly,
				AllTime:  aggregate.Combine(yearly),
			}
			for _, t := range thresholds {
				p, err := aggregate.Probability(rows, t.Stat, t.Value)
				if err != nil {
					return err
				}
				pr := ProbabilityResult{Stat: t.Stat, Threshold: t.Value, Probability: p, Yearly: make(map[int]float64)}
				for _, y := range aggregate.Years(yearly) {
					if pr.Yearly[y], err = aggregate.YearProbability(rows, y, t.Stat, t.Value); err != nil {
						return err
					}
				}
				result.Probabilities = append(result.Probabilities, pr)
			}
			return WriteStats(cmd.OutOrStdout(), result, a.format)
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "Player id, e.g. smith_john_24041990 (required)")
	ff.register(cmd)
	cmd.Flags().StringArrayVar(&over, "over", nil, "Probability of reaching a value, e.g. goals=2 (repeatable)")
	cmd.MarkFlagRequired("player")
	return cmd
}

func newRankCmd() *cobra.Command {
	var (
		top     int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank players by weighted value score",
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("--top must not be negative")
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ranked, err := aggregate.Rank(cmd.Context(), a.store, a.cfg.ValueWeights(), aggregate.RankOptions{
				Top:     top,
				Backend: aggregate.Parallel{Workers: workers},
			})
			if err != nil {
				return err
			}
			return WriteRanking(cmd.OutOrStdout(), ranked, a.format)
		},
	}
	cmd.Flags().IntVar(&top, "top", 25, "Number of players to show (0 for all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Aggregation workers per player (default: number of CPUs)")
	return cmd
}
