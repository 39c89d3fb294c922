package pipeline

import "fmt"

// Kind names what a job's document contains.
type Kind string

const (
	KindSeason        Kind = "season"
	KindGame          Kind = "game"
	KindPlayer        Kind = "player"
	KindTeamTotals    Kind = "team_totals"
	KindPlayerIndex   Kind = "player_index"
	KindSeasonPlayers Kind = "season_players"
)

// Job is one document to fetch and process.
type Job struct {
	Kind Kind
	URL  string
	Year int // season jobs only

	// FollowGames queues the game pages linked from a season page.
	FollowGames bool
}

func (j Job) String() string {
	if j.Year != 0 {
		return fmt.Sprintf("%s %d", j.Kind, j.Year)
	}
	return fmt.Sprintf("%s %s", j.Kind, j.URL)
}

// SeasonJobs returns one season results job per year.
func (r *Runner) SeasonJobs(years []int, followGames bool) []Job {
	jobs := make([]Job, 0, len(years))
	for _, y := range years {
		jobs = append(jobs, Job{Kind: KindSeason, URL: r.site.SeasonURL(y), Year: y, FollowGames: followGames})
	}
	return jobs
}

// TeamTotalsJobs returns one team totals job per year.
func (r *Runner) TeamTotalsJobs(years []int) []Job {
	jobs := make([]Job, 0, len(years))
	for _, y := range years {
		jobs = append(jobs, Job{Kind: KindTeamTotals, URL: r.site.TeamTotalsURL(y), Year: y})
	}
	return jobs
}

// SeasonPlayerJobs returns jobs for the season player lists, which in turn
// queue every listed player.
func (r *Runner) SeasonPlayerJobs(years []int) []Job {
	jobs := make([]Job, 0, len(years))
	for _, y := range years {
		jobs = append(jobs, Job{Kind: KindSeasonPlayers, URL: r.site.SeasonPlayersURL(y), Year: y})
	}
	return jobs
}

// PlayerIndexJobs returns jobs for the alphabetical player index, which
// queue every player ever listed.
func (r *Runner) PlayerIndexJobs() []Job {
	urls := r.site.PlayerIndexURLs()
	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, Job{Kind: KindPlayerIndex, URL: u})
	}
	return jobs
}

// PlayerJobs returns one job per player page URL.
func PlayerJobs(urls []string) []Job {
	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, Job{Kind: KindPlayer, URL: u})
	}
	return jobs
}

// GameJobs returns one job per game page URL.
func GameJobs(urls []string) []Job {
	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, Job{Kind: KindGame, URL: u})
	}
	return jobs
}
