// Package season commits simulated games into league state and runs
// batches of games in schedule order.
package season

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/derekprior/gridiron/internal/league"
)

var (
	// ErrTeamNotFound is reported when a result names a team the league
	// does not have.
	ErrTeamNotFound = errors.New("team not found")
	// ErrGameNotFound is reported when a result has no matching schedule
	// entry.
	ErrGameNotFound = errors.New("scheduled game not found")
)

// resultNamespace scopes result ids so they never collide with ids minted
// elsewhere.
var resultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gridiron/game-result"))

// ResultID returns a stable id for the game a result belongs to. The same
// league, week and matchup always map to the same id.
func ResultID(leagueName string, res *league.GameResult) string {
	name := fmt.Sprintf("%s/%d/%d/%d", leagueName, res.Week, res.Home, res.Away)
	return uuid.NewSHA1(resultNamespace, []byte(name)).String()
}

type gameKey struct {
	week       int
	home, away league.TeamID
}

// Index resolves teams and schedule entries in constant time. It is built
// from a league at batch start and must be dropped when the batch ends;
// after a roster or schedule change it would resolve stale entries.
type Index struct {
	teams map[league.TeamID]*league.Team
	games map[gameKey]league.GameRef
}

func NewIndex(l *league.League) *Index {
	idx := &Index{
		teams: make(map[league.TeamID]*league.Team, len(l.Teams)),
		games: make(map[gameKey]league.GameRef),
	}
	for _, t := range l.Teams {
		idx.teams[t.ID] = t
	}
	for wi, w := range l.Schedule.Weeks {
		for gi, g := range w.Games {
			if g.IsBye() {
				continue
			}
			k := gameKey{wi + 1, g.Home, g.Away}
			if _, dup := idx.games[k]; !dup {
				idx.games[k] = league.GameRef{Week: wi + 1, GameIndex: gi}
			}
		}
	}
	return idx
}

func lookupTeam(l *league.League, idx *Index, id league.TeamID) *league.Team {
	if idx != nil {
		return idx.teams[id]
	}
	return l.Team(id)
}

// lookupGame finds the schedule entry for a matchup in week. Both paths
// return the first matching entry in index order.
func lookupGame(l *league.League, idx *Index, week int, home, away league.TeamID) (league.GameRef, bool) {
	if idx != nil {
		ref, ok := idx.games[gameKey{week, home, away}]
		return ref, ok
	}
	if week < 1 || week > len(l.Schedule.Weeks) {
		return league.GameRef{}, false
	}
	for gi, g := range l.Schedule.Weeks[week-1].Games {
		if !g.IsBye() && g.Home == home && g.Away == away {
			return league.GameRef{Week: week, GameIndex: gi}, true
		}
	}
	return league.GameRef{}, false
}

// Committer folds simulated results into a league. It is the only writer of
// records, team season stats and player season stats.
type Committer struct {
	logger *slog.Logger
}

// NewCommitter returns a Committer. A nil logger discards output.
func NewCommitter(logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Committer{logger: logger}
}

// Commit folds res into l: it appends the result to its week, marks the
// schedule entry played, and updates both records, team season stats and
// player season stats. idx may be nil, in which case lookups scan.
//
// Committing a game already marked played is a no-op that returns false.
// A team or game lookup miss returns ErrTeamNotFound or ErrGameNotFound and
// leaves l untouched.
func (c *Committer) Commit(l *league.League, idx *Index, res *league.GameResult) (bool, error) {
	home := lookupTeam(l, idx, res.Home)
	away := lookupTeam(l, idx, res.Away)
	if home == nil || away == nil {
		missing := res.Home
		if home != nil {
			missing = res.Away
		}
		err := fmt.Errorf("%w: week %d team %d", ErrTeamNotFound, res.Week, missing)
		c.logger.Warn("commit_skipped", "week", res.Week, "home", res.Home, "away", res.Away, "err", err)
		return false, err
	}

	ref, ok := lookupGame(l, idx, res.Week, res.Home, res.Away)
	if !ok {
		err := fmt.Errorf("%w: week %d %s vs %s", ErrGameNotFound, res.Week, home.Abbr, away.Abbr)
		c.logger.Warn("commit_skipped", "week", res.Week, "home", home.Abbr, "away", away.Abbr, "err", err)
		return false, err
	}
	entry := l.Schedule.Entry(ref)
	if entry.Played {
		c.logger.Debug("commit_duplicate", "week", res.Week, "home", home.Abbr, "away", away.Abbr)
		return false, nil
	}

	l.EnsureResultWeeks()
	l.ResultsByWeek[res.Week-1] = append(l.ResultsByWeek[res.Week-1], *res)
	entry.Played = true

	applyRecords(home, away, res)
	applyTeamStats(home, res.TeamTotals(home.ID), res.ScoreHome, res.ScoreAway)
	applyTeamStats(away, res.TeamTotals(away.ID), res.ScoreAway, res.ScoreHome)
	c.applyPlayerStats(home, away, res)

	c.logger.Debug("game_committed",
		"week", res.Week,
		"home", home.Abbr,
		"away", away.Abbr,
		"score", fmt.Sprintf("%d-%d", res.ScoreHome, res.ScoreAway),
	)
	return true, nil
}

func applyRecords(home, away *league.Team, res *league.GameResult) {
	winner, ok := res.Winner()
	switch {
	case !ok:
		home.Record.Ties++
		away.Record.Ties++
	case winner == home.ID:
		home.Record.Wins++
		away.Record.Losses++
	default:
		away.Record.Wins++
		home.Record.Losses++
	}
}

func applyTeamStats(t *league.Team, totals league.GameStats, pointsFor, pointsAgainst int) {
	s := &t.SeasonStats
	s.Games++
	s.PointsFor += pointsFor
	s.PointsAgainst += pointsAgainst
	s.PassYd += totals.PassYd
	s.RushYd += totals.RushYd
	s.Touchdowns += totals.Touchdowns()
	s.Turnovers += totals.PassInt + totals.Fumbles
}

func (c *Committer) applyPlayerStats(home, away *league.Team, res *league.GameResult) {
	ids := make([]league.PlayerID, 0, len(res.PlayerStats))
	for id := range res.PlayerStats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		line := res.PlayerStats[id]
		team := home
		if line.TeamID == away.ID {
			team = away
		}
		p := team.Player(id)
		if p == nil {
			c.logger.Warn("player_not_found", "week", res.Week, "team", team.Abbr, "player", id)
			continue
		}
		p.Stats.Season.Add(line)
	}
}
