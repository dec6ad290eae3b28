// Package sim plays one American football game between two teams and
// reports the final score, every player's box score line and a play log.
//
// The simulator never mutates the teams it is given. All randomness comes
// from a PRNG seeded from Options.Seed, so the same seed and rosters always
// produce the same result.
//
// Field position in the log runs from 0 (the home end zone) to 100 (the
// away end zone); the home offense drives toward 100.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/random"
)

// ErrNoEligiblePlayers is returned when a team has nobody eligible to play.
var ErrNoEligiblePlayers = errors.New("no eligible players")

const (
	quarterSeconds  = 900
	defaultMaxPlays = 180
	overtimePlayCap = 40
)

// Availability reports which players may take the field and how strong
// they are today. A nil Availability means every player is eligible at
// their nominal rating.
type Availability interface {
	IsEligibleToPlay(p *league.Player) bool
	EffectiveRating(p *league.Player) float64
}

type nominal struct{}

func (nominal) IsEligibleToPlay(*league.Player) bool { return true }
func (nominal) EffectiveRating(p *league.Player) float64 { return float64(p.Ovr) }

// Options control one simulation.
type Options struct {
	// Seed pins the PRNG. Nil draws a fresh seed.
	Seed *int64
	// MaxPlays stops regulation after this many snaps. Zero uses 180.
	MaxPlays int
	// Overtime gives each team one possession from the opponent's 25 when
	// regulation ends tied.
	Overtime     bool
	Availability Availability
	// Week is stamped on the result.
	Week int
}

type Simulator struct {
	logger *slog.Logger
}

// New returns a Simulator. A nil logger discards output.
func New(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulator{logger: logger}
}

// Simulate plays home against away.
func (s *Simulator) Simulate(home, away *league.Team, opts Options) (*league.GameResult, error) {
	if home == nil || away == nil {
		return nil, errors.New("simulate: both teams are required")
	}
	if home.ID == away.ID {
		return nil, fmt.Errorf("simulate: team %d cannot play itself", home.ID)
	}

	avail := opts.Availability
	if avail == nil {
		avail = nominal{}
	}
	var seed int64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		fresh, err := random.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("simulate: %w", err)
		}
		seed = fresh
	}
	maxPlays := opts.MaxPlays
	if maxPlays <= 0 {
		maxPlays = defaultMaxPlays
	}

	hs, err := newSide(home, avail)
	if err != nil {
		return nil, err
	}
	as, err := newSide(away, avail)
	if err != nil {
		return nil, err
	}

	g := &game{
		rng:      rand.New(rand.NewSource(seed)),
		sides:    [2]*side{hs, as},
		maxPlays: maxPlays,
		lines:    make(map[league.PlayerID]*league.GameStats),
	}
	g.regulation()
	if opts.Overtime && g.score[0] == g.score[1] {
		g.playOvertime()
	}

	res := &league.GameResult{
		Week:        opts.Week,
		Home:        home.ID,
		Away:        away.ID,
		ScoreHome:   g.score[0],
		ScoreAway:   g.score[1],
		Overtime:    g.overtime,
		PlayerStats: make(map[league.PlayerID]league.GameStats, len(g.lines)),
		Log:         g.log,
	}
	for id, line := range g.lines {
		res.PlayerStats[id] = *line
	}

	s.logger.Debug("game_simulated",
		"week", opts.Week,
		"home", home.Abbr,
		"away", away.Abbr,
		"score", fmt.Sprintf("%d-%d", res.ScoreHome, res.ScoreAway),
		"plays", g.plays,
		"overtime", g.overtime,
		"seed", seed,
	)
	return res, nil
}

// side is one team's eligible players, best first within each position,
// and the team's strength on each side of the ball.
type side struct {
	team    *league.Team
	all     []*league.Player
	byPos   map[league.Position][]*league.Player
	rating  map[league.PlayerID]float64
	offense float64
	defense float64
}

func newSide(t *league.Team, avail Availability) (*side, error) {
	sd := &side{
		team:   t,
		byPos:  make(map[league.Position][]*league.Player),
		rating: make(map[league.PlayerID]float64),
	}
	var offSum, defSum float64
	var offN, defN int
	for _, p := range t.Roster {
		// Ineligible players count toward unit size at zero rating.
		if p.Pos.Offense() {
			offN++
		}
		if p.Pos.Defense() {
			defN++
		}
		if !avail.IsEligibleToPlay(p) {
			continue
		}
		r := avail.EffectiveRating(p)
		sd.rating[p.ID] = r
		sd.all = append(sd.all, p)
		sd.byPos[p.Pos] = append(sd.byPos[p.Pos], p)
		if p.Pos.Offense() {
			offSum += r
		}
		if p.Pos.Defense() {
			defSum += r
		}
	}
	if len(sd.all) == 0 {
		return nil, fmt.Errorf("%w: team %d (%s)", ErrNoEligiblePlayers, t.ID, t.Abbr)
	}
	for pos := range sd.byPos {
		list := sd.byPos[pos]
		sort.SliceStable(list, func(i, j int) bool { return sd.rating[list[i].ID] > sd.rating[list[j].ID] })
	}
	sd.offense = unitStrength(offSum, offN)
	sd.defense = unitStrength(defSum, defN)
	return sd, nil
}

func unitStrength(sum float64, n int) float64 {
	if n == 0 {
		return 50
	}
	return sum / float64(n)
}

// share weights a position group when picking who is involved in a play.
type share struct {
	pos    league.Position
	weight int
}

var (
	rushers     = []share{{league.RB, 85}, {league.QB, 15}}
	receivers   = []share{{league.WR, 60}, {league.TE, 25}, {league.RB, 15}}
	tacklers    = []share{{league.LB, 40}, {league.S, 20}, {league.CB, 20}, {league.DL, 20}}
	passRushers = []share{{league.DL, 70}, {league.LB, 30}}
	coverage    = []share{{league.CB, 60}, {league.S, 30}, {league.LB, 10}}

	offenseFallback = []league.Position{league.QB, league.RB, league.WR, league.TE, league.OL}
	defenseFallback = []league.Position{league.DL, league.LB, league.CB, league.S}
)

// game is the per-play state of one simulation.
type game struct {
	rng      *rand.Rand
	sides    [2]*side // home, away
	maxPlays int

	off      int // index of the side with the ball
	los      int // yards from the offense's own goal line
	down     int
	distance int
	quarter  int
	clock    int
	plays    int
	score    [2]int

	overtime       bool
	possessionOver bool

	lines map[league.PlayerID]*league.GameStats
	log   []league.Play
}

func (g *game) def() int { return 1 - g.off }

// ballOn converts the line of scrimmage to the 0 (home end zone) to 100
// (away end zone) scale.
func (g *game) ballOn() int {
	if g.off == 0 {
		return g.los
	}
	return 100 - g.los
}

// edge is the offense's strength advantage for side idx, roughly -0.5..0.5.
func (g *game) edge(idx int) float64 {
	return (g.sides[idx].offense - g.sides[1-idx].defense) / 100
}

func (g *game) tick(seconds int) {
	if !g.overtime {
		g.clock -= seconds
	}
}

func (g *game) line(sd *side, p *league.Player) *league.GameStats {
	l, ok := g.lines[p.ID]
	if !ok {
		l = &league.GameStats{TeamID: sd.team.ID, Games: 1}
		g.lines[p.ID] = l
	}
	return l
}

// award adds points to side idx and tags the play that scored them. Every
// caller credits the matching stat on the same play.
func (g *game) award(idx, points int, pl *league.Play) {
	g.score[idx] += points
	pl.Points = points
	pl.ScoringTeam = g.sides[idx].team.ID
}

func (g *game) newPlay(t league.PlayType) league.Play {
	return league.Play{
		Quarter:  g.quarter,
		Clock:    max(g.clock, 0),
		Offense:  g.sides[g.off].team.ID,
		Type:     t,
		Down:     g.down,
		Distance: g.distance,
		BallOn:   g.ballOn(),
	}
}

func (g *game) pick(sd *side, positions ...league.Position) *league.Player {
	for _, pos := range positions {
		if list := sd.byPos[pos]; len(list) > 0 {
			return g.depth(list)
		}
	}
	return g.depth(sd.all)
}

// pickShare chooses a position group by weight among groups with anyone
// eligible, then a player from that group.
func (g *game) pickShare(sd *side, shares []share, fallback []league.Position) *league.Player {
	total := 0
	for _, s := range shares {
		if len(sd.byPos[s.pos]) > 0 {
			total += s.weight
		}
	}
	if total > 0 {
		n := g.rng.Intn(total)
		for _, s := range shares {
			if len(sd.byPos[s.pos]) == 0 {
				continue
			}
			if n < s.weight {
				return g.depth(sd.byPos[s.pos])
			}
			n -= s.weight
		}
	}
	return g.pick(sd, fallback...)
}

// depth favors the top of a depth chart.
func (g *game) depth(list []*league.Player) *league.Player {
	i := 0
	for i < len(list)-1 && g.rng.Float64() < 0.25 {
		i++
	}
	return list[i]
}

func clamp(x, lo, hi float64) float64 {
	return max(lo, min(hi, x))
}
