package schedule

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/strategy"
)

// ErrSchedulingInfeasible is returned when the team count, week count and
// meetings cannot produce a valid schedule, or no valid schedule was found
// within the retry budget.
var ErrSchedulingInfeasible = errors.New("scheduling infeasible")

const (
	defaultAttempts     = 50
	defaultRepairBudget = 25
)

// Params are the league rules the generator must satisfy.
type Params struct {
	Weeks    int
	Meetings int
	// MinGap is the minimum number of weeks between two meetings of the
	// same pair. Zero disables the check.
	MinGap int
	// Attempts bounds how many plan orderings are tried.
	Attempts int
	// RepairBudget bounds the passes of FixScheduleCompletely per attempt.
	RepairBudget int
	// Strategy supplies the required matchups. Nil uses RoundRobin with
	// Meetings.
	Strategy strategy.Strategy
}

// TeamMetrics holds per-team schedule statistics.
type TeamMetrics struct {
	Games int
	Byes  int
	Home  int
	Away  int
}

// Result is the output of the scheduling process.
type Result struct {
	Schedule    *league.Schedule
	Attempts    int // attempts used, 1-based
	Repaired    int // games moved by the repair pass
	Warnings    []string
	TeamMetrics map[league.TeamID]*TeamMetrics
}

// Generate builds a season schedule for teams. Every pair meets
// p.Meetings times, each team has exactly one game or bye per week and
// repeat meetings are at least p.MinGap weeks apart.
func Generate(teams []league.TeamID, p Params) (*Result, error) {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.RepairBudget <= 0 {
		p.RepairBudget = defaultRepairBudget
	}
	if err := checkFeasible(teams, p); err != nil {
		return nil, err
	}

	var (
		bestConflicts  = -1
		bestLeftover   []strategy.Game
		bestRejections map[rejectionReason]int
	)
	for attempt := range p.Attempts {
		order := make([]league.TeamID, len(teams))
		copy(order, teams)
		if attempt > 0 {
			rng := rand.New(rand.NewSource(int64(42 + attempt)))
			rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		s := newScheduler(order, p)
		s.allocate()
		sched := s.toSchedule()

		moves, err := FixScheduleCompletely(sched, teams, RepairOptions{MinGap: p.MinGap, Budget: p.RepairBudget})
		if err == nil {
			warnings, metrics := buildMetrics(sched, teams)
			return &Result{
				Schedule:    sched,
				Attempts:    attempt + 1,
				Repaired:    moves,
				Warnings:    warnings,
				TeamMetrics: metrics,
			}, nil
		}

		remaining := len(Conflicts(sched, p.MinGap))
		if bestConflicts < 0 || remaining < bestConflicts {
			bestConflicts = remaining
			bestLeftover = s.leftover
			bestRejections = s.rejections
		}
	}

	return nil, buildFailureError(p, bestConflicts, bestLeftover, bestRejections)
}

func checkFeasible(teams []league.TeamID, p Params) error {
	n := len(teams)
	if n < 2 {
		return fmt.Errorf("%w: need at least two teams, got %d", ErrSchedulingInfeasible, n)
	}
	if p.Meetings < 1 {
		return fmt.Errorf("%w: meetings must be at least 1, got %d", ErrSchedulingInfeasible, p.Meetings)
	}
	seen := make(map[league.TeamID]bool, n)
	for _, t := range teams {
		if seen[t] {
			return fmt.Errorf("%w: team %d listed twice", ErrSchedulingInfeasible, t)
		}
		seen[t] = true
	}
	// Odd leagues need one bye per week, so a full cycle takes n weeks.
	need := p.Meetings * strategy.RoundsPerCycle(n)
	if p.Weeks < need {
		return fmt.Errorf("%w: %d teams meeting %d time(s) need at least %d weeks, got %d",
			ErrSchedulingInfeasible, n, p.Meetings, need, p.Weeks)
	}
	if p.MinGap > 0 && (p.Meetings-1)*p.MinGap+1 > p.Weeks {
		return fmt.Errorf("%w: %d meetings at least %d weeks apart do not fit in %d weeks",
			ErrSchedulingInfeasible, p.Meetings, p.MinGap, p.Weeks)
	}
	return nil
}

func buildFailureError(p Params, conflicts int, leftover []strategy.Game, rejections map[rejectionReason]int) error {
	msg := fmt.Sprintf("no valid schedule after %d attempts", p.Attempts)
	if conflicts >= 0 {
		msg += fmt.Sprintf("\n\nBest attempt: %d conflict(s) left after repair", conflicts)
	}
	if len(rejections) > 0 {
		msg += fmt.Sprintf("\nRejected pairings: %d team already playing, %d meetings exhausted, %d too soon after last meeting",
			rejections[rejectTeamUsed], rejections[rejectMeetingsExhausted], rejections[rejectMinGap])
	}
	if len(leftover) > 0 {
		msg += "\n\nMatchups the allocator could not place:"
		for _, g := range leftover {
			msg += fmt.Sprintf("\n  • %d vs %d", g.Home, g.Away)
		}
	}
	return fmt.Errorf("%w: %s", ErrSchedulingInfeasible, msg)
}

// rejectionReason categorizes why a pairing was rejected for a week.
type rejectionReason int

const (
	rejectTeamUsed rejectionReason = iota
	rejectMeetingsExhausted
	rejectMinGap
)

type scheduler struct {
	p     Params
	teams []league.TeamID

	weeks    [][]strategy.Game
	used     []map[league.TeamID]bool // week -> teams already playing
	games    map[league.TeamID]int    // team -> games scheduled
	meetings map[matchupKey][]int     // pair -> weeks met
	planWeek map[int]int              // plan round -> week
	pending  []strategy.Game          // matchups not yet placed
	perPair  map[matchupKey]int       // pair -> meetings still owed

	leftover   []strategy.Game
	rejections map[rejectionReason]int
}

type matchupKey struct {
	a, b league.TeamID
}

func normalizeMatchup(a, b league.TeamID) matchupKey {
	if a > b {
		a, b = b, a
	}
	return matchupKey{a, b}
}

func newScheduler(order []league.TeamID, p Params) *scheduler {
	strat := p.Strategy
	if strat == nil {
		strat = &strategy.RoundRobin{Meetings: p.Meetings}
	}
	pending := strat.GenerateMatchups(order)

	s := &scheduler{
		p:          p,
		teams:      order,
		weeks:      make([][]strategy.Game, p.Weeks),
		used:       make([]map[league.TeamID]bool, p.Weeks),
		games:      make(map[league.TeamID]int),
		meetings:   make(map[matchupKey][]int),
		planWeek:   planWeeks(p.Meetings*strategy.RoundsPerCycle(len(order)), p.Weeks),
		pending:    pending,
		perPair:    make(map[matchupKey]int),
		rejections: make(map[rejectionReason]int),
	}
	for w := range s.used {
		s.used[w] = make(map[league.TeamID]bool)
	}
	for _, g := range pending {
		s.perPair[normalizeMatchup(g.Home, g.Away)]++
	}
	return s
}

// planWeeks spreads rounds over weeks, interleaving spare weeks evenly.
func planWeeks(rounds, weeks int) map[int]int {
	extra := weeks - rounds
	m := make(map[int]int, rounds)
	for r := 0; r < rounds; r++ {
		m[r] = r + r*extra/rounds
	}
	return m
}

func (s *scheduler) allocate() {
	for w := 0; w < s.p.Weeks; w++ {
		s.placePlanned(w)
		s.placeGreedy(w)
	}
	s.leftover = append([]strategy.Game(nil), s.pending...)
}

// placePlanned places the matchups the rotation plan assigned to week w.
func (s *scheduler) placePlanned(w int) {
	for i := 0; i < len(s.pending); {
		g := s.pending[i]
		if s.planWeek[g.Round] == w {
			if _, ok := s.legal(g, w); ok {
				s.place(i, w)
				continue
			}
		}
		i++
	}
}

// placeGreedy pairs teams still free in week w, fewest scheduled games
// first with ties broken by team id, each with the legal partner whose
// matchup is planned earliest.
func (s *scheduler) placeGreedy(w int) {
	free := make([]league.TeamID, 0, len(s.teams))
	for _, t := range s.teams {
		if !s.used[w][t] {
			free = append(free, t)
		}
	}
	sort.SliceStable(free, func(i, j int) bool {
		gi, gj := s.games[free[i]], s.games[free[j]]
		if gi != gj {
			return gi < gj
		}
		return free[i] < free[j]
	})

	for _, team := range free {
		if s.used[w][team] {
			continue
		}
		best := -1
		for i, g := range s.pending {
			if g.Home != team && g.Away != team {
				continue
			}
			if reason, ok := s.legal(g, w); !ok {
				s.rejections[reason]++
				continue
			}
			if !s.nextMeetingFits(g, w) {
				s.rejections[rejectMinGap]++
				continue
			}
			if best < 0 || s.preferred(team, g, s.pending[best]) {
				best = i
			}
		}
		if best >= 0 {
			s.place(best, w)
		}
	}
}

func (s *scheduler) preferred(team league.TeamID, a, b strategy.Game) bool {
	if a.Round != b.Round {
		return a.Round < b.Round
	}
	oa, ob := opponent(a, team), opponent(b, team)
	if s.games[oa] != s.games[ob] {
		return s.games[oa] < s.games[ob]
	}
	return oa < ob
}

func opponent(g strategy.Game, team league.TeamID) league.TeamID {
	if g.Home == team {
		return g.Away
	}
	return g.Home
}

func (s *scheduler) legal(g strategy.Game, w int) (rejectionReason, bool) {
	if s.used[w][g.Home] || s.used[w][g.Away] {
		return rejectTeamUsed, false
	}
	mk := normalizeMatchup(g.Home, g.Away)
	if s.perPair[mk] == 0 {
		return rejectMeetingsExhausted, false
	}
	if s.p.MinGap > 0 {
		for _, met := range s.meetings[mk] {
			if abs(w-met) < s.p.MinGap {
				return rejectMinGap, false
			}
		}
	}
	return 0, true
}

// nextMeetingFits rejects pulling a meeting forward when that would crowd
// the pair's next planned meeting.
func (s *scheduler) nextMeetingFits(g strategy.Game, w int) bool {
	if s.p.MinGap == 0 {
		return true
	}
	mk := normalizeMatchup(g.Home, g.Away)
	for _, other := range s.pending {
		if other.Label == g.Label || normalizeMatchup(other.Home, other.Away) != mk {
			continue
		}
		if abs(s.planWeek[other.Round]-w) < s.p.MinGap {
			return false
		}
	}
	return true
}

func (s *scheduler) place(i, w int) {
	g := s.pending[i]
	s.pending = append(s.pending[:i], s.pending[i+1:]...)
	s.weeks[w] = append(s.weeks[w], g)
	s.used[w][g.Home] = true
	s.used[w][g.Away] = true
	s.games[g.Home]++
	s.games[g.Away]++
	mk := normalizeMatchup(g.Home, g.Away)
	s.meetings[mk] = append(s.meetings[mk], w)
	s.perPair[mk]--
}

// toSchedule converts the allocation to a league schedule. Matchups the
// allocator could not place go into the week where they collide least,
// leaving conflicts for FixScheduleCompletely.
func (s *scheduler) toSchedule() *league.Schedule {
	sched := &league.Schedule{Weeks: make([]league.Week, s.p.Weeks)}
	load := make([]map[league.TeamID]int, s.p.Weeks)
	for w := range s.weeks {
		sched.Weeks[w].Number = w + 1
		load[w] = make(map[league.TeamID]int)
		for _, g := range s.weeks[w] {
			sched.Weeks[w].Games = append(sched.Weeks[w].Games, league.Game{Home: g.Home, Away: g.Away})
			load[w][g.Home]++
			load[w][g.Away]++
		}
	}
	for _, g := range s.leftover {
		best := 0
		for w := 1; w < s.p.Weeks; w++ {
			if load[w][g.Home]+load[w][g.Away] < load[best][g.Home]+load[best][g.Away] {
				best = w
			}
		}
		sched.Weeks[best].Games = append(sched.Weeks[best].Games, league.Game{Home: g.Home, Away: g.Away})
		load[best][g.Home]++
		load[best][g.Away]++
	}
	return sched
}

func buildMetrics(sched *league.Schedule, teams []league.TeamID) ([]string, map[league.TeamID]*TeamMetrics) {
	var warnings []string
	metrics := make(map[league.TeamID]*TeamMetrics, len(teams))
	for _, t := range teams {
		metrics[t] = &TeamMetrics{}
	}

	for _, week := range sched.Weeks {
		for _, g := range week.Games {
			if g.IsBye() {
				for _, t := range g.Bye {
					metrics[t].Byes++
				}
				continue
			}
			metrics[g.Home].Games++
			metrics[g.Home].Home++
			metrics[g.Away].Games++
			metrics[g.Away].Away++
		}
	}

	// Home/away balance
	for _, t := range teams {
		m := metrics[t]
		if abs(m.Home-m.Away) > 2 {
			warnings = append(warnings, fmt.Sprintf("team %d home/away imbalance: %d home, %d away", t, m.Home, m.Away))
		}
	}

	// Back-to-back byes
	for _, t := range teams {
		run := 0
		for _, week := range sched.Weeks {
			if onBye(week, t) {
				run++
				if run == 2 {
					warnings = append(warnings, fmt.Sprintf("team %d has consecutive byes ending week %d", t, week.Number))
				}
				continue
			}
			run = 0
		}
	}

	return warnings, metrics
}

func onBye(week league.Week, team league.TeamID) bool {
	for _, g := range week.Games {
		if g.IsBye() && g.Involves(team) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
