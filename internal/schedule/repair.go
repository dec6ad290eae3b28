package schedule

import (
	"fmt"
	"sort"

	"github.com/derekprior/gridiron/internal/league"
)

// RepairOptions bound FixScheduleCompletely.
type RepairOptions struct {
	MinGap int
	// Budget is the number of repair passes before giving up.
	Budget int
	// Depth bounds chained displacements. Zero uses the default of 3.
	Depth int
}

// Conflict describes a week in which a team is double-booked, or a
// meeting that comes too soon after another meeting of the same pair.
type Conflict struct {
	Week int // 1-based
	Team league.TeamID
	Game league.Game // set for rematch conflicts
}

func (c Conflict) String() string {
	if c.Game.Home != 0 {
		return fmt.Sprintf("week %d: %d vs %d rematch too soon", c.Week, c.Game.Home, c.Game.Away)
	}
	return fmt.Sprintf("week %d: team %d scheduled more than once", c.Week, c.Team)
}

// TeamCount is the per-team totals a repair must preserve.
type TeamCount struct {
	Games int
	Byes  int
}

// Counts returns per-team game totals and nominal byes (weeks without a
// game). Bye entries in the schedule are ignored so the totals are
// comparable before and after repair.
func Counts(s *league.Schedule) map[league.TeamID]TeamCount {
	games := make(map[league.TeamID]int)
	teams := make(map[league.TeamID]bool)
	for _, w := range s.Weeks {
		for _, g := range w.Games {
			if g.IsBye() {
				for _, t := range g.Bye {
					teams[t] = true
				}
				continue
			}
			games[g.Home]++
			games[g.Away]++
			teams[g.Home] = true
			teams[g.Away] = true
		}
	}
	counts := make(map[league.TeamID]TeamCount, len(teams))
	for t := range teams {
		counts[t] = TeamCount{Games: games[t], Byes: len(s.Weeks) - games[t]}
	}
	return counts
}

// Conflicts lists every double-booking and every rematch closer than
// minGap weeks, in week order.
func Conflicts(s *league.Schedule, minGap int) []Conflict {
	var out []Conflict
	met := make(map[matchupKey][]int)
	for wi, w := range s.Weeks {
		seen := make(map[league.TeamID]int)
		for _, g := range w.Games {
			if g.IsBye() {
				continue
			}
			seen[g.Home]++
			seen[g.Away]++
			mk := normalizeMatchup(g.Home, g.Away)
			met[mk] = append(met[mk], wi)
		}
		teams := make([]league.TeamID, 0, len(seen))
		for t, n := range seen {
			if n > 1 {
				teams = append(teams, t)
			}
		}
		sort.Slice(teams, func(i, j int) bool { return teams[i] < teams[j] })
		for _, t := range teams {
			out = append(out, Conflict{Week: wi + 1, Team: t})
		}
	}
	if minGap > 0 {
		for wi, w := range s.Weeks {
			for _, g := range w.Games {
				if g.IsBye() {
					continue
				}
				for _, other := range met[normalizeMatchup(g.Home, g.Away)] {
					if other < wi && wi-other < minGap {
						out = append(out, Conflict{Week: wi + 1, Team: g.Home, Game: league.Game{Home: g.Home, Away: g.Away}})
						break
					}
				}
			}
		}
	}
	return out
}

// FixScheduleCompletely resolves conflicts by moving games between weeks:
// first to a week where both teams are free, then by swapping with a game
// of another week so both weeks end up valid, then by bounded chains of
// displacements. Moves never add or drop games, so per-team game and bye
// totals are unchanged. Bye entries are rebuilt on return. When conflicts
// remain after the budget the schedule is left in its best state and
// ErrSchedulingInfeasible is returned.
func FixScheduleCompletely(s *league.Schedule, teams []league.TeamID, opts RepairOptions) (int, error) {
	if opts.Budget <= 0 {
		opts.Budget = defaultRepairBudget
	}
	if opts.Depth <= 0 {
		opts.Depth = 3
	}

	r := newRepairer(s, opts)
	for pass := 0; pass < opts.Budget; pass++ {
		conflicts := Conflicts(r.schedule(), opts.MinGap)
		if len(conflicts) == 0 {
			break
		}
		progressed := false
		for _, c := range conflicts {
			if r.resolve(c) {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	r.writeBack(s, teams)
	if remaining := Conflicts(s, opts.MinGap); len(remaining) > 0 {
		return r.moves, fmt.Errorf("%w: %d conflict(s) remain after repair, first: %s",
			ErrSchedulingInfeasible, len(remaining), remaining[0])
	}
	return r.moves, nil
}

// repairer keeps per-week usage counts and per-pair meeting weeks so each
// candidate move is checked in constant time.
type repairer struct {
	opts  RepairOptions
	weeks [][]league.Game
	used  []map[league.TeamID]int
	met   map[matchupKey][]int
	moves int
}

func newRepairer(s *league.Schedule, opts RepairOptions) *repairer {
	r := &repairer{
		opts:  opts,
		weeks: make([][]league.Game, len(s.Weeks)),
		used:  make([]map[league.TeamID]int, len(s.Weeks)),
		met:   make(map[matchupKey][]int),
	}
	for wi, w := range s.Weeks {
		r.used[wi] = make(map[league.TeamID]int)
		for _, g := range w.Games {
			if g.IsBye() {
				continue
			}
			r.add(wi, g)
		}
	}
	return r
}

func (r *repairer) schedule() *league.Schedule {
	s := &league.Schedule{Weeks: make([]league.Week, len(r.weeks))}
	for wi, games := range r.weeks {
		s.Weeks[wi] = league.Week{Number: wi + 1, Games: games}
	}
	return s
}

func (r *repairer) writeBack(s *league.Schedule, teams []league.TeamID) {
	for wi, games := range r.weeks {
		var byes []league.TeamID
		for _, t := range teams {
			if r.used[wi][t] == 0 {
				byes = append(byes, t)
			}
		}
		week := league.Week{Number: wi + 1, Games: append([]league.Game(nil), games...)}
		if len(byes) > 0 {
			week.Games = append(week.Games, league.Game{Bye: byes})
		}
		s.Weeks[wi] = week
	}
}

func (r *repairer) add(w int, g league.Game) {
	r.weeks[w] = append(r.weeks[w], league.Game{Home: g.Home, Away: g.Away, Played: g.Played})
	r.used[w][g.Home]++
	r.used[w][g.Away]++
	mk := normalizeMatchup(g.Home, g.Away)
	r.met[mk] = append(r.met[mk], w)
}

func (r *repairer) remove(w, i int) league.Game {
	g := r.weeks[w][i]
	r.weeks[w] = append(r.weeks[w][:i], r.weeks[w][i+1:]...)
	r.used[w][g.Home]--
	r.used[w][g.Away]--
	mk := normalizeMatchup(g.Home, g.Away)
	weeks := r.met[mk]
	for j, met := range weeks {
		if met == w {
			r.met[mk] = append(weeks[:j], weeks[j+1:]...)
			break
		}
	}
	return g
}

func (r *repairer) indexOf(w int, g league.Game) int {
	for i, x := range r.weeks[w] {
		if x.Home == g.Home && x.Away == g.Away {
			return i
		}
	}
	return -1
}

// gapOK reports whether g's pair could meet in week w without coming
// within MinGap of its other meetings. skip is the week g is leaving.
func (r *repairer) gapOK(g league.Game, w, skip int) bool {
	if r.opts.MinGap == 0 {
		return true
	}
	skipped := false
	for _, met := range r.met[normalizeMatchup(g.Home, g.Away)] {
		if met == skip && !skipped {
			skipped = true
			continue
		}
		if abs(w-met) < r.opts.MinGap {
			return false
		}
	}
	return true
}

func (r *repairer) free(w int, g league.Game) bool {
	return r.used[w][g.Home] == 0 && r.used[w][g.Away] == 0
}

// candidates returns the games of week w a conflict could be fixed by
// moving: every game of the double-booked team, or the early rematch.
func (r *repairer) candidates(c Conflict) []league.Game {
	w := c.Week - 1
	if c.Game.Home != 0 {
		if r.indexOf(w, c.Game) >= 0 {
			return []league.Game{c.Game}
		}
		return nil
	}
	if r.used[w][c.Team] < 2 {
		return nil
	}
	var out []league.Game
	for _, g := range r.weeks[w] {
		if g.Home == c.Team || g.Away == c.Team {
			out = append(out, g)
		}
	}
	return out
}

func (r *repairer) resolve(c Conflict) bool {
	w := c.Week - 1
	games := r.candidates(c)
	for _, g := range games {
		if r.moveDirect(w, g) {
			return true
		}
	}
	for _, g := range games {
		if r.swap(w, g) {
			return true
		}
	}
	for _, g := range games {
		if r.displace(w, g, r.opts.Depth) {
			return true
		}
	}
	return false
}

// moveDirect moves g out of week w into the first week where both teams
// are free.
func (r *repairer) moveDirect(w int, g league.Game) bool {
	for v := range r.weeks {
		if v == w || !r.free(v, g) || !r.gapOK(g, v, w) {
			continue
		}
		r.add(v, r.remove(w, r.indexOf(w, g)))
		r.moves++
		return true
	}
	return false
}

// swap exchanges g (week w) with a game h of another week v when, after
// the exchange, neither week double-books a team touched by g or h.
func (r *repairer) swap(w int, g league.Game) bool {
	for v := range r.weeks {
		if v == w {
			continue
		}
		for _, h := range r.weeks[v] {
			if !r.swapFits(w, g, v, h) {
				continue
			}
			r.add(v, r.remove(w, r.indexOf(w, g)))
			r.add(w, r.remove(v, r.indexOf(v, h)))
			r.moves += 2
			return true
		}
	}
	return false
}

func (r *repairer) swapFits(w int, g league.Game, v int, h league.Game) bool {
	in := func(x league.TeamID, game league.Game) int {
		if game.Home == x || game.Away == x {
			return 1
		}
		return 0
	}
	for _, x := range []league.TeamID{g.Home, g.Away, h.Home, h.Away} {
		if r.used[v][x]-in(x, h)+in(x, g) > 1 {
			return false
		}
		if r.used[w][x]-in(x, g)+in(x, h) > 1 {
			return false
		}
	}
	if normalizeMatchup(g.Home, g.Away) == normalizeMatchup(h.Home, h.Away) {
		return false
	}
	return r.gapOK(g, v, w) && r.gapOK(h, w, v)
}

// displace places g in a week where exactly one game blocks it, then
// re-places the blocker elsewhere, up to depth levels deep.
func (r *repairer) displace(w int, g league.Game, depth int) bool {
	if depth <= 0 {
		return false
	}
	for v := range r.weeks {
		if v == w || !r.gapOK(g, v, w) {
			continue
		}
		blocker := -1
		blocked := false
		for i, h := range r.weeks[v] {
			if h.Home == g.Home || h.Home == g.Away || h.Away == g.Home || h.Away == g.Away {
				if blocker >= 0 {
					blocked = true
					break
				}
				blocker = i
			}
		}
		if blocked || blocker < 0 {
			continue
		}

		victim := r.remove(v, blocker)
		if !r.free(v, g) {
			r.add(v, victim)
			continue
		}
		r.add(v, r.remove(w, r.indexOf(w, g)))
		r.moves++

		// The victim goes back into v alongside g so it can be moved out
		// like any other double-booked game.
		r.add(v, victim)
		if r.moveDirect(v, victim) || r.displace(v, victim, depth-1) {
			return true
		}

		// Undo: victim stays in v, g goes back to w.
		r.add(w, r.remove(v, r.indexOf(v, g)))
		r.moves--
	}
	return false
}
