package validator

import (
	"fmt"
	"sort"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/excel"
	"github.com/derekprior/gridiron/internal/league"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Week    int    // 1-based, 0 when the violation spans the season
	Type    string // "error" or "warning"
	Message string
	Gap     int // for rematch violations: weeks between meetings (0 = not applicable)
}

// Validate reads a schedule workbook and checks it against the config rules.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	l, err := league.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("building league: %w", err)
	}
	abbrs := make(map[string]league.TeamID, len(l.Teams))
	for _, t := range l.Teams {
		abbrs[t.Abbr] = t.ID
	}

	s, err := excel.ReadSchedule(path, abbrs)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	l.SetSchedule(*s)
	return Check(cfg, l), nil
}

// Check validates l's schedule against the config rules. Errors break the
// season's structure; warnings flag a schedule that is legal but uneven.
func Check(cfg *config.Config, l *league.League) []Violation {
	s := &l.Schedule
	var violations []Violation

	// Check hard constraints
	violations = append(violations, checkWeekCount(cfg, s)...)
	violations = append(violations, checkSelfPlay(l, s)...)
	violations = append(violations, checkUnknownTeams(l, s)...)
	violations = append(violations, checkOneActivityPerWeek(l, s)...)
	violations = append(violations, checkMeetings(cfg, l, s)...)

	// Check soft constraints
	violations = append(violations, checkRematchGap(cfg, l, s)...)
	violations = append(violations, checkHomeAwayBalance(l, s)...)
	violations = append(violations, checkConsecutiveByes(l, s)...)

	return violations
}

// HasErrors reports whether any violation is an error.
func HasErrors(violations []Violation) bool {
	for _, v := range violations {
		if v.Type == "error" {
			return true
		}
	}
	return false
}

func checkWeekCount(cfg *config.Config, s *league.Schedule) []Violation {
	if len(s.Weeks) == cfg.Season.Weeks {
		return nil
	}
	return []Violation{{
		Type:    "error",
		Message: fmt.Sprintf("schedule has %d weeks, season has %d", len(s.Weeks), cfg.Season.Weeks),
	}}
}

func checkSelfPlay(l *league.League, s *league.Schedule) []Violation {
	var violations []Violation
	for wi, w := range s.Weeks {
		for _, g := range w.Games {
			if !g.IsBye() && g.Home == g.Away {
				violations = append(violations, Violation{
					Week:    wi + 1,
					Type:    "error",
					Message: fmt.Sprintf("%s is scheduled against itself in week %d", name(l, g.Home), wi+1),
				})
			}
		}
	}
	return violations
}

func checkUnknownTeams(l *league.League, s *league.Schedule) []Violation {
	var violations []Violation
	for wi, w := range s.Weeks {
		for _, g := range w.Games {
			for _, id := range participants(g) {
				if l.Team(id) == nil {
					violations = append(violations, Violation{
						Week:    wi + 1,
						Type:    "error",
						Message: fmt.Sprintf("week %d names unknown team %d", wi+1, id),
					})
				}
			}
		}
	}
	return violations
}

// checkOneActivityPerWeek requires every team to have exactly one game or
// bye in every week.
func checkOneActivityPerWeek(l *league.League, s *league.Schedule) []Violation {
	var violations []Violation
	for wi, w := range s.Weeks {
		counts := make(map[league.TeamID]int)
		for _, g := range w.Games {
			for _, id := range participants(g) {
				counts[id]++
			}
		}
		for _, t := range l.Teams {
			switch n := counts[t.ID]; {
			case n == 0:
				violations = append(violations, Violation{
					Week:    wi + 1,
					Type:    "error",
					Message: fmt.Sprintf("%s has no game or bye in week %d", t.Abbr, wi+1),
				})
			case n > 1:
				violations = append(violations, Violation{
					Week:    wi + 1,
					Type:    "error",
					Message: fmt.Sprintf("%s has %d activities in week %d", t.Abbr, n, wi+1),
				})
			}
		}
	}
	return violations
}

// checkMeetings requires every pair of teams to meet exactly the configured
// number of times, in either venue.
func checkMeetings(cfg *config.Config, l *league.League, s *league.Schedule) []Violation {
	type pair struct{ a, b league.TeamID }
	counts := make(map[pair]int)
	for _, w := range s.Weeks {
		for _, g := range w.Games {
			if g.IsBye() || g.Home == g.Away {
				continue
			}
			a, b := g.Home, g.Away
			if a > b {
				a, b = b, a
			}
			counts[pair{a, b}]++
		}
	}

	var violations []Violation
	for i, ta := range l.Teams {
		for _, tb := range l.Teams[i+1:] {
			a, b := ta.ID, tb.ID
			if a > b {
				a, b = b, a
			}
			if n := counts[pair{a, b}]; n != cfg.Season.Meetings {
				violations = append(violations, Violation{
					Type:    "error",
					Message: fmt.Sprintf("%s and %s meet %d times (want %d)", ta.Abbr, tb.Abbr, n, cfg.Season.Meetings),
				})
			}
		}
	}
	return violations
}

func checkRematchGap(cfg *config.Config, l *league.League, s *league.Schedule) []Violation {
	minGap := cfg.Season.MinWeeksBetweenMeetings
	if minGap <= 0 {
		return nil
	}

	type matchup struct{ a, b league.TeamID }
	var keys []matchup
	matchWeeks := make(map[matchup][]int)
	for wi, w := range s.Weeks {
		for _, g := range w.Games {
			if g.IsBye() {
				continue
			}
			a, b := g.Home, g.Away
			if a > b {
				a, b = b, a
			}
			k := matchup{a, b}
			if _, ok := matchWeeks[k]; !ok {
				keys = append(keys, k)
			}
			matchWeeks[k] = append(matchWeeks[k], wi+1)
		}
	}

	var violations []Violation
	for _, k := range keys {
		weeks := matchWeeks[k]
		for i := 1; i < len(weeks); i++ {
			gap := weeks[i] - weeks[i-1]
			if gap < minGap {
				violations = append(violations, Violation{
					Week: weeks[i],
					Type: "warning",
					Gap:  gap,
					Message: fmt.Sprintf("%s vs %s rematch after %d weeks (min %d): weeks %d and %d",
						name(l, k.a), name(l, k.b), gap, minGap, weeks[i-1], weeks[i]),
				})
			}
		}
	}
	// Sort by severity: smallest gap (worst) first
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Gap < violations[j].Gap
	})
	return violations
}

func checkHomeAwayBalance(l *league.League, s *league.Schedule) []Violation {
	home := make(map[league.TeamID]int)
	away := make(map[league.TeamID]int)
	for _, w := range s.Weeks {
		for _, g := range w.Games {
			if g.IsBye() {
				continue
			}
			home[g.Home]++
			away[g.Away]++
		}
	}

	var violations []Violation
	for _, t := range l.Teams {
		d := home[t.ID] - away[t.ID]
		if d > 2 || d < -2 {
			violations = append(violations, Violation{
				Type:    "warning",
				Message: fmt.Sprintf("%s home/away imbalance: %d home, %d away", t.Abbr, home[t.ID], away[t.ID]),
			})
		}
	}
	return violations
}

func checkConsecutiveByes(l *league.League, s *league.Schedule) []Violation {
	var violations []Violation
	for _, t := range l.Teams {
		run := 0
		for wi, w := range s.Weeks {
			if !onBye(w, t.ID) {
				run = 0
				continue
			}
			run++
			if run == 2 {
				violations = append(violations, Violation{
					Week:    wi + 1,
					Type:    "warning",
					Message: fmt.Sprintf("%s has consecutive byes ending week %d", t.Abbr, wi+1),
				})
			}
		}
	}
	return violations
}

func participants(g league.Game) []league.TeamID {
	if g.IsBye() {
		return g.Bye
	}
	if g.Home == g.Away {
		return []league.TeamID{g.Home}
	}
	return []league.TeamID{g.Home, g.Away}
}

func onBye(w league.Week, team league.TeamID) bool {
	for _, g := range w.Games {
		if g.IsBye() && g.Involves(team) {
			return true
		}
	}
	return false
}

func name(l *league.League, id league.TeamID) string {
	if t := l.Team(id); t != nil {
		return t.Abbr
	}
	return fmt.Sprintf("team %d", id)
}
