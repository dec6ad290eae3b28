package strategy

import (
	"testing"

	"github.com/derekprior/gridiron/internal/league"
)

func teamIDs(n int) []league.TeamID {
	ids := make([]league.TeamID, n)
	for i := range ids {
		ids[i] = league.TeamID(i + 1)
	}
	return ids
}

type pair struct{ a, b league.TeamID }

func normalize(a, b league.TeamID) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

func TestRoundRobinMatchups(t *testing.T) {
	for _, tc := range []struct {
		teams    int
		meetings int
	}{
		{4, 1}, {6, 2}, {5, 1}, {7, 2}, {8, 3},
	} {
		s := &RoundRobin{Meetings: tc.meetings}
		teams := teamIDs(tc.teams)
		games := s.GenerateMatchups(teams)

		t.Run("total game count", func(t *testing.T) {
			want := tc.meetings * tc.teams * (tc.teams - 1) / 2
			if len(games) != want {
				t.Errorf("%d teams x%d: games = %d, want %d", tc.teams, tc.meetings, len(games), want)
			}
		})

		t.Run("every pair meets the configured number of times", func(t *testing.T) {
			counts := make(map[pair]int)
			for _, g := range games {
				if g.Home == g.Away {
					t.Fatalf("team %d plays itself", g.Home)
				}
				counts[normalize(g.Home, g.Away)]++
			}
			for i := 0; i < tc.teams; i++ {
				for j := i + 1; j < tc.teams; j++ {
					p := normalize(teams[i], teams[j])
					if counts[p] != tc.meetings {
						t.Errorf("%d vs %d = %d meetings, want %d", p.a, p.b, counts[p], tc.meetings)
					}
				}
			}
		})

		t.Run("rounds are disjoint pairings", func(t *testing.T) {
			seen := make(map[int]map[league.TeamID]bool)
			for _, g := range games {
				if seen[g.Round] == nil {
					seen[g.Round] = make(map[league.TeamID]bool)
				}
				for _, team := range []league.TeamID{g.Home, g.Away} {
					if seen[g.Round][team] {
						t.Errorf("team %d appears twice in round %d", team, g.Round)
					}
					seen[g.Round][team] = true
				}
			}
			if len(seen) != tc.meetings*RoundsPerCycle(tc.teams) {
				t.Errorf("rounds = %d, want %d", len(seen), tc.meetings*RoundsPerCycle(tc.teams))
			}
		})

		t.Run("home/away roughly balanced", func(t *testing.T) {
			home := make(map[league.TeamID]int)
			away := make(map[league.TeamID]int)
			for _, g := range games {
				home[g.Home]++
				away[g.Away]++
			}
			for _, team := range teams {
				diff := home[team] - away[team]
				if diff < -2 || diff > 2 {
					t.Errorf("team %d home/away imbalance: %d home, %d away", team, home[team], away[team])
				}
			}
		})

		t.Run("each game has a label", func(t *testing.T) {
			seen := make(map[string]bool)
			for _, g := range games {
				if g.Label == "" {
					t.Error("game has empty label")
				}
				if seen[g.Label] {
					t.Errorf("duplicate label: %s", g.Label)
				}
				seen[g.Label] = true
			}
		})
	}
}

func TestRoundRobinSecondCycleFlipsVenue(t *testing.T) {
	s := &RoundRobin{Meetings: 2}
	games := s.GenerateMatchups(teamIDs(4))
	venues := make(map[pair][]league.TeamID)
	for _, g := range games {
		p := normalize(g.Home, g.Away)
		venues[p] = append(venues[p], g.Home)
	}
	for p, homes := range venues {
		if len(homes) != 2 || homes[0] == homes[1] {
			t.Errorf("%d vs %d hosted by %v, want one each", p.a, p.b, homes)
		}
	}
}

func TestGet(t *testing.T) {
	if _, err := Get("round_robin", 2); err != nil {
		t.Errorf("Get(round_robin) error: %v", err)
	}
	if _, err := Get("round_robin", 0); err == nil {
		t.Error("expected error for zero meetings")
	}
	if _, err := Get("division_weighted", 1); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
