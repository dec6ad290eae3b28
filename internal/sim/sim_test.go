package sim

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/league"
)

func testTeams(t *testing.T) (*league.Team, *league.Team) {
	t.Helper()
	seed := int64(3)
	cfg := &config.Config{
		Season: config.Season{Name: "test", Weeks: 1, Meetings: 1, Seed: &seed},
		Divisions: []config.Division{
			{Name: "East", Teams: []config.Team{{Abbr: "HOM", Strength: 75}, {Abbr: "AWY", Strength: 65}}},
		},
	}
	l, err := league.New(cfg)
	if err != nil {
		t.Fatalf("league.New() error: %v", err)
	}
	return l.Teams[0], l.Teams[1]
}

// benched rules the listed players out and leaves everyone else nominal.
type benched map[league.PlayerID]bool

func (b benched) IsEligibleToPlay(p *league.Player) bool { return !b[p.ID] }

func (b benched) EffectiveRating(p *league.Player) float64 {
	if b[p.ID] {
		return 0
	}
	return float64(p.Ovr)
}

func seeded(seed int64, o Options) Options {
	o.Seed = &seed
	return o
}

func TestSimulateScoreMatchesBoxScore(t *testing.T) {
	home, away := testTeams(t)
	sim := New(nil)

	for seed := int64(1); seed <= 100; seed++ {
		res, err := sim.Simulate(home, away, seeded(seed, Options{Overtime: true}))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		for _, team := range []league.TeamID{home.ID, away.ID} {
			score := res.ScoreHome
			if team == away.ID {
				score = res.ScoreAway
			}
			if box := res.BoxPoints(team); box != score {
				t.Errorf("seed %d team %d: box points %d, score %d", seed, team, box, score)
			}
			if logged := res.LogPoints(team); logged != score {
				t.Errorf("seed %d team %d: log points %d, score %d", seed, team, logged, score)
			}
		}
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	home, away := testTeams(t)
	sim := New(nil)

	t.Run("same seed gives identical results", func(t *testing.T) {
		a, err := sim.Simulate(home, away, seeded(42, Options{}))
		if err != nil {
			t.Fatalf("Simulate() error: %v", err)
		}
		b, err := sim.Simulate(home, away, seeded(42, Options{}))
		if err != nil {
			t.Fatalf("Simulate() error: %v", err)
		}
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		if !bytes.Equal(ja, jb) {
			t.Error("results differ for the same seed")
		}
	})

	t.Run("different seeds give different games", func(t *testing.T) {
		a, _ := sim.Simulate(home, away, seeded(1, Options{}))
		b, _ := sim.Simulate(home, away, seeded(2, Options{}))
		ja, _ := json.Marshal(a.Log)
		jb, _ := json.Marshal(b.Log)
		if bytes.Equal(ja, jb) {
			t.Error("seeds 1 and 2 produced the same log")
		}
	})

	t.Run("no seed still simulates", func(t *testing.T) {
		if _, err := sim.Simulate(home, away, Options{}); err != nil {
			t.Errorf("Simulate() error: %v", err)
		}
	})
}

func TestSimulateDoesNotMutateTeams(t *testing.T) {
	home, away := testTeams(t)
	before, _ := json.Marshal([]*league.Team{home, away})

	if _, err := New(nil).Simulate(home, away, seeded(9, Options{Overtime: true})); err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}

	after, _ := json.Marshal([]*league.Team{home, away})
	if !bytes.Equal(before, after) {
		t.Error("teams changed during simulation")
	}
}

func TestSimulateAvailability(t *testing.T) {
	home, away := testTeams(t)
	sim := New(nil)

	t.Run("ineligible players get no stats", func(t *testing.T) {
		out := benched{
			league.PlayerIDFor(home.ID, 1): true,
			league.PlayerIDFor(home.ID, 2): true,
		}
		for seed := int64(1); seed <= 20; seed++ {
			res, err := sim.Simulate(home, away, seeded(seed, Options{Availability: out}))
			if err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			for id := range out {
				if _, ok := res.PlayerStats[id]; ok {
					t.Errorf("seed %d: benched player %d has stats", seed, id)
				}
			}
			for _, p := range res.Log {
				if out[p.PlayerID] {
					t.Errorf("seed %d: benched player %d appears in the log", seed, p.PlayerID)
				}
			}
		}
	})

	t.Run("a team with nobody eligible cannot play", func(t *testing.T) {
		out := benched{}
		for _, p := range away.Roster {
			out[p.ID] = true
		}
		_, err := sim.Simulate(home, away, seeded(1, Options{Availability: out}))
		if !errors.Is(err, ErrNoEligiblePlayers) {
			t.Errorf("err = %v, want ErrNoEligiblePlayers", err)
		}
	})
}

func TestSimulateTermination(t *testing.T) {
	home, away := testTeams(t)
	sim := New(nil)

	t.Run("stops after max plays", func(t *testing.T) {
		res, err := sim.Simulate(home, away, seeded(5, Options{MaxPlays: 20}))
		if err != nil {
			t.Fatalf("Simulate() error: %v", err)
		}
		snaps := 0
		for _, p := range res.Log {
			switch p.Type {
			case league.PlayKickoff, league.PlayExtraPoint, league.PlayTwoPoint, league.PlayDowns:
			default:
				snaps++
			}
		}
		if snaps != 20 {
			t.Errorf("snaps = %d, want 20", snaps)
		}
	})

	t.Run("regulation ends in the fourth quarter", func(t *testing.T) {
		for seed := int64(1); seed <= 20; seed++ {
			res, err := sim.Simulate(home, away, seeded(seed, Options{}))
			if err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			if res.Overtime {
				t.Errorf("seed %d: overtime played while disabled", seed)
			}
			for _, p := range res.Log {
				if p.Quarter < 1 || p.Quarter > 4 {
					t.Fatalf("seed %d: play in quarter %d", seed, p.Quarter)
				}
			}
		}
	})

	t.Run("ties reach overtime when enabled", func(t *testing.T) {
		for seed := int64(1); seed <= 100; seed++ {
			res, err := sim.Simulate(home, away, seeded(seed, Options{Overtime: true}))
			if err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			if res.ScoreHome == res.ScoreAway && !res.Overtime {
				t.Errorf("seed %d: tied %d-%d without overtime", seed, res.ScoreHome, res.ScoreAway)
			}
		}
	})

	t.Run("rejects a team playing itself", func(t *testing.T) {
		if _, err := sim.Simulate(home, home, Options{}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSimulateStampsWeek(t *testing.T) {
	home, away := testTeams(t)
	res, err := New(nil).Simulate(home, away, seeded(1, Options{Week: 4}))
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}
	if res.Week != 4 || res.Home != home.ID || res.Away != away.ID {
		t.Errorf("result header = week %d, %d vs %d", res.Week, res.Home, res.Away)
	}
}
