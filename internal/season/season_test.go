package season

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/schedule"
	"github.com/derekprior/gridiron/internal/sim"
)

// testLeague builds a four-team single round robin over three weeks.
func testLeague(t *testing.T) *league.League {
	t.Helper()
	seed := int64(11)
	cfg := &config.Config{
		Season: config.Season{Name: "test", Weeks: 3, Meetings: 1, Seed: &seed},
		Divisions: []config.Division{
			{Name: "North", Teams: []config.Team{{Abbr: "NOR", Strength: 72}, {Abbr: "EST", Strength: 64}}},
			{Name: "South", Teams: []config.Team{{Abbr: "SOU", Strength: 68}, {Abbr: "WST", Strength: 70}}},
		},
	}
	l, err := league.New(cfg)
	if err != nil {
		t.Fatalf("league.New() error: %v", err)
	}
	res, err := schedule.Generate(l.TeamIDs(), schedule.Params{Weeks: 3, Meetings: 1})
	if err != nil {
		t.Fatalf("schedule.Generate() error: %v", err)
	}
	l.SetSchedule(*res.Schedule)
	return l
}

func clone(t *testing.T, l *league.League) *league.League {
	t.Helper()
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out league.League
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &out
}

func snapshot(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func simulateRef(t *testing.T, l *league.League, ref league.GameRef, seed int64) *league.GameResult {
	t.Helper()
	g := l.Schedule.Entry(ref)
	res, err := sim.New(nil).Simulate(l.Team(g.Home), l.Team(g.Away), sim.Options{Seed: &seed, Week: ref.Week})
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}
	return res
}

func seedPtr(v int64) *int64 { return &v }

func TestCommitIsIdempotent(t *testing.T) {
	l := testLeague(t)
	ref := league.GameRef{Week: 1, GameIndex: 0}
	res := simulateRef(t, l, ref, 5)
	c := NewCommitter(nil)

	ok, err := c.Commit(l, nil, res)
	if err != nil || !ok {
		t.Fatalf("first commit = %v, %v", ok, err)
	}
	once := snapshot(t, l)

	ok, err = c.Commit(l, nil, res)
	if err != nil {
		t.Fatalf("second commit error: %v", err)
	}
	if ok {
		t.Error("second commit reported a change")
	}
	if !bytes.Equal(once, snapshot(t, l)) {
		t.Error("second commit changed league state")
	}
	if len(l.ResultsByWeek[0]) != 1 {
		t.Errorf("week 1 results = %d, want 1", len(l.ResultsByWeek[0]))
	}
	if !l.Schedule.Entry(ref).Played {
		t.Error("schedule entry not marked played")
	}
}

func TestCommitIndexMatchesScan(t *testing.T) {
	base := testLeague(t)
	res := simulateRef(t, base, league.GameRef{Week: 2, GameIndex: 1}, 8)

	scanned := clone(t, base)
	indexed := clone(t, base)
	c := NewCommitter(nil)
	if _, err := c.Commit(scanned, nil, res); err != nil {
		t.Fatalf("scan commit: %v", err)
	}
	if _, err := c.Commit(indexed, NewIndex(indexed), res); err != nil {
		t.Fatalf("indexed commit: %v", err)
	}
	if !bytes.Equal(snapshot(t, scanned), snapshot(t, indexed)) {
		t.Error("indexed and scanned commits diverged")
	}
}

func TestCommitLookupMiss(t *testing.T) {
	l := testLeague(t)
	entry := l.Schedule.Weeks[0].Games[0]
	before := snapshot(t, l)
	c := NewCommitter(nil)

	for _, tc := range []struct {
		name string
		res  *league.GameResult
		want error
	}{
		{"unknown team", &league.GameResult{Week: 1, Home: 99, Away: entry.Away}, ErrTeamNotFound},
		{"venue not scheduled", &league.GameResult{Week: 1, Home: entry.Away, Away: entry.Home}, ErrGameNotFound},
		{"week out of range", &league.GameResult{Week: 9, Home: entry.Home, Away: entry.Away}, ErrGameNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, idx := range []*Index{nil, NewIndex(l)} {
				ok, err := c.Commit(l, idx, tc.res)
				if ok || !errors.Is(err, tc.want) {
					t.Errorf("Commit() = %v, %v; want %v", ok, err, tc.want)
				}
			}
			if !bytes.Equal(before, snapshot(t, l)) {
				t.Error("league changed on a lookup miss")
			}
		})
	}
}

func TestCommitRecordsAndStats(t *testing.T) {
	l := testLeague(t)
	entry := l.Schedule.Weeks[0].Games[0]
	home, away := l.Team(entry.Home), l.Team(entry.Away)
	qb := league.PlayerIDFor(home.ID, 1)

	res := &league.GameResult{
		Week:      1,
		Home:      home.ID,
		Away:      away.ID,
		ScoreHome: 10,
		ScoreAway: 10,
		PlayerStats: map[league.PlayerID]league.GameStats{
			qb: {TeamID: home.ID, Games: 1, PassYd: 100, PassInt: 1},
		},
	}
	if _, err := NewCommitter(nil).Commit(l, nil, res); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	t.Run("a tie counts for both teams", func(t *testing.T) {
		if home.Record.Ties != 1 || away.Record.Ties != 1 {
			t.Errorf("records = %s, %s", home.Record, away.Record)
		}
	})

	t.Run("team season stats", func(t *testing.T) {
		s := home.SeasonStats
		if s.Games != 1 || s.PointsFor != 10 || s.PointsAgainst != 10 || s.PassYd != 100 || s.Turnovers != 1 {
			t.Errorf("home season stats = %+v", s)
		}
	})

	t.Run("player season stats", func(t *testing.T) {
		p := home.Player(qb)
		if p.Stats.Season.Games != 1 || p.Stats.Season.PassYd != 100 {
			t.Errorf("player season = %+v", p.Stats.Season)
		}
	})
}

func TestCommitWinnerAndLoser(t *testing.T) {
	l := testLeague(t)
	entry := l.Schedule.Weeks[0].Games[0]
	res := &league.GameResult{Week: 1, Home: entry.Home, Away: entry.Away, ScoreHome: 3, ScoreAway: 17}
	if _, err := NewCommitter(nil).Commit(l, nil, res); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if r := l.Team(entry.Away).Record; r.Wins != 1 || r.Losses != 0 {
		t.Errorf("away record = %s, want 1-0", r)
	}
	if r := l.Team(entry.Home).Record; r.Wins != 0 || r.Losses != 1 {
		t.Errorf("home record = %s, want 0-1", r)
	}
}

func newCoordinator() *Coordinator {
	return NewCoordinator(sim.New(nil), NewCommitter(nil), nil)
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("commits in schedule order", func(t *testing.T) {
		l := testLeague(t)
		refs := append(l.Schedule.Refs(2), l.Schedule.Refs(1)...)
		sort.Slice(refs, func(i, j int) bool { return refs[i].GameIndex > refs[j].GameIndex })

		b, err := newCoordinator().RunBatch(ctx, l, refs, Options{Seed: seedPtr(1)})
		if err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		if len(b.Results) != 4 {
			t.Fatalf("results = %d, want 4", len(b.Results))
		}
		for i := 1; i < len(b.ScheduleUpdates); i++ {
			prev, cur := b.ScheduleUpdates[i-1], b.ScheduleUpdates[i]
			if prev.Week > cur.Week || (prev.Week == cur.Week && prev.GameIndex > cur.GameIndex) {
				t.Errorf("updates out of order: %v before %v", prev, cur)
			}
		}
		for i, ref := range b.ScheduleUpdates {
			if !l.Schedule.Entry(ref).Played {
				t.Errorf("%v not marked played", ref)
			}
			if b.Results[i].Week != ref.Week {
				t.Errorf("result %d is week %d, update is week %d", i, b.Results[i].Week, ref.Week)
			}
		}
		if len(b.UpdatedTeams) != 4 {
			t.Errorf("updated teams = %v, want all four", b.UpdatedTeams)
		}
	})

	t.Run("outcomes do not depend on batch composition", func(t *testing.T) {
		alone := testLeague(t)
		full := testLeague(t)
		ref := league.GameRef{Week: 1, GameIndex: 1}

		a, err := newCoordinator().RunBatch(ctx, alone, []league.GameRef{ref}, Options{Seed: seedPtr(3)})
		if err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		b, err := newCoordinator().RunBatch(ctx, full, full.Schedule.Refs(1), Options{Seed: seedPtr(3)})
		if err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		var match *league.GameResult
		for i := range b.Results {
			if b.ScheduleUpdates[i] == ref {
				match = &b.Results[i]
			}
		}
		if match == nil {
			t.Fatal("game missing from full batch")
		}
		if !bytes.Equal(snapshot(t, a.Results[0]), snapshot(t, match)) {
			t.Error("same game differs between batches")
		}
	})

	t.Run("index and scan produce the same league", func(t *testing.T) {
		base := testLeague(t)
		withIndex, withScan := clone(t, base), clone(t, base)
		if _, err := newCoordinator().RunBatch(ctx, withIndex, withIndex.Schedule.Refs(1), Options{Seed: seedPtr(4)}); err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		if _, err := newCoordinator().RunBatch(ctx, withScan, withScan.Schedule.Refs(1), Options{Seed: seedPtr(4), Linear: true}); err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		if !bytes.Equal(snapshot(t, withIndex), snapshot(t, withScan)) {
			t.Error("index changed the outcome")
		}
	})

	t.Run("league carries no lookup state afterwards", func(t *testing.T) {
		l := testLeague(t)
		if _, err := newCoordinator().RunBatch(ctx, l, l.Schedule.Refs(1), Options{Seed: seedPtr(2)}); err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(snapshot(t, l), &fields); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		want := map[string]bool{"name": true, "teams": true, "schedule": true, "week": true, "resultsByWeek": true}
		for k := range fields {
			if !want[k] {
				t.Errorf("unexpected league key %q", k)
			}
		}
	})

	t.Run("unknown refs become diagnostics", func(t *testing.T) {
		l := testLeague(t)
		refs := append(l.Schedule.Refs(1), league.GameRef{Week: 1, GameIndex: 99})
		b, err := newCoordinator().RunBatch(ctx, l, refs, Options{Seed: seedPtr(6)})
		if err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		if len(b.Diagnostics) != 1 || b.Diagnostics[0].Ref.GameIndex != 99 {
			t.Errorf("diagnostics = %+v", b.Diagnostics)
		}
		if len(b.Results) != 2 {
			t.Errorf("results = %d, want 2", len(b.Results))
		}
	})

	t.Run("played games are skipped", func(t *testing.T) {
		l := testLeague(t)
		c := newCoordinator()
		if _, err := c.RunBatch(ctx, l, l.Schedule.Refs(1), Options{Seed: seedPtr(6)}); err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		b, err := c.RunBatch(ctx, l, l.Schedule.Refs(1), Options{Seed: seedPtr(6)})
		if err != nil {
			t.Fatalf("RunBatch() error: %v", err)
		}
		if len(b.Results) != 0 || len(l.ResultsByWeek[0]) != 2 {
			t.Errorf("rerun committed %d results, week holds %d", len(b.Results), len(l.ResultsByWeek[0]))
		}
	})

	t.Run("cancelled context stops before committing", func(t *testing.T) {
		l := testLeague(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		b, err := newCoordinator().RunBatch(cctx, l, l.Schedule.Refs(1), Options{Seed: seedPtr(1)})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if len(b.Results) != 0 || len(l.ResultsByWeek[0]) != 0 {
			t.Error("games committed after cancellation")
		}
	})
}

func TestRunWeeks(t *testing.T) {
	ctx := context.Background()
	l := testLeague(t)
	c := newCoordinator()

	b, err := c.RunWeeks(ctx, l, Options{Seed: seedPtr(9), StopAt: 2})
	if err != nil {
		t.Fatalf("RunWeeks() error: %v", err)
	}
	if l.Week != 3 || b.Week != 3 {
		t.Errorf("week = %d (batch %d), want 3", l.Week, b.Week)
	}
	if len(b.Results) != 4 {
		t.Errorf("results = %d, want 4", len(b.Results))
	}

	b, err = c.RunWeeks(ctx, l, Options{Seed: seedPtr(9)})
	if err != nil {
		t.Fatalf("RunWeeks() error: %v", err)
	}
	if len(b.Results) != 2 || !l.Finished() {
		t.Errorf("final week: %d results, finished %v", len(b.Results), l.Finished())
	}

	b, err = c.RunWeeks(ctx, l, Options{Seed: seedPtr(9)})
	if err != nil || len(b.Results) != 0 {
		t.Errorf("finished season rerun = %d results, %v", len(b.Results), err)
	}

	games := 0
	for _, team := range l.Teams {
		r := team.Record
		games += r.Wins + r.Losses + r.Ties
		if team.SeasonStats.Games != 3 {
			t.Errorf("%s played %d games, want 3", team.Abbr, team.SeasonStats.Games)
		}
	}
	if games != 12 {
		t.Errorf("record entries = %d, want 12", games)
	}
}

func TestResultID(t *testing.T) {
	a := ResultID("test", &league.GameResult{Week: 1, Home: 1, Away: 2})
	if a != ResultID("test", &league.GameResult{Week: 1, Home: 1, Away: 2, ScoreHome: 7}) {
		t.Error("id should depend only on league, week and matchup")
	}
	if a == ResultID("test", &league.GameResult{Week: 2, Home: 1, Away: 2}) {
		t.Error("different weeks share an id")
	}
}

func TestStandings(t *testing.T) {
	l := testLeague(t)
	set := func(abbr string, w, lo, pf, pa int) {
		for _, team := range l.Teams {
			if team.Abbr == abbr {
				team.Record = league.Record{Wins: w, Losses: lo}
				team.SeasonStats.PointsFor = pf
				team.SeasonStats.PointsAgainst = pa
			}
		}
	}
	set("NOR", 2, 1, 60, 50)
	set("EST", 2, 1, 70, 40)
	set("SOU", 3, 0, 30, 20)
	set("WST", 0, 3, 10, 60)

	var got []string
	for _, row := range Standings(l) {
		got = append(got, row.Team.Abbr)
	}
	if want := "[SOU EST NOR WST]"; fmt.Sprint(got) != want {
		t.Errorf("standings = %v, want %s", got, want)
	}

	order, groups := DivisionStandings(l)
	if fmt.Sprint(order) != "[North South]" {
		t.Errorf("division order = %v", order)
	}
	if len(groups["North"]) != 2 || groups["North"][0].Team.Abbr != "EST" {
		t.Errorf("north = %+v", groups["North"])
	}
}
