package config

import (
	"log/slog"
	"testing"
	"time"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

const testConfigYAML = `
season:
  name: "2026"
  start_date: "2026-09-10"
  weeks: 7
  meetings: 1
  min_weeks_between_meetings: 3
  seed: 42

divisions:
  - name: East
    teams:
      - {abbr: BOS, name: Boston, strength: 80}
      - {abbr: NYC, name: New York}
      - {abbr: PHI, name: Philadelphia, strength: 65}
      - {abbr: WAS, name: Washington}
  - name: West
    teams:
      - {abbr: SEA, name: Seattle}
      - {abbr: SFO, name: San Francisco, strength: 85}
      - {abbr: LAX, name: Los Angeles}
      - {abbr: DEN, name: Denver}

simulation:
  max_plays: 160
  overtime: true

injuries:
  - player: 101
    out: true
    reason: "Torn ACL"
  - player: 205
    rating_factor: 0.75
    reason: "Hamstring"
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("season", func(t *testing.T) {
		if cfg.Season.Name != "2026" {
			t.Errorf("name = %q, want %q", cfg.Season.Name, "2026")
		}
		if cfg.Season.Weeks != 7 {
			t.Errorf("weeks = %d, want 7", cfg.Season.Weeks)
		}
		if cfg.Season.Meetings != 1 {
			t.Errorf("meetings = %d, want 1", cfg.Season.Meetings)
		}
		if cfg.Season.MinWeeksBetweenMeetings != 3 {
			t.Errorf("min weeks = %d, want 3", cfg.Season.MinWeeksBetweenMeetings)
		}
		if cfg.Season.Seed == nil || *cfg.Season.Seed != 42 {
			t.Errorf("seed = %v, want 42", cfg.Season.Seed)
		}
	})

	t.Run("week dates", func(t *testing.T) {
		if got := cfg.Season.WeekDate(1); got != mustDate("2026-09-10") {
			t.Errorf("week 1 = %v, want 2026-09-10", got)
		}
		if got := cfg.Season.WeekDate(3); got != mustDate("2026-09-24") {
			t.Errorf("week 3 = %v, want 2026-09-24", got)
		}
	})

	t.Run("divisions", func(t *testing.T) {
		if len(cfg.Divisions) != 2 {
			t.Fatalf("divisions = %d, want 2", len(cfg.Divisions))
		}
		if cfg.Divisions[0].Name != "East" {
			t.Errorf("division name = %q, want %q", cfg.Divisions[0].Name, "East")
		}
		if cfg.DivisionOf("SFO") != "West" {
			t.Errorf("DivisionOf(SFO) = %q, want West", cfg.DivisionOf("SFO"))
		}
	})

	t.Run("strength defaults", func(t *testing.T) {
		teams := cfg.AllTeams()
		if teams[0].Strength != 80 {
			t.Errorf("BOS strength = %d, want 80", teams[0].Strength)
		}
		if teams[1].Strength != defaultStrength {
			t.Errorf("NYC strength = %d, want default %d", teams[1].Strength, defaultStrength)
		}
	})

	t.Run("strategy defaults to round robin", func(t *testing.T) {
		if cfg.Strategy != "round_robin" {
			t.Errorf("strategy = %q, want round_robin", cfg.Strategy)
		}
	})

	t.Run("simulation", func(t *testing.T) {
		if cfg.Simulation.MaxPlays != 160 {
			t.Errorf("max plays = %d, want 160", cfg.Simulation.MaxPlays)
		}
		if !cfg.Simulation.Overtime {
			t.Error("overtime should be true")
		}
	})

	t.Run("injuries", func(t *testing.T) {
		if len(cfg.Injuries) != 2 {
			t.Fatalf("injuries = %d, want 2", len(cfg.Injuries))
		}
		if !cfg.Injuries[0].Out {
			t.Error("player 101 should be out")
		}
		if cfg.Injuries[0].RatingFactor != 1 {
			t.Errorf("default rating factor = %v, want 1", cfg.Injuries[0].RatingFactor)
		}
		if cfg.Injuries[1].RatingFactor != 0.75 {
			t.Errorf("rating factor = %v, want 0.75", cfg.Injuries[1].RatingFactor)
		}
	})
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no weeks",
			yaml: `
season:
  weeks: 0
divisions:
  - name: A
    teams: [{abbr: T1}, {abbr: T2}]
`,
		},
		{
			name: "no divisions",
			yaml: `
season:
  weeks: 3
divisions: []
`,
		},
		{
			name: "duplicate team abbr",
			yaml: `
season:
  weeks: 3
divisions:
  - name: A
    teams: [{abbr: BOS}, {abbr: NYC}]
  - name: B
    teams: [{abbr: BOS}, {abbr: SEA}]
`,
		},
		{
			name: "single team",
			yaml: `
season:
  weeks: 3
divisions:
  - name: A
    teams: [{abbr: BOS}]
`,
		},
		{
			name: "strength out of range",
			yaml: `
season:
  weeks: 3
divisions:
  - name: A
    teams: [{abbr: BOS, strength: 120}, {abbr: NYC}]
`,
		},
		{
			name: "rating factor out of range",
			yaml: `
season:
  weeks: 3
divisions:
  - name: A
    teams: [{abbr: BOS}, {abbr: NYC}]
injuries:
  - player: 101
    rating_factor: 1.5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromBytes([]byte(tt.yaml)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestAllTeams(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	teams := cfg.AllTeams()
	if len(teams) != 8 {
		t.Errorf("AllTeams() = %d teams, want 8", len(teams))
	}
}

func TestLoadRuntime(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		rt, err := LoadRuntime()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rt.DBPath != "gridiron.db" {
			t.Errorf("db path = %q, want gridiron.db", rt.DBPath)
		}
		if rt.WorkerTimeout != 30*time.Second {
			t.Errorf("worker timeout = %v, want 30s", rt.WorkerTimeout)
		}
		if rt.Level() != slog.LevelInfo {
			t.Errorf("level = %v, want info", rt.Level())
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("GRIDIRON_DB_PATH", "/tmp/season.db")
		t.Setenv("GRIDIRON_LOG_LEVEL", "DEBUG")
		t.Setenv("GRIDIRON_ATTEMPTS", "5")
		rt, err := LoadRuntime()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rt.DBPath != "/tmp/season.db" {
			t.Errorf("db path = %q, want /tmp/season.db", rt.DBPath)
		}
		if rt.Attempts != 5 {
			t.Errorf("attempts = %d, want 5", rt.Attempts)
		}
		if rt.Level() != slog.LevelDebug {
			t.Errorf("level = %v, want debug", rt.Level())
		}
	})

	t.Run("invalid attempts", func(t *testing.T) {
		t.Setenv("GRIDIRON_ATTEMPTS", "0")
		if _, err := LoadRuntime(); err == nil {
			t.Error("expected error for zero attempts")
		}
	})
}
