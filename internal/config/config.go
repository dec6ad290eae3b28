package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

type Season struct {
	Name                    string `yaml:"name"`
	StartDate               *Date  `yaml:"start_date"`
	Weeks                   int    `yaml:"weeks"`
	Meetings                int    `yaml:"meetings"`
	MinWeeksBetweenMeetings int    `yaml:"min_weeks_between_meetings"`
	Seed                    *int64 `yaml:"seed"`
}

// WeekDate returns the kickoff date of a 1-based week, or the zero time
// when no start date is configured.
func (s Season) WeekDate(week int) time.Time {
	if s.StartDate == nil {
		return time.Time{}
	}
	return s.StartDate.Time.AddDate(0, 0, 7*(week-1))
}

type Team struct {
	Abbr     string `yaml:"abbr"`
	Name     string `yaml:"name"`
	Strength int    `yaml:"strength"`
}

type Division struct {
	Name  string `yaml:"name"`
	Teams []Team `yaml:"teams"`
}

type Simulation struct {
	MaxPlays int  `yaml:"max_plays"`
	Overtime bool `yaml:"overtime"`
}

// Injury marks a player as unavailable or playing at reduced strength.
// Players are addressed by roster id (team index * 100 + slot).
type Injury struct {
	Player       int     `yaml:"player"`
	Out          bool    `yaml:"out"`
	RatingFactor float64 `yaml:"rating_factor"`
	Reason       string  `yaml:"reason"`
}

type Config struct {
	Season     Season     `yaml:"season"`
	Divisions  []Division `yaml:"divisions"`
	Strategy   string     `yaml:"strategy"`
	Simulation Simulation `yaml:"simulation"`
	Injuries   []Injury   `yaml:"injuries"`
}

const (
	defaultStrength = 70
	defaultMaxPlays = 180
)

// AllTeams returns all teams across all divisions in declaration order.
func (c *Config) AllTeams() []Team {
	var teams []Team
	for _, d := range c.Divisions {
		teams = append(teams, d.Teams...)
	}
	return teams
}

// DivisionOf returns the division name of the team with the given abbr.
func (c *Config) DivisionOf(abbr string) string {
	for _, d := range c.Divisions {
		for _, t := range d.Teams {
			if t.Abbr == abbr {
				return d.Name
			}
		}
	}
	return ""
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

func (c *Config) applyDefaults() {
	if c.Season.Meetings == 0 {
		c.Season.Meetings = 1
	}
	if c.Strategy == "" {
		c.Strategy = "round_robin"
	}
	if c.Simulation.MaxPlays == 0 {
		c.Simulation.MaxPlays = defaultMaxPlays
	}
	for di := range c.Divisions {
		for ti := range c.Divisions[di].Teams {
			if c.Divisions[di].Teams[ti].Strength == 0 {
				c.Divisions[di].Teams[ti].Strength = defaultStrength
			}
		}
	}
	for i := range c.Injuries {
		if c.Injuries[i].RatingFactor == 0 {
			c.Injuries[i].RatingFactor = 1
		}
	}
}

func (c *Config) validate() error {
	if c.Season.Weeks <= 0 {
		return fmt.Errorf("season weeks must be positive, got %d", c.Season.Weeks)
	}
	if c.Season.Meetings < 1 {
		return fmt.Errorf("season meetings must be at least 1, got %d", c.Season.Meetings)
	}
	if c.Season.MinWeeksBetweenMeetings < 0 {
		return fmt.Errorf("min_weeks_between_meetings cannot be negative")
	}

	if len(c.Divisions) == 0 {
		return fmt.Errorf("at least one division is required")
	}

	// Check for duplicate team abbreviations
	seen := make(map[string]string)
	for _, div := range c.Divisions {
		if len(div.Teams) == 0 {
			return fmt.Errorf("division %q has no teams", div.Name)
		}
		for _, team := range div.Teams {
			if team.Abbr == "" {
				return fmt.Errorf("division %q has a team without an abbr", div.Name)
			}
			if prevDiv, ok := seen[team.Abbr]; ok {
				return fmt.Errorf("team %q appears in both %q and %q divisions", team.Abbr, prevDiv, div.Name)
			}
			seen[team.Abbr] = div.Name
			if team.Strength < 1 || team.Strength > 99 {
				return fmt.Errorf("team %q: strength must be between 1 and 99, got %d", team.Abbr, team.Strength)
			}
		}
	}
	if len(seen) < 2 {
		return fmt.Errorf("at least two teams are required")
	}

	if c.Simulation.MaxPlays < 0 {
		return fmt.Errorf("simulation max_plays cannot be negative")
	}

	for _, inj := range c.Injuries {
		if inj.Player <= 0 {
			return fmt.Errorf("injury entry must name a player id")
		}
		if inj.RatingFactor < 0 || inj.RatingFactor > 1 {
			return fmt.Errorf("player %d: rating_factor must be within [0, 1], got %v", inj.Player, inj.RatingFactor)
		}
	}

	return nil
}
