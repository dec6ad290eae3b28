// Package league holds the season state the engine reads and mutates:
// teams, rosters, the schedule and committed results.
package league

import "fmt"

// TeamID identifies a team for the whole season.
type TeamID int

// PlayerID identifies a player across teams and seasons.
type PlayerID int

// Position is a roster position abbreviation ("QB", "RB", ...).
type Position string

const (
	QB Position = "QB"
	RB Position = "RB"
	WR Position = "WR"
	TE Position = "TE"
	OL Position = "OL"
	DL Position = "DL"
	LB Position = "LB"
	CB Position = "CB"
	S  Position = "S"
	K  Position = "K"
	P  Position = "P"
)

// Offense reports whether the position lines up on offense.
func (p Position) Offense() bool {
	switch p {
	case QB, RB, WR, TE, OL:
		return true
	}
	return false
}

// Defense reports whether the position lines up on defense.
func (p Position) Defense() bool {
	switch p {
	case DL, LB, CB, S:
		return true
	}
	return false
}

// PlayerStats holds accumulated statistics. Season is reset at rollover,
// which happens outside the engine.
type PlayerStats struct {
	Season GameStats `json:"season"`
	Career GameStats `json:"career"`
}

type Player struct {
	ID    PlayerID    `json:"id"`
	Name  string      `json:"name"`
	Pos   Position    `json:"pos"`
	Ovr   int         `json:"ovr"`
	Stats PlayerStats `json:"stats"`
}

type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// Pct returns the winning percentage with ties counted as half a win.
func (r Record) Pct() float64 {
	games := r.Wins + r.Losses + r.Ties
	if games == 0 {
		return 0
	}
	return (float64(r.Wins) + float64(r.Ties)/2) / float64(games)
}

func (r Record) String() string {
	if r.Ties > 0 {
		return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Ties)
	}
	return fmt.Sprintf("%d-%d", r.Wins, r.Losses)
}

// TeamSeasonStats are the team-level aggregates a commit folds in.
type TeamSeasonStats struct {
	Games         int `json:"games"`
	PointsFor     int `json:"pointsFor"`
	PointsAgainst int `json:"pointsAgainst"`
	PassYd        int `json:"passYd"`
	RushYd        int `json:"rushYd"`
	Touchdowns    int `json:"touchdowns"`
	Turnovers     int `json:"turnovers"`
}

type Team struct {
	ID          TeamID          `json:"id"`
	Abbr        string          `json:"abbr"`
	Name        string          `json:"name"`
	Division    string          `json:"division"`
	Strength    int             `json:"strength"`
	Roster      []*Player       `json:"roster"`
	Record      Record          `json:"record"`
	SeasonStats TeamSeasonStats `json:"seasonStats"`
}

// Player returns the rostered player with the given id, or nil.
func (t *Team) Player(id PlayerID) *Player {
	for _, p := range t.Roster {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// League is the authoritative season state.
//
// Week is 1-based into Schedule.Weeks, and ResultsByWeek[i] holds the
// committed results of Schedule.Weeks[i].
type League struct {
	Name          string         `json:"name"`
	Teams         []*Team        `json:"teams"`
	Schedule      Schedule       `json:"schedule"`
	Week          int            `json:"week"`
	ResultsByWeek [][]GameResult `json:"resultsByWeek"`
}

// Team returns the team with the given id by linear scan, or nil.
func (l *League) Team(id TeamID) *Team {
	for _, t := range l.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TeamIDs returns team ids in roster order.
func (l *League) TeamIDs() []TeamID {
	ids := make([]TeamID, len(l.Teams))
	for i, t := range l.Teams {
		ids[i] = t.ID
	}
	return ids
}

// SetSchedule installs a schedule, resets the current week to 1 and sizes
// ResultsByWeek to match.
func (l *League) SetSchedule(s Schedule) {
	l.Schedule = s
	l.Week = 1
	l.ResultsByWeek = make([][]GameResult, len(s.Weeks))
}

// Finished reports whether every scheduled week has been played.
func (l *League) Finished() bool {
	return l.Week > len(l.Schedule.Weeks)
}

// EnsureResultWeeks grows ResultsByWeek so it covers every schedule week.
func (l *League) EnsureResultWeeks() {
	for len(l.ResultsByWeek) < len(l.Schedule.Weeks) {
		l.ResultsByWeek = append(l.ResultsByWeek, nil)
	}
}
