package league

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownScheduleShape is returned when stored schedule bytes are
// neither the nested nor the legacy flat shape.
var ErrUnknownScheduleShape = errors.New("unknown schedule shape")

// Game is one schedule entry: a matchup, or a bye entry listing the teams
// idle that week.
type Game struct {
	Home   TeamID   `json:"home,omitempty"`
	Away   TeamID   `json:"away,omitempty"`
	Played bool     `json:"played,omitempty"`
	Bye    []TeamID `json:"bye,omitempty"`
}

// IsBye reports whether the entry is a bye entry.
func (g Game) IsBye() bool {
	return len(g.Bye) > 0
}

// Involves reports whether team plays in, or is on bye in, this entry.
func (g Game) Involves(team TeamID) bool {
	if g.IsBye() {
		for _, t := range g.Bye {
			if t == team {
				return true
			}
		}
		return false
	}
	return g.Home == team || g.Away == team
}

type Week struct {
	Number int    `json:"weekNumber"`
	Games  []Game `json:"games"`
}

// Schedule is the canonical nested schedule shape.
type Schedule struct {
	Weeks []Week `json:"weeks"`
}

// GameRef addresses one entry of a schedule. Week is 1-based, GameIndex
// indexes Week.Games.
type GameRef struct {
	Week      int `json:"week"`
	GameIndex int `json:"gameIndex"`
}

// Entry returns a pointer to the referenced entry, or nil when the ref is
// out of range.
func (s *Schedule) Entry(ref GameRef) *Game {
	if ref.Week < 1 || ref.Week > len(s.Weeks) {
		return nil
	}
	games := s.Weeks[ref.Week-1].Games
	if ref.GameIndex < 0 || ref.GameIndex >= len(games) {
		return nil
	}
	return &games[ref.GameIndex]
}

// Refs returns the refs of every matchup (not bye) in week, in index order.
func (s *Schedule) Refs(week int) []GameRef {
	if week < 1 || week > len(s.Weeks) {
		return nil
	}
	var refs []GameRef
	for i, g := range s.Weeks[week-1].Games {
		if !g.IsBye() {
			refs = append(refs, GameRef{Week: week, GameIndex: i})
		}
	}
	return refs
}

// Unplayed returns the refs of matchups in week not yet marked played.
func (s *Schedule) Unplayed(week int) []GameRef {
	var refs []GameRef
	for _, ref := range s.Refs(week) {
		if !s.Entry(ref).Played {
			refs = append(refs, ref)
		}
	}
	return refs
}

// legacyEntry is one row of the flat schedule shape older saves used.
type legacyEntry struct {
	Week   int      `json:"week"`
	Home   TeamID   `json:"home,omitempty"`
	Away   TeamID   `json:"away,omitempty"`
	Played bool     `json:"played,omitempty"`
	Bye    []TeamID `json:"bye,omitempty"`
}

// DecodeSchedule parses either the nested shape ({"weeks":[...]}) or the
// legacy flat shape ([{"week":n,...}]) into a canonical Schedule.
func DecodeSchedule(data []byte) (Schedule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Schedule{}, ErrUnknownScheduleShape
	}

	switch trimmed[0] {
	case '{':
		var s Schedule
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Schedule{}, fmt.Errorf("decoding nested schedule: %w", err)
		}
		for i := range s.Weeks {
			if s.Weeks[i].Number == 0 {
				s.Weeks[i].Number = i + 1
			}
		}
		return s, nil
	case '[':
		var rows []legacyEntry
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return Schedule{}, fmt.Errorf("decoding legacy schedule: %w", err)
		}
		return fromLegacy(rows)
	}
	return Schedule{}, ErrUnknownScheduleShape
}

func fromLegacy(rows []legacyEntry) (Schedule, error) {
	maxWeek := 0
	for _, r := range rows {
		if r.Week < 1 {
			return Schedule{}, fmt.Errorf("legacy schedule row has week %d", r.Week)
		}
		if r.Week > maxWeek {
			maxWeek = r.Week
		}
	}

	// Stable sort keeps the in-week order the rows were saved in.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Week < rows[j].Week })

	s := Schedule{Weeks: make([]Week, maxWeek)}
	for i := range s.Weeks {
		s.Weeks[i].Number = i + 1
	}
	for _, r := range rows {
		w := &s.Weeks[r.Week-1]
		w.Games = append(w.Games, Game{Home: r.Home, Away: r.Away, Played: r.Played, Bye: r.Bye})
	}
	return s, nil
}

// EncodeSchedule writes the canonical nested shape.
func EncodeSchedule(s Schedule) ([]byte, error) {
	return json.Marshal(s)
}
