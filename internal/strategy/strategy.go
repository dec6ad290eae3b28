package strategy

import (
	"fmt"

	"github.com/derekprior/gridiron/internal/league"
)

// Game represents a single required matchup between two teams.
type Game struct {
	Home  league.TeamID
	Away  league.TeamID
	Label string // unique identifier like "Game 1"
	Round int    // 0-based round the rotation plan prefers for this matchup
}

// Strategy generates the list of matchups for a season.
type Strategy interface {
	GenerateMatchups(teams []league.TeamID) []Game
}

// Get returns a Strategy by name.
func Get(name string, meetings int) (Strategy, error) {
	switch name {
	case "round_robin", "":
		if meetings < 1 {
			return nil, fmt.Errorf("round_robin needs at least one meeting, got %d", meetings)
		}
		return &RoundRobin{Meetings: meetings}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

// RoundRobin generates matchups where every pair of teams meets Meetings
// times. Matchups are planned with the circle method: one team stays fixed
// while the others rotate, so each round is a set of disjoint pairings. With
// an odd team count the team opposite the empty seat sits out that round.
// Successive cycles swap home and away.
type RoundRobin struct {
	Meetings int
}

// RoundsPerCycle returns how many rounds one full cycle takes for n teams.
func RoundsPerCycle(n int) int {
	if n%2 == 1 {
		return n
	}
	return n - 1
}

func (s *RoundRobin) GenerateMatchups(teams []league.TeamID) []Game {
	if len(teams) < 2 {
		return nil
	}

	// Seat 0 is the fixed seat; a zero id marks the empty seat.
	seats := make([]league.TeamID, len(teams))
	copy(seats, teams)
	if len(seats)%2 == 1 {
		seats = append(seats, 0)
	}
	rounds := len(seats) - 1
	half := len(seats) / 2

	type pairing struct {
		home, away league.TeamID
		round      int
	}
	var cycle []pairing
	for r := 0; r < rounds; r++ {
		for i := 0; i < half; i++ {
			a, b := seats[i], seats[len(seats)-1-i]
			if a == 0 || b == 0 {
				continue
			}
			// The fixed seat alternates by round; the rest by seat.
			flip := i%2 == 1
			if i == 0 {
				flip = r%2 == 1
			}
			home, away := a, b
			if flip {
				home, away = b, a
			}
			cycle = append(cycle, pairing{home, away, r})
		}
		// Rotate every seat except the fixed one.
		last := seats[len(seats)-1]
		copy(seats[2:], seats[1:len(seats)-1])
		seats[1] = last
	}

	var games []Game
	gameNum := 1
	for c := 0; c < s.Meetings; c++ {
		for _, p := range cycle {
			home, away := p.home, p.away
			if c%2 == 1 {
				home, away = away, home
			}
			games = append(games, Game{
				Home:  home,
				Away:  away,
				Label: fmt.Sprintf("Game %d", gameNum),
				Round: c*rounds + p.round,
			})
			gameNum++
		}
	}
	return games
}
