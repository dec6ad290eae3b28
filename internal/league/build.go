package league

import (
	"fmt"
	"math/rand"

	"github.com/derekprior/gridiron/internal/config"
)

// rosterTemplate is the depth chart every generated team carries.
var rosterTemplate = []struct {
	pos   Position
	count int
}{
	{QB, 2}, {RB, 3}, {WR, 4}, {TE, 2}, {OL, 5},
	{DL, 4}, {LB, 3}, {CB, 3}, {S, 2}, {K, 1}, {P, 1},
}

// PlayerIDFor returns the roster id of a team's slot (1-based). Injury
// entries in the config refer to players by this id.
func PlayerIDFor(team TeamID, slot int) PlayerID {
	return PlayerID(int(team)*100 + slot)
}

// New builds a league from config with generated rosters. Teams get ids
// 1..N in config order. Ratings vary around each team's strength using a
// PRNG seeded from the config so the same file yields the same league.
func New(cfg *config.Config) (*League, error) {
	var seed int64 = 1
	if cfg.Season.Seed != nil {
		seed = *cfg.Season.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	l := &League{Name: cfg.Season.Name}
	id := TeamID(0)
	for _, div := range cfg.Divisions {
		for _, tc := range div.Teams {
			id++
			l.Teams = append(l.Teams, &Team{
				ID:       id,
				Abbr:     tc.Abbr,
				Name:     tc.Name,
				Division: div.Name,
				Strength: tc.Strength,
				Roster:   generateRoster(id, tc.Abbr, tc.Strength, rng),
			})
		}
	}
	if len(l.Teams) < 2 {
		return nil, fmt.Errorf("league needs at least two teams, got %d", len(l.Teams))
	}
	return l, nil
}

func generateRoster(team TeamID, abbr string, strength int, rng *rand.Rand) []*Player {
	var roster []*Player
	slot := 0
	for _, entry := range rosterTemplate {
		for depth := 1; depth <= entry.count; depth++ {
			slot++
			// Starters sit near team strength, backups a few points under.
			ovr := strength + rng.Intn(11) - 5 - 3*(depth-1)
			if ovr < 30 {
				ovr = 30
			}
			if ovr > 99 {
				ovr = 99
			}
			roster = append(roster, &Player{
				ID:   PlayerIDFor(team, slot),
				Name: fmt.Sprintf("%s %s%d", abbr, entry.pos, depth),
				Pos:  entry.pos,
				Ovr:  ovr,
			})
		}
	}
	return roster
}
