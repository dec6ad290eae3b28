package season

import (
	"sort"

	"github.com/derekprior/gridiron/internal/league"
)

// Standing is one row of the league table.
type Standing struct {
	Team          *league.Team
	Record        league.Record
	PointsFor     int
	PointsAgainst int
}

func (s Standing) Diff() int {
	return s.PointsFor - s.PointsAgainst
}

// Standings ranks teams by winning percentage, then point differential,
// then points scored, then abbreviation.
func Standings(l *league.League) []Standing {
	rows := make([]Standing, 0, len(l.Teams))
	for _, t := range l.Teams {
		rows = append(rows, Standing{
			Team:          t,
			Record:        t.Record,
			PointsFor:     t.SeasonStats.PointsFor,
			PointsAgainst: t.SeasonStats.PointsAgainst,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Record.Pct() != b.Record.Pct() {
			return a.Record.Pct() > b.Record.Pct()
		}
		if a.Diff() != b.Diff() {
			return a.Diff() > b.Diff()
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return a.Team.Abbr < b.Team.Abbr
	})
	return rows
}

// DivisionStandings groups Standings by division, keeping rank order.
// Divisions are returned in the order their first team appears in l.
func DivisionStandings(l *league.League) ([]string, map[string][]Standing) {
	var order []string
	groups := make(map[string][]Standing)
	for _, t := range l.Teams {
		if _, ok := groups[t.Division]; !ok {
			order = append(order, t.Division)
			groups[t.Division] = nil
		}
	}
	for _, row := range Standings(l) {
		groups[row.Team.Division] = append(groups[row.Team.Division], row)
	}
	return order, groups
}
