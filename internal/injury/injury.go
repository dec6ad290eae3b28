// Package injury reports which players can take the field and at what
// strength. The simulator consults it through a narrow interface and falls
// back to full availability when none is supplied.
package injury

import (
	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/league"
)

// Status is one player's availability.
type Status struct {
	Out          bool
	RatingFactor float64
	Reason       string
}

// Report holds the statuses of every player with a listed injury. Players
// not in the report are healthy.
type Report struct {
	statuses map[league.PlayerID]Status
}

// FromConfig builds a report from the injuries section of a league file.
func FromConfig(injuries []config.Injury) *Report {
	r := &Report{statuses: make(map[league.PlayerID]Status, len(injuries))}
	for _, inj := range injuries {
		factor := inj.RatingFactor
		if factor == 0 {
			factor = 1
		}
		r.statuses[league.PlayerID(inj.Player)] = Status{Out: inj.Out, RatingFactor: factor, Reason: inj.Reason}
	}
	return r
}

func (r *Report) IsEligibleToPlay(p *league.Player) bool {
	s, ok := r.statuses[p.ID]
	return !ok || !s.Out
}

// EffectiveRating scales Ovr by the player's rating factor. Players ruled
// out rate zero.
func (r *Report) EffectiveRating(p *league.Player) float64 {
	s, ok := r.statuses[p.ID]
	if !ok {
		return float64(p.Ovr)
	}
	if s.Out {
		return 0
	}
	return float64(p.Ovr) * s.RatingFactor
}
