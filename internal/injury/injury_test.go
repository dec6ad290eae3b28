package injury

import (
	"testing"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/league"
)

func TestReport(t *testing.T) {
	r := FromConfig([]config.Injury{
		{Player: 101, Out: true, Reason: "knee"},
		{Player: 102, RatingFactor: 0.5},
	})

	out := &league.Player{ID: 101, Ovr: 80}
	limited := &league.Player{ID: 102, Ovr: 80}
	healthy := &league.Player{ID: 103, Ovr: 80}

	t.Run("players ruled out are ineligible and rate zero", func(t *testing.T) {
		if r.IsEligibleToPlay(out) {
			t.Error("player 101 should be ineligible")
		}
		if r.EffectiveRating(out) != 0 {
			t.Errorf("rating = %v, want 0", r.EffectiveRating(out))
		}
	})

	t.Run("limited players play at reduced strength", func(t *testing.T) {
		if !r.IsEligibleToPlay(limited) {
			t.Error("player 102 should be eligible")
		}
		if r.EffectiveRating(limited) != 40 {
			t.Errorf("rating = %v, want 40", r.EffectiveRating(limited))
		}
	})

	t.Run("unlisted players are nominal", func(t *testing.T) {
		if !r.IsEligibleToPlay(healthy) || r.EffectiveRating(healthy) != 80 {
			t.Error("player 103 should be eligible at full rating")
		}
	})

	t.Run("zero rating factor defaults to full strength", func(t *testing.T) {
		r := FromConfig([]config.Injury{{Player: 5}})
		p := &league.Player{ID: 5, Ovr: 70}
		if !r.IsEligibleToPlay(p) || r.EffectiveRating(p) != 70 {
			t.Errorf("rating = %v, want 70", r.EffectiveRating(p))
		}
	})
}
