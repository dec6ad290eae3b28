package season

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/random"
	"github.com/derekprior/gridiron/internal/sim"
)

// Options control a batch.
type Options struct {
	// Seed is the batch seed every game seed derives from. Nil draws one.
	Seed *int64
	// StopAt is the last week RunWeeks plays. Zero plays only the current
	// week.
	StopAt int

	MaxPlays     int
	Overtime     bool
	Availability sim.Availability
	// Linear skips the batch index so every lookup scans. Results are
	// identical either way.
	Linear bool
}

// Diagnostic reports a game a batch skipped.
type Diagnostic struct {
	Ref     league.GameRef `json:"ref"`
	Message string         `json:"message"`
}

// Batch is what a run changed: the committed results, the ids of teams
// whose state changed, and the schedule entries now marked played.
type Batch struct {
	Results         []league.GameResult `json:"results"`
	UpdatedTeams    []league.TeamID     `json:"updatedTeams"`
	ScheduleUpdates []league.GameRef    `json:"scheduleUpdates"`
	Diagnostics     []Diagnostic        `json:"diagnostics,omitempty"`
	// Week is the league's current week after the run.
	Week int `json:"week"`
}

func (b *Batch) merge(o *Batch) {
	b.Results = append(b.Results, o.Results...)
	b.ScheduleUpdates = append(b.ScheduleUpdates, o.ScheduleUpdates...)
	b.Diagnostics = append(b.Diagnostics, o.Diagnostics...)
	seen := make(map[league.TeamID]bool, len(b.UpdatedTeams))
	for _, id := range b.UpdatedTeams {
		seen[id] = true
	}
	for _, id := range o.UpdatedTeams {
		if !seen[id] {
			b.UpdatedTeams = append(b.UpdatedTeams, id)
			seen[id] = true
		}
	}
	sort.Slice(b.UpdatedTeams, func(i, j int) bool { return b.UpdatedTeams[i] < b.UpdatedTeams[j] })
}

// Coordinator runs simulate-then-commit over scheduled games.
type Coordinator struct {
	sim       *sim.Simulator
	committer *Committer
	logger    *slog.Logger
}

// NewCoordinator wires a simulator and committer. A nil logger discards
// output.
func NewCoordinator(s *sim.Simulator, c *Committer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{sim: s, committer: c, logger: logger}
}

func resolveSeed(opts Options) (int64, error) {
	if opts.Seed != nil {
		return *opts.Seed, nil
	}
	return random.NewSeed()
}

// RunBatch simulates and commits the games at refs in schedule order (week,
// then game index). Each game's seed derives from the batch seed and the
// game's position, so an outcome does not depend on which other games
// share the batch.
//
// Games that cannot be resolved or simulated are skipped and reported in
// Diagnostics. Errors are returned only for context cancellation and
// simulator failures, alongside the batch committed so far.
func (c *Coordinator) RunBatch(ctx context.Context, l *league.League, refs []league.GameRef, opts Options) (*Batch, error) {
	seed, err := resolveSeed(opts)
	if err != nil {
		return nil, fmt.Errorf("run batch: %w", err)
	}

	sorted := append([]league.GameRef(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Week != sorted[j].Week {
			return sorted[i].Week < sorted[j].Week
		}
		return sorted[i].GameIndex < sorted[j].GameIndex
	})

	// The index lives only for this call.
	var idx *Index
	if !opts.Linear {
		idx = NewIndex(l)
	}

	batch := &Batch{Week: l.Week}
	touched := make(map[league.TeamID]bool)
	skip := func(ref league.GameRef, err error) {
		batch.Diagnostics = append(batch.Diagnostics, Diagnostic{Ref: ref, Message: err.Error()})
		c.logger.Warn("game_skipped", "week", ref.Week, "game", ref.GameIndex, "err", err)
	}

	for _, ref := range sorted {
		if err := ctx.Err(); err != nil {
			batch.UpdatedTeams = sortedIDs(touched)
			return batch, err
		}

		entry := l.Schedule.Entry(ref)
		if entry == nil || entry.IsBye() {
			skip(ref, fmt.Errorf("%w: week %d game %d", ErrGameNotFound, ref.Week, ref.GameIndex))
			continue
		}
		if entry.Played {
			continue
		}
		home := lookupTeam(l, idx, entry.Home)
		away := lookupTeam(l, idx, entry.Away)
		if home == nil || away == nil {
			skip(ref, fmt.Errorf("%w: week %d %d vs %d", ErrTeamNotFound, ref.Week, entry.Home, entry.Away))
			continue
		}

		gameSeed := random.Derive(seed, ref.Week, ref.GameIndex)
		res, err := c.sim.Simulate(home, away, sim.Options{
			Seed:         &gameSeed,
			MaxPlays:     opts.MaxPlays,
			Overtime:     opts.Overtime,
			Availability: opts.Availability,
			Week:         ref.Week,
		})
		if errors.Is(err, sim.ErrNoEligiblePlayers) {
			skip(ref, err)
			continue
		}
		if err != nil {
			batch.UpdatedTeams = sortedIDs(touched)
			return batch, fmt.Errorf("simulating week %d game %d: %w", ref.Week, ref.GameIndex, err)
		}
		res.ID = ResultID(l.Name, res)

		committed, err := c.committer.Commit(l, idx, res)
		if err != nil {
			skip(ref, err)
			continue
		}
		if !committed {
			continue
		}
		batch.Results = append(batch.Results, *res)
		batch.ScheduleUpdates = append(batch.ScheduleUpdates, ref)
		touched[home.ID] = true
		touched[away.ID] = true
	}

	batch.UpdatedTeams = sortedIDs(touched)
	c.logger.Info("batch_committed",
		"games", len(batch.Results),
		"skipped", len(batch.Diagnostics),
		"teams", len(batch.UpdatedTeams),
	)
	return batch, nil
}

// RunWeeks plays every unplayed game from the current week through
// opts.StopAt, one week per batch. The current week advances after each
// week whose games all committed; a week left incomplete stops the run.
func (c *Coordinator) RunWeeks(ctx context.Context, l *league.League, opts Options) (*Batch, error) {
	total := &Batch{Week: l.Week}
	if l.Finished() {
		return total, nil
	}

	stop := opts.StopAt
	if stop < l.Week {
		stop = l.Week
	}
	stop = min(stop, len(l.Schedule.Weeks))

	seed, err := resolveSeed(opts)
	if err != nil {
		return nil, fmt.Errorf("run weeks: %w", err)
	}
	opts.Seed = &seed

	for w := l.Week; w <= stop; w++ {
		b, err := c.RunBatch(ctx, l, l.Schedule.Unplayed(w), opts)
		if b != nil {
			total.merge(b)
		}
		if err != nil {
			total.Week = l.Week
			return total, err
		}
		if left := len(l.Schedule.Unplayed(w)); left > 0 {
			c.logger.Warn("week_incomplete", "week", w, "unplayed", left)
			break
		}
		l.Week = w + 1
		c.logger.Info("week_completed", "week", w)
	}
	total.Week = l.Week
	return total, nil
}

func sortedIDs(set map[league.TeamID]bool) []league.TeamID {
	ids := make([]league.TeamID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
