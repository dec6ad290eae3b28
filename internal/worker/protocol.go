// Package worker runs season batches on a background goroutine and merges
// the returned delta into the caller's league.
//
// The two sides share no memory: requests and responses cross a Conn as
// JSON-encoded bytes, so the worker always simulates on its own copy of the
// league and a dropped response can never leave the caller half-updated.
package worker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/season"
)

// Message types.
const (
	TypeSimWeek     = "SIM_WEEK"
	TypeSimComplete = "SIM_COMPLETE"
)

var (
	// ErrWorkerUnavailable is returned when the worker does not accept a
	// request or answer it in time.
	ErrWorkerUnavailable = errors.New("worker unavailable")
	// ErrStaleResponse marks a response whose generation no longer matches
	// the request in flight.
	ErrStaleResponse = errors.New("stale response")
)

// RequestOptions travel with a SIM_WEEK request.
type RequestOptions struct {
	Seed   *int64 `json:"seed,omitempty"`
	StopAt int    `json:"stopAt,omitempty"`
}

type Request struct {
	Type    string         `json:"type"`
	Gen     uint64         `json:"gen"`
	League  *league.League `json:"league"`
	Options RequestOptions `json:"options"`
}

// Response is the delta a batch produced. UpdatedTeams are full
// replacement objects; ScheduleUpdates are the entries now played.
type Response struct {
	Type            string              `json:"type"`
	Gen             uint64              `json:"gen"`
	Success         bool                `json:"success"`
	Error           string              `json:"error,omitempty"`
	Results         []league.GameResult `json:"results"`
	UpdatedTeams    []*league.Team      `json:"updatedTeams"`
	ScheduleUpdates []league.GameRef    `json:"scheduleUpdates"`
	Diagnostics     []season.Diagnostic `json:"diagnostics,omitempty"`
	Week            int                 `json:"week"`
	// Fallback is set when the batch ran synchronously on the caller.
	Fallback bool `json:"fallback,omitempty"`
}

func failure(gen uint64, err error) Response {
	return Response{Type: TypeSimComplete, Gen: gen, Error: err.Error()}
}

// fromBatch builds the delta for batch, reading replacement teams from l.
func fromBatch(l *league.League, gen uint64, b *season.Batch) Response {
	resp := Response{
		Type:            TypeSimComplete,
		Gen:             gen,
		Success:         true,
		Results:         b.Results,
		ScheduleUpdates: b.ScheduleUpdates,
		Diagnostics:     b.Diagnostics,
		Week:            b.Week,
	}
	for _, id := range b.UpdatedTeams {
		if t := l.Team(id); t != nil {
			resp.UpdatedTeams = append(resp.UpdatedTeams, t)
		}
	}
	return resp
}

// Conn is the message channel between a Bridge and a Worker. Each
// direction buffers one message so a late response never blocks the next
// request.
type Conn struct {
	requests  chan []byte
	responses chan []byte
	closeOnce sync.Once
}

func NewConn() *Conn {
	return &Conn{
		requests:  make(chan []byte, 1),
		responses: make(chan []byte, 1),
	}
}

// Close stops the worker after its current request.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.requests) })
}

// Merge applies a successful response to l. Teams in UpdatedTeams replace
// the league team with the same id, results append to their week, and
// referenced schedule entries are flagged played. Nothing else changes; the
// caller advances l.Week.
func Merge(l *league.League, resp *Response) error {
	if !resp.Success {
		return fmt.Errorf("merge: response %d failed: %s", resp.Gen, resp.Error)
	}
	for _, r := range resp.Results {
		if r.Week < 1 || r.Week > len(l.Schedule.Weeks) {
			return fmt.Errorf("merge: result for week %d outside the schedule", r.Week)
		}
	}
	for _, ref := range resp.ScheduleUpdates {
		if l.Schedule.Entry(ref) == nil {
			return fmt.Errorf("merge: schedule update %+v outside the schedule", ref)
		}
	}

	for _, t := range resp.UpdatedTeams {
		for i := range l.Teams {
			if l.Teams[i].ID == t.ID {
				l.Teams[i] = t
			}
		}
	}
	l.EnsureResultWeeks()
	for _, r := range resp.Results {
		l.ResultsByWeek[r.Week-1] = append(l.ResultsByWeek[r.Week-1], r)
	}
	for _, ref := range resp.ScheduleUpdates {
		l.Schedule.Entry(ref).Played = true
	}
	return nil
}
