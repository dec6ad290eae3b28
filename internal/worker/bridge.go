package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/season"
)

// Bridge is the caller's side of a Conn. It allows one request in flight
// at a time and tags each with a generation so responses to abandoned
// requests are recognised and dropped.
type Bridge struct {
	mu       sync.Mutex
	gen      uint64
	conn     *Conn
	fallback *season.Coordinator
	base     season.Options
	timeout  time.Duration
	logger   *slog.Logger
}

// NewBridge returns a Bridge. fallback runs the batch on the caller's
// league when the worker fails; base must match the worker's settings so
// both paths simulate alike. A zero timeout waits on ctx alone.
func NewBridge(conn *Conn, fallback *season.Coordinator, base season.Options, timeout time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{conn: conn, fallback: fallback, base: base, timeout: timeout, logger: logger}
}

// SimWeek ships l to the worker, waits for the delta and merges it, then
// advances l.Week. When the worker fails or does not answer, the same
// weeks run synchronously on l and the response is marked Fallback. If ctx
// ends first the request is abandoned and l is left untouched.
func (b *Bridge) SimWeek(ctx context.Context, l *league.League, opts RequestOptions) (*Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.gen++
	gen := b.gen

	resp, err := b.roundTrip(ctx, l, gen, opts)
	if ctxErr := ctx.Err(); ctxErr != nil {
		b.logger.Info("request_abandoned", "gen", gen)
		return nil, ctxErr
	}
	if err == nil && resp.Success {
		if err := Merge(l, resp); err != nil {
			return nil, err
		}
		l.Week = resp.Week
		return resp, nil
	}

	reason := err
	if reason == nil {
		reason = fmt.Errorf("worker reported: %s", resp.Error)
	}
	b.logger.Warn("worker_fallback", "gen", gen, "err", reason)

	run := b.base
	run.Seed = opts.Seed
	run.StopAt = opts.StopAt
	batch, err := b.fallback.RunWeeks(ctx, l, run)
	if err != nil {
		return nil, fmt.Errorf("synchronous fallback after %v: %w", reason, err)
	}
	out := fromBatch(l, gen, batch)
	out.Fallback = true
	return &out, nil
}

func (b *Bridge) roundTrip(ctx context.Context, l *league.League, gen uint64, opts RequestOptions) (*Response, error) {
	data, err := json.Marshal(Request{Type: TypeSimWeek, Gen: gen, League: l, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var timeout <-chan time.Time
	if b.timeout > 0 {
		t := time.NewTimer(b.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case b.conn.requests <- data:
	case <-timeout:
		return nil, fmt.Errorf("%w: request not accepted within %s", ErrWorkerUnavailable, b.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		select {
		case msg := <-b.conn.responses:
			var resp Response
			if err := json.Unmarshal(msg, &resp); err != nil {
				return nil, fmt.Errorf("decoding response: %w", err)
			}
			if resp.Type != TypeSimComplete || resp.Gen != gen {
				b.logger.Debug("response_dropped", "err", fmt.Errorf("%w: gen %d, want %d", ErrStaleResponse, resp.Gen, gen))
				continue
			}
			return &resp, nil
		case <-timeout:
			return nil, fmt.Errorf("%w: no response within %s", ErrWorkerUnavailable, b.timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
