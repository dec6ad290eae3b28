package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/derekprior/gridiron/internal/season"
)

// Worker answers SIM_WEEK requests by running the weeks on its own decoded
// copy of the league.
type Worker struct {
	conn     *Conn
	coord    *season.Coordinator
	base     season.Options
	logger   *slog.Logger
	handlers map[string]func(context.Context, *Request) Response
}

// New returns a Worker. base supplies the simulation settings (max plays,
// overtime, availability) every request runs with.
func New(conn *Conn, coord *season.Coordinator, base season.Options, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Worker{conn: conn, coord: coord, base: base, logger: logger}
	w.handlers = map[string]func(context.Context, *Request) Response{
		TypeSimWeek: w.simWeek,
	}
	return w
}

// Run serves requests until ctx is done or the Conn is closed.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker_started")
	defer w.logger.Info("worker_stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-w.conn.requests:
			if !ok {
				return nil
			}
			resp := w.handle(ctx, msg)
			data, err := json.Marshal(resp)
			if err != nil {
				data, _ = json.Marshal(failure(resp.Gen, fmt.Errorf("encoding response: %w", err)))
			}
			select {
			case w.conn.responses <- data:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// handle decodes and dispatches one message. A panic while handling is
// reported as a failed response with no partial state.
func (w *Worker) handle(ctx context.Context, msg []byte) (resp Response) {
	var req Request
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker_panic", "gen", req.Gen, "panic", r)
			resp = failure(req.Gen, fmt.Errorf("worker panic: %v", r))
		}
	}()

	if err := json.Unmarshal(msg, &req); err != nil {
		return failure(0, fmt.Errorf("decoding request: %w", err))
	}
	h, ok := w.handlers[req.Type]
	if !ok {
		return failure(req.Gen, fmt.Errorf("unknown message type %q", req.Type))
	}
	return h(ctx, &req)
}

func (w *Worker) simWeek(ctx context.Context, req *Request) Response {
	if req.League == nil {
		return failure(req.Gen, fmt.Errorf("%s request has no league", TypeSimWeek))
	}
	opts := w.base
	opts.Seed = req.Options.Seed
	opts.StopAt = req.Options.StopAt

	l := req.League
	b, err := w.coord.RunWeeks(ctx, l, opts)
	if err != nil {
		w.logger.Warn("sim_week_failed", "gen", req.Gen, "err", err)
		return failure(req.Gen, err)
	}
	w.logger.Info("sim_week_done", "gen", req.Gen, "games", len(b.Results), "week", b.Week)
	return fromBatch(l, req.Gen, b)
}
