package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/excel"
	"github.com/derekprior/gridiron/internal/injury"
	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/season"
	"github.com/derekprior/gridiron/internal/sim"
	"github.com/derekprior/gridiron/internal/store"
	"github.com/derekprior/gridiron/internal/worker"
)

type configLoader func() (*config.Config, error)

func seasonCommand(e *env, loadConfig configLoader) *cobra.Command {
	seasonCmd := &cobra.Command{
		Use:   "season",
		Short: "Create, simulate and report on a stored season",
	}

	var force bool
	newCmd := &cobra.Command{
		Use:          "new",
		Short:        "Build and schedule a league and save it to the season store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runSeasonNew(cmd.Context(), e, cfg, force)
		},
	}
	newCmd.Flags().BoolVar(&force, "force", false, "Replace a saved season with the same name")

	var (
		weeks   int
		through int
		all     bool
		seed    int64
	)
	simCmd := &cobra.Command{
		Use:          "sim",
		Short:        "Simulate the next week (or several) of the saved season",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			return runSeasonSim(cmd.Context(), e, cfg, simRange{weeks: weeks, through: through, all: all}, seedPtr)
		},
	}
	simCmd.Flags().IntVarP(&weeks, "weeks", "w", 1, "Number of weeks to simulate")
	simCmd.Flags().IntVar(&through, "through", 0, "Simulate through this week (overrides --weeks)")
	simCmd.Flags().BoolVar(&all, "all", false, "Simulate the rest of the season")
	simCmd.Flags().Int64Var(&seed, "seed", 0, "Batch seed (default: random)")

	standingsCmd := &cobra.Command{
		Use:          "standings",
		Short:        "Print division standings",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runStandings(cmd.Context(), e, cfg)
		},
	}

	var outputFile string
	exportCmd := &cobra.Command{
		Use:          "export",
		Short:        "Write the season schedule, results and standings to a workbook",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), e, cfg, outputFile)
		},
	}
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "season.xlsx", "Output Excel file path")

	seasonCmd.AddCommand(newCmd, simCmd, standingsCmd, exportCmd)
	return seasonCmd
}

func gameCommand(e *env, loadConfig configLoader) *cobra.Command {
	gameCmd := &cobra.Command{
		Use:   "game",
		Short: "Exhibition games outside the season",
	}

	var (
		seed    int64
		showLog bool
	)
	simCmd := &cobra.Command{
		Use:          "sim <home> <away>",
		Short:        "Simulate one game between two teams from the league file",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			return runGameSim(e, cfg, args[0], args[1], seedPtr, showLog)
		},
	}
	simCmd.Flags().Int64Var(&seed, "seed", 0, "Game seed (default: random)")
	simCmd.Flags().BoolVar(&showLog, "log", false, "Print the play-by-play")

	gameCmd.AddCommand(simCmd)
	return gameCmd
}

func simOptions(cfg *config.Config) season.Options {
	return season.Options{
		MaxPlays:     cfg.Simulation.MaxPlays,
		Overtime:     cfg.Simulation.Overtime,
		Availability: injury.FromConfig(cfg.Injuries),
	}
}

func newCoordinator(e *env, component string) *season.Coordinator {
	logger := e.logger.With("component", component)
	return season.NewCoordinator(sim.New(logger), season.NewCommitter(logger), logger)
}

func openStore(e *env) (*store.Store, error) {
	st, err := store.Open(e.rt.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening season store: %w", err)
	}
	return st, nil
}

func loadSeason(ctx context.Context, st *store.Store, cfg *config.Config) (*league.League, error) {
	l, err := st.LoadLeague(ctx, cfg.Season.Name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no saved season %q; run `gridiron season new` first", cfg.Season.Name)
	}
	return l, err
}

func runSeasonNew(ctx context.Context, e *env, cfg *config.Config, force bool) error {
	st, err := openStore(e)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.LoadLeague(ctx, cfg.Season.Name); err == nil && !force {
		return fmt.Errorf("season %q already exists; pass --force to replace it", cfg.Season.Name)
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	l, _, err := buildSeason(e, cfg)
	if err != nil {
		return err
	}
	if err := st.SaveLeague(ctx, l); err != nil {
		return err
	}
	fmt.Printf("\n✓ Season %q saved to %s\n", l.Name, e.rt.DBPath)
	return nil
}

type simRange struct {
	weeks   int
	through int
	all     bool
}

// stopAt resolves the last week to play from the current week.
func (r simRange) stopAt(l *league.League) int {
	switch {
	case r.all:
		return len(l.Schedule.Weeks)
	case r.through > 0:
		return r.through
	case r.weeks > 1:
		return l.Week + r.weeks - 1
	}
	return l.Week
}

func runSeasonSim(ctx context.Context, e *env, cfg *config.Config, r simRange, seed *int64) error {
	st, err := openStore(e)
	if err != nil {
		return err
	}
	defer st.Close()

	l, err := loadSeason(ctx, st, cfg)
	if err != nil {
		return err
	}
	if l.Finished() {
		fmt.Printf("✓ Season %q is complete\n", l.Name)
		return nil
	}

	base := simOptions(cfg)
	conn := worker.NewConn()
	w := worker.New(conn, newCoordinator(e, "worker"), base, e.logger.With("component", "worker"))
	bridge := worker.NewBridge(conn, newCoordinator(e, "fallback"), base, e.rt.WorkerTimeout, e.logger.With("component", "bridge"))

	var resp *worker.Response
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		defer conn.Close()
		var err error
		resp, err = bridge.SimWeek(gctx, l, worker.RequestOptions{Seed: seed, StopAt: r.stopAt(l)})
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("simulating: %w", err)
	}

	if _, err := st.SaveResults(ctx, l.Name, resp.Results); err != nil {
		return err
	}
	if err := st.SaveLeague(ctx, l); err != nil {
		return err
	}

	if resp.Fallback {
		fmt.Println("⚠ Worker unavailable; simulated in the foreground")
	}
	printResults(l, resp)
	return nil
}

func printResults(l *league.League, resp *worker.Response) {
	week := 0
	for _, res := range resp.Results {
		if res.Week != week {
			week = res.Week
			fmt.Printf("\nWeek %d\n", week)
		}
		ot := ""
		if res.Overtime {
			ot = " (OT)"
		}
		fmt.Printf("  %-4s %3d @ %-4s %3d%s\n",
			l.Team(res.Away).Abbr, res.ScoreAway, l.Team(res.Home).Abbr, res.ScoreHome, ot)
	}
	for _, d := range resp.Diagnostics {
		fmt.Printf("  ⚠ Week %d game %d skipped: %s\n", d.Ref.Week, d.Ref.GameIndex+1, d.Message)
	}

	if l.Finished() {
		fmt.Printf("\n✓ %d games played; season complete\n", len(resp.Results))
		return
	}
	fmt.Printf("\n✓ %d games played; next up week %d of %d\n", len(resp.Results), l.Week, len(l.Schedule.Weeks))
}

func runStandings(ctx context.Context, e *env, cfg *config.Config) error {
	st, err := openStore(e)
	if err != nil {
		return err
	}
	defer st.Close()

	l, err := loadSeason(ctx, st, cfg)
	if err != nil {
		return err
	}

	order, groups := season.DivisionStandings(l)
	for _, div := range order {
		fmt.Printf("\n%s\n", div)
		fmt.Printf("  %-6s %-8s %6s %5s %5s %5s\n", "Team", "W-L-T", "Pct", "PF", "PA", "Diff")
		for _, s := range groups[div] {
			fmt.Printf("  %-6s %-8s %6.3f %5d %5d %+5d\n",
				s.Team.Abbr, s.Record.String(), s.Record.Pct(), s.PointsFor, s.PointsAgainst, s.Diff())
		}
	}
	return nil
}

func runExport(ctx context.Context, e *env, cfg *config.Config, outputPath string) error {
	st, err := openStore(e)
	if err != nil {
		return err
	}
	defer st.Close()

	l, err := loadSeason(ctx, st, cfg)
	if err != nil {
		return err
	}

	f, err := excel.Generate(cfg, l)
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	fmt.Printf("✓ Season saved to %s\n", outputPath)
	return nil
}

func runGameSim(e *env, cfg *config.Config, homeAbbr, awayAbbr string, seed *int64, showLog bool) error {
	l, err := league.New(cfg)
	if err != nil {
		return err
	}
	find := func(abbr string) (*league.Team, error) {
		for _, t := range l.Teams {
			if t.Abbr == abbr {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unknown team %q", abbr)
	}
	home, err := find(homeAbbr)
	if err != nil {
		return err
	}
	away, err := find(awayAbbr)
	if err != nil {
		return err
	}

	opts := simOptions(cfg)
	res, err := sim.New(e.logger).Simulate(home, away, sim.Options{
		Seed:         seed,
		MaxPlays:     opts.MaxPlays,
		Overtime:     opts.Overtime,
		Availability: opts.Availability,
	})
	if err != nil {
		return err
	}

	if showLog {
		for _, p := range res.Log {
			fmt.Printf("  Q%d %2d:%02d  %s\n", p.Quarter, p.Clock/60, p.Clock%60, p.Text)
		}
		fmt.Println()
	}

	ot := ""
	if res.Overtime {
		ot = " (OT)"
	}
	fmt.Printf("%s %d @ %s %d%s\n\n", away.Abbr, res.ScoreAway, home.Abbr, res.ScoreHome, ot)
	fmt.Printf("  %-6s %7s %7s %4s %4s\n", "Team", "PassYd", "RushYd", "TD", "TO")
	for _, t := range []*league.Team{away, home} {
		s := res.TeamTotals(t.ID)
		fmt.Printf("  %-6s %7d %7d %4d %4d\n", t.Abbr, s.PassYd, s.RushYd, s.Touchdowns(), s.PassInt+s.Fumbles)
	}
	return nil
}
