package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/excel"
	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/schedule"
	"github.com/derekprior/gridiron/internal/strategy"
	"github.com/derekprior/gridiron/internal/validator"
)

const defaultConfigFile = "league.yaml"

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

// env carries the process settings every command shares.
type env struct {
	rt     config.Runtime
	logger *slog.Logger
}

func main() {
	rt, err := config.LoadRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n", err)
		os.Exit(1)
	}
	e := &env{
		rt:     rt,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: rt.Level()})),
	}

	rootCmd := &cobra.Command{
		Use:   "gridiron",
		Short: "Football league scheduler and season simulator",
	}

	var configFile string
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to league file (default: league.yaml in current directory)")
	loadConfig := func() (*config.Config, error) {
		configPath, err := resolveConfigPath(configFile)
		if err != nil {
			return nil, err
		}
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter league.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the league file")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and validate schedules",
	}

	var outputFile string
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate a schedule workbook from a league file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runGenerate(e, cfg, outputFile)
		},
	}
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "schedule.xlsx", "Output Excel file path")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx>",
		Short:        "Validate a schedule against league rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runValidate(cfg, args[0])
		},
	}

	scheduleCmd.AddCommand(generateCmd, validateCmd)
	rootCmd.AddCommand(initCmd, scheduleCmd, seasonCommand(e, loadConfig), gameCommand(e, loadConfig))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# Gridiron League Configuration
# =============================
# This file defines the league, its schedule rules and how games are simulated.

# Season sets the length of the schedule and how often teams meet.
season:
  name: "2026"
  # Week 1 kickoff. Later weeks follow every 7 days. Optional; only used to
  # label workbook rows.
  start_date: "2026-09-10"
  weeks: 14

  # Every pair of teams meets this many times, with venues alternating.
  # An even league needs weeks >= meetings * (teams - 1); an odd league
  # needs weeks >= meetings * teams because one team is on bye each week.
  meetings: 2

  # Minimum weeks between two meetings of the same pair.
  min_weeks_between_meetings: 3

  # Seed for roster generation. The same seed always builds the same league.
  seed: 2026

# Divisions and their teams. Abbreviations must be unique across all
# divisions. Strength (1-99) centres the generated player ratings.
divisions:
  - name: North
    teams:
      - { abbr: MIN, name: Minneapolis Frost, strength: 74 }
      - { abbr: DUL, name: Duluth Harbormen, strength: 66 }
      - { abbr: FAR, name: Fargo Plainsmen, strength: 70 }
      - { abbr: BIS, name: Bismarck Bison, strength: 62 }
  - name: South
    teams:
      - { abbr: DAL, name: Dallas Wranglers, strength: 76 }
      - { abbr: AUS, name: Austin Comets, strength: 68 }
      - { abbr: HOU, name: Houston Roughnecks, strength: 71 }
      - { abbr: SAT, name: San Antonio Missions, strength: 64 }

# Strategy determines how matchups are generated.
# "round_robin" plays every opponent season.meetings times.
strategy: round_robin

simulation:
  max_plays: 180     # Snap cap per game, guards against runaway games
  overtime: true     # One possession each; still tied ends in a tie

# Injuries mark players out or playing below their rating. Players are
# addressed by roster id: team number (1-based, in file order) * 100 + slot.
injuries:
  - player: 101
    rating_factor: 0.8
    reason: "Sore shoulder"
  - player: 503
    out: true
    reason: "Hamstring"
`

// buildSeason creates a league from cfg and schedules it.
func buildSeason(e *env, cfg *config.Config) (*league.League, *schedule.Result, error) {
	l, err := league.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	strat, err := strategy.Get(cfg.Strategy, cfg.Season.Meetings)
	if err != nil {
		return nil, nil, err
	}
	games := strat.GenerateMatchups(l.TeamIDs())
	fmt.Printf("Scheduling %d games into %d weeks...\n", len(games), cfg.Season.Weeks)

	result, err := schedule.Generate(l.TeamIDs(), schedule.Params{
		Weeks:    cfg.Season.Weeks,
		Meetings: cfg.Season.Meetings,
		MinGap:   cfg.Season.MinWeeksBetweenMeetings,
		Attempts: e.rt.Attempts,
		Strategy: strat,
	})
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("schedule_generated", "attempts", result.Attempts, "repaired", result.Repaired)
	l.SetSchedule(*result.Schedule)

	fmt.Printf("✓ All %d games scheduled\n", len(games))
	printMetrics(l, result)
	return l, result, nil
}

func printMetrics(l *league.League, result *schedule.Result) {
	fmt.Println("\nPer Team Metrics:")
	fmt.Printf("  %-6s %6s %5s %5s %5s\n", "Team", "Games", "Home", "Away", "Byes")
	for _, t := range l.Teams {
		m := result.TeamMetrics[t.ID]
		fmt.Printf("  %-6s %6d %5d %5d %5d\n", t.Abbr, m.Games, m.Home, m.Away, m.Byes)
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nGuideline violations (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	} else {
		fmt.Println("\n✓ No guideline violations")
	}
}

func runGenerate(e *env, cfg *config.Config, outputPath string) error {
	l, _, err := buildSeason(e, cfg)
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

	fmt.Printf("\n✓ Schedule saved to %s\n", outputPath)
	return nil
}

func runValidate(cfg *config.Config, schedulePath string) error {
	violations, err := validator.Validate(cfg, schedulePath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errors := 0
	warnings := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errors++
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ Guideline violation: %s\n", v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d guideline violations\n", errors, warnings)

	// Regenerate team sheets from master schedule
	if err := excel.UpdateTeamSheets(schedulePath, cfg); err != nil {
		return fmt.Errorf("updating team sheets: %w", err)
	}
	fmt.Printf("✓ Team sheets updated in %s\n", schedulePath)

	if validator.HasErrors(violations) {
		return fmt.Errorf("%d constraint violations found", errors)
	}
	return nil
}
