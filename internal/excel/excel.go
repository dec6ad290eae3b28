package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/derekprior/gridiron/internal/config"
	"github.com/derekprior/gridiron/internal/league"
	"github.com/derekprior/gridiron/internal/season"
	"github.com/xuri/excelize/v2"
)

const (
	masterSheet    = "Master Schedule"
	standingsSheet = "Standings"
	dateLayout     = "01/02/2006"
)

// Generate creates an Excel workbook with the master schedule, per-team
// sheets and the current standings.
func Generate(cfg *config.Config, l *league.League) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	if err := writeMasterSheet(f, cfg, l); err != nil {
		return nil, fmt.Errorf("writing master sheet: %w", err)
	}

	if err := writeTeamSheets(f, cfg, l); err != nil {
		return nil, fmt.Errorf("writing team sheets: %w", err)
	}

	if err := writeStandingsSheet(f, l); err != nil {
		return nil, fmt.Errorf("writing standings sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

type styles struct {
	header, cell, centered int
}

func newStyles(f *excelize.File) styles {
	var s styles
	s.header, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.cell, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	s.centered, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return s
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if style != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), style)
	}
}

func writeMasterSheet(f *excelize.File, cfg *config.Config, l *league.League) error {
	sheet := masterSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)

	// One column per game slot, sized for the busiest week
	maxGames := 0
	for _, w := range l.Schedule.Weeks {
		n := 0
		for _, g := range w.Games {
			if !g.IsBye() {
				n++
			}
		}
		maxGames = max(maxGames, n)
	}

	// Headers: Week, Date, Game 1..N, Bye
	headers := []string{"Week", "Date"}
	for i := 1; i <= maxGames; i++ {
		headers = append(headers, fmt.Sprintf("Game %d", i))
	}
	headers = append(headers, "Bye")
	writeHeaders(f, sheet, headers, st.header)
	byeCol := len(headers)

	for i, w := range l.Schedule.Weeks {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), w.Number)
		if d := cfg.Season.WeekDate(w.Number); !d.IsZero() {
			f.SetCellValue(sheet, cellRef(2, row), d.Format(dateLayout))
		}

		col := 3
		var bye []string
		for _, g := range w.Games {
			if g.IsBye() {
				for _, id := range g.Bye {
					bye = append(bye, abbr(l, id))
				}
				continue
			}
			f.SetCellValue(sheet, cellRef(col, row), fmt.Sprintf("%s @ %s", abbr(l, g.Away), abbr(l, g.Home)))
			col++
		}
		if len(bye) > 0 {
			f.SetCellValue(sheet, cellRef(byeCol, row), strings.Join(bye, ", "))
		}

		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(2, row), st.cell)
			f.SetCellStyle(sheet, cellRef(3, row), cellRef(byeCol, row), st.centered)
		}
	}

	// Set column widths (sized for Arial 16)
	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 18)
	for col := 3; col <= byeCol; col++ {
		letter := colLetter(col)
		f.SetColWidth(sheet, letter, letter, 20)
	}

	// Conditional formatting: non-game text in game columns gets light red
	if maxGames > 0 {
		lastRow := len(l.Schedule.Weeks) + 1
		redFill, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
			Font: &excelize.Font{Size: 16, Family: "Arial"},
		})
		first, last := colLetter(3), colLetter(byeCol-1)
		cellRange := fmt.Sprintf("%s2:%s%d", first, last, lastRow)
		topCell := fmt.Sprintf("%s2", first)
		formula := fmt.Sprintf(`AND(%s<>"",ISERROR(FIND(" @ ",%s)))`, topCell, topCell)
		f.SetConditionalFormat(sheet, cellRange, []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: formula,
				Format:   &redFill,
			},
		})
	}

	return nil
}

func writeTeamSheets(f *excelize.File, cfg *config.Config, l *league.League) error {
	st := newStyles(f)
	headers := []string{"Week", "Date", "Opponent", "Home/Away", "Result"}

	for _, team := range l.Teams {
		sheet := team.Abbr
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
		writeHeaders(f, sheet, headers, st.header)

		for i, w := range l.Schedule.Weeks {
			row := i + 2
			f.SetCellValue(sheet, cellRef(1, row), w.Number)
			if d := cfg.Season.WeekDate(w.Number); !d.IsZero() {
				f.SetCellValue(sheet, cellRef(2, row), d.Format(dateLayout))
			}

			g, ok := teamGame(w, team.ID)
			switch {
			case !ok:
				f.SetCellValue(sheet, cellRef(3, row), "BYE")
			case g.Home == team.ID:
				f.SetCellValue(sheet, cellRef(3, row), abbr(l, g.Away))
				f.SetCellValue(sheet, cellRef(4, row), "Home")
			default:
				f.SetCellValue(sheet, cellRef(3, row), abbr(l, g.Home))
				f.SetCellValue(sheet, cellRef(4, row), "Away")
			}
			if ok && g.Played {
				if res := findResult(l, w.Number, g); res != nil {
					f.SetCellValue(sheet, cellRef(5, row), resultLabel(res, team.ID))
				}
			}

			if st.cell != 0 {
				f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.cell)
			}
		}

		// Set column widths (sized for Arial 16)
		widths := map[string]float64{"A": 10, "B": 18, "C": 14, "D": 14, "E": 16}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

func writeStandingsSheet(f *excelize.File, l *league.League) error {
	sheet := standingsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)
	headers := []string{"Division", "Team", "W", "L", "T", "Pct", "PF", "PA", "Diff"}
	writeHeaders(f, sheet, headers, st.header)

	row := 2
	order, groups := season.DivisionStandings(l)
	for _, div := range order {
		for _, s := range groups[div] {
			values := []any{
				div, s.Team.Abbr,
				s.Record.Wins, s.Record.Losses, s.Record.Ties,
				fmt.Sprintf("%.3f", s.Record.Pct()),
				s.PointsFor, s.PointsAgainst, s.Diff(),
			}
			for i, v := range values {
				f.SetCellValue(sheet, cellRef(i+1, row), v)
			}
			if st.centered != 0 {
				f.SetCellStyle(sheet, cellRef(3, row), cellRef(len(headers), row), st.centered)
			}
			row++
		}
	}

	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "B", 10)
	return nil
}

// ReadSchedule reads the master sheet of a workbook written by Generate
// back into a schedule. teams maps abbreviations to team ids. Played flags
// are not stored in the workbook and come back false.
func ReadSchedule(path string, teams map[string]league.TeamID) (*league.Schedule, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return readMasterSheet(f, teams)
}

func readMasterSheet(f *excelize.File, teams map[string]league.TeamID) (*league.Schedule, error) {
	rows, err := f.GetRows(masterSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", masterSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", masterSheet)
	}

	// Header row determines the game and bye columns
	header := rows[0]
	var gameCols []int
	byeCol := -1
	for i, h := range header {
		switch {
		case strings.HasPrefix(h, "Game "):
			gameCols = append(gameCols, i)
		case h == "Bye":
			byeCol = i
		}
	}

	lookup := func(row int, abbr string) (league.TeamID, error) {
		id, ok := teams[abbr]
		if !ok {
			return 0, fmt.Errorf("row %d: unknown team %q", row, abbr)
		}
		return id, nil
	}

	s := &league.Schedule{}
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		n, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: week %q is not a number", i+1, row[0])
		}
		if n != len(s.Weeks)+1 {
			return nil, fmt.Errorf("row %d: expected week %d, found %d", i+1, len(s.Weeks)+1, n)
		}

		week := league.Week{Number: n}
		for _, c := range gameCols {
			if c >= len(row) || row[c] == "" {
				continue
			}
			awayAbbr, homeAbbr, ok := parseGameCell(row[c])
			if !ok {
				continue // note text, not a game
			}
			home, err := lookup(i+1, homeAbbr)
			if err != nil {
				return nil, err
			}
			away, err := lookup(i+1, awayAbbr)
			if err != nil {
				return nil, err
			}
			week.Games = append(week.Games, league.Game{Home: home, Away: away})
		}
		if byeCol >= 0 && byeCol < len(row) && row[byeCol] != "" {
			var bye []league.TeamID
			for _, a := range strings.Split(row[byeCol], ",") {
				id, err := lookup(i+1, strings.TrimSpace(a))
				if err != nil {
					return nil, err
				}
				bye = append(bye, id)
			}
			week.Games = append(week.Games, league.Game{Bye: bye})
		}
		s.Weeks = append(s.Weeks, week)
	}
	return s, nil
}

// UpdateTeamSheets rebuilds the per-team sheets of the workbook at path
// from its master sheet, so hand edits to the master schedule carry
// through.
func UpdateTeamSheets(path string, cfg *config.Config) error {
	l, err := league.New(cfg)
	if err != nil {
		return fmt.Errorf("building league: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	s, err := readMasterSheet(f, abbrIndex(l))
	if err != nil {
		return err
	}
	l.SetSchedule(*s)

	for _, team := range l.Teams {
		if idx, _ := f.GetSheetIndex(team.Abbr); idx >= 0 {
			if err := f.DeleteSheet(team.Abbr); err != nil {
				return fmt.Errorf("removing sheet %q: %w", team.Abbr, err)
			}
		}
	}
	if err := writeTeamSheets(f, cfg, l); err != nil {
		return fmt.Errorf("writing team sheets: %w", err)
	}
	return f.Save()
}

func abbrIndex(l *league.League) map[string]league.TeamID {
	m := make(map[string]league.TeamID, len(l.Teams))
	for _, t := range l.Teams {
		m[t.Abbr] = t.ID
	}
	return m
}

// parseGameCell parses "Away @ Home" and returns (away, home, true).
// Returns ("", "", false) if the cell doesn't match the game format.
func parseGameCell(cell string) (away, home string, ok bool) {
	for i := 0; i < len(cell)-2; i++ {
		if cell[i] == ' ' && cell[i+1] == '@' && cell[i+2] == ' ' {
			return cell[:i], cell[i+3:], true
		}
	}
	return "", "", false
}

func teamGame(w league.Week, team league.TeamID) (league.Game, bool) {
	for _, g := range w.Games {
		if !g.IsBye() && g.Involves(team) {
			return g, true
		}
	}
	return league.Game{}, false
}

func findResult(l *league.League, week int, g league.Game) *league.GameResult {
	if week < 1 || week > len(l.ResultsByWeek) {
		return nil
	}
	for i, r := range l.ResultsByWeek[week-1] {
		if r.Home == g.Home && r.Away == g.Away {
			return &l.ResultsByWeek[week-1][i]
		}
	}
	return nil
}

// resultLabel renders a result from team's side, e.g. "W 24-17".
func resultLabel(res *league.GameResult, team league.TeamID) string {
	us, them := res.ScoreHome, res.ScoreAway
	if team == res.Away {
		us, them = them, us
	}
	label := "T"
	switch {
	case us > them:
		label = "W"
	case us < them:
		label = "L"
	}
	if res.Overtime {
		return fmt.Sprintf("%s %d-%d (OT)", label, us, them)
	}
	return fmt.Sprintf("%s %d-%d", label, us, them)
}

func abbr(l *league.League, id league.TeamID) string {
	if t := l.Team(id); t != nil {
		return t.Abbr
	}
	return strconv.Itoa(int(id))
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
