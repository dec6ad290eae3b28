package league

// GameStats is one player's box score line. Season and career totals use
// the same shape.
type GameStats struct {
	TeamID TeamID `json:"teamId,omitempty"`
	Games  int    `json:"games,omitempty"`

	PassAtt  int `json:"passAtt,omitempty"`
	PassComp int `json:"passComp,omitempty"`
	PassYd   int `json:"passYd,omitempty"`
	PassTD   int `json:"passTD,omitempty"`
	PassInt  int `json:"passInt,omitempty"`
	Sacked   int `json:"sacked,omitempty"`

	RushAtt int `json:"rushAtt,omitempty"`
	RushYd  int `json:"rushYd,omitempty"`
	RushTD  int `json:"rushTD,omitempty"`
	Fumbles int `json:"fumbles,omitempty"`

	Targets    int `json:"targets,omitempty"`
	Receptions int `json:"receptions,omitempty"`
	RecYd      int `json:"recYd,omitempty"`
	RecTD      int `json:"recTD,omitempty"`

	Tackles    int `json:"tackles,omitempty"`
	Sacks      int `json:"sacks,omitempty"`
	Ints       int `json:"ints,omitempty"`
	FumblesRec int `json:"fumblesRec,omitempty"`
	DefTD      int `json:"defTD,omitempty"`
	Safeties   int `json:"safeties,omitempty"`
	TwoPtMade  int `json:"twoPtMade,omitempty"`
	FGAtt      int `json:"fgAtt,omitempty"`
	FGMade     int `json:"fgMade,omitempty"`
	XPAtt      int `json:"xpAtt,omitempty"`
	XPMade     int `json:"xpMade,omitempty"`
	Punts      int `json:"punts,omitempty"`
	PuntYd     int `json:"puntYd,omitempty"`
}

// Points returns the points this line is credited with. Passing touchdowns
// are excluded because the receiver's RecTD already carries them.
func (s GameStats) Points() int {
	return (s.RushTD+s.RecTD+s.DefTD)*6 + s.FGMade*3 + s.XPMade + s.TwoPtMade*2 + s.Safeties*2
}

// Touchdowns counts scoring touchdowns, excluding passing touchdowns.
func (s GameStats) Touchdowns() int {
	return s.RushTD + s.RecTD + s.DefTD
}

// Add folds o into s. TeamID is left untouched.
func (s *GameStats) Add(o GameStats) {
	s.Games += o.Games
	s.PassAtt += o.PassAtt
	s.PassComp += o.PassComp
	s.PassYd += o.PassYd
	s.PassTD += o.PassTD
	s.PassInt += o.PassInt
	s.Sacked += o.Sacked
	s.RushAtt += o.RushAtt
	s.RushYd += o.RushYd
	s.RushTD += o.RushTD
	s.Fumbles += o.Fumbles
	s.Targets += o.Targets
	s.Receptions += o.Receptions
	s.RecYd += o.RecYd
	s.RecTD += o.RecTD
	s.Tackles += o.Tackles
	s.Sacks += o.Sacks
	s.Ints += o.Ints
	s.FumblesRec += o.FumblesRec
	s.DefTD += o.DefTD
	s.Safeties += o.Safeties
	s.TwoPtMade += o.TwoPtMade
	s.FGAtt += o.FGAtt
	s.FGMade += o.FGMade
	s.XPAtt += o.XPAtt
	s.XPMade += o.XPMade
	s.Punts += o.Punts
	s.PuntYd += o.PuntYd
}

// PlayType names what happened on a snap.
type PlayType string

const (
	PlayRun          PlayType = "run"
	PlayPass         PlayType = "pass"
	PlayIncomplete   PlayType = "incomplete"
	PlaySack         PlayType = "sack"
	PlayInterception PlayType = "interception"
	PlayFumble       PlayType = "fumble"
	PlayPunt         PlayType = "punt"
	PlayFieldGoal    PlayType = "field_goal"
	PlayExtraPoint   PlayType = "extra_point"
	PlayTwoPoint     PlayType = "two_point"
	PlayKickoff      PlayType = "kickoff"
	PlaySafety       PlayType = "safety"
	PlayDowns        PlayType = "turnover_on_downs"
)

// Play is one log entry. Points and ScoringTeam are set only on plays that
// changed the score.
type Play struct {
	Quarter     int      `json:"q"`
	Clock       int      `json:"clock"`
	Offense     TeamID   `json:"offense"`
	Type        PlayType `json:"type"`
	Down        int      `json:"down,omitempty"`
	Distance    int      `json:"distance,omitempty"`
	BallOn      int      `json:"ballOn"`
	Yards       int      `json:"yards,omitempty"`
	PlayerID    PlayerID `json:"playerId,omitempty"`
	Points      int      `json:"points,omitempty"`
	ScoringTeam TeamID   `json:"scoringTeam,omitempty"`
	Text        string   `json:"text"`
}

// GameResult is the write-once outcome of one simulated game.
type GameResult struct {
	ID          string                 `json:"id,omitempty"`
	Week        int                    `json:"week"`
	Home        TeamID                 `json:"home"`
	Away        TeamID                 `json:"away"`
	ScoreHome   int                    `json:"scoreHome"`
	ScoreAway   int                    `json:"scoreAway"`
	Overtime    bool                   `json:"overtime,omitempty"`
	PlayerStats map[PlayerID]GameStats `json:"playerStats"`
	Log         []Play                 `json:"log"`
}

// Winner returns the winning team id and false on a tie.
func (r *GameResult) Winner() (TeamID, bool) {
	switch {
	case r.ScoreHome > r.ScoreAway:
		return r.Home, true
	case r.ScoreAway > r.ScoreHome:
		return r.Away, true
	}
	return 0, false
}

// LogPoints sums the scoring plays credited to team.
func (r *GameResult) LogPoints(team TeamID) int {
	total := 0
	for _, p := range r.Log {
		if p.ScoringTeam == team {
			total += p.Points
		}
	}
	return total
}

// BoxPoints sums the points derivable from team's player lines.
func (r *GameResult) BoxPoints(team TeamID) int {
	total := 0
	for _, s := range r.PlayerStats {
		if s.TeamID == team {
			total += s.Points()
		}
	}
	return total
}

// TeamTotals sums every player line credited to team.
func (r *GameResult) TeamTotals(team TeamID) GameStats {
	var total GameStats
	for _, s := range r.PlayerStats {
		if s.TeamID == team {
			total.Add(s)
		}
	}
	total.TeamID = team
	return total
}
