package sim

import (
	"fmt"
	"math"

	"github.com/derekprior/gridiron/internal/league"
)

// regulation plays four quarters or maxPlays snaps, whichever ends first.
// The away team receives the opening kickoff and the home team the
// second-half kickoff.
func (g *game) regulation() {
	g.quarter, g.clock = 1, quarterSeconds
	g.kick(1, false)
	for g.plays < g.maxPlays {
		g.snap()
		if g.clock > 0 {
			continue
		}
		if g.quarter == 4 {
			return
		}
		g.quarter++
		g.clock = quarterSeconds
		if g.quarter == 3 {
			g.kick(0, false)
		}
	}
}

// playOvertime gives each team one possession starting 25 yards from the
// goal, in coin-toss order. A game still tied afterwards is a tie.
func (g *game) playOvertime() {
	g.overtime = true
	g.quarter = 5
	g.clock = 0
	first := g.rng.Intn(2)
	for _, idx := range []int{first, 1 - first} {
		g.startDrive(idx, 75)
		g.possessionOver = false
		for n := 0; n < overtimePlayCap && !g.possessionOver; n++ {
			g.snap()
		}
	}
}

func (g *game) startDrive(idx, los int) {
	g.off = idx
	g.los = los
	g.down = 1
	g.distance = min(10, 100-los)
}

// turnover hands the ball to the defense with los yards to its own goal
// line behind it. In overtime it ends the possession instead.
func (g *game) turnover(los int) {
	if g.overtime {
		g.possessionOver = true
		return
	}
	g.startDrive(g.def(), min(99, max(1, los)))
}

// kick restarts play for receiver after a score or at the start of a
// half. free marks the free kick after a safety.
func (g *game) kick(receiver int, free bool) {
	if g.overtime {
		g.possessionOver = true
		return
	}
	los, text := 25, "touchback"
	switch {
	case free:
		los = 30 + g.rng.Intn(16)
		text = fmt.Sprintf("free kick returned to the %d", los)
	case g.rng.Float64() >= 0.6:
		los = 15 + g.rng.Intn(26)
		text = fmt.Sprintf("returned to the %d", los)
	}
	g.startDrive(receiver, los)

	pl := g.newPlay(league.PlayKickoff)
	pl.Down, pl.Distance = 0, 0
	pl.Text = fmt.Sprintf("%s kicks to %s, %s", g.sides[1-receiver].team.Abbr, g.sides[receiver].team.Abbr, text)
	g.log = append(g.log, pl)
	g.tick(5)
}

// snap runs one offensive play.
func (g *game) snap() {
	g.plays++
	if g.down == 4 {
		switch {
		case g.los >= 63:
			g.fieldGoal()
			return
		case g.overtime, g.distance <= 2 && g.los >= 40, g.trailingLate():
			// go for it
		default:
			g.punt()
			return
		}
	}

	passRate := 0.55
	switch {
	case g.distance >= 7:
		passRate = 0.7
	case g.distance <= 2:
		passRate = 0.35
	}
	if g.rng.Float64() < passRate {
		g.pass()
	} else {
		g.run()
	}
}

func (g *game) trailingLate() bool {
	return g.quarter == 4 && g.clock < 300 && g.score[g.off] < g.score[g.def()]
}

// advance moves the ball after a play that kept possession, then updates
// down and distance or turns the ball over on downs.
func (g *game) advance(yards int) {
	g.los += yards
	g.distance -= yards
	if g.distance <= 0 {
		g.down = 1
		g.distance = min(10, 100-g.los)
		return
	}
	if g.down < 4 {
		g.down++
		return
	}
	pl := g.newPlay(league.PlayDowns)
	pl.Text = fmt.Sprintf("%s turns it over on downs", g.sides[g.off].team.Abbr)
	g.log = append(g.log, pl)
	g.turnover(100 - g.los)
}

func (g *game) run() {
	o, d := g.sides[g.off], g.sides[g.def()]
	carrier := g.pickShare(o, rushers, offenseFallback)
	yards := int(math.Round(g.rng.NormFloat64()*3.5 + 4 + g.edge(g.off)*12))
	yards = max(-4, min(yards, 100-g.los))

	pl := g.newPlay(league.PlayRun)
	pl.PlayerID = carrier.ID
	pl.Yards = yards
	cl := g.line(o, carrier)
	cl.RushAtt++
	cl.RushYd += yards
	g.tick(25 + g.rng.Intn(16))

	switch {
	case g.los+yards >= 100:
		cl.RushTD++
		g.award(g.off, 6, &pl)
		pl.Text = fmt.Sprintf("%s runs %d yards for a touchdown", carrier.Name, yards)
		g.log = append(g.log, pl)
		g.afterTouchdown(g.off)
	case g.los+yards <= 0:
		tackler := g.pickShare(d, tacklers, defenseFallback)
		g.safety(pl, tackler, fmt.Sprintf("%s tackled in the end zone by %s", carrier.Name, tackler.Name))
	case g.rng.Float64() < 0.012:
		rec := g.pickShare(d, tacklers, defenseFallback)
		cl.Fumbles++
		g.line(d, rec).FumblesRec++
		pl.Type = league.PlayFumble
		pl.Text = fmt.Sprintf("%s fumbles, recovered by %s", carrier.Name, rec.Name)
		g.log = append(g.log, pl)
		g.turnover(100 - (g.los + yards))
	default:
		tackler := g.pickShare(d, tacklers, defenseFallback)
		g.line(d, tackler).Tackles++
		pl.Text = fmt.Sprintf("%s runs for %d yards", carrier.Name, yards)
		g.log = append(g.log, pl)
		g.advance(yards)
	}
}

func (g *game) pass() {
	qb := g.pick(g.sides[g.off], league.QB)
	e := g.edge(g.off)
	sackRate := clamp(0.065-e*0.05, 0.02, 0.12)
	intRate := clamp(0.025-e*0.02, 0.008, 0.05)

	roll := g.rng.Float64()
	switch {
	case roll < sackRate:
		g.sack(qb)
	case roll < sackRate+intRate:
		g.interception(qb)
	default:
		g.throw(qb, e)
	}
}

func (g *game) sack(qb *league.Player) {
	o, d := g.sides[g.off], g.sides[g.def()]
	sacker := g.pickShare(d, passRushers, defenseFallback)
	loss := 3 + g.rng.Intn(7)

	pl := g.newPlay(league.PlaySack)
	pl.PlayerID = qb.ID
	pl.Yards = -loss
	g.line(o, qb).Sacked++
	g.line(d, sacker).Sacks++
	g.tick(30)

	if g.los-loss <= 0 {
		g.safety(pl, sacker, fmt.Sprintf("%s sacked in the end zone by %s", qb.Name, sacker.Name))
		return
	}
	pl.Text = fmt.Sprintf("%s sacked by %s for a loss of %d", qb.Name, sacker.Name, loss)
	g.log = append(g.log, pl)
	g.advance(-loss)
}

func (g *game) interception(qb *league.Player) {
	o, d := g.sides[g.off], g.sides[g.def()]
	target := g.pickShare(o, receivers, offenseFallback)
	defender := g.pickShare(d, coverage, defenseFallback)
	air := 5 + g.rng.Intn(25)

	pl := g.newPlay(league.PlayInterception)
	pl.PlayerID = qb.ID
	ql := g.line(o, qb)
	ql.PassAtt++
	ql.PassInt++
	g.line(o, target).Targets++
	dl := g.line(d, defender)
	dl.Ints++
	g.tick(10 + g.rng.Intn(10))

	if g.rng.Float64() < 0.06 {
		scorer := g.def()
		dl.DefTD++
		g.award(scorer, 6, &pl)
		pl.Text = fmt.Sprintf("%s intercepted by %s and returned for a touchdown", qb.Name, defender.Name)
		g.log = append(g.log, pl)
		g.afterTouchdown(scorer)
		return
	}
	spot := min(g.los+air, 99)
	ret := g.rng.Intn(15)
	pl.Text = fmt.Sprintf("%s intercepted by %s", qb.Name, defender.Name)
	g.log = append(g.log, pl)
	g.turnover(100 - spot + ret)
}

func (g *game) throw(qb *league.Player, e float64) {
	o, d := g.sides[g.off], g.sides[g.def()]
	target := g.pickShare(o, receivers, offenseFallback)

	pl := g.newPlay(league.PlayPass)
	pl.PlayerID = target.ID
	ql := g.line(o, qb)
	tl := g.line(o, target)
	ql.PassAtt++
	tl.Targets++

	if g.rng.Float64() >= clamp(0.62+e*0.3, 0.35, 0.85) {
		pl.Type = league.PlayIncomplete
		pl.Text = fmt.Sprintf("%s pass incomplete to %s", qb.Name, target.Name)
		g.log = append(g.log, pl)
		g.tick(6)
		g.advance(0)
		return
	}

	yards := int(math.Round(g.rng.ExpFloat64()*8)) + 2 + int(e*6)
	yards = max(-2, min(yards, 100-g.los))
	pl.Yards = yards
	ql.PassComp++
	ql.PassYd += yards
	tl.Receptions++
	tl.RecYd += yards
	g.tick(20 + g.rng.Intn(16))

	switch {
	case g.los+yards >= 100:
		ql.PassTD++
		tl.RecTD++
		g.award(g.off, 6, &pl)
		pl.Text = fmt.Sprintf("%s %d-yard touchdown pass to %s", qb.Name, yards, target.Name)
		g.log = append(g.log, pl)
		g.afterTouchdown(g.off)
	case g.los+yards <= 0:
		tackler := g.pickShare(d, tacklers, defenseFallback)
		g.safety(pl, tackler, fmt.Sprintf("%s tackled in the end zone by %s", target.Name, tackler.Name))
	default:
		tackler := g.pickShare(d, tacklers, defenseFallback)
		g.line(d, tackler).Tackles++
		pl.Text = fmt.Sprintf("%s pass to %s for %d yards", qb.Name, target.Name, yards)
		g.log = append(g.log, pl)
		g.advance(yards)
	}
}

func (g *game) punt() {
	o := g.sides[g.off]
	punter := g.pick(o, league.P, league.K)
	net := 35 + g.rng.Intn(16)

	pl := g.newPlay(league.PlayPunt)
	pl.PlayerID = punter.ID
	pl.Yards = net
	pline := g.line(o, punter)
	pline.Punts++
	pline.PuntYd += net
	g.tick(8)

	recv := 20
	if land := g.los + net; land < 100 {
		recv = 100 - land
	}
	pl.Text = fmt.Sprintf("%s punts %d yards", punter.Name, net)
	g.log = append(g.log, pl)
	g.turnover(recv)
}

func (g *game) fieldGoal() {
	o := g.sides[g.off]
	kicker := g.pick(o, league.K, league.P)
	dist := 100 - g.los + 17
	prob := clamp(1.02-float64(dist)*0.011+(o.rating[kicker.ID]-70)/400, 0.05, 0.99)

	pl := g.newPlay(league.PlayFieldGoal)
	pl.PlayerID = kicker.ID
	pl.Yards = dist
	kl := g.line(o, kicker)
	kl.FGAtt++
	g.tick(5)

	if g.rng.Float64() < prob {
		kl.FGMade++
		g.award(g.off, 3, &pl)
		pl.Text = fmt.Sprintf("%s %d-yard field goal is good", kicker.Name, dist)
		g.log = append(g.log, pl)
		g.kick(g.def(), false)
		return
	}
	pl.Text = fmt.Sprintf("%s %d-yard field goal is no good", kicker.Name, dist)
	g.log = append(g.log, pl)
	g.turnover(max(20, 100-g.los))
}

// safety scores two for the defense on a play that ended in the offense's
// own end zone. The defender is credited and the offense free kicks.
func (g *game) safety(pl league.Play, defender *league.Player, text string) {
	scorer := g.def()
	g.line(g.sides[scorer], defender).Safeties++
	pl.Type = league.PlaySafety
	g.award(scorer, 2, &pl)
	pl.Text = text + ", safety"
	g.log = append(g.log, pl)
	g.kick(scorer, true)
}

func (g *game) afterTouchdown(scorer int) {
	g.convert(scorer)
	g.kick(1-scorer, false)
}

// convert runs the try after a touchdown: two points when the score calls
// for it late in the game (and occasionally otherwise), else a kick.
func (g *game) convert(scorer int) {
	sd := g.sides[scorer]
	lead := g.score[scorer] - g.score[1-scorer]
	pl := league.Play{
		Quarter: g.quarter,
		Clock:   max(g.clock, 0),
		Offense: sd.team.ID,
		BallOn:  tryLine(scorer),
	}

	late := g.quarter >= 4 && (lead == -2 || lead == 1 || lead == -5 || lead == -10)
	if late || g.rng.Float64() < 0.04 {
		g.twoPoint(scorer, pl)
		return
	}

	kicker := g.pick(sd, league.K, league.P)
	kl := g.line(sd, kicker)
	kl.XPAtt++
	pl.Type = league.PlayExtraPoint
	pl.PlayerID = kicker.ID
	if g.rng.Float64() < clamp(0.92+(sd.rating[kicker.ID]-70)/300, 0.6, 0.995) {
		kl.XPMade++
		g.award(scorer, 1, &pl)
		pl.Text = fmt.Sprintf("%s extra point is good", kicker.Name)
	} else {
		pl.Text = fmt.Sprintf("%s extra point is no good", kicker.Name)
	}
	g.log = append(g.log, pl)
}

// twoPoint credits a successful try to the ball carrier or the receiver.
func (g *game) twoPoint(scorer int, pl league.Play) {
	sd := g.sides[scorer]
	pl.Type = league.PlayTwoPoint

	var credited *league.Player
	if g.rng.Float64() < 0.5 {
		credited = g.pickShare(sd, rushers, offenseFallback)
		pl.Text = fmt.Sprintf("%s runs on the two-point try", credited.Name)
	} else {
		credited = g.pickShare(sd, receivers, offenseFallback)
		pl.Text = fmt.Sprintf("two-point pass to %s", credited.Name)
	}
	pl.PlayerID = credited.ID

	if g.rng.Float64() < clamp(0.45+g.edge(scorer)*0.3, 0.3, 0.6) {
		g.line(sd, credited).TwoPtMade++
		g.award(scorer, 2, &pl)
		pl.Text += ", good"
	} else {
		pl.Text += ", no good"
	}
	g.log = append(g.log, pl)
}

// tryLine is the ball position for a try, two yards from the goal the
// scorer attacks.
func tryLine(scorer int) int {
	if scorer == 0 {
		return 98
	}
	return 2
}
