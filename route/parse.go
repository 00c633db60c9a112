// route/parse.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/navdb"
	"github.com/mmp/routeplan/util"
)

// Classifier is used by ParseRouteString to decide what route tokens
// are. navdb.MemoryDatabase implements it; DatabaseClassifier adapts any
// navdb.Database.
type Classifier interface {
	IsAirport(ident string) bool
	IsAirway(name string) bool
	// IsProcedure reports whether the airport has a SID, STAR, or
	// approach with the given name.
	IsProcedure(airport, name string) bool
}

// DatabaseClassifier classifies tokens using queries to a navdb.Database.
// Query errors are treated as the token not matching.
type DatabaseClassifier struct {
	Ctx context.Context
	DB  navdb.Database
}

func (c DatabaseClassifier) IsAirport(ident string) bool {
	fixes, err := c.DB.FindFixByIdent(c.Ctx, ident, "")
	if err != nil {
		return false
	}
	for _, f := range fixes {
		if f.Kind == av.FixKindAirport {
			return true
		}
	}
	return false
}

func (c DatabaseClassifier) IsAirway(name string) bool {
	airways, err := c.DB.GetAirway(c.Ctx, name)
	return err == nil && len(airways) > 0
}

func (c DatabaseClassifier) IsProcedure(airport, name string) bool {
	legs, err := c.DB.GetProcedureLegs(c.Ctx, navdb.ProcedureKey{Airport: airport, Procedure: name})
	return err == nil && len(legs) > 0
}

type TokenKind int

const (
	// TokenFix is a bare identifier to be resolved to a fix.
	TokenFix TokenKind = iota
	// TokenCoordinate is a latitude/longitude position.
	TokenCoordinate
	// TokenAirway means "via Airway to Ident".
	TokenAirway
)

func (k TokenKind) String() string {
	return [...]string{"Fix", "Coordinate", "Airway"}[k]
}

// Token is an enroute element of a route string.
type Token struct {
	Kind     TokenKind
	Ident    string
	Airway   string        // TokenAirway only
	Location math.Point2LL // TokenCoordinate only
}

func (t Token) String() string {
	if t.Kind == TokenAirway {
		return t.Airway + " " + t.Ident
	}
	return t.Ident
}

// ParsedRoute holds the unresolved elements of a route string.
type ParsedRoute struct {
	Departure     string
	DepartureTime string
	Destination   string
	ArrivalTime   string
	Alternates    []string

	CruiseSpeed    float32 // knots
	CruiseMach     float32
	CruiseAltitude float32 // feet
	VFR            bool

	SID            string
	SIDTransition  string
	STAR           string
	STARTransition string

	Enroute []Token
}

var (
	speedAltitudeRe = regexp.MustCompile(`^([NK]\d{4}|M\d{3})([FA]\d{3}|[SM]\d{4}|VFR)$`)
	airwayRe        = regexp.MustCompile(`^[A-Z]{1,2}\d{1,4}[A-Z]?$`)
	procedureRe     = regexp.MustCompile(`^[A-Z]{3,6}\d{1,2}[A-Z]?$`)
	airportRe       = regexp.MustCompile(`^[A-Z]{4}$`)
	identRe         = regexp.MustCompile(`^[A-Z0-9]{2,7}$`)
	timeRe          = regexp.MustCompile(`^\d{4}$`)
)

// lexicalClassifier is used when no Classifier is available.
type lexicalClassifier struct{}

func (lexicalClassifier) IsAirport(ident string) bool { return airportRe.MatchString(ident) }
func (lexicalClassifier) IsAirway(name string) bool   { return airwayRe.MatchString(name) }
func (lexicalClassifier) IsProcedure(_, name string) bool {
	return procedureRe.MatchString(name)
}

// ParseRouteString parses a route of the form
//
//	FROM[/TIME] [SPEED ALT] [SID[.TRANS]] ENROUTE... [STAR[.TRANS]] TO[/TIME] [ALTERNATE...]
//
// where ENROUTE elements are fix identifiers, coordinates, or an
// airway followed by the fix where it is left. DCT is ignored. If c is
// nil, tokens are classified by their form alone.
//
// A *av.ParseError is returned if the departure or destination is
// missing. Other problems cause individual tokens to be dropped and are
// reported to e.
func ParseRouteString(s string, c Classifier, e *util.ErrorLogger) (ParsedRoute, error) {
	if c == nil {
		c = lexicalClassifier{}
	}
	if e == nil {
		e = &util.ErrorLogger{}
	}

	var fields []string
	for _, f := range strings.Fields(strings.ToUpper(s)) {
		if f != "DCT" {
			fields = append(fields, f)
		}
	}

	if len(fields) == 0 {
		return ParsedRoute{}, &av.ParseError{Route: s, Msg: "no departure airport"}
	} else if len(fields) == 1 {
		return ParsedRoute{}, &av.ParseError{Route: s, Msg: "no destination airport"}
	}

	var pr ParsedRoute
	pr.Departure, pr.DepartureTime = splitTime(fields[0], e)

	// Trailing airports: the first is the destination and the rest are
	// alternates. If the last token isn't an airport, it's taken as the
	// destination anyway.
	to := len(fields) - 1
	if id, _ := splitTime(fields[to], nil); c.IsAirport(id) {
		for to-1 > 0 {
			if id, _ := splitTime(fields[to-1], nil); !c.IsAirport(id) {
				break
			}
			to--
		}
	}
	pr.Destination, pr.ArrivalTime = splitTime(fields[to], e)
	for _, f := range fields[to+1:] {
		id, _ := splitTime(f, nil)
		pr.Alternates = append(pr.Alternates, id)
	}

	middle := fields[1:to]
	if len(middle) > 0 && speedAltitudeRe.MatchString(middle[0]) {
		pr.parseSpeedAltitude(middle[0], e)
		middle = middle[1:]
	}

	if len(middle) > 0 {
		name, tr := splitTransition(middle[0])
		isSID := c.IsProcedure(pr.Departure, name) && !c.IsAirway(name)
		if isSID && len(middle) == 1 && tr == "" && c.IsProcedure(pr.Destination, name) {
			// It could be either; leave it to be taken as the STAR.
			isSID = false
		}
		if isSID {
			pr.SID, pr.SIDTransition = name, tr
			middle = middle[1:]
		}
	}
	if len(middle) > 0 {
		// STARs may be given as either STAR.TRANS or TRANS.STAR.
		name, tr := splitTransition(middle[len(middle)-1])
		if !c.IsProcedure(pr.Destination, name) && tr != "" && c.IsProcedure(pr.Destination, tr) {
			name, tr = tr, name
		}
		if c.IsProcedure(pr.Destination, name) && !c.IsAirway(name) {
			pr.STAR, pr.STARTransition = name, tr
			middle = middle[:len(middle)-1]
		}
	}

	pr.Enroute = parseEnroute(middle, c, e)

	return pr, nil
}

func parseEnroute(tokens []string, c Classifier, e *util.ErrorLogger) []Token {
	var enroute []Token
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		// Speed or altitude changes at a fix aren't modeled.
		if id, sa, ok := strings.Cut(tok, "/"); ok && speedAltitudeRe.MatchString(sa) {
			tok = id
		}

		if p, ok := math.ParseICAOCoordinate(tok); ok {
			enroute = append(enroute, Token{Kind: TokenCoordinate, Ident: tok, Location: p})
			continue
		}

		if c.IsAirway(tok) {
			if i+1 == len(tokens) {
				e.ErrorString("%s: airway without exit fix. Ignoring.", tok)
				continue
			}
			next := tokens[i+1]
			if c.IsAirway(next) {
				// Drop this segment and pick up with the next airway.
				e.ErrorString("%s: airway followed by airway %s. Ignoring.", tok, next)
				continue
			}
			if !identRe.MatchString(next) {
				e.ErrorString("%s: invalid exit fix %q. Ignoring.", tok, next)
				i++
				continue
			}
			enroute = append(enroute, Token{Kind: TokenAirway, Airway: tok, Ident: next})
			i++
			continue
		}

		if !identRe.MatchString(tok) {
			e.ErrorString("%s: unrecognized route element. Ignoring.", tok)
			continue
		}
		enroute = append(enroute, Token{Kind: TokenFix, Ident: tok})
	}
	return enroute
}

// splitTime splits an airport token of the form "KJFK/1230".
func splitTime(tok string, e *util.ErrorLogger) (ident, time string) {
	ident, time, ok := strings.Cut(tok, "/")
	if ok && !timeRe.MatchString(time) {
		if e != nil {
			e.ErrorString("%s: invalid time %q. Ignoring.", ident, time)
		}
		time = ""
	}
	return
}

func splitTransition(tok string) (name, transition string) {
	name, transition, _ = strings.Cut(tok, ".")
	return
}

func (pr *ParsedRoute) parseSpeedAltitude(s string, e *util.ErrorLogger) {
	m := speedAltitudeRe.FindStringSubmatch(s)
	speed, alt := m[1], m[2]

	v, err := strconv.Atoi(speed[1:])
	if err != nil {
		e.ErrorString("%s: invalid speed. Ignoring.", speed)
		return
	}
	switch speed[0] {
	case 'N':
		pr.CruiseSpeed = float32(v)
	case 'K':
		pr.CruiseSpeed = float32(v) / 1.852
	case 'M':
		pr.CruiseMach = float32(v) / 100
	}

	if alt == "VFR" {
		pr.VFR = true
		return
	}
	a, err := strconv.Atoi(alt[1:])
	if err != nil {
		e.ErrorString("%s: invalid altitude. Ignoring.", alt)
		return
	}
	switch alt[0] {
	case 'F', 'A':
		pr.CruiseAltitude = float32(a) * 100
	case 'S', 'M':
		// Tens of meters
		pr.CruiseAltitude = float32(a) * 10 * 3.28084
	}
}

// String returns the route in the form accepted by ParseRouteString.
func (pr ParsedRoute) String() string {
	var s []string
	add := func(id, suffix string) { s = append(s, id+suffix) }

	add(pr.Departure, util.Select(pr.DepartureTime != "", "/"+pr.DepartureTime, ""))
	if pr.CruiseAltitude > 0 && (pr.CruiseSpeed > 0 || pr.CruiseMach > 0) {
		fp := av.FlightPlan{CruiseAltitude: pr.CruiseAltitude, CruiseSpeed: pr.CruiseSpeed, CruiseMach: pr.CruiseMach}
		s = append(s, fp.SpeedAltitudeString())
	}
	if pr.SID != "" {
		add(pr.SID, util.Select(pr.SIDTransition != "", "."+pr.SIDTransition, ""))
	}
	for _, t := range pr.Enroute {
		s = append(s, t.String())
	}
	if pr.STAR != "" {
		add(pr.STAR, util.Select(pr.STARTransition != "", "."+pr.STARTransition, ""))
	}
	add(pr.Destination, util.Select(pr.ArrivalTime != "", "/"+pr.ArrivalTime, ""))
	s = append(s, pr.Alternates...)
	return strings.Join(s, " ")
}
