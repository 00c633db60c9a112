// aviation/arinc424.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/util"
)

const ARINC424RecordLength = 132

func empty(s []byte) bool {
	return len(bytes.TrimSpace(s)) == 0
}

func parseInt(s []byte) (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(s)))
}

func parseAltitude(s []byte) (int, error) {
	if len(s) > 2 && string(s[:2]) == "FL" {
		v, err := parseInt(s[2:])
		return 100 * v, err
	}
	return parseInt(s)
}

func trimmed(s []byte) string {
	return strings.TrimSpace(string(s))
}

type ARINC424Result struct {
	Fixes      []Fix
	Airways    map[string][]Airway
	Procedures []RawLeg
}

type airwayRecord struct {
	seq         int
	fix         string
	region      string
	section     string
	level       AirwayLevel
	direction   AirwayDirection
	minAltitude int
	maxAltitude int
}

// ParseARINC424 parses the airports, runways, navaids, waypoints,
// airways, and SID/STAR/approach records from an ARINC-424 file.
// Malformed records are reported to e and skipped.
func ParseARINC424(r io.Reader, e *util.ErrorLogger) ARINC424Result {
	result := ARINC424Result{Airways: make(map[string][]Airway)}

	// Waypoints may be repeated in both the enroute and terminal
	// sections, so only keep one copy of each.
	seen := make(map[Fix]struct{})
	addFix := func(f Fix) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			result.Fixes = append(result.Fixes, f)
		}
	}

	parseLLDigits := func(d, m, s []byte) (float32, error) {
		deg, err := parseInt(d)
		if err != nil {
			return 0, err
		}
		min, err := parseInt(m)
		if err != nil {
			return 0, err
		}
		sec, err := parseInt(s)
		if err != nil {
			return 0, err
		}
		return float32(deg) + float32(min)/60 + float32(sec)/100/3600, nil
	}
	parseLatLong := func(lat, long []byte) (math.Point2LL, error) {
		var p math.Point2LL
		var err error

		if p[1], err = parseLLDigits(lat[1:3], lat[3:5], lat[5:]); err != nil {
			return p, fmt.Errorf("%s: invalid latitude: %w", string(lat), err)
		}
		if p[0], err = parseLLDigits(long[1:4], long[4:6], long[6:]); err != nil {
			return p, fmt.Errorf("%s: invalid longitude: %w", string(long), err)
		}

		if lat[0] == 'S' {
			p[1] = -p[1]
		}
		if long[0] == 'W' {
			p[0] = -p[0]
		}
		return p, nil
	}

	br := bufio.NewReader(r)
	var lines [][]byte
	lineno := 0

	getline := func() []byte {
		if n := len(lines); n > 0 {
			l := lines[n-1]
			lines = lines[:n-1]
			return l
		}

		for {
			b, err := br.ReadBytes('\n')
			if len(b) == 0 && err != nil {
				if err != io.EOF {
					e.Error(err)
				}
				return nil
			}
			lineno++

			b = bytes.TrimRight(b, "\r\n")
			if len(b) < ARINC424RecordLength {
				e.ErrorString("line %d: unexpected record length %d", lineno, len(b))
				continue
			}
			return b
		}
	}
	ungetline := func(line []byte) {
		lines = append(lines, line)
	}

	// returns an array of ssaRecords for all lines starting at the given
	// one that are airport records for the same procedure.
	matchingSSARecs := func(line []byte, recs []ssaRecord) []ssaRecord {
		icao := string(line[6:10])
		id := trimmed(line[13:19])
		subsec := line[12]

		recs = recs[:0]
		for {
			if cont := line[38]; cont == '0' || cont == '1' { // skip continuation records
				recs = append(recs, parseSSA(line))
			}
			line = getline()
			if line == nil {
				break
			}
			if trimmed(line[13:19]) != id || string(line[6:10]) != icao || line[0] != 'S' ||
				line[4] != 'P' /* section: airport */ || line[12] != subsec {
				ungetline(line)
				break
			}
		}
		return recs
	}

	// Keep this allocation live so that we can reuse it rather than
	// putting a bunch of pressure on the garbage collector by doing lots
	// of ssaRecord allocations during parsing.
	var recs []ssaRecord
	airwayWIP := make(map[int]airwayRecord)

	for {
		line := getline()
		if line == nil {
			break
		}

		recordType := line[0]
		if recordType != 'S' { // not a standard field
			continue
		}

		sectionCode := line[4]
		switch sectionCode {
		case 'D':
			subsectionCode := line[6]
			if subsectionCode == ' ' /* VOR */ || subsectionCode == 'B' /* NDB */ {
				id := trimmed(line[13:17])
				if len(id) < 3 {
					break
				}

				fix := Fix{
					Kind:   util.Select(subsectionCode == ' ', FixKindVOR, FixKindNDB),
					Ident:  id,
					Region: trimmed(line[19:21]),
					Name:   trimmed(line[93:123]),
				}
				var err error
				if !empty(line[32:51]) {
					fix.Location, err = parseLatLong(line[32:41], line[41:51])
				} else {
					// DME without a VOR
					fix.Location, err = parseLatLong(line[55:64], line[64:74])
				}
				if err != nil {
					e.ErrorString("line %d: %s: %v", lineno, id, err)
				} else {
					addFix(fix)
				}
			}

		case 'E':
			subsection := line[5]
			switch subsection {
			case 'A': // enroute waypoint
				id := trimmed(line[13:18])
				if p, err := parseLatLong(line[32:41], line[41:51]); err != nil {
					e.ErrorString("line %d: %s: %v", lineno, id, err)
				} else {
					addFix(Fix{Kind: FixKindWaypoint, Ident: id, Region: trimmed(line[19:21]), Location: p})
				}

			case 'R': // enroute airway
				route := trimmed(line[13:18])
				rec, err := parseAirwayRecord(line)
				if err != nil {
					e.ErrorString("line %d: airway %s: %v", lineno, route, err)
					break
				}
				airwayWIP[rec.seq] = rec

				if line[40] == 'E' { // description code "end of airway"
					a := Airway{Name: route}
					var prev airwayRecord
					// order by sequence number, just in case
					for i, seq := range util.SortedMapKeys(airwayWIP) {
						ar := airwayWIP[seq]
						if a.Direction == AirwayDirectionAny {
							a.Direction = ar.direction
						}
						af := AirwayFix{
							Fix:   Fix{Ident: ar.fix, Region: ar.region, Kind: airwayFixKind(ar.section)},
							Level: ar.level,
						}
						if i > 0 {
							// Each record's altitudes are for the segment to
							// the next fix.
							af.MinAltitude = float32(prev.minAltitude)
							af.MaxAltitude = float32(prev.maxAltitude)
						}
						a.Fixes = append(a.Fixes, af)
						prev = ar
					}
					result.Airways[route] = append(result.Airways[route], a)
					clear(airwayWIP)
				}
			}

		case 'H': // Heliports
			if line[12] == 'C' { // waypoint record
				id := trimmed(line[13:18])
				if p, err := parseLatLong(line[32:41], line[41:51]); err != nil {
					e.ErrorString("line %d: %s: %v", lineno, id, err)
				} else {
					addFix(Fix{Kind: FixKindWaypoint, Ident: id, Region: trimmed(line[19:21]), Location: p})
				}
			}

		case 'P': // Airports
			icao := trimmed(line[6:10])
			subsection := line[12]
			switch subsection {
			case 'A': // primary airport records 4.1.7
				if cont := line[21]; cont != '0' && cont != '1' {
					break
				}
				location, err := parseLatLong(line[32:41], line[41:51])
				if err != nil {
					e.ErrorString("line %d: %s: %v", lineno, icao, err)
					break
				}
				elevation, err := parseInt(line[56:61])
				if err != nil {
					e.ErrorString("line %d: %s: invalid elevation %q", lineno, icao, string(line[56:61]))
				}

				addFix(Fix{
					Kind:      FixKindAirport,
					Ident:     icao,
					Region:    trimmed(line[10:12]),
					Location:  location,
					Elevation: float32(elevation),
					Name:      trimmed(line[93:123]),
				})

			case 'C': // waypoint record 4.1.4
				id := trimmed(line[13:18])
				if p, err := parseLatLong(line[32:41], line[41:51]); err != nil {
					e.ErrorString("line %d: %s: %v", lineno, id, err)
				} else {
					addFix(Fix{Kind: FixKindWaypoint, Ident: id, Region: trimmed(line[19:21]), Location: p})
				}

			case 'D', 'E', 'F': // SID, STAR, Approach 4.1.9
				recs = matchingSSARecs(line, recs)
				if len(recs) == 0 {
					break
				}
				typ := map[byte]ProcedureType{'D': ProcedureSID, 'E': ProcedureSTAR, 'F': ProcedureApproach}[subsection]

				e.Push(icao + "/" + recs[0].id)
				result.Procedures = append(result.Procedures, makeRawLegs(recs, typ, e)...)
				e.Pop()

			case 'G': // runway records 4.1.10
				continuation := line[21]
				if continuation != '0' && continuation != '1' {
					continue
				}
				rwy := trimmed(line[13:18])
				threshold, err := parseLatLong(line[32:41], line[41:51])
				if err != nil {
					e.ErrorString("line %d: %s/%s: %v", lineno, icao, rwy, err)
					break
				}
				elevation, _ := parseInt(line[66:71])

				addFix(Fix{
					Kind:      FixKindRunwayEnd,
					Ident:     rwy,
					Region:    trimmed(line[10:12]),
					Location:  threshold,
					Elevation: float32(elevation),
					Name:      icao,
				})
			}
		}
	}

	resolveAirwayFixes(&result, e)

	return result
}

func airwayFixKind(section string) FixKind {
	switch section {
	case "D":
		return FixKindVOR
	case "DB":
		return FixKindNDB
	default:
		return FixKindWaypoint
	}
}

func parseAirwayRecord(line []byte) (airwayRecord, error) {
	seq, err := parseInt(line[25:29])
	if err != nil {
		return airwayRecord{}, fmt.Errorf("invalid sequence number %q", string(line[25:29]))
	}

	rec := airwayRecord{
		seq:     seq,
		fix:     trimmed(line[29:34]),
		region:  trimmed(line[34:36]),
		section: trimmed(line[36:38]),
	}

	switch line[45] {
	case 'B', ' ':
		rec.level = AirwayLevelAll
	case 'H':
		rec.level = AirwayLevelHigh
	case 'L':
		rec.level = AirwayLevelLow
	default:
		return airwayRecord{}, fmt.Errorf("unexpected airway level %q", string(line[45]))
	}

	switch line[46] {
	case 'F':
		rec.direction = AirwayDirectionForward
	case 'B':
		rec.direction = AirwayDirectionBackward
	case ' ':
		rec.direction = AirwayDirectionAny
	default:
		return airwayRecord{}, fmt.Errorf("unexpected airway direction %q", string(line[46]))
	}

	// These may be "UNKNN" or "NESTB"; treat those as unspecified.
	rec.minAltitude, _ = parseAltitude(line[83:88])
	rec.maxAltitude, _ = parseAltitude(line[93:98])

	return rec, nil
}

// resolveAirwayFixes fills in the locations of the fixes along airways;
// airway records only give their identifiers.
func resolveAirwayFixes(result *ARINC424Result, e *util.ErrorLogger) {
	type key struct {
		ident, region string
		kind          FixKind
	}
	fixes := make(map[key]Fix)
	for _, f := range result.Fixes {
		fixes[key{f.Ident, f.Region, f.Kind}] = f
	}

	for name, airways := range result.Airways {
		for i := range airways {
			var resolved []AirwayFix
			for _, af := range airways[i].Fixes {
				if f, ok := fixes[key{af.Fix.Ident, af.Fix.Region, af.Fix.Kind}]; ok {
					af.Fix = f
					resolved = append(resolved, af)
				} else {
					e.ErrorString("airway %s: fix %s not found", name, af.Fix)
				}
			}
			airways[i].Fixes = resolved
		}
	}
}

type ssaRecord struct {
	icao                   string
	id                     string
	routeType              byte
	transition             string
	sequence               []byte
	fix, fixRegion         string
	waypointDescription    []byte
	continuation           byte
	turnDirection          byte
	pathAndTermination     string
	recommendedNavaid      string
	navaidRegion           string
	arcRadius              []byte
	theta                  []byte
	rho                    []byte
	outboundMagneticCourse []byte
	routeDistance          []byte
	altDescrip             byte
	alt1, alt2             []byte
	speed                  []byte
	centerFix              string
	centerRegion           string
	speedLimitType         byte
}

func parseSSA(line []byte) ssaRecord {
	return ssaRecord{
		icao:                   trimmed(line[6:10]),
		id:                     trimmed(line[13:19]),
		routeType:              line[19],
		transition:             trimmed(line[20:25]),
		sequence:               line[26:29],
		fix:                    trimmed(line[29:34]),
		fixRegion:              trimmed(line[34:36]),
		continuation:           line[38],
		waypointDescription:    line[39:43],
		turnDirection:          line[43],
		pathAndTermination:     string(line[47:49]), // 5.21, p188
		recommendedNavaid:      trimmed(line[50:54]),
		navaidRegion:           trimmed(line[54:56]),
		arcRadius:              line[56:62],
		theta:                  line[62:66],
		rho:                    line[66:70],
		outboundMagneticCourse: line[70:74],
		routeDistance:          line[74:78],
		altDescrip:             line[82], // sec 5.29
		alt1:                   line[84:89],
		alt2:                   line[89:94],
		speed:                  line[99:102],
		centerFix:              trimmed(line[106:111]),
		centerRegion:           trimmed(line[112:114]),
		speedLimitType:         line[117], // 5.261
	}
}

// ssaSegment maps the route type (5.7) of a procedure record to the
// procedure segment it's part of.
func ssaSegment(typ ProcedureType, routeType byte) ProcedureSegment {
	switch typ {
	case ProcedureSID:
		switch routeType {
		case '1', '4', 'F', 'T':
			return SegmentRunwayTransition
		case '2', '5', 'M':
			return SegmentCommon
		case '3', '6', 'S', 'V':
			return SegmentEnrouteTransition
		}
	case ProcedureSTAR:
		switch routeType {
		case '1', '4', '7', 'F':
			return SegmentEnrouteTransition
		case '2', '5', '8', 'M':
			return SegmentCommon
		case '3', '6', '9', 'S':
			return SegmentRunwayTransition
		}
	case ProcedureApproach:
		if routeType == 'A' {
			return SegmentApproachTransition
		}
		return SegmentFinal
	}
	return SegmentUnknown
}

func (r ssaRecord) rawLeg(typ ProcedureType) (RawLeg, error) {
	pt, err := ParseLegType(r.pathAndTermination)
	if err != nil {
		return RawLeg{}, err
	}

	leg := RawLeg{
		Airport:            r.icao,
		Procedure:          r.id,
		Type:               typ,
		Segment:            ssaSegment(typ, r.routeType),
		Transition:         r.transition,
		PathTerminator:     pt,
		Fix:                r.fix,
		FixRegion:          r.fixRegion,
		Navaid:             r.recommendedNavaid,
		NavaidRegion:       r.navaidRegion,
		CenterFix:          r.centerFix,
		CenterRegion:       r.centerRegion,
		AltitudeDescriptor: r.altDescrip,
		SpeedDescriptor:    r.speedLimitType,
		FlyOver:            r.waypointDescription[1] == 'Y',
		GPSOverlay:         typ == ProcedureApproach && r.routeType == 'P',
	}
	switch r.waypointDescription[3] {
	case 'A', 'C', 'D':
		leg.IAF = true
	case 'B', 'I':
		leg.IF = true
	case 'F':
		leg.FAF = true
	case 'M':
		leg.MissedApproach = true
	}
	switch r.turnDirection {
	case 'L':
		leg.Turn = TurnLeft
	case 'R':
		leg.Turn = TurnRight
	}

	tenths := func(s []byte) (float32, error) {
		if empty(s) {
			return 0, nil
		}
		v, err := parseInt(s)
		return float32(v) / 10, err
	}
	if leg.Sequence, err = parseInt(r.sequence); err != nil {
		return RawLeg{}, fmt.Errorf("invalid sequence number %q", string(r.sequence))
	}
	if !empty(r.arcRadius) {
		v, err := parseInt(r.arcRadius)
		if err != nil {
			return RawLeg{}, fmt.Errorf("invalid arc radius %q", string(r.arcRadius))
		}
		leg.ArcRadius = float32(v) / 1000
	}
	if leg.Theta, err = tenths(r.theta); err != nil {
		return RawLeg{}, fmt.Errorf("invalid theta %q", string(r.theta))
	}
	if leg.Rho, err = tenths(r.rho); err != nil {
		return RawLeg{}, fmt.Errorf("invalid rho %q", string(r.rho))
	}
	crs := r.outboundMagneticCourse
	if crs[3] == 'T' { // true course in whole degrees
		v, err := parseInt(crs[:3])
		if err != nil {
			return RawLeg{}, fmt.Errorf("invalid course %q", string(crs))
		}
		leg.Course = float32(v)
	} else if leg.Course, err = tenths(crs); err != nil {
		return RawLeg{}, fmt.Errorf("invalid course %q", string(crs))
	}
	if r.routeDistance[0] == 'T' { // it's a time
		if leg.Time, err = tenths(r.routeDistance[1:]); err != nil {
			return RawLeg{}, fmt.Errorf("invalid time %q", string(r.routeDistance))
		}
	} else if leg.Distance, err = tenths(r.routeDistance); err != nil {
		return RawLeg{}, fmt.Errorf("invalid distance %q", string(r.routeDistance))
	}

	if !empty(r.alt1) {
		v, err := parseAltitude(r.alt1)
		if err != nil {
			return RawLeg{}, fmt.Errorf("invalid altitude %q", string(r.alt1))
		}
		leg.Altitude1 = float32(v)
	}
	if !empty(r.alt2) {
		v, err := parseAltitude(r.alt2)
		if err != nil {
			return RawLeg{}, fmt.Errorf("invalid altitude %q", string(r.alt2))
		}
		leg.Altitude2 = float32(v)
	}
	if _, err := leg.AltitudeRestriction(); err != nil {
		return RawLeg{}, err
	}
	if !empty(r.speed) {
		v, err := parseInt(r.speed)
		if err != nil {
			return RawLeg{}, fmt.Errorf("invalid speed %q", string(r.speed))
		}
		leg.Speed = float32(v)
	}

	return leg, nil
}

// makeRawLegs converts the records for a single procedure to RawLegs,
// marking the legs after the start of a missed approach.
func makeRawLegs(recs []ssaRecord, typ ProcedureType, e *util.ErrorLogger) []RawLeg {
	var legs []RawLeg
	missed := false
	for i, rec := range recs {
		if i > 0 && rec.transition != recs[i-1].transition {
			missed = false
		}

		leg, err := rec.rawLeg(typ)
		if err != nil {
			e.ErrorString("%s %s: %v", rec.transition, string(rec.sequence), err)
			continue
		}

		missed = missed || leg.MissedApproach || rec.routeType == 'Z'
		leg.MissedApproach = typ == ProcedureApproach && missed
		legs = append(legs, leg)
	}
	return legs
}
