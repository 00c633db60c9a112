// route/table.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"fmt"
	"io"
	"strings"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/profile"
)

// LegRow is one row of the tabular view of a flight plan.
type LegRow struct {
	Ident      string  `json:"ident"`
	Type       string  `json:"type"`
	Category   string  `json:"category"`
	Procedure  string  `json:"procedure,omitempty"`
	Airway     string  `json:"airway,omitempty"`
	Course     float32 `json:"course"`
	Distance   float32 `json:"distance"`
	Cumulative float32 `json:"cumulative"`
	Remaining  float32 `json:"remaining"`
	Altitude   string  `json:"altitude,omitempty"` // encoded restriction
	Speed      string  `json:"speed,omitempty"`
	// ProfileAltitude is the altitude from the vertical profile at the
	// end of the leg, if one is available.
	ProfileAltitude float32 `json:"profile_altitude,omitempty"`
	Missed          bool    `json:"missed,omitempty"`
}

// MakeLegTable returns the rows for the legs of the flight plan; vp may
// be nil.
func MakeLegTable(fp *av.FlightPlan, vp *profile.VerticalProfile) []LegRow {
	dist := fp.Distances()
	total := fp.TotalDistance()

	rows := make([]LegRow, len(fp.Legs))
	for i, leg := range fp.Legs {
		proc := leg.Procedure
		if leg.Transition != "" && !av.IsRunwayTransition(leg.Transition) {
			proc += "." + leg.Transition
		}
		rows[i] = LegRow{
			Ident:      leg.Ident(),
			Type:       leg.Type.Code(),
			Category:   leg.Category.String(),
			Procedure:  proc,
			Airway:     leg.Airway,
			Course:     leg.Course,
			Distance:   leg.Distance,
			Cumulative: dist[i],
			Remaining:  total - dist[i],
			Altitude:   leg.Altitude.Encoded(),
			Speed:      leg.Speed.Encoded(),
			Missed:     leg.Category == av.MissedApproach,
		}
		if vp != nil && i < len(vp.LegAltitudes) && !rows[i].Missed {
			rows[i].ProfileAltitude = vp.LegAltitudes[i]
		}
	}
	return rows
}

// WriteLegTable writes the rows as aligned text.
func WriteLegTable(w io.Writer, rows []LegRow) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-7s %-3s %-18s %-12s %-6s %5s %7s %7s %-12s %-6s %6s\n", "IDENT", "PT", "CATEGORY", "PROCEDURE",
		"AIRWAY", "CRS", "DIST", "CUM", "ALT", "SPD", "PROF")
	for _, r := range rows {
		prof := ""
		if r.ProfileAltitude != 0 {
			prof = fmt.Sprintf("%.0f", r.ProfileAltitude)
		}
		fmt.Fprintf(&sb, "%-7s %-3s %-18s %-12s %-6s %05.1f %7.1f %7.1f %-12s %-6s %6s\n", r.Ident, r.Type, r.Category,
			r.Procedure, r.Airway, r.Course, r.Distance, r.Cumulative, r.Altitude, r.Speed, prof)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
