// aviation/arinc424_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	gomath "math"
	"strings"
	"testing"

	"github.com/mmp/routeplan/util"
)

type col struct {
	offset int
	value  string
}

// record returns a 132-character ARINC-424 record with the given values
// at the given (0-based) columns.
func record(cols ...col) string {
	b := []byte(strings.Repeat(" ", ARINC424RecordLength))
	for _, c := range cols {
		copy(b[c.offset:], c.value)
	}
	return string(b) + "\r\n"
}

func approxEqual(a, b, tol float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(tol)
}

func TestParseSSARecord(t *testing.T) {
	tests := []struct {
		name string
		line string
		want RawLeg
	}{
		{
			name: "KJFK ILS 04R missed approach hold at DPK (HM, time-based)",
			line: "SUSAP KJFKK6FI04R  I      070DPK  K6D 0VE  L   HM                     2581T010    + 04000                           0 NS   300201709",
			want: RawLeg{
				Airport:            "KJFK",
				Procedure:          "I04R",
				Type:               ProcedureApproach,
				Segment:            SegmentFinal,
				Sequence:           70,
				PathTerminator:     HoldToManual,
				Fix:                "DPK",
				FixRegion:          "K6",
				Course:             258.1,
				Time:               1,
				Turn:               TurnLeft,
				AltitudeDescriptor: '+',
				Altitude1:          4000,
			},
		},
		{
			name: "KJFK ILS 04R course to DPK",
			line: "SUSAP KJFKK6FI04R  I      060DPK  K6D 0VY      CF DPK K6      0000000004100080D   + 04000                           0 NS   300191212",
			want: RawLeg{
				Airport:            "KJFK",
				Procedure:          "I04R",
				Type:               ProcedureApproach,
				Segment:            SegmentFinal,
				Sequence:           60,
				PathTerminator:     CourseToFix,
				Fix:                "DPK",
				FixRegion:          "K6",
				Navaid:             "DPK",
				NavaidRegion:       "K6",
				Course:             41,
				Distance:           8,
				AltitudeDescriptor: '+',
				Altitude1:          4000,
				FlyOver:            true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := []byte(strings.TrimRight(tt.line, " "))
			for len(line) < ARINC424RecordLength {
				line = append(line, ' ')
			}

			got, err := parseSSA(line).rawLeg(ProcedureApproach)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			w := tt.want
			if got.Airport != w.Airport || got.Procedure != w.Procedure || got.Type != w.Type ||
				got.Segment != w.Segment || got.Sequence != w.Sequence || got.PathTerminator != w.PathTerminator ||
				got.Fix != w.Fix || got.FixRegion != w.FixRegion || got.Navaid != w.Navaid ||
				got.NavaidRegion != w.NavaidRegion || got.Turn != w.Turn || got.FlyOver != w.FlyOver ||
				got.AltitudeDescriptor != w.AltitudeDescriptor || got.Altitude1 != w.Altitude1 {
				t.Errorf("mismatch\ngot:  %+v\nwant: %+v", got, w)
			}
			if !approxEqual(got.Course, w.Course, 0.01) || !approxEqual(got.Distance, w.Distance, 0.01) ||
				!approxEqual(got.Time, w.Time, 0.01) {
				t.Errorf("course/distance/time mismatch\ngot:  %+v\nwant: %+v", got, w)
			}

			ar, err := got.AltitudeRestriction()
			if err != nil || ar != AtOrAboveAltitude(4000) {
				t.Errorf("altitude restriction: got %+v, %v", ar, err)
			}
		})
	}
}

func TestDecodeARINCAltitude(t *testing.T) {
	tests := []struct {
		desc       byte
		alt1, alt2 float32
		want       AltitudeRestriction
		wantErr    bool
	}{
		{' ', 5000, 0, AtAltitude(5000), false},
		{'+', 5000, 0, AtOrAboveAltitude(5000), false},
		{'-', 12000, 0, AtOrBelowAltitude(12000), false},
		{'B', 15000, 11000, AltitudeRestriction{Range: [2]float32{11000, 15000}}, false},
		{'G', 1800, 1815, AtAltitude(1800), false},
		{'I', 1800, 1815, AtAltitude(1800), false},
		{'X', 2200, 2200, AtAltitude(2200), false},
		{'H', 3000, 3010, AtOrAboveAltitude(3000), false},
		{'J', 3000, 3010, AtOrAboveAltitude(3000), false},
		{'V', 3000, 2100, AtOrAboveAltitude(3000), false},
		{'+', 0, 0, AltitudeRestriction{}, false},
		{'Q', 3000, 0, AltitudeRestriction{}, true},
	}

	for _, tt := range tests {
		got, err := DecodeARINCAltitude(tt.desc, tt.alt1, tt.alt2)
		if (err != nil) != tt.wantErr {
			t.Errorf("%c %v/%v: error %v, wantErr %v", tt.desc, tt.alt1, tt.alt2, err, tt.wantErr)
		} else if got != tt.want {
			t.Errorf("%c %v/%v: got %+v, want %+v", tt.desc, tt.alt1, tt.alt2, got, tt.want)
		}
	}
}

func TestParseARINC424(t *testing.T) {
	var sb strings.Builder
	// Airport, runway, VOR, and waypoints
	sb.WriteString(record(col{0, "SUSAP KJFKK6AJFK"}, col{21, "0"}, col{32, "N40382374W073464329"},
		col{56, "00013"}, col{93, "JOHN F KENNEDY INTL"}))
	sb.WriteString(record(col{0, "SUSAP KJFKK6GRW04L"}, col{21, "0"}, col{27, "0437"},
		col{32, "N40372318W073470505"}, col{66, "00012"}))
	sb.WriteString(record(col{0, "SUSAD        DPK"}, col{19, "K6"}, col{32, "N40472105W073181710"},
		col{93, "DEER PARK"}))
	sb.WriteString(record(col{0, "SUSAEAENRT   MERIT"}, col{19, "K6"}, col{32, "N41225860W073080000"}))
	sb.WriteString(record(col{0, "SUSAEAENRT   HFD"}, col{19, "K6"}, col{32, "N41383400W072320600"}))
	sb.WriteString(record(col{0, "SUSAEAENRT   PUT"}, col{19, "K6"}, col{32, "N41570000W071480000"}))
	// Airway J99 from DPK to PUT via MERIT and HFD; MERIT is in the
	// wrong region so it should be reported and dropped.
	sb.WriteString(record(col{0, "SUSAER       J99"}, col{25, "0010"}, col{29, "DPK  K6D "}, col{45, "HF"},
		col{83, "18000"}, col{93, "45000"}))
	sb.WriteString(record(col{0, "SUSAER       J99"}, col{25, "0020"}, col{29, "MERITK2EA"}, col{45, "HF"},
		col{83, "18000"}))
	sb.WriteString(record(col{0, "SUSAER       J99"}, col{25, "0030"}, col{29, "HFD  K6EA"}, col{45, "HF"},
		col{83, "FL240"}))
	sb.WriteString(record(col{0, "SUSAER       J99"}, col{25, "0040"}, col{29, "PUT  K6EA"}, col{40, "E"},
		col{45, "HF"}))
	// Approach with a missed approach segment
	sb.WriteString(record(col{0, "SUSAP KJFKK6FI04R  I"}, col{26, "010DPK  K6D 0"}, col{39, "   B"},
		col{47, "IF"}, col{82, "+ 04000"}))
	sb.WriteString(record(col{0, "SUSAP KJFKK6FI04R  I"}, col{26, "020RW04RK6PG0"}, col{39, "G  M"},
		col{47, "TF"}))
	sb.WriteString(record(col{0, "SUSAP KJFKK6FI04R  I"}, col{26, "030"}, col{38, "0"},
		col{47, "CA"}, col{70, "0410"}, col{82, "+ 01000"}))
	// Bad record length
	sb.WriteString("SUSAP KJFK\r\n")

	var e util.ErrorLogger
	result := ParseARINC424(strings.NewReader(sb.String()), &e)

	find := func(ident string) (Fix, bool) {
		for _, f := range result.Fixes {
			if f.Ident == ident {
				return f, true
			}
		}
		return Fix{}, false
	}

	if ap, ok := find("KJFK"); !ok {
		t.Errorf("KJFK not found")
	} else {
		if ap.Kind != FixKindAirport || ap.Region != "K6" || ap.Elevation != 13 || ap.Name != "JOHN F KENNEDY INTL" {
			t.Errorf("unexpected airport %+v", ap)
		}
		if !approxEqual(ap.Location.Latitude(), 40.6399, 0.001) || !approxEqual(ap.Location.Longitude(), -73.7787, 0.001) {
			t.Errorf("unexpected airport location %v", ap.Location)
		}
	}
	if rwy, ok := find("RW04L"); !ok || rwy.Kind != FixKindRunwayEnd || rwy.Name != "KJFK" || rwy.Elevation != 12 {
		t.Errorf("unexpected runway %+v", rwy)
	}
	if vor, ok := find("DPK"); !ok || vor.Kind != FixKindVOR || vor.Name != "DEER PARK" {
		t.Errorf("unexpected VOR %+v", vor)
	}

	if len(result.Airways["J99"]) != 1 {
		t.Fatalf("expected one J99 segment, got %d", len(result.Airways["J99"]))
	}
	j99 := result.Airways["J99"][0]
	var ids []string
	for _, af := range j99.Fixes {
		ids = append(ids, af.Fix.Ident)
	}
	if strings.Join(ids, " ") != "DPK HFD PUT" {
		t.Errorf("J99 fixes: got %v", ids)
	}
	if j99.Fixes[0].Fix.Kind != FixKindVOR || j99.Fixes[0].Fix.Location.IsZero() {
		t.Errorf("J99 fix not resolved: %+v", j99.Fixes[0])
	}
	if j99.Fixes[0].Fix.Region != "K6" || j99.Fixes[1].Level != AirwayLevelHigh || j99.Direction != AirwayDirectionForward {
		t.Errorf("unexpected J99 attributes %+v", j99)
	}
	if j99.Fixes[2].MinAltitude != 24000 {
		t.Errorf("expected FL240 minimum for the segment to PUT, got %v", j99.Fixes[2].MinAltitude)
	}

	if len(result.Procedures) != 3 {
		t.Fatalf("expected 3 procedure legs, got %d", len(result.Procedures))
	}
	p := result.Procedures
	if p[0].PathTerminator != InitialFix || !p[0].IF || p[0].MissedApproach {
		t.Errorf("unexpected first leg %+v", p[0])
	}
	if p[1].Fix != "RW04R" || !p[1].MissedApproach || !p[2].MissedApproach {
		t.Errorf("missed approach not tagged: %+v %+v", p[1], p[2])
	}
	if p[2].PathTerminator != CourseToAltitude || p[2].Course != 41 {
		t.Errorf("unexpected CA leg %+v", p[2])
	}

	// MERIT in the wrong region and the short record.
	if len(e.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %v", e.Errors())
	}
	for _, err := range e.Errors() {
		if errors.Is(err, ErrNotFound) {
			t.Errorf("unexpected error type %v", err)
		}
	}
}
