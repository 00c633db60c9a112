// aviation/restriction.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmp/routeplan/math"
)

type AltitudeRestrictionKind int

const (
	AltitudeNone AltitudeRestrictionKind = iota
	AltitudeAt
	AltitudeAtOrAbove
	AltitudeAtOrBelow
	AltitudeBetween
)

func (k AltitudeRestrictionKind) String() string {
	return [...]string{"None", "At", "AtOrAbove", "AtOrBelow", "Between"}[k]
}

type AltitudeRestriction struct {
	// We treat 0 as "unset", which works naturally for the bottom but
	// requires occasional care at the top.
	Range [2]float32
}

func AtAltitude(alt float32) AltitudeRestriction {
	return AltitudeRestriction{Range: [2]float32{alt, alt}}
}

func AtOrAboveAltitude(alt float32) AltitudeRestriction {
	return AltitudeRestriction{Range: [2]float32{alt, 0}}
}

func AtOrBelowAltitude(alt float32) AltitudeRestriction {
	return AltitudeRestriction{Range: [2]float32{0, alt}}
}

func (a *AltitudeRestriction) UnmarshalJSON(b []byte) error {
	// Allow both single altitudes and the encoded string form in
	// addition to the Range struct.
	if alt, err := strconv.Atoi(string(b)); err == nil {
		a.Range = [2]float32{float32(alt), float32(alt)}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		ar, err := ParseAltitudeRestriction(s)
		if err == nil {
			*a = ar
		}
		return err
	}
	// Otherwise declare a temporary variable with matching structure
	// but a different type to avoid an infinite loop when
	// json.Unmarshal is called.
	ar := struct{ Range [2]float32 }{}
	if err := json.Unmarshal(b, &ar); err != nil {
		return err
	}
	a.Range = ar.Range
	return nil
}

func (a AltitudeRestriction) IsSet() bool {
	return a.Range[0] != 0 || a.Range[1] != 0
}

func (a AltitudeRestriction) Kind() AltitudeRestrictionKind {
	switch {
	case !a.IsSet():
		return AltitudeNone
	case a.Range[0] == a.Range[1]:
		return AltitudeAt
	case a.Range[1] == 0:
		return AltitudeAtOrAbove
	case a.Range[0] == 0:
		return AltitudeAtOrBelow
	default:
		return AltitudeBetween
	}
}

// Lower returns the lowest permitted altitude, if there is one.
func (a AltitudeRestriction) Lower() (float32, bool) {
	return a.Range[0], a.Range[0] != 0
}

// Upper returns the highest permitted altitude, if there is one.
func (a AltitudeRestriction) Upper() (float32, bool) {
	return a.Range[1], a.Range[1] != 0
}

// Satisfied reports whether alt meets the restriction, to within tol
// feet.
func (a AltitudeRestriction) Satisfied(alt, tol float32) bool {
	if lo, ok := a.Lower(); ok && alt < lo-tol {
		return false
	}
	if hi, ok := a.Upper(); ok && alt > hi+tol {
		return false
	}
	return true
}

func (a AltitudeRestriction) TargetAltitude(alt float32) float32 {
	if a.Range[1] != 0 {
		return math.Clamp(alt, a.Range[0], a.Range[1])
	} else {
		return max(alt, a.Range[0])
	}
}

// ClampRange limits a range of altitudes to satisfy the altitude
// restriction; the returned Boolean indicates whether the ranges
// overlapped.
func (a AltitudeRestriction) ClampRange(r [2]float32) (c [2]float32, ok bool) {
	ok = true
	c = r

	if a.Range[0] != 0 { // at or above
		ok = r[1] == 0 || r[1] >= a.Range[0]
		c[0] = max(a.Range[0], r[0])
		if r[1] != 0 {
			c[1] = max(a.Range[0], r[1])
		}
	}

	if a.Range[1] != 0 { // at or below
		ok = ok && c[0] <= a.Range[1]
		c[0] = min(c[0], a.Range[1])
		c[1] = min(c[1], a.Range[1])
	}

	return
}

// Encoded returns the restriction in its compact string form, e.g.
// "5000+" for "at or above 5000".
func (a AltitudeRestriction) Encoded() string {
	if a.Range[0] != 0 {
		if a.Range[0] == a.Range[1] {
			return fmt.Sprintf("%.0f", a.Range[0])
		} else if a.Range[1] != 0 {
			return fmt.Sprintf("%.0f-%.0f", a.Range[0], a.Range[1])
		} else {
			return fmt.Sprintf("%.0f+", a.Range[0])
		}
	} else if a.Range[1] != 0 {
		return fmt.Sprintf("%.0f-", a.Range[1])
	} else {
		return ""
	}
}

// ParseAltitudeRestriction parses the form returned by Encoded.
func ParseAltitudeRestriction(s string) (AltitudeRestriction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AltitudeRestriction{}, nil
	}

	parse := func(s string) (float32, error) {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("%s: invalid altitude", s)
		}
		return float32(v), nil
	}

	if lo, hi, ok := strings.Cut(s, "-"); ok && lo != "" && hi != "" {
		l, err := parse(lo)
		if err != nil {
			return AltitudeRestriction{}, err
		}
		h, err := parse(hi)
		if err != nil {
			return AltitudeRestriction{}, err
		}
		if l > h {
			return AltitudeRestriction{}, fmt.Errorf("%s: low altitude above high altitude", s)
		}
		return AltitudeRestriction{Range: [2]float32{l, h}}, nil
	}

	switch s[len(s)-1] {
	case '+':
		alt, err := parse(s[:len(s)-1])
		return AtOrAboveAltitude(alt), err
	case '-':
		alt, err := parse(s[:len(s)-1])
		return AtOrBelowAltitude(alt), err
	default:
		alt, err := parse(s)
		return AtAltitude(alt), err
	}
}
