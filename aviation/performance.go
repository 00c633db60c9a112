// aviation/performance.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	DefaultClimbRate       = 1500 // feet per minute
	DefaultDescentDistance = 3    // nm per 1000' of descent
)

// AircraftPerformance gives the speeds and rates used to compute a
// vertical profile. Speeds are ground speeds in knots; rates are in feet
// per minute.
type AircraftPerformance struct {
	Name         string  `json:"name"`
	ClimbSpeed   float32 `json:"climb_speed"`
	ClimbRate    float32 `json:"climb_rate"`
	CruiseSpeed  float32 `json:"cruise_speed"`
	DescentSpeed float32 `json:"descent_speed"`
	DescentRate  float32 `json:"descent_rate"`
	// DescentDistance is the rule-of-thumb nm per 1000' of descent, used
	// if DescentRate isn't given.
	DescentDistance float32 `json:"descent_distance"`
}

func LoadAircraftPerformance(r io.Reader) (AircraftPerformance, error) {
	var perf AircraftPerformance
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&perf); err != nil {
		return AircraftPerformance{}, fmt.Errorf("aircraft performance: %w", err)
	}
	return perf, nil
}

// Validate returns a *ConfigurationError if the performance data can't be
// used to compute a profile.
func (p AircraftPerformance) Validate() error {
	if p.ClimbSpeed <= 0 {
		return &ConfigurationError{Msg: "climb speed missing from aircraft performance"}
	}
	if p.DescentSpeed <= 0 {
		return &ConfigurationError{Msg: "descent speed missing from aircraft performance"}
	}
	if p.ClimbRate < 0 || p.DescentRate < 0 || p.DescentDistance < 0 {
		return &ConfigurationError{Msg: "negative rate in aircraft performance"}
	}
	return nil
}

// ClimbGradient returns feet gained per nm of climb.
func (p AircraftPerformance) ClimbGradient() float32 {
	rate := p.ClimbRate
	if rate == 0 {
		rate = DefaultClimbRate
	}
	return rate * 60 / p.ClimbSpeed
}

// DescentGradient returns feet lost per nm of descent.
func (p AircraftPerformance) DescentGradient() float32 {
	if p.DescentRate > 0 {
		return p.DescentRate * 60 / p.DescentSpeed
	}
	d := p.DescentDistance
	if d == 0 {
		d = DefaultDescentDistance
	}
	return 1000 / d
}
