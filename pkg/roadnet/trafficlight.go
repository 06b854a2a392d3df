package roadnet

import (
	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
)

// LightColor is the current phase of a traffic light.
type LightColor int

const (
	LightGreen LightColor = iota
	LightYellow
	LightRed
)

func (c LightColor) String() string {
	switch c {
	case LightGreen:
		return "green"
	case LightYellow:
		return "yellow"
	default:
		return "red"
	}
}

// Phase durations in seconds. The full cycle is green, yellow, red.
const (
	GreenDuration  = 12.0
	YellowDuration = 4.0
	RedDuration    = 16.0
)

// TrafficLight is a timer-driven phase machine guarding one intersection
// approach. Lights are owned by the world and advanced once per tick.
type TrafficLight struct {
	ID       int
	Position geo.Point
	Facing   grid.Direction

	color   LightColor
	elapsed float64
}

// NewTrafficLight creates a light at the given position. The initial color
// is seeded by facing orientation so that crossing approaches start on
// opposite phases.
func NewTrafficLight(id int, pos geo.Point, facing grid.Direction) *TrafficLight {
	color := LightRed
	if facing.IsHorizontal() {
		color = LightGreen
	}
	return &TrafficLight{
		ID:       id,
		Position: pos,
		Facing:   facing,
		color:    color,
	}
}

// Color returns the current phase.
func (tl *TrafficLight) Color() LightColor {
	return tl.color
}

// ShouldStop reports whether traffic facing this light must stop.
func (tl *TrafficLight) ShouldStop() bool {
	return tl.color == LightRed || tl.color == LightYellow
}

// Advance steps the phase timer by dt seconds.
func (tl *TrafficLight) Advance(dt float64) {
	tl.elapsed += dt
	for {
		d := tl.phaseDuration()
		if tl.elapsed < d {
			return
		}
		tl.elapsed -= d
		tl.color = tl.nextColor()
	}
}

func (tl *TrafficLight) phaseDuration() float64 {
	switch tl.color {
	case LightGreen:
		return GreenDuration
	case LightYellow:
		return YellowDuration
	default:
		return RedDuration
	}
}

func (tl *TrafficLight) nextColor() LightColor {
	switch tl.color {
	case LightGreen:
		return LightYellow
	case LightYellow:
		return LightRed
	default:
		return LightGreen
	}
}
