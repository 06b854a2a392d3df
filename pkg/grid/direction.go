package grid

import (
	"math"

	"github.com/gridtown/trafficsim/pkg/geo"
)

// Direction is one of the four orthogonal tile directions.
type Direction int

const (
	Up Direction = iota
	Left
	Right
	Down
)

// Directions lists all four directions in mask-bit order.
var Directions = []Direction{Up, Left, Right, Down}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Vector returns the unit vector for the direction. Y grows downward.
func (d Direction) Vector() geo.Point {
	switch d {
	case Up:
		return geo.Pt(0, -1)
	case Down:
		return geo.Pt(0, 1)
	case Left:
		return geo.Pt(-1, 0)
	default:
		return geo.Pt(1, 0)
	}
}

// FromVector returns the direction whose unit vector best matches v.
func FromVector(v geo.Point) Direction {
	if math.Abs(v.X) >= math.Abs(v.Y) {
		if v.X >= 0 {
			return Right
		}
		return Left
	}
	if v.Y >= 0 {
		return Down
	}
	return Up
}

// Angle returns the heading angle in radians for the direction.
func (d Direction) Angle() float64 {
	switch d {
	case Up:
		return -math.Pi / 2
	case Down:
		return math.Pi / 2
	case Left:
		return math.Pi
	default:
		return 0
	}
}

// IsHorizontal reports whether the direction runs along the X axis.
func (d Direction) IsHorizontal() bool {
	return d == Left || d == Right
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "down"
	}
}
