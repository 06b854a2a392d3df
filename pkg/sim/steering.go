package sim

import "github.com/gridtown/trafficsim/pkg/geo"

const (
	// maxSpeed is the car speed cap, roughly 40 km/h.
	maxSpeed = 11.1
	// maxAcceleration and maxBraking bound linear acceleration. Braking
	// is negative.
	maxAcceleration = 5.0
	maxBraking      = -20.0
	// coastBraking slows a car that has nowhere to go.
	coastBraking = -8.0
	// creepSpeed is the crawl used for the final meters of a parking
	// maneuver.
	creepSpeed = 1.5
)

// accelerationFor converts a rule decision into a linear acceleration.
func accelerationFor(d Decision, c *Car) float64 {
	switch d.Kind {
	case DecideReactToCollision:
		return maxBraking

	case DecideAvoidCollision, DecideStopAtTrafficControl:
		return brakeToStopWithin(c.Velocity, d.Distance)

	case DecideStopAtParking:
		// Creep across the end of the spline rather than braking to an
		// asymptotic stop short of it.
		if c.Velocity < creepSpeed {
			return maxAcceleration / 2
		}
		return brakeToStopWithin(c.Velocity, d.Distance+parkingCreepRadius/2)

	case DecideSlowDown:
		if c.Velocity > maxSpeed/2 {
			return coastBraking
		}
		return maxAcceleration

	case DecideHoldParked:
		return 0

	default: // DecideAccelerate
		if c.Route.HasPath() {
			return maxAcceleration
		}
		return coastBraking
	}
}

// brakeToStopWithin returns the constant deceleration that stops the car
// inside the given distance, clamped to the braking limit.
func brakeToStopWithin(v, dist float64) float64 {
	if dist <= 0.01 {
		return maxBraking
	}
	a := -(v * v) / (2 * dist)
	if a < maxBraking {
		return maxBraking
	}
	return a
}

// integrate applies one tick of kinematics: velocity from acceleration,
// then position and orientation by advancing along the route spline. A car
// without a path rolls straight ahead along its heading.
func integrate(c *Car, accel, dt float64) {
	if c.State == CarParked || c.State == CarInactive {
		c.Velocity = 0
		c.Acceleration = 0
		c.Rotation = 0
		return
	}

	c.Acceleration = accel
	c.Velocity += accel * dt
	if c.Velocity < 0 {
		c.Velocity = 0
	}
	if c.Velocity > maxSpeed {
		c.Velocity = maxSpeed
	}

	distance := c.Velocity * dt
	if distance == 0 {
		c.Rotation = 0
		return
	}

	if c.Route.HasPath() {
		c.Route.Path.Advance(distance)
		if pos, tangent, ok := c.Route.Path.Sample(); ok {
			heading := tangent.Angle()
			c.Rotation = geo.AngleDiff(c.Orientation, heading) / dt
			c.Position = pos
			c.Orientation = heading
			return
		}
		// Path just finished: land exactly on its endpoint.
		if end, ok := c.Route.Path.EndNode(); ok {
			c.Position = end.Position
		}
		c.Rotation = 0
		return
	}

	c.Position = c.Position.Add(geo.FromAngle(c.Orientation).Scale(distance))
	c.Rotation = 0
}
