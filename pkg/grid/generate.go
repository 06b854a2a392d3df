package grid

import (
	"math/rand/v2"
)

// GenConfig holds tuneable parameters for procedural road generation.
type GenConfig struct {
	MainRoadCount   int // roads crossing the full map (split between axes)
	SideStreetCount int // short stubs branching off main roads
	MinStraightRun  int // tiles before a road may shift sideways
}

// DefaultGenConfig is sized for small-town maps around 20x20 tiles.
var DefaultGenConfig = GenConfig{
	MainRoadCount:   4,
	SideStreetCount: 3,
	MinStraightRun:  4,
}

// GenerateRoads stamps axis-aligned roads into the tilemap. All randomness
// comes from the supplied generator, so the same seed reproduces the same
// map.
func GenerateRoads(tm *Tilemap, rng *rand.Rand, cfg GenConfig) {
	numH := cfg.MainRoadCount / 2
	numV := cfg.MainRoadCount - numH
	if numH < 1 {
		numH = 1
	}
	if numV < 1 {
		numV = 1
	}

	for _, row := range spreadSlots(tm.Rows, numH, rng) {
		stampRoadLine(tm, rng, true, row, cfg.MinStraightRun)
	}
	for _, col := range spreadSlots(tm.Cols, numV, rng) {
		stampRoadLine(tm, rng, false, col, cfg.MinStraightRun)
	}

	roads := tm.RoadCells()
	for i := 0; i < cfg.SideStreetCount && len(roads) > 0; i++ {
		stampSideStreet(tm, rng, roads)
	}
}

// spreadSlots distributes n slots evenly across mapSize with jitter.
func spreadSlots(mapSize, n int, rng *rand.Rand) []int {
	slots := make([]int, 0, n)
	margin := mapSize / 8
	usable := mapSize - 2*margin
	if usable < n*2 {
		usable = mapSize
		margin = 0
	}
	for i := 0; i < n; i++ {
		base := margin + (usable*(2*i+1))/(2*n)
		jitter := 0
		if span := usable / (n * 4); span > 0 {
			jitter = rng.IntN(span*2+1) - span
		}
		pos := base + jitter
		if pos < margin {
			pos = margin
		}
		if pos >= mapSize-margin {
			pos = mapSize - margin - 1
		}
		slots = append(slots, pos)
	}
	return slots
}

// stampRoadLine stamps one road traversing the map, shifting sideways by at
// most one tile after each straight run.
func stampRoadLine(tm *Tilemap, rng *rand.Rand, horizontal bool, basePos, minStraight int) {
	maxLen := tm.Cols
	limit := tm.Rows
	if !horizontal {
		maxLen = tm.Rows
		limit = tm.Cols
	}

	pos := basePos
	straight := 0
	nextShiftAfter := minStraight + rng.IntN(max(1, minStraight))

	for along := 0; along < maxLen; along++ {
		if horizontal {
			tm.SetRoad(C(along, pos))
		} else {
			tm.SetRoad(C(pos, along))
		}
		straight++

		if straight >= nextShiftAfter && along < maxLen-minStraight {
			shift := rng.IntN(3) - 1
			newPos := pos + shift
			if newPos < 1 {
				newPos = 1
			}
			if newPos >= limit-1 {
				newPos = limit - 2
			}
			if newPos != pos {
				// Fill the elbow so the road stays connected.
				if horizontal {
					tm.SetRoad(C(along, newPos))
				} else {
					tm.SetRoad(C(newPos, along))
				}
				pos = newPos
				straight = 0
				nextShiftAfter = minStraight + rng.IntN(max(1, minStraight*2))
			}
		}
	}
}

// stampSideStreet branches a short perpendicular stub off a random road cell.
func stampSideStreet(tm *Tilemap, rng *rand.Rand, roads []Cell) {
	start := roads[rng.IntN(len(roads))]
	dir := Directions[rng.IntN(len(Directions))]
	length := 3 + rng.IntN(5)

	c := start
	for i := 0; i < length; i++ {
		c = c.Next(dir)
		if !tm.InBounds(c) {
			return
		}
		tm.SetRoad(c)
	}
}
