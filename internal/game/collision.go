package game

import (
	"math"

	"github.com/bombarena/server/config"
)

// CollisionOpts controls how blocked() and predictMove() treat soft walls
// and bombs (§4.1 Collision Kernel contract). CurrentCell, when non-nil,
// is the entity's current cell: a position that overlaps CurrentCell is
// never reported blocked purely due to occupying it, so an entity that
// just placed a bomb on its own cell can still walk off that cell.
type CollisionOpts struct {
	CanPassSoftWalls bool
	CanPassBombs     bool
	CurrentCell      *Cell
}

// BombOccupancy answers "is there a live bomb whose grid cell is c" for the
// collision kernel, decoupling it from the Bomb Engine's internal storage.
type BombOccupancy func(c Cell) bool

// blocked reports whether a PlayerSize x PlayerSize hitbox centered-ish at
// (x,y) — top-left at (x,y), matching the teacher's top-left convention —
// is blocked against the grid and bombs. The four hitbox corners are
// shrunk inward by HitboxEpsilon (§4.1).
func blocked(grid *Grid, hasBomb BombOccupancy, x, y float64, opts CollisionOpts) bool {
	eps := config.HitboxEpsilon
	size := float64(config.PlayerSize)

	corners := [4][2]float64{
		{x + eps, y + eps},
		{x + size - eps, y + eps},
		{x + eps, y + size - eps},
		{x + size - eps, y + size - eps},
	}

	for _, c := range corners {
		cell := CellFromPixel(c[0], c[1])
		if opts.CurrentCell != nil && cell == *opts.CurrentCell {
			continue
		}

		tile := grid.At(cell)
		if tile == TileHardWall {
			return true
		}
		if tile == TileSoftWall && !opts.CanPassSoftWalls {
			return true
		}
		if !opts.CanPassBombs && hasBomb != nil && hasBomb(cell) {
			return true
		}
	}

	return false
}

// Blocked is the exported form of blocked, used by enemy AI and tests.
func Blocked(grid *Grid, hasBomb BombOccupancy, x, y float64, opts CollisionOpts) bool {
	return blocked(grid, hasBomb, x, y, opts)
}

// predictMove applies dx-then-dy motion scaled by speed, with corner-slide
// fallback on each axis independently (§4.1 Predictive move). The same
// function backs both the server's authoritative step and (per §4.7) the
// documented client-prediction contract, so server and client agree on
// geometry bit-for-bit given the same grid/bomb view.
func predictMove(grid *Grid, hasBomb BombOccupancy, x, y, dx, dy, speed float64, opts CollisionOpts) (float64, float64) {
	x, y = moveAxis(grid, hasBomb, x, y, dx*speed, true, opts)
	x, y = moveAxis(grid, hasBomb, x, y, dy*speed, false, opts)
	return x, y
}

// PredictMove is the exported form of predictMove.
func PredictMove(grid *Grid, hasBomb BombOccupancy, x, y, dx, dy, speed float64, opts CollisionOpts) (float64, float64) {
	return predictMove(grid, hasBomb, x, y, dx, dy, speed, opts)
}

// moveAxis moves along one axis, applying a corner-slide nudge on the
// orthogonal axis when blocked and nearly aligned with a corridor. It
// returns the resulting (x, y).
func moveAxis(grid *Grid, hasBomb BombOccupancy, x, y, delta float64, horizontal bool, opts CollisionOpts) (float64, float64) {
	if delta == 0 {
		return x, y
	}

	var nx, ny float64
	if horizontal {
		nx, ny = x+delta, y
	} else {
		nx, ny = x, y+delta
	}

	if !blocked(grid, hasBomb, nx, ny, opts) {
		return nx, ny
	}

	// Corner slide: instead of the blocked move, nudge the orthogonal
	// axis toward the nearest tile center if within CORNER_TOLERANCE and
	// the nudged position is not blocked.
	speed := math.Abs(delta)
	if horizontal {
		slideY := cornerSlideTarget(y, speed)
		if slideY != y && !blocked(grid, hasBomb, x, slideY, opts) {
			return x, slideY
		}
		return x, y
	}

	slideX := cornerSlideTarget(x, speed)
	if slideX != x && !blocked(grid, hasBomb, slideX, y, opts) {
		return slideX, y
	}
	return x, y
}

func valueFor(x, y float64, horizontal bool) float64 {
	if horizontal {
		return x
	}
	return y
}

// cornerSlideTarget nudges v by ±speed toward the center of the tile it
// currently occupies, iff v is within CORNER_TOLERANCE of that center. v
// is the hitbox's top-left coordinate on one axis; the tile is the one
// under the hitbox center, and "center" is the v that centers the hitbox
// in that tile.
func cornerSlideTarget(v, speed float64) float64 {
	tile := float64(config.TileSize)
	half := float64(config.PlayerSize) / 2
	center := math.Floor((v+half)/tile)*tile + tile/2 - half
	diff := center - v
	if math.Abs(diff) > config.CornerTolerance || diff == 0 {
		return v
	}
	if diff > 0 {
		return v + math.Min(speed, diff)
	}
	return v + math.Max(-speed, diff)
}
