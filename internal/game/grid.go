package game

import (
	"math/rand"

	"github.com/bombarena/server/config"
)

// Grid is a flat array of config.GridWidth*config.GridHeight tiles (§9
// Design Notes: a flat array of small integers, not a 2D array of
// references — cache-friendly, trivially serializable, no aliasing bugs).
// Grounded on bomberman's internal/game/board.go generation rules, adapted
// from a [][]TileType to a flat []TileKind.
type Grid struct {
	W, H  int
	tiles []TileKind
}

func idx(col, row, w int) int { return row*w + col }

// NewGrid generates a grid for the given wall density: border and
// even/even cells are HARD_WALL, the two 3x3 spawn corners get no
// SOFT_WALL (their border and even/even cells stay HARD_WALL), and
// remaining interior cells become SOFT_WALL with probability wallDensity
// (§3 Data Model).
func NewGrid(wallDensity float64, rng *rand.Rand) *Grid {
	w, h := config.GridWidth, config.GridHeight
	g := &Grid{W: w, H: h, tiles: make([]TileKind, w*h)}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			var t TileKind
			switch {
			case col == 0 || row == 0 || col == w-1 || row == h-1:
				t = TileHardWall
			case col%2 == 0 && row%2 == 0:
				t = TileHardWall
			default:
				t = TileEmpty
			}
			g.tiles[idx(col, row, w)] = t
		}
	}

	safe := spawnSafeCells(w, h)
	for row := 1; row < h-1; row++ {
		for col := 1; col < w-1; col++ {
			i := idx(col, row, w)
			if g.tiles[i] != TileEmpty {
				continue
			}
			if safe[Cell{col, row}] {
				continue
			}
			if rng.Float64() < wallDensity {
				g.tiles[i] = TileSoftWall
			}
		}
	}

	return g
}

// SpawnCorners returns the two forced-empty 3x3 spawn corner anchor cells
// (top-left and bottom-right, §3 Data Model "Two 3x3 spawn corners").
func SpawnCorners() (Cell, Cell) {
	return Cell{1, 1}, Cell{config.GridWidth - 2, config.GridHeight - 2}
}

// spawnSafeCells returns the set of cells covered by the two forced-empty
// 3x3 spawn corners.
func spawnSafeCells(w, h int) map[Cell]bool {
	a, b := SpawnCorners()
	safe := make(map[Cell]bool)
	for _, corner := range []Cell{a, b} {
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				c := Cell{corner.Col + dc, corner.Row + dr}
				if c.Col >= 0 && c.Col < w && c.Row >= 0 && c.Row < h {
					safe[c] = true
				}
			}
		}
	}
	return safe
}

// At returns the tile kind at a cell. Out-of-range cells report HARD_WALL
// so boundary checks never need a separate bounds test.
func (g *Grid) At(c Cell) TileKind {
	if c.Col < 0 || c.Col >= g.W || c.Row < 0 || c.Row >= g.H {
		return TileHardWall
	}
	return g.tiles[idx(c.Col, c.Row, g.W)]
}

// DestroySoftWall transitions a SOFT_WALL cell to EMPTY. Irreversible
// within a match (§3 invariant: SOFT_WALL destruction is monotone). A
// no-op if the cell is not currently SOFT_WALL.
func (g *Grid) DestroySoftWall(c Cell) bool {
	if g.At(c) != TileSoftWall {
		return false
	}
	g.tiles[idx(c.Col, c.Row, g.W)] = TileEmpty
	return true
}

// CellFromPixel returns the grid cell containing a pixel position.
func CellFromPixel(x, y float64) Cell {
	return Cell{Col: int(x) / config.TileSize, Row: int(y) / config.TileSize}
}

// CellCenter returns the pixel coordinates of a cell's center.
func CellCenter(c Cell) (float64, float64) {
	return float64(c.Col)*config.TileSize + config.TileSize/2, float64(c.Row)*config.TileSize + config.TileSize/2
}

// CellTopLeft returns the pixel coordinates of a cell's top-left corner.
func CellTopLeft(c Cell) (float64, float64) {
	return float64(c.Col) * config.TileSize, float64(c.Row) * config.TileSize
}

// Flatten returns the grid as a W*H array of 0/1/2 values (§6 wire
// schema: "flattened grid array (length W·H, values 0/1/2)").
func (g *Grid) Flatten() []uint8 {
	out := make([]uint8, len(g.tiles))
	for i, t := range g.tiles {
		out[i] = uint8(t)
	}
	return out
}

// BFSNearestEmpty finds the nearest EMPTY, non-bomb cell to start via
// breadth-first search (§4.2 ghost-expiry fix-up, §8 Ghost-expiry safety).
// occupied reports whether a cell currently holds a bomb.
func (g *Grid) BFSNearestEmpty(start Cell, occupied func(Cell) bool) (Cell, bool) {
	if g.At(start) == TileEmpty && !occupied(start) {
		return start, true
	}

	visited := map[Cell]bool{start: true}
	queue := []Cell{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, d := range AllDirections {
			next := Cell{cur.Col + d.Dx(), cur.Row + d.Dy()}
			if !next.InRange() || visited[next] {
				continue
			}
			visited[next] = true
			if g.At(next) == TileEmpty && !occupied(next) {
				return next, true
			}
			if g.At(next) != TileHardWall {
				queue = append(queue, next)
			}
		}
	}

	return Cell{}, false
}
