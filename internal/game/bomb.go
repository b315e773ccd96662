package game

import (
	"math/rand"

	"github.com/bombarena/server/config"
)

// Bomb is one placed or sliding bomb (§3 Data Model, §4.2 Bomb Engine).
// Grounded on bomberman's internal/game/bomb.go lifecycle (place, tick,
// explode) generalized to the spec's kick-slide and chain-detonation
// rules, which the teacher repo's bomb model does not have.
type Bomb struct {
	ID      uint32
	OwnerID int // 0 = neutral/enemy
	Cell    Cell
	X, Y    float64 // pixel position, top-left of the occupied tile
	VX, VY  float64 // px/tick, nonzero while sliding from a kick
	Range   int
	FuseMS  float64
}

// ExplosionCell is one active blast tile (§3 Data Model).
type ExplosionCell struct {
	ID      uint32
	OwnerID int
	Cell    Cell
	TTLMS   float64
}

// BombField owns all live bombs and explosion cells for one room.
type BombField struct {
	bombs      []*Bomb
	explosions []*ExplosionCell
	nextBombID uint32
	nextBlastID uint32
}

func NewBombField() *BombField {
	return &BombField{}
}

// Bombs returns the live bomb list (ordered sequence, §3 Data Model).
func (f *BombField) Bombs() []*Bomb { return f.bombs }

// Explosions returns the live explosion-cell list.
func (f *BombField) Explosions() []*ExplosionCell { return f.explosions }

// HasBombAt reports whether a bomb currently occupies cell c — the
// CollisionOpts.CanPassBombs occupancy predicate.
func (f *BombField) HasBombAt(c Cell) bool {
	_, ok := f.ByCell(c)
	return ok
}

// ByCell finds the (at most one, §3 invariant) bomb at a cell.
func (f *BombField) ByCell(c Cell) (*Bomb, bool) {
	for _, b := range f.bombs {
		if b.Cell == c {
			return b, true
		}
	}
	return nil, false
}

// Place creates a new bomb at cell c for the given owner, if the cell is
// not already occupied by a bomb (§3 invariant: exactly one bomb per
// cell; placement that would violate this is silently rejected, §7).
func (f *BombField) Place(ownerID int, c Cell, rangeVal int, fuseMS float64) (*Bomb, bool) {
	if f.HasBombAt(c) {
		return nil, false
	}

	f.nextBombID++
	x, y := CellTopLeft(c)
	b := &Bomb{
		ID:      f.nextBombID,
		OwnerID: ownerID,
		Cell:    c,
		X:       x,
		Y:       y,
		Range:   rangeVal,
		FuseMS:  fuseMS,
	}
	f.bombs = append(f.bombs, b)
	return b, true
}

// TryKick imparts velocity onto a stationary bomb (§4.2 Kick). A bomb
// already in motion is not kicked again until it stops (resolved Open
// Question 3: kick is a dedicated post-move resolution, never part of
// blocked()).
func TryKick(b *Bomb, dir Direction) bool {
	if b.VX != 0 || b.VY != 0 {
		return false
	}
	b.VX = float64(dir.Dx()) * config.KickSpeed
	b.VY = float64(dir.Dy()) * config.KickSpeed
	return true
}

// Integrate advances sliding bombs by (vx*timeFactor, vy*timeFactor). On
// contact with a wall, another bomb, a player, or an enemy, velocity is
// zeroed and position snaps to the bomb's current grid cell (§4.2).
func (f *BombField) Integrate(grid *Grid, timeFactor float64, blockedAt func(b *Bomb, x, y float64) bool) {
	for _, b := range f.bombs {
		if b.VX == 0 && b.VY == 0 {
			continue
		}

		nx := b.X + b.VX*timeFactor
		ny := b.Y + b.VY*timeFactor

		if blockedAt(b, nx, ny) {
			b.VX, b.VY = 0, 0
			b.X, b.Y = CellTopLeft(b.Cell)
			continue
		}

		b.X, b.Y = nx, ny
		b.Cell = CellFromPixel(nx+float64(config.TileSize)/2, ny+float64(config.TileSize)/2)
	}
}

// DecrementFuses reduces every bomb's fuse by raw dtMS (timers always use
// raw dt, never timeFactor, §4.2) and returns the bombs whose fuse has
// expired, removing them from the live list.
func (f *BombField) DecrementFuses(dtMS float64) []*Bomb {
	var expired []*Bomb
	remaining := f.bombs[:0]
	for _, b := range f.bombs {
		b.FuseMS -= dtMS
		if b.FuseMS <= 0 {
			expired = append(expired, b)
		} else {
			remaining = append(remaining, b)
		}
	}
	f.bombs = remaining
	return expired
}

// removeBomb deletes a bomb from the live list by ID (used for chain
// detonation: a bomb reached by another's blast is removed and enqueued).
func (f *BombField) removeBomb(id uint32) (*Bomb, bool) {
	for i, b := range f.bombs {
		if b.ID == id {
			f.bombs = append(f.bombs[:i], f.bombs[i+1:]...)
			return b, true
		}
	}
	return nil, false
}

// Detonate runs the chain-detonation DFS for an initial batch of expired
// bombs (§4.2 Detonation). For each bomb: emit a center explosion cell;
// for each cardinal direction, step out up to `range` cells stopping at
// the first HARD_WALL (no emission), first SOFT_WALL (destroy it, stage
// an item reveal, do not emit an explosion cell there, stop), or first
// bomb (remove it and enqueue it for detonation with the same visited
// set). A cell already emitted during this call is not emitted again, so
// overlapping crosses in a chain yield one explosion cell per tile.
// decrementActive is called once per detonated bomb whose OwnerID > 0.
func (f *BombField) Detonate(initial []*Bomb, grid *Grid, items *ItemField, rng *rand.Rand, decrementActive func(ownerID int)) []*ExplosionCell {
	visited := make(map[uint32]bool)
	queue := append([]*Bomb{}, initial...)
	var produced []*ExplosionCell
	emitted := make(map[Cell]bool)
	emit := func(ownerID int, c Cell) {
		if !emitted[c] {
			emitted[c] = true
			produced = append(produced, f.emitBlast(ownerID, c))
		}
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		if visited[b.ID] {
			continue
		}
		visited[b.ID] = true

		emit(b.OwnerID, b.Cell)

		for _, d := range AllDirections {
			for dist := 1; dist <= b.Range; dist++ {
				c := Cell{Col: b.Cell.Col + d.Dx()*dist, Row: b.Cell.Row + d.Dy()*dist}
				if !c.InRange() {
					break
				}

				tile := grid.At(c)
				if tile == TileHardWall {
					break
				}
				if tile == TileSoftWall {
					grid.DestroySoftWall(c)
					items.SeedDrop(c, rng)
					break
				}

				emit(b.OwnerID, c)

				if other, ok := f.ByCell(c); ok && !visited[other.ID] {
					if removed, ok2 := f.removeBomb(other.ID); ok2 {
						queue = append(queue, removed)
					}
					break
				}
			}
		}

		if b.OwnerID > 0 {
			decrementActive(b.OwnerID)
		}
	}

	return produced
}

// emitBlast creates and stores a new explosion cell.
func (f *BombField) emitBlast(ownerID int, c Cell) *ExplosionCell {
	f.nextBlastID++
	cell := &ExplosionCell{ID: f.nextBlastID, OwnerID: ownerID, Cell: c, TTLMS: config.ExplosionTTLMS}
	f.explosions = append(f.explosions, cell)
	return cell
}

// AdvanceExplosions decrements every explosion cell's TTL by raw dtMS and
// drops expired cells.
func (f *BombField) AdvanceExplosions(dtMS float64) {
	remaining := f.explosions[:0]
	for _, e := range f.explosions {
		e.TTLMS -= dtMS
		if e.TTLMS > 0 {
			remaining = append(remaining, e)
		}
	}
	f.explosions = remaining
}

// AnyAt reports whether any live explosion cell overlaps c.
func (f *BombField) AnyAt(c Cell) bool {
	for _, e := range f.explosions {
		if e.Cell == c {
			return true
		}
	}
	return false
}

// OwnerAt returns the owner of an explosion cell at c, if any (used for
// PVE kill-credit bookkeeping).
func (f *BombField) OwnerAt(c Cell) (int, bool) {
	for _, e := range f.explosions {
		if e.Cell == c {
			return e.OwnerID, true
		}
	}
	return 0, false
}
