package game

import (
	"math"
	"math/rand"

	"github.com/bombarena/server/config"
)

// AIContext is the read/mutate surface the enemy scheduler and per-kind
// behaviors need (§4.3 Enemy AI). It is assembled fresh each tick by the
// Simulation step.
type AIContext struct {
	Grid    *Grid
	Bombs   *BombField
	Players []*Player
	Enemies *EnemyField
	RNG     *rand.Rand
}

func (c *AIContext) blockedOpts() CollisionOpts {
	return CollisionOpts{}
}

func (c *AIContext) cellBlocked(cell Cell) bool {
	x, y := CellTopLeft(cell)
	return Blocked(c.Grid, c.Bombs.HasBombAt, x, y, c.blockedOpts())
}

// findNearestLiving returns the closest non-DEAD player to (x,y), by
// Euclidean distance (§4.3 shared primitives).
func findNearestLiving(players []*Player, x, y float64) (*Player, bool) {
	var best *Player
	bestDist := math.MaxFloat64
	for _, p := range players {
		if !p.IsLive() {
			continue
		}
		st := p.GetState()
		d := Distance(x, y, st.X, st.Y)
		if d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best, best != nil
}

// Distance is a small Euclidean helper shared by AI scoring.
func Distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}

// chaseDirection scores the four cardinal directions toward target and
// returns the best unblocked one (§4.3: score = |axis delta|, negative if
// moving away; prefer unblocked over blocked; tie-break by highest score;
// if the best is blocked, pick a random unblocked direction).
func chaseDirection(ctx *AIContext, from Cell, target Cell) (Direction, bool) {
	type scored struct {
		dir     Direction
		score   float64
		blocked bool
	}

	var candidates []scored
	for _, d := range AllDirections {
		next := Cell{from.Col + d.Dx(), from.Row + d.Dy()}
		score := axisScore(d, from, target)
		candidates = append(candidates, scored{dir: d, score: score, blocked: !next.InRange() || ctx.cellBlocked(next)})
	}

	best := -1
	for i, c := range candidates {
		if c.blocked {
			continue
		}
		if best == -1 || c.score > candidates[best].score {
			best = i
		}
	}
	if best != -1 {
		return candidates[best].dir, true
	}

	// Reached only when every direction is blocked, so open stays empty
	// and no direction is returned.
	var open []Direction
	for _, c := range candidates {
		if !c.blocked {
			open = append(open, c.dir)
		}
	}
	if len(open) == 0 {
		return DirDown, false
	}
	return open[ctx.RNG.Intn(len(open))], true
}

func axisScore(d Direction, from, target Cell) float64 {
	switch d {
	case DirUp:
		return float64(from.Row - target.Row)
	case DirDown:
		return float64(target.Row - from.Row)
	case DirLeft:
		return float64(from.Col - target.Col)
	case DirRight:
		return float64(target.Col - from.Col)
	}
	return 0
}

// dangerLevel scores a cell by the bombs that threaten it: for each bomb,
// if the cell is the bomb's cell or lies within range cells along the same
// row/col, accumulate max(0, DODGE_THRESHOLD - fuseRemaining + 1000)
// (§4.3).
func dangerLevel(bombs *BombField, c Cell) float64 {
	total := 0.0
	for _, b := range bombs.Bombs() {
		if !threatens(b, c) {
			continue
		}
		v := config.DodgeThresholdMS - b.FuseMS + 1000
		if v > 0 {
			total += v
		}
	}
	return total
}

func threatens(b *Bomb, c Cell) bool {
	if b.Cell == c {
		return true
	}
	if b.Cell.Row == c.Row && abs(b.Cell.Col-c.Col) <= b.Range {
		return true
	}
	if b.Cell.Col == c.Col && abs(b.Cell.Row-c.Row) <= b.Range {
		return true
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// isInDanger reports whether any bomb with fuseRemaining <= DODGE_THRESHOLD
// has the cell in its blast cross (§4.3).
func isInDanger(bombs *BombField, c Cell) bool {
	for _, b := range bombs.Bombs() {
		if b.FuseMS <= config.DodgeThresholdMS && threatens(b, c) {
			return true
		}
	}
	return false
}

// dodgeDirection picks the unblocked neighbor with the lowest dangerLevel,
// returning false if no strict improvement over the current cell (§4.3).
func dodgeDirection(ctx *AIContext, from Cell) (Direction, bool) {
	currentDanger := dangerLevel(ctx.Bombs, from)

	best := -1
	bestDanger := math.MaxFloat64
	var bestDir Direction

	for i, d := range AllDirections {
		next := Cell{from.Col + d.Dx(), from.Row + d.Dy()}
		if !next.InRange() || ctx.cellBlocked(next) {
			continue
		}
		danger := dangerLevel(ctx.Bombs, next)
		if danger < bestDanger {
			bestDanger = danger
			best = i
			bestDir = d
		}
	}

	if best == -1 || bestDanger >= currentDanger {
		return DirDown, false
	}
	return bestDir, true
}
