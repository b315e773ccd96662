package game

import "github.com/bombarena/server/config"

// enemyDecision is what a per-kind behavior wants to happen this tick.
type enemyDecision struct {
	dir      Direction
	move     bool
	teleport bool // true if the behavior already repositioned the enemy itself (FROG jump)
}

// onBlockedHook runs when a chosen move was fully blocked this tick.
type onBlockedHook func(e *Enemy, ctx *AIContext)

type behaviorTable struct {
	step      func(e *Enemy, ctx *AIContext) enemyDecision
	onBlocked onBlockedHook
}

func behaviorFor(kind EnemyKind) behaviorTable {
	switch kind {
	case EnemyBalloon:
		return behaviorTable{step: balloonStep, onBlocked: rePickNow}
	case EnemyFrog:
		return behaviorTable{step: frogStep, onBlocked: rePickNow}
	case EnemyGhost, EnemyMinion, EnemyTank:
		return behaviorTable{step: chaserStep, onBlocked: chaserEscape}
	case EnemyBossSlime:
		return behaviorTable{step: bossSlimeStep, onBlocked: chaserEscape}
	case EnemyBossMecha:
		return behaviorTable{step: bossMechaStep, onBlocked: chaserEscape}
	default:
		return behaviorTable{step: balloonStep, onBlocked: rePickNow}
	}
}

// rePickNow forces an immediate re-pick next tick (§4.3 BALLOON: "on wall
// hit, immediately re-pick").
func rePickNow(e *Enemy, ctx *AIContext) {
	e.ChangeDirTimerMS = 0
}

// chaserEscape picks a brief random escape direction with a 300ms
// re-evaluation timer (§4.3 GHOST/MINION/TANK: "on wall hit, brief random
// escape with a 300 ms re-evaluation timer").
func chaserEscape(e *Enemy, ctx *AIContext) {
	e.Facing = randomDirection(ctx)
	e.ChangeDirTimerMS = 300
}

func randomDirection(ctx *AIContext) Direction {
	return AllDirections[ctx.RNG.Intn(len(AllDirections))]
}

// Step runs the shared scheduler for every live enemy: decrement timers,
// invoke the kind-specific behavior, then attempt the chosen move; on a
// fully-blocked move, invoke the kind's onBlocked hook (§4.3).
func (f *EnemyField) Step(ctx *AIContext, dtMS, timeFactor float64) {
	for _, e := range f.enemies {
		if !e.IsAlive() {
			continue
		}

		e.ChangeDirTimerMS -= dtMS
		e.ActionTimerMS -= dtMS
		if e.InvincibleTimerMS > 0 {
			e.InvincibleTimerMS -= dtMS
		}
		if e.FrogCooldownMS > 0 {
			e.FrogCooldownMS -= dtMS
		}

		bt := behaviorFor(e.Kind)
		decision := bt.step(e, ctx)
		if decision.teleport || !decision.move {
			continue
		}

		cur := e.Cell()
		nx, ny := predictMove(ctx.Grid, ctx.Bombs.HasBombAt, e.X, e.Y, float64(decision.dir.Dx()), float64(decision.dir.Dy()), e.Speed*timeFactor, CollisionOpts{CurrentCell: &cur})
		moved := nx != e.X || ny != e.Y
		e.X, e.Y = nx, ny
		e.Facing = decision.dir

		if !moved && bt.onBlocked != nil {
			bt.onBlocked(e, ctx)
		}
	}
}

// balloonStep: uniformly random direction, re-picked every 2000-4000ms
// (§4.3 BALLOON).
func balloonStep(e *Enemy, ctx *AIContext) enemyDecision {
	if e.ChangeDirTimerMS <= 0 {
		e.Facing = randomDirection(ctx)
		e.ChangeDirTimerMS = 2000 + ctx.RNG.Float64()*2000
	}
	return enemyDecision{dir: e.Facing, move: true}
}

// chaserStep: re-evaluates chaseDirection toward the nearest living player
// every 100ms (§4.3 GHOST/MINION/TANK).
func chaserStep(e *Enemy, ctx *AIContext) enemyDecision {
	if e.ChangeDirTimerMS <= 0 {
		if target, ok := findNearestLiving(ctx.Players, e.X, e.Y); ok {
			if dir, ok2 := chaseDirection(ctx, e.Cell(), target.Cell()); ok2 {
				e.Facing = dir
			}
		}
		e.ChangeDirTimerMS = 100
	}
	return enemyDecision{dir: e.Facing, move: true}
}

// frogStep: random walker like BALLOON, but when blocked attempts a
// two-cell jump over an intervening SOFT_WALL (§4.3 FROG).
func frogStep(e *Enemy, ctx *AIContext) enemyDecision {
	if e.ChangeDirTimerMS <= 0 {
		e.Facing = randomDirection(ctx)
		e.ChangeDirTimerMS = 2000 + ctx.RNG.Float64()*2000
	}

	cur := e.Cell()
	next := Cell{cur.Col + e.Facing.Dx(), cur.Row + e.Facing.Dy()}

	if !next.InRange() || !ctx.cellBlocked(next) {
		return enemyDecision{dir: e.Facing, move: true}
	}

	// Blocked: attempt a jump if eligible.
	if e.FrogCooldownMS <= 0 {
		twoAhead := Cell{cur.Col + e.Facing.Dx()*2, cur.Row + e.Facing.Dy()*2}
		if twoAhead.InRange() && next.InRange() &&
			ctx.Grid.At(next) == TileSoftWall && ctx.Grid.At(twoAhead) == TileEmpty &&
			!ctx.Bombs.HasBombAt(twoAhead) {
			x, y := spawnPixel(twoAhead)
			e.X, e.Y = x, y
			e.FrogCooldownMS = 1000
			return enemyDecision{teleport: true}
		}
	}

	e.Facing = randomDirection(ctx)
	e.ChangeDirTimerMS = 2000 + ctx.RNG.Float64()*2000
	return enemyDecision{dir: e.Facing, move: true}
}

// bossSlimeStep: chases like GHOST/MINION/TANK, and on a 4000ms cycle
// spawns a MINION at its own cell if the total enemy count is under the
// cap (§4.3 BOSS_SLIME).
func bossSlimeStep(e *Enemy, ctx *AIContext) enemyDecision {
	decision := chaserStep(e, ctx)

	if e.ActionTimerMS <= 0 {
		e.ActionTimerMS = config.BossSlimeSpawnCycleMS
		if ctx.Enemies.Count() < config.MaxTotalEnemies {
			ctx.Enemies.Spawn(EnemyMinion, e.Cell())
		}
	}

	return decision
}

// bossMechaStep: priority 1 is self-preservation (dodge a threatening
// bomb, skipping chase/bomb this tick); priority 2 is chase; its action
// is placing a mega-bomb on its own cell when not already in danger
// (§4.3 BOSS_MECHA — mandatory: never commits suicide into its own bomb
// when a safe cell exists).
func bossMechaStep(e *Enemy, ctx *AIContext) enemyDecision {
	cur := e.Cell()

	if dir, ok := dodgeDirection(ctx, cur); ok {
		e.ChangeDirTimerMS = config.BossMechaFastReevalMS
		return enemyDecision{dir: dir, move: true}
	}

	decision := chaserStep(e, ctx)

	if e.ActionTimerMS <= 0 && !isInDanger(ctx.Bombs, cur) {
		if _, ok := ctx.Bombs.Place(0, cur, config.BossMechaBombRange, config.BossMechaBombFuseMS); ok {
			e.ActionTimerMS = config.BossMechaActionCooldownMS
		}
	}

	return decision
}
