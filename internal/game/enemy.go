package game

import "github.com/bombarena/server/config"

// Enemy is one AI-controlled entity (§3 Data Model, §4.3 Enemy AI).
type Enemy struct {
	ID     int
	Kind   EnemyKind
	X, Y   float64
	Facing Direction
	Speed  float64
	HP     int
	MaxHP  int

	ChangeDirTimerMS  float64
	ActionTimerMS     float64
	InvincibleTimerMS float64

	// FrogCooldownMS tracks the post-jump cooldown unique to FROG.
	FrogCooldownMS float64
}

// enemyStats returns the base speed and HP for a kind (§9 Design Notes
// Open Question 2: absolute speed values are an implementation choice;
// only the ordering TANK < BALLOON < FROG ≈ MINION < GHOST < BOSS_MECHA <
// BOSS_SLIME is normative, and that ordering holds across the constants in
// config.go).
func enemyStats(k EnemyKind) (speed float64, hp int) {
	switch k {
	case EnemyBalloon:
		return config.SpeedBalloon, config.HPDefault
	case EnemyGhost:
		return config.SpeedGhostEnemy, config.HPDefault
	case EnemyMinion:
		return config.SpeedMinion, config.HPDefault
	case EnemyFrog:
		return config.SpeedFrog, config.HPDefault
	case EnemyTank:
		return config.SpeedTank, config.HPTank
	case EnemyBossSlime:
		return config.SpeedBossSlime, config.HPBoss
	case EnemyBossMecha:
		return config.SpeedBossMecha, config.HPBoss
	default:
		return config.SpeedBalloon, config.HPDefault
	}
}

// NewEnemy creates an enemy of the given kind at a spawn cell.
func NewEnemy(id int, kind EnemyKind, at Cell) *Enemy {
	speed, hp := enemyStats(kind)
	x, y := spawnPixel(at)
	return &Enemy{
		ID:     id,
		Kind:   kind,
		X:      x,
		Y:      y,
		Facing: DirDown,
		Speed:  speed,
		HP:     hp,
		MaxHP:  hp,
	}
}

// Cell returns the grid cell under the enemy's hitbox center.
func (e *Enemy) Cell() Cell {
	return cellUnder(e.X, e.Y)
}

// IsAlive reports whether the enemy still has hit points.
func (e *Enemy) IsAlive() bool {
	return e.HP > 0
}
