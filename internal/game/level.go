package game

import (
	"math/rand"

	"github.com/bombarena/server/config"
)

// Level wraps one config.LevelConfig with its parsed enemy roster
// (§4.5 Level Manager).
type Level struct {
	Name        string
	WallDensity float64
	Enemies     []EnemyKind
	Boss        EnemyKind
	HasBoss     bool
}

// NewLevel parses a config.LevelConfig into a Level, dropping any roster
// entry that doesn't parse as a known EnemyKind rather than failing
// startup (§7 Error Handling: bad level data degrades, never blocks).
func NewLevel(cfg config.LevelConfig) Level {
	l := Level{Name: cfg.Name, WallDensity: cfg.WallDensity}
	for _, name := range cfg.Enemies {
		if k, ok := ParseEnemyKind(name); ok {
			l.Enemies = append(l.Enemies, k)
		}
	}
	if cfg.Boss != "" {
		if k, ok := ParseEnemyKind(cfg.Boss); ok {
			l.Boss = k
			l.HasBoss = true
		}
	}
	return l
}

// ParseLevels converts a full config.LevelConfig roster.
func ParseLevels(cfgs []config.LevelConfig) []Level {
	levels := make([]Level, len(cfgs))
	for i, c := range cfgs {
		levels[i] = NewLevel(c)
	}
	return levels
}

// InitLevel builds a fresh grid for the given level and resets every
// player's transient per-level stats, preserving score (§4.5 initLevel).
// The item field is not touched here; RoomState.StartLevel replaces it.
// Spawns the level's enemy roster at valid cells away
// from the two player spawn corners, after clearing the enemies field.
// The room's bossSpawned flag is not touched here; RoomState.StartLevel
// resets it.
func InitLevel(level Level, rng *rand.Rand, enemies *EnemyField, players []*Player) *Grid {
	grid := NewGrid(level.WallDensity, rng)
	cornerA, cornerB := SpawnCorners()

	for _, p := range players {
		spawn := cornerA
		if p.ID%2 == 0 {
			spawn = cornerB
		}
		p.ResetForLevel(spawn)
	}

	enemies.Clear()
	occupied := func(c Cell) bool { return false }
	for _, kind := range level.Enemies {
		spawnEnemyAwayFromPlayers(grid, rng, enemies, kind, occupied)
	}

	return grid
}

// spawnEnemyAwayFromPlayers finds a random EMPTY, non-spawn-corner cell
// for a new enemy via rejection sampling, falling back to a BFS search
// from the grid center if none is found quickly.
func spawnEnemyAwayFromPlayers(grid *Grid, rng *rand.Rand, enemies *EnemyField, kind EnemyKind, occupied func(Cell) bool) {
	safe := spawnSafeCells(grid.W, grid.H)

	for attempt := 0; attempt < 50; attempt++ {
		c := Cell{Col: 1 + rng.Intn(grid.W-2), Row: 1 + rng.Intn(grid.H-2)}
		if safe[c] || grid.At(c) != TileEmpty || occupied(c) {
			continue
		}
		enemies.Spawn(kind, c)
		return
	}

	center := Cell{Col: grid.W / 2, Row: grid.H / 2}
	if c, ok := grid.BFSNearestEmpty(center, occupied); ok {
		enemies.Spawn(kind, c)
	}
}

// MaybeSpawnBoss implements the boss spawn trigger (§4.5): once a PVE
// level's enemy list is empty and no boss has spawned yet, spawn the
// configured boss at a valid cell and mark bossSpawned.
func MaybeSpawnBoss(level Level, grid *Grid, rng *rand.Rand, enemies *EnemyField, bossSpawned bool) bool {
	if !level.HasBoss || bossSpawned || enemies.Count() > 0 {
		return bossSpawned
	}
	occupied := func(c Cell) bool { return false }
	spawnEnemyAwayFromPlayers(grid, rng, enemies, level.Boss, occupied)
	return true
}

// levelComplete reports whether every enemy is dead and, if the level
// has a boss, the boss has been spawned and killed (§4.5).
func levelComplete(level Level, enemies *EnemyField, bossSpawned bool) bool {
	if enemies.Count() > 0 {
		return false
	}
	if level.HasBoss && !bossSpawned {
		return false
	}
	return true
}

// ArbitrationResult communicates a phase transition decided this tick.
type ArbitrationResult struct {
	NextPhase   Phase
	Winner      WinCode
	AdvanceOnly bool // true for LEVEL_CLEAR: no winner assigned, just pause
}

// Arbitrate runs the per-tick win/level-clear arbitration (§4.5). Returns
// nil if no phase transition is warranted this tick.
func Arbitrate(mode GameMode, level Level, isLastLevel bool, grid *Grid, enemies *EnemyField, bossSpawned bool, players []*Player) *ArbitrationResult {
	liveCount, trappedCount := 0, 0
	for _, p := range players {
		switch p.GetState().State {
		case StateNormal:
			liveCount++
		case StateTrapped:
			liveCount++
			trappedCount++
		}
	}

	switch mode {
	case ModePVE:
		if liveCount == 0 {
			return &ArbitrationResult{NextPhase: PhaseFinished, Winner: WinNone}
		}
		if levelComplete(level, enemies, bossSpawned) {
			if isLastLevel {
				return &ArbitrationResult{NextPhase: PhaseFinished, Winner: WinCampaignComplete}
			}
			return &ArbitrationResult{NextPhase: PhaseLevelClear, AdvanceOnly: true}
		}
	case ModePVP:
		if liveCount == 0 {
			return &ArbitrationResult{NextPhase: PhaseFinished, Winner: WinNone}
		}
		if liveCount == 1 && trappedCount == 0 {
			for _, p := range players {
				if p.GetState().State == StateNormal {
					return &ArbitrationResult{NextPhase: PhaseFinished, Winner: WinCode(p.ID)}
				}
			}
		}
	}

	return nil
}
