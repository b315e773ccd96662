package game

import (
	"sync"

	"github.com/bombarena/server/config"
)

// PlayerInput is the decoded, continuous movement state for one player
// (§6 External Interfaces: "input { up, down, left, right }", edge
// triggered on the wire but treated as continuous while true on the
// server).
type PlayerInput struct {
	Up, Down, Left, Right bool
}

// PlayerState is a read-only snapshot of a Player, safe to encode onto the
// wire without holding any lock (grounded on the teacher's
// Player.GetState()).
type PlayerState struct {
	ID                int
	X, Y              float64
	Facing            Direction
	State             LifeState
	Score             int
	Speed             float64
	BombRange         int
	MaxBombs          int
	ActiveBombs       int
	CanKick           bool
	HasShield         bool
	GhostTimerMS      float64
	TrappedTimerMS    float64
	InvincibleTimerMS float64
}

// Player is one connected participant's simulated entity (§3 Data Model).
// Field access is guarded by mu the same way the teacher's Player guards
// X/Y/Speed/etc — the simulation loop is single-threaded per room, but the
// lock lets a session's read-only snapshot (for encoding) run concurrently
// with the next tick's mutation without racing.
type Player struct {
	mu sync.RWMutex

	ID     int
	X, Y   float64
	Facing Direction
	State  LifeState
	Score  int

	Speed       float64
	BombRange   int
	MaxBombs    int
	ActiveBombs int
	CanKick     bool
	HasShield   bool

	GhostTimerMS      float64
	TrappedTimerMS    float64
	InvincibleTimerMS float64

	CurrentInput PlayerInput
	BombRequests int // discrete `bomb {}` events queued since last tick
}

// NewPlayer creates a player at the given spawn cell with base stats.
func NewPlayer(id int, spawn Cell) *Player {
	x, y := spawnPixel(spawn)
	return &Player{
		ID:        id,
		X:         x,
		Y:         y,
		Facing:    DirDown,
		State:     StateNormal,
		Speed:     config.BaseSpeed,
		BombRange: 1,
		MaxBombs:  1,
	}
}

// spawnPixel centers a PlayerSize hitbox within the spawn cell's tile.
func spawnPixel(c Cell) (float64, float64) {
	tlX, tlY := CellTopLeft(c)
	pad := (float64(config.TileSize) - float64(config.PlayerSize)) / 2
	return tlX + pad, tlY + pad
}

// ResetForLevel resets transient per-level stats and position while
// preserving score (§4.5 initLevel).
func (p *Player) ResetForLevel(spawn Cell) {
	p.mu.Lock()
	defer p.mu.Unlock()

	x, y := spawnPixel(spawn)
	p.X, p.Y = x, y
	p.Facing = DirDown
	p.State = StateNormal
	p.Speed = config.BaseSpeed
	p.BombRange = 1
	p.MaxBombs = 1
	p.ActiveBombs = 0
	p.CanKick = false
	p.HasShield = false
	p.GhostTimerMS = 0
	p.TrappedTimerMS = 0
	p.InvincibleTimerMS = 0
	p.CurrentInput = PlayerInput{}
	p.BombRequests = 0
}

// GetState returns a thread-safe snapshot.
func (p *Player) GetState() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PlayerState{
		ID:                p.ID,
		X:                 p.X,
		Y:                 p.Y,
		Facing:            p.Facing,
		State:             p.State,
		Score:             p.Score,
		Speed:             p.Speed,
		BombRange:         p.BombRange,
		MaxBombs:          p.MaxBombs,
		ActiveBombs:       p.ActiveBombs,
		CanKick:           p.CanKick,
		HasShield:         p.HasShield,
		GhostTimerMS:      p.GhostTimerMS,
		TrappedTimerMS:    p.TrappedTimerMS,
		InvincibleTimerMS: p.InvincibleTimerMS,
	}
}

// ApplyInput applies decoded movement input (thread-safe).
func (p *Player) ApplyInput(input PlayerInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentInput = input
}

// QueueBomb registers a discrete bomb-placement request (thread-safe).
func (p *Player) QueueBomb() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BombRequests++
}

// TryConsumeBombRequest clears every queued bomb-placement request,
// reporting whether at least one was pending (thread-safe).
func (p *Player) TryConsumeBombRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BombRequests <= 0 {
		return false
	}
	p.BombRequests = 0
	return true
}

// Cell returns the grid cell under the player's hitbox center.
func (p *Player) Cell() Cell {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cellUnder(p.X, p.Y)
}

func cellUnder(x, y float64) Cell {
	half := float64(config.PlayerSize) / 2
	return CellFromPixel(x+half, y+half)
}

// IsLive reports whether a player can act and be damaged (not DEAD).
func (p *Player) IsLive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.State != StateDead
}

// MarkVacated transitions a player straight to DEAD because they left or
// their reconnect grace window expired, independent of the hurt funnel's
// NORMAL→TRAPPED→DEAD escalation (§4.6).
func (p *Player) MarkVacated() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = StateDead
}

// ApplyItem applies a power-up pickup effect, capped per §4.2's table.
func (p *Player) ApplyItem(k ItemKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch k {
	case ItemRangeUp:
		if p.BombRange < config.MaxBombRange {
			p.BombRange++
		}
	case ItemBombUp:
		if p.MaxBombs < config.MaxBombs {
			p.MaxBombs++
		}
	case ItemSpeedUp:
		if p.Speed < config.MaxSpeed {
			p.Speed++
		}
	case ItemKick:
		p.CanKick = true
	case ItemGhost:
		p.GhostTimerMS = config.GhostDurationMS // refresh, not additive
	case ItemShield:
		p.HasShield = true
	}
}
