package game

import (
	"math/rand"

	"github.com/bombarena/server/config"
)

// RoomState bundles everything one room's tick worker owns (§3 Data
// Model "Room State"). Exactly one goroutine mutates a RoomState; reads
// for wire encoding snapshot through each entity's own GetState()/List()
// methods, so no RoomState-level lock is needed.
type RoomState struct {
	Grid      *Grid
	Items     *ItemField
	Players   []*Player
	Bombs     *BombField
	Enemies   *EnemyField
	RNG       *rand.Rand

	Phase       Phase
	CountdownS  int
	TimeLeftS   int
	LevelIndex  int
	Levels      []Level
	Winner      WinCode
	BossSpawned bool
	Mode        GameMode
	RoomCode    string
	IsPrivate   bool

	nextPlayerID int
}

// NewRoomState constructs an empty room at a given seed, ready for
// players to join while it sits in WAITING.
func NewRoomState(mode GameMode, roomCode string, isPrivate bool, levels []Level, seed int64) *RoomState {
	return &RoomState{
		Grid:      NewGrid(0, NewRNG(seed)),
		Items:     NewItemField(),
		Bombs:     NewBombField(),
		Enemies:   NewEnemyField(),
		RNG:       NewRNG(seed),
		Phase:     PhaseWaiting,
		Mode:      mode,
		RoomCode:  roomCode,
		IsPrivate: isPrivate,
		Levels:    levels,
	}
}

// AddPlayer admits a new Player to the room (§4.6 capacity & locking is
// enforced by the caller, the matchmaker/room layer, not here).
func (r *RoomState) AddPlayer() *Player {
	r.nextPlayerID++
	cornerA, cornerB := SpawnCorners()
	spawn := cornerA
	if r.nextPlayerID%2 == 0 {
		spawn = cornerB
	}
	p := NewPlayer(r.nextPlayerID, spawn)
	r.Players = append(r.Players, p)
	return p
}

func (r *RoomState) currentLevel() Level {
	if r.LevelIndex < 0 || r.LevelIndex >= len(r.Levels) {
		return Level{}
	}
	return r.Levels[r.LevelIndex]
}

func (r *RoomState) isLastLevel() bool {
	return r.LevelIndex == len(r.Levels)-1
}

// StartLevel transitions into PLAYING for the current LevelIndex,
// rebuilding the grid/items and resetting players (§4.5 initLevel).
func (r *RoomState) StartLevel() {
	r.Grid = InitLevel(r.currentLevel(), r.RNG, r.Enemies, r.Players)
	r.Items = NewItemField()
	r.Bombs = NewBombField()
	r.BossSpawned = false
	r.Phase = PhasePlaying
}

// Restart resets every player's score and re-enters COUNTDOWN from
// FINISHED (§4.5: "A FINISHED room may be restarted, which resets stats
// including score and re-enters COUNTDOWN").
func (r *RoomState) Restart() {
	r.LevelIndex = 0
	r.Winner = WinNone
	for _, p := range r.Players {
		p.mu.Lock()
		p.Score = 0
		p.mu.Unlock()
	}
	r.Phase = PhaseCountdown
	r.CountdownS = config.CountdownSeconds
}

// AdvanceLevel moves from LEVEL_CLEAR back into PLAYING on the next
// level (explicit advance signal from the room, §4.5).
func (r *RoomState) AdvanceLevel() {
	r.LevelIndex++
	r.StartLevel()
}

// Step runs exactly one tick of the canonical nine-step order (§4.2).
// dtMS is the elapsed wall-clock milliseconds since the previous tick;
// inputs carries each player's latest decoded input keyed by player ID.
func (r *RoomState) Step(dtMS float64, inputs map[int]PlayerInput) {
	if r.Phase != PhasePlaying {
		return
	}

	timeFactor := dtMS / config.NominalTickMS

	ghostExpired := r.advancePlayerTimers(dtMS)
	r.consumeInputsAndMove(dtMS, timeFactor, inputs, ghostExpired)
	r.collectItems()
	r.Enemies.Step(r.aiContext(), dtMS, timeFactor)
	r.integrateBombs(timeFactor)
	r.detonateExpiredBombs(dtMS)
	r.Bombs.AdvanceExplosions(dtMS)
	ResolveCombat(r.Players, r.Bombs, r.Enemies, r.Mode, dtMS)
	r.Enemies.RemoveDead()
	r.arbitrate()
}

func (r *RoomState) aiContext() *AIContext {
	return &AIContext{Grid: r.Grid, Bombs: r.Bombs, Players: r.Players, Enemies: r.Enemies, RNG: r.RNG}
}

// advancePlayerTimers is tick step 1. It advances the ghost timer only;
// the invincibility and trapped timers are advanced by ResolveCombat.
// It returns the IDs of players whose ghost timer ran out this tick.
func (r *RoomState) advancePlayerTimers(dtMS float64) map[int]bool {
	expired := map[int]bool{}
	for _, p := range r.Players {
		p.mu.Lock()
		if p.GhostTimerMS > 0 {
			p.GhostTimerMS -= dtMS
			if p.GhostTimerMS <= 0 {
				expired[p.ID] = true
			}
		}
		p.mu.Unlock()
	}
	return expired
}

// consumeInputsAndMove is tick step 2: apply each player's movement via
// the collision kernel, queue bomb placement, and run the ghost-expiry
// BFS fix-up for players listed in ghostExpired.
func (r *RoomState) consumeInputsAndMove(dtMS, timeFactor float64, inputs map[int]PlayerInput, ghostExpired map[int]bool) {
	for _, p := range r.Players {
		if !p.IsLive() {
			continue
		}

		st := p.GetState()

		if in, ok := inputs[p.ID]; ok {
			p.ApplyInput(in)
		}

		if st.State != StateTrapped {
			r.movePlayer(p, timeFactor)
		}

		r.maybeQueueBomb(p)

		if ghostExpired[p.ID] {
			r.fixUpGhostExpiry(p)
		}
	}
}

func (r *RoomState) movePlayer(p *Player, timeFactor float64) {
	p.mu.Lock()
	input := p.CurrentInput
	dx, dy := 0.0, 0.0
	facing := p.Facing
	if input.Left {
		dx = -1
		facing = DirLeft
	} else if input.Right {
		dx = 1
		facing = DirRight
	}
	if input.Up {
		dy = -1
		facing = DirUp
	} else if input.Down {
		dy = 1
		facing = DirDown
	}
	x, y, speed := p.X, p.Y, p.Speed
	ghost := p.GhostTimerMS > 0
	canKick := p.CanKick
	p.Facing = facing
	p.mu.Unlock()

	if dx == 0 && dy == 0 {
		return
	}

	cur := cellUnder(x, y)
	if canKick {
		r.maybeKickBomb(cur, facing)
	}

	opts := CollisionOpts{CanPassSoftWalls: ghost, CanPassBombs: ghost, CurrentCell: &cur}
	nx, ny := predictMove(r.Grid, r.Bombs.HasBombAt, x, y, dx, dy, speed*timeFactor, opts)

	p.mu.Lock()
	p.X, p.Y = nx, ny
	p.mu.Unlock()
}

// maybeKickBomb imparts velocity onto a stationary bomb directly ahead of
// a canKick player's facing direction (§4.2 Kick).
func (r *RoomState) maybeKickBomb(from Cell, facing Direction) {
	target := Cell{Col: from.Col + facing.Dx(), Row: from.Row + facing.Dy()}
	if b, ok := r.Bombs.ByCell(target); ok {
		TryKick(b, facing)
	}
}

// maybeQueueBomb drains the player's queued bomb requests, placing at most
// one bomb per tick at the player's current cell if they have capacity
// (§3 invariant: a TRAPPED player cannot place bombs).
func (r *RoomState) maybeQueueBomb(p *Player) {
	st := p.GetState()
	if st.State != StateNormal {
		return
	}
	if !p.TryConsumeBombRequest() {
		return
	}
	if st.ActiveBombs >= st.MaxBombs {
		return
	}
	cell := p.Cell()
	if _, ok := r.Bombs.Place(p.ID, cell, st.BombRange, config.BombFuseMS); ok {
		p.mu.Lock()
		p.ActiveBombs++
		p.mu.Unlock()
	}
}

// fixUpGhostExpiry relocates a player who expired out of GHOST while
// overlapping a SOFT_WALL or bomb (§4.2 step 2, §8 Ghost-expiry safety).
func (r *RoomState) fixUpGhostExpiry(p *Player) {
	cur := p.Cell()
	tile := r.Grid.At(cur)
	stuck := tile == TileSoftWall || r.Bombs.HasBombAt(cur)
	if !stuck {
		return
	}
	if dest, ok := r.Grid.BFSNearestEmpty(cur, r.Bombs.HasBombAt); ok {
		x, y := spawnPixel(dest)
		p.mu.Lock()
		p.X, p.Y = x, y
		p.mu.Unlock()
	}
}

// collectItems is tick step 3: promote pending reveals, then collect and
// apply any item under a live player's cell.
func (r *RoomState) collectItems() {
	r.Items.PromotePending()
	for _, p := range r.Players {
		if !p.IsLive() {
			continue
		}
		if k, ok := r.Items.Consume(p.Cell()); ok {
			p.ApplyItem(k)
		}
	}
}

// integrateBombs is tick step 5: sliding bomb physics.
func (r *RoomState) integrateBombs(timeFactor float64) {
	r.Bombs.Integrate(r.Grid, timeFactor, func(b *Bomb, x, y float64) bool {
		cur := b.Cell
		opts := CollisionOpts{CurrentCell: &cur}
		if blocked(r.Grid, r.bombOccupancyExcluding(b.ID), x, y, opts) {
			return true
		}
		return r.entityAt(CellFromPixel(x+float64(config.TileSize)/2, y+float64(config.TileSize)/2))
	})
}

func (r *RoomState) bombOccupancyExcluding(id uint32) BombOccupancy {
	return func(c Cell) bool {
		b, ok := r.Bombs.ByCell(c)
		return ok && b.ID != id
	}
}

func (r *RoomState) entityAt(c Cell) bool {
	for _, p := range r.Players {
		if p.IsLive() && p.Cell() == c {
			return true
		}
	}
	for _, e := range r.Enemies.List() {
		if e.IsAlive() && e.Cell() == c {
			return true
		}
	}
	return false
}

// detonateExpiredBombs is tick steps 6: decrement fuses and run the
// chain-detonation DFS over anything expired.
func (r *RoomState) detonateExpiredBombs(dtMS float64) {
	expired := r.Bombs.DecrementFuses(dtMS)
	if len(expired) == 0 {
		return
	}
	r.Bombs.Detonate(expired, r.Grid, r.Items, r.RNG, func(ownerID int) {
		for _, p := range r.Players {
			if p.ID == ownerID {
				p.mu.Lock()
				if p.ActiveBombs > 0 {
					p.ActiveBombs--
				}
				p.mu.Unlock()
			}
		}
	})
}

// arbitrate is tick step 9, plus the boss-spawn trigger that must run
// before arbitration can observe an empty enemy list as "complete"
// (§4.5).
func (r *RoomState) arbitrate() {
	level := r.currentLevel()
	r.BossSpawned = MaybeSpawnBoss(level, r.Grid, r.RNG, r.Enemies, r.BossSpawned)
	r.applyArbitration()
}

// applyArbitration runs just the win/level-clear decision, without the
// boss-spawn trigger, so it can also be invoked outside the tick cadence
// (VacatePlayer) without spawning an enemy off-schedule.
func (r *RoomState) applyArbitration() {
	level := r.currentLevel()
	result := Arbitrate(r.Mode, level, r.isLastLevel(), r.Grid, r.Enemies, r.BossSpawned, r.Players)
	if result == nil {
		return
	}
	r.Phase = result.NextPhase
	if !result.AdvanceOnly {
		r.Winner = result.Winner
	}
}

// VacatePlayer marks a player who explicitly left or whose reconnect grace
// window expired as DEAD and, if the match is underway, immediately
// re-runs arbitration so a remaining opponent is credited without waiting
// for the next tick's combat resolution (§4.5, §4.6: "if the window
// expires or the remaining player count drops to zero during PLAYING, the
// match is arbitrated").
func (r *RoomState) VacatePlayer(playerID int) {
	for _, p := range r.Players {
		if p.ID == playerID {
			p.MarkVacated()
		}
	}
	if r.Phase == PhasePlaying {
		r.applyArbitration()
	}
}

