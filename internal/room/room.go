// Package room wraps one game.RoomState with a tick-worker goroutine,
// session bookkeeping, and wire snapshot broadcast (§4.5, §4.6, §6).
package room

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/bombarena/server/config"
	"github.com/bombarena/server/internal/game"
	"github.com/bombarena/server/internal/metrics"
	"github.com/bombarena/server/internal/network"
)

// newSessionToken mints an opaque reconnect token (grounded on the
// teacher's matchmaker.generateRoomID crypto/rand+hex idiom).
func newSessionToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Connection is whatever a transport (the websocket gateway) exposes to a
// Room to push bytes at a client, grounded on the teacher's
// PlayerConnection interface (internal/game/player.go ConnSend pattern).
type Connection interface {
	Send(data []byte) error
	Close() error
}

// session binds one connected player to a Room, tracking its session
// token for reconnect-with-grace-window (§4.6) and the connection most
// recently attached to it (nil while disconnected and within grace).
type session struct {
	playerID     int
	token        string
	conn         Connection
	disconnected time.Time // zero while connected
}

// Room runs one game.RoomState's tick worker and owns its sessions. Field
// access outside the tick goroutine (AddPlayer/HandleInput/session
// lookups from the gateway) is guarded by mu, the same RWMutex shape the
// teacher's Room uses to protect its player map.
type Room struct {
	mu       sync.RWMutex
	Code     string
	Mode     game.GameMode
	IsPrivate bool

	state    *game.RoomState
	sessions map[int]*session

	protocol *network.Protocol
	inputs   map[int]game.PlayerInput
	bombReqs map[int]bool

	running  bool
	stopChan chan struct{}

	countdownMS float64 // elapsed ms toward the next COUNTDOWN decrement

	onEmpty func(code string)
}

// NewRoom constructs a Room in WAITING, not yet started.
func NewRoom(code string, mode game.GameMode, isPrivate bool, levels []game.Level, seed int64) *Room {
	return &Room{
		Code:      code,
		Mode:      mode,
		IsPrivate: isPrivate,
		state:     game.NewRoomState(mode, code, isPrivate, levels, seed),
		sessions:  make(map[int]*session),
		protocol:  network.NewProtocol(),
		inputs:    make(map[int]game.PlayerInput),
		bombReqs:  make(map[int]bool),
		stopChan:  make(chan struct{}),
	}
}

// SetOnEmpty registers a callback fired once a room's tick worker stops
// with zero connected sessions past grace (matchmaker cleanup hook).
func (r *Room) SetOnEmpty(cb func(code string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEmpty = cb
}

// PlayerCount returns the number of joined (not necessarily connected)
// players, for capacity locking (§4.6: capacity 2).
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IsLocked reports whether the room has reached capacity or already left
// WAITING (§4.6: "a room accepting joins is WAITING and under capacity").
func (r *Room) IsLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions) >= 2 || r.state.Phase != game.PhaseWaiting
}

// Join admits a new player and conn, or reattaches a disconnected session
// if token matches one still inside the grace window (§4.6 reconnect).
func (r *Room) Join(token string, conn Connection) (playerID int, reconnected bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != "" {
		for _, s := range r.sessions {
			if s.token == token && !s.disconnected.IsZero() {
				s.conn = conn
				s.disconnected = time.Time{}
				metrics.ActiveSessions.Inc()
				return s.playerID, true, true
			}
		}
	}

	if len(r.sessions) >= 2 || r.state.Phase != game.PhaseWaiting {
		return 0, false, false
	}

	p := r.state.AddPlayer()
	r.sessions[p.ID] = &session{playerID: p.ID, token: newSessionToken(), conn: conn}
	metrics.ActiveSessions.Inc()

	if len(r.sessions) == 2 {
		r.state.Phase = game.PhaseCountdown
		r.state.CountdownS = config.CountdownSeconds
	}

	return p.ID, false, true
}

// SessionToken returns the token minted for a player, for the join-accept
// reply.
func (r *Room) SessionToken(playerID int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[playerID]; ok {
		return s.token
	}
	return ""
}

// Disconnect marks a session's connection gone, starting its reconnect
// grace window rather than immediately freeing the player's slot (§4.6:
// applies to an abnormal transport close, where the client may still
// reconnect with its session token).
func (r *Room) Disconnect(playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[playerID]; ok {
		s.conn = nil
		s.disconnected = time.Now()
		metrics.ActiveSessions.Dec()
	}
}

// Leave immediately frees a player's slot with no reconnect grace window
// and, if the match is underway, vacates their in-game Player so
// arbitration can credit a remaining opponent right away (§4.6: an
// explicit leave removes the slot outright, unlike Disconnect's grace
// window for an abnormal transport close).
func (r *Room) Leave(playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[playerID]
	if !ok {
		return
	}
	delete(r.sessions, playerID)
	if s.conn != nil {
		metrics.ActiveSessions.Dec()
	}

	if r.state.Phase == game.PhasePlaying {
		r.state.VacatePlayer(playerID)
	}
}

// HandleInput buffers the latest decoded movement input for a player,
// applied on the next tick (tick step 2 reads this map).
func (r *Room) HandleInput(playerID int, in game.PlayerInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[playerID] = in
}

// HandleBombRequest queues one discrete bomb-placement request.
func (r *Room) HandleBombRequest(playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bombReqs[playerID] = true
}

// Start begins the room's tick-worker and broadcast goroutine. Safe to
// call once; subsequent calls are no-ops (grounded on the teacher's
// atomic-swap Start/Stop idiom, simplified to a bool under mu since a
// Room's own goroutine is the only writer after construction).
func (r *Room) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go r.loop()
}

// Stop halts the tick worker.
func (r *Room) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
}

func (r *Room) loop() {
	tickMS := config.NominalTickMS
	tickDur := time.Duration(tickMS * float64(time.Millisecond))
	ticker := time.NewTicker(tickDur)
	defer ticker.Stop()

	grace := time.Duration(config.ReconnectGraceMS) * time.Millisecond
	graceCheck := time.NewTicker(time.Second)
	defer graceCheck.Stop()

	last := time.Now()

	for {
		select {
		case <-r.stopChan:
			return

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds() * 1000
			last = now
			if dt > 250 {
				dt = 250 // clamp a stall so a paused process doesn't detonate every bomb at once
			}
			r.tick(dt)

		case <-graceCheck.C:
			if r.expireGraceWindow(grace) {
				r.Stop()
				return
			}
		}
	}
}

// tick runs exactly one simulation step (or the WAITING/COUNTDOWN/
// LEVEL_CLEAR phase bookkeeping game.RoomState.Step doesn't itself drive)
// then broadcasts a snapshot: a full one when the tick changed the grid or
// the item list, a delta otherwise. COUNTDOWN drops by one for every
// 1000ms of dtMS.
func (r *Room) tick(dtMS float64) {
	start := time.Now()

	r.mu.Lock()
	phase := r.state.Phase
	gridBefore := r.state.Grid.Flatten()
	itemsBefore := r.state.Items.List()
	var bombsDetonated, enemiesKilled int
	switch phase {
	case game.PhaseCountdown:
		r.countdownMS += dtMS
		if r.countdownMS >= 1000 {
			r.countdownMS -= 1000
			r.state.CountdownS--
			if r.state.CountdownS <= 0 {
				r.countdownMS = 0
				r.state.StartLevel()
			}
		}
	case game.PhasePlaying:
		inputs := r.inputs
		r.inputs = make(map[int]game.PlayerInput)
		for id := range r.bombReqs {
			for _, p := range r.state.Players {
				if p.ID == id {
					p.QueueBomb()
				}
			}
		}
		r.bombReqs = make(map[int]bool)
		bombIDs, enemyIDs := make(map[uint32]bool), make(map[int]bool)
		for _, b := range r.state.Bombs.Bombs() {
			bombIDs[b.ID] = true
		}
		for _, e := range r.state.Enemies.List() {
			enemyIDs[e.ID] = true
		}
		r.state.Step(dtMS, inputs)
		for _, b := range r.state.Bombs.Bombs() {
			delete(bombIDs, b.ID)
		}
		for _, e := range r.state.Enemies.List() {
			delete(enemyIDs, e.ID)
		}
		bombsDetonated, enemiesKilled = len(bombIDs), len(enemyIDs)
	case game.PhaseLevelClear:
		r.state.AdvanceLevel()
	}
	snapshot := r.buildSnapshot()
	static := !bytes.Equal(gridBefore, snapshot.Grid) || !reflect.DeepEqual(itemsBefore, r.state.Items.List())
	r.mu.Unlock()

	metrics.RecordTick(time.Since(start))
	metrics.RecordBombsDetonated(bombsDetonated)
	metrics.RecordEnemiesKilled(enemiesKilled)

	if static {
		r.broadcast(r.protocol.EncodeSnapshotFull(snapshot))
	} else {
		r.broadcast(r.protocol.EncodeSnapshotDelta(snapshot))
	}
}

// expireGraceWindow stops any session whose reconnect grace window has
// elapsed, vacating its in-game Player and re-running arbitration if the
// match was underway (§4.6: "if the window expires... during PLAYING, the
// match is arbitrated"), and reports whether every session is now gone
// (room dead).
func (r *Room) expireGraceWindow(grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.disconnected.IsZero() {
			continue
		}
		if time.Since(s.disconnected) > grace {
			delete(r.sessions, id)
			if r.state.Phase == game.PhasePlaying {
				r.state.VacatePlayer(id)
			}
		}
	}

	empty := len(r.sessions) == 0
	if empty && r.onEmpty != nil {
		r.onEmpty(r.Code)
	}
	return empty
}

// SendFullSnapshot pushes a full snapshot (static grid + items included)
// to one newly joined or reconnected session (§6: "full on join, deltas
// thereafter").
func (r *Room) SendFullSnapshot(playerID int) {
	r.mu.RLock()
	snapshot := r.buildSnapshot()
	s, ok := r.sessions[playerID]
	r.mu.RUnlock()
	if !ok || s.conn == nil {
		return
	}
	_ = s.conn.Send(r.protocol.EncodeSnapshotFull(snapshot))
}

func (r *Room) broadcast(data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.conn == nil {
			continue
		}
		if err := s.conn.Send(data); err != nil {
			log.Printf("room %s: send to player %d failed: %v", r.Code, s.playerID, err)
		}
	}
}

// buildSnapshot must be called with r.mu held (read or write).
func (r *Room) buildSnapshot() network.RoomSnapshot {
	st := r.state

	players := make([]network.PlayerRecord, 0, len(st.Players))
	for _, p := range st.Players {
		ps := p.GetState()
		players = append(players, network.PlayerRecord{
			ID:                uint8(ps.ID),
			X:                 ps.X,
			Y:                 ps.Y,
			State:             uint8(ps.State),
			Facing:            uint8(ps.Facing),
			Speed:             ps.Speed,
			BombRange:         uint8(ps.BombRange),
			MaxBombs:          uint8(ps.MaxBombs),
			ActiveBombs:       uint8(ps.ActiveBombs),
			Score:             uint32(ps.Score),
			CanKick:           ps.CanKick,
			HasShield:         ps.HasShield,
			GhostTimerMS:      uint32(clampNonNeg(ps.GhostTimerMS)),
			TrappedTimerMS:    uint32(clampNonNeg(ps.TrappedTimerMS)),
			InvincibleTimerMS: uint32(clampNonNeg(ps.InvincibleTimerMS)),
		})
	}

	bombs := make([]network.BombRecord, 0, len(st.Bombs.Bombs()))
	for _, b := range st.Bombs.Bombs() {
		bombs = append(bombs, network.BombRecord{
			ID:      b.ID,
			OwnerID: uint8(b.OwnerID),
			GridX:   uint8(b.Cell.Col),
			GridY:   uint8(b.Cell.Row),
			X:       b.X,
			Y:       b.Y,
			VX:      b.VX,
			VY:      b.VY,
			Range:   uint8(b.Range),
			TimerMS: uint32(clampNonNeg(b.FuseMS)),
		})
	}

	explosions := make([]network.ExplosionRecord, 0, len(st.Bombs.Explosions()))
	for _, e := range st.Bombs.Explosions() {
		explosions = append(explosions, network.ExplosionRecord{
			ID:      e.ID,
			OwnerID: uint8(e.OwnerID),
			GridX:   uint8(e.Cell.Col),
			GridY:   uint8(e.Cell.Row),
			TimerMS: uint32(clampNonNeg(e.TTLMS)),
		})
	}

	enemies := make([]network.EnemyRecord, 0, st.Enemies.Count())
	for _, e := range st.Enemies.List() {
		enemies = append(enemies, network.EnemyRecord{
			ID:        uint32(e.ID),
			EnemyType: uint8(e.Kind),
			X:         e.X,
			Y:         e.Y,
			Facing:    uint8(e.Facing),
			Speed:     e.Speed,
			HP:        uint8(e.HP),
			MaxHP:     uint8(e.MaxHP),
		})
	}

	snapshot := network.RoomSnapshot{
		Phase:       uint8(st.Phase),
		Mode:        wireMode(st.Mode),
		RoomCode:    st.RoomCode,
		IsPrivate:   st.IsPrivate,
		Countdown:   uint8(clampNonNeg(float64(st.CountdownS))),
		TimeLeft:    uint16(clampNonNeg(float64(st.TimeLeftS))),
		Level:       uint8(st.LevelIndex),
		Winner:      uint8(st.Winner),
		BossSpawned: st.BossSpawned,
		GridW:       uint8(st.Grid.W),
		GridH:       uint8(st.Grid.H),
		Grid:        st.Grid.Flatten(),
		Players:     players,
		Bombs:       bombs,
		Explosions:  explosions,
		Enemies:     enemies,
	}

	for _, it := range st.Items.List() {
		snapshot.Items = append(snapshot.Items, network.ItemRecord{
			GridX:    uint8(it.Cell.Col),
			GridY:    uint8(it.Cell.Row),
			ItemType: uint8(it.Kind),
		})
	}

	return snapshot
}

func wireMode(m game.GameMode) uint8 {
	if m == game.ModePVE {
		return network.WireModePVE
	}
	return network.WireModePVP
}

func clampNonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
