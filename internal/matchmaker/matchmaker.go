// Package matchmaker routes create/joinByCode/quickMatch requests to
// rooms, generating unique room codes and enforcing capacity/phase
// locking (§4.6 Room Lifecycle & Matchmaking).
package matchmaker

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/bombarena/server/config"
	"github.com/bombarena/server/internal/game"
	"github.com/bombarena/server/internal/metrics"
	"github.com/bombarena/server/internal/room"
)

// ErrCode is a typed matchmaking failure reason (§7 Error Handling,
// mirrored on the wire by network.ErrCode*).
type ErrCode uint8

const (
	ErrRoomNotFound ErrCode = iota + 1
	ErrRoomLocked
	ErrRoomNotOpen
	ErrServerFull
)

// MatchError is a typed matchmaking failure.
type MatchError struct {
	Code    ErrCode
	Message string
}

func (e *MatchError) Error() string { return e.Message }

// MaxRooms bounds how many concurrent rooms one process will run.
// Grounded on the teacher's config.MaxRoomsPerServer capacity gate in
// GetOrCreateRoom, generalized from a per-server player cap to this
// expanded spec's room-code matchmaking.
const MaxRooms = 500

// Matchmaker owns every live room, keyed by room code.
type Matchmaker struct {
	mu     sync.RWMutex
	rooms  map[string]*room.Room
	levels []game.Level
}

// New constructs a Matchmaker with the given parsed level roster, used to
// seed every PVE room it creates.
func New(levels []game.Level) *Matchmaker {
	return &Matchmaker{
		rooms:  make(map[string]*room.Room),
		levels: levels,
	}
}

// Create opens a fresh room in the given mode, public or private (§4.6
// create).
func (m *Matchmaker) Create(mode game.GameMode, isPrivate bool) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rooms) >= MaxRooms {
		return nil, &MatchError{Code: ErrServerFull, Message: "server is at room capacity"}
	}

	code := m.generateUniqueCodeLocked()
	return m.newRoomLocked(code, mode, isPrivate), nil
}

// JoinByCode looks up a room by its exact code, failing if it doesn't
// exist, is already locked (full or past WAITING).
func (m *Matchmaker) JoinByCode(code string) (*room.Room, error) {
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()

	if !ok {
		return nil, &MatchError{Code: ErrRoomNotFound, Message: "no room with that code"}
	}
	if r.IsLocked() {
		return nil, &MatchError{Code: ErrRoomLocked, Message: "room is full or already started"}
	}
	return r, nil
}

// QuickMatch returns the first open (WAITING, under capacity, public)
// room of the requested mode, or creates one if none is open (§4.6
// quickMatch).
func (m *Matchmaker) QuickMatch(mode game.GameMode) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		if r.IsPrivate || r.Mode != mode {
			continue
		}
		if !r.IsLocked() {
			return r, nil
		}
	}

	if len(m.rooms) >= MaxRooms {
		return nil, &MatchError{Code: ErrServerFull, Message: "server is at room capacity"}
	}

	code := m.generateUniqueCodeLocked()
	return m.newRoomLocked(code, mode, false), nil
}

// newRoomLocked must be called with m.mu held.
func (m *Matchmaker) newRoomLocked(code string, mode game.GameMode, isPrivate bool) *room.Room {
	seed := seedFromCode(code)
	r := room.NewRoom(code, mode, isPrivate, m.levels, seed)
	r.SetOnEmpty(m.removeRoom)
	m.rooms[code] = r
	r.Start()
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	return r
}

func (m *Matchmaker) removeRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
}

// generateUniqueCodeLocked must be called with m.mu held.
func (m *Matchmaker) generateUniqueCodeLocked() string {
	for {
		code := randomRoomCode()
		if _, taken := m.rooms[code]; !taken {
			return code
		}
	}
}

// randomRoomCode draws config.RoomCodeLength characters from the
// unambiguous alphabet (§4.6: "4-char unambiguous alphabet").
func randomRoomCode() string {
	alphabet := config.RoomCodeAlphabet
	buf := make([]byte, config.RoomCodeLength)
	raw := make([]byte, config.RoomCodeLength)
	rand.Read(raw)
	for i, b := range raw {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// seedFromCode derives a per-room RNG seed from its code and creation
// time so two rooms never accidentally share a seed stream (§9 Design
// Notes: per-room seeded RNG, never the global math/rand source).
func seedFromCode(code string) int64 {
	h := time.Now().UnixNano()
	for _, c := range code {
		h = h*131 + int64(c)
	}
	return h
}

// Stats summarizes matchmaker load for the /online-stats endpoint.
type Stats struct {
	TotalRooms   int
	TotalPlayers int
}

func (m *Matchmaker) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{TotalRooms: len(m.rooms)}
	for _, r := range m.rooms {
		stats.TotalPlayers += r.PlayerCount()
	}
	return stats
}

// CleanupEmptyRooms sweeps any room left with zero sessions (defensive
// backstop; Room's own grace-expiry already self-unregisters via
// SetOnEmpty — grounded on the teacher's periodic CleanupEmptyRooms
// sweep, kept as a belt-and-suspenders pass).
func (m *Matchmaker) CleanupEmptyRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for code, r := range m.rooms {
		if r.PlayerCount() == 0 {
			r.Stop()
			delete(m.rooms, code)
			removed++
		}
	}
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	return removed
}
