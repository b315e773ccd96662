package matchmaker

import (
	"testing"

	"github.com/bombarena/server/internal/game"
	"github.com/bombarena/server/internal/room"
)

func TestCreate_AssignsAUniqueFourCharCode(t *testing.T) {
	m := New(nil)
	r, err := m.Create(game.ModePVP, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Code) != 4 {
		t.Fatalf("expected a 4-character room code, got %q", r.Code)
	}
	if r.Mode != game.ModePVP || r.IsPrivate {
		t.Fatalf("expected public PVP room, got mode=%v private=%v", r.Mode, r.IsPrivate)
	}
	r.Stop()
}

func TestJoinByCode_FindsTheCreatedRoom(t *testing.T) {
	m := New(nil)
	created, _ := m.Create(game.ModePVE, false)

	found, err := m.JoinByCode(created.Code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != created {
		t.Fatal("expected JoinByCode to return the same room instance")
	}
	created.Stop()
}

func TestJoinByCode_UnknownCodeReturnsRoomNotFound(t *testing.T) {
	m := New(nil)
	_, err := m.JoinByCode("ZZZZ")
	me, ok := err.(*MatchError)
	if !ok || me.Code != ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinByCode_LockedRoomReturnsRoomLocked(t *testing.T) {
	m := New(nil)
	r, _ := m.Create(game.ModePVP, false)
	r.Join("", &stubConn{})
	r.Join("", &stubConn{}) // second join advances to COUNTDOWN, locking the room

	_, err := m.JoinByCode(r.Code)
	me, ok := err.(*MatchError)
	if !ok || me.Code != ErrRoomLocked {
		t.Fatalf("expected ErrRoomLocked, got %v", err)
	}
	r.Stop()
}

func TestQuickMatch_ReturnsAnExistingOpenRoomOfTheSameMode(t *testing.T) {
	m := New(nil)
	existing, _ := m.Create(game.ModePVE, false)

	got, err := m.QuickMatch(game.ModePVE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != existing {
		t.Fatal("expected QuickMatch to reuse the existing open room")
	}
	existing.Stop()
}

func TestQuickMatch_SkipsPrivateAndWrongModeRooms(t *testing.T) {
	m := New(nil)
	private, _ := m.Create(game.ModePVE, true)
	wrongMode, _ := m.Create(game.ModePVP, false)

	got, err := m.QuickMatch(game.ModePVE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == private || got == wrongMode {
		t.Fatal("expected QuickMatch to skip the private room and the wrong-mode room")
	}
	private.Stop()
	wrongMode.Stop()
	got.Stop()
}

func TestQuickMatch_CreatesANewRoomWhenNoneAreOpen(t *testing.T) {
	m := New(nil)
	got, err := m.QuickMatch(game.ModePVP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a freshly created room")
	}
	got.Stop()
}

func TestQuickMatch_SkipsALockedRoomOfTheSameMode(t *testing.T) {
	m := New(nil)
	locked, _ := m.Create(game.ModePVP, false)
	locked.Join("", &stubConn{})
	locked.Join("", &stubConn{})

	got, err := m.QuickMatch(game.ModePVP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == locked {
		t.Fatal("expected QuickMatch not to return an already-locked room")
	}
	locked.Stop()
	got.Stop()
}

func TestGetStats_CountsRoomsAndPlayers(t *testing.T) {
	m := New(nil)
	r1, _ := m.Create(game.ModePVP, false)
	r1.Join("", &stubConn{})
	r2, _ := m.Create(game.ModePVE, false)
	r2.Join("", &stubConn{})
	r2.Join("", &stubConn{})

	stats := m.GetStats()
	if stats.TotalRooms != 2 {
		t.Fatalf("expected 2 rooms, got %d", stats.TotalRooms)
	}
	if stats.TotalPlayers != 3 {
		t.Fatalf("expected 3 total players, got %d", stats.TotalPlayers)
	}
	r1.Stop()
	r2.Stop()
}

func TestCleanupEmptyRooms_RemovesOnlyRoomsWithNoSessions(t *testing.T) {
	m := New(nil)
	empty, _ := m.Create(game.ModePVP, false)
	occupied, _ := m.Create(game.ModePVE, false)
	occupied.Join("", &stubConn{})

	removed := m.CleanupEmptyRooms()
	if removed != 1 {
		t.Fatalf("expected exactly 1 room removed, got %d", removed)
	}

	if _, err := m.JoinByCode(empty.Code); err == nil {
		t.Fatal("expected the emptied room's code to no longer resolve")
	}
	if _, err := m.JoinByCode(occupied.Code); err != nil {
		t.Fatalf("expected the occupied room to remain, got %v", err)
	}
	occupied.Stop()
}

// fillRoomsLocked pre-populates the registry with real (but un-started, so
// goroutine-free) rooms, bypassing newRoomLocked/Start so a capacity test
// doesn't spin up MaxRooms tick-worker goroutines.
func fillRoomsLocked(m *Matchmaker, n int, prefix string) {
	for i := 0; i < n; i++ {
		code := prefix + string(rune('A'+i%26)) + string(rune('a'+(i/26)%26))
		m.rooms[code] = room.NewRoom(code, game.ModePVP, true, nil, int64(i))
	}
}

func TestCreate_ServerFullRejectsAtMaxRooms(t *testing.T) {
	m := New(nil)
	fillRoomsLocked(m, MaxRooms, "c")

	_, err := m.Create(game.ModePVP, false)
	me, ok := err.(*MatchError)
	if !ok || me.Code != ErrServerFull {
		t.Fatalf("expected ErrServerFull once at MaxRooms capacity, got %v", err)
	}
}

func TestQuickMatch_ServerFullRejectsAtMaxRoomsWhenNoneOpen(t *testing.T) {
	m := New(nil)
	// IsPrivate=true on every filler room so QuickMatch's scan finds none
	// open and falls through to the capacity gate.
	fillRoomsLocked(m, MaxRooms, "q")

	_, err := m.QuickMatch(game.ModePVE)
	me, ok := err.(*MatchError)
	if !ok || me.Code != ErrServerFull {
		t.Fatalf("expected ErrServerFull once at MaxRooms capacity, got %v", err)
	}
}

type stubConn struct{}

func (stubConn) Send(data []byte) error { return nil }
func (stubConn) Close() error           { return nil }
