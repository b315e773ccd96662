package network

// Message types, client -> server.
const (
	MsgTypeCreate      uint8 = 0x01
	MsgTypeJoinByCode  uint8 = 0x02
	MsgTypeQuickMatch  uint8 = 0x03
	MsgTypeReady       uint8 = 0x04
	MsgTypeInput       uint8 = 0x05
	MsgTypeBombRequest uint8 = 0x06
	MsgTypeLeave       uint8 = 0x07
	MsgTypePing        uint8 = 0x08
)

// Message types, server -> client.
const (
	MsgTypeJoinAccept    uint8 = 0x10
	MsgTypeMatchError    uint8 = 0x11
	MsgTypeSnapshotFull  uint8 = 0x12
	MsgTypeSnapshotDelta uint8 = 0x13
	MsgTypePong          uint8 = 0x14
)

// Input bit flags packed into one byte (§6 External Interfaces).
const (
	InputUp    uint8 = 1 << 0
	InputDown  uint8 = 1 << 1
	InputLeft  uint8 = 1 << 2
	InputRight uint8 = 1 << 3
)

// Wire GameMode values.
const (
	WireModePVP uint8 = 0
	WireModePVE uint8 = 1
)

// MatchError codes (§7 Error Handling: matchmaking failure surfaces as a
// typed error on the join reply).
const (
	ErrCodeRoomNotFound uint8 = 1
	ErrCodeRoomLocked   uint8 = 2
	ErrCodeRoomNotOpen  uint8 = 3
	ErrCodeServerFull   uint8 = 4
)

// CreateMessage requests a fresh room (§4.6 create).
type CreateMessage struct {
	Mode      uint8
	IsPrivate bool
}

// JoinByCodeMessage requests joining an existing room by its code.
type JoinByCodeMessage struct {
	Code string
}

// QuickMatchMessage requests the first open room of a mode, or a new one.
type QuickMatchMessage struct {
	Mode uint8
}

// InputMessage is one tick's worth of decoded movement input.
type InputMessage struct {
	Flags uint8
}

// JoinAcceptMessage is the server's reply to a successful
// create/joinByCode/quickMatch (§6: session token for reconnect).
type JoinAcceptMessage struct {
	PlayerID     uint8
	RoomCode     string
	IsPrivate    bool
	Mode         uint8
	SessionToken string
}

// MatchErrorMessage reports a typed matchmaking failure (§7).
type MatchErrorMessage struct {
	Code    uint8
	Message string
}

// PlayerRecord is one player's wire-visible state (§6 wire schema).
type PlayerRecord struct {
	ID                uint8
	X, Y              float64
	State             uint8
	Facing            uint8
	Speed             float64
	BombRange         uint8
	MaxBombs          uint8
	ActiveBombs       uint8
	Score             uint32
	CanKick           bool
	HasShield         bool
	GhostTimerMS      uint32
	TrappedTimerMS    uint32
	InvincibleTimerMS uint32
}

// BombRecord is one live bomb's wire-visible state.
type BombRecord struct {
	ID      uint32
	OwnerID uint8
	GridX   uint8
	GridY   uint8
	X, Y    float64
	VX, VY  float64
	Range   uint8
	TimerMS uint32
}

// ExplosionRecord is one live explosion cell's wire-visible state.
type ExplosionRecord struct {
	ID      uint32
	OwnerID uint8
	GridX   uint8
	GridY   uint8
	TimerMS uint32
}

// EnemyRecord is one live enemy's wire-visible state.
type EnemyRecord struct {
	ID        uint32
	EnemyType uint8
	X, Y      float64
	Facing    uint8
	Speed     float64
	HP        uint8
	MaxHP     uint8
}

// ItemRecord is one collectible item's wire-visible state.
type ItemRecord struct {
	GridX    uint8
	GridY    uint8
	ItemType uint8
}

// RoomSnapshot is the decoded form of a full or delta snapshot (§6 wire
// schema: "phase, gameMode, roomCode, isPrivate, countdown, timeLeft,
// level, winner, bossSpawned, ... grid ..., items, players, bombs,
// explosions, enemies"). GridW/GridH/Grid/Items are written only by
// EncodeSnapshotFull; EncodeSnapshotDelta omits them. The room sends a
// full snapshot on join and on any tick that changes the grid or the
// item list, and a delta on every other tick.
type RoomSnapshot struct {
	Phase       uint8
	Mode        uint8
	RoomCode    string
	IsPrivate   bool
	Countdown   uint8
	TimeLeft    uint16
	Level       uint8
	Winner      uint8
	BossSpawned bool

	GridW, GridH uint8
	Grid         []uint8
	Items        []ItemRecord

	Players    []PlayerRecord
	Bombs      []BombRecord
	Explosions []ExplosionRecord
	Enemies    []EnemyRecord
}
