// Package config is the single source of truth for grid dimensions, timing
// constants, power-up caps, and server configuration.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Grid dimensions (§3 Data Model).
const (
	GridWidth  = 15
	GridHeight = 13
	TileSize   = 48 // px

	PlayerSize      = 36 // px, hitbox square side
	HitboxEpsilon   = 0.1
	CornerTolerance = 12.0 // px
)

// Tick model (§4.2).
const (
	NominalTickMS        = 1000.0 / 60.0 // ~16.67ms
	BombFuseMS           = 3000.0
	ExplosionTTLMS       = 600.0
	TrappedMS            = 5000.0
	HurtInvincibleMS     = 1000.0
	RescueInvincibleMS   = 2000.0
	GhostDurationMS      = 10000.0
	DodgeThresholdMS     = 2000.0
	EnemyHitInvincibleMS = 500.0
)

// Power-up caps (§4.2).
const (
	MaxBombRange = 8
	MaxBombs     = 8
	MaxSpeed     = 5.0 // px/tick, normative relative ordering only
	BaseSpeed    = 2.0
	KickSpeed    = 6.0 // px/tick imparted on kick
)

// Enemy base speeds (px/tick @ nominal tick). Absolute numbers are an
// implementation choice; only the relative ordering is normative:
// TANK < BALLOON < FROG ≈ MINION < GHOST < BOSS_MECHA < BOSS_SLIME.
const (
	SpeedTank       = 0.7
	SpeedBalloon    = 1.0
	SpeedFrog       = 1.3
	SpeedMinion     = 1.35
	SpeedGhostEnemy = 1.6
	SpeedBossMecha  = 1.9
	SpeedBossSlime  = 2.2
)

// Enemy hit points.
const (
	HPDefault = 1
	HPTank    = 2
	HPBoss    = 6
)

// Boss behavior cadences.
const (
	BossSlimeSpawnCycleMS    = 4000.0
	BossMechaActionCooldownMS = 5000.0
	BossMechaFastReevalMS    = 50.0
	BossMechaBombRange       = 5
	BossMechaBombFuseMS      = 4000.0
	MaxTotalEnemies          = 8
)

// Room lifecycle.
const (
	CountdownSeconds = 3
	ReconnectGraceMS = 15000.0
	RoomCodeLength   = 4
	RoomCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ" // unambiguous, no 0/O/1/I
)

// Networking defaults.
const (
	DefaultPort       = 2567
	PingIntervalMS    = 3000.0
	MaxMissedPings    = 3
	InboundQueueSize  = 64
	OutboundQueueSize = 64
	MaxInputsPerTick  = 3
)

// Room names used for public matchmaking (§6 Room naming convention).
const (
	RoomNamePVP = "bubble_pvp"
	RoomNamePVE = "bubble_pve"
)

// ServerConfig carries process-wide server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	EnableCORS   bool
	LevelsPath   string // optional path to a YAML level roster override
	EmptyRoomTTL time.Duration
	DevMonitor   bool
}

// DefaultServerConfig returns the built-in defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         DefaultPort,
		EnableCORS:   true,
		EmptyRoomTTL: 30 * time.Second,
		DevMonitor:   false,
	}
}

// LoadServerConfig loads a .env file if present (ignored if absent, dev
// convenience only) and overlays environment variable overrides onto the
// defaults.
func LoadServerConfig() *ServerConfig {
	_ = godotenv.Load()

	cfg := DefaultServerConfig()

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if cors := os.Getenv("ENABLE_CORS"); cors == "false" {
		cfg.EnableCORS = false
	}
	if path := os.Getenv("LEVELS_PATH"); path != "" {
		cfg.LevelsPath = path
	}
	if dev := os.Getenv("DEV_MONITOR"); dev == "true" {
		cfg.DevMonitor = true
	}

	return cfg
}
