// Package main implements the Bombarena authoritative game server.
//
// Architecture Overview:
// - Uses WebSocket for real-time bidirectional communication with clients
// - Each room runs its own tick-worker goroutine at the nominal 60Hz rate
// - Matchmaking assigns clients to rooms by create/joinByCode/quickMatch
// - Prometheus exposes room/session/tick/combat counters at /metrics
//
// Connection Flow:
// 1. Client connects via WebSocket to /ws
// 2. Client sends create/joinByCode/quickMatch, server replies joinAccept
//    or a typed matchError
// 3. Client sends input/bombRequest each tick, server broadcasts a delta
//    snapshot at the same cadence (a full snapshot on join and on any tick
//    that changes the grid or items)
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/bombarena/server/config"
	"github.com/bombarena/server/internal/game"
	"github.com/bombarena/server/internal/matchmaker"
	"github.com/bombarena/server/internal/metrics"
	"github.com/bombarena/server/internal/network"
	"github.com/bombarena/server/internal/room"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.LoadServerConfig()
	levelCfgs := config.LoadLevels(cfg.LevelsPath)
	if err := config.ValidateLevels(levelCfgs); err != nil {
		log.Printf("level roster warning: %v", err)
	}
	levels := game.ParseLevels(levelCfgs)

	srv := NewGameServer(cfg, levels)

	log.Printf("=================================")
	log.Printf("  Bombarena Game Server")
	log.Printf("=================================")
	log.Printf("  Host: %s", cfg.Host)
	log.Printf("  Port: %d", cfg.Port)
	log.Printf("  Nominal tick: %.2fms", config.NominalTickMS)
	log.Printf("  Levels loaded: %d", len(levels))
	log.Printf("=================================")

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// GameServer wires the matchmaker, wire protocol, and websocket upgrader
// into an HTTP router (grounded on the teacher's GameServer/
// ClientConnection split in cmd/gameserver/main.go, rebuilt around chi
// instead of bare net/http.HandleFunc).
type GameServer struct {
	config     *config.ServerConfig
	matchmaker *matchmaker.Matchmaker
	protocol   *network.Protocol
	upgrader   websocket.Upgrader
}

// NewGameServer creates and initializes a new game server instance.
func NewGameServer(cfg *config.ServerConfig, levels []game.Level) *GameServer {
	return &GameServer{
		config:     cfg,
		matchmaker: matchmaker.New(levels),
		protocol:   network.NewProtocol(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.EnableCORS
			},
		},
	}
}

// Router assembles the chi mux: CORS, request logging, health/stats/
// metrics, and the websocket upgrade endpoint.
func (s *GameServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
		}))
	}

	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	r.Get("/online-stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())

	go s.cleanupLoop()

	return r
}

// cleanupLoop sweeps empty rooms every 30s (grounded on the teacher's
// background CleanupEmptyRooms ticker goroutine in Start()).
func (s *GameServer) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if removed := s.matchmaker.CleanupEmptyRooms(); removed > 0 {
			log.Printf("cleaned up %d empty rooms", removed)
		}
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *GameServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.matchmaker.GetStats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"rooms":%d,"players":%d}`, stats.TotalRooms, stats.TotalPlayers)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSConnectionsRejectedTotal.Inc()
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := newClientConnection(ws, s)
	log.Printf("new connection from %s", ws.RemoteAddr())

	go conn.writePump()
	go conn.readPump()
}

// ClientConnection is one connected client's websocket plumbing
// (grounded on the teacher's ClientConnection: buffered send channel,
// readPump/writePump goroutines, ping ticker). limiter throttles inbound
// message rate so one misbehaving client can't flood its room (§7 Error
// Handling, grounded on fight-club-go's per-connection
// golang.org/x/time/rate limiter).
type ClientConnection struct {
	ws      *websocket.Conn
	server  *GameServer
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	room     *room.Room
	playerID int
	joined   bool
}

func newClientConnection(ws *websocket.Conn, server *GameServer) *ClientConnection {
	return &ClientConnection{
		ws:      ws,
		server:  server,
		send:    make(chan []byte, config.OutboundQueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(config.MaxInputsPerTick*60), config.MaxInputsPerTick*4),
	}
}

// Send implements room.Connection. Non-blocking: a full buffer drops the
// message rather than stalling the room's broadcast loop.
func (c *ClientConnection) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("connection closed")
	default:
		return nil
	}
}

// Close implements room.Connection. Safe to call multiple times.
func (c *ClientConnection) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.ws.Close()
}

func (c *ClientConnection) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(time.Duration(config.PingIntervalMS) * time.Millisecond)
	defer ticker.Stop()
	defer c.cleanup()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *ClientConnection) readPump() {
	defer c.cleanup()

	readTimeout := time.Duration(config.PingIntervalMS) * time.Duration(config.MaxMissedPings) * time.Millisecond
	c.ws.SetReadLimit(512)
	c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read error: %v", err)
			}
			return
		}

		if !c.limiter.Allow() {
			continue // drop: client is exceeding its input rate
		}

		c.handleMessage(data)
	}
}

// handleMessage dispatches a decoded client message by its leading
// type byte (§6 External Interfaces).
func (c *ClientConnection) handleMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	proto := c.server.protocol

	switch data[0] {
	case network.MsgTypeCreate:
		msg, err := proto.DecodeCreate(data)
		if err != nil {
			return
		}
		c.handleMatch(func() (*room.Room, error) {
			return c.server.matchmaker.Create(wireToMode(msg.Mode), msg.IsPrivate)
		})

	case network.MsgTypeJoinByCode:
		msg, err := proto.DecodeJoinByCode(data)
		if err != nil {
			return
		}
		c.handleMatch(func() (*room.Room, error) {
			return c.server.matchmaker.JoinByCode(msg.Code)
		})

	case network.MsgTypeQuickMatch:
		msg, err := proto.DecodeQuickMatch(data)
		if err != nil {
			return
		}
		c.handleMatch(func() (*room.Room, error) {
			return c.server.matchmaker.QuickMatch(wireToMode(msg.Mode))
		})

	case network.MsgTypeInput:
		if c.room == nil {
			return
		}
		msg, err := proto.DecodeInput(data)
		if err != nil {
			return
		}
		c.room.HandleInput(c.playerID, game.PlayerInput{
			Up:    msg.Flags&network.InputUp != 0,
			Down:  msg.Flags&network.InputDown != 0,
			Left:  msg.Flags&network.InputLeft != 0,
			Right: msg.Flags&network.InputRight != 0,
		})

	case network.MsgTypeBombRequest:
		if c.room != nil {
			c.room.HandleBombRequest(c.playerID)
		}

	case network.MsgTypeLeave:
		c.handleExplicitLeave()

	case network.MsgTypePing:
		if len(data) >= 9 {
			var ts uint64
			for i := 0; i < 8; i++ {
				ts |= uint64(data[1+i]) << (i * 8)
			}
			c.Send(proto.EncodePong(ts))
		}
	}
}

// handleMatch runs a matchmaker operation and joins the resulting room,
// or replies with a typed matchError (§4.6, §7 Error Handling).
func (c *ClientConnection) handleMatch(op func() (*room.Room, error)) {
	if c.joined {
		return
	}

	r, err := op()
	if err != nil {
		if me, ok := err.(*matchmaker.MatchError); ok {
			metrics.RecordMatchError(matchErrorReason(me.Code))
			c.Send(c.server.protocol.EncodeMatchError(wireErrCode(me.Code), me.Message))
		}
		return
	}

	playerID, _, ok := r.Join("", c)
	if !ok {
		metrics.WSConnectionsRejectedTotal.Inc()
		c.Send(c.server.protocol.EncodeMatchError(network.ErrCodeRoomLocked, "room is full or already started"))
		return
	}

	c.room = r
	c.playerID = playerID
	c.joined = true

	c.Send(c.server.protocol.EncodeJoinAccept(network.JoinAcceptMessage{
		PlayerID:     uint8(playerID),
		RoomCode:     r.Code,
		IsPrivate:    r.IsPrivate,
		Mode:         wireMode(r.Mode),
		SessionToken: r.SessionToken(playerID),
	}))

	r.SendFullSnapshot(playerID)
}

// handleExplicitLeave handles a client-sent `leave` message: the slot is
// freed outright, with no reconnect grace window (§4.6: a grace window is
// for an abnormal transport close, not an explicit leave).
func (c *ClientConnection) handleExplicitLeave() {
	if c.room != nil {
		c.room.Leave(c.playerID)
		c.room = nil
		c.joined = false
	}
}

// handleLeave handles an abnormal transport close (pump exit from a read
// error, write error, or unexpected close code): the session starts its
// reconnect grace window rather than being freed immediately (§4.6).
func (c *ClientConnection) handleLeave() {
	if c.room != nil {
		c.room.Disconnect(c.playerID)
		c.room = nil
		c.joined = false
	}
}

func (c *ClientConnection) cleanup() {
	c.handleLeave()
	c.Close()
	log.Printf("connection closed: %s", c.RemoteAddr())
}

func wireToMode(m uint8) game.GameMode {
	if m == network.WireModePVE {
		return game.ModePVE
	}
	return game.ModePVP
}

func wireMode(m game.GameMode) uint8 {
	if m == game.ModePVE {
		return network.WireModePVE
	}
	return network.WireModePVP
}

func wireErrCode(c matchmaker.ErrCode) uint8 {
	switch c {
	case matchmaker.ErrRoomNotFound:
		return network.ErrCodeRoomNotFound
	case matchmaker.ErrRoomLocked:
		return network.ErrCodeRoomLocked
	case matchmaker.ErrRoomNotOpen:
		return network.ErrCodeRoomNotOpen
	default:
		return network.ErrCodeServerFull
	}
}

func matchErrorReason(c matchmaker.ErrCode) string {
	switch c {
	case matchmaker.ErrRoomNotFound:
		return "not_found"
	case matchmaker.ErrRoomLocked:
		return "locked"
	case matchmaker.ErrRoomNotOpen:
		return "not_open"
	default:
		return "server_full"
	}
}
