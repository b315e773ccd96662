package network

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Protocol handles binary encoding/decoding of the wire contract (§6
// External Interfaces). Positions and speeds are fixed-point, scaled by
// 100 into an int32/int16, matching the teacher's scaled-integer
// convention for compact floats on the wire.
type Protocol struct{}

func NewProtocol() *Protocol {
	return &Protocol{}
}

func encodeFixed32(v float64) int32 { return int32(v * 100) }
func decodeFixed32(v int32) float64 { return float64(v) / 100 }

func putBool(buf []byte, i int, v bool) {
	if v {
		buf[i] = 1
	} else {
		buf[i] = 0
	}
}

// DecodeCreate decodes a create-room request.
func (p *Protocol) DecodeCreate(data []byte) (*CreateMessage, error) {
	if len(data) < 3 || data[0] != MsgTypeCreate {
		return nil, ErrInvalidMessage
	}
	return &CreateMessage{Mode: data[1], IsPrivate: data[2] != 0}, nil
}

// DecodeJoinByCode decodes a join-by-code request.
func (p *Protocol) DecodeJoinByCode(data []byte) (*JoinByCodeMessage, error) {
	if len(data) < 2 || data[0] != MsgTypeJoinByCode {
		return nil, ErrInvalidMessage
	}
	codeLen := int(data[1])
	if len(data) < 2+codeLen {
		return nil, ErrBufferTooSmall
	}
	return &JoinByCodeMessage{Code: string(data[2 : 2+codeLen])}, nil
}

// DecodeQuickMatch decodes a quick-match request.
func (p *Protocol) DecodeQuickMatch(data []byte) (*QuickMatchMessage, error) {
	if len(data) < 2 || data[0] != MsgTypeQuickMatch {
		return nil, ErrInvalidMessage
	}
	return &QuickMatchMessage{Mode: data[1]}, nil
}

// DecodeInput decodes a client movement-input message (2 bytes: type,
// flags).
func (p *Protocol) DecodeInput(data []byte) (*InputMessage, error) {
	if len(data) < 2 || data[0] != MsgTypeInput {
		return nil, ErrInvalidMessage
	}
	return &InputMessage{Flags: data[1]}, nil
}

// EncodeJoinAccept encodes a successful matchmaking reply (§6: session
// token carried for reconnect-with-grace-window).
func (p *Protocol) EncodeJoinAccept(msg JoinAcceptMessage) []byte {
	codeBytes := []byte(msg.RoomCode)
	tokenBytes := []byte(msg.SessionToken)

	buf := make([]byte, 6+len(codeBytes)+len(tokenBytes))
	buf[0] = MsgTypeJoinAccept
	buf[1] = msg.PlayerID
	putBool(buf, 2, msg.IsPrivate)
	buf[3] = msg.Mode
	buf[4] = uint8(len(codeBytes))
	offset := 5
	copy(buf[offset:], codeBytes)
	offset += len(codeBytes)
	buf[offset] = uint8(len(tokenBytes))
	offset++
	copy(buf[offset:], tokenBytes)

	return buf
}

// EncodeMatchError encodes a typed matchmaking failure (§7).
func (p *Protocol) EncodeMatchError(code uint8, message string) []byte {
	msgBytes := []byte(message)
	if len(msgBytes) > 255 {
		msgBytes = msgBytes[:255]
	}
	buf := make([]byte, 3+len(msgBytes))
	buf[0] = MsgTypeMatchError
	buf[1] = code
	buf[2] = uint8(len(msgBytes))
	copy(buf[3:], msgBytes)
	return buf
}

// EncodePong mirrors a client ping's timestamp back.
func (p *Protocol) EncodePong(timestamp uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = MsgTypePong
	binary.LittleEndian.PutUint64(buf[1:9], timestamp)
	return buf
}

// EncodeSnapshotFull encodes a full room state: static grid/items plus
// every dynamic field (§6 wire schema).
func (p *Protocol) EncodeSnapshotFull(s RoomSnapshot) []byte {
	return p.encodeSnapshot(MsgTypeSnapshotFull, s, true)
}

// EncodeSnapshotDelta encodes a dynamic-only room state, omitting the
// grid and item layout that a client already has from the last full
// snapshot (§6: "full on join, deltas thereafter").
func (p *Protocol) EncodeSnapshotDelta(s RoomSnapshot) []byte {
	return p.encodeSnapshot(MsgTypeSnapshotDelta, s, false)
}

func (p *Protocol) encodeSnapshot(msgType uint8, s RoomSnapshot, includeStatic bool) []byte {
	var buf []byte
	buf = append(buf, msgType)
	buf = append(buf, s.Phase, s.Mode)

	codeBytes := []byte(s.RoomCode)
	buf = append(buf, uint8(len(codeBytes)))
	buf = append(buf, codeBytes...)

	var flagByte uint8
	putFlagBool(&flagByte, 0, s.IsPrivate)
	putFlagBool(&flagByte, 1, s.BossSpawned)
	buf = append(buf, flagByte)

	buf = append(buf, s.Countdown)
	buf = appendUint16(buf, s.TimeLeft)
	buf = append(buf, s.Level, s.Winner)

	if includeStatic {
		buf = append(buf, s.GridW, s.GridH)
		buf = appendUint16(buf, uint16(len(s.Grid)))
		buf = append(buf, s.Grid...)

		buf = appendUint16(buf, uint16(len(s.Items)))
		for _, it := range s.Items {
			buf = append(buf, it.GridX, it.GridY, it.ItemType)
		}
	}

	buf = append(buf, uint8(len(s.Players)))
	for _, pl := range s.Players {
		buf = p.appendPlayerRecord(buf, pl)
	}

	buf = appendUint16(buf, uint16(len(s.Bombs)))
	for _, b := range s.Bombs {
		buf = p.appendBombRecord(buf, b)
	}

	buf = appendUint16(buf, uint16(len(s.Explosions)))
	for _, e := range s.Explosions {
		buf = p.appendExplosionRecord(buf, e)
	}

	buf = appendUint16(buf, uint16(len(s.Enemies)))
	for _, e := range s.Enemies {
		buf = p.appendEnemyRecord(buf, e)
	}

	return buf
}

// playerRecordSize is ID(1) X(4) Y(4) State(1) Facing(1) Speed(2)
// BombRange(1) MaxBombs(1) ActiveBombs(1) Score(4) CanKick(1)
// HasShield(1) GhostTimerMS(4) TrappedTimerMS(4) InvincibleTimerMS(4).
const playerRecordSize = 34

func (p *Protocol) appendPlayerRecord(buf []byte, pl PlayerRecord) []byte {
	rec := make([]byte, playerRecordSize)
	rec[0] = pl.ID
	binary.LittleEndian.PutUint32(rec[1:5], uint32(encodeFixed32(pl.X)))
	binary.LittleEndian.PutUint32(rec[5:9], uint32(encodeFixed32(pl.Y)))
	rec[9] = pl.State
	rec[10] = pl.Facing
	binary.LittleEndian.PutUint16(rec[11:13], uint16(encodeFixed32(pl.Speed)))
	rec[13] = pl.BombRange
	rec[14] = pl.MaxBombs
	rec[15] = pl.ActiveBombs
	binary.LittleEndian.PutUint32(rec[16:20], pl.Score)
	putBool(rec, 20, pl.CanKick)
	putBool(rec, 21, pl.HasShield)
	binary.LittleEndian.PutUint32(rec[22:26], pl.GhostTimerMS)
	binary.LittleEndian.PutUint32(rec[26:30], pl.TrappedTimerMS)
	binary.LittleEndian.PutUint32(rec[30:34], pl.InvincibleTimerMS)
	return append(buf, rec...)
}

// bombRecordSize is ID(4) OwnerID(1) GridX(1) GridY(1) X(4) Y(4) VX(2)
// VY(2) Range(1) TimerMS(4).
const bombRecordSize = 24

func (p *Protocol) appendBombRecord(buf []byte, b BombRecord) []byte {
	rec := make([]byte, bombRecordSize)
	binary.LittleEndian.PutUint32(rec[0:4], b.ID)
	rec[4] = b.OwnerID
	rec[5] = b.GridX
	rec[6] = b.GridY
	binary.LittleEndian.PutUint32(rec[7:11], uint32(encodeFixed32(b.X)))
	binary.LittleEndian.PutUint32(rec[11:15], uint32(encodeFixed32(b.Y)))
	binary.LittleEndian.PutUint16(rec[15:17], uint16(int16(encodeFixed32(b.VX))))
	binary.LittleEndian.PutUint16(rec[17:19], uint16(int16(encodeFixed32(b.VY))))
	rec[19] = b.Range
	binary.LittleEndian.PutUint32(rec[20:24], b.TimerMS)
	return append(buf, rec...)
}

// explosionRecordSize is ID(4) OwnerID(1) GridX(1) GridY(1) TimerMS(4).
const explosionRecordSize = 11

func (p *Protocol) appendExplosionRecord(buf []byte, e ExplosionRecord) []byte {
	rec := make([]byte, explosionRecordSize)
	binary.LittleEndian.PutUint32(rec[0:4], e.ID)
	rec[4] = e.OwnerID
	rec[5] = e.GridX
	rec[6] = e.GridY
	binary.LittleEndian.PutUint32(rec[7:11], e.TimerMS)
	return append(buf, rec...)
}

// enemyRecordSize is ID(4) EnemyType(1) X(4) Y(4) Facing(1) Speed(2)
// HP(1) MaxHP(1).
const enemyRecordSize = 18

func (p *Protocol) appendEnemyRecord(buf []byte, e EnemyRecord) []byte {
	rec := make([]byte, enemyRecordSize)
	binary.LittleEndian.PutUint32(rec[0:4], e.ID)
	rec[4] = e.EnemyType
	binary.LittleEndian.PutUint32(rec[5:9], uint32(encodeFixed32(e.X)))
	binary.LittleEndian.PutUint32(rec[9:13], uint32(encodeFixed32(e.Y)))
	rec[13] = e.Facing
	binary.LittleEndian.PutUint16(rec[14:16], uint16(encodeFixed32(e.Speed)))
	rec[16] = e.HP
	rec[17] = e.MaxHP
	return append(buf, rec...)
}

func putFlagBool(flags *uint8, bit int, v bool) {
	if v {
		*flags |= 1 << uint(bit)
	}
}

func appendUint16(buf []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, v)
	return append(buf, tmp...)
}
