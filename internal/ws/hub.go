// Package ws fans engine events out to websocket sessions and routes client
// commands back into the engine.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bx-rounds/internal/casino"
	"bx-rounds/internal/chat"
	"bx-rounds/internal/logger"
	"bx-rounds/internal/monitoring"
)

// Inbound command types.
const (
	CmdJoinRound      = "join_round"
	CmdCashout        = "cashout"
	CmdSendChat       = "send_chat_message"
	CmdGetChatHistory = "get_chat_history"
)

// Outbound chat event types; round events use the casino names.
const (
	EvChatMessage = "chat_message"
	EvChatHistory = "chat_history"
)

const (
	defaultSendBuffer = 64
	commandTimeout    = 5 * time.Second
)

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Engine is the round engine a hub routes commands to.
type Engine interface {
	Game() casino.Game
	Join(ctx context.Context, req casino.JoinRequest) (casino.JoinAck, error)
	Cashout(ctx context.Context, userID int64) (casino.CashoutAck, error)
	Snapshot() casino.RoundUpdate
}

type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type chatRequest struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Session is one connected client. The user id is bound by the first
// command that names one.
type Session struct {
	conn   Conn
	send   chan []byte
	userID atomic.Int64
	closed chan struct{}
	once   sync.Once
}

func (s *Session) UserID() int64 { return s.userID.Load() }

func (s *Session) close() {
	s.once.Do(func() { close(s.closed) })
}

type Hub struct {
	name       string
	engine     Engine
	chat       *chat.Room
	sendBuffer int
	log        *zap.Logger

	sessions map[*Session]struct{}
	mu       sync.RWMutex
}

func NewHub(name string, room *chat.Room, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Hub{
		name:       name,
		chat:       room,
		sendBuffer: sendBuffer,
		log:        logger.Log.With(zap.String("hub", name)),
		sessions:   make(map[*Session]struct{}),
	}
}

// Bind attaches the engine. The engine is created with the hub as its
// broadcaster, so the two are joined after construction.
func (h *Hub) Bind(e Engine) {
	h.engine = e
}

func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Broadcast sends one frame to every session.
func (h *Hub) Broadcast(event string, data interface{}) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions {
		h.enqueue(s, frame)
	}
}

// SendToUser sends one frame to every session bound to userID.
func (h *Hub) SendToUser(userID int64, event string, data interface{}) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions {
		if s.UserID() == userID {
			h.enqueue(s, frame)
		}
	}
}

func (h *Hub) send(s *Session, event string, data interface{}) {
	if frame, ok := h.encode(event, data); ok {
		h.enqueue(s, frame)
	}
}

func (h *Hub) encode(event string, data interface{}) ([]byte, bool) {
	frame, err := json.Marshal(Outbound{Type: event, Data: data})
	if err != nil {
		h.log.Error("encode frame", zap.String("event", event), zap.Error(err))
		return nil, false
	}

	return frame, true
}

// enqueue never blocks the caller; a full session queue drops the frame.
func (h *Hub) enqueue(s *Session, frame []byte) {
	select {
	case <-s.closed:
		return
	default:
	}

	select {
	case s.send <- frame:
	default:
		monitoring.WSDropped.WithLabelValues(h.name).Inc()
		h.log.Warn("ws session queue full", zap.Int64("userID", s.UserID()))
	}
}

func (h *Hub) register(conn Conn) *Session {
	s := &Session{
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		closed: make(chan struct{}),
	}

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	monitoring.WSSessions.WithLabelValues(h.name).Inc()

	return s
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	h.mu.Unlock()

	if ok {
		monitoring.WSSessions.WithLabelValues(h.name).Dec()
	}

	s.close()
}

func (h *Hub) writeLoop(s *Session) {
	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Debug("ws write failed", zap.Error(err))
				s.close()
				s.conn.Close()

				return
			}
		case <-s.closed:
			return
		}
	}
}

// Serve runs one connection until it closes. Disconnecting never cancels a
// bet the engine already admitted.
func (h *Hub) Serve(conn Conn) {
	s := h.register(conn)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		h.writeLoop(s)
	}()

	defer func() {
		h.unregister(s)
		wg.Wait()
		conn.Close()
	}()

	if h.engine != nil {
		h.send(s, casino.EvRoundUpdate, h.engine.Snapshot())
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		h.dispatch(s, msg)
	}
}

// Handler adapts Serve to the gofiber websocket upgrade.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		h.Serve(c)
	}
}

func (h *Hub) dispatch(s *Session, msg []byte) {
	var in Inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		h.reject(s, casino.ErrInvalidPayload)
		return
	}

	switch in.Type {
	case CmdJoinRound:
		h.handleJoin(s, in.Data)
	case CmdCashout:
		h.handleCashout(s, in.Data)
	case CmdSendChat:
		h.handleChat(s, in.Data)
	case CmdGetChatHistory:
		h.send(s, EvChatHistory, h.chat.History())
	default:
		h.reject(s, casino.ErrInvalidPayload)
	}
}

// joinPayload tells an absent bet apart from a zero one.
type joinPayload struct {
	casino.JoinRequest
	Bet *decimal.Decimal `json:"bet"`
}

func (h *Hub) handleJoin(s *Session, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Bet == nil {
		h.reject(s, casino.ErrInvalidPayload)
		return
	}

	req := p.JoinRequest
	req.Bet = *p.Bet

	h.bindUser(s, req.UserID)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := h.engine.Join(ctx, req); err != nil {
		h.reject(s, err)
	}
}

func (h *Hub) handleCashout(s *Session, data json.RawMessage) {
	var req casino.CashoutRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.reject(s, casino.ErrInvalidPayload)
		return
	}

	h.bindUser(s, req.UserID)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := h.engine.Cashout(ctx, req.UserID); err != nil {
		h.reject(s, err)
	}
}

func (h *Hub) handleChat(s *Session, data json.RawMessage) {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.reject(s, casino.ErrInvalidPayload)
		return
	}

	msg, err := h.chat.Post(req.UserID, req.Username, req.Message)
	if err != nil {
		h.reject(s, casino.ErrInvalidPayload)
		return
	}

	h.Broadcast(EvChatMessage, msg)
}

func (h *Hub) bindUser(s *Session, userID int64) {
	if userID > 0 {
		s.userID.Store(userID)
	}
}

// reject answers the originating session only.
func (h *Hub) reject(s *Session, err error) {
	ev := casino.AsEvent(err)

	var ce *casino.Error
	if !errors.As(err, &ce) {
		h.log.Error("command failed", zap.Int64("userID", s.UserID()), zap.Error(err))
	}

	monitoring.Rejections.WithLabelValues(h.name, string(ev.Code)).Inc()
	h.send(s, casino.EvError, ev)
}
