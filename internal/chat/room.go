// Package chat keeps the in-memory chat history shared by a game namespace.
package chat

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bx-rounds/internal/ring"
)

const (
	DefaultCapacity  = 50
	MaxMessageLength = 200
	maxUsernameLen   = 32
)

var ErrInvalidMessage = errors.New("invalid chat message")

type Message struct {
	ID        string `json:"id"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Room struct {
	history *ring.Buffer[Message]
	now     func() time.Time
}

func NewRoom(capacity int) *Room {
	return &Room{
		history: ring.New[Message](capacity),
		now:     time.Now,
	}
}

// Post validates and stores a message, returning the stored copy.
func (r *Room) Post(userID int64, username, text string) (Message, error) {
	username = strings.TrimSpace(username)
	text = strings.TrimSpace(text)

	switch {
	case userID <= 0:
		return Message{}, ErrInvalidMessage
	case username == "" || utf8.RuneCountInString(username) > maxUsernameLen:
		return Message{}, ErrInvalidMessage
	case text == "" || utf8.RuneCountInString(text) > MaxMessageLength:
		return Message{}, ErrInvalidMessage
	}

	m := Message{
		ID:        uuid.New().String(),
		UserID:    userID,
		Username:  username,
		Message:   text,
		Timestamp: r.now().UnixMilli(),
	}

	r.history.Push(m)

	return m, nil
}

// History returns stored messages, oldest first.
func (r *Room) History() []Message {
	return r.history.Items()
}
