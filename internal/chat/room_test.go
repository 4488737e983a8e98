package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostValidation(t *testing.T) {
	tests := []struct {
		name     string
		userID   int64
		username string
		text     string
		wantErr  bool
	}{
		{name: "ok", userID: 1, username: "alice", text: "hello"},
		{name: "trimmed", userID: 1, username: " bob ", text: "  hi  "},
		{name: "max_length", userID: 1, username: "c", text: strings.Repeat("é", MaxMessageLength)},
		{name: "too_long", userID: 1, username: "c", text: strings.Repeat("a", MaxMessageLength+1), wantErr: true},
		{name: "blank", userID: 1, username: "c", text: "   ", wantErr: true},
		{name: "no_user", userID: 0, username: "c", text: "x", wantErr: true},
		{name: "no_username", userID: 1, username: "", text: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoom(DefaultCapacity)

			m, err := r.Post(tt.userID, tt.username, tt.text)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMessage)
				assert.Empty(t, r.History())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.text), m.Message)
			assert.NotEmpty(t, m.ID)
			assert.Len(t, r.History(), 1)
		})
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	r := NewRoom(DefaultCapacity)

	for i := 0; i < DefaultCapacity+5; i++ {
		_, err := r.Post(1, "alice", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	h := r.History()
	require.Len(t, h, DefaultCapacity)
	assert.Equal(t, "msg 5", h[0].Message)
	assert.Equal(t, fmt.Sprintf("msg %d", DefaultCapacity+4), h[len(h)-1].Message)
}
