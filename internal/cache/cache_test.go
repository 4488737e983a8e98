package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-rounds/internal/fairness"
)

func unreachable() *Mirror {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestMirrorReportsUnavailableRedis(t *testing.T) {
	m := unreachable()
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, m.Ping(ctx))

	err := m.Committed(ctx, fairness.Commitment{ServerSeedHash: "h", CommittedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror commitment")

	_, err = m.Lookup(ctx, "h")
	require.Error(t, err)
	assert.NotErrorIs(t, err, fairness.ErrNotRevealed)

	_, err = m.Seed(ctx, "h")
	require.Error(t, err)
}
