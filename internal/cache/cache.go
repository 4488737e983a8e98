// Package cache mirrors fairness commitments and reveals into redis so other
// processes can verify rounds without calling this server.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/logger"
)

const (
	KeyCurrent  = "fair:current"
	KeyRevealed = "fair:revealed"
	ChanFair    = "fair:events"

	writeTimeout = 2 * time.Second
)

type Mirror struct {
	rdb redis.UniversalClient
	log *zap.Logger
}

func New(addr string) *Mirror {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr: addr,
	}))
}

func NewWithClient(rdb redis.UniversalClient) *Mirror {
	return &Mirror{
		rdb: rdb,
		log: logger.Log.With(zap.String("component", "fair-mirror")),
	}
}

func (m *Mirror) Ping(ctx context.Context) error {
	if err := m.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	return nil
}

func (m *Mirror) Close() error {
	return m.rdb.Close()
}

// Subscribe mirrors every commitment and reveal published on bus.
func (m *Mirror) Subscribe(bus *event.Bus) {

	bus.Subscribe(event.EventSeedCommitted, func(payload interface{}) {
		c := payload.(fairness.Commitment)
		go m.write(func(ctx context.Context) error { return m.Committed(ctx, c) })
	})

	bus.Subscribe(event.EventSeedRevealed, func(payload interface{}) {
		r := payload.(fairness.Revealed)
		go m.write(func(ctx context.Context) error { return m.Revealed(ctx, r) })
	})
}

func (m *Mirror) write(fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		m.log.Warn("fairness mirror write failed", zap.Error(err))
	}
}

type notice struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (m *Mirror) Committed(ctx context.Context, c fairness.Commitment) error {
	msg, err := json.Marshal(notice{Type: "committed", Data: c})
	if err != nil {
		return err
	}

	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, KeyCurrent, c.ServerSeedHash, 0)
		p.Publish(ctx, ChanFair, msg)

		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror commitment: %w", err)
	}

	return nil
}

func (m *Mirror) Revealed(ctx context.Context, r fairness.Revealed) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	msg, err := json.Marshal(notice{Type: "revealed", Data: r})
	if err != nil {
		return err
	}

	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, KeyRevealed, r.ServerSeedHash, body)
		p.Publish(ctx, ChanFair, msg)

		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror reveal: %w", err)
	}

	return nil
}

// Lookup returns a mirrored reveal by hash.
func (m *Mirror) Lookup(ctx context.Context, hash string) (fairness.Revealed, error) {
	var r fairness.Revealed

	raw, err := m.rdb.HGet(ctx, KeyRevealed, hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, fairness.ErrNotRevealed
	}

	if err != nil {
		return r, fmt.Errorf("lookup reveal: %w", err)
	}

	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode reveal: %w", err)
	}

	return r, nil
}

// Seed is Lookup narrowed to the revealed seed.
func (m *Mirror) Seed(ctx context.Context, hash string) (string, error) {
	r, err := m.Lookup(ctx, hash)
	if err != nil {
		return "", err
	}

	return r.ServerSeed, nil
}
