// Package ledger holds player balances. It is the single source of truth
// for funds: balances never go negative and every change is journaled.
package ledger

import (
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type Kind string

const (
	KindDebit  Kind = "debit"
	KindCredit Kind = "credit"
)

// Entry is one applied balance change.
type Entry struct {
	Ref          string
	UserID       int64
	Kind         Kind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Reason       string
	At           time.Time
}

// Journal receives every applied entry, after the shard lock is released.
type Journal interface {
	Record(e Entry)
}

type shard struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal
}

type Service struct {
	shards   []*shard
	seed     maphash.Seed
	starting decimal.Decimal
	journal  Journal
	now      func() time.Time
}

type Option func(*Service)

func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithStartingBalance provisions unknown users with amount on first touch.
func WithStartingBalance(amount decimal.Decimal) Option {
	return func(s *Service) { s.starting = amount }
}

func WithShards(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		shards:   newShards(32),
		seed:     maphash.MakeSeed(),
		starting: decimal.Zero,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func newShards(n int) []*shard {
	out := make([]*shard, n)
	for i := range out {
		out[i] = &shard{balances: make(map[int64]decimal.Decimal)}
	}

	return out
}

func (s *Service) shardFor(userID int64) *shard {
	var h maphash.Hash
	h.SetSeed(s.seed)

	var b [8]byte
	for i := range b {
		b[i] = byte(userID >> (8 * i))
	}

	_, _ = h.Write(b[:])

	return s.shards[h.Sum64()%uint64(len(s.shards))]
}

// balanceLocked must be called with sh.mu held.
func (s *Service) balanceLocked(sh *shard, userID int64) decimal.Decimal {
	bal, ok := sh.balances[userID]
	if !ok {
		bal = s.starting
		sh.balances[userID] = bal
	}

	return bal
}

func (s *Service) Balance(userID int64) decimal.Decimal {
	sh := s.shardFor(userID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	return s.balanceLocked(sh, userID)
}

// Debit removes amount from the user's balance. It fails, leaving the balance
// untouched, if the result would be negative.
func (s *Service) Debit(userID int64, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	sh := s.shardFor(userID)

	sh.mu.Lock()

	bal := s.balanceLocked(sh, userID)

	next := bal.Sub(amount)
	if next.IsNegative() {
		sh.mu.Unlock()

		return bal, fmt.Errorf("debit %s from %s: %w", amount, bal, ErrInsufficientFunds)
	}

	sh.balances[userID] = next
	sh.mu.Unlock()

	s.record(userID, KindDebit, amount, next, reason)

	return next, nil
}

// Credit adds amount to the user's balance. A zero amount is a no-op that
// still reports the current balance.
func (s *Service) Credit(userID int64, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	sh := s.shardFor(userID)

	sh.mu.Lock()

	next := s.balanceLocked(sh, userID).Add(amount)
	sh.balances[userID] = next
	sh.mu.Unlock()

	if amount.IsPositive() {
		s.record(userID, KindCredit, amount, next, reason)
	}

	return next, nil
}

func (s *Service) record(userID int64, kind Kind, amount, after decimal.Decimal, reason string) {
	if s.journal == nil {
		return
	}

	s.journal.Record(Entry{
		Ref:          uuid.New().String(),
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: after,
		Reason:       reason,
		At:           s.now(),
	})
}
