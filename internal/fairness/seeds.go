// Package fairness implements the commit-reveal seed chain used to derive
// every outcome.
//
// A Generator always holds one committed epoch whose hash is public. Rounds
// pin the epoch that was current when they started; rotating commits a fresh
// epoch immediately but only reveals the old seed once no round pins it.
package fairness

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"bx-rounds/internal/ring"
)

var ErrNotRevealed = errors.New("seed not revealed")

const revealedHistory = 256

// Epoch is one server seed commitment.
type Epoch struct {
	seed        string
	Hash        string
	CommittedAt time.Time

	pins    int
	rounds  int
	retired bool
}

func (e *Epoch) Derive(clientSeed string, nonce uint64, counter int) []byte {
	return Derive(e.seed, clientSeed, nonce, counter)
}

// Revealed is a closed epoch whose seed is public.
type Revealed struct {
	ServerSeedHash string    `json:"serverSeedHash"`
	ServerSeed     string    `json:"serverSeed"`
	CommittedAt    time.Time `json:"committedAt"`
	RevealedAt     time.Time `json:"revealedAt"`
	Rounds         int       `json:"rounds"`
}

// Commitment is a published epoch hash.
type Commitment struct {
	ServerSeedHash string    `json:"serverSeedHash"`
	CommittedAt    time.Time `json:"committedAt"`
}

// Observer is told about every commitment and reveal.
type Observer interface {
	Committed(hash string, at time.Time)
	Revealed(r Revealed)
}

type Option func(*Generator)

// WithRotateEvery rotates the epoch automatically after n released rounds.
func WithRotateEvery(n int) Option {
	return func(g *Generator) { g.rotateEvery = n }
}

func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithEntropy replaces crypto/rand, used by tests for fixed seeds.
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) { g.entropy = r }
}

type Generator struct {
	mu       sync.Mutex
	current  *Epoch
	retired  []*Epoch
	revealed *ring.Buffer[Revealed]
	nonces   map[int64]uint64
	roundSeq uint64

	rotateEvery int
	observer    Observer
	now         func() time.Time
	entropy     io.Reader
}

func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		revealed: ring.New[Revealed](revealedHistory),
		nonces:   make(map[int64]uint64),
		now:      time.Now,
		entropy:  rand.Reader,
	}

	for _, opt := range opts {
		opt(g)
	}

	e, err := g.newEpoch()
	if err != nil {
		return nil, err
	}

	g.current = e
	g.notifyCommitted(e)

	return g, nil
}

func (g *Generator) newEpoch() (*Epoch, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(g.entropy, b); err != nil {
		return nil, fmt.Errorf("read seed entropy: %w", err)
	}

	seed := hex.EncodeToString(b)

	return &Epoch{
		seed:        seed,
		Hash:        HashSeed(seed),
		CommittedAt: g.now(),
	}, nil
}

// CommitmentHash is the hash of the epoch new rounds will use.
func (g *Generator) CommitmentHash() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.current.Hash
}

// NextNonce hands out the per-user nonce for a new bet, starting at 0.
func (g *Generator) NextNonce(userID int64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.nonces[userID]
	g.nonces[userID] = n + 1

	return n
}

// Acquire pins the current epoch for a round and returns the round nonce used
// for round-level draws.
func (g *Generator) Acquire() (*Epoch, uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.current.pins++
	n := g.roundSeq
	g.roundSeq++

	return g.current, n
}

// Release unpins e. A retired epoch is revealed once its last round releases it.
func (g *Generator) Release(e *Epoch) {
	var (
		revealed  []Revealed
		committed *Epoch
	)

	g.mu.Lock()

	if e.pins > 0 {
		e.pins--
	}

	e.rounds++

	switch {
	case e.retired:
		revealed = g.revealReadyLocked()
	case g.rotateEvery > 0 && e.rounds >= g.rotateEvery && e == g.current:
		next, err := g.newEpoch()
		if err == nil {
			committed = next
			revealed = g.rotateLocked(next)
		}
	}

	g.mu.Unlock()

	if committed != nil {
		g.notifyCommitted(committed)
	}

	g.notifyRevealed(revealed)
}

// Rotate commits a new epoch and returns its hash.
func (g *Generator) Rotate() (string, error) {
	next, err := g.newEpoch()
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	revealed := g.rotateLocked(next)
	g.mu.Unlock()

	g.notifyCommitted(next)
	g.notifyRevealed(revealed)

	return next.Hash, nil
}

func (g *Generator) rotateLocked(next *Epoch) []Revealed {
	g.current.retired = true
	g.retired = append(g.retired, g.current)
	g.current = next

	return g.revealReadyLocked()
}

func (g *Generator) revealReadyLocked() []Revealed {
	var out []Revealed

	kept := g.retired[:0]

	for _, e := range g.retired {
		if e.pins > 0 {
			kept = append(kept, e)
			continue
		}

		r := Revealed{
			ServerSeedHash: e.Hash,
			ServerSeed:     e.seed,
			CommittedAt:    e.CommittedAt,
			RevealedAt:     g.now(),
			Rounds:         e.rounds,
		}
		g.revealed.Push(r)
		out = append(out, r)
	}

	g.retired = kept

	return out
}

// Reveal returns the seed behind hash once its epoch has closed.
func (g *Generator) Reveal(hash string) (string, error) {
	r, ok := g.revealed.Find(func(r Revealed) bool { return r.ServerSeedHash == hash })
	if !ok {
		return "", ErrNotRevealed
	}

	return r.ServerSeed, nil
}

// Revealed lists recently closed epochs, newest first.
func (g *Generator) Revealed(limit int) []Revealed {
	return g.revealed.Last(limit)
}

func (g *Generator) notifyCommitted(e *Epoch) {
	if g.observer != nil {
		g.observer.Committed(e.Hash, e.CommittedAt)
	}
}

func (g *Generator) notifyRevealed(rs []Revealed) {
	if g.observer == nil {
		return
	}

	for _, r := range rs {
		g.observer.Revealed(r)
	}
}
