package fairness

import (
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader yields 0,1,2,... so every epoch gets a distinct seed.
type countingReader struct{ n byte }

func (r *countingReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.n
		r.n++
	}

	return len(p), nil
}

type recordingObserver struct {
	mu        sync.Mutex
	committed []string
	revealed  []Revealed
}

func (o *recordingObserver) Committed(hash string, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, hash)
}

func (o *recordingObserver) Revealed(r Revealed) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.revealed = append(o.revealed, r)
}

func newTestGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()

	opts = append([]Option{WithEntropy(&countingReader{})}, opts...)
	g, err := NewGenerator(opts...)
	require.NoError(t, err)

	return g
}

func TestDeriveKnownVector(t *testing.T) {
	got := Derive("scenario-a-seed", "abc", 0, 0)

	assert.Equal(t, "3d939f5b5e7532a5105d26d4bb31f41c575059510abe96669b8a86caf3707115", hex.EncodeToString(got))
	assert.Equal(t, got, Seed("scenario-a-seed").Derive("abc", 0, 0))
}

func TestDeriveSeparatesInputs(t *testing.T) {
	base := Derive("s", "abc", 1, 0)

	assert.NotEqual(t, base, Derive("s", "abc", 2, 0))
	assert.NotEqual(t, base, Derive("s", "abc", 1, 1))
	assert.NotEqual(t, base, Derive("s", "abd", 1, 0))
	assert.NotEqual(t, base, Derive("t", "abc", 1, 0))
	assert.Equal(t, base, Derive("s", "abc", 1, 0))
}

func TestHashSeed(t *testing.T) {
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashSeed("abc"))
}

func TestFloat64Range(t *testing.T) {
	ones := make([]byte, 32)
	for i := range ones {
		ones[i] = 0xff
	}

	assert.Equal(t, 0.0, Float64(make([]byte, 32)))
	assert.Less(t, Float64(ones), 1.0)

	for n := uint64(0); n < 200; n++ {
		f := Float64(Derive("seed", "client", n, 0))
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestNextNonceStrictlyIncreasingPerUser(t *testing.T) {
	g := newTestGenerator(t)

	assert.Equal(t, uint64(0), g.NextNonce(1))
	assert.Equal(t, uint64(1), g.NextNonce(1))
	assert.Equal(t, uint64(0), g.NextNonce(2))
	assert.Equal(t, uint64(2), g.NextNonce(1))
}

func TestCommitmentMatchesEpochSeed(t *testing.T) {
	g := newTestGenerator(t)

	e, _ := g.Acquire()
	assert.Equal(t, g.CommitmentHash(), e.Hash)
	assert.Equal(t, HashSeed(e.seed), e.Hash)
}

func TestRotateDefersRevealWhilePinned(t *testing.T) {
	obs := &recordingObserver{}
	g := newTestGenerator(t, WithObserver(obs))

	e, _ := g.Acquire()
	oldHash := e.Hash

	newHash, err := g.Rotate()
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, newHash)
	assert.Equal(t, newHash, g.CommitmentHash())

	_, err = g.Reveal(oldHash)
	require.ErrorIs(t, err, ErrNotRevealed)
	assert.Empty(t, obs.revealed)

	g.Release(e)

	seed, err := g.Reveal(oldHash)
	require.NoError(t, err)
	assert.Equal(t, oldHash, HashSeed(seed))
	require.Len(t, obs.revealed, 1)
	assert.Equal(t, 1, obs.revealed[0].Rounds)
	assert.Equal(t, []string{oldHash, newHash}, obs.committed)
}

func TestRotateRevealsUnpinnedImmediately(t *testing.T) {
	g := newTestGenerator(t)
	oldHash := g.CommitmentHash()

	_, err := g.Rotate()
	require.NoError(t, err)

	_, err = g.Reveal(oldHash)
	require.NoError(t, err)
	require.Len(t, g.Revealed(0), 1)
}

func TestAutoRotateAfterRounds(t *testing.T) {
	g := newTestGenerator(t, WithRotateEvery(2))
	first := g.CommitmentHash()

	e, n0 := g.Acquire()
	g.Release(e)
	assert.Equal(t, first, g.CommitmentHash())

	e, n1 := g.Acquire()
	g.Release(e)
	assert.NotEqual(t, first, g.CommitmentHash())
	assert.Equal(t, n0+1, n1)

	_, err := g.Reveal(first)
	require.NoError(t, err)
}

func TestAutoRotateWaitsForOtherPins(t *testing.T) {
	g := newTestGenerator(t, WithRotateEvery(1))
	first := g.CommitmentHash()

	dropRound, _ := g.Acquire()
	driftRound, _ := g.Acquire()

	g.Release(dropRound)
	assert.NotEqual(t, first, g.CommitmentHash())

	_, err := g.Reveal(first)
	require.ErrorIs(t, err, ErrNotRevealed)

	g.Release(driftRound)

	_, err = g.Reveal(first)
	require.NoError(t, err)
}
