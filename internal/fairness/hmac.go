package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// Source derives pseudorandom blocks for a (clientSeed, nonce, counter) triple.
type Source interface {
	Derive(clientSeed string, nonce uint64, counter int) []byte
}

// RoundPrefix namespaces round-level draws. Client seeds may not start with
// it, so no bet can be derived from the same message as a round draw.
const RoundPrefix = "round:"

// RoundLabel is the Derive input used for draws owned by a round.
func RoundLabel(roundID string) string {
	return RoundPrefix + roundID
}

// Seed is a revealed (or test) server seed usable as a Source.
type Seed string

func (s Seed) Derive(clientSeed string, nonce uint64, counter int) []byte {
	return Derive(string(s), clientSeed, nonce, counter)
}

// Derive returns HMAC-SHA256 keyed by serverSeed over "clientSeed:nonce:counter".
func Derive(serverSeed, clientSeed string, nonce uint64, counter int) []byte {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(clientSeed + ":" + strconv.FormatUint(nonce, 10) + ":" + strconv.Itoa(counter)))

	return h.Sum(nil)
}

// Float64 maps the first 52 bits of b onto [0, 1).
func Float64(b []byte) float64 {
	u := binary.BigEndian.Uint64(b[:8]) >> 12

	return float64(u) / (1 << 52)
}

// HashSeed is the published commitment for a server seed.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))

	return hex.EncodeToString(sum[:])
}
