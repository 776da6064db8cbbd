package helper

import (
	crand "crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// Rand is the randomness the draw and the number generator depend on.
type Rand interface {
	// Intn returns a uniform value in [0, n). n must be > 0.
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRand returns a goroutine-safe PCG generator with the given seed.
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// NewCryptoSeededRand seeds the generator from crypto/rand, falling back to the clock.
func NewCryptoSeededRand() Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return NewRand(uint64(time.Now().UnixNano()))
	}
	return NewRand(binary.LittleEndian.Uint64(b[:]))
}

func GenerateRandNum(r Rand, min, max int) int {
	return min + r.Intn(max-min)
}
