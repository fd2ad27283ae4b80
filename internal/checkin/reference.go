package checkin

import (
	"fmt"
	"math/rand"
	"sync"
)

const referenceLayout = "20060102150405"

// ReferenceGenerator builds the receipt number for cash reservations paid in
// full: the local timestamp YYYYMMDDHHmmss followed by a zero-padded
// four-digit random suffix.  A generator never hands out the same value twice
// in a row; within one second it redraws the suffix.
type ReferenceGenerator struct {
	clock Clock
	intn  func(n int) int

	mu   sync.Mutex
	last string
}

// NewReferenceGenerator returns a generator.  A nil clock means the system
// clock; a nil intn means math/rand/v2.
func NewReferenceGenerator(clock Clock, intn func(n int) int) *ReferenceGenerator {
	if clock == nil {
		clock = SystemClock{}
	}
	if intn == nil {
		intn = rand.Intn
	}
	return &ReferenceGenerator{clock: clock, intn: intn}
}

// Generate returns a new 18-digit reference number.
func (g *ReferenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	stamp := g.clock.Now().Format(referenceLayout)
	ref := stamp + fmt.Sprintf("%04d", g.intn(10000))
	for i := 0; ref == g.last && i < 16; i++ {
		ref = stamp + fmt.Sprintf("%04d", g.intn(10000))
	}
	if ref == g.last {
		// the random source keeps repeating itself; step the suffix instead
		ref = stamp + fmt.Sprintf("%04d", (suffix(g.last)+1)%10000)
	}
	g.last = ref
	return ref
}

func suffix(ref string) int {
	n := 0
	if len(ref) < 4 {
		return 0
	}
	for _, c := range ref[len(ref)-4:] {
		n = n*10 + int(c-'0')
	}
	return n
}
