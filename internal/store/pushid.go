package store

import (
	"math/rand"
	"sync"
	"time"
)

// pushChars is the ordered alphabet push IDs are built from. Lexicographic
// order of the IDs therefore matches creation order.
const pushChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// pushIDGenerator produces 20-character chronologically ordered keys:
// 8 characters of timestamp followed by 12 of randomness. Keys generated
// within the same millisecond increment the previous random suffix so
// ordering holds even under bursts.
type pushIDGenerator struct {
	mu         sync.Mutex
	lastMillis int64
	lastRand   [12]int
}

func (g *pushIDGenerator) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := now.UnixMilli()
	duplicate := millis == g.lastMillis
	g.lastMillis = millis

	var id [20]byte
	for i := 7; i >= 0; i-- {
		id[i] = pushChars[millis%64]
		millis /= 64
	}

	if duplicate {
		for i := 11; i >= 0; i-- {
			g.lastRand[i]++
			if g.lastRand[i] < 64 {
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		for i := range g.lastRand {
			g.lastRand[i] = rand.Intn(64)
		}
	}
	for i, r := range g.lastRand {
		id[8+i] = pushChars[r]
	}

	return string(id[:])
}
