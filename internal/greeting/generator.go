// Package greeting picks the message sequence sent in reply to /start.
package greeting

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
)

const catalogKey = "start.greetings"

// Part is one message of a greeting. Delay is measured from the first part.
type Part struct {
	Text  string
	Delay time.Duration
}

// Greeting is a sequence of parts sent in order.
type Greeting []Part

// Generator draws greetings from a shuffled pool without replacement and
// reseeds the pool once it is empty. The first draw of a new pool never
// repeats the last draw of the previous one.
type Generator struct {
	mu        sync.Mutex
	greetings []Greeting
	pool      []int
	last      int
	rnd       *rand.Rand
}

// NewGenerator creates a Generator over greetings. A nil rnd uses a randomly seeded source.
func NewGenerator(greetings []Greeting, rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Generator{
		greetings: greetings,
		last:      -1,
		rnd:       rnd,
	}
}

// Len returns the number of distinct greetings.
func (g *Generator) Len() int {
	return len(g.greetings)
}

// Next returns the next greeting. It returns nil when there are none.
func (g *Generator) Next() Greeting {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.greetings) == 0 {
		return nil
	}

	if len(g.pool) == 0 {
		g.reseed()
	}

	idx := g.pool[0]
	g.pool = g.pool[1:]
	g.last = idx

	return g.greetings[idx]
}

func (g *Generator) reseed() {
	pool := make([]int, len(g.greetings))
	for i := range pool {
		pool[i] = i
	}
	g.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if len(pool) > 1 && pool[0] == g.last {
		swap := 1 + g.rnd.IntN(len(pool)-1)
		pool[0], pool[swap] = pool[swap], pool[0]
	}

	g.pool = pool
}

// FromCatalog reads every start.greetings.N sequence from tr. Part k of a
// greeting is delayed by k*partDelay.
func FromCatalog(tr i18n.Translator, partDelay time.Duration) []Greeting {
	var greetings []Greeting
	for i := 0; ; i++ {
		texts := tr.Sequence(catalogKey + "." + strconv.Itoa(i))
		if len(texts) == 0 {
			return greetings
		}

		greeting := make(Greeting, 0, len(texts))
		for k, text := range texts {
			greeting = append(greeting, Part{Text: text, Delay: time.Duration(k) * partDelay})
		}
		greetings = append(greetings, greeting)
	}
}
