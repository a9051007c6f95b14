package handlers

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
)

// Hints picks a random tip to send after a flow completes.
type Hints struct {
	mu    sync.Mutex
	items []string
	rnd   *rand.Rand
}

// NewHints reads the hints list from tr. A %s in a hint is replaced by the
// bot username. A nil rnd uses a randomly seeded source.
func NewHints(tr i18n.Translator, botUsername string, rnd *rand.Rand) *Hints {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var items []string
	if tr != nil {
		for _, hint := range tr.Sequence("hints") {
			if strings.Contains(hint, "%s") {
				hint = fmt.Sprintf(hint, botUsername)
			}
			items = append(items, hint)
		}
	}

	return &Hints{items: items, rnd: rnd}
}

// Random returns one hint, or "" when there are none.
func (h *Hints) Random() string {
	if h == nil || len(h.items) == 0 {
		return ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.items[h.rnd.IntN(len(h.items))]
}
