package handlers

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/tags"
)

const (
	// MaxInlineResults is the most results one inline answer may carry.
	MaxInlineResults = 50
	inlineCacheTime  = 30 * time.Second
)

// Inline answers inline queries with the user's stickers matching the typed tags.
type Inline struct {
	finder StickerFinder
	mu     sync.Mutex
	rnd    *rand.Rand
	log    *slog.Logger
}

// NewInline creates the inline search handler. A nil rnd uses a randomly seeded source.
func NewInline(finder StickerFinder, rnd *rand.Rand, log *slog.Logger) *Inline {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = slog.Default()
	}

	return &Inline{finder: finder, rnd: rnd, log: log}
}

// Search returns the file ids matching query, a random one moved to the front.
func (h *Inline) Search(ctx context.Context, userID int64, query string) ([]string, error) {
	parsed := tags.Parse(query)

	found, err := h.finder.FilterStickers(ctx, domain.StickerFilter{
		User:        userID,
		Tags:        parsed.Tags,
		ExcludeTags: parsed.Excluded,
		Page:        parsed.Page,
	})
	if err != nil {
		return nil, err
	}

	if len(found) > 1 {
		h.mu.Lock()
		pick := h.rnd.IntN(len(found))
		h.mu.Unlock()

		front := found[pick]
		copy(found[1:pick+1], found[:pick])
		found[0] = front
	}

	if len(found) > MaxInlineResults {
		found = found[:MaxInlineResults]
	}
	return found, nil
}

// Answer builds the inline response. A failed search is answered with no results.
func (h *Inline) Answer(ctx context.Context, userID int64, query string) *telebot.QueryResponse {
	found, err := h.Search(ctx, userID, query)
	if err != nil {
		h.log.Warn("inline search failed", slog.Int64("user_id", userID), slog.Any("error", err))
		found = nil
	}

	results := make(telebot.Results, 0, len(found))
	for _, fileID := range found {
		result := &telebot.StickerResult{Cache: fileID}
		result.SetResultID(uuid.NewString())
		results = append(results, result)
	}

	return &telebot.QueryResponse{
		Results:    results,
		CacheTime:  int(inlineCacheTime.Seconds()),
		IsPersonal: true,
	}
}
