package domain

// Sticker references a chat platform sticker.
type Sticker struct {
	// UniqueID is stable across bots. It identifies a sticker within a flow.
	UniqueID string `json:"sticker"`
	FileID   string `json:"file_id"`
	SetName  string `json:"set_name"`
}

// Key is the identifier the records API stores tags under. Inline answers
// send stored keys back as stickers, so it has to be the file id.
func (s Sticker) Key() string {
	return s.FileID
}

// StickerTagEntry associates one tag with one sticker of one user.
type StickerTagEntry struct {
	ID      int64  `json:"id,omitempty"`
	Sticker string `json:"sticker"`
	User    int64  `json:"user,omitempty"`
	Tag     string `json:"tag,omitempty"`
}

// StickerTagFilter narrows a sticker tag entry listing. Zero values are not sent.
type StickerTagFilter struct {
	Tag     string
	User    int64
	Sticker string
}

// StickerWithTags is a sticker together with every tag it carries.
type StickerWithTags struct {
	Sticker string   `json:"sticker"`
	Tags    []string `json:"tags"`
}

// StickerFilter selects a user's stickers by tags.
type StickerFilter struct {
	Tags        []string `json:"tags,omitempty"`
	ExcludeTags []string `json:"exclude_tags,omitempty"`
	Page        int      `json:"page,omitempty"`
	User        int64    `json:"user"`
}

// StickerKeys returns the record keys of stickers in order.
func StickerKeys(stickers []Sticker) []string {
	keys := make([]string, 0, len(stickers))
	for _, s := range stickers {
		keys = append(keys, s.Key())
	}
	return keys
}

// StickerTagEntryPatch is a partial update of a StickerTagEntry.
type StickerTagEntryPatch struct {
	Sticker *string `json:"sticker,omitempty"`
	Tag     *string `json:"tag,omitempty"`
}
