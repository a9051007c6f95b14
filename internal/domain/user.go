package domain

// UserEntry is the remote identity record of a bot user.
type UserEntry struct {
	User   int64  `json:"user"`
	Chat   int64  `json:"chat,omitempty"`
	Status string `json:"status,omitempty"`
}

// UserEntryFilter narrows a user entry listing. Zero values are not sent.
type UserEntryFilter struct {
	User   int64
	Chat   int64
	Status string
}

// UserEntryPatch is a partial update of a UserEntry; nil fields are left untouched.
type UserEntryPatch struct {
	Chat   *int64  `json:"chat,omitempty"`
	Status *string `json:"status,omitempty"`
}

// UserStickerTags is the full sticker and tag dump of one user.
type UserStickerTags struct {
	User     int64             `json:"user"`
	Chat     int64             `json:"chat"`
	Status   string            `json:"status,omitempty"`
	Stickers []StickerWithTags `json:"stickers,omitempty"`
}
