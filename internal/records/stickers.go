package records

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
)

type addTagsRequest struct {
	TagsToAdd []string `json:"tags_to_add"`
}

type replaceTagsRequest struct {
	TagsToRemove []string `json:"tags_to_remove"`
	TagsToAdd    []string `json:"tags_to_add"`
}

type removeTagsRequest struct {
	Stickers     []string `json:"stickers,omitempty"`
	TagsToRemove []string `json:"tags_to_remove"`
}

type tagStickersRequest struct {
	Stickers []string `json:"stickers"`
	Tags     []string `json:"tags"`
}

type deleteStickersRequest struct {
	Stickers []string `json:"stickers"`
}

type massReplaceRequest struct {
	Stickers     []string `json:"stickers"`
	TagsToRemove []string `json:"tags_to_remove"`
	TagsToAdd    []string `json:"tags_to_add"`
}

type filterResponse struct {
	Stickers []string `json:"stickers"`
}

func (c *Client) RetrieveStickerTagEntry(ctx context.Context, id int64) (domain.StickerTagEntry, error) {
	var entry domain.StickerTagEntry
	err := c.do(ctx, "retrieve_sticker_tag_entry", http.MethodGet, nil, nil, &entry, "records", "ste", itoa(id))
	return entry, err
}

func (c *Client) CreateStickerTagEntry(ctx context.Context, entry domain.StickerTagEntry) (domain.StickerTagEntry, error) {
	entry.ID = 0
	var created domain.StickerTagEntry
	err := c.do(ctx, "create_sticker_tag_entry", http.MethodPost, nil, entry, &created, "records", "ste")
	return created, err
}

func (c *Client) PatchStickerTagEntry(ctx context.Context, id int64, patch domain.StickerTagEntryPatch) (domain.StickerTagEntry, error) {
	var updated domain.StickerTagEntry
	err := c.do(ctx, "patch_sticker_tag_entry", http.MethodPatch, nil, patch, &updated, "records", "ste", itoa(id))
	return updated, err
}

func (c *Client) DeleteStickerTagEntry(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_sticker_tag_entry", http.MethodDelete, nil, nil, nil, "records", "ste", itoa(id))
}

// ListStickerTagEntries lists associations matching filter.
func (c *Client) ListStickerTagEntries(ctx context.Context, filter domain.StickerTagFilter) ([]domain.StickerTagEntry, error) {
	query := url.Values{}
	if filter.Tag != "" {
		query.Set("tag", filter.Tag)
	}
	if filter.User != 0 {
		query.Set("user", itoa(filter.User))
	}
	if filter.Sticker != "" {
		query.Set("sticker", filter.Sticker)
	}

	var entries []domain.StickerTagEntry
	err := c.do(ctx, "list_sticker_tag_entries", http.MethodGet, query, nil, &entries, "records", "ste")
	return entries, err
}

// StickerTags returns the tags one user gave one sticker.
func (c *Client) StickerTags(ctx context.Context, user int64, sticker string) ([]string, error) {
	entries, err := c.ListStickerTagEntries(ctx, domain.StickerTagFilter{User: user, Sticker: sticker})
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Tag != "" {
			tags = append(tags, entry.Tag)
		}
	}
	return tags, nil
}

// FilterStickers returns file ids of the user's stickers matching filter.
func (c *Client) FilterStickers(ctx context.Context, filter domain.StickerFilter) ([]string, error) {
	var resp filterResponse
	err := c.do(ctx, "filter_stickers", http.MethodPost, nil, filter, &resp, "records", "filter-stickers", itoa(filter.User))
	if err != nil {
		return nil, err
	}
	if resp.Stickers == nil {
		resp.Stickers = []string{}
	}
	return resp.Stickers, nil
}

// UserStickerTagList dumps every sticker and tag of a user.
func (c *Client) UserStickerTagList(ctx context.Context, user int64) (domain.UserStickerTags, error) {
	var dump domain.UserStickerTags
	err := c.do(ctx, "user_sticker_tag_list", http.MethodGet, nil, nil, &dump, "records", "user-sticker-tag-list", itoa(user))
	return dump, err
}

// AddTagsToSticker adds tags to one sticker.
func (c *Client) AddTagsToSticker(ctx context.Context, user int64, sticker string, tags []string) error {
	return c.do(ctx, "add_tags_to_sticker", http.MethodPost, nil, addTagsRequest{TagsToAdd: tags}, nil,
		"records", "stickers", itoa(user), sticker)
}

// ReplaceTagsOnSticker removes and adds tags on one sticker in one call.
func (c *Client) ReplaceTagsOnSticker(ctx context.Context, user int64, sticker string, remove, add []string) error {
	body := replaceTagsRequest{TagsToRemove: nonNil(remove), TagsToAdd: nonNil(add)}
	return c.do(ctx, "replace_tags_on_sticker", http.MethodPatch, nil, body, nil,
		"records", "stickers", itoa(user), sticker)
}

// DeleteSticker drops every tag of one sticker.
func (c *Client) DeleteSticker(ctx context.Context, user int64, sticker string) error {
	return c.do(ctx, "delete_sticker", http.MethodDelete, nil, nil, nil,
		"records", "stickers", itoa(user), sticker)
}

// TagStickers applies the same tags to several stickers, given by record key.
func (c *Client) TagStickers(ctx context.Context, user int64, stickers, tags []string) error {
	body := tagStickersRequest{Stickers: stickers, Tags: tags}
	return c.do(ctx, "tag_stickers", http.MethodPost, nil, body, nil, "records", "stickers", itoa(user))
}

// DeleteStickers drops every tag of several stickers.
func (c *Client) DeleteStickers(ctx context.Context, user int64, stickers []string) error {
	return c.do(ctx, "delete_stickers", http.MethodDelete, nil, deleteStickersRequest{Stickers: stickers}, nil,
		"records", "stickers", itoa(user))
}

// DeleteTagSet removes tags from one sticker. Missing tags are ignored by the API.
func (c *Client) DeleteTagSet(ctx context.Context, user int64, sticker string, tags []string) error {
	return c.do(ctx, "delete_tag_set", http.MethodDelete, nil, removeTagsRequest{TagsToRemove: tags}, nil,
		"records", "stickers", "tags", itoa(user), sticker)
}

// DeleteMultiTagSet removes tags from several stickers.
func (c *Client) DeleteMultiTagSet(ctx context.Context, user int64, stickers, tags []string) error {
	body := removeTagsRequest{Stickers: stickers, TagsToRemove: tags}
	return c.do(ctx, "delete_multi_tag_set", http.MethodDelete, nil, body, nil,
		"records", "stickers", "tags", "multi", itoa(user))
}

// MassReplaceTags removes then adds tags across several stickers. Removing an
// absent tag or adding a present one is not an error.
func (c *Client) MassReplaceTags(ctx context.Context, user int64, stickers, remove, add []string) error {
	body := massReplaceRequest{Stickers: stickers, TagsToRemove: nonNil(remove), TagsToAdd: nonNil(add)}
	return c.do(ctx, "mass_replace_tags", http.MethodPatch, nil, body, nil,
		"records", "stickers", "tags", "mass-replace", itoa(user))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
