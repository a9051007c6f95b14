package records

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
)

// RetrieveUserEntry fetches the entry of one user.
func (c *Client) RetrieveUserEntry(ctx context.Context, user int64) (domain.UserEntry, error) {
	var entry domain.UserEntry
	err := c.do(ctx, "retrieve_user_entry", http.MethodGet, nil, nil, &entry, "records", "user-entries", itoa(user))
	return entry, err
}

// CreateUserEntry registers a new user.
func (c *Client) CreateUserEntry(ctx context.Context, entry domain.UserEntry) (domain.UserEntry, error) {
	var created domain.UserEntry
	err := c.do(ctx, "create_user_entry", http.MethodPost, nil, entry, &created, "records", "user-entries")
	return created, err
}

// ListUserEntries lists user entries matching filter.
func (c *Client) ListUserEntries(ctx context.Context, filter domain.UserEntryFilter) ([]domain.UserEntry, error) {
	query := url.Values{}
	if filter.User != 0 {
		query.Set("user", itoa(filter.User))
	}
	if filter.Chat != 0 {
		query.Set("chat", itoa(filter.Chat))
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}

	var entries []domain.UserEntry
	err := c.do(ctx, "list_user_entries", http.MethodGet, query, nil, &entries, "records", "user-entries")
	return entries, err
}

// PatchUserEntry applies a partial update and returns the stored entry.
func (c *Client) PatchUserEntry(ctx context.Context, user int64, patch domain.UserEntryPatch) (domain.UserEntry, error) {
	var updated domain.UserEntry
	err := c.do(ctx, "patch_user_entry", http.MethodPatch, nil, patch, &updated, "records", "user-entries", itoa(user))
	return updated, err
}

// PatchUserStatus replaces the serialized state of a user.
func (c *Client) PatchUserStatus(ctx context.Context, user int64, status string) error {
	_, err := c.PatchUserEntry(ctx, user, domain.UserEntryPatch{Status: &status})
	return err
}

// PatchUserChat records the chat a user currently talks to the bot from.
func (c *Client) PatchUserChat(ctx context.Context, user, chat int64) error {
	_, err := c.PatchUserEntry(ctx, user, domain.UserEntryPatch{Chat: &chat})
	return err
}

func (c *Client) DeleteUserEntry(ctx context.Context, user int64) error {
	return c.do(ctx, "delete_user_entry", http.MethodDelete, nil, nil, nil, "records", "user-entries", itoa(user))
}
