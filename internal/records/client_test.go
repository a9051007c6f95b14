package records_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	apperrors "github.com/Proton-105/tagmystickies-bot/internal/errors"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
)

const baseURL = "http://records.local:8000"

var errTransport = errors.New("connection refused")

type httpClientMock struct {
	mock.Mock
}

func (m *httpClientMock) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, httpClient records.HTTPClient, breaker *apperrors.CircuitBreaker) *records.Client {
	t.Helper()

	client, err := records.New(httpClient, baseURL, breaker, testLogger())
	require.NoError(t, err)
	return client
}

func requestMatching(method, url string) any {
	return mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == method && req.URL.String() == url
	})
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()

	var body map[string]any
	require.NotNil(t, req.Body)
	require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
	return body
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := records.New(&httpClientMock{}, "/records", nil, nil)
	assert.Error(t, err)

	_, err = records.New(nil, baseURL, nil, nil)
	assert.Error(t, err)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		resp     *http.Response
		err      error
		wantKind records.ErrorKind
		sentinel error
	}{
		{name: "not found", resp: response(http.StatusNotFound, `{"detail":"Not found."}`), wantKind: records.KindNotFound, sentinel: records.ErrNotFound},
		{name: "validation", resp: response(http.StatusBadRequest, `{"user":["required"]}`), wantKind: records.KindValidation, sentinel: records.ErrValidation},
		{name: "server", resp: response(http.StatusInternalServerError, ``), wantKind: records.KindServer, sentinel: records.ErrServer},
		{name: "other status", resp: response(http.StatusTeapot, ``), wantKind: records.KindUnknown, sentinel: records.ErrUnknown},
		{name: "bad gateway is unknown", resp: response(http.StatusBadGateway, ``), wantKind: records.KindUnknown, sentinel: records.ErrUnknown},
		{name: "transport error", err: errTransport, wantKind: records.KindUnknown, sentinel: records.ErrUnknown},
		{name: "undecodable body", resp: response(http.StatusOK, `not json`), wantKind: records.KindUnknown, sentinel: records.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpClient := &httpClientMock{}
			httpClient.On("Do", requestMatching(http.MethodGet, baseURL+"/records/user-entries/42/")).Return(tt.resp, tt.err)

			_, err := newClient(t, httpClient, nil).RetrieveUserEntry(context.Background(), 42)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, records.KindOf(err))
			assert.ErrorIs(t, err, tt.sentinel)

			var recErr *records.Error
			require.ErrorAs(t, err, &recErr)
			assert.Equal(t, "retrieve_user_entry", recErr.Op)

			if tt.err != nil {
				assert.ErrorIs(t, err, errTransport)
			}
			httpClient.AssertExpectations(t)
		})
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, records.KindUnknown, records.KindOf(errors.New("other")))
	assert.NotErrorIs(t, &records.Error{Kind: records.KindServer}, records.ErrNotFound)
}

func TestClient_RetrieveUserEntry(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", requestMatching(http.MethodGet, baseURL+"/records/user-entries/42/")).
		Return(response(http.StatusOK, `{"user":42,"chat":7,"status":"{\"stateCode\":0}"}`), nil)

	entry, err := newClient(t, httpClient, nil).RetrieveUserEntry(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.UserEntry{User: 42, Chat: 7, Status: `{"stateCode":0}`}, entry)
}

func TestClient_CreateUserEntry(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusCreated, `{"user":42,"chat":7}`), nil).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/records/user-entries/", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		body := decodeBody(t, req)
		assert.Equal(t, float64(42), body["user"])
		assert.Equal(t, float64(7), body["chat"])
	})

	entry, err := newClient(t, httpClient, nil).CreateUserEntry(context.Background(), domain.UserEntry{User: 42, Chat: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(42), entry.User)
}

func TestClient_PatchUserStatus(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusOK, `{"user":42}`), nil).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "/records/user-entries/42/", req.URL.Path)

		body := decodeBody(t, req)
		assert.Equal(t, map[string]any{"status": `{"stateCode":8}`}, body)
	})

	err := newClient(t, httpClient, nil).PatchUserStatus(context.Background(), 42, `{"stateCode":8}`)
	require.NoError(t, err)
}

func TestClient_ListUserEntries_Query(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", requestMatching(http.MethodGet, baseURL+"/records/user-entries/?chat=7")).
		Return(response(http.StatusOK, `[{"user":1,"chat":7},{"user":2,"chat":7}]`), nil)

	entries, err := newClient(t, httpClient, nil).ListUserEntries(context.Background(), domain.UserEntryFilter{Chat: 7})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestClient_StickerTags(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", requestMatching(http.MethodGet, baseURL+"/records/ste/?sticker=AgAD&user=42")).
		Return(response(http.StatusOK, `[{"id":1,"sticker":"AgAD","user":42,"tag":"cat"},{"id":2,"sticker":"AgAD","user":42,"tag":"dog"}]`), nil)

	tags, err := newClient(t, httpClient, nil).StickerTags(context.Background(), 42, "AgAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, tags)
}

func TestClient_FilterStickers(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusOK, `{"stickers":["file-1","file-2"]}`), nil).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/records/filter-stickers/42/", req.URL.Path)

		body := decodeBody(t, req)
		assert.Equal(t, []any{"cat"}, body["tags"])
		assert.Equal(t, []any{"dog"}, body["exclude_tags"])
	})

	ids, err := newClient(t, httpClient, nil).FilterStickers(context.Background(), domain.StickerFilter{
		User:        42,
		Tags:        []string{"cat"},
		ExcludeTags: []string{"dog"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"file-1", "file-2"}, ids)
}

func TestClient_AddTagsToSticker(t *testing.T) {
	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusOK, ``), nil).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/records/stickers/42/AgAD/", req.URL.Path)
		assert.Equal(t, map[string]any{"tags_to_add": []any{"cat", "dog"}}, decodeBody(t, req))
	})

	err := newClient(t, httpClient, nil).AddTagsToSticker(context.Background(), 42, "AgAD", []string{"cat", "dog"})
	require.NoError(t, err)
}

func TestClient_MassReplaceTags(t *testing.T) {
	stickers := domain.StickerKeys([]domain.Sticker{{UniqueID: "u1", FileID: "f1", SetName: "set"}})

	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusOK, ``), nil).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "/records/stickers/tags/mass-replace/42/", req.URL.Path)

		body := decodeBody(t, req)
		assert.Equal(t, []any{}, body["tags_to_remove"])
		assert.Equal(t, []any{"new"}, body["tags_to_add"])
		assert.Equal(t, []any{"f1"}, body["stickers"])
	})

	err := newClient(t, httpClient, nil).MassReplaceTags(context.Background(), 42, stickers, nil, []string{"new"})
	require.NoError(t, err)
}

func TestClient_EndpointsKeepTrailingSlash(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *records.Client) error
	}{
		{"tag stickers", http.MethodPost, "/records/stickers/42/", func(c *records.Client) error {
			return c.TagStickers(context.Background(), 42, []string{"f1"}, []string{"cat"})
		}},
		{"delete stickers", http.MethodDelete, "/records/stickers/42/", func(c *records.Client) error {
			return c.DeleteStickers(context.Background(), 42, []string{"u1"})
		}},
		{"delete sticker", http.MethodDelete, "/records/stickers/42/u1/", func(c *records.Client) error {
			return c.DeleteSticker(context.Background(), 42, "u1")
		}},
		{"replace tags", http.MethodPatch, "/records/stickers/42/u1/", func(c *records.Client) error {
			return c.ReplaceTagsOnSticker(context.Background(), 42, "u1", []string{"a"}, []string{"b"})
		}},
		{"delete tag set", http.MethodDelete, "/records/stickers/tags/42/u1/", func(c *records.Client) error {
			return c.DeleteTagSet(context.Background(), 42, "u1", []string{"a"})
		}},
		{"delete multi tag set", http.MethodDelete, "/records/stickers/tags/multi/42/", func(c *records.Client) error {
			return c.DeleteMultiTagSet(context.Background(), 42, []string{"u1"}, []string{"a"})
		}},
		{"delete user entry", http.MethodDelete, "/records/user-entries/42/", func(c *records.Client) error {
			return c.DeleteUserEntry(context.Background(), 42)
		}},
		{"delete ste", http.MethodDelete, "/records/ste/9/", func(c *records.Client) error {
			return c.DeleteStickerTagEntry(context.Background(), 9)
		}},
		{"retrieve ste", http.MethodGet, "/records/ste/9/", func(c *records.Client) error {
			_, err := c.RetrieveStickerTagEntry(context.Background(), 9)
			return err
		}},
		{"create ste", http.MethodPost, "/records/ste/", func(c *records.Client) error {
			_, err := c.CreateStickerTagEntry(context.Background(), domain.StickerTagEntry{ID: 3, Sticker: "u1", User: 42, Tag: "cat"})
			return err
		}},
		{"patch ste", http.MethodPatch, "/records/ste/9/", func(c *records.Client) error {
			tag := "dog"
			_, err := c.PatchStickerTagEntry(context.Background(), 9, domain.StickerTagEntryPatch{Tag: &tag})
			return err
		}},
		{"patch user entry", http.MethodPatch, "/records/user-entries/42/", func(c *records.Client) error {
			return c.PatchUserChat(context.Background(), 42, 77)
		}},
		{"user sticker tag list", http.MethodGet, "/records/user-sticker-tag-list/42/", func(c *records.Client) error {
			_, err := c.UserStickerTagList(context.Background(), 42)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpClient := &httpClientMock{}
			httpClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
				return req.Method == tt.method && req.URL.Path == tt.path
			})).Return(response(http.StatusOK, `{}`), nil)

			require.NoError(t, tt.call(newClient(t, httpClient, nil)))
			httpClient.AssertExpectations(t)
		})
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	breaker := apperrors.NewCircuitBreakerWithSettings(apperrors.BreakerSettings{MinRequests: 2})

	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusInternalServerError, ``), nil).Times(2)

	client := newClient(t, httpClient, breaker)
	for i := 0; i < 2; i++ {
		_, err := client.RetrieveUserEntry(context.Background(), 42)
		assert.Equal(t, records.KindServer, records.KindOf(err))
	}

	_, err := client.RetrieveUserEntry(context.Background(), 42)
	assert.Equal(t, records.KindUnknown, records.KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrCircuitOpen)
	httpClient.AssertNumberOfCalls(t, "Do", 2)
}

func TestClient_BreakerIgnoresNotFound(t *testing.T) {
	breaker := apperrors.NewCircuitBreakerWithSettings(apperrors.BreakerSettings{MinRequests: 2})

	httpClient := &httpClientMock{}
	httpClient.On("Do", mock.Anything).Return(response(http.StatusNotFound, ``), nil)

	client := newClient(t, httpClient, breaker)
	for i := 0; i < 5; i++ {
		_, err := client.RetrieveUserEntry(context.Background(), 42)
		assert.Equal(t, records.KindNotFound, records.KindOf(err))
	}
	assert.Equal(t, apperrors.StateClosed, breaker.State())
}

func TestClient_Ping(t *testing.T) {
	healthy := &httpClientMock{}
	healthy.On("Do", mock.Anything).Return(response(http.StatusNotFound, ``), nil)
	assert.NoError(t, newClient(t, healthy, nil).Ping(context.Background()))

	down := &httpClientMock{}
	down.On("Do", mock.Anything).Return(nil, errTransport)
	assert.Error(t, newClient(t, down, nil).Ping(context.Background()))
}
