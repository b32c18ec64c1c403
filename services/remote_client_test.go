package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/memorybox/config"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
)

func newRemoteFixture(t *testing.T, handler http.Handler) RemoteDataClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteClient(&config.Config{RemoteAPIURL: srv.URL})
}

func TestRemoteListDecodesListForm(t *testing.T) {
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// List form omits message bodies but carries the count.
		w.Write([]byte(`[{"id": "c1", "title": "Trip", "category": "Friends", "date_created": "2024-01-01T00:00:00Z", "message_count": 5}]`))
	}))

	all, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c1", all[0].ID)
	assert.Equal(t, 5, all[0].CountMessages())
}

func TestRemoteGetNotFound(t *testing.T) {
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemoteGetFullConversation(t *testing.T) {
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/c1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "c1", "title": "Trip", "messages": [{"id": "msg_0_0", "sender": "Ada", "content": "hi", "timestamp": "2023-06-10T09:30"}]}`))
	}))

	conv, err := client.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, 1, conv.CountMessages())
}

func TestRemoteDeleteIdempotent(t *testing.T) {
	status := http.StatusOK
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(status)
	}))

	deleted, err := client.Delete(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, deleted)

	status = http.StatusNotFound
	deleted, err = client.Delete(context.Background(), "c1")
	require.NoError(t, err, "an already-deleted id is not an error")
	assert.False(t, deleted)
}

func TestRemoteUpdateSendsPatch(t *testing.T) {
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var patch models.ConversationUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.NotNil(t, patch.Title)
		assert.Equal(t, "New title", *patch.Title)
		assert.Nil(t, patch.Tags)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "c1", "title": "New title", "category": "Work"}`))
	}))

	title := "New title"
	category := "Work"
	conv, err := client.Update(context.Background(), "c1", models.ConversationUpdate{Title: &title, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "New title", conv.Title)
}

func TestRemoteServerErrorSurfacesAsRequestFailed(t *testing.T) {
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestRemoteUploadConversation(t *testing.T) {
	client := newRemoteFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/upload":
			require.NoError(t, r.ParseMultipartForm(32<<20))
			assert.Equal(t, "Trip", r.FormValue("title"))
			assert.Equal(t, "Friends", r.FormValue("category"))
			assert.Equal(t, "a, b", r.FormValue("tags"))
			assert.Len(t, r.MultipartForm.File["files"], 2)
			w.Write([]byte(`{"conversation_id": "c9"}`))
		case "/api/conversations/c9":
			w.Write([]byte(`{"id": "c9", "title": "Trip", "category": "Friends"}`))
		default:
			http.NotFound(w, r)
		}
	}))

	conv, err := client.UploadConversation(context.Background(), UploadFields{
		Title:    "Trip",
		Category: "Friends",
		Tags:     "a, b",
	}, []*StagedFile{
		{Name: "a.png", MIME: "image/png", Data: []byte{1, 2}},
		{Name: "b.png", MIME: "image/png", Data: []byte{3, 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "c9", conv.ID)
}
