package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/memorybox/config"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
)

func newTestRepo(t *testing.T) (*conversationRepo, *GormDB) {
	t.Helper()
	conf := &config.Config{
		Env:          "prod",
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	}
	gormDB := GetDB(conf)
	return NewConversationRepo(gormDB).(*conversationRepo), gormDB
}

func TestCreateAssignsIDAndDate(t *testing.T) {
	repo, _ := newTestRepo(t)

	conv, err := repo.Create(context.Background(), models.ConversationDraft{
		Title:    "Road Trip",
		Category: "Friends",
		Tags:     []string{"vacation"},
		Messages: []models.Message{
			{ID: "msg_0_0", Sender: "Ada", Content: "first"},
			{ID: "msg_0_1", Sender: "You", Content: "second", IsUser: true},
		},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(conv.ID)
	assert.NoError(t, err, "ids are adapter-assigned uuids")
	_, err = time.Parse(time.RFC3339, conv.DateCreated)
	assert.NoError(t, err)
	assert.Equal(t, "Road Trip", conv.Title)
}

func TestMessageOrderSurvivesRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)

	contents := []string{"one", "two", "three", "four"}
	draft := models.ConversationDraft{Title: "t", Category: "Friends"}
	for i, c := range contents {
		draft.Messages = append(draft.Messages, models.Message{ID: uuid.NewString(), Sender: "Ada", Content: c, Timestamp: time.Now().Add(time.Duration(i) * time.Minute).Format(time.RFC3339)})
	}

	created, err := repo.Create(context.Background(), draft)
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, got.Messages[i].Content)
	}
}

func TestDeleteCreatedConversation(t *testing.T) {
	repo, _ := newTestRepo(t)

	conv, err := repo.Create(context.Background(), models.ConversationDraft{Title: "t", Category: "Friends"})
	require.NoError(t, err)

	deleted, err := repo.Delete(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.Get(context.Background(), conv.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)

	deleted, err := repo.Delete(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateMergesProvidedFieldsOnly(t *testing.T) {
	repo, _ := newTestRepo(t)

	conv, err := repo.Create(context.Background(), models.ConversationDraft{
		Title:    "before",
		Category: "Friends",
		Messages: []models.Message{{ID: "msg_0_0", Sender: "Ada", Content: "kept"}},
	})
	require.NoError(t, err)

	title := "after"
	updated, err := repo.Update(context.Background(), conv.ID, models.ConversationUpdate{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, "Friends", updated.Category, "absent patch fields stay untouched")
	require.Len(t, updated.Messages, 1, "messages are immutable through update")
	assert.Equal(t, "kept", updated.Messages[0].Content)
}

func TestUpdateMissingConversation(t *testing.T) {
	repo, _ := newTestRepo(t)

	title := "x"
	_, err := repo.Update(context.Background(), "missing", models.ConversationUpdate{Title: &title})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUnreadableBlobYieldsEmptyCollection(t *testing.T) {
	repo, gormDB := newTestRepo(t)

	entry := StoreEntry{Key: collectionKey, Value: []byte("{definitely not json")}
	require.NoError(t, gormDB.DB.Save(&entry).Error)

	all, err := repo.List(context.Background())
	require.NoError(t, err, "a corrupt store reads as empty, never as an error")
	assert.Empty(t, all)
}

func TestMissingBlobYieldsEmptyCollection(t *testing.T) {
	repo, _ := newTestRepo(t)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEveryMutationRewritesWholeCollection(t *testing.T) {
	repo, gormDB := newTestRepo(t)

	first, err := repo.Create(context.Background(), models.ConversationDraft{Title: "a", Category: "Friends"})
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), models.ConversationDraft{Title: "b", Category: "Family"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, gormDB.DB.Model(&StoreEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "the collection lives under one key")

	deleted, err := repo.Delete(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].Title)
}
