package db

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
	"gorm.io/gorm"
)

// collectionKey is the single namespaced key the conversation collection is
// stored under.
const collectionKey = "memory_box_chats"

// ConversationStore is the read/mutate surface shared by the local repository
// and the remote conversation service client, so either can back the views.
type ConversationStore interface {
	List(ctx context.Context) ([]models.Conversation, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	Update(ctx context.Context, id string, patch models.ConversationUpdate) (*models.Conversation, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ConversationRepository interface
type ConversationRepository interface {
	ConversationStore
	Create(ctx context.Context, draft models.ConversationDraft) (*models.Conversation, error)
}

// conversationRepo struct
type conversationRepo struct {
	DB *gorm.DB
}

// NewConversationRepo creates a new instance of ConversationRepository backed
// by the local blob store.
func NewConversationRepo(db *GormDB) ConversationRepository {
	return &conversationRepo{db.DB}
}

// loadAll reads the collection blob. A missing or unreadable blob yields an
// empty collection rather than an error; the local store favors availability.
func (r *conversationRepo) loadAll() []models.Conversation {
	var entry StoreEntry
	if err := r.DB.First(&entry, "key = ?", collectionKey).Error; err != nil {
		return []models.Conversation{}
	}

	var all []models.Conversation
	if err := json.Unmarshal(entry.Value, &all); err != nil {
		log.Printf("local store: discarding unreadable collection: %v", err)
		return []models.Conversation{}
	}
	return all
}

func (r *conversationRepo) saveAll(all []models.Conversation) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return errors.Wrap(err, "serializing conversation collection")
	}
	entry := StoreEntry{Key: collectionKey, Value: raw}
	if err := r.DB.Save(&entry).Error; err != nil {
		return errors.Wrap(err, "writing conversation collection")
	}
	return nil
}

func (r *conversationRepo) List(ctx context.Context) ([]models.Conversation, error) {
	return r.loadAll(), nil
}

func (r *conversationRepo) Get(ctx context.Context, id string) (*models.Conversation, error) {
	for _, conv := range r.loadAll() {
		if conv.ID == id {
			c := conv
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *conversationRepo) Create(ctx context.Context, draft models.ConversationDraft) (*models.Conversation, error) {
	all := r.loadAll()

	conv := models.Conversation{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Category:    draft.Category,
		Tags:        draft.Tags,
		DateCreated: time.Now().UTC().Format(time.RFC3339),
		Messages:    draft.Messages,
	}
	if conv.Tags == nil {
		conv.Tags = []string{}
	}
	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}

	all = append(all, conv)
	if err := r.saveAll(all); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) Update(ctx context.Context, id string, patch models.ConversationUpdate) (*models.Conversation, error) {
	all := r.loadAll()
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if patch.Title != nil {
			all[i].Title = *patch.Title
		}
		if patch.Category != nil {
			all[i].Category = *patch.Category
		}
		if patch.Tags != nil {
			all[i].Tags = *patch.Tags
		}
		if err := r.saveAll(all); err != nil {
			return nil, err
		}
		updated := all[i]
		return &updated, nil
	}
	return nil, errs.ErrNotFound
}

// Delete removes a conversation by id. Deleting an absent id is not an error;
// it reports false.
func (r *conversationRepo) Delete(ctx context.Context, id string) (bool, error) {
	all := r.loadAll()
	kept := all[:0]
	found := false
	for _, conv := range all {
		if conv.ID == id {
			found = true
			continue
		}
		kept = append(kept, conv)
	}
	if !found {
		return false, nil
	}
	if err := r.saveAll(kept); err != nil {
		return false, err
	}
	return true, nil
}
