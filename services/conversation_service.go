package services

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/techagentng/memorybox/config"
	"github.com/techagentng/memorybox/db"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders accepted by the list view.
const (
	SortByDate     = "date"
	SortByTitle    = "title"
	SortByMessages = "messages"
)

// CategoryAll is the sentinel that disables category filtering.
const CategoryAll = "All"

// DayGroup is a presentation grouping of consecutive messages sharing a
// calendar day. It never reorders or drops messages.
type DayGroup struct {
	Label    string           `json:"label"`
	Messages []models.Message `json:"messages"`
}

// ConversationListing is what the list view renders: the projected summaries
// plus the category vocabulary observed in the loaded collection.
type ConversationListing struct {
	Conversations []models.ConversationSummary `json:"conversations"`
	Categories    []string                     `json:"categories"`
}

// ConversationDetail is the detail view shape: the full record, the recomputed
// message count and the day grouping.
type ConversationDetail struct {
	models.Conversation
	MessageCount int        `json:"message_count"`
	DayGroups    []DayGroup `json:"day_groups"`
}

// ConversationService interface
type ConversationService interface {
	ListConversations(ctx context.Context, search, category, sortBy string) (*ConversationListing, error)
	GetConversation(ctx context.Context, id string) (*ConversationDetail, error)
	EditConversation(ctx context.Context, id, title, category string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) (bool, error)
}

// conversationService struct
type conversationService struct {
	Config *config.Config
	store  db.ConversationStore
}

// NewConversationService creates a new instance of ConversationService on top
// of whichever store the deployment mode selected.
func NewConversationService(store db.ConversationStore, conf *config.Config) ConversationService {
	return &conversationService{
		Config: conf,
		store:  store,
	}
}

func (s *conversationService) ListConversations(ctx context.Context, search, category, sortBy string) (*ConversationListing, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	projected := Project(all, search, category, sortBy)
	summaries := make([]models.ConversationSummary, 0, len(projected))
	for i := range projected {
		summaries = append(summaries, projected[i].Summary())
	}

	return &ConversationListing{
		Conversations: summaries,
		Categories:    Categories(all),
	}, nil
}

func (s *conversationService) GetConversation(ctx context.Context, id string) (*ConversationDetail, error) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConversationDetail{
		Conversation: *conv,
		MessageCount: conv.CountMessages(),
		DayGroups:    GroupMessagesByDay(conv.Messages),
	}, nil
}

// EditConversation mutates title and category only. Validation happens here,
// before any store call, so an invalid edit never reaches the network.
func (s *conversationService) EditConversation(ctx context.Context, id, title, category string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	category = strings.TrimSpace(category)
	if title == "" {
		return nil, errs.New("please provide a title", http.StatusBadRequest)
	}
	if category == "" {
		return nil, errs.New("please select a category", http.StatusBadRequest)
	}

	return s.store.Update(ctx, id, models.ConversationUpdate{
		Title:    &title,
		Category: &category,
	})
}

func (s *conversationService) DeleteConversation(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

// Project derives the list view from its three inputs. It is pure: the same
// collection, search term, category and sort order always produce the same
// result, with no cached intermediate state. Category filter and search are
// independent predicates, so their order does not affect the outcome.
func Project(all []models.Conversation, search, category, sortBy string) []models.Conversation {
	result := make([]models.Conversation, 0, len(all))
	for _, conv := range all {
		if category != "" && category != CategoryAll && conv.Category != category {
			continue
		}
		if !conv.Matches(strings.TrimSpace(search)) {
			continue
		}
		result = append(result, conv)
	}

	switch sortBy {
	case SortByTitle:
		col := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(result, func(i, j int) bool {
			return col.CompareString(result[i].Title, result[j].Title) < 0
		})
	case SortByMessages:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CountMessages() > result[j].CountMessages()
		})
	default: // newest first
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt().After(result[j].CreatedAt())
		})
	}
	return result
}

// Categories lists the distinct category values observed in the collection,
// in first-seen order, always prefixed with the "All" sentinel.
func Categories(all []models.Conversation) []string {
	categories := []string{CategoryAll}
	seen := map[string]bool{}
	for _, conv := range all {
		if conv.Category == "" || seen[conv.Category] {
			continue
		}
		seen[conv.Category] = true
		categories = append(categories, conv.Category)
	}
	return categories
}

// GroupMessagesByDay inserts a day boundary before message i when i is the
// first message or its calendar date (local zone) differs from the previous
// parseable one. Messages whose timestamps cannot be parsed stay in the
// current group and keep their raw timestamp for display.
func GroupMessagesByDay(messages []models.Message) []DayGroup {
	groups := []DayGroup{}
	var lastDay string
	haveDay := false

	for i := range messages {
		msg := messages[i]
		t, ok := msg.ParseTimestamp()
		day := ""
		if ok {
			day = t.Format("2006-01-02")
		}

		startGroup := i == 0 || (ok && haveDay && day != lastDay)
		if startGroup {
			groups = append(groups, DayGroup{Label: dayLabel(msg, t, ok)})
		}
		groups[len(groups)-1].Messages = append(groups[len(groups)-1].Messages, msg)

		if ok {
			lastDay = day
			haveDay = true
		}
	}
	return groups
}

// dayLabel renders the separator. An unparseable timestamp is shown raw
// rather than as "Invalid Date"; an absent one falls back to a placeholder.
func dayLabel(msg models.Message, t time.Time, ok bool) string {
	if ok {
		return t.Format("January 2, 2006")
	}
	if strings.TrimSpace(msg.Timestamp) != "" {
		return msg.Timestamp
	}
	return "Unknown date"
}
