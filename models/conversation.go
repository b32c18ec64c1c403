package models

import (
	"strings"
	"time"
)

// Conversation is one imported chat thread. Messages are ordered; that order is
// the canonical conversation order and survives every read/write round trip.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" conform:"trim"`
	Category    string    `json:"category" conform:"trim"`
	Tags        []string  `json:"tags"`
	DateCreated string    `json:"date_created"`
	Messages    []Message `json:"messages"`

	// MessageCount is only populated on list-form payloads from the remote
	// service, which may omit message bodies. Whenever Messages are present the
	// count is recomputed from them instead.
	MessageCount int `json:"message_count,omitempty"`
}

// ConversationSummary is the list-rendering shape: no message bodies, but the
// derived count and preview recomputed from the record.
type ConversationSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	DateCreated  string   `json:"date_created"`
	MessageCount int      `json:"message_count"`
	PreviewText  string   `json:"preview_text"`
}

// ConversationDraft is the payload for creating a conversation. The store
// assigns id and date_created; caller-supplied ids are never trusted.
type ConversationDraft struct {
	Title    string    `json:"title" conform:"trim"`
	Category string    `json:"category" conform:"trim"`
	Tags     []string  `json:"tags"`
	Messages []Message `json:"messages"`
}

// ConversationUpdate is a field-merge patch. Nil fields are left untouched;
// messages are immutable after creation and cannot appear here.
type ConversationUpdate struct {
	Title    *string   `json:"title,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

func (c *Conversation) CountMessages() int {
	if len(c.Messages) > 0 {
		return len(c.Messages)
	}
	return c.MessageCount
}

// PreviewText returns the content of the last message, or a placeholder.
func (c *Conversation) PreviewText() string {
	if len(c.Messages) == 0 {
		return "No messages"
	}
	last := c.Messages[len(c.Messages)-1]
	if last.Content == "" {
		return "Empty message"
	}
	return last.Content
}

func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		Category:     c.Category,
		Tags:         c.Tags,
		DateCreated:  c.DateCreated,
		MessageCount: c.CountMessages(),
		PreviewText:  c.PreviewText(),
	}
}

// Matches reports whether term is a case-insensitive substring of the title,
// of any message content, or of any tag.
func (c *Conversation) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(c.Title), term) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), term) {
			return true
		}
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// CreatedAt parses date_created; the zero time is returned for anything
// unparseable so date sorting stays total.
func (c *Conversation) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, c.DateCreated)
	if err != nil {
		return time.Time{}
	}
	return t
}
