package models

import (
	"strings"
	"time"
)

// Message is one utterance inside a conversation. Timestamp is kept as the
// string the OCR boundary produced; it is not guaranteed to be a valid date.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	IsUser    bool   `json:"is_user"`
}

// IsSelfSender reports whether sender names the archive owner ("You"/"Me" by
// default), compared case-insensitively. IsUser is always derived from this,
// never set directly.
func IsSelfSender(sender string, selfSenders []string) bool {
	for _, s := range selfSenders {
		if strings.EqualFold(strings.TrimSpace(sender), s) {
			return true
		}
	}
	return false
}

// messageTimeLayouts covers the timestamp shapes the OCR service has been seen
// to emit, most specific first.
var messageTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp attempts to read the message timestamp as a date in the local
// time zone. The ok result is false when no layout matches; callers must then
// fall back to displaying the raw string.
func (m *Message) ParseTimestamp() (time.Time, bool) {
	raw := strings.TrimSpace(m.Timestamp)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range messageTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t.In(time.Local), true
		}
	}
	return time.Time{}, false
}
