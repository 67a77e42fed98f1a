package entity

import (
	"sort"
	"strings"
	"time"
)

// Chat is a two-party conversation. UnreadCount maps each participant to the
// number of messages from the other participant they have not read yet; it is
// only ever mutated together with the message write that justifies the change.
type Chat struct {
	ID            string         `json:"id" firestore:"id"`
	Participants  []string       `json:"participants" firestore:"participants"`
	PairKey       string         `json:"-" firestore:"pairKey"`
	LastMessageID string         `json:"last_message_id,omitempty" firestore:"lastMessageId,omitempty"`
	LastMessage   string         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time      `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount   map[string]int `json:"unread_count" firestore:"unreadCount"`
	IsActive      bool           `json:"is_active" firestore:"isActive"`
	CreatedAt     time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// PairKey normalizes an unordered participant pair into a stable key. The key
// doubles as the uniqueness guard for one-chat-per-pair.
func PairKey(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID. Empty string if
// userID is not a participant.
func (c *Chat) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
