package entity

import "time"

const (
	MessageTypeText        = "text"
	MessageTypeImage       = "image"
	MessageTypeCredentials = "credentials"
	MessageTypeFile        = "file"
)

type Attachment struct {
	Type     string `json:"type" firestore:"type"`
	URL      string `json:"url" firestore:"url"`
	Filename string `json:"filename,omitempty" firestore:"filename,omitempty"`
	Size     int64  `json:"size,omitempty" firestore:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty" firestore:"mimeType,omitempty"`
}

type ReadReceipt struct {
	UserID string    `json:"user" firestore:"user"`
	ReadAt time.Time `json:"read_at" firestore:"readAt"`
}

// Message is immutable after creation except for the false->true isRead
// transition (with its append-only receipt) and hard deletion by the sender.
type Message struct {
	ID          string        `json:"id" firestore:"id"`
	ChatID      string        `json:"chat_id" firestore:"chatId"`
	SenderID    string        `json:"sender" firestore:"sender"`
	Content     string        `json:"content" firestore:"content"`
	Type        string        `json:"message_type" firestore:"messageType"`
	Attachments []Attachment  `json:"attachments,omitempty" firestore:"attachments,omitempty"`
	Credentials *Credentials  `json:"credentials,omitempty" firestore:"credentials,omitempty"`
	IsRead      bool          `json:"is_read" firestore:"isRead"`
	ReadBy      []ReadReceipt `json:"read_by" firestore:"readBy"`
	ReplyToID   string        `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	CreatedAt   time.Time     `json:"created_at" firestore:"createdAt"`
}

// HasReceipt reports whether userID already acknowledged this message. Used to
// keep mark-read idempotent.
func (m *Message) HasReceipt(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
