package websocket

import (
	"encoding/json"
	"time"
)

// Client-to-server event types.
const (
	EventJoinChat    = "join-chat"
	EventLeaveChat   = "leave-chat"
	EventNewMessage  = "new-message"
	EventTypingStart = "typing-start"
	EventTypingStop  = "typing-stop"
	EventMessageRead = "message-read"
)

// Server-to-room event types. Room broadcasts always exclude the connections
// of the user that triggered the event.
const (
	EventMessageReceived        = "message-received"
	EventNewMessageNotification = "new-message-notification"
	EventUserTyping             = "user-typing"
	EventUserStoppedTyping      = "user-stopped-typing"
	EventMessagesRead           = "messages-read"
	EventError                  = "error"
)

// Event is the wire envelope for both directions of the realtime channel. The
// channel carries notification traffic only; the REST API is the system of
// record, so a dropped event is never data loss.
type Event struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// inboundEvent defers payload decoding until the event type is known.
type inboundEvent struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type NewMessagePayload struct {
	ChatID  string      `json:"chat_id"`
	Message interface{} `json:"message"`
}

type NotificationPayload struct {
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"` // truncated preview
}

type TypingPayload struct {
	ChatID    string `json:"chat_id"`
	UserID    string `json:"user_id"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type MessagesReadPayload struct {
	ChatID     string   `json:"chat_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids,omitempty"`
}

// Marshal wraps a payload in the event envelope. Marshal failures are
// programming errors; callers treat a nil slice as "nothing to send".
func Marshal(eventType, chatID string, data interface{}) []byte {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil
	}
	return payload
}

const previewLimit = 50

// Preview truncates message content for new-message notifications: at most 50
// characters plus an ellipsis, matching what chat-list previews render.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
