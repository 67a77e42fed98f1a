package repository

import (
	"context"

	"desiredeal/internal/domain/entity"
)

// ChatRepository owns durable Chat and Message state. The operations that
// touch the unread-count ledger (GetOrCreate, AppendMessage, MarkRead,
// DeleteMessage) are transactional at the storage layer: a reader of the chat
// document never observes a counter inconsistent with the message set.
type ChatRepository interface {
	// GetOrCreate resolves the unordered pair {userA, userB} to exactly one
	// chat, creating it if needed. Concurrent calls for the same pair all
	// return the same chat ID.
	GetOrCreate(ctx context.Context, userA, userB string) (*entity.Chat, error)

	GetByID(ctx context.Context, id string) (*entity.Chat, error)

	// ListByUser returns the user's active chats ordered by lastMessageAt
	// descending.
	ListByUser(ctx context.Context, userID string) ([]*entity.Chat, error)

	// AppendMessage persists the message and, in the same transaction, updates
	// the chat's last-message pointer and increments the unread counter of
	// every participant other than the sender. Returns the updated chat.
	AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error)

	// MessagesByChat returns the full history ascending by creation time.
	MessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error)

	// MarkRead flags every unread message not sent by readerID as read,
	// appends one receipt per message, and zeroes the reader's unread counter.
	// Idempotent. Returns the IDs of messages newly marked.
	MarkRead(ctx context.Context, chatID, readerID string) ([]string, error)

	GetMessage(ctx context.Context, messageID string) (*entity.Message, error)

	// DeleteMessage hard-deletes the message. If it was still unread, the
	// recipients' unread counters are decremented in the same transaction.
	DeleteMessage(ctx context.Context, messageID string) error

	// TotalUnread sums the user's unread counters across all active chats.
	TotalUnread(ctx context.Context, userID string) (int, error)
}
