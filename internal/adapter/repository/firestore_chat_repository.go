package repository

import (
	"context"
	stderrors "errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"desiredeal/internal/domain/entity"
	"desiredeal/internal/domain/repository"
	"desiredeal/pkg/errors"
	"desiredeal/pkg/logger"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
	pairsCollection    = "chat_pairs"
)

// chatPair is the uniqueness guard for one-chat-per-pair: its document ID is
// the normalized pair key, so two transactions racing on the same pair contend
// on the same document and only one create wins.
type chatPair struct {
	ChatID string `firestore:"chatId"`
}

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

// passthrough keeps AppErrors produced inside a transaction intact instead of
// double-wrapping them on the way out.
func passthrough(err error, fallback func(string, error) *errors.AppError, message string) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return fallback(message, err)
}

func (r *firestoreChatRepository) GetOrCreate(ctx context.Context, userA, userB string) (*entity.Chat, error) {
	pairKey := entity.PairKey(userA, userB)
	var chat entity.Chat

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		pairRef := r.client.Collection(pairsCollection).Doc(pairKey)
		pairDoc, err := tx.Get(pairRef)

		if err == nil {
			var pair chatPair
			if err := pairDoc.DataTo(&pair); err != nil {
				return errors.Internal("Failed to parse chat pair data", err)
			}

			chatRef := r.client.Collection(chatsCollection).Doc(pair.ChatID)
			chatDoc, err := tx.Get(chatRef)
			if err != nil {
				return errors.Internal("Failed to get chat for pair", err)
			}
			if err := chatDoc.DataTo(&chat); err != nil {
				return errors.Internal("Failed to parse chat data", err)
			}

			// The pair key is permanently bound to this chat: a deactivated
			// chat is revived rather than duplicated.
			if !chat.IsActive {
				chat.IsActive = true
				chat.UpdatedAt = time.Now()
				return tx.Set(chatRef, &chat)
			}
			return nil
		}

		if status.Code(err) != codes.NotFound {
			return errors.Internal("Failed to look up chat pair", err)
		}

		now := time.Now()
		chat = entity.Chat{
			ID:           uuid.New().String(),
			Participants: []string{userA, userB},
			PairKey:      pairKey,
			UnreadCount:  map[string]int{userA: 0, userB: 0},
			IsActive:     true,
			// Empty chats sort by creation time in the chat list.
			LastMessageAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := tx.Set(r.client.Collection(chatsCollection).Doc(chat.ID), &chat); err != nil {
			return err
		}
		return tx.Set(pairRef, chatPair{ChatID: chat.ID})
	})

	if err != nil {
		return nil, passthrough(err, errors.Internal, "Failed to get or create chat")
	}
	return &chat, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection(chatsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	return &chat, nil
}

func (r *firestoreChatRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Chat, error) {
	query := r.client.Collection(chatsCollection).
		Where("participants", "array-contains", userID).
		Where("isActive", "==", true).
		OrderBy("lastMessageAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to fetch chats", err)
	}

	var chats []*entity.Chat
	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Error parsing chat data for user %s: %v", userID, err)
			continue // Skip bad data instead of failing
		}
		chats = append(chats, &chat)
	}

	logger.Debug("Fetched %d chats for user %s", len(chats), userID)

	return chats, nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()

	var chat entity.Chat

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		chatRef := r.client.Collection(chatsCollection).Doc(message.ChatID)
		doc, err := tx.Get(chatRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Chat", err)
			}
			return errors.Internal("Failed to get chat", err)
		}
		if err := doc.DataTo(&chat); err != nil {
			return errors.Internal("Failed to parse chat data", err)
		}
		if !chat.IsActive {
			return errors.NotFound("Chat", nil)
		}

		if chat.UnreadCount == nil {
			chat.UnreadCount = make(map[string]int)
		}
		chat.LastMessageID = message.ID
		chat.LastMessage = message.Content
		chat.LastMessageAt = message.CreatedAt
		chat.UpdatedAt = message.CreatedAt
		for _, p := range chat.Participants {
			if p != message.SenderID {
				chat.UnreadCount[p]++
			}
		}

		// Message insert and counter update commit together: no window where
		// one exists without the other.
		if err := tx.Set(r.client.Collection(messagesCollection).Doc(message.ID), message); err != nil {
			return err
		}
		return tx.Set(chatRef, &chat)
	})

	if err != nil {
		return nil, passthrough(err, errors.Internal, "Failed to append message")
	}
	return &chat, nil
}

func (r *firestoreChatRepository) MessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	query := r.client.Collection(messagesCollection).
		Where("chatId", "==", chatID).
		OrderBy("createdAt", firestore.Asc)

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Error("Error parsing message data for chat %s: %v", chatID, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID, readerID string) ([]string, error) {
	var marked []string

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		marked = marked[:0] // transaction may retry

		chatRef := r.client.Collection(chatsCollection).Doc(chatID)
		chatDoc, err := tx.Get(chatRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Chat", err)
			}
			return errors.Internal("Failed to get chat", err)
		}
		var chat entity.Chat
		if err := chatDoc.DataTo(&chat); err != nil {
			return errors.Internal("Failed to parse chat data", err)
		}

		query := r.client.Collection(messagesCollection).
			Where("chatId", "==", chatID).
			Where("isRead", "==", false)
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return errors.Internal("Failed to query unread messages", err)
		}

		now := time.Now()
		var updates []*entity.Message
		for _, doc := range docs {
			var msg entity.Message
			if err := doc.DataTo(&msg); err != nil {
				return errors.Internal("Failed to parse message data", err)
			}
			if msg.SenderID == readerID || msg.HasReceipt(readerID) {
				continue
			}
			msg.IsRead = true
			msg.ReadBy = append(msg.ReadBy, entity.ReadReceipt{UserID: readerID, ReadAt: now})
			updates = append(updates, &msg)
		}

		for _, msg := range updates {
			if err := tx.Set(r.client.Collection(messagesCollection).Doc(msg.ID), msg); err != nil {
				return err
			}
			marked = append(marked, msg.ID)
		}

		if chat.UnreadCount == nil {
			chat.UnreadCount = make(map[string]int)
		}
		if chat.UnreadCount[readerID] != 0 || len(updates) > 0 {
			chat.UnreadCount[readerID] = 0
			return tx.Set(chatRef, &chat)
		}
		return nil
	})

	if err != nil {
		return nil, passthrough(err, errors.Internal, "Failed to mark chat as read")
	}
	return marked, nil
}

func (r *firestoreChatRepository) GetMessage(ctx context.Context, messageID string) (*entity.Message, error) {
	doc, err := r.client.Collection(messagesCollection).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreChatRepository) DeleteMessage(ctx context.Context, messageID string) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		msgRef := r.client.Collection(messagesCollection).Doc(messageID)
		msgDoc, err := tx.Get(msgRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", err)
			}
			return errors.Internal("Failed to get message", err)
		}
		var message entity.Message
		if err := msgDoc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}

		// Deleting a still-unread message gives the recipients their counter
		// back, so the ledger never references a missing message.
		if !message.IsRead {
			chatRef := r.client.Collection(chatsCollection).Doc(message.ChatID)
			chatDoc, err := tx.Get(chatRef)
			if err == nil {
				var chat entity.Chat
				if err := chatDoc.DataTo(&chat); err != nil {
					return errors.Internal("Failed to parse chat data", err)
				}
				changed := false
				for _, p := range chat.Participants {
					if p != message.SenderID && chat.UnreadCount[p] > 0 {
						chat.UnreadCount[p]--
						changed = true
					}
				}
				if changed {
					if err := tx.Set(chatRef, &chat); err != nil {
						return err
					}
				}
			} else if status.Code(err) != codes.NotFound {
				return errors.Internal("Failed to get chat", err)
			}
		}

		return tx.Delete(msgRef)
	})

	if err != nil {
		return passthrough(err, errors.Internal, "Failed to delete message")
	}
	return nil
}

func (r *firestoreChatRepository) TotalUnread(ctx context.Context, userID string) (int, error) {
	chats, err := r.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, chat := range chats {
		total += chat.UnreadCount[userID]
	}
	return total, nil
}
