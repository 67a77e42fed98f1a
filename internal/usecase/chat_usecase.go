package usecase

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"desiredeal/internal/domain/entity"
	"desiredeal/internal/domain/repository"
	"desiredeal/internal/infrastructure/ratelimit"
	ws "desiredeal/internal/infrastructure/websocket"
	"desiredeal/pkg/errors"
)

const defaultMaxUploadSize = 5 * 1024 * 1024 // 5MB

type ChatUseCase struct {
	chatRepo      repository.ChatRepository
	userRepo      repository.UserRepository
	uploader      Uploader
	notifier      Notifier
	rateLimiter   *ratelimit.RateLimiter
	maxUploadSize int64
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	uploader Uploader,
	notifier Notifier,
	maxUploadSize int64,
) *ChatUseCase {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:      chatRepo,
		userRepo:      userRepo,
		uploader:      uploader,
		notifier:      notifier,
		rateLimiter:   rateLimiter,
		maxUploadSize: maxUploadSize,
	}
}

type SendMessageInput struct {
	ChatID  string
	Content string
	ReplyTo string
}

type SendImageInput struct {
	ChatID   string
	Caption  string
	File     io.Reader
	Filename string
	Size     int64
	MimeType string
}

type SendCredentialsInput struct {
	ChatID      string
	Credentials entity.Credentials
}

// ChatResponse annotates a chat with the caller's own unread count and the
// other participant's profile. The scalar count shadows the embedded map so
// callers never see the other party's counter.
type ChatResponse struct {
	*entity.Chat
	UnreadCount int          `json:"unread_count"`
	OtherUser   *entity.User `json:"other_user,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Sender  *entity.User    `json:"sender_profile,omitempty"`
	ReplyTo *entity.Message `json:"reply_to_message,omitempty"`
}

// GetOrCreateChat resolves the caller's chat with participantID, creating it
// on first contact. Idempotent per unordered pair.
func (uc *ChatUseCase) GetOrCreateChat(ctx context.Context, userID, participantID string) (*ChatResponse, error) {
	if userID == participantID {
		log.Printf("GetOrCreateChat Error: User %s attempted to create chat with themselves", userID)
		return nil, errors.BadRequest("You cannot create a chat with yourself", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(userID, "create_chat")
	if !allowed {
		log.Printf("GetOrCreateChat Rate Limited: User %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before creating another chat", waitTime)
	}

	recipient, err := uc.userRepo.GetByID(ctx, participantID)
	if err != nil {
		log.Printf("GetOrCreateChat Error: Participant %s not found: %v", participantID, err)
		return nil, errors.NotFound("Participant", err)
	}

	chat, err := uc.chatRepo.GetOrCreate(ctx, userID, participantID)
	if err != nil {
		log.Printf("GetOrCreateChat Error: Failed to get or create chat for %s/%s: %v", userID, participantID, err)
		return nil, err
	}

	return &ChatResponse{
		Chat:        chat,
		UnreadCount: chat.UnreadCount[userID],
		OtherUser:   recipient,
	}, nil
}

// ListChats returns the caller's active chats, newest activity first, each
// annotated with the caller's unread count.
func (uc *ChatUseCase) ListChats(ctx context.Context, userID string) ([]*ChatResponse, error) {
	chats, err := uc.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("ListChats Error: Failed to list chats for user %s: %v", userID, err)
		return nil, err
	}

	chatResponses := make([]*ChatResponse, 0, len(chats))
	for _, chat := range chats {
		resp := &ChatResponse{
			Chat:        chat,
			UnreadCount: chat.UnreadCount[userID],
		}

		if otherID := chat.OtherParticipant(userID); otherID != "" {
			otherUser, err := uc.userRepo.GetByID(ctx, otherID)
			if err == nil {
				resp.OtherUser = otherUser
			} else {
				log.Printf("ListChats Warning: Other user %s not found for chat %s: %v", otherID, chat.ID, err)
			}
		}

		chatResponses = append(chatResponses, resp)
	}

	return chatResponses, nil
}

// GetChatMessages returns the full history ascending by time. Side effect:
// everything from the other participant is marked read and the caller's
// unread counter drops to zero before the history is fetched.
func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string) ([]*MessageResponse, error) {
	if _, err := uc.authorizeParticipant(ctx, userID, chatID); err != nil {
		return nil, err
	}

	marked, err := uc.chatRepo.MarkRead(ctx, chatID, userID)
	if err != nil {
		log.Printf("GetChatMessages Error: Failed to mark chat %s as read for user %s: %v", chatID, userID, err)
		return nil, err
	}
	uc.broadcastRead(chatID, userID, marked)

	messages, err := uc.chatRepo.MessagesByChat(ctx, chatID)
	if err != nil {
		log.Printf("GetChatMessages Error: Failed to get messages for chat %s: %v", chatID, err)
		return nil, err
	}

	byID := make(map[string]*entity.Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}
	profiles := make(map[string]*entity.User)

	responses := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp := &MessageResponse{Message: m}

		sender, ok := profiles[m.SenderID]
		if !ok {
			sender, err = uc.userRepo.GetByID(ctx, m.SenderID)
			if err != nil {
				log.Printf("GetChatMessages Warning: Sender %s not found for message %s: %v", m.SenderID, m.ID, err)
			}
			profiles[m.SenderID] = sender
		}
		resp.Sender = sender

		if m.ReplyToID != "" {
			resp.ReplyTo = byID[m.ReplyToID]
		}

		responses = append(responses, resp)
	}

	return responses, nil
}

// SendMessage ingests a text message.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*MessageResponse, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}

	chat, err := uc.authorizeParticipant(ctx, userID, input.ChatID)
	if err != nil {
		return nil, err
	}

	var replyTarget *entity.Message
	if input.ReplyTo != "" {
		replyTarget, err = uc.chatRepo.GetMessage(ctx, input.ReplyTo)
		if err != nil {
			return nil, errors.BadRequest("Reply target not found", err)
		}
		if replyTarget.ChatID != input.ChatID {
			return nil, errors.BadRequest("Reply target belongs to another chat", nil)
		}
	}

	message := &entity.Message{
		ChatID:    input.ChatID,
		SenderID:  userID,
		Content:   input.Content,
		Type:      entity.MessageTypeText,
		ReplyToID: input.ReplyTo,
	}

	resp, err := uc.ingest(ctx, chat, message)
	if err != nil {
		return nil, err
	}
	resp.ReplyTo = replyTarget
	return resp, nil
}

// SendImageMessage validates and stores the image in the blob store, then
// ingests an image message whose first attachment carries the blob URL.
func (uc *ChatUseCase) SendImageMessage(ctx context.Context, userID string, input SendImageInput) (*MessageResponse, error) {
	if input.File == nil {
		return nil, errors.BadRequest("No image provided", nil)
	}
	if !strings.HasPrefix(input.MimeType, "image/") {
		return nil, errors.BadRequest("Only image files are allowed", nil)
	}
	if input.Size > uc.maxUploadSize {
		return nil, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", uc.maxUploadSize/(1024*1024)), nil)
	}

	chat, err := uc.authorizeParticipant(ctx, userID, input.ChatID)
	if err != nil {
		return nil, err
	}

	url, err := uc.uploader.UploadImage(ctx, input.File, input.MimeType)
	if err != nil {
		log.Printf("SendImageMessage Error: Upload failed for chat %s: %v", input.ChatID, err)
		return nil, errors.Upstream("Failed to store image", err)
	}

	content := input.Caption
	if content == "" {
		content = "Image"
	}

	message := &entity.Message{
		ChatID:   input.ChatID,
		SenderID: userID,
		Content:  content,
		Type:     entity.MessageTypeImage,
		Attachments: []entity.Attachment{{
			Type:     "image",
			URL:      url,
			Filename: input.Filename,
			Size:     input.Size,
			MimeType: input.MimeType,
		}},
	}

	return uc.ingest(ctx, chat, message)
}

// SendCredentialsMessage ingests a structured credentials message. Payloads
// are stored unencrypted; isEncrypted is pinned false until encryption lands.
func (uc *ChatUseCase) SendCredentialsMessage(ctx context.Context, userID string, input SendCredentialsInput) (*MessageResponse, error) {
	creds := input.Credentials
	if err := creds.Validate(); err != nil {
		return nil, errors.BadRequest(err.Error(), err)
	}
	creds.IsEncrypted = false

	chat, err := uc.authorizeParticipant(ctx, userID, input.ChatID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ChatID:      input.ChatID,
		SenderID:    userID,
		Content:     fmt.Sprintf("Shared %s credentials", creds.Type),
		Type:        entity.MessageTypeCredentials,
		Credentials: &creds,
	}

	return uc.ingest(ctx, chat, message)
}

// MarkChatAsRead is the idempotent mark-all-read operation.
func (uc *ChatUseCase) MarkChatAsRead(ctx context.Context, userID, chatID string) error {
	if _, err := uc.authorizeParticipant(ctx, userID, chatID); err != nil {
		return err
	}

	marked, err := uc.chatRepo.MarkRead(ctx, chatID, userID)
	if err != nil {
		log.Printf("MarkChatAsRead Error: Failed to mark chat %s as read for user %s: %v", chatID, userID, err)
		return err
	}

	uc.broadcastRead(chatID, userID, marked)
	return nil
}

// DeleteMessage hard-deletes a message; only the sender may do this.
func (uc *ChatUseCase) DeleteMessage(ctx context.Context, userID, messageID string) error {
	message, err := uc.chatRepo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		log.Printf("DeleteMessage Error: User %s is not the sender of message %s", userID, messageID)
		return errors.Forbidden("Cannot delete another user's message", nil)
	}

	return uc.chatRepo.DeleteMessage(ctx, messageID)
}

// TotalUnread aggregates the caller's unread counters across all active chats.
func (uc *ChatUseCase) TotalUnread(ctx context.Context, userID string) (int, error) {
	return uc.chatRepo.TotalUnread(ctx, userID)
}

// authorizeParticipant loads the chat and enforces active membership. Every
// ingestion and read-state operation goes through here.
func (uc *ChatUseCase) authorizeParticipant(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsActive {
		return nil, errors.NotFound("Chat", nil)
	}
	if !chat.HasParticipant(userID) {
		log.Printf("Chat access denied: user %s is not a participant in chat %s", userID, chatID)
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	return chat, nil
}

// ingest persists the message (rate limited), then publishes the realtime
// events server-side so delivery does not depend on the sending client
// surviving past the POST.
func (uc *ChatUseCase) ingest(ctx context.Context, chat *entity.Chat, message *entity.Message) (*MessageResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(message.SenderID, "send_message")
	if !allowed {
		log.Printf("SendMessage Rate Limited: User %s must wait %v", message.SenderID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	sender, err := uc.userRepo.GetByID(ctx, message.SenderID)
	if err != nil {
		log.Printf("SendMessage Error: Sender %s not found: %v", message.SenderID, err)
		return nil, errors.NotFound("Sender", err)
	}

	updatedChat, err := uc.chatRepo.AppendMessage(ctx, message)
	if err != nil {
		log.Printf("SendMessage Error: Failed to append message to chat %s: %v", message.ChatID, err)
		return nil, err
	}

	resp := &MessageResponse{
		Message: message,
		Sender:  sender,
	}

	received := ws.Marshal(ws.EventMessageReceived, updatedChat.ID, ws.NewMessagePayload{
		ChatID:  updatedChat.ID,
		Message: resp,
	})
	uc.notifier.BroadcastToRoom(updatedChat.ID, received, message.SenderID)

	notification := ws.Marshal(ws.EventNewMessageNotification, updatedChat.ID, ws.NotificationPayload{
		ChatID:   updatedChat.ID,
		SenderID: message.SenderID,
		Message:  ws.Preview(message.Content),
	})
	for _, participantID := range updatedChat.Participants {
		if participantID != message.SenderID {
			uc.notifier.SendToUser(participantID, notification)
		}
	}

	return resp, nil
}

func (uc *ChatUseCase) broadcastRead(chatID, readerID string, messageIDs []string) {
	if len(messageIDs) == 0 {
		return
	}
	receipt := ws.Marshal(ws.EventMessagesRead, chatID, ws.MessagesReadPayload{
		ChatID:     chatID,
		ReaderID:   readerID,
		MessageIDs: messageIDs,
	})
	uc.notifier.BroadcastToRoom(chatID, receipt, readerID)
}
