package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desiredeal/internal/domain/entity"
	"desiredeal/pkg/errors"
)

// fakeChatRepo is an in-memory stand-in that honors the same transactional
// contract as the Firestore implementation: counter mutations happen together
// with the message mutations that justify them, under one lock.
type fakeChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*entity.Chat
	pairs    map[string]string
	messages map[string]*entity.Message
	order    []string
	seq      int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:    make(map[string]*entity.Chat),
		pairs:    make(map[string]string),
		messages: make(map[string]*entity.Message),
	}
}

func cloneChat(c *entity.Chat) *entity.Chat {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		cp.UnreadCount[k] = v
	}
	return &cp
}

func cloneMessage(m *entity.Message) *entity.Message {
	cp := *m
	cp.ReadBy = append([]entity.ReadReceipt(nil), m.ReadBy...)
	return &cp
}

func (r *fakeChatRepo) GetOrCreate(ctx context.Context, userA, userB string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entity.PairKey(userA, userB)
	if id, ok := r.pairs[key]; ok {
		chat := r.chats[id]
		chat.IsActive = true
		return cloneChat(chat), nil
	}

	r.seq++
	now := time.Now()
	chat := &entity.Chat{
		ID:            fmt.Sprintf("chat-%d", r.seq),
		Participants:  []string{userA, userB},
		PairKey:       key,
		UnreadCount:   map[string]int{userA: 0, userB: 0},
		IsActive:      true,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.chats[chat.ID] = chat
	r.pairs[key] = chat.ID
	return cloneChat(chat), nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(chat), nil
}

func (r *fakeChatRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Chat
	for _, chat := range r.chats {
		if chat.IsActive && chat.HasParticipant(userID) {
			out = append(out, cloneChat(chat))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (r *fakeChatRepo) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[message.ChatID]
	if !ok || !chat.IsActive {
		return nil, errors.NotFound("Chat", nil)
	}

	r.seq++
	message.ID = fmt.Sprintf("msg-%d", r.seq)
	message.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)

	r.messages[message.ID] = cloneMessage(message)
	r.order = append(r.order, message.ID)

	chat.LastMessageID = message.ID
	chat.LastMessage = message.Content
	chat.LastMessageAt = message.CreatedAt
	chat.UpdatedAt = message.CreatedAt
	for _, p := range chat.Participants {
		if p != message.SenderID {
			chat.UnreadCount[p]++
		}
	}
	return cloneChat(chat), nil
}

func (r *fakeChatRepo) MessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Message
	for _, id := range r.order {
		if m := r.messages[id]; m != nil && m.ChatID == chatID {
			out = append(out, cloneMessage(m))
		}
	}
	return out, nil
}

func (r *fakeChatRepo) MarkRead(ctx context.Context, chatID, readerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}

	var marked []string
	for _, id := range r.order {
		m := r.messages[id]
		if m == nil || m.ChatID != chatID || m.SenderID == readerID || m.IsRead {
			continue
		}
		m.IsRead = true
		m.ReadBy = append(m.ReadBy, entity.ReadReceipt{UserID: readerID, ReadAt: time.Now()})
		marked = append(marked, id)
	}
	chat.UnreadCount[readerID] = 0
	return marked, nil
}

func (r *fakeChatRepo) GetMessage(ctx context.Context, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return cloneMessage(m), nil
}

func (r *fakeChatRepo) DeleteMessage(ctx context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[messageID]
	if !ok {
		return errors.NotFound("Message", nil)
	}

	if chat, ok := r.chats[m.ChatID]; ok && !m.IsRead {
		for _, p := range chat.Participants {
			if p != m.SenderID && chat.UnreadCount[p] > 0 {
				chat.UnreadCount[p]--
			}
		}
	}

	delete(r.messages, messageID)
	for i, id := range r.order {
		if id == messageID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeChatRepo) TotalUnread(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, chat := range r.chats {
		if chat.IsActive && chat.HasParticipant(userID) {
			total += chat.UnreadCount[userID]
		}
	}
	return total, nil
}

func (r *fakeChatRepo) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type fakeUserRepo struct {
	users map[string]*entity.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return u, nil
}

type recordedBroadcast struct {
	chatID  string
	payload string
	exclude string
}

type recordedDirect struct {
	userID  string
	payload string
}

type fakeNotifier struct {
	mu         sync.Mutex
	broadcasts []recordedBroadcast
	directs    []recordedDirect
}

func (n *fakeNotifier) BroadcastToRoom(chatID string, payload []byte, excludeUserID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, recordedBroadcast{chatID, string(payload), excludeUserID})
}

func (n *fakeNotifier) SendToUser(userID string, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.directs = append(n.directs, recordedDirect{userID, string(payload)})
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = nil
	n.directs = nil
}

type fakeUploader struct {
	failErr error
}

func (u *fakeUploader) UploadImage(ctx context.Context, file io.Reader, mimeType string) (string, error) {
	if u.failErr != nil {
		return "", u.failErr
	}
	io.Copy(io.Discard, file)
	return "https://storage.example.com/chat-images/fake.png", nil
}

type fixture struct {
	uc       *ChatUseCase
	repo     *fakeChatRepo
	notifier *fakeNotifier
	uploader *fakeUploader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeChatRepo()
	users := &fakeUserRepo{users: map[string]*entity.User{
		"alice": {ID: "alice", Username: "alice"},
		"bob":   {ID: "bob", Username: "bob"},
		"carol": {ID: "carol", Username: "carol"},
	}}
	notifier := &fakeNotifier{}
	uploader := &fakeUploader{}

	return &fixture{
		uc:       NewChatUseCase(repo, users, uploader, notifier, 0),
		repo:     repo,
		notifier: notifier,
		uploader: uploader,
	}
}

func (f *fixture) chatBetween(t *testing.T, a, b string) *entity.Chat {
	t.Helper()
	chat, err := f.repo.GetOrCreate(context.Background(), a, b)
	require.NoError(t, err)
	return chat
}

func TestGetOrCreateChatRejectsSelfChat(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.GetOrCreateChat(context.Background(), "alice", "alice")

	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestGetOrCreateChatUnknownParticipant(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.GetOrCreateChat(context.Background(), "alice", "nobody")

	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestGetOrCreateChatIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.uc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	// Same pair from the other side resolves to the same chat.
	second, err := f.uc.GetOrCreateChat(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Chat.ID, second.Chat.ID)
	assert.Equal(t, "alice", second.OtherUser.ID)
}

func TestGetOrCreateChatConcurrent(t *testing.T) {
	f := newFixture(t)

	ids := make([]string, 10)
	errs := make([]error, 10)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.uc.GetOrCreateChat(context.Background(), "alice", "bob")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = resp.Chat.ID
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestSendMessageUpdatesLedgerAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	msg, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{
		ChatID:  chat.ID,
		Content: "hello bob",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MessageTypeText, msg.Type)
	assert.Equal(t, "alice", msg.Sender.ID)

	// Recipient's counter went up, sender's did not.
	updated, err := f.repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UnreadCount["bob"])
	assert.Equal(t, 0, updated.UnreadCount["alice"])
	assert.Equal(t, "hello bob", updated.LastMessage)

	// Room broadcast excludes the sender; the notification goes to bob only.
	require.Len(t, f.notifier.broadcasts, 1)
	assert.Equal(t, chat.ID, f.notifier.broadcasts[0].chatID)
	assert.Equal(t, "alice", f.notifier.broadcasts[0].exclude)
	assert.Contains(t, f.notifier.broadcasts[0].payload, "message-received")
	require.Len(t, f.notifier.directs, 1)
	assert.Equal(t, "bob", f.notifier.directs[0].userID)
	assert.Contains(t, f.notifier.directs[0].payload, "new-message-notification")
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	f := newFixture(t)
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendMessage(context.Background(), "alice", SendMessageInput{
		ChatID:  chat.ID,
		Content: "   ",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageNonParticipantForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendMessage(ctx, "carol", SendMessageInput{
		ChatID:  chat.ID,
		Content: "let me in",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// Nothing was persisted or announced.
	assert.Equal(t, 0, f.repo.messageCount())
	assert.Empty(t, f.notifier.broadcasts)
	assert.Empty(t, f.notifier.directs)
}

func TestSendMessageRejectsCrossChatReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chatAB := f.chatBetween(t, "alice", "bob")
	chatAC := f.chatBetween(t, "alice", "carol")

	original, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{
		ChatID:  chatAB.ID,
		Content: "original",
	})
	require.NoError(t, err)

	_, err = f.uc.SendMessage(ctx, "alice", SendMessageInput{
		ChatID:  chatAC.ID,
		Content: "reply in the wrong chat",
		ReplyTo: original.ID,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageReplyHydration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	original, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{
		ChatID:  chat.ID,
		Content: "original",
	})
	require.NoError(t, err)

	reply, err := f.uc.SendMessage(ctx, "bob", SendMessageInput{
		ChatID:  chat.ID,
		Content: "replying",
		ReplyTo: original.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, original.ID, reply.ReplyTo.ID)
	assert.Equal(t, original.ID, reply.ReplyToID)
}

func TestGetChatMessagesMarksRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	for i := 0; i < 3; i++ {
		_, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{
			ChatID:  chat.ID,
			Content: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}
	f.notifier.reset()

	messages, err := f.uc.GetChatMessages(ctx, "bob", chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// Opening the chat is the read acknowledgement: the caller sees
	// everything already marked.
	for _, m := range messages {
		assert.True(t, m.IsRead)
		assert.True(t, m.HasReceipt("bob"))
		assert.Equal(t, "alice", m.Sender.ID)
	}

	updated, err := f.repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UnreadCount["bob"])

	require.Len(t, f.notifier.broadcasts, 1)
	assert.Contains(t, f.notifier.broadcasts[0].payload, "messages-read")
	assert.Equal(t, "bob", f.notifier.broadcasts[0].exclude)
}

func TestMarkChatAsReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chat.ID, Content: "hi"})
	require.NoError(t, err)
	f.notifier.reset()

	require.NoError(t, f.uc.MarkChatAsRead(ctx, "bob", chat.ID))
	assert.Len(t, f.notifier.broadcasts, 1)

	// Second call finds nothing unread and stays silent.
	require.NoError(t, f.uc.MarkChatAsRead(ctx, "bob", chat.ID))
	assert.Len(t, f.notifier.broadcasts, 1)

	messages, err := f.repo.MessagesByChat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages[0].ReadBy, 1, "no duplicate receipts")
}

func TestMarkReadDoesNotAffectOwnMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chat.ID, Content: "hi"})
	require.NoError(t, err)

	// Alice re-reading her own chat does not consume bob's unread state.
	require.NoError(t, f.uc.MarkChatAsRead(ctx, "alice", chat.ID))

	updated, err := f.repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UnreadCount["bob"])

	messages, err := f.repo.MessagesByChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, messages[0].IsRead)
}

func TestDeleteMessageOnlyBySender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	msg, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chat.ID, Content: "oops"})
	require.NoError(t, err)

	err = f.uc.DeleteMessage(ctx, "bob", msg.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
	assert.Equal(t, 1, f.repo.messageCount())

	require.NoError(t, f.uc.DeleteMessage(ctx, "alice", msg.ID))
	assert.Equal(t, 0, f.repo.messageCount())
}

func TestDeleteUnreadMessageDecrementsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	msg, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chat.ID, Content: "oops"})
	require.NoError(t, err)

	require.NoError(t, f.uc.DeleteMessage(ctx, "alice", msg.ID))

	// Bob never saw it, so his badge must not keep counting it.
	updated, err := f.repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UnreadCount["bob"])
}

func TestDeleteReadMessageLeavesCounterAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	msg, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chat.ID, Content: "first"})
	require.NoError(t, err)
	require.NoError(t, f.uc.MarkChatAsRead(ctx, "bob", chat.ID))

	_, err = f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chat.ID, Content: "second"})
	require.NoError(t, err)

	// Deleting the already-read first message must not eat the unread count
	// of the second.
	require.NoError(t, f.uc.DeleteMessage(ctx, "alice", msg.ID))

	updated, err := f.repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UnreadCount["bob"])
}

func TestSendImageMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	msg, err := f.uc.SendImageMessage(ctx, "alice", SendImageInput{
		ChatID:   chat.ID,
		File:     strings.NewReader("fake image bytes"),
		Filename: "cat.png",
		Size:     16,
		MimeType: "image/png",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.MessageTypeImage, msg.Type)
	assert.Equal(t, "Image", msg.Content, "default caption")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "https://storage.example.com/chat-images/fake.png", msg.Attachments[0].URL)
	assert.Equal(t, "image/png", msg.Attachments[0].MimeType)
}

func TestSendImageMessageRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendImageMessage(context.Background(), "alice", SendImageInput{
		ChatID:   chat.ID,
		File:     strings.NewReader("%PDF-1.4"),
		Size:     8,
		MimeType: "application/pdf",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendImageMessageRejectsOversize(t *testing.T) {
	f := newFixture(t)
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendImageMessage(context.Background(), "alice", SendImageInput{
		ChatID:   chat.ID,
		File:     strings.NewReader("tiny"),
		Size:     6 * 1024 * 1024,
		MimeType: "image/png",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendImageMessageHonorsConfiguredLimit(t *testing.T) {
	f := newFixture(t)
	f.uc.maxUploadSize = 10 * 1024 * 1024
	chat := f.chatBetween(t, "alice", "bob")

	// 6MB is over the default cap but within the configured one.
	msg, err := f.uc.SendImageMessage(context.Background(), "alice", SendImageInput{
		ChatID:   chat.ID,
		File:     strings.NewReader("fake image bytes"),
		Size:     6 * 1024 * 1024,
		MimeType: "image/png",
	})
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 1)

	_, err = f.uc.SendImageMessage(context.Background(), "alice", SendImageInput{
		ChatID:   chat.ID,
		File:     strings.NewReader("fake image bytes"),
		Size:     11 * 1024 * 1024,
		MimeType: "image/png",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendImageMessageUploadFailure(t *testing.T) {
	f := newFixture(t)
	chat := f.chatBetween(t, "alice", "bob")
	f.uploader.failErr = fmt.Errorf("bucket unavailable")

	_, err := f.uc.SendImageMessage(context.Background(), "alice", SendImageInput{
		ChatID:   chat.ID,
		File:     strings.NewReader("fake image bytes"),
		Size:     16,
		MimeType: "image/png",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "UPSTREAM_FAILURE"))
	assert.Equal(t, 0, f.repo.messageCount(), "nothing persisted when the blob store fails")
}

func TestSendCredentialsMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := f.chatBetween(t, "alice", "bob")

	msg, err := f.uc.SendCredentialsMessage(ctx, "alice", SendCredentialsInput{
		ChatID: chat.ID,
		Credentials: entity.Credentials{
			Type:        entity.CredentialTypeUPIID,
			Title:       "Payment handle",
			IsEncrypted: true, // callers cannot opt in to a flag nothing honors
			UPI:         &entity.UPIID{Handle: "alice@upi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.MessageTypeCredentials, msg.Type)
	assert.Equal(t, "Shared upi_id credentials", msg.Content)
	require.NotNil(t, msg.Credentials)
	assert.False(t, msg.Credentials.IsEncrypted)
}

func TestSendCredentialsMessageRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	chat := f.chatBetween(t, "alice", "bob")

	_, err := f.uc.SendCredentialsMessage(context.Background(), "alice", SendCredentialsInput{
		ChatID: chat.ID,
		Credentials: entity.Credentials{
			Type:  entity.CredentialTypeBankDetails,
			Title: "Bank",
		},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestTotalUnreadAcrossChats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chatAB := f.chatBetween(t, "alice", "bob")
	chatCB := f.chatBetween(t, "carol", "bob")

	for i := 0; i < 2; i++ {
		_, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chatAB.ID, Content: "hi"})
		require.NoError(t, err)
	}
	_, err := f.uc.SendMessage(ctx, "carol", SendMessageInput{ChatID: chatCB.ID, Content: "hi"})
	require.NoError(t, err)

	total, err := f.uc.TotalUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.NoError(t, f.uc.MarkChatAsRead(ctx, "bob", chatAB.ID))

	total, err = f.uc.TotalUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListChatsOrderAndAnnotations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chatAB := f.chatBetween(t, "alice", "bob")
	chatCB := f.chatBetween(t, "carol", "bob")

	_, err := f.uc.SendMessage(ctx, "alice", SendMessageInput{ChatID: chatAB.ID, Content: "older"})
	require.NoError(t, err)
	_, err = f.uc.SendMessage(ctx, "carol", SendMessageInput{ChatID: chatCB.ID, Content: "newer"})
	require.NoError(t, err)

	chats, err := f.uc.ListChats(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, chatCB.ID, chats[0].Chat.ID, "most recent activity first")
	assert.Equal(t, "carol", chats[0].OtherUser.ID)
	assert.Equal(t, 1, chats[0].UnreadCount)
	assert.Equal(t, 1, chats[1].UnreadCount)
}
