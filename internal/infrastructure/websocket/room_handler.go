package websocket

import (
	"encoding/json"
	"log"
	"time"
)

const typingExpiry = 2 * time.Second

// HandleClientEvent dispatches one inbound event from a connection. Malformed
// events produce an error event back to the sender and nothing else; the
// channel stays up.
func (m *Manager) HandleClientEvent(client *Client, payload []byte) {
	var event inboundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("WebSocket: bad event from %s: %v", client.UserID, err)
		m.sendError(client, "invalid event format")
		return
	}

	switch event.Type {
	case EventJoinChat:
		if event.ChatID == "" {
			m.sendError(client, "missing chat_id")
			return
		}
		m.JoinRoom(event.ChatID, client)
		log.Printf("WebSocket: user %s joined chat %s", client.UserID, event.ChatID)

	case EventLeaveChat:
		if event.ChatID == "" {
			m.sendError(client, "missing chat_id")
			return
		}
		m.LeaveRoom(event.ChatID, client)
		log.Printf("WebSocket: user %s left chat %s", client.UserID, event.ChatID)

	case EventNewMessage:
		m.handleNewMessage(client, event)

	case EventTypingStart:
		m.handleTyping(client, event, true)

	case EventTypingStop:
		m.handleTyping(client, event, false)

	case EventMessageRead:
		m.handleMessageRead(client, event)

	default:
		log.Printf("WebSocket: unknown event type %q from %s", event.Type, client.UserID)
		m.sendError(client, "unknown event type")
	}
}

// handleNewMessage re-broadcasts a client-announced message to the room. The
// message was already persisted through the REST API; this path only mirrors
// the original client-driven fan-out and is lossy by design.
func (m *Manager) handleNewMessage(client *Client, event inboundEvent) {
	if event.ChatID == "" {
		m.sendError(client, "missing chat_id")
		return
	}

	var body struct {
		Message json.RawMessage `json:"message"`
		Content string          `json:"content"`
	}
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &body); err != nil {
			m.sendError(client, "invalid message data")
			return
		}
	}

	received := Marshal(EventMessageReceived, event.ChatID, NewMessagePayload{
		ChatID:  event.ChatID,
		Message: body.Message,
	})
	m.BroadcastToRoom(event.ChatID, received, client.UserID)

	notification := Marshal(EventNewMessageNotification, event.ChatID, NotificationPayload{
		ChatID:   event.ChatID,
		SenderID: client.UserID,
		Message:  Preview(body.Content),
	})
	m.BroadcastToRoom(event.ChatID, notification, client.UserID)
}

// Typing indicators carry no persisted state; the expiry hint lets clients
// clear a stale indicator if the stop event is lost.
func (m *Manager) handleTyping(client *Client, event inboundEvent, started bool) {
	if event.ChatID == "" {
		m.sendError(client, "missing chat_id")
		return
	}

	payload := TypingPayload{
		ChatID: event.ChatID,
		UserID: client.UserID,
	}
	eventType := EventUserStoppedTyping
	if started {
		eventType = EventUserTyping
		payload.ExpiresAt = time.Now().Add(typingExpiry).UTC().Format(time.RFC3339)
	}

	m.BroadcastToRoom(event.ChatID, Marshal(eventType, event.ChatID, payload), client.UserID)
}

func (m *Manager) handleMessageRead(client *Client, event inboundEvent) {
	if event.ChatID == "" {
		m.sendError(client, "missing chat_id")
		return
	}

	var body struct {
		MessageIDs []string `json:"message_ids"`
	}
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &body); err != nil {
			m.sendError(client, "invalid read receipt data")
			return
		}
	}

	receipt := Marshal(EventMessagesRead, event.ChatID, MessagesReadPayload{
		ChatID:     event.ChatID,
		ReaderID:   client.UserID,
		MessageIDs: body.MessageIDs,
	})
	m.BroadcastToRoom(event.ChatID, receipt, client.UserID)
}

func (m *Manager) sendError(client *Client, message string) {
	payload := Marshal(EventError, "", map[string]string{"error": message})

	// Membership check under the lock: an already-unregistered client has a
	// closed Send channel.
	m.mu.RLock()
	delivered := true
	if _, ok := m.clients[client.ID]; ok {
		delivered = trySend(client, payload)
	}
	m.mu.RUnlock()

	if !delivered {
		m.dropSlow([]*Client{client})
	}
}
