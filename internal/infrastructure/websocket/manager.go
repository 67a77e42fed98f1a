package websocket

import (
	"context"
	"log"
	"sync"
)

// Manager is the presence and room registry plus the broadcast channel. All
// state is in-process and tied to this process's lifetime: empty at start,
// populated at connect, cleared at disconnect. A restart drops every room
// membership and clients are expected to reconnect and rejoin.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connection ID -> client
	users   map[string]map[string]*Client // user ID -> connection ID -> client
	rooms   map[string]map[string]*Client // chat ID -> connection ID -> client

	Register   chan *Client
	Unregister chan *Client
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		users:      make(map[string]map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the registration loop in a goroutine until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(client)
				log.Printf("WebSocket: client registered: user=%s conn=%s", client.UserID, client.ID)

			case client := <-m.Unregister:
				m.removeClient(client)
				log.Printf("WebSocket: client unregistered: user=%s conn=%s", client.UserID, client.ID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// addClient binds the connection to its user. Binding doubles as the implicit
// per-user private room used for direct notifications.
func (m *Manager) addClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients[client.ID] = client
	if m.users[client.UserID] == nil {
		m.users[client.UserID] = make(map[string]*Client)
	}
	m.users[client.UserID][client.ID] = client
}

// removeClient drops the connection from presence and from every room it
// joined. A user with no remaining connections is offline.
func (m *Manager) removeClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	delete(m.clients, client.ID)

	if conns, ok := m.users[client.UserID]; ok {
		delete(conns, client.ID)
		if len(conns) == 0 {
			delete(m.users, client.UserID)
		}
	}

	for chatID, members := range m.rooms {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(m.rooms, chatID)
		}
	}

	close(client.Send)
}

// JoinRoom adds the connection to a chat room. No authorization happens here;
// the ingestion API is where chat membership is enforced.
func (m *Manager) JoinRoom(chatID string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	if m.rooms[chatID] == nil {
		m.rooms[chatID] = make(map[string]*Client)
	}
	m.rooms[chatID][client.ID] = client
}

func (m *Manager) LeaveRoom(chatID string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[chatID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(m.rooms, chatID)
		}
	}
}

// SendToUser delivers a payload to every live connection of a user.
func (m *Manager) SendToUser(userID string, payload []byte) {
	if payload == nil {
		return
	}

	m.mu.RLock()
	var slow []*Client
	for _, client := range m.users[userID] {
		if !trySend(client, payload) {
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	m.dropSlow(slow)
}

// BroadcastToRoom delivers a payload to every connection in the chat room
// except those belonging to excludeUserID.
func (m *Manager) BroadcastToRoom(chatID string, payload []byte, excludeUserID string) {
	if payload == nil {
		return
	}

	m.mu.RLock()
	var slow []*Client
	for _, client := range m.rooms[chatID] {
		if client.UserID == excludeUserID {
			continue
		}
		if !trySend(client, payload) {
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	m.dropSlow(slow)
}

// trySend must run while holding mu: removeClient closes Send under the write
// lock, so a send under either lock can never hit a closed channel. Reports
// false when the buffer is full.
func trySend(client *Client, payload []byte) bool {
	select {
	case client.Send <- payload:
		return true
	default:
		return false
	}
}

// dropSlow disconnects clients whose send buffers are full. Delivery is best
// effort; the channel is not the system of record, so losing it loses no data.
func (m *Manager) dropSlow(slow []*Client) {
	for _, client := range slow {
		log.Printf("WebSocket: send buffer full, dropping client: user=%s conn=%s", client.UserID, client.ID)
		m.removeClient(client)
	}
}

// IsOnline reports whether the user has at least one live connection.
func (m *Manager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users[userID]) > 0
}

// RoomSize returns the number of connections currently in a chat room.
func (m *Manager) RoomSize(chatID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[chatID])
}
