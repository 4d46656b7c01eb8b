package ws

import (
	"encoding/json"
	"sync"
)

// ChatRoom is one room per chat (the two matched participants). A user
// may hold several sockets in the room at once.
type ChatRoom struct {
	ChatID uint

	mu      sync.RWMutex
	members map[*Client]struct{}
}

func NewChatRoom(chatID uint) *ChatRoom {
	return &ChatRoom{ChatID: chatID, members: make(map[*Client]struct{})}
}

func (r *ChatRoom) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[c] = struct{}{}
}

func (r *ChatRoom) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, c)
}

func (r *ChatRoom) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast sends to every room member; pass from to exclude the sender's
// own socket (typing relays), or nil to include everyone (receipts).
func (r *ChatRoom) Broadcast(from *Client, event Event) {
	data, _ := json.Marshal(event)
	r.mu.RLock()
	members := make([]*Client, 0, len(r.members))
	for c := range r.members {
		if c != from {
			members = append(members, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range members {
		c.Deliver(data)
	}
}

// RoomSet holds the per-chat rooms.
type RoomSet struct {
	mu    sync.RWMutex
	rooms map[uint]*ChatRoom
}

func NewRoomSet() *RoomSet {
	return &RoomSet{rooms: make(map[uint]*ChatRoom)}
}

func (s *RoomSet) GetOrCreate(chatID uint) *ChatRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[chatID]; ok {
		return r
	}
	r := NewChatRoom(chatID)
	s.rooms[chatID] = r
	return r
}

func (s *RoomSet) Get(chatID uint) *ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[chatID]
}

// Prune drops an empty room; called after the last member leaves.
func (s *RoomSet) Prune(chatID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[chatID]; ok && r.MemberCount() == 0 {
		delete(s.rooms, chatID)
	}
}
