package cache

import (
	"github.com/evermeet/chatsync/internal/entity"
)

// MessageCache holds the ordered message list of the active conversation: an
// ordered slice plus an id index rebuilt on every mutation, so replacing a
// temporary id with the authoritative one is a single list splice and a stale
// id can never linger as a map key.
//
// The cache is not safe for concurrent use; the engine serializes access.
type MessageCache struct {
	conversationId string
	capacity       int
	msgs           []*entity.Message
	index          map[string]int
}

// NewMessageCache creates an empty cache bound to one conversation. capacity
// is the maximum number of retained messages; zero means unbounded.
func NewMessageCache(conversationId string, capacity int) *MessageCache {
	return &MessageCache{
		conversationId: conversationId,
		capacity:       capacity,
		index:          make(map[string]int),
	}
}

// ConversationId returns the conversation this cache is scoped to
func (c *MessageCache) ConversationId() string {
	return c.conversationId
}

// Append adds one message at the end
func (c *MessageCache) Append(msg *entity.Message) {
	if msg == nil || msg.Id == "" {
		return
	}
	if _, dup := c.index[msg.Id]; dup {
		return
	}
	c.msgs = append(c.msgs, msg)
	c.reindex()
	c.enforceBound()
}

// ReplaceId swaps the entry under oldId for msg in place. Identity swap,
// never a field patch: the old id is not a valid key afterwards. Position is
// preserved, which is what keeps submission order stable while remote
// writes complete out of order.
func (c *MessageCache) ReplaceId(oldId string, msg *entity.Message) bool {
	idx, ok := c.index[oldId]
	if !ok || msg == nil || msg.Id == "" {
		return false
	}
	c.msgs[idx] = msg
	c.reindex()
	return true
}

// SetStatus updates the status of one entry
func (c *MessageCache) SetStatus(id string, status int32) bool {
	idx, ok := c.index[id]
	if !ok {
		return false
	}
	c.msgs[idx].Status = status
	return true
}

// Get returns one message by id, or nil
func (c *MessageCache) Get(id string) *entity.Message {
	idx, ok := c.index[id]
	if !ok {
		return nil
	}
	return c.msgs[idx]
}

// Replace swaps the list wholesale for a fresh delivery, then re-appends the
// in-flight optimistic entries the snapshot cannot know about yet. A
// subscription race must never silently drop an unconfirmed send.
func (c *MessageCache) Replace(snapshot []*entity.Message) {
	var pending []*entity.Message
	for _, msg := range c.msgs {
		if msg.Pending() {
			pending = append(pending, msg)
		}
	}

	c.msgs = c.msgs[:0]
	c.index = make(map[string]int, len(snapshot)+len(pending))
	seen := make(map[string]struct{}, len(snapshot))
	for _, msg := range snapshot {
		if !msg.Valid() {
			continue
		}
		if _, dup := seen[msg.Id]; dup {
			continue
		}
		seen[msg.Id] = struct{}{}
		c.msgs = append(c.msgs, msg)
	}
	c.msgs = append(c.msgs, pending...)
	c.reindex()
	c.enforceBound()
}

// List returns the ordered messages. The returned slice shares the cache's
// entries; callers treat them as read-only.
func (c *MessageCache) List() []*entity.Message {
	out := make([]*entity.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the number of cached messages
func (c *MessageCache) Len() int {
	return len(c.msgs)
}

func (c *MessageCache) reindex() {
	c.index = make(map[string]int, len(c.msgs))
	for i, msg := range c.msgs {
		c.index[msg.Id] = i
	}
}

// enforceBound drops the oldest confirmed messages once over capacity.
// Optimistic entries are never evicted.
func (c *MessageCache) enforceBound() {
	if c.capacity <= 0 || len(c.msgs) <= c.capacity {
		return
	}
	over := len(c.msgs) - c.capacity
	kept := make([]*entity.Message, 0, c.capacity)
	for _, msg := range c.msgs {
		if over > 0 && !msg.Pending() {
			over--
			continue
		}
		kept = append(kept, msg)
	}
	c.msgs = kept
	c.reindex()
}
