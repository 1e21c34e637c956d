package cache

import (
	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/pkg/constant"
)

// ConversationCache holds the last-known-good snapshot of every conversation
// the viewer participates in, keyed by id, plus the viewer's not-yet-confirmed
// local intents. Every subscription delivery replaces the cache wholesale and
// the intents are then re-applied on top, in order: unread resets first, then
// in-flight flag toggles. That two-step merge is the only way server truth and
// optimistic UI state ever meet.
//
// The cache is not safe for concurrent use; the engine serializes access.
type ConversationCache struct {
	viewerId string
	byId     map[string]*entity.Conversation
	order    []string

	// unreadResets holds conversation ids the viewer opened; the viewer's
	// own count is forced to zero until the remote side confirms.
	unreadResets map[string]struct{}

	// pendingFlags holds the desired boolean per conversation and flag field
	// while the remote update is in flight.
	pendingFlags map[string]map[string]bool
}

// NewConversationCache creates an empty cache for viewerId
func NewConversationCache(viewerId string) *ConversationCache {
	return &ConversationCache{
		viewerId:     viewerId,
		byId:         make(map[string]*entity.Conversation),
		order:        nil,
		unreadResets: make(map[string]struct{}),
		pendingFlags: make(map[string]map[string]bool),
	}
}

// Replace swaps the whole cache for a fresh delivery, then re-applies local
// intents. An unread reset that the delivery already confirms (count zero)
// is retired; everything else stays pending until confirmed or rolled back.
func (c *ConversationCache) Replace(snapshot []*entity.Conversation) {
	byId := make(map[string]*entity.Conversation, len(snapshot))
	order := make([]string, 0, len(snapshot))
	for _, conv := range snapshot {
		if conv == nil || conv.Id == "" {
			continue
		}
		if _, dup := byId[conv.Id]; dup {
			continue
		}
		byId[conv.Id] = conv.Clone()
		order = append(order, conv.Id)
	}
	c.byId = byId
	c.order = order

	// Intents for conversations the server no longer returns are dropped;
	// remote deletion is observed passively.
	for id := range c.unreadResets {
		conv, ok := c.byId[id]
		if !ok {
			delete(c.unreadResets, id)
			continue
		}
		if conv.UnreadFor(c.viewerId) == 0 {
			delete(c.unreadResets, id)
			continue
		}
		c.forceUnreadZero(conv)
	}

	for id, fields := range c.pendingFlags {
		conv, ok := c.byId[id]
		if !ok {
			delete(c.pendingFlags, id)
			continue
		}
		for field, on := range fields {
			c.applyFlag(conv, field, on)
		}
	}
}

// MarkUnreadReset records that the viewer opened the conversation and zeroes
// the viewer's own unread count immediately.
func (c *ConversationCache) MarkUnreadReset(conversationId string) {
	conv, ok := c.byId[conversationId]
	if !ok {
		return
	}
	c.unreadResets[conversationId] = struct{}{}
	c.forceUnreadZero(conv)
}

// SetPendingFlag applies the desired boolean optimistically and keeps it
// pinned across deliveries until confirmed or reverted.
func (c *ConversationCache) SetPendingFlag(conversationId, field string, on bool) bool {
	conv, ok := c.byId[conversationId]
	if !ok {
		return false
	}
	fields, ok := c.pendingFlags[conversationId]
	if !ok {
		fields = make(map[string]bool)
		c.pendingFlags[conversationId] = fields
	}
	fields[field] = on
	c.applyFlag(conv, field, on)
	return true
}

// ConfirmPendingFlag retires the intent after the remote write succeeded.
// The entry keeps the applied value; the next delivery carries server truth.
func (c *ConversationCache) ConfirmPendingFlag(conversationId, field string) {
	c.dropPendingFlag(conversationId, field)
}

// RevertPendingFlag rolls the local boolean back to its pre-toggle value and
// retires the intent.
func (c *ConversationCache) RevertPendingFlag(conversationId, field string) {
	fields, ok := c.pendingFlags[conversationId]
	if !ok {
		return
	}
	on, ok := fields[field]
	if !ok {
		return
	}
	c.dropPendingFlag(conversationId, field)
	if conv, exists := c.byId[conversationId]; exists {
		c.applyFlag(conv, field, !on)
	}
}

// Get returns a copy of one conversation, or nil
func (c *ConversationCache) Get(conversationId string) *entity.Conversation {
	return c.byId[conversationId].Clone()
}

// Has reports whether the conversation is present
func (c *ConversationCache) Has(conversationId string) bool {
	_, ok := c.byId[conversationId]
	return ok
}

// List returns the cached conversations in delivery order. The returned
// values are the cache's own entries; callers treat them as read-only.
func (c *ConversationCache) List() []*entity.Conversation {
	out := make([]*entity.Conversation, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byId[id])
	}
	return out
}

// Len returns the number of cached conversations
func (c *ConversationCache) Len() int {
	return len(c.byId)
}

// IsPinnedNow reports the viewer's current effective pinned state
func (c *ConversationCache) IsPinnedNow(conversationId string) bool {
	conv, ok := c.byId[conversationId]
	return ok && conv.IsPinnedBy(c.viewerId)
}

// IsMutedNow reports the viewer's current effective muted state
func (c *ConversationCache) IsMutedNow(conversationId string) bool {
	conv, ok := c.byId[conversationId]
	return ok && conv.IsMutedBy(c.viewerId)
}

// IsArchivedNow reports the viewer's current effective archived state
func (c *ConversationCache) IsArchivedNow(conversationId string) bool {
	conv, ok := c.byId[conversationId]
	return ok && conv.IsArchivedBy(c.viewerId)
}

func (c *ConversationCache) forceUnreadZero(conv *entity.Conversation) {
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int64, 1)
	}
	conv.UnreadCounts[c.viewerId] = 0
}

func (c *ConversationCache) applyFlag(conv *entity.Conversation, field string, on bool) {
	apply := func(set []string) []string {
		if on {
			return entity.AddFlag(set, c.viewerId)
		}
		return entity.RemoveFlag(set, c.viewerId)
	}
	switch field {
	case constant.FlagPinned:
		conv.PinnedBy = apply(conv.PinnedBy)
	case constant.FlagMuted:
		conv.MutedBy = apply(conv.MutedBy)
	case constant.FlagArchived:
		conv.ArchivedBy = apply(conv.ArchivedBy)
	}
}

func (c *ConversationCache) dropPendingFlag(conversationId, field string) {
	fields, ok := c.pendingFlags[conversationId]
	if !ok {
		return
	}
	delete(fields, field)
	if len(fields) == 0 {
		delete(c.pendingFlags, conversationId)
	}
}
