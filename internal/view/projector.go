package view

import (
	"sort"
	"strings"

	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/pkg/constant"
)

// Filter is the transient list filter state
type Filter struct {
	Tab        string // constant.TabAll, TabUnread or TabPinned
	SearchText string
}

// ConversationItem is one display-ready row of the conversation list
type ConversationItem struct {
	Id          string
	Peer        *entity.Participant
	LastMessage *entity.LastMessage
	UnreadCount int64
	IsPinned    bool
	IsMuted     bool
	IsArchived  bool
	UpdatedAt   int64
}

// ProjectConversations derives the filtered, sorted conversation list from
// the cache. Pure: no cache mutation, no I/O. Archived conversations are
// excluded from every tab; filtering happens before sorting; pinned rows
// sort first (stable), then descending updatedAt.
func ProjectConversations(convs []*entity.Conversation, viewerId string, f Filter) []ConversationItem {
	search := strings.ToLower(strings.TrimSpace(f.SearchText))

	items := make([]ConversationItem, 0, len(convs))
	for _, conv := range convs {
		if conv == nil || conv.Id == "" {
			continue
		}
		if conv.IsArchivedBy(viewerId) {
			continue
		}

		item := ConversationItem{
			Id:          conv.Id,
			Peer:        conv.Peer(viewerId),
			LastMessage: conv.LastMessage,
			UnreadCount: conv.UnreadFor(viewerId),
			IsPinned:    conv.IsPinnedBy(viewerId),
			IsMuted:     conv.IsMutedBy(viewerId),
			UpdatedAt:   conv.UpdatedAt,
		}

		switch f.Tab {
		case constant.TabUnread:
			if item.UnreadCount == 0 {
				continue
			}
		case constant.TabPinned:
			if !item.IsPinned {
				continue
			}
		}

		if search != "" && !matchesSearch(conv, viewerId, search) {
			continue
		}

		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsPinned != items[j].IsPinned {
			return items[i].IsPinned
		}
		return items[i].UpdatedAt > items[j].UpdatedAt
	})
	return items
}

// ProjectThread derives the display-ready message thread: straight
// chronological order, malformed entries skipped.
func ProjectThread(msgs []*entity.Message) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for _, msg := range msgs {
		if !msg.Valid() {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// matchesSearch matches the search text against the display names of the
// other participants.
func matchesSearch(conv *entity.Conversation, viewerId, search string) bool {
	for i := range conv.Participants {
		p := &conv.Participants[i]
		if p.UserId == viewerId {
			continue
		}
		if strings.Contains(strings.ToLower(p.DisplayName), search) {
			return true
		}
	}
	return false
}
