package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/pkg/constant"
)

const viewer = "user-1"

func conv(id string, updatedAt int64) *entity.Conversation {
	return &entity.Conversation{
		Id: id,
		Participants: []entity.Participant{
			{UserId: viewer, DisplayName: "Me"},
			{UserId: "user-2", DisplayName: "Alice"},
		},
		UnreadCounts: map[string]int64{viewer: 0},
		UpdatedAt:    updatedAt,
	}
}

func TestConversationCache_ReplaceWholesale(t *testing.T) {
	c := NewConversationCache(viewer)

	a := conv("c1", 100)
	a.UnreadCounts[viewer] = 5
	c.Replace([]*entity.Conversation{a, conv("c2", 200)})
	require.Equal(t, 2, c.Len())

	// B drops c2 and carries fresh fields for c1; nothing from A survives
	b := conv("c1", 300)
	b.UnreadCounts[viewer] = 2
	b.PinnedBy = []string{"user-2"}
	c.Replace([]*entity.Conversation{b})

	require.Equal(t, 1, c.Len())
	assert.False(t, c.Has("c2"))
	got := c.Get("c1")
	assert.Equal(t, int64(300), got.UpdatedAt)
	assert.Equal(t, int64(2), got.UnreadFor(viewer))
	assert.Equal(t, []string{"user-2"}, got.PinnedBy)
}

func TestConversationCache_ReplaceSkipsMalformed(t *testing.T) {
	c := NewConversationCache(viewer)
	c.Replace([]*entity.Conversation{nil, {Id: ""}, conv("c1", 100)})
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Has("c1"))
}

func TestConversationCache_UnreadResetSurvivesDelivery(t *testing.T) {
	c := NewConversationCache(viewer)
	a := conv("c1", 100)
	a.UnreadCounts[viewer] = 4
	c.Replace([]*entity.Conversation{a})

	c.MarkUnreadReset("c1")
	assert.Equal(t, int64(0), c.Get("c1").UnreadFor(viewer))

	// A stale delivery still carrying the old count is overridden
	stale := conv("c1", 100)
	stale.UnreadCounts[viewer] = 4
	c.Replace([]*entity.Conversation{stale})
	assert.Equal(t, int64(0), c.Get("c1").UnreadFor(viewer))

	// Once the server confirms zero, the intent retires; a later count is
	// genuine new unread and must show through
	confirmed := conv("c1", 200)
	confirmed.UnreadCounts[viewer] = 0
	c.Replace([]*entity.Conversation{confirmed})

	newer := conv("c1", 300)
	newer.UnreadCounts[viewer] = 1
	c.Replace([]*entity.Conversation{newer})
	assert.Equal(t, int64(1), c.Get("c1").UnreadFor(viewer))
}

func TestConversationCache_PendingFlagReappliedOverDelivery(t *testing.T) {
	c := NewConversationCache(viewer)
	c.Replace([]*entity.Conversation{conv("c1", 100)})

	require.True(t, c.SetPendingFlag("c1", constant.FlagPinned, true))
	assert.True(t, c.IsPinnedNow("c1"))

	// Delivery without the flag: the in-flight intent wins
	c.Replace([]*entity.Conversation{conv("c1", 150)})
	assert.True(t, c.IsPinnedNow("c1"))

	// Another user's membership in the set is preserved alongside ours
	other := conv("c1", 200)
	other.PinnedBy = []string{"user-2"}
	c.Replace([]*entity.Conversation{other})
	got := c.Get("c1")
	assert.True(t, got.IsPinnedBy(viewer))
	assert.True(t, got.IsPinnedBy("user-2"))
}

func TestConversationCache_ConfirmKeepsValue(t *testing.T) {
	c := NewConversationCache(viewer)
	c.Replace([]*entity.Conversation{conv("c1", 100)})

	c.SetPendingFlag("c1", constant.FlagMuted, true)
	c.ConfirmPendingFlag("c1", constant.FlagMuted)
	assert.True(t, c.IsMutedNow("c1"))

	// After confirmation the next delivery is authoritative
	c.Replace([]*entity.Conversation{conv("c1", 200)})
	assert.False(t, c.IsMutedNow("c1"))
}

func TestConversationCache_RevertRestoresPreToggleValue(t *testing.T) {
	c := NewConversationCache(viewer)
	pinned := conv("c1", 100)
	pinned.PinnedBy = []string{viewer}
	c.Replace([]*entity.Conversation{pinned})

	c.SetPendingFlag("c1", constant.FlagPinned, false)
	assert.False(t, c.IsPinnedNow("c1"))

	c.RevertPendingFlag("c1", constant.FlagPinned)
	assert.True(t, c.IsPinnedNow("c1"))

	// Reverted intents no longer pin deliveries
	c.Replace([]*entity.Conversation{conv("c1", 200)})
	assert.False(t, c.IsPinnedNow("c1"))
}

func TestConversationCache_ArchivedFlag(t *testing.T) {
	c := NewConversationCache(viewer)
	c.Replace([]*entity.Conversation{conv("c1", 100)})

	c.SetPendingFlag("c1", constant.FlagArchived, true)
	assert.True(t, c.IsArchivedNow("c1"))

	c.RevertPendingFlag("c1", constant.FlagArchived)
	assert.False(t, c.IsArchivedNow("c1"))
}

func TestConversationCache_IntentForDeletedConversationDropped(t *testing.T) {
	c := NewConversationCache(viewer)
	c.Replace([]*entity.Conversation{conv("c1", 100)})
	c.SetPendingFlag("c1", constant.FlagPinned, true)
	c.MarkUnreadReset("c1")

	// Remote deletion observed passively
	c.Replace(nil)
	assert.Equal(t, 0, c.Len())

	// Reappearance carries no stale intents
	c.Replace([]*entity.Conversation{conv("c1", 200)})
	assert.False(t, c.IsPinnedNow("c1"))
}

func TestConversationCache_ListKeepsDeliveryOrder(t *testing.T) {
	c := NewConversationCache(viewer)
	c.Replace([]*entity.Conversation{conv("c2", 200), conv("c1", 100), conv("c3", 300)})

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c2", list[0].Id)
	assert.Equal(t, "c1", list[1].Id)
	assert.Equal(t, "c3", list[2].Id)
}
