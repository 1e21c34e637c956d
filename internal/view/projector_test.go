package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/pkg/constant"
)

const viewer = "user-1"

func conv(id string, updatedAt int64, peerName string) *entity.Conversation {
	return &entity.Conversation{
		Id: id,
		Participants: []entity.Participant{
			{UserId: viewer, DisplayName: "Me"},
			{UserId: "peer-" + id, DisplayName: peerName},
		},
		UpdatedAt: updatedAt,
	}
}

func ids(items []ConversationItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Id)
	}
	return out
}

func TestProjectConversations_SortPinnedFirstThenUpdatedAt(t *testing.T) {
	pinned := conv("c2", 100, "Bob")
	pinned.PinnedBy = []string{viewer}

	items := ProjectConversations([]*entity.Conversation{
		conv("c1", 300, "Alice"),
		pinned,
		conv("c3", 200, "Carol"),
	}, viewer, Filter{Tab: constant.TabAll})

	assert.Equal(t, []string{"c2", "c1", "c3"}, ids(items))
	assert.True(t, items[0].IsPinned)
}

func TestProjectConversations_StableWithinPinnedGroup(t *testing.T) {
	a := conv("c1", 100, "Alice")
	a.PinnedBy = []string{viewer}
	b := conv("c2", 100, "Bob")
	b.PinnedBy = []string{viewer}

	// Equal sort keys keep cache order
	items := ProjectConversations([]*entity.Conversation{a, b}, viewer, Filter{})
	assert.Equal(t, []string{"c1", "c2"}, ids(items))

	items = ProjectConversations([]*entity.Conversation{b, a}, viewer, Filter{})
	assert.Equal(t, []string{"c2", "c1"}, ids(items))
}

func TestProjectConversations_ArchivedExcludedFromEveryTab(t *testing.T) {
	archived := conv("c1", 300, "Alice")
	archived.ArchivedBy = []string{viewer}
	archived.PinnedBy = []string{viewer}
	archived.UnreadCounts = map[string]int64{viewer: 3}

	for _, tab := range []string{constant.TabAll, constant.TabUnread, constant.TabPinned} {
		items := ProjectConversations([]*entity.Conversation{archived, conv("c2", 100, "Bob")}, viewer, Filter{Tab: tab})
		for _, item := range items {
			assert.NotEqual(t, "c1", item.Id, "tab %s must not show archived", tab)
		}
	}

	// Archived by someone else is not archived for the viewer
	other := conv("c3", 100, "Dave")
	other.ArchivedBy = []string{"peer-c3"}
	items := ProjectConversations([]*entity.Conversation{other}, viewer, Filter{Tab: constant.TabAll})
	require.Len(t, items, 1)
	assert.False(t, items[0].IsArchived)
}

func TestProjectConversations_Tabs(t *testing.T) {
	unread := conv("c1", 300, "Alice")
	unread.UnreadCounts = map[string]int64{viewer: 2}
	pinned := conv("c2", 200, "Bob")
	pinned.PinnedBy = []string{viewer}
	plain := conv("c3", 100, "Carol")

	all := []*entity.Conversation{unread, pinned, plain}

	tests := []struct {
		tab  string
		want []string
	}{
		{constant.TabAll, []string{"c2", "c1", "c3"}},
		{constant.TabUnread, []string{"c1"}},
		{constant.TabPinned, []string{"c2"}},
	}
	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ProjectConversations(all, viewer, Filter{Tab: tt.tab})))
		})
	}
}

func TestProjectConversations_SearchMatchesPeerName(t *testing.T) {
	all := []*entity.Conversation{
		conv("c1", 300, "Alice Johnson"),
		conv("c2", 200, "Bob Smith"),
	}

	items := ProjectConversations(all, viewer, Filter{Tab: constant.TabAll, SearchText: "alice"})
	assert.Equal(t, []string{"c1"}, ids(items))

	// The viewer's own display name never matches
	items = ProjectConversations(all, viewer, Filter{Tab: constant.TabAll, SearchText: "me"})
	assert.Empty(t, items)

	items = ProjectConversations(all, viewer, Filter{Tab: constant.TabAll, SearchText: "  "})
	assert.Len(t, items, 2)
}

func TestProjectConversations_SkipsMalformed(t *testing.T) {
	items := ProjectConversations([]*entity.Conversation{nil, {Id: ""}, conv("c1", 100, "Alice")}, viewer, Filter{})
	assert.Equal(t, []string{"c1"}, ids(items))
}

func TestProjectConversations_UnreadBadgeAndPeer(t *testing.T) {
	c := conv("c1", 100, "Alice")
	c.UnreadCounts = map[string]int64{viewer: 7, "peer-c1": 3}

	items := ProjectConversations([]*entity.Conversation{c}, viewer, Filter{})
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].UnreadCount)
	require.NotNil(t, items[0].Peer)
	assert.Equal(t, "Alice", items[0].Peer.DisplayName)
}

func TestProjectThread_ChronologicalAndDefensive(t *testing.T) {
	msgs := []*entity.Message{
		{Id: "m1", ConversationId: "c1", SenderId: "u", Timestamp: 100},
		nil,
		{Id: "", ConversationId: "c1", SenderId: "u"},
		{Id: "m2", ConversationId: "c1", SenderId: "u", Timestamp: 200},
	}

	out := ProjectThread(msgs)
	require.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].Id)
	assert.Equal(t, "m2", out[1].Id)
}
