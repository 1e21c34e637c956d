package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermeet/chatsync/pkg/constant"
)

func TestFlagSets(t *testing.T) {
	set := []string{"u1"}

	set = AddFlag(set, "u2")
	assert.Equal(t, []string{"u1", "u2"}, set)

	// Adding twice is a no-op
	set = AddFlag(set, "u2")
	assert.Equal(t, []string{"u1", "u2"}, set)

	set = RemoveFlag(set, "u1")
	assert.Equal(t, []string{"u2"}, set)

	set = RemoveFlag(set, "missing")
	assert.Equal(t, []string{"u2"}, set)
}

func TestConversation_DerivedFlags(t *testing.T) {
	c := &Conversation{
		Id:           "c1",
		PinnedBy:     []string{"u1"},
		MutedBy:      []string{"u2"},
		ArchivedBy:   []string{"u1", "u2"},
		UnreadCounts: map[string]int64{"u1": 3},
	}

	assert.True(t, c.IsPinnedBy("u1"))
	assert.False(t, c.IsPinnedBy("u2"))
	assert.True(t, c.IsMutedBy("u2"))
	assert.True(t, c.IsArchivedBy("u1"))
	assert.Equal(t, int64(3), c.UnreadFor("u1"))
	assert.Equal(t, int64(0), c.UnreadFor("u2"))
}

func TestConversation_CloneIsDeep(t *testing.T) {
	c := &Conversation{
		Id:           "c1",
		Participants: []Participant{{UserId: "u1", DisplayName: "Alice"}},
		PinnedBy:     []string{"u1"},
		UnreadCounts: map[string]int64{"u1": 1},
		LastMessage:  &LastMessage{Content: "hi"},
	}

	cp := c.Clone()
	cp.PinnedBy[0] = "other"
	cp.UnreadCounts["u1"] = 9
	cp.LastMessage.Content = "changed"
	cp.Participants[0].DisplayName = "Bob"

	assert.Equal(t, "u1", c.PinnedBy[0])
	assert.Equal(t, int64(1), c.UnreadCounts["u1"])
	assert.Equal(t, "hi", c.LastMessage.Content)
	assert.Equal(t, "Alice", c.Participants[0].DisplayName)
}

func TestMessage_TempAndPending(t *testing.T) {
	m := &Message{
		Id:             constant.TempIdPrefix + "42",
		ConversationId: "c1",
		SenderId:       "u1",
		Status:         constant.StatusSending,
	}
	assert.True(t, m.IsTemp())
	assert.True(t, m.Pending())

	m.Status = constant.StatusFailed
	assert.True(t, m.Pending())

	confirmed := &Message{Id: "m1", ConversationId: "c1", SenderId: "u1", Status: constant.StatusSent}
	assert.False(t, confirmed.IsTemp())
	assert.False(t, confirmed.Pending())
}

func TestMessage_AsLastMessage(t *testing.T) {
	m := &Message{
		Id:             "m1",
		ConversationId: "c1",
		SenderId:       "u1",
		Content:        "hello",
		MsgType:        constant.MsgTypeText,
		Status:         constant.StatusSent,
		Timestamp:      123,
	}

	last := m.AsLastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "u1", last.SenderId)
	assert.Equal(t, "hello", last.Content)
	assert.Equal(t, int64(123), last.Timestamp)
	assert.Equal(t, int32(constant.StatusSent), last.Status)
}
