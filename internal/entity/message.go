package entity

import (
	"strings"

	"github.com/evermeet/chatsync/pkg/constant"
)

// Attachment represents a file or image attached to a message
type Attachment struct {
	Name     string `json:"name"`
	Url      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// MeetingInvite is the payload of a meeting-invite message
type MeetingInvite struct {
	MeetingId string `json:"meeting_id"`
	Title     string `json:"title"`
	StartAt   int64  `json:"start_at"`
	JoinUrl   string `json:"join_url,omitempty"`
}

// Message represents a message as delivered by the remote store, or a
// provisional entry awaiting reconciliation when Id is a temporary id.
type Message struct {
	Id             string         `json:"id"`
	ConversationId string         `json:"conversation_id"`
	SenderId       string         `json:"sender_id"`
	Content        string         `json:"content"`
	MsgType        int32          `json:"msg_type"`
	Status         int32          `json:"status"`
	Timestamp      int64          `json:"timestamp"`
	ReplyTo        string         `json:"reply_to,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	MeetingInvite  *MeetingInvite `json:"meeting_invite,omitempty"`
}

// IsTemp reports whether the message still carries a locally generated id
func (m *Message) IsTemp() bool {
	return strings.HasPrefix(m.Id, constant.TempIdPrefix)
}

// Pending reports whether the message is an optimistic entry that has not
// been confirmed by the remote store. Pending entries survive wholesale
// snapshot replacement and cache eviction.
func (m *Message) Pending() bool {
	return m.IsTemp() && (m.Status == constant.StatusSending || m.Status == constant.StatusFailed)
}

// Valid reports whether the message carries the fields every delivery must
// have. Invalid documents are skipped defensively, never rendered.
func (m *Message) Valid() bool {
	return m != nil && m.Id != "" && m.ConversationId != "" && m.SenderId != ""
}

// AsLastMessage returns the denormalized snapshot written onto the parent
// conversation alongside every send.
func (m *Message) AsLastMessage() *LastMessage {
	return &LastMessage{
		SenderId:  m.SenderId,
		Content:   m.Content,
		MsgType:   m.MsgType,
		Timestamp: m.Timestamp,
		Status:    m.Status,
	}
}

// Clone returns a deep copy
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Attachments = append([]Attachment(nil), m.Attachments...)
	if m.MeetingInvite != nil {
		mi := *m.MeetingInvite
		cp.MeetingInvite = &mi
	}
	return &cp
}
