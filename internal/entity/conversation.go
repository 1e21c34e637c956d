package entity

// Participant represents one member of a conversation. Membership is
// immutable for the lifetime of the conversation.
type Participant struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
	Online      bool   `json:"online"`
	LastSeen    int64  `json:"last_seen,omitempty"`
}

// LastMessage is a denormalized snapshot of the newest message, stored on
// the conversation so the list view never joins against the message
// collection.
type LastMessage struct {
	SenderId  string `json:"sender_id"`
	Content   string `json:"content"`
	MsgType   int32  `json:"msg_type"`
	Timestamp int64  `json:"timestamp"`
	Status    int32  `json:"status"`
}

// Conversation represents a conversation as delivered by the remote store.
// PinnedBy, MutedBy and ArchivedBy are per-user flag sets; the viewer's own
// booleans are derived from set membership. Timestamps are unix millis.
type Conversation struct {
	Id           string           `json:"id"`
	Participants []Participant    `json:"participants"`
	PinnedBy     []string         `json:"pinned_by,omitempty"`
	MutedBy      []string         `json:"muted_by,omitempty"`
	ArchivedBy   []string         `json:"archived_by,omitempty"`
	UnreadCounts map[string]int64 `json:"unread_counts,omitempty"`
	LastMessage  *LastMessage     `json:"last_message,omitempty"`
	CreatedAt    int64            `json:"created_at"`
	UpdatedAt    int64            `json:"updated_at"`
}

// IsPinnedBy reports whether userId is in the pinned set
func (c *Conversation) IsPinnedBy(userId string) bool {
	return containsId(c.PinnedBy, userId)
}

// IsMutedBy reports whether userId is in the muted set
func (c *Conversation) IsMutedBy(userId string) bool {
	return containsId(c.MutedBy, userId)
}

// IsArchivedBy reports whether userId is in the archived set
func (c *Conversation) IsArchivedBy(userId string) bool {
	return containsId(c.ArchivedBy, userId)
}

// UnreadFor returns the unread count for userId
func (c *Conversation) UnreadFor(userId string) int64 {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userId]
}

// Peer returns the first participant other than userId, which is what the
// list view displays for a direct conversation.
func (c *Conversation) Peer(userId string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserId != userId {
			return &c.Participants[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Caches hand out clones so that no caller can
// mutate cached state in place.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = append([]Participant(nil), c.Participants...)
	cp.PinnedBy = append([]string(nil), c.PinnedBy...)
	cp.MutedBy = append([]string(nil), c.MutedBy...)
	cp.ArchivedBy = append([]string(nil), c.ArchivedBy...)
	if c.UnreadCounts != nil {
		cp.UnreadCounts = make(map[string]int64, len(c.UnreadCounts))
		for k, v := range c.UnreadCounts {
			cp.UnreadCounts[k] = v
		}
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}

// AddFlag returns the set with userId added, without duplicates
func AddFlag(set []string, userId string) []string {
	if containsId(set, userId) {
		return set
	}
	return append(append([]string(nil), set...), userId)
}

// RemoveFlag returns the set with userId removed
func RemoveFlag(set []string, userId string) []string {
	out := make([]string, 0, len(set))
	for _, id := range set {
		if id != userId {
			out = append(out, id)
		}
	}
	return out
}

func containsId(set []string, userId string) bool {
	for _, id := range set {
		if id == userId {
			return true
		}
	}
	return false
}
