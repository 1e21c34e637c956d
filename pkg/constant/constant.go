package constant

// Message types
const (
	MsgTypeText    = 1
	MsgTypeImage   = 2
	MsgTypeFile    = 3
	MsgTypeMeeting = 4
	MsgTypeSystem  = 5
)

// Message statuses
const (
	StatusSending   = 0
	StatusSent      = 1
	StatusDelivered = 2
	StatusRead      = 3
	StatusFailed    = 10
)

// Per-user flag fields on a conversation
const (
	FlagPinned   = "pinned_by"
	FlagMuted    = "muted_by"
	FlagArchived = "archived_by"
)

// Flag delta operations
const (
	FlagOpAdd    = "add"
	FlagOpRemove = "remove"
)

// Conversation list filter tabs
const (
	TabAll    = "all"
	TabUnread = "unread"
	TabPinned = "pinned"
)

// TempIdPrefix marks a locally generated message id that exists only
// between optimistic apply and reconciliation.
const TempIdPrefix = "tmp-"
