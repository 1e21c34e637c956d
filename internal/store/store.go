package store

import (
	"context"
	"sync"

	"github.com/evermeet/chatsync/internal/entity"
)

// FlagDelta describes one membership change of a per-user flag set. Deltas
// are applied atomically by the remote store, so two users toggling the
// same conversation concurrently can never clobber each other's slice of
// the set.
type FlagDelta struct {
	Op     string `json:"op"` // constant.FlagOpAdd or constant.FlagOpRemove
	UserId string `json:"user_id"`
}

// Store is the boundary to the shared remote document store. Writes are
// attempted once and reported to the caller; retry policy belongs to the
// coordinator. Subscription streams re-establish themselves after transport
// failures, but each failure still surfaces one error delivery.
type Store interface {
	// SubscribeConversations delivers a full snapshot of the user's
	// conversations on every remote change.
	SubscribeConversations(ctx context.Context, userId string) (*ConversationSubscription, error)

	// SubscribeMessages delivers a full snapshot of one conversation's
	// messages, sorted by timestamp ascending, on every remote change.
	SubscribeMessages(ctx context.Context, conversationId string) (*MessageSubscription, error)

	// CreateMessage persists a new message and returns its remote id.
	CreateMessage(ctx context.Context, conversationId string, msg *entity.Message) (string, error)

	// UpdateConversationLastMessage writes the denormalized last-message
	// snapshot and updatedAt onto the parent conversation.
	UpdateConversationLastMessage(ctx context.Context, conversationId string, last *entity.LastMessage, updatedAt int64) error

	// UpdateConversationFlags applies one add/remove delta to the named
	// per-user flag set.
	UpdateConversationFlags(ctx context.Context, conversationId string, field string, delta FlagDelta) error

	Close() error
}

// ConversationSubscription is a cancellable stream of conversation
// snapshots. The channel is closed by Unsubscribe.
type ConversationSubscription struct {
	mu      sync.Mutex
	closed  bool
	updates chan []*entity.Conversation
	errs    chan error
	cancel  func()
	once    sync.Once
}

// NewConversationSubscription creates a subscription whose channel is fed by
// the transport. cancel runs exactly once, before the channel closes.
func NewConversationSubscription(cancel func()) *ConversationSubscription {
	return &ConversationSubscription{
		updates: make(chan []*entity.Conversation, 1),
		errs:    make(chan error, 1),
		cancel:  cancel,
	}
}

// Updates returns the snapshot stream
func (s *ConversationSubscription) Updates() <-chan []*entity.Conversation {
	return s.updates
}

// Errs reports recoverable stream interruptions. The stream keeps itself
// alive after an error; the view is simply stale until the next delivery.
func (s *ConversationSubscription) Errs() <-chan error {
	return s.errs
}

// Fail reports a recoverable interruption without closing the stream
func (s *ConversationSubscription) Fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Deliver pushes a snapshot, keeping only the newest when the consumer is
// behind. Each delivery is a full result set, so dropping a stale one is
// always safe. Delivering to an unsubscribed stream is a no-op.
func (s *ConversationSubscription) Deliver(snapshot []*entity.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// Unsubscribe cancels the stream and closes the channel. Idempotent.
func (s *ConversationSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Lock()
		s.closed = true
		close(s.updates)
		s.mu.Unlock()
	})
}

// MessageSubscription is a cancellable stream of message snapshots for one
// conversation.
type MessageSubscription struct {
	conversationId string
	mu             sync.Mutex
	closed         bool
	updates        chan []*entity.Message
	errs           chan error
	cancel         func()
	once           sync.Once
}

// NewMessageSubscription creates a message subscription for conversationId
func NewMessageSubscription(conversationId string, cancel func()) *MessageSubscription {
	return &MessageSubscription{
		conversationId: conversationId,
		updates:        make(chan []*entity.Message, 1),
		errs:           make(chan error, 1),
		cancel:         cancel,
	}
}

// Errs reports recoverable stream interruptions
func (s *MessageSubscription) Errs() <-chan error {
	return s.errs
}

// Fail reports a recoverable interruption without closing the stream
func (s *MessageSubscription) Fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// ConversationId returns the conversation this stream is scoped to
func (s *MessageSubscription) ConversationId() string {
	return s.conversationId
}

// Updates returns the snapshot stream
func (s *MessageSubscription) Updates() <-chan []*entity.Message {
	return s.updates
}

// Deliver pushes a snapshot, keeping only the newest when the consumer is
// behind. Delivering to an unsubscribed stream is a no-op.
func (s *MessageSubscription) Deliver(snapshot []*entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// Unsubscribe cancels the stream and closes the channel. Idempotent.
func (s *MessageSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Lock()
		s.closed = true
		close(s.updates)
		s.mu.Unlock()
	})
}
