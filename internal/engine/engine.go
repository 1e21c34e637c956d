package engine

import (
	"context"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"

	"github.com/evermeet/chatsync/internal/cache"
	"github.com/evermeet/chatsync/internal/config"
	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/internal/store"
	"github.com/evermeet/chatsync/internal/view"
	"github.com/evermeet/chatsync/pkg/errcode"
)

// Engine keeps the viewer's conversations and the active message thread
// consistent with the remote store while the UI performs optimistic writes.
// Data flows one way into the caches (subscription, cache, projector) and
// one way out through the optimistic write path.
//
// All cache state is guarded by one mutex. Every mutation is either a
// wholesale replace from a subscription delivery or a single optimistic
// append/replace; the optimistic half of each write runs synchronously in
// the calling goroutine, the remote half completes on its own goroutine and
// reconciles under the same mutex.
type Engine struct {
	cfg      *config.Config
	store    store.Store
	viewerId string

	mu        sync.Mutex
	convs     *cache.ConversationCache
	msgs      *cache.MessageCache
	activeId  string
	msgGen    uint64
	msgSub    *store.MessageSubscription
	convSub   *store.ConversationSubscription
	filter    view.Filter
	notices   []Notice
	noticeSeq int64
	closed    bool

	updates chan struct{}
	wg      sync.WaitGroup
}

// New creates an engine for the viewing user. The store is owned by the
// caller; the engine owns only its subscriptions.
func New(cfg *config.Config, st store.Store, viewerId string) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    st,
		viewerId: viewerId,
		convs:    cache.NewConversationCache(viewerId),
		updates:  make(chan struct{}, 1),
	}
}

// ViewerId returns the user the engine acts as
func (e *Engine) ViewerId() string {
	return e.viewerId
}

// Start opens the conversation subscription and begins populating the cache
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errcode.ErrClosed
	}
	if e.convSub != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	sub, err := e.store.SubscribeConversations(ctx, e.viewerId)
	if err != nil {
		return errcode.ErrSubscribeFailed.Wrap(err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		sub.Unsubscribe()
		return errcode.ErrClosed
	}
	e.convSub = sub
	e.wg.Add(1)
	e.mu.Unlock()

	go e.pumpConversations(ctx, sub)
	return nil
}

// pumpConversations applies conversation deliveries until the stream closes
func (e *Engine) pumpConversations(ctx context.Context, sub *store.ConversationSubscription) {
	defer e.wg.Done()
	for {
		select {
		case snapshot, ok := <-sub.Updates():
			if !ok {
				return
			}
			e.mu.Lock()
			e.convs.Replace(snapshot)
			e.mu.Unlock()
			log.CtxDebug(ctx, "conversation snapshot applied: user_id=%s, count=%d", e.viewerId, len(snapshot))
			e.notify()
		case err, ok := <-sub.Errs():
			if !ok {
				return
			}
			log.CtxWarn(ctx, "conversation stream interrupted: user_id=%s, error=%v", e.viewerId, err)
			e.mu.Lock()
			e.pushNotice(errcode.ErrSubscribeFailed.Wrap(err))
			e.mu.Unlock()
			e.notify()
		}
	}
}

// SelectConversation makes conversationId the active conversation: the
// previous message subscription is torn down, the viewer's unread count is
// reset optimistically, and a fresh message stream is opened. A late
// delivery for the previous conversation is dropped by generation check,
// never applied to the new cache.
func (e *Engine) SelectConversation(ctx context.Context, conversationId string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errcode.ErrClosed
	}
	if conversationId == e.activeId {
		e.mu.Unlock()
		return nil
	}
	if !e.convs.Has(conversationId) {
		e.mu.Unlock()
		return errcode.ErrConvNotFound
	}

	prevSub := e.detachActiveLocked()
	e.activeId = conversationId
	e.msgs = cache.NewMessageCache(conversationId, e.cfg.Cache.MessageCapacity)
	e.convs.MarkUnreadReset(conversationId)
	gen := e.msgGen
	e.mu.Unlock()

	if prevSub != nil {
		prevSub.Unsubscribe()
	}
	e.notify()

	sub, err := e.store.SubscribeMessages(ctx, conversationId)
	if err != nil {
		log.CtxWarn(ctx, "message subscribe failed: conversation_id=%s, error=%v", conversationId, err)
		e.mu.Lock()
		e.pushNotice(errcode.ErrSubscribeFailed.Wrap(err))
		e.mu.Unlock()
		e.notify()
		return nil
	}

	e.mu.Lock()
	if e.closed || e.msgGen != gen {
		// Selection moved on while subscribing
		e.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	e.msgSub = sub
	e.wg.Add(1)
	e.mu.Unlock()

	go e.pumpMessages(ctx, sub, gen)
	return nil
}

// pumpMessages applies message deliveries for one subscription generation
func (e *Engine) pumpMessages(ctx context.Context, sub *store.MessageSubscription, gen uint64) {
	defer e.wg.Done()
	for {
		select {
		case snapshot, ok := <-sub.Updates():
			if !ok {
				return
			}
			e.mu.Lock()
			if e.msgGen != gen || e.msgs == nil {
				e.mu.Unlock()
				log.CtxDebug(ctx, "stale message delivery dropped: conversation_id=%s", sub.ConversationId())
				continue
			}
			e.msgs.Replace(snapshot)
			e.mu.Unlock()
			e.notify()
		case err, ok := <-sub.Errs():
			if !ok {
				return
			}
			log.CtxWarn(ctx, "message stream interrupted: conversation_id=%s, error=%v", sub.ConversationId(), err)
			e.mu.Lock()
			e.pushNotice(errcode.ErrSubscribeFailed.Wrap(err))
			e.mu.Unlock()
			e.notify()
		}
	}
}

// detachActiveLocked clears the active selection and bumps the subscription
// generation so in-flight deliveries are dropped. Caller holds the mutex
// and unsubscribes the returned stream after releasing it.
func (e *Engine) detachActiveLocked() *store.MessageSubscription {
	prev := e.msgSub
	e.msgSub = nil
	e.msgs = nil
	e.activeId = ""
	e.msgGen++
	return prev
}

// ActiveConversation returns the id of the open conversation, or ""
func (e *Engine) ActiveConversation() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeId
}

// SetFilterTab sets the conversation list tab
func (e *Engine) SetFilterTab(tab string) {
	e.mu.Lock()
	e.filter.Tab = tab
	e.mu.Unlock()
	e.notify()
}

// SetSearchText sets the conversation list search text
func (e *Engine) SetSearchText(s string) {
	e.mu.Lock()
	e.filter.SearchText = s
	e.mu.Unlock()
	e.notify()
}

// Conversations returns the filtered, sorted conversation list
func (e *Engine) Conversations() []view.ConversationItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return view.ProjectConversations(e.convs.List(), e.viewerId, e.filter)
}

// ActiveThread returns the chronological message thread of the active
// conversation
func (e *Engine) ActiveThread() []*entity.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.msgs == nil {
		return nil
	}
	return view.ProjectThread(e.msgs.List())
}

// Updates returns a coalesced change notification channel for the UI
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// Close tears down all subscriptions. The store itself stays open; it
// belongs to the caller.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	convSub := e.convSub
	e.convSub = nil
	msgSub := e.detachActiveLocked()
	e.mu.Unlock()

	if convSub != nil {
		convSub.Unsubscribe()
	}
	if msgSub != nil {
		msgSub.Unsubscribe()
	}
	e.wg.Wait()
}

// notify wakes the UI without blocking; deliveries coalesce
func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
