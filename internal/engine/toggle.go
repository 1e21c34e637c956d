package engine

import (
	"context"

	"github.com/mbeoliero/kit/log"

	"github.com/evermeet/chatsync/internal/store"
	"github.com/evermeet/chatsync/pkg/constant"
	"github.com/evermeet/chatsync/pkg/errcode"
)

// TogglePin flips the viewer's pinned flag on a conversation. The flip is
// visible in the projected list synchronously; the remote set update runs
// behind it and the flip reverts if the update fails.
func (e *Engine) TogglePin(ctx context.Context, conversationId string) error {
	return e.toggle(ctx, conversationId, constant.FlagPinned)
}

// ToggleMute flips the viewer's muted flag on a conversation
func (e *Engine) ToggleMute(ctx context.Context, conversationId string) error {
	return e.toggle(ctx, conversationId, constant.FlagMuted)
}

func (e *Engine) toggle(ctx context.Context, conversationId, field string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errcode.ErrClosed
	}
	if !e.convs.Has(conversationId) {
		e.mu.Unlock()
		return errcode.ErrConvNotFound
	}

	desired := !e.flagNowLocked(conversationId, field)
	e.convs.SetPendingFlag(conversationId, field, desired)
	e.wg.Add(1)
	e.mu.Unlock()
	e.notify()

	go e.completeToggle(ctx, conversationId, field, desired, nil)
	return nil
}

// Archive sets the viewer's archived flag on a conversation, which removes
// it from every tab of the list. Archiving the open conversation also
// clears the active selection; both effects revert if the remote update
// fails.
func (e *Engine) Archive(ctx context.Context, conversationId string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errcode.ErrClosed
	}
	if !e.convs.Has(conversationId) {
		e.mu.Unlock()
		return errcode.ErrConvNotFound
	}
	if e.convs.IsArchivedNow(conversationId) {
		e.mu.Unlock()
		return nil
	}

	e.convs.SetPendingFlag(conversationId, constant.FlagArchived, true)

	var prevSub *store.MessageSubscription
	wasActive := e.activeId == conversationId
	if wasActive {
		prevSub = e.detachActiveLocked()
	}
	e.wg.Add(1)
	e.mu.Unlock()

	if prevSub != nil {
		prevSub.Unsubscribe()
	}
	e.notify()

	var restore func()
	if wasActive {
		restore = func() {
			// Only restore if the user has not opened something else
			e.mu.Lock()
			idle := e.activeId == ""
			e.mu.Unlock()
			if idle {
				if err := e.SelectConversation(ctx, conversationId); err != nil {
					log.CtxWarn(ctx, "selection restore failed: conversation_id=%s, error=%v", conversationId, err)
				}
			}
		}
	}

	go e.completeToggle(ctx, conversationId, constant.FlagArchived, true, restore)
	return nil
}

// completeToggle runs the remote half of the toggle protocol: one add/remove
// delta against the flag set, confirm or revert on return. onRevert runs
// after a rollback to undo side effects beyond the flag itself.
func (e *Engine) completeToggle(ctx context.Context, conversationId, field string, desired bool, onRevert func()) {
	defer e.wg.Done()

	delta := store.FlagDelta{Op: constant.FlagOpRemove, UserId: e.viewerId}
	if desired {
		delta.Op = constant.FlagOpAdd
	}

	err := e.store.UpdateConversationFlags(ctx, conversationId, field, delta)

	e.mu.Lock()
	if err != nil {
		log.CtxWarn(ctx, "flag update failed: conversation_id=%s, field=%s, error=%v", conversationId, field, err)
		e.convs.RevertPendingFlag(conversationId, field)
		e.pushNotice(errcode.ErrToggleFailed.Wrap(err))
	} else {
		e.convs.ConfirmPendingFlag(conversationId, field)
		log.CtxDebug(ctx, "flag updated: conversation_id=%s, field=%s, op=%s", conversationId, field, delta.Op)
	}
	e.mu.Unlock()
	e.notify()

	if err != nil && onRevert != nil {
		onRevert()
	}
}

// flagNowLocked reads the viewer's current effective flag value
func (e *Engine) flagNowLocked(conversationId, field string) bool {
	switch field {
	case constant.FlagPinned:
		return e.convs.IsPinnedNow(conversationId)
	case constant.FlagMuted:
		return e.convs.IsMutedNow(conversationId)
	case constant.FlagArchived:
		return e.convs.IsArchivedNow(conversationId)
	}
	return false
}
