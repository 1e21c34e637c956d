package engine

import (
	"context"
	"strings"

	"github.com/mbeoliero/kit/log"

	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/pkg/constant"
	"github.com/evermeet/chatsync/pkg/errcode"
	"github.com/evermeet/chatsync/pkg/idgen"
)

// SendMessage sends a text message to the active conversation. The
// provisional entry is visible in the thread before the remote write is
// even issued; the composer can clear immediately.
func (e *Engine) SendMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return "", errcode.ErrInvalidParam
	}
	return e.send(ctx, &entity.Message{
		Content: text,
		MsgType: constant.MsgTypeText,
	})
}

// SendMeetingInvite sends a meeting-invite message to the active
// conversation.
func (e *Engine) SendMeetingInvite(ctx context.Context, invite *entity.MeetingInvite) (string, error) {
	if invite == nil || invite.MeetingId == "" {
		return "", errcode.ErrInvalidParam
	}
	return e.send(ctx, &entity.Message{
		Content:       invite.Title,
		MsgType:       constant.MsgTypeMeeting,
		MeetingInvite: invite,
	})
}

// send runs the optimistic half of the send protocol: temp id, provisional
// entry with status sending, then hands off to the remote half. Returns the
// temp id so the UI can correlate a retry.
func (e *Engine) send(ctx context.Context, msg *entity.Message) (string, error) {
	tempId, err := idgen.NextTempId()
	if err != nil {
		return "", errcode.ErrInternal.Wrap(err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", errcode.ErrClosed
	}
	if e.activeId == "" || e.msgs == nil {
		e.mu.Unlock()
		return "", errcode.ErrConvNotFound
	}

	msg.Id = tempId
	msg.ConversationId = e.activeId
	msg.SenderId = e.viewerId
	msg.Status = constant.StatusSending
	msg.Timestamp = nowMillis()
	e.msgs.Append(msg)
	conversationId := e.activeId
	e.wg.Add(1)
	e.mu.Unlock()
	e.notify()

	log.CtxDebug(ctx, "optimistic send applied: conversation_id=%s, temp_id=%s", conversationId, tempId)

	go e.completeSend(ctx, conversationId, msg.Clone())
	return tempId, nil
}

// RetrySend re-runs the remote half of the send protocol for a failed
// provisional entry.
func (e *Engine) RetrySend(ctx context.Context, tempId string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errcode.ErrClosed
	}
	if e.msgs == nil {
		e.mu.Unlock()
		return errcode.ErrMessageNotFound
	}
	msg := e.msgs.Get(tempId)
	if msg == nil {
		e.mu.Unlock()
		return errcode.ErrMessageNotFound
	}
	if !msg.IsTemp() || msg.Status != constant.StatusFailed {
		e.mu.Unlock()
		return errcode.ErrNotRetryable
	}
	e.msgs.SetStatus(tempId, constant.StatusSending)
	conversationId := e.msgs.ConversationId()
	retry := msg.Clone()
	retry.Status = constant.StatusSending
	e.wg.Add(1)
	e.mu.Unlock()
	e.notify()

	go e.completeSend(ctx, conversationId, retry)
	return nil
}

// completeSend runs the remote half: create the message document first,
// then update the parent conversation's denormalized last-message. The two
// writes are not atomic; a last-message failure after a successful create
// leaves a valid message behind and is surfaced, not hidden.
func (e *Engine) completeSend(ctx context.Context, conversationId string, msg *entity.Message) {
	defer e.wg.Done()

	tempId := msg.Id
	remoteId, err := e.store.CreateMessage(ctx, conversationId, msg)
	if err != nil {
		log.CtxWarn(ctx, "message create failed: conversation_id=%s, temp_id=%s, error=%v", conversationId, tempId, err)
		e.mu.Lock()
		if e.msgs != nil && e.msgs.ConversationId() == conversationId {
			// The provisional entry stays; the user's content is never
			// dropped on a transient failure.
			e.msgs.SetStatus(tempId, constant.StatusFailed)
		}
		e.pushNotice(errcode.ErrSendFailed.Wrap(err))
		e.mu.Unlock()
		e.notify()
		return
	}

	confirmed := msg.Clone()
	confirmed.Id = remoteId
	confirmed.Status = constant.StatusSent

	e.mu.Lock()
	if e.msgs != nil && e.msgs.ConversationId() == conversationId {
		// Identity swap: the temp id is gone as a key from here on
		e.msgs.ReplaceId(tempId, confirmed)
	}
	e.mu.Unlock()
	e.notify()

	if err := e.store.UpdateConversationLastMessage(ctx, conversationId, confirmed.AsLastMessage(), confirmed.Timestamp); err != nil {
		// Accepted partial failure: the message exists, only the
		// conversation's denormalized snapshot is stale.
		log.CtxWarn(ctx, "last-message update failed: conversation_id=%s, message_id=%s, error=%v", conversationId, remoteId, err)
		e.mu.Lock()
		e.pushNotice(errcode.ErrLastMessageFailed.Wrap(err))
		e.mu.Unlock()
		e.notify()
		return
	}

	log.CtxInfo(ctx, "message sent: conversation_id=%s, message_id=%s", conversationId, remoteId)
}
