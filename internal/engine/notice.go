package engine

import (
	"github.com/evermeet/chatsync/pkg/errcode"
)

// Notice is a user-visible, dismissible error. Nothing in the engine is
// fatal; every failure degrades to a stale-but-consistent view plus one of
// these.
type Notice struct {
	Id   int64  `json:"id"`
	Code int    `json:"code"`
	Text string `json:"text"`
	At   int64  `json:"at"`
}

// Notices returns the undismissed notices, oldest first
func (e *Engine) Notices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Notice, len(e.notices))
	copy(out, e.notices)
	return out
}

// DismissNotice removes one notice by id
func (e *Engine) DismissNotice(id int64) {
	e.mu.Lock()
	for i, n := range e.notices {
		if n.Id == id {
			e.notices = append(e.notices[:i], e.notices[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
	e.notify()
}

// pushNotice records a notice. Caller holds the mutex.
func (e *Engine) pushNotice(err *errcode.Error) {
	e.noticeSeq++
	e.notices = append(e.notices, Notice{
		Id:   e.noticeSeq,
		Code: err.Code,
		Text: err.Msg,
		At:   nowMillis(),
	})
}
