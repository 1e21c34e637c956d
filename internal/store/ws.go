package store

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbeoliero/kit/log"

	"github.com/evermeet/chatsync/pkg/errcode"
	"github.com/evermeet/chatsync/pkg/idgen"
)

// wsSub is one active subscription on the transport. handler and fail are
// invoked with the transport mutex held, which serializes deliveries
// against cancellation.
type wsSub struct {
	id      string
	topic   string
	target  string
	handler func(json.RawMessage)
	fail    func(error)
}

// wsTransport maintains one websocket connection to the remote store's push
// endpoint, demultiplexes snapshot frames to subscriptions, and reconnects
// with backoff. After a reconnect every active subscription is re-issued, so
// callers never resubscribe themselves.
type wsTransport struct {
	url        string
	token      string
	dialer     *websocket.Dialer
	backoff    time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[string]*wsSub
	running bool
	closed  bool
	done    chan struct{}
}

func newWSTransport(url, token string, dialTimeout, backoff, maxBackoff time.Duration) *wsTransport {
	return &wsTransport{
		url:        url,
		token:      token,
		dialer:     &websocket.Dialer{HandshakeTimeout: dialTimeout},
		backoff:    backoff,
		maxBackoff: maxBackoff,
		subs:       make(map[string]*wsSub),
		done:       make(chan struct{}),
	}
}

// subscribe registers a subscription and returns its cancel func. The run
// loop is started lazily on the first subscription.
func (t *wsTransport) subscribe(ctx context.Context, topic, target string, handler func(json.RawMessage), fail func(error)) (func(), error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errcode.ErrClosed
	}

	sub := &wsSub{
		id:      idgen.NewOperationId(),
		topic:   topic,
		target:  target,
		handler: handler,
		fail:    fail,
	}
	t.subs[sub.id] = sub

	if !t.running {
		t.running = true
		go t.run()
	}

	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		if err := t.writeFrame(subscribeFrame(sub, t.token)); err != nil {
			log.CtxWarn(ctx, "subscribe frame failed, will retry on reconnect: topic=%s, target=%s, error=%v", topic, target, err)
		}
	}

	cancel := func() {
		t.mu.Lock()
		delete(t.subs, sub.id)
		connected := t.conn != nil
		t.mu.Unlock()
		if connected {
			_ = t.writeFrame(&ClientFrame{Type: FrameUnsubscribe, SubId: sub.id})
		}
	}
	return cancel, nil
}

func subscribeFrame(sub *wsSub, token string) *ClientFrame {
	return &ClientFrame{
		Type:        FrameSubscribe,
		SubId:       sub.id,
		Topic:       sub.topic,
		Target:      sub.target,
		Token:       token,
		OperationId: idgen.NewOperationId(),
	}
}

// run dials, replays subscriptions, and pumps frames until the transport is
// closed. Dial failures and dropped connections back off exponentially.
func (t *wsTransport) run() {
	ctx := context.Background()
	backoff := t.backoff

	for {
		select {
		case <-t.done:
			return
		default:
		}

		conn, err := t.dial(ctx)
		if err != nil {
			log.CtxWarn(ctx, "remote store dial failed: url=%s, error=%v", t.url, err)
			t.failAll(errcode.ErrSubscribeFailed.Wrap(err))
			select {
			case <-t.done:
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > t.maxBackoff {
				backoff = t.maxBackoff
			}
			continue
		}
		backoff = t.backoff

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		pending := make([]*wsSub, 0, len(t.subs))
		for _, sub := range t.subs {
			pending = append(pending, sub)
		}
		t.mu.Unlock()

		log.CtxInfo(ctx, "remote store connected: url=%s, subscriptions=%d", t.url, len(pending))
		for _, sub := range pending {
			if err := t.writeFrame(subscribeFrame(sub, t.token)); err != nil {
				log.CtxWarn(ctx, "resubscribe failed: topic=%s, target=%s, error=%v", sub.topic, sub.target, err)
			}
		}

		t.readLoop(ctx, conn)

		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		closed := t.closed
		t.mu.Unlock()
		conn.Close()

		if closed {
			return
		}
		t.failAll(errcode.ErrConnClosed)
	}
}

func (t *wsTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	return conn, err
}

// readLoop pumps frames from one connection until it drops
func (t *wsTransport) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.CtxDebug(ctx, "read frame error: %v", err)
			return
		}

		var frame ServerFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.CtxWarn(ctx, "malformed frame skipped: %v", err)
			continue
		}
		t.dispatch(ctx, &frame)
	}
}

// dispatch routes one frame to its subscription. The handler runs with the
// mutex held; cancellation takes the same mutex, so a delivery can never
// race an unsubscribe.
func (t *wsTransport) dispatch(ctx context.Context, frame *ServerFrame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.subs[frame.SubId]
	if !ok {
		log.CtxDebug(ctx, "frame for inactive subscription dropped: sub_id=%s", frame.SubId)
		return
	}

	switch frame.Type {
	case FrameSnapshot:
		sub.handler(frame.Data)
	case FrameError:
		sub.fail(errcode.New(frame.ErrCode, frame.ErrMsg))
	default:
		log.CtxWarn(ctx, "unknown frame type skipped: type=%s", frame.Type)
	}
}

func (t *wsTransport) failAll(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		sub.fail(err)
	}
}

// writeFrame serializes writes; gorilla connections allow one writer
func (t *wsTransport) writeFrame(frame *ClientFrame) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errcode.ErrConnClosed
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return errcode.ErrConnClosed
	}
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *wsTransport) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	close(t.done)
	if conn != nil {
		conn.Close()
	}
}
