package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/kit/log"

	"github.com/evermeet/chatsync/internal/config"
	"github.com/evermeet/chatsync/internal/entity"
	"github.com/evermeet/chatsync/pkg/idgen"
)

// Response represents the standard remote store API envelope
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RemoteStore talks to the hosted document store: writes over HTTP,
// subscriptions over a shared websocket connection. Writes are single-shot;
// the transport owns reconnect and resubscribe.
type RemoteStore struct {
	baseURL    string
	token      string
	httpClient *client.Client
	transport  *wsTransport
}

// NewRemoteStore creates a store client from config and a session token
func NewRemoteStore(cfg *config.Config, token string) (*RemoteStore, error) {
	httpClient, err := client.NewClient(
		client.WithDialTimeout(cfg.Remote.DialTimeout),
		client.WithClientReadTimeout(cfg.Remote.RequestTimeout),
		client.WithWriteTimeout(cfg.Remote.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &RemoteStore{
		baseURL:    cfg.Remote.BaseURL,
		token:      token,
		httpClient: httpClient,
		transport: newWSTransport(
			cfg.Remote.WSURL,
			token,
			cfg.Remote.DialTimeout,
			cfg.Remote.ReconnectBackoff,
			cfg.Remote.MaxBackoff,
		),
	}, nil
}

// SubscribeConversations opens a snapshot stream of the user's conversations.
// The subscription is created before the transport registration, so a frame
// arriving immediately always has somewhere to go.
func (s *RemoteStore) SubscribeConversations(ctx context.Context, userId string) (*ConversationSubscription, error) {
	var cancel func()
	sub := NewConversationSubscription(func() {
		if cancel != nil {
			cancel()
		}
	})

	var err error
	cancel, err = s.transport.subscribe(ctx, TopicConversations, userId,
		func(raw json.RawMessage) {
			sub.Deliver(decodeConversations(raw))
		},
		sub.Fail,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// SubscribeMessages opens a snapshot stream of one conversation's messages
func (s *RemoteStore) SubscribeMessages(ctx context.Context, conversationId string) (*MessageSubscription, error) {
	var cancel func()
	sub := NewMessageSubscription(conversationId, func() {
		if cancel != nil {
			cancel()
		}
	})

	var err error
	cancel, err = s.transport.subscribe(ctx, TopicMessages, conversationId,
		func(raw json.RawMessage) {
			sub.Deliver(decodeMessages(raw))
		},
		sub.Fail,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// createMessageRequest is the body of POST /message/create
type createMessageRequest struct {
	ConversationId string          `json:"conversation_id"`
	Message        *entity.Message `json:"message"`
}

type createMessageResponse struct {
	Id string `json:"id"`
}

// CreateMessage persists a new message document and returns its remote id.
// The provisional local id is not sent; the store assigns identity.
func (s *RemoteStore) CreateMessage(ctx context.Context, conversationId string, msg *entity.Message) (string, error) {
	payload := msg.Clone()
	payload.Id = ""

	var result createMessageResponse
	err := s.post(ctx, "/message/create", &createMessageRequest{
		ConversationId: conversationId,
		Message:        payload,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Id, nil
}

// updateLastMessageRequest is the body of PUT /conversation/last_message
type updateLastMessageRequest struct {
	ConversationId string              `json:"conversation_id"`
	LastMessage    *entity.LastMessage `json:"last_message"`
	UpdatedAt      int64               `json:"updated_at"`
}

// UpdateConversationLastMessage writes the denormalized snapshot
func (s *RemoteStore) UpdateConversationLastMessage(ctx context.Context, conversationId string, last *entity.LastMessage, updatedAt int64) error {
	return s.put(ctx, "/conversation/last_message", &updateLastMessageRequest{
		ConversationId: conversationId,
		LastMessage:    last,
		UpdatedAt:      updatedAt,
	})
}

// updateFlagsRequest is the body of PUT /conversation/flags
type updateFlagsRequest struct {
	ConversationId string `json:"conversation_id"`
	Field          string `json:"field"`
	Op             string `json:"op"`
	UserId         string `json:"user_id"`
}

// UpdateConversationFlags applies one add/remove delta to a flag set
func (s *RemoteStore) UpdateConversationFlags(ctx context.Context, conversationId string, field string, delta FlagDelta) error {
	return s.put(ctx, "/conversation/flags", &updateFlagsRequest{
		ConversationId: conversationId,
		Field:          field,
		Op:             delta.Op,
		UserId:         delta.UserId,
	})
}

// Close tears down the subscription transport
func (s *RemoteStore) Close() error {
	s.transport.close()
	return nil
}

// request makes an HTTP request and decodes the envelope
func (s *RemoteStore) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	req := &protocol.Request{}
	resp := &protocol.Response{}

	req.SetMethod(method)
	req.SetRequestURI(s.baseURL + path)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operation-Id", idgen.NewOperationId())

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.SetBody(jsonBody)
	}

	if err := s.httpClient.Do(ctx, req, resp); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var apiResp Response
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Code != 0 {
		return fmt.Errorf("remote store error: code=%d, msg=%s", apiResp.Code, apiResp.Msg)
	}

	if result != nil && apiResp.Data != nil {
		if err := json.Unmarshal(apiResp.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func (s *RemoteStore) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return s.request(ctx, consts.MethodPost, path, body, result)
}

func (s *RemoteStore) put(ctx context.Context, path string, body interface{}) error {
	return s.request(ctx, consts.MethodPut, path, body, nil)
}

// decodeConversations parses a snapshot, skipping malformed documents
func decodeConversations(raw json.RawMessage) []*entity.Conversation {
	ctx := context.Background()

	var docs []*entity.Conversation
	if err := json.Unmarshal(raw, &docs); err != nil {
		log.CtxWarn(ctx, "malformed conversation snapshot skipped: %v", err)
		return nil
	}

	out := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		if doc == nil || doc.Id == "" {
			log.CtxWarn(ctx, "conversation document missing id skipped")
			continue
		}
		out = append(out, doc)
	}
	return out
}

// decodeMessages parses a snapshot, skipping malformed documents and
// sorting by timestamp ascending before delivery. The sort is stable so
// equal timestamps keep store order.
func decodeMessages(raw json.RawMessage) []*entity.Message {
	ctx := context.Background()

	var docs []*entity.Message
	if err := json.Unmarshal(raw, &docs); err != nil {
		log.CtxWarn(ctx, "malformed message snapshot skipped: %v", err)
		return nil
	}

	out := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		if !doc.Valid() {
			log.CtxWarn(ctx, "invalid message document skipped")
			continue
		}
		out = append(out, doc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

var _ Store = (*RemoteStore)(nil)
