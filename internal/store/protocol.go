package store

import "encoding/json"

// Frame types on the subscription websocket
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSnapshot    = "snapshot"
	FrameError       = "error"
)

// Subscription topics
const (
	TopicConversations = "conversations"
	TopicMessages      = "messages"
)

// ClientFrame represents a frame sent by the client
type ClientFrame struct {
	Type        string `json:"type"`
	SubId       string `json:"sub_id"`
	Topic       string `json:"topic,omitempty"`
	Target      string `json:"target,omitempty"` // user id or conversation id
	Token       string `json:"token,omitempty"`
	OperationId string `json:"operation_id,omitempty"`
}

// ServerFrame represents a frame pushed by the remote store
type ServerFrame struct {
	Type    string          `json:"type"`
	SubId   string          `json:"sub_id"`
	ErrCode int             `json:"err_code,omitempty"`
	ErrMsg  string          `json:"err_msg,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"` // full result-set snapshot
}
