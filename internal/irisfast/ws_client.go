package irisfast

import "context"

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// WSClient is the Iris websocket as seen by the bot and the egress layer.
type WSClient interface {
	Connect(ctx context.Context) error
	State() WebSocketState
	// WriteJSON sends one frame. Concurrent writers are serialized.
	WriteJSON(ctx context.Context, v any) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	Close(ctx context.Context) error
}
