package eventchannel

import "encoding/json"

// Envelope is the unit exchanged over the event channel: a JSON text frame
// shaped {"type": <string>, "data": <object>}. Inbound payloads are forwarded
// to handlers verbatim; the channel never inspects Data beyond the frame
// boundary. An Envelope is immutable once constructed.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Control frame types sent by the client.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameGetStatus   = "get_status"
	FrameGetTools    = "get_tools"
)

// Event types published by the peer. Payload shapes are opaque to the
// channel; the constants exist so consumers subscribe by name without
// scattering string literals.
const (
	EventServerStatusUpdate      = "server_status_update"
	EventToolsUpdate             = "tools_update"
	EventServerToolsUpdate       = "server_tools_update"
	EventToolExecutionResult     = "tool_execution_result"
	EventStatusUpdate            = "status_update"
	EventSubscriptionConfirmed   = "subscription_confirmed"
	EventUnsubscriptionConfirmed = "unsubscription_confirmed"
	EventError                   = "error"
)

// EventWildcard subscribes a handler to every inbound envelope regardless of
// type. It is local to the client: wildcard registrations are never announced
// to the peer and never take part in resubscription replay.
const EventWildcard = "*"

var emptyData = json.RawMessage(`{}`)

// newControlFrame builds an outbound control envelope. Frames that carry no
// parameters get an empty object so the wire shape stays uniform.
func newControlFrame(frameType string, data interface{}) (Envelope, error) {
	if data == nil {
		return Envelope{Type: frameType, Data: emptyData}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: frameType, Data: raw}, nil
}

// subscribePayload is the data object of subscribe/unsubscribe frames.
type subscribePayload struct {
	EventType string `json:"event_type"`
}

func subscribeFrame(eventType string) Envelope {
	env, _ := newControlFrame(FrameSubscribe, subscribePayload{EventType: eventType})
	return env
}

func unsubscribeFrame(eventType string) Envelope {
	env, _ := newControlFrame(FrameUnsubscribe, subscribePayload{EventType: eventType})
	return env
}

// Handler consumes envelopes delivered by the channel. Implementations are
// registered per event type (or under EventWildcard) and invoked in
// registration order.
type Handler interface {
	OnEvent(env Envelope)
}

// handlerFunc adapts a plain function to Handler. The adapter is a pointer so
// registered handlers stay comparable, which Unsubscribe relies on to remove
// a specific instance.
type handlerFunc struct {
	fn func(Envelope)
}

func (h *handlerFunc) OnEvent(env Envelope) {
	h.fn(env)
}

// HandlerFunc wraps fn as a Handler. Each call returns a distinct handler
// identity: registering the result twice counts as two registrations, and
// unsubscribing requires the value returned here, not a new wrapper around
// the same function.
func HandlerFunc(fn func(Envelope)) Handler {
	return &handlerFunc{fn: fn}
}
