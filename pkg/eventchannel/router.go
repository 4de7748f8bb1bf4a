package eventchannel

import (
	"encoding/json"
	"fmt"

	"github.com/mcpstudio/chatlink/pkg/logging"
)

// router decodes inbound frames and fans them out to registered handlers.
// It never propagates a failure back to the transport read loop: malformed
// frames are logged and dropped, and a panicking handler is isolated so the
// remaining handlers still run.
type router struct {
	registry *registry
	logger   logging.Logger
}

func newRouter(registry *registry, logger logging.Logger) *router {
	return &router{
		registry: registry,
		logger:   logger,
	}
}

// dispatch parses raw into an Envelope and delivers it, in order, to every
// handler registered under the exact type and then to every wildcard
// handler. Envelopes with a type nobody listens to are accepted silently.
func (rt *router) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rt.logger.Warn("dropping malformed frame", logging.Error(err))
		return
	}
	if env.Type == "" {
		rt.logger.Warn("dropping frame without type")
		return
	}
	rt.dispatchEnvelope(env)
}

// dispatchEnvelope delivers an already-parsed envelope. Also used by the
// channel to surface synthetic error events (e.g. reconnect attempts
// exhausted) through the same path real frames take.
func (rt *router) dispatchEnvelope(env Envelope) {
	for _, h := range rt.registry.handlersFor(env.Type) {
		rt.invoke(h, env)
	}
	if env.Type == EventWildcard {
		return
	}
	for _, h := range rt.registry.handlersFor(EventWildcard) {
		rt.invoke(h, env)
	}
}

func (rt *router) invoke(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("handler panic recovered",
				logging.String("event_type", env.Type),
				logging.String("panic", fmt.Sprintf("%v", r)),
			)
		}
	}()
	h.OnEvent(env)
}
