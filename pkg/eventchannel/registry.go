package eventchannel

import "sync"

// registry tracks which handlers are registered for which event types. Lists
// keep insertion order because dispatch order is registration order, and the
// type order of first subscription drives resubscription replay after a
// reconnect. Handlers are not de-duplicated: adding one twice means it runs
// twice.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	// typeOrder records each event type the first time a handler is added
	// for it, so ActiveTypes (and therefore replay) is deterministic.
	typeOrder []string
}

func newRegistry() *registry {
	return &registry{
		handlers: make(map[string][]Handler),
	}
}

// add appends handler to the list for eventType, creating it if absent.
// Returns true when this registration made the type active (no handlers
// before the call).
func (r *registry) add(eventType string, handler Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, known := r.handlers[eventType]
	if !known {
		r.typeOrder = append(r.typeOrder, eventType)
	}
	r.handlers[eventType] = append(list, handler)
	return len(list) == 0
}

// remove drops the first instance of handler from eventType's list. A nil
// handler drops every handler for the type. Returns true when the type ended
// up with no handlers.
func (r *registry) remove(eventType string, handler Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.handlers[eventType]
	if !ok {
		return false
	}

	if handler == nil {
		delete(r.handlers, eventType)
		r.dropFromOrder(eventType)
		return true
	}

	for i, h := range list {
		if h == handler {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.handlers, eventType)
		r.dropFromOrder(eventType)
		return true
	}
	r.handlers[eventType] = list
	return false
}

func (r *registry) dropFromOrder(eventType string) {
	for i, t := range r.typeOrder {
		if t == eventType {
			r.typeOrder = append(r.typeOrder[:i], r.typeOrder[i+1:]...)
			return
		}
	}
}

// handlersFor returns a snapshot of the handlers registered under eventType.
func (r *registry) handlersFor(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.handlers[eventType]
	if len(list) == 0 {
		return nil
	}
	snapshot := make([]Handler, len(list))
	copy(snapshot, list)
	return snapshot
}

// activeTypes returns the event types that currently have at least one
// handler, in the order they were first subscribed. The wildcard is local
// only and excluded: it is never announced to the peer.
func (r *registry) activeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.typeOrder))
	for _, t := range r.typeOrder {
		if t == EventWildcard {
			continue
		}
		if len(r.handlers[t]) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// clear removes every registration. Called by Disconnect: a voluntary
// disconnect ends the session, and consumers must resubscribe afterwards.
func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]Handler)
	r.typeOrder = nil
}
