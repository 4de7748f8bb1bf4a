package eventchannel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_ActiveTypesMatchesHandlerLists(t *testing.T) {
	reg := newRegistry()

	h1 := HandlerFunc(func(Envelope) {})
	h2 := HandlerFunc(func(Envelope) {})

	assert.Empty(t, reg.activeTypes())

	reg.add(EventStatusUpdate, h1)
	reg.add(EventToolsUpdate, h2)
	assert.Equal(t, []string{EventStatusUpdate, EventToolsUpdate}, reg.activeTypes())

	// Removing one of two handlers keeps the type active.
	reg.add(EventStatusUpdate, h2)
	reg.remove(EventStatusUpdate, h1)
	assert.Equal(t, []string{EventStatusUpdate, EventToolsUpdate}, reg.activeTypes())

	// Removing the last handler deactivates the type.
	reg.remove(EventStatusUpdate, h2)
	assert.Equal(t, []string{EventToolsUpdate}, reg.activeTypes())

	// A nil handler removes everything for the type.
	reg.remove(EventToolsUpdate, nil)
	assert.Empty(t, reg.activeTypes())
}

func TestRegistry_ActiveTypesKeepFirstSubscriptionOrder(t *testing.T) {
	reg := newRegistry()

	for _, eventType := range []string{"c", "a", "b"} {
		reg.add(eventType, HandlerFunc(func(Envelope) {}))
	}
	// Subscribing an already-known type again must not reorder it.
	reg.add("a", HandlerFunc(func(Envelope) {}))

	assert.Equal(t, []string{"c", "a", "b"}, reg.activeTypes())
}

func TestRegistry_ActiveTypesExcludesWildcard(t *testing.T) {
	reg := newRegistry()

	reg.add(EventWildcard, HandlerFunc(func(Envelope) {}))
	reg.add(EventStatusUpdate, HandlerFunc(func(Envelope) {}))

	assert.Equal(t, []string{EventStatusUpdate}, reg.activeTypes())
}

func TestRegistry_DuplicateHandlersAreKept(t *testing.T) {
	reg := newRegistry()

	h := HandlerFunc(func(Envelope) {})
	reg.add(EventStatusUpdate, h)
	reg.add(EventStatusUpdate, h)

	assert.Len(t, reg.handlersFor(EventStatusUpdate), 2)

	// Removing by handler drops only the first matching instance.
	reg.remove(EventStatusUpdate, h)
	assert.Len(t, reg.handlersFor(EventStatusUpdate), 1)
	assert.Equal(t, []string{EventStatusUpdate}, reg.activeTypes())
}

func TestRegistry_RemoveUnknown(t *testing.T) {
	reg := newRegistry()

	reg.add(EventStatusUpdate, HandlerFunc(func(Envelope) {}))

	// Unknown type or unregistered handler: nothing changes, nothing panics.
	reg.remove("never_subscribed", nil)
	reg.remove(EventStatusUpdate, HandlerFunc(func(Envelope) {}))

	assert.Equal(t, []string{EventStatusUpdate}, reg.activeTypes())
	assert.Len(t, reg.handlersFor(EventStatusUpdate), 1)
}

func TestRegistry_Clear(t *testing.T) {
	reg := newRegistry()

	for i := 0; i < 4; i++ {
		reg.add(fmt.Sprintf("type_%d", i), HandlerFunc(func(Envelope) {}))
	}
	reg.clear()

	assert.Empty(t, reg.activeTypes())
	assert.Nil(t, reg.handlersFor("type_0"))

	// The registry stays usable after a clear.
	reg.add(EventToolsUpdate, HandlerFunc(func(Envelope) {}))
	assert.Equal(t, []string{EventToolsUpdate}, reg.activeTypes())
}
