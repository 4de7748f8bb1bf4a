// Package chatlink provides Go client libraries for the MCP web chat
// backend: a real-time event channel over a persistent websocket, and a REST
// client for issuing commands whose results arrive on that channel.
//
// Core Features:
//
//   - Single websocket multiplexing independently-subscribed event streams
//     (server status, tool discovery, tool execution results)
//   - Automatic reconnection with exponential backoff and resubscription
//     replay after dropped connections
//   - Ordered handler dispatch with wildcard listeners and per-handler
//     fault isolation
//   - Rate-limited, retrying REST client for server and tool commands
//
// The event channel is the component applications interact with. Commands
// such as "connect server" or "execute tool" go through the REST client;
// their completion is broadcast by the backend as events, so a client must
// stay connected and subscribed to observe command outcomes.
//
// # Basic usage
//
//	channel := eventchannel.NewChannel(eventchannel.NewOptions("ws://localhost:8000"))
//
//	channel.Subscribe(eventchannel.EventServerStatusUpdate,
//	    eventchannel.HandlerFunc(func(env eventchannel.Envelope) {
//	        log.Printf("server status changed: %s", env.Data)
//	    }))
//
//	channel.Connect()
//	defer channel.Disconnect()
//
// Subscriptions registered before Connect are announced once the channel
// opens, and replayed automatically after every reconnect. A voluntary
// Disconnect clears all subscriptions; consumers resubscribe on the next
// session.
//
// # Observing command results
//
//	client := api.NewClient(api.DefaultConfig("http://localhost:8000"))
//
//	channel.Subscribe(eventchannel.EventToolExecutionResult,
//	    eventchannel.HandlerFunc(func(env eventchannel.Envelope) {
//	        // tool finished; env.Data carries server_id, tool_name, result
//	    }))
//
//	_, err := client.ExecuteTool(ctx, api.ToolExecutionRequest{
//	    ServerID: 1,
//	    ToolName: "read_file",
//	    Arguments: map[string]interface{}{"path": "README.md"},
//	})
//
// # Error handling
//
// Transient connection failures are recovered automatically according to the
// configured backoff policy. Once the attempt budget is exhausted the
// channel closes and subscribers of the "error" event type (and wildcard
// listeners) receive a terminal failure event. Sends issued while the
// channel is not open are dropped with eventchannel.ErrNotConnected; there
// is no outbound queue.
package chatlink
