package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mwhitford/spamrelay/internal/events"
	"github.com/mwhitford/spamrelay/internal/lookup"
)

// LookupClient is the outbound dependency of the search tool.
type LookupClient interface {
	CheckSpamScore(ctx context.Context, number string) (*lookup.Result, error)
}

// Options configures the MCP server.
type Options struct {
	Lookups         LookupClient
	Bus             *events.Bus // optional; nil disables event publishing
	ServerName      string
	ServerVersion   string
	ProtocolVersion string
}

// serverInstructions describes the search/fetch workflow to connecting
// agents. Returned from initialize.
const serverInstructions = `This MCP server provides spam checking capabilities for phone numbers.
Use the search tool with a phone number in E.164 format (like +12345678901)
to check its spam reputation. Results include the spam score, reputation
label, and carrier details. Results are not stored between calls; run a
new search to refresh a report.`

// Server dispatches MCP methods. It holds no per-request state; every
// transport shares one instance and requests execute independently.
type Server struct {
	opts Options
	now  func() time.Time
}

// New creates a new MCP server.
func New(opts Options) *Server {
	return &Server{opts: opts, now: time.Now}
}

// JSON-RPC message types

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is the outgoing envelope. ID deliberately has no
// omitempty: a parse error must carry an explicit "id": null.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      serverInfo   `json:"serverInfo"`
	Capabilities    capabilities `json:"capabilities"`
	Instructions    string       `json:"instructions,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type capabilities struct {
	Tools *toolsCapability `json:"tools,omitempty"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// HandleMessage parses one JSON-RPC message and returns the marshaled
// response envelope. Returns nil for notifications (no id), which must
// not produce a response frame. This is the single entry point shared
// by every transport.
func (s *Server) HandleMessage(ctx context.Context, data []byte) []byte {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// No valid id could be recovered from the body.
		return marshalError(nil, ErrParseError(err.Error()))
	}

	if msg.ID == nil {
		s.handleNotification(msg.Method, msg.Params)
		return nil
	}

	result, rpcErr := s.dispatch(ctx, msg.Method, msg.Params)
	if rpcErr != nil {
		return marshalError(msg.ID, rpcErr)
	}
	return marshalResult(msg.ID, result)
}

// dispatch routes a request to its handler by method name.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *RPCError) {
	switch method {
	case "initialize":
		return s.handleInitialize(params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return s.handleToolsList()
	case "tools/call":
		return s.handleToolsCall(ctx, params)
	default:
		return nil, ErrMethodNotFound(method)
	}
}

// handleNotification processes a JSON-RPC notification.
func (s *Server) handleNotification(method string, params json.RawMessage) {
	switch method {
	case "notifications/initialized":
		log.Println("Client sent initialized notification")
	case "notifications/cancelled":
		log.Printf("Received cancellation notification: %s", string(params))
	default:
		log.Printf("Unknown notification: %s", method)
	}
}

// handleInitialize returns the static capability descriptor. The server
// is stateless, so initialize never fails and repeat calls are fine.
func (s *Server) handleInitialize(params json.RawMessage) (any, *RPCError) {
	if params != nil {
		var req struct {
			ProtocolVersion string `json:"protocolVersion"`
			ClientInfo      struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"clientInfo"`
		}
		if err := json.Unmarshal(params, &req); err == nil && req.ClientInfo.Name != "" {
			log.Printf("Initialize request from %s %s (protocol: %s)",
				req.ClientInfo.Name, req.ClientInfo.Version, req.ProtocolVersion)
		}
	}

	return initializeResult{
		ProtocolVersion: s.opts.ProtocolVersion,
		ServerInfo: serverInfo{
			Name:    s.opts.ServerName,
			Version: s.opts.ServerVersion,
		},
		Capabilities: capabilities{
			Tools: &toolsCapability{},
		},
		Instructions: serverInstructions,
	}, nil
}

// publish sends an event if a bus is configured.
func (s *Server) publish(event events.Event) {
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(event)
	}
}

// marshalResult builds a success envelope.
func marshalResult(id json.RawMessage, result any) []byte {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return marshalError(id, ErrInternalError(err.Error()))
	}
	data, _ := json.Marshal(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  resultJSON,
	})
	return data
}

// marshalError builds an error envelope. A nil id marshals as null.
func marshalError(id json.RawMessage, rpcErr *RPCError) []byte {
	data, _ := json.Marshal(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	})
	return data
}
