// Package transport provides the HTTP front ends for the MCP server:
// a synchronous JSON endpoint and an event-stream endpoint. Both share
// one dispatch table through the Responder seam; the transports only
// frame bytes.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mwhitford/spamrelay/internal/events"
)

// Responder turns one raw protocol message into one marshaled response
// envelope. A nil return means the message was a notification and no
// frame must be emitted.
type Responder interface {
	HandleMessage(ctx context.Context, data []byte) []byte
}

// Options configures the HTTP handler.
type Options struct {
	Bus               *events.Bus // optional
	ServiceName       string
	ServiceVersion    string
	KeepAliveInterval time.Duration // keep-alive comment frame interval
	MaxStreamLifetime time.Duration // hard cap on a GET stream
}

// Handler is the root http.Handler covering every path and method.
type Handler struct {
	responder   Responder
	bus         *events.Bus
	service     string
	version     string
	keepAlive   time.Duration
	maxLifetime time.Duration
}

// NewHandler creates the root handler.
func NewHandler(responder Responder, opts Options) *Handler {
	keepAlive := opts.KeepAliveInterval
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	maxLifetime := opts.MaxStreamLifetime
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}
	return &Handler{
		responder:   responder,
		bus:         opts.Bus,
		service:     opts.ServiceName,
		version:     opts.ServiceVersion,
		keepAlive:   keepAlive,
		maxLifetime: maxLifetime,
	}
}

// ServeHTTP routes requests. OPTIONS preflight succeeds unconditionally
// on every path; unknown paths get the help text.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/mcp":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleJSONPost(w, r)
	case "/sse":
		switch r.Method {
		case http.MethodPost:
			h.handleSSEPost(w, r)
		case http.MethodGet:
			h.handleSSEStream(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "/health":
		h.handleHealth(w, r)
	default:
		h.handleIndex(w, r)
	}
}

// setCORSHeaders applies the permissive cross-origin policy shared by
// all endpoints.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
}

// handleJSONPost is the synchronous JSON transport: one message in, one
// JSON body out. Handler-level errors are well-formed envelopes with
// status 200; 500 is reserved for adapter failures.
func (h *Handler) handleJSONPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := h.responder.HandleMessage(r.Context(), body)
	if resp == nil {
		// Notification: acknowledged, nothing to return.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp); err != nil {
		log.Printf("write response: %v", err)
	}
}

// handleHealth serves the static liveness descriptor.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"service": h.service,
		"version": h.version,
		"endpoints": map[string]string{
			"mcp":    "/mcp",
			"sse":    "/sse",
			"health": "/health",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleIndex serves the help text for / and any unknown path.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s - phone spam reputation lookup over MCP\n\n", h.service)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  POST /mcp     JSON-RPC request, JSON response")
	fmt.Fprintln(w, "  POST /sse     JSON-RPC request, response framed as one SSE event")
	fmt.Fprintln(w, "  GET  /sse     long-lived keep-alive event stream")
	fmt.Fprintln(w, "  GET  /health  liveness descriptor")
}

// publish sends an event if a bus is configured.
func (h *Handler) publish(event events.Event) {
	if h.bus != nil {
		h.bus.Publish(event)
	}
}
