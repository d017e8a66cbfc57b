package transport

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitford/spamrelay/internal/events"
)

// writeFrame writes one SSE data frame and flushes it.
func writeFrame(w http.ResponseWriter, flusher http.Flusher, payload []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// writeComment writes one SSE comment frame and flushes it.
func writeComment(w http.ResponseWriter, flusher http.Flusher, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// handleSSEPost is the event-stream flavor of the request/response
// transport. A plain JSON body gets its single response framed as one
// SSE event. A body that is itself SSE-framed (Content-Type
// text/event-stream) switches to the bidirectional session mode.
func (h *Handler) handleSSEPost(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/event-stream") {
		h.handleSSESession(w, r, flusher)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := h.responder.HandleMessage(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := writeFrame(w, flusher, resp); err != nil {
		log.Printf("write SSE response: %v", err)
	}
}

// handleSSESession keeps one bidirectional stream per connection: input
// frames are scanned off the request body as they arrive and each
// response goes back as an output frame on the same stream. A malformed
// frame produces a parse-error frame and the session continues.
func (h *Handler) handleSSESession(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	streamID := uuid.NewString()
	h.publish(events.NewStreamOpenedEvent(streamID, r.RemoteAddr))
	reason := "body closed"
	defer func() {
		h.publish(events.NewStreamClosedEvent(streamID, reason))
	}()

	scanner := newFrameScanner(r.Body, maxFrameSize)
	for {
		data, err := scanner.Next()
		if err != nil {
			if err != io.EOF {
				reason = "read failed"
				log.Printf("stream %s read: %v", streamID, err)
			}
			return
		}
		if len(data) == 0 {
			continue
		}

		resp := h.responder.HandleMessage(r.Context(), data)
		if resp == nil {
			continue
		}
		if err := writeFrame(w, flusher, resp); err != nil {
			reason = "write failed"
			log.Printf("stream %s write: %v", streamID, err)
			return
		}
	}
}

// streamState tracks the keep-alive stream's lifecycle: it opens, ticks
// until a terminal transition fires, then closes exactly once.
type streamState int

const (
	streamOpen streamState = iota
	streamClosed
)

// handleSSEStream serves the long-lived GET stream. It emits a
// readiness comment immediately, then keep-alive comments on a fixed
// interval until the client disconnects, a write fails, or the maximum
// lifetime elapses. The ticker is stopped on every exit path.
func (h *Handler) handleSSEStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	streamID := uuid.NewString()
	h.publish(events.NewStreamOpenedEvent(streamID, r.RemoteAddr))

	if err := writeComment(w, flusher, "connected"); err != nil {
		h.publish(events.NewStreamClosedEvent(streamID, "write failed"))
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	lifetime := time.NewTimer(h.maxLifetime)
	defer lifetime.Stop()

	state := streamOpen
	reason := ""
	for state == streamOpen {
		select {
		case <-r.Context().Done():
			state, reason = streamClosed, "client disconnected"
		case <-lifetime.C:
			state, reason = streamClosed, "lifetime expired"
		case <-ticker.C:
			// A failed write means the peer is gone; that is the
			// tear-down signal for the keep-alive loop.
			if err := writeComment(w, flusher, "keepalive"); err != nil {
				state, reason = streamClosed, "write failed"
			}
		}
	}

	h.publish(events.NewStreamClosedEvent(streamID, reason))
}
