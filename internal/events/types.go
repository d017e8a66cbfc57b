// Package events provides the in-process event system for spamrelay.
package events

import (
	"time"
)

// EventType identifies the kind of event.
type EventType int

const (
	EventLookupCompleted EventType = iota
	EventLookupFailed
	EventStreamOpened
	EventStreamClosed
)

func (e EventType) String() string {
	switch e {
	case EventLookupCompleted:
		return "lookup_completed"
	case EventLookupFailed:
		return "lookup_failed"
	case EventStreamOpened:
		return "stream_opened"
	case EventStreamClosed:
		return "stream_closed"
	default:
		return "unknown"
	}
}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	timestamp time.Time
}

func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// LookupCompletedEvent is emitted after a successful upstream lookup.
// The number is always masked before the event is constructed.
type LookupCompletedEvent struct {
	baseEvent
	MaskedNumber string
	SpamScore    int
	Reputation   string
}

func (e LookupCompletedEvent) Type() EventType { return EventLookupCompleted }

// NewLookupCompletedEvent creates a new lookup completed event.
func NewLookupCompletedEvent(maskedNumber string, spamScore int, reputation string) LookupCompletedEvent {
	return LookupCompletedEvent{
		baseEvent:    baseEvent{timestamp: time.Now()},
		MaskedNumber: maskedNumber,
		SpamScore:    spamScore,
		Reputation:   reputation,
	}
}

// LookupFailedEvent is emitted when an upstream lookup fails.
type LookupFailedEvent struct {
	baseEvent
	MaskedNumber string
	Reason       string
}

func (e LookupFailedEvent) Type() EventType { return EventLookupFailed }

// NewLookupFailedEvent creates a new lookup failed event.
func NewLookupFailedEvent(maskedNumber, reason string) LookupFailedEvent {
	return LookupFailedEvent{
		baseEvent:    baseEvent{timestamp: time.Now()},
		MaskedNumber: maskedNumber,
		Reason:       reason,
	}
}

// StreamOpenedEvent is emitted when a long-lived event stream is opened.
type StreamOpenedEvent struct {
	baseEvent
	StreamID   string
	RemoteAddr string
}

func (e StreamOpenedEvent) Type() EventType { return EventStreamOpened }

// NewStreamOpenedEvent creates a new stream opened event.
func NewStreamOpenedEvent(streamID, remoteAddr string) StreamOpenedEvent {
	return StreamOpenedEvent{
		baseEvent:  baseEvent{timestamp: time.Now()},
		StreamID:   streamID,
		RemoteAddr: remoteAddr,
	}
}

// StreamClosedEvent is emitted when a long-lived event stream ends.
type StreamClosedEvent struct {
	baseEvent
	StreamID string
	Reason   string
}

func (e StreamClosedEvent) Type() EventType { return EventStreamClosed }

// NewStreamClosedEvent creates a new stream closed event.
func NewStreamClosedEvent(streamID, reason string) StreamClosedEvent {
	return StreamClosedEvent{
		baseEvent: baseEvent{timestamp: time.Now()},
		StreamID:  streamID,
		Reason:    reason,
	}
}
