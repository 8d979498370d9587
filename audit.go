package goSession

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one audit record. Secrets (tokens, credentials, hashes) are
// never placed in events; tokens are referenced by fingerprint.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON document per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a slog.Logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink returns a sink backed by a channel of the given capacity.
func NewChannelSink(buffer int) ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink returns a sink logging through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
