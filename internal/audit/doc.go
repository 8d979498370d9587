// Package audit delivers login, logout and validation events to a Sink on a
// background goroutine.
//
// The engine decides what to record. This package only buffers: a
// Dispatcher either drops events when its queue is full (counting each drop)
// or makes the caller wait for space. Close drains whatever is queued before
// returning.
//
// Sinks shipped here write to a channel, to an io.Writer as JSON lines, to a
// slog.Logger, or nowhere.
package audit
