// Package notify carries the signals exchanged between the directory controllers and their
// surroundings: user-visible notices and the record-mutated event.
package notify

import (
	"context"
	"sync"
)

// Severity tells the presentation how to style a notice.
type Severity int

const (
	SeveritySuccess Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "success"
}

// Notice is a single message for the user.
type Notice struct {
	Message  string
	Severity Severity
}

// Success returns a success notice.
func Success(message string) Notice {
	return Notice{Message: message, Severity: SeveritySuccess}
}

// Failure returns an error notice. The message is prefixed with "error: ".
func Failure(message string) Notice {
	return Notice{Message: "error: " + message, Severity: SeverityError}
}

// Sink receives notices.
type Sink interface {
	Notify(n Notice)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Notice)

func (f SinkFunc) Notify(n Notice) {
	f(n)
}

// Discard drops every notice.
var Discard Sink = SinkFunc(func(Notice) {})

// Mutation is the kind of change that was persisted.
type Mutation int

const (
	Created Mutation = iota
	Updated
	Deleted
)

func (m Mutation) String() string {
	switch m {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "deleted"
	}
}

// RecordMutated is emitted after the backend accepted a create or update.
type RecordMutated struct {
	Kind Mutation
	ID   int64
}

// MutationHandler consumes RecordMutated events.
type MutationHandler interface {
	RecordMutated(ctx context.Context, ev RecordMutated)
}

// MutationHandlerFunc adapts a function to a MutationHandler.
type MutationHandlerFunc func(ctx context.Context, ev RecordMutated)

func (f MutationHandlerFunc) RecordMutated(ctx context.Context, ev RecordMutated) {
	f(ctx, ev)
}

// Recorder is a Sink that keeps every notice. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice and whether there was one.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
