// Package callback carries decoded results from message handlers to
// application code.
package callback

import "time"

// Name identifies a callback kind.
type Name string

// Callback is a typed result posted by a handler.
type Callback interface {
	Name() Name
	Time() time.Time
}

// Sink accepts callbacks. Post must not block on I/O.
type Sink interface {
	Post(cb Callback)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cb Callback)

func (f SinkFunc) Post(cb Callback) { f(cb) }

// Tee posts every callback to each sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(cb Callback) {
		for _, s := range sinks {
			s.Post(cb)
		}
	})
}

// Base holds the fields shared by all callbacks.
type Base struct {
	When  time.Time `json:"when"`
	JobID uint64    `json:"job_id,omitempty"`
}

func (b Base) Time() time.Time { return b.When }

// NewBase stamps a callback with the current time and the job it answers.
func NewBase(jobID uint64) Base {
	return Base{When: time.Now(), JobID: jobID}
}
