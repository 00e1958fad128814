package protocol

import "go.uber.org/zap"

const (
	// DefaultMaxDepth bounds batch-in-batch nesting.
	DefaultMaxDepth = 8
	// DefaultMaxUnzipped bounds the decompressed size of one batch.
	DefaultMaxUnzipped = 64 << 20
)

// Option configures a Router.
type Option func(*Router)

// WithMaxDepth sets the deepest nesting level that is still routed. Values
// below zero are ignored.
func WithMaxDepth(n int) Option {
	return func(r *Router) {
		if n >= 0 {
			r.maxDepth = n
		}
	}
}

// WithLogger replaces the default router logger. nil is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// WithErrorHook is called for every reported error after it is logged.
func WithErrorHook(fn func(env *Envelope, err error)) Option {
	return func(r *Router) { r.onError = fn }
}

// WithMetrics toggles the Prometheus counters. They are on by default.
func WithMetrics(on bool) Option {
	return func(r *Router) { r.metrics = on }
}

// BatchOption configures a BatchDecoder.
type BatchOption func(*BatchDecoder)

// WithMaxUnzipped caps the decompressed size of a batch body. A body that
// inflates past n is a decompression failure.
func WithMaxUnzipped(n int64) BatchOption {
	return func(b *BatchDecoder) {
		if n > 0 {
			b.maxUnzipped = n
		}
	}
}

// WithBatchMetrics toggles the batch frame counter. It is on by default.
func WithBatchMetrics(on bool) BatchOption {
	return func(b *BatchDecoder) { b.metrics = on }
}
