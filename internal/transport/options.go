package transport

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultOutBuffer    = 256
	DefaultMaxFrameSize = 16 << 20
)

// Options configures connections (shared across TCP/WS where applicable).
type Options struct {
	OutBuffer    int           // outgoing packet channel size
	ReadTimeout  time.Duration // per-read deadline; 0 to disable
	WriteTimeout time.Duration // per-write deadline; 0 to disable
	MaxFrameSize int           // largest packet accepted or sent
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.OutBuffer <= 0 {
		o.OutBuffer = DefaultOutBuffer
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = DefaultMaxFrameSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
