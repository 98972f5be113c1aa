package actor

import (
	"time"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/domain/robot"
)

// Publisher receives a snapshot after every accepted mutation.
type Publisher interface {
	Publish(robotID string, snapshot robot.State) int
}

// Options tunes a Registry.
type Options struct {
	ArbitrationWindow time.Duration
	MailboxSize       int
}

// Option configures a Registry.
type Option func(*Options)

// WithArbitrationWindow sets how long a stream command blocks discrete commands.
func WithArbitrationWindow(window time.Duration) Option {
	return func(o *Options) {
		if window > 0 {
			o.ArbitrationWindow = window
		}
	}
}

// WithMailboxSize bounds the per-robot message queue.
func WithMailboxSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.MailboxSize = size
		}
	}
}

func newOptions(opts []Option) *Options {
	o := &Options{
		ArbitrationWindow: config.DefaultArbitrationWindow,
		MailboxSize:       config.DefaultMailboxSize,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}
