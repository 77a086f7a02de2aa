package cache

import "time"

// Option adjusts a single Manager call.
type Option func(*options)

type options struct {
	ttl      time.Duration
	tags     []string
	raw      bool
	noPrefix bool
}

// WithTTL sets the entry lifetime. Non-positive values fall back to the Manager default.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithTags attaches invalidation labels to the entry.
func WithTags(tags ...string) Option {
	return func(o *options) {
		o.tags = append(o.tags, tags...)
	}
}

// Raw stores or reads the value's plain string form instead of a serialized envelope.
func Raw() Option {
	return func(o *options) {
		o.raw = true
	}
}

// Unprefixed uses the key as given, skipping the Manager namespace.
// Intended for keys shared across namespaces.
func Unprefixed() Option {
	return func(o *options) {
		o.noPrefix = true
	}
}

func collectOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
