package dat

import (
	"time"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
)

type options struct {
	log         logger.Logger
	registry    *Registry
	expectedTag string
	alignment   int
	hook        func(Change)
	clock       func() time.Time
}

// Option configures Load.
type Option func(*options)

func defaultOptions() options {
	return options{
		log:       logger.Discard(),
		alignment: DefaultAlignment,
		clock:     time.Now,
	}
}

// WithLogger sets the logger used for warnings (unresolved pointers, rounding, orphans).
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRegistry sets the record-shape registry used by the identifier.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithExpectedTag makes Load fail unless the header type tag equals tag.
func WithExpectedTag(tag string) Option {
	return func(o *options) { o.expectedTag = tag }
}

// WithAlignment sets the resize alignment unit. Values below 1 are ignored.
func WithAlignment(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.alignment = n
		}
	}
}

// WithChangeHook registers a callback invoked after each successful mutation.
func WithChangeHook(fn func(Change)) Option {
	return func(o *options) { o.hook = fn }
}

// WithClock overrides the change-log timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = fn
		}
	}
}
