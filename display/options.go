package display

import "time"

// Option configures a surface.
type Option func(*config)

type config struct {
	maxInFlight    int
	acquireTimeout time.Duration
	tickInterval   time.Duration
	onPresent      PresentFunc
	label          string
}

func defaultConfig() config {
	return config{
		maxInFlight:    DefaultMaxInFlight,
		acquireTimeout: DefaultAcquireTimeout,
		tickInterval:   DefaultTickInterval,
		label:          "drawable",
	}
}

// WithMaxInFlight bounds the number of drawables in flight.
func WithMaxInFlight(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxInFlight = n
		}
	}
}

// WithAcquireTimeout sets how long NextDrawable waits for a free drawable.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.acquireTimeout = d
		}
	}
}

// WithTickInterval sets the render cadence of surfaces driven by a timer.
func WithTickInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithOnPresent installs a hook called with every presented image.
func WithOnPresent(fn PresentFunc) Option {
	return func(c *config) { c.onPresent = fn }
}

// WithLabel sets the texture label prefix.
func WithLabel(label string) Option {
	return func(c *config) { c.label = label }
}
