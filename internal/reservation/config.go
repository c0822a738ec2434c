package reservation

import (
	"time"
	_ "time/tzdata"
)

// Config is the explicit engine configuration handed to Manager and
// Dispatcher at construction.
type Config struct {
	// PushEnabled gates every call to the external scheduler.
	PushEnabled bool

	// LeadMinutesDefault applies to rooms without their own lead time.
	// Values <= 0 fall back to DefaultLeadMinutes; rooms can still set 0.
	LeadMinutesDefault int

	// WebhookSecret, when set, is required to sign room-link callbacks.
	WebhookSecret string

	// DefaultTimezone labels events created without a timezone in rooms
	// without one.
	DefaultTimezone string

	// DefaultPowerAttribute is the device attribute for rooms without
	// their own.
	DefaultPowerAttribute string
}

// DefaultTimezone is used when Config.DefaultTimezone is empty.
const DefaultTimezone = "America/Belem"

func (c Config) leadMinutes() int {
	if c.LeadMinutesDefault <= 0 {
		return DefaultLeadMinutes
	}
	return c.LeadMinutesDefault
}

func (c Config) powerAttribute() string {
	if c.DefaultPowerAttribute == "" {
		return DefaultPowerAttribute
	}
	return c.DefaultPowerAttribute
}

func (c Config) timezone() string {
	if c.DefaultTimezone == "" {
		return DefaultTimezone
	}
	return c.DefaultTimezone
}

// DispatcherConfig controls the reconciliation sweep.
type DispatcherConfig struct {
	// Interval between sweeps.
	Interval time.Duration

	// Horizon is how far ahead of now a confirmed event must start to be
	// re-pushed.
	Horizon time.Duration
}

const (
	DefaultSweepInterval = time.Minute
	DefaultSweepHorizon  = 10 * time.Minute
)

// PusherConfig sizes the asynchronous push queue.
type PusherConfig struct {
	QueueSize int
	Workers   int

	// Timeout bounds each scheduler call.
	Timeout time.Duration
}

const (
	DefaultQueueSize   = 256
	DefaultPushWorkers = 2
	DefaultPushTimeout = 15 * time.Second
)
