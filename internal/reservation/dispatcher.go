package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/room-reservation-manager/backend/internal/metrics"
)

// SweepResult summarizes one reconciliation sweep.
type SweepResult struct {
	Considered int `json:"considered"`
	Pushed     int `json:"pushed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Dispatcher periodically re-pushes the schedules of confirmed events that
// are running or about to start. Upserts are idempotent, so a sweep heals
// pushes that failed, were dropped or were lost to a restart.
type Dispatcher struct {
	events   EventStore
	client   ScheduleClient
	config   Config
	sweep    DispatcherConfig
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	cron  *cron.Cron
	entry cron.EntryID

	mu        sync.Mutex
	lastRun   time.Time
	lastSweep SweepResult
}

// NewDispatcher creates a reconciliation dispatcher. notifier, logger and m
// may be nil.
func NewDispatcher(events EventStore, client ScheduleClient, cfg Config, sweep DispatcherConfig, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if sweep.Interval <= 0 {
		sweep.Interval = DefaultSweepInterval
	}
	if sweep.Horizon <= 0 {
		sweep.Horizon = DefaultSweepHorizon
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		events:   events,
		client:   client,
		config:   cfg,
		sweep:    sweep,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
	}
}

// Start schedules the sweep on its interval.
func (d *Dispatcher) Start() error {
	id, err := d.cron.AddFunc(fmt.Sprintf("@every %s", d.sweep.Interval), d.tick)
	if err != nil {
		return fmt.Errorf("scheduling reconciliation: %w", err)
	}
	d.entry = id
	d.cron.Start()

	d.logger.Info("reconciliation dispatcher started",
		"interval", d.sweep.Interval, "horizon", d.sweep.Horizon, "push_enabled", d.config.PushEnabled)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (d *Dispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	d.logger.Info("reconciliation dispatcher stopped")
}

// NextRun returns when the next sweep is due, or the zero time when the
// dispatcher is not running.
func (d *Dispatcher) NextRun() time.Time {
	if d.entry == 0 {
		return time.Time{}
	}
	return d.cron.Entry(d.entry).Next
}

// LastSweep returns the time and result of the most recent sweep.
func (d *Dispatcher) LastSweep() (time.Time, SweepResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRun, d.lastSweep
}

func (d *Dispatcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.sweep.Interval)
	defer cancel()

	if _, err := d.Sweep(ctx, d.now()); err != nil {
		d.logger.Error("reconciliation sweep failed", "error", err)
	}
}

// Sweep re-pushes every confirmed event with start <= now+horizon and
// end >= now whose room has a device. A failed push is logged and counted
// and does not stop the sweep.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	if !d.config.PushEnabled {
		return result, nil
	}

	now = Normalize(now)
	events, err := d.events.ListConfirmedInWindow(ctx, now, now.Add(d.sweep.Horizon))
	if err != nil {
		return result, fmt.Errorf("listing confirmed events: %w", err)
	}

	for _, e := range events {
		result.Considered++

		s, ok := BuildSchedule(e.Event, e.Room, d.config)
		if !ok {
			result.Skipped++
			continue
		}

		err := d.client.Upsert(ctx, s)
		d.metrics.ObservePush(string(OpUpsert), err)
		outcome := PushOutcome{Op: OpUpsert, EventID: e.ID, Source: "reconcile"}
		if err != nil {
			result.Failed++
			outcome.Error = err.Error()
			d.logger.Error("reconcile push failed", "event_id", e.ID, "room_id", e.RoomID, "error", err)
		} else {
			result.Pushed++
		}
		d.notifier.SchedulePushed(outcome)
	}

	d.mu.Lock()
	d.lastRun, d.lastSweep = now, result
	d.mu.Unlock()

	d.metrics.ObserveSweep(result.Pushed, result.Skipped, result.Failed)
	if result.Considered > 0 {
		d.logger.Info("reconciliation sweep completed",
			"considered", result.Considered, "pushed", result.Pushed,
			"skipped", result.Skipped, "failed", result.Failed)
	}
	return result, nil
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
