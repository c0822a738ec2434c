package reservation

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/room-reservation-manager/backend/internal/metrics"
	"github.com/room-reservation-manager/backend/internal/openremote"
)

// ScheduleClient is the external scheduler contract. *openremote.Client
// implements it.
type ScheduleClient interface {
	Upsert(ctx context.Context, s openremote.Schedule) error
	Remove(ctx context.Context, scheduleID string) error
}

// PushOp identifies a scheduler call.
type PushOp string

const (
	OpUpsert PushOp = "upsert"
	OpRemove PushOp = "remove"
)

// PushTask is one scheduler call handed off by the request path.
type PushTask struct {
	Op       PushOp
	EventID  string
	Schedule openremote.Schedule
}

// TaskQueue accepts push tasks without blocking.
type TaskQueue interface {
	Enqueue(task PushTask) bool
}

// Pusher runs scheduler calls on a small worker pool so request handlers
// never wait on the external service. Tasks for one event always land on
// the same worker, so they run in the order they were enqueued. Failed
// calls are logged and dropped; the dispatcher re-pushes upserts on its
// next sweep.
type Pusher struct {
	client   ScheduleClient
	config   PusherConfig
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics

	shards []chan PushTask
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewPusher creates a push queue. notifier, logger and m may be nil.
func NewPusher(client ScheduleClient, cfg PusherConfig, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Pusher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPushWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPushTimeout
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Capacity is split across the shards, rounding up.
	perShard := (cfg.QueueSize + cfg.Workers - 1) / cfg.Workers
	shards := make([]chan PushTask, cfg.Workers)
	for i := range shards {
		shards[i] = make(chan PushTask, perShard)
	}

	return &Pusher{
		client:   client,
		config:   cfg,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		shards:   shards,
	}
}

// Start launches the workers.
func (p *Pusher) Start() {
	for _, shard := range p.shards {
		p.wg.Add(1)
		go p.worker(shard)
	}
	p.logger.Info("push queue started", "workers", p.config.Workers, "capacity", p.config.QueueSize)
}

// Stop refuses new tasks, drains the queue and waits for the workers.
func (p *Pusher) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, shard := range p.shards {
		close(shard)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("push queue stopped")
}

// Enqueue hands a task to the workers. It never blocks: when the queue is
// full or stopped the task is dropped and false is returned.
func (p *Pusher) Enqueue(task PushTask) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("push queue stopped, dropping task", "op", task.Op, "event_id", task.EventID)
		p.metrics.ObserveDropped()
		return false
	}

	select {
	case p.shardFor(task.EventID) <- task:
		p.metrics.SetQueueDepth(p.Pending())
		return true
	default:
		p.logger.Warn("push queue full, dropping task", "op", task.Op, "event_id", task.EventID)
		p.metrics.ObserveDropped()
		return false
	}
}

// Pending returns the number of queued tasks.
func (p *Pusher) Pending() int {
	n := 0
	for _, shard := range p.shards {
		n += len(shard)
	}
	return n
}

// shardFor picks the worker channel that owns eventID.
func (p *Pusher) shardFor(eventID string) chan PushTask {
	h := fnv.New32a()
	h.Write([]byte(eventID))
	return p.shards[h.Sum32()%uint32(len(p.shards))]
}

func (p *Pusher) worker(tasks <-chan PushTask) {
	defer p.wg.Done()
	for task := range tasks {
		p.metrics.SetQueueDepth(p.Pending())
		p.run(task)
	}
}

func (p *Pusher) run(task PushTask) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	var err error
	switch task.Op {
	case OpUpsert:
		err = p.client.Upsert(ctx, task.Schedule)
	case OpRemove:
		err = p.client.Remove(ctx, task.EventID)
	default:
		p.logger.Error("unknown push op", "op", task.Op, "event_id", task.EventID)
		return
	}

	p.metrics.ObservePush(string(task.Op), err)
	outcome := PushOutcome{Op: task.Op, EventID: task.EventID, Source: "request"}
	if err != nil {
		outcome.Error = err.Error()
		p.logger.Error("schedule push failed", "op", task.Op, "event_id", task.EventID, "error", err)
	} else {
		p.logger.Debug("schedule pushed", "op", task.Op, "event_id", task.EventID)
	}
	p.notifier.SchedulePushed(outcome)
}
