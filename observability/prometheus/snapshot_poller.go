package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-dispatch-queue/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// QueueSnapshotProvider provides current queue stats snapshots.
// Both core.SerialQueue and core.PoolQueue satisfy it.
type QueueSnapshotProvider interface {
	Stats() core.QueueStats
}

// SnapshotPoller periodically exports queue Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	queuesMu sync.RWMutex
	queues   map[string]QueueSnapshotProvider

	queuePending  *prom.GaugeVec
	queueRunning  *prom.GaugeVec
	queueDisposed *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	queuePending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "dispatchqueue",
		Name:      "pending",
		Help:      "Number of pending tasks per queue.",
	}, []string{"queue", "type"})
	queueRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "dispatchqueue",
		Name:      "running",
		Help:      "Number of running tasks per queue.",
	}, []string{"queue", "type"})
	queueDisposed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "dispatchqueue",
		Name:      "disposed",
		Help:      "Queue disposed state (1=disposed, 0=live).",
	}, []string{"queue", "type"})

	var err error
	if queuePending, err = registerCollector(reg, queuePending); err != nil {
		return nil, err
	}
	if queueRunning, err = registerCollector(reg, queueRunning); err != nil {
		return nil, err
	}
	if queueDisposed, err = registerCollector(reg, queueDisposed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:      interval,
		queues:        make(map[string]QueueSnapshotProvider),
		queuePending:  queuePending,
		queueRunning:  queueRunning,
		queueDisposed: queueDisposed,
	}, nil
}

// RegisterQueue adds a queue to the polling set. The key must be unique per
// poller; re-registering replaces the previous provider.
func (p *SnapshotPoller) RegisterQueue(key string, provider QueueSnapshotProvider) {
	p.queuesMu.Lock()
	defer p.queuesMu.Unlock()
	p.queues[key] = provider
}

// UnregisterQueue removes a queue from the polling set.
func (p *SnapshotPoller) UnregisterQueue(key string) {
	p.queuesMu.Lock()
	defer p.queuesMu.Unlock()
	delete(p.queues, key)
}

// Collect takes one snapshot of every registered queue into the gauges.
func (p *SnapshotPoller) Collect() {
	p.queuesMu.RLock()
	defer p.queuesMu.RUnlock()

	for _, provider := range p.queues {
		stats := provider.Stats()
		queue := normalizeLabel(stats.Name, "unknown")
		kind := normalizeLabel(stats.Type, "unknown")

		p.queuePending.WithLabelValues(queue, kind).Set(float64(stats.Pending))
		p.queueRunning.WithLabelValues(queue, kind).Set(float64(stats.Running))
		if stats.Disposed {
			p.queueDisposed.WithLabelValues(queue, kind).Set(1)
		} else {
			p.queueDisposed.WithLabelValues(queue, kind).Set(0)
		}
	}
}

// Start launches the polling loop. A second Start is a no-op until Stop.
func (p *SnapshotPoller) Start() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Collect()
			}
		}
	}(p.done)
}

// Stop terminates the polling loop and waits for it to exit.
func (p *SnapshotPoller) Stop() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	<-p.done
	p.running = false
}
