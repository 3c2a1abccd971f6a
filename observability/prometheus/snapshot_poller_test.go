package prometheus

import (
	"testing"
	"time"

	"github.com/Swind/go-dispatch-queue/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubProvider struct {
	stats core.QueueStats
}

func (s *stubProvider) Stats() core.QueueStats {
	return s.stats
}

func TestSnapshotPoller_CollectExportsStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Second)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.RegisterQueue("io", &stubProvider{stats: core.QueueStats{
		Name:     "io",
		Type:     "serial",
		Pending:  3,
		Running:  1,
		Disposed: false,
	}})

	poller.Collect()

	pending := testutil.ToFloat64(poller.queuePending.WithLabelValues("io", "serial"))
	if pending != 3 {
		t.Errorf("pending gauge = %v, want 3", pending)
	}
	running := testutil.ToFloat64(poller.queueRunning.WithLabelValues("io", "serial"))
	if running != 1 {
		t.Errorf("running gauge = %v, want 1", running)
	}
	disposed := testutil.ToFloat64(poller.queueDisposed.WithLabelValues("io", "serial"))
	if disposed != 0 {
		t.Errorf("disposed gauge = %v, want 0", disposed)
	}
}

func TestSnapshotPoller_UnregisterStopsUpdates(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Second)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	provider := &stubProvider{stats: core.QueueStats{Name: "io", Type: "serial", Pending: 3}}
	poller.RegisterQueue("io", provider)
	poller.Collect()

	poller.UnregisterQueue("io")
	provider.stats.Pending = 9
	poller.Collect()

	// The gauge keeps its last exported value after unregistration.
	pending := testutil.ToFloat64(poller.queuePending.WithLabelValues("io", "serial"))
	if pending != 3 {
		t.Errorf("pending gauge after unregister = %v, want 3", pending)
	}
}

func TestSnapshotPoller_StartStop(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.RegisterQueue("io", &stubProvider{stats: core.QueueStats{Name: "io", Type: "serial", Pending: 5}})

	poller.Start()
	poller.Start() // idempotent while running

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(poller.queuePending.WithLabelValues("io", "serial")) != 5 {
		if time.Now().After(deadline) {
			t.Fatal("poller never exported the snapshot")
		}
		time.Sleep(5 * time.Millisecond)
	}

	poller.Stop()
	poller.Stop() // idempotent when stopped
}
