package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"feedlab/contract"
	"feedlab/feed"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically samples the server's own CPU and memory
// usage together with the feed size. Purely observational; losing a
// sample is harmless.
type TelemetryWorker struct {
	log      *slog.Logger
	store    *feed.Store
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, store *feed.Store, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, store: store, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping telemetry worker")
			return nil
		case <-ticker.C:
			cpu, err := proc.CPUPercent()
			if err != nil {
				w.log.Debug("Failed to sample cpu usage", "error", err)
				continue
			}
			mem, err := proc.MemoryInfo()
			if err != nil {
				w.log.Debug("Failed to sample memory usage", "error", err)
				continue
			}
			w.log.Info("Telemetry sample",
				"cpu_percent", cpu,
				"rss_bytes", mem.RSS,
				"goroutines", runtime.NumGoroutine(),
				"feed_size", w.store.Len())
		}
	}
}
