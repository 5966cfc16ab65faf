package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Gauges reports the core's live counters.
type Gauges func() (sessions, rooms, members int)

// TelemetryWorker periodically logs process health (CPU, RSS, status) next
// to the chat gauges so an operator can correlate load with fan-out volume.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	gauges   Gauges
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, gauges Gauges) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, gauges: gauges}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("Starting telemetry worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			sessions, rooms, members := w.gauges()
			w.log.Info("Runtime stats",
				"pid", os.Getpid(),
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"sessions", sessions,
				"rooms", rooms,
				"members", members)
		}
	}
}

// selfStats retrieves memory, CPU and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
