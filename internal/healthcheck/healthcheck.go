package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/recovery-kernel/internal/metrics"
	"github.com/angeloszaimis/recovery-kernel/internal/registry"
)

// ProbeFunc checks one component. A nil return means healthy.
type ProbeFunc func(ctx context.Context) error

// StateSetter is the slice of the registry the monitor needs.
type StateSetter interface {
	SetState(name string, state registry.State) error
}

// Monitor periodically probes a component and updates its registry state.
// State flips are logged and emitted to the collector; steady states are
// not. Monitor returns when ctx is cancelled.
func Monitor(
	ctx context.Context,
	component string,
	probe ProbeFunc,
	states StateSetter,
	collector *metrics.Collector,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := registry.StateUnknown

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health monitor stopped",
				slog.String("component", component))
			return

		case <-ticker.C:
			state := registry.StateHealthy
			err := probe(ctx)
			if err != nil {
				state = registry.StateUnhealthy
			}

			if setErr := states.SetState(component, state); setErr != nil {
				logger.Error("Failed to record component state",
					slog.String("component", component),
					slog.Any("err", setErr))
				continue
			}

			if state == last {
				continue
			}
			last = state

			if state == registry.StateHealthy {
				logger.Info("Component is back up",
					slog.String("component", component))
			} else {
				logger.Warn("Component is down",
					slog.String("component", component),
					slog.Any("err", err))
			}

			collector.Emit(metrics.Event{
				Type:      metrics.EventStateChanged,
				Component: component,
				State:     state.String(),
			})
		}
	}
}
