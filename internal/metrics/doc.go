// Package metrics provides real-time metrics collection for the recovery
// kernel.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Recovery decisions per strategy and per component
//   - Fallback routings per capability
//   - Circuit breaker state transitions per provider
//   - Component health state changes
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the decision path. Events are sent via a buffered channel with
// non-blocking semantics so a slow consumer can never stall routing or
// recovery.
//
// Example usage:
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	collector.EventChannel() <- metrics.Event{
//		Type:      metrics.EventRecoveryDecision,
//		Component: "local-tts",
//		Strategy:  "full_restart",
//	}
//
//	snapshot := collector.Snapshot()
//
// The collector drains remaining events on shutdown to avoid losing the
// tail of a run.
package metrics
