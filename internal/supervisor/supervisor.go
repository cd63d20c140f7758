package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/recovery-kernel/internal/metrics"
	"github.com/angeloszaimis/recovery-kernel/internal/recovery"
	"github.com/angeloszaimis/recovery-kernel/internal/registry"
	"github.com/angeloszaimis/recovery-kernel/internal/startupdag"
)

// StartFunc starts one component. It returns once the component is up (or
// has failed); long-running work belongs in goroutines the component owns.
type StartFunc func(ctx context.Context) error

// Fleet is the registry surface the supervisor needs: reads plus state
// updates.
type Fleet interface {
	registry.Registry
	SetState(name string, state registry.State) error
}

// Supervisor drives the fleet through its startup plan.
type Supervisor struct {
	logger    *slog.Logger
	fleet     Fleet
	dag       *startupdag.DAG
	engine    *recovery.Engine
	collector *metrics.Collector

	mutex      sync.RWMutex
	startFuncs map[string]StartFunc
}

func New(logger *slog.Logger, fleet Fleet, dag *startupdag.DAG, engine *recovery.Engine, collector *metrics.Collector) *Supervisor {
	return &Supervisor{
		logger:     logger,
		fleet:      fleet,
		dag:        dag,
		engine:     engine,
		collector:  collector,
		startFuncs: make(map[string]StartFunc),
	}
}

// RegisterStart installs the start function for a component.
func (s *Supervisor) RegisterStart(component string, fn StartFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.startFuncs[component] = fn
}

// Run builds the startup plan and starts every tier in order, components
// within a tier in parallel. It returns the first hard failure: a
// dependency cycle, a cancelled context, or a component whose recovery
// escalated to the operator.
func (s *Supervisor) Run(ctx context.Context) error {
	tiers, err := s.dag.Build()
	if err != nil {
		return err
	}

	for i, tier := range tiers {
		s.logger.Info("Starting tier",
			slog.Int("tier", i),
			slog.Any("components", tier))

		errCh := make(chan error, len(tier))
		var wg sync.WaitGroup
		for _, name := range tier {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if err := s.startComponent(ctx, name); err != nil {
					errCh <- err
				}
			}(name)
		}
		wg.Wait()
		close(errCh)

		if err := <-errCh; err != nil {
			return fmt.Errorf("tier %d: %w", i, err)
		}
	}

	s.logger.Info("Startup plan complete", slog.Int("tiers", len(tiers)))
	return nil
}

// startComponent runs one component's start function, looping through the
// recovery engine's decisions until the component is up, handled, or the
// run must abort.
func (s *Supervisor) startComponent(ctx context.Context, name string) error {
	fn := s.startFunc(name)
	if fn == nil {
		s.logger.Debug("No start function registered, skipping",
			slog.String("component", name))
		return nil
	}

	for {
		err := fn(ctx)
		if err == nil {
			if setErr := s.fleet.SetState(name, registry.StateHealthy); setErr != nil {
				return setErr
			}
			s.engine.ResetAttempts(name)
			s.emitState(name, registry.StateHealthy)
			return nil
		}

		action, handleErr := s.engine.HandleFailure(name, err, recovery.PhaseStartup)
		if handleErr != nil {
			return handleErr
		}

		s.collector.Emit(metrics.Event{
			Type:      metrics.EventRecoveryDecision,
			Component: name,
			Strategy:  string(action.Strategy),
		})

		switch action.Strategy {
		case recovery.StrategyFullRestart:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(action.Delay):
			}

		case recovery.StrategyFallbackMode:
			if setErr := s.fleet.SetState(name, registry.StateDegraded); setErr != nil {
				return setErr
			}
			s.emitState(name, registry.StateDegraded)
			s.logger.Info("Component running in fallback mode",
				slog.String("component", name),
				slog.Any("targets", action.FallbackTargets))
			return nil

		case recovery.StrategyDisableAndContinue:
			if setErr := s.fleet.SetState(name, registry.StateUnhealthy); setErr != nil {
				return setErr
			}
			s.emitState(name, registry.StateUnhealthy)
			return nil

		case recovery.StrategyEscalateToUser:
			if setErr := s.fleet.SetState(name, registry.StateUnhealthy); setErr != nil {
				return setErr
			}
			s.emitState(name, registry.StateUnhealthy)
			return fmt.Errorf("component %q requires operator intervention: %s",
				name, action.Message)

		default:
			return fmt.Errorf("component %q: unhandled recovery strategy %q",
				name, action.Strategy)
		}
	}
}

func (s *Supervisor) startFunc(name string) StartFunc {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.startFuncs[name]
}

func (s *Supervisor) emitState(name string, state registry.State) {
	s.collector.Emit(metrics.Event{
		Type:      metrics.EventStateChanged,
		Component: name,
		State:     state.String(),
	})
}
