package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/angeloszaimis/recovery-kernel/internal/circuitbreaker"
	"github.com/angeloszaimis/recovery-kernel/internal/metrics"
	"github.com/angeloszaimis/recovery-kernel/internal/registry"
)

// ErrNoProvider is returned by CallWithFallback when neither a provider
// callable nor a capability-level fallback remains to try.
var ErrNoProvider = errors.New("no provider or fallback available")

// CallFunc is an externally supplied capability implementation. The router
// performs no I/O itself; it only invokes these.
type CallFunc func(ctx context.Context, args ...any) (any, error)

// Decision records how one capability request was routed and why. It is a
// value, never mutated after construction. Provider is empty when no
// provider could be resolved; CircuitState is set only when a breaker was
// consulted for the chosen provider.
type Decision struct {
	Capability     string                `json:"capability"`
	Provider       string                `json:"provider,omitempty"`
	IsFallback     bool                  `json:"is_fallback"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	CircuitState   *circuitbreaker.State `json:"circuit_state,omitempty"`
}

// Router routes capability calls to the healthiest available provider. The
// breaker registry is the only mutable state it owns besides its callable
// tables.
type Router struct {
	logger    *slog.Logger
	registry  registry.Registry
	breakers  *circuitbreaker.Registry
	collector *metrics.Collector

	mutex         sync.RWMutex
	providerCalls map[string]CallFunc
	fallbackCalls map[string]CallFunc
}

func New(logger *slog.Logger, reg registry.Registry, breakers *circuitbreaker.Registry, collector *metrics.Collector) *Router {
	return &Router{
		logger:        logger,
		registry:      reg,
		breakers:      breakers,
		collector:     collector,
		providerCalls: make(map[string]CallFunc),
		fallbackCalls: make(map[string]CallFunc),
	}
}

// IsCapabilityAvailable reports whether any provider is registered for the
// capability.
func (r *Router) IsCapabilityAvailable(capability string) bool {
	return r.registry.HasCapability(capability)
}

// RegisterProviderCallable installs the function invoked when the given
// provider is selected for the capability.
func (r *Router) RegisterProviderCallable(capability, provider string, fn CallFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providerCalls[callKey(capability, provider)] = fn
}

// RegisterFallbackCallable installs the last-resort function for a
// capability, used when no provider is available or the provider call
// failed.
func (r *Router) RegisterFallbackCallable(capability string, fn CallFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.fallbackCalls[capability] = fn
}

// Route returns the provider a call for the capability would go to, or ""
// when none is available.
func (r *Router) Route(capability string) string {
	return r.Decide(capability, "").Provider
}

// Decide resolves the provider for a capability. A preferred provider is
// used when it is healthy or degraded and its breaker allows execution;
// otherwise the registry's primary is resolved and checked against its
// health state and breaker, switching to the configured fallback provider
// when either check fails.
func (r *Router) Decide(capability, preferredProvider string) Decision {
	provider := ""
	if preferredProvider != "" {
		if state, err := r.registry.State(preferredProvider); err == nil && usable(state) {
			if r.breakers.Breaker(preferredProvider).Allow() {
				provider = preferredProvider
			}
		}
	}

	if provider == "" {
		provider = r.registry.Provider(capability)
	}

	if provider == "" {
		return Decision{
			Capability:     capability,
			FallbackReason: "no provider registered",
		}
	}

	if state, err := r.registry.State(provider); err == nil && !usable(state) {
		fallback := r.fallbackProvider(capability, provider)
		r.emitFallback(capability, fallback)
		return Decision{
			Capability:     capability,
			Provider:       fallback,
			IsFallback:     true,
			FallbackReason: fmt.Sprintf("primary provider %s is %s", provider, state),
		}
	}

	breaker := r.breakers.Breaker(provider)
	if !breaker.Allow() {
		state := breaker.State()
		fallback := r.fallbackProvider(capability, provider)
		r.emitFallback(capability, fallback)
		return Decision{
			Capability:     capability,
			Provider:       fallback,
			IsFallback:     true,
			FallbackReason: fmt.Sprintf("circuit breaker OPEN for %s", provider),
			CircuitState:   &state,
		}
	}

	state := breaker.State()
	return Decision{
		Capability:   capability,
		Provider:     provider,
		CircuitState: &state,
	}
}

// CallWithFallback routes the capability, invokes the chosen provider's
// callable and records the outcome on its breaker. When no provider is
// chosen, no callable is registered, or the call fails, the capability's
// fallback callable is tried; with nothing left it returns an error
// wrapping ErrNoProvider.
func (r *Router) CallWithFallback(ctx context.Context, capability string, args ...any) (any, error) {
	decision := r.Decide(capability, "")

	var lastErr error
	if decision.Provider != "" {
		if fn := r.providerCallable(capability, decision.Provider); fn != nil {
			breaker := r.breakers.Breaker(decision.Provider)
			before := breaker.State()

			result, err := fn(ctx, args...)
			if err == nil {
				breaker.RecordSuccess()
				r.emitTransition(decision.Provider, before, breaker.State())
				return result, nil
			}

			breaker.RecordFailure()
			r.emitTransition(decision.Provider, before, breaker.State())
			r.logger.Warn("Provider call failed",
				slog.String("capability", capability),
				slog.String("provider", decision.Provider),
				slog.Any("err", err))
			lastErr = err
		}
	}

	if fn := r.fallbackCallable(capability); fn != nil {
		r.logger.Info("Using fallback callable",
			slog.String("capability", capability))
		r.emitFallback(capability, "")
		return fn(ctx, args...)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w for capability %q: last provider error: %v",
			ErrNoProvider, capability, lastErr)
	}
	return nil, fmt.Errorf("%w for capability %q", ErrNoProvider, capability)
}

// FallbackChain returns the providers tried for a capability in priority
// order: the primary, its configured fallback, then "fallback" when a
// capability-level callable is registered.
func (r *Router) FallbackChain(capability string) []string {
	var chain []string

	if primary := r.registry.Provider(capability); primary != "" {
		chain = append(chain, primary)
		if fallback := r.fallbackProvider(capability, primary); fallback != "" {
			chain = append(chain, fallback)
		}
	}

	if r.fallbackCallable(capability) != nil {
		chain = append(chain, "fallback")
	}
	return chain
}

// ResetBreaker forces a provider's breaker back to CLOSED, for operator
// use.
func (r *Router) ResetBreaker(provider string) {
	r.breakers.Breaker(provider).Reset()
}

// BreakerStatuses snapshots every breaker the router has created so far.
func (r *Router) BreakerStatuses() map[string]circuitbreaker.Status {
	return r.breakers.Statuses()
}

// BreakerStatusForCapability snapshots the breaker of the capability's
// primary provider. The second return is false when no provider is
// registered.
func (r *Router) BreakerStatusForCapability(capability string) (circuitbreaker.Status, bool) {
	provider := r.registry.Provider(capability)
	if provider == "" {
		return circuitbreaker.Status{}, false
	}
	return r.breakers.Breaker(provider).Status(), true
}

// fallbackProvider resolves the configured fallback for a (capability,
// primary) pair from the primary's definition. Empty when none is
// configured.
func (r *Router) fallbackProvider(capability, primary string) string {
	defn, err := r.registry.Get(primary)
	if err != nil {
		return ""
	}
	return defn.FallbackForCapabilities[capability]
}

func (r *Router) providerCallable(capability, provider string) CallFunc {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.providerCalls[callKey(capability, provider)]
}

func (r *Router) fallbackCallable(capability string) CallFunc {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.fallbackCalls[capability]
}

func (r *Router) emitFallback(capability, provider string) {
	r.collector.Emit(metrics.Event{
		Type:       metrics.EventFallbackRouted,
		Capability: capability,
		Provider:   provider,
	})
}

func (r *Router) emitTransition(provider string, before, after circuitbreaker.State) {
	if before == after {
		return
	}
	r.logger.Info("Circuit breaker state changed",
		slog.String("provider", provider),
		slog.String("from", before.String()),
		slog.String("to", after.String()))
	r.collector.Emit(metrics.Event{
		Type:     metrics.EventBreakerTransition,
		Provider: provider,
		State:    after.String(),
	})
}

func usable(state registry.State) bool {
	return state == registry.StateHealthy || state == registry.StateDegraded
}

func callKey(capability, provider string) string {
	return capability + ":" + provider
}
