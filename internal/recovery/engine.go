package recovery

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/angeloszaimis/recovery-kernel/internal/registry"
)

// Delay grows by this factor on every consumed retry.
const backoffFactor = 1.5

// Action tells the caller what to do next about a failed component. The
// Delay is advisory: the caller must sleep it before the next restart
// attempt, the engine never sleeps itself. Message is populated only for
// StrategyEscalateToUser.
type Action struct {
	Strategy        Strategy
	Delay           time.Duration
	FallbackTargets map[string]string
	Message         string
}

// Engine selects recovery strategies. It owns the per-component attempt
// counters; everything else it needs comes from the registry and the
// classifier. Callers serialize HandleFailure per component.
type Engine struct {
	registry   registry.Registry
	classifier *Classifier
	logger     *slog.Logger

	mutex    sync.Mutex
	attempts map[string]int
}

func NewEngine(reg registry.Registry, classifier *Classifier, logger *slog.Logger) *Engine {
	return &Engine{
		registry:   reg,
		classifier: classifier,
		logger:     logger,
		attempts:   make(map[string]int),
	}
}

// HandleFailure decides how to recover a component from a failure. It
// returns an error only when the component is not registered, which is a
// caller or configuration bug. Non-retryable failures consume no retry
// budget; retryable ones increment the attempt counter and, while budget
// remains, yield FULL_RESTART with exponentially growing delay. Once the
// budget is gone the engine picks a fallback if the classification calls
// for one and targets are configured, escalates REQUIRED components to a
// human, and disables everything else.
func (e *Engine) HandleFailure(component string, failure error, phase Phase) (Action, error) {
	defn, err := e.registry.Get(component)
	if err != nil {
		return Action{}, err
	}

	classification := e.classifier.Classify(failure)

	if classification.Retryable {
		attempt := e.incrementAttempts(component)
		if attempt <= defn.RetryMaxAttempts {
			delay := backoffDelay(defn.RetryDelay, attempt)
			e.logger.Info("Scheduling component restart",
				slog.String("component", component),
				slog.String("phase", string(phase)),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("err", failure))
			return Action{Strategy: StrategyFullRestart, Delay: delay}, nil
		}
	}

	if classification.NeedsFallback && len(defn.FallbackForCapabilities) > 0 {
		targets := make(map[string]string, len(defn.FallbackForCapabilities))
		for capability, provider := range defn.FallbackForCapabilities {
			targets[capability] = provider
		}
		e.logger.Info("Switching component to fallback providers",
			slog.String("component", component),
			slog.String("class", string(classification.Class)),
			slog.Any("targets", targets))
		return Action{Strategy: StrategyFallbackMode, FallbackTargets: targets}, nil
	}

	if defn.Criticality == registry.CriticalityRequired {
		message := fmt.Sprintf(
			"required component %q failed during %s and automatic recovery is exhausted (%s): %v",
			component, phase, classification.Class, failure)
		e.logger.Error("Escalating component failure to operator",
			slog.String("component", component),
			slog.String("phase", string(phase)))
		return Action{Strategy: StrategyEscalateToUser, Message: message}, nil
	}

	e.logger.Warn("Disabling component",
		slog.String("component", component),
		slog.String("criticality", string(defn.Criticality)),
		slog.Any("err", failure))
	return Action{Strategy: StrategyDisableAndContinue}, nil
}

// ResetAttempts zeroes the attempt counter for a component. Used after a
// manual fix or an externally confirmed recovery; it never fails.
func (e *Engine) ResetAttempts(component string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.attempts, component)
}

// Attempts returns the current attempt count for a component.
func (e *Engine) Attempts(component string) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.attempts[component]
}

func (e *Engine) incrementAttempts(component string) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.attempts[component]++
	return e.attempts[component]
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(backoffFactor, float64(attempt)))
}
