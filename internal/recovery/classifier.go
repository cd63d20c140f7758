package recovery

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"syscall"
)

// ErrorClass is the failure taxonomy used to pick a recovery strategy.
type ErrorClass string

const (
	// ClassTransientNetwork failures are expected to self-heal; retry
	// with backoff.
	ClassTransientNetwork ErrorClass = "transient_network"
	// ClassNeedsFallback means the primary path is structurally
	// unavailable; switch providers instead of retrying the same one.
	ClassNeedsFallback ErrorClass = "needs_fallback"
	// ClassMissingResource means a required file or config is absent;
	// retrying is pointless until a human fixes it.
	ClassMissingResource ErrorClass = "missing_resource"
	// ClassResourceExhaustion means memory or disk ran out; retrying
	// makes it worse.
	ClassResourceExhaustion ErrorClass = "resource_exhaustion"
)

// Strategy is the recovery decision handed back to the caller.
type Strategy string

const (
	StrategyFullRestart        Strategy = "full_restart"
	StrategyFallbackMode       Strategy = "fallback_mode"
	StrategyDisableAndContinue Strategy = "disable"
	StrategyEscalateToUser     Strategy = "escalate"
)

// Phase is the lifecycle phase a failure occurred in.
type Phase string

const (
	PhaseStartup Phase = "startup"
	PhaseRuntime Phase = "runtime"
)

// Classification is the immutable result of classifying one failure.
type Classification struct {
	Class         ErrorClass
	Suggested     Strategy
	Retryable     bool
	NeedsFallback bool
}

// fallbackTriggers are message substrings that mean the primary provider
// cannot serve from this host at all (missing accelerator, local resources
// insufficient) and a fallback provider should take over.
var fallbackTriggers = []string{
	"cloudoffloadrequired",
	"gpunotavailable",
	"no gpu",
	"local resources insufficient",
	"hardware capability missing",
}

// Classifier maps failures to classifications. It is pure and total: every
// error (including nil) yields a classification and nothing escapes.
type Classifier struct {
	triggers []string
}

// NewClassifier builds a classifier with the default fallback-trigger
// patterns plus any extra (matched case-insensitively as substrings).
func NewClassifier(extraTriggers ...string) *Classifier {
	triggers := make([]string, 0, len(fallbackTriggers)+len(extraTriggers))
	triggers = append(triggers, fallbackTriggers...)
	for _, t := range extraTriggers {
		triggers = append(triggers, strings.ToLower(t))
	}
	return &Classifier{triggers: triggers}
}

// Classify applies the rules in priority order: fallback-trigger patterns,
// connection-refused/timeout shapes, missing resources, exhaustion, and
// finally a retryable transient default. Unknown failures fail open toward
// retrying rather than giving up immediately.
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return Classification{
			Class:     ClassTransientNetwork,
			Suggested: StrategyFullRestart,
			Retryable: true,
		}
	}

	msg := strings.ToLower(err.Error())

	for _, trigger := range c.triggers {
		if strings.Contains(msg, trigger) {
			return Classification{
				Class:         ClassNeedsFallback,
				Suggested:     StrategyFallbackMode,
				Retryable:     false,
				NeedsFallback: true,
			}
		}
	}

	if isTransientNetwork(err, msg) {
		return Classification{
			Class:     ClassTransientNetwork,
			Suggested: StrategyFullRestart,
			Retryable: true,
		}
	}

	if isMissingResource(err, msg) {
		return Classification{
			Class:     ClassMissingResource,
			Suggested: StrategyDisableAndContinue,
			Retryable: false,
		}
	}

	if isResourceExhaustion(err, msg) {
		return Classification{
			Class:     ClassResourceExhaustion,
			Suggested: StrategyDisableAndContinue,
			Retryable: false,
		}
	}

	return Classification{
		Class:     ClassTransientNetwork,
		Suggested: StrategyFullRestart,
		Retryable: true,
	}
}

type timeouter interface {
	Timeout() bool
}

func isTransientNetwork(err error, msg string) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return true
	}

	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "timeout")
}

func isMissingResource(err error, msg string) bool {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOENT) {
		return true
	}

	return strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "file not found") ||
		strings.Contains(msg, "not found")
}

func isResourceExhaustion(err error, msg string) bool {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.ENOMEM) {
		return true
	}

	return strings.Contains(msg, "out of memory") ||
		strings.Contains(msg, "cannot allocate memory") ||
		strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full")
}
