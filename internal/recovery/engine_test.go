package recovery_test

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/recovery-kernel/internal/recovery"
	"github.com/angeloszaimis/recovery-kernel/internal/registry"
)

var _ = Describe("Engine", func() {
	var fleet *registry.InMemory
	var engine *recovery.Engine

	transient := fmt.Errorf("dial backend: %w", syscall.ECONNREFUSED)

	registerComponent := func(name string, criticality registry.Criticality, maxAttempts int, delay time.Duration, fallbacks map[string]string) {
		err := fleet.Register(registry.Definition{
			Name:                    name,
			Criticality:             criticality,
			RetryMaxAttempts:        maxAttempts,
			RetryDelay:              delay,
			FallbackForCapabilities: fallbacks,
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		fleet = registry.NewInMemory()
		engine = recovery.NewEngine(fleet, recovery.NewClassifier(), slog.Default())
	})

	Describe("HandleFailure", func() {
		Context("retryable failures within budget", func() {
			It("should return FULL_RESTART with a positive delay", func() {
				registerComponent("svc", registry.CriticalityOptional, 3, 2*time.Second, nil)

				action, err := engine.HandleFailure("svc", transient, recovery.PhaseStartup)
				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyFullRestart))
				Expect(action.Delay).To(BeNumerically(">", 0))
			})

			It("should grow the delay by 1.5x per attempt", func() {
				registerComponent("svc", registry.CriticalityOptional, 5, 2*time.Second, nil)

				var delays []time.Duration
				for i := 0; i < 3; i++ {
					action, err := engine.HandleFailure("svc", transient, recovery.PhaseStartup)
					Expect(err).NotTo(HaveOccurred())
					Expect(action.Strategy).To(Equal(recovery.StrategyFullRestart))
					delays = append(delays, action.Delay)
				}

				Expect(delays[1]).To(BeNumerically(">", delays[0]))
				Expect(delays[2]).To(BeNumerically(">", delays[1]))
				Expect(float64(delays[1]) / float64(delays[0])).To(BeNumerically("~", 1.5, 0.01))
				Expect(float64(delays[2]) / float64(delays[1])).To(BeNumerically("~", 1.5, 0.01))
			})
		})

		Context("retry budget exhaustion", func() {
			It("should escalate REQUIRED components with a message", func() {
				registerComponent("core", registry.CriticalityRequired, 2, time.Second, nil)

				for i := 0; i < 2; i++ {
					action, err := engine.HandleFailure("core", transient, recovery.PhaseStartup)
					Expect(err).NotTo(HaveOccurred())
					Expect(action.Strategy).To(Equal(recovery.StrategyFullRestart))
				}

				action, err := engine.HandleFailure("core", transient, recovery.PhaseStartup)
				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyEscalateToUser))
				Expect(action.Message).NotTo(BeEmpty())
				Expect(action.Message).To(ContainSubstring("core"))
			})

			It("should disable OPTIONAL components instead of escalating", func() {
				registerComponent("extra", registry.CriticalityOptional, 2, time.Second, nil)

				engine.HandleFailure("extra", transient, recovery.PhaseStartup)
				engine.HandleFailure("extra", transient, recovery.PhaseStartup)
				action, err := engine.HandleFailure("extra", transient, recovery.PhaseStartup)

				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyDisableAndContinue))
				Expect(action.Message).To(BeEmpty())
			})

			It("should disable DEGRADED_OK components instead of escalating", func() {
				registerComponent("aux", registry.CriticalityDegradedOK, 1, time.Second, nil)

				engine.HandleFailure("aux", transient, recovery.PhaseStartup)
				action, err := engine.HandleFailure("aux", transient, recovery.PhaseStartup)

				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyDisableAndContinue))
			})
		})

		Context("fallback-indicating failures", func() {
			It("should return FALLBACK_MODE with the configured targets", func() {
				registerComponent("local-tts", registry.CriticalityDegradedOK, 3, time.Second,
					map[string]string{"tts": "cloud-tts"})

				action, err := engine.HandleFailure("local-tts",
					errors.New("GPUNotAvailable: no GPU found"), recovery.PhaseStartup)

				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyFallbackMode))
				Expect(action.FallbackTargets).To(Equal(map[string]string{"tts": "cloud-tts"}))
			})

			It("should fall through to criticality when no targets are configured", func() {
				registerComponent("local-tts", registry.CriticalityOptional, 3, time.Second, nil)

				action, err := engine.HandleFailure("local-tts",
					errors.New("GPUNotAvailable: no GPU found"), recovery.PhaseStartup)

				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyDisableAndContinue))
			})
		})

		Context("non-retryable failures", func() {
			missing := fmt.Errorf("loading config: %w", fs.ErrNotExist)

			It("should skip the retry budget entirely", func() {
				registerComponent("file-svc", registry.CriticalityOptional, 3, time.Second, nil)

				action, err := engine.HandleFailure("file-svc", missing, recovery.PhaseStartup)
				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyDisableAndContinue))
				Expect(engine.Attempts("file-svc")).To(BeZero())
			})

			It("should escalate REQUIRED components immediately", func() {
				registerComponent("core-files", registry.CriticalityRequired, 3, time.Second, nil)

				action, err := engine.HandleFailure("core-files", missing, recovery.PhaseStartup)
				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyEscalateToUser))
				Expect(action.Message).NotTo(BeEmpty())
			})
		})

		Context("unknown components", func() {
			It("should fail with ErrUnknownComponent", func() {
				_, err := engine.HandleFailure("ghost", transient, recovery.PhaseStartup)
				Expect(err).To(MatchError(registry.ErrUnknownComponent))
			})
		})

		Context("runtime phase", func() {
			It("should apply the same policy as startup", func() {
				registerComponent("rt", registry.CriticalityDegradedOK, 2, time.Second, nil)

				action, err := engine.HandleFailure("rt", transient, recovery.PhaseRuntime)
				Expect(err).NotTo(HaveOccurred())
				Expect(action.Strategy).To(Equal(recovery.StrategyFullRestart))
			})
		})
	})

	Describe("ResetAttempts", func() {
		It("should restart the backoff sequence from the first delay", func() {
			registerComponent("svc", registry.CriticalityOptional, 5, 2*time.Second, nil)

			first, err := engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			Expect(err).NotTo(HaveOccurred())
			engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			engine.HandleFailure("svc", transient, recovery.PhaseStartup)

			engine.ResetAttempts("svc")

			again, err := engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Strategy).To(Equal(recovery.StrategyFullRestart))
			Expect(again.Delay).To(Equal(first.Delay))
		})

		It("should allow retries again after exhaustion", func() {
			registerComponent("svc", registry.CriticalityOptional, 2, time.Second, nil)

			engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			exhausted, _ := engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			Expect(exhausted.Strategy).To(Equal(recovery.StrategyDisableAndContinue))

			engine.ResetAttempts("svc")

			action, err := engine.HandleFailure("svc", transient, recovery.PhaseStartup)
			Expect(err).NotTo(HaveOccurred())
			Expect(action.Strategy).To(Equal(recovery.StrategyFullRestart))
		})

		It("should never fail for unknown components", func() {
			Expect(func() { engine.ResetAttempts("ghost") }).NotTo(Panic())
		})
	})
})
