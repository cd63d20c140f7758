package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/recovery-kernel/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Timeout:          30 * time.Second,
		})
	})

	Describe("NewRegistry", func() {
		It("should create a registry", func() {
			Expect(registry).NotTo(BeNil())
		})
	})

	Describe("Breaker", func() {
		It("should create a new breaker for an unknown provider", func() {
			cb := registry.Breaker("local-tts")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same provider", func() {
			cb1 := registry.Breaker("local-tts")
			cb2 := registry.Breaker("local-tts")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different providers", func() {
			cb1 := registry.Breaker("local-tts")
			cb2 := registry.Breaker("cloud-tts")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should keep provider breakers independent", func() {
			cb1 := registry.Breaker("local-tts")
			cb2 := registry.Breaker("cloud-tts")

			for i := 0; i < 5; i++ {
				cb1.RecordFailure()
			}

			Expect(cb1.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(cb2.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should be safe under concurrent creation", func() {
			var wg sync.WaitGroup
			breakers := make([]*circuitbreaker.CircuitBreaker, 16)
			for i := range breakers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					breakers[i] = registry.Breaker("shared")
				}(i)
			}
			wg.Wait()

			for _, cb := range breakers[1:] {
				Expect(cb).To(BeIdenticalTo(breakers[0]))
			}
		})
	})

	Describe("Stats", func() {
		It("should report the state of every cached breaker", func() {
			registry.Breaker("local-tts")
			cb := registry.Breaker("cloud-tts")
			for i := 0; i < 5; i++ {
				cb.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["local-tts"]).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["cloud-tts"]).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("Statuses", func() {
		It("should snapshot every breaker keyed by provider", func() {
			registry.Breaker("local-tts").RecordFailure()

			statuses := registry.Statuses()
			Expect(statuses).To(HaveKey("local-tts"))
			Expect(statuses["local-tts"].FailureCount).To(Equal(1))
		})
	})

	Describe("Reset", func() {
		It("should drop all cached breakers", func() {
			cb := registry.Breaker("local-tts")
			for i := 0; i < 5; i++ {
				cb.RecordFailure()
			}

			registry.Reset()

			Expect(registry.Stats()).To(BeEmpty())
			Expect(registry.Breaker("local-tts").State()).To(Equal(circuitbreaker.StateClosed))
		})
	})
})
