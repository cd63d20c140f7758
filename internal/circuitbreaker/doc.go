// Package circuitbreaker implements the circuit breaker pattern for
// capability providers.
//
// A circuit breaker prevents cascading failures by temporarily blocking
// calls to a failing provider. It has three states:
//
//   - CLOSED: normal operation, calls pass through
//   - OPEN: provider failing, calls blocked
//   - HALF_OPEN: probing whether the provider recovered
//
// Transitions are evaluated lazily on Allow/Record* calls; there is no
// background timer, so a provider that is never called again stays OPEN
// until someone probes it.
//
// Usage:
//
//	breakers := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig())
//	cb := breakers.Breaker("local-tts")
//	if cb.Allow() {
//	    // Call the provider...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
