// Package router is the runtime front door for capability calls.
//
// A Router combines the registry's observed component health with each
// provider's circuit breaker to pick the healthiest provider for a
// capability, falling back to a configured alternate provider or a
// capability-level fallback callable when the primary is unavailable.
// Call outcomes feed back into the provider's breaker.
//
// Usage:
//
//	rt := router.New(log, fleet, breakers, collector)
//	rt.RegisterProviderCallable("tts", "local-tts", synthesize)
//	rt.RegisterFallbackCallable("tts", cloudSynthesize)
//
//	result, err := rt.CallWithFallback(ctx, "tts", "hello")
package router
