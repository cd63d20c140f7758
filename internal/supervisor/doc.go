// Package supervisor executes a startup plan tier by tier.
//
// Components within a tier are started concurrently; a tier must finish
// before the next begins. Start failures go through the recovery engine,
// and the supervisor is the piece that actually honors the engine's
// advisory decisions: it sleeps restart delays, marks components degraded
// or disabled in the registry, and aborts the run when a failure escalates
// to the operator.
//
// Actual process spawning stays outside: a component participates by
// registering a StartFunc, and components without one are skipped.
package supervisor
