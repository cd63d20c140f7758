// Package recovery decides what to do about a component failure.
//
// The Classifier maps an error to a failure class (transient network,
// needs-fallback, missing resource, resource exhaustion); the Engine
// combines that class with the component's criticality and retry policy to
// produce a RecoveryAction: restart with backoff, switch to a fallback,
// disable the component, or escalate to an operator.
//
// Both are purely advisory. The engine never restarts anything, never
// sleeps, and never notifies a user; the caller executes the returned
// action and must honor the advisory delay before the next attempt.
package recovery
