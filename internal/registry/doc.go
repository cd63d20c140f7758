// Package registry holds the component fleet's metadata: definitions,
// declared dependencies, capability providers and the last observed health
// state of every component.
//
// The kernel packages (startupdag, recovery, router) consume the narrow
// Registry interface and never assume a concrete store. InMemory is the
// process-local implementation used by the supervisor binary and the tests;
// it is always injected, never a package-level singleton, so independent
// supervisors and test suites cannot contaminate each other.
package registry
