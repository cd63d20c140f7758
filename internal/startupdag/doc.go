// Package startupdag computes a safe parallel startup order from the
// component dependency graph.
//
// Build returns tiers: components in the same tier have no dependency on
// each other and may be started concurrently; every tier only depends on
// earlier tiers. Cycles are a hard failure carrying the full cycle path,
// never silently resolved.
//
// Usage:
//
//	dag := startupdag.New(fleet)
//	tiers, err := dag.Build()
//	var cycleErr *startupdag.CycleError
//	if errors.As(err, &cycleErr) {
//	    // cycleErr.Path is e.g. ["a", "b", "c", "a"]
//	}
package startupdag
