// Package healthcheck keeps the registry's observed component states fresh.
//
// Monitor runs a ticker loop that invokes an externally supplied probe and
// records the outcome as the component's state. The probe is the only
// place I/O happens; how a component is actually checked (HTTP, pipe,
// process liveness) belongs to the caller.
package healthcheck
