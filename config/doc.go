// Package config handles loading and parsing of configuration from YAML
// files and environment variables. It defines the supervisor configuration
// structure: server settings, logging, circuit breaker thresholds, and the
// component fleet (criticality, dependencies, retry policies, capability
// fallbacks).
package config
