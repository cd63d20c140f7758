package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownComponent is returned when a lookup names a component that was
// never registered. Callers treat this as a configuration bug, not a
// runtime condition to recover from.
var ErrUnknownComponent = errors.New("unknown component")

// Criticality classifies how the fleet reacts when a component cannot be
// recovered automatically.
type Criticality string

const (
	CriticalityRequired   Criticality = "required"
	CriticalityDegradedOK Criticality = "degraded_ok"
	CriticalityOptional   Criticality = "optional"
)

// State is the last observed health of a component. It is a snapshot; the
// registry gives no staleness guarantee between calls.
type State int

const (
	StateUnknown State = iota
	StateHealthy
	StateDegraded
	StateUnhealthy
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}

// Dependency is a single edge in the startup graph. Soft dependencies are
// ordered exactly like hard ones when tiering; the flag is carried so a
// supervisor may choose to start anyway when a soft dependency failed.
type Dependency struct {
	Component string
	Soft      bool
}

// Definition is the immutable description of one component. The registry
// owns it; kernel packages only read it.
type Definition struct {
	Name                    string
	Criticality             Criticality
	Dependencies            []Dependency
	Capabilities            []string
	RetryMaxAttempts        int
	RetryDelay              time.Duration
	FallbackForCapabilities map[string]string
}

// Registry is the read surface the kernel consumes.
type Registry interface {
	Get(name string) (Definition, error)
	State(name string) (State, error)
	HasCapability(capability string) bool
	Provider(capability string) string
	AllDefinitions() []Definition
}

// InMemory is a process-lifetime registry backed by plain maps.
type InMemory struct {
	mutex       sync.RWMutex
	definitions map[string]Definition
	states      map[string]State
	order       []string
}

func NewInMemory() *InMemory {
	return &InMemory{
		definitions: make(map[string]Definition),
		states:      make(map[string]State),
	}
}

// Register adds a component definition. The initial state is UNKNOWN until
// something observes the component.
func (r *InMemory) Register(defn Definition) error {
	if defn.Name == "" {
		return fmt.Errorf("component definition has no name")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.definitions[defn.Name]; exists {
		return fmt.Errorf("component %q already registered", defn.Name)
	}

	r.definitions[defn.Name] = defn
	r.states[defn.Name] = StateUnknown
	r.order = append(r.order, defn.Name)
	return nil
}

func (r *InMemory) Get(name string) (Definition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	defn, exists := r.definitions[name]
	if !exists {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return defn, nil
}

func (r *InMemory) State(name string) (State, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, exists := r.definitions[name]; !exists {
		return StateUnknown, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return r.states[name], nil
}

// SetState records a new observed health state for a component.
func (r *InMemory) SetState(name string, state State) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.definitions[name]; !exists {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	r.states[name] = state
	return nil
}

// HasCapability reports whether any registered component declares the
// capability, regardless of its current health.
func (r *InMemory) HasCapability(capability string) bool {
	return r.Provider(capability) != ""
}

// Provider resolves the primary provider for a capability: the first
// component, in registration order, that declares it. Health filtering is
// the router's job, not the registry's.
func (r *InMemory) Provider(capability string) string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, name := range r.order {
		for _, cap := range r.definitions[name].Capabilities {
			if cap == capability {
				return name
			}
		}
	}
	return ""
}

// AllDefinitions returns every definition in registration order.
func (r *InMemory) AllDefinitions() []Definition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	defns := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defns = append(defns, r.definitions[name])
	}
	return defns
}
