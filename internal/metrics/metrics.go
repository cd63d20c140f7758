package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mutex              sync.RWMutex
	decisions          map[string]int64
	componentDecisions map[string]int64
	fallbacks          map[string]int64
	transitions        map[string]int64
	breakerStates      map[string]string
	componentStates    map[string]string
	startTime          time.Time
}

type Snapshot struct {
	Uptime             time.Duration     `json:"uptime"`
	TotalDecisions     int64             `json:"total_decisions"`
	RecoveryDecisions  map[string]int64  `json:"recovery_decisions"`
	ComponentDecisions map[string]int64  `json:"component_decisions"`
	Fallbacks          map[string]int64  `json:"fallbacks"`
	BreakerTransitions map[string]int64  `json:"breaker_transitions"`
	BreakerStates      map[string]string `json:"breaker_states"`
	ComponentStates    map[string]string `json:"component_states"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		decisions:          make(map[string]int64),
		componentDecisions: make(map[string]int64),
		fallbacks:          make(map[string]int64),
		transitions:        make(map[string]int64),
		breakerStates:      make(map[string]string),
		componentStates:    make(map[string]string),
		startTime:          time.Now(),
	}
}

func (m *Metrics) RecordDecision(component, strategy string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.decisions[strategy]++
	m.componentDecisions[component]++
}

func (m *Metrics) RecordFallback(capability string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fallbacks[capability]++
}

func (m *Metrics) RecordBreakerTransition(provider, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.transitions[provider]++
	m.breakerStates[provider] = state
}

func (m *Metrics) UpdateComponentState(component, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.componentStates[component] = state
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:             time.Since(m.startTime),
		RecoveryDecisions:  make(map[string]int64, len(m.decisions)),
		ComponentDecisions: make(map[string]int64, len(m.componentDecisions)),
		Fallbacks:          make(map[string]int64, len(m.fallbacks)),
		BreakerTransitions: make(map[string]int64, len(m.transitions)),
		BreakerStates:      make(map[string]string, len(m.breakerStates)),
		ComponentStates:    make(map[string]string, len(m.componentStates)),
	}

	for strategy, n := range m.decisions {
		snap.RecoveryDecisions[strategy] = n
		snap.TotalDecisions += n
	}
	for component, n := range m.componentDecisions {
		snap.ComponentDecisions[component] = n
	}
	for capability, n := range m.fallbacks {
		snap.Fallbacks[capability] = n
	}
	for provider, n := range m.transitions {
		snap.BreakerTransitions[provider] = n
	}
	for provider, state := range m.breakerStates {
		snap.BreakerStates[provider] = state
	}
	for component, state := range m.componentStates {
		snap.ComponentStates[component] = state
	}

	return snap
}
