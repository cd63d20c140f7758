package main

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/recovery-kernel/internal/metrics"
	"github.com/angeloszaimis/recovery-kernel/internal/router"
	"github.com/angeloszaimis/recovery-kernel/internal/startupdag"
)

func setupRouter(dag *startupdag.DAG, capRouter *router.Router, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/plan", planHandler(dag))
	mux.HandleFunc("/breakers", breakersHandler(capRouter))
	mux.HandleFunc("/metrics", collector.Handler())

	return mux
}

func planHandler(dag *startupdag.DAG) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tiers := dag.Tiers()
		if tiers == nil {
			built, err := dag.Build()
			if err != nil {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			tiers = built
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"tiers": tiers}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func breakersHandler(capRouter *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(capRouter.BreakerStatuses()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
