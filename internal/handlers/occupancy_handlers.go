package handlers

import (
	"encoding/json"
	"net/http"

	"checkin-app/internal/aggregate"
	"checkin-app/internal/cache"
	"checkin-app/internal/presence"
	"checkin-app/pkg/logger"

	"github.com/gorilla/mux"
)

type OccupancyHandlers struct {
	store *presence.Store
	cache cache.OccupancyCache
}

func NewOccupancyHandlers(store *presence.Store, occ cache.OccupancyCache) *OccupancyHandlers {
	return &OccupancyHandlers{
		store: store,
		cache: occ,
	}
}

// counts prefers the projection cache and falls back to the authoritative
// store when the cache is unreachable.
func (h *OccupancyHandlers) counts(r *http.Request) map[string]int {
	counts, err := h.cache.Counts(r.Context())
	if err != nil {
		logger.Error("Occupancy cache unavailable, serving store snapshot: %v", err)
		counts, _ = h.store.Snapshot()
	}
	return counts
}

func (h *OccupancyHandlers) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.counts(r))
}

func (h *OccupancyHandlers) GetBuildingOccupancy(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"building":  code,
		"occupancy": aggregate.BuildingOccupancy(h.counts(r), code),
	})
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
