package api

import (
	"encoding/json"
	"net/http"
	"time"

	"itinerary/internal/buildinfo"
)

// DebugJSON reports build info and a redacted config summary.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config
	info := map[string]any{
		"build":   buildinfo.Info(),
		"time":    time.Now().UTC().Format(time.RFC3339),
		"catalog": s.Catalog.Load().Info(),
		"config": map[string]any{
			"PORT":             cfg.Server.Port,
			"STORE_TYPE":       cfg.Store.Type,
			"CATALOG_FEED":     cfg.Catalog.Feed,
			"CATALOG_SEED":     cfg.Catalog.Seed,
			"CATALOG_WATCH":    cfg.Catalog.Watch,
			"RATE_RPS":         cfg.Rate.RPS,
			"RATE_BURST":       cfg.Rate.Burst,
			"LOG_LEVEL":        cfg.Log.Level,
			"HAS_DATABASE_URL": cfg.Store.Type == "postgres" && cfg.Store.DSN != "",
			"HAS_REDIS_URL":    cfg.Broker.RedisURL != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
