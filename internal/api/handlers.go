package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"itinerary/internal/catalog"
	"itinerary/internal/ingest"
	"itinerary/internal/intent"
	"itinerary/internal/model"
	"itinerary/internal/opt"
)

const maxFeedUpload = 32 << 20

// SearchHandler handles GET /v1/stores/search?category=&lat=&lng=&limit=
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid search query", err.Error(), r.URL.Path)
		return
	}
	snap := s.Catalog.Load()
	hits := snap.Nearest(q.Category, q.Origin, q.Limit)
	writeJSON(w, http.StatusOK, map[string]any{"items": hits, "version": snap.Version()})
}

// StoreByIDHandler handles GET /v1/stores/{id}
func (s *Server) StoreByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/stores/"), "/")
	if rest == "" || strings.Contains(rest, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid store id", rest, r.URL.Path)
		return
	}
	st, ok := s.Catalog.Load().ByID(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Store not found", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CategoriesHandler handles GET /v1/categories
func (s *Server) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Catalog.Load().Categories()})
}

// PlanHandler handles POST /v1/plan
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	}
	res, err := opt.Plan(s.Catalog.Load(), req)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// IntentHandler handles POST /v1/intent
func (s *Server) IntentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, ok := decodeIntent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, intent.Parse(req.Text, req.Start))
}

// IntentPlanHandler handles POST /v1/intent/plan: parse the text, then plan the waypoints.
func (s *Server) IntentPlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, ok := decodeIntent(w, r)
	if !ok {
		return
	}
	in := intent.Parse(req.Text, req.Start)
	res, err := opt.Plan(s.Catalog.Load(), intent.PlanRequest(in))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intent": in, "plan": res})
}

func decodeIntent(w http.ResponseWriter, r *http.Request) (model.IntentRequest, bool) {
	var req model.IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return req, false
	}
	if err := validateIntentRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid intent request", err.Error(), r.URL.Path)
		return req, false
	}
	return req, true
}

// CatalogHandler handles GET /v1/catalog
func (s *Server) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"catalog": s.Catalog.Load().Info(), "loaded": s.Catalog.Loaded()})
}

// ReloadHandler handles POST /v1/admin/catalog/reload. A CSV body replaces the catalog
// with its contents; an empty body re-reads the configured feed.
func (s *Server) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFeedUpload))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Feed too large", err.Error(), r.URL.Path)
		return
	}
	var res catalog.Result
	if len(strings.TrimSpace(string(body))) > 0 {
		res, err = s.Reloader.ReloadBytes(r.Context(), body, "upload")
	} else {
		res, err = s.Reloader.ReloadFile(r.Context())
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, catalog.ErrNoSource):
		writeProblem(w, http.StatusConflict, "No catalog feed configured", "post a CSV body or set CATALOG_FEED", r.URL.Path)
	case errors.Is(err, ingest.ErrNoHeader), errors.Is(err, ingest.ErrMalformedFeed):
		writeProblem(w, http.StatusUnprocessableEntity, "Catalog feed rejected", err.Error(), r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Catalog reload failed", err.Error(), r.URL.Path)
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler reports ready once a catalog is installed and the backends answer.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if !s.Catalog.Loaded() {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", "catalog not loaded", r.URL.Path)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	type pinger interface{ Ping(ctx context.Context) error }
	if p, ok := s.Broker.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "catalog": s.Catalog.Load().Info()})
}
