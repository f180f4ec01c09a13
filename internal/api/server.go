package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"itinerary/internal/catalog"
	"itinerary/internal/config"
	"itinerary/internal/events"
	"itinerary/internal/store"
)

type Server struct {
	Config   *config.AppConfig
	Catalog  *catalog.Holder
	Reloader *catalog.Reloader
	Store    store.Store
	Broker   events.EventBroker
	Log      *zap.Logger

	limiter *clientLimiter

	// streams is cancelled by StopStreams; SSE and websocket handlers end on it
	streams     context.Context
	stopStreams context.CancelFunc
}

// NewServer wires the backends named in cfg. Without REDIS_URL (or when Redis is
// unreachable) catalog events stay in process.
func NewServer(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	st, err := store.Open(ctx, cfg.Store.Type, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	var broker events.EventBroker = events.NewBroker()
	if url := strings.TrimSpace(cfg.Broker.RedisURL); url != "" {
		rb, err := events.NewRedisBroker(url)
		if err == nil {
			err = rb.Ping(ctx)
		}
		if err != nil {
			log.Warn("redis broker unavailable, using in-process events", zap.Error(err))
		} else {
			broker = rb
		}
	}
	holder := catalog.NewHolder(nil)
	s := &Server{
		Config:  cfg,
		Catalog: holder,
		Store:   st,
		Broker:  broker,
		Log:     log,
		Reloader: &catalog.Reloader{
			Holder:   holder,
			FeedPath: cfg.Catalog.Feed,
			SeedPath: cfg.Catalog.Seed,
			Store:    st,
			Events:   broker,
			Log:      log.Named("catalog"),
		},
		limiter: newClientLimiter(cfg.Rate.RPS, cfg.Rate.Burst),
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())
	return s, nil
}

// StopStreams ends every open event stream. Register it with
// http.Server.RegisterOnShutdown so Shutdown is not held open by SSE clients.
func (s *Server) StopStreams() {
	s.stopStreams()
}

// Close ends open streams and releases the store and, for Redis, the broker connection.
func (s *Server) Close() error {
	s.StopStreams()
	if c, ok := s.Broker.(io.Closer); ok {
		_ = c.Close()
	}
	return s.Store.Close()
}

// Routes returns the full handler: middleware around the API mux. Streaming endpoints
// bypass the request timeout.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	timed := func(h http.HandlerFunc) http.Handler {
		if d := s.Config.RequestTimeout(); d > 0 {
			return http.TimeoutHandler(h, d, `{"title":"Request timed out","status":503}`)
		}
		return h
	}

	// Catalog queries
	mux.Handle("/v1/stores/search", timed(s.SearchHandler))
	mux.Handle("/v1/stores/", timed(s.StoreByIDHandler))
	mux.Handle("/v1/categories", timed(s.CategoriesHandler))

	// Planning
	mux.Handle("/v1/plan", timed(s.PlanHandler))
	mux.Handle("/v1/intent", timed(s.IntentHandler))
	mux.Handle("/v1/intent/plan", timed(s.IntentPlanHandler))

	// Catalog lifecycle
	mux.Handle("/v1/catalog", timed(s.CatalogHandler))
	mux.Handle("/v1/admin/catalog/reload", timed(s.ReloadHandler))
	mux.HandleFunc("/v1/catalog/events/stream", s.CatalogStreamHandler)
	mux.HandleFunc("/v1/catalog/events/ws", s.CatalogWSHandler)

	// Health, metrics, docs
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)
	mux.HandleFunc("/debug/info", s.DebugJSON)

	return requestID(s.logMiddleware(s.metricsMiddleware(s.rateLimit(mux))))
}
