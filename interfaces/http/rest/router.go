package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"inkboard-backend/infrastructure/di"
	"inkboard-backend/interfaces/http/rest/handlers"
	"inkboard-backend/interfaces/http/rest/middleware"
	"inkboard-backend/pkg/auth"
	pkgerrors "inkboard-backend/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() (http.Handler, error) {
	cfg := rt.container.Config

	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		secret = "development-secret-change-in-production"
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
	})
	if err != nil {
		return nil, err
	}
	limiter := auth.NewIPRateLimiter(cfg.RequestsPerMinute)

	errs := pkgerrors.NewErrorHandler(rt.logger, cfg.IsDevelopment())

	canvasHandler := handlers.NewCanvasHandler(
		rt.container.CanvasLifecycle,
		rt.container.CommandBus,
		rt.container.QueryBus,
		errs,
		rt.logger,
	)
	nodeHandler := handlers.NewNodeHandler(
		rt.container.CreateNode,
		rt.container.UpdateNode,
		rt.container.CommandBus,
		rt.container.QueryBus,
		errs,
		rt.logger,
	)
	edgeHandler := handlers.NewEdgeHandler(rt.container.CreateEdge, rt.container.CommandBus, errs, rt.logger)
	historyHandler := handlers.NewHistoryHandler(rt.container.History, rt.container.PasteNodes, errs, rt.logger)
	aiHandler := handlers.NewAIHandler(rt.container.GenerateSibling, errs, rt.logger)
	uploadHandler := handlers.NewUploadHandler(rt.container.Storage, errs, rt.logger)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.inkboard.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(validator, limiter, rt.logger))

		r.Route("/canvases", func(r chi.Router) {
			r.Post("/", canvasHandler.CreateCanvas)
			r.Get("/", canvasHandler.ListCanvases)

			r.Route("/{canvasID}", func(r chi.Router) {
				r.Get("/", canvasHandler.GetCanvas)
				r.Patch("/", canvasHandler.RenameCanvas)
				r.Delete("/", canvasHandler.DeleteCanvas)
				r.Post("/close", canvasHandler.CloseCanvas)
				r.Put("/viewport", canvasHandler.SetViewport)

				r.Post("/undo", historyHandler.Undo)
				r.Post("/redo", historyHandler.Redo)
				r.Post("/paste", historyHandler.PasteNodes)
				r.Get("/selection", nodeHandler.NodesInRect)
				r.Put("/selection", historyHandler.SelectNodes)

				r.Get("/events", rt.streamEvents)

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", nodeHandler.CreateNode)

					r.Route("/{nodeID}", func(r chi.Router) {
						r.Patch("/", nodeHandler.UpdateNode)
						r.Delete("/", nodeHandler.DeleteNode)
						r.Put("/position", nodeHandler.MoveNode)
						r.Put("/size", nodeHandler.ResizeNode)
						r.Get("/backlinks", nodeHandler.GetBacklinks)
						r.Post("/siblings", aiHandler.GenerateSibling)
						r.Post("/chat", aiHandler.Chat)
					})
				})

				r.Route("/edges", func(r chi.Router) {
					r.Post("/", edgeHandler.CreateEdge)
					r.Delete("/{edgeID}", edgeHandler.DeleteEdge)
				})
			})
		})

		r.Post("/uploads", uploadHandler.Upload)
	})

	// Public read-only view: anyone holding a canvas id can watch it.
	router.Route("/view/{canvasID}", func(r chi.Router) {
		r.Use(middleware.ReadOnly())
		r.Get("/", canvasHandler.ViewCanvas)
		r.Get("/events", rt.streamEvents)
	})

	return router, nil
}

// streamEvents serves the SSE stream for one canvas
func (rt *Router) streamEvents(w http.ResponseWriter, r *http.Request) {
	rt.container.Broker.ServeCanvas(w, r, chi.URLParam(r, "canvasID"))
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
