package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/orbitcode/lsproxy/internal/adapter/otel"
	"github.com/orbitcode/lsproxy/internal/config"
	lspmw "github.com/orbitcode/lsproxy/internal/middleware"
	"github.com/orbitcode/lsproxy/internal/orchestrator"
)

// maxRequestBody bounds JSON request bodies accepted by every handler.
const maxRequestBody = 1 << 20 // 1 MiB

// NewRouter builds the chi router implementing the route table: workspace
// file listing/reading, symbol definitions/references/rename, and the
// orchestrator's subgraph/referenced-symbol/call-hierarchy endpoints.
// The returned stop func halts the rate limiter's background cleanup and
// should be deferred by the caller.
func NewRouter(cfg *config.Config, orch *orchestrator.Orchestrator) (http.Handler, func()) {
	limiter := lspmw.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stop := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(cfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(lspmw.RequestID)
	r.Use(SecurityHeaders)
	r.Use(CORS(cfg.Server.CORSOrigin))
	r.Use(Logger)
	r.Use(limiter.Handler)
	r.Use(chimw.Timeout(30 * time.Second))

	h := &handlers{orch: orch}

	r.Get("/healthz", h.health)

	r.Route("/workspace", func(r chi.Router) {
		r.Get("/list-files", h.listFiles)
		r.Post("/read-source-code", h.readSourceCode)
	})

	r.Route("/symbol", func(r chi.Router) {
		r.Get("/definitions-in-file", h.definitionsInFile)
		r.Post("/find-definition", h.findDefinition)
		r.Post("/find-references", h.findReferences)
		r.Post("/find-referenced-symbols", h.findReferencedSymbols)
		r.Post("/find-referenced-definitions", h.findReferencedDefinitions)
		r.Get("/file-subgraph", h.fileSubgraph)
		r.Post("/call-hierarchy", h.callHierarchy)
		r.Post("/rename", h.rename)
	})

	return r, stop
}
