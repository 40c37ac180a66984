package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cardforge/cardforge/internal/web/handlers"
)

func (s *Server) setupRoutes(composer handlers.PageComposer) {
	renderHandler := handlers.NewRenderHandler(s.config, composer, s.jobManager)

	s.router.Get("/api/health", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/render", renderHandler.Submit)
		r.Get("/jobs/{jobId}", renderHandler.Status)
		r.Get("/jobs/{jobId}/events", renderHandler.Events)
		r.Get("/jobs/{jobId}/pages/{n}.png", renderHandler.PagePNG)
		r.Delete("/jobs/{jobId}", renderHandler.Cancel)
	})

	s.router.Get("/", landingPage)
}

// landingPage is the minimal page served at the root; the service is
// API-first and any frontend talks to /api.
func landingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>CardForge</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
        code { background: #2a2a3e; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>CardForge</h1>
        <p>Submit render jobs with <code>POST /api/render</code>.</p>
        <p>API health at <a href="/api/health">/api/health</a></p>
    </div>
</body>
</html>`))
}
