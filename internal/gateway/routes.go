package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	if s.cfg.Server.TrustForwardedProto {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(s.observe)
	r.Use(chimiddleware.Recoverer)

	r.Post("/upload", s.handleUpload)
	r.Get("/download", s.handleDownload)
	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	route := "/" + s.cfg.Server.ArtifactRoute
	static := http.StripPrefix(route, s.artifactHandler())
	r.Method(http.MethodGet, route+"/*", static)
	r.Method(http.MethodHead, route+"/*", static)
	return r
}
