// Package httpapi implements the HTTP half of ServiceSurface (spec §4.10,
// §6): thin handlers that validate input shape, invoke an internal
// component, and serialize the result into the well-formed envelopes of
// §7/§8, grounded on the route-table/handler split of the teacher's
// internal/httpapi package.
package httpapi

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"graphrag/internal/graphstore"
	"graphrag/internal/ingest"
	"graphrag/internal/jobs"
	"graphrag/internal/search"
	"graphrag/internal/vectorstore"
)

// Server exposes the HTTP endpoints of spec §6.
type Server struct {
	Graph    graphstore.GraphRepo
	Vector   vectorstore.VectorRepo
	Ingestor *ingest.Ingestor
	Searcher *search.Searcher
	Jobs     *jobs.Manager
	Version  string
	Log      *logrus.Logger

	mux     *http.ServeMux
	handler http.Handler
}

func NewServer(graph graphstore.GraphRepo, vector vectorstore.VectorRepo, ig *ingest.Ingestor, searcher *search.Searcher, jobManager *jobs.Manager, version string, log *logrus.Logger) *Server {
	s := &Server{
		Graph:    graph,
		Vector:   vector,
		Ingestor: ig,
		Searcher: searcher,
		Jobs:     jobManager,
		Version:  version,
		Log:      log,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	s.handler = otelhttp.NewHandler(s.mux, "httpapi")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("POST /documents", s.handleCreateDocument)
	s.mux.HandleFunc("POST /folders", s.handleCreateFolder)
	s.mux.HandleFunc("GET /jobs/{job_id}", s.handleGetJob)
	s.mux.HandleFunc("GET /jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /concepts", s.handleListConcepts)
	s.mux.HandleFunc("GET /concepts/{name}", s.handleGetConcept)
	s.mux.HandleFunc("GET /documents/{concept_name}", s.handleDocumentsByConcept)
}

func (s *Server) warn(stage string, err error) {
	if s.Log == nil {
		return
	}
	s.Log.WithError(err).WithField("stage", stage).Warn("httpapi request step failed")
}
