package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/trafikkvarsel/internal/sources"
	"go.uber.org/zap"
)

//go:embed templates
var templates embed.FS

// ThreadSource produces the current threads of one message source.
type ThreadSource func(ctx context.Context) ([]sources.Thread, error)

// Server renders the merged thread list from all message sources.
type Server struct {
	sources  []ThreadSource
	logger   *zap.Logger
	router   *mux.Router
	template *template.Template
	now      func() time.Time
}

func NewServer(threadSources []ThreadSource, registry *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"timestampToStr": timestampToStr,
		"statusToClass":  statusToClass,
	}).ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}

	server := &Server{
		sources:  threadSources,
		logger:   logger,
		router:   mux.NewRouter(),
		template: tmpl,
		now:      time.Now,
	}

	server.router.HandleFunc("/", server.handleIndex).Methods(http.MethodGet)
	server.router.HandleFunc("/healthz", server.handleHealth).Methods(http.MethodGet)
	server.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type indexData struct {
	UpdatedTimestamp time.Time
	LastTimestamp    time.Time
	Threads          []sources.Thread
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// A failing source degrades to whatever the others returned instead of
	// failing the page.
	var threads []sources.Thread
	for _, fetch := range s.sources {
		fetched, err := fetch(r.Context())
		if err != nil {
			s.logger.Warn("Thread source failed", zap.Error(err))
			continue
		}
		threads = append(threads, fetched...)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].UpdatedAt().After(threads[j].UpdatedAt())
	})

	data := indexData{
		UpdatedTimestamp: s.now(),
		Threads:          threads,
	}
	if len(threads) > 0 {
		data.LastTimestamp = threads[0].UpdatedAt()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.template.Execute(w, data); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
