// Package web serves the status API: health, the latest run report and a
// read view over the consolidated dataset, plus an endpoint to trigger a
// reconciliation run.
package web

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pricebot-pl/internal/dataset"
	"github.com/pricebot-pl/internal/merge"
)

// Runner starts one reconciliation run over a batch directory or file.
type Runner interface {
	Run(ctx context.Context, batchPath string) (*merge.Report, error)
}

// Server exposes the dataset and run control over HTTP.
type Server struct {
	ds         *dataset.Dataset
	runner     Runner
	log        *zap.Logger
	httpServer *http.Server
	router     *mux.Router

	running    chan struct{} // single-slot run semaphore
	repMu      sync.Mutex
	lastReport *merge.Report
}

// NewServer builds the server around a live dataset and a runner.
func NewServer(addr string, ds *dataset.Dataset, runner Runner, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		ds:      ds,
		runner:  runner,
		log:     log,
		running: make(chan struct{}, 1),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/records", s.handleRecords).Methods("GET")
	api.HandleFunc("/report", s.handleReport).Methods("GET")
	api.HandleFunc("/runs", s.handleTriggerRun).Methods("POST")

	s.router.Use(s.requestLogging)
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
