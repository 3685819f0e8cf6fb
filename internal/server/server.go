package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/vincentbai/journeytrace/internal/config"
	"github.com/vincentbai/journeytrace/internal/database"
	"github.com/vincentbai/journeytrace/internal/metrics"
	"github.com/vincentbai/journeytrace/internal/models"
)

const maxBodySize = 10 << 20

type Server struct {
	db      *database.Database
	config  *config.Collector
	metrics *metrics.Metrics
	server  *http.Server
}

func NewServer(db *database.Database, cfg *config.Collector, m *metrics.Metrics) *Server {
	return &Server{
		db:      db,
		config:  cfg,
		metrics: m,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

// storeFunc persists the parameters of one request and reports how many
// journey events it wrote.
type storeFunc func(models.Parameters) (int, error)

func (s *Server) handleCollect(endpoint string, store storeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var batch models.Batch
		if err := json.NewDecoder(http.MaxBytesReader(w, request.Body, maxBodySize)).Decode(&batch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}

		stored, err := store(batch.Parameters)
		if errors.Is(err, database.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Printf("Database error [%s]: %v", w.Header().Get("X-Request-Id"), err)
			writeError(w, http.StatusInternalServerError, "Failed to store "+endpoint)
			return
		}
		s.metrics.EventsStored(endpoint, stored, time.Now())

		writeJSON(w, http.StatusOK, map[string]any{
			"result": "success",
			"uuid":   batch.Parameters.UUID,
			"stored": stored,
		})
	}
}

func (s *Server) storePerson(params models.Parameters) (int, error) {
	if err := s.db.UpsertPerson(params); err != nil {
		return 0, err
	}
	s.metrics.PersonStored()
	return 0, nil
}

func (s *Server) handleSession(w http.ResponseWriter, request *http.Request) {
	session, err := s.db.Session(request.PathValue("uuid"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("Database error [%s]: %v", w.Header().Get("X-Request-Id"), err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// authorize rejects requests without an accepted bearer token.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		token, ok := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || !s.acceptsKey(token) {
			writeError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, request)
	})
}

func (s *Server) acceptsKey(token string) bool {
	if len(s.config.Auth.APIKeys) == 0 {
		return true
	}
	for _, key := range s.config.Auth.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags the response with a request id and records it in the
// collector metrics under endpoint.
func (s *Server) instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		w.Header().Set("X-Request-Id", uuid.NewString())
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, request)
		s.metrics.ObserveRequest(endpoint, recorder.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", s.metrics.Handler())

	collect := map[string]storeFunc{
		"journey":     s.db.InsertJourney,
		"heartbeat":   s.db.InsertHeartbeat,
		"deanonymize": s.storePerson,
	}
	for endpoint, store := range collect {
		mux.Handle("/"+endpoint, s.instrument(endpoint, s.authorize(s.handleCollect(endpoint, store))))
	}
	mux.Handle("GET /sessions/{uuid}", s.instrument("sessions", s.authorize(http.HandlerFunc(s.handleSession))))
	return mux
}

// Handler returns the collector routes.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) Start() error {
	mux := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.config.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	// Graceful shutdown
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		var err error
		if s.config.TLSEnabled() {
			log.Printf("journeytrace collector listening on https://%s", s.config.Server.ListenAddress)
			err = s.server.ListenAndServeTLS(s.config.Server.TLSCert, s.config.Server.TLSKey)
		} else {
			log.Printf("journeytrace collector listening on http://%s", s.config.Server.ListenAddress)
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-shutdownChannel
	log.Println("Shutting down server...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
	return nil
}
