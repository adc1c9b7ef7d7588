// Package api is a thin JSON read layer over the published dataset.
// It serializes snapshots and runs the matcher; no pipeline logic
// lives here.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	transit "github.com/lodzlive/transit"
	"github.com/lodzlive/transit/model"
)

// DisabledLines yields the current suspended-lines set; the server
// re-reads it through this instead of holding a stale copy.
type DisabledLines func() map[string]bool

type Server struct {
	store    *transit.Store
	disabled DisabledLines
	logger   *slog.Logger
	router   *mux.Router
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithMetricsHandler mounts a metrics endpoint at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.router.Handle("/metrics", h).Methods(http.MethodGet)
	}
}

func NewServer(store *transit.Store, disabled DisabledLines, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if disabled == nil {
		disabled = func() map[string]bool { return nil }
	}

	s := &Server{
		store:    store,
		disabled: disabled,
		logger:   logger,
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/data", s.handleData).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/itinerary", s.handleItinerary).Methods(http.MethodPost)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.recovery(s.logging(s.router))
}

type dataResponse struct {
	FeedTimestamp uint64               `json:"feed_timestamp"`
	FetchedAt     time.Time            `json:"fetched_at"`
	Records       []model.JoinedRecord `json:"records"`
	Alerts        []model.AlertRecord  `json:"alerts"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Latest()
	if snap == nil {
		s.sendError(w, http.StatusServiceUnavailable, "no snapshot published yet")
		return
	}

	s.sendJSON(w, http.StatusOK, dataResponse{
		FeedTimestamp: snap.FeedTimestamp,
		FetchedAt:     snap.FetchedAt,
		Records:       snap.Records,
		Alerts:        snap.Alerts,
	})
}

type healthResponse struct {
	Status    string     `json:"status"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Vehicles  int        `json:"vehicles"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Latest()
	if snap == nil {
		s.sendJSON(w, http.StatusOK, healthResponse{Status: "starting"})
		return
	}
	s.sendJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		FetchedAt: &snap.FetchedAt,
		Vehicles:  len(snap.Records),
	})
}

type itineraryRequest struct {
	Itineraries [][]model.ItineraryLeg `json:"itineraries"`
}

type itineraryResponse struct {
	Itineraries [][]transit.AnnotatedLeg `json:"itineraries"`
	Dropped     int                      `json:"dropped"`
}

func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	var req itineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	kept := transit.FilterItineraries(req.Itineraries, s.disabled())

	var records []model.JoinedRecord
	if snap := s.store.Latest(); snap != nil {
		records = snap.Records
	}

	resp := itineraryResponse{
		Itineraries: make([][]transit.AnnotatedLeg, 0, len(kept)),
		Dropped:     len(req.Itineraries) - len(kept),
	}
	for _, legs := range kept {
		resp.Itineraries = append(resp.Itineraries, transit.AnnotateLegs(records, legs))
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, errorResponse{Error: msg})
}
