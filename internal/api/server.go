// Package api provides the HTTP API server for Meridian.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/spiffler33/meridian/internal/capture"
	"github.com/spiffler33/meridian/internal/core"
	"github.com/spiffler33/meridian/internal/logging"
	"github.com/spiffler33/meridian/internal/storage"
	"github.com/spiffler33/meridian/internal/surface"
	"github.com/spiffler33/meridian/internal/tower"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	svc    *tower.Service
	parser *capture.Parser
	items  *storage.ItemStore

	log *logging.Logger
}

// Config for the server
type Config struct {
	Port    int
	Service *tower.Service
	Parser  *capture.Parser
	Items   *storage.ItemStore
}

// New creates a new API server
func New(cfg Config) *Server {
	s := &Server{
		svc:    cfg.Service,
		parser: cfg.Parser,
		items:  cfg.Items,
		log:    logging.WithField("component", "api"),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// The tower view
		r.Get("/view", s.handleGetView)

		// Items
		r.Get("/items", s.handleGetItems)
		r.Post("/items", s.handleCreateItem)
		r.Get("/items/{itemID}", s.handleGetItem)
		r.Put("/items/{itemID}", s.handleUpdateItem)
		r.Delete("/items/{itemID}", s.handleDeleteItem)

		// Transitions
		r.Post("/items/{itemID}/done", s.handleMarkDone)
		r.Post("/items/{itemID}/hold", s.handleHold)
		r.Post("/items/{itemID}/defer", s.handleDefer)
		r.Post("/items/{itemID}/reactivate", s.handleReactivate)

		// Capture
		r.Post("/capture", s.handleCapture)

		// Stats
		r.Get("/stats", s.handleGetStats)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router = r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("API server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case isNotFound(err):
		s.respondError(w, http.StatusNotFound, err.Error())
	case isBadInput(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- View ---

// viewItem annotates a ranked item with the surfacing explanation
type viewItem struct {
	*core.TowerItem
	Why string `json:"why"`
}

type viewResponse struct {
	Today         string            `json:"today"`
	Hero          *viewItem         `json:"hero"`
	Queue         []viewItem        `json:"queue"`
	Overflow      []*core.TowerItem `json:"overflow"`
	OverflowCount int               `json:"overflow_count"`
	FollowUp      []*core.TowerItem `json:"follow_up"`
	Someday       []*core.TowerItem `json:"someday"`
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	var at time.Time
	if today := r.URL.Query().Get("today"); today != "" {
		d, err := time.ParseInLocation(core.DateLayout, today, time.UTC)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "today must be YYYY-MM-DD")
			return
		}
		at = d
	}

	v, err := s.svc.View(at)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	resp := viewResponse{
		Today:         at.Format(core.DateLayout),
		Queue:         []viewItem{},
		Overflow:      v.Overflow,
		OverflowCount: v.OverflowCount,
		FollowUp:      v.FollowUp,
		Someday:       v.Someday,
	}
	if v.Hero != nil {
		resp.Hero = &viewItem{TowerItem: v.Hero, Why: surface.Explain(v.Hero, 0, at)}
	}
	for i, it := range v.Queue {
		resp.Queue = append(resp.Queue, viewItem{TowerItem: it, Why: surface.Explain(it, i+1, at)})
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// --- Items ---

type itemInput struct {
	Text      *string `json:"text"`
	Status    *string `json:"status"`
	IsEvent   *bool   `json:"is_event"`
	ExpectsBy *string `json:"expects_by"`
	WaitingOn *string `json:"waiting_on"`
	Effort    *string `json:"effort"`
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []*core.TowerItem
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		if !core.ValidStatus(core.Status(status)) {
			s.respondError(w, http.StatusBadRequest, "unknown status")
			return
		}
		items, err = s.items.GetByStatus(core.Status(status))
	} else {
		items, err = s.svc.List()
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*core.TowerItem{}
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in itemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	input := tower.CreateInput{}
	if in.Text != nil {
		input.Text = *in.Text
	}
	if in.Status != nil {
		input.Status = core.Status(*in.Status)
	}
	if in.IsEvent != nil {
		input.IsEvent = *in.IsEvent
	}
	if in.WaitingOn != nil {
		input.WaitingOn = *in.WaitingOn
	}
	if in.Effort != nil {
		input.Effort = core.Effort(*in.Effort)
	}
	if in.ExpectsBy != nil && *in.ExpectsBy != "" {
		d, err := time.ParseInLocation(core.DateLayout, *in.ExpectsBy, time.UTC)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, core.ErrInvalidDate.Error())
			return
		}
		input.ExpectsBy = &d
	}

	item, err := s.svc.Create(input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Get(core.ItemID(chi.URLParam(r, "itemID")))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

// handleUpdateItem edits text and/or the classification inputs. The item is
// re-classified on the next view; no bucket is stored anywhere.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "itemID"))

	var in itemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := s.svc.Get(id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if in.Text != nil {
		if item, err = s.svc.EditText(id, *in.Text); err != nil {
			s.respondServiceError(w, err)
			return
		}
	}

	if in.IsEvent != nil || in.ExpectsBy != nil {
		isEvent := item.IsEvent
		if in.IsEvent != nil {
			isEvent = *in.IsEvent
		}
		expectsBy := item.ExpectsBy
		if in.ExpectsBy != nil {
			if *in.ExpectsBy == "" {
				expectsBy = nil
			} else {
				d, perr := time.ParseInLocation(core.DateLayout, *in.ExpectsBy, time.UTC)
				if perr != nil {
					s.respondError(w, http.StatusBadRequest, core.ErrInvalidDate.Error())
					return
				}
				expectsBy = &d
			}
		}
		if item, err = s.svc.Reschedule(id, isEvent, expectsBy); err != nil {
			s.respondServiceError(w, err)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(core.ItemID(chi.URLParam(r, "itemID"))); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Transitions ---

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.MarkDone(core.ItemID(chi.URLParam(r, "itemID")))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	var in struct {
		WaitingOn string `json:"waiting_on"`
	}
	// Body is optional; WaitingOn defaults downstream
	json.NewDecoder(r.Body).Decode(&in)

	item, err := s.svc.Hold(core.ItemID(chi.URLParam(r, "itemID")), in.WaitingOn)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDefer(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Defer(core.ItemID(chi.URLParam(r, "itemID")))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleReactivate(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Reactivate(core.ItemID(chi.URLParam(r, "itemID")))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

// --- Capture ---

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	protos, err := s.parser.Parse(r.Context(), in.Text)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	created := make([]*core.TowerItem, 0, len(protos))
	fallback := false
	for _, p := range protos {
		item, cerr := s.svc.Create(tower.CreateInput{
			Text:      p.Text,
			Status:    p.Status,
			IsEvent:   p.IsEvent,
			ExpectsBy: p.ExpectsBy,
			WaitingOn: p.WaitingOn,
			Effort:    p.Effort,
		})
		if cerr != nil {
			s.respondServiceError(w, cerr)
			return
		}
		created = append(created, item)
		fallback = fallback || p.Fallback
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"items":    created,
		"fallback": fallback,
	})
}

// --- Stats ---

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.items.Count()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byStatus := make(map[string]int)
	for _, st := range []core.Status{core.StatusActive, core.StatusWaiting, core.StatusSomeday, core.StatusDone} {
		count, cerr := s.items.CountByStatus(st)
		if cerr != nil {
			s.respondError(w, http.StatusInternalServerError, cerr.Error())
			return
		}
		byStatus[string(st)] = count
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"total_items":     total,
		"items_by_status": byStatus,
	})
}

// --- error mapping ---

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrItemNotFound)
}

func isBadInput(err error) bool {
	return errors.Is(err, core.ErrEmptyText) ||
		errors.Is(err, core.ErrInvalidStatus) ||
		errors.Is(err, core.ErrInvalidEffort) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidTransition) ||
		errors.Is(err, core.ErrAlreadyDone)
}
