// Package server exposes the pipeline over HTTP so any frontend can drive
// prepare/simulate/broadcast cycles without re-implementing them.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/CosmWasm/txpipe"
	"github.com/CosmWasm/txpipe/intentstore"
	"github.com/CosmWasm/txpipe/types"
)

// Server routes pipeline requests. It holds no per-request state; concurrent
// requests map onto the pipeline's content-keyed stages.
type Server struct {
	pipeline *txpipe.Pipeline
	store    *intentstore.Store
	log      *slog.Logger
	limiter  *rate.Limiter
}

// New wires the server. The store may be nil when intent persistence is
// disabled; the intent endpoints then return 404.
func New(pipeline *txpipe.Pipeline, store *intentstore.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		pipeline: pipeline,
		store:    store,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(20), 40),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.throttle)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/prepare", s.handlePrepare)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/broadcast", s.handleBroadcast)

		r.Post("/intents", s.handlePutIntent)
		r.Get("/intents/{owner}", s.handleListIntents)
	})
	return r
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actionRequest is the wire form of an ActionConfig plus its inclusion
// predicate, which cannot travel as a function value.
type actionRequest struct {
	Name                           string             `json:"name"`
	ChainID                        string             `json:"chain_id"`
	Sender                         types.HumanAddress `json:"sender"`
	Signer                         string             `json:"signer,omitempty"`
	Cap                            int                `json:"cap,omitempty"`
	VotingContract                 types.HumanAddress `json:"voting_contract,omitempty"`
	AssumeNoConflictOnUnknownState bool               `json:"assume_no_conflict_on_unknown_state,omitempty"`
	Predicate                      *predicateRequest  `json:"predicate,omitempty"`
}

type predicateRequest struct {
	// Type is one of "all", "rate_exceeds", "allocation_below".
	Type      string `json:"type"`
	Reference string `json:"reference,omitempty"`
	Margin    string `json:"margin,omitempty"`
	Target    string `json:"target,omitempty"`
}

type candidateRequest struct {
	ID   string             `json:"id"`
	Msg  types.ChainMessage `json:"msg"`
	Rate string             `json:"rate,omitempty"`
}

func (a actionRequest) toConfig() (txpipe.ActionConfig, error) {
	cfg := txpipe.ActionConfig{
		Name:                           a.Name,
		ChainID:                        a.ChainID,
		Sender:                         a.Sender,
		Signer:                         txpipe.SignerProfile(a.Signer),
		Cap:                            a.Cap,
		VotingContract:                 a.VotingContract,
		AssumeNoConflictOnUnknownState: a.AssumeNoConflictOnUnknownState,
	}
	if a.Name == "" || a.ChainID == "" || a.Sender == "" {
		return cfg, errors.New("name, chain_id and sender are required")
	}
	if a.Predicate != nil {
		switch a.Predicate.Type {
		case "", "all":
			cfg.Include = txpipe.IncludeAll
		case "rate_exceeds":
			cfg.Include = txpipe.RateExceeds(a.Predicate.Reference, a.Predicate.Margin)
		case "allocation_below":
			cfg.Include = txpipe.AllocationBelow(a.Predicate.Target)
		default:
			return cfg, errors.New("unknown predicate type " + a.Predicate.Type)
		}
	}
	return cfg, nil
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action     actionRequest      `json:"action"`
		Candidates []candidateRequest `json:"candidates"`
		Skip       []string           `json:"skip,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := req.Action.toConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates := make([]txpipe.Candidate, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = txpipe.Candidate{ID: c.ID, Msg: c.Msg, Rate: c.Rate}
	}

	batch, err := s.pipeline.Prepare(r.Context(), action, candidates, types.NewSkipSet(req.Skip...))
	if err != nil {
		if errors.Is(err, types.ErrVoteStateUnknown) {
			writeJSON(w, http.StatusConflict, map[string]any{"status": "not_ready", "error": err.Error()})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batch.Empty() {
		writeJSON(w, http.StatusOK, map[string]any{"status": "nothing_to_do"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"batch":    batch,
		"checksum": batch.Checksum(),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Batch types.MessageBatch `json:"batch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.pipeline.Simulate(r.Context(), req.Batch)
	if err != nil {
		if errors.Is(err, types.ErrNothingToSimulate) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "nothing_to_simulate"})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "simulated", "result": result})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action actionRequest      `json:"action"`
		Batch  types.MessageBatch `json:"batch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := req.Action.toConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.Broadcast(r.Context(), action, req.Batch)
	if err != nil {
		var bErr *types.BroadcastError
		var simErr *types.SimulationFailedError
		switch {
		case errors.As(err, &bErr):
			s.log.Warn("broadcast rejected", "action", action.Name, "category", string(bErr.Category))
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"status":   "failed",
				"category": string(bErr.Category),
				"error":    bErr.Error(),
			})
		case errors.As(err, &simErr):
			writeJSON(w, http.StatusConflict, map[string]any{"status": "simulation_failed", "error": simErr.Reason})
		case errors.Is(err, types.ErrNoSimulation):
			writeJSON(w, http.StatusConflict, map[string]any{"status": "simulation_required", "error": err.Error()})
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "settled", "result": result})
}

func (s *Server) handlePutIntent(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "intent persistence is disabled")
		return
	}
	var si types.SignedIntent
	if err := json.NewDecoder(r.Body).Decode(&si); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if si.Intent.ID == "" {
		si.Intent.ID = intentstore.NewIntentID()
	}
	if err := s.store.Put(si); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": si.Intent.ID})
}

func (s *Server) handleListIntents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "intent persistence is disabled")
		return
	}
	intents, err := s.store.ListByOwner(chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intents": intents})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
