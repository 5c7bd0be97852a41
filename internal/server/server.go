// Package server exposes the ingest pipeline over HTTP: the transaction
// API, the websocket score feed and the health and metrics endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"fraudscore/internal/domain"
	"fraudscore/internal/observability"
	"fraudscore/internal/service"
	"fraudscore/internal/storage"
)

// Server routes API requests to the transaction service.
type Server struct {
	svc    *service.TransactionService
	hub    *Hub
	logger *log.Logger
}

// New creates a server. hub may be nil when no websocket feed is wanted.
func New(svc *service.TransactionService, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}
	return &Server{svc: svc, hub: hub, logger: logger}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("POST /api/v1/transactions", s.handleCreate)
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.handleGet)
	if s.hub != nil {
		mux.Handle("/ws/scores", s.hub)
	}
	return mux
}

// TransactionResponse is the JSON shape of one stored transaction.
type TransactionResponse struct {
	ID        int64     `json:"id"`
	TransNum  string    `json:"trans_num"`
	Amount    float64   `json:"amt"`
	Time      time.Time `json:"trans_time"`
	FraudProb *float64  `json:"fraud_prob"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		TransNum:  tx.TransNum,
		Amount:    tx.Amount,
		Time:      tx.Time,
		FraudProb: tx.FraudProb,
		CreatedAt: tx.CreatedAt,
	}
}

// handleCreate ingests and scores one transaction.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.svc.Create(r.Context(), &in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toResponse(tx))
}

// handleGet returns one stored transaction.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(tx))
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrDuplicateKey):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "transaction not found")
	default:
		s.logger.Printf("internal error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}
