package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/types"
)

//go:embed index.html
var indexHTML []byte

// StateSource provides the dashboard's view of the running session.
type StateSource interface {
	Mode() types.Source
	ActiveInstrument() types.Instrument
	Positions() []types.PositionSnapshot
	Stats() types.SessionStats
	Marks() []types.Mark
	Orders() []types.OrderRecord
	Trades() []types.Trade
	ExportTrades(ctx context.Context) (string, int, error)
}

// Server hosts the local dashboard: REST endpoints, a broadcast WebSocket
// and the embedded single-page UI.
type Server struct {
	state  StateSource
	router *mux.Router
	hub    *Hub
	http   *http.Server
}

func New(addr string, state StateSource) *Server {
	s := &Server{
		state:  state,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.http = &http.Server{Addr: addr, Handler: c.Handler(s.router)}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/export-trades", s.handleExportTrades).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Start binds the listener and serves in the background. Bind failures are
// returned synchronously so a busy port fails fast at startup.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("dashboard listen on %s: %w", s.http.Addr, err)
	}

	go s.hub.Run(ctx)
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Dashboard server failed", err)
		}
	}()

	logger.Info(ctx, "Dashboard listening", "url", "http://"+s.http.Addr)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Broadcast pushes a typed event frame to every connected dashboard client.
func (s *Server) Broadcast(eventType string, data any) {
	s.hub.Broadcast(WSEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.buildState())
}

func (s *Server) buildState() StateResponse {
	snaps := s.state.Positions()
	positions := make([]PositionInfo, len(snaps))
	for i, p := range snaps {
		positions[i] = toPositionInfo(p)
	}

	marks := s.state.Marks()
	markInfos := make([]MarkInfo, len(marks))
	for i, m := range marks {
		markInfos[i] = toMarkInfo(m)
	}

	orders := s.state.Orders()
	orderInfos := make([]OrderInfo, len(orders))
	for i, o := range orders {
		orderInfos[i] = toOrderInfo(o)
	}

	events := logger.Recent()
	eventInfos := make([]EventInfo, len(events))
	for i, e := range events {
		eventInfos[i] = toEventInfo(e)
	}

	return StateResponse{
		Mode:             string(s.state.Mode()),
		ActiveInstrument: s.state.ActiveInstrument().ID(),
		Positions:        positions,
		Stats:            toStatsInfo(s.state.Stats()),
		Marks:            markInfos,
		Orders:           orderInfos,
		RecentEvents:     eventInfos,
		Timestamp:        time.Now().UnixMilli(),
	}
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.state.Trades()
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = toTradeInfo(t)
	}
	respondJSON(w, out)
}

func (s *Server) handleExportTrades(w http.ResponseWriter, r *http.Request) {
	path, rows, err := s.state.ExportTrades(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "export failed", err.Error())
		return
	}
	respondJSON(w, ExportResponse{Path: path, Rows: rows})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
