package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liveroom/internal/database"
	"liveroom/internal/room"
	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

// LiveRooms is the slice of the room store the API consumes: read-only
// status plus the two administrative actions.
type LiveRooms interface {
	Status(roomID string) (*room.LiveStatus, bool)
	Stats() room.Stats
	Rekey(roomID, newCode string) error
	EndRoomByID(roomID string) error
}

// Server is the REST surface consumed by the external CRUD backend: room
// provisioning, code regeneration, live inspection, health and metrics. No
// coordination logic lives here.
type Server struct {
	rooms      LiveRooms
	data       interfaces.DataStore
	registry   interfaces.ConnectionRegistry
	logger     *slog.Logger
	corsOrigin string
	auth       *authGuard
	router     *http.ServeMux
}

// NewServer wires the routes. authKey empty leaves /api open; /health and
// /metrics are always open.
func NewServer(rooms LiveRooms, data interfaces.DataStore, registry interfaces.ConnectionRegistry, authKey, issuer, corsOrigin string, logger *slog.Logger) *Server {
	s := &Server{
		rooms:      rooms,
		data:       data,
		registry:   registry,
		logger:     logger,
		corsOrigin: corsOrigin,
		auth:       newAuthGuard(authKey, issuer),
		router:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	guarded := func(h http.HandlerFunc) http.Handler {
		return s.corsMiddleware(s.jsonMiddleware(s.auth.middleware(h)))
	}
	open := func(h http.Handler) http.Handler {
		return s.corsMiddleware(s.jsonMiddleware(h))
	}

	s.router.Handle("/api/rooms", guarded(s.handleRooms))
	s.router.Handle("/api/rooms/", guarded(s.handleRoomByID))
	s.router.Handle("/api/stats", guarded(s.handleStats))
	s.router.Handle("/health", open(http.HandlerFunc(s.healthCheck)))
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Request and response shapes.

type CreateRoomRequest struct {
	RoomID   string `json:"roomId,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
	RoomName string `json:"roomName"`
}

type RoomResponse struct {
	Record *protocol.RoomRecord `json:"record"`
	Live   *room.LiveStatus     `json:"live,omitempty"`
}

type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

type StatsResponse struct {
	Live        room.Stats `json:"live"`
	Connections int        `json:"connections"`
	Timestamp   time.Time  `json:"timestamp"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createRoom(w, r)
	case http.MethodGet:
		s.listRooms(w, r)
	default:
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRoomByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	parts := strings.Split(rest, "/")
	roomID := parts[0]
	if roomID == "" {
		s.sendError(w, "room id required", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getRoom(w, r, roomID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.deleteRoom(w, r, roomID)
	case len(parts) == 2 && parts[1] == "code" && r.Method == http.MethodPost:
		s.regenerateCode(w, r, roomID)
	default:
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// createRoom provisions a record ahead of the teacher's join. Missing ids
// are generated; collisions are conflicts, not overwrites.
func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.RoomName == "" {
		s.sendError(w, "room name is required", http.StatusBadRequest)
		return
	}

	rec := &protocol.RoomRecord{
		RoomID:    req.RoomID,
		RoomCode:  req.RoomCode,
		RoomName:  req.RoomName,
		CreatedAt: time.Now().UTC(),
	}
	if rec.RoomID == "" {
		rec.RoomID = uuid.New().String()
	}
	if rec.RoomCode == "" {
		rec.RoomCode = generateRoomCode()
	}
	if err := rec.Validate(); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.data.CreateRoom(r.Context(), rec); err != nil {
		switch {
		case errors.Is(err, database.ErrRoomExists), errors.Is(err, database.ErrRoomCodeTaken):
			s.sendError(w, err.Error(), http.StatusConflict)
		default:
			s.logger.Error("failed to provision room", "error", err)
			s.sendError(w, "failed to create room", http.StatusInternalServerError)
		}
		return
	}

	s.logger.Info("room provisioned", "room_id", rec.RoomID, "room_code", rec.RoomCode)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(RoomResponse{Record: rec})
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	records, err := s.data.ListRooms(r.Context())
	if err != nil {
		s.logger.Error("failed to list rooms", "error", err)
		s.sendError(w, "failed to list rooms", http.StatusInternalServerError)
		return
	}

	resp := ListRoomsResponse{Rooms: make([]RoomResponse, 0, len(records))}
	for _, rec := range records {
		entry := RoomResponse{Record: rec}
		if live, ok := s.rooms.Status(rec.RoomID); ok {
			entry.Live = live
		}
		resp.Rooms = append(resp.Rooms, entry)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	rec, err := s.data.GetRoomByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			// A live ad-hoc room may not have its mirror row yet.
			if live, ok := s.rooms.Status(roomID); ok {
				_ = json.NewEncoder(w).Encode(RoomResponse{Live: live})
				return
			}
			s.sendError(w, "room not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to get room", "room_id", roomID, "error", err)
		s.sendError(w, "failed to get room", http.StatusInternalServerError)
		return
	}

	resp := RoomResponse{Record: rec}
	if live, ok := s.rooms.Status(roomID); ok {
		resp.Live = live
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// regenerateCode re-keys the record and any live room under a fresh
// shareable code. The internal id never changes, so live participants are
// undisturbed.
func (s *Server) regenerateCode(w http.ResponseWriter, r *http.Request, roomID string) {
	newCode := generateRoomCode()

	if err := s.data.UpdateRoomCode(r.Context(), roomID, newCode); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrRoomNotFound):
			s.sendError(w, "room not found", http.StatusNotFound)
		case errors.Is(err, database.ErrRoomCodeTaken):
			s.sendError(w, "generated code collided, retry", http.StatusConflict)
		default:
			s.logger.Error("failed to update room code", "room_id", roomID, "error", err)
			s.sendError(w, "failed to update room code", http.StatusInternalServerError)
		}
		return
	}
	if err := s.rooms.Rekey(roomID, newCode); err != nil {
		s.logger.Error("failed to re-key live room", "room_id", roomID, "error", err)
		s.sendError(w, "record updated but live room re-key failed", http.StatusConflict)
		return
	}

	rec, err := s.data.GetRoomByID(r.Context(), roomID)
	if err != nil {
		s.sendError(w, "failed to reload room", http.StatusInternalServerError)
		return
	}
	s.logger.Info("room code regenerated", "room_id", roomID, "room_code", newCode)
	_ = json.NewEncoder(w).Encode(RoomResponse{Record: rec})
}

// deleteRoom ends any live room and removes the record. Deleting an unknown
// id is a 404; a record without a live room deletes cleanly.
func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := s.rooms.EndRoomByID(roomID); err != nil && !errors.Is(err, interfaces.ErrRoomNotFound) {
		s.logger.Error("failed to end live room", "room_id", roomID, "error", err)
	}

	if err := s.data.DeleteRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			s.sendError(w, "room not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to delete room", "room_id", roomID, "error", err)
		s.sendError(w, "failed to delete room", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = json.NewEncoder(w).Encode(StatsResponse{
		Live:        s.rooms.Stats(),
		Connections: s.registry.Count(),
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Database: "connected", Timestamp: time.Now().UTC()}
	if err := s.data.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check degraded", "error", err)
		resp.Status = "degraded"
		resp.Database = fmt.Sprintf("error: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// codeAlphabet omits the characters students misread over a shared screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateRoomCode mints a 6-character shareable code.
func generateRoomCode() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
