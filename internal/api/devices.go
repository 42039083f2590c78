package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/bridges/gea"
	"github.com/nerrad567/gea-bridge/internal/entity"
	"github.com/nerrad567/gea-bridge/internal/erd"
)

// DeviceResponse describes one discovered appliance.
type DeviceResponse struct {
	Name        string     `json:"name"`
	Handle      string     `json:"handle"`
	Supported   []erd.ID   `json:"supported"`
	Unsupported []erd.ID   `json:"unsupported"`
	Entities    int        `json:"entities"`
	FirstSeen   *time.Time `json:"first_seen,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
}

// SetEntityRequest is the body of POST /devices/{name}/entities/{uid}.
type SetEntityRequest struct {
	Value any `json:"value"`
}

func (s *Server) deviceResponse(r *http.Request, snap appliance.Snapshot) DeviceResponse {
	resp := DeviceResponse{
		Name:        snap.Name,
		Handle:      snap.Handle,
		Supported:   snap.SupportedIDs(),
		Unsupported: snap.UnsupportedIDs(),
		Entities:    len(s.entities.States(snap.Name)),
	}
	if s.devices != nil {
		if a, err := s.devices.GetDevice(r.Context(), snap.Name); err == nil {
			resp.FirstSeen = &a.FirstSeen
			resp.LastSeen = &a.LastSeen
		}
	}
	return resp
}

// handleListDevices returns every discovered appliance.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	snaps := s.store.Snapshots()
	devices := make([]DeviceResponse, 0, len(snaps))
	for _, snap := range snaps {
		devices = append(devices, s.deviceResponse(r, snap))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one appliance.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, err := s.store.Snapshot(name)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, s.deviceResponse(r, snap))
}

// handleListEntities returns the entity states of one appliance.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.store.DeviceExists(name) {
		writeNotFound(w, "device not found")
		return
	}

	states := s.entities.States(name)
	if states == nil {
		states = []entity.State{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": states,
		"count":    len(states),
	})
}

// handleSetEntity publishes a user write. The appliance echoes the new
// value on its value topic, so the response is 202 Accepted.
func (s *Server) handleSetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	uid := chi.URLParam(r, "uid")

	e, err := s.entities.Get(uid)
	if err != nil || e.State().Device != name {
		writeNotFound(w, "entity not found")
		return
	}

	var req SetEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	err = s.entities.Set(uid, req.Value)
	s.auditWrite(name, uid, req.Value, err)
	if err != nil {
		s.writeSetError(w, uid, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "accepted",
		"unique_id": uid,
	})
}

// writeSetError maps entity write failures to HTTP statuses.
func (s *Server) writeSetError(w http.ResponseWriter, uid string, err error) {
	switch {
	case errors.Is(err, entity.ErrEntityNotFound):
		writeNotFound(w, "entity not found")
	case errors.Is(err, entity.ErrReadOnly),
		errors.Is(err, entity.ErrDisabled),
		errors.Is(err, entity.ErrOutOfRange),
		errors.Is(err, entity.ErrOptionNotAllowed),
		errors.Is(err, entity.ErrInvalidValue):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, entity.ErrValueUnknown),
		errors.Is(err, appliance.ErrElementNotSupported):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, gea.ErrNotConnected),
		errors.Is(err, appliance.ErrNoPublisher):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "appliance bus unavailable")
	default:
		s.logger.Error("entity write failed", "unique_id", uid, "error", err)
		writeInternalError(w, "failed to publish write")
	}
}
