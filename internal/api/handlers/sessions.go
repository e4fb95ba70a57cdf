package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/internal/tracking"
)

// SessionHandler exposes the tracking-session lifecycle: start a shift for a
// scanned vehicle, stream device fixes in, read guidance out, confirm
// deliveries and end the shift.
type SessionHandler struct {
	Manager *services.SessionManager
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// Start begins a tracking session for a scanned vehicle.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vehicleID := strings.TrimSpace(req.VehicleID)
	if vehicleID == "" {
		writeError(w, r, http.StatusBadRequest, "vehicle_id is required")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	snap, err := h.Manager.StartSession(r.Context(), vehicleID, date)
	if err != nil {
		if errors.Is(err, ports.ErrAssignmentNotFound) {
			writeError(w, r, http.StatusNotFound, "no assignment for vehicle")
			return
		}
		log.Printf("start session failed: %v", err)
		writeError(w, r, http.StatusConflict, "could not start session")
		return
	}

	writeJSON(w, r, http.StatusCreated, sessionResponse(snap))
}

// Get returns the current session snapshot.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Manager.Snapshot(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse(snap))
}

// End closes the shift and discards the session.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.EndSession(r.PathValue("id")); err != nil {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PushLocation accepts one device fix, or a permission-denied report.
func (h *SessionHandler) PushLocation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req dto.LocationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.PermissionDenied {
		if err := h.Manager.ReportLocationUnavailable(sessionID); err != nil {
			writeError(w, r, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, r, http.StatusAccepted, dto.LocationAck{Accepted: true})
		return
	}

	coord := domain.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !coord.IsValid() {
		writeError(w, r, http.StatusBadRequest, "latitude/longitude out of range")
		return
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	accepted, err := h.Manager.PushLocation(sessionID, domain.LocationSample{
		Coordinate: coord,
		Timestamp:  at,
	})
	if err != nil {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.LocationAck{Accepted: accepted})
}

// Refresh re-fetches the delivery set from the assignment backend.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Manager.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			writeError(w, r, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("refresh session failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse(snap))
}

// SetDeliveryStatus confirms the outcome of one delivery.
func (h *SessionHandler) SetDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.DeliveryStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status := domain.DeliveryStatus(req.Status)
	if !domain.ValidStatus(status) {
		writeError(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	snap, err := h.Manager.SetDeliveryStatus(r.Context(), r.PathValue("id"), r.PathValue("deliveryID"), status)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			writeError(w, r, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("set delivery status failed: %v", err)
		writeError(w, r, http.StatusBadRequest, "could not update delivery")
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse(snap))
}

func coordResponse(c domain.Coordinate) dto.CoordinateResponse {
	return dto.CoordinateResponse{Latitude: c.Latitude, Longitude: c.Longitude}
}

func deliveryResponses(deliveries []domain.Delivery) []dto.DeliveryResponse {
	out := make([]dto.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, dto.DeliveryResponse{
			ID:           d.ID,
			Destination:  coordResponse(d.Destination),
			Status:       string(d.Status),
			Instructions: d.Instructions,
			Street:       d.Street,
			Neighborhood: d.Neighborhood,
			PostalCode:   d.PostalCode,
		})
	}
	return out
}

func sessionResponse(snap tracking.Snapshot) dto.SessionResponse {
	res := dto.SessionResponse{
		SessionID:    snap.SessionID,
		VehicleID:    snap.VehicleID,
		State:        string(snap.State),
		Origin:       coordResponse(snap.Origin),
		Destination:  coordResponse(snap.Destination),
		Path:         make([]dto.CoordinateResponse, 0, len(snap.Path)),
		Stops:        deliveryResponses(snap.Stops),
		OrderedStops: deliveryResponses(snap.OrderedStops),
		Progress:     snap.Progress,
		InFlight:     snap.InFlight,
		LastError:    snap.LastError,
	}
	for _, c := range snap.Path {
		res.Path = append(res.Path, coordResponse(c))
	}
	if !snap.LastRecalculatedAt.IsZero() {
		at := snap.LastRecalculatedAt
		res.LastRecalculatedAt = &at
	}
	if snap.LastFix != nil {
		res.LastFix = &dto.FixResponse{
			Latitude:  snap.LastFix.Coordinate.Latitude,
			Longitude: snap.LastFix.Coordinate.Longitude,
			Timestamp: snap.LastFix.Timestamp,
		}
	}
	return res
}
