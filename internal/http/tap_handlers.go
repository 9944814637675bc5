package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"unitap-backend-go/internal/models"
	"unitap-backend-go/internal/services"
)

type TapRequest struct {
	DeviceID string `json:"device_id"`
	CardUID  string `json:"card_uid"`
	Type     string `json:"type"`
}

type NFCEventRequest struct {
	UID      string `json:"uid"`
	DeviceID string `json:"device_id"`
	Type     string `json:"type"`
}

type TapEventDTO struct {
	ID       string `json:"_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	DeviceID string `json:"device_id"`
	Action   string `json:"action"`
	Context  string `json:"context"`
	// Timestamp is ISO-8601 UTC.
	Timestamp string `json:"timestamp"`
}

// Tap is the generic ingress used by the frontend and integrations.
func (s *Server) Tap(w http.ResponseWriter, r *http.Request) {
	var req TapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.DeviceID == "" || req.CardUID == "" {
		WriteError(w, http.StatusBadRequest, "device_id and card_uid required")
		return
	}
	result, err := s.Engine.ProcessTap(r.Context(), req.DeviceID, req.CardUID, overrideMode(req.Type))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// NFCEvent is the hardware ingress. Readers that know their identity send
// device_id and take the full device-config-aware path; legacy firmware
// without it falls back to locating the lecture by wall clock.
func (s *Server) NFCEvent(w http.ResponseWriter, r *http.Request) {
	var req NFCEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.UID == "" {
		WriteError(w, http.StatusBadRequest, "uid required")
		return
	}

	if req.DeviceID != "" {
		result, err := s.Engine.ProcessTap(r.Context(), req.DeviceID, req.UID, overrideMode(req.Type))
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, result)
		return
	}

	result, err := s.Engine.ProcessLegacyTap(r.Context(), req.UID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// SimulateTap drives demos without hardware: missing fields are filled with
// a random configured device and a random linked card.
func (s *Server) SimulateTap(w http.ResponseWriter, r *http.Request) {
	var req TapRequest
	// An empty body is fine here.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.DeviceID == "" {
		device, err := s.Store.RandomConfiguredDevice(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if device == nil {
			WriteError(w, http.StatusBadRequest, "No devices registered. Seed the database first.")
			return
		}
		req.DeviceID = device.DeviceID
	}
	if req.CardUID == "" {
		cardUID, err := s.Store.RandomLinkedCard(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if cardUID == "" {
			WriteError(w, http.StatusBadRequest, "No users with linked cards. Seed the database first.")
			return
		}
		req.CardUID = cardUID
	}

	result, err := s.Engine.ProcessTap(r.Context(), req.DeviceID, req.CardUID, "")
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// ListTapEvents returns recent audit records, newest first.
func (s *Server) ListTapEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit > s.Config.TapEventHistoryLimit {
		limit = s.Config.TapEventHistoryLimit
	}
	events, err := s.Store.ListTapEvents(r.Context(), r.URL.Query().Get("action"), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	items := make([]TapEventDTO, 0, len(events))
	for _, event := range events {
		items = append(items, serializeTapEvent(event))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.StatsSnapshot(r.Context(), nowUTC())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func overrideMode(packetType string) services.Mode {
	if packetType == "" {
		return ""
	}
	if mode, ok := services.ModeFromPacketType(packetType); ok {
		return mode
	}
	return ""
}

func serializeTapEvent(event models.TapEvent) TapEventDTO {
	return TapEventDTO{
		ID:        event.ID,
		UserID:    event.UserID,
		UserName:  event.UserName,
		DeviceID:  event.DeviceID,
		Action:    event.Action,
		Context:   event.Context,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
}
