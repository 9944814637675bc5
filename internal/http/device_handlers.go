package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"unitap-backend-go/internal/models"

	"github.com/go-chi/chi/v5"
)

type DeviceDTO struct {
	DeviceID string          `json:"device_id"`
	Name     string          `json:"name"`
	Location string          `json:"location"`
	Mode     string          `json:"mode"`
	Config   json.RawMessage `json:"config"`
	IsOnline bool            `json:"is_online"`
	LastSeen string          `json:"last_seen"`
}

type RegisterDeviceRequest struct {
	DeviceID string          `json:"device_id"`
	Name     string          `json:"name"`
	Location string          `json:"location"`
	Mode     string          `json:"mode"`
	Config   json.RawMessage `json:"config"`
}

type UpdateDeviceRequest struct {
	Mode   *string         `json:"mode"`
	Config json.RawMessage `json:"config"`
}

func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.Store.ListDevices(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	items := make([]DeviceDTO, 0, len(devices))
	for i := range devices {
		items = append(items, serializeDevice(&devices[i]))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.DeviceID == "" || req.Name == "" || req.Mode == "" {
		WriteError(w, http.StatusBadRequest, "device_id, name and mode required")
		return
	}
	config := req.Config
	if len(config) == 0 {
		config = json.RawMessage(`{}`)
	}
	now := time.Now().UTC()
	device := &models.Device{
		DeviceID: req.DeviceID,
		Name:     req.Name,
		Location: req.Location,
		Mode:     req.Mode,
		Config:   config,
		IsOnline: true,
		LastSeen: &now,
	}
	if err := s.Store.InsertDevice(r.Context(), device); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusCreated, serializeDevice(device))
}

func (s *Server) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	var req UpdateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Mode == nil && len(req.Config) == 0 {
		WriteError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	device, err := s.Store.UpdateDevice(r.Context(), deviceID, req.Mode, req.Config)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if device == nil {
		WriteError(w, http.StatusNotFound, "Device not found")
		return
	}
	WriteJSON(w, http.StatusOK, serializeDevice(device))
}

func serializeDevice(device *models.Device) DeviceDTO {
	lastSeen := ""
	if device.LastSeen != nil {
		lastSeen = device.LastSeen.UTC().Format(time.RFC3339)
	}
	config := json.RawMessage(device.Config)
	if len(config) == 0 {
		config = json.RawMessage(`{}`)
	}
	return DeviceDTO{
		DeviceID: device.DeviceID,
		Name:     device.Name,
		Location: device.Location,
		Mode:     device.Mode,
		Config:   config,
		IsOnline: device.IsOnline,
		LastSeen: lastSeen,
	}
}
