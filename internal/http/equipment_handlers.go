package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"unitap-backend-go/internal/models"

	"github.com/go-chi/chi/v5"
)

type EquipmentDTO struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	DeviceID     string   `json:"device_id"`
	Status       string   `json:"status"`
	CurrentUser  *string  `json:"current_user"`
	Queue        []string `json:"queue"`
	CheckoutTime *string  `json:"checkout_time"`
}

type QueueRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) ListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListEquipment(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	dtos := make([]EquipmentDTO, 0, len(items))
	for i := range items {
		queue, err := s.Store.EquipmentQueue(r.Context(), items[i].ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		dtos = append(dtos, serializeEquipment(&items[i], queue))
	}
	WriteJSON(w, http.StatusOK, dtos)
}

func (s *Server) EquipmentDetail(w http.ResponseWriter, r *http.Request) {
	equipmentID := chi.URLParam(r, "equipmentID")
	equip, queue, err := s.loadEquipment(r, equipmentID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if equip == nil {
		WriteError(w, http.StatusNotFound, "Equipment not found")
		return
	}
	WriteJSON(w, http.StatusOK, serializeEquipment(equip, queue))
}

// JoinEquipmentQueue lets the dashboard queue a user without a physical tap.
func (s *Server) JoinEquipmentQueue(w http.ResponseWriter, r *http.Request) {
	equipmentID := chi.URLParam(r, "equipmentID")
	var req QueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id required")
		return
	}
	if err := s.Store.EnqueueEquipmentUser(r.Context(), equipmentID, req.UserID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.writeEquipment(w, r, equipmentID)
}

func (s *Server) LeaveEquipmentQueue(w http.ResponseWriter, r *http.Request) {
	equipmentID := chi.URLParam(r, "equipmentID")
	var req QueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id required")
		return
	}
	if err := s.Store.RemoveFromEquipmentQueue(r.Context(), equipmentID, req.UserID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.writeEquipment(w, r, equipmentID)
}

func (s *Server) loadEquipment(r *http.Request, equipmentID string) (*models.Equipment, []string, error) {
	equip, err := s.Store.FindEquipmentByID(r.Context(), equipmentID)
	if err != nil || equip == nil {
		return equip, nil, err
	}
	queue, err := s.Store.EquipmentQueue(r.Context(), equipmentID)
	if err != nil {
		return nil, nil, err
	}
	return equip, queue, nil
}

func (s *Server) writeEquipment(w http.ResponseWriter, r *http.Request, equipmentID string) {
	equip, queue, err := s.loadEquipment(r, equipmentID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if equip == nil {
		WriteError(w, http.StatusNotFound, "Equipment not found")
		return
	}
	WriteJSON(w, http.StatusOK, serializeEquipment(equip, queue))
}

func serializeEquipment(equip *models.Equipment, queue []string) EquipmentDTO {
	var checkoutTime *string
	if equip.CheckoutTime != nil {
		formatted := equip.CheckoutTime.UTC().Format(time.RFC3339)
		checkoutTime = &formatted
	}
	if queue == nil {
		queue = []string{}
	}
	return EquipmentDTO{
		ID:           equip.ID,
		Name:         equip.Name,
		Location:     equip.Location,
		DeviceID:     equip.DeviceID,
		Status:       equip.Status,
		CurrentUser:  equip.CurrentUserID,
		Queue:        queue,
		CheckoutTime: checkoutTime,
	}
}
