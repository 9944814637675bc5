package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"unitap-backend-go/internal/models"
)

type Action string

const (
	ActionAttendance        Action = "attendance"
	ActionEquipmentCheckout Action = "equipment_checkout"
	ActionEquipmentReturn   Action = "equipment_return"
	ActionEventCheckin      Action = "event_checkin"
)

const (
	EquipmentAvailable   = "available"
	EquipmentInUse       = "in-use"
	EquipmentMaintenance = "maintenance"
)

// TapResult is the serialized tap event returned to callers and pushed to
// live subscribers.
type TapResult struct {
	ID             string `json:"_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	DeviceID       string `json:"device_id"`
	Action         Action `json:"action"`
	Context        string `json:"context"`
	Timestamp      string `json:"timestamp"`
	IsFirstArrival bool   `json:"is_first_arrival"`
}

// TapEngine processes raw (device, card) taps: it resolves the card and
// device, dispatches on mode, mutates the bound domain record, appends the
// audit event, applies gamification and fans the result out to the hub.
type TapEngine struct {
	Store Store
	Hub   *TapHub
	// Now is injectable so streak logic can be exercised at fixed dates.
	Now func() time.Time
	// LegacyLectureGrace is how early before its window a lecture accepts
	// taps on the device-less hardware path.
	LegacyLectureGrace time.Duration
}

func NewTapEngine(store Store, hub *TapHub) *TapEngine {
	return &TapEngine{
		Store:              store,
		Hub:                hub,
		Now:                func() time.Time { return time.Now().UTC() },
		LegacyLectureGrace: 15 * time.Minute,
	}
}

// deviceConfig is the mode-scoped part of a device's config blob.
type deviceConfig struct {
	LectureID string `json:"lecture_id"`
	EventID   string `json:"event_id"`
}

func parseDeviceConfig(raw []byte) deviceConfig {
	var cfg deviceConfig
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &cfg)
	}
	return cfg
}

// ProcessTap runs the full tap contract for a device-identified tap.
// Returns a ServiceError for caller-recoverable rejections; any other error
// is a store failure.
func (e *TapEngine) ProcessTap(ctx context.Context, deviceID, rawCardUID string, override Mode) (*TapResult, error) {
	cardUID := NormalizeCardUID(rawCardUID)

	user, err := e.Store.FindUserByCard(ctx, cardUID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrCardNotRegistered(cardUID)
	}

	device, err := e.Store.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotRegistered(deviceID)
	}

	now := e.Now()

	// Reader heartbeat is decoupled from tap success: the device proved it is
	// alive by delivering the tap at all.
	if err := e.Store.TouchDevice(ctx, deviceID, now); err != nil {
		return nil, err
	}

	mode, err := ResolveMode(device, override)
	if err != nil {
		return nil, ErrTapNotProcessable()
	}

	var action Action
	var tapContext string
	var firstArrival bool

	switch mode {
	case ModeAttendance:
		action, tapContext, firstArrival, err = e.handleAttendance(ctx, device, user)
	case ModeEquipment:
		action, tapContext, err = e.handleEquipment(ctx, device, user, now)
	case ModeEvent:
		action, tapContext, firstArrival, err = e.handleEvent(ctx, device, user)
	}
	if err != nil {
		return nil, err
	}
	if action == "" {
		return nil, ErrTapNotProcessable()
	}

	if tapContext == "" {
		tapContext = device.Location
		if tapContext == "" {
			tapContext = deviceID
		}
	}

	event := &models.TapEvent{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		DeviceID:  deviceID,
		Action:    string(action),
		Context:   tapContext,
		Timestamp: now,
	}
	if err := e.Store.InsertTapEvent(ctx, event); err != nil {
		return nil, err
	}

	if err := e.applyGamification(ctx, user, action, firstArrival, now); err != nil {
		return nil, err
	}

	result := serializeTap(event, firstArrival)
	e.Hub.Publish(result)
	return result, nil
}

// handleAttendance always yields an attendance action; the lecture binding is
// optional and a missing or dangling lecture_id degrades to a bare tap
// against the device's location.
func (e *TapEngine) handleAttendance(ctx context.Context, device *models.Device, user *models.User) (Action, string, bool, error) {
	cfg := parseDeviceConfig(device.Config)
	if cfg.LectureID == "" {
		return ActionAttendance, "", false, nil
	}
	lecture, err := e.Store.FindLectureByID(ctx, cfg.LectureID)
	if err != nil {
		return "", "", false, err
	}
	if lecture == nil {
		return ActionAttendance, "", false, nil
	}

	// First arrival is judged on the set size before this tap lands. Two
	// simultaneous first taps can both see zero; the window is accepted.
	count, err := e.Store.CountLectureAttendees(ctx, lecture.ID)
	if err != nil {
		return "", "", false, err
	}
	if err := e.Store.AddLectureAttendee(ctx, lecture.ID, user.ID); err != nil {
		return "", "", false, err
	}
	return ActionAttendance, lecture.Name + " — " + lecture.Room, count == 0, nil
}

func (e *TapEngine) handleEquipment(ctx context.Context, device *models.Device, user *models.User, now time.Time) (Action, string, error) {
	equip, err := e.Store.FindEquipmentByDevice(ctx, device.DeviceID)
	if err != nil {
		return "", "", err
	}
	if equip == nil {
		return "", "", nil
	}

	tapContext := equip.Name + " — " + equip.Location
	holder := equip.CurrentUserID != nil && *equip.CurrentUserID == user.ID

	switch {
	case equip.Status == EquipmentAvailable:
		if err := e.Store.CheckoutEquipment(ctx, equip.ID, user.ID, now); err != nil {
			return "", "", err
		}
		return ActionEquipmentCheckout, tapContext, nil

	case equip.Status == EquipmentInUse && holder:
		_, promoted, err := e.Store.PromoteQueueHead(ctx, equip.ID, now)
		if err != nil {
			return "", "", err
		}
		if !promoted {
			if err := e.Store.ReleaseEquipment(ctx, equip.ID); err != nil {
				return "", "", err
			}
		}
		return ActionEquipmentReturn, tapContext, nil

	default:
		// Everything else queues, including items in maintenance. That keeps
		// a maintenance tap from being dropped on the floor, at the cost of
		// queueing against an item nobody can currently take.
		if err := e.Store.EnqueueEquipmentUser(ctx, equip.ID, user.ID); err != nil {
			return "", "", err
		}
		return ActionEquipmentCheckout, tapContext + " (queued)", nil
	}
}

func (e *TapEngine) handleEvent(ctx context.Context, device *models.Device, user *models.User) (Action, string, bool, error) {
	cfg := parseDeviceConfig(device.Config)
	var event *models.Event
	var err error
	if cfg.EventID != "" {
		event, err = e.Store.FindEventByID(ctx, cfg.EventID)
	} else {
		event, err = e.Store.FindEventByDevice(ctx, device.DeviceID)
	}
	if err != nil {
		return "", "", false, err
	}
	if event == nil {
		return "", "", false, nil
	}

	count, err := e.Store.CountEventCheckins(ctx, event.ID)
	if err != nil {
		return "", "", false, err
	}

	societyName := "Unknown"
	society, err := e.Store.FindSocietyByID(ctx, event.SocietyID)
	if err != nil {
		return "", "", false, err
	}
	if society != nil {
		societyName = society.Name
	}

	if err := e.Store.AddEventCheckin(ctx, event.ID, user.ID); err != nil {
		return "", "", false, err
	}
	return ActionEventCheckin, event.Name + " — " + societyName, count == 0, nil
}

// ProcessLegacyTap handles hardware packets that carry no device identity:
// the current lecture is located by wall clock alone and a bare attendance
// tap is recorded against it. No mode resolution, no gamification.
func (e *TapEngine) ProcessLegacyTap(ctx context.Context, rawCardUID string) (*TapResult, error) {
	cardUID := NormalizeCardUID(rawCardUID)

	user, err := e.Store.FindUserByCard(ctx, cardUID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrCardNotRegistered(cardUID)
	}

	now := e.Now()
	lecture, err := e.Store.FindLiveLecture(ctx, now, e.LegacyLectureGrace)
	if err != nil {
		return nil, err
	}
	if lecture == nil {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		lecture, err = e.Store.FindNextLecture(ctx, startOfDay)
		if err != nil {
			return nil, err
		}
	}

	deviceID := "ESP32"
	tapContext := ""
	if lecture != nil {
		tapContext = lecture.Name + " — " + lecture.Room
		if lecture.DeviceID != "" {
			deviceID = lecture.DeviceID
		}
		if err := e.Store.AddLectureAttendee(ctx, lecture.ID, user.ID); err != nil {
			return nil, err
		}
	}

	event := &models.TapEvent{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		DeviceID:  deviceID,
		Action:    string(ActionAttendance),
		Context:   tapContext,
		Timestamp: now,
	}
	if err := e.Store.InsertTapEvent(ctx, event); err != nil {
		return nil, err
	}

	result := serializeTap(event, false)
	e.Hub.Publish(result)
	return result, nil
}

func serializeTap(event *models.TapEvent, firstArrival bool) *TapResult {
	return &TapResult{
		ID:             event.ID,
		UserID:         event.UserID,
		UserName:       event.UserName,
		DeviceID:       event.DeviceID,
		Action:         Action(event.Action),
		Context:        event.Context,
		Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
		IsFirstArrival: firstArrival,
	}
}
