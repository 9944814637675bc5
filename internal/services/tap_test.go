package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"unitap-backend-go/internal/models"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestEngine(store *fakeStore) *TapEngine {
	engine := NewTapEngine(store, nil)
	engine.Now = func() time.Time { return testNow }
	return engine
}

func seedStudent(store *fakeStore, id, card string) *models.User {
	return store.addUser(&models.User{
		ID:      id,
		Name:    "Student " + id,
		CardUID: strPtr(card),
		Role:    "student",
	})
}

func TestProcessTapCardNotRegistered(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store)

	_, err := engine.ProcessTap(context.Background(), "dev-1", "de:ad:be:ef", "")
	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != 404 {
		t.Fatalf("expected 404 service error, got %v", err)
	}
	if svcErr.Meta["card_uid"] != "DEADBEEF" {
		t.Fatalf("expected normalized uid in meta, got %q", svcErr.Meta["card_uid"])
	}
	if len(store.tapEvents) != 0 {
		t.Fatalf("expected no audit record for a rejected tap")
	}
	if _, touched := store.touched["dev-1"]; touched {
		t.Fatalf("unknown card must not touch the device")
	}
}

func TestProcessTapDeviceNotRegistered(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	engine := newTestEngine(store)

	_, err := engine.ProcessTap(context.Background(), "ghost", "AA11", "")
	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != 404 || svcErr.Meta["device_id"] != "ghost" {
		t.Fatalf("expected device 404, got %v", err)
	}
	if len(store.tapEvents) != 0 {
		t.Fatalf("expected no audit record for a rejected tap")
	}
}

func TestProcessTapHeartbeatSurvivesBadMode(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-1"] = &models.Device{DeviceID: "dev-1", Mode: "broken"}
	engine := newTestEngine(store)

	_, err := engine.ProcessTap(context.Background(), "dev-1", "AA11", "")
	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != 400 || svcErr.Message != "Could not process tap" {
		t.Fatalf("expected unprocessable tap, got %v", err)
	}
	if seenAt, ok := store.touched["dev-1"]; !ok || !seenAt.Equal(testNow) {
		t.Fatalf("device heartbeat must be recorded even when the tap fails")
	}
}

func TestProcessTapAttendanceFirstArrival(t *testing.T) {
	store := newFakeStore()
	user := seedStudent(store, "u1", "AA11")
	store.lectures["lec-1"] = &models.Lecture{ID: "lec-1", Name: "Physics", Room: "A1"}
	store.devices["dev-1"] = &models.Device{
		DeviceID: "dev-1",
		Mode:     "attendance",
		Location: "Building A",
		Config:   []byte(`{"lecture_id":"lec-1"}`),
	}
	engine := newTestEngine(store)

	result, err := engine.ProcessTap(context.Background(), "dev-1", "aa:11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Action != ActionAttendance {
		t.Fatalf("expected attendance, got %s", result.Action)
	}
	if result.Context != "Physics — A1" {
		t.Fatalf("unexpected context %q", result.Context)
	}
	if !result.IsFirstArrival {
		t.Fatalf("first tap of the lecture should be a first arrival")
	}
	if !store.attendees["lec-1"]["u1"] {
		t.Fatalf("expected attendee recorded")
	}
	if user.Points != 35 {
		t.Fatalf("expected 35 points (base + first arrival), got %d", user.Points)
	}
	if user.FirstArrivals != 1 {
		t.Fatalf("expected first_arrivals 1, got %d", user.FirstArrivals)
	}
	if user.CurrentStreak != 1 {
		t.Fatalf("expected streak started at 1, got %d", user.CurrentStreak)
	}
	if !store.hasBadge("u1", BadgeEarlyBird) {
		t.Fatalf("expected early_bird badge")
	}
	if len(store.tapEvents) != 1 {
		t.Fatalf("expected one audit record, got %d", len(store.tapEvents))
	}

	// A second student is no longer first.
	second := seedStudent(store, "u2", "BB22")
	result, err = engine.ProcessTap(context.Background(), "dev-1", "BB22", "")
	if err != nil {
		t.Fatalf("second tap failed: %v", err)
	}
	if result.IsFirstArrival {
		t.Fatalf("second arrival must not be first")
	}
	if second.Points != 10 {
		t.Fatalf("expected base points only, got %d", second.Points)
	}
	if store.hasBadge("u2", BadgeEarlyBird) {
		t.Fatalf("second arrival must not earn early_bird")
	}
}

func TestProcessTapAttendanceRepeatSameDay(t *testing.T) {
	store := newFakeStore()
	user := seedStudent(store, "u1", "AA11")
	store.lectures["lec-1"] = &models.Lecture{ID: "lec-1", Name: "Physics", Room: "A1"}
	store.devices["dev-1"] = &models.Device{
		DeviceID: "dev-1",
		Mode:     "attendance",
		Config:   []byte(`{"lecture_id":"lec-1"}`),
	}
	engine := newTestEngine(store)

	for i := 0; i < 2; i++ {
		if _, err := engine.ProcessTap(context.Background(), "dev-1", "AA11", ""); err != nil {
			t.Fatalf("tap %d failed: %v", i, err)
		}
	}
	if len(store.attendees["lec-1"]) != 1 {
		t.Fatalf("attendee set must deduplicate, got %d", len(store.attendees["lec-1"]))
	}
	if user.CurrentStreak != 1 {
		t.Fatalf("streak advances at most once per day, got %d", user.CurrentStreak)
	}
	// The second tap still earns the base award but no first-arrival bonus.
	if user.Points != 45 {
		t.Fatalf("expected 35 + 10 points, got %d", user.Points)
	}
	if user.FirstArrivals != 1 {
		t.Fatalf("first arrival counted twice")
	}
}

func TestProcessTapAttendanceWithoutLecture(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-1"] = &models.Device{DeviceID: "dev-1", Mode: "attendance", Location: "Library"}
	store.devices["dev-2"] = &models.Device{DeviceID: "dev-2", Mode: "attendance"}
	engine := newTestEngine(store)

	result, err := engine.ProcessTap(context.Background(), "dev-1", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Action != ActionAttendance {
		t.Fatalf("attendance must succeed without a lecture binding")
	}
	if result.Context != "Library" {
		t.Fatalf("expected location fallback, got %q", result.Context)
	}

	result, err = engine.ProcessTap(context.Background(), "dev-2", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Context != "dev-2" {
		t.Fatalf("expected device id fallback, got %q", result.Context)
	}
}

func TestProcessTapAttendanceDanglingLecture(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-1"] = &models.Device{
		DeviceID: "dev-1",
		Mode:     "attendance",
		Location: "Hall",
		Config:   []byte(`{"lecture_id":"gone"}`),
	}
	engine := newTestEngine(store)

	result, err := engine.ProcessTap(context.Background(), "dev-1", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Action != ActionAttendance || result.Context != "Hall" {
		t.Fatalf("dangling lecture must degrade to a bare tap, got %s %q", result.Action, result.Context)
	}
}

func TestProcessTapEquipmentLifecycle(t *testing.T) {
	store := newFakeStore()
	holder := seedStudent(store, "u1", "AA11")
	seedStudent(store, "u2", "BB22")
	store.devices["dev-eq"] = &models.Device{DeviceID: "dev-eq", Mode: "equipment"}
	store.equipment["eq-1"] = &models.Equipment{
		ID:       "eq-1",
		Name:     "Oscilloscope",
		Location: "Lab 2",
		DeviceID: "dev-eq",
		Status:   EquipmentAvailable,
	}
	engine := newTestEngine(store)

	// Available: tap checks out.
	result, err := engine.ProcessTap(context.Background(), "dev-eq", "AA11", "")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.Action != ActionEquipmentCheckout {
		t.Fatalf("expected checkout, got %s", result.Action)
	}
	if result.Context != "Oscilloscope — Lab 2" {
		t.Fatalf("unexpected context %q", result.Context)
	}
	equip := store.equipment["eq-1"]
	if equip.Status != EquipmentInUse || equip.CurrentUserID == nil || *equip.CurrentUserID != "u1" {
		t.Fatalf("equipment not held by u1 after checkout")
	}
	if holder.Points != 5 {
		t.Fatalf("expected 5 checkout points, got %d", holder.Points)
	}

	// In use by someone else: tap queues.
	result, err = engine.ProcessTap(context.Background(), "dev-eq", "BB22", "")
	if err != nil {
		t.Fatalf("queue tap failed: %v", err)
	}
	if result.Action != ActionEquipmentCheckout {
		t.Fatalf("expected checkout action for queued tap, got %s", result.Action)
	}
	if result.Context != "Oscilloscope — Lab 2 (queued)" {
		t.Fatalf("expected queued context, got %q", result.Context)
	}
	if len(store.queues["eq-1"]) != 1 || store.queues["eq-1"][0] != "u2" {
		t.Fatalf("expected u2 queued, got %v", store.queues["eq-1"])
	}

	// Holder taps again: return, and the queue head takes over.
	result, err = engine.ProcessTap(context.Background(), "dev-eq", "AA11", "")
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if result.Action != ActionEquipmentReturn {
		t.Fatalf("expected return, got %s", result.Action)
	}
	if equip.Status != EquipmentInUse || equip.CurrentUserID == nil || *equip.CurrentUserID != "u2" {
		t.Fatalf("queue head was not promoted to holder")
	}
	if len(store.queues["eq-1"]) != 0 {
		t.Fatalf("queue should be drained")
	}
	if holder.Points != 5 {
		t.Fatalf("returns must not earn points, got %d", holder.Points)
	}

	// New holder returns with an empty queue: item goes back to available.
	if _, err := engine.ProcessTap(context.Background(), "dev-eq", "BB22", ""); err != nil {
		t.Fatalf("final return failed: %v", err)
	}
	if equip.Status != EquipmentAvailable || equip.CurrentUserID != nil {
		t.Fatalf("expected equipment released, got status=%s", equip.Status)
	}
}

func TestProcessTapEquipmentMaintenanceQueues(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-eq"] = &models.Device{DeviceID: "dev-eq", Mode: "equipment"}
	store.equipment["eq-1"] = &models.Equipment{
		ID:       "eq-1",
		Name:     "Printer",
		Location: "Lab 1",
		DeviceID: "dev-eq",
		Status:   EquipmentMaintenance,
	}
	engine := newTestEngine(store)

	result, err := engine.ProcessTap(context.Background(), "dev-eq", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Context != "Printer — Lab 1 (queued)" {
		t.Fatalf("maintenance tap should queue, got %q", result.Context)
	}
	if len(store.queues["eq-1"]) != 1 {
		t.Fatalf("expected queue entry")
	}
}

func TestProcessTapEquipmentWithoutBinding(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-eq"] = &models.Device{DeviceID: "dev-eq", Mode: "equipment"}
	engine := newTestEngine(store)

	_, err := engine.ProcessTap(context.Background(), "dev-eq", "AA11", "")
	var svcErr ServiceError
	if !errors.As(err, &svcErr) || svcErr.Message != "Could not process tap" {
		t.Fatalf("expected unprocessable tap, got %v", err)
	}
	if len(store.tapEvents) != 0 {
		t.Fatalf("unprocessable tap must not be audited")
	}
}

func TestProcessTapEventCheckin(t *testing.T) {
	store := newFakeStore()
	user := seedStudent(store, "u1", "AA11")
	store.societies["soc-1"] = &models.Society{ID: "soc-1", Name: "Robotics"}
	store.events["ev-1"] = &models.Event{ID: "ev-1", SocietyID: "soc-1", Name: "Build Night"}
	store.devices["dev-ev"] = &models.Device{
		DeviceID: "dev-ev",
		Mode:     "event",
		Config:   []byte(`{"event_id":"ev-1"}`),
	}
	engine := newTestEngine(store)

	result, err := engine.ProcessTap(context.Background(), "dev-ev", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Action != ActionEventCheckin {
		t.Fatalf("expected event_checkin, got %s", result.Action)
	}
	if result.Context != "Build Night — Robotics" {
		t.Fatalf("unexpected context %q", result.Context)
	}
	if !store.checkins["ev-1"]["u1"] {
		t.Fatalf("check-in not recorded")
	}
	if user.Points != 15 {
		t.Fatalf("expected 15 points, got %d", user.Points)
	}
}

func TestProcessTapEventDeviceBindingAndUnknownSociety(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.events["ev-1"] = &models.Event{
		ID:        "ev-1",
		SocietyID: "missing",
		Name:      "Open Day",
		DeviceID:  strPtr("dev-ev"),
	}
	store.devices["dev-ev"] = &models.Device{DeviceID: "dev-ev", Mode: "event"}
	engine := newTestEngine(store)

	result, err := engine.ProcessTap(context.Background(), "dev-ev", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Context != "Open Day — Unknown" {
		t.Fatalf("expected Unknown society fallback, got %q", result.Context)
	}
}

func TestProcessTapModeOverride(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-1"] = &models.Device{DeviceID: "dev-1", Mode: "attendance"}
	store.equipment["eq-1"] = &models.Equipment{
		ID:       "eq-1",
		Name:     "Camera",
		Location: "Studio",
		DeviceID: "dev-1",
		Status:   EquipmentAvailable,
	}
	engine := newTestEngine(store)

	mode, ok := ModeFromPacketType("inventory")
	if !ok || mode != ModeEquipment {
		t.Fatalf("inventory packet type must map to equipment mode")
	}
	result, err := engine.ProcessTap(context.Background(), "dev-1", "AA11", mode)
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if result.Action != ActionEquipmentCheckout {
		t.Fatalf("override must win over device mode, got %s", result.Action)
	}
}

func TestProcessLegacyTapLiveLecture(t *testing.T) {
	store := newFakeStore()
	user := seedStudent(store, "u1", "AA11")
	store.lectures["lec-1"] = &models.Lecture{
		ID:        "lec-1",
		Name:      "Chemistry",
		Room:      "C3",
		DeviceID:  "dev-room",
		StartTime: testNow.Add(-10 * time.Minute),
		EndTime:   testNow.Add(50 * time.Minute),
	}
	engine := newTestEngine(store)

	result, err := engine.ProcessLegacyTap(context.Background(), "aa-11")
	if err != nil {
		t.Fatalf("legacy tap failed: %v", err)
	}
	if result.Action != ActionAttendance {
		t.Fatalf("expected attendance, got %s", result.Action)
	}
	if result.DeviceID != "dev-room" {
		t.Fatalf("expected lecture device id, got %s", result.DeviceID)
	}
	if result.Context != "Chemistry — C3" {
		t.Fatalf("unexpected context %q", result.Context)
	}
	if !store.attendees["lec-1"]["u1"] {
		t.Fatalf("attendee not recorded")
	}
	// The hardware path carries no gamification.
	if user.Points != 0 || user.CurrentStreak != 0 {
		t.Fatalf("legacy taps must not award points, got %d points", user.Points)
	}
}

func TestProcessLegacyTapNoLecture(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	engine := newTestEngine(store)

	result, err := engine.ProcessLegacyTap(context.Background(), "AA11")
	if err != nil {
		t.Fatalf("legacy tap failed: %v", err)
	}
	if result.DeviceID != "ESP32" {
		t.Fatalf("expected ESP32 placeholder device, got %s", result.DeviceID)
	}
	if result.Context != "" {
		t.Fatalf("expected empty context without a lecture, got %q", result.Context)
	}
	if len(store.tapEvents) != 1 {
		t.Fatalf("tap must still be audited")
	}
}

func TestProcessTapPublishesToHub(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "u1", "AA11")
	store.devices["dev-1"] = &models.Device{DeviceID: "dev-1", Mode: "attendance", Location: "Hall"}

	hub := NewTapHub(4, time.Minute)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	engine := newTestEngine(store)
	engine.Hub = hub

	result, err := engine.ProcessTap(context.Background(), "dev-1", "AA11", "")
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}

	select {
	case msg := <-sub.C():
		if msg.Type != MessageTap || msg.Tap == nil || msg.Tap.ID != result.ID {
			t.Fatalf("unexpected stream frame %+v", msg)
		}
	default:
		t.Fatalf("expected the tap on the stream")
	}
}
