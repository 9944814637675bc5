package services

import (
	"context"
	"time"

	"unitap-backend-go/internal/models"
)

// Store is the data-store surface the tap engine runs against. The store is
// the single source of truth: the engine never caches records across requests,
// and every commutative update (set insertion, queue pop, point increment) is
// a single atomic operation at the store level.
//
// Lookup methods return (nil, nil) when no record matches.
type Store interface {
	FindUserByCard(ctx context.Context, cardUID string) (*models.User, error)
	FindUserByID(ctx context.Context, userID string) (*models.User, error)

	FindDeviceByID(ctx context.Context, deviceID string) (*models.Device, error)
	// TouchDevice marks the device online and refreshes last_seen. This is the
	// reader heartbeat; it happens even when the tap itself later fails.
	TouchDevice(ctx context.Context, deviceID string, seenAt time.Time) error

	FindLectureByID(ctx context.Context, lectureID string) (*models.Lecture, error)
	CountLectureAttendees(ctx context.Context, lectureID string) (int, error)
	AddLectureAttendee(ctx context.Context, lectureID, userID string) error
	// FindLiveLecture returns a lecture whose window covers now, allowing taps
	// up to grace before the start.
	FindLiveLecture(ctx context.Context, now time.Time, grace time.Duration) (*models.Lecture, error)
	// FindNextLecture returns the earliest lecture starting at or after the
	// given instant.
	FindNextLecture(ctx context.Context, after time.Time) (*models.Lecture, error)

	FindEquipmentByDevice(ctx context.Context, deviceID string) (*models.Equipment, error)
	CheckoutEquipment(ctx context.Context, equipmentID, userID string, at time.Time) error
	ReleaseEquipment(ctx context.Context, equipmentID string) error
	// PromoteQueueHead atomically pops the wait queue head and makes it the
	// holder with a fresh checkout time. Returns the promoted user id, or
	// ok=false when the queue was empty.
	PromoteQueueHead(ctx context.Context, equipmentID string, at time.Time) (string, bool, error)
	EnqueueEquipmentUser(ctx context.Context, equipmentID, userID string) error

	FindEventByID(ctx context.Context, eventID string) (*models.Event, error)
	FindEventByDevice(ctx context.Context, deviceID string) (*models.Event, error)
	CountEventCheckins(ctx context.Context, eventID string) (int, error)
	AddEventCheckin(ctx context.Context, eventID, userID string) error
	CountUserEventCheckins(ctx context.Context, userID string) (int, error)
	FindSocietyByID(ctx context.Context, societyID string) (*models.Society, error)

	// InsertTapEvent appends to the audit log. Tap events are immutable.
	InsertTapEvent(ctx context.Context, event *models.TapEvent) error

	IncrementUserPoints(ctx context.Context, userID string, delta int) error
	IncrementUserFirstArrivals(ctx context.Context, userID string) error
	SetUserStreak(ctx context.Context, userID string, current, best int, lastDate time.Time) error
	// GrantBadges inserts with set-union semantics; re-granting is a no-op.
	GrantBadges(ctx context.Context, userID string, badges []string) error
	UserBadges(ctx context.Context, userID string) ([]string, error)
	CountUsersWithMorePoints(ctx context.Context, points int) (int, error)
}
