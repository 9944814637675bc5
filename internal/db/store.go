package db

import (
	"context"
	"time"

	"unitap-backend-go/internal/models"
)

func (s *Store) FindUserByCard(ctx context.Context, cardUID string) (*models.User, error) {
	user := models.User{}
	err := s.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE card_uid = $1`, cardUID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := models.User{}
	err := s.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, userID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindDeviceByID(ctx context.Context, deviceID string) (*models.Device, error) {
	device := models.Device{}
	err := s.DB.GetContext(ctx, &device, `SELECT * FROM devices WHERE device_id = $1`, deviceID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *Store) TouchDevice(ctx context.Context, deviceID string, seenAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE devices SET is_online = true, last_seen = $2 WHERE device_id = $1`, deviceID, seenAt)
	return err
}

func (s *Store) FindLectureByID(ctx context.Context, lectureID string) (*models.Lecture, error) {
	lecture := models.Lecture{}
	err := s.DB.GetContext(ctx, &lecture, `SELECT * FROM lectures WHERE id = $1`, lectureID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (s *Store) CountLectureAttendees(ctx context.Context, lectureID string) (int, error) {
	var count int
	err := s.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM lecture_attendees WHERE lecture_id = $1`, lectureID)
	return count, err
}

func (s *Store) AddLectureAttendee(ctx context.Context, lectureID, userID string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO lecture_attendees (lecture_id, user_id, added_at)
VALUES ($1, $2, now())
ON CONFLICT (lecture_id, user_id) DO NOTHING
`, lectureID, userID)
	return err
}

func (s *Store) FindLiveLecture(ctx context.Context, now time.Time, grace time.Duration) (*models.Lecture, error) {
	lecture := models.Lecture{}
	err := s.DB.GetContext(ctx, &lecture, `
SELECT * FROM lectures
WHERE start_time <= $1 AND end_time >= $2
ORDER BY start_time
LIMIT 1
`, now.Add(grace), now)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (s *Store) FindNextLecture(ctx context.Context, after time.Time) (*models.Lecture, error) {
	lecture := models.Lecture{}
	err := s.DB.GetContext(ctx, &lecture, `
SELECT * FROM lectures
WHERE start_time >= $1
ORDER BY start_time
LIMIT 1
`, after)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (s *Store) FindEquipmentByDevice(ctx context.Context, deviceID string) (*models.Equipment, error) {
	equip := models.Equipment{}
	err := s.DB.GetContext(ctx, &equip, `SELECT * FROM equipment WHERE device_id = $1`, deviceID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &equip, nil
}

func (s *Store) CheckoutEquipment(ctx context.Context, equipmentID, userID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE equipment SET status = 'in-use', current_user_id = $2, checkout_time = $3 WHERE id = $1
`, equipmentID, userID, at)
	return err
}

func (s *Store) ReleaseEquipment(ctx context.Context, equipmentID string) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE equipment SET status = 'available', current_user_id = NULL, checkout_time = NULL WHERE id = $1
`, equipmentID)
	return err
}

func (s *Store) PromoteQueueHead(ctx context.Context, equipmentID string, at time.Time) (string, bool, error) {
	var userID string
	err := s.DB.GetContext(ctx, &userID, `
WITH head AS (
  DELETE FROM equipment_queue
  WHERE position = (SELECT MIN(position) FROM equipment_queue WHERE equipment_id = $1)
  RETURNING user_id
)
UPDATE equipment
SET current_user_id = head.user_id, status = 'in-use', checkout_time = $2
FROM head
WHERE equipment.id = $1
RETURNING head.user_id
`, equipmentID, at)
	if noRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) EnqueueEquipmentUser(ctx context.Context, equipmentID, userID string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO equipment_queue (equipment_id, user_id)
VALUES ($1, $2)
ON CONFLICT (equipment_id, user_id) DO NOTHING
`, equipmentID, userID)
	return err
}

func (s *Store) RemoveFromEquipmentQueue(ctx context.Context, equipmentID, userID string) error {
	_, err := s.DB.ExecContext(ctx, `
DELETE FROM equipment_queue WHERE equipment_id = $1 AND user_id = $2
`, equipmentID, userID)
	return err
}

func (s *Store) FindEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	event := models.Event{}
	err := s.DB.GetContext(ctx, &event, `SELECT * FROM events WHERE id = $1`, eventID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) FindEventByDevice(ctx context.Context, deviceID string) (*models.Event, error) {
	event := models.Event{}
	err := s.DB.GetContext(ctx, &event, `SELECT * FROM events WHERE device_id = $1 LIMIT 1`, deviceID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) CountEventCheckins(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_checkins WHERE event_id = $1`, eventID)
	return count, err
}

func (s *Store) AddEventCheckin(ctx context.Context, eventID, userID string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO event_checkins (event_id, user_id, checked_in_at)
VALUES ($1, $2, now())
ON CONFLICT (event_id, user_id) DO NOTHING
`, eventID, userID)
	return err
}

func (s *Store) CountUserEventCheckins(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_checkins WHERE user_id = $1`, userID)
	return count, err
}

func (s *Store) FindSocietyByID(ctx context.Context, societyID string) (*models.Society, error) {
	society := models.Society{}
	err := s.DB.GetContext(ctx, &society, `SELECT * FROM societies WHERE id = $1`, societyID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &society, nil
}

func (s *Store) InsertTapEvent(ctx context.Context, event *models.TapEvent) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO tap_events (id, user_id, user_name, device_id, action, context, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, event.ID, event.UserID, event.UserName, event.DeviceID, event.Action, event.Context, event.Timestamp)
	return err
}

func (s *Store) IncrementUserPoints(ctx context.Context, userID string, delta int) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE users SET points = points + $2 WHERE id = $1`, userID, delta)
	return err
}

func (s *Store) IncrementUserFirstArrivals(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE users SET first_arrivals = first_arrivals + 1 WHERE id = $1`, userID)
	return err
}

func (s *Store) SetUserStreak(ctx context.Context, userID string, current, best int, lastDate time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE users
SET current_streak = $2, best_streak = GREATEST(best_streak, $3), last_attendance_date = $4
WHERE id = $1
`, userID, current, best, lastDate)
	return err
}

func (s *Store) GrantBadges(ctx context.Context, userID string, badges []string) error {
	for _, badge := range badges {
		_, err := s.DB.ExecContext(ctx, `
INSERT INTO user_badges (user_id, badge, granted_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, badge) DO NOTHING
`, userID, badge)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UserBadges(ctx context.Context, userID string) ([]string, error) {
	badges := []string{}
	err := s.DB.SelectContext(ctx, &badges, `
SELECT badge FROM user_badges WHERE user_id = $1 ORDER BY granted_at
`, userID)
	return badges, err
}

func (s *Store) CountUsersWithMorePoints(ctx context.Context, points int) (int, error) {
	var count int
	err := s.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE points > $1`, points)
	return count, err
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}
