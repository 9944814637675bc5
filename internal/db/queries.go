package db

import (
	"context"
	"time"

	"unitap-backend-go/internal/models"
)

type LectureSummary struct {
	models.Lecture
	CheckedIn int `db:"checked_in"`
}

type AttendeeInfo struct {
	ID    string `db:"id" json:"_id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

type LeaderboardRow struct {
	UserID        string `db:"user_id"`
	Name          string `db:"name"`
	University    string `db:"university"`
	CurrentStreak int    `db:"current_streak"`
	BestStreak    int    `db:"best_streak"`
	FirstArrivals int    `db:"first_arrivals"`
	Taps          int    `db:"taps"`
}

type DashboardStats struct {
	TapsToday      int `json:"taps_today"`
	AttendanceRate int `json:"attendance_rate"`
	ActiveQueues   int `json:"active_queues"`
	QueueStudents  int `json:"queue_students"`
	EventsThisWeek int `json:"events_this_week"`
	ActiveStudents int `json:"active_students"`
}

func (s *Store) ListDevices(ctx context.Context) ([]models.Device, error) {
	devices := []models.Device{}
	err := s.DB.SelectContext(ctx, &devices, `SELECT * FROM devices ORDER BY device_id`)
	return devices, err
}

func (s *Store) InsertDevice(ctx context.Context, device *models.Device) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO devices (device_id, name, location, mode, config, is_online, last_seen)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, device.DeviceID, device.Name, device.Location, device.Mode, device.Config, device.IsOnline, device.LastSeen)
	return err
}

// UpdateDevice changes mode and/or config, the only fields device management
// may touch after registration.
func (s *Store) UpdateDevice(ctx context.Context, deviceID string, mode *string, config []byte) (*models.Device, error) {
	if mode != nil {
		if _, err := s.DB.ExecContext(ctx, `UPDATE devices SET mode = $2 WHERE device_id = $1`, deviceID, *mode); err != nil {
			return nil, err
		}
	}
	if config != nil {
		if _, err := s.DB.ExecContext(ctx, `UPDATE devices SET config = $2 WHERE device_id = $1`, deviceID, config); err != nil {
			return nil, err
		}
	}
	return s.FindDeviceByID(ctx, deviceID)
}

// ListLectures returns lectures with attendee counts, optionally restricted
// to one calendar day.
func (s *Store) ListLectures(ctx context.Context, day *time.Time) ([]LectureSummary, error) {
	lectures := []LectureSummary{}
	query := `
SELECT l.*, COUNT(a.user_id) AS checked_in
FROM lectures l
LEFT JOIN lecture_attendees a ON a.lecture_id = l.id
`
	args := []interface{}{}
	if day != nil {
		query += `WHERE l.start_time >= $1 AND l.start_time < $2
`
		args = append(args, *day, day.AddDate(0, 0, 1))
	}
	query += `GROUP BY l.id ORDER BY l.start_time`
	err := s.DB.SelectContext(ctx, &lectures, query, args...)
	return lectures, err
}

func (s *Store) LectureAttendees(ctx context.Context, lectureID string) ([]AttendeeInfo, error) {
	attendees := []AttendeeInfo{}
	err := s.DB.SelectContext(ctx, &attendees, `
SELECT u.id, u.name, u.email
FROM users u
JOIN lecture_attendees a ON a.user_id = u.id
WHERE a.lecture_id = $1
ORDER BY a.added_at
`, lectureID)
	return attendees, err
}

func (s *Store) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	items := []models.Equipment{}
	err := s.DB.SelectContext(ctx, &items, `SELECT * FROM equipment ORDER BY name`)
	return items, err
}

func (s *Store) FindEquipmentByID(ctx context.Context, equipmentID string) (*models.Equipment, error) {
	equip := models.Equipment{}
	err := s.DB.GetContext(ctx, &equip, `SELECT * FROM equipment WHERE id = $1`, equipmentID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &equip, nil
}

func (s *Store) EquipmentQueue(ctx context.Context, equipmentID string) ([]string, error) {
	queue := []string{}
	err := s.DB.SelectContext(ctx, &queue, `
SELECT user_id FROM equipment_queue WHERE equipment_id = $1 ORDER BY position
`, equipmentID)
	return queue, err
}

func (s *Store) ListTapEvents(ctx context.Context, action, userID string, limit int) ([]models.TapEvent, error) {
	events := []models.TapEvent{}
	var err error
	switch {
	case action != "" && userID != "":
		err = s.DB.SelectContext(ctx, &events, `
SELECT * FROM tap_events WHERE action = $1 AND user_id = $2 ORDER BY timestamp DESC LIMIT $3
`, action, userID, limit)
	case action != "":
		err = s.DB.SelectContext(ctx, &events, `
SELECT * FROM tap_events WHERE action = $1 ORDER BY timestamp DESC LIMIT $2
`, action, limit)
	case userID != "":
		err = s.DB.SelectContext(ctx, &events, `
SELECT * FROM tap_events WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2
`, userID, limit)
	default:
		err = s.DB.SelectContext(ctx, &events, `
SELECT * FROM tap_events ORDER BY timestamp DESC LIMIT $1
`, limit)
	}
	return events, err
}

// StatsSnapshot computes the dashboard counters. Attendance rate is scoped
// to today's lectures, falling back to all-time when none are scheduled.
func (s *Store) StatsSnapshot(ctx context.Context, now time.Time) (DashboardStats, error) {
	stats := DashboardStats{}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	nextWeek := today.AddDate(0, 0, 7)

	if err := s.DB.GetContext(ctx, &stats.TapsToday, `
SELECT COUNT(*) FROM tap_events WHERE timestamp >= $1 AND timestamp < $2
`, today, tomorrow); err != nil {
		return stats, err
	}

	var expected, checked int
	if err := s.DB.GetContext(ctx, &expected, `
SELECT COALESCE(SUM(expected_students), 0) FROM lectures WHERE start_time >= $1 AND start_time < $2
`, today, tomorrow); err != nil {
		return stats, err
	}
	if expected > 0 {
		if err := s.DB.GetContext(ctx, &checked, `
SELECT COUNT(*)
FROM lecture_attendees a
JOIN lectures l ON l.id = a.lecture_id
WHERE l.start_time >= $1 AND l.start_time < $2
`, today, tomorrow); err != nil {
			return stats, err
		}
	} else {
		if err := s.DB.GetContext(ctx, &expected, `
SELECT COALESCE(SUM(expected_students), 0) FROM lectures
`); err != nil {
			return stats, err
		}
		if err := s.DB.GetContext(ctx, &checked, `
SELECT COUNT(*) FROM lecture_attendees
`); err != nil {
			return stats, err
		}
	}
	if expected > 0 {
		stats.AttendanceRate = int(float64(checked)/float64(expected)*100 + 0.5)
	}

	if err := s.DB.GetContext(ctx, &stats.ActiveQueues, `
SELECT COUNT(DISTINCT equipment_id) FROM equipment_queue
`); err != nil {
		return stats, err
	}
	if err := s.DB.GetContext(ctx, &stats.QueueStudents, `
SELECT COUNT(*) FROM equipment_queue
`); err != nil {
		return stats, err
	}
	if err := s.DB.GetContext(ctx, &stats.EventsThisWeek, `
SELECT COUNT(*) FROM events WHERE date >= $1 AND date < $2
`, today, nextWeek); err != nil {
		return stats, err
	}
	if err := s.DB.GetContext(ctx, &stats.ActiveStudents, `
SELECT COUNT(DISTINCT user_id) FROM tap_events WHERE timestamp >= $1 AND timestamp < $2
`, today, tomorrow); err != nil {
		return stats, err
	}
	return stats, nil
}

// AttendanceLeaderboard ranks users by attendance tap counts, optionally
// restricted to taps after since.
func (s *Store) AttendanceLeaderboard(ctx context.Context, since *time.Time, limit int) ([]LeaderboardRow, error) {
	rows := []LeaderboardRow{}
	query := `
SELECT t.user_id, u.name, u.university, u.current_streak, u.best_streak, u.first_arrivals,
       COUNT(*) AS taps
FROM tap_events t
JOIN users u ON u.id = t.user_id
WHERE t.action = 'attendance'
`
	args := []interface{}{}
	if since != nil {
		args = append(args, *since)
		query += `AND t.timestamp >= $1
`
	}
	args = append(args, limit)
	if since != nil {
		query += `GROUP BY t.user_id, u.name, u.university, u.current_streak, u.best_streak, u.first_arrivals
ORDER BY taps DESC LIMIT $2`
	} else {
		query += `GROUP BY t.user_id, u.name, u.university, u.current_streak, u.best_streak, u.first_arrivals
ORDER BY taps DESC LIMIT $1`
	}
	err := s.DB.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

func (s *Store) CountUserAttendanceTaps(ctx context.Context, userID string, since *time.Time) (int, error) {
	var count int
	if since != nil {
		err := s.DB.GetContext(ctx, &count, `
SELECT COUNT(*) FROM tap_events WHERE user_id = $1 AND action = 'attendance' AND timestamp >= $2
`, userID, *since)
		return count, err
	}
	err := s.DB.GetContext(ctx, &count, `
SELECT COUNT(*) FROM tap_events WHERE user_id = $1 AND action = 'attendance'
`, userID)
	return count, err
}

func (s *Store) CountUsersWithMoreAttendanceTaps(ctx context.Context, taps int, since *time.Time) (int, error) {
	var count int
	if since != nil {
		err := s.DB.GetContext(ctx, &count, `
SELECT COUNT(*) FROM (
  SELECT user_id FROM tap_events
  WHERE action = 'attendance' AND timestamp >= $2
  GROUP BY user_id
  HAVING COUNT(*) > $1
) ahead
`, taps, *since)
		return count, err
	}
	err := s.DB.GetContext(ctx, &count, `
SELECT COUNT(*) FROM (
  SELECT user_id FROM tap_events
  WHERE action = 'attendance'
  GROUP BY user_id
  HAVING COUNT(*) > $1
) ahead
`, taps)
	return count, err
}

// RandomConfiguredDevice picks a device for the demo simulator, preferring
// online devices with a non-empty config so simulated taps land in varied
// rooms.
func (s *Store) RandomConfiguredDevice(ctx context.Context) (*models.Device, error) {
	device := models.Device{}
	err := s.DB.GetContext(ctx, &device, `
SELECT * FROM devices
WHERE config::text NOT IN ('{}', 'null') AND is_online = true
ORDER BY random()
LIMIT 1
`)
	if noRows(err) {
		err = s.DB.GetContext(ctx, &device, `SELECT * FROM devices ORDER BY random() LIMIT 1`)
	}
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *Store) RandomLinkedCard(ctx context.Context) (string, error) {
	var cardUID string
	err := s.DB.GetContext(ctx, &cardUID, `
SELECT card_uid FROM users
WHERE card_uid IS NOT NULL AND card_uid <> ''
ORDER BY random()
LIMIT 1
`)
	if noRows(err) {
		return "", nil
	}
	return cardUID, err
}
