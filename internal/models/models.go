package models

import "time"

type User struct {
	ID                 string     `db:"id"`
	Name               string     `db:"name"`
	Email              string     `db:"email"`
	CardUID            *string    `db:"card_uid"`
	Role               string     `db:"role"`
	University         string     `db:"university"`
	Points             int        `db:"points"`
	CurrentStreak      int        `db:"current_streak"`
	BestStreak         int        `db:"best_streak"`
	FirstArrivals      int        `db:"first_arrivals"`
	LastAttendanceDate *time.Time `db:"last_attendance_date"`
	CreatedAt          time.Time  `db:"created_at"`
}

type Device struct {
	DeviceID string     `db:"device_id"`
	Name     string     `db:"name"`
	Location string     `db:"location"`
	Mode     string     `db:"mode"`
	Config   []byte     `db:"config"`
	IsOnline bool       `db:"is_online"`
	LastSeen *time.Time `db:"last_seen"`
}

type Lecture struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Professor        string    `db:"professor"`
	Room             string    `db:"room"`
	StartTime        time.Time `db:"start_time"`
	EndTime          time.Time `db:"end_time"`
	DeviceID         string    `db:"device_id"`
	ExpectedStudents int       `db:"expected_students"`
}

type Equipment struct {
	ID            string     `db:"id"`
	Name          string     `db:"name"`
	Location      string     `db:"location"`
	DeviceID      string     `db:"device_id"`
	Status        string     `db:"status"`
	CurrentUserID *string    `db:"current_user_id"`
	CheckoutTime  *time.Time `db:"checkout_time"`
}

type Society struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	LeadID      *string `db:"lead_id"`
}

type Event struct {
	ID          string    `db:"id"`
	SocietyID   string    `db:"society_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Location    string    `db:"location"`
	Date        time.Time `db:"date"`
	Capacity    int       `db:"capacity"`
	DeviceID    *string   `db:"device_id"`
}

// TapEvent is the append-only audit record; rows are never updated or deleted.
type TapEvent struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	DeviceID  string    `db:"device_id"`
	Action    string    `db:"action"`
	Context   string    `db:"context"`
	Timestamp time.Time `db:"timestamp"`
}

type MetricSample struct {
	ID                string    `db:"id"`
	CapturedAt        time.Time `db:"captured_at"`
	ProcessRSSBytes   int64     `db:"process_rss_bytes"`
	SystemMemoryTotal int64     `db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `db:"disk_total_bytes"`
	DiskUsedBytes     int64     `db:"disk_used_bytes"`
	ProcessCpuLoad    float64   `db:"process_cpu_load"`
	SystemCpuLoad     float64   `db:"system_cpu_load"`
}
