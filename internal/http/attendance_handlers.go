package httpapi

import (
	"net/http"
	"time"

	"unitap-backend-go/internal/db"

	"github.com/go-chi/chi/v5"
)

type LectureDTO struct {
	ID               string            `json:"_id"`
	Name             string            `json:"name"`
	Professor        string            `json:"professor"`
	Room             string            `json:"room"`
	StartTime        string            `json:"start_time"`
	EndTime          string            `json:"end_time"`
	DeviceID         string            `json:"device_id"`
	ExpectedStudents int               `json:"expected_students"`
	CheckedIn        int               `json:"checked_in"`
	Status           string            `json:"status"`
	Attendees        []db.AttendeeInfo `json:"attendees,omitempty"`
}

func (s *Server) ListLectures(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			day = &parsed
		}
	}
	lectures, err := s.Store.ListLectures(r.Context(), day)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	statusFilter := r.URL.Query().Get("status")
	now := nowUTC()
	items := make([]LectureDTO, 0, len(lectures))
	for _, lecture := range lectures {
		dto := serializeLecture(lecture, now)
		if statusFilter != "" && dto.Status != statusFilter {
			continue
		}
		items = append(items, dto)
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) LectureDetail(w http.ResponseWriter, r *http.Request) {
	lectureID := chi.URLParam(r, "lectureID")
	lecture, err := s.Store.FindLectureByID(r.Context(), lectureID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if lecture == nil {
		WriteError(w, http.StatusNotFound, "Lecture not found")
		return
	}
	attendees, err := s.Store.LectureAttendees(r.Context(), lectureID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	dto := serializeLecture(db.LectureSummary{Lecture: *lecture, CheckedIn: len(attendees)}, nowUTC())
	dto.Attendees = attendees
	WriteJSON(w, http.StatusOK, dto)
}

// Lecture status is derived from the clock, never stored.
func serializeLecture(lecture db.LectureSummary, now time.Time) LectureDTO {
	status := "live"
	switch {
	case now.Before(lecture.StartTime):
		status = "upcoming"
	case now.After(lecture.EndTime):
		status = "ended"
	}
	return LectureDTO{
		ID:               lecture.ID,
		Name:             lecture.Name,
		Professor:        lecture.Professor,
		Room:             lecture.Room,
		StartTime:        lecture.StartTime.UTC().Format(time.RFC3339),
		EndTime:          lecture.EndTime.UTC().Format(time.RFC3339),
		DeviceID:         lecture.DeviceID,
		ExpectedStudents: lecture.ExpectedStudents,
		CheckedIn:        lecture.CheckedIn,
		Status:           status,
	}
}
