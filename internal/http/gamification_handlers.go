package httpapi

import (
	"net/http"
	"time"

	"unitap-backend-go/internal/services"
)

type LeaderboardEntry struct {
	ID            string   `json:"_id"`
	Name          string   `json:"name"`
	University    string   `json:"university"`
	Points        int      `json:"points"`
	CurrentStreak int      `json:"current_streak"`
	BestStreak    int      `json:"best_streak"`
	FirstArrivals int      `json:"first_arrivals"`
	Badges        []string `json:"badges"`
	Rank          int      `json:"rank"`
	WeeklyTaps    int      `json:"weekly_taps,omitempty"`
	TotalUsers    int      `json:"total_users,omitempty"`
}

type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Me          *LeaderboardEntry  `json:"me"`
}

// Leaderboard ranks by attendance tap counts (10 points per tap), either
// all-time or over the trailing week.
func (s *Server) Leaderboard(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if r.URL.Query().Get("period") == "week" {
		weekAgo := nowUTC().AddDate(0, 0, -7)
		since = &weekAgo
	}

	rows, err := s.Store.AttendanceLeaderboard(r.Context(), since, 20)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	entries := make([]LeaderboardEntry, 0, len(rows))
	for rank, row := range rows {
		badges, err := s.Store.UserBadges(r.Context(), row.UserID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		entries = append(entries, LeaderboardEntry{
			ID:            row.UserID,
			Name:          row.Name,
			University:    row.University,
			Points:        row.Taps * 10,
			CurrentStreak: row.CurrentStreak,
			BestStreak:    row.BestStreak,
			FirstArrivals: row.FirstArrivals,
			Badges:        badges,
			Rank:          rank + 1,
			WeeklyTaps:    row.Taps,
		})
	}

	response := LeaderboardResponse{Leaderboard: entries}
	if me := s.callerStanding(r, since); me != nil {
		response.Me = me
	}
	WriteJSON(w, http.StatusOK, response)
}

// callerStanding computes the authenticated caller's own rank by tap count.
// Anonymous callers simply get no "me" block.
func (s *Server) callerStanding(r *http.Request, since *time.Time) *LeaderboardEntry {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return nil
	}
	tokenStr := auth
	if len(auth) > 7 && auth[:7] == "Bearer " {
		tokenStr = auth[7:]
	}
	token, claims, err := s.Tokens.ParseToken(tokenStr)
	if err != nil || !token.Valid || claims["typ"] != "access" {
		return nil
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil
	}

	user, err := s.Store.FindUserByID(r.Context(), userID)
	if err != nil || user == nil {
		return nil
	}
	taps, err := s.Store.CountUserAttendanceTaps(r.Context(), userID, since)
	if err != nil {
		return nil
	}
	ahead, err := s.Store.CountUsersWithMoreAttendanceTaps(r.Context(), taps, since)
	if err != nil {
		return nil
	}
	total, err := s.Store.CountUsers(r.Context())
	if err != nil {
		return nil
	}
	badges, err := s.Store.UserBadges(r.Context(), userID)
	if err != nil {
		badges = []string{}
	}
	return &LeaderboardEntry{
		ID:            user.ID,
		Name:          user.Name,
		University:    user.University,
		Points:        taps * 10,
		CurrentStreak: user.CurrentStreak,
		BestStreak:    user.BestStreak,
		FirstArrivals: user.FirstArrivals,
		Badges:        badges,
		Rank:          ahead + 1,
		TotalUsers:    total,
	}
}

// MyStanding returns the caller's gamification profile with the points-based
// rank the badge engine also uses.
func (s *Server) MyStanding(w http.ResponseWriter, r *http.Request) {
	userID := CurrentUserID(r)
	user, err := s.Store.FindUserByID(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	ahead, err := s.Store.CountUsersWithMorePoints(r.Context(), user.Points)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	total, err := s.Store.CountUsers(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	badges, err := s.Store.UserBadges(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, LeaderboardEntry{
		ID:            user.ID,
		Name:          user.Name,
		University:    user.University,
		Points:        user.Points,
		CurrentStreak: user.CurrentStreak,
		BestStreak:    user.BestStreak,
		FirstArrivals: user.FirstArrivals,
		Badges:        badges,
		Rank:          ahead + 1,
		TotalUsers:    total,
	})
}

// BadgeMeta serves badge labels and colors for frontend display.
func (s *Server) BadgeMeta(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, services.BadgeMeta)
}
