package services

import (
	"context"
	"time"

	"unitap-backend-go/internal/models"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	users     map[string]*models.User
	cards     map[string]string
	devices   map[string]*models.Device
	touched   map[string]time.Time
	lectures  map[string]*models.Lecture
	attendees map[string]map[string]bool
	equipment map[string]*models.Equipment
	queues    map[string][]string
	events    map[string]*models.Event
	checkins  map[string]map[string]bool
	societies map[string]*models.Society
	tapEvents []models.TapEvent
	badges    map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]*models.User{},
		cards:     map[string]string{},
		devices:   map[string]*models.Device{},
		touched:   map[string]time.Time{},
		lectures:  map[string]*models.Lecture{},
		attendees: map[string]map[string]bool{},
		equipment: map[string]*models.Equipment{},
		queues:    map[string][]string{},
		events:    map[string]*models.Event{},
		checkins:  map[string]map[string]bool{},
		societies: map[string]*models.Society{},
		badges:    map[string][]string{},
	}
}

func (f *fakeStore) addUser(user *models.User) *models.User {
	f.users[user.ID] = user
	if user.CardUID != nil {
		f.cards[*user.CardUID] = user.ID
	}
	return user
}

func (f *fakeStore) FindUserByCard(_ context.Context, cardUID string) (*models.User, error) {
	if userID, ok := f.cards[cardUID]; ok {
		return f.users[userID], nil
	}
	return nil, nil
}

func (f *fakeStore) FindUserByID(_ context.Context, userID string) (*models.User, error) {
	return f.users[userID], nil
}

func (f *fakeStore) FindDeviceByID(_ context.Context, deviceID string) (*models.Device, error) {
	return f.devices[deviceID], nil
}

func (f *fakeStore) TouchDevice(_ context.Context, deviceID string, seenAt time.Time) error {
	f.touched[deviceID] = seenAt
	return nil
}

func (f *fakeStore) FindLectureByID(_ context.Context, lectureID string) (*models.Lecture, error) {
	return f.lectures[lectureID], nil
}

func (f *fakeStore) CountLectureAttendees(_ context.Context, lectureID string) (int, error) {
	return len(f.attendees[lectureID]), nil
}

func (f *fakeStore) AddLectureAttendee(_ context.Context, lectureID, userID string) error {
	if f.attendees[lectureID] == nil {
		f.attendees[lectureID] = map[string]bool{}
	}
	f.attendees[lectureID][userID] = true
	return nil
}

func (f *fakeStore) FindLiveLecture(_ context.Context, now time.Time, grace time.Duration) (*models.Lecture, error) {
	for _, lecture := range f.lectures {
		if !now.Before(lecture.StartTime.Add(-grace)) && !now.After(lecture.EndTime) {
			return lecture, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindNextLecture(_ context.Context, after time.Time) (*models.Lecture, error) {
	var next *models.Lecture
	for _, lecture := range f.lectures {
		if lecture.StartTime.Before(after) {
			continue
		}
		if next == nil || lecture.StartTime.Before(next.StartTime) {
			next = lecture
		}
	}
	return next, nil
}

func (f *fakeStore) FindEquipmentByDevice(_ context.Context, deviceID string) (*models.Equipment, error) {
	for _, equip := range f.equipment {
		if equip.DeviceID == deviceID {
			return equip, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CheckoutEquipment(_ context.Context, equipmentID, userID string, at time.Time) error {
	equip := f.equipment[equipmentID]
	equip.Status = EquipmentInUse
	equip.CurrentUserID = &userID
	equip.CheckoutTime = &at
	return nil
}

func (f *fakeStore) ReleaseEquipment(_ context.Context, equipmentID string) error {
	equip := f.equipment[equipmentID]
	equip.Status = EquipmentAvailable
	equip.CurrentUserID = nil
	equip.CheckoutTime = nil
	return nil
}

func (f *fakeStore) PromoteQueueHead(_ context.Context, equipmentID string, at time.Time) (string, bool, error) {
	queue := f.queues[equipmentID]
	if len(queue) == 0 {
		return "", false, nil
	}
	head := queue[0]
	f.queues[equipmentID] = queue[1:]
	equip := f.equipment[equipmentID]
	equip.Status = EquipmentInUse
	equip.CurrentUserID = &head
	equip.CheckoutTime = &at
	return head, true, nil
}

func (f *fakeStore) EnqueueEquipmentUser(_ context.Context, equipmentID, userID string) error {
	for _, queued := range f.queues[equipmentID] {
		if queued == userID {
			return nil
		}
	}
	f.queues[equipmentID] = append(f.queues[equipmentID], userID)
	return nil
}

func (f *fakeStore) FindEventByID(_ context.Context, eventID string) (*models.Event, error) {
	return f.events[eventID], nil
}

func (f *fakeStore) FindEventByDevice(_ context.Context, deviceID string) (*models.Event, error) {
	for _, event := range f.events {
		if event.DeviceID != nil && *event.DeviceID == deviceID {
			return event, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CountEventCheckins(_ context.Context, eventID string) (int, error) {
	return len(f.checkins[eventID]), nil
}

func (f *fakeStore) AddEventCheckin(_ context.Context, eventID, userID string) error {
	if f.checkins[eventID] == nil {
		f.checkins[eventID] = map[string]bool{}
	}
	f.checkins[eventID][userID] = true
	return nil
}

func (f *fakeStore) CountUserEventCheckins(_ context.Context, userID string) (int, error) {
	count := 0
	for _, users := range f.checkins {
		if users[userID] {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) FindSocietyByID(_ context.Context, societyID string) (*models.Society, error) {
	return f.societies[societyID], nil
}

func (f *fakeStore) InsertTapEvent(_ context.Context, event *models.TapEvent) error {
	f.tapEvents = append(f.tapEvents, *event)
	return nil
}

func (f *fakeStore) IncrementUserPoints(_ context.Context, userID string, delta int) error {
	f.users[userID].Points += delta
	return nil
}

func (f *fakeStore) IncrementUserFirstArrivals(_ context.Context, userID string) error {
	f.users[userID].FirstArrivals++
	return nil
}

func (f *fakeStore) SetUserStreak(_ context.Context, userID string, current, best int, lastDate time.Time) error {
	user := f.users[userID]
	user.CurrentStreak = current
	if best > user.BestStreak {
		user.BestStreak = best
	}
	user.LastAttendanceDate = &lastDate
	return nil
}

func (f *fakeStore) GrantBadges(_ context.Context, userID string, grants []string) error {
	for _, grant := range grants {
		held := false
		for _, badge := range f.badges[userID] {
			if badge == grant {
				held = true
				break
			}
		}
		if !held {
			f.badges[userID] = append(f.badges[userID], grant)
		}
	}
	return nil
}

func (f *fakeStore) UserBadges(_ context.Context, userID string) ([]string, error) {
	return append([]string{}, f.badges[userID]...), nil
}

func (f *fakeStore) CountUsersWithMorePoints(_ context.Context, points int) (int, error) {
	count := 0
	for _, user := range f.users {
		if user.Points > points {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) hasBadge(userID, badge string) bool {
	for _, held := range f.badges[userID] {
		if held == badge {
			return true
		}
	}
	return false
}

func strPtr(s string) *string {
	return &s
}
