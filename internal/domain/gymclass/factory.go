package gymclass

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(ownerID string, req CreateGymClassRequest, now time.Time) GymClass {
	g := GymClass{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Date:      req.Date,
		Notes:     normalizeNotes(req.Notes),
		CreatedAt: now.UTC(),
	}

	if req.Attendance != nil {
		g.Attendance = *req.Attendance
	}

	return g
}

// absent or empty notes are stored as NULL, never ""
func normalizeNotes(notes *string) *string {
	if notes == nil || *notes == "" {
		return nil
	}
	v := *notes
	return &v
}
