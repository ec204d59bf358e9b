package gymclass

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"time"
)

// DateLayout is the calendar date format accepted and returned for GymClass.Date.
const DateLayout = "2006-01-02"

var ErrNotFound = errors.New("gym class not found")

// GymClass is one attendance record owned by a single user.
type GymClass struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Date       string    `json:"date"`
	Attendance int       `json:"attendance"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreateGymClassRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Attendance *int    `json:"attendance" validate:"required,min=0,max=999"`
	Notes      *string `json:"notes"`
}

// all fields optional; nil means "leave untouched"
type UpdateGymClassRequest struct {
	Date       *string `json:"date" validate:"omitnil,min=1,datetime=2006-01-02"`
	Attendance *int    `json:"attendance" validate:"omitnil,min=0,max=999"`
	Notes      *string `json:"notes"`
}

// UnmarshalJSON rejects an explicit null: a field is either omitted or carries a value.
// Use "notes": "" to clear notes.
func (r *UpdateGymClassRequest) UnmarshalJSON(b []byte) error {
	type plain UpdateGymClassRequest

	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	for _, f := range []struct {
		name string
		typ  reflect.Type
	}{
		{"date", reflect.TypeOf("")},
		{"attendance", reflect.TypeOf(0)},
		{"notes", reflect.TypeOf("")},
	} {
		if v, ok := raw[f.name]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return &json.UnmarshalTypeError{Value: "null", Type: f.typ, Field: f.name}
		}
	}

	*r = UpdateGymClassRequest(p)
	return nil
}

// Changes is the validated partial update handed to a Store.
// A non-nil Notes pointing at "" clears the stored notes.
type Changes struct {
	Date       *string
	Attendance *int
	Notes      *string
}

func (c Changes) Empty() bool {
	return c.Date == nil && c.Attendance == nil && c.Notes == nil
}

// Apply returns g with every supplied change written over it.
func (c Changes) Apply(g GymClass) GymClass {
	if c.Date != nil {
		g.Date = *c.Date
	}
	if c.Attendance != nil {
		g.Attendance = *c.Attendance
	}
	if c.Notes != nil {
		g.Notes = normalizeNotes(c.Notes)
	}
	return g
}
