// Package model defines the capture events buffered by the offline queue.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
)

// Kind discriminates capture events.
type Kind string

// Known event kinds. Other values are carried through unchanged.
const (
	KindClockIn  Kind = "clock_in"
	KindClockOut Kind = "clock_out"
)

// Geo is an optional geolocation fix attached by the producer.
type Geo struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters, nil if the fix had none
}

// CaptureEvent is a single queued record. The queue never interprets its fields.
type CaptureEvent struct {
	ID           uuid.UUID // client-generated, uuid.Nil if the producer did not set one
	Kind         Kind
	SubjectID    string // e.g. employee id
	Geo          *Geo
	TimestampISO string
	Date         string // YYYY-MM-DD
	Photo        string // data URL produced by the capture collaborator

	// Extra holds members this version does not know, re-emitted as-is.
	Extra map[string]json.RawMessage
}

// wireEvent is the JSON shape of CaptureEvent.
type wireEvent struct {
	ID           *uuid.UUID `json:"id,omitempty"`
	Type         Kind       `json:"type"`
	EmployeeID   string     `json:"employeeId"`
	Lat          *float64   `json:"lat,omitempty"`
	Lng          *float64   `json:"lng,omitempty"`
	Accuracy     *float64   `json:"accuracy,omitempty"`
	TimestampISO string     `json:"timestampISO"`
	Date         string     `json:"date"`
	Photo        string     `json:"photo"`
}

// ErrInvalidUTF8 is returned when marshaling an event whose text would be altered by JSON encoding.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

var knownMembers = map[string]struct{}{
	"id": {}, "type": {}, "employeeId": {}, "lat": {}, "lng": {},
	"accuracy": {}, "timestampISO": {}, "date": {}, "photo": {},
}

// NewCaptureEvent builds an event stamped at `at` with a fresh id.
// TimestampISO is RFC 3339 in UTC, Date is the calendar date in at's location.
func NewCaptureEvent(kind Kind, subjectID string, at time.Time, photo string, geo *Geo) (CaptureEvent, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return CaptureEvent{}, err
	}
	return CaptureEvent{
		ID:           id,
		Kind:         kind,
		SubjectID:    subjectID,
		Geo:          geo,
		TimestampISO: at.UTC().Format(time.RFC3339),
		Date:         at.Format(time.DateOnly),
		Photo:        photo,
	}, nil
}

// MarshalJSON emits the known members followed by Extra. Extra entries named like a
// known member are never emitted, even when the known member itself is omitted.
// Text that is not valid UTF-8 is rejected rather than replaced.
func (e CaptureEvent) MarshalJSON() ([]byte, error) {
	if err := e.checkUTF8(); err != nil {
		return nil, err
	}
	w := wireEvent{
		Type:         e.Kind,
		EmployeeID:   e.SubjectID,
		TimestampISO: e.TimestampISO,
		Date:         e.Date,
		Photo:        e.Photo,
	}
	if e.ID != uuid.Nil {
		id := e.ID
		w.ID = &id
	}
	if e.Geo != nil {
		lat, lng := e.Geo.Latitude, e.Geo.Longitude
		w.Lat, w.Lng, w.Accuracy = &lat, &lng, e.Geo.Accuracy
	}
	if len(e.Extra) == 0 {
		return json.Marshal(w)
	}

	known, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(e.Extra)+len(knownMembers))
	for k, v := range e.Extra {
		if _, ok := knownMembers[k]; ok {
			continue
		}
		merged[k] = v
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(known, &members); err != nil {
		return nil, err
	}
	for k, v := range members {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (e CaptureEvent) checkUTF8() error {
	fields := []struct{ name, v string }{
		{"type", string(e.Kind)},
		{"employeeId", e.SubjectID},
		{"timestampISO", e.TimestampISO},
		{"date", e.Date},
		{"photo", e.Photo},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.v) {
			return fmt.Errorf("%w in %s", ErrInvalidUTF8, f.name)
		}
	}
	for k, v := range e.Extra {
		if !utf8.ValidString(k) || !utf8.Valid(v) {
			return fmt.Errorf("%w in extra member %q", ErrInvalidUTF8, k)
		}
	}
	return nil
}

// UnmarshalJSON fills the known members and keeps the rest in Extra.
func (e *CaptureEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	*e = CaptureEvent{
		Kind:         w.Type,
		SubjectID:    w.EmployeeID,
		TimestampISO: w.TimestampISO,
		Date:         w.Date,
		Photo:        w.Photo,
	}
	if w.ID != nil {
		e.ID = *w.ID
	}
	if w.Lat != nil || w.Lng != nil || w.Accuracy != nil {
		g := &Geo{Accuracy: w.Accuracy}
		if w.Lat != nil {
			g.Latitude = *w.Lat
		}
		if w.Lng != nil {
			g.Longitude = *w.Lng
		}
		e.Geo = g
	}
	for k, v := range members {
		if _, ok := knownMembers[k]; ok {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage)
		}
		e.Extra[k] = v
	}
	return nil
}
