package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// EventBand is one row of the EventBands table: a band booked to play an event.
type EventBand struct {
	ID           int      `json:"id" db:"id"`
	EventID      int      `json:"event_id" db:"event_id"`
	BandID       int      `json:"band_id" db:"band_id"`
	Setlist      *string  `json:"setlist" db:"setlist"`
	Rating       *float64 `json:"rating" db:"rating"`
	MainAct      bool     `json:"mainAct" db:"mainAct"`
	RunningOrder *int     `json:"runningOrder" db:"runningOrder"`
	Notes        *string  `json:"notes" db:"notes"`
}

// EventBandDetail is an EventBands row joined with the band's name.
type EventBandDetail struct {
	EventBandID  int      `json:"event_band_id" db:"event_band_id"`
	BandID       int      `json:"band_id" db:"band_id"`
	BandName     string   `json:"band_name" db:"band_name"`
	MainAct      bool     `json:"mainAct" db:"mainAct"`
	RunningOrder *int     `json:"runningOrder" db:"runningOrder"`
	Rating       *float64 `json:"rating" db:"rating"`
	Notes        *string  `json:"notes" db:"notes"`
}

// EventBandInput is the request body for create and update. Fields left out of
// the body stay nil and are defaulted by Normalize.
type EventBandInput struct {
	EventID      *int     `json:"event_id"`
	BandID       *int     `json:"band_id"`
	Setlist      *string  `json:"setlist"`
	Rating       *float64 `json:"rating"`
	MainAct      *bool    `json:"mainAct"`
	RunningOrder *int     `json:"runningOrder"`
	Notes        *string  `json:"notes"`
}

// UnmarshalJSON accepts whole numbers written with a fraction ("5.0") for the
// integer fields, the same values the JSON schema treats as integers.
func (in *EventBandInput) UnmarshalJSON(data []byte) error {
	type plain EventBandInput
	aux := struct {
		EventID      *json.Number `json:"event_id"`
		BandID       *json.Number `json:"band_id"`
		RunningOrder *json.Number `json:"runningOrder"`
		*plain
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if in.EventID, err = wholeNumber("event_id", aux.EventID); err != nil {
		return err
	}
	if in.BandID, err = wholeNumber("band_id", aux.BandID); err != nil {
		return err
	}
	if in.RunningOrder, err = wholeNumber("runningOrder", aux.RunningOrder); err != nil {
		return err
	}
	return nil
}

func wholeNumber(field string, n *json.Number) (*int, error) {
	if n == nil {
		return nil, nil
	}
	if i, err := n.Int64(); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
		v := int(i)
		return &v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil, fmt.Errorf("%s: %s is not a whole number in range", field, n.String())
	}
	v := int(f)
	return &v, nil
}

// Normalize returns the full seven-field row the input describes. mainAct
// defaults to false; the other optional fields stay null.
func (in EventBandInput) Normalize() EventBand {
	eb := EventBand{
		Setlist:      in.Setlist,
		Rating:       in.Rating,
		RunningOrder: in.RunningOrder,
		Notes:        in.Notes,
	}
	if in.EventID != nil {
		eb.EventID = *in.EventID
	}
	if in.BandID != nil {
		eb.BandID = *in.BandID
	}
	if in.MainAct != nil {
		eb.MainAct = *in.MainAct
	}
	return eb
}

// Values lists the writable columns in INSERT/UPDATE order.
func (eb EventBand) Values() []interface{} {
	return []interface{}{
		eb.EventID,
		eb.BandID,
		eb.Setlist,
		eb.Rating,
		eb.MainAct,
		eb.RunningOrder,
		eb.Notes,
	}
}

type EventBandCount struct {
	Count int64 `json:"count"`
}

// EventBandCreated is returned by create. The id key is venueId for
// compatibility with existing frontend clients.
type EventBandCreated struct {
	Message string `json:"message"`
	VenueID string `json:"venueId"`
}
