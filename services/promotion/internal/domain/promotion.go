package domain

import (
	"fmt"
	"time"

	"github.com/utafrali/EcommerceGo/pkg/validator"
)

// Payload field names.
const (
	FieldID                    = "id"
	FieldName                  = "name"
	FieldStartDate             = "start_date"
	FieldEndDate               = "end_date"
	FieldWholeStore            = "whole_store"
	FieldHasBeenExtended       = "has_been_extended"
	FieldOriginalEndDate       = "original_end_date"
	FieldMessage               = "message"
	FieldPromotionChangesPrice = "promotion_changes_price"
)

// MaxTextLength bounds name and message, matching the VARCHAR(63) columns.
const MaxTextLength = 63

// Payload is the loosely typed form of a promotion exchanged with callers.
type Payload map[string]any

// Promotion is a time-bounded discount campaign. Dates are calendar dates
// held at midnight UTC.
type Promotion struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name" validate:"required,max=63"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	WholeStore            bool      `json:"whole_store"`
	HasBeenExtended       bool      `json:"has_been_extended"`
	OriginalEndDate       time.Time `json:"original_end_date"`
	Message               string    `json:"message" validate:"max=63"`
	PromotionChangesPrice bool      `json:"promotion_changes_price"`
}

// Date returns the calendar date y-m-d at midnight UTC.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part of t, keeping the date as seen in t's zone.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Deserialize fills p from payload. Dates must already be time.Time and
// flags already bool; see Inbound for the wire conversion. Fields are
// checked in a fixed order and the first problem is returned. Fields set
// before the failure stay set.
func (p *Promotion) Deserialize(payload Payload) error {
	name, ok := payload[FieldName]
	if !ok {
		return missingField(FieldName)
	}
	s, ok := name.(string)
	if !ok {
		return invalidType(FieldName, name)
	}
	p.Name = s

	start, err := requiredDate(payload, FieldStartDate)
	if err != nil {
		return err
	}
	p.StartDate = start

	end, err := requiredDate(payload, FieldEndDate)
	if err != nil {
		return err
	}
	if start.After(end) {
		return orderingError(start.Format(DateLayout), end.Format(DateLayout))
	}
	p.EndDate = end

	if p.WholeStore, err = requiredBool(payload, FieldWholeStore); err != nil {
		return err
	}

	if v, ok := payload[FieldHasBeenExtended]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return invalidType(FieldHasBeenExtended, v)
		}
		p.HasBeenExtended = b
	}

	if v, ok := payload[FieldOriginalEndDate]; ok && v != nil {
		t, ok := v.(time.Time)
		if !ok {
			return invalidType(FieldOriginalEndDate, v)
		}
		p.OriginalEndDate = DateOf(t)
	}

	switch v := payload[FieldMessage].(type) {
	case nil:
		p.Message = ""
	case string:
		p.Message = v
	default:
		p.Message = fmt.Sprint(v)
	}

	if p.PromotionChangesPrice, err = requiredBool(payload, FieldPromotionChangesPrice); err != nil {
		return err
	}

	return validator.Validate(p)
}

func requiredDate(payload Payload, field string) (time.Time, error) {
	v, ok := payload[field]
	if !ok {
		return time.Time{}, missingField(field)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, invalidType(field, v)
	}
	return DateOf(t), nil
}

func requiredBool(payload Payload, field string) (bool, error) {
	v, ok := payload[field]
	if !ok {
		return false, missingField(field)
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidType(field, v)
	}
	return b, nil
}

// PrepareCreate readies a validated promotion for insertion: the original
// end date is pinned to the current end date and any caller-supplied id is
// dropped so the store assigns one.
func (p *Promotion) PrepareCreate() {
	p.OriginalEndDate = p.EndDate
	p.ID = 0
}

// CheckPersisted returns ErrEmptyID if p has no store-assigned id.
func (p *Promotion) CheckPersisted() error {
	if p.ID == 0 {
		return ErrEmptyID
	}
	return nil
}

// Supersede makes p the replacement for stored in a full update: it takes
// over stored's id and original end date, and stays marked as extended once
// either version ends later than originally planned.
func (p *Promotion) Supersede(stored *Promotion) {
	p.ID = stored.ID
	p.OriginalEndDate = stored.OriginalEndDate
	p.HasBeenExtended = p.HasBeenExtended || stored.HasBeenExtended || p.extendsOriginal(p.EndDate)
}

// UpdateEndDate moves the end date to payload["end_date"]. The promotion is
// left untouched if the value is missing, not a date, or before the start
// date. Moving the end date past the original one marks the promotion as
// extended; the marker is never cleared.
func (p *Promotion) UpdateEndDate(payload Payload) error {
	end, err := requiredDate(payload, FieldEndDate)
	if err != nil {
		return err
	}
	if p.StartDate.After(end) {
		return orderingError(p.StartDate.Format(DateLayout), end.Format(DateLayout))
	}

	p.EndDate = end
	if p.extendsOriginal(end) {
		p.HasBeenExtended = true
	}
	return nil
}

func (p *Promotion) extendsOriginal(end time.Time) bool {
	return !p.OriginalEndDate.IsZero() && end.After(p.OriginalEndDate)
}

// Cancel ends the promotion today. A promotion that has not started yet
// cannot end before its start date. One that has already ended keeps its
// end date. Cancelling never marks the promotion as extended.
func (p *Promotion) Cancel(today time.Time) error {
	d := DateOf(today)
	if p.StartDate.After(d) {
		return orderingError(p.StartDate.Format(DateLayout), d.Format(DateLayout))
	}
	if d.Before(p.EndDate) {
		p.EndDate = d
	}
	return nil
}

// HasEnded reports whether the promotion ended before today.
func (p *Promotion) HasEnded(today time.Time) bool {
	return p.EndDate.Before(DateOf(today))
}

// IsActive reports whether today falls within [StartDate, EndDate].
func (p *Promotion) IsActive(today time.Time) bool {
	d := DateOf(today)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// Serialize returns every field, including id, with native Go values.
func (p *Promotion) Serialize() Payload {
	return Payload{
		FieldID:                    p.ID,
		FieldName:                  p.Name,
		FieldStartDate:             p.StartDate,
		FieldEndDate:               p.EndDate,
		FieldWholeStore:            p.WholeStore,
		FieldHasBeenExtended:       p.HasBeenExtended,
		FieldOriginalEndDate:       p.OriginalEndDate,
		FieldMessage:               p.Message,
		FieldPromotionChangesPrice: p.PromotionChangesPrice,
	}
}

func (p *Promotion) String() string {
	return fmt.Sprintf("<Promotion %s id=[%d]>", p.Name, p.ID)
}
