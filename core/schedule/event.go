package schedule

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/week"
)

var ErrEventNotFound = errors.New("event not found")

type EventType string

const (
	TypeGradedDelivery EventType = "evaluado_entrega"
	TypeMeeting        EventType = "reunion"
	TypeLecture        EventType = "teorica"
)

// EventTypes is the legend of the week grid.
var EventTypes = []EventTypeInfo{
	{Value: TypeGradedDelivery, Label: "Evaluado / Entrega", Color: "red"},
	{Value: TypeMeeting, Label: "Reunión", Color: "yellow"},
	{Value: TypeLecture, Label: "Teórica", Color: "green"},
}

type EventTypeInfo struct {
	Value EventType `json:"value"`
	Label string    `json:"label"`
	Color string    `json:"color"`
}

func (t EventType) info() (EventTypeInfo, bool) {
	for _, info := range EventTypes {
		if info.Value == t {
			return info, true
		}
	}
	return EventTypeInfo{}, false
}

func (t EventType) Valid() bool {
	_, ok := t.info()
	return ok
}

// Color returns the chip color of the type. Unknown types render as lectures.
func (t EventType) Color() string {
	if info, ok := t.info(); ok {
		return info.Color
	}
	return "green"
}

// Event is a dated entry attached to a subject. It spans Date to EndDate, both inclusive.
type Event struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"-"`
	SubjectID     string    `json:"subject_id"`
	Title         string    `json:"title"`
	Type          EventType `json:"type"`
	Date          week.Date `json:"date"`
	EndDate       week.Date `json:"end_date"`
	WeightPercent *float64  `json:"weight_percent"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Caption is the chip text: the title followed by the weight, if any.
func (e Event) Caption() string {
	if e.WeightPercent == nil {
		return e.Title
	}
	return e.Title + " (" + strconv.FormatFloat(*e.WeightPercent, 'f', -1, 64) + "%)"
}

// End returns EndDate, or Date for events stored without an end.
func (e Event) End() week.Date {
	if e.EndDate.IsZero() {
		return e.Date
	}
	return e.EndDate
}

// EventDraft holds the editable fields of an Event, as filled in the create and edit forms.
type EventDraft struct {
	Title         string    `json:"title" validate:"notblank,max=200"`
	Type          EventType `json:"type" validate:"required,eventtype"`
	Date          week.Date `json:"date"`
	EndDate       week.Date `json:"end_date"`
	WeightPercent *float64  `json:"weight_percent" validate:"omitempty,weight"`
}

// Clean trims the title and defaults the end date to the start date.
func (d *EventDraft) Clean() {
	d.Title = core.CleanString(d.Title)
	if d.EndDate.IsZero() {
		d.EndDate = d.Date
	}
}

func (d *EventDraft) Validate(validate *validator.Validate) error {
	d.Clean()
	return validate.Struct(d)
}

// NewEvent contains the information needed to create an Event.
type NewEvent struct {
	SubjectID string `json:"subject_id" validate:"required"`
	EventDraft
}

// Validate validates the draft and checks that the subject belongs to ownerID.
func (ne *NewEvent) Validate(ctx context.Context, validate *validator.Validate, svc Service, ownerID string) error {
	ne.SubjectID = core.CleanString(ne.SubjectID)
	ne.Clean()
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if _, err := svc.GetSubject(ctx, ownerID, ne.SubjectID); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding subject")
	}
	return nil
}

// EventFilter selects the events overlapping [From, To). Zero bounds are open.
type EventFilter struct {
	From      week.Date `query:"from"`
	To        week.Date `query:"to"`
	SubjectID string    `query:"subject_id"`
}

// Match reports whether ev passes the filter.
func (f EventFilter) Match(ev Event) bool {
	if f.SubjectID != "" && ev.SubjectID != f.SubjectID {
		return false
	}
	if !f.To.IsZero() && !ev.Date.Before(f.To) {
		return false
	}
	if !f.From.IsZero() && ev.End().Before(f.From) {
		return false
	}
	return true
}

type EventRepository interface {
	CreateEvent(ctx context.Context, ev Event) (Event, error)
	GetEvent(ctx context.Context, ownerID, id string) (Event, error)
	// QueryEvents returns the owner's events matching filter, ordered by date, end date and title.
	QueryEvents(ctx context.Context, ownerID string, filter EventFilter) ([]Event, error)
	UpdateEvent(ctx context.Context, ev Event) (Event, error)
	DeleteEvent(ctx context.Context, ownerID, id string) (int, error)
}
