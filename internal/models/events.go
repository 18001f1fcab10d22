package models

import (
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type EventStatus string

const (
	StatusActive      EventStatus = "active"
	StatusUnderReview EventStatus = "under_review"
	StatusRejected    EventStatus = "rejected"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusActive, StatusUnderReview, StatusRejected:
		return true
	}
	return false
}

// AllBuildings is the sentinel building filter value that disables the
// building predicate.
const AllBuildings = "All"

// Buildings lists the venues an event can be posted for.
var Buildings = []string{
	"Building 1",
	"Building 2",
	"Food Court",
	"Main Hall",
}

func IsKnownBuilding(name string) bool {
	for _, b := range Buildings {
		if b == name {
			return true
		}
	}
	return false
}

const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 500
)

type Event struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Building    string      `db:"building" json:"building"`
	EventDate   time.Time   `db:"event_date" json:"event_date"`
	ImageURL    string      `db:"image_url" json:"image_url"`
	AuthorID    uuid.UUID   `db:"author_id" json:"author_id"`
	AuthorEmail string      `db:"author_email" json:"author_email"`
	IsAnonymous bool        `db:"is_anonymous" json:"is_anonymous"`
	Status      EventStatus `db:"status" json:"status"`
	ReportCount int         `db:"report_count" json:"report_count"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (e *Event) IsOwnedBy(userID uuid.UUID) bool {
	return e != nil && userID != uuid.Nil && e.AuthorID == userID
}

func (e *Event) IsUnderReview() bool {
	return e.Status == StatusUnderReview
}

// EventInput is the owner-supplied part of an event on create and edit.
type EventInput struct {
	Title       string    `json:"title" form:"title" validate:"required,max=50"`
	Description string    `json:"description" form:"description" validate:"max=500"`
	Building    string    `json:"building" form:"building" validate:"required,building"`
	EventDate   time.Time `json:"event_date" form:"event_date" time_format:"2006-01-02T15:04:05Z07:00" validate:"required"`
	IsAnonymous bool      `json:"is_anonymous" form:"is_anonymous"`
}

var textPolicy = bluemonday.StrictPolicy()

// StripMarkup removes every tag from s and trims it. Entities are decoded
// again so "&" survives as typed.
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func (in *EventInput) Sanitize() {
	in.Title = StripMarkup(in.Title)
	in.Description = StripMarkup(in.Description)
	in.Building = strings.TrimSpace(in.Building)
}

// EventChanges is a partial update. Nil fields are left untouched.
type EventChanges struct {
	Title       *string
	Description *string
	Building    *string
	EventDate   *time.Time
	ImageURL    *string
	IsAnonymous *bool
	UpdatedAt   time.Time
}

func (c EventChanges) Apply(e *Event) {
	if c.Title != nil {
		e.Title = *c.Title
	}
	if c.Description != nil {
		e.Description = *c.Description
	}
	if c.Building != nil {
		e.Building = *c.Building
	}
	if c.EventDate != nil {
		e.EventDate = *c.EventDate
	}
	if c.ImageURL != nil {
		e.ImageURL = *c.ImageURL
	}
	if c.IsAnonymous != nil {
		e.IsAnonymous = *c.IsAnonymous
	}
	if !c.UpdatedAt.IsZero() {
		e.UpdatedAt = c.UpdatedAt
	}
}

// EventView is the public rendering of an event. Author identity is hidden
// for anonymous posts.
type EventView struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Building    string      `json:"building"`
	EventDate   time.Time   `json:"event_date"`
	ImageURL    string      `json:"image_url"`
	AuthorID    *uuid.UUID  `json:"author_id,omitempty"`
	AuthorEmail string      `json:"author_email,omitempty"`
	IsAnonymous bool        `json:"is_anonymous"`
	Status      EventStatus `json:"status"`
	Pending     bool        `json:"pending"`
	IsOwner     bool        `json:"is_owner"`
	Reported    bool        `json:"reported"`
	CreatedAt   time.Time   `json:"created_at"`
}

func NewEventView(e *Event, viewer uuid.UUID) EventView {
	v := EventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Building:    e.Building,
		EventDate:   e.EventDate,
		ImageURL:    e.ImageURL,
		IsAnonymous: e.IsAnonymous,
		Status:      e.Status,
		Pending:     e.IsUnderReview(),
		IsOwner:     e.IsOwnedBy(viewer),
		CreatedAt:   e.CreatedAt,
	}
	if !e.IsAnonymous || v.IsOwner {
		id := e.AuthorID
		v.AuthorID = &id
		v.AuthorEmail = e.AuthorEmail
	}
	return v
}
