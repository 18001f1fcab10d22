package models

import (
	"strings"
	"time"
)

// Field names an event column as seen by query plans. The values double as
// the column names in every store.
type Field string

const (
	FieldID          Field = "id"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldBuilding    Field = "building"
	FieldAuthorID    Field = "author_id"
	FieldStatus      Field = "status"
	FieldEventDate   Field = "event_date"
	FieldReportCount Field = "report_count"
)

// Predicate is one clause of a QueryPlan. The set of implementations is
// closed; store adapters switch on the concrete type.
type Predicate interface {
	Matches(e *Event) bool
	predicate()
}

// StatusIn keeps events whose status is one of Statuses.
type StatusIn struct {
	Statuses []EventStatus
}

// FieldEquals keeps events whose string field equals Value exactly.
type FieldEquals struct {
	Field Field
	Value string
}

// DateAtLeast keeps events with event_date >= At.
type DateAtLeast struct {
	At time.Time
}

// DateAtMost keeps events with event_date <= At.
type DateAtMost struct {
	At time.Time
}

// TextContainsAny keeps events where any of Fields contains Text,
// case-insensitively.
type TextContainsAny struct {
	Fields []Field
	Text   string
}

func (StatusIn) predicate()        {}
func (FieldEquals) predicate()     {}
func (DateAtLeast) predicate()     {}
func (DateAtMost) predicate()      {}
func (TextContainsAny) predicate() {}

func (p StatusIn) Matches(e *Event) bool {
	for _, s := range p.Statuses {
		if e.Status == s {
			return true
		}
	}
	return false
}

func (p FieldEquals) Matches(e *Event) bool {
	return stringField(e, p.Field) == p.Value
}

func (p DateAtLeast) Matches(e *Event) bool {
	return !e.EventDate.Before(p.At)
}

func (p DateAtMost) Matches(e *Event) bool {
	return !e.EventDate.After(p.At)
}

func (p TextContainsAny) Matches(e *Event) bool {
	needle := strings.ToLower(p.Text)
	for _, f := range p.Fields {
		if strings.Contains(strings.ToLower(stringField(e, f)), needle) {
			return true
		}
	}
	return false
}

func stringField(e *Event, f Field) string {
	switch f {
	case FieldID:
		return e.ID.String()
	case FieldTitle:
		return e.Title
	case FieldDescription:
		return e.Description
	case FieldBuilding:
		return e.Building
	case FieldAuthorID:
		return e.AuthorID.String()
	case FieldStatus:
		return string(e.Status)
	}
	return ""
}

type OrderBy struct {
	Field      Field
	Descending bool
}

// QueryPlan is an immutable description of an event query: conjunctive
// predicates, ordering and an offset/limit window. A zero Limit means no limit.
type QueryPlan struct {
	predicates []Predicate
	order      []OrderBy
	offset     int
	limit      int
}

func NewQueryPlan(predicates []Predicate, order []OrderBy, offset, limit int) QueryPlan {
	p := QueryPlan{
		predicates: make([]Predicate, 0, len(predicates)),
		order:      append([]OrderBy(nil), order...),
		offset:     offset,
		limit:      limit,
	}
	for _, pred := range predicates {
		switch v := pred.(type) {
		case StatusIn:
			v.Statuses = append([]EventStatus(nil), v.Statuses...)
			pred = v
		case TextContainsAny:
			v.Fields = append([]Field(nil), v.Fields...)
			pred = v
		}
		p.predicates = append(p.predicates, pred)
	}
	return p
}

func (p QueryPlan) Predicates() []Predicate {
	return append([]Predicate(nil), p.predicates...)
}

func (p QueryPlan) Order() []OrderBy {
	return append([]OrderBy(nil), p.order...)
}

func (p QueryPlan) Offset() int { return p.offset }
func (p QueryPlan) Limit() int  { return p.limit }

// Matches reports whether e satisfies every predicate.
func (p QueryPlan) Matches(e *Event) bool {
	for _, pred := range p.predicates {
		if !pred.Matches(e) {
			return false
		}
	}
	return true
}

// Less orders two events by the plan's ordering, falling back to id so the
// order is total.
func (p QueryPlan) Less(a, b *Event) bool {
	for _, o := range p.order {
		c := compareField(a, b, o.Field)
		if c == 0 {
			continue
		}
		if o.Descending {
			return c > 0
		}
		return c < 0
	}
	return a.ID.String() < b.ID.String()
}

func compareField(a, b *Event, f Field) int {
	switch f {
	case FieldEventDate:
		return a.EventDate.Compare(b.EventDate)
	case FieldReportCount:
		switch {
		case a.ReportCount < b.ReportCount:
			return -1
		case a.ReportCount > b.ReportCount:
			return 1
		}
		return 0
	}
	return strings.Compare(stringField(a, f), stringField(b, f))
}
