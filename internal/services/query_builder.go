package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
)

// QueryScope selects the defaults a plan is built with.
type QueryScope int

const (
	// ScopeDiscovery is the public listing: visible statuses, no past events.
	ScopeDiscovery QueryScope = iota
	// ScopeOwner lists one author's events in every status, past included.
	ScopeOwner
	// ScopeReview is the moderation queue.
	ScopeReview
)

const SortDateAsc = "date_asc"

var searchFields = []models.Field{models.FieldTitle, models.FieldDescription}

// Criteria is what a caller asks for. A nil Statuses takes the scope default.
// Date is a range token understood by DateRangeResolver.
type Criteria struct {
	Scope    QueryScope
	Statuses []models.EventStatus
	Building string
	Date     string
	Search   string
	Page     int
	PageSize int
	Sort     string
	AuthorID uuid.UUID
}

type EventQueryBuilder struct {
	resolver       *DateRangeResolver
	publicStatuses []models.EventStatus
	maxPageSize    int
}

func NewEventQueryBuilder(resolver *DateRangeResolver, includeUnderReview bool, maxPageSize int) *EventQueryBuilder {
	statuses := []models.EventStatus{models.StatusActive}
	if includeUnderReview {
		statuses = append(statuses, models.StatusUnderReview)
	}
	return &EventQueryBuilder{
		resolver:       resolver,
		publicStatuses: statuses,
		maxPageSize:    maxPageSize,
	}
}

// PublicStatuses returns the statuses visible in discovery.
func (b *EventQueryBuilder) PublicStatuses() []models.EventStatus {
	return append([]models.EventStatus(nil), b.publicStatuses...)
}

// Build composes a plan from criteria. All predicates are conjunctive; the
// search term alone is a disjunction over title and description.
func (b *EventQueryBuilder) Build(c Criteria, now time.Time) (models.QueryPlan, error) {
	if c.PageSize <= 0 {
		return models.QueryPlan{}, fmt.Errorf("%w: page size must be positive", models.ErrInvalidFilter)
	}
	if b.maxPageSize > 0 && c.PageSize > b.maxPageSize {
		return models.QueryPlan{}, fmt.Errorf("%w: page size must be at most %d", models.ErrInvalidFilter, b.maxPageSize)
	}
	if c.Sort != "" && c.Sort != SortDateAsc {
		return models.QueryPlan{}, fmt.Errorf("%w: unsupported sort %q", models.ErrInvalidFilter, c.Sort)
	}
	page := c.Page
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/c.PageSize {
		return models.QueryPlan{}, fmt.Errorf("%w: page %d is out of range", models.ErrInvalidFilter, c.Page)
	}
	dr, err := b.resolver.Resolve(c.Date, now)
	if err != nil {
		return models.QueryPlan{}, err
	}

	var preds []models.Predicate

	statuses := c.Statuses
	if statuses == nil {
		switch c.Scope {
		case ScopeDiscovery:
			statuses = b.publicStatuses
		case ScopeReview:
			statuses = []models.EventStatus{models.StatusUnderReview}
		}
	}
	if len(statuses) > 0 {
		preds = append(preds, models.StatusIn{Statuses: statuses})
	}

	if c.Scope == ScopeOwner {
		if c.AuthorID == uuid.Nil {
			return models.QueryPlan{}, fmt.Errorf("%w: author is required", models.ErrInvalidFilter)
		}
		preds = append(preds, models.FieldEquals{Field: models.FieldAuthorID, Value: c.AuthorID.String()})
	}

	building := strings.TrimSpace(c.Building)
	if building != "" && !strings.EqualFold(building, models.AllBuildings) {
		preds = append(preds, models.FieldEquals{Field: models.FieldBuilding, Value: building})
	}

	if c.Scope == ScopeDiscovery {
		preds = append(preds, models.DateAtLeast{At: b.resolver.StartOfDay(now)})
	}
	if dr != nil {
		preds = append(preds,
			models.DateAtLeast{At: dr.From},
			models.DateAtMost{At: dr.To},
		)
	}

	if search := strings.TrimSpace(c.Search); search != "" {
		preds = append(preds, models.TextContainsAny{Fields: searchFields, Text: search})
	}

	order := []models.OrderBy{{Field: models.FieldEventDate}}
	if c.Scope == ScopeReview {
		order = []models.OrderBy{
			{Field: models.FieldReportCount, Descending: true},
			{Field: models.FieldEventDate},
		}
	}

	return models.NewQueryPlan(preds, order, (page-1)*c.PageSize, c.PageSize), nil
}
