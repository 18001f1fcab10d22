package services

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder() *EventQueryBuilder {
	return NewEventQueryBuilder(NewDateRangeResolver(time.UTC), true, 50)
}

func findPredicate[T models.Predicate](preds []models.Predicate) (T, bool) {
	for _, p := range preds {
		if v, ok := p.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestBuildDiscoveryDefaults(t *testing.T) {
	plan, err := newBuilder().Build(Criteria{Scope: ScopeDiscovery, PageSize: 12}, fixedNow)
	require.NoError(t, err)

	status, ok := findPredicate[models.StatusIn](plan.Predicates())
	require.True(t, ok)
	assert.ElementsMatch(t, []models.EventStatus{models.StatusActive, models.StatusUnderReview}, status.Statuses)

	floor, ok := findPredicate[models.DateAtLeast](plan.Predicates())
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), floor.At)

	assert.Equal(t, []models.OrderBy{{Field: models.FieldEventDate}}, plan.Order())
	assert.Equal(t, 0, plan.Offset())
	assert.Equal(t, 12, plan.Limit())
}

func TestBuildHidesUnderReviewWhenConfigured(t *testing.T) {
	b := NewEventQueryBuilder(NewDateRangeResolver(time.UTC), false, 50)
	assert.Equal(t, []models.EventStatus{models.StatusActive}, b.PublicStatuses())

	plan, err := b.Build(Criteria{PageSize: 5}, fixedNow)
	require.NoError(t, err)
	assert.False(t, plan.Matches(&models.Event{Status: models.StatusUnderReview, EventDate: fixedNow}))
	assert.True(t, plan.Matches(&models.Event{Status: models.StatusActive, EventDate: fixedNow}))
}

func TestBuildAllBuildingsAddsNoPredicate(t *testing.T) {
	for _, building := range []string{"", "All", "all", "  "} {
		plan, err := newBuilder().Build(Criteria{Building: building, PageSize: 12}, fixedNow)
		require.NoError(t, err)
		_, ok := findPredicate[models.FieldEquals](plan.Predicates())
		assert.False(t, ok, "building %q", building)
	}

	plan, err := newBuilder().Build(Criteria{Building: " Food Court ", PageSize: 12}, fixedNow)
	require.NoError(t, err)
	eq, ok := findPredicate[models.FieldEquals](plan.Predicates())
	require.True(t, ok)
	assert.Equal(t, models.FieldEquals{Field: models.FieldBuilding, Value: "Food Court"}, eq)
}

func TestBuildSearchIsDisjunction(t *testing.T) {
	plan, err := newBuilder().Build(Criteria{Search: "  Chess ", PageSize: 12}, fixedNow)
	require.NoError(t, err)

	text, ok := findPredicate[models.TextContainsAny](plan.Predicates())
	require.True(t, ok)
	assert.Equal(t, "Chess", text.Text)
	assert.Equal(t, []models.Field{models.FieldTitle, models.FieldDescription}, text.Fields)

	inTitle := &models.Event{Status: models.StatusActive, EventDate: fixedNow, Title: "chess club"}
	inDescription := &models.Event{Status: models.StatusActive, EventDate: fixedNow, Description: "Bring a CHESS board"}
	neither := &models.Event{Status: models.StatusActive, EventDate: fixedNow, Title: "Go club"}
	assert.True(t, plan.Matches(inTitle))
	assert.True(t, plan.Matches(inDescription))
	assert.False(t, plan.Matches(neither))
}

func TestBuildDateRangeKeepsFloor(t *testing.T) {
	plan, err := newBuilder().Build(Criteria{Date: DateMonth, PageSize: 12}, fixedNow)
	require.NoError(t, err)

	earlierThisMonth := &models.Event{Status: models.StatusActive, EventDate: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)}
	laterThisMonth := &models.Event{Status: models.StatusActive, EventDate: time.Date(2024, 6, 28, 12, 0, 0, 0, time.UTC)}
	nextMonth := &models.Event{Status: models.StatusActive, EventDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}
	assert.False(t, plan.Matches(earlierThisMonth))
	assert.True(t, plan.Matches(laterThisMonth))
	assert.False(t, plan.Matches(nextMonth))
}

func TestBuildRejectsUnknownDateToken(t *testing.T) {
	_, err := newBuilder().Build(Criteria{Date: "fortnight", PageSize: 12}, fixedNow)
	assert.ErrorIs(t, err, models.ErrInvalidFilter)
}

func TestBuildRejectsOverflowingPage(t *testing.T) {
	b := newBuilder()

	_, err := b.Build(Criteria{Page: math.MaxInt/6 + 1, PageSize: 12}, fixedNow)
	assert.ErrorIs(t, err, models.ErrInvalidFilter)

	_, err = b.Build(Criteria{Page: math.MaxInt, PageSize: 1}, fixedNow)
	require.NoError(t, err)

	plan, err := b.Build(Criteria{Page: math.MaxInt/12 + 1, PageSize: 12}, fixedNow)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plan.Offset(), 0)
}

func TestBuildPaging(t *testing.T) {
	b := newBuilder()

	plan, err := b.Build(Criteria{Page: 3, PageSize: 4}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 8, plan.Offset())
	assert.Equal(t, 4, plan.Limit())

	plan, err = b.Build(Criteria{Page: -2, PageSize: 4}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.Offset())

	for _, size := range []int{0, -1, 51} {
		_, err := b.Build(Criteria{Page: 1, PageSize: size}, fixedNow)
		assert.ErrorIs(t, err, models.ErrInvalidFilter, "page size %d", size)
	}
}

func TestBuildRejectsUnknownSort(t *testing.T) {
	_, err := newBuilder().Build(Criteria{PageSize: 12, Sort: "popular"}, fixedNow)
	assert.ErrorIs(t, err, models.ErrInvalidFilter)

	_, err = newBuilder().Build(Criteria{PageSize: 12, Sort: SortDateAsc}, fixedNow)
	assert.NoError(t, err)
}

func TestBuildOwnerScope(t *testing.T) {
	b := newBuilder()

	_, err := b.Build(Criteria{Scope: ScopeOwner, PageSize: 12}, fixedNow)
	assert.ErrorIs(t, err, models.ErrInvalidFilter)

	author := uuid.New()
	plan, err := b.Build(Criteria{Scope: ScopeOwner, AuthorID: author, PageSize: 12}, fixedNow)
	require.NoError(t, err)

	_, hasStatus := findPredicate[models.StatusIn](plan.Predicates())
	_, hasFloor := findPredicate[models.DateAtLeast](plan.Predicates())
	assert.False(t, hasStatus)
	assert.False(t, hasFloor)

	past := &models.Event{AuthorID: author, Status: models.StatusUnderReview, EventDate: fixedNow.AddDate(0, -1, 0)}
	assert.True(t, plan.Matches(past))
	assert.False(t, plan.Matches(&models.Event{AuthorID: uuid.New(), EventDate: fixedNow}))
}

func TestBuildReviewScope(t *testing.T) {
	plan, err := newBuilder().Build(Criteria{Scope: ScopeReview, PageSize: 12}, fixedNow)
	require.NoError(t, err)

	status, ok := findPredicate[models.StatusIn](plan.Predicates())
	require.True(t, ok)
	assert.Equal(t, []models.EventStatus{models.StatusUnderReview}, status.Statuses)

	_, hasFloor := findPredicate[models.DateAtLeast](plan.Predicates())
	assert.False(t, hasFloor)

	assert.Equal(t, []models.OrderBy{
		{Field: models.FieldReportCount, Descending: true},
		{Field: models.FieldEventDate},
	}, plan.Order())
}
