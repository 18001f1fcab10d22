package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReportIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 3)
	event := env.seed(t, nil)
	reporter := student()
	cache := NewReportStatusCache()
	ctx := context.Background()

	outcome, err := env.reports.SubmitReport(ctx, cache, reporter, event.ID, ReportInput{Reason: models.ReasonSpam})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.NewCount)

	_, err = env.reports.SubmitReport(ctx, cache, reporter, event.ID, ReportInput{Reason: models.ReasonScam})
	assert.ErrorIs(t, err, models.ErrDuplicateReport)

	got, err := env.store.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReportCount)

	stored, ok := env.store.Report(event.ID, reporter.ID)
	require.True(t, ok)
	assert.Equal(t, models.ReasonSpam, stored.Reason)

	reported, ok := cache.Get(reporter.ID, event.ID)
	assert.True(t, ok)
	assert.True(t, reported)
}

func TestOwnerCannotReport(t *testing.T) {
	env := newTestEnv(t, 3)
	owner := student()
	event := env.seed(t, func(e *models.Event) { e.AuthorID = owner.ID })

	_, err := env.reports.SubmitReport(context.Background(), nil, owner, event.ID, ReportInput{Reason: models.ReasonOther})
	assert.ErrorIs(t, err, models.ErrOwnerCannotReport)

	got, err := env.store.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReportCount)
	assert.Equal(t, 0, env.store.ReportCount(event.ID))
}

func TestThresholdEscalatesExactlyOnce(t *testing.T) {
	env := newTestEnv(t, 3)
	event := env.seed(t, nil)
	ctx := context.Background()

	var changes int
	for i := 1; i <= 5; i++ {
		outcome, err := env.reports.SubmitReport(ctx, nil, student(), event.ID, ReportInput{Reason: models.ReasonMisinformation})
		require.NoError(t, err)
		assert.Equal(t, i, outcome.NewCount)
		if outcome.StatusChanged {
			changes++
			assert.Equal(t, 3, outcome.NewCount)
			assert.Equal(t, models.StatusActive, outcome.PreviousStatus)
			assert.Equal(t, models.StatusUnderReview, outcome.Status)
		}
		if i < 3 {
			assert.Equal(t, models.StatusActive, outcome.Status)
		} else {
			assert.Equal(t, models.StatusUnderReview, outcome.Status)
		}
	}
	assert.Equal(t, 1, changes)
}

func TestSubmitReportValidation(t *testing.T) {
	env := newTestEnv(t, 3)
	event := env.seed(t, nil)
	ctx := context.Background()

	_, err := env.reports.SubmitReport(ctx, nil, nil, event.ID, ReportInput{Reason: models.ReasonSpam})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = env.reports.SubmitReport(ctx, nil, student(), event.ID, ReportInput{Reason: "boring"})
	assert.ErrorIs(t, err, models.ErrInvalidReport)

	long := strings.Repeat("x", models.MaxReportMessageLength+1)
	_, err = env.reports.SubmitReport(ctx, nil, student(), event.ID, ReportInput{Reason: models.ReasonOther, Message: long})
	assert.ErrorIs(t, err, models.ErrInvalidReport)

	_, err = env.reports.SubmitReport(ctx, nil, student(), uuid.New(), ReportInput{Reason: models.ReasonSpam})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, 0, env.store.ReportCount(event.ID))
}

func TestSubmitReportStripsMarkupFromMessage(t *testing.T) {
	env := newTestEnv(t, 3)
	event := env.seed(t, nil)
	reporter := student()

	_, err := env.reports.SubmitReport(context.Background(), nil, reporter, event.ID, ReportInput{
		Reason:  models.ReasonOther,
		Message: "  <b>fake</b> <script>alert(1)</script>listing ",
	})
	require.NoError(t, err)

	stored, ok := env.store.Report(event.ID, reporter.ID)
	require.True(t, ok)
	assert.Equal(t, "fake listing", stored.Message)
}

func TestHasReportedUsesCache(t *testing.T) {
	env := newTestEnv(t, 3)
	event := env.seed(t, nil)
	reporter := student()
	cache := NewReportStatusCache()
	ctx := context.Background()

	reported, err := env.reports.HasReported(ctx, cache, reporter.ID, event.ID)
	require.NoError(t, err)
	assert.False(t, reported)

	cached, ok := cache.Get(reporter.ID, event.ID)
	assert.True(t, ok)
	assert.False(t, cached)

	_, err = env.reports.SubmitReport(ctx, cache, reporter, event.ID, ReportInput{Reason: models.ReasonSpam})
	require.NoError(t, err)

	reported, err = env.reports.HasReported(ctx, cache, reporter.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, reported)

	reported, err = env.reports.HasReported(ctx, nil, uuid.Nil, event.ID)
	require.NoError(t, err)
	assert.False(t, reported)
}

func TestFetchReportedIDs(t *testing.T) {
	env := newTestEnv(t, 10)
	a := env.seed(t, nil)
	b := env.seed(t, nil)
	c := env.seed(t, nil)
	reporter := student()
	cache := NewReportStatusCache()
	ctx := context.Background()

	for _, e := range []*models.Event{a, c} {
		_, err := env.reports.SubmitReport(ctx, nil, reporter, e.ID, ReportInput{Reason: models.ReasonSpam})
		require.NoError(t, err)
	}

	ids, err := env.reports.FetchReportedIDs(ctx, cache, reporter.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, c.ID)
	assert.NotContains(t, ids, b.ID)

	_, ok := cache.Get(reporter.ID, a.ID)
	assert.True(t, ok)

	empty, err := env.reports.FetchReportedIDs(ctx, cache, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
