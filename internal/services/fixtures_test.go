package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/stretchr/testify/require"
)

// Saturday 15 June 2024, 10:00 UTC.
var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeImages struct {
	mu        sync.Mutex
	n         int
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeImages) Upload(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.n++
	url := fmt.Sprintf("https://img.test/%s/%d.png", ownerID, f.n)
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return f.deleteErr
}

func (f *fakeImages) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// failingStore wraps a Store and fails the selected operations.
type failingStore struct {
	models.Store
	insertErr error
	queryErr  error
}

func (f *failingStore) InsertEvent(ctx context.Context, e *models.Event) (*models.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return f.Store.InsertEvent(ctx, e)
}

func (f *failingStore) QueryEvents(ctx context.Context, plan models.QueryPlan) ([]*models.Event, int64, error) {
	if f.queryErr != nil {
		return nil, 0, f.queryErr
	}
	return f.Store.QueryEvents(ctx, plan)
}

var errBackendDown = errors.New("connection refused")

type testEnv struct {
	store      *models.MemoryRepo
	images     *fakeImages
	caches     *ReportCacheRegistry
	reports    *ReportService
	events     *EventService
	moderation *ModerationService
}

func newTestEnv(t *testing.T, threshold int) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, threshold, nil)
}

func newTestEnvWithStore(t *testing.T, threshold int, wrap func(models.Store) models.Store) *testEnv {
	t.Helper()
	mem := models.NewMemoryRepo()
	var store models.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}

	resolver := NewDateRangeResolver(time.UTC)
	builder := NewEventQueryBuilder(resolver, true, 100)
	machine := NewModerationStateMachine(threshold)
	caches := NewReportCacheRegistry(16)
	images := &fakeImages{}
	logger := discardLogger()

	reports := NewReportService(store, machine, logger)
	reports.now = func() time.Time { return fixedNow }
	events := NewEventService(store, images, builder, resolver, reports, machine, caches,
		EventServiceConfig{DefaultPageSize: 12, MaxDaysAhead: 14}, logger)
	events.now = func() time.Time { return fixedNow }
	moderation := NewModerationService(store, images, builder, machine, caches, logger)
	moderation.now = func() time.Time { return fixedNow }

	return &testEnv{
		store:      mem,
		images:     images,
		caches:     caches,
		reports:    reports,
		events:     events,
		moderation: moderation,
	}
}

func (env *testEnv) seed(t *testing.T, mutate func(e *models.Event)) *models.Event {
	t.Helper()
	e := &models.Event{
		ID:          uuid.New(),
		Title:       "Study group",
		Description: "Weekly calculus review",
		Building:    "Main Hall",
		EventDate:   fixedNow.Add(2 * time.Hour),
		ImageURL:    "https://img.test/seed.png",
		AuthorID:    uuid.New(),
		AuthorEmail: "author@campus.test",
		Status:      models.StatusActive,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	if mutate != nil {
		mutate(e)
	}
	_, err := env.store.InsertEvent(context.Background(), e)
	require.NoError(t, err)
	return e
}

func student() *models.Identity {
	id := uuid.New()
	return &models.Identity{ID: id, Email: "s-" + id.String()[:8] + "@campus.test", Role: models.RoleStudent}
}

func admin() *models.Identity {
	return &models.Identity{ID: uuid.New(), Email: "admin@campus.test", Role: models.RoleAdmin}
}

func imageUpload() *ImageUpload {
	return &ImageUpload{Filename: "poster.png", Content: strings.NewReader(string(pngBytes))}
}

func validInput() models.EventInput {
	return models.EventInput{
		Title:       "Robotics demo",
		Description: "Come see the line followers",
		Building:    "Building 1",
		EventDate:   time.Date(2024, 6, 17, 14, 0, 0, 0, time.UTC),
	}
}
