package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/models"
	"golang.org/x/sync/errgroup"
)

type EventServiceConfig struct {
	DefaultPageSize int
	MaxDaysAhead    int
	OpenHour        int
	CloseHour       int
}

func (c EventServiceConfig) withDefaults() EventServiceConfig {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 12
	}
	if c.MaxDaysAhead <= 0 {
		c.MaxDaysAhead = 14
	}
	if c.OpenHour == 0 && c.CloseHour == 0 {
		c.OpenHour, c.CloseHour = 8, 18
	}
	return c
}

type EventService struct {
	store    models.Store
	images   helpers.ImageStore
	builder  *EventQueryBuilder
	resolver *DateRangeResolver
	reports  *ReportService
	machine  *ModerationStateMachine
	caches   *ReportCacheRegistry
	cfg      EventServiceConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewEventService(
	store models.Store,
	images helpers.ImageStore,
	builder *EventQueryBuilder,
	resolver *DateRangeResolver,
	reports *ReportService,
	machine *ModerationStateMachine,
	caches *ReportCacheRegistry,
	cfg EventServiceConfig,
	logger *slog.Logger,
) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		store:    store,
		images:   images,
		builder:  builder,
		resolver: resolver,
		reports:  reports,
		machine:  machine,
		caches:   caches,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// ListQuery is the raw filter a caller sends.
type ListQuery struct {
	Building string `form:"building"`
	Date     string `form:"date"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Sort     string `form:"sort"`
}

type EventPage struct {
	Events []models.EventView `json:"events"`
	Page   int                `json:"page"`
	PageInfo
}

// ImageUpload is an image file as received from the client.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

func (es *EventService) criteria(scope QueryScope, q ListQuery) Criteria {
	pageSize := q.PageSize
	if pageSize == 0 {
		pageSize = es.cfg.DefaultPageSize
	}
	return Criteria{
		Scope:    scope,
		Building: q.Building,
		Date:     q.Date,
		Search:   q.Search,
		Page:     q.Page,
		PageSize: pageSize,
		Sort:     q.Sort,
	}
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ListEvents is public discovery. When a viewer is given, each row carries
// whether the viewer has reported it; that lookup runs alongside the page
// query.
func (es *EventService) ListEvents(ctx context.Context, cache *ReportStatusCache, viewer *models.Identity, q ListQuery) (*EventPage, error) {
	now := es.now()
	c := es.criteria(ScopeDiscovery, q)
	plan, err := es.builder.Build(c, now)
	if err != nil {
		return nil, err
	}

	var (
		rows     []*models.Event
		total    int64
		reported map[uuid.UUID]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, total, err = es.store.QueryEvents(gctx, plan)
		return err
	})
	if viewer != nil {
		g.Go(func() error {
			var err error
			reported, err = es.reports.FetchReportedIDs(gctx, cache, viewer.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var viewerID uuid.UUID
	if viewer != nil {
		viewerID = viewer.ID
	}
	views := make([]models.EventView, 0, len(rows))
	for _, e := range rows {
		v := models.NewEventView(e, viewerID)
		_, v.Reported = reported[e.ID]
		views = append(views, v)
	}

	return &EventPage{
		Events:   views,
		Page:     clampPage(c.Page),
		PageInfo: ComputePageInfo(total, plan.Limit()),
	}, nil
}

// ListMyEvents lists the caller's own events in every status, past ones
// included.
func (es *EventService) ListMyEvents(ctx context.Context, who *models.Identity, q ListQuery) (*EventPage, error) {
	if who == nil {
		return nil, models.ErrUnauthorized
	}
	now := es.now()
	c := es.criteria(ScopeOwner, q)
	c.AuthorID = who.ID
	plan, err := es.builder.Build(c, now)
	if err != nil {
		return nil, err
	}

	rows, total, err := es.store.QueryEvents(ctx, plan)
	if err != nil {
		return nil, err
	}
	views := make([]models.EventView, 0, len(rows))
	for _, e := range rows {
		views = append(views, models.NewEventView(e, who.ID))
	}
	return &EventPage{
		Events:   views,
		Page:     clampPage(c.Page),
		PageInfo: ComputePageInfo(total, plan.Limit()),
	}, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", models.ErrInvalidEvent, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "building":
			msgs = append(msgs, fmt.Sprintf("unknown building %q", fe.Value()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", models.ErrInvalidEvent, strings.Join(msgs, "; "))
}

// checkSchedule enforces office hours in the campus location and the
// posting window [now, now+MaxDaysAhead].
func (es *EventService) checkSchedule(at, now time.Time) error {
	if at.Before(now) {
		return fmt.Errorf("%w: event date cannot be in the past", models.ErrInvalidEvent)
	}
	if at.After(now.AddDate(0, 0, es.cfg.MaxDaysAhead)) {
		return fmt.Errorf("%w: event date must be within %d days", models.ErrInvalidEvent, es.cfg.MaxDaysAhead)
	}
	hour := at.In(es.resolver.Location()).Hour()
	if hour < es.cfg.OpenHour || hour >= es.cfg.CloseHour {
		return fmt.Errorf("%w: events must start between %02d:00 and %02d:00", models.ErrInvalidEvent, es.cfg.OpenHour, es.cfg.CloseHour)
	}
	return nil
}

func (es *EventService) validateInput(in *models.EventInput, now time.Time) error {
	in.Sanitize()
	if err := models.Validate.Struct(in); err != nil {
		return describeValidation(err)
	}
	return es.checkSchedule(in.EventDate, now)
}

func (es *EventService) uploadImage(ctx context.Context, ownerID uuid.UUID, img *ImageUpload) (string, error) {
	data, _, err := helpers.ReadImage(img.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrInvalidEvent, err)
	}
	url, err := es.images.Upload(ctx, ownerID, img.Filename, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	return url, nil
}

func (es *EventService) releaseImage(ctx context.Context, url string, eventID uuid.UUID) {
	if url == "" {
		return
	}
	if err := es.images.Delete(ctx, url); err != nil {
		es.logger.Warn("Failed to delete event image",
			"event_id", eventID,
			"image_url", url,
			"error", err,
		)
	}
}

func (es *EventService) CreateEvent(ctx context.Context, who *models.Identity, in models.EventInput, img *ImageUpload) (*models.Event, error) {
	if who == nil {
		return nil, models.ErrUnauthorized
	}
	now := es.now()
	if err := es.validateInput(&in, now); err != nil {
		return nil, err
	}
	if img == nil || img.Content == nil {
		return nil, fmt.Errorf("%w: image is required", models.ErrInvalidEvent)
	}

	url, err := es.uploadImage(ctx, who.ID, img)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Building:    in.Building,
		EventDate:   in.EventDate.UTC(),
		ImageURL:    url,
		AuthorID:    who.ID,
		AuthorEmail: who.Email,
		IsAnonymous: in.IsAnonymous,
		Status:      models.StatusActive,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	created, err := es.store.InsertEvent(ctx, event)
	if err != nil {
		es.releaseImage(ctx, url, event.ID)
		return nil, err
	}

	es.logger.Info("Event created",
		"event_id", created.ID,
		"author_id", who.ID,
		"building", created.Building,
	)
	return created, nil
}

// loadOwned fetches an event the caller may edit. Admins may act on any
// event.
func (es *EventService) loadOwned(ctx context.Context, who *models.Identity, id uuid.UUID) (*models.Event, error) {
	if who == nil {
		return nil, models.ErrUnauthorized
	}
	event, err := es.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOwnedBy(who.ID) && !who.IsAdmin() {
		return nil, fmt.Errorf("%w: only the author can change this event", models.ErrForbidden)
	}
	return event, nil
}

// UpdateEvent replaces the editable fields. A new image replaces the old one,
// which is released after the row is written.
func (es *EventService) UpdateEvent(ctx context.Context, who *models.Identity, id uuid.UUID, in models.EventInput, img *ImageUpload) (*models.Event, error) {
	now := es.now()
	if err := es.validateInput(&in, now); err != nil {
		return nil, err
	}
	current, err := es.loadOwned(ctx, who, id)
	if err != nil {
		return nil, err
	}

	eventDate := in.EventDate.UTC()
	changes := models.EventChanges{
		Title:       &in.Title,
		Description: &in.Description,
		Building:    &in.Building,
		EventDate:   &eventDate,
		IsAnonymous: &in.IsAnonymous,
		UpdatedAt:   now.UTC(),
	}

	var newURL string
	if img != nil && img.Content != nil {
		newURL, err = es.uploadImage(ctx, current.AuthorID, img)
		if err != nil {
			return nil, err
		}
		changes.ImageURL = &newURL
	}

	updated, err := es.store.UpdateEvent(ctx, id, changes)
	if err != nil {
		es.releaseImage(ctx, newURL, id)
		return nil, err
	}
	if newURL != "" && current.ImageURL != newURL {
		es.releaseImage(ctx, current.ImageURL, id)
	}

	es.logger.Info("Event updated", "event_id", id, "user_id", who.ID)
	return updated, nil
}

func (es *EventService) DeleteEvent(ctx context.Context, who *models.Identity, id uuid.UUID) error {
	event, err := es.loadOwned(ctx, who, id)
	if err != nil {
		return err
	}
	if _, err := es.machine.Transition(event.Status, TriggerOwnerDelete); err != nil {
		return err
	}
	if err := es.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	if es.caches != nil {
		es.caches.InvalidateEvent(id)
	}
	es.releaseImage(ctx, event.ImageURL, id)

	es.logger.Info("Event deleted", "event_id", id, "user_id", who.ID)
	return nil
}
