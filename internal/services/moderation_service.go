package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/models"
)

type ModerationService struct {
	store   models.Store
	images  helpers.ImageStore
	builder *EventQueryBuilder
	machine *ModerationStateMachine
	caches  *ReportCacheRegistry
	logger  *slog.Logger
	now     func() time.Time
}

func NewModerationService(
	store models.Store,
	images helpers.ImageStore,
	builder *EventQueryBuilder,
	machine *ModerationStateMachine,
	caches *ReportCacheRegistry,
	logger *slog.Logger,
) *ModerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModerationService{
		store:   store,
		images:  images,
		builder: builder,
		machine: machine,
		caches:  caches,
		logger:  logger,
		now:     time.Now,
	}
}

type ReviewPage struct {
	Items []models.ReviewItem `json:"items"`
	Page  int                 `json:"page"`
	PageInfo
}

func requireAdmin(who *models.Identity) error {
	if who == nil {
		return models.ErrUnauthorized
	}
	if !who.IsAdmin() {
		return fmt.Errorf("%w: admin role required", models.ErrForbidden)
	}
	return nil
}

// ListUnderReview returns the moderation queue, most reported first, with a
// per-reason breakdown of each event's active reports.
func (ms *ModerationService) ListUnderReview(ctx context.Context, who *models.Identity, page, pageSize int) (*ReviewPage, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	plan, err := ms.builder.Build(Criteria{
		Scope:    ScopeReview,
		Page:     page,
		PageSize: pageSize,
	}, ms.now())
	if err != nil {
		return nil, err
	}

	rows, total, err := ms.store.QueryEvents(ctx, plan)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.ID)
	}
	reasons, err := ms.store.ReportReasonCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.ReviewItem, 0, len(rows))
	for _, e := range rows {
		counts := reasons[e.ID]
		if counts == nil {
			counts = models.ReasonCounts{}
		}
		items = append(items, models.ReviewItem{Event: e, Reasons: counts})
	}
	return &ReviewPage{
		Items:    items,
		Page:     clampPage(page),
		PageInfo: ComputePageInfo(total, plan.Limit()),
	}, nil
}

// ApproveEvent returns an under_review event to active with a zero report
// count. Its reports are kept but dismissed.
func (ms *ModerationService) ApproveEvent(ctx context.Context, who *models.Identity, id uuid.UUID) (*models.Event, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	event, err := ms.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := ms.machine.Transition(event.Status, TriggerApprove); err != nil {
		return nil, err
	}

	approved, err := ms.store.ApproveEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	ms.logger.Info("Event approved", "event_id", id, "admin_id", who.ID)
	return approved, nil
}

// RejectEvent deletes an under_review event together with its reports and
// image.
func (ms *ModerationService) RejectEvent(ctx context.Context, who *models.Identity, id uuid.UUID) error {
	if err := requireAdmin(who); err != nil {
		return err
	}
	event, err := ms.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ms.machine.Transition(event.Status, TriggerReject); err != nil {
		return err
	}

	if err := ms.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	if ms.caches != nil {
		ms.caches.InvalidateEvent(id)
	}
	if event.ImageURL != "" {
		if err := ms.images.Delete(ctx, event.ImageURL); err != nil {
			ms.logger.Warn("Failed to delete event image",
				"event_id", id,
				"image_url", event.ImageURL,
				"error", err,
			)
		}
	}

	ms.logger.Info("Event rejected",
		"event_id", id,
		"admin_id", who.ID,
		"report_count", event.ReportCount,
	)
	return nil
}
