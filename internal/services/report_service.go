package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
)

// ReportService is the report ledger: submission, idempotence and batch
// existence checks.
type ReportService struct {
	store   models.Store
	machine *ModerationStateMachine
	logger  *slog.Logger
	now     func() time.Time
}

func NewReportService(store models.Store, machine *ModerationStateMachine, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		store:   store,
		machine: machine,
		logger:  logger,
		now:     time.Now,
	}
}

type ReportInput struct {
	Reason  models.ReportReason `json:"reason" binding:"required"`
	Message string              `json:"message"`
}

func (rs *ReportService) SubmitReport(ctx context.Context, cache *ReportStatusCache, who *models.Identity, eventID uuid.UUID, in ReportInput) (*models.ReportOutcome, error) {
	if who == nil || who.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: sign in to report events", models.ErrUnauthorized)
	}
	if !in.Reason.Valid() {
		return nil, fmt.Errorf("%w: unknown report reason %q", models.ErrInvalidReport, in.Reason)
	}
	message := models.StripMarkup(in.Message)
	if utf8.RuneCountInString(message) > models.MaxReportMessageLength {
		return nil, fmt.Errorf("%w: message must be at most %d characters", models.ErrInvalidReport, models.MaxReportMessageLength)
	}

	event, err := rs.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsOwnedBy(who.ID) {
		return nil, models.ErrOwnerCannotReport
	}

	report := &models.Report{
		EventID:   eventID,
		UserID:    who.ID,
		Reason:    in.Reason,
		Message:   message,
		CreatedAt: rs.now().UTC(),
	}
	outcome, err := rs.store.RecordReport(ctx, report, rs.machine.EscalationRule())
	if err != nil {
		if errors.Is(err, models.ErrDuplicateReport) && cache != nil {
			cache.Set(who.ID, eventID, true)
		}
		return nil, err
	}
	if cache != nil {
		cache.Set(who.ID, eventID, true)
	}

	rs.logger.Info("Event reported",
		"event_id", eventID,
		"user_id", who.ID,
		"reason", in.Reason,
		"report_count", outcome.NewCount,
	)
	if outcome.StatusChanged {
		rs.logger.Info("Event moved to review",
			"event_id", eventID,
			"from", outcome.PreviousStatus,
			"to", outcome.Status,
			"threshold", rs.machine.Threshold(),
		)
	}
	return outcome, nil
}

func (rs *ReportService) HasReported(ctx context.Context, cache *ReportStatusCache, userID, eventID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if cache != nil {
		if reported, ok := cache.Get(userID, eventID); ok {
			return reported, nil
		}
	}
	reported, err := rs.store.HasReported(ctx, userID, eventID)
	if err != nil {
		return false, err
	}
	if cache != nil {
		cache.Set(userID, eventID, reported)
	}
	return reported, nil
}

// FetchReportedIDs loads every event the user has reported in one round trip
// and warms the cache with them.
func (rs *ReportService) FetchReportedIDs(ctx context.Context, cache *ReportStatusCache, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	if userID == uuid.Nil {
		return out, nil
	}
	ids, err := rs.store.ReportedEventIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = struct{}{}
		if cache != nil {
			cache.Set(userID, id, true)
		}
	}
	return out, nil
}
