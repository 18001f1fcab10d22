package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type reportKey struct {
	eventID uuid.UUID
	userID  uuid.UUID
}

// MemoryRepo is an in-process Store. A single mutex makes every method one
// atomic unit, which is what the report and approval primitives need.
type MemoryRepo struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*Event
	reports map[reportKey]*Report
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		events:  make(map[uuid.UUID]*Event),
		reports: make(map[reportKey]*Report),
		now:     time.Now,
	}
}

func copyEvent(e *Event) *Event {
	c := *e
	return &c
}

func (m *MemoryRepo) QueryEvents(ctx context.Context, plan QueryPlan) ([]*Event, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*Event, 0)
	for _, e := range m.events {
		if plan.Matches(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return plan.Less(matched[i], matched[j]) })

	total := int64(len(matched))
	start := plan.Offset()
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if plan.Limit() > 0 && plan.Limit() < end-start {
		end = start + plan.Limit()
	}

	out := make([]*Event, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, copyEvent(e))
	}
	return out, total, nil
}

func (m *MemoryRepo) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return copyEvent(e), nil
}

func (m *MemoryRepo) InsertEvent(ctx context.Context, event *Event) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[event.ID]; exists {
		return nil, fmt.Errorf("event %s already exists", event.ID)
	}
	m.events[event.ID] = copyEvent(event)
	return copyEvent(event), nil
}

func (m *MemoryRepo) UpdateEvent(ctx context.Context, id uuid.UUID, changes EventChanges) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	changes.Apply(e)
	return copyEvent(e), nil
}

func (m *MemoryRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(m.events, id)
	for k := range m.reports {
		if k.eventID == id {
			delete(m.reports, k)
		}
	}
	return nil
}

func (m *MemoryRepo) RecordReport(ctx context.Context, report *Report, rule EscalationRule) (*ReportOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[report.EventID]
	if !ok || e.Status == StatusRejected {
		return nil, fmt.Errorf("event %s: %w", report.EventID, ErrNotFound)
	}
	key := reportKey{eventID: report.EventID, userID: report.UserID}
	if _, dup := m.reports[key]; dup {
		return nil, ErrDuplicateReport
	}

	r := *report
	m.reports[key] = &r

	prev := e.Status
	e.ReportCount++
	e.Status = rule.Next(prev, e.ReportCount)
	e.UpdatedAt = report.CreatedAt

	return &ReportOutcome{
		NewCount:       e.ReportCount,
		PreviousStatus: prev,
		Status:         e.Status,
		StatusChanged:  e.Status != prev,
	}, nil
}

func (m *MemoryRepo) ApproveEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if e.Status != StatusUnderReview {
		return nil, fmt.Errorf("event %s is not under review: %w", id, ErrInvalidTransition)
	}

	now := m.now()
	e.Status = StatusActive
	e.ReportCount = 0
	e.UpdatedAt = now
	for k, r := range m.reports {
		if k.eventID == id && r.DismissedAt == nil {
			dismissed := now
			r.DismissedAt = &dismissed
		}
	}
	return copyEvent(e), nil
}

func (m *MemoryRepo) HasReported(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.reports[reportKey{eventID: eventID, userID: userID}]
	return ok, nil
}

func (m *MemoryRepo) ReportedEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uuid.UUID, 0)
	for k := range m.reports {
		if k.userID == userID {
			ids = append(ids, k.eventID)
		}
	}
	return ids, nil
}

func (m *MemoryRepo) ReportReasonCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]ReasonCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]ReasonCounts, len(eventIDs))
	for k, r := range m.reports {
		if !wanted[k.eventID] || r.DismissedAt != nil {
			continue
		}
		if out[k.eventID] == nil {
			out[k.eventID] = ReasonCounts{}
		}
		out[k.eventID][r.Reason]++
	}
	return out, nil
}

// Report returns a copy of the stored report for the pair, if any.
func (m *MemoryRepo) Report(eventID, userID uuid.UUID) (*Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[reportKey{eventID: eventID, userID: userID}]
	if !ok {
		return nil, false
	}
	c := *r
	return &c, true
}

// ReportCount returns the number of stored reports for an event, dismissed
// ones included.
func (m *MemoryRepo) ReportCount(eventID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.reports {
		if k.eventID == eventID {
			n++
		}
	}
	return n
}
