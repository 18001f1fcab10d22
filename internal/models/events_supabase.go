package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

const (
	EventsTable  = "events"
	ReportsTable = "event_reports"

	reportEventFn  = "report_event"
	approveEventFn = "approve_event"

	pgUniqueViolation = "23505"
	pgNoDataFound     = "P0002"
	pgRaiseException  = "P0001"
)

// escapeILIKEPattern escapes the LIKE metacharacters so user input is matched
// literally.
func escapeILIKEPattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// postgrestContains builds a double-quoted ilike operand. PostgREST turns `*`
// into `%`, so asterisks in the search text are dropped rather than becoming
// wildcards.
func postgrestContains(text string) string {
	text = strings.ReplaceAll(text, "*", "")
	pattern := "*" + escapeILIKEPattern(text) + "*"
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(pattern) + `"`
}

func postgrestTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// applyPlan adds the plan's predicates, ordering and window to a PostgREST
// select.
func applyPlan(q *postgrest.FilterBuilder, plan QueryPlan) *postgrest.FilterBuilder {
	for _, pred := range plan.Predicates() {
		switch p := pred.(type) {
		case StatusIn:
			statuses := make([]string, 0, len(p.Statuses))
			for _, s := range p.Statuses {
				statuses = append(statuses, string(s))
			}
			q = q.In("status", statuses)
		case FieldEquals:
			q = q.Eq(string(p.Field), p.Value)
		case DateAtLeast:
			q = q.Gte("event_date", postgrestTime(p.At))
		case DateAtMost:
			q = q.Lte("event_date", postgrestTime(p.At))
		case TextContainsAny:
			operand := postgrestContains(p.Text)
			parts := make([]string, 0, len(p.Fields))
			for _, f := range p.Fields {
				parts = append(parts, fmt.Sprintf("%s.ilike.%s", f, operand))
			}
			q = q.Or(strings.Join(parts, ","), "")
		}
	}
	for _, o := range plan.Order() {
		q = q.Order(string(o.Field), &postgrest.OrderOpts{Ascending: !o.Descending})
	}
	q = q.Order(string(FieldID), &postgrest.OrderOpts{Ascending: true})
	if plan.Limit() > 0 {
		q = q.Range(plan.Offset(), plan.Offset()+plan.Limit()-1, "")
	}
	return q
}

func (su *SupabaseRepo) QueryEvents(ctx context.Context, plan QueryPlan) ([]*Event, int64, error) {
	q := su.supabaseClient.From(EventsTable).Select("*", "exact", false)
	data, count, err := applyPlan(q, plan).Execute()
	if err != nil {
		return nil, 0, storeError("query events", err)
	}

	var events []*Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal events: %v", err)
	}
	if events == nil {
		events = []*Event{}
	}
	return events, count, nil
}

func (su *SupabaseRepo) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	data, _, err := su.supabaseClient.From(EventsTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, storeError("get event", err)
	}

	var events []*Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event rows: %v", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return events[0], nil
}

func (su *SupabaseRepo) InsertEvent(ctx context.Context, event *Event) (*Event, error) {
	row := map[string]interface{}{
		"id":           event.ID,
		"title":        event.Title,
		"description":  event.Description,
		"building":     event.Building,
		"event_date":   postgrestTime(event.EventDate),
		"image_url":    event.ImageURL,
		"author_id":    event.AuthorID,
		"author_email": event.AuthorEmail,
		"is_anonymous": event.IsAnonymous,
		"status":       event.Status,
		"report_count": event.ReportCount,
		"created_at":   postgrestTime(event.CreatedAt),
		"updated_at":   postgrestTime(event.UpdatedAt),
	}

	data, _, err := su.supabaseClient.From(EventsTable).
		Insert(row, false, "", "", "exact").
		Execute()
	if err != nil {
		return nil, storeError("insert event", err)
	}

	var created []*Event
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to unmarshal created event: %v", err)
	}
	if len(created) == 0 {
		return event, nil
	}
	return created[0], nil
}

func (su *SupabaseRepo) UpdateEvent(ctx context.Context, id uuid.UUID, changes EventChanges) (*Event, error) {
	row := map[string]interface{}{
		"updated_at": postgrestTime(changes.UpdatedAt),
	}
	if changes.Title != nil {
		row["title"] = *changes.Title
	}
	if changes.Description != nil {
		row["description"] = *changes.Description
	}
	if changes.Building != nil {
		row["building"] = *changes.Building
	}
	if changes.EventDate != nil {
		row["event_date"] = postgrestTime(*changes.EventDate)
	}
	if changes.ImageURL != nil {
		row["image_url"] = *changes.ImageURL
	}
	if changes.IsAnonymous != nil {
		row["is_anonymous"] = *changes.IsAnonymous
	}

	data, count, err := su.supabaseClient.From(EventsTable).
		Update(row, "", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, storeError("update event", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}

	var updated []*Event
	if err := json.Unmarshal(data, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated event: %v", err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return updated[0], nil
}

// DeleteEvent relies on the ON DELETE CASCADE from event_reports to events.
func (su *SupabaseRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	_, count, err := su.supabaseClient.From(EventsTable).
		Delete("", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return storeError("delete event", err)
	}
	if count == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

type reportEventResult struct {
	NewCount       int    `json:"new_count"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// RecordReport calls the report_event function, which inserts the report and
// updates the counter and status in one transaction.
func (su *SupabaseRepo) RecordReport(ctx context.Context, report *Report, rule EscalationRule) (*ReportOutcome, error) {
	body := map[string]interface{}{
		"p_event_id":  report.EventID,
		"p_user_id":   report.UserID,
		"p_reason":    report.Reason,
		"p_message":   report.Message,
		"p_threshold": rule.Threshold,
		"p_from":      rule.From,
		"p_to":        rule.To,
	}

	raw, err := su.rpc(ctx, reportEventFn, body)
	if err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) {
			switch rerr.Code {
			case pgUniqueViolation:
				return nil, ErrDuplicateReport
			case pgNoDataFound:
				return nil, fmt.Errorf("event %s: %w", report.EventID, ErrNotFound)
			}
		}
		return nil, storeError("record report", err)
	}

	var res reportEventResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report_event result: %v", err)
	}
	return &ReportOutcome{
		NewCount:       res.NewCount,
		PreviousStatus: EventStatus(res.PreviousStatus),
		Status:         EventStatus(res.Status),
		StatusChanged:  res.Status != res.PreviousStatus,
	}, nil
}

func (su *SupabaseRepo) ApproveEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	raw, err := su.rpc(ctx, approveEventFn, map[string]interface{}{"p_event_id": id})
	if err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) {
			switch {
			case rerr.Code == pgNoDataFound:
				return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
			case rerr.Code == pgRaiseException && strings.Contains(rerr.Message, "not under review"):
				return nil, fmt.Errorf("event %s is not under review: %w", id, ErrInvalidTransition)
			}
		}
		return nil, storeError("approve event", err)
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approved event: %v", err)
	}
	return &event, nil
}

func (su *SupabaseRepo) HasReported(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	_, count, err := su.supabaseClient.From(ReportsTable).
		Select("event_id", "exact", true).
		Eq("event_id", eventID.String()).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return false, storeError("has reported", err)
	}
	return count > 0, nil
}

func (su *SupabaseRepo) ReportedEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	data, _, err := su.supabaseClient.From(ReportsTable).
		Select("event_id", "", false).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return nil, storeError("reported event ids", err)
	}

	var rows []struct {
		EventID uuid.UUID `json:"event_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reported ids: %v", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EventID)
	}
	return ids, nil
}

func (su *SupabaseRepo) ReportReasonCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]ReasonCounts, error) {
	out := make(map[uuid.UUID]ReasonCounts, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		ids = append(ids, id.String())
	}

	data, _, err := su.supabaseClient.From(ReportsTable).
		Select("event_id,reason", "", false).
		In("event_id", ids).
		Is("dismissed_at", "null").
		Execute()
	if err != nil {
		return nil, storeError("report reasons", err)
	}

	var rows []struct {
		EventID uuid.UUID    `json:"event_id"`
		Reason  ReportReason `json:"reason"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report reasons: %v", err)
	}
	for _, r := range rows {
		if out[r.EventID] == nil {
			out[r.EventID] = ReasonCounts{}
		}
		out[r.EventID][r.Reason]++
	}
	return out, nil
}

var rpcClient = &http.Client{Timeout: 15 * time.Second}

// rpcError is a non-2xx PostgREST reply, decoded from its error body.
type rpcError struct {
	Status int
	postgrest.ExecuteError
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc status %d: (%s) %s", e.Status, e.Code, e.Message)
}

// rpc invokes a Postgres function through PostgREST. postgrest-go's Client.Rpc
// hides the response status, so the call is made directly and error bodies
// come back as *rpcError.
func (su *SupabaseRepo) rpc(ctx context.Context, name string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s arguments: %v", name, err)
	}

	endpoint := strings.TrimRight(su.url, "/") + "/rest/v1/rpc/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Profile", "public")
	req.Header.Set("Content-Profile", "public")
	req.Header.Set("apikey", su.key)
	req.Header.Set("Authorization", "Bearer "+su.key)

	resp, err := rpcClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		rerr := &rpcError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, &rerr.ExecuteError); err != nil {
			rerr.Message = strings.TrimSpace(string(raw))
		}
		return nil, rerr
	}
	return raw, nil
}
