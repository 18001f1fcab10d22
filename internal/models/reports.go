package models

import (
	"time"

	"github.com/google/uuid"
)

type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonSexualContent  ReportReason = "sexual_content"
	ReasonHateSpeech     ReportReason = "hate_speech"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonScam           ReportReason = "scam"
	ReasonViolence       ReportReason = "violence"
	ReasonOther          ReportReason = "other"
)

var ReportReasons = []ReportReason{
	ReasonSpam,
	ReasonSexualContent,
	ReasonHateSpeech,
	ReasonMisinformation,
	ReasonScam,
	ReasonViolence,
	ReasonOther,
}

func (r ReportReason) Valid() bool {
	for _, known := range ReportReasons {
		if r == known {
			return true
		}
	}
	return false
}

const MaxReportMessageLength = 500

// Report is a single user's flag on an event. (EventID, UserID) is unique.
type Report struct {
	EventID     uuid.UUID    `db:"event_id" json:"event_id"`
	UserID      uuid.UUID    `db:"user_id" json:"user_id"`
	Reason      ReportReason `db:"reason" json:"reason"`
	Message     string       `db:"message" json:"message,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	DismissedAt *time.Time   `db:"dismissed_at" json:"dismissed_at,omitempty"`
}

// EscalationRule tells a store how to flip status when a report write pushes
// the count to Threshold. Stores apply it in the same atomic unit as the
// report insert.
type EscalationRule struct {
	From      EventStatus
	To        EventStatus
	Threshold int
}

// Next returns the status an event in `current` should move to once its
// report count is `count`.
func (r EscalationRule) Next(current EventStatus, count int) EventStatus {
	if r.Threshold > 0 && current == r.From && count >= r.Threshold {
		return r.To
	}
	return current
}

type ReportOutcome struct {
	NewCount       int
	PreviousStatus EventStatus
	Status         EventStatus
	StatusChanged  bool
}

// ReasonCounts groups an event's active reports by reason.
type ReasonCounts map[ReportReason]int

// ReviewItem is one row of the moderation queue.
type ReviewItem struct {
	Event   *Event       `json:"event"`
	Reasons ReasonCounts `json:"reasons"`
}

// Identity is the authenticated caller as seen by the core.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == "admin"
}
