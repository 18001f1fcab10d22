package services

import (
	"fmt"

	"github.com/joshua-takyi/campus-events/internal/models"
)

type Trigger string

const (
	TriggerReportThreshold Trigger = "report_threshold"
	TriggerApprove         Trigger = "approve"
	TriggerReject          Trigger = "reject"
	TriggerOwnerDelete     Trigger = "owner_delete"
)

// StatusRemoved is the terminal pseudo-status of a deleted event. It is never
// stored.
const StatusRemoved models.EventStatus = "removed"

type transitionKey struct {
	from    models.EventStatus
	trigger Trigger
}

var transitions = map[transitionKey]models.EventStatus{
	{models.StatusActive, TriggerReportThreshold}: models.StatusUnderReview,
	{models.StatusUnderReview, TriggerApprove}:    models.StatusActive,
	{models.StatusUnderReview, TriggerReject}:     models.StatusRejected,
	{models.StatusActive, TriggerOwnerDelete}:      StatusRemoved,
	{models.StatusUnderReview, TriggerOwnerDelete}: StatusRemoved,
}

type ModerationStateMachine struct {
	threshold int
}

func NewModerationStateMachine(threshold int) *ModerationStateMachine {
	return &ModerationStateMachine{threshold: threshold}
}

func (m *ModerationStateMachine) Threshold() int {
	return m.threshold
}

// Transition returns the status reached from `from` on trigger t.
func (m *ModerationStateMachine) Transition(from models.EventStatus, t Trigger) (models.EventStatus, error) {
	to, ok := transitions[transitionKey{from, t}]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", models.ErrInvalidTransition, t, from)
	}
	return to, nil
}

// EscalationRule is the threshold transition in the form stores apply
// atomically alongside a report insert.
func (m *ModerationStateMachine) EscalationRule() models.EscalationRule {
	return models.EscalationRule{
		From:      models.StatusActive,
		To:        transitions[transitionKey{models.StatusActive, TriggerReportThreshold}],
		Threshold: m.threshold,
	}
}
