package services

import (
	"testing"

	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	m := NewModerationStateMachine(3)

	allowed := []struct {
		from    models.EventStatus
		trigger Trigger
		to      models.EventStatus
	}{
		{models.StatusActive, TriggerReportThreshold, models.StatusUnderReview},
		{models.StatusUnderReview, TriggerApprove, models.StatusActive},
		{models.StatusUnderReview, TriggerReject, models.StatusRejected},
		{models.StatusActive, TriggerOwnerDelete, StatusRemoved},
		{models.StatusUnderReview, TriggerOwnerDelete, StatusRemoved},
	}
	for _, tt := range allowed {
		got, err := m.Transition(tt.from, tt.trigger)
		require.NoError(t, err, "%s on %s", tt.trigger, tt.from)
		assert.Equal(t, tt.to, got)
	}

	denied := []struct {
		from    models.EventStatus
		trigger Trigger
	}{
		{models.StatusActive, TriggerApprove},
		{models.StatusActive, TriggerReject},
		{models.StatusUnderReview, TriggerReportThreshold},
		{models.StatusRejected, TriggerApprove},
		{models.StatusRejected, TriggerOwnerDelete},
	}
	for _, tt := range denied {
		_, err := m.Transition(tt.from, tt.trigger)
		assert.ErrorIs(t, err, models.ErrInvalidTransition, "%s on %s", tt.trigger, tt.from)
	}
}

func TestEscalationRule(t *testing.T) {
	rule := NewModerationStateMachine(3).EscalationRule()
	assert.Equal(t, models.StatusActive, rule.From)
	assert.Equal(t, models.StatusUnderReview, rule.To)
	assert.Equal(t, 3, rule.Threshold)

	assert.Equal(t, models.StatusActive, rule.Next(models.StatusActive, 2))
	assert.Equal(t, models.StatusUnderReview, rule.Next(models.StatusActive, 3))
	assert.Equal(t, models.StatusUnderReview, rule.Next(models.StatusUnderReview, 4))

	off := NewModerationStateMachine(0).EscalationRule()
	assert.Equal(t, models.StatusActive, off.Next(models.StatusActive, 100))
}
