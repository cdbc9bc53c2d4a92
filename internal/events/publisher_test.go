package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageCarriesMetadata(t *testing.T) {
	score := 80
	assessment := &models.Assessment{ID: "a-1", UserID: "u-1", Skill: "Teamwork", Status: models.StatusAwaitingApproval, Score: &score}

	event := NewAssessmentEvent(EventAssessmentSubmitted, assessment, nil)
	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, "assessment.submitted", msg.Metadata.Get("event_type"))
	assert.Equal(t, "a-1", msg.Metadata.Get("partition_key"))

	var decoded struct {
		Type EventType       `json:"type"`
		Data AssessmentEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, EventAssessmentSubmitted, decoded.Type)
	assert.Equal(t, "u-1", decoded.Data.UserID)
	assert.Equal(t, 80, *decoded.Data.Score)
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, publisher.PublishEvent(context.Background(), NewPaymentVerifiedEvent(PaymentVerifiedEvent{PaymentID: "MOJO1", UserID: "u-1"})))
	require.NoError(t, publisher.PublishEvent(context.Background(), NewAssessorEvent(EventAssessorReviewed, &models.AssessorRequest{ID: "r-1", UserID: "u-2", Status: models.AssessorRequestApproved})))

	assert.Len(t, publisher.GetPublishedEvents(), 2)
	assert.Len(t, publisher.EventsOfType(EventPaymentVerified), 1)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())

	publisher.Err = assert.AnError
	assert.ErrorIs(t, publisher.PublishEvent(context.Background(), NewPaymentVerifiedEvent(PaymentVerifiedEvent{})), assert.AnError)
}
