package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skillbadge/assessment-service/internal/models"
)

var ErrNoAssessmentNotes = errors.New("payment notes carry no assessment data")

// EncodeNotes embeds the assessment selection in the provider's notes field
func EncodeNotes(payload models.AssessmentPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payment notes: %w", err)
	}
	return string(data), nil
}

// DecodeNotes recovers the assessment selection, requiring at least a skill
func DecodeNotes(notes string) (*models.AssessmentPayload, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrNoAssessmentNotes
	}

	var payload models.AssessmentPayload
	if err := json.Unmarshal([]byte(notes), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAssessmentNotes, err)
	}
	if strings.TrimSpace(payload.Skill) == "" {
		return nil, ErrNoAssessmentNotes
	}
	return &payload, nil
}
