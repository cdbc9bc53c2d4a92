package services

import (
	"fmt"
	"math"

	"github.com/skillbadge/assessment-service/internal/models"
)

type ScoreCard struct {
	Correct int
	Total   int
	Score   int
	Passed  bool
}

// ScoreAnswers grades answers against every question of the skill.
// Unanswered questions count as wrong, unknown ids and out of range options are rejected.
func ScoreAnswers(questions []*models.Question, answers map[string]int) (*ScoreCard, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	byID := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var errs ValidationErrors
	for questionID, choice := range answers {
		q, ok := byID[questionID]
		if !ok {
			errs = append(errs, *NewValidationError("answers", fmt.Sprintf("unknown question %s", questionID), questionID))
			continue
		}
		options, err := q.OptionList()
		if err != nil {
			return nil, fmt.Errorf("failed to read options of question %s: %w", q.ID, err)
		}
		if choice < 0 || choice >= len(options) {
			errs = append(errs, *NewValidationError("answers", fmt.Sprintf("option %d out of range for question %s", choice, questionID), choice))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	card := &ScoreCard{Total: len(questions)}
	for _, q := range questions {
		if choice, ok := answers[q.ID]; ok && choice == q.CorrectAnswer {
			card.Correct++
		}
	}
	card.Score = int(math.Round(100 * float64(card.Correct) / float64(card.Total)))
	card.Passed = card.Score >= models.PassingScore
	return card, nil
}
