package app

import (
	"fmt"

	"qa-live-service/internal/domain"
)

// scoreResult is the partial-credit outcome of one selection.
type scoreResult struct {
	Selected        []string
	TotalCorrect    int
	CorrectSelected int
	Score           float64
	CorrectPercent  float64
}

// scoreSelection awards scoreMax in proportion to the share of correct options selected.
// Wrong selections cost nothing; ids outside the option set are ignored; repeated ids count once.
func scoreSelection(questionID string, options []domain.AnswerOption, selected []string, scoreMax int) (scoreResult, error) {
	correct := make(map[string]bool, len(options))
	totalCorrect := 0
	for _, opt := range options {
		correct[opt.ID] = opt.Correct
		if opt.Correct {
			totalCorrect++
		}
	}
	if totalCorrect == 0 {
		return scoreResult{}, fmt.Errorf("%w: %s", domain.ErrMisconfiguredQuestion, questionID)
	}

	seen := make(map[string]struct{}, len(selected))
	unique := make([]string, 0, len(selected))
	correctSelected := 0
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
		if correct[id] {
			correctSelected++
		}
	}

	ratio := float64(correctSelected) / float64(totalCorrect)
	return scoreResult{
		Selected:        unique,
		TotalCorrect:    totalCorrect,
		CorrectSelected: correctSelected,
		Score:           ratio * float64(scoreMax),
		CorrectPercent:  ratio * 100,
	}, nil
}
