package session

import "github.com/stemsi/proctor-backend/internal/model"

// Score counts questions whose recorded answer equals the correct label.
// Unanswered questions count as incorrect.
func Score(questions []model.Question, answers model.Answers) (score, total int) {
	for _, q := range questions {
		if label, ok := answers[q.ID]; ok && label == q.CorrectOption {
			score++
		}
	}
	return score, len(questions)
}
